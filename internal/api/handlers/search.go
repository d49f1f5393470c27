package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/docsrag/internal/api"
	"github.com/cloo-solutions/docsrag/internal/domain"
)

const ellipsis = "..."

type SearchService interface {
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResultItem is one ranked passage as returned to clients.
type SearchResultItem struct {
	Title      string  `json:"title,omitempty"`
	URL        string  `json:"url,omitempty"`
	Content    string  `json:"content"`
	Distance   float64 `json:"distance"`
	SourceFile string  `json:"source_file,omitempty"`
	ChunkID    string  `json:"chunk_id,omitempty"`
}

type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
}

// Get handles GET /search?q=...&k=... and returns a bare array of results.
func (h *SearchHandler) Get(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "k must be an integer")
			return
		}
		k = parsed
	}

	items, err := h.search(r.Context(), query, k)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, items)
}

// Post handles POST /search with a JSON body.
func (h *SearchHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := h.search(r.Context(), req.Query, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, SearchResponse{Results: items})
}

func (h *SearchHandler) search(ctx context.Context, query string, k int) ([]SearchResultItem, error) {
	results, err := h.svc.Search(ctx, strings.TrimSpace(query), k)
	if err != nil {
		return nil, err
	}
	items := make([]SearchResultItem, 0, len(results))
	for _, res := range results {
		items = append(items, toResultItem(res, 0))
	}
	return items, nil
}

// toResultItem converts a result, trimming content to maxContent runes when
// maxContent is positive.
func toResultItem(res domain.SearchResult, maxContent int) SearchResultItem {
	c := res.Chunk
	sourceFile := c.SourceFile
	if sourceFile == "" {
		sourceFile = string(c.SourceType)
	}
	return SearchResultItem{
		Title:      c.Title,
		URL:        c.URL,
		Content:    trimContent(c.Text, maxContent),
		Distance:   res.Distance(),
		SourceFile: sourceFile,
		ChunkID:    c.ID,
	}
}

func trimContent(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	keep := max - len(ellipsis)
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + ellipsis
}
