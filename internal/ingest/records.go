package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"

	"github.com/cloo-solutions/docsrag/internal/domain"
)

// Origin describes where a source file came from. URL and Title override the
// defaults of whole-file sources.
type Origin struct {
	Path  string
	URL   string
	Title string
}

// Parser turns raw source files into documents. Records that cannot be
// decoded are logged as ingestion errors and skipped.
type Parser struct {
	// UpdatesOnly keeps only records whose title or url looks like update content.
	UpdatesOnly bool
}

// record is implemented by every source-specific record shape.
type record interface {
	documents(origin Origin) []domain.Document
}

// Parse decodes data as sourceType and returns its documents. An error is
// returned only when the file as a whole is unusable.
func (p *Parser) Parse(data []byte, sourceType domain.SourceType, origin Origin) ([]domain.Document, error) {
	switch sourceType {
	case domain.SourceTypeText:
		return p.filter([]domain.Document{textDocument(data, origin)}), nil
	case domain.SourceTypeHTML:
		return p.filter([]domain.Document{htmlDocument(data, origin)}), nil
	case domain.SourceTypeDocumentation:
		return p.parseRecords(data, origin, func() record { return &documentationRecord{} }, false)
	case domain.SourceTypeWebsite:
		return p.parseRecords(data, origin, func() record { return &websitePage{} }, true)
	case domain.SourceTypeBlog:
		return p.parseRecords(data, origin, func() record { return &blogRecord{} }, false)
	case domain.SourceTypeYouTube:
		return p.parseRecords(data, origin, func() record { return &youtubeRecord{} }, false)
	default:
		return nil, domain.NewIngestionError(fmt.Sprintf("unsupported source type %q", sourceType), domain.ErrInvalidSourceType)
	}
}

func (p *Parser) parseRecords(data []byte, origin Origin, newRecord func() record, allowPages bool) ([]domain.Document, error) {
	raw, err := decodeArray(data, allowPages)
	if err != nil {
		return nil, domain.NewIngestionError(fmt.Sprintf("failed to decode %s", origin.Path), err)
	}

	var docs []domain.Document
	for i, item := range raw {
		rec := newRecord()
		if err := json.Unmarshal(item, rec); err != nil {
			log.Printf("ingest: %v", domain.NewIngestionError(fmt.Sprintf("%s record %d", origin.Path, i), domain.ErrMalformedRecord))
			continue
		}
		docs = append(docs, rec.documents(origin)...)
	}
	return p.filter(docs), nil
}

func (p *Parser) filter(docs []domain.Document) []domain.Document {
	if !p.UpdatesOnly {
		return docs
	}
	kept := docs[:0]
	for _, d := range docs {
		if ShouldInclude(d.Title, d.URL) {
			kept = append(kept, d)
		}
	}
	return kept
}

// decodeArray accepts a JSON array, or an object with a "pages" array when
// allowPages is set.
func decodeArray(data []byte, allowPages bool) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if allowPages && len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			Pages []json.RawMessage `json:"pages"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, err
		}
		return wrapper.Pages, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// combineTitle joins a page title and heading as "page - heading" when both
// are present and differ.
func combineTitle(pageTitle, heading string) string {
	if pageTitle != "" && heading != "" && pageTitle != heading {
		return pageTitle + " - " + heading
	}
	return firstNonEmpty(pageTitle, heading)
}

type documentationRecord struct {
	Heading   string `json:"heading"`
	Level     *int   `json:"level"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	PageTitle string `json:"page_title"`
}

func (r *documentationRecord) documents(origin Origin) []domain.Document {
	pageTitle := firstNonEmpty(r.PageTitle, r.Heading)
	level := 1
	if r.Level != nil {
		level = *r.Level
	}
	title := combineTitle(pageTitle, r.Heading)
	return []domain.Document{{
		Text:       CleanText(r.Content),
		URL:        r.URL,
		Title:      title,
		Heading:    r.Heading,
		PageTitle:  pageTitle,
		SourceType: domain.SourceTypeDocumentation,
		Level:      level,
		Tags:       ExtractTags(title, r.URL, nil),
		SourceFile: origin.Path,
	}}
}

type websiteSection struct {
	Heading string `json:"heading"`
	Title   string `json:"title"`
	Level   *int   `json:"level"`
	Text    string `json:"text"`
	Content string `json:"content"`
	HTML    string `json:"html"`
}

type websitePage struct {
	URL       string           `json:"url"`
	Title     string           `json:"title"`
	PageTitle string           `json:"page_title"`
	Level     *int             `json:"level"`
	Text      string           `json:"text"`
	Content   string           `json:"content"`
	Body      string           `json:"body"`
	Markdown  string           `json:"markdown"`
	HTML      string           `json:"html"`
	Sections  []websiteSection `json:"sections"`
}

func (p *websitePage) documents(origin Origin) []domain.Document {
	pageTitle := firstNonEmpty(p.PageTitle, p.Title)
	level := 2
	if p.Level != nil {
		level = *p.Level
	}

	if len(p.Sections) == 0 {
		title := firstNonEmpty(pageTitle, p.URL, "Website Page")
		return []domain.Document{{
			Text:       textFromBody(firstNonEmpty(p.Text, p.Content, p.Body, p.Markdown, p.HTML)),
			URL:        p.URL,
			Title:      title,
			PageTitle:  pageTitle,
			SourceType: domain.SourceTypeWebsite,
			Level:      level,
			Tags:       ExtractTags(title, p.URL, nil),
			SourceFile: origin.Path,
		}}
	}

	docs := make([]domain.Document, 0, len(p.Sections))
	for _, sec := range p.Sections {
		heading := firstNonEmpty(sec.Heading, sec.Title)
		secLevel := level
		if sec.Level != nil {
			secLevel = *sec.Level
		}
		title := combineTitle(pageTitle, heading)
		docs = append(docs, domain.Document{
			Text:       textFromBody(firstNonEmpty(sec.Text, sec.Content, sec.HTML)),
			URL:        p.URL,
			Title:      title,
			Heading:    heading,
			PageTitle:  pageTitle,
			SourceType: domain.SourceTypeWebsite,
			Level:      secLevel,
			Tags:       ExtractTags(title, p.URL, nil),
			SourceFile: origin.Path,
			ParentID:   p.URL,
		})
	}
	return docs
}

type blogRecord struct {
	Content       string   `json:"content"`
	Body          string   `json:"body"`
	Text          string   `json:"text"`
	Title         string   `json:"title"`
	Heading       string   `json:"heading"`
	URL           string   `json:"url"`
	Link          string   `json:"link"`
	PublishedDate string   `json:"published_date"`
	Date          string   `json:"date"`
	CreatedAt     string   `json:"created_at"`
	Categories    []string `json:"categories"`
}

func (r *blogRecord) documents(origin Origin) []domain.Document {
	title := firstNonEmpty(r.Title, r.Heading)
	url := firstNonEmpty(r.URL, r.Link)
	return []domain.Document{{
		Text:       CleanText(firstNonEmpty(r.Content, r.Body, r.Text)),
		URL:        url,
		Title:      title,
		SourceType: domain.SourceTypeBlog,
		Month:      ParseMonth(firstNonEmpty(r.PublishedDate, r.Date, r.CreatedAt)),
		Tags:       ExtractTags(title, url, r.Categories),
		SourceFile: origin.Path,
	}}
}

type youtubeRecord struct {
	Transcript string `json:"transcript"`
	Content    string `json:"content"`
	Text       string `json:"text"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	VideoURL   string `json:"video_url"`
}

func (r *youtubeRecord) documents(origin Origin) []domain.Document {
	url := firstNonEmpty(r.URL, r.VideoURL)
	title := "Video: " + r.Title
	return []domain.Document{{
		Text:       CleanText(firstNonEmpty(r.Transcript, r.Content, r.Text)),
		URL:        url,
		Title:      title,
		SourceType: domain.SourceTypeYouTube,
		Tags:       ExtractTags(r.Title, url, nil),
		SourceFile: origin.Path,
	}}
}

func textDocument(data []byte, origin Origin) domain.Document {
	url := firstNonEmpty(origin.URL, origin.Path)
	title := firstNonEmpty(origin.Title, "Text File: "+origin.Path)
	return domain.Document{
		Text:       CleanText(string(data)),
		URL:        url,
		Title:      title,
		SourceType: domain.SourceTypeText,
		SourceFile: origin.Path,
	}
}

func htmlDocument(data []byte, origin Origin) domain.Document {
	pageTitle, text := ExtractHTML(string(data))
	url := firstNonEmpty(origin.URL, origin.Path)
	title := firstNonEmpty(origin.Title, pageTitle, "HTML File: "+origin.Path)
	return domain.Document{
		Text:       CleanText(text),
		URL:        url,
		Title:      title,
		PageTitle:  pageTitle,
		SourceType: domain.SourceTypeHTML,
		SourceFile: origin.Path,
	}
}
