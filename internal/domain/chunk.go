package domain

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// SourceType identifies the upstream shape a chunk was ingested from.
type SourceType string

const (
	SourceTypeDocumentation SourceType = "documentation"
	SourceTypeWebsite       SourceType = "website"
	SourceTypeBlog          SourceType = "blog"
	SourceTypeYouTube       SourceType = "youtube"
	SourceTypeText          SourceType = "text"
	SourceTypeHTML          SourceType = "html"
)

// SourceTypes lists every supported source type in declaration order.
var SourceTypes = []SourceType{
	SourceTypeDocumentation,
	SourceTypeWebsite,
	SourceTypeBlog,
	SourceTypeYouTube,
	SourceTypeText,
	SourceTypeHTML,
}

// IsValid checks if the source type is valid
func (s SourceType) IsValid() bool {
	for _, t := range SourceTypes {
		if s == t {
			return true
		}
	}
	return false
}

// ParseSourceType validates a raw source type string.
func ParseSourceType(raw string) (SourceType, error) {
	st := SourceType(raw)
	if !st.IsValid() {
		return "", NewDomainErrorWithCause(ErrCodeValidation, fmt.Sprintf("unknown source type %q", raw), ErrInvalidSourceType)
	}
	return st, nil
}

// chunkNamespace scopes name-based chunk ids so they never collide with ids
// minted for other purposes.
var chunkNamespace = uuid.MustParse("6f1c2a3e-9d4b-5e7f-8a90-1b2c3d4e5f60")

// ChunkID derives the stable identifier of a chunk. Identical inputs always
// produce the identical id, which makes re-ingestion overwrite instead of duplicate.
func ChunkID(url, heading string, chunkIndex int, sourceType SourceType) string {
	name := url + "_" + heading + "_" + strconv.Itoa(chunkIndex) + "_" + string(sourceType)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// Chunk is a contiguous passage of source text, the unit of retrieval.
// Chunks are immutable once built; re-ingestion supersedes them by id.
type Chunk struct {
	ID           string
	Text         string
	Title        string
	URL          string
	Heading      string
	SourceType   SourceType
	ChunkIndex   int
	HeadingLevel int
	PageTitle    string
	Month        string // "YYYY-MM", empty when unknown
	Tags         []string
	SourceFile   string
}

// Label returns the display label used when citing the chunk.
func (c *Chunk) Label(fallback string) string {
	if c.Title != "" {
		return c.Title
	}
	if c.URL != "" {
		return c.URL
	}
	return fallback
}
