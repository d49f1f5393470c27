package ingest

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"gopkg.in/yaml.v3"
)

// SourceSpec names one input of an ingestion run: a local file or an S3 prefix.
type SourceSpec struct {
	Path     string            `yaml:"path"`
	S3Prefix string            `yaml:"s3_prefix"`
	Type     domain.SourceType `yaml:"type"`
	URL      string            `yaml:"url"`
	Title    string            `yaml:"title"`
}

// Validate checks that exactly one location is set and the type is known.
func (s SourceSpec) Validate() error {
	if (s.Path == "") == (s.S3Prefix == "") {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "source needs exactly one of path or s3_prefix", domain.ErrMissingRequiredField)
	}
	if _, err := domain.ParseSourceType(string(s.Type)); err != nil {
		return err
	}
	return nil
}

// Manifest lists the sources of an ingestion run.
type Manifest struct {
	Sources []SourceSpec `yaml:"sources"`
}

// LoadManifest reads and validates a YAML manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(m.Sources) == 0 {
		return nil, fmt.Errorf("manifest %s lists no sources", path)
	}
	for i, s := range m.Sources {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("manifest source %d: %w", i, err)
		}
	}
	return &m, nil
}
