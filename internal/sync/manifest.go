package sync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/igusev/siterank/internal/model"
	"github.com/igusev/siterank/internal/ranking"
)

// ErrInvalidManifest is returned for manifests that cannot be ingested
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest is a crawl dump: the pages of one network
type Manifest struct {
	Network string         `yaml:"network,omitempty"`
	Pages   []ManifestPage `yaml:"pages"`

	dir string // Directory body_file paths are relative to
}

// ManifestPage is one crawled page
// Body holds the raw content inline; BodyFile points to it on disk instead.
type ManifestPage struct {
	URL         string   `yaml:"url"`
	Title       string   `yaml:"title,omitempty"`
	Meta        string   `yaml:"meta,omitempty"`
	ContentType string   `yaml:"content_type,omitempty"`
	Body        string   `yaml:"body,omitempty"`
	BodyFile    string   `yaml:"body_file,omitempty"`
	UpdatedOn   string   `yaml:"updated_on,omitempty"`
	Authority   *float64 `yaml:"authority,omitempty"`
	Banned      bool     `yaml:"banned,omitempty"`
}

// LoadManifest reads and validates a YAML manifest
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// ParseManifest decodes and validates manifest YAML
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	seen := make(map[string]bool, len(m.Pages))
	for i, p := range m.Pages {
		if strings.TrimSpace(p.URL) == "" {
			return nil, fmt.Errorf("%w: page %d has no url", ErrInvalidManifest, i)
		}
		if model.DomainOf(p.URL) == "" {
			return nil, fmt.Errorf("%w: page %d url %q has no host", ErrInvalidManifest, i, p.URL)
		}
		if seen[p.URL] {
			return nil, fmt.Errorf("%w: duplicate url %q", ErrInvalidManifest, p.URL)
		}
		seen[p.URL] = true

		if p.Body != "" && p.BodyFile != "" {
			return nil, fmt.Errorf("%w: page %q sets both body and body_file", ErrInvalidManifest, p.URL)
		}
		if p.UpdatedOn != "" {
			if _, err := ranking.ParseUpdatedOn(p.UpdatedOn); err != nil {
				return nil, fmt.Errorf("%w: page %q: %v", ErrInvalidManifest, p.URL, err)
			}
		}
	}

	return &m, nil
}

// Document converts a manifest page into an index document with its raw body
// Pages without updated_on are stamped with fallback.
func (m *Manifest) Document(p ManifestPage, fallback time.Time) (model.Document, error) {
	body := p.Body
	if p.BodyFile != "" {
		path := p.BodyFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return model.Document{}, fmt.Errorf("failed to read body of %s: %w", p.URL, err)
		}
		body = string(data)
	}

	updated := fallback
	if p.UpdatedOn != "" {
		t, err := ranking.ParseUpdatedOn(p.UpdatedOn)
		if err != nil {
			return model.Document{}, fmt.Errorf("page %s: %w", p.URL, err)
		}
		updated = t
	}

	contentType := strings.ToLower(strings.TrimSpace(p.ContentType))
	if contentType == "" {
		contentType = guessContentType(p)
	}

	return model.Document{
		URL:         strings.TrimSpace(p.URL),
		Title:       p.Title,
		Meta:        p.Meta,
		Content:     body,
		ContentType: contentType,
		Authority:   p.Authority,
		UpdatedOn:   updated.UTC(),
		Banned:      p.Banned,
	}, nil
}

// guessContentType infers the content type from the body file extension
func guessContentType(p ManifestPage) string {
	switch strings.ToLower(filepath.Ext(p.BodyFile)) {
	case ".html", ".htm":
		return model.ContentTypeHTML
	case ".md", ".markdown":
		return model.ContentTypeMarkdown
	}
	return model.ContentTypeText
}
