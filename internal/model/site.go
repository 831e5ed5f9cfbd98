// Package model defines the core data structures shared by the index, the ranking core and the outer surfaces
package model

import (
	"net/url"
	"strings"
	"time"
)

// Content types understood by the index extractor
const (
	ContentTypeText     = "text"
	ContentTypeHTML     = "html"
	ContentTypeMarkdown = "markdown"
)

// Document is one crawled page as stored in the text index
type Document struct {
	URL         string    `json:"url" yaml:"url"`
	Domain      string    `json:"domain" yaml:"domain"`
	Title       string    `json:"title" yaml:"title"`
	Meta        string    `json:"meta" yaml:"meta"`                 // Meta description, used as the result snippet
	Content     string    `json:"content" yaml:"content"`           // Plain text body (after extraction)
	ContentType string    `json:"content_type" yaml:"content_type"` // text, html or markdown
	Anchors     []string  `json:"anchors" yaml:"anchors"`           // Texts of links pointing at this page
	Links       []string  `json:"links" yaml:"links"`               // Outbound absolute URLs
	Authority   *float64  `json:"authority,omitempty" yaml:"authority,omitempty"`
	UpdatedOn   time.Time `json:"updated_on" yaml:"updated_on"`
	Banned      bool      `json:"banned" yaml:"banned"`
}

// SearchHit is one site-level search result
type SearchHit struct {
	SiteID     string    `json:"domain"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Meta       string    `json:"meta,omitempty"`
	Anchor     string    `json:"anchor,omitempty"` // First anchor text, if any
	Links      []string  `json:"links,omitempty"`
	Authority  *float64  `json:"authority,omitempty"`
	UpdatedOn  time.Time `json:"updated_on"`
	IRScore    float64   `json:"ir_score"`    // Effective relevance score of the representative document
	FinalScore float64   `json:"final_score"` // Set by the heuristic ranker; mirrors IRScore otherwise
}

// ResultSet is the per-query working set handed from stage to stage
// Suggestion is empty when the index had no spelling suggestion
type ResultSet struct {
	Total      int         `json:"total"`
	Hits       []SearchHit `json:"hits"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// SiteIDs returns the site ids of all hits in hit order
func (rs *ResultSet) SiteIDs() []string {
	ids := make([]string, len(rs.Hits))
	for i, h := range rs.Hits {
		ids[i] = h.SiteID
	}
	return ids
}

// PopularityScore is a site-level popularity value (global or local)
type PopularityScore struct {
	SiteID string  `json:"domain"`
	Score  float64 `json:"score"`
}

// DisplayString returns "title (domain)" or just the domain when the page has no title
func (h SearchHit) DisplayString() string {
	title := strings.TrimSpace(h.Title)
	if title == "" {
		return h.SiteID
	}
	return title + " (" + h.SiteID + ")"
}

// DomainOf extracts the lowercase host (without port) from a URL
// Returns empty string for URLs without a host
func DomainOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
