// Package index provides the full-text site index over crawled pages using Bleve
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/igusev/siterank/internal/model"
)

const (
	// IndexVersion is the current version of the index schema
	// Increment this when making breaking changes to the index structure
	IndexVersion = 2 // Version 2: stored page blob replaces per-field storage

	// Version metadata document ID (reserved, never used for actual pages)
	versionDocID = "__index_version__"

	// Page size used when walking the whole index
	scanPageSize = 500
)

// Field boosts for the relevance query
const (
	boostTitle   = 6.0
	boostAnchors = 6.0
	boostMeta    = 3.0
	boostContent = 1.0
)

// MinimumShouldMatch is the share of query tokens a page has to match
const MinimumShouldMatch = 0.75

// ErrIndexVersionMismatch indicates the index schema version is incompatible
var ErrIndexVersionMismatch = errors.New("index version mismatch")

// SiteIndex manages the bleve index of crawled pages for one network
type SiteIndex struct {
	index bleve.Index
	path  string
}

// versionDocument stores the index schema version
type versionDocument struct {
	Version int `json:"version"`
}

// pageDocument is the shape handed to bleve
// Stored carries everything needed to rebuild a raw candidate without per-field lookups.
type pageDocument struct {
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	Title     string    `json:"title"`
	Anchors   []string  `json:"anchors"`
	Meta      string    `json:"meta"`
	Content   string    `json:"content"`
	Authority float64   `json:"authority"`
	UpdatedOn time.Time `json:"updated_on"`
	Banned    bool      `json:"banned"`
	Stored    string    `json:"stored"`
}

// storedPage is the JSON blob kept in the stored field
type storedPage struct {
	Authority   *float64        `json:"authority,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	Banned      bool            `json:"banned,omitempty"`
	Source      model.RawSource `json:"source"`
}

// New creates or opens a site index
// Returns ErrIndexVersionMismatch if existing index has incompatible version
func New(indexPath string) (*SiteIndex, error) {
	var index bleve.Index
	var err error

	if _, statErr := os.Stat(indexPath); os.IsNotExist(statErr) {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}

		if err := index.Index(versionDocID, versionDocument{Version: IndexVersion}); err != nil {
			_ = index.Close() // Ignore close error on error path
			return nil, fmt.Errorf("failed to store index version: %w", err)
		}
	} else {
		index, err = bleve.Open(indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}

		if err := checkVersion(index); err != nil {
			_ = index.Close() // Ignore close error on error path
			return nil, err
		}
	}

	return &SiteIndex{
		index: index,
		path:  indexPath,
	}, nil
}

func checkVersion(index bleve.Index) error {
	searchReq := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{versionDocID}))
	searchReq.Fields = []string{"version"}
	searchRes, err := index.Search(searchReq)
	if err != nil || len(searchRes.Hits) == 0 {
		return fmt.Errorf("%w: index has no version metadata", ErrIndexVersionMismatch)
	}

	storedVersion := 0
	if versionField, ok := searchRes.Hits[0].Fields["version"].(float64); ok {
		storedVersion = int(versionField)
	}
	if storedVersion == 0 {
		return fmt.Errorf("%w: could not determine index version", ErrIndexVersionMismatch)
	}
	if storedVersion != IndexVersion {
		return fmt.Errorf("%w: index version %d, current version %d",
			ErrIndexVersionMismatch, storedVersion, IndexVersion)
	}
	return nil
}

// NewWithAutoRecreate creates or opens a site index
// Automatically recreates the index if version mismatch is detected
func NewWithAutoRecreate(indexPath string) (*SiteIndex, bool, error) {
	si, err := New(indexPath)
	if err == nil {
		return si, false, nil
	}
	if !errors.Is(err, ErrIndexVersionMismatch) {
		return nil, false, err
	}

	if err := os.RemoveAll(indexPath); err != nil {
		return nil, false, fmt.Errorf("failed to remove old index: %w", err)
	}

	si, err = New(indexPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create new index after version mismatch: %w", err)
	}
	return si, true, nil
}

// Exists checks if the index exists at the given path
func Exists(indexPath string) bool {
	_, err := os.Stat(indexPath)
	return !os.IsNotExist(err)
}

// buildIndexMapping creates the index mapping for page documents
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	pageMapping := bleve.NewDocumentMapping()

	keywordField := func() *mapping.FieldMapping {
		f := bleve.NewKeywordFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = false
		f.IncludeInAll = false
		return f
	}
	pageMapping.AddFieldMappingsAt("url", keywordField())
	pageMapping.AddFieldMappingsAt("domain", keywordField())

	textField := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = standard.Name
		f.Store = false
		f.IncludeTermVectors = true
		return f
	}
	pageMapping.AddFieldMappingsAt("title", textField())
	pageMapping.AddFieldMappingsAt("anchors", textField())
	pageMapping.AddFieldMappingsAt("meta", textField())
	pageMapping.AddFieldMappingsAt("content", textField())

	authorityField := bleve.NewNumericFieldMapping()
	authorityField.Store = false
	pageMapping.AddFieldMappingsAt("authority", authorityField)

	updatedField := bleve.NewDateTimeFieldMapping()
	updatedField.Store = false
	pageMapping.AddFieldMappingsAt("updated_on", updatedField)

	bannedField := bleve.NewBooleanFieldMapping()
	bannedField.Store = false
	pageMapping.AddFieldMappingsAt("banned", bannedField)

	// Stored only: the page blob returned with every hit
	storedField := bleve.NewTextFieldMapping()
	storedField.Index = false
	storedField.Store = true
	storedField.IncludeInAll = false
	pageMapping.AddFieldMappingsAt("stored", storedField)

	indexMapping.DefaultMapping = pageMapping

	return indexMapping
}

func toPageDocument(doc model.Document) (pageDocument, error) {
	domain := doc.Domain
	if domain == "" {
		domain = model.DomainOf(doc.URL)
	}

	// Only a real meta description is indexed; the body snippet is display text
	display := doc.Meta
	if display == "" {
		display = snippet(doc.Content, snippetLength)
	}

	stored := storedPage{
		Authority:   doc.Authority,
		ContentType: doc.ContentType,
		Banned:      doc.Banned,
		Source: model.RawSource{
			URL:       doc.URL,
			Title:     doc.Title,
			Meta:      display,
			Domain:    domain,
			UpdatedOn: doc.UpdatedOn.UTC().Format(time.RFC3339),
			Anchors:   model.EncodeAnchors(doc.Anchors),
			Links:     doc.Links,
		},
	}
	blob, err := json.Marshal(stored)
	if err != nil {
		return pageDocument{}, fmt.Errorf("failed to encode page %s: %w", doc.URL, err)
	}

	authority := 0.0
	if doc.Authority != nil {
		authority = *doc.Authority
	}

	return pageDocument{
		URL:       doc.URL,
		Domain:    domain,
		Title:     doc.Title,
		Anchors:   doc.Anchors,
		Meta:      doc.Meta,
		Content:   doc.Content,
		Authority: authority,
		UpdatedOn: doc.UpdatedOn.UTC(),
		Banned:    doc.Banned,
		Stored:    string(blob),
	}, nil
}

// Add indexes a single page, keyed by its URL
func (si *SiteIndex) Add(doc model.Document) error {
	pd, err := toPageDocument(doc)
	if err != nil {
		return err
	}
	return si.index.Index(doc.URL, pd)
}

// AddBatch indexes multiple pages in a batch
func (si *SiteIndex) AddBatch(docs []model.Document) error {
	batch := si.index.NewBatch()

	for _, doc := range docs {
		if doc.URL == "" {
			return errors.New("failed to add document to batch: empty url")
		}
		pd, err := toPageDocument(doc)
		if err != nil {
			return err
		}
		if err := batch.Index(doc.URL, pd); err != nil {
			return fmt.Errorf("failed to add document %s to batch: %w", doc.URL, err)
		}
	}

	return si.index.Batch(batch)
}

// Delete removes a page from the index
func (si *SiteIndex) Delete(url string) error {
	return si.index.Delete(url)
}

// Count returns the number of indexed documents (including the version document)
func (si *SiteIndex) Count() (uint64, error) {
	return si.index.DocCount()
}

// Path returns the on-disk location of the index
func (si *SiteIndex) Path() string {
	return si.path
}

// Close closes the index
func (si *SiteIndex) Close() error {
	return si.index.Close()
}

// QueryOptions caps the amount of work done for one query
type QueryOptions struct {
	MaxDocs            int // Matching documents fetched from the index
	MaxGroups          int // Site buckets in the response
	CandidatesPerGroup int // Candidate documents kept per site
}

// DefaultQueryOptions returns the caps used when the caller sets none
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		MaxDocs:            5000,
		MaxGroups:          1000,
		CandidatesPerGroup: 10,
	}
}

func (o QueryOptions) withDefaults() QueryOptions {
	def := DefaultQueryOptions()
	if o.MaxDocs <= 0 {
		o.MaxDocs = def.MaxDocs
	}
	if o.MaxGroups <= 0 {
		o.MaxGroups = def.MaxGroups
	}
	if o.CandidatesPerGroup <= 0 {
		o.CandidatesPerGroup = def.CandidatesPerGroup
	}
	return o
}

// analyze runs text through the standard analyzer and returns its terms
func (si *SiteIndex) analyze(text string) []string {
	analyzer := si.index.Mapping().AnalyzerNamed(standard.Name)
	if analyzer == nil {
		return strings.Fields(strings.ToLower(text))
	}

	stream := analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, token := range stream {
		terms = append(terms, string(token.Term))
	}
	return terms
}

// buildTokenQuery matches one token in any text field
// Each field combines FuzzyQuery (distance 1) + PrefixQuery, boosted per field
func buildTokenQuery(token string) query.Query {
	fields := []struct {
		name  string
		boost float64
	}{
		{"title", boostTitle},
		{"anchors", boostAnchors},
		{"meta", boostMeta},
		{"content", boostContent},
	}

	perField := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		fuzzyQ := bleve.NewFuzzyQuery(token)
		fuzzyQ.SetField(f.name)
		fuzzyQ.SetFuzziness(1)

		prefixQ := bleve.NewPrefixQuery(token)
		prefixQ.SetField(f.name)

		disjunction := bleve.NewDisjunctionQuery(fuzzyQ, prefixQ)
		disjunction.SetBoost(f.boost)
		perField = append(perField, disjunction)
	}
	return bleve.NewDisjunctionQuery(perField...)
}

// buildQuery creates the page query: tokens OR-ed with a minimum match share, banned pages excluded
func buildQuery(tokens []string) query.Query {
	if len(tokens) == 0 {
		return bleve.NewMatchNoneQuery()
	}

	tokenQueries := make([]query.Query, 0, len(tokens))
	for _, token := range tokens {
		tokenQueries = append(tokenQueries, buildTokenQuery(token))
	}
	anyTokens := bleve.NewDisjunctionQuery(tokenQueries...)
	anyTokens.SetMin(math.Ceil(MinimumShouldMatch * float64(len(tokens))))

	banned := bleve.NewBoolFieldQuery(true)
	banned.SetField("banned")

	boolQuery := bleve.NewBooleanQuery()
	boolQuery.AddMust(anyTokens)
	boolQuery.AddMustNot(banned)
	return boolQuery
}

// queryTokens returns the analyzed terms of q, falling back to plain words when the analyzer drops them all
func (si *SiteIndex) queryTokens(q string) []string {
	tokens := si.analyze(q)
	if len(tokens) == 0 {
		tokens = strings.Fields(strings.ToLower(q))
	}
	return dedupe(tokens)
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Query runs q against the index and returns the grouped raw response
// Hits are grouped by domain in order of each domain's best hit.
// OtherCount is the number of matching documents that did not land in a returned group.
func (si *SiteIndex) Query(ctx context.Context, q string, opts QueryOptions) (*model.RawResponse, error) {
	opts = opts.withDefaults()

	tokens := si.queryTokens(q)

	searchRequest := bleve.NewSearchRequestOptions(buildQuery(tokens), opts.MaxDocs, 0, false)
	searchRequest.Fields = []string{"stored"}

	searchResults, err := si.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	buckets := make([]model.RawBucket, 0)
	bucketIndex := make(map[string]int)
	docsPerDomain := make(map[string]int)

	for _, hit := range searchResults.Hits {
		page, ok := decodeStored(hit.Fields["stored"])
		if !ok {
			continue
		}
		domain := page.Source.Domain
		docsPerDomain[domain]++

		i, seen := bucketIndex[domain]
		if !seen {
			if len(buckets) >= opts.MaxGroups {
				continue
			}
			i = len(buckets)
			bucketIndex[domain] = i
			buckets = append(buckets, model.RawBucket{Key: domain})
		}
		if len(buckets[i].Candidates) >= opts.CandidatesPerGroup {
			continue
		}
		buckets[i].Candidates = append(buckets[i].Candidates, model.RawDocument{
			Authority: page.Authority,
			Score:     hit.Score,
			Source:    page.Source,
		})
	}

	grouped := 0
	for domain := range bucketIndex {
		grouped += docsPerDomain[domain]
	}
	otherCount := int(searchResults.Total) - grouped
	if otherCount < 0 {
		otherCount = 0
	}

	resp := &model.RawResponse{
		Groups: &model.RawGroups{
			Buckets:    buckets,
			OtherCount: &otherCount,
		},
	}
	if suggestion, ok := si.Suggest(q); ok {
		resp.Suggest = model.RawSuggestions{{
			Text:    q,
			Options: []model.RawSuggestOption{{Text: suggestion}},
		}}
	}

	return resp, nil
}

func decodeStored(field interface{}) (storedPage, bool) {
	blob, ok := field.(string)
	if !ok || blob == "" {
		return storedPage{}, false
	}
	var page storedPage
	if err := json.Unmarshal([]byte(blob), &page); err != nil {
		return storedPage{}, false
	}
	return page, true
}

// Documents retrieves every indexed page, walking the index in pages of scanPageSize
// Content is not stored, so returned documents carry everything except the body.
func (si *SiteIndex) Documents() ([]model.Document, error) {
	count, err := si.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to get document count: %w", err)
	}
	if count == 0 {
		return []model.Document{}, nil
	}

	docs := make([]model.Document, 0, count)
	for from := 0; ; from += scanPageSize {
		searchRequest := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), scanPageSize, from, false)
		searchRequest.Fields = []string{"stored"}
		searchRequest.SortBy([]string{"_id"})

		searchResults, err := si.index.Search(searchRequest)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		for _, hit := range searchResults.Hits {
			// Skip version document (it has no stored page)
			if hit.ID == versionDocID {
				continue
			}
			page, ok := decodeStored(hit.Fields["stored"])
			if !ok {
				continue
			}
			docs = append(docs, page.document())
		}

		if len(searchResults.Hits) < scanPageSize {
			break
		}
	}

	return docs, nil
}

func (p storedPage) document() model.Document {
	doc := model.Document{
		URL:         p.Source.URL,
		Domain:      p.Source.Domain,
		Title:       p.Source.Title,
		Meta:        p.Source.Meta,
		ContentType: p.ContentType,
		Anchors:     p.Source.AnchorList(),
		Links:       p.Source.Links,
		Authority:   p.Authority,
		Banned:      p.Banned,
	}
	if t, err := time.Parse(time.RFC3339, p.Source.UpdatedOn); err == nil {
		doc.UpdatedOn = t
	}
	return doc
}
