package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igusev/siterank/internal/config"
	"github.com/igusev/siterank/internal/model"
	"github.com/igusev/siterank/internal/search"
	"github.com/igusev/siterank/internal/stats"
	"github.com/igusev/siterank/internal/sync"
)

const rawFixture = `{
	"groups": {
		"buckets": [
			{"key": "a.onion", "candidates": [
				{"authority": 1, "score": 3, "source": {"url": "http://a.onion/", "title": "Alpha", "meta": "An old library", "updated_on": "2024-01-01T00:00:00"}}
			]},
			{"key": "b.onion", "candidates": [
				{"authority": 1, "score": 9, "source": {"url": "http://b.onion/", "title": "Bravo", "updated_on": "2025-01-09T00:00:00", "anchors": ["bravo books"]}}
			]}
		],
		"other_count": 3
	},
	"suggest": [{"text": "libary", "options": [{"text": "library"}]}]
}`

const cliManifest = `
network: tor
pages:
  - url: http://a.onion/
    title: Alpha library
    meta: Books and papers
    updated_on: "2025-01-10T08:00:00"
    body: a large library of books
  - url: http://b.onion/
    content_type: html
    updated_on: "2025-01-09T08:00:00"
    body: |
      <html><head><title>Bravo</title></head>
      <body>library mirror <a href="http://a.onion/">alpha library</a></body></html>
  - url: http://spam.onion/
    updated_on: "2025-01-09T08:00:00"
    body: library library library
`

// newFlagCommand registers the search flags on a fresh command and parses args
func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	oldPage, oldAge, oldGlobal, oldLocal := page, maxAge, globalW, localW
	t.Cleanup(func() { page, maxAge, globalW, localW = oldPage, oldAge, oldGlobal, oldLocal })

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "")
	cmd.Flags().StringVarP(&maxAge, "days", "d", "all", "")
	cmd.Flags().Float64Var(&globalW, "gp", 0, "")
	cmd.Flags().Float64Var(&localW, "lp", 0, "")
	require.NoError(t, cmd.ParseFlags(args))
	cmd.SetContext(context.Background())
	return cmd
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Index:       config.IndexConfig{Dir: dir},
		Search:      config.SearchConfig{PageSize: 10, MaxGroups: 100, CandidatesPerGroup: 5, MaxDocs: 500, PopularityTimeout: 1},
		Networks:    []config.NetworkConfig{{Name: "tor", Tag: "T", Index: "tor.bleve"}},
		PagePop:     config.PagePopConfig{Damping: 0.85, Iterations: 50, Tolerance: 1e-6, CacheTTL: 60},
		Stats:       config.StatsConfig{Path: filepath.Join(dir, "stats.db"), Buffer: 16},
		BannedSites: []string{"spam.onion"},
	}
}

func TestFlagParams(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		page       int
		maxAge     *int
		popularity bool
		weights    [2]float64
	}{
		{"defaults", nil, 0, nil, false, [2]float64{}},
		{"first page", []string{"--page", "1"}, 0, nil, false, [2]float64{}},
		{"third page", []string{"--page", "3"}, 2, nil, false, [2]float64{}},
		{"days", []string{"--days", "7"}, 0, intPtr(7), false, [2]float64{}},
		{"all days", []string{"--days", "all"}, 0, nil, false, [2]float64{}},
		{"global weight", []string{"--gp", "0.3"}, 0, nil, true, [2]float64{0.3, 0}},
		{"both weights", []string{"--gp", "0.3", "--lp", "0.2"}, 0, nil, true, [2]float64{0.3, 0.2}},
		{"zero weight still counts", []string{"--lp", "0"}, 0, nil, true, [2]float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newFlagCommand(t, tt.args...)
			req := search.ParseParams(flagParams(cmd, "  library  "))

			assert.Equal(t, "library", req.Query)
			assert.Equal(t, tt.page, req.Page)
			assert.Equal(t, tt.maxAge, req.MaxAgeDays)
			assert.Equal(t, tt.popularity, req.Popularity)
			assert.InDelta(t, tt.weights[0], req.Weights.Global, 1e-9)
			assert.InDelta(t, tt.weights[1], req.Weights.Local, 1e-9)
		})
	}
}

func intPtr(v int) *int { return &v }

func TestRankRaw(t *testing.T) {
	now := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)

	resp, err := rankRaw(context.Background(), []byte(rawFixture), search.Request{Query: "library"}, now, 0)
	require.NoError(t, err)

	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, "library", resp.Suggestion)
	assert.Equal(t, 1, resp.DisplayPage)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "a.onion", resp.Hits[0].SiteID, "index order is kept without weights")
	assert.Equal(t, "b.onion", resp.Hits[1].SiteID)

	resp, err = rankRaw(context.Background(), []byte(rawFixture), search.Request{Query: "library", Popularity: true}, now, 0)
	require.NoError(t, err)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "b.onion", resp.Hits[0].SiteID, "relevance order with zero popularity")
}

func TestRankRaw_TimeWindowAndPaging(t *testing.T) {
	now := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)

	resp, err := rankRaw(context.Background(), []byte(rawFixture), search.Request{Query: "library", MaxAgeDays: intPtr(30)}, now, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "b.onion", resp.Hits[0].SiteID)

	resp, err = rankRaw(context.Background(), []byte(rawFixture), search.Request{Query: "library", Page: 1}, now, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.MaxPages)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "b.onion", resp.Hits[0].SiteID)
}

func TestRankRaw_Malformed(t *testing.T) {
	req := search.Request{Query: "library"}

	_, err := rankRaw(context.Background(), []byte(`{"suggest": []}`), req, time.Now(), 0)
	assert.Error(t, err)

	_, err = rankRaw(context.Background(), []byte(`not json`), req, time.Now(), 0)
	assert.Error(t, err)

	_, err = rankRaw(context.Background(), []byte(rawFixture), search.Request{}, time.Now(), 0)
	assert.ErrorIs(t, err, search.ErrEmptyQuery)
}

func TestRenderResults(t *testing.T) {
	authority := 0.5
	resp := &search.Response{
		Suggestion: "library",
		Total:      12,
		Query:      "libary",
		Network:    "tor",
		Hits: []model.SearchHit{
			{SiteID: "a.onion", URL: "http://a.onion/", Title: "Alpha", Meta: "Books   and\npapers", IRScore: 2, FinalScore: 1, Authority: &authority},
			{SiteID: "b.onion", URL: "http://b.onion/", Anchor: "mirror"},
		},
	}
	resp.DisplayPage = 1
	resp.MaxPages = 2

	out := renderResults(resp, true)

	assert.Contains(t, out, `12 sites for "libary" on tor, page 1/2`)
	assert.Contains(t, out, "Did you mean: library?")
	assert.Contains(t, out, "Alpha (a.onion)")
	assert.Contains(t, out, "http://a.onion/")
	assert.Contains(t, out, "Books and papers")
	assert.Contains(t, out, "mirror")
	assert.Contains(t, out, "ir=2.000 authority=0.500 final=1.000 updated=-")
	assert.Contains(t, out, "authority=-")
}

func TestRenderResults_Empty(t *testing.T) {
	out := renderResults(&search.Response{Query: "nothing", Network: "i2p"}, false)
	assert.Contains(t, out, "No results")
	assert.NotContains(t, out, "Did you mean")
}

func TestHitSnippet_Truncates(t *testing.T) {
	hit := model.SearchHit{Meta: strings.Repeat("я", snippetWidth+10)}
	s := hitSnippet(hit)
	assert.Equal(t, snippetWidth, len([]rune(s)))
	assert.True(t, strings.HasSuffix(s, "…"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, &search.Response{Query: "q", Network: "tor"}))
	assert.Contains(t, buf.String(), `"query": "q"`)
	assert.Contains(t, buf.String(), `"display_page"`)
}

func TestWriteYAML_Config(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, testConfig(t)))

	out := buf.String()
	assert.Contains(t, out, "page_size: 10")
	assert.Contains(t, out, "banned_sites:")
	assert.Contains(t, out, "- spam.onion")
	assert.Contains(t, out, "tag: T")
}

func TestSyncThenSearch(t *testing.T) {
	cfg := testConfig(t)
	cmd := newFlagCommand(t)

	m, err := sync.ParseManifest([]byte(cliManifest))
	require.NoError(t, err)

	res, err := syncNetwork(cmd, cfg, "tor", m, false)
	require.NoError(t, err)
	assert.Equal(t, sync.ModeFull, res.Mode)
	assert.Equal(t, 3, res.Indexed)

	a, err := newApp(cfg)
	require.NoError(t, err)

	p, err := a.pipeline("tor")
	require.NoError(t, err)

	resp, err := p.Search(context.Background(), search.Request{Query: "library"})
	require.NoError(t, err)

	var sites []string
	for _, h := range resp.Hits {
		sites = append(sites, h.SiteID)
	}
	assert.ElementsMatch(t, []string{"a.onion", "b.onion"}, sites)
	assert.Equal(t, 2, resp.Total)

	// Close flushes the recorded query
	a.Close()

	store, err := stats.Open(cfg.Stats.Path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	queries, err := store.TopQueries(context.Background(), "T", 10)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "library", queries[0].Term)
}

func TestSyncNetwork_UnknownNetwork(t *testing.T) {
	cfg := testConfig(t)
	m, err := sync.ParseManifest([]byte(cliManifest))
	require.NoError(t, err)

	_, err = syncNetwork(newFlagCommand(t), cfg, "clearnet", m, false)
	assert.Error(t, err)
}

func TestApp_MissingIndex(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(cfg)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.pipeline("tor")
	assert.ErrorContains(t, err, "not found")

	_, err = a.pipeline("clearnet")
	assert.ErrorContains(t, err, "unknown network")

	assert.Empty(t, a.pipelines())
}

func TestLoadReport(t *testing.T) {
	cfg := testConfig(t)
	store, err := stats.Open(cfg.Stats.Path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	require.NoError(t, store.AddOrIncrementQuery(ctx, "library", "T"))
	require.NoError(t, store.AddOrIncrementQuery(ctx, "library", "T"))
	require.NoError(t, store.AddOrIncrementQuery(ctx, "forum", "I"))
	require.NoError(t, store.AddOrIncrementClick(ctx, "a.onion", "http://a.onion/", "library"))

	report, err := loadReport(newFlagCommand(t), store, cfg.Networks[0], 10)
	require.NoError(t, err)
	require.Len(t, report.Queries, 1)
	assert.Equal(t, 2, report.Queries[0].Count)
	require.Len(t, report.Clicks, 1)

	var buf bytes.Buffer
	renderReport(&buf, report)
	assert.Contains(t, buf.String(), "Top queries on tor")
	assert.Contains(t, buf.String(), "library")
	assert.Contains(t, buf.String(), "http://a.onion/")
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.json")
	require.NoError(t, os.WriteFile(path, []byte(rawFixture), 0644))

	cmd := newFlagCommand(t)
	data, err := readInput(cmd, path)
	require.NoError(t, err)
	assert.Equal(t, rawFixture, string(data))

	cmd.SetIn(strings.NewReader("stdin data"))
	data, err = readInput(cmd, "-")
	require.NoError(t, err)
	assert.Equal(t, "stdin data", string(data))

	_, err = readInput(cmd, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
