package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/igusev/siterank/internal/cache"
	"github.com/igusev/siterank/internal/index"
	"github.com/igusev/siterank/internal/logger"
	"github.com/igusev/siterank/internal/model"
)

// DefaultBatchSize is the number of pages sent to the index per batch
const DefaultBatchSize = 100

// Indexer receives prepared pages
type Indexer interface {
	AddBatch(docs []model.Document) error
}

// Syncer ingests manifests into one index and keeps the sync state in the cache
type Syncer struct {
	Cache            *cache.Cache
	Index            Indexer
	BatchSize        int
	FullSyncInterval time.Duration
	Now              func() time.Time
	Banned           func(domain string) bool // Optional ban list applied on top of the manifest
}

// Result summarizes one sync run
type Result struct {
	Mode     Mode
	Indexed  int
	Skipped  int
	Sites    []cache.SiteSummary
	Duration time.Duration
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Sync indexes the manifest pages of a network
// In incremental mode only pages updated after the last sync are sent to the index.
func (s *Syncer) Sync(ctx context.Context, network string, m *Manifest, force bool) (*Result, error) {
	start := s.now()

	lastSync, loadErr := s.Cache.LoadLastSyncTime(network)
	if loadErr != nil {
		logger.Warn("Failed to load last sync time of %s: %v", network, loadErr)
	}
	lastFull, err := s.Cache.LoadLastFullSyncTime(network)
	if err != nil {
		logger.Warn("Failed to load last full sync time of %s: %v", network, err)
		lastFull = time.Time{}
	}

	interval := s.FullSyncInterval
	if interval <= 0 {
		interval = DefaultFullSyncInterval
	}
	decision := SyncModeDecision{
		ForceFullSync:     force,
		LastSyncTime:      lastSync,
		LastFullSyncTime:  lastFull,
		FullSyncInterval:  interval,
		LoadSyncTimeError: loadErr,
	}
	mode := decision.Decide(start)
	logger.Debug("Sync mode for %s: %s (last sync %v, last full sync %v)", network, mode, lastSync, lastFull)

	docs, err := Prepare(m, start)
	if err != nil {
		return nil, err
	}
	if s.Banned != nil {
		for i := range docs {
			if !docs[i].Banned && s.Banned(docs[i].Domain) {
				docs[i].Banned = true
			}
		}
	}

	pending := docs
	if mode == ModeIncremental {
		pending = make([]model.Document, 0, len(docs))
		for _, doc := range docs {
			if doc.UpdatedOn.After(lastSync) {
				pending = append(pending, doc)
			}
		}
	}

	if err := s.indexBatches(ctx, pending); err != nil {
		return nil, err
	}

	result := &Result{
		Mode:    mode,
		Indexed: len(pending),
		Skipped: len(docs) - len(pending),
		Sites:   Summarize(docs),
	}

	if err := s.Cache.WriteSites(network, result.Sites); err != nil {
		return nil, fmt.Errorf("failed to write site list: %w", err)
	}
	if err := s.Cache.SaveLastSyncTime(network, start); err != nil {
		return nil, fmt.Errorf("failed to save sync time: %w", err)
	}
	if mode == ModeFull {
		if err := s.Cache.SaveLastFullSyncTime(network, start); err != nil {
			return nil, fmt.Errorf("failed to save full sync time: %w", err)
		}
	}

	result.Duration = s.now().Sub(start)
	return result, nil
}

func (s *Syncer) indexBatches(ctx context.Context, docs []model.Document) error {
	size := s.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	for begin := 0; begin < len(docs); begin += size {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sync interrupted: %w", err)
		}

		end := begin + size
		if end > len(docs) {
			end = len(docs)
		}
		if err := s.Index.AddBatch(docs[begin:end]); err != nil {
			return fmt.Errorf("failed to index batch %d-%d: %w", begin, end, err)
		}
		logger.Debug("Indexed pages %d-%d of %d", begin+1, end, len(docs))
	}

	return nil
}

// Prepare loads, extracts and cross-links every page of the manifest
func Prepare(m *Manifest, now time.Time) ([]model.Document, error) {
	docs := make([]model.Document, 0, len(m.Pages))
	links := make([][]index.Link, 0, len(m.Pages))

	for _, p := range m.Pages {
		doc, err := m.Document(p, now)
		if err != nil {
			return nil, err
		}
		doc, pageLinks := index.Extract(doc)
		docs = append(docs, doc)
		links = append(links, pageLinks)
	}

	PropagateAnchors(docs, links)
	return docs, nil
}

// PropagateAnchors attaches link texts to the pages they point at
// links[i] are the outbound links of docs[i]. Self-links, empty texts and
// targets outside docs are ignored; each text is kept once per target.
func PropagateAnchors(docs []model.Document, links [][]index.Link) {
	byURL := make(map[string]int, len(docs))
	for i, d := range docs {
		byURL[d.URL] = i
	}

	seen := make(map[int]map[string]bool)
	for i := range docs {
		for _, a := range docs[i].Anchors {
			if seen[i] == nil {
				seen[i] = make(map[string]bool)
			}
			seen[i][a] = true
		}
	}

	for i, pageLinks := range links {
		for _, l := range pageLinks {
			if l.Text == "" {
				continue
			}
			j, ok := byURL[l.URL]
			if !ok || j == i {
				continue
			}
			if seen[j] == nil {
				seen[j] = make(map[string]bool)
			}
			if seen[j][l.Text] {
				continue
			}
			seen[j][l.Text] = true
			docs[j].Anchors = append(docs[j].Anchors, l.Text)
		}
	}
}

// Summarize groups pages by domain; banned pages are left out
func Summarize(docs []model.Document) []cache.SiteSummary {
	order := make([]string, 0)
	sites := make(map[string]*cache.SiteSummary)

	for _, d := range docs {
		if d.Banned {
			continue
		}
		domain := d.Domain
		if domain == "" {
			domain = model.DomainOf(d.URL)
		}
		site, ok := sites[domain]
		if !ok {
			site = &cache.SiteSummary{Domain: domain, Title: d.Title}
			sites[domain] = site
			order = append(order, domain)
		}
		site.Pages++
	}

	summary := make([]cache.SiteSummary, 0, len(order))
	for _, domain := range order {
		summary = append(summary, *sites[domain])
	}
	return summary
}
