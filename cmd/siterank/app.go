package main

import (
	"fmt"

	"github.com/igusev/siterank/internal/cache"
	"github.com/igusev/siterank/internal/config"
	"github.com/igusev/siterank/internal/index"
	"github.com/igusev/siterank/internal/logger"
	"github.com/igusev/siterank/internal/pagepop"
	"github.com/igusev/siterank/internal/search"
	"github.com/igusev/siterank/internal/stats"
)

// app owns the resources shared by the commands: indexes, the stats store and the popularity service
type app struct {
	cfg      *config.Config
	store    *stats.Store
	recorder *stats.Recorder
	gateway  *pagepop.Service
	indexes  map[string]*index.SiteIndex
}

// newApp opens the stats store and starts the background recorder
func newApp(cfg *config.Config) (*app, error) {
	store, err := stats.Open(cfg.Stats.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats store: %w", err)
	}

	opts := pagepop.Options{
		Damping:    cfg.PagePop.Damping,
		Iterations: cfg.PagePop.Iterations,
		Tolerance:  cfg.PagePop.Tolerance,
	}

	return &app{
		cfg:      cfg,
		store:    store,
		recorder: stats.NewRecorder(store, cfg.Stats.Buffer),
		gateway:  pagepop.NewService(store, cache.NewScoreCache(cfg.PagePop.GetCacheTTL()), opts),
		indexes:  make(map[string]*index.SiteIndex),
	}, nil
}

// openIndex opens the index of a network, which must have been synced before
func (a *app) openIndex(name string) (*index.SiteIndex, error) {
	if idx, ok := a.indexes[name]; ok {
		return idx, nil
	}

	n, ok := a.cfg.Network(name)
	if !ok {
		return nil, fmt.Errorf("unknown network %q (configured: %v)", name, a.cfg.NetworkNames())
	}

	path := a.cfg.IndexPath(n)
	if !index.Exists(path) {
		return nil, fmt.Errorf("index for %s not found, run 'siterank sync --network %s <manifest>' first", name, name)
	}

	idx, err := index.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	a.indexes[name] = idx
	return idx, nil
}

// pipeline builds the search pipeline of a network from the configuration
func (a *app) pipeline(name string) (*search.Pipeline, error) {
	idx, err := a.openIndex(name)
	if err != nil {
		return nil, err
	}
	n, _ := a.cfg.Network(name)

	p := search.NewPipeline(search.Network{Name: n.Name, Tag: n.Tag, Index: idx}, a.gateway, a.recorder)
	p.PageSize = a.cfg.Search.PageSize
	p.QueryOptions = index.QueryOptions{
		MaxDocs:            a.cfg.Search.MaxDocs,
		MaxGroups:          a.cfg.Search.MaxGroups,
		CandidatesPerGroup: a.cfg.Search.CandidatesPerGroup,
	}
	p.PopularityTimeout = a.cfg.Search.GetPopularityTimeout()
	return p, nil
}

// pipelines builds one pipeline per configured network that has an index
func (a *app) pipelines() []*search.Pipeline {
	var list []*search.Pipeline
	for _, name := range a.cfg.NetworkNames() {
		p, err := a.pipeline(name)
		if err != nil {
			logger.Warn("Skipping network %s: %v", name, err)
			continue
		}
		list = append(list, p)
	}
	return list
}

// Close flushes pending statistics and releases every resource
func (a *app) Close() {
	a.recorder.Close()
	if n := a.recorder.Dropped(); n > 0 {
		logger.Warn("Dropped %d statistics events", n)
	}
	for name, idx := range a.indexes {
		if err := idx.Close(); err != nil {
			logger.Debug("Failed to close %s index: %v", name, err)
		}
	}
	if err := a.store.Close(); err != nil {
		logger.Debug("Failed to close stats store: %v", err)
	}
}
