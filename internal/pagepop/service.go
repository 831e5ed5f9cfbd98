package pagepop

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/igusev/siterank/internal/cache"
	"github.com/igusev/siterank/internal/logger"
	"github.com/igusev/siterank/internal/model"
)

// ErrUnavailable means a popularity signal could not be produced for this query
var ErrUnavailable = errors.New("popularity unavailable")

// Gateway supplies popularity signals for a batch of sites
// Every requested site gets an entry; unknown or unlinked sites score 0.
type Gateway interface {
	GlobalScores(ctx context.Context, siteIDs []string) (map[string]float64, error)
	LocalScores(ctx context.Context, siteIDs []string, hits []model.SearchHit) (map[string]float64, error)
}

// ScoreStore reads persisted global popularity
type ScoreStore interface {
	PopularityScores(ctx context.Context, siteIDs []string) (map[string]float64, error)
}

// ScoreWriter persists global popularity
type ScoreWriter interface {
	SavePopularity(ctx context.Context, scores []model.PopularityScore) error
}

// Service is the Gateway backed by a score store and an in-memory memo
type Service struct {
	store   ScoreStore
	cache   *cache.ScoreCache
	options Options
}

var _ Gateway = (*Service)(nil)

// NewService creates a popularity service
// scores may be nil to disable memoization.
func NewService(store ScoreStore, scores *cache.ScoreCache, opts Options) *Service {
	return &Service{store: store, cache: scores, options: opts.withDefaults()}
}

// GlobalScores returns persisted popularity, served from the memo when possible
func (s *Service) GlobalScores(ctx context.Context, siteIDs []string) (map[string]float64, error) {
	result := make(map[string]float64, len(siteIDs))

	missing := make([]string, 0, len(siteIDs))
	for _, id := range siteIDs {
		if s.cache != nil {
			if score, ok := s.cache.Get(id); ok {
				result[id] = score
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	if s.store == nil {
		return nil, fmt.Errorf("%w: no score store configured", ErrUnavailable)
	}

	stored, err := s.store.PopularityScores(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	fetched := make(map[string]float64, len(missing))
	for _, id := range missing {
		fetched[id] = stored[id]
		result[id] = stored[id]
	}
	if s.cache != nil {
		s.cache.SetMany(fetched)
	}

	return result, nil
}

// GlobalScore returns the popularity of one site, 0 when unknown or unavailable
func (s *Service) GlobalScore(ctx context.Context, siteID string) float64 {
	scores, err := s.GlobalScores(ctx, []string{siteID})
	if err != nil {
		logger.Debug("Global popularity of %s unavailable: %v", siteID, err)
		return 0
	}
	return scores[siteID]
}

// LocalScores runs PageRank over the links between the sites of the result set
func (s *Service) LocalScores(ctx context.Context, siteIDs []string, hits []model.SearchHit) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ranks := PageRank(GraphFromHits(hits), s.options)

	result := make(map[string]float64, len(siteIDs))
	for _, id := range siteIDs {
		result[id] = ranks[id]
	}
	return result, nil
}

// Refresh recomputes global popularity and drops memoized scores
// Later GlobalScores calls read the new scores from the store.
func (s *Service) Refresh(ctx context.Context, docs []model.Document, w ScoreWriter) ([]model.PopularityScore, error) {
	scores, err := Recompute(ctx, docs, w, s.options)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate()
	}
	return scores, nil
}

// Recompute scores every indexed site and persists the result
// Returned scores are sorted highest first.
func Recompute(ctx context.Context, docs []model.Document, w ScoreWriter, opts Options) ([]model.PopularityScore, error) {
	g := GraphFromDocuments(docs)
	logger.Debug("Popularity graph: %d sites, %d links", g.Len(), g.EdgeCount())

	ranks := PageRank(g, opts)

	scores := make([]model.PopularityScore, 0, len(ranks))
	for _, site := range g.Nodes() {
		scores = append(scores, model.PopularityScore{SiteID: site, Score: ranks[site]})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := w.SavePopularity(ctx, scores); err != nil {
		return nil, fmt.Errorf("failed to save popularity: %w", err)
	}

	return scores, nil
}
