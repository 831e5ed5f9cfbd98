// Package search runs a query through the index and the ranking core for one network
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/igusev/siterank/internal/index"
	"github.com/igusev/siterank/internal/logger"
	"github.com/igusev/siterank/internal/model"
	"github.com/igusev/siterank/internal/pagepop"
	"github.com/igusev/siterank/internal/ranking"
)

// DefaultPopularityTimeout bounds each popularity gateway call
const DefaultPopularityTimeout = 5 * time.Second

// ErrEmptyQuery is returned when the query text is blank
var ErrEmptyQuery = errors.New("empty query")

// Index answers grouped queries
type Index interface {
	Query(ctx context.Context, q string, opts index.QueryOptions) (*model.RawResponse, error)
}

// Recorder logs queries and clicks on a best-effort basis
type Recorder interface {
	RecordQuery(term, networkTag string)
	RecordClick(siteID, url, term string)
}

// Network is one searchable overlay network
type Network struct {
	Name  string // e.g. "tor"
	Tag   string // short tag stored with statistics, e.g. "T"
	Index Index
}

// Request holds the parsed search parameters
type Request struct {
	Query      string
	Page       int  // zero-indexed
	MaxAgeDays *int // nil means no time window
	Weights    ranking.Weights
	Popularity bool // gp or lp supplied
}

// Response is the result page returned to clients
type Response struct {
	Suggestion string `json:"suggestion,omitempty"`
	ranking.Page
	Total          int               `json:"total"`
	Query          string            `json:"query"`
	Hits           []model.SearchHit `json:"hits"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	RequestID      string            `json:"request_id"`
	Network        string            `json:"network"`
}

// Pipeline searches one network
// Gateway and Recorder are optional.
type Pipeline struct {
	Network           Network
	Gateway           pagepop.Gateway
	Recorder          Recorder
	PageSize          int
	QueryOptions      index.QueryOptions
	PopularityTimeout time.Duration
	Now               func() time.Time
}

// NewPipeline creates a pipeline with default page size and query caps
func NewPipeline(network Network, gateway pagepop.Gateway, recorder Recorder) *Pipeline {
	return &Pipeline{
		Network:           network,
		Gateway:           gateway,
		Recorder:          recorder,
		PageSize:          ranking.DefaultPageSize,
		QueryOptions:      index.DefaultQueryOptions(),
		PopularityTimeout: DefaultPopularityTimeout,
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Search runs the query and returns one page of ranked site hits
func (p *Pipeline) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	q := strings.TrimSpace(req.Query)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	if p.Network.Index == nil {
		return nil, fmt.Errorf("network %q has no index", p.Network.Name)
	}

	requestID := uuid.NewString()
	log := logger.With("request_id", requestID, "network", p.Network.Name)

	if p.Recorder != nil {
		p.Recorder.RecordQuery(q, p.Network.Tag)
	}

	raw, err := p.Network.Index.Query(ctx, q, p.QueryOptions)
	if err != nil {
		return nil, fmt.Errorf("index query failed: %w", err)
	}

	rs, dropped, err := ranking.Aggregate(raw)
	if err != nil {
		return nil, err
	}
	for _, ge := range dropped {
		log.Warn("dropped group", "site", ge.SiteID, "error", ge.Err)
	}

	if req.Popularity {
		global, local := p.popularity(ctx, rs, log.Warn)
		ranking.Rank(rs, req.Weights, global, local)
	}

	ranking.FilterByAge(rs, req.MaxAgeDays, p.now())

	page := req.Page
	if page < 0 {
		page = 0
	}
	pg := ranking.Paginate(rs.Total, page, p.PageSize)
	begin, end := pg.Window(len(rs.Hits))

	resp := &Response{
		Suggestion: rs.Suggestion,
		Page:       pg,
		Total:      rs.Total,
		Query:      q,
		Hits:       rs.Hits[begin:end],
		RequestID:  requestID,
		Network:    p.Network.Name,
	}
	resp.ElapsedSeconds = time.Since(start).Seconds()

	log.Debug("search finished", "query", q, "total", resp.Total, "hits", len(resp.Hits), "elapsed", resp.ElapsedSeconds)
	return resp, nil
}

// popularity fetches both signals concurrently
// A failed, missing or late signal is reported through warn and becomes all zeros.
// The timeout bounds the wait even when a gateway ignores its context.
func (p *Pipeline) popularity(ctx context.Context, rs *model.ResultSet, warn func(msg string, args ...any)) (global, local map[string]float64) {
	if p.Gateway == nil {
		warn("popularity ranking requested without a gateway")
		return nil, nil
	}

	timeout := p.PopularityTimeout
	if timeout <= 0 {
		timeout = DefaultPopularityTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Late calls keep running after we return, so they get their own copies
	ids := rs.SiteIDs()
	hits := append([]model.SearchHit(nil), rs.Hits...)

	globalCh := make(chan map[string]float64, 1)
	localCh := make(chan map[string]float64, 1)

	var g errgroup.Group
	g.Go(func() error {
		scores, err := p.Gateway.GlobalScores(ctx, ids)
		if err != nil {
			warn("global popularity unavailable", "error", err)
			return nil
		}
		globalCh <- scores
		return nil
	})
	g.Go(func() error {
		scores, err := p.Gateway.LocalScores(ctx, ids, hits)
		if err != nil {
			warn("local popularity unavailable", "error", err)
			return nil
		}
		localCh <- scores
		return nil
	})

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		warn("popularity timed out", "timeout", timeout)
	}

	select {
	case global = <-globalCh:
	default:
	}
	select {
	case local = <-localCh:
	default:
	}
	return global, local
}

// ParseParams reads request parameters through get, which reports whether a key is present
// Invalid values never fail the request: a bad page becomes 0, a bad max age means no
// window and a bad weight counts as not supplied.
func ParseParams(get func(key string) (string, bool)) Request {
	var req Request

	if q, ok := get("q"); ok {
		req.Query = strings.TrimSpace(q)
	}

	if v, ok := get("page"); ok {
		if page, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && page > 0 {
			req.Page = page
		}
	}

	if v, ok := get("d"); ok {
		req.MaxAgeDays = ranking.ParseMaxAge(v)
	}

	if w, ok := parseWeight(get, "gp"); ok {
		req.Weights.Global = w
		req.Popularity = true
	}
	if w, ok := parseWeight(get, "lp"); ok {
		req.Weights.Local = w
		req.Popularity = true
	}

	return req
}

func parseWeight(get func(key string) (string, bool), key string) (float64, bool) {
	v, ok := get(key)
	if !ok {
		return 0, false
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return w, true
}
