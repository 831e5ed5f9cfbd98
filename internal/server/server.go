// Package server exposes the search pipelines over HTTP
package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/igusev/siterank/internal/logger"
	"github.com/igusev/siterank/internal/ranking"
	"github.com/igusev/siterank/internal/search"
)

const shutdownTimeout = 10 * time.Second

// Server routes requests to one pipeline per network
type Server struct {
	pipelines map[string]*search.Pipeline
	recorder  search.Recorder
}

// New creates a server; recorder may be nil
func New(pipelines []*search.Pipeline, recorder search.Recorder) *Server {
	byName := make(map[string]*search.Pipeline, len(pipelines))
	for _, p := range pipelines {
		byName[p.Network.Name] = p
	}
	return &Server{pipelines: byName, recorder: recorder}
}

// SetupRouter builds the gin engine
func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", s.Health)
	r.GET("/networks", s.Networks)
	r.GET("/search/redirect", s.Redirect)
	r.GET("/:network/search", s.Search)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.L().Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// Health reports liveness
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Networks lists the searchable networks
func (s *Server) Networks(c *gin.Context) {
	type network struct {
		Name string `json:"name"`
		Tag  string `json:"tag"`
	}

	list := make([]network, 0, len(s.pipelines))
	for _, p := range s.pipelines {
		list = append(list, network{Name: p.Network.Name, Tag: p.Network.Tag})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	c.JSON(http.StatusOK, gin.H{"networks": list})
}

// Search answers GET /:network/search?q=&page=&d=&gp=&lp=
func (s *Server) Search(c *gin.Context) {
	name := c.Param("network")
	p, ok := s.pipelines[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown network: " + name})
		return
	}

	resp, err := p.Search(c.Request.Context(), search.ParseParams(c.GetQuery))
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	case errors.Is(err, ranking.ErrMalformedUpstream):
		logger.Error("Search on %s failed: %v", name, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "index returned a malformed response"})
		return
	case err != nil:
		logger.Error("Search on %s failed: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Redirect answers GET /search/redirect?redirect_url=&search_term=
// The click is recorded when the target has a host; the client is redirected either way.
func (s *Server) Redirect(c *gin.Context) {
	target := c.Query("redirect_url")
	term := c.Query("search_term")
	if target == "" || term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "redirect_url and search_term are required"})
		return
	}

	u, err := url.Parse(target)
	switch {
	case err != nil:
		logger.Warn("Not recording click on invalid url %q: %v", target, err)
	case u.Hostname() == "":
		logger.Warn("Not recording click on url without host %q", target)
	case s.recorder != nil:
		s.recorder.RecordClick(u.Hostname(), target, term)
	}

	c.Redirect(http.StatusFound, target)
}
