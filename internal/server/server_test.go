package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igusev/siterank/internal/index"
	"github.com/igusev/siterank/internal/model"
	"github.com/igusev/siterank/internal/search"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubIndex struct {
	raw *model.RawResponse
	err error
}

func (s stubIndex) Query(_ context.Context, _ string, _ index.QueryOptions) (*model.RawResponse, error) {
	return s.raw, s.err
}

type click struct {
	site, url, term string
}

type stubRecorder struct {
	queries []string
	clicks  []click
}

func (r *stubRecorder) RecordQuery(term, networkTag string) {
	r.queries = append(r.queries, networkTag+":"+term)
}

func (r *stubRecorder) RecordClick(siteID, url, term string) {
	r.clicks = append(r.clicks, click{siteID, url, term})
}

func rawResponse() *model.RawResponse {
	other := 8
	return &model.RawResponse{
		Groups: &model.RawGroups{
			OtherCount: &other,
			Buckets: []model.RawBucket{
				{Key: "a.onion", Candidates: []model.RawDocument{{Score: 2, Source: model.RawSource{URL: "http://a.onion/", Title: "Alpha", UpdatedOn: "2025-01-01T00:00:00"}}}},
				{Key: "b.onion", Candidates: []model.RawDocument{{Score: 1, Source: model.RawSource{URL: "http://b.onion/", Title: "Bravo", UpdatedOn: "2025-01-01T00:00:00"}}}},
			},
		},
	}
}

func newTestServer(rec *stubRecorder, idx search.Index) *gin.Engine {
	tor := search.NewPipeline(search.Network{Name: "tor", Tag: "T", Index: idx}, nil, rec)
	i2p := search.NewPipeline(search.Network{Name: "i2p", Tag: "I", Index: stubIndex{raw: rawResponse()}}, nil, rec)
	return New([]*search.Pipeline{tor, i2p}, rec).SetupRouter()
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := get(newTestServer(&stubRecorder{}, stubIndex{}), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestNetworks(t *testing.T) {
	w := get(newTestServer(&stubRecorder{}, stubIndex{}), "/networks")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"networks":[{"name":"i2p","tag":"I"},{"name":"tor","tag":"T"}]}`, w.Body.String())
}

func TestSearch_OK(t *testing.T) {
	rec := &stubRecorder{}
	w := get(newTestServer(rec, stubIndex{raw: rawResponse()}), "/tor/search?q=alpha&page=0&d=all")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, float64(10), body["total"])
	assert.Equal(t, float64(1), body["display_page"])
	assert.Equal(t, float64(1), body["max_pages"])
	assert.Equal(t, float64(0), body["result_begin"])
	assert.Equal(t, float64(100), body["result_end"])
	assert.Equal(t, "alpha", body["query"])
	assert.Equal(t, "tor", body["network"])
	assert.NotEmpty(t, body["request_id"])
	assert.Contains(t, body, "elapsed_seconds")
	assert.Len(t, body["hits"], 2)
	assert.Equal(t, []string{"T:alpha"}, rec.queries)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		index  search.Index
		target string
		status int
	}{
		{"unknown network", stubIndex{raw: rawResponse()}, "/clearnet/search?q=x", http.StatusNotFound},
		{"missing query", stubIndex{raw: rawResponse()}, "/tor/search", http.StatusBadRequest},
		{"blank query", stubIndex{raw: rawResponse()}, "/tor/search?q=%20%20", http.StatusBadRequest},
		{"malformed upstream", stubIndex{raw: &model.RawResponse{}}, "/tor/search?q=x", http.StatusBadGateway},
		{"index failure", stubIndex{err: errors.New("closed")}, "/tor/search?q=x", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newTestServer(&stubRecorder{}, tt.index), tt.target)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestRedirect(t *testing.T) {
	rec := &stubRecorder{}
	r := newTestServer(rec, stubIndex{})

	w := get(r, "/search/redirect?redirect_url=http%3A%2F%2Fa.onion%2Fpage&search_term=library")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://a.onion/page", w.Header().Get("Location"))
	assert.Equal(t, []click{{"a.onion", "http://a.onion/page", "library"}}, rec.clicks)
}

func TestRedirect_InvalidURLNotRecorded(t *testing.T) {
	rec := &stubRecorder{}
	r := newTestServer(rec, stubIndex{})

	w := get(r, "/search/redirect?redirect_url=not-a-url&search_term=library")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Empty(t, rec.clicks)
}

func TestRedirect_MissingParams(t *testing.T) {
	r := newTestServer(&stubRecorder{}, stubIndex{})

	for _, target := range []string{
		"/search/redirect",
		"/search/redirect?redirect_url=http%3A%2F%2Fa.onion%2F",
		"/search/redirect?search_term=library",
	} {
		w := get(r, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := New(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, s.Run(ctx, "127.0.0.1:0"))
}
