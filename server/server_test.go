package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/poiesic/gamescout/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	query   string
	filter  core.SearchFilter
	results []*core.SearchResult
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string, filter core.SearchFilter) ([]*core.SearchResult, error) {
	f.query = query
	f.filter = filter
	return f.results, f.err
}

type fakeLabels struct {
	categories []string
	genres     []string
	err        error
}

func (f fakeLabels) Categories(context.Context) ([]string, error) { return f.categories, f.err }
func (f fakeLabels) Genres(context.Context) ([]string, error)     { return f.genres, f.err }

func newTestServer(t *testing.T, searcher Searcher, labels Labels) *Server {
	t.Helper()
	s, err := New(Config{Mode: gin.TestMode}, searcher, labels, nil)
	require.NoError(t, err)
	return s
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestNew_Validation(t *testing.T) {
	_, err := New(DefaultConfig(), nil, fakeLabels{}, nil)
	assert.ErrorIs(t, err, ErrSearcherRequired)
	_, err = New(DefaultConfig(), &fakeSearcher{}, nil, nil)
	assert.ErrorIs(t, err, ErrLabelsRequired)
}

func TestSearch_MissingQuery(t *testing.T) {
	searcher := &fakeSearcher{}
	s := newTestServer(t, searcher, fakeLabels{})

	for _, body := range []string{`{}`, `{"query": "   "}`, `not json`, ``} {
		w := do(s, http.MethodPost, "/api/search", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Query parameter is required.", resp.Error)
	}
	assert.Empty(t, searcher.query, "searcher must not be called")
}

func TestSearch_Results(t *testing.T) {
	game := &core.Game{
		AppID:            10,
		Name:             "Counter-Strike",
		ShortDescription: "Play the world's number 1 online action game.",
		Price:            9.99,
		HeaderImage:      "https://cdn.example/10.jpg",
		Genres:           []string{"Action"},
		Requirements: []core.Requirement{
			{Platform: core.PlatformWindows, Level: core.LevelMinimum, Text: "500 mhz processor"},
			{Platform: core.PlatformWindows, Level: core.LevelRecommended, Text: "1 ghz processor"},
		},
	}
	searcher := &fakeSearcher{results: []*core.SearchResult{{Game: game, Distance: 0.25}}}
	s := newTestServer(t, searcher, fakeLabels{})

	w := do(s, http.MethodPost, "/api/search",
		`{"query":"shooter","category":["Multi-player"],"genre":["Action"],"price_start":1,"price_end":20}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "shooter", searcher.query)
	assert.Equal(t, core.SearchFilter{
		Categories: []string{"Multi-player"},
		Genres:     []string{"Action"},
		PriceMin:   1,
		PriceMax:   20,
	}, searcher.filter)

	var results []GameResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	got := results[0]
	assert.Equal(t, core.AppID(10), got.ID)
	assert.Equal(t, "https://store.steampowered.com/app/10", got.Link)
	assert.Equal(t, game.ShortDescription, got.Description)
	assert.Equal(t, "500 mhz processor", got.PCRequirements)
	assert.Empty(t, got.MacRequirements)
	assert.Equal(t, []string{}, got.Categories)
	assert.InDelta(t, 9.99, got.Price, 1e-9)
	assert.InDelta(t, 0.25, got.Distance, 1e-6)
}

func TestSearch_EmptyResultIsArray(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, fakeLabels{})
	w := do(s, http.MethodPost, "/api/search", `{"query":"nothing"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestSearch_InternalError(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{err: errors.New("store down")}, fakeLabels{})
	w := do(s, http.MethodPost, "/api/search", `{"query":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "store down")
}

func TestLabels(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, fakeLabels{
		categories: []string{"Multi-player", "Single-player"},
		genres:     nil,
	})

	w := do(s, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Multi-player","Single-player"]`, w.Body.String())

	w = do(s, http.MethodGet, "/api/genres", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	failing := newTestServer(t, &fakeSearcher{}, fakeLabels{err: errors.New("boom")})
	w = do(failing, http.MethodGet, "/api/genres", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthAndCORS(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, fakeLabels{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
