package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/newthinker/risklab/internal/editor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := NewHandler(Config{Editor: editor.Default()}, zap.NewNop())
	require.NoError(t, err)
	return h
}

func TestHandler_RootRedirects(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/strategy", w.Header().Get("Location"))
}

func TestHandler_RendersViews(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		path   string
		title  string
		marker string
	}{
		{"/strategy", "Strategies", `id="strategies"`},
		{"/strategy/create", "New Strategy", `id="strategy-form"`},
		{"/strategy/edit/123", "Edit Strategy", `id="strategy-form"`},
		{"/strategy/test/123", "Test Strategy", `id="run-result"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			body := w.Body.String()
			assert.Contains(t, body, "<title>"+tt.title)
			assert.Contains(t, body, tt.marker)
			assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
		})
	}
}

func TestHandler_EditViewCarriesParamsAndEditorConfig(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest("GET", "/strategy/edit/123", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	body := w.Body.String()
	assert.Contains(t, body, `"id":"123"`)
	assert.Contains(t, body, `"!gotoSymbol"`)
	assert.Contains(t, body, `<option value="python">python</option>`)
}

func TestHandler_NotFound(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest("GET", "/does/not/exist", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest("POST", "/strategy", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestParseView_FromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"layout.html": {Data: []byte(`<h1>{{.Title}}</h1>{{template "content" .}}`)},
		"page.html":   {Data: []byte(`{{define "content"}}route={{.RouteName}}{{end}}`)},
	}

	v, err := ParseView(fsys, "page.html")
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, v.Render(&sb, PageData{Title: "T", RouteName: RouteStrategyTest}))
	assert.Equal(t, "<h1>T</h1>route=StrategyTest", sb.String())
}

func TestParseView_Missing(t *testing.T) {
	_, err := ParseView(fstest.MapFS{"layout.html": {Data: []byte("x")}}, "missing.html")
	assert.Error(t, err)
}
