package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"os"

	json "github.com/goccy/go-json"
	"github.com/newthinker/risklab/internal/editor"
	"github.com/newthinker/risklab/internal/logger"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

// View is a parsed page template.
type View struct {
	Name string
	tmpl *template.Template
}

// ParseView parses layout.html together with page from fsys.
func ParseView(fsys fs.FS, page string) (*View, error) {
	tmpl, err := template.ParseFS(fsys, "layout.html", page)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", page, err)
	}
	return &View{Name: page, tmpl: tmpl}, nil
}

// Render executes the view inside the layout.
func (v *View) Render(w io.Writer, data PageData) error {
	return v.tmpl.ExecuteTemplate(w, "layout.html", data)
}

// PageData is passed to every page template.
type PageData struct {
	Title      string
	RouteName  string
	Params     map[string]string
	APIBase    string
	Editor     editor.Config
	EditorJSON template.JS
}

// Config holds web handler configuration
type Config struct {
	// APIBase is the API root the browser calls; empty means same origin.
	APIBase string
	Editor  editor.Config
	// TemplatesDir overrides the embedded templates when set.
	TemplatesDir string
}

// Handler renders UI pages according to the route table.
type Handler struct {
	table      *Table
	cfg        Config
	editorJSON template.JS
	logger     *zap.Logger
}

var titles = map[string]string{
	RouteStrategyList:   "Strategies",
	RouteStrategyCreate: "New Strategy",
	RouteStrategyEdit:   "Edit Strategy",
	RouteStrategyTest:   "Test Strategy",
}

// NewHandler creates a web handler. The list view is parsed immediately;
// the edit and test views are parsed on first navigation.
func NewHandler(cfg Config, log *zap.Logger) (*Handler, error) {
	log = logger.OrNop(log)

	fsys, err := templateSource(cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}

	list, err := ParseView(fsys, "strategy_list.html")
	if err != nil {
		return nil, err
	}
	deferredView := func(page string) *Lazy[*View] {
		return NewLazy(func() (*View, error) {
			log.Debug("loading view", zap.String("page", page))
			return ParseView(fsys, page)
		})
	}

	table, err := NewTable(DefaultRoutes(Views{
		List: Eager(list),
		Edit: Deferred(deferredView("strategy_edit.html")),
		Test: Deferred(deferredView("strategy_test.html")),
	}))
	if err != nil {
		return nil, fmt.Errorf("building route table: %w", err)
	}

	editorJSON, err := json.Marshal(cfg.Editor)
	if err != nil {
		return nil, fmt.Errorf("encoding editor config: %w", err)
	}

	return &Handler{
		table:      table,
		cfg:        cfg,
		editorJSON: template.JS(editorJSON),
		logger:     log,
	}, nil
}

func templateSource(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("accessing embedded templates: %w", err)
	}
	return sub, nil
}

// Table returns the route table backing the handler.
func (h *Handler) Table() *Table {
	return h.table
}

// ServeHTTP resolves the request path against the route table.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m, err := h.table.Resolve(r.URL.Path)
	if errors.Is(err, ErrRouteNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("resolving route", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if m.RedirectedFrom != "" {
		http.Redirect(w, r, m.Path, http.StatusFound)
		return
	}

	view, err := m.Route.Component.Load()
	if err != nil {
		h.logger.Error("loading view", zap.String("route", m.Route.Name), zap.Error(err))
		http.Error(w, "view unavailable", http.StatusInternalServerError)
		return
	}

	data := PageData{
		Title:      titles[m.Route.Name],
		RouteName:  m.Route.Name,
		Params:     m.Params,
		APIBase:    h.cfg.APIBase,
		Editor:     h.cfg.Editor,
		EditorJSON: h.editorJSON,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.Render(w, data); err != nil {
		h.logger.Error("rendering view", zap.String("view", view.Name), zap.Error(err))
	}
}
