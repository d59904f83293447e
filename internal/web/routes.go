// Package web serves the browser UI: a static route table mapping paths to
// views, with some views loaded only on first navigation.
package web

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRouteNotFound is returned when no route matches a path.
var ErrRouteNotFound = errors.New("route not found")

const maxRedirects = 8

// Component produces the view bound to a route.
type Component interface {
	Load() (*View, error)
	Deferred() bool
}

type eagerComponent struct{ view *View }

func (c eagerComponent) Load() (*View, error) { return c.view, nil }
func (c eagerComponent) Deferred() bool       { return false }

type lazyComponent struct{ lazy *Lazy[*View] }

func (c lazyComponent) Load() (*View, error) { return c.lazy.Get() }
func (c lazyComponent) Deferred() bool       { return true }

// Eager binds an already loaded view.
func Eager(v *View) Component {
	return eagerComponent{view: v}
}

// Deferred binds a view loaded on first navigation. Components sharing the
// same Lazy share one load.
func Deferred(l *Lazy[*View]) Component {
	return lazyComponent{lazy: l}
}

// Route binds a path pattern to a component or a redirect target.
// Pattern segments starting with ":" capture a parameter.
type Route struct {
	Path      string
	Name      string
	Redirect  string
	Component Component
}

// Match is the outcome of resolving a path.
type Match struct {
	Route          *Route
	Path           string
	Params         map[string]string
	RedirectedFrom string
}

// Table is an immutable list of routes, matched in order.
type Table struct {
	routes []Route
}

// NewTable validates routes and builds a table.
func NewTable(routes []Route) (*Table, error) {
	seen := make(map[string]bool, len(routes))
	for i, r := range routes {
		if !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("route %d: path %q must start with /", i, r.Path)
		}
		if seen[r.Path] {
			return nil, fmt.Errorf("route %d: duplicate path %q", i, r.Path)
		}
		seen[r.Path] = true
		if (r.Redirect == "") == (r.Component == nil) {
			return nil, fmt.Errorf("route %q: exactly one of redirect or component required", r.Path)
		}
	}
	t := &Table{routes: append([]Route(nil), routes...)}
	for _, r := range t.routes {
		if r.Redirect == "" {
			continue
		}
		if _, err := t.match(r.Redirect); err != nil {
			return nil, fmt.Errorf("route %q: redirect target %q: %w", r.Path, r.Redirect, err)
		}
	}
	return t, nil
}

// Routes returns a copy of the table.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Resolve matches path, following redirects.
func (t *Table) Resolve(path string) (Match, error) {
	from := ""
	for range maxRedirects {
		m, err := t.match(path)
		if err != nil {
			return Match{}, err
		}
		if m.Route.Redirect == "" {
			m.RedirectedFrom = from
			return m, nil
		}
		if from == "" {
			from = path
		}
		path = m.Route.Redirect
	}
	return Match{}, fmt.Errorf("resolving %q: too many redirects", from)
}

func (t *Table) match(path string) (Match, error) {
	segs := splitPath(path)
	for i := range t.routes {
		r := &t.routes[i]
		if params, ok := matchPattern(splitPath(r.Path), segs); ok {
			return Match{Route: r, Path: path, Params: params}, nil
		}
	}
	return Match{}, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchPattern(pattern, segs []string) (map[string]string, bool) {
	if len(pattern) != len(segs) {
		return nil, false
	}
	params := map[string]string{}
	for i, p := range pattern {
		if name, ok := strings.CutPrefix(p, ":"); ok {
			if segs[i] == "" {
				return nil, false
			}
			params[name] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}

// Route names.
const (
	RouteStrategyList   = "StrategyList"
	RouteStrategyCreate = "StrategyCreate"
	RouteStrategyEdit   = "StrategyEdit"
	RouteStrategyTest   = "StrategyTest"
)

// Views holds the components the default table binds.
type Views struct {
	List Component
	Edit Component
	Test Component
}

// DefaultRoutes returns the application route table.
func DefaultRoutes(v Views) []Route {
	return []Route{
		{Path: "/", Redirect: "/strategy"},
		{Path: "/strategy", Name: RouteStrategyList, Component: v.List},
		{Path: "/strategy/create", Name: RouteStrategyCreate, Component: v.Edit},
		{Path: "/strategy/edit/:id", Name: RouteStrategyEdit, Component: v.Edit},
		{Path: "/strategy/test/:id", Name: RouteStrategyTest, Component: v.Test},
	}
}
