// Package guard decides, for each navigation, whether the target view may
// be shown given the current session.
package guard

import (
	"strings"
	"sync"
)

// Decision is the outcome of evaluating a route against the session
type Decision int

const (
	Render Decision = iota
	RedirectLogin
	RedirectLanding
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect-login"
	case RedirectLanding:
		return "redirect-landing"
	default:
		return "unknown"
	}
}

const (
	// LandingPath is the authenticated landing view
	LandingPath = "/albums"
	// LoginPath is where anonymous users are sent
	LoginPath = "/login"
)

// Route is a navigable view. Path segments starting with ':' match any
// single segment.
type Route struct {
	Path   string
	Public bool
}

// DefaultRoutes is the client's route table
var DefaultRoutes = []Route{
	{Path: "/", Public: true},
	{Path: "/login", Public: true},
	{Path: "/signup", Public: true},
	{Path: "/forgot", Public: true},
	{Path: "/reset", Public: true},
	{Path: "/verify", Public: true},
	{Path: "/welcome"},
	{Path: "/dashboard"},
	{Path: "/albums"},
	{Path: "/albums/:id"},
	{Path: "/profile"},
}

// Decide is the guard's pure decision function
func Decide(route Route, hasToken bool) Decision {
	switch {
	case route.Public && hasToken:
		return RedirectLanding
	case !route.Public && !hasToken:
		return RedirectLogin
	default:
		return Render
	}
}

// Outcome is the result of a navigation. Target is the path that ends up
// displayed.
type Outcome struct {
	Decision Decision
	Target   string
}

// TokenSource is the part of the session store the guard observes
type TokenSource interface {
	Token() (string, bool)
	Subscribe(fn func()) (unsubscribe func())
}

// Guard tracks token presence and evaluates navigations against a route
// table. The cached presence is refreshed on every navigation and on every
// session change event.
type Guard struct {
	source TokenSource
	routes []Route

	mu          sync.RWMutex
	hasToken    bool
	unsubscribe func()
}

// New creates a guard subscribed to source. Call Close to unsubscribe.
func New(source TokenSource, routes []Route) *Guard {
	if routes == nil {
		routes = DefaultRoutes
	}
	g := &Guard{source: source, routes: routes}
	g.refresh()
	g.unsubscribe = source.Subscribe(g.refresh)
	return g
}

func (g *Guard) refresh() {
	_, ok := g.source.Token()
	g.mu.Lock()
	g.hasToken = ok
	g.mu.Unlock()
}

// Authenticated reports the token presence last observed
func (g *Guard) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasToken
}

// Navigate evaluates path. Unknown paths resolve to the landing view with a
// token and to the login view without one.
func (g *Guard) Navigate(path string) Outcome {
	g.refresh()
	hasToken := g.Authenticated()

	route, ok := g.Match(path)
	if !ok {
		if hasToken {
			return Outcome{Decision: RedirectLanding, Target: LandingPath}
		}
		return Outcome{Decision: RedirectLogin, Target: LoginPath}
	}

	switch d := Decide(route, hasToken); d {
	case RedirectLogin:
		return Outcome{Decision: d, Target: LoginPath}
	case RedirectLanding:
		return Outcome{Decision: d, Target: LandingPath}
	default:
		return Outcome{Decision: d, Target: path}
	}
}

// Match returns the route for path
func (g *Guard) Match(path string) (Route, bool) {
	want := splitPath(path)
	for _, route := range g.routes {
		if matchSegments(splitPath(route.Path), want) {
			return route, true
		}
	}
	return Route{}, false
}

// Close stops listening for session changes
func (g *Guard) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, seg := range pattern {
		if strings.HasPrefix(seg, ":") {
			if path[i] == "" {
				return false
			}
			continue
		}
		if seg != path[i] {
			return false
		}
	}
	return true
}
