package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	goSession "github.com/zyraxfit/goSession"
)

// Action is the outcome of a routing decision.
type Action int

const (
	ActionRender Action = iota
	ActionWait
	ActionRedirect
)

func (a Action) String() string {
	switch a {
	case ActionWait:
		return "wait"
	case ActionRedirect:
		return "redirect"
	default:
		return "render"
	}
}

// Decision is returned by [Decide]. Location is set for ActionRedirect.
type Decision struct {
	Action   Action
	Location string
}

// StateSource supplies the current session state.
type StateSource interface {
	State() goSession.AuthState
}

type stateContextKey struct{}

// StateFromContext returns the state seen by [Guard] for this request.
func StateFromContext(ctx context.Context) (goSession.AuthState, bool) {
	state, ok := ctx.Value(stateContextKey{}).(goSession.AuthState)
	return state, ok
}

// Decide returns the routing decision for destination, a local path with optional query.
func Decide(state goSession.AuthState, destination string, routes Routes) Decision {
	if state.Loading {
		return Decision{Action: ActionWait}
	}

	path := destination
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	if !state.IsAuthenticated && routes.IsGated(path) {
		return Decision{Action: ActionRedirect, Location: loginLocation(routes, destination)}
	}
	if state.IsAuthenticated && routes.isLogin(path) {
		return Decision{Action: ActionRedirect, Location: defaultDestination(routes)}
	}
	return Decision{Action: ActionRender}
}

// Guard applies [Decide] to every request.
//
// Wait is answered with 503 and Retry-After so no login redirect is issued while the
// session is still being restored. An authenticated visit to the login route goes to
// the remembered destination when one is present.
func Guard(source StateSource, routes Routes) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := goSession.AuthState{}
			if source != nil {
				state = source.State()
			}

			decision := Decide(state, r.URL.RequestURI(), routes)
			switch decision.Action {
			case ActionWait:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Loading...", http.StatusServiceUnavailable)
				return
			case ActionRedirect:
				location := decision.Location
				if state.IsAuthenticated {
					location = NextDestination(r, routes)
				}
				http.Redirect(w, r, location, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), stateContextKey{}, state)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NextDestination returns the destination remembered in the request query, or the
// default destination when it is absent or not a local absolute path.
func NextDestination(r *http.Request, routes Routes) string {
	next := r.URL.Query().Get(routes.nextParam())
	if !isLocalPath(next) {
		return defaultDestination(routes)
	}

	u, err := url.Parse(next)
	if err != nil || routes.isLogin(u.Path) {
		return defaultDestination(routes)
	}
	return next
}

func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
		return false
	}
	if strings.ContainsAny(p, "\r\n\t") {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}

func loginLocation(routes Routes, destination string) string {
	login := routes.Login
	if login == "" {
		login = "/"
	}
	if destination == "" || !isLocalPath(destination) {
		return login
	}
	return login + "?" + url.Values{routes.nextParam(): {destination}}.Encode()
}

func defaultDestination(routes Routes) string {
	if routes.Default == "" {
		return "/"
	}
	return routes.Default
}
