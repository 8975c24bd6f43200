package middleware

import "strings"

const DefaultNextParam = "next"

// Routes describes the gated surface of one dashboard.
type Routes struct {
	// Login is the login route of the actor.
	Login string
	// Default is where an authenticated visit to Login is sent.
	Default string
	// Gated lists exact paths; an entry ending in "/*" gates the subtree.
	Gated []string
	// NextParam carries the remembered destination. Defaults to "next".
	NextParam string
}

// AdminRoutes returns the admin dashboard layout.
func AdminRoutes() Routes {
	return Routes{
		Login:   "/login",
		Default: "/",
		Gated: []string{
			"/",
			"/subscribers",
			"/extend-subscription",
			"/everyday-stats",
			"/class-wise-stats",
			"/diagnostics",
		},
	}
}

// TutorRoutes returns the tutor dashboard layout.
func TutorRoutes() Routes {
	return Routes{
		Login:   "/tutor-login",
		Default: "/tutor-dashboard",
		Gated:   []string{"/tutor-dashboard"},
	}
}

// IsGated reports whether path requires an authenticated session.
func (r Routes) IsGated(path string) bool {
	path = normalize(path)
	for _, gated := range r.Gated {
		if prefix, ok := strings.CutSuffix(gated, "/*"); ok {
			if path == normalize(prefix) || strings.HasPrefix(path, strings.TrimRight(prefix, "/")+"/") {
				return true
			}
			continue
		}
		if path == normalize(gated) {
			return true
		}
	}
	return false
}

func (r Routes) nextParam() string {
	if r.NextParam == "" {
		return DefaultNextParam
	}
	return r.NextParam
}

func (r Routes) isLogin(path string) bool {
	return r.Login != "" && normalize(path) == normalize(r.Login)
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}
