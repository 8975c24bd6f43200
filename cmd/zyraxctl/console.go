package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	goSession "github.com/zyraxfit/goSession"
	"github.com/zyraxfit/goSession/metrics/export/prometheus"
	"github.com/zyraxfit/goSession/middleware"
)

const shutdownTimeout = 5 * time.Second

// consolePages maps dashboard routes to the backend endpoint they display.
var consolePages = map[goSession.Actor]map[string]string{
	goSession.ActorAdmin: {
		"/":                 "/zyrax/classes/",
		"/everyday-stats":   "/zyrax/analytics/everyday-stats/",
		"/class-wise-stats": "/zyrax/analytics/classes/",
	},
	goSession.ActorTutor: {
		"/tutor-dashboard": "/zyrax/classes/",
	},
}

func routesFor(actor goSession.Actor) middleware.Routes {
	if actor == goSession.ActorTutor {
		return middleware.TutorRoutes()
	}
	return middleware.AdminRoutes()
}

func consoleCommand(ctx context.Context, c *cli, _ []string) int {
	engine, err := c.builder.
		OnRedirect(func(_ context.Context, loginPath string) {
			c.logger.Info("session ended", zap.String("login", loginPath))
		}).
		Build()
	if err != nil {
		c.logger.Error("start engine", zap.Error(err))
		return 1
	}
	defer engine.Close()

	go func() {
		if _, err := engine.Restore(ctx); err != nil {
			c.logger.Error("restore session", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              c.cfg.Console.Addr,
		Handler:           newConsoleHandler(engine, c.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("console listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("console stopped", zap.Error(err))
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logger.Error("console shutdown", zap.Error(err))
			return 1
		}
	}
	return 0
}

type console struct {
	engine *goSession.Engine
	routes middleware.Routes
	logger *zap.Logger
}

// newConsoleHandler serves /metrics unguarded and every other path behind the guard.
func newConsoleHandler(engine *goSession.Engine, logger *zap.Logger) http.Handler {
	con := &console{
		engine: engine,
		routes: routesFor(engine.Actor()),
		logger: logger,
	}

	pages := mux.NewRouter()
	pages.HandleFunc(con.routes.Login, con.loginForm).Methods(http.MethodGet)
	pages.HandleFunc(con.routes.Login, con.login).Methods(http.MethodPost)
	pages.HandleFunc("/logout", con.logout).Methods(http.MethodPost)
	for route, endpoint := range consolePages[engine.Actor()] {
		pages.Handle(route, con.page(endpoint)).Methods(http.MethodGet)
	}
	pages.NotFoundHandler = http.HandlerFunc(con.state)

	metrics := prometheus.Handler(engine,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	root := mux.NewRouter()
	root.Handle("/metrics", metrics).Methods(http.MethodGet)
	root.PathPrefix("/").Handler(middleware.Guard(engine, con.routes)(pages))
	return root
}

func (con *console) loginForm(w http.ResponseWriter, r *http.Request) {
	con.renderLogin(w, http.StatusOK, r.URL.RawQuery, "")
}

func (con *console) renderLogin(w http.ResponseWriter, status int, query, message string) {
	action := con.routes.Login
	if query != "" {
		action += "?" + query
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<form method="post" action="%s">
<p>%s</p>
<input name="username" placeholder="Username">
<input name="password" type="password" placeholder="Password">
<label><input name="force" type="checkbox" value="1"> Sign out another device</label>
<button type="submit">Sign in</button>
</form>
`, html.EscapeString(action), html.EscapeString(message))
}

func (con *console) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	login := con.engine.Login
	if r.PostForm.Get("force") == "1" {
		login = con.engine.ForceLogin
	}
	if _, err := login(r.Context(), username, password); err != nil {
		status, message := http.StatusBadGateway, "Login failed. Please try again."
		var loginErr *goSession.LoginError
		if errors.As(err, &loginErr) {
			message = loginErr.Message
			status = http.StatusUnauthorized
			if loginErr.DeviceLimit {
				status = http.StatusConflict
			}
		}
		con.renderLogin(w, status, r.URL.RawQuery, message)
		return
	}

	http.Redirect(w, r, middleware.NextDestination(r, con.routes), http.StatusSeeOther)
}

func (con *console) logout(w http.ResponseWriter, r *http.Request) {
	if err := con.engine.Logout(r.Context()); err != nil {
		con.logger.Error("console logout", zap.Error(err))
	}
	http.Redirect(w, r, con.routes.Login, http.StatusSeeOther)
}

// page proxies a GET of endpoint through the authenticated client.
func (con *console) page(endpoint string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := con.engine.API().NewRequest(r.Context()).Get(endpoint)
		if err != nil {
			if errors.Is(err, goSession.ErrSessionExpired) {
				state := con.engine.State()
				decision := middleware.Decide(state, r.URL.RequestURI(), con.routes)
				if decision.Action == middleware.ActionRedirect {
					http.Redirect(w, r, decision.Location, http.StatusSeeOther)
					return
				}
			}
			con.logger.Warn("console page failed", zap.String("endpoint", endpoint), zap.Error(err))
			http.Error(w, "backend unavailable", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", resp.Header().Get("Content-Type"))
		w.WriteHeader(resp.StatusCode())
		_, _ = w.Write(resp.Body())
	})
}

// state answers routes without a backing page with the session state.
func (con *console) state(w http.ResponseWriter, r *http.Request) {
	state, _ := middleware.StateFromContext(r.Context())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !state.IsAuthenticated || state.User == nil {
		fmt.Fprintf(w, "%s: signed out\n", con.engine.Actor())
		return
	}
	fmt.Fprintf(w, "%s: signed in as %s\n", con.engine.Actor(), state.User.Username)
}
