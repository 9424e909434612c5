// Package server exposes the session, the accreditation form, the hosting
// viewer and the staff roster as a JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/digitaldrywood/acreditacion/internal/editor"
	"github.com/digitaldrywood/acreditacion/internal/hosting"
	"github.com/digitaldrywood/acreditacion/internal/notice"
	"github.com/digitaldrywood/acreditacion/internal/roster"
	"github.com/digitaldrywood/acreditacion/internal/session"
)

const shutdownTimeout = 5 * time.Second

// View is a data view that loads on login and clears on logout.
type View interface {
	Load(ctx context.Context) error
	Reset()
}

type Deps struct {
	Sessions *session.Manager
	Editor   *editor.Editor
	Hosting  *hosting.Viewer
	Roster   *roster.Table
	Notices  *notice.Board
}

type Limits struct {
	RPS   float64
	Burst int
}

type Server struct {
	deps   Deps
	router *gin.Engine
}

// New builds the router and subscribes the views to session events. ctx
// bounds the rate limiter's background sweep.
func New(ctx context.Context, deps Deps, limits Limits) *Server {
	s := &Server{deps: deps}

	r := gin.New()
	r.Use(gin.Recovery())
	if limits.RPS > 0 {
		r.Use(NewRateLimiter(ctx, rate.Limit(limits.RPS), limits.Burst))
	}
	s.routes(r)
	s.router = r

	Bind(deps.Sessions, deps.Editor, deps.Hosting, deps.Roster)
	return s
}

// Bind loads every view when a session starts and clears them when it ends.
func Bind(m *session.Manager, views ...View) {
	m.Subscribe(func(ctx context.Context, ev session.Event) {
		switch ev.Kind {
		case session.LoggedIn:
			for _, v := range views {
				if err := v.Load(ctx); err != nil {
					log.WithError(err).Warn("view failed to load after login")
				}
			}
		case session.LoggedOut:
			for _, v := range views {
				v.Reset()
			}
		}
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
