// Package app assembles the shared runtime pieces for the command binaries.
package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/digitaldrywood/acreditacion/internal/config"
	"github.com/digitaldrywood/acreditacion/internal/database"
	"github.com/digitaldrywood/acreditacion/internal/google"
	"github.com/digitaldrywood/acreditacion/internal/records"
	"github.com/digitaldrywood/acreditacion/internal/session"
)

type App struct {
	Config   *config.Config
	DB       *database.DB
	Sessions *session.Manager
	Sheets   *google.SheetsClient
	Store    *records.Store
	Location *time.Location
}

// New opens local state and starts resolving the identity provider in the
// background. The caller must Close the result.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(db, google.NewProfiles(ctx, cfg.UserInfoURL))
	sessions.Init(ctx, func(context.Context) (session.IdentityProvider, error) {
		return google.NewAuth(cfg.CredentialsPath, cfg.OAuthRedirectURL, cfg.RevokeURL)
	})

	sheets := google.NewSheetsClient(cfg.SpreadsheetID, cfg.SheetsEndpoint)

	return &App{
		Config:   cfg,
		DB:       db,
		Sessions: sessions,
		Sheets:   sheets,
		Store:    records.NewStore(sheets, sessions),
		Location: loc,
	}, nil
}

// RequireSession restores the persisted session or fails with ErrNoSession.
func (a *App) RequireSession(ctx context.Context) (session.Session, error) {
	if _, err := a.Sessions.Restore(ctx); err != nil {
		return session.Session{}, err
	}
	sess, ok := a.Sessions.Current()
	if !ok {
		_, err := a.Sessions.Token()
		return session.Session{}, err
	}
	return sess, nil
}

func (a *App) Close() {
	a.Sessions.Close()
	if err := a.DB.Close(); err != nil {
		log.WithError(err).Warn("failed to close local database")
	}
}
