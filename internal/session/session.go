// Package session owns the signed-in Google identity: it resolves the
// identity provider once, runs login/logout, persists the bearer token with
// its expiry and hands the token to data components that need it.
package session

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/digitaldrywood/acreditacion/internal/database"
	apperr "github.com/digitaldrywood/acreditacion/internal/errors"
)

// DefaultTTL applies when the provider issues a token without an expiry.
const DefaultTTL = time.Hour

type Session struct {
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expiresAt"`
	UserEmail   string    `json:"email"`
	UserName    string    `json:"name"`
}

// Valid reports whether the token may still be used at now.
func (s Session) Valid(now time.Time) bool {
	return s.AccessToken != "" && now.Before(s.ExpiresAt)
}

type Profile struct {
	Name  string
	Email string
}

// IdentityProvider issues bearer tokens through an interactive consent flow.
type IdentityProvider interface {
	RequestToken(ctx context.Context) (*oauth2.Token, error)
	Revoke(ctx context.Context, token string) error
}

type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (Profile, error)
}

// Store persists the single session entry.
type Store interface {
	LoadSession(ctx context.Context) (*database.StoredSession, error)
	SaveSession(ctx context.Context, s database.StoredSession) error
	ClearSession(ctx context.Context) error
}

type EventKind int

const (
	LoggedIn EventKind = iota
	LoggedOut
)

type Event struct {
	Kind    EventKind
	Session Session
}

type Listener func(ctx context.Context, ev Event)

type Manager struct {
	store    Store
	profiles ProfileFetcher
	now      func() time.Time

	mu        sync.RWMutex
	provider  IdentityProvider
	initErr   error
	current   *Session
	listeners []Listener

	initOnce sync.Once
	ready    chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, profiles ProfileFetcher, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		profiles: profiles,
		now:      time.Now,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		cancel:   func() {},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init resolves the identity provider in the background. Only the first call
// has any effect. Ready is closed once load succeeds; on failure Err reports
// why and Login keeps failing with ErrAuthNotReady.
func (m *Manager) Init(ctx context.Context, load func(ctx context.Context) (IdentityProvider, error)) {
	m.initOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		m.mu.Lock()
		m.cancel = cancel
		m.mu.Unlock()

		go func() {
			defer close(m.done)

			p, err := load(ctx)
			m.mu.Lock()
			defer m.mu.Unlock()
			if err != nil {
				m.initErr = err
				log.WithError(err).Error("identity provider initialization failed")
				return
			}
			m.provider = p
			close(m.ready)
		}()
	})
}

// Ready is closed exactly once, when the identity provider becomes usable.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Wait blocks until initialization settles. It returns nil once the provider
// is ready, the load error if it failed, or ctx's error.
func (m *Manager) Wait(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-m.done:
		select {
		case <-m.ready:
			return nil
		default:
		}
		if err := m.Err(); err != nil {
			return apperr.Wrapf(apperr.ErrAuthNotReady, "%v", err)
		}
		return apperr.ErrAuthNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the initialization failure, if any.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initErr
}

// Close abandons a pending initialization and waits for it to return.
func (m *Manager) Close() {
	// A manager that was never initialized has nothing to wait for.
	m.initOnce.Do(func() { close(m.done) })

	m.mu.RLock()
	cancel := m.cancel
	m.mu.RUnlock()
	cancel()

	<-m.done
}

// Subscribe registers fn for login and logout events. Listeners run on the
// goroutine that triggered the event.
func (m *Manager) Subscribe(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Current returns the session if one exists and has not expired.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || !m.current.Valid(m.now()) {
		return Session{}, false
	}
	return *m.current, true
}

// Token returns the bearer token, or ErrNoSession when there is none or it
// has expired.
func (m *Manager) Token() (string, error) {
	s, ok := m.Current()
	if !ok {
		return "", apperr.ErrNoSession
	}
	return s.AccessToken, nil
}

// Restore reinstates a persisted session whose expiry is still in the
// future. Expired entries are deleted without notice.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	stored, err := m.store.LoadSession(ctx)
	if err != nil {
		return false, apperr.Wrapf(err, "loading persisted session")
	}
	if stored == nil || stored.Token == "" {
		return false, nil
	}

	if !m.now().Before(stored.ExpiresAt) {
		if err := m.store.ClearSession(ctx); err != nil {
			log.WithError(err).Warn("failed to discard expired session")
		}
		return false, nil
	}

	sess := Session{AccessToken: stored.Token, ExpiresAt: stored.ExpiresAt}
	m.fillProfile(ctx, &sess)
	m.setCurrent(ctx, &sess)

	log.WithField("email", sess.UserEmail).Info("session restored")
	return true, nil
}

// Login runs the provider's consent flow and installs the resulting session.
func (m *Manager) Login(ctx context.Context) (Session, error) {
	m.mu.RLock()
	p := m.provider
	m.mu.RUnlock()
	if p == nil {
		return Session{}, apperr.ErrAuthNotReady
	}

	tok, err := p.RequestToken(ctx)
	if err != nil {
		return Session{}, apperr.Wrapf(err, "requesting access token")
	}

	expires := tok.Expiry
	if expires.IsZero() {
		expires = m.now().Add(DefaultTTL)
	}
	sess := Session{AccessToken: tok.AccessToken, ExpiresAt: expires}

	if err := m.store.SaveSession(ctx, database.StoredSession{Token: sess.AccessToken, ExpiresAt: sess.ExpiresAt}); err != nil {
		log.WithError(err).Warn("failed to persist session")
	}

	m.fillProfile(ctx, &sess)
	m.setCurrent(ctx, &sess)

	log.WithField("email", sess.UserEmail).Info("logged in")
	return sess, nil
}

// Logout forgets the session locally and then revokes the token remotely.
// A revocation failure is only logged.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	prev := m.current
	m.current = nil
	p := m.provider
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	clearErr := m.store.ClearSession(ctx)
	if clearErr != nil {
		log.WithError(clearErr).Error("failed to clear persisted session")
	}

	for _, fn := range listeners {
		fn(ctx, Event{Kind: LoggedOut})
	}

	if prev != nil && p != nil {
		if err := p.Revoke(ctx, prev.AccessToken); err != nil {
			log.WithError(err).Warn("could not revoke token")
		}
	}

	return clearErr
}

func (m *Manager) fillProfile(ctx context.Context, sess *Session) {
	if m.profiles == nil {
		return
	}
	profile, err := m.profiles.FetchProfile(ctx, sess.AccessToken)
	if err != nil {
		log.WithError(err).Warn("failed to fetch user info")
		return
	}
	sess.UserName = profile.Name
	sess.UserEmail = profile.Email
}

func (m *Manager) setCurrent(ctx context.Context, sess *Session) {
	m.mu.Lock()
	m.current = sess
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, Event{Kind: LoggedIn, Session: *sess})
	}
}
