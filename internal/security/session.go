package security

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrSessionRevoked = errors.New("session revoked")
)

// Session is an access token with the refresh token that renews it.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// RefreshFunc exchanges a refresh token for a new session. Returning an error
// wrapping ErrSessionRevoked stops further attempts.
type RefreshFunc func(ctx context.Context, refreshToken string) (Session, error)

type SessionConfig struct {
	Skew           time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Skew:           30 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// SessionManager hands out a valid access token, refreshing ahead of expiry.
// Concurrent callers that need a refresh share a single in-flight call.
type SessionManager struct {
	mu      sync.Mutex
	session Session
	group   singleflight.Group

	refresh RefreshFunc
	cfg     SessionConfig
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewSessionManager(initial Session, refresh RefreshFunc, cfg SessionConfig) *SessionManager {
	def := DefaultSessionConfig()
	if cfg.Skew <= 0 {
		cfg.Skew = def.Skew
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	return &SessionManager{
		session: initial,
		refresh: refresh,
		cfg:     cfg,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Token returns the cached access token, refreshing it first when it expires within the skew.
func (m *SessionManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()

	if s.AccessToken != "" && m.now().Add(m.cfg.Skew).Before(s.ExpiresAt) {
		return s.AccessToken, nil
	}
	return m.ForceRefresh(ctx)
}

// ForceRefresh renews the session regardless of the cached expiry.
func (m *SessionManager) ForceRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	refreshToken := m.session.RefreshToken
	m.mu.Unlock()
	if refreshToken == "" {
		return "", ErrNoSession
	}

	// The shared call outlives any single caller's context.
	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan("refresh", func() (any, error) {
		session, err := m.refreshWithRetry(detached, refreshToken)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.session = session
		m.mu.Unlock()
		return session, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(Session).AccessToken, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Session returns a copy of the current session.
func (m *SessionManager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *SessionManager) refreshWithRetry(ctx context.Context, refreshToken string) (Session, error) {
	var lastErr error
	for attempt := 0; attempt < m.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := m.sleep(ctx, m.backoff(attempt)); err != nil {
				return Session{}, err
			}
		}
		session, err := m.refresh(ctx, refreshToken)
		if err == nil {
			if session.RefreshToken == "" {
				session.RefreshToken = refreshToken
			}
			return session, nil
		}
		if errors.Is(err, ErrSessionRevoked) {
			return Session{}, err
		}
		lastErr = err
	}
	return Session{}, fmt.Errorf("refresh failed after %d attempts: %w", m.cfg.MaxAttempts, lastErr)
}

func (m *SessionManager) backoff(attempt int) time.Duration {
	d := m.cfg.InitialBackoff << (attempt - 1)
	if d > m.cfg.MaxBackoff || d <= 0 {
		d = m.cfg.MaxBackoff
	}
	// up to 20% jitter
	jitter := time.Duration(rand.Int63n(int64(d)/5 + 1))
	return d - jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
