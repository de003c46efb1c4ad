// Package session owns the guest credential for the lifetime of the shell.
//
// On Initialize a stored credential is adopted as is. Only when none is
// stored does the Manager log in as a new guest and persist the result.
// Invalidate forgets the credential both in memory and in the store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "seatdesk/internal/errors"
	"seatdesk/internal/logger"
	"seatdesk/internal/metrics"
	"seatdesk/internal/models"
)

// AuthFailedMessage is shown to the user when no guest identity could be acquired
const AuthFailedMessage = "Authentication failed. Please refresh."

// placeholderID is displayed until a credential is known
const placeholderID = "..."

// Authenticator issues new guest credentials
type Authenticator interface {
	LoginAsGuest(ctx context.Context) (*models.Credential, error)
}

// CredentialStore persists the credential. Load returns nil when nothing
// complete is stored.
type CredentialStore interface {
	Load(ctx context.Context) (*models.Credential, error)
	Save(ctx context.Context, cred models.Credential) error
	Clear(ctx context.Context) error
}

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// CheckExpiry drops a stored JWT whose exp is in the past
	CheckExpiry bool
	Now         func() time.Time
}

type Manager struct {
	auth    Authenticator
	store   CredentialStore
	log     *slog.Logger
	metrics *metrics.Metrics

	checkExpiry bool
	now         func() time.Time

	mu      sync.RWMutex
	cred    *models.Credential
	authErr string

	invalidateMu sync.Mutex
}

func NewManager(auth Authenticator, store CredentialStore, opts Options) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		auth:        auth,
		store:       store,
		log:         logger.Or(opts.Logger),
		metrics:     opts.Metrics,
		checkExpiry: opts.CheckExpiry,
		now:         now,
	}
}

// Initialize restores the stored credential or acquires a new guest one.
// A failed login leaves the credential unset, records AuthFailedMessage and
// returns an error wrapping ErrAuthFailed. There is no retry.
func (m *Manager) Initialize(ctx context.Context) error {
	stored, err := m.store.Load(ctx)
	if err != nil {
		m.log.Warn("Failed to read stored credential", "error", err)
		stored = nil
	}

	if stored != nil && m.checkExpiry && m.expired(stored.Token) {
		m.log.Info("Stored credential expired, discarding", "user_id", stored.UserID)
		if err := m.store.Clear(ctx); err != nil {
			m.log.Warn("Failed to clear expired credential", "error", err)
		}
		stored = nil
	}

	if stored != nil {
		m.set(stored, "")
		m.metrics.ObserveSessionRestore()
		m.log.Info("Restored session", "user_id", stored.UserID)
		return nil
	}

	cred, err := m.auth.LoginAsGuest(ctx)
	m.metrics.ObserveGuestLogin(err)
	if err == nil && (cred == nil || !cred.Valid()) {
		err = fmt.Errorf("%w: incomplete login response", apperrors.ErrAuthFailed)
	}
	if err != nil {
		m.set(nil, AuthFailedMessage)
		m.log.Error("Guest login failed", "error", err)
		return fmt.Errorf("failed to acquire guest session: %w", wrapAuthFailed(err))
	}

	if err := m.store.Save(ctx, *cred); err != nil {
		// the session still works for this process
		m.log.Error("Failed to persist credential", "error", err, "user_id", cred.UserID)
	}

	m.set(cred, "")
	m.log.Info("Acquired guest session", "user_id", cred.UserID)
	return nil
}

// Invalidate removes the credential from the store and from memory.
// Repeated or concurrent calls are harmless.
func (m *Manager) Invalidate(ctx context.Context) error {
	m.invalidateMu.Lock()
	defer m.invalidateMu.Unlock()

	err := m.store.Clear(ctx)
	if err != nil {
		m.log.Error("Failed to clear stored credential", "error", err)
	}

	m.mu.Lock()
	m.cred = nil
	m.mu.Unlock()

	return err
}

// Reset forgets the in-memory credential and auth error. The stored
// credential is kept, so the next Initialize restores it.
func (m *Manager) Reset() {
	m.set(nil, "")
}

// Credential returns a copy of the active credential, or nil
func (m *Manager) Credential() *models.Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cred == nil {
		return nil
	}
	c := *m.cred
	return &c
}

// DisplayID returns the guest user id, or "..." while none is known
func (m *Manager) DisplayID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cred == nil {
		return placeholderID
	}
	return m.cred.UserID
}

// AuthError returns the user-visible authentication failure, if any
func (m *Manager) AuthError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authErr
}

func (m *Manager) set(cred *models.Credential, authErr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cred != nil {
		c := *cred
		cred = &c
	}
	m.cred = cred
	m.authErr = authErr
}

// expired reports whether token is a JWT with an exp in the past.
// Anything that does not parse is kept.
func (m *Manager) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.Time.After(m.now())
}

func wrapAuthFailed(err error) error {
	if errors.Is(err, apperrors.ErrAuthFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", apperrors.ErrAuthFailed, err)
}
