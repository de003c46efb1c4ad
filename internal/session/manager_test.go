package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seatdesk/internal/errors"
	"seatdesk/internal/identity"
	"seatdesk/internal/logger"
	"seatdesk/internal/models"
)

type fakeAuth struct {
	calls atomic.Int32
	cred  *models.Credential
	err   error
}

func (f *fakeAuth) LoginAsGuest(context.Context) (*models.Credential, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.cred, nil
}

func newTestManager(auth Authenticator, kv identity.Store, opts Options) (*Manager, *identity.CredentialStore) {
	store := identity.NewCredentialStore(kv)
	opts.Logger = logger.Discard()
	return NewManager(auth, store, opts), store
}

func TestInitialize_AdoptsStoredCredentialWithoutLogin(t *testing.T) {
	ctx := context.Background()
	kv := identity.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, identity.TokenKey, "stored-token"))
	require.NoError(t, kv.Set(ctx, identity.UserIDKey, "guest-7"))

	auth := &fakeAuth{cred: &models.Credential{Token: "new", UserID: "new-user"}}
	m, _ := newTestManager(auth, kv, Options{})

	require.NoError(t, m.Initialize(ctx))

	assert.Equal(t, int32(0), auth.calls.Load())
	assert.Equal(t, &models.Credential{Token: "stored-token", UserID: "guest-7"}, m.Credential())
	assert.Equal(t, "guest-7", m.DisplayID())
	assert.Empty(t, m.AuthError())
}

func TestInitialize_LogsInOnceAndPersists(t *testing.T) {
	ctx := context.Background()
	kv := identity.NewMemoryStore()
	auth := &fakeAuth{cred: &models.Credential{Token: "t1", UserID: "u1"}}
	m, store := newTestManager(auth, kv, Options{})

	assert.Equal(t, "...", m.DisplayID())
	require.NoError(t, m.Initialize(ctx))

	assert.Equal(t, int32(1), auth.calls.Load())
	assert.Equal(t, "u1", m.DisplayID())

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.Credential{Token: "t1", UserID: "u1"}, persisted)
}

func TestInitialize_PartialStoredCredentialTriggersLogin(t *testing.T) {
	ctx := context.Background()
	kv := identity.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, identity.TokenKey, "orphan-token"))

	auth := &fakeAuth{cred: &models.Credential{Token: "t2", UserID: "u2"}}
	m, _ := newTestManager(auth, kv, Options{})

	require.NoError(t, m.Initialize(ctx))
	assert.Equal(t, int32(1), auth.calls.Load())
	assert.Equal(t, "t2", m.Credential().Token)
}

func TestInitialize_LoginFailure(t *testing.T) {
	ctx := context.Background()
	kv := identity.NewMemoryStore()
	auth := &fakeAuth{err: errors.New("connection refused")}
	m, _ := newTestManager(auth, kv, Options{})

	err := m.Initialize(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAuthFailed)
	assert.Nil(t, m.Credential())
	assert.Equal(t, "...", m.DisplayID())
	assert.Equal(t, "Authentication failed. Please refresh.", m.AuthError())
	assert.Equal(t, 0, kv.Len())
	assert.Equal(t, int32(1), auth.calls.Load(), "no retry")
}

func TestInitialize_IncompleteLoginResponse(t *testing.T) {
	ctx := context.Background()
	kv := identity.NewMemoryStore()
	auth := &fakeAuth{cred: &models.Credential{Token: "only-token"}}
	m, _ := newTestManager(auth, kv, Options{})

	err := m.Initialize(ctx)

	assert.ErrorIs(t, err, apperrors.ErrAuthFailed)
	assert.Nil(t, m.Credential())
	assert.Equal(t, 0, kv.Len(), "no partial credential persisted")
}

func TestInvalidate_ClearsStoreAndMemory(t *testing.T) {
	ctx := context.Background()
	kv := identity.NewMemoryStore()
	auth := &fakeAuth{cred: &models.Credential{Token: "t", UserID: "u"}}
	m, _ := newTestManager(auth, kv, Options{})
	require.NoError(t, m.Initialize(ctx))

	require.NoError(t, m.Invalidate(ctx))

	assert.Nil(t, m.Credential())
	assert.Equal(t, "...", m.DisplayID())
	assert.Equal(t, 0, kv.Len())

	// idempotent
	require.NoError(t, m.Invalidate(ctx))
}

func TestInvalidate_Concurrent(t *testing.T) {
	ctx := context.Background()
	kv := identity.NewMemoryStore()
	auth := &fakeAuth{cred: &models.Credential{Token: "t", UserID: "u"}}
	m, _ := newTestManager(auth, kv, Options{})
	require.NoError(t, m.Initialize(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Invalidate(ctx))
		}()
	}
	wg.Wait()

	assert.Nil(t, m.Credential())
	assert.Equal(t, 0, kv.Len())
}

func TestInitialize_AfterInvalidateAcquiresNewGuest(t *testing.T) {
	ctx := context.Background()
	kv := identity.NewMemoryStore()
	auth := &fakeAuth{cred: &models.Credential{Token: "t1", UserID: "u1"}}
	m, _ := newTestManager(auth, kv, Options{})
	require.NoError(t, m.Initialize(ctx))
	require.NoError(t, m.Invalidate(ctx))

	auth.cred = &models.Credential{Token: "t2", UserID: "u2"}
	require.NoError(t, m.Initialize(ctx))

	assert.Equal(t, int32(2), auth.calls.Load())
	assert.Equal(t, "u2", m.DisplayID())
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "guest",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestInitialize_ExpiryCheck(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		token       string
		checkExpiry bool
		wantLogin   bool
	}{
		{"expired token dropped when enabled", signedToken(t, now.Add(-time.Hour)), true, true},
		{"valid token kept when enabled", signedToken(t, now.Add(time.Hour)), true, false},
		{"expired token kept when disabled", signedToken(t, now.Add(-time.Hour)), false, false},
		{"opaque token kept when enabled", "not-a-jwt", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := identity.NewMemoryStore()
			require.NoError(t, kv.Set(ctx, identity.TokenKey, tt.token))
			require.NoError(t, kv.Set(ctx, identity.UserIDKey, "old-user"))

			auth := &fakeAuth{cred: &models.Credential{Token: "fresh", UserID: "new-user"}}
			m, _ := newTestManager(auth, kv, Options{
				CheckExpiry: tt.checkExpiry,
				Now:         func() time.Time { return now },
			})

			require.NoError(t, m.Initialize(ctx))

			if tt.wantLogin {
				assert.Equal(t, int32(1), auth.calls.Load())
				assert.Equal(t, "new-user", m.DisplayID())
			} else {
				assert.Equal(t, int32(0), auth.calls.Load())
				assert.Equal(t, "old-user", m.DisplayID())
			}
		})
	}
}

func TestReset_KeepsStoredCredential(t *testing.T) {
	ctx := context.Background()
	kv := identity.NewMemoryStore()
	auth := &fakeAuth{cred: &models.Credential{Token: "t", UserID: "u"}}
	m, _ := newTestManager(auth, kv, Options{})
	require.NoError(t, m.Initialize(ctx))

	m.Reset()
	assert.Nil(t, m.Credential())
	assert.Equal(t, 2, kv.Len())

	require.NoError(t, m.Initialize(ctx))
	assert.Equal(t, int32(1), auth.calls.Load(), "restored without a second login")
	assert.Equal(t, "u", m.DisplayID())
}

func TestInitialize_CorruptIdentityFileLogsInOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	auth := &fakeAuth{cred: &models.Credential{Token: "t1", UserID: "u1"}}

	first, _ := newTestManager(auth, identity.NewFileStore(path), Options{})
	require.NoError(t, first.Initialize(ctx))

	restarted, _ := newTestManager(auth, identity.NewFileStore(path), Options{})
	require.NoError(t, restarted.Initialize(ctx))

	assert.Equal(t, int32(1), auth.calls.Load())
	assert.Equal(t, "u1", restarted.DisplayID())
}
