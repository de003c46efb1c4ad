// Package identity persists the guest credential across restarts.
//
// A Store is a plain key/value abstraction with explicit Get, Set and Remove.
// CredentialStore layers the credential on top of it as two entries, a token
// and a user id, and guarantees that a half-written credential is never
// reported back as valid.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"seatdesk/internal/models"
)

// Keys under which the two halves of the credential are stored
const (
	TokenKey  = "seatdesk_token"
	UserIDKey = "seatdesk_userid"
)

// Store is durable key/value storage. Writes are last-write-wins and visible
// to the next read. A missing key is reported with ok == false, not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Batcher is implemented by stores that can write or delete several keys in
// one step. CredentialStore prefers it so that both entries change together.
type Batcher interface {
	SetMany(ctx context.Context, entries map[string]string) error
	RemoveMany(ctx context.Context, keys ...string) error
}

// Backend is a Store that owns a connection
type Backend interface {
	Store
	Ping(ctx context.Context) error
	Close() error
}

// CredentialStore reads and writes the guest credential
type CredentialStore struct {
	store Store
	mu    sync.Mutex
}

func NewCredentialStore(store Store) *CredentialStore {
	return &CredentialStore{store: store}
}

// Load returns the stored credential, or nil when it is absent or incomplete
func (s *CredentialStore) Load(ctx context.Context) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	if !ok {
		return nil, nil
	}

	userID, ok, err := s.store.Get(ctx, UserIDKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}
	if !ok {
		return nil, nil
	}

	cred := &models.Credential{Token: token, UserID: userID}
	if !cred.Valid() {
		return nil, nil
	}
	return cred, nil
}

// Save persists both halves of the credential
func (s *CredentialStore) Save(ctx context.Context, cred models.Credential) error {
	if !cred.Valid() {
		return fmt.Errorf("refusing to persist incomplete credential")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.store.(Batcher); ok {
		if err := b.SetMany(ctx, map[string]string{
			TokenKey:  cred.Token,
			UserIDKey: cred.UserID,
		}); err != nil {
			return fmt.Errorf("failed to save credential: %w", err)
		}
		return nil
	}

	if err := s.store.Set(ctx, TokenKey, cred.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := s.store.Set(ctx, UserIDKey, cred.UserID); err != nil {
		// roll back so no partial credential survives
		rbErr := s.store.Remove(ctx, TokenKey)
		return errors.Join(fmt.Errorf("failed to save user id: %w", err), rbErr)
	}
	return nil
}

// Clear removes both entries. Removing absent entries is not an error,
// so concurrent or repeated calls are safe.
func (s *CredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.store.(Batcher); ok {
		if err := b.RemoveMany(ctx, TokenKey, UserIDKey); err != nil {
			return fmt.Errorf("failed to clear credential: %w", err)
		}
		return nil
	}

	var errs []error
	for _, key := range []string{TokenKey, UserIDKey} {
		if err := s.store.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
