package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatdesk/internal/database"
	"seatdesk/internal/models"
)

// plainStore hides the Batcher methods of MemoryStore and can fail Set for one key
type plainStore struct {
	inner   *MemoryStore
	failSet string
}

func (p *plainStore) Get(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Get(ctx, key)
}

func (p *plainStore) Set(ctx context.Context, key, value string) error {
	if key == p.failSet {
		return errors.New("disk full")
	}
	return p.inner.Set(ctx, key, value)
}

func (p *plainStore) Remove(ctx context.Context, key string) error {
	return p.inner.Remove(ctx, key)
}

func runCredentialStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty store loads nil", func(t *testing.T) {
		cs := NewCredentialStore(newStore(t))
		cred, err := cs.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, cred)
	})

	t.Run("save then load", func(t *testing.T) {
		cs := NewCredentialStore(newStore(t))
		require.NoError(t, cs.Save(ctx, models.Credential{Token: "tok", UserID: "user-1"}))

		cred, err := cs.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, &models.Credential{Token: "tok", UserID: "user-1"}, cred)
	})

	t.Run("last write wins", func(t *testing.T) {
		cs := NewCredentialStore(newStore(t))
		require.NoError(t, cs.Save(ctx, models.Credential{Token: "a", UserID: "1"}))
		require.NoError(t, cs.Save(ctx, models.Credential{Token: "b", UserID: "2"}))

		cred, err := cs.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "b", cred.Token)
		assert.Equal(t, "2", cred.UserID)
	})

	t.Run("partial entries load nil", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, UserIDKey, "user-only"))

		cred, err := NewCredentialStore(s).Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, cred)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		s := newStore(t)
		cs := NewCredentialStore(s)
		require.NoError(t, cs.Save(ctx, models.Credential{Token: "tok", UserID: "u"}))

		require.NoError(t, cs.Clear(ctx))
		require.NoError(t, cs.Clear(ctx))

		_, ok, err := s.Get(ctx, TokenKey)
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = s.Get(ctx, UserIDKey)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent clear", func(t *testing.T) {
		cs := NewCredentialStore(newStore(t))
		require.NoError(t, cs.Save(ctx, models.Credential{Token: "tok", UserID: "u"}))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, cs.Clear(ctx))
			}()
		}
		wg.Wait()

		cred, err := cs.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, cred)
	})
}

func TestCredentialStore_Memory(t *testing.T) {
	runCredentialStoreSuite(t, func(*testing.T) Store { return NewMemoryStore() })
}

func TestCredentialStore_File(t *testing.T) {
	runCredentialStoreSuite(t, func(t *testing.T) Store {
		return NewFileStore(filepath.Join(t.TempDir(), "nested", "identity.json"))
	})
}

func TestCredentialStore_PlainStore(t *testing.T) {
	runCredentialStoreSuite(t, func(*testing.T) Store { return &plainStore{inner: NewMemoryStore()} })
}

func TestCredentialStore_SaveRejectsIncomplete(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	cs := NewCredentialStore(mem)

	assert.Error(t, cs.Save(ctx, models.Credential{Token: "tok"}))
	assert.Error(t, cs.Save(ctx, models.Credential{UserID: "u"}))
	assert.Equal(t, 0, mem.Len())
}

func TestCredentialStore_SaveRollsBackToken(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	cs := NewCredentialStore(&plainStore{inner: mem, failSet: UserIDKey})

	err := cs.Save(ctx, models.Credential{Token: "tok", UserID: "u"})

	require.Error(t, err)
	assert.Equal(t, 0, mem.Len(), "token must not survive without user id")
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "identity.json")

	require.NoError(t, NewCredentialStore(NewFileStore(path)).Save(ctx,
		models.Credential{Token: "persisted", UserID: "guest-1"}))

	cred, err := NewCredentialStore(NewFileStore(path)).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", cred.Token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	fs := NewFileStore(path)
	_, _, err := fs.Get(ctx, TokenKey)
	assert.Error(t, err)
	assert.Error(t, fs.Ping(ctx))
}

func TestFileStore_CorruptFileIsRepairedByWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("save", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "identity.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
		store := NewCredentialStore(NewFileStore(path))

		require.NoError(t, store.Save(ctx, models.Credential{Token: "tok", UserID: "guest-1"}))

		cred, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, &models.Credential{Token: "tok", UserID: "guest-1"}, cred)
	})

	t.Run("clear", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "identity.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
		fs := NewFileStore(path)

		require.NoError(t, NewCredentialStore(fs).Clear(ctx))

		assert.NoError(t, fs.Ping(ctx))
		_, ok, err := fs.Get(ctx, TokenKey)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestFileStore_RemoveMissingDoesNotCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	fs := NewFileStore(path)

	require.NoError(t, fs.Remove(context.Background(), TokenKey))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDefaultFilePath_HonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "seatdesk", "identity.json"), DefaultFilePath())
}

func TestNamespacedKey(t *testing.T) {
	assert.Equal(t, "seatdesk_token", namespacedKey("", "seatdesk_token"))
	assert.Equal(t, "shop:seatdesk_token", namespacedKey("shop", "seatdesk_token"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, Config{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, b)

	path := filepath.Join(t.TempDir(), "id.json")
	b, err = Open(ctx, Config{Backend: "FILE", FilePath: path})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, b)
	assert.Equal(t, path, b.(*FileStore).Path())

	_, err = Open(ctx, Config{Backend: "etcd"})
	assert.Error(t, err)
}

func TestSharedBackends(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}
	ctx := context.Background()

	t.Run("redis", func(t *testing.T) {
		runCredentialStoreSuite(t, func(t *testing.T) Store {
			s, err := NewRedisStore(ctx, RedisConfig{Addr: os.Getenv("REDIS_ADDR")}, "seatdesk-test-"+t.Name())
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		})
	})

	t.Run("valkey", func(t *testing.T) {
		runCredentialStoreSuite(t, func(t *testing.T) Store {
			s, err := NewValkeyStore(ValkeyConfig{Addr: os.Getenv("VALKEY_ADDR")}, "seatdesk-test-"+t.Name())
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		})
	})

	t.Run("postgres", func(t *testing.T) {
		cfg := database.Config{
			Host:     envOr("DB_HOST", "localhost"),
			Port:     5432,
			User:     envOr("DB_USER", "seatdesk"),
			Password: envOr("DB_PASSWORD", "seatdesk"),
			DBName:   envOr("DB_NAME", "seatdesk"),
			SSLMode:  "disable",
		}
		runCredentialStoreSuite(t, func(t *testing.T) Store {
			s, err := NewPostgresStore(ctx, cfg, "seatdesk-test-"+t.Name())
			require.NoError(t, err)
			t.Cleanup(func() {
				s.RemoveMany(ctx, TokenKey, UserIDKey)
				s.Close()
			})
			return s
		})
	})
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
