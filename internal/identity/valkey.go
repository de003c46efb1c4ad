package identity

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"
)

type ValkeyConfig struct {
	Addr     string
	Password string
	DB       int
}

// ValkeyStore is the rueidis-backed variant of RedisStore
type ValkeyStore struct {
	client    rueidis.Client
	namespace string
}

func NewValkeyStore(cfg ValkeyConfig, namespace string) (*ValkeyStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.Addr},
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyStore{client: client, namespace: namespace}, nil
}

func (v *ValkeyStore) key(k string) string {
	return namespacedKey(v.namespace, k)
}

func (v *ValkeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := v.client.Do(ctx, v.client.B().Get().Key(v.key(key)).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("valkey get: %w", err)
	}
	return value, true, nil
}

func (v *ValkeyStore) Set(ctx context.Context, key, value string) error {
	cmd := v.client.B().Set().Key(v.key(key)).Value(value).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set: %w", err)
	}
	return nil
}

func (v *ValkeyStore) Remove(ctx context.Context, key string) error {
	return v.RemoveMany(ctx, key)
}

func (v *ValkeyStore) SetMany(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	cmd := v.client.B().Mset().KeyValue()
	for k, val := range entries {
		cmd = cmd.KeyValue(v.key(k), val)
	}
	if err := v.client.Do(ctx, cmd.Build()).Error(); err != nil {
		return fmt.Errorf("valkey mset: %w", err)
	}
	return nil
}

func (v *ValkeyStore) RemoveMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = v.key(k)
	}
	if err := v.client.Do(ctx, v.client.B().Del().Key(full...).Build()).Error(); err != nil {
		return fmt.Errorf("valkey del: %w", err)
	}
	return nil
}

func (v *ValkeyStore) Ping(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

func (v *ValkeyStore) Close() error {
	v.client.Close()
	return nil
}
