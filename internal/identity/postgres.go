package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"seatdesk/internal/database"
)

// PostgresStore keeps entries in the identity_entries table, one row per
// (namespace, key)
type PostgresStore struct {
	db        *database.DB
	namespace string
}

// NewPostgresStore connects and runs migrations
func NewPostgresStore(ctx context.Context, cfg database.Config, namespace string) (*PostgresStore, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{db: db, namespace: namespace}, nil
}

func (p *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM identity_entries WHERE namespace = $1 AND key = $2`,
		p.namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get identity entry: %w", err)
	}
	return value, true, nil
}

const upsertEntry = `
INSERT INTO identity_entries (namespace, key, value, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

func (p *PostgresStore) Set(ctx context.Context, key, value string) error {
	if _, err := p.db.ExecContext(ctx, upsertEntry, p.namespace, key, value); err != nil {
		return fmt.Errorf("failed to set identity entry: %w", err)
	}
	return nil
}

func (p *PostgresStore) Remove(ctx context.Context, key string) error {
	return p.RemoveMany(ctx, key)
}

// SetMany writes all entries in one transaction
func (p *PostgresStore) SetMany(ctx context.Context, entries map[string]string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for k, v := range entries {
		if _, err := tx.ExecContext(ctx, upsertEntry, p.namespace, k, v); err != nil {
			return fmt.Errorf("failed to set identity entry %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit identity entries: %w", err)
	}
	return nil
}

func (p *PostgresStore) RemoveMany(ctx context.Context, keys ...string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM identity_entries WHERE namespace = $1 AND key = ANY($2)`,
		p.namespace, pq.Array(keys))
	if err != nil {
		return fmt.Errorf("failed to remove identity entries: %w", err)
	}
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	hc := p.db.HealthCheck(ctx)
	if hc.Status != "healthy" {
		return fmt.Errorf("database %s: %s", hc.Status, hc.Error)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
