package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rnp-recruitment/pkg/platform/sentinel"
	txcontext "rnp-recruitment/pkg/platform/tx"
)

// Postgres stores each collection as one row of a key/value table.
type Postgres struct {
	db    *sql.DB
	table string
}

// NewPostgres returns a backend over table. The name is quoted, so any
// identifier is accepted.
func NewPostgres(db *sql.DB, table string) *Postgres {
	return &Postgres{db: db, table: pq.QuoteIdentifier(table)}
}

// Migrate creates the backing table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, p.table)
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", p.table, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, p.table)
	var value string
	err := txcontext.ExecutorFrom(ctx, p.db).QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return []byte(value), nil
}

// SetMany upserts all keys in one SQL transaction.
func (p *Postgres) SetMany(ctx context.Context, values map[string][]byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, p.table)

	err := txcontext.Run(ctx, p.db, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, p.db)
		for k, v := range values {
			if _, err := exec.ExecContext(ctx, query, k, string(v)); err != nil {
				return fmt.Errorf("upsert %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (p *Postgres) Clear(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s`, p.table)
	if _, err := txcontext.ExecutorFrom(ctx, p.db).ExecContext(ctx, query); err != nil {
		return fmt.Errorf("clear %s: %w: %w", p.table, sentinel.ErrUnavailable, err)
	}
	return nil
}
