package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/theLastOfCats/storefront/internal/db"
)

type SQL struct {
	db     *db.DB
	upsert string
}

// NewSQL stores entries in a kv_entries table, creating it when missing.
func NewSQL(ctx context.Context, database *db.DB) (*SQL, error) {
	ddl := `CREATE TABLE IF NOT EXISTS kv_entries (name VARCHAR(191) PRIMARY KEY, value TEXT NOT NULL)`
	if _, err := database.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}
	return &SQL{
		db:     database,
		upsert: database.Upsert("kv_entries", []string{"name", "value"}, []string{"name"}, []string{"value"}),
	}, nil
}

func (s *SQL) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE name = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

func (s *SQL) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.upsert, key, value)
	return err
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE name = ?`, key)
	return err
}
