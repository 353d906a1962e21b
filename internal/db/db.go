package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQLite string

//go:embed schema_mysql.sql
var schemaMySQL string

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

type DB struct {
	*sql.DB
	Driver string
}

// Open connects to sqlite or MySQL without touching the schema.
//
// MySQL DSN examples: user:password@tcp(host:port)/dbname, user:password@/dbname
// SQLite DSN: file path (e.g., data/storefront.db, file:name?mode=memory&cache=shared)
func Open(dsn string) (*DB, error) {
	var db *sql.DB
	var err error
	var driver string

	// Simple heuristic: if DSN contains '@' it's likely MySQL
	if strings.Contains(dsn, "@") {
		driver = DriverMySQL
		db, err = sql.Open("mysql", dsn)
	} else {
		driver = DriverSQLite
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			dir := filepath.Dir(dsn)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}

		if !strings.Contains(dsn, "?") {
			dsn += "?"
		} else {
			dsn += "&"
		}

		// modernc.org/sqlite applies _pragma parameters to every pooled connection
		pragmas := []string{
			"_pragma=foreign_keys(1)",
			"_pragma=journal_mode(WAL)",
			"_pragma=busy_timeout(30000)",
			"_pragma=synchronous(NORMAL)",
			"_pragma=temp_store(MEMORY)",
		}
		dsn += strings.Join(pragmas, "&")

		db, err = sql.Open("sqlite", dsn)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(25)
	}

	return &DB{DB: db, Driver: driver}, nil
}

// New opens the database and applies the storefront schema.
func New(dsn string) (*DB, error) {
	database, err := Open(dsn)
	if err != nil {
		return nil, err
	}

	schema := schemaSQLite
	if database.Driver == DriverMySQL {
		schema = schemaMySQL
	}
	if err := database.ApplySchema(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// ApplySchema executes each ';'-separated statement in order.
func (db *DB) ApplySchema(schema string) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// Upsert renders an insert-or-update statement in the connected dialect.
// updates lists the columns overwritten on conflict with the key columns.
func (db *DB) Upsert(table string, columns, keys, updates []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)

	sets := make([]string, 0, len(updates))
	if db.Driver == DriverMySQL {
		for _, c := range updates {
			sets = append(sets, fmt.Sprintf("%s=VALUES(%s)", c, c))
		}
		return query + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}

	for _, c := range updates {
		sets = append(sets, fmt.Sprintf("%s=excluded.%s", c, c))
	}
	return query + fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET ", strings.Join(keys, ", ")) + strings.Join(sets, ", ")
}
