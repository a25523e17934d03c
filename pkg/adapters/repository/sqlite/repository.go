package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

// SQLiteRepository keeps the front end's local storage in a sqlite database
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS local_storage (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, key)
	);
	CREATE INDEX IF NOT EXISTS idx_local_storage_updated_at ON local_storage(updated_at);
	`
	_, err := db.Exec(query)
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	query := `SELECT value FROM local_storage WHERE namespace = ? AND key = ?`

	var value string
	err := r.db.QueryRowContext(ctx, query, namespace, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, namespace, key, value string) error {
	query := `INSERT INTO local_storage (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
			  ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query, namespace, key, value, time.Now().UTC().Format("2006-01-02 15:04:05"))
	return err
}

func (r *SQLiteRepository) Delete(ctx context.Context, namespace, key string) error {
	query := `DELETE FROM local_storage WHERE namespace = ? AND key = ?`
	_, err := r.db.ExecContext(ctx, query, namespace, key)
	return err
}

// Purge drops namespaces untouched since before, e.g. abandoned guest sessions.
func (r *SQLiteRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM local_storage WHERE namespace IN (
		SELECT namespace FROM local_storage GROUP BY namespace HAVING MAX(updated_at) < ?
	)`
	res, err := r.db.ExecContext(ctx, query, before.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Ensure interface compliance
var (
	_ ports.Storage = (*SQLiteRepository)(nil)
	_ ports.Purger  = (*SQLiteRepository)(nil)
)
