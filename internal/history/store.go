// Package history persists pipeline runs and their per-stage outcomes in a
// DuckDB database, giving the CLI a queryable record of what was deployed
// when.
package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/mlship/mlship/internal/history/migrate"
)

const defaultQueryTimeout = 30 * time.Second

// Store manages the DuckDB connection for run history.
type Store struct {
	db           *sql.DB
	dbPath       string
	queryTimeout time.Duration
}

// NewStore opens or creates the history database. An empty dbPath uses an
// in-memory database, which is what the tests do.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}

	if err := migrate.NewRunner(db).Run(); err != nil {
		db.Close()
		return nil, err
	}

	qt := defaultQueryTimeout
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	return &Store{db: db, dbPath: dbPath, queryTimeout: qt}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the on-disk location, empty for in-memory stores.
func (s *Store) DBPath() string {
	return s.dbPath
}
