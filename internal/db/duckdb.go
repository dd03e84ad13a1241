// Package db holds the DuckDB connection used to read chat files from disk.
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	dbInstance *sql.DB
	dbOnce     sync.Once
	dbErr      error
)

// GetDB returns the process-wide DuckDB connection
func GetDB() (*sql.DB, error) {
	dbOnce.Do(func() {
		dbInstance, dbErr = initializeDuckDB()
	})
	return dbInstance, dbErr
}

// initializeDuckDB opens an in-memory DuckDB with the JSON extension loaded
func initializeDuckDB() (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	// DuckDB works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{"INSTALL json", "LOAD json"} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	return db, nil
}

// ReadJSONLines returns a table expression over every newline-delimited
// JSON file matching glob. Rows carry their source path in "filename".
func ReadJSONLines(glob string) string {
	return fmt.Sprintf(`read_json('%s',
			format = 'newline_delimited',
			union_by_name = true,
			filename = true
		)`, QuoteLiteral(glob))
}

// QuoteLiteral escapes s for use inside a single-quoted SQL string.
func QuoteLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
