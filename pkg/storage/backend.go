package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"arbor/pkg/common"
	"arbor/pkg/ingest"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS trees (
	id          INTEGER PRIMARY KEY,
	age         TEXT NOT NULL,
	trunk_width INTEGER NOT NULL,
	ward        TEXT NOT NULL,
	species     TEXT NOT NULL,
	height      INTEGER NOT NULL
);`

// SQLiteStore keeps tree records in a single SQLite table. It serves as an
// ingest source and as the target of an import.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init trees table: %w", err)
	}

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`)
	if err != nil {
		logger.Warn("failed to set sqlite pragmas", "err", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// OpenSQLiteSource opens an existing database for reading. Unlike OpenSQLite
// it never creates the file or the trees table.
func OpenSQLiteSource(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// BatchWrite inserts or replaces records in a single transaction.
func (s *SQLiteStore) BatchWrite(ctx context.Context, records []common.Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO trees
		(id, age, trunk_width, ward, species, height) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, int64(r.ID), r.Age.String(), int64(r.TrunkWidth), r.Ward, r.Species, int64(r.Height)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert tree %d: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// Each yields stored rows in id order. Columns are rendered as text so the
// rows decode exactly like spreadsheet rows.
func (s *SQLiteStore) Each(ctx context.Context, fn func(ingest.Row) bool) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, age, trunk_width, ward, species, height FROM trees ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("query trees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, width, height  int64
			age, ward, species string
		)
		if err := rows.Scan(&id, &age, &width, &ward, &species, &height); err != nil {
			return err
		}
		row := ingest.Row{
			ingest.ColID:         strconv.FormatInt(id, 10),
			ingest.ColAge:        age,
			ingest.ColTrunkWidth: strconv.FormatInt(width, 10),
			ingest.ColWard:       ward,
			ingest.ColSpecies:    species,
			ingest.ColHeight:     strconv.FormatInt(height, 10),
		}
		if !fn(row) {
			return nil
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trees`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Truncate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM trees`)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
