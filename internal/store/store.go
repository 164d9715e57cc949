// Package store handles SQLite persistence of the sample catalog.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/samplecat/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a catalog entry does not exist.
var ErrNotFound = errors.New("sample not in catalog")

// ErrNameConflict is returned when a sample name is already cataloged from a
// different sample directory.
var ErrNameConflict = errors.New("sample name already cataloged from another directory")

// Store wraps SQLite access for catalog data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers from concurrent scans and watches.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS samples (
			name TEXT PRIMARY KEY,
			base TEXT NOT NULL,
			periods TEXT NOT NULL,
			datatype INTEGER NOT NULL,
			classtype INTEGER NOT NULL,
			tree TEXT NOT NULL,
			weight REAL NOT NULL,
			scan_id TEXT NOT NULL,
			resolved_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sample_files (
			sample_name TEXT NOT NULL,
			position INTEGER NOT NULL,
			path TEXT NOT NULL,
			PRIMARY KEY (sample_name, path)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_samples_base ON samples(base);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSample stores a resolved sample, replacing any previous entry with
// the same name together with its file list. An entry resolved from another
// base directory is never replaced; ErrNameConflict is returned instead.
func (s *Store) UpsertSample(ctx context.Context, entry model.CatalogEntry) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	sample := entry.Sample
	var storedBase string
	err = tx.QueryRowContext(ctx, `SELECT base FROM samples WHERE name = ?`, sample.Name).Scan(&storedBase)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	case err != nil:
		return err
	case storedBase != entry.Base:
		err = fmt.Errorf("%w: %s is cataloged from %s", ErrNameConflict, sample.Name, storedBase)
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM sample_files WHERE sample_name = ?`, sample.Name); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO samples (name, base, periods, datatype, classtype, tree, weight, scan_id, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			base = excluded.base,
			periods = excluded.periods,
			datatype = excluded.datatype,
			classtype = excluded.classtype,
			tree = excluded.tree,
			weight = excluded.weight,
			scan_id = excluded.scan_id,
			resolved_at = excluded.resolved_at`,
		sample.Name,
		entry.Base,
		strings.Join(entry.Periods, ","),
		int(sample.DataType),
		int(sample.ClassType),
		sample.Tree,
		sample.Weight,
		entry.ScanID,
		entry.ResolvedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}

	if len(sample.Files) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO sample_files (sample_name, position, path) VALUES (?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, path := range sample.Files {
			if _, err = stmt.ExecContext(ctx, sample.Name, i, path); err != nil {
				return err
			}
		}
	}

	err = tx.Commit()
	return err
}

// DeleteSample removes a sample and its files. Deleting an unknown name
// returns ErrNotFound.
func (s *Store) DeleteSample(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sample_files WHERE sample_name = ?`, name); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM samples WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByBase removes every entry resolved from the given sample directory,
// including period-suffixed variants.
func (s *Store) DeleteByBase(ctx context.Context, base string) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM sample_files WHERE sample_name IN (SELECT name FROM samples WHERE base = ?)`, base); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM samples WHERE base = ?`, base)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetSample returns a single catalog entry with its files.
func (s *Store) GetSample(ctx context.Context, name string) (model.CatalogEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, base, periods, datatype, classtype, tree, weight, scan_id, resolved_at
		 FROM samples WHERE name = ?`, name)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CatalogEntry{}, ErrNotFound
	}
	if err != nil {
		return model.CatalogEntry{}, err
	}
	files, err := s.listFiles(ctx, name)
	if err != nil {
		return model.CatalogEntry{}, err
	}
	entry.Sample.Files = files
	return entry, nil
}

// ListSamples returns catalog entries matching the filter, ordered by name.
// File lists are not loaded; use GetSample for them.
func (s *Store) ListSamples(ctx context.Context, filter model.CatalogFilter) ([]model.CatalogEntry, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.DataType != nil {
		clauses = append(clauses, "datatype = ?")
		args = append(args, int(*filter.DataType))
	}
	if filter.ClassType != nil {
		clauses = append(clauses, "classtype = ?")
		args = append(args, int(*filter.ClassType))
	}
	if filter.Prefix != "" {
		clauses = append(clauses, "substr(name, 1, ?) = ?")
		args = append(args, len(filter.Prefix), filter.Prefix)
	}
	query := fmt.Sprintf(`SELECT name, base, periods, datatype, classtype, tree, weight, scan_id, resolved_at
		FROM samples
		WHERE %s
		ORDER BY name ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var entries []model.CatalogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// FileCounts returns the number of files per sample name.
func (s *Store) FileCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sample_name, COUNT(*) FROM sample_files GROUP BY sample_name`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	counts := map[string]int{}
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Store) listFiles(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM sample_files WHERE sample_name = ? ORDER BY position ASC`, name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	files := []string{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (model.CatalogEntry, error) {
	var entry model.CatalogEntry
	var periods, resolvedAt string
	var dataType, classType int
	if err := row.Scan(
		&entry.Sample.Name,
		&entry.Base,
		&periods,
		&dataType,
		&classType,
		&entry.Sample.Tree,
		&entry.Sample.Weight,
		&entry.ScanID,
		&resolvedAt,
	); err != nil {
		return model.CatalogEntry{}, err
	}
	entry.Sample.DataType = model.DataType(dataType)
	entry.Sample.ClassType = model.ClassType(classType)
	if periods != "" {
		entry.Periods = strings.Split(periods, ",")
	}
	parsed, err := time.Parse(time.RFC3339Nano, resolvedAt)
	if err != nil {
		return model.CatalogEntry{}, err
	}
	entry.ResolvedAt = parsed
	return entry, nil
}
