package library

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed catalog.sql
var schemaDDL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; there is no migration path, users rebuild the catalog database.
const schemaVersion = 1

// ErrSchemaMismatch means the catalog database was created by an
// incompatible caster version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	return n > 0, err
}

func (s *Store) initSchema(ctx context.Context) error {
	installed, err := s.tableExists(ctx, "schema_version")
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if !installed {
		return s.installSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete the catalog database to rebuild it)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) installSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog schema: %w", err)
	}
	return nil
}
