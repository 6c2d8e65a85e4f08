package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

func (s *Store) countRows(ctx context.Context, table string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+table).Scan(&n)
	return n, err
}

// Stats returns catalog counts for status output.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)

	var (
		stats Stats
		err   error
	)
	if stats.Media, err = s.countRows(ctx, "media"); err != nil {
		return Stats{}, fmt.Errorf("count media: %w", err)
	}
	if stats.Groups, err = s.countRows(ctx, "groups"); err != nil {
		return Stats{}, fmt.Errorf("count groups: %w", err)
	}
	return stats, nil
}

// CheckHealth returns diagnostic information about the catalog database. It
// fills in as much of the report as it can before failing, so callers render
// a partial picture rather than nothing.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		Path:          s.path,
		SchemaVersion: strconv.Itoa(schemaVersion),
	}

	if s.path == "" {
		return health, errors.New("catalog database path is unknown")
	}
	switch info, err := os.Stat(s.path); {
	case errors.Is(err, os.ErrNotExist):
		return health, nil
	case err != nil:
		return health, fmt.Errorf("stat catalog database: %w", err)
	case info.IsDir():
		return health, fmt.Errorf("catalog database path %q is a directory", s.path)
	}
	health.Exists = true

	if s.db == nil {
		return health, errors.New("catalog database connection unavailable")
	}

	pingCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(pingCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping catalog database: %w", err)
	}
	health.Readable = true

	if err := s.inspectMediaTable(pingCtx, &health); err != nil {
		health.Error = err.Error()
		return health, err
	}

	var verdict string
	if err := s.db.QueryRowContext(pingCtx, "PRAGMA integrity_check").Scan(&verdict); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(verdict, "ok")

	return health, nil
}

// inspectMediaTable records whether the media table exists with the columns
// playback relies on, plus row counts for both catalog tables.
func (s *Store) inspectMediaTable(ctx context.Context, health *DatabaseHealth) error {
	exists, err := s.tableExists(ctx, "media")
	if err != nil {
		return fmt.Errorf("query table info: %w", err)
	}
	health.MediaTable = exists
	if !exists {
		return nil
	}

	columns, err := s.tableColumns(ctx, "media")
	if err != nil {
		return err
	}
	health.MediaColumns = columns
	for _, want := range []string{"id", "title", "url", "created_at", "updated_at"} {
		if !slices.Contains(columns, want) {
			health.MissingColumns = append(health.MissingColumns, want)
		}
	}

	if health.TotalMedia, err = s.countRows(ctx, "media"); err != nil {
		return fmt.Errorf("count media: %w", err)
	}
	if health.TotalGroups, err = s.countRows(ctx, "groups"); err != nil {
		return fmt.Errorf("count groups: %w", err)
	}
	return nil
}

func (s *Store) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	return columns, nil
}
