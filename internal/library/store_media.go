package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AddMedia inserts a catalog entry, or updates the existing row when the ID is
// already present. A missing ID is filled with a fresh UUID.
func (s *Store) AddMedia(ctx context.Context, media *Media) (*Media, error) {
	if media == nil {
		return nil, errors.New("media is nil")
	}
	url := strings.TrimSpace(media.URL)
	if url == "" {
		return nil, errors.New("media url is required")
	}
	id := strings.TrimSpace(media.ID)
	if id == "" {
		id = uuid.NewString()
	}
	title := strings.TrimSpace(media.Title)
	if title == "" {
		title = url
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO media (id, title, url, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET
             title = excluded.title,
             url = excluded.url,
             updated_at = excluded.updated_at`,
		id,
		title,
		url,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert media: %w", err)
	}

	return s.GetMedia(ctx, id)
}

// GetMedia fetches a catalog entry by identifier.
func (s *Store) GetMedia(ctx context.Context, id string) (*Media, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	media, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("media %q: %w", id, ErrMediaNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	return media, nil
}

// ListMedia returns all catalog entries ordered by creation time.
func (s *Store) ListMedia(ctx context.Context) ([]*Media, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+mediaColumns+` FROM media ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	var entries []*Media
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, media)
	}
	return entries, rows.Err()
}

// RemoveMedia deletes a catalog entry by identifier. Group members referencing
// the entry are left in place and skipped during playback.
func (s *Store) RemoveMedia(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("media %q: %w", id, ErrMediaNotFound)
	}
	return nil
}
