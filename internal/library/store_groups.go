package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SetGroup creates or replaces a named playlist with the provided member IDs.
// The member order is preserved; an empty list leaves the group defined but
// empty.
func (s *Store) SetGroup(ctx context.Context, name string, mediaIDs []string) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("group name is required")
	}
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin group tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO groups (name, created_at, updated_at)
             VALUES (?, ?, ?)
             ON CONFLICT (name) DO UPDATE SET updated_at = excluded.updated_at`,
			name,
			timestamp,
			timestamp,
		); err != nil {
			return fmt.Errorf("upsert group: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_name = ?`, name); err != nil {
			return fmt.Errorf("clear group members: %w", err)
		}

		for position, mediaID := range mediaIDs {
			mediaID = strings.TrimSpace(mediaID)
			if mediaID == "" {
				continue
			}
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO group_members (group_name, position, media_id) VALUES (?, ?, ?)`,
				name,
				position,
				mediaID,
			); err != nil {
				return fmt.Errorf("insert group member %d: %w", position, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetGroup(ctx, name)
}

// GetGroup fetches a playlist and its ordered members by name.
func (s *Store) GetGroup(ctx context.Context, name string) (*Group, error) {
	ctx = ensureContext(ctx)

	var (
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	row := s.db.QueryRowContext(ctx, `SELECT created_at, updated_at FROM groups WHERE name = ?`, name)
	if err := row.Scan(&createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %q: %w", name, ErrGroupNotFound)
		}
		return nil, fmt.Errorf("get group: %w", err)
	}

	group := &Group{Name: name}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		group.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		group.UpdatedAt = updated
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT media_id FROM group_members WHERE group_name = ? ORDER BY position`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mediaID string
		if err := rows.Scan(&mediaID); err != nil {
			return nil, err
		}
		group.MediaIDs = append(group.MediaIDs, mediaID)
	}
	return group, rows.Err()
}

// ListGroups returns every playlist with members, ordered by name.
func (s *Store) ListGroups(ctx context.Context) ([]*Group, error) {
	ctx = ensureContext(ctx)

	rows, err := s.db.QueryContext(ctx, `SELECT name, created_at, updated_at FROM groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	index := make(map[string]*Group)
	for rows.Next() {
		var (
			name       string
			createdRaw sql.NullString
			updatedRaw sql.NullString
		)
		if err := rows.Scan(&name, &createdRaw, &updatedRaw); err != nil {
			return nil, err
		}
		group := &Group{Name: name}
		if created, err := parseTimeString(createdRaw.String); err == nil {
			group.CreatedAt = created
		}
		if updated, err := parseTimeString(updatedRaw.String); err == nil {
			group.UpdatedAt = updated
		}
		groups = append(groups, group)
		index[name] = group
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	memberRows, err := s.db.QueryContext(
		ctx,
		`SELECT group_name, media_id FROM group_members ORDER BY group_name, position`,
	)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var groupName, mediaID string
		if err := memberRows.Scan(&groupName, &mediaID); err != nil {
			return nil, err
		}
		if group, ok := index[groupName]; ok {
			group.MediaIDs = append(group.MediaIDs, mediaID)
		}
	}
	return groups, memberRows.Err()
}

// RemoveGroup deletes a playlist and its members.
func (s *Store) RemoveGroup(ctx context.Context, name string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM groups WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("group %q: %w", name, ErrGroupNotFound)
	}
	return nil
}
