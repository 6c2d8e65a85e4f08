package library

import (
	"database/sql"
	"errors"
	"time"
)

const mediaColumns = "id, title, url, created_at, updated_at"

func scanMedia(scanner interface{ Scan(dest ...any) error }) (*Media, error) {
	var (
		id         string
		title      sql.NullString
		url        string
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)

	if err := scanner.Scan(&id, &title, &url, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	media := &Media{
		ID:    id,
		Title: title.String,
		URL:   url,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		media.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		media.UpdatedAt = updated
	}
	return media, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
