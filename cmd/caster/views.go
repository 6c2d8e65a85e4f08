package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"caster/internal/api"
)

// formatStateLabel renders an engine state constant ("LIVE", "IDLE") as a
// display word.
func formatStateLabel(state string) string {
	state = strings.TrimSpace(state)
	if state == "" {
		return "Unknown"
	}
	return cases.Title(language.Und).String(strings.ToLower(state))
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func buildMediaRows(items []api.MediaItem) [][]string {
	if len(items) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = item.URL
		}
		rows = append(rows, []string{
			item.ID,
			title,
			item.URL,
			formatDisplayTime(item.CreatedAt),
		})
	}
	return rows
}

func buildGroupRows(groups []api.GroupItem) [][]string {
	if len(groups) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(groups))
	for _, group := range groups {
		rows = append(rows, []string{
			group.Name,
			fmt.Sprintf("%d", len(group.VideoIDs)),
			formatMemberList(group.VideoIDs),
		})
	}
	return rows
}

// formatMemberList keeps group tables readable by eliding long member lists.
func formatMemberList(ids []string) string {
	const shown = 3
	if len(ids) == 0 {
		return "-"
	}
	if len(ids) <= shown {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(ids[:shown], ", "), len(ids)-shown)
}

func buildLibraryRows(lib *api.LibraryStatus) [][]string {
	if lib == nil {
		return nil
	}
	return [][]string{
		{"Media", fmt.Sprintf("%d", lib.Media)},
		{"Groups", fmt.Sprintf("%d", lib.Groups)},
	}
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
