package logging

import "strings"

// FormatSubject builds the session/group subject string used in console output.
// Session IDs are shortened to their first eight characters.
func FormatSubject(sessionID, group string) string {
	sessionID = strings.TrimSpace(sessionID)
	group = strings.TrimSpace(group)
	parts := make([]string, 0, 2)
	if sessionID != "" {
		parts = append(parts, "Session #"+shortSessionID(sessionID))
	}
	if group != "" {
		parts = append(parts, "Group "+group)
	}
	return strings.Join(parts, " · ")
}

func shortSessionID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
