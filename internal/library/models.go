package library

import "time"

// Media represents a catalog entry that can be streamed or queued in groups.
type Media struct {
	ID        string
	Title     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Group is a named, ordered playlist of media IDs.
type Group struct {
	Name      string
	MediaIDs  []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Size returns the number of members in the group.
func (g *Group) Size() int {
	if g == nil {
		return 0
	}
	return len(g.MediaIDs)
}

// Stats aggregates catalog counts for status output.
type Stats struct {
	Media  int
	Groups int
}

// DatabaseHealth is the diagnostic report for the catalog database. The
// media table carries the column inventory; groups only contribute a count.
type DatabaseHealth struct {
	Path          string
	Exists        bool
	Readable      bool
	SchemaVersion string

	MediaTable     bool
	MediaColumns   []string
	MissingColumns []string

	IntegrityCheck bool
	TotalMedia     int
	TotalGroups    int
	Error          string
}
