package library

import "errors"

var (
	// ErrMediaNotFound reports a lookup for a media ID that is not in the catalog.
	ErrMediaNotFound = errors.New("media not found")
	// ErrGroupNotFound reports a lookup for a group name that does not exist.
	ErrGroupNotFound = errors.New("group not found")
)
