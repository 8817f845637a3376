// Package model defines shared types used across the sync engine and adapters.
package model

import (
	"time"
)

// Link is a single saved link read from the GoodLinks store. Links are read
// fresh on every run and never cached across runs.
type Link struct {
	// ID is the stable identifier assigned by GoodLinks (a UUID string).
	// It is the only field used for sync-state identity; two links with the
	// same URL but different IDs are treated as independent records.
	ID string

	// URL is the link target.
	URL string

	// Title is the saved title. May be empty; GoodLinks stores NULL until
	// the page has been fetched.
	Title string

	// SavedAt is when the link was saved in GoodLinks. Used for ordering
	// (oldest first) and display only, never for identity.
	SavedAt time.Time
}

// maxDisplayTitle bounds titles in logs and terminal listings.
const maxDisplayTitle = 60

// DisplayTitle returns the title trimmed for logs and listings:
// "(untitled)" when empty, truncated to 60 runes otherwise.
func (l *Link) DisplayTitle() string {
	if l.Title == "" {
		return "(untitled)"
	}
	runes := []rune(l.Title)
	if len(runes) <= maxDisplayTitle {
		return l.Title
	}
	return string(runes[:maxDisplayTitle]) + "..."
}
