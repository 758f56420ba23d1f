package models

import (
	"strings"
	"unicode"
)

// Principal is the authenticated identity attached to a connection. It is
// produced by the token verifier on successful authentication and never
// persisted by this service.
type Principal struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Initials    string `json:"initials"`
}

// NewPrincipal builds a Principal with initials derived from the display
// name: the first letter of the first two words, uppercased. A single-word
// name yields a single initial; an empty name yields "?".
func NewPrincipal(id, displayName string) *Principal {
	return &Principal{
		ID:          id,
		DisplayName: displayName,
		Initials:    deriveInitials(displayName),
	}
}

func deriveInitials(displayName string) string {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return "?"
	}

	initials := make([]rune, 0, 2)
	for _, word := range fields {
		for _, r := range word {
			initials = append(initials, unicode.ToUpper(r))
			break
		}
		if len(initials) == 2 {
			break
		}
	}

	return string(initials)
}

// PresenceEntry is one row of the "active editors" list rendered by
// clients. Registered while a principal holds an authenticated connection
// to a slideshow.
type PresenceEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Initials    string `json:"initials"`
}

// PresenceEntryFor builds the registry entry for an authenticated principal.
func PresenceEntryFor(p *Principal) PresenceEntry {
	return PresenceEntry{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Initials:    p.Initials,
	}
}
