package models

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestDeriveInitials(t *testing.T) {
	cases := []struct {
		name     string
		expected string
	}{
		{"Alice Anderson", "AA"},
		{"Bob", "B"},
		{"freja fischer nielsen", "FF"},
		{"  spaced   out  ", "SO"},
		{"", "?"},
		{"æon flux", "ÆF"},
	}

	for _, c := range cases {
		p := NewPrincipal("id", c.name)
		assert.Equal(t, p.Initials, c.expected)
	}
}

func TestPresenceEntryFor(t *testing.T) {
	p := NewPrincipal("u1", "Alice Anderson")
	entry := PresenceEntryFor(p)

	assert.Equal(t, entry.ID, "u1")
	assert.Equal(t, entry.DisplayName, "Alice Anderson")
	assert.Equal(t, entry.Initials, "AA")
}
