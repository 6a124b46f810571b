package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugifyUsername(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases and trims", "  Jane  ", "jane"},
		{"replaces separators with dash", "Jane Doe", "jane-doe"},
		{"collapses repeated dashes", "jane...doe", "jane-doe"},
		{"strips leading and trailing dashes", "--jane--", "jane"},
		{"mixed separators", "Mixed_Case.Name", "mixed-case-name"},
		{"no valid characters", "!!!", ""},
		{"truncates to limit", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SlugifyUsername(tt.input))
		})
	}
}

func TestDefaultDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{"dotted local part", "jane.doe@example.com", "Jane Doe"},
		{"single token", "bob@example.com", "Bob"},
		{"underscores and dashes", "mary_jane-watson@example.com", "Mary Jane Watson"},
		{"empty email", "", "New User"},
		{"only separators", "...@example.com", "New User"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultDisplayName(tt.email))
		})
	}
}

func TestDefaultUsername(t *testing.T) {
	assert.Equal(t, "jane-doe", DefaultUsername("Jane.Doe@example.com"))
	assert.Equal(t, "user", DefaultUsername(""))
	assert.Equal(t, "user", DefaultUsername("!!!@example.com"))
}

func TestFormatHandle(t *testing.T) {
	assert.Equal(t, "@jane", FormatHandle("jane"))
	assert.Equal(t, "@jane", FormatHandle("@jane"))
}

func TestPickAccentFromSeed(t *testing.T) {
	t.Run("deterministic for same seed", func(t *testing.T) {
		first := PickAccentFromSeed("jane@example.com")
		second := PickAccentFromSeed("jane@example.com")
		assert.Equal(t, first, second)
	})

	t.Run("result is from palette", func(t *testing.T) {
		assert.Contains(t, accentPalette, PickAccentFromSeed("anything"))
	})

	t.Run("empty seed falls back to last entry", func(t *testing.T) {
		assert.Equal(t, accentPalette[len(accentPalette)-1], PickAccentFromSeed(""))
	})
}
