package ident

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureSlug(t *testing.T) {
	slug, err := GenerateSecureSlug(10)
	require.NoError(t, err)
	assert.Len(t, slug, 10)

	for _, r := range slug {
		assert.Contains(t, alphabet, string(r))
	}
}

func TestGenerateSecureSlugInvalidLength(t *testing.T) {
	_, err := GenerateSecureSlug(0)
	assert.Error(t, err)
	_, err = GenerateSecureSlug(-3)
	assert.Error(t, err)
}

func TestNewIDsCarryPrefixAndNoSeparators(t *testing.T) {
	cases := []struct {
		gen    func() (string, error)
		prefix string
	}{
		{NewDriverID, "DRV"},
		{NewEventID, "EVT"},
		{NewEntryID, "ENT"},
	}
	for _, tc := range cases {
		id, err := tc.gen()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, tc.prefix), id)
		assert.Len(t, id, len(tc.prefix)+10)
		// IDs embed in hyphen-separated payment references.
		assert.NotContains(t, id, "-")
		assert.NotContains(t, id, "_")
	}
}

func TestSlugUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		slug, err := GenerateSecureSlug(10)
		require.NoError(t, err)
		assert.False(t, seen[slug], "duplicate slug %s", slug)
		seen[slug] = true
	}
}
