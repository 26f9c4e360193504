package ticket

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintShape(t *testing.T) {
	ref, err := Mint("engine", "DRVab12cd34ef", "EVTzz99yy88xx")
	require.NoError(t, err)

	parts := strings.Split(ref, "-")
	require.Len(t, parts, 5)
	assert.Equal(t, "ENG", parts[0])
	assert.Equal(t, "DRVAB12C", parts[1]) // uppercased, truncated to 8
	assert.Equal(t, "EVTZZ99Y", parts[2])
	assert.Len(t, parts[4], 6)
}

func TestMintPrefixPerItem(t *testing.T) {
	want := map[string]string{
		"engine":      "ENG",
		"tyres":       "TYR",
		"transponder": "TRS",
		"fuel":        "FUEL",
	}
	for tag, prefix := range want {
		ref, err := Mint(tag, "DRV1", "EVT1")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(ref, prefix+"-"), ref)
	}
}

func TestMintUnknownItem(t *testing.T) {
	_, err := Mint("gearbox", "DRV1", "EVT1")
	assert.Error(t, err)
	assert.False(t, KnownItem("gearbox"))
	assert.True(t, KnownItem("tyres"))
}

func TestMintRandomComponentIsCode39Safe(t *testing.T) {
	for i := 0; i < 50; i++ {
		ref, err := Mint("fuel", "DRV1", "EVT1")
		require.NoError(t, err)

		random := ref[strings.LastIndex(ref, "-")+1:]
		for _, r := range random {
			assert.Contains(t, randAlphabet, string(r))
			// Lookalike characters are excluded from the alphabet.
			assert.NotContains(t, "01IO", string(r))
		}
	}
}

func TestMintUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ref, err := Mint("engine", "DRV1", "EVT1")
		require.NoError(t, err)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestSanitizeFallback(t *testing.T) {
	assert.Equal(t, "X", sanitize("!!!", 8))
	assert.Equal(t, "AB", sanitize("a-b", 8))
}
