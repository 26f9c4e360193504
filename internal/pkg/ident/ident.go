package ident

import (
	"crypto/rand"
	"fmt"
)

// Alphabet for public entity IDs (62 characters: 0-9, a-z, A-Z). IDs carry no
// hyphens or underscores so they embed unambiguously in payment references,
// which use "-" as the field separator.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Prefixes for the public IDs of each entity kind.
const (
	DriverPrefix = "DRV"
	EventPrefix  = "EVT"
	EntryPrefix  = "ENT"
)

const slugLength = 10

// GenerateSecureSlug creates a cryptographically secure random Base62 slug.
func GenerateSecureSlug(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid slug length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 248 is the largest multiple of 62 below 256.
	const maxRandomByte = 248

	slug := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			slug[written] = alphabet[int(b)%len(alphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(slug), nil
}

// NewDriverID returns a fresh opaque driver identifier.
func NewDriverID() (string, error) { return newID(DriverPrefix) }

// NewEventID returns a fresh opaque event identifier.
func NewEventID() (string, error) { return newID(EventPrefix) }

// NewEntryID returns a fresh opaque race-entry identifier.
func NewEntryID() (string, error) { return newID(EntryPrefix) }

func newID(prefix string) (string, error) {
	slug, err := GenerateSecureSlug(slugLength)
	if err != nil {
		return "", err
	}
	return prefix + slug, nil
}
