package ticket

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Item type prefixes printed at the front of every ticket reference.
const (
	PrefixEngine      = "ENG"
	PrefixTyres       = "TYR"
	PrefixTransponder = "TRS"
	PrefixFuel        = "FUEL"
)

// Random component alphabet: 32 uppercase Code 39 characters with the
// lookalikes 0/O and 1/I removed. Six characters give 30 bits of entropy.
const randAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const randLength = 6

// prefixForItem maps entry item tags to ticket prefixes.
var prefixForItem = map[string]string{
	"engine":      PrefixEngine,
	"tyres":       PrefixTyres,
	"transponder": PrefixTransponder,
	"fuel":        PrefixFuel,
}

// Mint produces a globally unique, Code 39-safe ticket reference of the form
// <PREFIX>-<driver8>-<event8>-<ms>-<rand6>. References are persisted with the
// entry and never regenerated; uniqueness is supplied here, not checked
// against the store.
func Mint(itemTag, driverID, eventID string) (string, error) {
	prefix, ok := prefixForItem[itemTag]
	if !ok {
		return "", fmt.Errorf("unknown ticket item tag %q", itemTag)
	}

	random, err := randomComponent(randLength)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%s-%d-%s",
		prefix,
		sanitize(driverID, 8),
		sanitize(eventID, 8),
		time.Now().UnixMilli(),
		random,
	), nil
}

// KnownItem reports whether a ticket can be minted for the given item tag.
func KnownItem(itemTag string) bool {
	_, ok := prefixForItem[itemTag]
	return ok
}

// sanitize uppercases an identifier, strips anything outside A-Z0-9 and
// truncates to max characters so the whole reference stays barcode friendly.
func sanitize(id string, max int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(id) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == max {
			break
		}
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}

func randomComponent(length int) (string, error) {
	// 224 is the largest multiple of 32 below 256; rejection sampling keeps
	// the distribution uniform.
	const maxRandomByte = 224

	out := make([]byte, length)
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
			out[written] = randAlphabet[int(b)%len(randAlphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(out), nil
}
