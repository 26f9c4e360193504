package payfast

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Payment reference namespaces. The reference is the sole correlator between
// a webhook and the pending row it belongs to, so the grammar is load-bearing:
//
//	RACE-<event_id>-<driver_id>-<timestamp_ms>
//	POOL-<class_tag>-<rental_type>-<driver_id>-<timestamp_ms>
//
// All embedded fields are restricted to [A-Za-z0-9_] so splitting on "-" is
// unambiguous.
const (
	RacePrefix = "RACE"
	PoolPrefix = "POOL"
)

// ReferenceKind tags the classified variant of a payment reference.
type ReferenceKind string

const (
	KindRace    ReferenceKind = "race"
	KindPool    ReferenceKind = "pool"
	KindUnknown ReferenceKind = "unknown"
)

// RaceReference is a parsed RACE-… payment reference.
type RaceReference struct {
	EventID     string
	DriverID    string
	TimestampMs int64
}

// PoolReference is a parsed POOL-… payment reference.
type PoolReference struct {
	ClassTag    string
	RentalType  string
	DriverID    string
	TimestampMs int64
}

// ClassifiedReference is the tagged result of classifying a raw reference.
// Exactly one of Race/Pool is non-nil unless Kind is KindUnknown.
type ClassifiedReference struct {
	Kind ReferenceKind
	Race *RaceReference
	Pool *PoolReference
}

// NewRaceReference builds a race payment reference. The millisecond timestamp
// makes repeated initiations for the same driver and event distinct.
func NewRaceReference(eventID, driverID string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%d",
		RacePrefix, sanitizeField(eventID), sanitizeField(driverID), at.UnixMilli())
}

// NewPoolReference builds a pool-engine-rental payment reference.
func NewPoolReference(classTag, rentalType, driverID string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%s-%d",
		PoolPrefix, sanitizeField(classTag), sanitizeField(rentalType), sanitizeField(driverID), at.UnixMilli())
}

// ClassifyReference parses a raw payment reference into its variant. Anything
// that does not match either grammar comes back as KindUnknown; the caller
// logs it and acknowledges the gateway without touching entry state.
func ClassifyReference(ref string) ClassifiedReference {
	parts := strings.Split(ref, "-")

	switch {
	case len(parts) == 4 && parts[0] == RacePrefix:
		ts, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil || !validField(parts[1]) || !validField(parts[2]) {
			break
		}
		return ClassifiedReference{
			Kind: KindRace,
			Race: &RaceReference{EventID: parts[1], DriverID: parts[2], TimestampMs: ts},
		}
	case len(parts) == 5 && parts[0] == PoolPrefix:
		ts, err := strconv.ParseInt(parts[4], 10, 64)
		if err != nil || !validField(parts[1]) || !validField(parts[2]) || !validField(parts[3]) {
			break
		}
		return ClassifiedReference{
			Kind: KindPool,
			Pool: &PoolReference{ClassTag: parts[1], RentalType: parts[2], DriverID: parts[3], TimestampMs: ts},
		}
	}

	return ClassifiedReference{Kind: KindUnknown}
}

// sanitizeField maps an identifier into the [A-Za-z0-9_] reference charset.
func sanitizeField(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func validField(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
