package storage

import "time"

// Backends store instants as Unix milliseconds with 0 meaning unset.

// ToMillis encodes t, mapping the zero time to 0
func ToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromMillis decodes a stored instant in UTC
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
