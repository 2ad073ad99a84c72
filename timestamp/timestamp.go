// Package timestamp implements RTMP's 32-bit wrap-around millisecond
// timestamps and the adjacency-based comparator the chunk stream and
// session layers rely on for ordering.
package timestamp

// MaxAdjacentValue is the largest absolute difference between two
// timestamps for which they are still considered directly comparable
// under natural ordering. Differences beyond this are assumed to be
// the result of wraparound and are compared with reversed ordering.
const MaxAdjacentValue uint32 = 2147483647

// Timestamp is a 32-bit unsigned count of milliseconds from an
// arbitrary epoch. All arithmetic wraps modulo 2^32.
type Timestamp struct {
	value uint32
}

// New creates a Timestamp from a raw millisecond value.
func New(value uint32) Timestamp {
	return Timestamp{value: value}
}

// Value returns the raw millisecond count.
func (t Timestamp) Value() uint32 {
	return t.value
}

// Set overwrites the timestamp's raw value.
func (t *Timestamp) Set(value uint32) {
	t.value = value
}

// Add returns t + other, wrapping modulo 2^32.
func (t Timestamp) Add(other Timestamp) Timestamp {
	return Timestamp{value: t.value + other.value}
}

// AddU32 returns t + delta, wrapping modulo 2^32.
func (t Timestamp) AddU32(delta uint32) Timestamp {
	return Timestamp{value: t.value + delta}
}

// Sub returns t - other, wrapping modulo 2^32.
func (t Timestamp) Sub(other Timestamp) Timestamp {
	return Timestamp{value: t.value - other.value}
}

// SubU32 returns t - delta, wrapping modulo 2^32.
func (t Timestamp) SubU32(delta uint32) Timestamp {
	return Timestamp{value: t.value - delta}
}

// Compare returns -1, 0, or 1 comparing t to other using the adjacency
// rule: when the absolute difference is within MaxAdjacentValue,
// natural ordering applies; otherwise the comparison is inverted,
// since the larger raw value is assumed to have been reached by
// wrapping backward past zero.
func (t Timestamp) Compare(other Timestamp) int {
	return compare(t.value, other.value)
}

// Equal reports whether two timestamps hold the same raw value.
func (t Timestamp) Equal(other Timestamp) bool {
	return t.value == other.value
}

func compare(a, b uint32) int {
	var diff uint32
	if a > b {
		diff = a - b
	} else {
		diff = b - a
	}

	if diff <= MaxAdjacentValue {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}

	// Non-adjacent: the comparison inverts, since the apparently
	// larger value is the one that wrapped around.
	switch {
	case a < b:
		return 1
	case a > b:
		return -1
	default:
		return 0
	}
}

// Compare compares two raw millisecond values using the same adjacency
// rule as Timestamp.Compare, without requiring a Timestamp value.
func Compare(a, b uint32) int {
	return compare(a, b)
}
