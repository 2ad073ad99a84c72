package timestamp

import "testing"

func TestAddWrapsAroundMax(t *testing.T) {
	a := New(4294967295)
	b := New(1)

	result := a.Add(b)
	if result.Value() != 0 {
		t.Fatalf("expected wraparound to 0, got %d", result.Value())
	}
}

func TestSubWrapsAroundZero(t *testing.T) {
	a := New(0)
	b := New(1)

	result := a.Sub(b)
	if result.Value() != 4294967295 {
		t.Fatalf("expected wraparound to max u32, got %d", result.Value())
	}
}

func TestAddU32AndSubU32(t *testing.T) {
	a := New(100)

	if got := a.AddU32(50).Value(); got != 150 {
		t.Fatalf("expected 150, got %d", got)
	}

	if got := a.SubU32(50).Value(); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
}

func TestCompareNaturalOrderingWhenAdjacent(t *testing.T) {
	cases := []struct {
		a, b     uint32
		expected int
	}{
		{10, 20, -1},
		{20, 10, 1},
		{15, 15, 0},
		{0, MaxAdjacentValue, -1},
	}

	for _, c := range cases {
		if got := Compare(c.a, c.b); got != c.expected {
			t.Errorf("Compare(%d, %d) = %d, want %d", c.a, c.b, got, c.expected)
		}
	}
}

func TestCompareInvertedOrderingWhenNotAdjacent(t *testing.T) {
	// difference here is MaxAdjacentValue+1, so ordering inverts:
	// despite 0 < MaxAdjacentValue+1 numerically, 0 is treated as "larger"
	// because it's reached by wrapping forward past the larger value.
	a := uint32(0)
	b := MaxAdjacentValue + 1

	if got := Compare(a, b); got != 1 {
		t.Fatalf("Compare(%d, %d) = %d, want 1 (inverted)", a, b, got)
	}

	if got := Compare(b, a); got != -1 {
		t.Fatalf("Compare(%d, %d) = %d, want -1 (inverted)", b, a, got)
	}
}

func TestTimestampCompareMatchesRawCompare(t *testing.T) {
	a := New(4000000000)
	b := New(100)

	if a.Compare(b) != Compare(4000000000, 100) {
		t.Fatalf("Timestamp.Compare diverged from package-level Compare")
	}
}

func TestEqual(t *testing.T) {
	a := New(42)
	b := New(42)
	c := New(43)

	if !a.Equal(b) {
		t.Fatal("expected equal timestamps to be Equal")
	}
	if a.Equal(c) {
		t.Fatal("expected unequal timestamps to not be Equal")
	}
}
