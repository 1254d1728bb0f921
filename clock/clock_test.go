package clock

import (
	"testing"
	"time"
)

func TestIncrementIsImmutable(t *testing.T) {
	base := New()
	next := base.Increment(3, 1)

	if got := base.Get(3); got != 0 {
		t.Fatalf("base clock mutated: Get(3) = %d, want 0", got)
	}
	if got := next.Get(3); got != 1 {
		t.Fatalf("next.Get(3) = %d, want 1", got)
	}
}

func TestIncrementMonotone(t *testing.T) {
	c := New()
	for i := int64(1); i <= 5; i++ {
		c = c.Increment(7, 1)
		if got := c.Get(7); got != i {
			t.Fatalf("after %d increments, Get(7) = %d, want %d", i, got, i)
		}
	}
}

func TestStrictlyGreaterThan(t *testing.T) {
	cases := []struct {
		name     string
		a, b     map[int]int64
		expected bool
	}{
		{"equal clocks", map[int]int64{1: 2}, map[int]int64{1: 2}, false},
		{"strict increase on known slot", map[int]int64{1: 3}, map[int]int64{1: 2}, true},
		{"missing slot in a is a regression", map[int]int64{1: 2}, map[int]int64{1: 2, 2: 1}, false},
		{"new slot added", map[int]int64{1: 2, 2: 1}, map[int]int64{1: 2}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := NewFrom(tc.a, time.Now())
			b := NewFrom(tc.b, time.Now())
			if got := a.StrictlyGreaterThan(b); got != tc.expected {
				t.Fatalf("StrictlyGreaterThan = %v, want %v", got, tc.expected)
			}
		})
	}
}

func TestVersionedUpdateProtocolShape(t *testing.T) {
	// Mirrors the read-modify-write sequence: GET, extract clock,
	// increment target node's slot, PUT.
	current := NewVersioned([]byte("old-xml"), NewFrom(map[int]int64{3: 5}, time.Now()))

	newClock := current.Version.Increment(3, 1)
	updated := NewVersioned([]byte("new-xml"), newClock)

	if !updated.Version.StrictlyGreaterThan(current.Version) {
		t.Fatal("updated clock must strictly dominate the clock it was derived from")
	}
	if got := updated.Version.Get(3); got != 6 {
		t.Fatalf("Get(3) = %d, want 6", got)
	}
}
