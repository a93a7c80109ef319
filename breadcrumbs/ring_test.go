package breadcrumbs

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
)

// TestPropertyCapacityBound verifies that the ring never holds more than its
// capacity.
func TestPropertyCapacityBound(t *testing.T) {
	f := func(items []int, capacity uint8) bool {
		r := NewRing[int](int(capacity))
		for _, item := range items {
			r.Push(item)
			if r.Len() > r.Cap() {
				return false
			}
		}
		return true
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

// TestPropertyFIFOSurvivors verifies that the ring keeps exactly the last
// min(N, C) pushed items, oldest first.
func TestPropertyFIFOSurvivors(t *testing.T) {
	f := func(items []int, capacityOffset uint8) bool {
		capacity := int(capacityOffset) + 1
		r := NewRing[int](capacity)
		for _, item := range items {
			r.Push(item)
		}

		expected := len(items)
		if expected > capacity {
			expected = capacity
		}

		got := r.All()
		if len(got) != expected {
			return false
		}
		start := len(items) - expected
		for i := range got {
			if got[i] != items[start+i] {
				return false
			}
		}
		return true
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

func TestRingEarliestSurvivor(t *testing.T) {
	const capacity = 4
	r := NewRing[int](capacity)
	for i := 1; i <= 10; i++ {
		r.Push(i)
	}

	// the (10 - 4 + 1)-th pushed item is the oldest left
	assert.Equal(t, []int{7, 8, 9, 10}, r.All())
	assert.EqualValues(t, 10, r.Total())
}

func TestRingZeroCapacity(t *testing.T) {
	r := NewRing[string](0)
	r.Push("a")
	r.Push("b")

	assert.Empty(t, r.All())
	assert.Zero(t, r.Len())
	assert.EqualValues(t, 2, r.Total())
}

func TestRingAllIsACopy(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)
	all := r.All()
	all[0] = 99
	assert.Equal(t, []int{1}, r.All())
}
