package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func TestIntervalOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", Interval{at(9, 0), at(10, 0)}, Interval{at(11, 0), at(12, 0)}, false},
		{"partial overlap", Interval{at(9, 0), at(10, 30)}, Interval{at(10, 0), at(11, 0)}, true},
		{"containment", Interval{at(9, 0), at(12, 0)}, Interval{at(10, 0), at(11, 0)}, true},
		{"identical", Interval{at(9, 0), at(10, 0)}, Interval{at(9, 0), at(10, 0)}, true},
		// Half-open semantics: a booking ending at 10:00 does not touch
		// one starting at 10:00.
		{"back to back", Interval{at(9, 0), at(10, 0)}, Interval{at(10, 0), at(11, 0)}, false},
		{"back to back reversed", Interval{at(10, 0), at(11, 0)}, Interval{at(9, 0), at(10, 0)}, false},
		{"zero length inside", Interval{at(10, 30), at(10, 30)}, Interval{at(10, 0), at(11, 0)}, false},
		{"zero length at boundary", Interval{at(10, 0), at(10, 0)}, Interval{at(10, 0), at(11, 0)}, false},
		{"both zero length", Interval{at(10, 0), at(10, 0)}, Interval{at(10, 0), at(10, 0)}, false},
		{"inverted interval", Interval{at(11, 0), at(10, 0)}, Interval{at(9, 0), at(12, 0)}, false},
		{"one minute overlap", Interval{at(9, 0), at(10, 1)}, Interval{at(10, 0), at(11, 0)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.want, tc.b.Overlaps(tc.a), "overlap must be symmetric")
		})
	}
}

func TestIntervalBuffered(t *testing.T) {
	slot := Interval{at(10, 0), at(11, 0)}
	shadow := slot.Buffered(15 * time.Minute)
	assert.Equal(t, at(9, 45), shadow.Start)
	assert.Equal(t, at(11, 15), shadow.End)
	assert.Equal(t, slot, slot.Buffered(0))
}

func TestAnyOverlap(t *testing.T) {
	existing := []Interval{
		{at(9, 0), at(10, 0)},
		{at(14, 0), at(15, 0)},
	}
	assert.True(t, AnyOverlap(Interval{at(9, 30), at(10, 30)}, existing))
	assert.False(t, AnyOverlap(Interval{at(10, 0), at(11, 0)}, existing))
	assert.False(t, AnyOverlap(Interval{at(10, 0), at(11, 0)}, nil))
}
