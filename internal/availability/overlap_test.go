package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverlapsSymmetry(t *testing.T) {
	cases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     string
		want                           bool
	}{
		{"partial overlap", "2026-01-12", "2026-01-20", "2026-01-10", "2026-01-15", true},
		{"full containment", "2026-01-01", "2026-01-31", "2026-01-10", "2026-01-15", true},
		{"adjacent non-overlapping", "2026-01-16", "2026-01-20", "2026-01-10", "2026-01-15", false},
		{"touching endpoints", "2026-01-15", "2026-01-20", "2026-01-10", "2026-01-15", true},
		{"disjoint", "2026-02-01", "2026-02-05", "2026-01-10", "2026-01-15", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := overlaps(day(tc.aStart), day(tc.aEnd), day(tc.bStart), day(tc.bEnd))
			mirrored := overlaps(day(tc.bStart), day(tc.bEnd), day(tc.aStart), day(tc.aEnd))

			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, mirrored, "overlap must be symmetric")
		})
	}
}

func TestOverlapsSelf(t *testing.T) {
	assert.True(t, overlaps(day("2026-01-10"), day("2026-01-15"), day("2026-01-10"), day("2026-01-15")))
	// A single-day interval still overlaps itself.
	assert.True(t, overlaps(day("2026-01-10"), day("2026-01-10"), day("2026-01-10"), day("2026-01-10")))
}
