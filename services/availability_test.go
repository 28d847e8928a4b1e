package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"instrument-rental-backend/services"
)

func TestValidateRange(t *testing.T) {
	pickup := day(2026, 3, 1)

	assert.Nil(t, services.ValidateRange(pickup, day(2026, 3, 2)))
	assert.ErrorIs(t, services.ValidateRange(pickup, pickup), services.ErrInvalidDateRange)
	assert.ErrorIs(t, services.ValidateRange(day(2026, 3, 2), pickup), services.ErrInvalidDateRange)
	assert.ErrorIs(t, services.ValidateRange(time.Time{}, pickup), services.ErrInvalidDateRange)
}

func TestRangesConflict(t *testing.T) {
	existingPickup := day(2026, 3, 10)
	existingReturn := day(2026, 3, 15)

	cases := []struct {
		name     string
		pickup   time.Time
		ret      time.Time
		conflict bool
	}{
		{"fully inside", day(2026, 3, 11), day(2026, 3, 14), true},
		{"overlaps start", day(2026, 3, 8), day(2026, 3, 11), true},
		{"overlaps end", day(2026, 3, 14), day(2026, 3, 18), true},
		{"covers whole range", day(2026, 3, 8), day(2026, 3, 18), true},
		{"identical", day(2026, 3, 10), day(2026, 3, 15), true},
		// same-day handover is a conflict: intervals are closed
		{"starts on existing return day", day(2026, 3, 15), day(2026, 3, 20), true},
		{"ends on existing pickup day", day(2026, 3, 5), day(2026, 3, 10), true},
		{"before", day(2026, 3, 1), day(2026, 3, 9), false},
		{"after", day(2026, 3, 16), day(2026, 3, 20), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := services.RangesConflict(existingPickup, existingReturn, tc.pickup, tc.ret)
			assert.Equal(t, tc.conflict, got)
		})
	}
}
