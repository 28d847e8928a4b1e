package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"instrument-rental-backend/services"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRentalDays(t *testing.T) {
	pickup := day(2026, 3, 1)

	assert.Equal(t, 3, services.RentalDays(pickup, day(2026, 3, 4)))
	assert.Equal(t, 1, services.RentalDays(pickup, day(2026, 3, 2)))

	// partial days round up
	assert.Equal(t, 2, services.RentalDays(pickup, pickup.Add(25*time.Hour)))

	// same instant or inverted still bills one day
	assert.Equal(t, 1, services.RentalDays(pickup, pickup))
	assert.Equal(t, 1, services.RentalDays(pickup, pickup.Add(-48*time.Hour)))
}

func TestSplitCommission_RoundsHalfUp(t *testing.T) {
	// 9.5 rounds to 10, 9.4 to 9, 0.5 to 1, 0.4 to 0
	assert.Equal(t, int64(100), services.SplitCommission(1000))
	assert.Equal(t, int64(10), services.SplitCommission(95))
	assert.Equal(t, int64(9), services.SplitCommission(94))
	assert.Equal(t, int64(1), services.SplitCommission(5))
	assert.Equal(t, int64(0), services.SplitCommission(4))
	assert.Equal(t, int64(0), services.SplitCommission(0))
}

func TestQuoteFor(t *testing.T) {
	q := services.QuoteFor(day(2026, 3, 1), day(2026, 3, 4), 500)

	assert.Equal(t, 3, q.Days)
	assert.Equal(t, int64(1500), q.Price)
	assert.Equal(t, int64(150), q.Commission)
	assert.Equal(t, int64(1350), q.OwnerPayout)
	assert.Equal(t, q.Price, q.Commission+q.OwnerPayout)
}

func TestQuoteFor_SplitAlwaysAddsUp(t *testing.T) {
	pickup := day(2026, 3, 1)
	for days := 1; days <= 9; days++ {
		ret := pickup.AddDate(0, 0, days)
		for _, rate := range []int64{1, 33, 99, 250, 777} {
			q := services.QuoteFor(pickup, ret, rate)
			assert.Equal(t, q.Price, q.Commission+q.OwnerPayout,
				"days=%d rate=%d", days, rate)
		}
	}
}
