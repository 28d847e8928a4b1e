package services

import "time"

// Platform commission rate, percent of every rental.
const commissionPercent = 10

// RentalDays is ceil((return - pickup) / 1 day) with a minimum of one
// billable day.
func RentalDays(pickup, ret time.Time) int {
	d := ret.Sub(pickup)
	const day = 24 * time.Hour
	n := int(d / day)
	if d%day > 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Quote holds the derived commercial fields of a booking. They are never
// independently settable: recompute whenever dates or the day rate change.
type Quote struct {
	Days        int
	Price       int64
	Commission  int64
	OwnerPayout int64
}

// QuoteFor prices a rental: days x pricePerDay, 10% commission rounded
// half-up, remainder to the owner. Commission + OwnerPayout == Price.
func QuoteFor(pickup, ret time.Time, pricePerDay int64) Quote {
	days := RentalDays(pickup, ret)
	price := int64(days) * pricePerDay
	commission := SplitCommission(price)
	return Quote{
		Days:        days,
		Price:       price,
		Commission:  commission,
		OwnerPayout: price - commission,
	}
}

// SplitCommission is round-half-up of price x 10%.
func SplitCommission(price int64) int64 {
	return (price*commissionPercent + 50) / 100
}
