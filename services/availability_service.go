package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"instrument-rental-backend/models"
)

// AvailabilityService answers "which instruments can be booked for this
// range". The final word is InstrumentFree, re-run under a row lock inside
// the booking-create transaction; Search is the non-authoritative listing.
type AvailabilityService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewAvailabilityService(db *gorm.DB, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{DB: db, Logger: logger}
}

// ValidateRange rejects inverted or equal date pairs; a zero-length range is
// a validation error, never a silent zero-day rental.
func ValidateRange(pickup, ret time.Time) error {
	if pickup.IsZero() || ret.IsZero() || !ret.After(pickup) {
		return ErrInvalidDateRange
	}
	return nil
}

// RangesConflict is the closed-interval overlap test: existing.pickup <= ret
// AND existing.return >= pickup. Adjacent same-day handover conflicts.
func RangesConflict(existingPickup, existingReturn, pickup, ret time.Time) bool {
	return !existingPickup.After(ret) && !existingReturn.Before(pickup)
}

// Search lists available instruments whose id is not blocked by any
// non-cancelled booking overlapping [pickup, ret]. With both dates zero it
// skips the overlap filter and lists the catalogue. Location and q narrow
// the result (free-text over brand/model/category).
func (s *AvailabilityService) Search(ctx context.Context, location, q string, pickup, ret time.Time) ([]models.Instrument, error) {
	qb := s.DB.WithContext(ctx).Model(&models.Instrument{}).
		Where("is_available = ?", true).
		Where("owner_id IS NOT NULL")

	if !pickup.IsZero() || !ret.IsZero() {
		if err := ValidateRange(pickup, ret); err != nil {
			return nil, err
		}
		blocked := s.DB.Model(&models.Booking{}).
			Select("instrument_id").
			Where("status <> ?", models.BookingCancelled).
			Where("pickup_date <= ? AND return_date >= ?", ret, pickup)
		qb = qb.Where("id NOT IN (?)", blocked)
	}

	if location != "" {
		qb = qb.Where("location LIKE ?", "%"+location+"%")
	}
	if q != "" {
		like := "%" + q + "%"
		qb = qb.Where("brand LIKE ? OR model LIKE ? OR category LIKE ?", like, like, like)
	}

	var out []models.Instrument
	if err := qb.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// InstrumentFree is the authoritative overlap check. It must run inside the
// same transaction that inserts or moves the booking: candidate rows are
// locked FOR UPDATE so two concurrent requests for overlapping ranges
// serialize instead of both passing.
func InstrumentFree(tx *gorm.DB, instrumentID uint, pickup, ret time.Time, excludeBookingID uint) error {
	qb := tx.Model(&models.Booking{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("instrument_id = ? AND status <> ?", instrumentID, models.BookingCancelled).
		Where("pickup_date <= ? AND return_date >= ?", ret, pickup)
	if excludeBookingID != 0 {
		qb = qb.Where("id <> ?", excludeBookingID)
	}

	var existing models.Booking
	err := qb.Take(&existing).Error
	if err == nil {
		return ErrDatesUnavailable
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
