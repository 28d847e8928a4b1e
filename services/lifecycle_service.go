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

// LifecycleService records the physical handover: pickup and return. Both
// marks are one-way and reject repeats; instrument availability is flipped
// here, not by the status machine.
type LifecycleService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewLifecycleService(db *gorm.DB, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{DB: db, Logger: logger}
}

func (s *LifecycleService) lockBooking(tx *gorm.DB, actor Identity, bookingID uint) (models.Booking, error) {
	var b models.Booking
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b, ErrBookingNotFound
		}
		return b, err
	}
	if !actor.MayManage(b) {
		return b, ErrForbidden
	}
	return b, nil
}

// MarkPickup requires a confirmed, paid booking with no pickup recorded yet.
// The instrument goes unavailable while it is out.
func (s *LifecycleService) MarkPickup(ctx context.Context, actor Identity, bookingID uint) (models.Booking, error) {
	var out models.Booking
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.lockBooking(tx, actor, bookingID)
		if err != nil {
			return err
		}

		updated, err := b.MarkPickup(time.Now().UTC())
		if err != nil {
			return err
		}
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Instrument{}).
			Where("id = ? AND is_available = ?", updated.InstrumentID, true).
			Update("is_available", false).Error; err != nil {
			return err
		}
		out = updated
		return nil
	})
	if txErr != nil {
		return models.Booking{}, txErr
	}
	return out, nil
}

// MarkReturn records the return and makes the instrument bookable again.
// The late-fee assessment is best-effort: if the instrument's day rate
// cannot be loaded the return still lands and the failure is only logged.
func (s *LifecycleService) MarkReturn(ctx context.Context, actor Identity, bookingID uint) (models.Booking, error) {
	var out models.Booking
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.lockBooking(tx, actor, bookingID)
		if err != nil {
			return err
		}

		updated, err := b.MarkReturn(time.Now().UTC())
		if err != nil {
			return err
		}

		var inst models.Instrument
		if err := tx.First(&inst, updated.InstrumentID).Error; err != nil {
			s.Logger.Warn("late fee not assessed; instrument lookup failed",
				zap.Uint("booking_id", updated.ID),
				zap.Uint("instrument_id", updated.InstrumentID),
				zap.Error(err))
		} else {
			updated = updated.AssessLateReturn(inst.PricePerDay)
			if updated.LateFee > 0 {
				s.Logger.Info("late return assessed",
					zap.Uint("booking_id", updated.ID),
					zap.Int("late_days", updated.LateDays),
					zap.Int64("late_fee", updated.LateFee))
			}
		}

		if err := tx.Save(&updated).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Instrument{}).
			Where("id = ? AND is_available = ?", updated.InstrumentID, false).
			Update("is_available", true).Error; err != nil {
			return err
		}
		out = updated
		return nil
	})
	if txErr != nil {
		return models.Booking{}, txErr
	}
	return out, nil
}
