package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"instrument-rental-backend/models"
)

// ConfirmationInput is everything needed to settle one payment against a
// booking, regardless of whether it arrived by webhook or manual sync.
type ConfirmationInput struct {
	BookingID   uint
	PaymentType string
	EventID     string
	IntentID    string
	PaidAt      time.Time
	RawEvent    []byte
}

// ReconcileStore is the persistence surface of the reconciliation engine,
// narrow so tests can substitute a mock.
type ReconcileStore interface {
	BookingByID(ctx context.Context, id uint) (models.Booking, error)
	PaymentByKey(ctx context.Context, bookingID, userID uint, paymentType string) (models.Payment, error)
	ApplyPaymentConfirmation(ctx context.Context, in ConfirmationInput) (models.Booking, bool, error)
}

// GormReconcileStore runs the paid transition as a row-locked transaction:
// the idempotency check on last_webhook_event_id and the write are one
// atomic compare-and-set, so racing webhook deliveries and manual syncs
// cannot double-apply.
type GormReconcileStore struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewGormReconcileStore(db *gorm.DB, logger *zap.Logger) *GormReconcileStore {
	return &GormReconcileStore{DB: db, Logger: logger}
}

func (s *GormReconcileStore) BookingByID(ctx context.Context, id uint) (models.Booking, error) {
	var b models.Booking
	if err := s.DB.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b, ErrBookingNotFound
		}
		return b, err
	}
	return b, nil
}

func (s *GormReconcileStore) PaymentByKey(ctx context.Context, bookingID, userID uint, paymentType string) (models.Payment, error) {
	var p models.Payment
	err := s.DB.WithContext(ctx).
		Where("booking_id = ? AND user_id = ? AND type = ?", bookingID, userID, paymentType).
		Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, ErrPaymentNotFound
		}
		return p, err
	}
	return p, nil
}

func (s *GormReconcileStore) ApplyPaymentConfirmation(ctx context.Context, in ConfirmationInput) (models.Booking, bool, error) {
	var out models.Booking
	applied := false

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, in.BookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		updated, changed, err := b.ApplyPaymentConfirmation(in.PaymentType, in.EventID, in.IntentID, in.PaidAt)
		if err != nil {
			return err
		}
		if !changed {
			out = b
			return nil
		}
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}

		// Settle the matching ledger entry in the same transaction. The
		// draft should exist from checkout; a missing row is logged, not
		// fatal, because the booking update is the load-bearing effect.
		var p models.Payment
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("booking_id = ? AND user_id = ? AND type = ?", updated.ID, updated.UserID, in.PaymentType).
			Take(&p).Error
		switch {
		case err == nil:
			settled, pChanged := p.MarkSucceeded(in.IntentID, in.PaidAt)
			if pChanged {
				if len(in.RawEvent) > 0 {
					settled.RawEvent = datatypes.JSON(in.RawEvent)
				}
				if err := tx.Save(&settled).Error; err != nil {
					return err
				}
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			s.Logger.Warn("no ledger entry for confirmed payment",
				zap.Uint("booking_id", updated.ID),
				zap.String("type", in.PaymentType),
				zap.String("event_id", in.EventID))
		default:
			return err
		}

		out = updated
		applied = true
		return nil
	})
	if txErr != nil {
		return models.Booking{}, false, txErr
	}
	return out, applied, nil
}
