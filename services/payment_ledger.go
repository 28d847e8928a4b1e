package services

import (
	"context"
	"errors"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"instrument-rental-backend/models"
)

// PaymentLedger maintains one row per (booking, user, type). The unique
// index enforces the key; OpenPayment upserts so a fresh checkout session
// overwrites the previous draft instead of adding a second row.
type PaymentLedger struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewPaymentLedger(db *gorm.DB, logger *zap.Logger) *PaymentLedger {
	return &PaymentLedger{DB: db, Logger: logger}
}

type OpenPaymentInput struct {
	BookingID         uint
	UserID            uint
	Type              string
	Amount            int64 // minor currency units
	DisplayAmount     int64
	Currency          string
	Commission        int64
	OwnerPayout       int64
	ProviderSessionID string
}

func isDuplicateKey(err error) bool {
	var myErr *mysqldrv.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

// OpenPayment creates or refreshes the draft entry for the key. A succeeded
// entry is returned untouched; pending and failed drafts are overwritten
// with the new session and amounts, status reset to pending.
func (l *PaymentLedger) OpenPayment(ctx context.Context, in OpenPaymentInput) (models.Payment, error) {
	var out models.Payment
	txErr := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("booking_id = ? AND user_id = ? AND type = ?", in.BookingID, in.UserID, in.Type).
			Take(&existing).Error

		if err == nil {
			if existing.Status == models.PaymentSucceeded {
				out = existing
				return nil
			}
			existing.Amount = in.Amount
			existing.DisplayAmount = in.DisplayAmount
			existing.Currency = in.Currency
			existing.Commission = in.Commission
			existing.OwnerPayout = in.OwnerPayout
			existing.ProviderSessionID = in.ProviderSessionID
			existing.ProviderIntentID = ""
			existing.Status = models.PaymentPending
			existing.PaidAt = nil
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			out = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		created := models.Payment{
			BookingID:         in.BookingID,
			UserID:            in.UserID,
			Type:              in.Type,
			Amount:            in.Amount,
			DisplayAmount:     in.DisplayAmount,
			Currency:          in.Currency,
			Commission:        in.Commission,
			OwnerPayout:       in.OwnerPayout,
			ProviderSessionID: in.ProviderSessionID,
			Status:            models.PaymentPending,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		out = created
		return nil
	})
	if txErr != nil {
		// Lost a create race on the unique key; the winner's row is now the
		// draft to overwrite.
		if isDuplicateKey(txErr) {
			l.Logger.Warn("ledger upsert collision, retrying as update",
				zap.Uint("booking_id", in.BookingID),
				zap.String("type", in.Type))
			return l.OpenPayment(ctx, in)
		}
		return models.Payment{}, txErr
	}
	return out, nil
}

// MarkSucceeded settles the ledger entry for the key. Repeat calls are
// no-ops once succeeded.
func (l *PaymentLedger) MarkSucceeded(ctx context.Context, bookingID, userID uint, paymentType, intentID string, paidAt time.Time, rawEvent []byte) error {
	return markLedger(l.DB.WithContext(ctx), bookingID, userID, paymentType, func(p models.Payment) (models.Payment, bool) {
		updated, changed := p.MarkSucceeded(intentID, paidAt)
		if changed && len(rawEvent) > 0 {
			updated.RawEvent = datatypes.JSON(rawEvent)
		}
		return updated, changed
	})
}

// MarkFailed records a failed attempt; succeeded entries are never demoted.
func (l *PaymentLedger) MarkFailed(ctx context.Context, bookingID, userID uint, paymentType string) error {
	return markLedger(l.DB.WithContext(ctx), bookingID, userID, paymentType, models.Payment.MarkFailed)
}

func markLedger(db *gorm.DB, bookingID, userID uint, paymentType string, apply func(models.Payment) (models.Payment, bool)) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var p models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("booking_id = ? AND user_id = ? AND type = ?", bookingID, userID, paymentType).
			Take(&p).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}

		updated, changed := apply(p)
		if !changed {
			return nil
		}
		return tx.Save(&updated).Error
	})
}

// ByKey loads the ledger entry for (booking, user, type).
func (l *PaymentLedger) ByKey(ctx context.Context, bookingID, userID uint, paymentType string) (models.Payment, error) {
	var p models.Payment
	err := l.DB.WithContext(ctx).
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

// ListForUser pages through the caller's own payments, newest first.
func (l *PaymentLedger) ListForUser(ctx context.Context, userID uint, page, limit int) ([]models.Payment, int64, error) {
	return l.list(l.DB.WithContext(ctx).Model(&models.Payment{}).Where("user_id = ?", userID), page, limit)
}

// ListAll is the admin view over every ledger entry.
func (l *PaymentLedger) ListAll(ctx context.Context, actor Identity, page, limit int) ([]models.Payment, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	return l.list(l.DB.WithContext(ctx).Model(&models.Payment{}), page, limit)
}

func (l *PaymentLedger) list(qb *gorm.DB, page, limit int) ([]models.Payment, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Payment
	if err := qb.Preload("Booking").Preload("Booking.Instrument").Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
