package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"instrument-rental-backend/models"
)

// BookingService owns the booking record and its state machine. Every
// mutation runs in a transaction with the target row locked so status
// changes, renter edits and payment reconciliation serialize per booking.
type BookingService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewBookingService(db *gorm.DB, logger *zap.Logger) *BookingService {
	return &BookingService{DB: db, Logger: logger}
}

// ListFilter narrows booking listings. Zero values mean "no filter".
type ListFilter struct {
	Page          int
	Limit         int
	Statuses      []string
	PaymentStatus string
	Query         string
	From          *time.Time
	To            *time.Time
	Scope         string // admin only: "all" to see every booking
}

func (f ListFilter) normalize() (page, limit int) {
	page = f.Page
	if page < 1 {
		page = 1
	}
	limit = f.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// Create books an instrument for [pickup, ret]. The overlap check and the
// insert share one transaction (candidate rows locked FOR UPDATE), so two
// concurrent requests for overlapping ranges cannot both succeed.
func (s *BookingService) Create(ctx context.Context, renterID, instrumentID uint, pickup, ret time.Time) (models.Booking, error) {
	var booking models.Booking

	if err := ValidateRange(pickup, ret); err != nil {
		return booking, err
	}

	var inst models.Instrument
	if err := s.DB.WithContext(ctx).First(&inst, instrumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking, ErrInstrumentNotFound
		}
		return booking, fmt.Errorf("failed to load instrument: %w", err)
	}
	if inst.OwnerID == nil || !inst.IsAvailable {
		return booking, ErrInstrumentUnavailable
	}
	if *inst.OwnerID == renterID {
		return booking, ErrOwnInstrument
	}

	q := QuoteFor(pickup, ret, inst.PricePerDay)
	booking = models.Booking{
		ReferenceCode: uuid.NewString(),
		InstrumentID:  instrumentID,
		UserID:        renterID,
		OwnerID:       *inst.OwnerID,
		PickupDate:    pickup,
		ReturnDate:    ret,
		Price:         q.Price,
		Commission:    q.Commission,
		OwnerPayout:   q.OwnerPayout,
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentStatusPending,
	}

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := InstrumentFree(tx, instrumentID, pickup, ret, 0); err != nil {
			return err
		}
		return tx.Create(&booking).Error
	})
	if txErr != nil {
		return models.Booking{}, txErr
	}

	s.Logger.Info("booking created",
		zap.Uint("booking_id", booking.ID),
		zap.Uint("instrument_id", instrumentID),
		zap.Int64("price", booking.Price))
	return booking, nil
}

// ChangeStatus is the owner/admin path through the state machine.
func (s *BookingService) ChangeStatus(ctx context.Context, actor Identity, bookingID uint, next string) (models.Booking, error) {
	var out models.Booking
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if !actor.MayManage(b) {
			return ErrForbidden
		}

		updated, err := b.ChangeStatus(next, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := tx.Save(&updated).Error; err != nil {
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

// CancelByRenter soft-cancels the caller's own booking. Cancelling an
// already cancelled booking succeeds and returns the unchanged record;
// confirmed bookings are rejected.
func (s *BookingService) CancelByRenter(ctx context.Context, actor Identity, bookingID uint) (models.Booking, error) {
	var out models.Booking
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", bookingID, actor.UserID).
			Take(&b).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		updated, changed, err := b.CancelByRenter(time.Now().UTC())
		if err != nil {
			return err
		}
		if changed {
			if err := tx.Save(&updated).Error; err != nil {
				return err
			}
		}
		out = updated
		return nil
	})
	if txErr != nil {
		return models.Booking{}, txErr
	}
	return out, nil
}

// UpdateDates lets the renter move an unpaid pending booking. Price,
// commission and payout are derived values and recomputed here; the overlap
// check re-runs excluding the booking itself.
func (s *BookingService) UpdateDates(ctx context.Context, actor Identity, bookingID uint, pickup, ret time.Time) (models.Booking, error) {
	var out models.Booking

	if err := ValidateRange(pickup, ret); err != nil {
		return out, err
	}

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if b.UserID != actor.UserID && !actor.IsAdmin() {
			return ErrForbidden
		}
		if b.Status != models.BookingPending || b.PaymentStatus != models.PaymentStatusPending {
			return ErrBookingNotEditable
		}

		if err := InstrumentFree(tx, b.InstrumentID, pickup, ret, b.ID); err != nil {
			return err
		}

		var inst models.Instrument
		if err := tx.First(&inst, b.InstrumentID).Error; err != nil {
			return fmt.Errorf("failed to load instrument for re-pricing: %w", err)
		}
		q := QuoteFor(pickup, ret, inst.PricePerDay)

		b.PickupDate = pickup
		b.ReturnDate = ret
		b.Price = q.Price
		b.Commission = q.Commission
		b.OwnerPayout = q.OwnerPayout
		if err := tx.Save(&b).Error; err != nil {
			return err
		}
		out = b
		return nil
	})
	if txErr != nil {
		return models.Booking{}, txErr
	}
	return out, nil
}

// GetByID returns one booking to its renter, its owner, or an admin.
func (s *BookingService) GetByID(ctx context.Context, actor Identity, bookingID uint) (models.Booking, error) {
	var b models.Booking
	err := s.DB.WithContext(ctx).
		Preload("Instrument").
		Preload("User").
		First(&b, bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b, ErrBookingNotFound
		}
		return b, err
	}
	if !actor.MayView(b) {
		return models.Booking{}, ErrForbidden
	}
	return b, nil
}

func applyCommonFilters(qb *gorm.DB, f ListFilter) *gorm.DB {
	if len(f.Statuses) == 1 {
		qb = qb.Where("bookings.status = ?", f.Statuses[0])
	} else if len(f.Statuses) > 1 {
		qb = qb.Where("bookings.status IN ?", f.Statuses)
	}
	if f.PaymentStatus == models.PaymentStatusPaid || f.PaymentStatus == models.PaymentStatusPending {
		qb = qb.Where("bookings.payment_status = ?", f.PaymentStatus)
	}
	// Date filters use the same overlap test as availability.
	if f.From != nil && f.To != nil {
		qb = qb.Where("bookings.pickup_date <= ? AND bookings.return_date >= ?", *f.To, *f.From)
	} else if f.From != nil {
		qb = qb.Where("bookings.return_date >= ?", *f.From)
	} else if f.To != nil {
		qb = qb.Where("bookings.pickup_date <= ?", *f.To)
	}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		qb = qb.Joins("JOIN instruments ON instruments.id = bookings.instrument_id").
			Where("instruments.brand LIKE ? OR instruments.model LIKE ? OR instruments.category LIKE ? OR instruments.location LIKE ? OR bookings.status LIKE ?",
				like, like, like, like, like)
	}
	return qb
}

// ListForRenter pages through the caller's own bookings.
func (s *BookingService) ListForRenter(ctx context.Context, actor Identity, f ListFilter) ([]models.Booking, int64, error) {
	page, limit := f.normalize()

	qb := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Where("bookings.user_id = ?", actor.UserID)
	qb = applyCommonFilters(qb, f)

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Booking
	if err := qb.Preload("Instrument").
		Order("bookings.created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListForOwner pages through bookings on the caller's instruments. Admins
// may pass Scope "all" to see every booking.
func (s *BookingService) ListForOwner(ctx context.Context, actor Identity, f ListFilter) ([]models.Booking, int64, string, error) {
	page, limit := f.normalize()

	scope := "owner"
	qb := s.DB.WithContext(ctx).Model(&models.Booking{})
	if actor.IsAdmin() && f.Scope != "mine" {
		scope = "all"
	} else {
		qb = qb.Where("bookings.owner_id = ?", actor.UserID)
	}
	qb = applyCommonFilters(qb, f)

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, scope, err
	}

	var out []models.Booking
	if err := qb.Preload("Instrument").Preload("User").
		Order("bookings.created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&out).Error; err != nil {
		return nil, 0, scope, err
	}
	return out, total, scope, nil
}

// DashboardData aggregates an owner's listings and bookings.
type DashboardData struct {
	TotalInstruments  int64            `json:"totalInstruments"`
	TotalBookings     int64            `json:"totalBookings"`
	PendingBookings   int64            `json:"pendingBookings"`
	CompletedBookings int64            `json:"completedBookings"`
	RecentBookings    []models.Booking `json:"recentBookings"`
	Revenue           int64            `json:"revenue"`
}

func (s *BookingService) Dashboard(ctx context.Context, actor Identity) (DashboardData, error) {
	var d DashboardData
	db := s.DB.WithContext(ctx)

	if err := db.Model(&models.Instrument{}).Where("owner_id = ?", actor.UserID).Count(&d.TotalInstruments).Error; err != nil {
		return d, err
	}
	if err := db.Model(&models.Booking{}).Where("owner_id = ?", actor.UserID).Count(&d.TotalBookings).Error; err != nil {
		return d, err
	}
	if err := db.Model(&models.Booking{}).Where("owner_id = ? AND status = ?", actor.UserID, models.BookingPending).Count(&d.PendingBookings).Error; err != nil {
		return d, err
	}
	if err := db.Model(&models.Booking{}).Where("owner_id = ? AND status = ?", actor.UserID, models.BookingConfirmed).Count(&d.CompletedBookings).Error; err != nil {
		return d, err
	}

	var revenue *int64
	if err := db.Model(&models.Booking{}).
		Select("SUM(owner_payout)").
		Where("owner_id = ? AND status = ?", actor.UserID, models.BookingConfirmed).
		Scan(&revenue).Error; err != nil {
		return d, err
	}
	if revenue != nil {
		d.Revenue = *revenue
	}

	if err := db.Preload("Instrument").
		Where("owner_id = ?", actor.UserID).
		Order("created_at DESC").Limit(3).
		Find(&d.RecentBookings).Error; err != nil {
		return d, err
	}
	return d, nil
}
