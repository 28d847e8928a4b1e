package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"instrument-rental-backend/models"
)

// CheckoutService starts provider checkout sessions and opens the matching
// ledger entry. Settlement happens later, through the reconciliation engine.
type CheckoutService struct {
	DB       *gorm.DB
	Ledger   *PaymentLedger
	Provider PaymentProvider
	Logger   *zap.Logger
	Currency string
}

func NewCheckoutService(db *gorm.DB, ledger *PaymentLedger, provider PaymentProvider, logger *zap.Logger, currency string) *CheckoutService {
	return &CheckoutService{DB: db, Ledger: ledger, Provider: provider, Logger: logger, Currency: currency}
}

type CheckoutResult struct {
	SessionID string         `json:"sessionId"`
	URL       string         `json:"url"`
	Payment   models.Payment `json:"payment"`
}

// Start opens a checkout session for the booking's rental price or, after
// return, its outstanding late fee. Only the renter (or an admin) can pay.
func (s *CheckoutService) Start(ctx context.Context, actor Identity, bookingID uint, paymentType string) (CheckoutResult, error) {
	if s.Provider == nil {
		return CheckoutResult{}, ErrProviderNotConfigured
	}
	if paymentType != models.PaymentTypeRental && paymentType != models.PaymentTypeLateFee {
		return CheckoutResult{}, models.ErrUnknownPaymentType
	}

	var booking models.Booking
	if err := s.DB.WithContext(ctx).Preload("Instrument").First(&booking, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CheckoutResult{}, ErrBookingNotFound
		}
		return CheckoutResult{}, err
	}
	if !actor.IsAdmin() && booking.UserID != actor.UserID {
		return CheckoutResult{}, ErrForbidden
	}

	var amount int64
	var commission, ownerPayout int64
	var name, description string

	switch paymentType {
	case models.PaymentTypeRental:
		if booking.PaymentStatus == models.PaymentStatusPaid {
			return CheckoutResult{}, ErrAlreadyPaid
		}
		if booking.Status == models.BookingCancelled {
			return CheckoutResult{}, ErrBookingNotEditable
		}
		amount = booking.Price
		commission = booking.Commission
		ownerPayout = booking.OwnerPayout
		name = fmt.Sprintf("%s %s", booking.Instrument.Brand, booking.Instrument.Model)
		description = fmt.Sprintf("Rental %s to %s",
			booking.PickupDate.Format("2006-01-02"), booking.ReturnDate.Format("2006-01-02"))

	case models.PaymentTypeLateFee:
		if booking.ReturnConfirmedAt == nil || booking.LateFee == 0 {
			return CheckoutResult{}, ErrNothingToPay
		}
		if booking.LateFeePaid {
			return CheckoutResult{}, ErrAlreadyPaid
		}
		amount = booking.LateFee
		ownerPayout = booking.LateFee
		name = fmt.Sprintf("%s %s late return fee", booking.Instrument.Brand, booking.Instrument.Model)
		description = fmt.Sprintf("%d day(s) late", booking.LateDays)
	}

	sess, err := s.Provider.CreateCheckoutSession(ctx, CheckoutInput{
		BookingID:   booking.ID,
		PaymentType: paymentType,
		Name:        name,
		Description: description,
		Amount:      amount * 100,
		Currency:    s.Currency,
	})
	if err != nil {
		s.Logger.Error("checkout session creation failed",
			zap.Uint("booking_id", booking.ID),
			zap.String("payment_type", paymentType),
			zap.Error(err))
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	payment, err := s.Ledger.OpenPayment(ctx, OpenPaymentInput{
		BookingID:         booking.ID,
		UserID:            booking.UserID,
		Type:              paymentType,
		Amount:            amount * 100,
		DisplayAmount:     amount,
		Currency:          s.Currency,
		Commission:        commission,
		OwnerPayout:       ownerPayout,
		ProviderSessionID: sess.ID,
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	if paymentType == models.PaymentTypeRental {
		if err := s.DB.WithContext(ctx).Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Update("provider_session_id", sess.ID).Error; err != nil {
			return CheckoutResult{}, err
		}
	}

	s.Logger.Info("checkout session opened",
		zap.Uint("booking_id", booking.ID),
		zap.String("payment_type", paymentType),
		zap.String("session_id", sess.ID),
		zap.Int64("amount", amount))

	return CheckoutResult{SessionID: sess.ID, URL: sess.URL, Payment: payment}, nil
}
