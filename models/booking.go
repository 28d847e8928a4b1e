package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Transition guard errors. Controllers map these to HTTP statuses.
var (
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrConfirmRequiresPaid   = errors.New("cannot_confirm_unpaid")
	ErrRenterCancelConfirmed = errors.New("cannot_cancel_confirmed")
	ErrPickupNotReady        = errors.New("pickup_not_ready")
	ErrPickupAlreadyMarked   = errors.New("pickup_already_marked")
	ErrReturnBeforePickup    = errors.New("pickup_not_marked")
	ErrReturnAlreadyMarked   = errors.New("return_already_marked")
	ErrUnknownPaymentType    = errors.New("unknown_payment_type")
)

type Booking struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ReferenceCode string `gorm:"column:reference_code;size:64;uniqueIndex" json:"referenceCode,omitempty"`

	InstrumentID uint `gorm:"column:instrument_id;index" json:"instrumentId"`
	UserID       uint `gorm:"column:user_id;index" json:"userId"`
	OwnerID      uint `gorm:"column:owner_id;index:idx_bookings_owner_status" json:"ownerId"`

	PickupDate time.Time `gorm:"column:pickup_date;not null" json:"pickupDate"`
	ReturnDate time.Time `gorm:"column:return_date;not null" json:"returnDate"`

	// Price, Commission and OwnerPayout are derived whenever dates change,
	// in whole currency units. Commission + OwnerPayout == Price always.
	Price       int64 `gorm:"column:price;not null" json:"price"`
	Commission  int64 `gorm:"column:commission" json:"commission"`
	OwnerPayout int64 `gorm:"column:owner_payout" json:"ownerPayout"`

	Status        string `gorm:"column:status;size:16;default:'pending';index:idx_bookings_owner_status" json:"status"`
	PaymentStatus string `gorm:"column:payment_status;size:16;default:'pending';index:idx_bookings_owner_status" json:"paymentStatus"`

	ProviderSessionID  string     `gorm:"column:provider_session_id;size:191;index" json:"providerSessionId,omitempty"`
	ProviderIntentID   string     `gorm:"column:provider_intent_id;size:191;index" json:"providerIntentId,omitempty"`
	LastWebhookEventID string     `gorm:"column:last_webhook_event_id;size:191;index" json:"lastWebhookEventId,omitempty"`
	LastWebhookAt      *time.Time `gorm:"column:last_webhook_at" json:"lastWebhookAt,omitempty"`

	PaidAt            *time.Time `gorm:"column:paid_at" json:"paidAt,omitempty"`
	PickupConfirmedAt *time.Time `gorm:"column:pickup_confirmed_at;index" json:"pickupConfirmedAt,omitempty"`
	ReturnConfirmedAt *time.Time `gorm:"column:return_confirmed_at;index" json:"returnConfirmedAt,omitempty"`
	CancelledAt       *time.Time `gorm:"column:cancelled_at;index" json:"cancelledAt,omitempty"`

	LateDays      int        `gorm:"column:late_days;default:0" json:"lateDays"`
	LateFee       int64      `gorm:"column:late_fee;default:0" json:"lateFee"`
	LateFeePaid   bool       `gorm:"column:late_fee_paid;default:false" json:"lateFeePaid"`
	LateFeePaidAt *time.Time `gorm:"column:late_fee_paid_at" json:"lateFeePaidAt,omitempty"`

	Instrument Instrument `gorm:"foreignKey:InstrumentID;references:ID" json:"instrument,omitempty"`
	User       User       `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

func ValidBookingStatus(s string) bool {
	return s == BookingPending || s == BookingConfirmed || s == BookingCancelled
}

// ChangeStatus is the owner/admin status-change path: any state may be
// entered, subject to the guards below. Returns the updated copy.
//
//   - confirmed requires paymentStatus=paid
//   - entering cancelled sets cancelledAt once
//   - leaving cancelled clears cancelledAt
func (b Booking) ChangeStatus(next string, now time.Time) (Booking, error) {
	if !ValidBookingStatus(next) {
		return b, ErrInvalidStatus
	}
	if next == BookingConfirmed && b.PaymentStatus != PaymentStatusPaid {
		return b, ErrConfirmRequiresPaid
	}

	prev := b.Status
	b.Status = next
	if next == BookingCancelled && b.CancelledAt == nil {
		t := now
		b.CancelledAt = &t
	}
	if prev == BookingCancelled && next != BookingCancelled {
		b.CancelledAt = nil
	}
	return b, nil
}

// CancelByRenter applies the renter-initiated cancellation rules: confirmed
// bookings cannot be self-cancelled, cancelling an already cancelled booking
// is a no-op success. The bool reports whether anything changed.
func (b Booking) CancelByRenter(now time.Time) (Booking, bool, error) {
	switch b.Status {
	case BookingConfirmed:
		return b, false, ErrRenterCancelConfirmed
	case BookingCancelled:
		return b, false, nil
	}
	b.Status = BookingCancelled
	t := now
	b.CancelledAt = &t
	return b, true, nil
}

// MarkPickup records the physical handover to the renter. One-way: repeat
// calls fail rather than double-apply.
func (b Booking) MarkPickup(now time.Time) (Booking, error) {
	if b.Status != BookingConfirmed || b.PaymentStatus != PaymentStatusPaid {
		return b, ErrPickupNotReady
	}
	if b.PickupConfirmedAt != nil {
		return b, ErrPickupAlreadyMarked
	}
	t := now
	b.PickupConfirmedAt = &t
	return b, nil
}

// MarkReturn records the physical return. Late-fee assessment is separate
// (AssessLateReturn) so a fee computation failure never blocks the return.
func (b Booking) MarkReturn(now time.Time) (Booking, error) {
	if b.PickupConfirmedAt == nil {
		return b, ErrReturnBeforePickup
	}
	if b.ReturnConfirmedAt != nil {
		return b, ErrReturnAlreadyMarked
	}
	t := now
	b.ReturnConfirmedAt = &t
	return b, nil
}

// AssessLateReturn derives lateDays/lateFee/lateFeePaid from the recorded
// return time against the planned return date. A fee of zero counts as
// already settled.
func (b Booking) AssessLateReturn(pricePerDay int64) Booking {
	b.LateDays = 0
	b.LateFee = 0
	if b.ReturnConfirmedAt != nil && b.ReturnConfirmedAt.After(b.ReturnDate) {
		b.LateDays = ceilDays(b.ReturnConfirmedAt.Sub(b.ReturnDate))
		b.LateFee = int64(b.LateDays) * pricePerDay
	}
	b.LateFeePaid = b.LateFee == 0
	return b
}

// ApplyPaymentConfirmation is the single convergence point for webhook
// ingestion and manual sync (both paths must produce the identical effect).
// The event id is the de-duplication key: replaying an already applied event
// changes nothing. The bool reports whether state changed.
func (b Booking) ApplyPaymentConfirmation(paymentType, eventID, intentID string, now time.Time) (Booking, bool, error) {
	if eventID != "" && eventID == b.LastWebhookEventID {
		return b, false, nil
	}

	switch paymentType {
	case PaymentTypeRental:
		if b.PaymentStatus == PaymentStatusPaid {
			return b, false, nil
		}
		b.PaymentStatus = PaymentStatusPaid
		if b.Status == BookingPending {
			t := now
			b.PaidAt = &t
		}
	case PaymentTypeLateFee:
		if b.LateFeePaid {
			return b, false, nil
		}
		b.LateFeePaid = true
		t := now
		b.LateFeePaidAt = &t
	default:
		return b, false, ErrUnknownPaymentType
	}

	b.LastWebhookEventID = eventID
	at := now
	b.LastWebhookAt = &at
	if intentID != "" {
		b.ProviderIntentID = intentID
	}
	return b, true, nil
}

func ceilDays(d time.Duration) int {
	const day = 24 * time.Hour
	n := int(d / day)
	if d%day > 0 {
		n++
	}
	return n
}
