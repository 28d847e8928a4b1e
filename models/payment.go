package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PaymentTypeRental  = "rental"
	PaymentTypeLateFee = "late_fee"

	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// Payment is one attempted charge against a booking, scoped by type. The
// unique index on (booking,user,type) is the ledger key: at most one rental
// row and one late-fee row per booking and payer.
type Payment struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	BookingID uint   `gorm:"column:booking_id;uniqueIndex:idx_payments_booking_user_type;index" json:"bookingId"`
	UserID    uint   `gorm:"column:user_id;uniqueIndex:idx_payments_booking_user_type;index" json:"userId"`
	Type      string `gorm:"column:type;size:16;default:'rental';uniqueIndex:idx_payments_booking_user_type;index" json:"type"`

	// Amount is in minor currency units (what the provider charges);
	// DisplayAmount is the same value in whole units for rendering.
	Amount        int64  `gorm:"column:amount;not null" json:"amount"`
	DisplayAmount int64  `gorm:"column:display_amount;not null" json:"displayAmount"`
	Currency      string `gorm:"column:currency;size:8;default:'lkr'" json:"currency"`
	Commission    int64  `gorm:"column:commission" json:"commission"`
	OwnerPayout   int64  `gorm:"column:owner_payout" json:"ownerPayout"`

	ProviderSessionID string `gorm:"column:provider_session_id;size:191;index" json:"providerSessionId,omitempty"`
	ProviderIntentID  string `gorm:"column:provider_intent_id;size:191;index" json:"providerIntentId,omitempty"`

	Status string     `gorm:"column:status;size:16;default:'pending'" json:"status"`
	Method string     `gorm:"column:method;size:32;default:'card'" json:"method"`
	PaidAt *time.Time `gorm:"column:paid_at" json:"paidAt,omitempty"`

	// RawEvent keeps the provider payload that settled this entry, for audit.
	RawEvent datatypes.JSON `gorm:"column:raw_event" json:"-"`

	Booking Booking `gorm:"foreignKey:BookingID;references:ID" json:"booking,omitempty"`
	User    User    `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// MarkSucceeded transitions the entry to succeeded. Safe to call repeatedly:
// once succeeded the entry never changes again. A failed entry may still
// succeed later (the provider's retry may land after a transient failure).
func (p Payment) MarkSucceeded(intentID string, paidAt time.Time) (Payment, bool) {
	if p.Status == PaymentSucceeded {
		return p, false
	}
	p.Status = PaymentSucceeded
	t := paidAt
	p.PaidAt = &t
	if intentID != "" {
		p.ProviderIntentID = intentID
	}
	return p, true
}

// MarkFailed transitions a pending entry to failed; succeeded and failed
// entries are left alone.
func (p Payment) MarkFailed() (Payment, bool) {
	if p.Status != PaymentPending {
		return p, false
	}
	p.Status = PaymentFailed
	return p, true
}
