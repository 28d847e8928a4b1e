package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"instrument-rental-backend/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestChangeStatus_ConfirmRequiresPaid(t *testing.T) {
	b := models.Booking{Status: models.BookingPending, PaymentStatus: models.PaymentStatusPending}

	_, err := b.ChangeStatus(models.BookingConfirmed, time.Now())
	assert.ErrorIs(t, err, models.ErrConfirmRequiresPaid)

	b.PaymentStatus = models.PaymentStatusPaid
	out, err := b.ChangeStatus(models.BookingConfirmed, time.Now())
	assert.Nil(t, err)
	assert.Equal(t, models.BookingConfirmed, out.Status)
}

func TestChangeStatus_RejectsUnknownStatus(t *testing.T) {
	b := models.Booking{Status: models.BookingPending}

	_, err := b.ChangeStatus("shipped", time.Now())
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestChangeStatus_CancelledAtBookkeeping(t *testing.T) {
	now := date(2026, 3, 1)
	b := models.Booking{Status: models.BookingPending, PaymentStatus: models.PaymentStatusPending}

	cancelled, err := b.ChangeStatus(models.BookingCancelled, now)
	assert.Nil(t, err)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, now, *cancelled.CancelledAt)

	// re-entering cancelled keeps the original timestamp
	later := date(2026, 3, 5)
	again, err := cancelled.ChangeStatus(models.BookingCancelled, later)
	assert.Nil(t, err)
	assert.Equal(t, now, *again.CancelledAt)

	// leaving cancelled clears it
	reopened, err := cancelled.ChangeStatus(models.BookingPending, later)
	assert.Nil(t, err)
	assert.Nil(t, reopened.CancelledAt)
}

func TestCancelByRenter(t *testing.T) {
	now := time.Now()

	pending := models.Booking{Status: models.BookingPending}
	out, changed, err := pending.CancelByRenter(now)
	assert.Nil(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.BookingCancelled, out.Status)
	assert.NotNil(t, out.CancelledAt)

	confirmed := models.Booking{Status: models.BookingConfirmed}
	_, _, err = confirmed.CancelByRenter(now)
	assert.ErrorIs(t, err, models.ErrRenterCancelConfirmed)

	// cancelling twice is a quiet no-op
	_, changed, err = out.CancelByRenter(now)
	assert.Nil(t, err)
	assert.False(t, changed)
}

func TestMarkPickup_Guards(t *testing.T) {
	now := time.Now()

	unpaid := models.Booking{Status: models.BookingConfirmed, PaymentStatus: models.PaymentStatusPending}
	_, err := unpaid.MarkPickup(now)
	assert.ErrorIs(t, err, models.ErrPickupNotReady)

	pending := models.Booking{Status: models.BookingPending, PaymentStatus: models.PaymentStatusPaid}
	_, err = pending.MarkPickup(now)
	assert.ErrorIs(t, err, models.ErrPickupNotReady)

	ready := models.Booking{Status: models.BookingConfirmed, PaymentStatus: models.PaymentStatusPaid}
	out, err := ready.MarkPickup(now)
	assert.Nil(t, err)
	assert.NotNil(t, out.PickupConfirmedAt)

	_, err = out.MarkPickup(now)
	assert.ErrorIs(t, err, models.ErrPickupAlreadyMarked)
}

func TestMarkReturn_Guards(t *testing.T) {
	now := time.Now()

	notPicked := models.Booking{Status: models.BookingConfirmed, PaymentStatus: models.PaymentStatusPaid}
	_, err := notPicked.MarkReturn(now)
	assert.ErrorIs(t, err, models.ErrReturnBeforePickup)

	picked, err := notPicked.MarkPickup(now)
	assert.Nil(t, err)

	out, err := picked.MarkReturn(now)
	assert.Nil(t, err)
	assert.NotNil(t, out.ReturnConfirmedAt)

	_, err = out.MarkReturn(now)
	assert.ErrorIs(t, err, models.ErrReturnAlreadyMarked)
}

func TestAssessLateReturn_OnTime(t *testing.T) {
	ret := date(2026, 3, 10)
	b := models.Booking{ReturnDate: ret, ReturnConfirmedAt: &ret}

	out := b.AssessLateReturn(500)
	assert.Equal(t, 0, out.LateDays)
	assert.Equal(t, int64(0), out.LateFee)
	assert.True(t, out.LateFeePaid)
}

func TestAssessLateReturn_PartialDayRoundsUp(t *testing.T) {
	planned := date(2026, 3, 10)
	actual := planned.Add(26 * time.Hour)
	b := models.Booking{ReturnDate: planned, ReturnConfirmedAt: &actual}

	out := b.AssessLateReturn(500)
	assert.Equal(t, 2, out.LateDays)
	assert.Equal(t, int64(1000), out.LateFee)
	assert.False(t, out.LateFeePaid)
}

func TestAssessLateReturn_ThreeDaysLate(t *testing.T) {
	planned := date(2026, 3, 10)
	actual := planned.Add(72 * time.Hour)
	b := models.Booking{ReturnDate: planned, ReturnConfirmedAt: &actual}

	out := b.AssessLateReturn(300)
	assert.Equal(t, 3, out.LateDays)
	assert.Equal(t, int64(900), out.LateFee)
}

func TestApplyPaymentConfirmation_Rental(t *testing.T) {
	now := date(2026, 4, 1)
	b := models.Booking{Status: models.BookingPending, PaymentStatus: models.PaymentStatusPending}

	out, changed, err := b.ApplyPaymentConfirmation(models.PaymentTypeRental, "evt_1", "pi_1", now)
	assert.Nil(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.PaymentStatusPaid, out.PaymentStatus)
	// paying does not confirm; the owner still has to approve
	assert.Equal(t, models.BookingPending, out.Status)
	assert.NotNil(t, out.PaidAt)
	assert.Equal(t, "evt_1", out.LastWebhookEventID)
	assert.Equal(t, "pi_1", out.ProviderIntentID)
}

func TestApplyPaymentConfirmation_ReplayedEventIsNoop(t *testing.T) {
	now := date(2026, 4, 1)
	b := models.Booking{Status: models.BookingPending, PaymentStatus: models.PaymentStatusPending}

	first, changed, err := b.ApplyPaymentConfirmation(models.PaymentTypeRental, "evt_1", "pi_1", now)
	assert.Nil(t, err)
	assert.True(t, changed)

	replay, changed, err := first.ApplyPaymentConfirmation(models.PaymentTypeRental, "evt_1", "pi_1", now.Add(time.Hour))
	assert.Nil(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, replay)
}

func TestApplyPaymentConfirmation_AlreadyPaidDifferentEvent(t *testing.T) {
	now := date(2026, 4, 1)
	b := models.Booking{Status: models.BookingPending, PaymentStatus: models.PaymentStatusPaid, LastWebhookEventID: "evt_1"}

	_, changed, err := b.ApplyPaymentConfirmation(models.PaymentTypeRental, "evt_2", "pi_2", now)
	assert.Nil(t, err)
	assert.False(t, changed)
}

func TestApplyPaymentConfirmation_LateFee(t *testing.T) {
	now := date(2026, 4, 2)
	b := models.Booking{Status: models.BookingConfirmed, PaymentStatus: models.PaymentStatusPaid, LateFee: 1000}

	out, changed, err := b.ApplyPaymentConfirmation(models.PaymentTypeLateFee, "evt_9", "pi_9", now)
	assert.Nil(t, err)
	assert.True(t, changed)
	assert.True(t, out.LateFeePaid)
	assert.NotNil(t, out.LateFeePaidAt)

	_, changed, err = out.ApplyPaymentConfirmation(models.PaymentTypeLateFee, "evt_10", "pi_10", now)
	assert.Nil(t, err)
	assert.False(t, changed)
}

func TestApplyPaymentConfirmation_UnknownType(t *testing.T) {
	b := models.Booking{}

	_, _, err := b.ApplyPaymentConfirmation("deposit", "evt_1", "", time.Now())
	assert.ErrorIs(t, err, models.ErrUnknownPaymentType)
}

func TestApplyPaymentConfirmation_PaidAtOnlyWhilePending(t *testing.T) {
	now := date(2026, 4, 3)
	b := models.Booking{Status: models.BookingCancelled, PaymentStatus: models.PaymentStatusPending}

	out, changed, err := b.ApplyPaymentConfirmation(models.PaymentTypeRental, "evt_1", "", now)
	assert.Nil(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.PaymentStatusPaid, out.PaymentStatus)
	assert.Nil(t, out.PaidAt)
}
