package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	"instrument-rental-backend/models"
)

// CheckoutCompletedEvent is the provider event type that settles payments.
const CheckoutCompletedEvent = "checkout.session.completed"

// ReconcileService keeps internal payment state in agreement with the
// provider. Webhook ingestion and manual sync both funnel into the store's
// ApplyPaymentConfirmation so idempotency lives in exactly one place.
type ReconcileService struct {
	Store       ReconcileStore
	Provider    PaymentProvider
	Logger      *zap.Logger
	SyncTimeout time.Duration
}

func NewReconcileService(store ReconcileStore, provider PaymentProvider, logger *zap.Logger, syncTimeout time.Duration) *ReconcileService {
	if syncTimeout <= 0 {
		syncTimeout = 10 * time.Second
	}
	return &ReconcileService{Store: store, Provider: provider, Logger: logger, SyncTimeout: syncTimeout}
}

// SyncResult reports what the provider said and whether anything changed.
type SyncResult struct {
	BookingID      uint           `json:"bookingId"`
	PaymentType    string         `json:"paymentType"`
	ProviderStatus string         `json:"providerStatus"`
	Applied        bool           `json:"applied"`
	Booking        models.Booking `json:"booking"`
}

// HandleWebhookEvent ingests a signature-verified provider event. Unhandled
// event types are acknowledged and dropped; a replayed event id is a no-op.
func (s *ReconcileService) HandleWebhookEvent(ctx context.Context, event stripe.Event) error {
	if string(event.Type) != CheckoutCompletedEvent {
		s.Logger.Info("ignoring webhook event", zap.String("event_type", string(event.Type)))
		return nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to decode checkout session: %w", err)
	}

	rawID := sess.Metadata[MetadataBookingID]
	if rawID == "" {
		s.Logger.Warn("checkout session missing booking metadata",
			zap.String("event_id", event.ID),
			zap.String("session_id", sess.ID))
		return nil
	}
	bookingID, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		s.Logger.Warn("checkout session carries malformed booking id",
			zap.String("event_id", event.ID),
			zap.String("booking_id", rawID))
		return nil
	}

	paymentType := sess.Metadata[MetadataPaymentType]
	if paymentType == "" {
		paymentType = models.PaymentTypeRental
	}

	intentID := ""
	if sess.PaymentIntent != nil {
		intentID = sess.PaymentIntent.ID
	}

	_, applied, err := s.Store.ApplyPaymentConfirmation(ctx, ConfirmationInput{
		BookingID:   uint(bookingID),
		PaymentType: paymentType,
		EventID:     event.ID,
		IntentID:    intentID,
		PaidAt:      time.Now().UTC(),
		RawEvent:    event.Data.Raw,
	})
	if err != nil {
		return err
	}

	if applied {
		s.Logger.Info("payment confirmed via webhook",
			zap.Uint("booking_id", uint(bookingID)),
			zap.String("type", paymentType),
			zap.String("event_id", event.ID))
	} else {
		s.Logger.Info("duplicate webhook skipped",
			zap.Uint("booking_id", uint(bookingID)),
			zap.String("event_id", event.ID))
	}
	return nil
}

// ManualSync is the fallback for missed webhooks: re-query the provider for
// the stored session and, if it reports paid, apply the identical effect
// under a synthetic event id. An unpaid or error answer never marks
// anything paid.
func (s *ReconcileService) ManualSync(ctx context.Context, actor Identity, bookingID uint, paymentType string) (SyncResult, error) {
	if paymentType == "" {
		paymentType = models.PaymentTypeRental
	}
	if paymentType != models.PaymentTypeRental && paymentType != models.PaymentTypeLateFee {
		return SyncResult{}, models.ErrUnknownPaymentType
	}

	b, err := s.Store.BookingByID(ctx, bookingID)
	if err != nil {
		return SyncResult{}, err
	}
	if !actor.MayView(b) {
		return SyncResult{}, ErrForbidden
	}

	result := SyncResult{BookingID: bookingID, PaymentType: paymentType, Booking: b}

	// Already settled locally; nothing to reconcile.
	if (paymentType == models.PaymentTypeRental && b.PaymentStatus == models.PaymentStatusPaid) ||
		(paymentType == models.PaymentTypeLateFee && b.LateFeePaid) {
		result.ProviderStatus = ProviderPaid
		return result, nil
	}

	if s.Provider == nil {
		return SyncResult{}, ErrProviderNotConfigured
	}
	sessionID, err := s.sessionIDFor(ctx, b, paymentType)
	if err != nil {
		return SyncResult{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.SyncTimeout)
	defer cancel()
	sess, err := s.Provider.RetrieveSession(callCtx, sessionID)
	if err != nil {
		s.Logger.Warn("manual sync provider query failed",
			zap.Uint("booking_id", bookingID),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return SyncResult{}, err
	}

	result.ProviderStatus = sess.PaymentStatus
	if sess.PaymentStatus != ProviderPaid {
		return result, nil
	}

	updated, applied, err := s.Store.ApplyPaymentConfirmation(ctx, ConfirmationInput{
		BookingID:   bookingID,
		PaymentType: paymentType,
		EventID:     "manual_sync_" + sess.ID,
		IntentID:    sess.PaymentIntentID,
		PaidAt:      time.Now().UTC(),
	})
	if err != nil {
		return SyncResult{}, err
	}

	result.Booking = updated
	result.Applied = applied
	if applied {
		s.Logger.Info("payment healed via manual sync",
			zap.Uint("booking_id", bookingID),
			zap.String("type", paymentType),
			zap.String("session_id", sess.ID))
	}
	return result, nil
}

// sessionIDFor finds the checkout session to re-query: the booking record
// for rentals, the ledger entry otherwise.
func (s *ReconcileService) sessionIDFor(ctx context.Context, b models.Booking, paymentType string) (string, error) {
	if paymentType == models.PaymentTypeRental && b.ProviderSessionID != "" {
		return b.ProviderSessionID, nil
	}
	p, err := s.Store.PaymentByKey(ctx, b.ID, b.UserID, paymentType)
	if err != nil {
		return "", err
	}
	if p.ProviderSessionID == "" {
		return "", fmt.Errorf("%w: no checkout session on record", ErrPaymentNotFound)
	}
	return p.ProviderSessionID, nil
}
