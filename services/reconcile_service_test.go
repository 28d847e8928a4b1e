package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"instrument-rental-backend/models"
	"instrument-rental-backend/services"
)

// ---- mock store ----

type mockStore struct {
	booking      models.Booking
	bookingErr   error
	payment      models.Payment
	paymentErr   error
	applied      models.Booking
	appliedErr   error
	applyChanged bool

	applyCalls []services.ConfirmationInput
}

func (m *mockStore) BookingByID(_ context.Context, _ uint) (models.Booking, error) {
	return m.booking, m.bookingErr
}

func (m *mockStore) PaymentByKey(_ context.Context, _, _ uint, _ string) (models.Payment, error) {
	return m.payment, m.paymentErr
}

func (m *mockStore) ApplyPaymentConfirmation(_ context.Context, in services.ConfirmationInput) (models.Booking, bool, error) {
	m.applyCalls = append(m.applyCalls, in)
	return m.applied, m.applyChanged, m.appliedErr
}

// ---- mock provider ----

type mockPaymentProvider struct {
	session     services.ProviderSession
	retrieveErr error
	createErr   error

	retrievedIDs []string
}

func (m *mockPaymentProvider) CreateCheckoutSession(_ context.Context, _ services.CheckoutInput) (services.ProviderSession, error) {
	return m.session, m.createErr
}

func (m *mockPaymentProvider) RetrieveSession(_ context.Context, id string) (services.ProviderSession, error) {
	m.retrievedIDs = append(m.retrievedIDs, id)
	return m.session, m.retrieveErr
}

// ---- helpers ----

func newReconcileService(store *mockStore, provider *mockPaymentProvider) *services.ReconcileService {
	logger, _ := zap.NewDevelopment()
	return services.NewReconcileService(store, provider, logger, time.Second)
}

func checkoutEvent(id string, payload map[string]any) stripe.Event {
	raw, _ := json.Marshal(payload)
	return stripe.Event{
		ID:   id,
		Type: stripe.EventType(services.CheckoutCompletedEvent),
		Data: &stripe.EventData{Raw: raw},
	}
}

// ---- webhook ingestion ----

func TestHandleWebhookEvent_AppliesConfirmation(t *testing.T) {
	store := &mockStore{applyChanged: true}
	svc := newReconcileService(store, &mockPaymentProvider{})

	event := checkoutEvent("evt_1", map[string]any{
		"id": "cs_1",
		"metadata": map[string]string{
			"bookingId":   "42",
			"paymentType": "rental",
		},
		"payment_intent": "pi_77",
	})

	err := svc.HandleWebhookEvent(context.Background(), event)
	assert.Nil(t, err)
	assert.Len(t, store.applyCalls, 1)
	assert.Equal(t, uint(42), store.applyCalls[0].BookingID)
	assert.Equal(t, models.PaymentTypeRental, store.applyCalls[0].PaymentType)
	assert.Equal(t, "evt_1", store.applyCalls[0].EventID)
	assert.Equal(t, "pi_77", store.applyCalls[0].IntentID)
}

func TestHandleWebhookEvent_DefaultsToRentalType(t *testing.T) {
	store := &mockStore{applyChanged: true}
	svc := newReconcileService(store, &mockPaymentProvider{})

	event := checkoutEvent("evt_2", map[string]any{
		"id":       "cs_2",
		"metadata": map[string]string{"bookingId": "7"},
	})

	err := svc.HandleWebhookEvent(context.Background(), event)
	assert.Nil(t, err)
	assert.Len(t, store.applyCalls, 1)
	assert.Equal(t, models.PaymentTypeRental, store.applyCalls[0].PaymentType)
}

func TestHandleWebhookEvent_IgnoresOtherEventTypes(t *testing.T) {
	store := &mockStore{}
	svc := newReconcileService(store, &mockPaymentProvider{})

	event := stripe.Event{
		ID:   "evt_3",
		Type: stripe.EventType("payment_intent.created"),
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}

	err := svc.HandleWebhookEvent(context.Background(), event)
	assert.Nil(t, err)
	assert.Empty(t, store.applyCalls)
}

func TestHandleWebhookEvent_MissingMetadataIsAcknowledged(t *testing.T) {
	store := &mockStore{}
	svc := newReconcileService(store, &mockPaymentProvider{})

	event := checkoutEvent("evt_4", map[string]any{"id": "cs_4"})

	err := svc.HandleWebhookEvent(context.Background(), event)
	assert.Nil(t, err)
	assert.Empty(t, store.applyCalls)
}

func TestHandleWebhookEvent_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	store := &mockStore{appliedErr: boom}
	svc := newReconcileService(store, &mockPaymentProvider{})

	event := checkoutEvent("evt_5", map[string]any{
		"id":       "cs_5",
		"metadata": map[string]string{"bookingId": "9"},
	})

	err := svc.HandleWebhookEvent(context.Background(), event)
	assert.ErrorIs(t, err, boom)
}

// ---- manual sync ----

func renterBooking() models.Booking {
	return models.Booking{
		ID:                5,
		UserID:            10,
		OwnerID:           20,
		Status:            models.BookingPending,
		PaymentStatus:     models.PaymentStatusPending,
		ProviderSessionID: "cs_live_1",
	}
}

func TestManualSync_PaidSessionHealsBooking(t *testing.T) {
	store := &mockStore{booking: renterBooking(), applyChanged: true}
	store.applied = store.booking
	store.applied.PaymentStatus = models.PaymentStatusPaid
	provider := &mockPaymentProvider{
		session: services.ProviderSession{ID: "cs_live_1", PaymentStatus: services.ProviderPaid, PaymentIntentID: "pi_9"},
	}
	svc := newReconcileService(store, provider)

	actor := services.Identity{UserID: 10, Role: models.RoleRenter}
	result, err := svc.ManualSync(context.Background(), actor, 5, models.PaymentTypeRental)

	assert.Nil(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, services.ProviderPaid, result.ProviderStatus)
	assert.Equal(t, models.PaymentStatusPaid, result.Booking.PaymentStatus)
	assert.Equal(t, []string{"cs_live_1"}, provider.retrievedIDs)
	assert.Len(t, store.applyCalls, 1)
	assert.Equal(t, "manual_sync_cs_live_1", store.applyCalls[0].EventID)
	assert.Equal(t, "pi_9", store.applyCalls[0].IntentID)
}

func TestManualSync_UnpaidSessionChangesNothing(t *testing.T) {
	store := &mockStore{booking: renterBooking()}
	provider := &mockPaymentProvider{
		session: services.ProviderSession{ID: "cs_live_1", PaymentStatus: services.ProviderUnpaid},
	}
	svc := newReconcileService(store, provider)

	actor := services.Identity{UserID: 10, Role: models.RoleRenter}
	result, err := svc.ManualSync(context.Background(), actor, 5, models.PaymentTypeRental)

	assert.Nil(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, services.ProviderUnpaid, result.ProviderStatus)
	assert.Empty(t, store.applyCalls)
}

func TestManualSync_ProviderErrorMarksNothing(t *testing.T) {
	boom := errors.New("stripe timeout")
	store := &mockStore{booking: renterBooking()}
	provider := &mockPaymentProvider{retrieveErr: boom}
	svc := newReconcileService(store, provider)

	actor := services.Identity{UserID: 10, Role: models.RoleRenter}
	_, err := svc.ManualSync(context.Background(), actor, 5, models.PaymentTypeRental)

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.applyCalls)
}

func TestManualSync_AlreadyPaidShortCircuits(t *testing.T) {
	b := renterBooking()
	b.PaymentStatus = models.PaymentStatusPaid
	store := &mockStore{booking: b}
	provider := &mockPaymentProvider{}
	svc := newReconcileService(store, provider)

	actor := services.Identity{UserID: 10, Role: models.RoleRenter}
	result, err := svc.ManualSync(context.Background(), actor, 5, models.PaymentTypeRental)

	assert.Nil(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, services.ProviderPaid, result.ProviderStatus)
	assert.Empty(t, provider.retrievedIDs)
	assert.Empty(t, store.applyCalls)
}

func TestManualSync_StrangerForbidden(t *testing.T) {
	store := &mockStore{booking: renterBooking()}
	svc := newReconcileService(store, &mockPaymentProvider{})

	actor := services.Identity{UserID: 99, Role: models.RoleRenter}
	_, err := svc.ManualSync(context.Background(), actor, 5, models.PaymentTypeRental)

	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestManualSync_OwnerMaySync(t *testing.T) {
	store := &mockStore{booking: renterBooking(), applyChanged: true}
	provider := &mockPaymentProvider{
		session: services.ProviderSession{ID: "cs_live_1", PaymentStatus: services.ProviderPaid},
	}
	svc := newReconcileService(store, provider)

	actor := services.Identity{UserID: 20, Role: models.RoleOwner}
	result, err := svc.ManualSync(context.Background(), actor, 5, models.PaymentTypeRental)

	assert.Nil(t, err)
	assert.True(t, result.Applied)
}

func TestManualSync_RejectsUnknownType(t *testing.T) {
	svc := newReconcileService(&mockStore{}, &mockPaymentProvider{})

	_, err := svc.ManualSync(context.Background(), services.Identity{UserID: 1}, 5, "deposit")
	assert.ErrorIs(t, err, models.ErrUnknownPaymentType)
}

func TestManualSync_LateFeeUsesLedgerSession(t *testing.T) {
	b := renterBooking()
	b.LateFee = 500
	b.ReturnConfirmedAt = &time.Time{}
	store := &mockStore{
		booking:      b,
		payment:      models.Payment{ProviderSessionID: "cs_late_1"},
		applyChanged: true,
	}
	provider := &mockPaymentProvider{
		session: services.ProviderSession{ID: "cs_late_1", PaymentStatus: services.ProviderPaid},
	}
	svc := newReconcileService(store, provider)

	actor := services.Identity{UserID: 10, Role: models.RoleRenter}
	result, err := svc.ManualSync(context.Background(), actor, 5, models.PaymentTypeLateFee)

	assert.Nil(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, []string{"cs_late_1"}, provider.retrievedIDs)
	assert.Equal(t, "manual_sync_cs_late_1", store.applyCalls[0].EventID)
}

func TestManualSync_NoSessionOnRecord(t *testing.T) {
	b := renterBooking()
	b.ProviderSessionID = ""
	store := &mockStore{booking: b, paymentErr: services.ErrPaymentNotFound}
	svc := newReconcileService(store, &mockPaymentProvider{})

	actor := services.Identity{UserID: 10, Role: models.RoleRenter}
	_, err := svc.ManualSync(context.Background(), actor, 5, models.PaymentTypeRental)

	assert.ErrorIs(t, err, services.ErrPaymentNotFound)
}
