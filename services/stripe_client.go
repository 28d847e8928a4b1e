package services

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
)

// Provider-side payment status values as reported for a checkout session.
const (
	ProviderPaid   = "paid"
	ProviderUnpaid = "unpaid"
)

// Metadata keys carried on every checkout session so webhook events and
// retrieved sessions map back to a booking.
const (
	MetadataBookingID   = "bookingId"
	MetadataPaymentType = "paymentType"
)

type CheckoutInput struct {
	BookingID   uint
	PaymentType string // rental or late_fee
	Name        string
	Description string
	Amount      int64 // minor currency units
	Currency    string
}

// ProviderSession is the provider-neutral view of a checkout session.
type ProviderSession struct {
	ID              string
	URL             string
	PaymentStatus   string
	PaymentIntentID string
}

// PaymentProvider abstracts the external payment processor so the
// reconciliation engine never talks to a concrete SDK (and tests can swap
// in a mock).
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (ProviderSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (ProviderSession, error)
}

// StripeClient is the Stripe-backed PaymentProvider. Webhook signature
// verification lives here too since it is Stripe-specific transport glue.
type StripeClient struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

func NewStripeClient(secretKey, webhookSecret, frontendURL string) *StripeClient {
	stripe.Key = secretKey
	return &StripeClient{
		SecretKey:     secretKey,
		WebhookSecret: webhookSecret,
		SuccessURL:    frontendURL + "/payment?success=true&bookingId=%d",
		CancelURL:     frontendURL + "/payment?canceled=true&bookingId=%d",
	}
}

func (s *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (ProviderSession, error) {
	if s.SecretKey == "" {
		return ProviderSession{}, ErrProviderNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(in.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(in.Name),
						Description: stripe.String(in.Description),
					},
					UnitAmount: stripe.Int64(in.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(fmt.Sprintf(s.SuccessURL, in.BookingID)),
		CancelURL:  stripe.String(fmt.Sprintf(s.CancelURL, in.BookingID)),
	}
	params.Context = ctx
	params.AddMetadata(MetadataBookingID, fmt.Sprintf("%d", in.BookingID))
	params.AddMetadata(MetadataPaymentType, in.PaymentType)

	sess, err := session.New(params)
	if err != nil {
		return ProviderSession{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return fromStripeSession(sess), nil
}

func (s *StripeClient) RetrieveSession(ctx context.Context, sessionID string) (ProviderSession, error) {
	if s.SecretKey == "" {
		return ProviderSession{}, ErrProviderNotConfigured
	}
	if sessionID == "" {
		return ProviderSession{}, fmt.Errorf("%w: empty session id", ErrProvider)
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := session.Get(sessionID, params)
	if err != nil {
		return ProviderSession{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return fromStripeSession(sess), nil
}

// ParseWebhook verifies the event signature against the shared secret.
// Failure is a hard rejection; the provider retries on its own schedule.
func (s *StripeClient) ParseWebhook(r *http.Request) (stripe.Event, error) {
	var event stripe.Event
	if s.WebhookSecret == "" {
		return event, ErrProviderNotConfigured
	}
	payload, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, 65536))
	if err != nil {
		return event, err
	}
	return webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), s.WebhookSecret)
}

func fromStripeSession(sess *stripe.CheckoutSession) ProviderSession {
	out := ProviderSession{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	return out
}
