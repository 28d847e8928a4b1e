package services

import "errors"

// Error kinds surfaced to controllers. Infrastructure failures are wrapped
// with %w instead; these sentinels carry the user-facing code.
var (
	ErrBookingNotFound       = errors.New("booking_not_found")
	ErrInstrumentNotFound    = errors.New("instrument_not_found")
	ErrPaymentNotFound       = errors.New("payment_not_found")
	ErrForbidden             = errors.New("forbidden")
	ErrOwnInstrument         = errors.New("cannot_book_own_instrument")
	ErrInstrumentUnavailable = errors.New("instrument_unavailable")
	ErrDatesUnavailable      = errors.New("dates_unavailable")
	ErrInvalidDateRange      = errors.New("invalid_date_range")
	ErrBookingNotEditable    = errors.New("booking_not_editable")
	ErrAlreadyPaid           = errors.New("already_paid")
	ErrNothingToPay          = errors.New("nothing_to_pay")
	ErrProvider              = errors.New("provider_error")
	ErrProviderNotConfigured = errors.New("provider_not_configured")
)
