package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"instrument-rental-backend/models"
)

func TestPaymentMarkSucceeded(t *testing.T) {
	paidAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	p := models.Payment{Status: models.PaymentPending}

	out, changed := p.MarkSucceeded("pi_1", paidAt)
	assert.True(t, changed)
	assert.Equal(t, models.PaymentSucceeded, out.Status)
	assert.Equal(t, "pi_1", out.ProviderIntentID)
	assert.Equal(t, paidAt, *out.PaidAt)

	// once succeeded the entry is frozen
	again, changed := out.MarkSucceeded("pi_other", paidAt.Add(time.Hour))
	assert.False(t, changed)
	assert.Equal(t, out, again)
}

func TestPaymentMarkSucceeded_AfterFailure(t *testing.T) {
	p := models.Payment{Status: models.PaymentFailed}

	out, changed := p.MarkSucceeded("pi_retry", time.Now())
	assert.True(t, changed)
	assert.Equal(t, models.PaymentSucceeded, out.Status)
}

func TestPaymentMarkFailed(t *testing.T) {
	p := models.Payment{Status: models.PaymentPending}

	out, changed := p.MarkFailed()
	assert.True(t, changed)
	assert.Equal(t, models.PaymentFailed, out.Status)

	succeeded := models.Payment{Status: models.PaymentSucceeded}
	_, changed = succeeded.MarkFailed()
	assert.False(t, changed)
}
