package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"instrument-rental-backend/models"
	"instrument-rental-backend/services"
	"instrument-rental-backend/utils"
)

type CreateCheckoutRequest struct {
	BookingID   uint   `json:"bookingId" binding:"required"`
	PaymentType string `json:"paymentType"`
}

type PaymentController struct {
	CheckoutSvc  *services.CheckoutService
	ReconcileSvc *services.ReconcileService
	Ledger       *services.PaymentLedger
	Stripe       *services.StripeClient
	Logger       *zap.Logger
}

func NewPaymentController(checkoutSvc *services.CheckoutService, reconcileSvc *services.ReconcileService, ledger *services.PaymentLedger, stripeClient *services.StripeClient, logger *zap.Logger) *PaymentController {
	return &PaymentController{
		CheckoutSvc:  checkoutSvc,
		ReconcileSvc: reconcileSvc,
		Ledger:       ledger,
		Stripe:       stripeClient,
		Logger:       logger,
	}
}

func (ctrl *PaymentController) CreateCheckoutSession(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}

	var payload CreateCheckoutRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_payload")
		return
	}
	if payload.PaymentType == "" {
		payload.PaymentType = models.PaymentTypeRental
	}

	result, err := ctrl.CheckoutSvc.Start(c.Request.Context(), actor, payload.BookingID, payload.PaymentType)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, result)
}

// StripeWebhook verifies the event signature and hands it to the
// reconciliation engine. Mounted without auth; the signature is the auth.
func (ctrl *PaymentController) StripeWebhook(c *gin.Context) {
	if ctrl.Stripe == nil {
		utils.JSONError(c, http.StatusBadGateway, services.ErrProviderNotConfigured.Error())
		return
	}

	event, err := ctrl.Stripe.ParseWebhook(c.Request)
	if err != nil {
		ctrl.Logger.Warn("webhook rejected", zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, "invalid_webhook")
		return
	}

	if err := ctrl.ReconcileSvc.HandleWebhookEvent(c.Request.Context(), event); err != nil {
		ctrl.Logger.Error("webhook processing failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "webhook_failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// SyncPayment pulls the session state from the provider on demand, for
// when a webhook was missed.
func (ctrl *PaymentController) SyncPayment(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	paymentType := c.DefaultQuery("type", models.PaymentTypeRental)

	result, err := ctrl.ReconcileSvc.ManualSync(c.Request.Context(), actor, id, paymentType)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, result)
}

func (ctrl *PaymentController) ListMine(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}

	page, limit := pageQuery(c)
	payments, total, err := ctrl.Ledger.ListForUser(c.Request.Context(), actor.UserID, page, limit)
	if err != nil {
		ctrl.Logger.Error("list payments failed", zap.Error(err))
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, paginated(payments, total, page, limit))
}

func (ctrl *PaymentController) ListAll(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}

	page, limit := pageQuery(c)
	payments, total, err := ctrl.Ledger.ListAll(c.Request.Context(), actor, page, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, paginated(payments, total, page, limit))
}
