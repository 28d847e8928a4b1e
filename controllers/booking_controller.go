package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"instrument-rental-backend/services"
	"instrument-rental-backend/utils"
)

type CreateBookingRequest struct {
	InstrumentID uint   `json:"instrumentId" binding:"required"`
	PickupDate   string `json:"pickupDate" binding:"required"`
	ReturnDate   string `json:"returnDate" binding:"required"`
}

type UpdateDatesRequest struct {
	PickupDate string `json:"pickupDate" binding:"required"`
	ReturnDate string `json:"returnDate" binding:"required"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type BookingController struct {
	BookingSvc   *services.BookingService
	LifecycleSvc *services.LifecycleService
	Logger       *zap.Logger
}

func NewBookingController(bookingSvc *services.BookingService, lifecycleSvc *services.LifecycleService, logger *zap.Logger) *BookingController {
	return &BookingController{BookingSvc: bookingSvc, LifecycleSvc: lifecycleSvc, Logger: logger}
}

func (ctrl *BookingController) Create(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}

	var payload CreateBookingRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_payload")
		return
	}

	pickup, err := parseDate(payload.PickupDate)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_pickup_date")
		return
	}
	ret, err := parseDate(payload.ReturnDate)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_return_date")
		return
	}

	booking, err := ctrl.BookingSvc.Create(c.Request.Context(), actor.UserID, payload.InstrumentID, pickup, ret)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, booking)
}

func (ctrl *BookingController) GetOne(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	booking, err := ctrl.BookingSvc.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

func (ctrl *BookingController) ListMine(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}

	f := listFilterQuery(c)
	bookings, total, err := ctrl.BookingSvc.ListForRenter(c.Request.Context(), actor, f)
	if err != nil {
		ctrl.Logger.Error("list renter bookings failed", zap.Error(err))
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, paginated(bookings, total, f.Page, f.Limit))
}

func (ctrl *BookingController) ListForOwner(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}

	f := listFilterQuery(c)
	bookings, total, scope, err := ctrl.BookingSvc.ListForOwner(c.Request.Context(), actor, f)
	if err != nil {
		ctrl.Logger.Error("list owner bookings failed", zap.Error(err))
		respondServiceError(c, err)
		return
	}
	out := paginated(bookings, total, f.Page, f.Limit)
	out["scope"] = scope
	utils.JSONSuccess(c, http.StatusOK, out)
}

func (ctrl *BookingController) UpdateDates(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var payload UpdateDatesRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_payload")
		return
	}
	pickup, err := parseDate(payload.PickupDate)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_pickup_date")
		return
	}
	ret, err := parseDate(payload.ReturnDate)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_return_date")
		return
	}

	booking, err := ctrl.BookingSvc.UpdateDates(c.Request.Context(), actor, id, pickup, ret)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

// Cancel is the renter's own cancellation. Owners and admins go through
// ChangeStatus instead.
func (ctrl *BookingController) Cancel(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	booking, err := ctrl.BookingSvc.CancelByRenter(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

func (ctrl *BookingController) ChangeStatus(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var payload ChangeStatusRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_payload")
		return
	}

	booking, err := ctrl.BookingSvc.ChangeStatus(c.Request.Context(), actor, id, payload.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

func (ctrl *BookingController) MarkPickup(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	booking, err := ctrl.LifecycleSvc.MarkPickup(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

func (ctrl *BookingController) MarkReturn(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	booking, err := ctrl.LifecycleSvc.MarkReturn(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}
