package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"instrument-rental-backend/services"
	"instrument-rental-backend/utils"
)

type OwnerController struct {
	InstrumentSvc *services.InstrumentService
	BookingSvc    *services.BookingService
	Logger        *zap.Logger
}

func NewOwnerController(instrumentSvc *services.InstrumentService, bookingSvc *services.BookingService, logger *zap.Logger) *OwnerController {
	return &OwnerController{InstrumentSvc: instrumentSvc, BookingSvc: bookingSvc, Logger: logger}
}

// BecomeOwner flips the caller's role so they can start listing.
func (ctrl *OwnerController) BecomeOwner(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}

	if err := ctrl.InstrumentSvc.PromoteToOwner(c.Request.Context(), actor.UserID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"role": "owner"})
}

func (ctrl *OwnerController) Dashboard(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}

	data, err := ctrl.BookingSvc.Dashboard(c.Request.Context(), actor)
	if err != nil {
		ctrl.Logger.Error("owner dashboard failed", zap.Uint("owner_id", actor.UserID), zap.Error(err))
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, data)
}

func (ctrl *OwnerController) AddInstrument(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}

	var payload services.InstrumentInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_payload")
		return
	}

	inst, err := ctrl.InstrumentSvc.Add(c.Request.Context(), actor.UserID, payload)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, inst)
}

func (ctrl *OwnerController) UpdateInstrument(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var payload services.InstrumentInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_payload")
		return
	}

	inst, err := ctrl.InstrumentSvc.Update(c.Request.Context(), actor, id, payload)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, inst)
}

func (ctrl *OwnerController) ToggleInstrument(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	inst, err := ctrl.InstrumentSvc.ToggleAvailability(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, inst)
}

func (ctrl *OwnerController) DelistInstrument(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	inst, err := ctrl.InstrumentSvc.Delist(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, inst)
}

func (ctrl *OwnerController) MyInstruments(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		return
	}

	instruments, err := ctrl.InstrumentSvc.ListForOwner(c.Request.Context(), actor.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, instruments)
}
