package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"instrument-rental-backend/services"
	"instrument-rental-backend/utils"
)

type InstrumentController struct {
	InstrumentSvc   *services.InstrumentService
	AvailabilitySvc *services.AvailabilityService
}

func NewInstrumentController(instrumentSvc *services.InstrumentService, availabilitySvc *services.AvailabilityService) *InstrumentController {
	return &InstrumentController{InstrumentSvc: instrumentSvc, AvailabilitySvc: availabilitySvc}
}

// Search lists instruments free for the requested window. Without dates it
// degrades to a plain catalogue browse.
func (ctrl *InstrumentController) Search(c *gin.Context) {
	pickupRaw := c.Query("pickup")
	returnRaw := c.Query("return")
	if (pickupRaw == "") != (returnRaw == "") {
		utils.JSONError(c, http.StatusBadRequest, "pickup_and_return_required_together")
		return
	}

	pickup, ret, err := parseDateRange(pickupRaw, returnRaw)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_date")
		return
	}

	instruments, svcErr := ctrl.AvailabilitySvc.Search(c.Request.Context(), c.Query("location"), c.Query("q"), pickup, ret)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, instruments)
}

func (ctrl *InstrumentController) GetOne(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	inst, err := ctrl.InstrumentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, inst)
}
