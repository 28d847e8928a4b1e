package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"instrument-rental-backend/models"
	"instrument-rental-backend/services"
	"instrument-rental-backend/utils"
)

// IdentityKey is where the auth middleware parks the caller's identity.
const IdentityKey = "identity"

func identityFrom(c *gin.Context) (services.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return services.Identity{}, false
	}
	id, ok := v.(services.Identity)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return services.Identity{}, false
	}
	return id, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		utils.JSONError(c, http.StatusBadRequest, "invalid_"+name)
		return 0, false
	}
	return uint(parsed), true
}

// parseDate accepts a bare date or a full RFC3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// parseDateRange parses an optional pair; both empty yields zero times.
func parseDateRange(pickupRaw, returnRaw string) (pickup, ret time.Time, err error) {
	if pickupRaw == "" && returnRaw == "" {
		return pickup, ret, nil
	}
	if pickup, err = parseDate(pickupRaw); err != nil {
		return pickup, ret, err
	}
	ret, err = parseDate(returnRaw)
	return pickup, ret, err
}

func pageQuery(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

func listFilterQuery(c *gin.Context) services.ListFilter {
	f := services.ListFilter{
		PaymentStatus: c.Query("paymentStatus"),
		Query:         c.Query("q"),
		Scope:         c.Query("scope"),
	}
	f.Page, f.Limit = pageQuery(c)
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Statuses = append(f.Statuses, s)
			}
		}
	}
	if raw := c.Query("from"); raw != "" {
		if t, err := parseDate(raw); err == nil {
			f.From = &t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := parseDate(raw); err == nil {
			f.To = &t
		}
	}
	return f
}

// respondServiceError translates service and model sentinels into HTTP
// statuses. Anything unmapped is an internal error.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrBookingNotFound),
		errors.Is(err, services.ErrInstrumentNotFound),
		errors.Is(err, services.ErrPaymentNotFound):
		utils.JSONError(c, http.StatusNotFound, err.Error())

	case errors.Is(err, services.ErrForbidden):
		utils.JSONError(c, http.StatusForbidden, err.Error())

	case errors.Is(err, services.ErrInvalidDateRange),
		errors.Is(err, services.ErrOwnInstrument),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrUnknownPaymentType):
		utils.JSONError(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, services.ErrDatesUnavailable),
		errors.Is(err, services.ErrInstrumentUnavailable),
		errors.Is(err, services.ErrBookingNotEditable),
		errors.Is(err, services.ErrAlreadyPaid),
		errors.Is(err, services.ErrNothingToPay),
		errors.Is(err, models.ErrConfirmRequiresPaid),
		errors.Is(err, models.ErrRenterCancelConfirmed),
		errors.Is(err, models.ErrPickupNotReady),
		errors.Is(err, models.ErrPickupAlreadyMarked),
		errors.Is(err, models.ErrReturnBeforePickup),
		errors.Is(err, models.ErrReturnAlreadyMarked):
		utils.JSONError(c, http.StatusConflict, err.Error())

	case errors.Is(err, services.ErrProvider),
		errors.Is(err, services.ErrProviderNotConfigured):
		utils.JSONError(c, http.StatusBadGateway, err.Error())

	default:
		utils.JSONError(c, http.StatusInternalServerError, "internal_error")
	}
}

func paginated(items any, total int64, page, limit int) gin.H {
	return gin.H{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	}
}
