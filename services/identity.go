package services

import "instrument-rental-backend/models"

// Identity is the resolved caller of every operation. The middleware fills
// it from the bearer token; services trust it and only encode authorization
// rules on top.
type Identity struct {
	UserID uint   `json:"userId"`
	Role   string `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// MayManage reports whether the caller can act as the booking's owner.
func (i Identity) MayManage(b models.Booking) bool {
	return i.IsAdmin() || b.OwnerID == i.UserID
}

// MayView reports whether the caller can read the booking at all.
func (i Identity) MayView(b models.Booking) bool {
	return i.IsAdmin() || b.UserID == i.UserID || b.OwnerID == i.UserID
}
