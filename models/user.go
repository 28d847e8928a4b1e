package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles as resolved by the auth middleware. Every renter can become an
// owner; admins are seeded.
const (
	RoleRenter = "renter"
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
)

type User struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	FullName string `gorm:"column:full_name;size:191" json:"fullName"`
	Email    string `gorm:"column:email;size:191;uniqueIndex" json:"email"`
	Password string `gorm:"column:password;size:191" json:"-"`
	Role     string `gorm:"column:role;size:16;default:'renter'" json:"role"`
}
