package models

import (
	"time"

	"gorm.io/gorm"
)

type Instrument struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// OwnerID is nullable: delisting an instrument detaches it from the owner
	// but keeps the row so old bookings still resolve.
	OwnerID *uint `gorm:"column:owner_id;index" json:"ownerId,omitempty"`

	Brand       string `gorm:"column:brand;size:120" json:"brand"`
	Model       string `gorm:"column:model;size:120" json:"model"`
	Category    string `gorm:"column:category;size:120" json:"category"`
	Location    string `gorm:"column:location;size:191;index" json:"location"`
	Description string `gorm:"column:description;type:text" json:"description"`

	// PricePerDay is in whole currency units.
	PricePerDay int64 `gorm:"column:price_per_day;not null" json:"pricePerDay"`
	IsAvailable bool  `gorm:"column:is_available;default:true" json:"isAvailable"`

	Owner User `gorm:"foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
}
