package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"instrument-rental-backend/models"
)

// InstrumentService covers the owner's side of the catalogue. Availability
// during a rental is flipped by the lifecycle tracker, not here; Toggle is
// the owner's manual switch for taking a listing offline.
type InstrumentService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewInstrumentService(db *gorm.DB, logger *zap.Logger) *InstrumentService {
	return &InstrumentService{DB: db, Logger: logger}
}

type InstrumentInput struct {
	Brand       string `json:"brand" binding:"required"`
	Model       string `json:"model" binding:"required"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Description string `json:"description"`
	PricePerDay int64  `json:"pricePerDay" binding:"required,min=1"`
}

func (s *InstrumentService) Add(ctx context.Context, ownerID uint, in InstrumentInput) (models.Instrument, error) {
	inst := models.Instrument{
		OwnerID:     &ownerID,
		Brand:       in.Brand,
		Model:       in.Model,
		Category:    in.Category,
		Location:    in.Location,
		Description: in.Description,
		PricePerDay: in.PricePerDay,
		IsAvailable: true,
	}
	if err := s.DB.WithContext(ctx).Create(&inst).Error; err != nil {
		return models.Instrument{}, err
	}
	return inst, nil
}

func (s *InstrumentService) ownedInstrument(ctx context.Context, actor Identity, instrumentID uint) (models.Instrument, error) {
	var inst models.Instrument
	if err := s.DB.WithContext(ctx).First(&inst, instrumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inst, ErrInstrumentNotFound
		}
		return inst, err
	}
	if !actor.IsAdmin() && (inst.OwnerID == nil || *inst.OwnerID != actor.UserID) {
		return inst, ErrForbidden
	}
	return inst, nil
}

// Update whitelists the editable listing fields. Price changes do not touch
// existing bookings; their commercial fields stay as quoted at booking time.
func (s *InstrumentService) Update(ctx context.Context, actor Identity, instrumentID uint, in InstrumentInput) (models.Instrument, error) {
	inst, err := s.ownedInstrument(ctx, actor, instrumentID)
	if err != nil {
		return models.Instrument{}, err
	}

	inst.Brand = in.Brand
	inst.Model = in.Model
	inst.Category = in.Category
	inst.Location = in.Location
	inst.Description = in.Description
	inst.PricePerDay = in.PricePerDay
	if err := s.DB.WithContext(ctx).Save(&inst).Error; err != nil {
		return models.Instrument{}, err
	}
	return inst, nil
}

// ToggleAvailability flips the owner's manual listing switch.
func (s *InstrumentService) ToggleAvailability(ctx context.Context, actor Identity, instrumentID uint) (models.Instrument, error) {
	inst, err := s.ownedInstrument(ctx, actor, instrumentID)
	if err != nil {
		return models.Instrument{}, err
	}

	inst.IsAvailable = !inst.IsAvailable
	if err := s.DB.WithContext(ctx).Save(&inst).Error; err != nil {
		return models.Instrument{}, err
	}
	return inst, nil
}

// Delist detaches the instrument from its owner and takes it off the
// market. The row survives so past bookings keep resolving.
func (s *InstrumentService) Delist(ctx context.Context, actor Identity, instrumentID uint) (models.Instrument, error) {
	inst, err := s.ownedInstrument(ctx, actor, instrumentID)
	if err != nil {
		return models.Instrument{}, err
	}

	inst.OwnerID = nil
	inst.IsAvailable = false
	if err := s.DB.WithContext(ctx).Save(&inst).Error; err != nil {
		return models.Instrument{}, err
	}
	s.Logger.Info("instrument delisted", zap.Uint("instrument_id", instrumentID))
	return inst, nil
}

func (s *InstrumentService) ListForOwner(ctx context.Context, ownerID uint) ([]models.Instrument, error) {
	var out []models.Instrument
	if err := s.DB.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *InstrumentService) GetByID(ctx context.Context, instrumentID uint) (models.Instrument, error) {
	var inst models.Instrument
	if err := s.DB.WithContext(ctx).Preload("Owner").First(&inst, instrumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inst, ErrInstrumentNotFound
		}
		return inst, err
	}
	return inst, nil
}

// PromoteToOwner flips a renter's role so they can list instruments.
func (s *InstrumentService) PromoteToOwner(ctx context.Context, userID uint) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND role = ?", userID, models.RoleRenter).
		Update("role", models.RoleOwner)
	if res.Error != nil {
		return res.Error
	}
	return nil
}
