// internal/services/field_service.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ricelink/ricelink-backend/internal/apperrors"
	"github.com/ricelink/ricelink-backend/internal/config"
	"github.com/ricelink/ricelink-backend/internal/database"
	"github.com/ricelink/ricelink-backend/internal/geo"
	"github.com/ricelink/ricelink-backend/internal/models"
	"github.com/ricelink/ricelink-backend/internal/utils"
)

type FieldService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewFieldService(db *gorm.DB, cfg *config.Config) *FieldService {
	return &FieldService{db: db, cfg: cfg}
}

type CreateFieldRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Geometry json.RawMessage `json:"geometry"`
	Variety  string          `json:"variety" validate:"omitempty,rice_variety"`
	District string          `json:"district" validate:"omitempty,max=100"`
}

// CreateField validates and persists a new field. The boundary is parsed,
// geofenced, and its area recomputed server-side; a client-supplied area is
// never accepted.
func (s *FieldService) CreateField(owner *models.User, req *CreateFieldRequest) (*models.RiceField, error) {
	if !Authorize(owner.Role, models.RoleFarmer) {
		return nil, apperrors.Forbidden("only farmers can register fields")
	}

	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation(validationMessage(err))
	}

	boundary, err := geo.ParsePolygon(req.Geometry)
	if err != nil {
		if errors.Is(err, geo.ErrEmptyGeometry) {
			return nil, apperrors.Validation("draw the field boundary on the map")
		}
		return nil, apperrors.Validation(fmt.Sprintf("invalid boundary: %v", err))
	}

	if s.cfg.Geofence.Enabled {
		bounds := geo.Bounds{
			MinLon: s.cfg.Geofence.MinLon,
			MinLat: s.cfg.Geofence.MinLat,
			MaxLon: s.cfg.Geofence.MaxLon,
			MaxLat: s.cfg.Geofence.MaxLat,
		}
		if !bounds.Contains(boundary.Centroid()) {
			return nil, apperrors.OutOfBounds("field lies outside the Mueang Phayao service area")
		}
	}

	// Inactive fields of the same name do not block re-creation.
	var duplicates int64
	if err := s.db.Model(&models.RiceField{}).
		Where("owner_id = ? AND name = ? AND is_active = ?", owner.ID, req.Name, true).
		Count(&duplicates).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	if duplicates > 0 {
		return nil, apperrors.DuplicateName("you already have an active field with this name")
	}

	areaRai := roundTo(boundary.AreaSquareMeters()/s.cfg.Yield.SquareMetersPerRai, 2)

	variety := models.RiceVariety(req.Variety)
	if req.Variety == "" {
		variety = models.VarietyKDML105
	}
	district := req.District
	if district == "" {
		district = "Phayao"
	}

	field := &models.RiceField{
		OwnerID:  owner.ID,
		Name:     req.Name,
		Boundary: boundary,
		AreaRai:  areaRai,
		District: district,
		Variety:  variety,
		IsActive: true,
	}

	if err := s.db.Create(field).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("create field: %w", err))
	}

	logrus.WithFields(logrus.Fields{
		"field_id": field.ID,
		"owner_id": owner.ID,
		"area_rai": areaRai,
	}).Info("Field registered")

	return field, nil
}

// ListFields applies the read-side visibility rule: farmers see only their
// own fields, millers and supervisors see all active fields.
func (s *FieldService) ListFields(actor *models.User, params utils.PaginationParams) ([]models.RiceField, int64, error) {
	query := s.db.Model(&models.RiceField{}).Where("is_active = ?", true)
	if actor.Role == models.RoleFarmer {
		query = query.Where("owner_id = ?", actor.ID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "name", "area_rai"})
	query = utils.ApplyPagination(query, params)

	var fields []models.RiceField
	if err := query.Preload("Owner").Find(&fields).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return fields, total, nil
}

func (s *FieldService) GetField(id uuid.UUID, actor *models.User) (*models.RiceField, error) {
	var field models.RiceField
	if err := s.db.Preload("Owner").First(&field, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("field")
		}
		return nil, apperrors.Internal(err)
	}

	if actor.Role == models.RoleFarmer && field.OwnerID != actor.ID {
		return nil, apperrors.NotFound("field")
	}
	if !field.IsActive && field.OwnerID != actor.ID {
		return nil, apperrors.NotFound("field")
	}
	return &field, nil
}

// SoftDeleteField moves an active field to the trash.
func (s *FieldService) SoftDeleteField(id uuid.UUID, actor *models.User) error {
	field, err := s.ownedField(id, actor)
	if err != nil {
		return err
	}
	if !field.IsActive {
		return apperrors.InvalidState("field is already in the trash")
	}

	res := s.db.Model(&models.RiceField{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.InvalidState("field is already in the trash")
	}
	return nil
}

// ListTrash returns the owner's soft-deleted fields.
func (s *FieldService) ListTrash(actor *models.User, params utils.PaginationParams) ([]models.RiceField, int64, error) {
	query := s.db.Model(&models.RiceField{}).
		Where("owner_id = ? AND is_active = ?", actor.ID, false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "name"})
	query = utils.ApplyPagination(query, params)

	var fields []models.RiceField
	if err := query.Find(&fields).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return fields, total, nil
}

// RestoreField brings a trashed field back, unless an active field has
// since taken its name.
func (s *FieldService) RestoreField(id uuid.UUID, actor *models.User) (*models.RiceField, error) {
	field, err := s.ownedField(id, actor)
	if err != nil {
		return nil, err
	}
	if field.IsActive {
		return nil, apperrors.InvalidState("field is not in the trash")
	}

	var duplicates int64
	if err := s.db.Model(&models.RiceField{}).
		Where("owner_id = ? AND name = ? AND is_active = ?", actor.ID, field.Name, true).
		Count(&duplicates).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	if duplicates > 0 {
		return nil, apperrors.DuplicateName("an active field already uses this name")
	}

	res := s.db.Model(&models.RiceField{}).
		Where("id = ? AND is_active = ?", id, false).
		Update("is_active", true)
	if res.Error != nil {
		return nil, apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.InvalidState("field is not in the trash")
	}

	field.IsActive = true
	return field, nil
}

// PurgeField permanently deletes a trashed field and its estimation
// history. Fields referenced by sale listings cannot be purged: listing
// history is permanent.
func (s *FieldService) PurgeField(id uuid.UUID, actor *models.User) error {
	field, err := s.ownedField(id, actor)
	if err != nil {
		return err
	}
	if field.IsActive {
		return apperrors.InvalidState("only trashed fields can be permanently deleted")
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var listings int64
		if err := tx.Model(&models.SaleListing{}).Where("field_id = ?", id).Count(&listings).Error; err != nil {
			return err
		}
		if listings > 0 {
			return apperrors.InvalidState("field has sale history and cannot be deleted")
		}

		if err := tx.Where("field_id = ?", id).Delete(&models.YieldEstimation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.RiceField{}, "id = ?", id).Error
	})
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.Internal(err)
	}

	logrus.WithFields(logrus.Fields{"field_id": id, "owner_id": actor.ID}).Info("Field purged")
	return nil
}

func (s *FieldService) ownedField(id uuid.UUID, actor *models.User) (*models.RiceField, error) {
	var field models.RiceField
	if err := s.db.First(&field, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("field")
		}
		return nil, apperrors.Internal(err)
	}
	if field.OwnerID != actor.ID {
		return nil, apperrors.Forbidden("not your field")
	}
	return &field, nil
}

func roundTo(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}

func validationMessage(err error) string {
	if errs := utils.GetValidationErrors(err); len(errs) > 0 {
		return errs[0].Message
	}
	return "invalid input"
}
