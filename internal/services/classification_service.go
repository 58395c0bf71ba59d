// internal/services/classification_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ricelink/ricelink-backend/internal/apperrors"
	"github.com/ricelink/ricelink-backend/internal/config"
	"github.com/ricelink/ricelink-backend/internal/imagery"
	"github.com/ricelink/ricelink-backend/internal/models"
	"github.com/ricelink/ricelink-backend/internal/utils"
)

type ClassificationService struct {
	db       *gorm.DB
	cfg      *config.Config
	provider imagery.Provider
}

func NewClassificationService(db *gorm.DB, cfg *config.Config, provider imagery.Provider) *ClassificationService {
	return &ClassificationService{db: db, cfg: cfg, provider: provider}
}

// ClassificationResult is the full payload of one classification run.
type ClassificationResult struct {
	FieldID          uuid.UUID        `json:"field_id"`
	NDVI             float64          `json:"ndvi"`
	NDBI             float64          `json:"ndbi"`
	Classification   models.LandCover `json:"classification"`
	Note             string           `json:"note"`
	YieldTon         float64          `json:"yield_ton"`
	RevenueBaht      decimal.Decimal  `json:"revenue_baht"`
	AreaRai          float64          `json:"area_rai"`
	CloudFraction    float64          `json:"cloud_fraction"`
	VisualizationURL string           `json:"visualization_url,omitempty"`
	EstimatedAt      time.Time        `json:"estimated_at"`
}

// Classify maps averaged spectral indices to a land-cover class. The rules
// apply in priority order; the first match wins.
func Classify(ndvi, ndbi float64, th config.ClassifyConfig) models.LandCover {
	switch {
	case ndvi < th.WaterMax:
		return models.LandCoverWater
	case ndbi > 0 && ndbi > ndvi:
		return models.LandCoverBuilding
	case ndvi < th.RoadMax:
		return models.LandCoverRoad
	case ndvi < th.YoungRiceMax:
		return models.LandCoverYoungRice
	default:
		return models.LandCoverMatureRice
	}
}

// YieldPerRai applies the linear yield model, clamped at zero.
func YieldPerRai(ndvi float64, y config.YieldConfig) float64 {
	return math.Max(0, (y.Slope*ndvi-y.Intercept)/y.Divisor)
}

// ClassifyField runs the full pipeline for one field: composite
// acquisition, index means, land-cover classification, yield and revenue
// estimation, and the audit record. The estimation row is written only
// after every step succeeded; a failed run persists nothing.
func (s *ClassificationService) ClassifyField(ctx context.Context, fieldID uuid.UUID, actor *models.User) (*ClassificationResult, error) {
	var field models.RiceField
	if err := s.db.First(&field, "id = ? AND is_active = ?", fieldID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("field")
		}
		return nil, apperrors.Internal(err)
	}
	if field.OwnerID != actor.ID && !IsSupervisor(actor.Role) {
		return nil, apperrors.Forbidden("not your field")
	}

	end := time.Now()
	window := imagery.DateRange{
		Start: end.AddDate(0, 0, -s.cfg.Imagery.LookbackDays),
		End:   end,
	}

	composite, err := s.provider.GetComposite(ctx, field.Boundary, window, s.cfg.Imagery.CloudThreshold)
	if err != nil {
		if errors.Is(err, imagery.ErrNoImagery) {
			return nil, apperrors.NoImagery(fmt.Sprintf(
				"no cloud-free satellite imagery in the last %d days", s.cfg.Imagery.LookbackDays))
		}
		return nil, apperrors.ImageryService(err)
	}

	ndviMean, err := composite.MeanIndex(ctx, imagery.ExprNDVI, field.Boundary, s.cfg.Imagery.Scale)
	if err != nil {
		return nil, apperrors.ImageryService(err)
	}
	if ndviMean == nil {
		return nil, apperrors.InsufficientData("boundary is too small or fully cloud-masked")
	}

	ndbiMean, err := composite.MeanIndex(ctx, imagery.ExprNDBI, field.Boundary, s.cfg.Imagery.Scale)
	if err != nil {
		return nil, apperrors.ImageryService(err)
	}
	ndbi := 0.0
	if ndbiMean != nil {
		ndbi = *ndbiMean
	}
	ndvi := *ndviMean

	class := Classify(ndvi, ndbi, s.cfg.Classify)

	yieldTon := 0.0
	revenue := decimal.Zero
	if class == models.LandCoverMatureRice {
		yieldTon = roundTo(YieldPerRai(ndvi, s.cfg.Yield)*field.AreaRai, 2)
		price := s.cfg.Prices.PriceFor(string(field.Variety))
		revenue = decimal.NewFromFloat(yieldTon).Mul(decimal.NewFromFloat(price)).Round(2)
	}

	// Audit trail: one record per run, rice or not.
	estimation := &models.YieldEstimation{
		FieldID:           field.ID,
		NDVIMean:          ndvi,
		EstimatedYieldTon: yieldTon,
	}
	if err := s.db.Create(estimation).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("persist estimation: %w", err))
	}

	logrus.WithFields(logrus.Fields{
		"field_id":       field.ID,
		"ndvi":           ndvi,
		"ndbi":           ndbi,
		"classification": class,
		"yield_ton":      yieldTon,
	}).Info("Field classified")

	return &ClassificationResult{
		FieldID:          field.ID,
		NDVI:             roundTo(ndvi, 4),
		NDBI:             roundTo(ndbi, 4),
		Classification:   class,
		Note:             classificationNote(class, yieldTon),
		YieldTon:         yieldTon,
		RevenueBaht:      revenue,
		AreaRai:          field.AreaRai,
		CloudFraction:    composite.CloudFraction(),
		VisualizationURL: composite.VisualizationURL(),
		EstimatedAt:      estimation.CreatedAt,
	}, nil
}

// ListEstimations returns the append-only estimation history of a field.
func (s *ClassificationService) ListEstimations(fieldID uuid.UUID, actor *models.User, params utils.PaginationParams) ([]models.YieldEstimation, int64, error) {
	var field models.RiceField
	if err := s.db.First(&field, "id = ?", fieldID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, apperrors.NotFound("field")
		}
		return nil, 0, apperrors.Internal(err)
	}
	if field.OwnerID != actor.ID && !IsSupervisor(actor.Role) {
		return nil, 0, apperrors.Forbidden("not your field")
	}

	query := s.db.Model(&models.YieldEstimation{}).Where("field_id = ?", fieldID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}

	query = query.Order("created_at DESC")
	query = utils.ApplyPagination(query, params)

	var estimations []models.YieldEstimation
	if err := query.Find(&estimations).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return estimations, total, nil
}

func classificationNote(class models.LandCover, yieldTon float64) string {
	switch class {
	case models.LandCoverWater:
		return "Water detected over the boundary; no rice yield expected."
	case models.LandCoverBuilding:
		return "Built-up surfaces dominate the boundary; check the drawn boundary."
	case models.LandCoverRoad:
		return "Bare soil or paved surface; no standing crop detected."
	case models.LandCoverYoungRice:
		return "Young rice detected; too early for a reliable yield estimate."
	default:
		return fmt.Sprintf("Mature rice detected; estimated yield %.2f tons.", yieldTon)
	}
}
