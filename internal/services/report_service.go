// internal/services/report_service.go
package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ricelink/ricelink-backend/internal/apperrors"
	"github.com/ricelink/ricelink-backend/internal/models"
)

// NDVI bands for the dashboard crop-health chart.
const (
	healthGoodMin   = 0.5
	healthMediumMin = 0.3
)

// ReportService rolls up fields, estimations, and sales into the
// government dashboard aggregates. REQUESTED listings are pending, not
// sold, and are excluded from all sold totals.
type ReportService struct {
	db      *gorm.DB
	storage *StorageService
}

func NewReportService(db *gorm.DB, storage *StorageService) *ReportService {
	return &ReportService{db: db, storage: storage}
}

type HealthBuckets struct {
	Good   int64 `json:"good"`
	Medium int64 `json:"medium"`
	Poor   int64 `json:"poor"`
}

type VarietyCount struct {
	Variety string `json:"variety"`
	Label   string `json:"label"`
	Count   int64  `json:"count"`
}

type SalesSummary struct {
	Open            int64   `json:"open"`
	Requested       int64   `json:"requested"`
	Sold            int64   `json:"sold"`
	SoldQuantityTon float64 `json:"sold_quantity_ton"`
	SoldValueBaht   float64 `json:"sold_value_baht"`
}

type DashboardStats struct {
	TotalFields   int64          `json:"total_fields"`
	TotalAreaRai  float64        `json:"total_area_rai"`
	TotalFarmers  int64          `json:"total_farmers"`
	TotalYieldTon float64        `json:"total_yield_ton"`
	Health        HealthBuckets  `json:"health"`
	Varieties     []VarietyCount `json:"varieties"`
	Sales         SalesSummary   `json:"sales"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

func (s *ReportService) DashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{GeneratedAt: time.Now()}

	activeFields := s.db.Model(&models.RiceField{}).Where("is_active = ?", true)
	if err := activeFields.Count(&stats.TotalFields).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.db.Model(&models.RiceField{}).Where("is_active = ?", true).
		Select("COALESCE(SUM(area_rai), 0)").Scan(&stats.TotalAreaRai).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.db.Model(&models.RiceField{}).Where("is_active = ?", true).
		Distinct("owner_id").Count(&stats.TotalFarmers).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	// Estimations of trashed fields stay out of every aggregate.
	estimations := func() *gorm.DB {
		return s.db.Model(&models.YieldEstimation{}).
			Joins("JOIN rice_fields ON rice_fields.id = yield_estimations.field_id").
			Where("rice_fields.is_active = ?", true)
	}

	if err := estimations().
		Select("COALESCE(SUM(estimated_yield_ton), 0)").Scan(&stats.TotalYieldTon).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := estimations().Where("ndvi_mean >= ?", healthGoodMin).
		Count(&stats.Health.Good).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := estimations().Where("ndvi_mean >= ? AND ndvi_mean < ?", healthMediumMin, healthGoodMin).
		Count(&stats.Health.Medium).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := estimations().Where("ndvi_mean < ?", healthMediumMin).
		Count(&stats.Health.Poor).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	var varietyRows []struct {
		Variety string
		Total   int64
	}
	if err := s.db.Model(&models.RiceField{}).Where("is_active = ?", true).
		Select("variety, COUNT(*) AS total").Group("variety").
		Scan(&varietyRows).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	for _, row := range varietyRows {
		label := models.VarietyDisplayNames[models.RiceVariety(row.Variety)]
		if label == "" {
			label = row.Variety
		}
		stats.Varieties = append(stats.Varieties, VarietyCount{
			Variety: row.Variety,
			Label:   label,
			Count:   row.Total,
		})
	}

	listingCounts := map[models.ListingStatus]*int64{
		models.ListingStatusOpen:      &stats.Sales.Open,
		models.ListingStatusRequested: &stats.Sales.Requested,
		models.ListingStatusSold:      &stats.Sales.Sold,
	}
	for status, target := range listingCounts {
		if err := s.db.Model(&models.SaleListing{}).Where("status = ?", status).
			Count(target).Error; err != nil {
			return nil, apperrors.Internal(err)
		}
	}

	if err := s.db.Model(&models.SaleListing{}).Where("status = ?", models.ListingStatusSold).
		Select("COALESCE(SUM(quantity_ton), 0)").Scan(&stats.Sales.SoldQuantityTon).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.db.Model(&models.SaleListing{}).Where("status = ?", models.ListingStatusSold).
		Select("COALESCE(SUM(quantity_ton * price_per_ton), 0)").Scan(&stats.Sales.SoldValueBaht).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	return stats, nil
}

// ExportDashboard snapshots the dashboard aggregates into the S3 archive.
func (s *ReportService) ExportDashboard() (*ArchiveResult, error) {
	stats, err := s.DashboardStats()
	if err != nil {
		return nil, err
	}

	payload, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if s.storage == nil || !s.storage.Enabled() {
		return nil, apperrors.InvalidState("report storage is not configured for this deployment")
	}

	key := fmt.Sprintf("dashboard/%s.json", stats.GeneratedAt.UTC().Format("20060102T150405Z"))
	result, err := s.storage.ArchiveReport(key, payload, "application/json")
	if err != nil {
		if err == ErrStorageDisabled {
			return nil, apperrors.InvalidState("report storage is not configured for this deployment")
		}
		return nil, apperrors.Internal(err)
	}

	logrus.WithFields(logrus.Fields{"key": result.Key, "size": result.Size}).Info("Dashboard report archived")
	return result, nil
}
