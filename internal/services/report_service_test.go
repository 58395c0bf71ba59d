// internal/services/report_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/ricelink/ricelink-backend/internal/apperrors"
	"github.com/ricelink/ricelink-backend/internal/models"
)

type ReportServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *ReportService
	farmer  *models.User
	miller  *models.User
}

func (suite *ReportServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.service = NewReportService(suite.db, nil)
	suite.farmer = newTestUser(suite.T(), suite.db, "somchai", models.RoleFarmer)
	suite.miller = newTestUser(suite.T(), suite.db, "mill-one", models.RoleMiller)
}

func (suite *ReportServiceTestSuite) addEstimation(field *models.RiceField, ndvi, yieldTon float64) {
	est := &models.YieldEstimation{FieldID: field.ID, NDVIMean: ndvi, EstimatedYieldTon: yieldTon}
	suite.Require().NoError(suite.db.Create(est).Error)
}

func (suite *ReportServiceTestSuite) TestDashboardAggregates() {
	a := newTestField(suite.T(), suite.db, suite.farmer, "paddy a", 10)
	b := newTestField(suite.T(), suite.db, suite.farmer, "paddy b", 8)

	suite.addEstimation(a, 0.55, 3.3) // good
	suite.addEstimation(a, 0.35, 1.1) // medium
	suite.addEstimation(b, 0.20, 0.0) // poor

	stats, err := suite.service.DashboardStats()
	suite.Require().NoError(err)

	suite.Equal(int64(2), stats.TotalFields)
	suite.InDelta(18.0, stats.TotalAreaRai, 1e-9)
	suite.Equal(int64(1), stats.TotalFarmers)
	suite.InDelta(4.4, stats.TotalYieldTon, 1e-9)
	suite.Equal(int64(1), stats.Health.Good)
	suite.Equal(int64(1), stats.Health.Medium)
	suite.Equal(int64(1), stats.Health.Poor)

	suite.Require().Len(stats.Varieties, 1)
	suite.Equal("KDML105", stats.Varieties[0].Variety)
	suite.Equal("Hom Mali 105", stats.Varieties[0].Label)
	suite.Equal(int64(2), stats.Varieties[0].Count)
}

func (suite *ReportServiceTestSuite) TestTrashedFieldsExcluded() {
	active := newTestField(suite.T(), suite.db, suite.farmer, "active", 10)
	trashed := newTestField(suite.T(), suite.db, suite.farmer, "trashed", 99)
	suite.addEstimation(active, 0.55, 3.3)
	suite.addEstimation(trashed, 0.55, 50.0)

	suite.Require().NoError(suite.db.Model(&models.RiceField{}).
		Where("id = ?", trashed.ID).Update("is_active", false).Error)

	stats, err := suite.service.DashboardStats()
	suite.Require().NoError(err)

	suite.Equal(int64(1), stats.TotalFields)
	suite.InDelta(10.0, stats.TotalAreaRai, 1e-9)
	suite.InDelta(3.3, stats.TotalYieldTon, 1e-9)
	suite.Equal(int64(1), stats.Health.Good)
}

func (suite *ReportServiceTestSuite) TestSoldTotalsExcludePendingRequests() {
	field := newTestField(suite.T(), suite.db, suite.farmer, "paddy", 10)

	now := time.Now()
	listings := []models.SaleListing{
		{FarmerID: suite.farmer.ID, FieldID: field.ID, QuantityTon: 3, PricePerTon: decimal.NewFromInt(12000),
			Phone: "081", Status: models.ListingStatusOpen},
		{FarmerID: suite.farmer.ID, FieldID: field.ID, QuantityTon: 2, PricePerTon: decimal.NewFromInt(11000),
			Phone: "081", Status: models.ListingStatusRequested, BuyerID: &suite.miller.ID},
		{FarmerID: suite.farmer.ID, FieldID: field.ID, QuantityTon: 4, PricePerTon: decimal.NewFromInt(13000),
			Phone: "081", Status: models.ListingStatusSold, BuyerID: &suite.miller.ID, SoldAt: &now},
	}
	for i := range listings {
		suite.Require().NoError(suite.db.Create(&listings[i]).Error)
	}

	stats, err := suite.service.DashboardStats()
	suite.Require().NoError(err)

	suite.Equal(int64(1), stats.Sales.Open)
	suite.Equal(int64(1), stats.Sales.Requested)
	suite.Equal(int64(1), stats.Sales.Sold)
	suite.InDelta(4.0, stats.Sales.SoldQuantityTon, 1e-9)
	suite.InDelta(52000.0, stats.Sales.SoldValueBaht, 1e-6)
}

func (suite *ReportServiceTestSuite) TestExportWithoutStorageFails() {
	_, err := suite.service.ExportDashboard()
	suite.True(apperrors.HasCode(err, apperrors.CodeInvalidState))
}

func TestReportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceTestSuite))
}
