// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ricelink/ricelink-backend/internal/config"
	"github.com/ricelink/ricelink-backend/internal/handlers"
	"github.com/ricelink/ricelink-backend/internal/imagery"
	"github.com/ricelink/ricelink-backend/internal/middleware"
	"github.com/ricelink/ricelink-backend/internal/models"
	"github.com/ricelink/ricelink-backend/internal/services"
	"github.com/ricelink/ricelink-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	imageryProvider := imagery.NewClient(cfg.Imagery)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Warn("report archive storage disabled")
	}

	fieldService := services.NewFieldService(db, cfg)
	classificationService := services.NewClassificationService(db, cfg, imageryProvider)
	saleService := services.NewSaleService(db)
	reportService := services.NewReportService(db, storageService)

	// Initialize handlers
	fieldHandler := handlers.NewFieldHandler(fieldService, classificationService)
	saleHandler := handlers.NewSaleHandler(saleService)
	reportHandler := handlers.NewReportHandler(reportService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		utils.InternalErrorResponse(c, "")
	}))
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	r.NoRoute(func(c *gin.Context) {
		utils.NotFoundResponse(c, "route")
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthRequired(db))
	{
		// Field routes
		fields := v1.Group("/fields")
		{
			fields.POST("", middleware.RoleRequired(models.RoleFarmer), fieldHandler.CreateField)
			fields.GET("", fieldHandler.GetFields)
			fields.GET("/trash", middleware.RoleRequired(models.RoleFarmer), fieldHandler.GetTrash)
			fields.GET("/:id", fieldHandler.GetField)
			fields.DELETE("/:id", middleware.RoleRequired(models.RoleFarmer), fieldHandler.DeleteField)
			fields.POST("/:id/restore", middleware.RoleRequired(models.RoleFarmer), fieldHandler.RestoreField)
			fields.DELETE("/:id/purge", middleware.RoleRequired(models.RoleFarmer), fieldHandler.PurgeField)
			fields.POST("/:id/classify", middleware.ClassifyRateLimit(), fieldHandler.ClassifyField)
			fields.GET("/:id/estimations", fieldHandler.GetEstimations)
		}

		// Sale routes
		sales := v1.Group("/sales")
		{
			sales.POST("", middleware.RoleRequired(models.RoleFarmer), saleHandler.CreateListing)
			sales.GET("", saleHandler.GetListings)
			sales.GET("/market", middleware.RoleRequired(models.RoleMiller, models.RoleGovt, models.RoleAdmin), saleHandler.GetMarket)
			sales.GET("/:id", saleHandler.GetListing)
			sales.POST("/:id/request", middleware.RoleRequired(models.RoleMiller, models.RoleGovt), saleHandler.RequestBuy)
			sales.POST("/:id/approve", middleware.RoleRequired(models.RoleFarmer), saleHandler.ApproveSale)
			sales.POST("/:id/reject", middleware.RoleRequired(models.RoleFarmer), saleHandler.RejectRequest)
		}

		// Report routes
		reports := v1.Group("/reports")
		reports.Use(middleware.RoleRequired(models.RoleGovt, models.RoleAdmin))
		{
			reports.GET("/dashboard", reportHandler.GetDashboard)
			reports.POST("/dashboard/export", reportHandler.ExportDashboard)
		}
	}

	return r
}
