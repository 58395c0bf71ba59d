// internal/handlers/report.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ricelink/ricelink-backend/internal/services"
	"github.com/ricelink/ricelink-backend/internal/utils"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GET /reports/dashboard
func (h *ReportHandler) GetDashboard(c *gin.Context) {
	stats, err := h.reportService.DashboardStats()
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"dashboard": stats,
	})
}

// POST /reports/dashboard/export
func (h *ReportHandler) ExportDashboard(c *gin.Context) {
	result, err := h.reportService.ExportDashboard()
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"archive": result,
	})
}
