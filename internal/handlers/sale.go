// internal/handlers/sale.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ricelink/ricelink-backend/internal/middleware"
	"github.com/ricelink/ricelink-backend/internal/services"
	"github.com/ricelink/ricelink-backend/internal/utils"
)

type SaleHandler struct {
	saleService *services.SaleService
}

func NewSaleHandler(saleService *services.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// POST /sales
func (h *SaleHandler) CreateListing(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	listing, err := h.saleService.CreateListing(actor, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"listing": listing,
	})
}

// GET /sales
func (h *SaleHandler) GetListings(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	listings, total, err := h.saleService.ListListings(actor, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(listings, total, params))
}

// GET /sales/market
func (h *SaleHandler) GetMarket(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	listings, total, err := h.saleService.OpenMarket(params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(listings, total, params))
}

// GET /sales/:id
func (h *SaleHandler) GetListing(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	listing, err := h.saleService.GetListing(id, actor)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"listing": listing,
	})
}

// POST /sales/:id/request
func (h *SaleHandler) RequestBuy(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.RequestBuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	listing, err := h.saleService.RequestBuy(id, actor, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"listing": listing,
	})
}

// POST /sales/:id/approve
func (h *SaleHandler) ApproveSale(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	listing, err := h.saleService.ApproveSale(id, actor)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"listing": listing,
	})
}

// POST /sales/:id/reject
func (h *SaleHandler) RejectRequest(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	listing, err := h.saleService.RejectRequest(id, actor)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"listing": listing,
	})
}
