// internal/handlers/field.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ricelink/ricelink-backend/internal/middleware"
	"github.com/ricelink/ricelink-backend/internal/services"
	"github.com/ricelink/ricelink-backend/internal/utils"
)

type FieldHandler struct {
	fieldService          *services.FieldService
	classificationService *services.ClassificationService
}

func NewFieldHandler(fieldService *services.FieldService, classificationService *services.ClassificationService) *FieldHandler {
	return &FieldHandler{
		fieldService:          fieldService,
		classificationService: classificationService,
	}
}

// POST /fields
func (h *FieldHandler) CreateField(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	field, err := h.fieldService.CreateField(actor, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"field": field,
	})
}

// GET /fields
func (h *FieldHandler) GetFields(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	fields, total, err := h.fieldService.ListFields(actor, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(fields, total, params))
}

// GET /fields/trash
func (h *FieldHandler) GetTrash(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	fields, total, err := h.fieldService.ListTrash(actor, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(fields, total, params))
}

// GET /fields/:id
func (h *FieldHandler) GetField(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	field, err := h.fieldService.GetField(id, actor)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"field": field,
	})
}

// DELETE /fields/:id
func (h *FieldHandler) DeleteField(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.fieldService.SoftDeleteField(id, actor); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "field moved to trash",
	})
}

// POST /fields/:id/restore
func (h *FieldHandler) RestoreField(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	field, err := h.fieldService.RestoreField(id, actor)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"field": field,
	})
}

// DELETE /fields/:id/purge
func (h *FieldHandler) PurgeField(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.fieldService.PurgeField(id, actor); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "field permanently deleted",
	})
}

// POST /fields/:id/classify
func (h *FieldHandler) ClassifyField(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.classificationService.ClassifyField(c.Request.Context(), id, actor)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"estimation": result,
	})
}

// GET /fields/:id/estimations
func (h *FieldHandler) GetEstimations(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	estimations, total, err := h.classificationService.ListEstimations(id, actor, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(estimations, total, params))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}
