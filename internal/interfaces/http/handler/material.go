package handler

import (
	appclinical "github.com/clinic/backend/internal/application/clinical"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// MaterialHandler exposes the procedure material flows: planning from the
// service BOM, one-shot deduction, and post-settlement revisions.
type MaterialHandler struct {
	BaseHandler
	deduction *appclinical.DeductionService
}

// NewMaterialHandler creates a new MaterialHandler
func NewMaterialHandler(deduction *appclinical.DeductionService) *MaterialHandler {
	return &MaterialHandler{deduction: deduction}
}

// RegisterRoutes registers procedure material routes
func (h *MaterialHandler) RegisterRoutes(rg *gin.RouterGroup) {
	p := rg.Group("/procedures")
	{
		p.GET("/:id/materials", h.Usages)
		p.POST("/:id/materials/plan", h.Plan)
		p.POST("/:id/materials/deduct", h.Deduct)
		p.PUT("/:id/materials/actuals", h.ReviseBulk)
	}

	u := rg.Group("/materials/usages")
	{
		u.PUT("/:id/quantity", h.OverrideQuantity)
		u.PUT("/:id/actual", h.ReviseActual)
	}
}

// Usages returns a procedure's material usage records
func (h *MaterialHandler) Usages(c *gin.Context) {
	if _, ok := getActor(c); !ok {
		return
	}
	procedureID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	usages, err := h.deduction.GetUsages(c.Request.Context(), procedureID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, usages)
}

// Plan seeds usage records from the service BOM without touching stock
func (h *MaterialHandler) Plan(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	procedureID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	usages, err := h.deduction.PlanMaterials(c.Request.Context(), actor, procedureID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, usages)
}

// Deduct settles a procedure's materials against stock. Replays are benign
// no-ops returning the existing usages.
func (h *MaterialHandler) Deduct(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	procedureID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.deduction.DeductMaterials(c.Request.Context(), actor, procedureID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// OverrideQuantityRequest carries the replacement planned quantity
type OverrideQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// OverrideQuantity replaces a usage's to-be-deducted quantity before settlement
func (h *MaterialHandler) OverrideQuantity(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	usageID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req OverrideQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.deduction.OverrideQuantity(c.Request.Context(), actor, appclinical.QuantityOverride{
		UsageID:  usageID,
		Quantity: req.Quantity,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReviseActualRequest carries one observed consumption revision
type ReviseActualRequest struct {
	ActualQuantity decimal.Decimal `json:"actual_quantity"`
	Reason         string          `json:"reason"`
}

// ReviseActual records observed consumption for one usage after settlement
func (h *MaterialHandler) ReviseActual(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	usageID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ReviseActualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.deduction.ReviseActual(c.Request.Context(), actor, appclinical.ActualRevision{
		UsageID:        usageID,
		ActualQuantity: req.ActualQuantity,
		Reason:         req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReviseBulkRequest carries a batch of actual-consumption revisions
type ReviseBulkRequest struct {
	Revisions []appclinical.ActualRevision `json:"revisions" binding:"required,min=1,dive"`
}

// ReviseBulk revises actual consumption for several usages of one procedure
func (h *MaterialHandler) ReviseBulk(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	procedureID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ReviseBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	usages, err := h.deduction.ReviseActualBulk(c.Request.Context(), actor, procedureID, req.Revisions)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, usages)
}
