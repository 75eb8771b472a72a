package handler

import (
	appwarehouse "github.com/clinic/backend/internal/application/warehouse"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// StorageHandler handles warehouse movement endpoints: creating import,
// export, and adjustment slips and moving them through the approval workflow.
type StorageHandler struct {
	BaseHandler
	storage *appwarehouse.StorageService
}

// NewStorageHandler creates a new StorageHandler
func NewStorageHandler(storage *appwarehouse.StorageService) *StorageHandler {
	return &StorageHandler{storage: storage}
}

// RegisterRoutes registers storage mutation routes
func (h *StorageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/storage")
	{
		g.POST("/import", h.Import)
		g.POST("/export", h.Export)
		g.POST("/adjust", h.Adjust)

		tx := g.Group("/transactions")
		{
			tx.PUT("/:id", h.UpdateNotes)
			tx.DELETE("/:id",
				middleware.RequireCapability(shared.CapabilityDeleteTransaction), h.Delete)
			tx.POST("/:id/submit", h.Submit)
			tx.POST("/:id/approve",
				middleware.RequireCapability(shared.CapabilityApproveTransaction), h.Approve)
			tx.POST("/:id/reject",
				middleware.RequireCapability(shared.CapabilityApproveTransaction), h.Reject)
			tx.POST("/:id/cancel", h.Cancel)
			tx.POST("/:id/payments", h.RecordPayment)
		}
	}
}

// Import receives stock into lot batches and records a PN transaction
func (h *StorageHandler) Import(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req appwarehouse.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.storage.Import(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Export pulls stock via FEFO allocation and records a PX transaction
func (h *StorageHandler) Export(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req appwarehouse.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.storage.Export(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Adjust corrects lot quantities to counted values and records a DC transaction
func (h *StorageHandler) Adjust(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req appwarehouse.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.storage.Adjust(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// UpdateNotesRequest carries the replacement notes text
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

// UpdateNotes replaces the notes on a transaction header
func (h *StorageHandler) UpdateNotes(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.storage.UpdateNotes(c.Request.Context(), actor, id, req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Submit moves a draft transaction into the approval queue
func (h *StorageHandler) Submit(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.storage.Submit(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Approve approves a pending transaction
func (h *StorageHandler) Approve(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.storage.Approve(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reject rejects a pending transaction with a mandatory reason
func (h *StorageHandler) Reject(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req appwarehouse.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.storage.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel withdraws an undecided transaction, reversing any applied stock
func (h *StorageHandler) Cancel(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.storage.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RecordPayment applies a supplier payment to an import transaction
func (h *StorageHandler) RecordPayment(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req appwarehouse.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.storage.RecordPayment(c.Request.Context(), actor, id, req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes a transaction from the ledger after reversing its stock effect
func (h *StorageHandler) Delete(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.storage.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
