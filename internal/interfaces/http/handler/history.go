package handler

import (
	"strconv"
	"time"

	appwarehouse "github.com/clinic/backend/internal/application/warehouse"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/warehouse"
	"github.com/clinic/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HistoryHandler serves the read side of the ledger: transaction history,
// batch views, expiry reporting, and period statistics. Cost masking happens
// in the application layer; this handler only forwards the viewer.
type HistoryHandler struct {
	BaseHandler
	history *appwarehouse.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(history *appwarehouse.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// RegisterRoutes registers storage read routes
func (h *HistoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/storage")
	{
		g.GET("/transactions", h.List)
		g.GET("/transactions/:id", h.Get)
		g.GET("/transactions/code/:code", h.GetByCode)
		g.GET("/batches/item/:itemId", h.ItemBatches)
		g.GET("/batches/expiring", h.ExpiringBatches)
		g.GET("/stats", h.Stats)
	}
}

// buildTransactionFilter assembles the repository filter from query params
func (h *HistoryHandler) buildTransactionFilter(c *gin.Context) (warehouse.TransactionFilter, bool) {
	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		h.BadRequest(c, err.Error())
		return warehouse.TransactionFilter{}, false
	}

	filter := warehouse.TransactionFilter{
		Filter: shared.Filter{
			Page:     list.Page,
			PageSize: list.PageSize,
			OrderBy:  list.OrderBy,
			OrderDir: list.OrderDir,
			Search:   list.Search,
		},
	}

	if v := c.Query("type"); v != "" {
		t := warehouse.TransactionType(v)
		filter.Type = &t
	}
	if v := c.Query("status"); v != "" {
		s := warehouse.TransactionStatus(v)
		filter.Status = &s
	}
	if v := c.Query("payment_status"); v != "" {
		p := warehouse.PaymentStatus(v)
		filter.PaymentStatus = &p
	}
	if v := c.Query("supplier_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			h.BadRequest(c, "Invalid supplier_id, expected UUID")
			return warehouse.TransactionFilter{}, false
		}
		filter.SupplierID = &id
	}
	if v := c.Query("item_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			h.BadRequest(c, "Invalid item_id, expected UUID")
			return warehouse.TransactionFilter{}, false
		}
		filter.ItemID = &id
	}
	if v := c.Query("related_record_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			h.BadRequest(c, "Invalid related_record_id, expected UUID")
			return warehouse.TransactionFilter{}, false
		}
		filter.RelatedRecordID = &id
	}
	if v := c.Query("created_by"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			h.BadRequest(c, "Invalid created_by, expected UUID")
			return warehouse.TransactionFilter{}, false
		}
		filter.CreatedByID = &id
	}
	if v := c.Query("date_from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			h.BadRequest(c, "Invalid date_from, expected RFC3339 or YYYY-MM-DD")
			return warehouse.TransactionFilter{}, false
		}
		filter.DateFrom = &t
	}
	if v := c.Query("date_to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			h.BadRequest(c, "Invalid date_to, expected RFC3339 or YYYY-MM-DD")
			return warehouse.TransactionFilter{}, false
		}
		filter.DateTo = &t
	}

	return filter, true
}

// List returns transactions matching the filter, paginated and cost-masked
func (h *HistoryHandler) List(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	filter, ok := h.buildTransactionFilter(c)
	if !ok {
		return
	}

	page, err := h.history.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get returns one transaction by ID
func (h *HistoryHandler) Get(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.history.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetByCode returns one transaction by its human-readable code
func (h *HistoryHandler) GetByCode(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	resp, err := h.history.GetByCode(c.Request.Context(), actor, c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ItemBatches returns an item's batches in FEFO order
func (h *HistoryHandler) ItemBatches(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	itemID, ok := h.parseIDParam(c, "itemId")
	if !ok {
		return
	}

	batches, err := h.history.ItemBatches(c.Request.Context(), actor, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batches)
}

// ExpiringBatches returns batches expiring within the requested window
func (h *HistoryHandler) ExpiringBatches(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	days := 0
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			h.BadRequest(c, "Invalid days, expected a non-negative integer")
			return
		}
		days = parsed
	}

	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	batches, err := h.history.ExpiringBatches(c.Request.Context(), actor, days, shared.Filter{
		Page:     list.Page,
		PageSize: list.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batches)
}

// Stats returns period statistics; monetary aggregates only with the cost capability
func (h *HistoryHandler) Stats(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var from, to time.Time
	if v := c.Query("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			h.BadRequest(c, "Invalid from, expected RFC3339 or YYYY-MM-DD")
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			h.BadRequest(c, "Invalid to, expected RFC3339 or YYYY-MM-DD")
			return
		}
		to = t
	}

	stats, err := h.history.Stats(c.Request.Context(), actor, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
