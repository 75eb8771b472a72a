package warehouse

import (
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/warehouse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ImportLineRequest is one received lot on an import slip
type ImportLineRequest struct {
	ItemID     uuid.UUID       `json:"item_id" binding:"required"`
	LotNumber  string          `json:"lot_number" binding:"required"`
	ExpiryDate *time.Time      `json:"expiry_date"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Notes      string          `json:"notes"`
}

// ImportRequest creates an import transaction and its batches
type ImportRequest struct {
	TransactionDate time.Time           `json:"transaction_date"`
	SupplierID      *uuid.UUID          `json:"supplier_id"`
	SupplierName    string              `json:"supplier_name"`
	InvoiceNumber   string              `json:"invoice_number"`
	DueDate         *time.Time          `json:"due_date"`
	Notes           string              `json:"notes"`
	Lines           []ImportLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ExportLineRequest is one item to pull from stock, FEFO decides the lots
type ExportLineRequest struct {
	ItemID   uuid.UUID       `json:"item_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	Notes    string          `json:"notes"`
}

// ExportRequest creates an export transaction via FEFO allocation
type ExportRequest struct {
	TransactionDate time.Time            `json:"transaction_date"`
	ExportType      warehouse.ExportType `json:"export_type" binding:"required"`
	RelatedRecordID *uuid.UUID           `json:"related_record_id"`
	Notes           string               `json:"notes"`
	Lines           []ExportLineRequest  `json:"lines" binding:"required,min=1,dive"`
}

// AdjustmentLineRequest corrects one lot to a counted quantity
type AdjustmentLineRequest struct {
	ItemID      uuid.UUID       `json:"item_id" binding:"required"`
	LotNumber   string          `json:"lot_number" binding:"required"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason" binding:"required"`
}

// AdjustmentRequest records a physical count correction
type AdjustmentRequest struct {
	TransactionDate time.Time               `json:"transaction_date"`
	Notes           string                  `json:"notes"`
	Lines           []AdjustmentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// RejectRequest carries the mandatory rejection reason
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// PaymentRequest records a supplier payment against an import
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// TransactionLineResponse is a ledger line. Cost fields are nil when the
// caller lacks the cost-viewing capability.
type TransactionLineResponse struct {
	ID         uuid.UUID        `json:"id"`
	ItemID     uuid.UUID        `json:"item_id"`
	ItemName   string           `json:"item_name"`
	Unit       string           `json:"unit"`
	LotNumber  string           `json:"lot_number"`
	ExpiryDate *time.Time       `json:"expiry_date,omitempty"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	TotalCost  *decimal.Decimal `json:"total_cost,omitempty"`
	Notes      string           `json:"notes,omitempty"`
}

// TransactionResponse is a ledger header with lines
type TransactionResponse struct {
	ID              uuid.UUID                   `json:"id"`
	Code            string                      `json:"code"`
	Type            warehouse.TransactionType   `json:"type"`
	Status          warehouse.TransactionStatus `json:"status"`
	TransactionDate time.Time                   `json:"transaction_date"`
	SupplierID      *uuid.UUID                  `json:"supplier_id,omitempty"`
	SupplierName    string                      `json:"supplier_name,omitempty"`
	InvoiceNumber   string                      `json:"invoice_number,omitempty"`
	DueDate         *time.Time                  `json:"due_date,omitempty"`
	PaymentStatus   warehouse.PaymentStatus     `json:"payment_status,omitempty"`
	PaidAmount      *decimal.Decimal            `json:"paid_amount,omitempty"`
	TotalValue      *decimal.Decimal            `json:"total_value,omitempty"`
	RemainingDebt   *decimal.Decimal            `json:"remaining_debt,omitempty"`
	ExportType      warehouse.ExportType        `json:"export_type,omitempty"`
	RelatedRecordID *uuid.UUID                  `json:"related_record_id,omitempty"`
	Notes           string                      `json:"notes,omitempty"`
	CreatedByName   string                      `json:"created_by_name"`
	ApprovedByName  string                      `json:"approved_by_name,omitempty"`
	ApprovedAt      *time.Time                  `json:"approved_at,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	Lines           []TransactionLineResponse   `json:"lines"`
}

// ToTransactionResponse maps a ledger entry for the given viewer. Monetary
// fields are stripped here, at the mapping boundary, when the viewer lacks
// the cost capability; masked values never leave the application layer.
func ToTransactionResponse(tx *warehouse.StorageTransaction, viewer shared.Actor) TransactionResponse {
	showCost := viewer.HasCapability(shared.CapabilityViewCost)

	resp := TransactionResponse{
		ID:              tx.ID,
		Code:            tx.Code,
		Type:            tx.Type,
		Status:          tx.Status,
		TransactionDate: tx.TransactionDate,
		SupplierID:      tx.SupplierID,
		SupplierName:    tx.SupplierName,
		InvoiceNumber:   tx.InvoiceNumber,
		DueDate:         tx.DueDate,
		PaymentStatus:   tx.PaymentStatus,
		ExportType:      tx.ExportType,
		RelatedRecordID: tx.RelatedRecordID,
		Notes:           tx.Notes,
		CreatedByName:   tx.CreatedByName,
		ApprovedByName:  tx.ApprovedByName,
		ApprovedAt:      tx.ApprovedAt,
		CreatedAt:       tx.CreatedAt,
	}
	if showCost {
		total := tx.TotalValue
		paid := tx.PaidAmount
		debt := tx.RemainingDebt()
		resp.TotalValue = &total
		resp.PaidAmount = &paid
		resp.RemainingDebt = &debt
	}

	resp.Lines = make([]TransactionLineResponse, 0, len(tx.Lines))
	for _, line := range tx.Lines {
		lr := TransactionLineResponse{
			ID:         line.ID,
			ItemID:     line.ItemID,
			ItemName:   line.ItemName,
			Unit:       line.Unit,
			LotNumber:  line.LotNumber,
			ExpiryDate: line.ExpiryDate,
			Quantity:   line.Quantity,
			Notes:      line.Notes,
		}
		if showCost {
			unitCost := line.UnitCost
			totalCost := line.TotalCost
			lr.UnitCost = &unitCost
			lr.TotalCost = &totalCost
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}

// BatchResponse is a stock batch view
type BatchResponse struct {
	ID             uuid.UUID        `json:"id"`
	ItemID         uuid.UUID        `json:"item_id"`
	LotNumber      string           `json:"lot_number"`
	ExpiryDate     *time.Time       `json:"expiry_date,omitempty"`
	QuantityOnHand decimal.Decimal  `json:"quantity_on_hand"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"`
	Expired        bool             `json:"expired"`
}

// ToBatchResponse maps a batch for the given viewer, masking cost
func ToBatchResponse(b *warehouse.Batch, viewer shared.Actor) BatchResponse {
	resp := BatchResponse{
		ID:             b.ID,
		ItemID:         b.ItemID,
		LotNumber:      b.LotNumber,
		ExpiryDate:     b.ExpiryDate,
		QuantityOnHand: b.QuantityOnHand,
		Expired:        b.IsExpired(),
	}
	if viewer.HasCapability(shared.CapabilityViewCost) {
		cost := b.UnitCost
		resp.UnitCost = &cost
	}
	return resp
}

// StatsResponse summarizes ledger activity in a period
type StatsResponse struct {
	PendingApprovals int64            `json:"pending_approvals"`
	ImportValue      *decimal.Decimal `json:"import_value,omitempty"`
	ExportValue      *decimal.Decimal `json:"export_value,omitempty"`
	LossValue        *decimal.Decimal `json:"loss_value,omitempty"`
	PeriodFrom       time.Time        `json:"period_from"`
	PeriodTo         time.Time        `json:"period_to"`
}
