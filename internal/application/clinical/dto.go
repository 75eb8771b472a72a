package clinical

import (
	"time"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UsageResponse is one material consumption record of a procedure
type UsageResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProcedureID     uuid.UUID       `json:"procedure_id"`
	ItemID          uuid.UUID       `json:"item_id"`
	ItemName        string          `json:"item_name"`
	Unit            string          `json:"unit"`
	PlannedQuantity decimal.Decimal `json:"planned_quantity"`
	Quantity        decimal.Decimal `json:"quantity"`
	ActualQuantity  decimal.Decimal `json:"actual_quantity"`
	Variance        decimal.Decimal `json:"variance"`
	VarianceReason  string          `json:"variance_reason,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	RecordedBy      string          `json:"recorded_by"`
	RecordedAt      time.Time       `json:"recorded_at"`
}

// ToUsageResponse maps a usage record
func ToUsageResponse(u *clinical.MaterialUsage) UsageResponse {
	return UsageResponse{
		ID:              u.ID,
		ProcedureID:     u.ProcedureID,
		ItemID:          u.ItemID,
		ItemName:        u.ItemName,
		Unit:            u.Unit,
		PlannedQuantity: u.PlannedQuantity,
		Quantity:        u.Quantity,
		ActualQuantity:  u.ActualQuantity,
		Variance:        u.Variance(),
		VarianceReason:  u.VarianceReason,
		Notes:           u.Notes,
		RecordedBy:      u.RecordedBy,
		RecordedAt:      u.RecordedAt,
	}
}

// ToUsageResponses maps a slice of usage records
func ToUsageResponses(usages []*clinical.MaterialUsage) []UsageResponse {
	responses := make([]UsageResponse, 0, len(usages))
	for _, u := range usages {
		responses = append(responses, ToUsageResponse(u))
	}
	return responses
}

// DeductionResponse is the outcome of settling a procedure's materials.
// AlreadyDeducted means the call was a no-op replay of an earlier settlement.
type DeductionResponse struct {
	ProcedureID     uuid.UUID       `json:"procedure_id"`
	AlreadyDeducted bool            `json:"already_deducted"`
	TransactionCode string          `json:"transaction_code,omitempty"`
	Usages          []UsageResponse `json:"usages"`
}

// QuantityOverride replaces a usage's to-be-deducted quantity before settlement
type QuantityOverride struct {
	UsageID  uuid.UUID       `json:"usage_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// ActualRevision records observed consumption after settlement
type ActualRevision struct {
	UsageID        uuid.UUID       `json:"usage_id" binding:"required"`
	ActualQuantity decimal.Decimal `json:"actual_quantity"`
	Reason         string          `json:"reason"`
}
