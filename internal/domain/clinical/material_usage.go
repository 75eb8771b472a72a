package clinical

import (
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialUsage records one item consumed by a procedure.
// PlannedQuantity is the BOM default, Quantity is what was deducted from
// stock, ActualQuantity is the post-hoc clinical revision. Revising the
// actual amount never re-credits stock; the variance stays on record.
type MaterialUsage struct {
	shared.BaseEntity
	ProcedureID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemName        string          `gorm:"type:varchar(100)"`
	Unit            string          `gorm:"type:varchar(30)"`
	PlannedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ActualQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	VarianceReason  string          `gorm:"type:text"`
	Notes           string          `gorm:"type:text"`
	RecordedBy      string          `gorm:"type:varchar(100)"`
	RecordedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MaterialUsage) TableName() string {
	return "material_usages"
}

// NewMaterialUsage creates a usage record seeded from the BOM plan.
// Quantity and ActualQuantity start equal to the planned amount.
func NewMaterialUsage(procedureID, itemID uuid.UUID, itemName, unit string, planned decimal.Decimal, recordedBy string) (*MaterialUsage, error) {
	if planned.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Planned quantity must be positive")
	}
	return &MaterialUsage{
		BaseEntity:      shared.NewBaseEntity(),
		ProcedureID:     procedureID,
		ItemID:          itemID,
		ItemName:        itemName,
		Unit:            unit,
		PlannedQuantity: planned,
		Quantity:        planned,
		ActualQuantity:  planned,
		RecordedBy:      recordedBy,
		RecordedAt:      time.Now(),
	}, nil
}

// OverrideQuantity replaces the to-be-deducted quantity before stock is
// settled. Only valid while the owning procedure is still undeducted.
func (u *MaterialUsage) OverrideQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	u.Quantity = quantity
	u.ActualQuantity = quantity
	u.Touch()
	return nil
}

// ReviseActual records the clinically observed consumption after deduction.
// Requires a reason whenever the revised amount differs from what was
// deducted. An upward revision signals extra stock to pull; a downward one is
// bookkeeping only.
func (u *MaterialUsage) ReviseActual(actual decimal.Decimal, reason, revisedBy string) (delta decimal.Decimal, err error) {
	if actual.IsNegative() {
		return decimal.Zero, shared.NewDomainError("INVALID_QUANTITY", "Actual quantity cannot be negative")
	}
	delta = actual.Sub(u.Quantity)
	if !delta.IsZero() && reason == "" {
		return decimal.Zero, shared.NewDomainError("INVALID_INPUT", "Variance reason is required when actual differs from deducted quantity")
	}
	u.ActualQuantity = actual
	u.VarianceReason = reason
	u.RecordedBy = revisedBy
	u.RecordedAt = time.Now()
	u.Touch()
	return delta, nil
}

// Variance returns actual minus deducted quantity
func (u *MaterialUsage) Variance() decimal.Decimal {
	return u.ActualQuantity.Sub(u.Quantity)
}
