package warehouse

import (
	"fmt"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Batch is a physical lot of one item sharing one expiry date.
// Created on first import of a lot, topped up on later imports, decremented on
// export/adjustment. Never deleted: zero-quantity batches remain for audit and
// expiry reporting.
type Batch struct {
	shared.BaseEntity
	ItemID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_item_lot,priority:1;index"`
	LotNumber      string          `gorm:"type:varchar(50);not null;uniqueIndex:uk_item_lot,priority:2"`
	ExpiryDate     *time.Time      `gorm:"index"`
	QuantityOnHand decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (Batch) TableName() string {
	return "item_batches"
}

// NewBatch creates a new stock batch for an item.
// The COLD-item expiry invariant is enforced against the owning item.
func NewBatch(item *Item, lotNumber string, expiryDate *time.Time, quantity, unitCost decimal.Decimal) (*Batch, error) {
	if lotNumber == "" {
		return nil, shared.NewDomainError("INVALID_LOT", "Lot number cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Batch quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}
	if item.RequiresExpiry() && expiryDate == nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE_DATA",
			fmt.Sprintf("Cold-chain item %q requires an expiry date", item.Name))
	}
	return &Batch{
		BaseEntity:     shared.NewBaseEntity(),
		ItemID:         item.ID,
		LotNumber:      lotNumber,
		ExpiryDate:     expiryDate,
		QuantityOnHand: quantity,
		UnitCost:       unitCost,
	}, nil
}

// IsExpired returns true if the batch has expired
func (b *Batch) IsExpired() bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(time.Now())
}

// ExpiresWithin returns true if the batch will expire within the given duration
func (b *Batch) ExpiresWithin(d time.Duration) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(time.Now().Add(d))
}

// HasStock returns true if the batch has available quantity
func (b *Batch) HasStock() bool {
	return b.QuantityOnHand.GreaterThan(decimal.Zero)
}

// Add increases the batch quantity (imports, reversals)
func (b *Batch) Add(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity to add must be positive")
	}
	b.QuantityOnHand = b.QuantityOnHand.Add(quantity)
	b.Touch()
	return nil
}

// Deduct removes quantity from the batch. Quantity-on-hand never goes negative;
// callers must have planned feasibility beforehand.
func (b *Batch) Deduct(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity to deduct must be positive")
	}
	if quantity.GreaterThan(b.QuantityOnHand) {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Lot %s has %s on hand, requested %s", b.LotNumber, b.QuantityOnHand, quantity))
	}
	b.QuantityOnHand = b.QuantityOnHand.Sub(quantity)
	b.Touch()
	return nil
}

// SetQuantity overwrites quantity-on-hand (physical count adjustments only)
func (b *Batch) SetQuantity(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity on hand cannot be negative")
	}
	b.QuantityOnHand = quantity
	b.Touch()
	return nil
}

// TotalValue returns quantity-on-hand valued at the batch's import cost
func (b *Batch) TotalValue() decimal.Decimal {
	return b.QuantityOnHand.Mul(b.UnitCost)
}
