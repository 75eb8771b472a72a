package warehouse

import (
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WarehouseType classifies where an item's stock is kept.
type WarehouseType string

const (
	// WarehouseTypeAmbient is regular room-temperature storage
	WarehouseTypeAmbient WarehouseType = "AMBIENT"
	// WarehouseTypeCold is cold-chain storage; every batch must carry an expiry date
	WarehouseTypeCold WarehouseType = "COLD"
)

// IsValid checks if the warehouse type is valid
func (t WarehouseType) IsValid() bool {
	switch t {
	case WarehouseTypeAmbient, WarehouseTypeCold:
		return true
	}
	return false
}

// String returns the string representation
func (t WarehouseType) String() string {
	return string(t)
}

// Item is a catalog entry for a consumable material.
// Actual stock is tracked per lot in Batch, never here.
type Item struct {
	shared.BaseEntity
	Name          string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description   string          `gorm:"type:text"`
	Unit          string          `gorm:"type:varchar(30);not null"`
	WarehouseType WarehouseType   `gorm:"type:varchar(20);not null"`
	MinStockLevel decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MaxStockLevel decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "items"
}

// NewItem creates a new catalog item
func NewItem(name, unit string, warehouseType WarehouseType) (*Item, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	if unit == "" {
		return nil, shared.NewDomainError("INVALID_UNIT", "Item unit cannot be empty")
	}
	if !warehouseType.IsValid() {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE_TYPE", "Unknown warehouse type")
	}
	return &Item{
		BaseEntity:    shared.NewBaseEntity(),
		Name:          name,
		Unit:          unit,
		WarehouseType: warehouseType,
	}, nil
}

// RequiresExpiry reports whether stock of this item must carry an expiry date.
// Cold-chain items never record stock without one.
func (i *Item) RequiresExpiry() bool {
	return i.WarehouseType == WarehouseTypeCold
}

// SetStockLevels updates the min/max alert thresholds
func (i *Item) SetStockLevels(minLevel, maxLevel decimal.Decimal) error {
	if minLevel.IsNegative() || maxLevel.IsNegative() {
		return shared.NewDomainError("INVALID_THRESHOLD", "Stock thresholds cannot be negative")
	}
	if maxLevel.GreaterThan(decimal.Zero) && minLevel.GreaterThan(maxLevel) {
		return shared.NewDomainError("INVALID_THRESHOLD", "Minimum stock level cannot exceed maximum")
	}
	i.MinStockLevel = minLevel
	i.MaxStockLevel = maxLevel
	i.Touch()
	return nil
}

// IsBelowMinimum reports whether the given on-hand total is below the alert threshold
func (i *Item) IsBelowMinimum(total decimal.Decimal) bool {
	return i.MinStockLevel.GreaterThan(decimal.Zero) && total.LessThan(i.MinStockLevel)
}
