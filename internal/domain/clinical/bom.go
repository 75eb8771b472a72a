package clinical

import (
	"context"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BOMLine is one material requirement in a service's bill of materials
type BOMLine struct {
	shared.BaseEntity
	ServiceID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_service_item,priority:1"`
	ItemID             uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_service_item,priority:2"`
	ItemName           string          `gorm:"type:varchar(100)"`
	Unit               string          `gorm:"type:varchar(30)"`
	QuantityPerService decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (BOMLine) TableName() string {
	return "service_bom_lines"
}

// NewBOMLine creates a bill-of-materials entry for a service
func NewBOMLine(serviceID, itemID uuid.UUID, itemName, unit string, perService decimal.Decimal) (*BOMLine, error) {
	if perService.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity per service must be positive")
	}
	return &BOMLine{
		BaseEntity:         shared.NewBaseEntity(),
		ServiceID:          serviceID,
		ItemID:             itemID,
		ItemName:           itemName,
		Unit:               unit,
		QuantityPerService: perService,
	}, nil
}

// BOMRepository resolves a service's material plan
type BOMRepository interface {
	FindByService(ctx context.Context, serviceID uuid.UUID) ([]*BOMLine, error)
	Save(ctx context.Context, line *BOMLine) error
	DeleteByService(ctx context.Context, serviceID uuid.UUID) error
}
