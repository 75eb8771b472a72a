package persistence

import (
	"context"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBOMRepository implements BOMRepository using GORM
type GormBOMRepository struct {
	db *gorm.DB
}

// NewGormBOMRepository creates a new GormBOMRepository
func NewGormBOMRepository(db *gorm.DB) *GormBOMRepository {
	return &GormBOMRepository{db: db}
}

// FindByService finds the bill of materials of a service
func (r *GormBOMRepository) FindByService(ctx context.Context, serviceID uuid.UUID) ([]*clinical.BOMLine, error) {
	var lines []*clinical.BOMLine
	if err := r.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("item_name ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// Save creates or updates a BOM line
func (r *GormBOMRepository) Save(ctx context.Context, line *clinical.BOMLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// DeleteByService removes a service's whole bill of materials
func (r *GormBOMRepository) DeleteByService(ctx context.Context, serviceID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&clinical.BOMLine{}, "service_id = ?", serviceID).Error
}

var _ clinical.BOMRepository = (*GormBOMRepository)(nil)
