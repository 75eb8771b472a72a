package persistence

import (
	"context"
	"errors"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMaterialUsageRepository implements MaterialUsageRepository using GORM
type GormMaterialUsageRepository struct {
	db *gorm.DB
}

// NewGormMaterialUsageRepository creates a new GormMaterialUsageRepository
func NewGormMaterialUsageRepository(db *gorm.DB) *GormMaterialUsageRepository {
	return &GormMaterialUsageRepository{db: db}
}

// FindByID finds a usage record by its ID
func (r *GormMaterialUsageRepository) FindByID(ctx context.Context, id uuid.UUID) (*clinical.MaterialUsage, error) {
	var usage clinical.MaterialUsage
	if err := r.db.WithContext(ctx).First(&usage, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &usage, nil
}

// FindByProcedure finds all usage records of a procedure
func (r *GormMaterialUsageRepository) FindByProcedure(ctx context.Context, procedureID uuid.UUID) ([]*clinical.MaterialUsage, error) {
	var usages []*clinical.MaterialUsage
	if err := r.db.WithContext(ctx).
		Where("procedure_id = ?", procedureID).
		Order("item_name ASC").
		Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}

// Save creates or updates a usage record
func (r *GormMaterialUsageRepository) Save(ctx context.Context, usage *clinical.MaterialUsage) error {
	return r.db.WithContext(ctx).Save(usage).Error
}

// SaveAll creates or updates multiple usage records
func (r *GormMaterialUsageRepository) SaveAll(ctx context.Context, usages []*clinical.MaterialUsage) error {
	if len(usages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(&usages).Error
}

var _ clinical.MaterialUsageRepository = (*GormMaterialUsageRepository)(nil)
