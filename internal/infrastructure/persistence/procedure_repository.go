package persistence

import (
	"context"
	"errors"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProcedureRepository implements ProcedureRepository using GORM
type GormProcedureRepository struct {
	db *gorm.DB
}

// NewGormProcedureRepository creates a new GormProcedureRepository
func NewGormProcedureRepository(db *gorm.DB) *GormProcedureRepository {
	return &GormProcedureRepository{db: db}
}

// FindByID finds a procedure by its ID
func (r *GormProcedureRepository) FindByID(ctx context.Context, id uuid.UUID) (*clinical.Procedure, error) {
	var proc clinical.Procedure
	if err := r.db.WithContext(ctx).First(&proc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &proc, nil
}

// FindByIDForUpdate loads the procedure row under FOR UPDATE. Concurrent
// deduction attempts queue here, so only the first sees an unset marker.
func (r *GormProcedureRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*clinical.Procedure, error) {
	var proc clinical.Procedure
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&proc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &proc, nil
}

// Save creates or updates a procedure
func (r *GormProcedureRepository) Save(ctx context.Context, proc *clinical.Procedure) error {
	return r.db.WithContext(ctx).Save(proc).Error
}

var _ clinical.ProcedureRepository = (*GormProcedureRepository)(nil)
