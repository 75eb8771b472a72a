package clinical

import (
	"context"

	"github.com/google/uuid"
)

// ProcedureRepository persists procedures
type ProcedureRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Procedure, error)
	// FindByIDForUpdate loads the procedure under a row-level write lock so
	// concurrent deduction attempts serialize on the idempotency marker.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Procedure, error)
	Save(ctx context.Context, procedure *Procedure) error
}

// MaterialUsageRepository persists per-procedure material consumption
type MaterialUsageRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MaterialUsage, error)
	FindByProcedure(ctx context.Context, procedureID uuid.UUID) ([]*MaterialUsage, error)
	Save(ctx context.Context, usage *MaterialUsage) error
	SaveAll(ctx context.Context, usages []*MaterialUsage) error
}
