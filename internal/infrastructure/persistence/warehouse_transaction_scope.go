package persistence

import (
	"context"

	appwarehouse "github.com/clinic/backend/internal/application/warehouse"
	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/warehouse"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appwarehouse.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Items() warehouse.ItemRepository {
	return NewGormItemRepository(r.tx)
}

func (r *gormTransactionalRepositories) Batches() warehouse.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

func (r *gormTransactionalRepositories) Transactions() warehouse.StorageTransactionRepository {
	return NewGormStorageTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) Procedures() clinical.ProcedureRepository {
	return NewGormProcedureRepository(r.tx)
}

func (r *gormTransactionalRepositories) Usages() clinical.MaterialUsageRepository {
	return NewGormMaterialUsageRepository(r.tx)
}

func (r *gormTransactionalRepositories) BOM() clinical.BOMRepository {
	return NewGormBOMRepository(r.tx)
}

var _ appwarehouse.TransactionScope = (*GormTransactionScope)(nil)
var _ appwarehouse.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
