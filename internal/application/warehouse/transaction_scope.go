package warehouse

import (
	"context"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/warehouse"
)

// TransactionScope provides transactional access to warehouse and clinical
// repositories. When a function is executed within a transaction scope, all
// repository operations are part of the same database transaction and commit
// or roll back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a
// transaction. All repositories returned share the same underlying database
// transaction, so a FEFO deduction, its ledger entry, and the procedure
// marker land or vanish together.
type TransactionalRepositories interface {
	Items() warehouse.ItemRepository
	Batches() warehouse.BatchRepository
	Transactions() warehouse.StorageTransactionRepository
	Procedures() clinical.ProcedureRepository
	Usages() clinical.MaterialUsageRepository
	BOM() clinical.BOMRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Useful in tests where repositories are in-memory fakes.
type NoOpTransactionScope struct {
	ItemRepo        warehouse.ItemRepository
	BatchRepo       warehouse.BatchRepository
	TransactionRepo warehouse.StorageTransactionRepository
	ProcedureRepo   clinical.ProcedureRepository
	UsageRepo       clinical.MaterialUsageRepository
	BOMRepo         clinical.BOMRepository
}

// Execute runs the function against the scope's repositories directly.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Items() warehouse.ItemRepository { return s.ItemRepo }

func (s *NoOpTransactionScope) Batches() warehouse.BatchRepository { return s.BatchRepo }

func (s *NoOpTransactionScope) Transactions() warehouse.StorageTransactionRepository {
	return s.TransactionRepo
}

func (s *NoOpTransactionScope) Procedures() clinical.ProcedureRepository { return s.ProcedureRepo }

func (s *NoOpTransactionScope) Usages() clinical.MaterialUsageRepository { return s.UsageRepo }

func (s *NoOpTransactionScope) BOM() clinical.BOMRepository { return s.BOMRepo }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
