package warehouse

import (
	"context"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemRepository persists catalog items
type ItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Item, error)
	FindByName(ctx context.Context, name string) (*Item, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]*Item, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, item *Item) error
}

// BatchRepository persists stock batches
type BatchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	FindByItem(ctx context.Context, itemID uuid.UUID) ([]*Batch, error)
	// FindByItemForUpdate loads an item's batches under a row-level write lock
	// so concurrent allocations against the same item serialize.
	FindByItemForUpdate(ctx context.Context, itemID uuid.UUID) ([]*Batch, error)
	FindByItemAndLot(ctx context.Context, itemID uuid.UUID, lotNumber string) (*Batch, error)
	FindExpiringWithin(ctx context.Context, days int, filter shared.Filter) ([]*Batch, error)
	SumQuantityByItem(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error)
	Save(ctx context.Context, batch *Batch) error
	SaveAll(ctx context.Context, batches []*Batch) error
}

// TransactionFilter narrows history queries beyond the generic filter
type TransactionFilter struct {
	shared.Filter
	Type            *TransactionType
	Status          *TransactionStatus
	PaymentStatus   *PaymentStatus
	SupplierID      *uuid.UUID
	ItemID          *uuid.UUID
	RelatedRecordID *uuid.UUID
	CreatedByID     *uuid.UUID
	DateFrom        *time.Time
	DateTo          *time.Time
}

// StorageTransactionRepository persists the movement ledger
type StorageTransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StorageTransaction, error)
	FindByCode(ctx context.Context, code string) (*StorageTransaction, error)
	FindAll(ctx context.Context, filter TransactionFilter) ([]*StorageTransaction, error)
	Count(ctx context.Context, filter TransactionFilter) (int64, error)
	CountByStatus(ctx context.Context, status TransactionStatus) (int64, error)
	SumValueByType(ctx context.Context, txType TransactionType, from, to time.Time) (decimal.Decimal, error)
	// SumLossValue totals stock written off in the period: disposal export
	// lines plus negative adjustment lines, valued at batch cost.
	SumLossValue(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	Create(ctx context.Context, tx *StorageTransaction) error
	Save(ctx context.Context, tx *StorageTransaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CountByDatePrefix counts transactions of a type on a calendar day,
	// used to derive the next sequence number in a transaction code.
	CountByDatePrefix(ctx context.Context, txType TransactionType, day time.Time) (int64, error)
}

// CodeGenerator produces unique, human-readable transaction codes.
// Injected so tests can pin codes deterministically.
type CodeGenerator interface {
	Next(ctx context.Context, txType TransactionType, day time.Time) (string, error)
}
