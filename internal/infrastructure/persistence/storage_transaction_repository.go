package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/warehouse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStorageTransactionRepository implements StorageTransactionRepository using GORM
type GormStorageTransactionRepository struct {
	db *gorm.DB
}

// NewGormStorageTransactionRepository creates a new GormStorageTransactionRepository
func NewGormStorageTransactionRepository(db *gorm.DB) *GormStorageTransactionRepository {
	return &GormStorageTransactionRepository{db: db}
}

// FindByID finds a transaction with its lines by ID
func (r *GormStorageTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*warehouse.StorageTransaction, error) {
	var tx warehouse.StorageTransaction
	if err := r.db.WithContext(ctx).Preload("Lines").First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// FindByCode finds a transaction with its lines by code
func (r *GormStorageTransactionRepository) FindByCode(ctx context.Context, code string) (*warehouse.StorageTransaction, error) {
	var tx warehouse.StorageTransaction
	if err := r.db.WithContext(ctx).Preload("Lines").First(&tx, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// FindAll lists transactions matching the filter with their lines
func (r *GormStorageTransactionRepository) FindAll(ctx context.Context, filter warehouse.TransactionFilter) ([]*warehouse.StorageTransaction, error) {
	var txs []*warehouse.StorageTransaction
	query := r.applyFilter(r.db.WithContext(ctx).Model(&warehouse.StorageTransaction{}), filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	orderBy := ValidateSortField(filter.OrderBy, StorageTransactionSortFields, "transaction_date")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Preload("Lines").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// Count counts transactions matching the filter
func (r *GormStorageTransactionRepository) Count(ctx context.Context, filter warehouse.TransactionFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&warehouse.StorageTransaction{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts transactions in a workflow state
func (r *GormStorageTransactionRepository) CountByStatus(ctx context.Context, status warehouse.TransactionStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&warehouse.StorageTransaction{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumValueByType totals transaction values of one type in a period.
// Cancelled and rejected entries do not count.
func (r *GormStorageTransactionRepository) SumValueByType(ctx context.Context, txType warehouse.TransactionType, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Model(&warehouse.StorageTransaction{}).
		Where("type = ?", txType).
		Where("status NOT IN ?", []warehouse.TransactionStatus{
			warehouse.TransactionStatusCancelled,
			warehouse.TransactionStatusRejected,
		}).
		Where("transaction_date >= ? AND transaction_date <= ?", from, to).
		Select("COALESCE(SUM(total_value), 0)").
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// SumLossValue totals written-off stock in a period: disposal export lines
// plus negative adjustment lines, valued at batch cost.
func (r *GormStorageTransactionRepository) SumLossValue(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(loss), 0) FROM (
			SELECT l.total_cost AS loss
			FROM storage_transaction_lines l
			JOIN storage_transactions t ON t.id = l.transaction_id
			WHERE t.type = ? AND t.export_type = ?
			  AND t.status NOT IN (?, ?)
			  AND t.transaction_date >= ? AND t.transaction_date <= ?
			UNION ALL
			SELECT -l.total_cost AS loss
			FROM storage_transaction_lines l
			JOIN storage_transactions t ON t.id = l.transaction_id
			WHERE t.type = ? AND l.total_cost < 0
			  AND t.status NOT IN (?, ?)
			  AND t.transaction_date >= ? AND t.transaction_date <= ?
		) losses`,
		warehouse.TransactionTypeExport, warehouse.ExportTypeDisposal,
		warehouse.TransactionStatusCancelled, warehouse.TransactionStatusRejected,
		from, to,
		warehouse.TransactionTypeAdjustment,
		warehouse.TransactionStatusCancelled, warehouse.TransactionStatusRejected,
		from, to,
	).Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// Create inserts a new transaction with its lines
func (r *GormStorageTransactionRepository) Create(ctx context.Context, tx *warehouse.StorageTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// Save updates a transaction header. Lines are immutable once written.
func (r *GormStorageTransactionRepository) Save(ctx context.Context, tx *warehouse.StorageTransaction) error {
	return r.db.WithContext(ctx).Omit("Lines").Save(tx).Error
}

// Delete removes a transaction and its lines
func (r *GormStorageTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&warehouse.StorageTransactionLine{}, "transaction_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&warehouse.StorageTransaction{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountByDatePrefix counts transactions of a type on one calendar day
func (r *GormStorageTransactionRepository) CountByDatePrefix(ctx context.Context, txType warehouse.TransactionType, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	var count int64
	if err := r.db.WithContext(ctx).Model(&warehouse.StorageTransaction{}).
		Where("type = ?", txType).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormStorageTransactionRepository) applyFilter(query *gorm.DB, filter warehouse.TransactionFilter) *gorm.DB {
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.RelatedRecordID != nil {
		query = query.Where("related_record_id = ?", *filter.RelatedRecordID)
	}
	if filter.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filter.CreatedByID)
	}
	if filter.ItemID != nil {
		query = query.Where("id IN (SELECT transaction_id FROM storage_transaction_lines WHERE item_id = ?)", *filter.ItemID)
	}
	if filter.DateFrom != nil {
		query = query.Where("transaction_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("transaction_date <= ?", *filter.DateTo)
	}
	if filter.Search != "" {
		query = query.Where("code ILIKE ? OR invoice_number ILIKE ? OR supplier_name ILIKE ?",
			"%"+filter.Search+"%", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	return query
}

var _ warehouse.StorageTransactionRepository = (*GormStorageTransactionRepository)(nil)
