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
	"gorm.io/gorm/clause"
)

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*warehouse.Batch, error) {
	var batch warehouse.Batch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByItem finds all batches of an item in FEFO order
func (r *GormBatchRepository) FindByItem(ctx context.Context, itemID uuid.UUID) ([]*warehouse.Batch, error) {
	var batches []*warehouse.Batch
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("COALESCE(expiry_date, '9999-12-31') ASC, created_at ASC"). // FEFO (First Expired, First Out)
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindByItemForUpdate loads an item's batches under FOR UPDATE so concurrent
// allocations against the same item serialize on the row locks.
func (r *GormBatchRepository) FindByItemForUpdate(ctx context.Context, itemID uuid.UUID) ([]*warehouse.Batch, error) {
	var batches []*warehouse.Batch
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("item_id = ?", itemID).
		Order("COALESCE(expiry_date, '9999-12-31') ASC, created_at ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindByItemAndLot finds one lot of an item
func (r *GormBatchRepository) FindByItemAndLot(ctx context.Context, itemID uuid.UUID, lotNumber string) (*warehouse.Batch, error) {
	var batch warehouse.Batch
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND lot_number = ?", itemID, lotNumber).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindExpiringWithin finds stocked batches expiring within the given number of days
func (r *GormBatchRepository) FindExpiringWithin(ctx context.Context, days int, filter shared.Filter) ([]*warehouse.Batch, error) {
	var batches []*warehouse.Batch
	now := time.Now()
	threshold := now.AddDate(0, 0, days)

	query := r.db.WithContext(ctx).Model(&warehouse.Batch{}).
		Where("quantity_on_hand > 0").
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", threshold)
	query = r.applyFilter(query, filter)

	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// SumQuantityByItem totals quantity-on-hand across an item's batches
func (r *GormBatchRepository) SumQuantityByItem(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Model(&warehouse.Batch{}).
		Where("item_id = ?", itemID).
		Select("COALESCE(SUM(quantity_on_hand), 0)").
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// Save creates or updates a batch
func (r *GormBatchRepository) Save(ctx context.Context, batch *warehouse.Batch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// SaveAll creates or updates multiple batches
func (r *GormBatchRepository) SaveAll(ctx context.Context, batches []*warehouse.Batch) error {
	if len(batches) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(&batches).Error
}

func (r *GormBatchRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, BatchSortFields, "expiry_date")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("expiry_date ASC")
	}
	return query
}

var _ warehouse.BatchRepository = (*GormBatchRepository)(nil)
