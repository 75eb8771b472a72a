package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/warehouse"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormItemRepository implements ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID finds an item by its ID
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*warehouse.Item, error) {
	var item warehouse.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByIDs finds items by a set of IDs
func (r *GormItemRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*warehouse.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []*warehouse.Item
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindByName finds an item by its unique name
func (r *GormItemRepository) FindByName(ctx context.Context, name string) (*warehouse.Item, error) {
	var item warehouse.Item
	if err := r.db.WithContext(ctx).First(&item, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindAll lists items with filtering and pagination
func (r *GormItemRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*warehouse.Item, error) {
	var items []*warehouse.Item
	query := r.applyFilter(r.db.WithContext(ctx).Model(&warehouse.Item{}), filter)
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Count counts items matching the filter
func (r *GormItemRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&warehouse.Item{})
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if wt, ok := filter.Filters["warehouse_type"]; ok {
		query = query.Where("warehouse_type = ?", wt)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an item
func (r *GormItemRepository) Save(ctx context.Context, item *warehouse.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *GormItemRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if wt, ok := filter.Filters["warehouse_type"]; ok {
		query = query.Where("warehouse_type = ?", wt)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("name ASC")
	}
	return query
}

var _ warehouse.ItemRepository = (*GormItemRepository)(nil)
