package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/clinic/backend/internal/domain/warehouse"
	"gorm.io/gorm"
)

// GormCodeGenerator issues transaction codes of the form PN-20260830-001:
// a type prefix, the calendar day, and a per-day sequence derived from the
// count of same-type transactions created that day. Codes are unique under
// the table's unique index; a collision from a concurrent insert surfaces as
// a constraint error and rolls the caller's transaction back.
type GormCodeGenerator struct {
	db *gorm.DB
}

// NewGormCodeGenerator creates a new GormCodeGenerator
func NewGormCodeGenerator(db *gorm.DB) *GormCodeGenerator {
	return &GormCodeGenerator{db: db}
}

var codePrefixes = map[warehouse.TransactionType]string{
	warehouse.TransactionTypeImport:     "PN",
	warehouse.TransactionTypeExport:     "PX",
	warehouse.TransactionTypeAdjustment: "DC",
}

// Next returns the next code for the given type and day
func (g *GormCodeGenerator) Next(ctx context.Context, txType warehouse.TransactionType, day time.Time) (string, error) {
	prefix, ok := codePrefixes[txType]
	if !ok {
		return "", fmt.Errorf("no code prefix for transaction type %s", txType)
	}
	repo := NewGormStorageTransactionRepository(g.db)
	count, err := repo.CountByDatePrefix(ctx, txType, day)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%03d", prefix, day.Format("20060102"), count+1), nil
}

var _ warehouse.CodeGenerator = (*GormCodeGenerator)(nil)
