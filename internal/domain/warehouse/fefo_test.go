package warehouse

import (
	"testing"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(t time.Time) *time.Time {
	return &t
}

func newTestItem(t *testing.T, warehouseType WarehouseType) *Item {
	t.Helper()
	item, err := NewItem("Composite Resin", "syringe", warehouseType)
	require.NoError(t, err)
	return item
}

func newTestBatch(t *testing.T, item *Item, lot string, expiry *time.Time, qty, cost string) *Batch {
	t.Helper()
	b, err := NewBatch(item, lot, expiry, decimal.RequireFromString(qty), decimal.RequireFromString(cost))
	require.NoError(t, err)
	return b
}

func TestPlanAllocation_FEFOOrder(t *testing.T) {
	item := newTestItem(t, WarehouseTypeAmbient)
	// Lot A expires sooner than lot B even though B was created first
	batchB := newTestBatch(t, item, "LOT-B", datePtr(time.Now().AddDate(0, 6, 0)), "10", "12.00")
	batchA := newTestBatch(t, item, "LOT-A", datePtr(time.Now().AddDate(0, 1, 0)), "10", "10.00")
	batches := []*Batch{batchB, batchA}

	plan, err := PlanAllocation(item, batches, decimal.NewFromInt(12))
	require.NoError(t, err)

	require.Len(t, plan.Lines, 2)
	assert.Equal(t, "LOT-A", plan.Lines[0].LotNumber)
	assert.True(t, plan.Lines[0].Quantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "LOT-B", plan.Lines[1].LotNumber)
	assert.True(t, plan.Lines[1].Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, plan.TotalQuantity.Equal(decimal.NewFromInt(12)))
	// 10 * 10.00 + 2 * 12.00
	assert.True(t, plan.TotalCost.Equal(decimal.RequireFromString("124.00")))
}

func TestPlanAllocation_DoesNotMutateBatches(t *testing.T) {
	item := newTestItem(t, WarehouseTypeAmbient)
	batch := newTestBatch(t, item, "LOT-A", datePtr(time.Now().AddDate(0, 1, 0)), "10", "10.00")

	_, err := PlanAllocation(item, []*Batch{batch}, decimal.NewFromInt(5))
	require.NoError(t, err)

	assert.True(t, batch.QuantityOnHand.Equal(decimal.NewFromInt(10)))
}

func TestPlanAllocation_InsufficientStockLeavesStateUntouched(t *testing.T) {
	item := newTestItem(t, WarehouseTypeAmbient)
	batch1 := newTestBatch(t, item, "LOT-A", datePtr(time.Now().AddDate(0, 1, 0)), "3", "10.00")
	batch2 := newTestBatch(t, item, "LOT-B", datePtr(time.Now().AddDate(0, 2, 0)), "4", "10.00")

	plan, err := PlanAllocation(item, []*Batch{batch1, batch2}, decimal.NewFromInt(8))
	require.Error(t, err)
	assert.Nil(t, plan)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)

	assert.True(t, batch1.QuantityOnHand.Equal(decimal.NewFromInt(3)))
	assert.True(t, batch2.QuantityOnHand.Equal(decimal.NewFromInt(4)))
}

func TestPlanAllocation_NoExpiryBatchesLastForAmbient(t *testing.T) {
	item := newTestItem(t, WarehouseTypeAmbient)
	noExpiry := newTestBatch(t, item, "LOT-NX", nil, "10", "9.00")
	dated := newTestBatch(t, item, "LOT-D", datePtr(time.Now().AddDate(1, 0, 0)), "5", "10.00")

	plan, err := PlanAllocation(item, []*Batch{noExpiry, dated}, decimal.NewFromInt(7))
	require.NoError(t, err)

	require.Len(t, plan.Lines, 2)
	assert.Equal(t, "LOT-D", plan.Lines[0].LotNumber)
	assert.Equal(t, "LOT-NX", plan.Lines[1].LotNumber)
	assert.True(t, plan.Lines[1].Quantity.Equal(decimal.NewFromInt(2)))
}

func TestPlanAllocation_ColdItemSkipsBatchesWithoutExpiry(t *testing.T) {
	ambient := newTestItem(t, WarehouseTypeAmbient)
	cold := newTestItem(t, WarehouseTypeCold)
	// Build the undated batch via the ambient item, then point it at the cold
	// item to simulate legacy rows that predate the cold-chain rule.
	undated := newTestBatch(t, ambient, "LOT-NX", nil, "100", "5.00")
	undated.ItemID = cold.ID
	dated := newTestBatch(t, cold, "LOT-D", datePtr(time.Now().AddDate(0, 3, 0)), "4", "5.00")

	_, err := PlanAllocation(cold, []*Batch{undated, dated}, decimal.NewFromInt(5))
	require.Error(t, err)

	plan, err := PlanAllocation(cold, []*Batch{undated, dated}, decimal.NewFromInt(4))
	require.NoError(t, err)
	require.Len(t, plan.Lines, 1)
	assert.Equal(t, "LOT-D", plan.Lines[0].LotNumber)
}

func TestPlanAllocation_SkipsEmptyBatches(t *testing.T) {
	item := newTestItem(t, WarehouseTypeAmbient)
	empty := newTestBatch(t, item, "LOT-E", datePtr(time.Now().AddDate(0, 1, 0)), "5", "10.00")
	require.NoError(t, empty.Deduct(decimal.NewFromInt(5)))
	full := newTestBatch(t, item, "LOT-F", datePtr(time.Now().AddDate(0, 2, 0)), "5", "10.00")

	plan, err := PlanAllocation(item, []*Batch{empty, full}, decimal.NewFromInt(3))
	require.NoError(t, err)
	require.Len(t, plan.Lines, 1)
	assert.Equal(t, "LOT-F", plan.Lines[0].LotNumber)
}

func TestPlanAllocation_RejectsNonPositiveQuantity(t *testing.T) {
	item := newTestItem(t, WarehouseTypeAmbient)

	_, err := PlanAllocation(item, nil, decimal.Zero)
	require.Error(t, err)
	_, err = PlanAllocation(item, nil, decimal.NewFromInt(-1))
	require.Error(t, err)
}

func TestAllocationPlan_Apply(t *testing.T) {
	item := newTestItem(t, WarehouseTypeAmbient)
	batch1 := newTestBatch(t, item, "LOT-A", datePtr(time.Now().AddDate(0, 1, 0)), "10", "10.00")
	batch2 := newTestBatch(t, item, "LOT-B", datePtr(time.Now().AddDate(0, 2, 0)), "10", "12.00")
	batches := []*Batch{batch1, batch2}

	plan, err := PlanAllocation(item, batches, decimal.NewFromInt(12))
	require.NoError(t, err)
	require.NoError(t, plan.Apply(batches))

	assert.True(t, batch1.QuantityOnHand.IsZero())
	assert.True(t, batch2.QuantityOnHand.Equal(decimal.NewFromInt(8)))
}

func TestAllocationPlan_ApplyMissingBatchConflict(t *testing.T) {
	item := newTestItem(t, WarehouseTypeAmbient)
	batch := newTestBatch(t, item, "LOT-A", datePtr(time.Now().AddDate(0, 1, 0)), "10", "10.00")

	plan, err := PlanAllocation(item, []*Batch{batch}, decimal.NewFromInt(5))
	require.NoError(t, err)

	err = plan.Apply([]*Batch{})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONCURRENCY_CONFLICT", domainErr.Code)
}

func TestAllocationPlan_WeightedUnitCost(t *testing.T) {
	item := newTestItem(t, WarehouseTypeAmbient)
	batch1 := newTestBatch(t, item, "LOT-A", datePtr(time.Now().AddDate(0, 1, 0)), "5", "10.00")
	batch2 := newTestBatch(t, item, "LOT-B", datePtr(time.Now().AddDate(0, 2, 0)), "5", "20.00")

	plan, err := PlanAllocation(item, []*Batch{batch1, batch2}, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, plan.WeightedUnitCost().Equal(decimal.RequireFromString("15")))
}

func TestNewBatch_ColdItemRequiresExpiry(t *testing.T) {
	cold := newTestItem(t, WarehouseTypeCold)

	_, err := NewBatch(cold, "LOT-1", nil, decimal.NewFromInt(5), decimal.NewFromInt(10))
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_WAREHOUSE_DATA", domainErr.Code)

	_, err = NewBatch(cold, "LOT-1", datePtr(time.Now().AddDate(1, 0, 0)), decimal.NewFromInt(5), decimal.NewFromInt(10))
	require.NoError(t, err)
}

func TestBatch_DeductNeverGoesNegative(t *testing.T) {
	item := newTestItem(t, WarehouseTypeAmbient)
	batch := newTestBatch(t, item, "LOT-A", nil, "5", "10.00")

	err := batch.Deduct(decimal.NewFromInt(6))
	require.Error(t, err)
	assert.True(t, batch.QuantityOnHand.Equal(decimal.NewFromInt(5)))

	require.NoError(t, batch.Deduct(decimal.NewFromInt(5)))
	assert.True(t, batch.QuantityOnHand.IsZero())
}
