package warehouse

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/warehouse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-memory repository fakes. The no-op scope wires them together so service
// flows can be exercised end to end without a database.

type fakeItemRepo struct {
	items map[uuid.UUID]*warehouse.Item
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[uuid.UUID]*warehouse.Item)}
}

func (r *fakeItemRepo) FindByID(_ context.Context, id uuid.UUID) (*warehouse.Item, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return item, nil
}

func (r *fakeItemRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*warehouse.Item, error) {
	var result []*warehouse.Item
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			result = append(result, item)
		}
	}
	return result, nil
}

func (r *fakeItemRepo) FindByName(_ context.Context, name string) (*warehouse.Item, error) {
	for _, item := range r.items {
		if item.Name == name {
			return item, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeItemRepo) FindAll(_ context.Context, _ shared.Filter) ([]*warehouse.Item, error) {
	var result []*warehouse.Item
	for _, item := range r.items {
		result = append(result, item)
	}
	return result, nil
}

func (r *fakeItemRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.items)), nil
}

func (r *fakeItemRepo) Save(_ context.Context, item *warehouse.Item) error {
	r.items[item.ID] = item
	return nil
}

type fakeBatchRepo struct {
	batches map[uuid.UUID]*warehouse.Batch
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: make(map[uuid.UUID]*warehouse.Batch)}
}

func (r *fakeBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*warehouse.Batch, error) {
	b, ok := r.batches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return b, nil
}

func (r *fakeBatchRepo) FindByItem(_ context.Context, itemID uuid.UUID) ([]*warehouse.Batch, error) {
	var result []*warehouse.Batch
	for _, b := range r.batches {
		if b.ItemID == itemID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *fakeBatchRepo) FindByItemForUpdate(ctx context.Context, itemID uuid.UUID) ([]*warehouse.Batch, error) {
	return r.FindByItem(ctx, itemID)
}

func (r *fakeBatchRepo) FindByItemAndLot(_ context.Context, itemID uuid.UUID, lot string) (*warehouse.Batch, error) {
	for _, b := range r.batches {
		if b.ItemID == itemID && b.LotNumber == lot {
			return b, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeBatchRepo) FindExpiringWithin(_ context.Context, days int, _ shared.Filter) ([]*warehouse.Batch, error) {
	var result []*warehouse.Batch
	for _, b := range r.batches {
		if b.HasStock() && b.ExpiresWithin(time.Duration(days)*24*time.Hour) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (r *fakeBatchRepo) SumQuantityByItem(_ context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, b := range r.batches {
		if b.ItemID == itemID {
			total = total.Add(b.QuantityOnHand)
		}
	}
	return total, nil
}

func (r *fakeBatchRepo) Save(_ context.Context, batch *warehouse.Batch) error {
	r.batches[batch.ID] = batch
	return nil
}

func (r *fakeBatchRepo) SaveAll(ctx context.Context, batches []*warehouse.Batch) error {
	for _, b := range batches {
		if err := r.Save(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// rowHydratingBatchRepo decorates fakeBatchRepo with SQL-like hydration:
// every read returns freshly copied structs, never the stored pointers, so
// two loads of the same item alias nothing and writes only land via Save.
type rowHydratingBatchRepo struct {
	inner *fakeBatchRepo
}

func (r *rowHydratingBatchRepo) FindByID(ctx context.Context, id uuid.UUID) (*warehouse.Batch, error) {
	b, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c := *b
	return &c, nil
}

func (r *rowHydratingBatchRepo) FindByItem(ctx context.Context, itemID uuid.UUID) ([]*warehouse.Batch, error) {
	batches, err := r.inner.FindByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return warehouse.SnapshotBatches(batches), nil
}

func (r *rowHydratingBatchRepo) FindByItemForUpdate(ctx context.Context, itemID uuid.UUID) ([]*warehouse.Batch, error) {
	return r.FindByItem(ctx, itemID)
}

func (r *rowHydratingBatchRepo) FindByItemAndLot(ctx context.Context, itemID uuid.UUID, lot string) (*warehouse.Batch, error) {
	b, err := r.inner.FindByItemAndLot(ctx, itemID, lot)
	if err != nil {
		return nil, err
	}
	c := *b
	return &c, nil
}

func (r *rowHydratingBatchRepo) FindExpiringWithin(ctx context.Context, days int, filter shared.Filter) ([]*warehouse.Batch, error) {
	batches, err := r.inner.FindExpiringWithin(ctx, days, filter)
	if err != nil {
		return nil, err
	}
	return warehouse.SnapshotBatches(batches), nil
}

func (r *rowHydratingBatchRepo) SumQuantityByItem(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	return r.inner.SumQuantityByItem(ctx, itemID)
}

func (r *rowHydratingBatchRepo) Save(ctx context.Context, batch *warehouse.Batch) error {
	c := *batch
	return r.inner.Save(ctx, &c)
}

func (r *rowHydratingBatchRepo) SaveAll(ctx context.Context, batches []*warehouse.Batch) error {
	for _, b := range batches {
		if err := r.Save(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// lockOrderBatchRepo records the order in which item batch sets are locked
type lockOrderBatchRepo struct {
	*fakeBatchRepo
	lockOrder []uuid.UUID
}

func (r *lockOrderBatchRepo) FindByItemForUpdate(ctx context.Context, itemID uuid.UUID) ([]*warehouse.Batch, error) {
	r.lockOrder = append(r.lockOrder, itemID)
	return r.fakeBatchRepo.FindByItemForUpdate(ctx, itemID)
}

type fakeTransactionRepo struct {
	transactions map[uuid.UUID]*warehouse.StorageTransaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{transactions: make(map[uuid.UUID]*warehouse.StorageTransaction)}
}

func (r *fakeTransactionRepo) FindByID(_ context.Context, id uuid.UUID) (*warehouse.StorageTransaction, error) {
	tx, ok := r.transactions[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return tx, nil
}

func (r *fakeTransactionRepo) FindByCode(_ context.Context, code string) (*warehouse.StorageTransaction, error) {
	for _, tx := range r.transactions {
		if tx.Code == code {
			return tx, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeTransactionRepo) FindAll(_ context.Context, filter warehouse.TransactionFilter) ([]*warehouse.StorageTransaction, error) {
	var result []*warehouse.StorageTransaction
	for _, tx := range r.transactions {
		if filter.Type != nil && tx.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && tx.Status != *filter.Status {
			continue
		}
		result = append(result, tx)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *fakeTransactionRepo) Count(ctx context.Context, filter warehouse.TransactionFilter) (int64, error) {
	txs, err := r.FindAll(ctx, filter)
	return int64(len(txs)), err
}

func (r *fakeTransactionRepo) CountByStatus(_ context.Context, status warehouse.TransactionStatus) (int64, error) {
	var n int64
	for _, tx := range r.transactions {
		if tx.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *fakeTransactionRepo) SumValueByType(_ context.Context, txType warehouse.TransactionType, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, tx := range r.transactions {
		if tx.Type == txType && !tx.TransactionDate.Before(from) && !tx.TransactionDate.After(to) {
			total = total.Add(tx.TotalValue)
		}
	}
	return total, nil
}

func (r *fakeTransactionRepo) SumLossValue(_ context.Context, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, tx := range r.transactions {
		if tx.TransactionDate.Before(from) || tx.TransactionDate.After(to) {
			continue
		}
		switch {
		case tx.Type == warehouse.TransactionTypeExport && tx.ExportType == warehouse.ExportTypeDisposal:
			total = total.Add(tx.TotalValue)
		case tx.Type == warehouse.TransactionTypeAdjustment:
			for _, line := range tx.Lines {
				if line.TotalCost.IsNegative() {
					total = total.Add(line.TotalCost.Neg())
				}
			}
		}
	}
	return total, nil
}

func (r *fakeTransactionRepo) Create(_ context.Context, tx *warehouse.StorageTransaction) error {
	if _, exists := r.transactions[tx.ID]; exists {
		return shared.ErrAlreadyExists
	}
	r.transactions[tx.ID] = tx
	return nil
}

func (r *fakeTransactionRepo) Save(_ context.Context, tx *warehouse.StorageTransaction) error {
	r.transactions[tx.ID] = tx
	return nil
}

func (r *fakeTransactionRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.transactions[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.transactions, id)
	return nil
}

func (r *fakeTransactionRepo) CountByDatePrefix(_ context.Context, txType warehouse.TransactionType, day time.Time) (int64, error) {
	var n int64
	for _, tx := range r.transactions {
		if tx.Type == txType && tx.TransactionDate.Format("20060102") == day.Format("20060102") {
			n++
		}
	}
	return n, nil
}

type fakeProcedureRepo struct {
	procedures map[uuid.UUID]*clinical.Procedure
}

func newFakeProcedureRepo() *fakeProcedureRepo {
	return &fakeProcedureRepo{procedures: make(map[uuid.UUID]*clinical.Procedure)}
}

func (r *fakeProcedureRepo) FindByID(_ context.Context, id uuid.UUID) (*clinical.Procedure, error) {
	p, ok := r.procedures[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *fakeProcedureRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*clinical.Procedure, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeProcedureRepo) Save(_ context.Context, p *clinical.Procedure) error {
	r.procedures[p.ID] = p
	return nil
}

type fakeUsageRepo struct {
	usages map[uuid.UUID]*clinical.MaterialUsage
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{usages: make(map[uuid.UUID]*clinical.MaterialUsage)}
}

func (r *fakeUsageRepo) FindByID(_ context.Context, id uuid.UUID) (*clinical.MaterialUsage, error) {
	u, ok := r.usages[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *fakeUsageRepo) FindByProcedure(_ context.Context, procedureID uuid.UUID) ([]*clinical.MaterialUsage, error) {
	var result []*clinical.MaterialUsage
	for _, u := range r.usages {
		if u.ProcedureID == procedureID {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ItemName < result[j].ItemName })
	return result, nil
}

func (r *fakeUsageRepo) Save(_ context.Context, u *clinical.MaterialUsage) error {
	r.usages[u.ID] = u
	return nil
}

func (r *fakeUsageRepo) SaveAll(ctx context.Context, usages []*clinical.MaterialUsage) error {
	for _, u := range usages {
		if err := r.Save(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

type fakeBOMRepo struct {
	lines map[uuid.UUID][]*clinical.BOMLine
}

func newFakeBOMRepo() *fakeBOMRepo {
	return &fakeBOMRepo{lines: make(map[uuid.UUID][]*clinical.BOMLine)}
}

func (r *fakeBOMRepo) FindByService(_ context.Context, serviceID uuid.UUID) ([]*clinical.BOMLine, error) {
	return r.lines[serviceID], nil
}

func (r *fakeBOMRepo) Save(_ context.Context, line *clinical.BOMLine) error {
	r.lines[line.ServiceID] = append(r.lines[line.ServiceID], line)
	return nil
}

func (r *fakeBOMRepo) DeleteByService(_ context.Context, serviceID uuid.UUID) error {
	delete(r.lines, serviceID)
	return nil
}

// fakeCodeGenerator issues deterministic sequential codes
type fakeCodeGenerator struct {
	seq int
}

func (g *fakeCodeGenerator) Next(_ context.Context, txType warehouse.TransactionType, day time.Time) (string, error) {
	g.seq++
	prefix := map[warehouse.TransactionType]string{
		warehouse.TransactionTypeImport:     "PN",
		warehouse.TransactionTypeExport:     "PX",
		warehouse.TransactionTypeAdjustment: "DC",
	}[txType]
	return fmt.Sprintf("%s-%s-%03d", prefix, day.Format("20060102"), g.seq), nil
}

type fixture struct {
	scope *NoOpTransactionScope
	items *fakeItemRepo
	batch *fakeBatchRepo
	txns  *fakeTransactionRepo
	procs *fakeProcedureRepo
	usage *fakeUsageRepo
	bom   *fakeBOMRepo
	codes *fakeCodeGenerator
}

func newFixture() *fixture {
	f := &fixture{
		items: newFakeItemRepo(),
		batch: newFakeBatchRepo(),
		txns:  newFakeTransactionRepo(),
		procs: newFakeProcedureRepo(),
		usage: newFakeUsageRepo(),
		bom:   newFakeBOMRepo(),
		codes: &fakeCodeGenerator{},
	}
	f.scope = &NoOpTransactionScope{
		ItemRepo:        f.items,
		BatchRepo:       f.batch,
		TransactionRepo: f.txns,
		ProcedureRepo:   f.procs,
		UsageRepo:       f.usage,
		BOMRepo:         f.bom,
	}
	return f
}
