package clinical

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	appwarehouse "github.com/clinic/backend/internal/application/warehouse"
	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/warehouse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// In-memory fakes wired through the no-op scope. Mirrors the fixtures used by
// the storage service tests, trimmed to what deduction flows touch.

type memStore struct {
	items        map[uuid.UUID]*warehouse.Item
	batches      map[uuid.UUID]*warehouse.Batch
	transactions map[uuid.UUID]*warehouse.StorageTransaction
	procedures   map[uuid.UUID]*clinical.Procedure
	usages       map[uuid.UUID]*clinical.MaterialUsage
	bom          map[uuid.UUID][]*clinical.BOMLine
	codeSeq      int
}

func newMemStore() *memStore {
	return &memStore{
		items:        make(map[uuid.UUID]*warehouse.Item),
		batches:      make(map[uuid.UUID]*warehouse.Batch),
		transactions: make(map[uuid.UUID]*warehouse.StorageTransaction),
		procedures:   make(map[uuid.UUID]*clinical.Procedure),
		usages:       make(map[uuid.UUID]*clinical.MaterialUsage),
		bom:          make(map[uuid.UUID][]*clinical.BOMLine),
	}
}

func (s *memStore) scope() *appwarehouse.NoOpTransactionScope {
	return &appwarehouse.NoOpTransactionScope{
		ItemRepo:        (*memItemRepo)(s),
		BatchRepo:       (*memBatchRepo)(s),
		TransactionRepo: (*memTransactionRepo)(s),
		ProcedureRepo:   (*memProcedureRepo)(s),
		UsageRepo:       (*memUsageRepo)(s),
		BOMRepo:         (*memBOMRepo)(s),
	}
}

type memItemRepo memStore

func (r *memItemRepo) FindByID(_ context.Context, id uuid.UUID) (*warehouse.Item, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return item, nil
}

func (r *memItemRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*warehouse.Item, error) {
	var result []*warehouse.Item
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			result = append(result, item)
		}
	}
	return result, nil
}

func (r *memItemRepo) FindByName(_ context.Context, name string) (*warehouse.Item, error) {
	for _, item := range r.items {
		if item.Name == name {
			return item, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memItemRepo) FindAll(_ context.Context, _ shared.Filter) ([]*warehouse.Item, error) {
	var result []*warehouse.Item
	for _, item := range r.items {
		result = append(result, item)
	}
	return result, nil
}

func (r *memItemRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.items)), nil
}

func (r *memItemRepo) Save(_ context.Context, item *warehouse.Item) error {
	r.items[item.ID] = item
	return nil
}

type memBatchRepo memStore

func (r *memBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*warehouse.Batch, error) {
	b, ok := r.batches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return b, nil
}

func (r *memBatchRepo) FindByItem(_ context.Context, itemID uuid.UUID) ([]*warehouse.Batch, error) {
	var result []*warehouse.Batch
	for _, b := range r.batches {
		if b.ItemID == itemID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *memBatchRepo) FindByItemForUpdate(ctx context.Context, itemID uuid.UUID) ([]*warehouse.Batch, error) {
	return r.FindByItem(ctx, itemID)
}

func (r *memBatchRepo) FindByItemAndLot(_ context.Context, itemID uuid.UUID, lot string) (*warehouse.Batch, error) {
	for _, b := range r.batches {
		if b.ItemID == itemID && b.LotNumber == lot {
			return b, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memBatchRepo) FindExpiringWithin(_ context.Context, days int, _ shared.Filter) ([]*warehouse.Batch, error) {
	var result []*warehouse.Batch
	for _, b := range r.batches {
		if b.HasStock() && b.ExpiresWithin(time.Duration(days)*24*time.Hour) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (r *memBatchRepo) SumQuantityByItem(_ context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, b := range r.batches {
		if b.ItemID == itemID {
			total = total.Add(b.QuantityOnHand)
		}
	}
	return total, nil
}

func (r *memBatchRepo) Save(_ context.Context, batch *warehouse.Batch) error {
	r.batches[batch.ID] = batch
	return nil
}

func (r *memBatchRepo) SaveAll(ctx context.Context, batches []*warehouse.Batch) error {
	for _, b := range batches {
		if err := r.Save(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

type memTransactionRepo memStore

func (r *memTransactionRepo) FindByID(_ context.Context, id uuid.UUID) (*warehouse.StorageTransaction, error) {
	tx, ok := r.transactions[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return tx, nil
}

func (r *memTransactionRepo) FindByCode(_ context.Context, code string) (*warehouse.StorageTransaction, error) {
	for _, tx := range r.transactions {
		if tx.Code == code {
			return tx, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memTransactionRepo) FindAll(_ context.Context, filter warehouse.TransactionFilter) ([]*warehouse.StorageTransaction, error) {
	var result []*warehouse.StorageTransaction
	for _, tx := range r.transactions {
		if filter.Type != nil && tx.Type != *filter.Type {
			continue
		}
		result = append(result, tx)
	}
	return result, nil
}

func (r *memTransactionRepo) Count(ctx context.Context, filter warehouse.TransactionFilter) (int64, error) {
	txs, err := r.FindAll(ctx, filter)
	return int64(len(txs)), err
}

func (r *memTransactionRepo) CountByStatus(_ context.Context, status warehouse.TransactionStatus) (int64, error) {
	var n int64
	for _, tx := range r.transactions {
		if tx.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *memTransactionRepo) SumValueByType(_ context.Context, txType warehouse.TransactionType, _, _ time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, tx := range r.transactions {
		if tx.Type == txType {
			total = total.Add(tx.TotalValue)
		}
	}
	return total, nil
}

func (r *memTransactionRepo) SumLossValue(_ context.Context, _, _ time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (r *memTransactionRepo) Create(_ context.Context, tx *warehouse.StorageTransaction) error {
	if _, exists := r.transactions[tx.ID]; exists {
		return shared.ErrAlreadyExists
	}
	r.transactions[tx.ID] = tx
	return nil
}

func (r *memTransactionRepo) Save(_ context.Context, tx *warehouse.StorageTransaction) error {
	r.transactions[tx.ID] = tx
	return nil
}

func (r *memTransactionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.transactions, id)
	return nil
}

func (r *memTransactionRepo) CountByDatePrefix(_ context.Context, txType warehouse.TransactionType, day time.Time) (int64, error) {
	var n int64
	for _, tx := range r.transactions {
		if tx.Type == txType && tx.TransactionDate.Format("20060102") == day.Format("20060102") {
			n++
		}
	}
	return n, nil
}

type memProcedureRepo memStore

func (r *memProcedureRepo) FindByID(_ context.Context, id uuid.UUID) (*clinical.Procedure, error) {
	p, ok := r.procedures[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *memProcedureRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*clinical.Procedure, error) {
	return r.FindByID(ctx, id)
}

func (r *memProcedureRepo) Save(_ context.Context, p *clinical.Procedure) error {
	r.procedures[p.ID] = p
	return nil
}

type memUsageRepo memStore

func (r *memUsageRepo) FindByID(_ context.Context, id uuid.UUID) (*clinical.MaterialUsage, error) {
	u, ok := r.usages[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *memUsageRepo) FindByProcedure(_ context.Context, procedureID uuid.UUID) ([]*clinical.MaterialUsage, error) {
	var result []*clinical.MaterialUsage
	for _, u := range r.usages {
		if u.ProcedureID == procedureID {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ItemName < result[j].ItemName })
	return result, nil
}

func (r *memUsageRepo) Save(_ context.Context, u *clinical.MaterialUsage) error {
	r.usages[u.ID] = u
	return nil
}

func (r *memUsageRepo) SaveAll(ctx context.Context, usages []*clinical.MaterialUsage) error {
	for _, u := range usages {
		if err := r.Save(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

type memBOMRepo memStore

func (r *memBOMRepo) FindByService(_ context.Context, serviceID uuid.UUID) ([]*clinical.BOMLine, error) {
	return r.bom[serviceID], nil
}

func (r *memBOMRepo) Save(_ context.Context, line *clinical.BOMLine) error {
	r.bom[line.ServiceID] = append(r.bom[line.ServiceID], line)
	return nil
}

func (r *memBOMRepo) DeleteByService(_ context.Context, serviceID uuid.UUID) error {
	delete(r.bom, serviceID)
	return nil
}

type memCodeGenerator memStore

func (g *memCodeGenerator) Next(_ context.Context, txType warehouse.TransactionType, day time.Time) (string, error) {
	g.codeSeq++
	prefix := map[warehouse.TransactionType]string{
		warehouse.TransactionTypeImport:     "PN",
		warehouse.TransactionTypeExport:     "PX",
		warehouse.TransactionTypeAdjustment: "DC",
	}[txType]
	return fmt.Sprintf("%s-%s-%03d", prefix, day.Format("20060102"), g.codeSeq), nil
}

// seeding helpers

func seedItemWithStock(t *testing.T, s *memStore, name string, warehouseType warehouse.WarehouseType, lots map[string]string) *warehouse.Item {
	t.Helper()
	item, err := warehouse.NewItem(name, "unit", warehouseType)
	require.NoError(t, err)
	s.items[item.ID] = item
	expiry := time.Now().AddDate(0, 6, 0)
	for lot, qty := range lots {
		b, err := warehouse.NewBatch(item, lot, &expiry, decimal.RequireFromString(qty), decimal.NewFromInt(10))
		require.NoError(t, err)
		s.batches[b.ID] = b
	}
	return item
}

func seedProcedureWithBOM(t *testing.T, s *memStore, serviceName string, bom map[*warehouse.Item]string) *clinical.Procedure {
	t.Helper()
	serviceID := uuid.New()
	proc, err := clinical.NewProcedure(serviceID, serviceName, time.Now())
	require.NoError(t, err)
	s.procedures[proc.ID] = proc
	for item, qty := range bom {
		line, err := clinical.NewBOMLine(serviceID, item.ID, item.Name, item.Unit, decimal.RequireFromString(qty))
		require.NoError(t, err)
		s.bom[serviceID] = append(s.bom[serviceID], line)
	}
	return proc
}
