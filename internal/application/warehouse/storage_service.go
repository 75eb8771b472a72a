package warehouse

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/warehouse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StorageService handles stock movements and the approval/payment workflow.
// Every mutation runs inside one transaction scope so batch quantities and the
// ledger entry commit atomically.
type StorageService struct {
	scope TransactionScope
	codes warehouse.CodeGenerator
}

// NewStorageService creates a new StorageService
func NewStorageService(scope TransactionScope, codes warehouse.CodeGenerator) *StorageService {
	return &StorageService{scope: scope, codes: codes}
}

// Import receives stock: each line tops up an existing lot or opens a new
// batch, and the resulting transaction carries the supplier debt. The slip
// stays a draft unless the creator could approve it themselves, in which case
// it goes straight to the approval queue.
func (s *StorageService) Import(ctx context.Context, actor shared.Actor, req ImportRequest) (*TransactionResponse, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Import requires at least one line")
	}
	date := req.TransactionDate
	if date.IsZero() {
		date = time.Now()
	}

	var resp *TransactionResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		code, err := s.codes.Next(ctx, warehouse.TransactionTypeImport, date)
		if err != nil {
			return err
		}
		tx, err := warehouse.NewStorageTransaction(code, warehouse.TransactionTypeImport, date, actor)
		if err != nil {
			return err
		}
		tx.SupplierID = req.SupplierID
		tx.SupplierName = req.SupplierName
		tx.InvoiceNumber = req.InvoiceNumber
		tx.DueDate = req.DueDate
		tx.Notes = req.Notes

		for _, line := range req.Lines {
			item, err := repos.Items().FindByID(ctx, line.ItemID)
			if err != nil {
				return err
			}
			batch, err := s.receiveIntoBatch(ctx, repos, item, line)
			if err != nil {
				return err
			}
			if err := tx.AddLine(warehouse.StorageTransactionLine{
				BaseEntity: shared.NewBaseEntity(),
				ItemID:     item.ID,
				ItemName:   item.Name,
				Unit:       item.Unit,
				LotNumber:  batch.LotNumber,
				ExpiryDate: batch.ExpiryDate,
				BatchID:    &batch.ID,
				Quantity:   line.Quantity,
				UnitCost:   line.UnitCost,
				Notes:      line.Notes,
			}); err != nil {
				return err
			}
		}

		tx.MarkStockApplied()
		if actor.HasCapability(shared.CapabilityApproveTransaction) {
			if err := tx.Submit(); err != nil {
				return err
			}
		}
		if err := repos.Transactions().Create(ctx, tx); err != nil {
			return err
		}
		r := ToTransactionResponse(tx, actor)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// receiveIntoBatch adds the imported quantity to the item's lot, creating the
// batch on first receipt. Cold-chain items cannot receive undated stock.
func (s *StorageService) receiveIntoBatch(ctx context.Context, repos TransactionalRepositories, item *warehouse.Item, line ImportLineRequest) (*warehouse.Batch, error) {
	if item.RequiresExpiry() && line.ExpiryDate == nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE_DATA",
			fmt.Sprintf("Cold-chain item %q requires an expiry date", item.Name))
	}
	batch, err := repos.Batches().FindByItemAndLot(ctx, item.ID, line.LotNumber)
	if err == nil && batch != nil {
		if err := batch.Add(line.Quantity); err != nil {
			return nil, err
		}
		if err := repos.Batches().Save(ctx, batch); err != nil {
			return nil, err
		}
		return batch, nil
	}
	batch, err = warehouse.NewBatch(item, line.LotNumber, line.ExpiryDate, line.Quantity, line.UnitCost)
	if err != nil {
		return nil, err
	}
	if err := repos.Batches().Save(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// Export pulls stock out of the warehouse. Allocation is planned FEFO across
// all lines before any batch is touched: an infeasible line fails the whole
// request and leaves stock exactly as it was.
func (s *StorageService) Export(ctx context.Context, actor shared.Actor, req ExportRequest) (*TransactionResponse, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Export requires at least one line")
	}
	date := req.TransactionDate
	if date.IsZero() {
		date = time.Now()
	}

	var resp *TransactionResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		code, err := s.codes.Next(ctx, warehouse.TransactionTypeExport, date)
		if err != nil {
			return err
		}
		tx, err := warehouse.NewStorageTransaction(code, warehouse.TransactionTypeExport, date, actor)
		if err != nil {
			return err
		}
		tx.ExportType = req.ExportType
		tx.RelatedRecordID = req.RelatedRecordID
		tx.Notes = req.Notes

		ids := make([]uuid.UUID, 0, len(req.Lines))
		for _, line := range req.Lines {
			ids = append(ids, line.ItemID)
		}
		stock, itemIDs, err := LockItemStock(ctx, repos, ids)
		if err != nil {
			return err
		}

		type plannedLine struct {
			item  *warehouse.Item
			plan  *warehouse.AllocationPlan
			notes string
		}
		planned := make([]plannedLine, 0, len(req.Lines))

		// phase one: plan every line against scratch copies so lines sharing
		// an item draw from one running balance, mutate nothing real
		for _, line := range req.Lines {
			st := stock[line.ItemID]
			plan, err := warehouse.PlanAllocation(st.Item, st.Scratch, line.Quantity)
			if err != nil {
				return err
			}
			if err := plan.Apply(st.Scratch); err != nil {
				return err
			}
			planned = append(planned, plannedLine{item: st.Item, plan: plan, notes: line.Notes})
		}

		// phase two: apply the plans to the locked rows and write the ledger lines
		for _, p := range planned {
			st := stock[p.item.ID]
			if err := p.plan.Apply(st.Batches); err != nil {
				return err
			}
			for _, al := range p.plan.Lines {
				batchID := al.BatchID
				var expiry *time.Time
				for _, b := range st.Batches {
					if b.ID == al.BatchID {
						expiry = b.ExpiryDate
						break
					}
				}
				if err := tx.AddLine(warehouse.StorageTransactionLine{
					BaseEntity: shared.NewBaseEntity(),
					ItemID:     p.item.ID,
					ItemName:   p.item.Name,
					Unit:       p.item.Unit,
					LotNumber:  al.LotNumber,
					ExpiryDate: expiry,
					BatchID:    &batchID,
					Quantity:   al.Quantity,
					UnitCost:   al.UnitCost,
					Notes:      p.notes,
				}); err != nil {
					return err
				}
			}
		}
		for _, id := range itemIDs {
			if err := repos.Batches().SaveAll(ctx, stock[id].Batches); err != nil {
				return err
			}
		}

		tx.MarkStockApplied()
		if actor.HasCapability(shared.CapabilityApproveTransaction) {
			if err := tx.Submit(); err != nil {
				return err
			}
		}
		if err := repos.Transactions().Create(ctx, tx); err != nil {
			return err
		}
		r := ToTransactionResponse(tx, actor)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ItemStock is one item's write-locked batch set. Scratch holds detached
// copies that a planning phase consumes cumulatively; Batches are the rows
// that get mutated and saved once every line has a feasible plan.
type ItemStock struct {
	Item    *warehouse.Item
	Batches []*warehouse.Batch
	Scratch []*warehouse.Batch
}

// LockItemStock loads and write-locks the batch set of every distinct item,
// always in ascending item order so two requests touching the same items
// acquire their row locks in the same sequence and cannot deadlock.
func LockItemStock(ctx context.Context, repos TransactionalRepositories, ids []uuid.UUID) (map[uuid.UUID]*ItemStock, []uuid.UUID, error) {
	stock := make(map[uuid.UUID]*ItemStock, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, seen := stock[id]; seen {
			continue
		}
		stock[id] = &ItemStock{}
		unique = append(unique, id)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].String() < unique[j].String() })
	for _, id := range unique {
		item, err := repos.Items().FindByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		batches, err := repos.Batches().FindByItemForUpdate(ctx, item.ID)
		if err != nil {
			return nil, nil, err
		}
		st := stock[id]
		st.Item = item
		st.Batches = batches
		st.Scratch = warehouse.SnapshotBatches(batches)
	}
	return stock, unique, nil
}

// Adjust corrects lot quantities to physically counted values. Each line is
// recorded as the signed delta between the count and what the ledger said.
func (s *StorageService) Adjust(ctx context.Context, actor shared.Actor, req AdjustmentRequest) (*TransactionResponse, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Adjustment requires at least one line")
	}
	date := req.TransactionDate
	if date.IsZero() {
		date = time.Now()
	}

	var resp *TransactionResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		code, err := s.codes.Next(ctx, warehouse.TransactionTypeAdjustment, date)
		if err != nil {
			return err
		}
		tx, err := warehouse.NewStorageTransaction(code, warehouse.TransactionTypeAdjustment, date, actor)
		if err != nil {
			return err
		}
		tx.Notes = req.Notes

		// lock the counted items' batches up front so counts and allocations
		// serialize, in the same order exports take their locks
		ids := make([]uuid.UUID, 0, len(req.Lines))
		for _, line := range req.Lines {
			ids = append(ids, line.ItemID)
		}
		stock, _, err := LockItemStock(ctx, repos, ids)
		if err != nil {
			return err
		}

		for _, line := range req.Lines {
			if line.NewQuantity.IsNegative() {
				return shared.NewDomainError("INVALID_QUANTITY", "Counted quantity cannot be negative")
			}
			st := stock[line.ItemID]
			item := st.Item
			var batch *warehouse.Batch
			for _, b := range st.Batches {
				if b.LotNumber == line.LotNumber {
					batch = b
					break
				}
			}
			if batch == nil {
				return shared.NewDomainError("NOT_FOUND",
					fmt.Sprintf("Lot %s of item %q not found", line.LotNumber, item.Name))
			}
			delta := line.NewQuantity.Sub(batch.QuantityOnHand)
			if delta.IsZero() {
				continue
			}
			if err := batch.SetQuantity(line.NewQuantity); err != nil {
				return err
			}
			if err := repos.Batches().Save(ctx, batch); err != nil {
				return err
			}
			if err := tx.AddLine(warehouse.StorageTransactionLine{
				BaseEntity: shared.NewBaseEntity(),
				ItemID:     item.ID,
				ItemName:   item.Name,
				Unit:       item.Unit,
				LotNumber:  batch.LotNumber,
				ExpiryDate: batch.ExpiryDate,
				BatchID:    &batch.ID,
				Quantity:   delta,
				UnitCost:   batch.UnitCost,
				Notes:      line.Reason,
			}); err != nil {
				return err
			}
		}

		if len(tx.Lines) == 0 {
			return shared.NewDomainError("INVALID_INPUT", "All counted quantities match the ledger, nothing to adjust")
		}
		tx.MarkStockApplied()
		if actor.HasCapability(shared.CapabilityApproveTransaction) {
			if err := tx.Submit(); err != nil {
				return err
			}
		}
		if err := repos.Transactions().Create(ctx, tx); err != nil {
			return err
		}
		r := ToTransactionResponse(tx, actor)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Approve marks a pending transaction approved. Requires the approval capability.
func (s *StorageService) Approve(ctx context.Context, actor shared.Actor, id uuid.UUID) (*TransactionResponse, error) {
	if err := actor.RequireCapability(shared.CapabilityApproveTransaction); err != nil {
		return nil, err
	}
	return s.decide(ctx, actor, id, func(tx *warehouse.StorageTransaction) error {
		return tx.Approve(actor)
	})
}

// Reject marks a pending transaction rejected with a mandatory reason.
func (s *StorageService) Reject(ctx context.Context, actor shared.Actor, id uuid.UUID, reason string) (*TransactionResponse, error) {
	if err := actor.RequireCapability(shared.CapabilityApproveTransaction); err != nil {
		return nil, err
	}
	return s.decide(ctx, actor, id, func(tx *warehouse.StorageTransaction) error {
		return tx.Reject(actor, reason)
	})
}

// Cancel withdraws an undecided transaction and reverses any stock it applied.
func (s *StorageService) Cancel(ctx context.Context, actor shared.Actor, id uuid.UUID) (*TransactionResponse, error) {
	return s.decide(ctx, actor, id, func(tx *warehouse.StorageTransaction) error {
		return tx.Cancel()
	})
}

// Submit moves a draft transaction into the approval queue
func (s *StorageService) Submit(ctx context.Context, actor shared.Actor, id uuid.UUID) (*TransactionResponse, error) {
	return s.decide(ctx, actor, id, func(tx *warehouse.StorageTransaction) error {
		return tx.Submit()
	})
}

// UpdateNotes replaces the free-text notes on a transaction header
func (s *StorageService) UpdateNotes(ctx context.Context, actor shared.Actor, id uuid.UUID, notes string) (*TransactionResponse, error) {
	return s.decide(ctx, actor, id, func(tx *warehouse.StorageTransaction) error {
		tx.Notes = notes
		tx.Touch()
		return nil
	})
}

func (s *StorageService) decide(ctx context.Context, actor shared.Actor, id uuid.UUID, op func(*warehouse.StorageTransaction) error) (*TransactionResponse, error) {
	var resp *TransactionResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.Transactions().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := op(tx); err != nil {
			return err
		}
		if tx.Status == warehouse.TransactionStatusCancelled && tx.StockApplied {
			if err := s.reverseStock(ctx, repos, tx); err != nil {
				return err
			}
			tx.StockApplied = false
		}
		if err := repos.Transactions().Save(ctx, tx); err != nil {
			return err
		}
		r := ToTransactionResponse(tx, actor)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// RecordPayment applies a supplier payment to an import transaction
func (s *StorageService) RecordPayment(ctx context.Context, actor shared.Actor, id uuid.UUID, amount decimal.Decimal) (*TransactionResponse, error) {
	var resp *TransactionResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.Transactions().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.RecordPayment(amount); err != nil {
			return err
		}
		if err := repos.Transactions().Save(ctx, tx); err != nil {
			return err
		}
		r := ToTransactionResponse(tx, actor)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Delete removes a transaction from the ledger, reversing its stock effect
// first. Privileged: requires the delete capability.
func (s *StorageService) Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	if err := actor.RequireCapability(shared.CapabilityDeleteTransaction); err != nil {
		return err
	}
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.Transactions().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if tx.StockApplied {
			if err := s.reverseStock(ctx, repos, tx); err != nil {
				return err
			}
		}
		return repos.Transactions().Delete(ctx, tx.ID)
	})
}

// reverseStock undoes the batch mutations a transaction applied. Reversing an
// import fails with INSUFFICIENT_STOCK when the received stock has already
// been consumed; the transaction then stays on the ledger.
func (s *StorageService) reverseStock(ctx context.Context, repos TransactionalRepositories, tx *warehouse.StorageTransaction) error {
	for _, line := range tx.Lines {
		if line.BatchID == nil {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Transaction %s line %s has no batch reference", tx.Code, line.ID))
		}
		batch, err := repos.Batches().FindByID(ctx, *line.BatchID)
		if err != nil {
			return err
		}
		var applyErr error
		switch {
		case tx.Type == warehouse.TransactionTypeImport:
			applyErr = batch.Deduct(line.Quantity)
		case tx.Type == warehouse.TransactionTypeExport:
			applyErr = batch.Add(line.Quantity)
		case line.Quantity.IsPositive():
			applyErr = batch.Deduct(line.Quantity)
		default:
			applyErr = batch.Add(line.Quantity.Neg())
		}
		if applyErr != nil {
			return applyErr
		}
		if err := repos.Batches().Save(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}
