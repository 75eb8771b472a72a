package warehouse

import (
	"fmt"
	"sort"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationLine is one batch's contribution to an allocation plan
type AllocationLine struct {
	BatchID   uuid.UUID
	LotNumber string
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	TotalCost decimal.Decimal
}

// AllocationPlan is the outcome of planning a stock deduction across batches.
// Planning never mutates stock; call Apply to commit the deductions.
type AllocationPlan struct {
	ItemID        uuid.UUID
	Lines         []AllocationLine
	TotalQuantity decimal.Decimal
	TotalCost     decimal.Decimal
}

// WeightedUnitCost returns the blended per-unit cost of the plan
func (p *AllocationPlan) WeightedUnitCost() decimal.Decimal {
	if p.TotalQuantity.IsZero() {
		return decimal.Zero
	}
	return p.TotalCost.Div(p.TotalQuantity)
}

// SortBatchesFEFO orders batches first-expires-first: earliest expiry first,
// batches without an expiry date last, creation time as the tiebreaker.
func SortBatchesFEFO(batches []*Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		case a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
	})
}

// AvailableQuantity sums the on-hand quantity of batches eligible for the item.
// Batches without an expiry date count only for non-cold items.
func AvailableQuantity(item *Item, batches []*Batch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		if item.RequiresExpiry() && b.ExpiryDate == nil {
			continue
		}
		total = total.Add(b.QuantityOnHand)
	}
	return total
}

// SnapshotBatches returns detached copies of the given batches. Callers
// planning several deductions from one request apply each plan to the copies,
// so later lines see what earlier lines already claimed while the real rows
// stay untouched until every line has a feasible plan.
func SnapshotBatches(batches []*Batch) []*Batch {
	copies := make([]*Batch, len(batches))
	for i, b := range batches {
		c := *b
		copies[i] = &c
	}
	return copies
}

// PlanAllocation computes a FEFO deduction plan for the requested quantity
// without mutating any batch. Feasibility is checked up front: if the eligible
// batches cannot cover the request, no plan is produced and stock is untouched.
func PlanAllocation(item *Item, batches []*Batch, quantity decimal.Decimal) (*AllocationPlan, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Allocation quantity must be positive")
	}

	eligible := make([]*Batch, 0, len(batches))
	for _, b := range batches {
		if !b.HasStock() {
			continue
		}
		if item.RequiresExpiry() && b.ExpiryDate == nil {
			continue
		}
		eligible = append(eligible, b)
	}
	SortBatchesFEFO(eligible)

	available := AvailableQuantity(item, eligible)
	if available.LessThan(quantity) {
		return nil, shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Item %q has %s available, requested %s", item.Name, available, quantity))
	}

	plan := &AllocationPlan{ItemID: item.ID}
	remaining := quantity
	for _, b := range eligible {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(remaining, b.QuantityOnHand)
		lineCost := take.Mul(b.UnitCost)
		plan.Lines = append(plan.Lines, AllocationLine{
			BatchID:   b.ID,
			LotNumber: b.LotNumber,
			Quantity:  take,
			UnitCost:  b.UnitCost,
			TotalCost: lineCost,
		})
		plan.TotalQuantity = plan.TotalQuantity.Add(take)
		plan.TotalCost = plan.TotalCost.Add(lineCost)
		remaining = remaining.Sub(take)
	}
	return plan, nil
}

// Apply commits the plan's deductions against the given batches. The batches
// must be the same rows the plan was computed from, still under lock.
func (p *AllocationPlan) Apply(batches []*Batch) error {
	byID := make(map[uuid.UUID]*Batch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}
	for _, line := range p.Lines {
		batch, ok := byID[line.BatchID]
		if !ok {
			return shared.NewDomainError("CONCURRENCY_CONFLICT",
				fmt.Sprintf("Planned batch %s no longer present", line.BatchID))
		}
		if err := batch.Deduct(line.Quantity); err != nil {
			return err
		}
	}
	return nil
}
