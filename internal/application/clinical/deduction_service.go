package clinical

import (
	"context"
	"time"

	appwarehouse "github.com/clinic/backend/internal/application/warehouse"
	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/warehouse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeductionService settles a procedure's material consumption against stock.
// Deduction happens at most once per procedure: the marker on the procedure
// row, checked under lock, makes replays harmless no-ops.
type DeductionService struct {
	scope appwarehouse.TransactionScope
	codes warehouse.CodeGenerator
}

// NewDeductionService creates a new DeductionService
func NewDeductionService(scope appwarehouse.TransactionScope, codes warehouse.CodeGenerator) *DeductionService {
	return &DeductionService{scope: scope, codes: codes}
}

// PlanMaterials seeds the procedure's usage records from the service BOM so
// staff can review and adjust quantities before settlement. Re-planning an
// already planned procedure returns the existing records.
func (s *DeductionService) PlanMaterials(ctx context.Context, actor shared.Actor, procedureID uuid.UUID) ([]UsageResponse, error) {
	var responses []UsageResponse
	err := s.scope.Execute(ctx, func(repos appwarehouse.TransactionalRepositories) error {
		proc, err := repos.Procedures().FindByIDForUpdate(ctx, procedureID)
		if err != nil {
			return err
		}
		existing, err := repos.Usages().FindByProcedure(ctx, procedureID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			responses = ToUsageResponses(existing)
			return nil
		}
		if proc.MaterialsDeducted() {
			return shared.NewDomainError("INVALID_STATE", "Materials already deducted for this procedure")
		}

		bomLines, err := repos.BOM().FindByService(ctx, proc.ServiceID)
		if err != nil {
			return err
		}
		usages := make([]*clinical.MaterialUsage, 0, len(bomLines))
		for _, bom := range bomLines {
			usage, err := clinical.NewMaterialUsage(proc.ID, bom.ItemID, bom.ItemName, bom.Unit,
				bom.QuantityPerService, actor.Name)
			if err != nil {
				return err
			}
			usages = append(usages, usage)
		}
		if err := repos.Usages().SaveAll(ctx, usages); err != nil {
			return err
		}
		responses = ToUsageResponses(usages)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responses, nil
}

// OverrideQuantity replaces the to-be-deducted quantity of a usage record.
// Only allowed while the owning procedure has not been settled.
func (s *DeductionService) OverrideQuantity(ctx context.Context, actor shared.Actor, override QuantityOverride) (*UsageResponse, error) {
	var resp *UsageResponse
	err := s.scope.Execute(ctx, func(repos appwarehouse.TransactionalRepositories) error {
		usage, err := repos.Usages().FindByID(ctx, override.UsageID)
		if err != nil {
			return err
		}
		proc, err := repos.Procedures().FindByIDForUpdate(ctx, usage.ProcedureID)
		if err != nil {
			return err
		}
		if proc.MaterialsDeducted() {
			return shared.NewDomainError("INVALID_STATE",
				"Quantities are frozen once materials are deducted, revise the actual quantity instead")
		}
		if err := usage.OverrideQuantity(override.Quantity); err != nil {
			return err
		}
		usage.RecordedBy = actor.Name
		if err := repos.Usages().Save(ctx, usage); err != nil {
			return err
		}
		r := ToUsageResponse(usage)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// DeductMaterials settles the procedure's materials against warehouse stock.
// The whole settlement is two-phase: every usage line is FEFO-planned before
// any batch is touched, so an infeasible line fails the call with stock
// untouched. A procedure already settled returns its existing records with
// AlreadyDeducted set and changes nothing.
func (s *DeductionService) DeductMaterials(ctx context.Context, actor shared.Actor, procedureID uuid.UUID) (*DeductionResponse, error) {
	var resp *DeductionResponse
	err := s.scope.Execute(ctx, func(repos appwarehouse.TransactionalRepositories) error {
		proc, err := repos.Procedures().FindByIDForUpdate(ctx, procedureID)
		if err != nil {
			return err
		}
		usages, err := repos.Usages().FindByProcedure(ctx, procedureID)
		if err != nil {
			return err
		}

		if proc.MaterialsDeducted() {
			resp = &DeductionResponse{
				ProcedureID:     proc.ID,
				AlreadyDeducted: true,
				Usages:          ToUsageResponses(usages),
			}
			return nil
		}

		// seed from the BOM when nobody planned ahead
		if len(usages) == 0 {
			bomLines, err := repos.BOM().FindByService(ctx, proc.ServiceID)
			if err != nil {
				return err
			}
			for _, bom := range bomLines {
				usage, err := clinical.NewMaterialUsage(proc.ID, bom.ItemID, bom.ItemName, bom.Unit,
					bom.QuantityPerService, actor.Name)
				if err != nil {
					return err
				}
				usages = append(usages, usage)
			}
		}

		var code string
		if len(usages) > 0 {
			code, err = s.deductUsages(ctx, repos, actor, proc, usages)
			if err != nil {
				return err
			}
			if err := repos.Usages().SaveAll(ctx, usages); err != nil {
				return err
			}
		}

		if err := proc.MarkMaterialsDeducted(actor); err != nil {
			return err
		}
		if err := repos.Procedures().Save(ctx, proc); err != nil {
			return err
		}
		resp = &DeductionResponse{
			ProcedureID:     proc.ID,
			TransactionCode: code,
			Usages:          ToUsageResponses(usages),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// deductUsages plans every usage line against one locked batch set per item,
// applies the plans, and writes one usage-export ledger entry tied to the
// procedure.
func (s *DeductionService) deductUsages(ctx context.Context, repos appwarehouse.TransactionalRepositories,
	actor shared.Actor, proc *clinical.Procedure, usages []*clinical.MaterialUsage) (string, error) {

	now := time.Now()
	code, err := s.codes.Next(ctx, warehouse.TransactionTypeExport, now)
	if err != nil {
		return "", err
	}
	tx, err := warehouse.NewStorageTransaction(code, warehouse.TransactionTypeExport, now, actor)
	if err != nil {
		return "", err
	}
	tx.ExportType = warehouse.ExportTypeUsage
	procID := proc.ID
	tx.RelatedRecordID = &procID
	tx.Notes = "Material usage for " + proc.ServiceName

	ids := make([]uuid.UUID, 0, len(usages))
	for _, usage := range usages {
		ids = append(ids, usage.ItemID)
	}
	stock, itemIDs, err := appwarehouse.LockItemStock(ctx, repos, ids)
	if err != nil {
		return "", err
	}

	type plannedUsage struct {
		item *warehouse.Item
		plan *warehouse.AllocationPlan
	}
	planned := make([]plannedUsage, 0, len(usages))

	// plan against scratch copies so usages of one item share a running
	// balance; the locked rows stay untouched until every line is feasible
	for _, usage := range usages {
		st := stock[usage.ItemID]
		plan, err := warehouse.PlanAllocation(st.Item, st.Scratch, usage.Quantity)
		if err != nil {
			return "", err
		}
		if err := plan.Apply(st.Scratch); err != nil {
			return "", err
		}
		planned = append(planned, plannedUsage{item: st.Item, plan: plan})
	}

	for _, p := range planned {
		st := stock[p.item.ID]
		if err := p.plan.Apply(st.Batches); err != nil {
			return "", err
		}
		if err := addPlanLines(tx, p.item, st.Batches, p.plan); err != nil {
			return "", err
		}
	}
	for _, id := range itemIDs {
		if err := repos.Batches().SaveAll(ctx, stock[id].Batches); err != nil {
			return "", err
		}
	}

	tx.MarkStockApplied()
	if err := tx.Submit(); err != nil {
		return "", err
	}
	if err := repos.Transactions().Create(ctx, tx); err != nil {
		return "", err
	}
	return tx.Code, nil
}

// ReviseActual records the clinically observed consumption of one usage after
// settlement. An upward revision pulls the extra stock FEFO and appends a
// usage-export entry; a downward one only keeps the variance on record, stock
// is never re-credited.
func (s *DeductionService) ReviseActual(ctx context.Context, actor shared.Actor, revision ActualRevision) (*UsageResponse, error) {
	var resp *UsageResponse
	err := s.scope.Execute(ctx, func(repos appwarehouse.TransactionalRepositories) error {
		usage, err := repos.Usages().FindByID(ctx, revision.UsageID)
		if err != nil {
			return err
		}
		proc, err := repos.Procedures().FindByIDForUpdate(ctx, usage.ProcedureID)
		if err != nil {
			return err
		}
		if !proc.MaterialsDeducted() {
			return shared.NewDomainError("INVALID_STATE",
				"Procedure materials are not deducted yet, adjust the quantity instead")
		}

		delta, err := usage.ReviseActual(revision.ActualQuantity, revision.Reason, actor.Name)
		if err != nil {
			return err
		}
		if delta.IsPositive() {
			if err := s.deductExtra(ctx, repos, actor, proc, usage, delta); err != nil {
				return err
			}
			// the extra stock was pulled, so the deducted figure moves too
			usage.Quantity = usage.Quantity.Add(delta)
		}
		if err := repos.Usages().Save(ctx, usage); err != nil {
			return err
		}
		r := ToUsageResponse(usage)
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ReviseActualBulk applies several revisions of one procedure atomically
func (s *DeductionService) ReviseActualBulk(ctx context.Context, actor shared.Actor, procedureID uuid.UUID, revisions []ActualRevision) ([]UsageResponse, error) {
	if len(revisions) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "No revisions provided")
	}
	var responses []UsageResponse
	err := s.scope.Execute(ctx, func(repos appwarehouse.TransactionalRepositories) error {
		proc, err := repos.Procedures().FindByIDForUpdate(ctx, procedureID)
		if err != nil {
			return err
		}
		if !proc.MaterialsDeducted() {
			return shared.NewDomainError("INVALID_STATE",
				"Procedure materials are not deducted yet, adjust the quantities instead")
		}
		for _, revision := range revisions {
			usage, err := repos.Usages().FindByID(ctx, revision.UsageID)
			if err != nil {
				return err
			}
			if usage.ProcedureID != procedureID {
				return shared.NewDomainError("INVALID_INPUT", "Usage does not belong to this procedure")
			}
			delta, err := usage.ReviseActual(revision.ActualQuantity, revision.Reason, actor.Name)
			if err != nil {
				return err
			}
			if delta.IsPositive() {
				if err := s.deductExtra(ctx, repos, actor, proc, usage, delta); err != nil {
					return err
				}
				usage.Quantity = usage.Quantity.Add(delta)
			}
			if err := repos.Usages().Save(ctx, usage); err != nil {
				return err
			}
			responses = append(responses, ToUsageResponse(usage))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responses, nil
}

// deductExtra pulls additional stock for an upward revision and ledgers it
func (s *DeductionService) deductExtra(ctx context.Context, repos appwarehouse.TransactionalRepositories,
	actor shared.Actor, proc *clinical.Procedure, usage *clinical.MaterialUsage, delta decimal.Decimal) error {

	item, err := repos.Items().FindByID(ctx, usage.ItemID)
	if err != nil {
		return err
	}
	batches, err := repos.Batches().FindByItemForUpdate(ctx, item.ID)
	if err != nil {
		return err
	}
	plan, err := warehouse.PlanAllocation(item, batches, delta)
	if err != nil {
		return err
	}
	if err := plan.Apply(batches); err != nil {
		return err
	}
	if err := repos.Batches().SaveAll(ctx, batches); err != nil {
		return err
	}

	now := time.Now()
	code, err := s.codes.Next(ctx, warehouse.TransactionTypeExport, now)
	if err != nil {
		return err
	}
	tx, err := warehouse.NewStorageTransaction(code, warehouse.TransactionTypeExport, now, actor)
	if err != nil {
		return err
	}
	tx.ExportType = warehouse.ExportTypeUsage
	procID := proc.ID
	tx.RelatedRecordID = &procID
	tx.Notes = "Additional usage for " + proc.ServiceName
	if err := addPlanLines(tx, item, batches, plan); err != nil {
		return err
	}
	tx.MarkStockApplied()
	if err := tx.Submit(); err != nil {
		return err
	}
	return repos.Transactions().Create(ctx, tx)
}

// GetUsages returns the procedure's material consumption records
func (s *DeductionService) GetUsages(ctx context.Context, procedureID uuid.UUID) ([]UsageResponse, error) {
	var responses []UsageResponse
	err := s.scope.Execute(ctx, func(repos appwarehouse.TransactionalRepositories) error {
		if _, err := repos.Procedures().FindByID(ctx, procedureID); err != nil {
			return err
		}
		usages, err := repos.Usages().FindByProcedure(ctx, procedureID)
		if err != nil {
			return err
		}
		responses = ToUsageResponses(usages)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responses, nil
}

// addPlanLines writes an allocation plan's lines onto a ledger entry
func addPlanLines(tx *warehouse.StorageTransaction, item *warehouse.Item, batches []*warehouse.Batch, plan *warehouse.AllocationPlan) error {
	expiryByID := make(map[uuid.UUID]*time.Time, len(batches))
	for _, b := range batches {
		expiryByID[b.ID] = b.ExpiryDate
	}
	for _, al := range plan.Lines {
		batchID := al.BatchID
		if err := tx.AddLine(warehouse.StorageTransactionLine{
			BaseEntity: shared.NewBaseEntity(),
			ItemID:     item.ID,
			ItemName:   item.Name,
			Unit:       item.Unit,
			LotNumber:  al.LotNumber,
			ExpiryDate: expiryByID[al.BatchID],
			BatchID:    &batchID,
			Quantity:   al.Quantity,
			UnitCost:   al.UnitCost,
		}); err != nil {
			return err
		}
	}
	return nil
}
