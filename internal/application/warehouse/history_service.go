package warehouse

import (
	"context"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/domain/warehouse"
	"github.com/google/uuid"
)

// HistoryService answers read-only questions about the ledger and stock.
// All monetary masking happens here, in the mapping to responses.
type HistoryService struct {
	transactionRepo warehouse.StorageTransactionRepository
	batchRepo       warehouse.BatchRepository
	itemRepo        warehouse.ItemRepository
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(
	transactionRepo warehouse.StorageTransactionRepository,
	batchRepo warehouse.BatchRepository,
	itemRepo warehouse.ItemRepository,
) *HistoryService {
	return &HistoryService{
		transactionRepo: transactionRepo,
		batchRepo:       batchRepo,
		itemRepo:        itemRepo,
	}
}

// List returns a page of ledger entries matching the filter, masked for the viewer
func (s *HistoryService) List(ctx context.Context, viewer shared.Actor, filter warehouse.TransactionFilter) (shared.Paginated[TransactionResponse], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	txs, err := s.transactionRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[TransactionResponse]{}, err
	}
	total, err := s.transactionRepo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[TransactionResponse]{}, err
	}

	responses := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, ToTransactionResponse(tx, viewer))
	}
	return shared.NewPaginated(responses, total, filter.Page, filter.PageSize), nil
}

// GetByID returns one ledger entry, masked for the viewer
func (s *HistoryService) GetByID(ctx context.Context, viewer shared.Actor, id uuid.UUID) (*TransactionResponse, error) {
	tx, err := s.transactionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx, viewer)
	return &resp, nil
}

// GetByCode returns one ledger entry by its human-readable code
func (s *HistoryService) GetByCode(ctx context.Context, viewer shared.Actor, code string) (*TransactionResponse, error) {
	tx, err := s.transactionRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx, viewer)
	return &resp, nil
}

// ItemBatches lists an item's batches in FEFO order
func (s *HistoryService) ItemBatches(ctx context.Context, viewer shared.Actor, itemID uuid.UUID) ([]BatchResponse, error) {
	if _, err := s.itemRepo.FindByID(ctx, itemID); err != nil {
		return nil, err
	}
	batches, err := s.batchRepo.FindByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	warehouse.SortBatchesFEFO(batches)
	responses := make([]BatchResponse, 0, len(batches))
	for _, b := range batches {
		responses = append(responses, ToBatchResponse(b, viewer))
	}
	return responses, nil
}

// ExpiringBatches lists batches expiring within the given number of days
func (s *HistoryService) ExpiringBatches(ctx context.Context, viewer shared.Actor, days int, filter shared.Filter) ([]BatchResponse, error) {
	if days <= 0 {
		days = 30
	}
	batches, err := s.batchRepo.FindExpiringWithin(ctx, days, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]BatchResponse, 0, len(batches))
	for _, b := range batches {
		responses = append(responses, ToBatchResponse(b, viewer))
	}
	return responses, nil
}

// Stats summarizes ledger activity in a period. Monetary aggregates are
// omitted for viewers without the cost capability.
func (s *HistoryService) Stats(ctx context.Context, viewer shared.Actor, from, to time.Time) (*StatsResponse, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, -1, 0)
	}
	if from.After(to) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Period start must be before its end")
	}

	pending, err := s.transactionRepo.CountByStatus(ctx, warehouse.TransactionStatusPendingApproval)
	if err != nil {
		return nil, err
	}
	resp := &StatsResponse{
		PendingApprovals: pending,
		PeriodFrom:       from,
		PeriodTo:         to,
	}
	if !viewer.HasCapability(shared.CapabilityViewCost) {
		return resp, nil
	}

	importValue, err := s.transactionRepo.SumValueByType(ctx, warehouse.TransactionTypeImport, from, to)
	if err != nil {
		return nil, err
	}
	exportValue, err := s.transactionRepo.SumValueByType(ctx, warehouse.TransactionTypeExport, from, to)
	if err != nil {
		return nil, err
	}
	lossValue, err := s.transactionRepo.SumLossValue(ctx, from, to)
	if err != nil {
		return nil, err
	}
	resp.ImportValue = &importValue
	resp.ExportValue = &exportValue
	resp.LossValue = &lossValue
	return resp, nil
}
