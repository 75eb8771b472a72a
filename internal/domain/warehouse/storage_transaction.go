package warehouse

import (
	"fmt"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a storage transaction
type TransactionType string

const (
	TransactionTypeImport     TransactionType = "IMPORT"
	TransactionTypeExport     TransactionType = "EXPORT"
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
)

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeImport, TransactionTypeExport, TransactionTypeAdjustment:
		return true
	}
	return false
}

// TransactionStatus is the approval workflow state of a storage transaction
type TransactionStatus string

const (
	TransactionStatusDraft           TransactionStatus = "DRAFT"
	TransactionStatusPendingApproval TransactionStatus = "PENDING_APPROVAL"
	TransactionStatusApproved        TransactionStatus = "APPROVED"
	TransactionStatusRejected        TransactionStatus = "REJECTED"
	TransactionStatusCancelled       TransactionStatus = "CANCELLED"
)

// PaymentStatus tracks supplier debt on import transactions
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// ExportType describes why stock left the warehouse
type ExportType string

const (
	ExportTypeUsage    ExportType = "USAGE"
	ExportTypeDisposal ExportType = "DISPOSAL"
	ExportTypeReturn   ExportType = "RETURN"
)

// StorageTransaction is the immutable ledger header for one stock movement.
// Its lines record the per-batch quantities and costs; once stock has been
// applied the lines are never edited, only the workflow fields change.
type StorageTransaction struct {
	shared.BaseEntity
	Code            string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	Type            TransactionType `gorm:"type:varchar(20);not null;index"`
	Status          TransactionStatus
	TransactionDate time.Time  `gorm:"not null;index"`
	SupplierID      *uuid.UUID `gorm:"type:uuid;index"`
	SupplierName    string     `gorm:"type:varchar(150)"`
	InvoiceNumber   string     `gorm:"type:varchar(50)"`
	DueDate         *time.Time
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20)"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalValue      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ExportType      ExportType      `gorm:"type:varchar(20)"`
	RelatedRecordID *uuid.UUID      `gorm:"type:uuid;index"`
	Notes           string          `gorm:"type:text"`
	CreatedByID     uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedByName   string          `gorm:"type:varchar(100)"`
	ApprovedByID    *uuid.UUID      `gorm:"type:uuid"`
	ApprovedByName  string          `gorm:"type:varchar(100)"`
	ApprovedAt      *time.Time
	StockApplied    bool                     `gorm:"not null;default:false"`
	Lines           []StorageTransactionLine `gorm:"foreignKey:TransactionID"`
}

// TableName returns the table name for GORM
func (StorageTransaction) TableName() string {
	return "storage_transactions"
}

// StorageTransactionLine is one item/lot movement within a transaction
type StorageTransactionLine struct {
	shared.BaseEntity
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index"`
	ItemID        uuid.UUID `gorm:"type:uuid;not null;index"`
	ItemName      string    `gorm:"type:varchar(100)"`
	Unit          string    `gorm:"type:varchar(30)"`
	LotNumber     string    `gorm:"type:varchar(50)"`
	ExpiryDate    *time.Time
	BatchID       *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalCost     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Notes         string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (StorageTransactionLine) TableName() string {
	return "storage_transaction_lines"
}

// NewStorageTransaction creates a transaction header in DRAFT status
func NewStorageTransaction(code string, txType TransactionType, date time.Time, createdBy shared.Actor) (*StorageTransaction, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Transaction code cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", "Unknown transaction type")
	}
	tx := &StorageTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		Code:            code,
		Type:            txType,
		Status:          TransactionStatusDraft,
		TransactionDate: date,
		CreatedByID:     createdBy.ID,
		CreatedByName:   createdBy.Name,
	}
	if txType == TransactionTypeImport {
		tx.PaymentStatus = PaymentStatusUnpaid
	}
	return tx, nil
}

// AddLine appends a movement line and rolls it into the header total
func (t *StorageTransaction) AddLine(line StorageTransactionLine) error {
	if line.Quantity.IsZero() {
		return shared.NewDomainError("INVALID_QUANTITY", "Line quantity cannot be zero")
	}
	if t.Type != TransactionTypeAdjustment && line.Quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
	}
	line.TransactionID = t.ID
	line.TotalCost = line.Quantity.Mul(line.UnitCost)
	t.Lines = append(t.Lines, line)
	t.TotalValue = t.TotalValue.Add(line.TotalCost)
	return nil
}

// MarkStockApplied records that batch quantities have been mutated for this
// transaction, so a later delete knows to reverse them.
func (t *StorageTransaction) MarkStockApplied() {
	t.StockApplied = true
	t.Touch()
}

// Submit moves a draft into the approval queue
func (t *StorageTransaction) Submit() error {
	if t.Status != TransactionStatusDraft {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Only draft transactions can be submitted, current status is %s", t.Status))
	}
	t.Status = TransactionStatusPendingApproval
	t.Touch()
	return nil
}

// Approve marks a pending transaction as approved by the given actor
func (t *StorageTransaction) Approve(approver shared.Actor) error {
	if t.Status != TransactionStatusPendingApproval {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Only pending transactions can be approved, current status is %s", t.Status))
	}
	now := time.Now()
	t.Status = TransactionStatusApproved
	t.ApprovedByID = &approver.ID
	t.ApprovedByName = approver.Name
	t.ApprovedAt = &now
	t.Touch()
	return nil
}

// Reject marks a pending transaction as rejected; the reason is mandatory
func (t *StorageTransaction) Reject(approver shared.Actor, reason string) error {
	if t.Status != TransactionStatusPendingApproval {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Only pending transactions can be rejected, current status is %s", t.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_INPUT", "Rejection reason is required")
	}
	now := time.Now()
	t.Status = TransactionStatusRejected
	t.ApprovedByID = &approver.ID
	t.ApprovedByName = approver.Name
	t.ApprovedAt = &now
	if t.Notes != "" {
		t.Notes += "\n"
	}
	t.Notes += "Rejected: " + reason
	t.Touch()
	return nil
}

// Cancel withdraws a transaction that has not been decided yet
func (t *StorageTransaction) Cancel() error {
	if t.Status != TransactionStatusDraft && t.Status != TransactionStatusPendingApproval {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel a transaction in status %s", t.Status))
	}
	t.Status = TransactionStatusCancelled
	t.Touch()
	return nil
}

// RemainingDebt returns the unpaid portion of an import transaction.
// Always derived, never stored.
func (t *StorageTransaction) RemainingDebt() decimal.Decimal {
	if t.Type != TransactionTypeImport {
		return decimal.Zero
	}
	debt := t.TotalValue.Sub(t.PaidAmount)
	if debt.IsNegative() {
		return decimal.Zero
	}
	return debt
}

// RecordPayment applies a supplier payment to an import transaction
func (t *StorageTransaction) RecordPayment(amount decimal.Decimal) error {
	if t.Type != TransactionTypeImport {
		return shared.NewDomainError("INVALID_STATE", "Payments apply to import transactions only")
	}
	if t.Status == TransactionStatusCancelled || t.Status == TransactionStatusRejected {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot record a payment on a %s transaction", t.Status))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.GreaterThan(t.RemainingDebt()) {
		return shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("Payment %s exceeds remaining debt %s", amount, t.RemainingDebt()))
	}
	t.PaidAmount = t.PaidAmount.Add(amount)
	switch {
	case t.PaidAmount.GreaterThanOrEqual(t.TotalValue):
		t.PaymentStatus = PaymentStatusPaid
	case t.PaidAmount.GreaterThan(decimal.Zero):
		t.PaymentStatus = PaymentStatusPartial
	default:
		t.PaymentStatus = PaymentStatusUnpaid
	}
	t.Touch()
	return nil
}

// IsOverdue reports whether an unpaid import is past its due date
func (t *StorageTransaction) IsOverdue() bool {
	if t.Type != TransactionTypeImport || t.DueDate == nil {
		return false
	}
	return t.PaymentStatus != PaymentStatusPaid && t.DueDate.Before(time.Now())
}
