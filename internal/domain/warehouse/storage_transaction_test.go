package warehouse

import (
	"testing"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testActor() shared.Actor {
	return shared.Actor{ID: uuid.New(), Name: "Dr. Tran"}
}

func newImportTx(t *testing.T) *StorageTransaction {
	t.Helper()
	tx, err := NewStorageTransaction("PN-20260830-001", TransactionTypeImport, time.Now(), testActor())
	require.NoError(t, err)
	return tx
}

func TestNewStorageTransaction(t *testing.T) {
	tx := newImportTx(t)

	assert.Equal(t, TransactionStatusDraft, tx.Status)
	assert.Equal(t, PaymentStatusUnpaid, tx.PaymentStatus)
	assert.True(t, tx.TotalValue.IsZero())
	assert.False(t, tx.StockApplied)
}

func TestNewStorageTransaction_Validation(t *testing.T) {
	_, err := NewStorageTransaction("", TransactionTypeImport, time.Now(), testActor())
	require.Error(t, err)

	_, err = NewStorageTransaction("PN-1", TransactionType("BOGUS"), time.Now(), testActor())
	require.Error(t, err)
}

func TestStorageTransaction_AddLineRollsUpTotal(t *testing.T) {
	tx := newImportTx(t)

	require.NoError(t, tx.AddLine(StorageTransactionLine{
		ItemID:   uuid.New(),
		Quantity: decimal.NewFromInt(10),
		UnitCost: decimal.RequireFromString("12.50"),
	}))
	require.NoError(t, tx.AddLine(StorageTransactionLine{
		ItemID:   uuid.New(),
		Quantity: decimal.NewFromInt(2),
		UnitCost: decimal.RequireFromString("100.00"),
	}))

	assert.True(t, tx.TotalValue.Equal(decimal.RequireFromString("325.00")))
	require.Len(t, tx.Lines, 2)
	assert.Equal(t, tx.ID, tx.Lines[0].TransactionID)
}

func TestStorageTransaction_AddLineRejectsZeroQuantity(t *testing.T) {
	tx := newImportTx(t)
	err := tx.AddLine(StorageTransactionLine{ItemID: uuid.New(), Quantity: decimal.Zero})
	require.Error(t, err)
}

func TestStorageTransaction_AdjustmentAllowsNegativeLines(t *testing.T) {
	tx, err := NewStorageTransaction("DC-20260830-001", TransactionTypeAdjustment, time.Now(), testActor())
	require.NoError(t, err)

	require.NoError(t, tx.AddLine(StorageTransactionLine{
		ItemID:   uuid.New(),
		Quantity: decimal.NewFromInt(-3),
		UnitCost: decimal.NewFromInt(10),
	}))
	assert.True(t, tx.TotalValue.Equal(decimal.NewFromInt(-30)))
}

func TestStorageTransaction_ApprovalWorkflow(t *testing.T) {
	tx := newImportTx(t)
	approver := shared.Actor{ID: uuid.New(), Name: "Manager"}

	// cannot approve a draft directly
	require.Error(t, tx.Approve(approver))

	require.NoError(t, tx.Submit())
	assert.Equal(t, TransactionStatusPendingApproval, tx.Status)

	// double submit is rejected
	require.Error(t, tx.Submit())

	require.NoError(t, tx.Approve(approver))
	assert.Equal(t, TransactionStatusApproved, tx.Status)
	require.NotNil(t, tx.ApprovedByID)
	assert.Equal(t, approver.ID, *tx.ApprovedByID)
	assert.NotNil(t, tx.ApprovedAt)

	// terminal states reject further decisions
	require.Error(t, tx.Approve(approver))
	require.Error(t, tx.Reject(approver, "late"))
	require.Error(t, tx.Cancel())
}

func TestStorageTransaction_RejectRequiresReason(t *testing.T) {
	tx := newImportTx(t)
	require.NoError(t, tx.Submit())

	require.Error(t, tx.Reject(testActor(), ""))

	require.NoError(t, tx.Reject(testActor(), "wrong supplier"))
	assert.Equal(t, TransactionStatusRejected, tx.Status)
	assert.Contains(t, tx.Notes, "wrong supplier")
}

func TestStorageTransaction_CancelFromDraftAndPending(t *testing.T) {
	draft := newImportTx(t)
	require.NoError(t, draft.Cancel())
	assert.Equal(t, TransactionStatusCancelled, draft.Status)

	pending := newImportTx(t)
	require.NoError(t, pending.Submit())
	require.NoError(t, pending.Cancel())
	assert.Equal(t, TransactionStatusCancelled, pending.Status)
}

func TestStorageTransaction_PaymentLifecycle(t *testing.T) {
	tx := newImportTx(t)
	require.NoError(t, tx.AddLine(StorageTransactionLine{
		ItemID:   uuid.New(),
		Quantity: decimal.NewFromInt(10),
		UnitCost: decimal.NewFromInt(100),
	}))

	assert.True(t, tx.RemainingDebt().Equal(decimal.NewFromInt(1000)))

	require.NoError(t, tx.RecordPayment(decimal.NewFromInt(400)))
	assert.Equal(t, PaymentStatusPartial, tx.PaymentStatus)
	assert.True(t, tx.RemainingDebt().Equal(decimal.NewFromInt(600)))

	// overpayment rejected
	require.Error(t, tx.RecordPayment(decimal.NewFromInt(700)))

	require.NoError(t, tx.RecordPayment(decimal.NewFromInt(600)))
	assert.Equal(t, PaymentStatusPaid, tx.PaymentStatus)
	assert.True(t, tx.RemainingDebt().IsZero())

	// nothing left to pay
	require.Error(t, tx.RecordPayment(decimal.NewFromInt(1)))
}

func TestStorageTransaction_PaymentOnlyForImports(t *testing.T) {
	tx, err := NewStorageTransaction("PX-20260830-001", TransactionTypeExport, time.Now(), testActor())
	require.NoError(t, err)

	require.Error(t, tx.RecordPayment(decimal.NewFromInt(10)))
	assert.True(t, tx.RemainingDebt().IsZero())
}

func TestStorageTransaction_IsOverdue(t *testing.T) {
	tx := newImportTx(t)
	require.NoError(t, tx.AddLine(StorageTransactionLine{
		ItemID:   uuid.New(),
		Quantity: decimal.NewFromInt(1),
		UnitCost: decimal.NewFromInt(100),
	}))

	assert.False(t, tx.IsOverdue())

	past := time.Now().AddDate(0, 0, -10)
	tx.DueDate = &past
	assert.True(t, tx.IsOverdue())

	require.NoError(t, tx.RecordPayment(decimal.NewFromInt(100)))
	assert.False(t, tx.IsOverdue())
}
