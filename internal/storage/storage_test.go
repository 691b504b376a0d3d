package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpatryk/BuggyVege/internal/domain/ledger"
)

func entry(t *testing.T, userID uuid.UUID, kind ledger.Kind, amount, before, after string) *ledger.Entry {
	t.Helper()

	orderID := uuid.New()

	e, err := ledger.NewEntry(ledger.Entry{
		UserID:         userID,
		Kind:           kind,
		Amount:         decimal.RequireFromString(amount),
		BalanceBefore:  decimal.RequireFromString(before),
		BalanceAfter:   decimal.RequireFromString(after),
		RelatedOrderID: &orderID,
	})
	require.NoError(t, err)

	return e
}

func TestCheckLedger(t *testing.T) {
	userID := uuid.New()
	d := decimal.RequireFromString

	deposit := entry(t, userID, ledger.KindDeposit, "100", "0", "100")
	payment := entry(t, userID, ledger.KindPayment, "40", "100", "60")

	assert.NoError(t, CheckLedger(userID, d("0"), d("0"), nil))
	assert.NoError(t, CheckLedger(userID, d("0"), d("100"), []*ledger.Entry{deposit}))
	assert.NoError(t, CheckLedger(userID, d("0"), d("60"), []*ledger.Entry{deposit, payment}))

	assert.ErrorIs(t, CheckLedger(userID, d("0"), d("100"), nil), ErrLedgerInconsistent)
	assert.ErrorIs(t, CheckLedger(userID, d("5"), d("105"), []*ledger.Entry{deposit}), ErrLedgerInconsistent)
	assert.ErrorIs(t, CheckLedger(userID, d("0"), d("60"), []*ledger.Entry{payment, deposit}), ErrLedgerInconsistent)
	assert.ErrorIs(t, CheckLedger(uuid.New(), d("0"), d("100"), []*ledger.Entry{deposit}), ErrForeignAccount)
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, Page{Number: 1, Size: 10}.Offset())
	assert.Equal(t, 40, Page{Number: 3, Size: 20}.Offset())
}
