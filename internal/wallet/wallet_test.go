package wallet

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"svidanie/internal/models"
)

var testNow = time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)

func TestNewTransaction(t *testing.T) {
	t.Run("default status is pending", func(t *testing.T) {
		tx := New(testNow, TxParams{UserID: 1, Type: models.TxWithdraw, Amount: 100, Currency: models.CurrencyUSDT})
		assert.Equal(t, models.TxPending, tx.Status)
		assert.Equal(t, testNow, tx.CreatedAt)
		assert.Nil(t, tx.CompletedAt)
	})

	t.Run("complete sets timestamp", func(t *testing.T) {
		tx := New(testNow, TxParams{UserID: 1, Type: models.TxWithdraw, Amount: 100, Currency: models.CurrencyUSDT})
		done := Complete(tx, testNow.Add(time.Minute))
		assert.Equal(t, models.TxCompleted, done.Status)
		require.NotNil(t, done.CompletedAt)
		assert.Equal(t, testNow.Add(time.Minute), *done.CompletedAt)
	})
}

func TestTypedConstructors(t *testing.T) {
	t.Run("booking received subtracts fee", func(t *testing.T) {
		tx := NewBookingReceived(testNow, 7, 42, 1000, models.CurrencyRUB, "Иван", 100)
		assert.Equal(t, 900.0, tx.Amount)
		assert.Equal(t, 100.0, tx.Fee)
		assert.Equal(t, int64(42), tx.RelatedBookingID)
		assert.Equal(t, models.TxCompleted, tx.Status)
	})

	t.Run("withdraw truncates long address", func(t *testing.T) {
		tx := NewWithdraw(testNow, 7, 50, models.CurrencyBTC, "bc1qxyzxyzxyzxyzxyzxyzxyzxyzxyz")
		assert.Contains(t, tx.Description, "...")
		assert.Equal(t, models.TxPending, tx.Status)
	})

	t.Run("referral commission carries level", func(t *testing.T) {
		tx := NewReferralCommission(testNow, 3, 42, 50, models.CurrencyRUB, 2, "Иван")
		assert.Equal(t, 2, tx.ReferralLevel)
		assert.Equal(t, models.TxReferralCommission, tx.Type)
	})
}

func TestBalance(t *testing.T) {
	txs := []models.Transaction{
		NewDeposit(testNow, 1, 1000, models.CurrencyRUB),
		NewBookingPayment(testNow, 1, 42, 300, models.CurrencyRUB, "Анна"),
		NewBookingRefund(testNow, 1, 43, 100, models.CurrencyRUB, "отмена встречи"),
		NewDeposit(testNow, 1, 5, models.CurrencyUSDT),
		// pending не участвует в балансе
		New(testNow, TxParams{UserID: 1, Type: models.TxWithdraw, Amount: 500, Currency: models.CurrencyRUB}),
	}

	assert.Equal(t, 800.0, Balance(txs, models.CurrencyRUB, 0))
	assert.Equal(t, 5.0, Balance(txs, models.CurrencyUSDT, 0))
	assert.Equal(t, 850.0, Balance(txs, models.CurrencyRUB, 50))
}

func TestFilters(t *testing.T) {
	txs := []models.Transaction{
		NewDeposit(testNow, 1, 100, models.CurrencyRUB),
		NewDeposit(testNow.Add(48*time.Hour), 2, 200, models.CurrencyRUB),
	}

	assert.Len(t, FilterByUser(txs, 1), 1)
	assert.Empty(t, FilterByUser(txs, 3))

	got := FilterByDate(txs, testNow.Add(-time.Hour), testNow.Add(time.Hour))
	require.Len(t, got, 1)
	assert.Equal(t, 100.0, got[0].Amount)
}

func TestCalculateStats(t *testing.T) {
	txs := []models.Transaction{
		NewDeposit(testNow, 1, 1000, models.CurrencyRUB),
		NewBookingPayment(testNow, 1, 42, 300, models.CurrencyRUB, "Анна"),
		NewBookingReceived(testNow, 2, 42, 300, models.CurrencyRUB, "Иван", 30),
	}

	s := CalculateStats(txs, models.CurrencyRUB)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1270.0, s.TotalIncoming) // 1000 + (300-30)
	assert.Equal(t, 300.0, s.TotalOutgoing)
	assert.Equal(t, 30.0, s.TotalFees)
	assert.Equal(t, 1, s.ByType[models.TxDeposit])
}

func TestExportCSV(t *testing.T) {
	txs := []models.Transaction{
		NewDeposit(testNow, 1, 1000, models.CurrencyRUB),
	}
	txs[0].ID = 5

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, txs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Валюта")
	assert.Contains(t, lines[1], "1000.00")
}

func TestExportExcel(t *testing.T) {
	dir := t.TempDir()
	txs := []models.Transaction{
		NewDeposit(testNow, 1, 1000, models.CurrencyRUB),
		NewBookingPayment(testNow, 1, 42, 300, models.CurrencyRUB, "Анна"),
	}

	path, err := ExportExcel(dir, txs, testNow, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, path, "transactions_2025-06-02_to_2025-06-03.xlsx")

	// Файл читается обратно: заголовок и строки на месте
	book, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer book.Close()
	header, err := book.GetCellValue("Транзакции", "A2")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)
	rows, err := book.GetRows("Транзакции")
	require.NoError(t, err)
	assert.Len(t, rows, 4) // период + заголовок + 2 транзакции
}
