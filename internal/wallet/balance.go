package wallet

import (
	"time"

	"svidanie/internal/models"
)

// Типы, увеличивающие баланс. Остальные завершенные транзакции списывают.
var incomingTypes = map[models.TransactionType]bool{
	models.TxDeposit:            true,
	models.TxBookingRefund:      true,
	models.TxBookingReceived:    true,
	models.TxTipReceived:        true,
	models.TxReferralCommission: true,
}

// Balance считает баланс по завершенным транзакциям в указанной валюте.
func Balance(txs []models.Transaction, currency models.Currency, initial float64) float64 {
	balance := initial
	for _, tx := range txs {
		if tx.Status != models.TxCompleted || tx.Currency != currency {
			continue
		}
		if incomingTypes[tx.Type] {
			balance += tx.Amount
		} else {
			balance -= tx.Amount
		}
	}
	return balance
}

// FilterByUser оставляет транзакции одного пользователя.
func FilterByUser(txs []models.Transaction, userID int64) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out
}

// FilterByDate оставляет транзакции в интервале [from, to].
func FilterByDate(txs []models.Transaction, from, to time.Time) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.CreatedAt.Before(from) || tx.CreatedAt.After(to) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Stats — сводка по кошельку за период.
type Stats struct {
	TotalIncoming float64
	TotalOutgoing float64
	TotalFees     float64
	Count         int
	ByType        map[models.TransactionType]int
}

func CalculateStats(txs []models.Transaction, currency models.Currency) Stats {
	s := Stats{ByType: make(map[models.TransactionType]int)}
	for _, tx := range txs {
		if tx.Status != models.TxCompleted || tx.Currency != currency {
			continue
		}
		s.Count++
		s.ByType[tx.Type]++
		s.TotalFees += tx.Fee
		if incomingTypes[tx.Type] {
			s.TotalIncoming += tx.Amount
		} else {
			s.TotalOutgoing += tx.Amount
		}
	}
	return s
}
