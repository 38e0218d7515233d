package models

import "time"

type Currency string

const (
	CurrencyRUB  Currency = "RUB"
	CurrencyUSD  Currency = "USD"
	CurrencyEUR  Currency = "EUR"
	CurrencyBTC  Currency = "BTC"
	CurrencyETH  Currency = "ETH"
	CurrencyUSDT Currency = "USDT"
)

type TransactionType string

const (
	TxDeposit            TransactionType = "deposit"
	TxWithdraw           TransactionType = "withdraw"
	TxBookingPayment     TransactionType = "booking_payment"
	TxBookingRefund      TransactionType = "booking_refund"
	TxBookingReceived    TransactionType = "booking_received"
	TxBookingExtend      TransactionType = "booking_extend"
	TxVIPPayment         TransactionType = "vip_payment"
	TxTipSent            TransactionType = "tip_sent"
	TxTipReceived        TransactionType = "tip_received"
	TxReferralCommission TransactionType = "referral_commission"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
)

type Transaction struct {
	ID               int64             `json:"id"`
	UserID           int64             `json:"user_id"`
	Type             TransactionType   `json:"type"`
	Amount           float64           `json:"amount"`
	Currency         Currency          `json:"currency"`
	Status           TransactionStatus `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	Description      string            `json:"description"`
	RelatedBookingID int64             `json:"related_booking_id,omitempty"`
	FromUser         string            `json:"from_user,omitempty"`
	ToUser           string            `json:"to_user,omitempty"`
	Fee              float64           `json:"fee,omitempty"`
	ReferralLevel    int               `json:"referral_level,omitempty"`
}

type WalletBalance struct {
	Currency Currency `json:"currency"`
	Amount   float64  `json:"amount"`
}
