package wallet

import (
	"fmt"
	"time"

	"svidanie/internal/models"
)

// TxParams — данные для создания транзакции. ID присваивает хранилище.
type TxParams struct {
	UserID           int64
	Type             models.TransactionType
	Amount           float64
	Currency         models.Currency
	Description      string
	Status           models.TransactionStatus
	RelatedBookingID int64
	FromUser         string
	ToUser           string
	Fee              float64
	ReferralLevel    int
}

// New создает транзакцию; статус по умолчанию pending.
func New(now time.Time, p TxParams) models.Transaction {
	status := p.Status
	if status == "" {
		status = models.TxPending
	}

	return models.Transaction{
		UserID:           p.UserID,
		Type:             p.Type,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           status,
		CreatedAt:        now,
		Description:      p.Description,
		RelatedBookingID: p.RelatedBookingID,
		FromUser:         p.FromUser,
		ToUser:           p.ToUser,
		Fee:              p.Fee,
		ReferralLevel:    p.ReferralLevel,
	}
}

func finish(tx models.Transaction, status models.TransactionStatus, now time.Time) models.Transaction {
	tx.Status = status
	tx.CompletedAt = &now
	return tx
}

func Complete(tx models.Transaction, now time.Time) models.Transaction {
	return finish(tx, models.TxCompleted, now)
}

func Fail(tx models.Transaction, now time.Time) models.Transaction {
	return finish(tx, models.TxFailed, now)
}

func Cancel(tx models.Transaction, now time.Time) models.Transaction {
	return finish(tx, models.TxCancelled, now)
}

// Пополнение зачисляется мгновенно.
func NewDeposit(now time.Time, userID int64, amount float64, currency models.Currency) models.Transaction {
	return New(now, TxParams{
		UserID:      userID,
		Type:        models.TxDeposit,
		Amount:      amount,
		Currency:    currency,
		Description: fmt.Sprintf("Пополнение счета %s", currency),
		Status:      models.TxCompleted,
	})
}

// Вывод остается pending до обработки.
func NewWithdraw(now time.Time, userID int64, amount float64, currency models.Currency, address string) models.Transaction {
	short := address
	if len(short) > 20 {
		short = short[:20] + "..."
	}
	return New(now, TxParams{
		UserID:      userID,
		Type:        models.TxWithdraw,
		Amount:      amount,
		Currency:    currency,
		Description: "Вывод средств на " + short,
		Status:      models.TxPending,
	})
}

// Оплата встречи покупателем.
func NewBookingPayment(now time.Time, buyerID, bookingID int64, amount float64, currency models.Currency, sellerName string) models.Transaction {
	return New(now, TxParams{
		UserID:           buyerID,
		Type:             models.TxBookingPayment,
		Amount:           amount,
		Currency:         currency,
		Description:      "Оплата встречи с " + sellerName,
		Status:           models.TxCompleted,
		RelatedBookingID: bookingID,
		ToUser:           sellerName,
	})
}

// Возврат покупателю при отмене или отказе.
func NewBookingRefund(now time.Time, buyerID, bookingID int64, amount float64, currency models.Currency, reason string) models.Transaction {
	return New(now, TxParams{
		UserID:           buyerID,
		Type:             models.TxBookingRefund,
		Amount:           amount,
		Currency:         currency,
		Description:      "Возврат средств: " + reason,
		Status:           models.TxCompleted,
		RelatedBookingID: bookingID,
	})
}

// Зачисление продавцу за вычетом комиссии площадки.
func NewBookingReceived(now time.Time, sellerID, bookingID int64, amount float64, currency models.Currency, buyerName string, fee float64) models.Transaction {
	return New(now, TxParams{
		UserID:           sellerID,
		Type:             models.TxBookingReceived,
		Amount:           amount - fee,
		Currency:         currency,
		Description:      "Получение оплаты от " + buyerName,
		Status:           models.TxCompleted,
		RelatedBookingID: bookingID,
		FromUser:         buyerName,
		Fee:              fee,
	})
}

// Оплата продления идущей встречи.
func NewBookingExtend(now time.Time, buyerID, bookingID int64, amount float64, currency models.Currency, hours float64, sellerName string) models.Transaction {
	return New(now, TxParams{
		UserID:           buyerID,
		Type:             models.TxBookingExtend,
		Amount:           amount,
		Currency:         currency,
		Description:      fmt.Sprintf("Продление встречи на %g ч с %s", hours, sellerName),
		Status:           models.TxCompleted,
		RelatedBookingID: bookingID,
		ToUser:           sellerName,
	})
}

func NewVIPPayment(now time.Time, userID int64, amount float64, currency models.Currency, planName string) models.Transaction {
	return New(now, TxParams{
		UserID:      userID,
		Type:        models.TxVIPPayment,
		Amount:      amount,
		Currency:    currency,
		Description: "Оплата VIP статуса: " + planName,
		Status:      models.TxCompleted,
	})
}

func NewTipSent(now time.Time, buyerID int64, amount float64, currency models.Currency, sellerName string) models.Transaction {
	return New(now, TxParams{
		UserID:      buyerID,
		Type:        models.TxTipSent,
		Amount:      amount,
		Currency:    currency,
		Description: "Чаевые для " + sellerName,
		Status:      models.TxCompleted,
		ToUser:      sellerName,
	})
}

func NewTipReceived(now time.Time, sellerID int64, amount float64, currency models.Currency, buyerName string) models.Transaction {
	return New(now, TxParams{
		UserID:      sellerID,
		Type:        models.TxTipReceived,
		Amount:      amount,
		Currency:    currency,
		Description: "Чаевые от " + buyerName,
		Status:      models.TxCompleted,
		FromUser:    buyerName,
	})
}

// Реферальная комиссия с оплаченной встречи.
func NewReferralCommission(now time.Time, referrerID, bookingID int64, amount float64, currency models.Currency, level int, fromUser string) models.Transaction {
	return New(now, TxParams{
		UserID:           referrerID,
		Type:             models.TxReferralCommission,
		Amount:           amount,
		Currency:         currency,
		Description:      fmt.Sprintf("Реферальная комиссия %d уровня от %s", level, fromUser),
		Status:           models.TxCompleted,
		RelatedBookingID: bookingID,
		FromUser:         fromUser,
		ReferralLevel:    level,
	})
}
