package wallet

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TxTopup    = "topup"
	TxWithdraw = "withdraw"
	TxPurchase = "purchase"
)

// Wallet holds the current balance for a single user. Exactly one wallet per
// user; the balance is only ever mutated through the ledger's apply path so it
// never drifts from the transaction log.
type Wallet struct {
	ID        string          `gorm:"column:id;primaryKey"`
	UserID    string          `gorm:"column:user_id;uniqueIndex;not null"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(20,2);not null"`
	Currency  string          `gorm:"column:currency;type:varchar(3);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Transaction is one append-only ledger row. BalanceAfter equals the wallet
// balance immediately after this row was applied, in creation order.
type Transaction struct {
	ID           string          `gorm:"column:id;primaryKey"`
	WalletID     string          `gorm:"column:wallet_id;index;not null"`
	Code         string          `gorm:"column:code;uniqueIndex"`
	Type         string          `gorm:"column:type;type:varchar(20);not null"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null"`
	BalanceAfter decimal.Decimal `gorm:"column:balance_after;type:numeric(20,2);not null"`
	Description  string          `gorm:"column:description;type:text"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Transaction) TableName() string { return "wallet_transactions" }

func validTxType(t string) bool {
	switch t {
	case TxTopup, TxWithdraw, TxPurchase:
		return true
	}
	return false
}

// isDebit reports whether the transaction type decreases the balance.
func isDebit(t string) bool {
	return t == TxWithdraw || t == TxPurchase
}

// GenerateTransactionCode mints a human-readable code like TXN-20250901-3FA2C1.
func GenerateTransactionCode() (string, error) {
	datePart := time.Now().Format("20060102")

	r := make([]byte, 3) // 3 bytes = 6 hex chars
	_, err := rand.Read(r)
	if err != nil {
		return "", err
	}
	randomPart := strings.ToUpper(fmt.Sprintf("%x", r))

	return fmt.Sprintf("TXN-%s-%s", datePart, randomPart), nil
}
