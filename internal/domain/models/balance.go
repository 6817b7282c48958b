package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserBalance - USD баланс, одна строка на пользователя
type UserBalance struct {
	UserID     int64
	USDBalance decimal.Decimal
	UpdatedAt  time.Time
}

// CryptoBalance - баланс по монете, одна строка на пару (user, coin).
// ValueUSD заполняется сервисом по текущим ценам, в БД не хранится.
type CryptoBalance struct {
	UserID    int64           `json:"user_id"`
	CoinID    string          `json:"coin_id"`
	Balance   decimal.Decimal `json:"balance"`
	ValueUSD  float64         `json:"value_usd"`
	UpdatedAt time.Time       `json:"updated_at"`
}
