package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Транзакция платежного провайдера. ProviderData хранит сырой JSON
// провайдера (jsonb), его структуру мы не контролируем; RawMessage
// отдаёт его клиенту объектом, а не base64-строкой.
type Transaction struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"` // например, "completed" или "pending"
	Type          string          `json:"type"`   // например, "buy_crypto" или "withdrawal"
	ProviderData  json.RawMessage `json:"provider_data,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
