package models

import "time"

// Типы уведомлений по торговым сигналам
const (
	NotifyBoth = "both"
	NotifyBuy  = "buy"
	NotifySell = "sell"
)

// NotificationSettings - настройки email-уведомлений, одна строка на пользователя
type NotificationSettings struct {
	UserID           int64     `json:"user_id"`
	Email            string    `json:"email"`
	NotificationType string    `json:"notification_type"` // both | buy | sell
	Enabled          bool      `json:"enabled"`
	UpdatedAt        time.Time `json:"updated_at"`
}
