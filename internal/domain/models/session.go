package models

import "time"

// Session - cookie-сессия пользователя, токен непрозрачный (uuid)
type Session struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
}

// VerificationCode - одноразовый 6-значный код для двухэтапного логина
type VerificationCode struct {
	ID        int64
	UserID    int64
	Code      string
	ExpiresAt time.Time
	Used      bool
}
