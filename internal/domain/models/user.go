package models

import "time"

// User представляет пользователя платформы
type User struct {
	ID        int64
	Name      string
	Surname   string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}
