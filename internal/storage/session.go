package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// SessionStorage описывает методы для работы с cookie-сессиями.
type SessionStorage interface {
	CreateSession(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	// GetUserIDByToken возвращает владельца действующей (непросроченной) сессии.
	GetUserIDByToken(ctx context.Context, token string) (int64, error)
	DeleteSession(ctx context.Context, token string) error
	// DeleteExpired удаляет просроченные сессии, возвращает число удалённых строк.
	DeleteExpired(ctx context.Context) (int64, error)
}

type sessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) SessionStorage {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) CreateSession(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (user_id, session_token, expires_at) VALUES ($1, $2, $3)",
		userID, token, expiresAt)
	return err
}

func (r *sessionRepository) GetUserIDByToken(ctx context.Context, token string) (int64, error) {
	var userID int64
	row := r.db.QueryRowContext(ctx,
		"SELECT user_id FROM sessions WHERE session_token = $1 AND expires_at > NOW()", token)
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrSessionNotFound
		}
		return 0, err
	}
	return userID, nil
}

func (r *sessionRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_token = $1", token)
	return err
}

func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= NOW()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
