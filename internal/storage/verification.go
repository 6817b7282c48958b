package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/estebanArmonica/crypto-trading/internal/domain/models"
)

var ErrCodeNotFound = errors.New("verification code invalid or expired")

// VerificationCodeStorage - одноразовые коды двухэтапного логина.
type VerificationCodeStorage interface {
	CreateCode(ctx context.Context, userID int64, code string, expiresAt time.Time) error
	// GetValidCode ищет непросроченный и неиспользованный код пользователя.
	GetValidCode(ctx context.Context, userID int64, code string) (*models.VerificationCode, error)
	MarkUsed(ctx context.Context, id int64) error
}

type verificationCodeRepository struct {
	db *sql.DB
}

func NewVerificationCodeRepository(db *sql.DB) VerificationCodeStorage {
	return &verificationCodeRepository{db: db}
}

func (r *verificationCodeRepository) CreateCode(ctx context.Context, userID int64, code string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO verification_codes (user_id, code, expires_at, used) VALUES ($1, $2, $3, FALSE)",
		userID, code, expiresAt)
	return err
}

func (r *verificationCodeRepository) GetValidCode(ctx context.Context, userID int64, code string) (*models.VerificationCode, error) {
	vc := &models.VerificationCode{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, code, expires_at, used FROM verification_codes WHERE user_id = $1 AND code = $2 AND expires_at > NOW() AND used = FALSE",
		userID, code)
	if err := row.Scan(&vc.ID, &vc.UserID, &vc.Code, &vc.ExpiresAt, &vc.Used); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return vc, nil
}

func (r *verificationCodeRepository) MarkUsed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE verification_codes SET used = TRUE WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCodeNotFound
	}
	return nil
}
