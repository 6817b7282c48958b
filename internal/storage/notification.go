package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/estebanArmonica/crypto-trading/internal/domain/models"
)

var ErrSettingsNotFound = errors.New("notification settings not found")

// NotificationStorage - настройки email-уведомлений.
type NotificationStorage interface {
	UpsertSettings(ctx context.Context, s *models.NotificationSettings) error
	GetSettings(ctx context.Context, userID int64) (*models.NotificationSettings, error)
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationStorage {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) UpsertSettings(ctx context.Context, s *models.NotificationSettings) error {
	query := `INSERT INTO notification_settings (user_id, email, notification_type, enabled)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (user_id)
	          DO UPDATE SET email = EXCLUDED.email,
	                        notification_type = EXCLUDED.notification_type,
	                        enabled = EXCLUDED.enabled,
	                        updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query, s.UserID, s.Email, s.NotificationType, s.Enabled)
	return err
}

func (r *notificationRepository) GetSettings(ctx context.Context, userID int64) (*models.NotificationSettings, error) {
	s := &models.NotificationSettings{}
	row := r.db.QueryRowContext(ctx,
		"SELECT user_id, email, notification_type, enabled, updated_at FROM notification_settings WHERE user_id = $1", userID)
	if err := row.Scan(&s.UserID, &s.Email, &s.NotificationType, &s.Enabled, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return s, nil
}
