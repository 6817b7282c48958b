package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/estebanArmonica/crypto-trading/internal/domain/models"
	"github.com/estebanArmonica/crypto-trading/internal/mailer"
	"github.com/estebanArmonica/crypto-trading/internal/storage"
)

var (
	ErrNotificationsOff      = errors.New("notifications disabled")
	ErrSignalTypeNotAllowed  = errors.New("signal type not allowed by settings")
	ErrUnknownSignalType     = errors.New("unknown signal type")
	ErrUnknownNotifyCategory = errors.New("unknown notification type")
)

// EMAAlert - данные алерта по пересечению EMA
type EMAAlert struct {
	CoinID       string
	SignalType   string // BUY | SELL
	CurrentPrice float64
	EMAValue     float64
	Confidence   string
}

type NotificationService interface {
	SaveSettings(ctx context.Context, userID int64, email, notificationType string, enabled bool) (*models.NotificationSettings, error)
	GetSettings(ctx context.Context, userID int64) (*models.NotificationSettings, error)
	// SendEMAAlert шлёт алерт с учётом настроек пользователя.
	SendEMAAlert(ctx context.Context, userID int64, alert EMAAlert) (string, error)
}

type notificationService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	repo     storage.NotificationStorage
	mailer   mailer.Sender
}

func NewNotificationService(log *slog.Logger, userRepo storage.UserStorage, repo storage.NotificationStorage, sender mailer.Sender) NotificationService {
	return &notificationService{log: log, userRepo: userRepo, repo: repo, mailer: sender}
}

func (s *notificationService) SaveSettings(ctx context.Context, userID int64, email, notificationType string, enabled bool) (*models.NotificationSettings, error) {
	const op = "service.NotificationService.SaveSettings"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	switch notificationType {
	case models.NotifyBoth, models.NotifyBuy, models.NotifySell:
	default:
		notificationType = models.NotifyBoth
	}

	settings := &models.NotificationSettings{
		UserID:           userID,
		Email:            email,
		NotificationType: notificationType,
		Enabled:          enabled,
	}
	if err := s.repo.UpsertSettings(ctx, settings); err != nil {
		logger.Error("failed to save settings", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to save settings: %w", op, err)
	}

	logger.Info("settings saved", slog.String("type", notificationType), slog.Bool("enabled", enabled))
	return settings, nil
}

func (s *notificationService) GetSettings(ctx context.Context, userID int64) (*models.NotificationSettings, error) {
	const op = "service.NotificationService.GetSettings"

	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return settings, nil
}

// SendEMAAlert отправляет письмо, если уведомления включены и тип
// сигнала разрешён настройками. Возвращает адрес получателя.
func (s *notificationService) SendEMAAlert(ctx context.Context, userID int64, alert EMAAlert) (string, error) {
	const op = "service.NotificationService.SendEMAAlert"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("coinID", alert.CoinID))

	if alert.SignalType != models.SignalBuy && alert.SignalType != models.SignalSell {
		return "", fmt.Errorf("%s: %w", op, ErrUnknownSignalType)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrSettingsNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrNotificationsOff)
		}
		logger.Error("failed to get settings", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get settings: %w", op, err)
	}
	if !settings.Enabled {
		return "", fmt.Errorf("%s: %w", op, ErrNotificationsOff)
	}
	if (settings.NotificationType == models.NotifyBuy && alert.SignalType != models.SignalBuy) ||
		(settings.NotificationType == models.NotifySell && alert.SignalType != models.SignalSell) {
		return "", fmt.Errorf("%s: %w", op, ErrSignalTypeNotAllowed)
	}

	if err := s.mailer.SendEMAAlert(
		user.Email, user.Name,
		alert.CoinID, alert.SignalType,
		alert.CurrentPrice, alert.EMAValue, alert.Confidence,
	); err != nil {
		logger.Error("failed to send alert", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to send alert: %w", op, err)
	}

	logger.Info("alert sent", slog.String("signalType", alert.SignalType))
	return user.Email, nil
}
