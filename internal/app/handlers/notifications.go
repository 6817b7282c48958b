package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/estebanArmonica/crypto-trading/internal/auth/authmw"
	"github.com/estebanArmonica/crypto-trading/internal/service"
)

// NotificationSettingsRequest - тело POST /api/notifications/settings
type NotificationSettingsRequest struct {
	Email            string `json:"email" validate:"required,email"`
	NotificationType string `json:"notification_type"`
	Enabled          bool   `json:"enabled"`
}

// NotificationSettingsHandler обрабатывает POST /api/notifications/settings
func NotificationSettingsHandler(log *slog.Logger, notifications service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.NotificationSettingsHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req NotificationSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		settings, err := notifications.SaveSettings(r.Context(), userID, req.Email, req.NotificationType, req.Enabled)
		if err != nil {
			logger.Error("failed to save settings", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Configuración guardada exitosamente",
			"settings": map[string]interface{}{
				"email":             settings.Email,
				"notification_type": settings.NotificationType,
				"enabled":           settings.Enabled,
			},
		})
	}
}

// GetNotificationSettingsHandler обрабатывает GET /api/notifications/settings
func GetNotificationSettingsHandler(log *slog.Logger, notifications service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetNotificationSettingsHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		settings, err := notifications.GetSettings(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get settings", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, settings)
	}
}

// EMAAlertRequest - тело POST /api/notifications/ema-alert
type EMAAlertRequest struct {
	CoinID       string  `json:"coin_id" validate:"required"`
	SignalType   string  `json:"signal_type" validate:"required"`
	CurrentPrice float64 `json:"current_price" validate:"required"`
	EMAValue     float64 `json:"ema_value" validate:"required"`
	Confidence   string  `json:"confidence"`
}

// EMAAlertHandler обрабатывает POST /api/notifications/ema-alert.
// Выключенные уведомления и неподходящий тип сигнала не ошибка:
// клиент получает success=false с пояснением.
func EMAAlertHandler(log *slog.Logger, notifications service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.EMAAlertHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req EMAAlertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}
		if req.Confidence == "" {
			req.Confidence = "medium"
		}

		email, err := notifications.SendEMAAlert(r.Context(), userID, service.EMAAlert{
			CoinID:       req.CoinID,
			SignalType:   req.SignalType,
			CurrentPrice: req.CurrentPrice,
			EMAValue:     req.EMAValue,
			Confidence:   req.Confidence,
		})
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotificationsOff):
				writeJSON(w, logger, http.StatusOK, map[string]interface{}{
					"success": false,
					"message": "Notificaciones desactivadas",
				})
			case errors.Is(err, service.ErrSignalTypeNotAllowed):
				writeJSON(w, logger, http.StatusOK, map[string]interface{}{
					"success": false,
					"message": "Tipo de notificación no permitido",
				})
			default:
				logger.Error("failed to send alert", slog.Any("error", err))
				respondError(w, logger, err)
			}
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Notificación enviada exitosamente",
			"email":   email,
		})
	}
}
