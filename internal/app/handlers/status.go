package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"
)

// StatusHandler обрабатывает GET /api/status
func StatusHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, http.StatusOK, map[string]string{
			"status":  "OK",
			"message": "Service is running",
		})
	}
}

// HealthHandler обрабатывает GET /api/health: проверяет соединение с БД
func HealthHandler(log *slog.Logger, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.HealthHandler"
		logger := log.With(slog.String("op", op))

		dbStatus := "ok"
		status := http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			logger.Error("database ping failed", slog.Any("error", err))
			dbStatus = "unavailable"
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, logger, status, map[string]interface{}{
			"status":    dbStatus,
			"timestamp": time.Now().Format(time.RFC3339),
			"checks": map[string]string{
				"database": dbStatus,
			},
		})
	}
}
