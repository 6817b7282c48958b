package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/estebanArmonica/crypto-trading/internal/coingecko"
	"github.com/estebanArmonica/crypto-trading/internal/service"
	"github.com/estebanArmonica/crypto-trading/internal/storage"
)

var validate = validator.New()

// writeJSON сериализует ответ, сбой кодирования отдаёт 500
func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

// errorStatus переводит доменные ошибки в HTTP статусы. Отказ внешнего
// API после всех повторов означает недоступность сервиса, 503.
func errorStatus(err error) int {
	var apiErr *coingecko.APIError
	if errors.As(err, &apiErr) {
		return http.StatusServiceUnavailable
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidCode):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrSettingsNotFound),
		errors.Is(err, service.ErrPriceUnavailable):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrEmailTaken),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrPaymentNotOK),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInvalidAccountName),
		errors.Is(err, service.ErrUnknownSignalType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError пишет ошибку единым форматом {"detail": ...}
func respondError(w http.ResponseWriter, log *slog.Logger, err error) {
	writeJSON(w, log, errorStatus(err), map[string]string{"detail": err.Error()})
}
