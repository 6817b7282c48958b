package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/estebanArmonica/crypto-trading/internal/service"
)

// ProtonHealthHandler обрабатывает GET /api/v1/proton/health
func ProtonHealthHandler(log *slog.Logger, protonSvc service.ProtonService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProtonHealthHandler"
		logger := log.With(slog.String("op", op))

		health, err := protonSvc.HealthCheck(r.Context())
		if err != nil {
			logger.Error("chain health check failed", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, health)
	}
}

// ProtonSupportedTokensHandler обрабатывает GET /api/v1/proton/supported-tokens
func ProtonSupportedTokensHandler(log *slog.Logger, protonSvc service.ProtonService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProtonSupportedTokensHandler"
		logger := log.With(slog.String("op", op))

		tokens := protonSvc.SupportedTokens()
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"tokens": tokens,
			"count":  len(tokens),
		})
	}
}

// ProtonAccountHandler обрабатывает GET /api/v1/proton/account-info/{account_name}
func ProtonAccountHandler(log *slog.Logger, protonSvc service.ProtonService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProtonAccountHandler"
		logger := log.With(slog.String("op", op))

		accountName := chi.URLParam(r, "account_name")
		account, err := protonSvc.GetAccountInfo(r.Context(), accountName)
		if err != nil {
			logger.Error("failed to get account", slog.String("account", accountName), slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, account)
	}
}

// ProtonBalanceHandler обрабатывает GET /api/v1/proton/balance/{account_name}
// с необязательными contract и symbol
func ProtonBalanceHandler(log *slog.Logger, protonSvc service.ProtonService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProtonBalanceHandler"
		logger := log.With(slog.String("op", op))

		accountName := chi.URLParam(r, "account_name")
		contract := r.URL.Query().Get("contract")
		symbol := r.URL.Query().Get("symbol")

		balance, err := protonSvc.GetBalance(r.Context(), accountName, contract, symbol)
		if err != nil {
			logger.Error("failed to get balance", slog.String("account", accountName), slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, balance)
	}
}

// ProtonAllBalancesHandler обрабатывает GET /api/v1/proton/tokens/{account_name}
func ProtonAllBalancesHandler(log *slog.Logger, protonSvc service.ProtonService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProtonAllBalancesHandler"
		logger := log.With(slog.String("op", op))

		accountName := chi.URLParam(r, "account_name")
		balances, err := protonSvc.GetAllBalances(r.Context(), accountName)
		if err != nil {
			logger.Error("failed to get balances", slog.String("account", accountName), slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, balances)
	}
}
