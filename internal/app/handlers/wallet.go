package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/estebanArmonica/crypto-trading/internal/wallet"
)

func walletError(w http.ResponseWriter, log *slog.Logger, err error) {
	if errors.Is(err, wallet.ErrNotConfigured) {
		writeJSON(w, log, http.StatusServiceUnavailable, map[string]string{
			"detail": "wallet service is not configured",
		})
		return
	}
	respondError(w, log, err)
}

// WalletCreateAccountRequest - тело POST /api/v1/wallet/evm/accounts
type WalletCreateAccountRequest struct {
	Name string `json:"name"`
}

// WalletCreateAccountHandler обрабатывает POST /api/v1/wallet/evm/create
func WalletCreateAccountHandler(log *slog.Logger, client *wallet.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.WalletCreateAccountHandler"
		logger := log.With(slog.String("op", op))

		var req WalletCreateAccountRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				logger.Error("invalid request: decoding error", slog.Any("error", err))
				http.Error(w, "invalid request", http.StatusBadRequest)
				return
			}
		}

		account, err := client.CreateEVMAccount(r.Context(), req.Name)
		if err != nil {
			logger.Error("failed to create account", slog.Any("error", err))
			walletError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success": true,
			"account": account,
		})
	}
}

// WalletGetAccountHandler обрабатывает GET /api/v1/wallet/evm/accounts/{address}
func WalletGetAccountHandler(log *slog.Logger, client *wallet.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.WalletGetAccountHandler"
		logger := log.With(slog.String("op", op))

		address := chi.URLParam(r, "address")
		account, err := client.GetEVMAccount(r.Context(), address)
		if err != nil {
			logger.Error("failed to get account", slog.String("address", address), slog.Any("error", err))
			walletError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success": true,
			"account": account,
		})
	}
}

// WalletListAccountsHandler обрабатывает GET /api/v1/wallet/evm/accounts
func WalletListAccountsHandler(log *slog.Logger, client *wallet.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.WalletListAccountsHandler"
		logger := log.With(slog.String("op", op))

		list, err := client.ListEVMAccounts(r.Context(), r.URL.Query().Get("page_token"))
		if err != nil {
			logger.Error("failed to list accounts", slog.Any("error", err))
			walletError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success":         true,
			"accounts":        list.Accounts,
			"next_page_token": list.NextPageToken,
		})
	}
}

// WalletFaucetRequest - тело POST /api/v1/wallet/evm/faucet
type WalletFaucetRequest struct {
	Address string `json:"address" validate:"required"`
	Network string `json:"network"`
	Token   string `json:"token"`
}

// WalletFaucetHandler обрабатывает POST /api/v1/wallet/evm/faucet:
// запрос тестовых токенов для адреса в тестовой сети
func WalletFaucetHandler(log *slog.Logger, client *wallet.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.WalletFaucetHandler"
		logger := log.With(slog.String("op", op))

		var req WalletFaucetRequest
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

		txHash, err := client.RequestFaucet(r.Context(), req.Address, req.Network, req.Token)
		if err != nil {
			logger.Error("faucet request failed", slog.Any("error", err))
			walletError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success":          true,
			"transaction_hash": txHash,
		})
	}
}
