package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/estebanArmonica/crypto-trading/internal/auth/authmw"
	"github.com/estebanArmonica/crypto-trading/internal/paypal"
	"github.com/estebanArmonica/crypto-trading/internal/service"
)

// BuyCryptoHandlerRequest - тело POST /api/paypal/buy-crypto
type BuyCryptoHandlerRequest struct {
	PaymentID  string          `json:"paymentID" validate:"required"`
	PayerID    string          `json:"payerID" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	CoinID     string          `json:"coin_id" validate:"required"`
	CoinAmount decimal.Decimal `json:"coin_amount"`
}

// BuyCryptoHandler обрабатывает POST /api/paypal/buy-crypto
func BuyCryptoHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.BuyCryptoHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req BuyCryptoHandlerRequest
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

		result, err := payments.BuyCrypto(r.Context(), userID, service.BuyCryptoRequest{
			PaymentID:  req.PaymentID,
			PayerID:    req.PayerID,
			Amount:     req.Amount,
			CoinID:     req.CoinID,
			CoinAmount: req.CoinAmount,
		})
		if err != nil {
			logger.Error("purchase failed", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success":        true,
			"message":        "Compra realizada exitosamente",
			"transaction_id": result.TransactionID,
			"coin_id":        result.CoinID,
			"coin_amount":    result.CoinAmount,
			"price_per_coin": result.PricePerCoin,
			"total_amount":   result.TotalAmount,
			"timestamp":      result.Timestamp,
		})
	}
}

// WithdrawRequest - тело POST /api/paypal/payout
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Email  string          `json:"email" validate:"required,email"`
}

// WithdrawHandler обрабатывает POST /api/paypal/payout
func WithdrawHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.WithdrawHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req WithdrawRequest
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

		result, err := payments.Withdraw(r.Context(), userID, req.Amount, req.Email)
		if err != nil {
			logger.Error("withdrawal failed", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success":  true,
			"batch_id": result.BatchID,
			"status":   result.Status,
		})
	}
}

// PayoutStatusHandler обрабатывает GET /api/paypal/payout-status/{batch_id}
func PayoutStatusHandler(log *slog.Logger, provider *paypal.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PayoutStatusHandler"
		logger := log.With(slog.String("op", op))

		if _, ok := authmw.FromContext(r.Context()); !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		batchID := chi.URLParam(r, "batch_id")
		status, err := provider.GetPayoutStatus(r.Context(), batchID)
		if err != nil {
			logger.Error("failed to get payout status", slog.String("batchID", batchID), slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, status)
	}
}

// USDBalanceHandler обрабатывает GET /api/user/balance
func USDBalanceHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.USDBalanceHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		balance, err := payments.GetUSDBalance(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get balance", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success":  true,
			"balance":  balance,
			"currency": "USD",
			"user_id":  userID,
		})
	}
}

// CryptoBalanceHandler обрабатывает GET /api/user/crypto-balance/{coin_id}
func CryptoBalanceHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CryptoBalanceHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		coinID := chi.URLParam(r, "coin_id")
		balance, err := payments.GetCryptoBalance(r.Context(), userID, coinID)
		if err != nil {
			logger.Error("failed to get crypto balance", slog.String("coinID", coinID), slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success": true,
			"coin_id": coinID,
			"balance": balance,
		})
	}
}

// CryptoBalancesHandler обрабатывает GET /api/user/crypto-balances
func CryptoBalancesHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CryptoBalancesHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := payments.GetCryptoBalances(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get crypto balances", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success":         true,
			"balances":        result.Balances,
			"user_id":         userID,
			"total_value_usd": result.TotalValueUSD,
		})
	}
}

// TransactionsHandler обрабатывает GET /api/user/transactions
func TransactionsHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.TransactionsHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		txs, err := payments.GetTransactions(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get transactions", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success":      true,
			"transactions": txs,
		})
	}
}
