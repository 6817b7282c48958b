package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/estebanArmonica/crypto-trading/internal/service"
)

// queryInt читает целочисленный query-параметр с дефолтом и границами
func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// популярные монеты, отдаются когда список недоступен
var popularCoins = []interface{}{
	map[string]interface{}{"id": "bitcoin", "symbol": "btc", "name": "Bitcoin"},
	map[string]interface{}{"id": "ethereum", "symbol": "eth", "name": "Ethereum"},
	map[string]interface{}{"id": "binancecoin", "symbol": "bnb", "name": "BNB"},
	map[string]interface{}{"id": "ripple", "symbol": "xrp", "name": "XRP"},
	map[string]interface{}{"id": "cardano", "symbol": "ada", "name": "Cardano"},
	map[string]interface{}{"id": "solana", "symbol": "sol", "name": "Solana"},
	map[string]interface{}{"id": "dogecoin", "symbol": "doge", "name": "Dogecoin"},
	map[string]interface{}{"id": "polkadot", "symbol": "dot", "name": "Polkadot"},
	map[string]interface{}{"id": "shiba-inu", "symbol": "shib", "name": "Shiba Inu"},
	map[string]interface{}{"id": "matic-network", "symbol": "matic", "name": "Polygon"},
}

// AvailableCoinsHandler обрабатывает GET /api/v1/trading/coins/available.
// При недоступности источника отдаёт список популярных монет,
// чтобы фронтенд всегда получал данные.
func AvailableCoinsHandler(log *slog.Logger, trading service.TradingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AvailableCoinsHandler"
		logger := log.With(slog.String("op", op))

		limit := queryInt(r, "limit", 100, 1, 500)

		coins, err := trading.GetAvailableCoins(r.Context())
		if err != nil {
			logger.Warn("coin list unavailable, serving popular coins", slog.Any("error", err))
			writeJSON(w, logger, http.StatusOK, map[string]interface{}{
				"total_coins": len(popularCoins),
				"coins":       popularCoins,
				"message":     "Usando lista de monedas populares (fallback)",
			})
			return
		}
		totalCoins := len(coins)
		if len(coins) > limit {
			coins = coins[:limit]
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"total_coins": totalCoins,
			"coins":       coins,
			"message":     "Use el campo 'id' para consultas específicas",
		})
	}
}

// CurrentPriceHandler обрабатывает GET /api/v1/trading/{coin_id}/price.
// При недоступности источника отдаёт тестовую цену с пометкой.
func CurrentPriceHandler(log *slog.Logger, trading service.TradingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CurrentPriceHandler"
		logger := log.With(slog.String("op", op))

		coinID := chi.URLParam(r, "coin_id")
		if coinID == "" {
			http.Error(w, "coin_id parameter is required", http.StatusBadRequest)
			return
		}

		price, err := trading.GetCurrentPrice(r.Context(), coinID)
		if err != nil {
			logger.Warn("price unavailable, serving fallback", slog.String("coinID", coinID), slog.Any("error", err))
			fallback := 3000.00
			if coinID == "bitcoin" {
				fallback = 45000.00
			}
			writeJSON(w, logger, http.StatusOK, map[string]interface{}{
				"coin_id":   coinID,
				"price":     fallback,
				"currency":  "usd",
				"timestamp": time.Now().Format(time.RFC3339),
				"note":      "Precio de prueba (fallback)",
			})
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"coin_id":   coinID,
			"price":     price,
			"currency":  "usd",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// SignalsHandler обрабатывает GET /api/v1/trading/{coin_id}/signals
func SignalsHandler(log *slog.Logger, trading service.TradingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SignalsHandler"
		logger := log.With(slog.String("op", op))

		coinID := chi.URLParam(r, "coin_id")
		days := queryInt(r, "days", 7, 1, 365)
		timeFrame := r.URL.Query().Get("time_frame")
		if timeFrame == "" {
			timeFrame = "24h"
		}

		signals, err := trading.GetSignals(r.Context(), coinID, days, timeFrame)
		if err != nil {
			logger.Error("failed to get signals", slog.String("coinID", coinID), slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"coin_id":    coinID,
			"time_frame": timeFrame,
			"signals":    signals,
		})
	}
}

// MetricsHandler обрабатывает GET /api/v1/trading/{coin_id}/metrics
func MetricsHandler(log *slog.Logger, trading service.TradingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MetricsHandler"
		logger := log.With(slog.String("op", op))

		coinID := chi.URLParam(r, "coin_id")
		days := queryInt(r, "days", 7, 1, 365)
		timeFrame := r.URL.Query().Get("time_frame")
		if timeFrame == "" {
			timeFrame = "24h"
		}

		metrics, err := trading.GetMetrics(r.Context(), coinID, days, timeFrame)
		if err != nil {
			logger.Error("failed to get metrics", slog.String("coinID", coinID), slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, metrics)
	}
}

// CalculateHandler обрабатывает GET /api/v1/trading/{coin_id}/calculate?amount=
func CalculateHandler(log *slog.Logger, trading service.TradingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CalculateHandler"
		logger := log.With(slog.String("op", op))

		coinID := chi.URLParam(r, "coin_id")
		amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
		if err != nil || amount <= 0 {
			http.Error(w, "amount must be a positive number", http.StatusBadRequest)
			return
		}

		value, err := trading.CalculateValue(r.Context(), coinID, amount)
		if err != nil {
			logger.Error("failed to calculate value", slog.String("coinID", coinID), slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, value)
	}
}

// AnalyzeTimeFrameHandler обрабатывает GET /api/v1/trading/{coin_id}/timeframe
func AnalyzeTimeFrameHandler(log *slog.Logger, trading service.TradingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AnalyzeTimeFrameHandler"
		logger := log.With(slog.String("op", op))

		coinID := chi.URLParam(r, "coin_id")
		start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start_time"))
		if err != nil {
			http.Error(w, "start_time must be RFC3339", http.StatusBadRequest)
			return
		}
		end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end_time"))
		if err != nil {
			http.Error(w, "end_time must be RFC3339", http.StatusBadRequest)
			return
		}
		if !end.After(start) {
			http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
			return
		}

		analysis, err := trading.AnalyzeTimeFrame(r.Context(), coinID, start, end)
		if err != nil {
			logger.Error("failed to analyze timeframe", slog.String("coinID", coinID), slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, analysis)
	}
}
