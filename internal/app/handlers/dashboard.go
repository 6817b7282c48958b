package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/estebanArmonica/crypto-trading/internal/coingecko"
	"github.com/estebanArmonica/crypto-trading/internal/domain/models"
	"github.com/estebanArmonica/crypto-trading/internal/service"
)

// GlobalMetricsHandler обрабатывает GET /api/v1/dashboard/global-metrics
func GlobalMetricsHandler(log *slog.Logger, market *coingecko.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GlobalMetricsHandler"
		logger := log.With(slog.String("op", op))

		global, err := market.Global(r.Context())
		if err != nil {
			logger.Error("failed to get global metrics", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, global)
	}
}

// CoinAnalysisHandler обрабатывает GET /api/v1/dashboard/analysis/{coin_id}
func CoinAnalysisHandler(log *slog.Logger, analysis service.AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CoinAnalysisHandler"
		logger := log.With(slog.String("op", op))

		coinID := chi.URLParam(r, "coin_id")
		days := queryInt(r, "days", 30, 1, 365)

		result, err := analysis.GetCoinAnalysis(r.Context(), coinID, days)
		if err != nil {
			logger.Error("failed to analyze coin", slog.String("coinID", coinID), slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, result)
	}
}

// FilterCoinsHandler обрабатывает POST /api/v1/dashboard/filter
func FilterCoinsHandler(log *slog.Logger, analysis service.AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.FilterCoinsHandler"
		logger := log.With(slog.String("op", op))

		var filter models.CoinFilter
		if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if filter.Trend != "" && filter.Trend != "bullish" && filter.Trend != "bearish" {
			http.Error(w, "trend must be bullish or bearish", http.StatusBadRequest)
			return
		}

		coins, err := analysis.GetFilteredCoins(r.Context(), filter)
		if err != nil {
			logger.Error("failed to filter coins", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, coins)
	}
}

// TopOpportunitiesHandler обрабатывает GET /api/v1/dashboard/top-opportunities
func TopOpportunitiesHandler(log *slog.Logger, analysis service.AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.TopOpportunitiesHandler"
		logger := log.With(slog.String("op", op))

		limit := queryInt(r, "limit", 10, 1, 50)

		opportunities, err := analysis.GetTopOpportunities(r.Context(), limit)
		if err != nil {
			logger.Error("failed to get opportunities", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, opportunities)
	}
}

// MarketPerformanceHandler обрабатывает GET /api/v1/market/performance
func MarketPerformanceHandler(log *slog.Logger, analysis service.AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MarketPerformanceHandler"
		logger := log.With(slog.String("op", op))

		perf, err := analysis.GetMarketPerformance(r.Context())
		if err != nil {
			logger.Error("failed to get market performance", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, perf)
	}
}

// TopGainersHandler обрабатывает GET /api/v1/coins/top-gainers
func TopGainersHandler(log *slog.Logger, analysis service.AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.TopGainersHandler"
		logger := log.With(slog.String("op", op))

		limit := queryInt(r, "limit", 10, 1, 50)
		gainers, err := analysis.GetTopGainers(r.Context(), limit)
		if err != nil {
			logger.Error("failed to get top gainers", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"gainers": gainers,
			"limit":   limit,
		})
	}
}

// TopLosersHandler обрабатывает GET /api/v1/coins/top-losers
func TopLosersHandler(log *slog.Logger, analysis service.AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.TopLosersHandler"
		logger := log.With(slog.String("op", op))

		limit := queryInt(r, "limit", 10, 1, 50)
		losers, err := analysis.GetTopLosers(r.Context(), limit)
		if err != nil {
			logger.Error("failed to get top losers", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"losers": losers,
			"limit":  limit,
		})
	}
}

// TrendingHandler обрабатывает GET /api/v1/coins/trending
func TrendingHandler(log *slog.Logger, analysis service.AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.TrendingHandler"
		logger := log.With(slog.String("op", op))

		limit := queryInt(r, "limit", 10, 1, 20)
		trending, err := analysis.GetTrendingCoins(r.Context(), limit)
		if err != nil {
			logger.Error("failed to get trending coins", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"trending": trending,
			"limit":    limit,
		})
	}
}
