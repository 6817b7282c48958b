package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/estebanArmonica/crypto-trading/internal/coingecko"
)

// Обработчики прямого доступа к рыночным данным. Тонкие обёртки:
// вся устойчивость (повторы, кэш) живёт в фасаде.

// PingHandler обрабатывает GET /api/v1/coingecko/ping
func PingHandler(log *slog.Logger, market *coingecko.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PingHandler"
		logger := log.With(slog.String("op", op))

		res, err := market.Ping(r.Context())
		if err != nil {
			logger.Error("ping failed", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, res)
	}
}

// PricesHandler обрабатывает GET /api/v1/coingecko/prices?coin_ids=&vs_currencies=
func PricesHandler(log *slog.Logger, market *coingecko.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PricesHandler"
		logger := log.With(slog.String("op", op))

		coinIDs := r.URL.Query().Get("coin_ids")
		vsCurrencies := r.URL.Query().Get("vs_currencies")
		if coinIDs == "" || vsCurrencies == "" {
			http.Error(w, "coin_ids and vs_currencies are required", http.StatusBadRequest)
			return
		}

		prices, err := market.SimplePrice(r.Context(), coinIDs, vsCurrencies)
		if err != nil {
			logger.Error("failed to get prices", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, prices)
	}
}

// CoinsListHandler обрабатывает GET /api/v1/coingecko/coins/list
func CoinsListHandler(log *slog.Logger, market *coingecko.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CoinsListHandler"
		logger := log.With(slog.String("op", op))

		coins, err := market.CoinsList(r.Context())
		if err != nil {
			logger.Error("failed to list coins", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, coins)
	}
}

// CoinsMarketsHandler обрабатывает GET /api/v1/coingecko/coins/markets
func CoinsMarketsHandler(log *slog.Logger, market *coingecko.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CoinsMarketsHandler"
		logger := log.With(slog.String("op", op))

		p := coingecko.MarketsParams{
			VsCurrency: r.URL.Query().Get("vs_currency"),
			Order:      r.URL.Query().Get("order"),
			PerPage:    queryInt(r, "per_page", 100, 1, 250),
			Page:       queryInt(r, "page", 1, 1, 1000),
		}
		if p.VsCurrency == "" {
			p.VsCurrency = "usd"
		}
		if p.Order == "" {
			p.Order = "market_cap_desc"
		}

		markets, err := market.CoinsMarkets(r.Context(), p)
		if err != nil {
			logger.Error("failed to get markets", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, markets)
	}
}

// GlobalHandler обрабатывает GET /api/v1/coingecko/global
func GlobalHandler(log *slog.Logger, market *coingecko.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GlobalHandler"
		logger := log.With(slog.String("op", op))

		global, err := market.Global(r.Context())
		if err != nil {
			logger.Error("failed to get global data", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, global)
	}
}

// DefiHandler обрабатывает GET /api/v1/coingecko/decentralized
func DefiHandler(log *slog.Logger, market *coingecko.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DefiHandler"
		logger := log.With(slog.String("op", op))

		defi, err := market.GlobalDefi(r.Context())
		if err != nil {
			logger.Error("failed to get defi data", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, defi)
	}
}

// CategoriesHandler обрабатывает GET /api/v1/coingecko/categories
func CategoriesHandler(log *slog.Logger, market *coingecko.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CategoriesHandler"
		logger := log.With(slog.String("op", op))

		categories, err := market.Categories(r.Context())
		if err != nil {
			logger.Error("failed to get categories", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, categories)
	}
}

// CompaniesHandler обрабатывает GET /api/v1/coingecko/companies/{coin_id}
func CompaniesHandler(log *slog.Logger, market *coingecko.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CompaniesHandler"
		logger := log.With(slog.String("op", op))

		coinID := chi.URLParam(r, "coin_id")
		if coinID != "bitcoin" && coinID != "ethereum" {
			http.Error(w, "coin_id must be bitcoin or ethereum", http.StatusBadRequest)
			return
		}

		companies, err := market.CompaniesPublicTreasury(r.Context(), coinID)
		if err != nil {
			logger.Error("failed to get companies", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, companies)
	}
}

// CoinDetailHandler обрабатывает GET /api/v1/coingecko/coins/{coin_id}
func CoinDetailHandler(log *slog.Logger, market *coingecko.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CoinDetailHandler"
		logger := log.With(slog.String("op", op))

		coinID := chi.URLParam(r, "coin_id")
		coin, err := market.CoinByID(r.Context(), coinID)
		if err != nil {
			logger.Error("failed to get coin", slog.String("coinID", coinID), slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, coin)
	}
}

// OHLCHandler обрабатывает GET /api/v1/coingecko/coins/{coin_id}/ohlc?days=
func OHLCHandler(log *slog.Logger, market *coingecko.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OHLCHandler"
		logger := log.With(slog.String("op", op))

		coinID := chi.URLParam(r, "coin_id")
		days := queryInt(r, "days", 7, 1, 365)

		candles, err := market.OHLC(r.Context(), coinID, "usd", days)
		if err != nil {
			logger.Error("failed to get ohlc", slog.String("coinID", coinID), slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"coin_id": coinID,
			"days":    days,
			"candles": candles,
		})
	}
}

// SearchHandler обрабатывает GET /api/v1/coingecko/search?query=
func SearchHandler(log *slog.Logger, market *coingecko.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SearchHandler"
		logger := log.With(slog.String("op", op))

		query := r.URL.Query().Get("query")
		if query == "" {
			http.Error(w, "query is required", http.StatusBadRequest)
			return
		}

		result, err := market.Search(r.Context(), query)
		if err != nil {
			logger.Error("search failed", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, result)
	}
}
