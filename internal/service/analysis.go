package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/estebanArmonica/crypto-trading/internal/coingecko"
	"github.com/estebanArmonica/crypto-trading/internal/domain/models"
)

// MarketPerformance - сводка рынка из глобальной статистики
type MarketPerformance struct {
	TotalMarketCap         float64 `json:"total_market_cap"`
	TotalVolume            float64 `json:"total_volume"`
	VolumeMarketCapRatio   float64 `json:"volume_market_cap_ratio"`
	MarketCapChange24h     float64 `json:"market_cap_change_24h"`
	ActiveCryptocurrencies float64 `json:"active_cryptocurrencies"`
	Markets                float64 `json:"markets"`
	BitcoinDominance       float64 `json:"bitcoin_dominance"`
	EthereumDominance      float64 `json:"ethereum_dominance"`
	Timestamp              string  `json:"timestamp"`
}

// TrendingCoin - монета из трендового списка
type TrendingCoin struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Symbol        string      `json:"symbol"`
	MarketCapRank interface{} `json:"market_cap_rank"`
	Thumb         string      `json:"thumb"`
	PriceBTC      interface{} `json:"price_btc"`
}

type AnalysisService interface {
	GetCoinAnalysis(ctx context.Context, coinID string, days int) (*models.CryptoAnalysis, error)
	GetFilteredCoins(ctx context.Context, filter models.CoinFilter) ([]interface{}, error)
	GetTopOpportunities(ctx context.Context, limit int) ([]models.Opportunity, error)
	GetMarketPerformance(ctx context.Context) (*MarketPerformance, error)
	GetTopGainers(ctx context.Context, limit int) ([]interface{}, error)
	GetTopLosers(ctx context.Context, limit int) ([]interface{}, error)
	GetTrendingCoins(ctx context.Context, limit int) ([]TrendingCoin, error)
}

type analysisService struct {
	log     *slog.Logger
	market  MarketClient
	trading TradingService
	now     func() time.Time
}

func NewAnalysisService(log *slog.Logger, market MarketClient, trading TradingService) AnalysisService {
	return &analysisService{log: log, market: market, trading: trading, now: time.Now}
}

// CalculateMovingAverage - простая скользящая средняя по последним window точкам.
// Второе значение false при недостатке данных.
func CalculateMovingAverage(prices []float64, window int) (float64, bool) {
	if len(prices) < window || window <= 0 {
		return 0, false
	}
	sum := 0.0
	for _, p := range prices[len(prices)-window:] {
		sum += p
	}
	return sum / float64(window), true
}

// CalculateRSI - индекс относительной силы за period. При нехватке
// данных возвращает нейтральные 50, при нулевых потерях 100.
func CalculateRSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50
	}

	var gains, losses []float64
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains = append(gains, change)
		} else if change < 0 {
			losses = append(losses, -change)
		}
	}

	avgGain := 0.0
	if len(gains) > 0 {
		n := period
		if len(gains) < n {
			n = len(gains)
		}
		sum := 0.0
		for _, g := range gains[len(gains)-n:] {
			sum += g
		}
		avgGain = sum / float64(period)
	}

	avgLoss := 0.0
	if len(losses) > 0 {
		n := period
		if len(losses) < n {
			n = len(losses)
		}
		sum := 0.0
		for _, l := range losses[len(losses)-n:] {
			sum += l
		}
		avgLoss = sum / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// PredictPriceTrend строит эвристический прогноз: перепроданность
// (RSI<30 под средними) обещает отскок, перекупленность коррекцию,
// иначе сглаженное продолжение текущего движения.
func PredictPriceTrend(points []models.PricePoint, timeframeHours int) *models.PricePrediction {
	if len(points) < 10 {
		return nil
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}

	currentPrice := prices[len(prices)-1]
	ma5, ok := CalculateMovingAverage(prices, 5)
	if !ok {
		ma5 = currentPrice
	}
	ma10, ok := CalculateMovingAverage(prices, 10)
	if !ok {
		ma10 = currentPrice
	}
	rsi := CalculateRSI(prices, 14)

	recentChange := 0.0
	if len(prices) >= 5 && prices[len(prices)-5] != 0 {
		recentChange = (currentPrice - prices[len(prices)-5]) / prices[len(prices)-5] * 100
	}

	var predictedChange, confidence float64
	var trend string
	switch {
	case rsi < 30 && currentPrice < ma5 && currentPrice < ma10:
		// перепроданность: закладываем возврат половины падения
		predictedChange = math.Abs(recentChange) * 0.5
		trend = "bullish"
		confidence = math.Min(0.8, (30-rsi)/30)
	case rsi > 70 && currentPrice > ma5 && currentPrice > ma10:
		// перекупленность: коррекция на треть роста
		predictedChange = -math.Abs(recentChange) * 0.3
		trend = "bearish"
		confidence = math.Min(0.8, (rsi-70)/30)
	default:
		predictedChange = recentChange * 0.5
		trend = "bearish"
		if predictedChange > 0 {
			trend = "bullish"
		}
		confidence = 0.5
	}

	return &models.PricePrediction{
		CurrentPrice:     currentPrice,
		PredictedPrice:   currentPrice * (1 + predictedChange/100),
		ChangePercentage: predictedChange,
		PredictedTrend:   trend,
		Confidence:       confidence,
		TimeframeHours:   timeframeHours,
	}
}

// GenerateTechnicalSignals строит сигналы по RSI и скользящим средним
func GenerateTechnicalSignals(points []models.PricePoint, currentPrice float64, now time.Time) []models.TradingSignal {
	if len(points) == 0 {
		return nil
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}

	rsi := CalculateRSI(prices, 14)
	ma5, ok := CalculateMovingAverage(prices, 5)
	if !ok {
		ma5 = currentPrice
	}
	ma20, ok := CalculateMovingAverage(prices, 20)
	if !ok {
		ma20 = currentPrice
	}

	ts := now.Format(time.RFC3339)
	switch {
	case rsi < 30 && currentPrice > ma20:
		return []models.TradingSignal{{
			Type:       models.SignalBuy,
			Price:      currentPrice,
			Reason:     fmt.Sprintf("RSI en sobreventa (%.1f) y precio sobre media 20 días", rsi),
			Confidence: models.ConfidenceHigh,
			Timestamp:  ts,
			TimeFrame:  "24h",
		}}
	case rsi > 70:
		return []models.TradingSignal{{
			Type:       models.SignalSell,
			Price:      currentPrice,
			Reason:     fmt.Sprintf("RSI en sobrecompra (%.1f)", rsi),
			Confidence: models.ConfidenceMedium,
			Timestamp:  ts,
			TimeFrame:  "24h",
		}}
	case currentPrice > ma5 && ma5 > ma20:
		return []models.TradingSignal{{
			Type:       models.SignalBuy,
			Price:      currentPrice,
			Reason:     "Tendencia alcista fuerte (precio > MA5 > MA20)",
			Confidence: models.ConfidenceMedium,
			Timestamp:  ts,
			TimeFrame:  "24h",
		}}
	default:
		return []models.TradingSignal{{
			Type:       models.SignalHold,
			Price:      currentPrice,
			Reason:     "Mercado en rango lateral, esperar señales más claras",
			Confidence: models.ConfidenceLow,
			Timestamp:  ts,
			TimeFrame:  "24h",
		}}
	}
}

// GetCoinAnalysis собирает полный разбор монеты: рыночный срез,
// технические сигналы, прогноз и усечённую историю (последние 100 точек)
func (s *analysisService) GetCoinAnalysis(ctx context.Context, coinID string, days int) (*models.CryptoAnalysis, error) {
	const op = "service.AnalysisService.GetCoinAnalysis"
	logger := s.log.With(slog.String("op", op), slog.String("coinID", coinID))
	logger.Info("analyzing coin", slog.Int("days", days))

	points, err := s.trading.GetHistoricalData(ctx, coinID, days)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	currentPrice, err := s.trading.GetCurrentPrice(ctx, coinID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var priceChange24h, marketCap, volume24h float64
	marketData, err := s.market.CoinsMarkets(ctx, coingecko.MarketsParams{
		VsCurrency: "usd",
		IDs:        coinID,
		PerPage:    1,
		Page:       1,
	})
	if err != nil {
		// рыночный срез не критичен для анализа
		logger.Warn("failed to get market data", slog.Any("error", err))
	} else if len(marketData) > 0 {
		if info, ok := marketData[0].(map[string]interface{}); ok {
			priceChange24h, _ = info["price_change_percentage_24h"].(float64)
			marketCap, _ = info["market_cap"].(float64)
			volume24h, _ = info["total_volume"].(float64)
		}
	}

	signals := GenerateTechnicalSignals(points, currentPrice, s.now())
	var predictions []models.PricePrediction
	if p := PredictPriceTrend(points, 24); p != nil {
		p.CoinID = coinID
		predictions = append(predictions, *p)
	}

	bestAction := models.SignalHold
	actionReason := "Análisis neutral"
	if len(signals) > 0 && signals[0].Confidence == models.ConfidenceHigh {
		switch signals[0].Type {
		case models.SignalBuy:
			bestAction = models.SignalBuy
			actionReason = "Señal fuerte de compra detectada"
		case models.SignalSell:
			bestAction = models.SignalSell
			actionReason = "Señal fuerte de venta detectada"
		}
	}

	if len(points) > 100 {
		points = points[len(points)-100:]
	}

	logger.Info("analysis completed")
	return &models.CryptoAnalysis{
		CoinID:         coinID,
		CurrentPrice:   currentPrice,
		PriceChange24h: priceChange24h,
		MarketCap:      marketCap,
		Volume24h:      volume24h,
		Signals:        signals,
		Predictions:    predictions,
		HistoricalData: points,
		BestAction:     bestAction,
		ActionReason:   actionReason,
	}, nil
}

// GetFilteredCoins применяет ценовые и трендовые фильтры к рыночному
// срезу. Срез запрашивается с двойным запасом под отсев.
func (s *analysisService) GetFilteredCoins(ctx context.Context, filter models.CoinFilter) ([]interface{}, error) {
	const op = "service.AnalysisService.GetFilteredCoins"

	if filter.Limit <= 0 {
		filter.Limit = 10
	}

	marketData, err := s.market.CoinsMarkets(ctx, coingecko.MarketsParams{
		VsCurrency: "usd",
		Order:      "market_cap_desc",
		PerPage:    filter.Limit * 2,
		Page:       1,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	filtered := make([]interface{}, 0, filter.Limit)
	for _, item := range marketData {
		coin, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		price, _ := coin["current_price"].(float64)
		marketCap, _ := coin["market_cap"].(float64)
		change, _ := coin["price_change_percentage_24h"].(float64)

		if filter.MinPrice != nil && price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && price > *filter.MaxPrice {
			continue
		}
		if filter.MinMarketCap != nil && marketCap < *filter.MinMarketCap {
			continue
		}
		if filter.Trend == "bullish" && change <= 0 {
			continue
		}
		if filter.Trend == "bearish" && change >= 0 {
			continue
		}

		filtered = append(filtered, coin)
		if len(filtered) >= filter.Limit {
			break
		}
	}
	return filtered, nil
}

// GetTopOpportunities отбирает монеты с просадкой больше 3% между
// двумя последними точками недельного ряда: кандидаты на отскок
func (s *analysisService) GetTopOpportunities(ctx context.Context, limit int) ([]models.Opportunity, error) {
	const op = "service.AnalysisService.GetTopOpportunities"
	logger := s.log.With(slog.String("op", op))

	if limit <= 0 {
		limit = 10
	}

	marketData, err := s.market.CoinsMarkets(ctx, coingecko.MarketsParams{
		VsCurrency: "usd",
		Order:      "market_cap_desc",
		PerPage:    limit * 3,
		Page:       1,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var opportunities []models.Opportunity
	for _, item := range marketData {
		coin, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		coinID, _ := coin["id"].(string)
		if coinID == "" {
			continue
		}

		points, err := s.trading.GetHistoricalData(ctx, coinID, 7)
		if err != nil || len(points) < 2 {
			if err != nil {
				logger.Warn("skipping coin", slog.String("coinID", coinID), slog.Any("error", err))
			}
			continue
		}

		current := points[len(points)-1].Price
		previous := points[len(points)-2].Price
		if previous == 0 {
			continue
		}
		change := (current - previous) / previous * 100
		if change >= -3 {
			continue
		}

		confidence := models.ConfidenceMedium
		if change < -8 {
			confidence = models.ConfidenceHigh
		}
		opportunities = append(opportunities, models.Opportunity{
			Coin: coin,
			Signal: models.TradingSignal{
				Type:       models.SignalBuy,
				Confidence: confidence,
				Reason:     fmt.Sprintf("Caída de %.1f%% en 24 horas, posible rebote", -change),
				Price:      current,
				Timestamp:  s.now().Format(time.RFC3339),
			},
		})
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		pi, _ := opportunities[i].Coin["current_price"].(float64)
		pj, _ := opportunities[j].Coin["current_price"].(float64)
		return math.Abs(opportunities[i].Signal.Price-pi) > math.Abs(opportunities[j].Signal.Price-pj)
	})

	if len(opportunities) > limit {
		opportunities = opportunities[:limit]
	}
	return opportunities, nil
}

// GetMarketPerformance выводит сводку из /global
func (s *analysisService) GetMarketPerformance(ctx context.Context) (*MarketPerformance, error) {
	const op = "service.AnalysisService.GetMarketPerformance"

	global, err := s.market.Global(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, _ := global["data"].(map[string]interface{})
	if data == nil {
		data = global
	}

	perf := &MarketPerformance{Timestamp: s.now().Format(time.RFC3339)}
	if caps, ok := data["total_market_cap"].(map[string]interface{}); ok {
		perf.TotalMarketCap, _ = caps["usd"].(float64)
	}
	if vols, ok := data["total_volume"].(map[string]interface{}); ok {
		perf.TotalVolume, _ = vols["usd"].(float64)
	}
	if perf.TotalMarketCap > 0 {
		perf.VolumeMarketCapRatio = perf.TotalVolume / perf.TotalMarketCap * 100
	}
	perf.MarketCapChange24h, _ = data["market_cap_change_percentage_24h_usd"].(float64)
	perf.ActiveCryptocurrencies, _ = data["active_cryptocurrencies"].(float64)
	perf.Markets, _ = data["markets"].(float64)
	if dominance, ok := data["market_cap_percentage"].(map[string]interface{}); ok {
		perf.BitcoinDominance, _ = dominance["btc"].(float64)
		perf.EthereumDominance, _ = dominance["eth"].(float64)
	}
	return perf, nil
}

func (s *analysisService) GetTopGainers(ctx context.Context, limit int) ([]interface{}, error) {
	const op = "service.AnalysisService.GetTopGainers"

	data, err := s.market.CoinsMarkets(ctx, coingecko.MarketsParams{
		VsCurrency: "usd",
		Order:      "price_change_percentage_24h_desc",
		PerPage:    limit,
		Page:       1,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

func (s *analysisService) GetTopLosers(ctx context.Context, limit int) ([]interface{}, error) {
	const op = "service.AnalysisService.GetTopLosers"

	data, err := s.market.CoinsMarkets(ctx, coingecko.MarketsParams{
		VsCurrency: "usd",
		Order:      "price_change_percentage_24h_asc",
		PerPage:    limit,
		Page:       1,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

// GetTrendingCoins возвращает до limit трендовых монет
func (s *analysisService) GetTrendingCoins(ctx context.Context, limit int) ([]TrendingCoin, error) {
	const op = "service.AnalysisService.GetTrendingCoins"

	trending, err := s.market.SearchTrending(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	raw, _ := trending["coins"].([]interface{})
	coins := make([]TrendingCoin, 0, limit)
	for _, entry := range raw {
		if len(coins) >= limit {
			break
		}
		wrapper, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		info, ok := wrapper["item"].(map[string]interface{})
		if !ok {
			continue
		}
		coin := TrendingCoin{
			MarketCapRank: info["market_cap_rank"],
			PriceBTC:      info["price_btc"],
		}
		coin.ID, _ = info["id"].(string)
		coin.Name, _ = info["name"].(string)
		coin.Symbol, _ = info["symbol"].(string)
		coin.Thumb, _ = info["thumb"].(string)
		coins = append(coins, coin)
	}
	return coins, nil
}
