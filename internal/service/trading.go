package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/estebanArmonica/crypto-trading/internal/coingecko"
	"github.com/estebanArmonica/crypto-trading/internal/domain/models"
)

var ErrPriceUnavailable = errors.New("price unavailable")

// MarketClient - операции CoinGecko, нужные торговым сервисам.
// Сужение фасада, чтобы в тестах подставлять заглушку.
type MarketClient interface {
	CoinsList(ctx context.Context) ([]interface{}, error)
	SimplePrice(ctx context.Context, ids, vsCurrencies string) (map[string]interface{}, error)
	CoinsMarkets(ctx context.Context, p coingecko.MarketsParams) ([]interface{}, error)
	MarketChart(ctx context.Context, id, vsCurrency string, days int) (map[string]interface{}, error)
	Global(ctx context.Context) (map[string]interface{}, error)
	SearchTrending(ctx context.Context) (map[string]interface{}, error)
}

type TradingService interface {
	GetAvailableCoins(ctx context.Context) ([]interface{}, error)
	GetCurrentPrice(ctx context.Context, coinID string) (float64, error)
	GetHistoricalData(ctx context.Context, coinID string, days int) ([]models.PricePoint, error)
	GetMetrics(ctx context.Context, coinID string, days int, timeFrame string) (*models.TradingMetrics, error)
	GetSignals(ctx context.Context, coinID string, days int, timeFrame string) ([]models.TradingSignal, error)
	CalculateValue(ctx context.Context, coinID string, amount float64) (*models.CryptoValue, error)
	AnalyzeTimeFrame(ctx context.Context, coinID string, start, end time.Time) (*models.TimeFrameAnalysis, error)
}

type tradingService struct {
	log    *slog.Logger
	market MarketClient
	now    func() time.Time
}

func NewTradingService(log *slog.Logger, market MarketClient) TradingService {
	return &tradingService{log: log, market: market, now: time.Now}
}

// GetAvailableCoins возвращает все монеты, отсортированные по имени
func (s *tradingService) GetAvailableCoins(ctx context.Context) ([]interface{}, error) {
	const op = "service.TradingService.GetAvailableCoins"

	coins, err := s.market.CoinsList(ctx)
	if err != nil {
		s.log.Error("failed to list coins", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sort.SliceStable(coins, func(i, j int) bool {
		return coinName(coins[i]) < coinName(coins[j])
	})
	return coins, nil
}

func coinName(v interface{}) string {
	if m, ok := v.(map[string]interface{}); ok {
		if name, ok := m["name"].(string); ok {
			return name
		}
	}
	return ""
}

// GetCurrentPrice возвращает цену монеты в USD
func (s *tradingService) GetCurrentPrice(ctx context.Context, coinID string) (float64, error) {
	const op = "service.TradingService.GetCurrentPrice"

	data, err := s.market.SimplePrice(ctx, coinID, "usd")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	entry, ok := data[coinID].(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("%s: %w", op, ErrPriceUnavailable)
	}
	price, ok := entry["usd"].(float64)
	if !ok {
		return 0, fmt.Errorf("%s: %w", op, ErrPriceUnavailable)
	}
	return price, nil
}

// GetHistoricalData возвращает ряд цен за days дней
func (s *tradingService) GetHistoricalData(ctx context.Context, coinID string, days int) ([]models.PricePoint, error) {
	const op = "service.TradingService.GetHistoricalData"

	chart, err := s.market.MarketChart(ctx, coinID, "usd", days)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return parsePricePoints(chart), nil
}

// parsePricePoints разбирает поле prices ответа market_chart:
// массив пар [timestamp_ms, price]
func parsePricePoints(chart map[string]interface{}) []models.PricePoint {
	raw, ok := chart["prices"].([]interface{})
	if !ok {
		return nil
	}

	points := make([]models.PricePoint, 0, len(raw))
	for _, item := range raw {
		pair, ok := item.([]interface{})
		if !ok || len(pair) < 2 {
			continue
		}
		ts, tsOK := pair[0].(float64)
		price, priceOK := pair[1].(float64)
		if !tsOK || !priceOK {
			continue
		}
		points = append(points, models.PricePoint{Timestamp: int64(ts), Price: price})
	}
	return points
}

// календарная глубина по таймфрейму: часовой смотрит на последние 60
// точек, суточный на 1440, недельный на весь ряд
func lookbackFor(timeFrame string, total int) int {
	switch timeFrame {
	case "1h":
		if total < 60 {
			return total
		}
		return 60
	case "24h":
		if total < 1440 {
			return total
		}
		return 1440
	default:
		return total
	}
}

// пороги сигналов по таймфрейму: 1% за час, 3% за сутки, 10% за неделю
func thresholdFor(timeFrame string) float64 {
	switch timeFrame {
	case "1h":
		return 1.0
	case "24h":
		return 3.0
	default:
		return 10.0
	}
}

// CalculateMetrics считает агрегаты изменений цены по ряду.
// Возвращает nil при недостатке данных (меньше двух точек).
func CalculateMetrics(points []models.PricePoint, timeFrame string) *models.TradingMetrics {
	if len(points) < 2 {
		return nil
	}

	currentPrice := points[len(points)-1].Price
	lookback := lookbackFor(timeFrame, len(points))

	var changes []float64
	start := len(points) - lookback
	if start < 1 {
		start = 1
	}
	for i := start; i < len(points); i++ {
		prev := points[i-1].Price
		if prev == 0 {
			continue
		}
		changes = append(changes, (points[i].Price-prev)/prev*100)
	}
	if len(changes) == 0 {
		return nil
	}

	sum, maxC, minC := 0.0, changes[0], changes[0]
	for _, c := range changes {
		sum += c
		if c > maxC {
			maxC = c
		}
		if c < minC {
			minC = c
		}
	}
	avg := sum / float64(len(changes))

	trend := "bearish"
	if avg > 0 {
		trend = "bullish"
	}

	timestamps := make([]string, len(points))
	prices := make([]float64, len(points))
	for i, p := range points {
		timestamps[i] = time.UnixMilli(p.Timestamp).Format("2006-01-02 15:04")
		prices[i] = p.Price
	}

	return &models.TradingMetrics{
		CurrentPrice: currentPrice,
		AvgChange:    avg,
		MaxChange:    maxC,
		MinChange:    minC,
		Trend:        trend,
		Timestamps:   timestamps,
		Prices:       prices,
		DataPoints:   len(points),
		TimeFrame:    timeFrame,
	}
}

// GenerateSignals строит сигнал по метрикам: падение ниже минус-порога
// даёт BUY, рост выше порога SELL, иначе HOLD. Полуторный порог
// повышает уверенность до high.
func GenerateSignals(metrics *models.TradingMetrics, timeFrame string, now time.Time) []models.TradingSignal {
	if metrics == nil {
		return nil
	}

	threshold := thresholdFor(timeFrame)
	ts := now.Format(time.RFC3339)

	switch {
	case metrics.AvgChange < -threshold:
		confidence := models.ConfidenceMedium
		if -metrics.AvgChange > threshold*1.5 {
			confidence = models.ConfidenceHigh
		}
		return []models.TradingSignal{{
			Type:       models.SignalBuy,
			Price:      metrics.CurrentPrice,
			Reason:     fmt.Sprintf("Precio en caída (%.2f%% en %s)", metrics.AvgChange, timeFrame),
			Confidence: confidence,
			Timestamp:  ts,
			TimeFrame:  timeFrame,
		}}
	case metrics.AvgChange > threshold:
		confidence := models.ConfidenceMedium
		if metrics.AvgChange > threshold*1.5 {
			confidence = models.ConfidenceHigh
		}
		return []models.TradingSignal{{
			Type:       models.SignalSell,
			Price:      metrics.CurrentPrice,
			Reason:     fmt.Sprintf("Precio en subida (%.2f%% en %s)", metrics.AvgChange, timeFrame),
			Confidence: confidence,
			Timestamp:  ts,
			TimeFrame:  timeFrame,
		}}
	default:
		return []models.TradingSignal{{
			Type:       models.SignalHold,
			Price:      metrics.CurrentPrice,
			Reason:     fmt.Sprintf("Mercado estable (%.2f%% en %s)", metrics.AvgChange, timeFrame),
			Confidence: models.ConfidenceLow,
			Timestamp:  ts,
			TimeFrame:  timeFrame,
		}}
	}
}

func (s *tradingService) GetMetrics(ctx context.Context, coinID string, days int, timeFrame string) (*models.TradingMetrics, error) {
	const op = "service.TradingService.GetMetrics"

	points, err := s.GetHistoricalData(ctx, coinID, days)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics := CalculateMetrics(points, timeFrame)
	if metrics == nil {
		return nil, fmt.Errorf("%s: insufficient data for %s", op, coinID)
	}
	return metrics, nil
}

func (s *tradingService) GetSignals(ctx context.Context, coinID string, days int, timeFrame string) ([]models.TradingSignal, error) {
	const op = "service.TradingService.GetSignals"

	metrics, err := s.GetMetrics(ctx, coinID, days, timeFrame)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return GenerateSignals(metrics, timeFrame, s.now()), nil
}

// CalculateValue переводит количество монеты в USD по текущей цене
func (s *tradingService) CalculateValue(ctx context.Context, coinID string, amount float64) (*models.CryptoValue, error) {
	const op = "service.TradingService.CalculateValue"

	price, err := s.GetCurrentPrice(ctx, coinID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.CryptoValue{
		CoinID:        coinID,
		Amount:        amount,
		PricePerCoin:  price,
		TotalValueUSD: amount * price,
		Timestamp:     s.now().Format(time.RFC3339),
	}, nil
}

// AnalyzeTimeFrame считает изменение цены между двумя моментами,
// отфильтровывая исторический ряд по границам интервала
func (s *tradingService) AnalyzeTimeFrame(ctx context.Context, coinID string, start, end time.Time) (*models.TimeFrameAnalysis, error) {
	const op = "service.TradingService.AnalyzeTimeFrame"

	days := int(end.Sub(start).Hours()/24) + 1
	points, err := s.GetHistoricalData(ctx, coinID, days)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var filtered []models.PricePoint
	for _, p := range points {
		t := time.UnixMilli(p.Timestamp)
		if !t.Before(start) && !t.After(end) {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) < 2 {
		return nil, fmt.Errorf("%s: insufficient data for %s", op, coinID)
	}

	startPrice := filtered[0].Price
	endPrice := filtered[len(filtered)-1].Price
	if startPrice == 0 {
		return nil, fmt.Errorf("%s: zero start price for %s", op, coinID)
	}

	change := (endPrice - startPrice) / startPrice * 100
	trend := "bearish"
	if change > 0 {
		trend = "bullish"
	}

	return &models.TimeFrameAnalysis{
		CoinID:             coinID,
		StartTime:          start.Format(time.RFC3339),
		EndTime:            end.Format(time.RFC3339),
		StartPrice:         startPrice,
		EndPrice:           endPrice,
		PriceChangePercent: change,
		Trend:              trend,
		TimeframeDays:      days,
		DataPoints:         len(filtered),
	}, nil
}
