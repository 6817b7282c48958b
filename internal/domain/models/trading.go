package models

// Типы торговых сигналов
const (
	SignalBuy  = "BUY"
	SignalSell = "SELL"
	SignalHold = "HOLD"
)

// Уровни уверенности сигнала
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// PricePoint - точка исторического ряда цен, timestamp в миллисекундах
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// TradingMetrics - агрегаты по историческому ряду для одного таймфрейма
type TradingMetrics struct {
	CurrentPrice float64   `json:"current_price"`
	AvgChange    float64   `json:"avg_change"`
	MaxChange    float64   `json:"max_change"`
	MinChange    float64   `json:"min_change"`
	Trend        string    `json:"trend"` // bullish | bearish
	Timestamps   []string  `json:"timestamps"`
	Prices       []float64 `json:"prices"`
	DataPoints   int       `json:"data_points"`
	TimeFrame    string    `json:"time_frame"`
}

// TradingSignal - рекомендация по монете на конкретный момент
type TradingSignal struct {
	Type       string  `json:"type"`
	Price      float64 `json:"price"`
	Reason     string  `json:"reason"`
	Confidence string  `json:"confidence"`
	Timestamp  string  `json:"timestamp"`
	TimeFrame  string  `json:"time_frame"`
}

// PricePrediction - эвристический прогноз цены на timeframe_hours вперёд
type PricePrediction struct {
	CoinID           string  `json:"coin_id"`
	CurrentPrice     float64 `json:"current_price"`
	PredictedPrice   float64 `json:"predicted_price"`
	ChangePercentage float64 `json:"change_percentage"`
	PredictedTrend   string  `json:"predicted_trend"`
	Confidence       float64 `json:"confidence"`
	TimeframeHours   int     `json:"timeframe_hours"`
}

// CryptoAnalysis - полный разбор монеты: рынок, сигналы, прогноз, история
type CryptoAnalysis struct {
	CoinID         string            `json:"coin_id"`
	CurrentPrice   float64           `json:"current_price"`
	PriceChange24h float64           `json:"price_change_24h"`
	MarketCap      float64           `json:"market_cap"`
	Volume24h      float64           `json:"volume_24h"`
	Signals        []TradingSignal   `json:"signals"`
	Predictions    []PricePrediction `json:"predictions"`
	HistoricalData []PricePoint      `json:"historical_data"`
	BestAction     string            `json:"best_action"`
	ActionReason   string            `json:"action_reason"`
}

// CryptoValue - стоимость количества монеты в USD на текущий момент
type CryptoValue struct {
	CoinID        string  `json:"coin_id"`
	Amount        float64 `json:"amount"`
	PricePerCoin  float64 `json:"price_per_coin"`
	TotalValueUSD float64 `json:"total_value_usd"`
	Timestamp     string  `json:"timestamp"`
}

// TimeFrameAnalysis - изменение цены между двумя моментами времени
type TimeFrameAnalysis struct {
	CoinID             string  `json:"coin_id"`
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	StartPrice         float64 `json:"start_price"`
	EndPrice           float64 `json:"end_price"`
	PriceChangePercent float64 `json:"price_change_percent"`
	Trend              string  `json:"trend"`
	TimeframeDays      int     `json:"timeframe_days"`
	DataPoints         int     `json:"data_points"`
}

// CoinFilter - критерии отбора монет по рыночному срезу
type CoinFilter struct {
	MinPrice     *float64 `json:"min_price,omitempty"`
	MaxPrice     *float64 `json:"max_price,omitempty"`
	MinMarketCap *float64 `json:"min_market_cap,omitempty"`
	Trend        string   `json:"trend,omitempty"` // bullish | bearish | пусто
	Limit        int      `json:"limit"`
}

// Opportunity - монета с сигналом на покупку после заметной просадки
type Opportunity struct {
	Coin   map[string]interface{} `json:"coin"`
	Signal TradingSignal          `json:"signal"`
}
