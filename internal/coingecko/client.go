package coingecko

import (
	"context"
	"strconv"
	"time"

	"github.com/estebanArmonica/crypto-trading/internal/config"
)

// APIError - единственная доменная ошибка фасада, на границе HTTP
// транслируется в 503. Сообщение всегда начинается с имени операции.
type APIError struct {
	Op  string
	Err error
}

func (e *APIError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// retryPolicy - до attempts попыток, между попытками экспоненциально
// растущая задержка в пределах [minDelay, maxDelay]. Без джиттера и
// без классификации ошибок: всё считается retryable.
type retryPolicy struct {
	attempts int
	minDelay time.Duration
	maxDelay time.Duration
}

var (
	// обычные запросы: 3 попытки, задержка 4-10 секунд
	defaultRetry = retryPolicy{attempts: 3, minDelay: 4 * time.Second, maxDelay: 10 * time.Second}
	// торговые запросы: меньше попыток, короче ожидание
	tradingRetry = retryPolicy{attempts: 2, minDelay: 2 * time.Second, maxDelay: 5 * time.Second}
)

// Client - фасад над CoinGecko: повтор при сбоях плюс короткая
// мемоизация части запросов (цены, рыночные срезы, глобальная статистика)
type Client struct {
	api   API
	cache *ttlCache
	sleep func(ctx context.Context, d time.Duration) error
}

// New создаёт фасад поверх HTTP API
func New(cfg config.CoinGeckoConfig) *Client {
	return NewWithAPI(newHTTPAPI(cfg.BaseURL, cfg.Timeout), cfg.CacheTTL)
}

// NewWithAPI позволяет подставить другую реализацию API (в тестах)
func NewWithAPI(api API, cacheTTL time.Duration) *Client {
	return &Client{
		api:   api,
		cache: newTTLCache(cacheTTL),
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ClearCache сбрасывает мемоизацию полностью
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// do выполняет операцию по политике повтора. Последняя ошибка
// оборачивается в APIError с именем операции.
func (c *Client) do(ctx context.Context, op string, p retryPolicy, fn func() (interface{}, error)) (interface{}, error) {
	var lastErr error
	delay := p.minDelay

	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, delay); err != nil {
				return nil, &APIError{Op: op, Err: err}
			}
			delay *= 2
			if delay > p.maxDelay {
				delay = p.maxDelay
			}
		}

		res, err := fn()
		if err == nil {
			return res, nil
		}
		lastErr = err
	}

	return nil, &APIError{Op: op, Err: lastErr}
}

// cached сначала смотрит в мемоизацию, промах уходит в do
func (c *Client) cached(ctx context.Context, op string, p retryPolicy, key string, fn func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.cache.get(key); ok {
		return v, nil
	}

	res, err := c.do(ctx, op, p, fn)
	if err != nil {
		return nil, err
	}
	c.cache.set(key, res)
	return res, nil
}

// Ping проверяет доступность API
func (c *Client) Ping(ctx context.Context) (map[string]interface{}, error) {
	const op = "coingecko.Ping"
	res, err := c.do(ctx, op, defaultRetry, func() (interface{}, error) {
		return c.api.Ping(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]interface{}), nil
}

// CoinsList возвращает список всех монет
func (c *Client) CoinsList(ctx context.Context) ([]interface{}, error) {
	const op = "coingecko.CoinsList"
	res, err := c.do(ctx, op, defaultRetry, func() (interface{}, error) {
		return c.api.CoinsList(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]interface{}), nil
}

// SimplePrice - текущие цены, торговый путь: кэш + короткий retry
func (c *Client) SimplePrice(ctx context.Context, ids, vsCurrencies string) (map[string]interface{}, error) {
	const op = "coingecko.SimplePrice"
	key := cacheKey("simple_price", map[string]string{
		"ids":           ids,
		"vs_currencies": vsCurrencies,
	})
	res, err := c.cached(ctx, op, tradingRetry, key, func() (interface{}, error) {
		return c.api.SimplePrice(ctx, ids, vsCurrencies)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]interface{}), nil
}

// CoinsMarkets - рыночный срез, кэшируется
func (c *Client) CoinsMarkets(ctx context.Context, p MarketsParams) ([]interface{}, error) {
	const op = "coingecko.CoinsMarkets"
	key := cacheKey("coins_markets", map[string]string{
		"vs_currency": p.VsCurrency,
		"ids":         p.IDs,
		"order":       p.Order,
		"per_page":    strconv.Itoa(p.PerPage),
		"page":        strconv.Itoa(p.Page),
	})
	res, err := c.cached(ctx, op, defaultRetry, key, func() (interface{}, error) {
		return c.api.CoinsMarkets(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return res.([]interface{}), nil
}

// Global - глобальная статистика рынка, кэшируется
func (c *Client) Global(ctx context.Context) (map[string]interface{}, error) {
	const op = "coingecko.Global"
	key := cacheKey("global", nil)
	res, err := c.cached(ctx, op, defaultRetry, key, func() (interface{}, error) {
		return c.api.Global(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]interface{}), nil
}

// GlobalDefi - данные DeFi
func (c *Client) GlobalDefi(ctx context.Context) (map[string]interface{}, error) {
	const op = "coingecko.GlobalDefi"
	res, err := c.do(ctx, op, defaultRetry, func() (interface{}, error) {
		return c.api.GlobalDefi(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]interface{}), nil
}

// Categories - категории монет
func (c *Client) Categories(ctx context.Context) ([]interface{}, error) {
	const op = "coingecko.Categories"
	res, err := c.do(ctx, op, defaultRetry, func() (interface{}, error) {
		return c.api.Categories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]interface{}), nil
}

// CompaniesPublicTreasury - компании, держащие монету на балансе
func (c *Client) CompaniesPublicTreasury(ctx context.Context, coinID string) (map[string]interface{}, error) {
	const op = "coingecko.CompaniesPublicTreasury"
	res, err := c.do(ctx, op, defaultRetry, func() (interface{}, error) {
		return c.api.CompaniesPublicTreasury(ctx, coinID)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]interface{}), nil
}

// Search - поиск по монетам/биржам/категориям
func (c *Client) Search(ctx context.Context, query string) (map[string]interface{}, error) {
	const op = "coingecko.Search"
	res, err := c.do(ctx, op, defaultRetry, func() (interface{}, error) {
		return c.api.Search(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]interface{}), nil
}

// SearchTrending - трендовые монеты за последние сутки
func (c *Client) SearchTrending(ctx context.Context) (map[string]interface{}, error) {
	const op = "coingecko.SearchTrending"
	res, err := c.do(ctx, op, defaultRetry, func() (interface{}, error) {
		return c.api.SearchTrending(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]interface{}), nil
}

// MarketChart - исторические цены, торговый путь
func (c *Client) MarketChart(ctx context.Context, id, vsCurrency string, days int) (map[string]interface{}, error) {
	const op = "coingecko.MarketChart"
	res, err := c.do(ctx, op, tradingRetry, func() (interface{}, error) {
		return c.api.MarketChart(ctx, id, vsCurrency, days)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]interface{}), nil
}

// OHLC - свечи, торговый путь
func (c *Client) OHLC(ctx context.Context, id, vsCurrency string, days int) ([]interface{}, error) {
	const op = "coingecko.OHLC"
	res, err := c.do(ctx, op, tradingRetry, func() (interface{}, error) {
		return c.api.OHLC(ctx, id, vsCurrency, days)
	})
	if err != nil {
		return nil, err
	}
	return res.([]interface{}), nil
}

// CoinByID - детальная информация о монете
func (c *Client) CoinByID(ctx context.Context, id string) (map[string]interface{}, error) {
	const op = "coingecko.CoinByID"
	res, err := c.do(ctx, op, defaultRetry, func() (interface{}, error) {
		return c.api.CoinByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]interface{}), nil
}
