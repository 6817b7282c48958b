package coingecko

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeAPI считает вызовы и возвращает заготовленные ответы
type fakeAPI struct {
	calls      int
	priceResp  map[string]interface{}
	marketResp []interface{}
	err        error
}

func (f *fakeAPI) Ping(ctx context.Context) (map[string]interface{}, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return map[string]interface{}{"gecko_says": "(V3) To the Moon!"}, nil
}

func (f *fakeAPI) CoinsList(ctx context.Context) ([]interface{}, error) {
	f.calls++
	return f.marketResp, f.err
}

func (f *fakeAPI) SimplePrice(ctx context.Context, ids, vsCurrencies string) (map[string]interface{}, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.priceResp, nil
}

func (f *fakeAPI) CoinsMarkets(ctx context.Context, p MarketsParams) ([]interface{}, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.marketResp, nil
}

func (f *fakeAPI) Global(ctx context.Context) (map[string]interface{}, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return map[string]interface{}{"data": map[string]interface{}{}}, nil
}

func (f *fakeAPI) GlobalDefi(ctx context.Context) (map[string]interface{}, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeAPI) Categories(ctx context.Context) ([]interface{}, error) {
	f.calls++
	return f.marketResp, f.err
}

func (f *fakeAPI) CompaniesPublicTreasury(ctx context.Context, coinID string) (map[string]interface{}, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeAPI) Search(ctx context.Context, query string) (map[string]interface{}, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeAPI) SearchTrending(ctx context.Context) (map[string]interface{}, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeAPI) MarketChart(ctx context.Context, id, vsCurrency string, days int) (map[string]interface{}, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return map[string]interface{}{"prices": []interface{}{}}, nil
}

func (f *fakeAPI) OHLC(ctx context.Context, id, vsCurrency string, days int) ([]interface{}, error) {
	f.calls++
	return f.marketResp, f.err
}

func (f *fakeAPI) CoinByID(ctx context.Context, id string) (map[string]interface{}, error) {
	f.calls++
	return nil, f.err
}

// noSleep убирает реальные задержки между попытками
func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestSimplePrice_CacheHit(t *testing.T) {
	api := &fakeAPI{priceResp: map[string]interface{}{"bitcoin": map[string]interface{}{"usd": 45000.0}}}
	c := NewWithAPI(api, time.Minute)
	c.sleep = noSleep
	ctx := context.Background()

	first, err := c.SimplePrice(ctx, "bitcoin", "usd")
	assert.NoError(t, err)

	second, err := c.SimplePrice(ctx, "bitcoin", "usd")
	assert.NoError(t, err)

	// повторный идентичный вызов в пределах TTL не уходит в API
	assert.Equal(t, 1, api.calls)
	assert.Equal(t, first, second)
}

func TestSimplePrice_CacheExpiry(t *testing.T) {
	api := &fakeAPI{priceResp: map[string]interface{}{"bitcoin": map[string]interface{}{"usd": 45000.0}}}
	c := NewWithAPI(api, time.Minute)
	c.sleep = noSleep
	ctx := context.Background()

	now := time.Now()
	c.cache.now = func() time.Time { return now }

	_, err := c.SimplePrice(ctx, "bitcoin", "usd")
	assert.NoError(t, err)
	assert.Equal(t, 1, api.calls)

	// по прошествии TTL запись считается просроченной
	c.cache.now = func() time.Time { return now.Add(time.Minute) }

	_, err = c.SimplePrice(ctx, "bitcoin", "usd")
	assert.NoError(t, err)
	assert.Equal(t, 2, api.calls)
}

func TestSimplePrice_KeySensitivity(t *testing.T) {
	api := &fakeAPI{priceResp: map[string]interface{}{"bitcoin": map[string]interface{}{"usd": 45000.0}}}
	c := NewWithAPI(api, time.Minute)
	c.sleep = noSleep
	ctx := context.Background()

	_, err := c.SimplePrice(ctx, "bitcoin", "usd")
	assert.NoError(t, err)
	_, err = c.SimplePrice(ctx, "bitcoin", "eur")
	assert.NoError(t, err)
	_, err = c.SimplePrice(ctx, "ethereum", "usd")
	assert.NoError(t, err)

	// разные аргументы - разные ключи, коллизий быть не должно
	assert.Equal(t, 3, api.calls)
}

func TestRetry_Exhaustion_DefaultPolicy(t *testing.T) {
	api := &fakeAPI{err: errors.New("connection refused")}
	c := NewWithAPI(api, time.Minute)
	c.sleep = noSleep

	_, err := c.Ping(context.Background())
	assert.Error(t, err)

	// ровно 3 попытки для обычного пути
	assert.Equal(t, 3, api.calls)

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "coingecko.Ping", apiErr.Op)
	assert.Contains(t, err.Error(), "coingecko.Ping: ")
}

func TestRetry_Exhaustion_TradingPolicy(t *testing.T) {
	api := &fakeAPI{err: errors.New("rate limited")}
	c := NewWithAPI(api, time.Minute)
	c.sleep = noSleep

	_, err := c.MarketChart(context.Background(), "bitcoin", "usd", 7)
	assert.Error(t, err)

	// торговый путь короче: 2 попытки
	assert.Equal(t, 2, api.calls)
	assert.Contains(t, err.Error(), "coingecko.MarketChart: ")
}

func TestRetry_SucceedsAfterFailure(t *testing.T) {
	api := &fakeAPI{err: errors.New("temporary")}
	c := NewWithAPI(api, time.Minute)

	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		// после первой неудачи API восстанавливается
		api.err = nil
		return nil
	}

	res, err := c.Ping(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "(V3) To the Moon!", res["gecko_says"])
	assert.Equal(t, 2, api.calls)
	assert.Equal(t, []time.Duration{4 * time.Second}, delays)
}

func TestRetry_BackoffBounded(t *testing.T) {
	api := &fakeAPI{err: errors.New("down")}
	c := NewWithAPI(api, time.Minute)

	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, err := c.Ping(context.Background())
	assert.Error(t, err)

	// 4s, затем 8s; обе задержки в пределах [4s, 10s]
	assert.Equal(t, []time.Duration{4 * time.Second, 8 * time.Second}, delays)
	for _, d := range delays {
		assert.GreaterOrEqual(t, d, 4*time.Second)
		assert.LessOrEqual(t, d, 10*time.Second)
	}
}

func TestClearCache(t *testing.T) {
	api := &fakeAPI{priceResp: map[string]interface{}{"bitcoin": map[string]interface{}{"usd": 45000.0}}}
	c := NewWithAPI(api, time.Minute)
	c.sleep = noSleep
	ctx := context.Background()

	_, err := c.SimplePrice(ctx, "bitcoin", "usd")
	assert.NoError(t, err)

	c.ClearCache()

	_, err = c.SimplePrice(ctx, "bitcoin", "usd")
	assert.NoError(t, err)
	assert.Equal(t, 2, api.calls)
}

func TestCacheKey_Deterministic(t *testing.T) {
	k1 := cacheKey("simple_price", map[string]string{"ids": "bitcoin", "vs_currencies": "usd"})
	k2 := cacheKey("simple_price", map[string]string{"vs_currencies": "usd", "ids": "bitcoin"})
	assert.Equal(t, k1, k2)

	k3 := cacheKey("simple_price", map[string]string{"ids": "bitcoin", "vs_currencies": "eur"})
	assert.NotEqual(t, k1, k3)

	k4 := cacheKey("coins_markets", map[string]string{"ids": "bitcoin", "vs_currencies": "usd"})
	assert.NotEqual(t, k1, k4)
}
