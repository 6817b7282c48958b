package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// MarketsParams - параметры запроса /coins/markets, пустые поля не отправляются
type MarketsParams struct {
	VsCurrency string
	IDs        string
	Order      string
	PerPage    int
	Page       int
}

// API - низкоуровневые операции CoinGecko, ответы возвращаются как
// десериализованный JSON без дополнительной обработки. Отдельный
// интерфейс нужен, чтобы фасад можно было тестировать без сети.
type API interface {
	Ping(ctx context.Context) (map[string]interface{}, error)
	CoinsList(ctx context.Context) ([]interface{}, error)
	SimplePrice(ctx context.Context, ids, vsCurrencies string) (map[string]interface{}, error)
	CoinsMarkets(ctx context.Context, p MarketsParams) ([]interface{}, error)
	Global(ctx context.Context) (map[string]interface{}, error)
	GlobalDefi(ctx context.Context) (map[string]interface{}, error)
	Categories(ctx context.Context) ([]interface{}, error)
	CompaniesPublicTreasury(ctx context.Context, coinID string) (map[string]interface{}, error)
	Search(ctx context.Context, query string) (map[string]interface{}, error)
	SearchTrending(ctx context.Context) (map[string]interface{}, error)
	MarketChart(ctx context.Context, id, vsCurrency string, days int) (map[string]interface{}, error)
	OHLC(ctx context.Context, id, vsCurrency string, days int) ([]interface{}, error)
	CoinByID(ctx context.Context, id string) (map[string]interface{}, error)
}

// httpAPI ходит в REST API CoinGecko v3
type httpAPI struct {
	baseURL string
	client  *http.Client
}

func newHTTPAPI(baseURL string, timeout time.Duration) *httpAPI {
	return &httpAPI{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *httpAPI) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := a.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// тело ответа с ошибкой нам не нужно, достаточно статуса
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *httpAPI) Ping(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := a.getJSON(ctx, "/ping", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *httpAPI) CoinsList(ctx context.Context) ([]interface{}, error) {
	var out []interface{}
	if err := a.getJSON(ctx, "/coins/list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *httpAPI) SimplePrice(ctx context.Context, ids, vsCurrencies string) (map[string]interface{}, error) {
	q := url.Values{}
	q.Set("ids", ids)
	q.Set("vs_currencies", vsCurrencies)

	var out map[string]interface{}
	if err := a.getJSON(ctx, "/simple/price", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *httpAPI) CoinsMarkets(ctx context.Context, p MarketsParams) ([]interface{}, error) {
	q := url.Values{}
	q.Set("vs_currency", p.VsCurrency)
	if p.IDs != "" {
		q.Set("ids", p.IDs)
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}

	var out []interface{}
	if err := a.getJSON(ctx, "/coins/markets", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *httpAPI) Global(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := a.getJSON(ctx, "/global", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *httpAPI) GlobalDefi(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := a.getJSON(ctx, "/global/decentralized_finance_defi", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *httpAPI) Categories(ctx context.Context) ([]interface{}, error) {
	var out []interface{}
	if err := a.getJSON(ctx, "/coins/categories/list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *httpAPI) CompaniesPublicTreasury(ctx context.Context, coinID string) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := a.getJSON(ctx, "/companies/public_treasury/"+url.PathEscape(coinID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *httpAPI) Search(ctx context.Context, query string) (map[string]interface{}, error) {
	q := url.Values{}
	q.Set("query", query)

	var out map[string]interface{}
	if err := a.getJSON(ctx, "/search", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *httpAPI) SearchTrending(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := a.getJSON(ctx, "/search/trending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *httpAPI) MarketChart(ctx context.Context, id, vsCurrency string, days int) (map[string]interface{}, error) {
	q := url.Values{}
	q.Set("vs_currency", vsCurrency)
	q.Set("days", strconv.Itoa(days))

	var out map[string]interface{}
	if err := a.getJSON(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *httpAPI) OHLC(ctx context.Context, id, vsCurrency string, days int) ([]interface{}, error) {
	q := url.Values{}
	q.Set("vs_currency", vsCurrency)
	q.Set("days", strconv.Itoa(days))

	var out []interface{}
	if err := a.getJSON(ctx, "/coins/"+url.PathEscape(id)+"/ohlc", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *httpAPI) CoinByID(ctx context.Context, id string) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := a.getJSON(ctx, "/coins/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
