package proton

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/estebanArmonica/crypto-trading/internal/config"
)

// Client - JSON-RPC клиент chain API Proton. Ответ приходит
// в конверте {"result": ...}, его содержимое отдаём как есть.
type Client struct {
	rpcEndpoint string
	chainID     string
	http        *http.Client
}

func New(cfg config.ProtonConfig) *Client {
	return &Client{
		rpcEndpoint: cfg.RPCEndpoint,
		chainID:     cfg.ChainID,
		http:        &http.Client{Timeout: 10 * time.Second},
	}
}

// ChainID из конфигурации, проверяется против get_info при health check
func (c *Client) ChainID() string {
	return c.chainID
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

func (c *Client) call(ctx context.Context, id, method string, params, out interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcEndpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("proton: %s failed with status %d: %s", method, resp.StatusCode, b)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if len(envelope.Result) == 0 {
		return fmt.Errorf("proton: %s returned no result: %s", method, envelope.Error)
	}

	return json.Unmarshal(envelope.Result, out)
}

// ChainInfo - срез get_info, нужный для health check
type ChainInfo struct {
	ChainID       string `json:"chain_id"`
	HeadBlockNum  int64  `json:"head_block_num"`
	ServerVersion string `json:"server_version_string"`
}

func (c *Client) GetInfo(ctx context.Context) (*ChainInfo, error) {
	var info ChainInfo
	if err := c.call(ctx, "health_check", "chain.get_info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetAccount возвращает сырую информацию об аккаунте
func (c *Client) GetAccount(ctx context.Context, accountName string) (map[string]interface{}, error) {
	var out map[string]interface{}
	params := map[string]string{"account_name": accountName}
	if err := c.call(ctx, "account_"+accountName, "chain.get_account", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCurrencyBalance возвращает балансы в формате "1.2345 XPR"
func (c *Client) GetCurrencyBalance(ctx context.Context, code, account, symbol string) ([]string, error) {
	var out []string
	params := map[string]string{
		"code":    code,
		"account": account,
		"symbol":  symbol,
	}
	id := fmt.Sprintf("balance_%s_%s_%s", account, code, symbol)
	if err := c.call(ctx, id, "chain.get_currency_balance", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidAccountName проверяет формат имени аккаунта Proton:
// до 12 символов из a-z, 1-5 и точки
func ValidAccountName(name string) bool {
	if name == "" || len(name) > 12 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '1' && r <= '5':
		case r == '.':
		default:
			return false
		}
	}
	return true
}
