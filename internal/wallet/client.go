package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/estebanArmonica/crypto-trading/internal/config"
)

// ErrNotConfigured - не задан WALLET_API_KEY, кошельковые операции недоступны
var ErrNotConfigured = errors.New("wallet: api key not configured")

// Client - тонкая обёртка над платформенным REST API кастодиальных
// кошельков. Инициализация ленивая: первый вызов проверяет ключ и
// доступность API, параллельные вызовы ждут под мьютексом.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	mu          sync.Mutex
	initialized bool
}

func New(cfg config.WalletConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *Client) ensureInitialized(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	// ping списком аккаунтов, чтобы отловить неверный ключ на старте
	if _, err := c.doRequest(ctx, http.MethodGet, "/v2/evm/accounts?page_size=1", nil); err != nil {
		return fmt.Errorf("wallet: initialization failed: %w", err)
	}

	c.initialized = true
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("wallet: %s %s failed with status %d: %s", method, path, resp.StatusCode, raw)
	}
	return raw, nil
}

// Account - аккаунт EVM, созданный платформой
type Account struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// CreateEVMAccount создаёт новый аккаунт; name опционален
func (c *Client) CreateEVMAccount(ctx context.Context, name string) (*Account, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	payload := map[string]string{}
	if name != "" {
		payload["name"] = name
	}
	raw, err := c.doRequest(ctx, http.MethodPost, "/v2/evm/accounts", payload)
	if err != nil {
		return nil, err
	}

	var acc Account
	if err := json.Unmarshal(raw, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetEVMAccount возвращает аккаунт по адресу
func (c *Client) GetEVMAccount(ctx context.Context, address string) (*Account, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	raw, err := c.doRequest(ctx, http.MethodGet, "/v2/evm/accounts/"+address, nil)
	if err != nil {
		return nil, err
	}

	var acc Account
	if err := json.Unmarshal(raw, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// AccountList - страница списка аккаунтов с токеном продолжения
type AccountList struct {
	Accounts      []Account `json:"accounts"`
	NextPageToken string    `json:"next_page_token,omitempty"`
}

// ListEVMAccounts возвращает страницу аккаунтов; pageToken пустой - первая
func (c *Client) ListEVMAccounts(ctx context.Context, pageToken string) (*AccountList, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	path := "/v2/evm/accounts"
	if pageToken != "" {
		path += "?page_token=" + pageToken
	}
	raw, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list AccountList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// RequestFaucet запрашивает тестовые токены для адреса в тестовой сети
func (c *Client) RequestFaucet(ctx context.Context, address, network, token string) (string, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return "", err
	}
	if network == "" {
		network = "base-sepolia"
	}
	if token == "" {
		token = "eth"
	}

	payload := map[string]string{
		"address": address,
		"network": network,
		"token":   token,
	}
	raw, err := c.doRequest(ctx, http.MethodPost, "/v2/evm/faucet", payload)
	if err != nil {
		return "", err
	}

	var out struct {
		TransactionHash string `json:"transaction_hash"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	return out.TransactionHash, nil
}
