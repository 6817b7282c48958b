package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/estebanArmonica/crypto-trading/internal/config"
)

// Client - REST клиент PayPal: oauth-токен, проверка/исполнение платежа,
// payouts. Токен переиспользуется до истечения срока.
type Client struct {
	baseURL  string
	clientID string
	secret   string
	http     *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExp    time.Time
}

func New(cfg config.PayPalConfig) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		clientID: cfg.ClientID,
		secret:   cfg.Secret,
		http:     &http.Client{Timeout: 20 * time.Second},
	}
}

// PaymentAmount - сумма платежа в ответе PayPal
type PaymentAmount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type PaymentTransaction struct {
	Amount PaymentAmount `json:"amount"`
}

// Payment - состояние платежа, нам важны state и сумма
type Payment struct {
	ID           string               `json:"id"`
	State        string               `json:"state"` // created | approved | failed
	Transactions []PaymentTransaction `json:"transactions"`
	CreateTime   string               `json:"create_time"`
	UpdateTime   string               `json:"update_time"`
}

// PayoutRequest - запрос на вывод средств на email
type PayoutRequest struct {
	Amount         float64
	Currency       string
	RecipientEmail string
	Note           string
	SenderBatchID  string
}

// PayoutResult - результат создания payout
type PayoutResult struct {
	BatchID string
	Status  string
}

func (c *Client) accessTokenLocked(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExp) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("paypal: token request failed with status %d: %s", resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}

	c.accessToken = tok.AccessToken
	// минута запаса до фактического истечения
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	token, err := c.accessTokenLocked(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("paypal: %s %s failed with status %d: %s", method, path, resp.StatusCode, b)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// GetPayment возвращает платеж по его идентификатору
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var p Payment
	if err := c.doJSON(ctx, http.MethodGet, "/v1/payments/payment/"+url.PathEscape(paymentID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ExecutePayment исполняет одобренный плательщиком платеж
func (c *Client) ExecutePayment(ctx context.Context, paymentID, payerID string) (*Payment, error) {
	payload := map[string]string{"payer_id": payerID}
	var p Payment
	if err := c.doJSON(ctx, http.MethodPost,
		"/v1/payments/payment/"+url.PathEscape(paymentID)+"/execute", payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePayout создает выплату на email получателя
func (c *Client) CreatePayout(ctx context.Context, req PayoutRequest) (*PayoutResult, error) {
	batchID := req.SenderBatchID
	if batchID == "" {
		batchID = fmt.Sprintf("Payout_%d", time.Now().Unix())
	}

	payload := map[string]interface{}{
		"sender_batch_header": map[string]string{
			"sender_batch_id": batchID,
			"email_subject":   "Has recibido un pago",
		},
		"items": []map[string]interface{}{
			{
				"recipient_type": "EMAIL",
				"amount": map[string]string{
					"value":    fmt.Sprintf("%.2f", req.Amount),
					"currency": req.Currency,
				},
				"note":           req.Note,
				"receiver":       req.RecipientEmail,
				"sender_item_id": fmt.Sprintf("item_%d", time.Now().Unix()),
			},
		},
	}

	var out struct {
		BatchHeader struct {
			PayoutBatchID string `json:"payout_batch_id"`
			BatchStatus   string `json:"batch_status"`
		} `json:"batch_header"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/payments/payouts", payload, &out); err != nil {
		return nil, err
	}

	return &PayoutResult{
		BatchID: out.BatchHeader.PayoutBatchID,
		Status:  out.BatchHeader.BatchStatus,
	}, nil
}

// GetPayoutStatus возвращает состояние ранее созданной выплаты
func (c *Client) GetPayoutStatus(ctx context.Context, batchID string) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/payments/payouts/"+url.PathEscape(batchID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
