package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estebanArmonica/crypto-trading/internal/app/handlers"
	"github.com/estebanArmonica/crypto-trading/internal/auth/authmw"
	"github.com/estebanArmonica/crypto-trading/internal/coingecko"
	"github.com/estebanArmonica/crypto-trading/internal/domain/models"
	"github.com/estebanArmonica/crypto-trading/internal/paypal"
	"github.com/estebanArmonica/crypto-trading/internal/service"
	"github.com/estebanArmonica/crypto-trading/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// withUser имитирует прохождение auth middleware.
func withUser(r *http.Request, userID int64) *http.Request {
	ctx := context.WithValue(r.Context(), authmw.UserIDKey, userID)
	return r.WithContext(ctx)
}

// fakeAuthService — фиктивная реализация для тестирования.
type fakeAuthService struct {
	userID  int64
	token   string
	user    *models.User
	loginOK bool
	err     error
}

var _ service.AuthService = (*fakeAuthService)(nil)

func (f *fakeAuthService) Register(ctx context.Context, name, surname, email, password string) (int64, error) {
	return f.userID, f.err
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) error {
	if f.loginOK {
		return nil
	}
	return f.err
}

func (f *fakeAuthService) VerifyCode(ctx context.Context, email, code string) (string, error) {
	return f.token, f.err
}

func (f *fakeAuthService) Logout(ctx context.Context, token string) error { return f.err }

func (f *fakeAuthService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	return f.user, f.err
}

func (f *fakeAuthService) UpdateProfile(ctx context.Context, userID int64, name, surname, email string) error {
	return f.err
}

// fakeTradingService — фиктивная реализация интерфейса TradingService.
type fakeTradingService struct {
	price   float64
	signals []models.TradingSignal
	value   *models.CryptoValue
	err     error
}

var _ service.TradingService = (*fakeTradingService)(nil)

func (f *fakeTradingService) GetAvailableCoins(ctx context.Context) ([]interface{}, error) {
	return []interface{}{map[string]interface{}{"id": "bitcoin"}}, f.err
}

func (f *fakeTradingService) GetCurrentPrice(ctx context.Context, coinID string) (float64, error) {
	return f.price, f.err
}

func (f *fakeTradingService) GetHistoricalData(ctx context.Context, coinID string, days int) ([]models.PricePoint, error) {
	return nil, f.err
}

func (f *fakeTradingService) GetMetrics(ctx context.Context, coinID string, days int, timeFrame string) (*models.TradingMetrics, error) {
	return &models.TradingMetrics{TimeFrame: timeFrame}, f.err
}

func (f *fakeTradingService) GetSignals(ctx context.Context, coinID string, days int, timeFrame string) ([]models.TradingSignal, error) {
	return f.signals, f.err
}

func (f *fakeTradingService) CalculateValue(ctx context.Context, coinID string, amount float64) (*models.CryptoValue, error) {
	return f.value, f.err
}

func (f *fakeTradingService) AnalyzeTimeFrame(ctx context.Context, coinID string, start, end time.Time) (*models.TimeFrameAnalysis, error) {
	return &models.TimeFrameAnalysis{}, f.err
}

// fakePaymentService — фиктивная реализация интерфейса PaymentService.
type fakePaymentService struct {
	result   *service.BuyCryptoResult
	payout   *paypal.PayoutResult
	balance  decimal.Decimal
	balances *service.CryptoBalancesResult
	txs      []*models.Transaction
	err      error
}

var _ service.PaymentService = (*fakePaymentService)(nil)

func (f *fakePaymentService) BuyCrypto(ctx context.Context, userID int64, req service.BuyCryptoRequest) (*service.BuyCryptoResult, error) {
	return f.result, f.err
}

func (f *fakePaymentService) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, email string) (*paypal.PayoutResult, error) {
	return f.payout, f.err
}

func (f *fakePaymentService) GetUSDBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return f.balance, f.err
}

func (f *fakePaymentService) GetCryptoBalance(ctx context.Context, userID int64, coinID string) (decimal.Decimal, error) {
	return f.balance, f.err
}

func (f *fakePaymentService) GetCryptoBalances(ctx context.Context, userID int64) (*service.CryptoBalancesResult, error) {
	return f.balances, f.err
}

func (f *fakePaymentService) GetTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	return f.txs, f.err
}

// fakeNotificationService — фиктивная реализация интерфейса NotificationService.
type fakeNotificationService struct {
	settings *models.NotificationSettings
	email    string
	err      error
}

var _ service.NotificationService = (*fakeNotificationService)(nil)

func (f *fakeNotificationService) SaveSettings(ctx context.Context, userID int64, email, notificationType string, enabled bool) (*models.NotificationSettings, error) {
	return f.settings, f.err
}

func (f *fakeNotificationService) GetSettings(ctx context.Context, userID int64) (*models.NotificationSettings, error) {
	return f.settings, f.err
}

func (f *fakeNotificationService) SendEMAAlert(ctx context.Context, userID int64, alert service.EMAAlert) (string, error) {
	return f.email, f.err
}

// fakeProtonService — фиктивная реализация интерфейса ProtonService.
type fakeProtonService struct {
	balance *service.TokenBalance
	err     error
}

var _ service.ProtonService = (*fakeProtonService)(nil)

func (f *fakeProtonService) HealthCheck(ctx context.Context) (*service.ChainHealth, error) {
	return &service.ChainHealth{Healthy: true, ChainID: "384da888112027f0321850a169f737c33e53b388aad48b5adace4bab97f437e0"}, f.err
}

func (f *fakeProtonService) GetAccountInfo(ctx context.Context, accountName string) (map[string]interface{}, error) {
	return map[string]interface{}{"account_name": accountName}, f.err
}

func (f *fakeProtonService) GetBalance(ctx context.Context, accountName, contract, symbol string) (*service.TokenBalance, error) {
	return f.balance, f.err
}

func (f *fakeProtonService) GetAllBalances(ctx context.Context, accountName string) (*service.AccountBalances, error) {
	return nil, f.err
}

func (f *fakeProtonService) SupportedTokens() []service.SupportedToken {
	return []service.SupportedToken{{Contract: "eosio.token", Symbol: "XPR", CoinGeckoID: "proton"}}
}

func TestRegisterHandler_Success(t *testing.T) {
	handler := handlers.RegisterHandler(testLogger(), &fakeAuthService{userID: 1})

	reqBody := `{"name": "Juan", "surname": "Pérez", "email": "juan@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/register", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Usuario registrado exitosamente. Redirigiendo al login...", resp["message"])
	assert.Equal(t, "/", resp["redirect"])
}

func TestRegisterHandler_EmailTaken(t *testing.T) {
	handler := handlers.RegisterHandler(testLogger(), &fakeAuthService{err: storage.ErrEmailTaken})

	reqBody := `{"name": "Juan", "surname": "Pérez", "email": "juan@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/register", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegisterHandler_ShortPassword(t *testing.T) {
	handler := handlers.RegisterHandler(testLogger(), &fakeAuthService{userID: 1})

	reqBody := `{"name": "Juan", "surname": "Pérez", "email": "juan@example.com", "password": "short"}`
	req := httptest.NewRequest("POST", "/api/register", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginHandler_SendsCode(t *testing.T) {
	handler := handlers.LoginHandler(testLogger(), &fakeAuthService{loginOK: true})

	reqBody := `{"email": "juan@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/login", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Código de verificación enviado a tu email", resp["message"])
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	handler := handlers.LoginHandler(testLogger(), &fakeAuthService{err: service.ErrInvalidCredentials})

	reqBody := `{"email": "juan@example.com", "password": "wrongpass"}`
	req := httptest.NewRequest("POST", "/api/login", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestVerifyCodeHandler_SetsSessionCookie(t *testing.T) {
	handler := handlers.VerifyCodeHandler(testLogger(), &fakeAuthService{token: "session-token"}, "session_token", time.Hour)

	reqBody := `{"email": "juan@example.com", "code": "123456"}`
	req := httptest.NewRequest("POST", "/api/verify-code", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session_token", cookies[0].Name)
	assert.Equal(t, "session-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "/dashboard", resp["redirect"])
}

func TestVerifyCodeHandler_WrongCode(t *testing.T) {
	handler := handlers.VerifyCodeHandler(testLogger(), &fakeAuthService{err: service.ErrInvalidCode}, "session_token", time.Hour)

	reqBody := `{"email": "juan@example.com", "code": "000000"}`
	req := httptest.NewRequest("POST", "/api/verify-code", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}

func TestLogoutHandler_ClearsCookie(t *testing.T) {
	handler := handlers.LogoutHandler(testLogger(), &fakeAuthService{}, "session_token")

	req := httptest.NewRequest("POST", "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "abc"})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestProfileHandler_Unauthorized(t *testing.T) {
	handler := handlers.ProfileHandler(testLogger(), &fakeAuthService{})

	req := httptest.NewRequest("GET", "/api/user/profile", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProfileHandler_Success(t *testing.T) {
	user := &models.User{ID: 7, Name: "Juan", Surname: "Pérez", Email: "juan@example.com"}
	handler := handlers.ProfileHandler(testLogger(), &fakeAuthService{user: user})

	req := withUser(httptest.NewRequest("GET", "/api/user/profile", nil), 7)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp handlers.ProfileResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "juan@example.com", resp.Email)
}

func TestTokenHandler_IssuesJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	user := &models.User{ID: 7, Email: "juan@example.com"}
	handler := handlers.TokenHandler(testLogger(), &fakeAuthService{user: user}, time.Hour)

	req := withUser(httptest.NewRequest("POST", "/api/token", nil), 7)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 3600, resp.ExpiresIn)
}

func TestCurrentPriceHandler_Success(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/trading/{coin_id}/price", handlers.CurrentPriceHandler(testLogger(), &fakeTradingService{price: 45000}))

	req := httptest.NewRequest("GET", "/api/v1/trading/bitcoin/price", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "bitcoin", resp["coin_id"])
	assert.Equal(t, float64(45000), resp["price"])
}

// Недоступность источника не ломает эндпоинт цены: фронтенд
// получает тестовую цену с пометкой fallback.
func TestCurrentPriceHandler_Fallback(t *testing.T) {
	apiErr := &coingecko.APIError{Op: "coingecko.SimplePrice", Err: errors.New("connection refused")}
	r := chi.NewRouter()
	r.Get("/api/v1/trading/{coin_id}/price", handlers.CurrentPriceHandler(testLogger(), &fakeTradingService{err: apiErr}))

	req := httptest.NewRequest("GET", "/api/v1/trading/bitcoin/price", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, float64(45000), resp["price"])
	assert.Equal(t, "Precio de prueba (fallback)", resp["note"])
}

func TestAvailableCoinsHandler_Fallback(t *testing.T) {
	apiErr := &coingecko.APIError{Op: "coingecko.CoinsList", Err: errors.New("connection refused")}
	handler := handlers.AvailableCoinsHandler(testLogger(), &fakeTradingService{err: apiErr})

	req := httptest.NewRequest("GET", "/api/v1/trading/coins/available", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		TotalCoins int                      `json:"total_coins"`
		Coins      []map[string]interface{} `json:"coins"`
		Message    string                   `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 10, resp.TotalCoins)
	assert.Equal(t, "bitcoin", resp.Coins[0]["id"])
	assert.Contains(t, resp.Message, "fallback")
}

// Отказ внешнего API после всех повторов транслируется в 503.
func TestSignalsHandler_UpstreamDown(t *testing.T) {
	apiErr := &coingecko.APIError{Op: "coingecko.MarketChart", Err: errors.New("connection refused")}
	r := chi.NewRouter()
	r.Get("/api/v1/trading/{coin_id}/signals", handlers.SignalsHandler(testLogger(), &fakeTradingService{err: apiErr}))

	req := httptest.NewRequest("GET", "/api/v1/trading/bitcoin/signals", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp["detail"], "coingecko.MarketChart")
}

func TestSignalsHandler_DefaultTimeFrame(t *testing.T) {
	signals := []models.TradingSignal{{Type: models.SignalBuy, Price: 45000, Confidence: models.ConfidenceHigh}}
	r := chi.NewRouter()
	r.Get("/api/v1/trading/{coin_id}/signals", handlers.SignalsHandler(testLogger(), &fakeTradingService{signals: signals}))

	req := httptest.NewRequest("GET", "/api/v1/trading/bitcoin/signals", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		CoinID    string                 `json:"coin_id"`
		TimeFrame string                 `json:"time_frame"`
		Signals   []models.TradingSignal `json:"signals"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "24h", resp.TimeFrame)
	require.Len(t, resp.Signals, 1)
	assert.Equal(t, models.SignalBuy, resp.Signals[0].Type)
}

func TestCalculateHandler_BadAmount(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/trading/{coin_id}/calculate", handlers.CalculateHandler(testLogger(), &fakeTradingService{}))

	for _, amount := range []string{"", "abc", "-5"} {
		req := httptest.NewRequest("GET", "/api/v1/trading/bitcoin/calculate?amount="+amount, nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	}
}

func TestBuyCryptoHandler_Success(t *testing.T) {
	result := &service.BuyCryptoResult{
		TransactionID: "paypal_buy_PAY-123",
		CoinID:        "bitcoin",
		CoinAmount:    decimal.NewFromFloat(0.01),
		PricePerCoin:  50000,
		TotalAmount:   decimal.NewFromInt(500),
	}
	handler := handlers.BuyCryptoHandler(testLogger(), &fakePaymentService{result: result})

	reqBody := `{"paymentID": "PAY-123", "payerID": "PAYER-1", "amount": "500", "coin_id": "bitcoin", "coin_amount": "0.01"}`
	req := withUser(httptest.NewRequest("POST", "/api/paypal/buy-crypto", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "paypal_buy_PAY-123", resp["transaction_id"])
}

func TestBuyCryptoHandler_AmountMismatch(t *testing.T) {
	handler := handlers.BuyCryptoHandler(testLogger(), &fakePaymentService{err: service.ErrAmountMismatch})

	reqBody := `{"paymentID": "PAY-123", "payerID": "PAYER-1", "amount": "400", "coin_id": "bitcoin", "coin_amount": "0.01"}`
	req := withUser(httptest.NewRequest("POST", "/api/paypal/buy-crypto", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBuyCryptoHandler_Unauthorized(t *testing.T) {
	handler := handlers.BuyCryptoHandler(testLogger(), &fakePaymentService{})

	reqBody := `{"paymentID": "PAY-123", "payerID": "PAYER-1", "amount": "500", "coin_id": "bitcoin", "coin_amount": "0.01"}`
	req := httptest.NewRequest("POST", "/api/paypal/buy-crypto", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWithdrawHandler_InsufficientFunds(t *testing.T) {
	handler := handlers.WithdrawHandler(testLogger(), &fakePaymentService{err: service.ErrInsufficientFunds})

	reqBody := `{"amount": "1000", "email": "juan@example.com"}`
	req := withUser(httptest.NewRequest("POST", "/api/paypal/withdraw", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUSDBalanceHandler_Success(t *testing.T) {
	handler := handlers.USDBalanceHandler(testLogger(), &fakePaymentService{balance: decimal.NewFromFloat(150.50)})

	req := withUser(httptest.NewRequest("GET", "/api/user/balance", nil), 42)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "USD", resp["currency"])
	assert.Equal(t, "150.5", resp["balance"])
	assert.Equal(t, float64(42), resp["user_id"])
}

func TestCryptoBalancesHandler_Valuation(t *testing.T) {
	balances := &service.CryptoBalancesResult{
		Balances: []*models.CryptoBalance{
			{UserID: 42, CoinID: "bitcoin", Balance: decimal.NewFromFloat(0.5), ValueUSD: 25000},
		},
		TotalValueUSD: 25000,
	}
	handler := handlers.CryptoBalancesHandler(testLogger(), &fakePaymentService{balances: balances})

	req := withUser(httptest.NewRequest("GET", "/api/user/crypto-balances", nil), 42)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success       bool    `json:"success"`
		UserID        int64   `json:"user_id"`
		TotalValueUSD float64 `json:"total_value_usd"`
		Balances      []struct {
			CoinID   string  `json:"coin_id"`
			ValueUSD float64 `json:"value_usd"`
		} `json:"balances"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(42), resp.UserID)
	assert.Equal(t, 25000.0, resp.TotalValueUSD)
	require.Len(t, resp.Balances, 1)
	assert.Equal(t, "bitcoin", resp.Balances[0].CoinID)
	assert.Equal(t, 25000.0, resp.Balances[0].ValueUSD)
}

// provider_data хранится как jsonb и должен уходить клиенту
// JSON-объектом, а не строкой.
func TestTransactionsHandler_ProviderDataShape(t *testing.T) {
	txs := []*models.Transaction{{
		ID:            1,
		UserID:        42,
		TransactionID: "paypal_buy_PAY-1",
		Amount:        decimal.NewFromInt(500),
		Currency:      "USD",
		Status:        "completed",
		Type:          "buy_crypto",
		ProviderData:  json.RawMessage(`{"payment_id":"PAY-1","payer_id":"PAYER-1"}`),
	}}
	handler := handlers.TransactionsHandler(testLogger(), &fakePaymentService{txs: txs})

	req := withUser(httptest.NewRequest("GET", "/api/user/transactions", nil), 42)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Transactions []struct {
			TransactionID string                 `json:"transaction_id"`
			ProviderData  map[string]interface{} `json:"provider_data"`
		} `json:"transactions"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, "paypal_buy_PAY-1", resp.Transactions[0].TransactionID)
	assert.Equal(t, "PAY-1", resp.Transactions[0].ProviderData["payment_id"])
}

func TestEMAAlertHandler_NotificationsOff(t *testing.T) {
	handler := handlers.EMAAlertHandler(testLogger(), &fakeNotificationService{err: service.ErrNotificationsOff})

	reqBody := `{"coin_id": "bitcoin", "signal_type": "BUY", "current_price": 45000, "ema_value": 44000}`
	req := withUser(httptest.NewRequest("POST", "/api/notifications/ema-alert", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Notificaciones desactivadas", resp["message"])
}

func TestEMAAlertHandler_SignalTypeNotAllowed(t *testing.T) {
	handler := handlers.EMAAlertHandler(testLogger(), &fakeNotificationService{err: service.ErrSignalTypeNotAllowed})

	reqBody := `{"coin_id": "bitcoin", "signal_type": "BUY", "current_price": 45000, "ema_value": 44000}`
	req := withUser(httptest.NewRequest("POST", "/api/notifications/ema-alert", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Tipo de notificación no permitido", resp["message"])
}

func TestEMAAlertHandler_Success(t *testing.T) {
	handler := handlers.EMAAlertHandler(testLogger(), &fakeNotificationService{email: "juan@example.com"})

	reqBody := `{"coin_id": "bitcoin", "signal_type": "BUY", "current_price": 45000, "ema_value": 44000}`
	req := withUser(httptest.NewRequest("POST", "/api/notifications/ema-alert", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "juan@example.com", resp["email"])
}

func TestProtonBalanceHandler_Success(t *testing.T) {
	balance := &service.TokenBalance{
		Balance:  "12.3456 XPR",
		Account:  "alice",
		Contract: "eosio.token",
		Symbol:   "XPR",
		Amount:   12.3456,
	}
	r := chi.NewRouter()
	r.Get("/api/v1/proton/balance/{account_name}", handlers.ProtonBalanceHandler(testLogger(), &fakeProtonService{balance: balance}))

	req := httptest.NewRequest("GET", "/api/v1/proton/balance/alice", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp service.TokenBalance
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "12.3456 XPR", resp.Balance)
	assert.Equal(t, "alice", resp.Account)
}

func TestProtonBalanceHandler_InvalidAccount(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/proton/balance/{account_name}", handlers.ProtonBalanceHandler(testLogger(), &fakeProtonService{err: service.ErrInvalidAccountName}))

	req := httptest.NewRequest("GET", "/api/v1/proton/balance/BADNAME", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProtonSupportedTokensHandler(t *testing.T) {
	handler := handlers.ProtonSupportedTokensHandler(testLogger(), &fakeProtonService{})

	req := httptest.NewRequest("GET", "/api/v1/proton/supported-tokens", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Tokens []service.SupportedToken `json:"tokens"`
		Count  int                      `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "XPR", resp.Tokens[0].Symbol)
}

func TestStatusHandler(t *testing.T) {
	handler := handlers.StatusHandler(testLogger())

	req := httptest.NewRequest("GET", "/api/status", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "OK", resp["status"])
	assert.Equal(t, "Service is running", resp["message"])
}
