package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/estebanArmonica/crypto-trading/internal/domain/models"
	"github.com/estebanArmonica/crypto-trading/internal/mailer"
	"github.com/estebanArmonica/crypto-trading/internal/paypal"
	"github.com/estebanArmonica/crypto-trading/internal/storage"
)

var (
	ErrAmountMismatch    = errors.New("amount does not match calculation")
	ErrPaymentNotOK      = errors.New("payment was not approved")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// допустимое расхождение между заявленной суммой и пересчётом по
// текущей цене, сглаживает движение курса между кликом и оплатой
var amountTolerance = decimal.NewFromFloat(0.01)

// PaymentProvider - операции провайдера платежей, нужные сервису
type PaymentProvider interface {
	GetPayment(ctx context.Context, paymentID string) (*paypal.Payment, error)
	ExecutePayment(ctx context.Context, paymentID, payerID string) (*paypal.Payment, error)
	CreatePayout(ctx context.Context, req paypal.PayoutRequest) (*paypal.PayoutResult, error)
}

// BuyCryptoRequest - параметры покупки криптовалюты через провайдера
type BuyCryptoRequest struct {
	PaymentID  string
	PayerID    string
	Amount     decimal.Decimal
	CoinID     string
	CoinAmount decimal.Decimal
}

// BuyCryptoResult - итог успешной покупки
type BuyCryptoResult struct {
	TransactionID string          `json:"transaction_id"`
	CoinID        string          `json:"coin_id"`
	CoinAmount    decimal.Decimal `json:"coin_amount"`
	PricePerCoin  float64         `json:"price_per_coin"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Timestamp     string          `json:"timestamp"`
}

// CryptoBalancesResult - балансы по монетам с оценкой в USD по текущим ценам
type CryptoBalancesResult struct {
	Balances      []*models.CryptoBalance `json:"balances"`
	TotalValueUSD float64                 `json:"total_value_usd"`
}

type PaymentService interface {
	// BuyCrypto проверяет и исполняет платёж, зачисляет монету на баланс.
	BuyCrypto(ctx context.Context, userID int64, req BuyCryptoRequest) (*BuyCryptoResult, error)
	// Withdraw списывает USD баланс и создаёт payout на email пользователя.
	Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, email string) (*paypal.PayoutResult, error)
	GetUSDBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	GetCryptoBalance(ctx context.Context, userID int64, coinID string) (decimal.Decimal, error)
	GetCryptoBalances(ctx context.Context, userID int64) (*CryptoBalancesResult, error)
	GetTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error)
}

type paymentService struct {
	log         *slog.Logger
	db          *sql.DB
	provider    PaymentProvider
	trading     TradingService
	market      MarketClient
	userRepo    storage.UserStorage
	balanceRepo storage.BalanceStorage
	txRepo      storage.TransactionStorage
	mailer      mailer.Sender
	now         func() time.Time
}

func NewPaymentService(
	log *slog.Logger,
	db *sql.DB,
	provider PaymentProvider,
	trading TradingService,
	market MarketClient,
	userRepo storage.UserStorage,
	balanceRepo storage.BalanceStorage,
	txRepo storage.TransactionStorage,
	sender mailer.Sender,
) PaymentService {
	return &paymentService{
		log:         log,
		db:          db,
		provider:    provider,
		trading:     trading,
		market:      market,
		userRepo:    userRepo,
		balanceRepo: balanceRepo,
		txRepo:      txRepo,
		mailer:      sender,
		now:         time.Now,
	}
}

// BuyCrypto исполняет оплаченный через провайдера платёж:
// сверяет сумму с пересчётом по текущей цене и с самим платежом,
// затем в одной транзакции БД пишет запись и зачисляет монету
func (s *paymentService) BuyCrypto(ctx context.Context, userID int64, req BuyCryptoRequest) (*BuyCryptoResult, error) {
	const op = "service.PaymentService.BuyCrypto"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("coinID", req.CoinID))
	logger.Info("processing crypto purchase")

	if !req.Amount.IsPositive() || !req.CoinAmount.IsPositive() {
		return nil, fmt.Errorf("%s: %w", op, ErrAmountMismatch)
	}

	currentPrice, err := s.trading.GetCurrentPrice(ctx, req.CoinID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	calculated := req.CoinAmount.Mul(decimal.NewFromFloat(currentPrice))
	if req.Amount.Sub(calculated).Abs().GreaterThan(amountTolerance) {
		logger.Warn("amount mismatch",
			slog.String("claimed", req.Amount.String()),
			slog.String("calculated", calculated.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrAmountMismatch)
	}

	payment, err := s.provider.GetPayment(ctx, req.PaymentID)
	if err != nil {
		logger.Error("failed to look up payment", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to look up payment: %w", op, err)
	}
	if payment.State != "approved" {
		logger.Warn("payment not approved", slog.String("state", payment.State))
		return nil, fmt.Errorf("%s: %w", op, ErrPaymentNotOK)
	}
	if len(payment.Transactions) == 0 {
		return nil, fmt.Errorf("%s: payment has no transactions", op)
	}
	paid, err := decimal.NewFromString(payment.Transactions[0].Amount.Total)
	if err != nil {
		return nil, fmt.Errorf("%s: bad payment amount: %w", op, err)
	}
	if !paid.Equal(req.Amount) {
		logger.Warn("payment amount mismatch", slog.String("paid", paid.String()))
		return nil, fmt.Errorf("%s: %w", op, ErrAmountMismatch)
	}

	executed, err := s.provider.ExecutePayment(ctx, req.PaymentID, req.PayerID)
	if err != nil {
		logger.Error("failed to execute payment", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to execute payment: %w", op, err)
	}

	transactionID := "paypal_buy_" + req.PaymentID
	providerData, err := json.Marshal(map[string]interface{}{
		"payment_id":     req.PaymentID,
		"payer_id":       req.PayerID,
		"coin_id":        req.CoinID,
		"coin_amount":    req.CoinAmount.InexactFloat64(),
		"price_per_coin": currentPrice,
		"total_amount":   req.Amount.InexactFloat64(),
		"payment_state":  executed.State,
		"create_time":    executed.CreateTime,
		"update_time":    executed.UpdateTime,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal provider data: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	if err := s.txRepo.CreateTransactionTx(ctx, tx, &models.Transaction{
		UserID:        userID,
		TransactionID: transactionID,
		Amount:        req.Amount,
		Currency:      "USD",
		Status:        "completed",
		Type:          "buy_crypto",
		ProviderData:  providerData,
	}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to record transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to record transaction: %w", op, err)
	}

	if err := s.balanceRepo.UpsertCryptoBalanceTx(ctx, tx, userID, req.CoinID, req.CoinAmount); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to update crypto balance", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update crypto balance: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	// письмо подтверждения не влияет на результат покупки
	if user, err := s.userRepo.GetUserByID(ctx, userID); err == nil {
		if err := s.mailer.SendPurchaseConfirmation(
			user.Email, user.Name, req.CoinID,
			req.CoinAmount, currentPrice, req.Amount, transactionID,
		); err != nil {
			logger.Warn("failed to send confirmation email", slog.Any("error", err))
		}
	}

	logger.Info("purchase completed", slog.String("transactionID", transactionID))
	return &BuyCryptoResult{
		TransactionID: transactionID,
		CoinID:        req.CoinID,
		CoinAmount:    req.CoinAmount,
		PricePerCoin:  currentPrice,
		TotalAmount:   req.Amount,
		Timestamp:     s.now().Format(time.RFC3339),
	}, nil
}

// Withdraw уменьшает USD баланс под блокировкой строки и создаёт payout.
// Payout после коммита: возврат средств при его сбое отдельной операцией.
func (s *paymentService) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, email string) (*paypal.PayoutResult, error) {
	const op = "service.PaymentService.Withdraw"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("processing withdrawal", slog.String("amount", amount.String()))

	if !amount.IsPositive() {
		return nil, fmt.Errorf("%s: %w", op, ErrAmountMismatch)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	balance, err := s.balanceRepo.LockUSDBalanceTx(ctx, tx, userID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to lock balance", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock balance: %w", op, err)
	}

	if balance.LessThan(amount) {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("insufficient funds", slog.String("balance", balance.String()))
		return nil, fmt.Errorf("%s: %w", op, ErrInsufficientFunds)
	}

	if err := s.balanceRepo.UpdateUSDBalanceTx(ctx, tx, userID, balance.Sub(amount)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to update balance", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update balance: %w", op, err)
	}

	batchID := fmt.Sprintf("withdraw_%d_%d", userID, s.now().UnixNano())
	if err := s.txRepo.CreateTransactionTx(ctx, tx, &models.Transaction{
		UserID:        userID,
		TransactionID: batchID,
		Amount:        amount,
		Currency:      "USD",
		Status:        "pending",
		Type:          "withdrawal",
	}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to record transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to record transaction: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	result, err := s.provider.CreatePayout(ctx, paypal.PayoutRequest{
		Amount:         amount.InexactFloat64(),
		Currency:       "USD",
		RecipientEmail: email,
		Note:           "Retiro de fondos",
		SenderBatchID:  batchID,
	})
	if err != nil {
		logger.Error("payout failed after debit", slog.Any("error", err))
		return nil, fmt.Errorf("%s: payout failed: %w", op, err)
	}

	logger.Info("withdrawal created", slog.String("batchID", result.BatchID))
	return result, nil
}

func (s *paymentService) GetUSDBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	const op = "service.PaymentService.GetUSDBalance"

	balance, err := s.balanceRepo.GetUSDBalance(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}

func (s *paymentService) GetCryptoBalance(ctx context.Context, userID int64, coinID string) (decimal.Decimal, error) {
	const op = "service.PaymentService.GetCryptoBalance"

	balance, err := s.balanceRepo.GetCryptoBalance(ctx, userID, coinID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}

// GetCryptoBalances возвращает балансы по монетам и их оценку в USD.
// Цены берутся одним батч-запросом; если источник недоступен,
// балансы отдаются без оценки.
func (s *paymentService) GetCryptoBalances(ctx context.Context, userID int64) (*CryptoBalancesResult, error) {
	const op = "service.PaymentService.GetCryptoBalances"

	balances, err := s.balanceRepo.GetCryptoBalances(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &CryptoBalancesResult{Balances: balances}
	if len(balances) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(balances))
	for _, b := range balances {
		ids = append(ids, b.CoinID)
	}
	prices, err := s.market.SimplePrice(ctx, strings.Join(ids, ","), "usd")
	if err != nil {
		s.log.Warn("failed to price crypto balances",
			slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return result, nil
	}

	for _, b := range balances {
		entry, ok := prices[b.CoinID].(map[string]interface{})
		if !ok {
			continue
		}
		price, ok := entry["usd"].(float64)
		if !ok {
			continue
		}
		amount, _ := b.Balance.Float64()
		b.ValueUSD = amount * price
		result.TotalValueUSD += b.ValueUSD
	}
	return result, nil
}

func (s *paymentService) GetTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	const op = "service.PaymentService.GetTransactions"

	txs, err := s.txRepo.GetTransactionsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return txs, nil
}
