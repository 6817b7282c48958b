package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/estebanArmonica/crypto-trading/internal/domain/models"
)

var ErrBalanceNotFound = errors.New("balance not found")

// BalanceStorage - USD и крипто-балансы пользователя.
// Денежные потоки (покупка, вывод) работают внутри транзакций
// с блокировкой строки баланса.
type BalanceStorage interface {
	// GetUSDBalance возвращает баланс, создавая нулевую строку при первом обращении.
	GetUSDBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	LockUSDBalanceTx(ctx context.Context, tx *sql.Tx, userID int64) (decimal.Decimal, error)
	UpdateUSDBalanceTx(ctx context.Context, tx *sql.Tx, userID int64, newBalance decimal.Decimal) error
	// UpsertCryptoBalanceTx прибавляет delta к балансу монеты (upsert по (user, coin)).
	UpsertCryptoBalanceTx(ctx context.Context, tx *sql.Tx, userID int64, coinID string, delta decimal.Decimal) error
	GetCryptoBalance(ctx context.Context, userID int64, coinID string) (decimal.Decimal, error)
	GetCryptoBalances(ctx context.Context, userID int64) ([]*models.CryptoBalance, error)
}

type balanceRepository struct {
	db *sql.DB
}

func NewBalanceRepository(db *sql.DB) BalanceStorage {
	return &balanceRepository{db: db}
}

func (r *balanceRepository) GetUSDBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	row := r.db.QueryRowContext(ctx,
		"SELECT usd_balance FROM user_balances WHERE user_id = $1", userID)
	err := row.Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		// создаем запись при первом обращении
		_, err = r.db.ExecContext(ctx,
			"INSERT INTO user_balances (user_id, usd_balance) VALUES ($1, 0.00) ON CONFLICT (user_id) DO NOTHING", userID)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (r *balanceRepository) LockUSDBalanceTx(ctx context.Context, tx *sql.Tx, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	row := tx.QueryRowContext(ctx,
		"SELECT usd_balance FROM user_balances WHERE user_id = $1 FOR UPDATE NOWAIT", userID)
	if err := row.Scan(&balance); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "55P03" { // lock
				return decimal.Zero, fmt.Errorf("balance is locked, please try again: %w", err)
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			// строка ещё не создана - заводим нулевой баланс,
			// дальше сработает проверка достаточности средств
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO user_balances (user_id, usd_balance) VALUES ($1, 0.00) ON CONFLICT (user_id) DO NOTHING", userID); err != nil {
				return decimal.Zero, err
			}
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return balance, nil
}

func (r *balanceRepository) UpdateUSDBalanceTx(ctx context.Context, tx *sql.Tx, userID int64, newBalance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE user_balances SET usd_balance = $1, updated_at = NOW() WHERE user_id = $2",
		newBalance, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBalanceNotFound
	}
	return nil
}

func (r *balanceRepository) UpsertCryptoBalanceTx(ctx context.Context, tx *sql.Tx, userID int64, coinID string, delta decimal.Decimal) error {
	query := `INSERT INTO crypto_balances (user_id, coin_id, balance)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, coin_id)
	          DO UPDATE SET balance = crypto_balances.balance + EXCLUDED.balance, updated_at = NOW()`
	_, err := tx.ExecContext(ctx, query, userID, coinID, delta)
	if err != nil {
		return fmt.Errorf("failed to upsert crypto balance: %w", err)
	}
	return nil
}

func (r *balanceRepository) GetCryptoBalance(ctx context.Context, userID int64, coinID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	row := r.db.QueryRowContext(ctx,
		"SELECT balance FROM crypto_balances WHERE user_id = $1 AND coin_id = $2", userID, coinID)
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// отсутствие строки - нулевой баланс, не ошибка
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return balance, nil
}

func (r *balanceRepository) GetCryptoBalances(ctx context.Context, userID int64) ([]*models.CryptoBalance, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id, coin_id, balance, updated_at FROM crypto_balances WHERE user_id = $1 AND balance > 0 ORDER BY coin_id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []*models.CryptoBalance
	for rows.Next() {
		b := &models.CryptoBalance{}
		if err := rows.Scan(&b.UserID, &b.CoinID, &b.Balance, &b.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return balances, nil
}
