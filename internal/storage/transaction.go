package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/estebanArmonica/crypto-trading/internal/domain/models"
)

// TransactionStorage описывает методы для работы с транзакциями провайдеров.
type TransactionStorage interface {
	// CreateTransactionTx вставляет запись в рамках открытой транзакции БД.
	CreateTransactionTx(ctx context.Context, tx *sql.Tx, t *models.Transaction) error
	// GetTransactionsByUserID возвращает список транзакций пользователя.
	GetTransactionsByUserID(ctx context.Context, userID int64) ([]*models.Transaction, error)
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionStorage {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) CreateTransactionTx(ctx context.Context, tx *sql.Tx, t *models.Transaction) error {
	query := `INSERT INTO transactions (user_id, transaction_id, amount, currency, status, type, provider_data, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	var providerData interface{}
	if len(t.ProviderData) > 0 {
		providerData = t.ProviderData
	}

	_, err := tx.ExecContext(ctx, query,
		t.UserID, t.TransactionID, t.Amount, t.Currency, t.Status, t.Type, providerData)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetTransactionsByUserID(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, transaction_id, amount, currency, status, type, provider_data, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		t := &models.Transaction{}
		var providerData sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.TransactionID, &t.Amount, &t.Currency, &t.Status, &t.Type, &providerData, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if providerData.Valid {
			t.ProviderData = []byte(providerData.String)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}
