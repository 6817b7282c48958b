package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/estebanArmonica/crypto-trading/internal/domain/models"
	"github.com/estebanArmonica/crypto-trading/internal/storage"
)

func TestGetUserByID_Success(t *testing.T) {
	// Создаем sqlmock для эмуляции базы данных.
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()
	userID := int64(1)
	created := time.Now()

	rows := sqlmock.NewRows([]string{"id", "name", "surname", "email", "pass_hash", "created_at"}).
		AddRow(userID, "Esteban", "Armonica", "test@example.com", []byte("hashed-password"), created)

	mock.ExpectQuery("SELECT id, name, surname, email, pass_hash, created_at FROM users WHERE id = \\$1").
		WithArgs(userID).WillReturnRows(rows)

	user, err := repo.GetUserByID(ctx, userID)
	assert.NoError(t, err, "Expected no error when user is found")
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "Esteban", user.Name)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, []byte("hashed-password"), user.PassHash)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByID_NoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "surname", "email", "pass_hash", "created_at"})
	mock.ExpectQuery("SELECT id, name, surname, email, pass_hash, created_at FROM users WHERE id = \\$1").
		WithArgs(int64(2)).WillReturnRows(rows)

	user, err := repo.GetUserByID(context.Background(), 2)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	assert.Nil(t, user, "User should be nil when not found")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	mock.ExpectQuery("SELECT id, name, surname, email, pass_hash, created_at FROM users WHERE email = \\$1").
		WithArgs("broken@example.com").WillReturnError(errors.New("db error"))

	user, err := repo.GetUserByEmail(context.Background(), "broken@example.com")
	assert.Error(t, err)
	assert.Nil(t, user)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	mock.ExpectQuery("INSERT INTO users \\(name, surname, email, pass_hash, created_at\\) VALUES \\(\\$1, \\$2, \\$3, \\$4, NOW\\(\\)\\) RETURNING id").
		WithArgs("Esteban", "Armonica", "new@example.com", []byte("hash")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	user, err := repo.CreateUser(context.Background(), &models.User{
		Name:     "Esteban",
		Surname:  "Armonica",
		Email:    "new@example.com",
		PassHash: []byte("hash"),
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserIDByToken_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewSessionRepository(db)

	mock.ExpectQuery("SELECT user_id FROM sessions WHERE session_token = \\$1 AND expires_at > NOW\\(\\)").
		WithArgs("token-abc").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(42))

	userID, err := repo.GetUserIDByToken(context.Background(), "token-abc")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserIDByToken_Expired(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewSessionRepository(db)

	// просроченная сессия не попадает в выборку
	mock.ExpectQuery("SELECT user_id FROM sessions WHERE session_token = \\$1 AND expires_at > NOW\\(\\)").
		WithArgs("stale-token").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err = repo.GetUserIDByToken(context.Background(), "stale-token")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredSessions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewSessionRepository(db)

	mock.ExpectExec("DELETE FROM sessions WHERE expires_at <= NOW\\(\\)").
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := repo.DeleteExpired(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetValidCode_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewVerificationCodeRepository(db)
	expires := time.Now().Add(15 * time.Minute)

	rows := sqlmock.NewRows([]string{"id", "user_id", "code", "expires_at", "used"}).
		AddRow(3, 42, "123456", expires, false)

	mock.ExpectQuery("SELECT id, user_id, code, expires_at, used FROM verification_codes").
		WithArgs(int64(42), "123456").WillReturnRows(rows)

	vc, err := repo.GetValidCode(context.Background(), 42, "123456")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), vc.ID)
	assert.False(t, vc.Used)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetValidCode_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewVerificationCodeRepository(db)

	mock.ExpectQuery("SELECT id, user_id, code, expires_at, used FROM verification_codes").
		WithArgs(int64(42), "000000").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "code", "expires_at", "used"}))

	_, err = repo.GetValidCode(context.Background(), 42, "000000")
	assert.ErrorIs(t, err, storage.ErrCodeNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockUSDBalanceTx_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewBalanceRepository(db)

	tx, err := db.Begin()
	assert.NoError(t, err)

	rows := sqlmock.NewRows([]string{"usd_balance"}).AddRow("150.50")
	mock.ExpectQuery("SELECT usd_balance FROM user_balances WHERE user_id = \\$1 FOR UPDATE NOWAIT").
		WithArgs(int64(42)).WillReturnRows(rows)

	balance, err := repo.LockUSDBalanceTx(context.Background(), tx, 42)
	assert.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("150.50")))

	assert.NoError(t, mock.ExpectationsWereMet())
}

// Пользователь без строки баланса получает нулевой баланс,
// а не ошибку: вывод средств упрётся в недостаток средств.
func TestLockUSDBalanceTx_CreatesRowWhenMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewBalanceRepository(db)

	tx, err := db.Begin()
	assert.NoError(t, err)

	mock.ExpectQuery("SELECT usd_balance FROM user_balances WHERE user_id = \\$1 FOR UPDATE NOWAIT").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"usd_balance"}))
	mock.ExpectExec("INSERT INTO user_balances").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	balance, err := repo.LockUSDBalanceTx(context.Background(), tx, 9)
	assert.NoError(t, err)
	assert.True(t, balance.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUSDBalance_CreatesRowWhenMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewBalanceRepository(db)

	mock.ExpectQuery("SELECT usd_balance FROM user_balances WHERE user_id = \\$1").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"usd_balance"}))
	mock.ExpectExec("INSERT INTO user_balances").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	balance, err := repo.GetUSDBalance(context.Background(), 9)
	assert.NoError(t, err)
	assert.True(t, balance.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCryptoBalanceTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewBalanceRepository(db)

	tx, err := db.Begin()
	assert.NoError(t, err)

	mock.ExpectExec("INSERT INTO crypto_balances").
		WithArgs(int64(42), "bitcoin", decimal.RequireFromString("0.005")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.UpsertCryptoBalanceTx(context.Background(), tx, 42, "bitcoin", decimal.RequireFromString("0.005"))
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransactionTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewTransactionRepository(db)

	tx, err := db.Begin()
	assert.NoError(t, err)

	amount := decimal.RequireFromString("99.90")
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(int64(42), "paypal_buy_PAY-1", amount, "USD", "completed", "buy_crypto", []byte(`{"payment_id":"PAY-1"}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.CreateTransactionTx(context.Background(), tx, &models.Transaction{
		UserID:        42,
		TransactionID: "paypal_buy_PAY-1",
		Amount:        amount,
		Currency:      "USD",
		Status:        "completed",
		Type:          "buy_crypto",
		ProviderData:  []byte(`{"payment_id":"PAY-1"}`),
	})
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSettings(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewNotificationRepository(db)

	mock.ExpectExec("INSERT INTO notification_settings").
		WithArgs(int64(42), "alerts@example.com", "both", true).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.UpsertSettings(context.Background(), &models.NotificationSettings{
		UserID:           42,
		Email:            "alerts@example.com",
		NotificationType: "both",
		Enabled:          true,
	})
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
