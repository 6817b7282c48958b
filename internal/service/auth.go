package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/estebanArmonica/crypto-trading/internal/domain/models"
	"github.com/estebanArmonica/crypto-trading/internal/mailer"
	"github.com/estebanArmonica/crypto-trading/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCode        = errors.New("verification code invalid or expired")
)

// срок действия кода верификации
const verificationCodeTTL = 15 * time.Minute

type AuthService interface {
	// Register создаёт пользователя с нулевым USD балансом и шлёт приветственное письмо.
	Register(ctx context.Context, name, surname, email, password string) (int64, error)
	// Login проверяет пароль и отправляет код верификации на email.
	Login(ctx context.Context, email, password string) error
	// VerifyCode проверяет код и открывает сессию, возвращает её токен.
	VerifyCode(ctx context.Context, email, code string) (string, error)
	Logout(ctx context.Context, token string) error
	GetProfile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, name, surname, email string) error
}

type authService struct {
	log        *slog.Logger
	userRepo   storage.UserStorage
	codeRepo   storage.VerificationCodeStorage
	sessRepo   storage.SessionStorage
	mailer     mailer.Sender
	sessionTTL time.Duration
}

func NewAuthService(
	log *slog.Logger,
	userRepo storage.UserStorage,
	codeRepo storage.VerificationCodeStorage,
	sessRepo storage.SessionStorage,
	sender mailer.Sender,
	sessionTTL time.Duration,
) AuthService {
	return &authService{
		log:        log,
		userRepo:   userRepo,
		codeRepo:   codeRepo,
		sessRepo:   sessRepo,
		mailer:     sender,
		sessionTTL: sessionTTL,
	}
}

// generateVerificationCode возвращает шестизначный код
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *authService) Register(ctx context.Context, name, surname, email, password string) (int64, error) {
	const op = "service.AuthService.Register"
	logger := s.log.With(slog.String("op", op), slog.String("email", email))
	logger.Info("registering user")

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := s.userRepo.CreateUser(ctx, &models.User{
		Name:     name,
		Surname:  surname,
		Email:    email,
		PassHash: passHash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			logger.Warn("email already registered")
			return 0, fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
		}
		logger.Error("failed to create user", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	// письмо приветственное, код при регистрации не отправляется
	if err := s.mailer.SendWelcome(email, name, surname); err != nil {
		// регистрация уже прошла, сбой почты не откатывает её
		logger.Warn("failed to send welcome email", slog.Any("error", err))
	}

	logger.Info("user registered", slog.Int64("userID", user.ID))
	return user.ID, nil
}

func (s *authService) Login(ctx context.Context, email, password string) error {
	const op = "service.AuthService.Login"
	logger := s.log.With(slog.String("op", op), slog.String("email", email))
	logger.Info("checking credentials")

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	code, err := generateVerificationCode()
	if err != nil {
		logger.Error("failed to generate code", slog.Any("error", err))
		return fmt.Errorf("%s: failed to generate code: %w", op, err)
	}

	if err := s.codeRepo.CreateCode(ctx, user.ID, code, time.Now().Add(verificationCodeTTL)); err != nil {
		logger.Error("failed to store code", slog.Any("error", err))
		return fmt.Errorf("%s: failed to store code: %w", op, err)
	}

	if err := s.mailer.SendVerificationCode(email, code); err != nil {
		logger.Error("failed to send verification code", slog.Any("error", err))
		return fmt.Errorf("%s: failed to send verification code: %w", op, err)
	}

	logger.Info("verification code sent", slog.Int64("userID", user.ID))
	return nil
}

func (s *authService) VerifyCode(ctx context.Context, email, code string) (string, error) {
	const op = "service.AuthService.VerifyCode"
	logger := s.log.With(slog.String("op", op), slog.String("email", email))
	logger.Info("verifying code")

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	valid, err := s.codeRepo.GetValidCode(ctx, user.ID, code)
	if err != nil {
		if errors.Is(err, storage.ErrCodeNotFound) {
			logger.Warn("invalid or expired code")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCode)
		}
		logger.Error("failed to check code", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to check code: %w", op, err)
	}

	if err := s.codeRepo.MarkUsed(ctx, valid.ID); err != nil {
		logger.Error("failed to mark code used", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to mark code used: %w", op, err)
	}

	token := uuid.NewString()
	if err := s.sessRepo.CreateSession(ctx, user.ID, token, time.Now().Add(s.sessionTTL)); err != nil {
		logger.Error("failed to create session", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to create session: %w", op, err)
	}

	logger.Info("session opened", slog.Int64("userID", user.ID))
	return token, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	const op = "service.AuthService.Logout"

	if token == "" {
		return nil
	}
	if err := s.sessRepo.DeleteSession(ctx, token); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		s.log.Error("failed to delete session", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete session: %w", op, err)
	}
	return nil
}

func (s *authService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	const op = "service.AuthService.GetProfile"

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID int64, name, surname, email string) error {
	const op = "service.AuthService.UpdateProfile"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	if err := s.userRepo.UpdateProfile(ctx, userID, name, surname, email); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			logger.Warn("email already registered")
			return fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
		}
		logger.Error("failed to update profile", slog.Any("error", err))
		return fmt.Errorf("%s: failed to update profile: %w", op, err)
	}

	logger.Info("profile updated")
	return nil
}
