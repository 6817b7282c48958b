package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/estebanArmonica/crypto-trading/internal/auth"
	"github.com/estebanArmonica/crypto-trading/internal/auth/authmw"
	"github.com/estebanArmonica/crypto-trading/internal/service"
)

// RegisterRequest - данные регистрации
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Surname  string `json:"surname" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// RegisterHandler обрабатывает POST /api/register
func RegisterHandler(log *slog.Logger, authService service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		if _, err := authService.Register(r.Context(), req.Name, req.Surname, req.Email, req.Password); err != nil {
			logger.Error("registration failed", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]string{
			"message":  "Usuario registrado exitosamente. Redirigiendo al login...",
			"redirect": "/",
		})
	}
}

// LoginRequest - первый шаг входа: проверка пароля
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginHandler обрабатывает POST /api/login: при верном пароле
// пользователю уходит код верификации, сессия ещё не открывается
func LoginHandler(log *slog.Logger, authService service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		if err := authService.Login(r.Context(), req.Email, req.Password); err != nil {
			logger.Error("login failed", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]string{
			"message": "Código de verificación enviado a tu email",
		})
	}
}

// VerifyCodeRequest - второй шаг входа: проверка кода
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

// VerifyCodeHandler обрабатывает POST /api/verify-code: валидный код
// открывает сессию и ставит httpOnly cookie
func VerifyCodeHandler(log *slog.Logger, authService service.AuthService, cookieName string, sessionTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.VerifyCodeHandler"
		logger := log.With(slog.String("op", op))

		var req VerifyCodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		token, err := authService.VerifyCode(r.Context(), req.Email, req.Code)
		if err != nil {
			logger.Error("code verification failed", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			MaxAge:   int(sessionTTL.Seconds()),
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, logger, http.StatusOK, map[string]string{
			"message":  "Login exitoso",
			"redirect": "/dashboard",
		})
	}
}

// LogoutHandler обрабатывает POST /api/logout: закрывает сессию и
// гасит cookie. Отсутствие cookie не ошибка.
func LogoutHandler(log *slog.Logger, authService service.AuthService, cookieName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LogoutHandler"
		logger := log.With(slog.String("op", op))

		if cookie, err := r.Cookie(cookieName); err == nil {
			if err := authService.Logout(r.Context(), cookie.Value); err != nil {
				logger.Error("logout failed", slog.Any("error", err))
				respondError(w, logger, err)
				return
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
		writeJSON(w, logger, http.StatusOK, map[string]string{"message": "Logout exitoso"})
	}
}

// TokenHandler обрабатывает POST /api/token: выдаёт JWT для
// программного доступа к API действующей сессии
func TokenHandler(log *slog.Logger, authService service.AuthService, tokenTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.TokenHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := authService.GetProfile(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get user", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		token, err := auth.NewToken(r.Context(), user, tokenTTL)
		if err != nil {
			logger.Error("failed to issue token", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"token":      token,
			"expires_in": int(tokenTTL.Seconds()),
		})
	}
}

// ProfileResponse - профиль без чувствительных полей
type ProfileResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
}

// ProfileHandler обрабатывает GET /api/user/profile
func ProfileHandler(log *slog.Logger, authService service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProfileHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := authService.GetProfile(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get profile", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, ProfileResponse{
			ID:      user.ID,
			Name:    user.Name,
			Surname: user.Surname,
			Email:   user.Email,
		})
	}
}

// UpdateProfileRequest - изменяемые поля профиля
type UpdateProfileRequest struct {
	Name    string `json:"name" validate:"required"`
	Surname string `json:"surname" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
}

// UpdateProfileHandler обрабатывает POST /api/user/profile/update
func UpdateProfileHandler(log *slog.Logger, authService service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProfileHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		if err := authService.UpdateProfile(r.Context(), userID, req.Name, req.Surname, req.Email); err != nil {
			logger.Error("failed to update profile", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Perfil actualizado exitosamente",
		})
	}
}
