package authmw

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/estebanArmonica/crypto-trading/internal/storage"
)

type contextKey string

const UserIDKey contextKey = "userID"

// NewAuthMiddleware создаёт middleware аутентификации: сначала проверяется
// cookie-сессия (браузерный путь), затем Bearer JWT (программный доступ).
// Секрет jwt берётся из переменной окружения.
func NewAuthMiddleware(sessions storage.SessionStorage, cookieName string) func(http.Handler) http.Handler {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("JWT_SECRET is not set")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// браузерный путь: непрозрачный токен сессии в cookie
			if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
				userID, err := sessions.GetUserIDByToken(r.Context(), cookie.Value)
				if err == nil {
					ctx := context.WithValue(r.Context(), UserIDKey, userID)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				if !errors.Is(err, storage.ErrSessionNotFound) {
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				// сессия истекла - пробуем Bearer ниже
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing token", http.StatusUnauthorized)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid token format", http.StatusUnauthorized)
				return
			}
			tokenStr := parts[1]

			// Парсинг и проверка токена
			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "invalid token claims", http.StatusUnauthorized)
				return
			}

			sub, ok := claims["sub"].(string)
			if !ok {
				http.Error(w, "invalid token claims: sub not found", http.StatusUnauthorized)
				return
			}

			userID, err := strconv.ParseInt(sub, 10, 64)
			if err != nil {
				http.Error(w, "invalid token claims: invalid user id", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewPageMiddleware защищает HTML-страницы: без действующей
// cookie-сессии браузер перенаправляется на страницу входа.
func NewPageMiddleware(sessions storage.SessionStorage, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			userID, err := sessions.GetUserIDByToken(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, storage.ErrSessionNotFound) {
					http.Redirect(w, r, "/", http.StatusSeeOther)
					return
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext извлекает userID из контекста.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}
