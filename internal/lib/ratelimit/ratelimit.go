package ratelimit

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/estebanArmonica/crypto-trading/internal/auth/authmw"
)

// Limiter - ограничитель частоты запросов на фиксированном окне.
// Счётчики живут в redis; при недоступности redis запросы пропускаются
// без ограничений, как и в остальном коде ошибки лимитера не фатальны.
type Limiter struct {
	log *slog.Logger
	rdb *redis.Client
}

func New(log *slog.Logger, rdb *redis.Client) *Limiter {
	return &Limiter{log: log, rdb: rdb}
}

// isLimited инкрементирует счётчик окна и сравнивает с порогом
func (l *Limiter) isLimited(r *http.Request, identifier string, maxRequests int, window time.Duration) bool {
	if l.rdb == nil {
		return false
	}

	key := "rate_limit:" + identifier
	ctx := r.Context()

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		l.log.Warn("rate limiter unavailable", slog.Any("error", err))
		return false
	}
	if count == 1 {
		// первый запрос в окне задаёт срок жизни счётчика
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			l.log.Warn("failed to set rate limit window", slog.Any("error", err))
		}
	}
	return count > int64(maxRequests)
}

// PerIP ограничивает по адресу клиента и пути
func (l *Limiter) PerIP(maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			identifier := fmt.Sprintf("ip:%s:%s", host, r.URL.Path)
			if l.isLimited(r, identifier, maxRequests, window) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PerUser ограничивает по аутентифицированному пользователю,
// до аутентификации откатывается на anonymous
func (l *Limiter) PerUser(maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who := "anonymous"
			if userID, ok := authmw.FromContext(r.Context()); ok {
				who = strconv.FormatInt(userID, 10)
			}
			identifier := fmt.Sprintf("user:%s:%s", who, r.URL.Path)
			if l.isLimited(r, identifier, maxRequests, window) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
