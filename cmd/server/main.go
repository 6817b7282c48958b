package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/estebanArmonica/crypto-trading/internal/app"
	"github.com/estebanArmonica/crypto-trading/internal/app/handlers"
	"github.com/estebanArmonica/crypto-trading/internal/auth/authmw"
	"github.com/estebanArmonica/crypto-trading/internal/coingecko"
	"github.com/estebanArmonica/crypto-trading/internal/config"
	"github.com/estebanArmonica/crypto-trading/internal/lib/logger"
	"github.com/estebanArmonica/crypto-trading/internal/lib/logger/handlers/urllog"
	"github.com/estebanArmonica/crypto-trading/internal/lib/ratelimit"
	"github.com/estebanArmonica/crypto-trading/internal/mailer"
	"github.com/estebanArmonica/crypto-trading/internal/paypal"
	"github.com/estebanArmonica/crypto-trading/internal/proton"
	"github.com/estebanArmonica/crypto-trading/internal/service"
	"github.com/estebanArmonica/crypto-trading/internal/storage"
	"github.com/estebanArmonica/crypto-trading/internal/wallet"
)

func main() {
	// .env нужен только для локальной разработки, его отсутствие не ошибка
	_ = godotenv.Load()

	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	tmpl, err := handlers.LoadTemplates("./web/templates/*.html")
	if err != nil {
		log.Error("failed to load templates", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to load templates"))
	}

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	codeRepo := storage.NewVerificationCodeRepository(application.DB)
	sessRepo := storage.NewSessionRepository(application.DB)
	balanceRepo := storage.NewBalanceRepository(application.DB)
	txRepo := storage.NewTransactionRepository(application.DB)
	notifRepo := storage.NewNotificationRepository(application.DB)

	// внешние клиенты
	market := coingecko.New(cfg.CoinGecko)
	payments := paypal.New(cfg.PayPal)
	chain := proton.New(cfg.Proton)
	walletClient := wallet.New(cfg.Wallet)
	sender := mailer.New(log, cfg.SMTP)

	authService := service.NewAuthService(log, userRepo, codeRepo, sessRepo, sender, cfg.Session.TTL)
	tradingService := service.NewTradingService(log, market)
	analysisService := service.NewAnalysisService(log, market, tradingService)
	paymentService := service.NewPaymentService(log, application.DB, payments, tradingService, market, userRepo, balanceRepo, txRepo, sender)
	notificationService := service.NewNotificationService(log, userRepo, notifRepo, sender)
	protonService := service.NewProtonService(log, chain, market)

	limiter := ratelimit.New(log, application.Redis)
	cookieName := cfg.Session.CookieName

	// HTML страницы интерфейса
	router.Get("/", handlers.PageHandler(log, tmpl, "login.html"))
	router.Get("/register", handlers.PageHandler(log, tmpl, "register.html"))
	router.Get("/trading", handlers.PageHandler(log, tmpl, "trading.html"))
	router.Get("/paypal-transacc", handlers.PageHandler(log, tmpl, "paypal.html"))
	router.Get("/simulacion", handlers.PageHandler(log, tmpl, "simulacion.html"))

	// страницы личного кабинета, без сессии редирект на вход
	router.Group(func(r chi.Router) {
		r.Use(authmw.NewPageMiddleware(sessRepo, cookieName))
		r.Get("/dashboard", handlers.PageHandler(log, tmpl, "dashboard.html"))
		r.Get("/wallet", handlers.PageHandler(log, tmpl, "wallet.html"))
		r.Get("/profile", handlers.PageHandler(log, tmpl, "profile.html"))
	})

	// служебные эндпоинты
	router.Get("/api/status", handlers.StatusHandler(log))
	router.Get("/api/health", handlers.HealthHandler(log, application.DB))

	// аутентификация: на входные эндпоинты жёсткий лимит по IP
	router.Group(func(r chi.Router) {
		r.Use(limiter.PerIP(10, time.Minute))
		r.Post("/api/register", handlers.RegisterHandler(log, authService))
		r.Post("/api/login", handlers.LoginHandler(log, authService))
		r.Post("/api/verify-code", handlers.VerifyCodeHandler(log, authService, cookieName, cfg.Session.TTL))
	})
	router.Post("/api/logout", handlers.LogoutHandler(log, authService, cookieName))

	// сырые данные CoinGecko, доступны без аутентификации
	router.Route("/api/v1/coingecko", func(r chi.Router) {
		r.Get("/ping", handlers.PingHandler(log, market))
		r.Get("/prices", handlers.PricesHandler(log, market))
		r.Get("/coins/list", handlers.CoinsListHandler(log, market))
		r.Get("/coins/markets", handlers.CoinsMarketsHandler(log, market))
		r.Get("/coins/{coin_id}", handlers.CoinDetailHandler(log, market))
		r.Get("/coins/{coin_id}/ohlc", handlers.OHLCHandler(log, market))
		r.Get("/global", handlers.GlobalHandler(log, market))
		r.Get("/decentralized", handlers.DefiHandler(log, market))
		r.Get("/categories", handlers.CategoriesHandler(log, market))
		r.Get("/companies/{coin_id}", handlers.CompaniesHandler(log, market))
		r.Get("/search", handlers.SearchHandler(log, market))
	})

	router.Get("/api/v1/market/performance", handlers.MarketPerformanceHandler(log, analysisService))

	router.Route("/api/v1/trading", func(r chi.Router) {
		r.Get("/coins/available", handlers.AvailableCoinsHandler(log, tradingService))
		r.Get("/{coin_id}/price", handlers.CurrentPriceHandler(log, tradingService))
		r.Get("/{coin_id}/signals", handlers.SignalsHandler(log, tradingService))
		r.Get("/{coin_id}/metrics", handlers.MetricsHandler(log, tradingService))
		r.Get("/{coin_id}/calculate", handlers.CalculateHandler(log, tradingService))
		r.Get("/{coin_id}/timeframe", handlers.AnalyzeTimeFrameHandler(log, tradingService))
	})

	router.Route("/api/v1/dashboard", func(r chi.Router) {
		r.Get("/global-metrics", handlers.GlobalMetricsHandler(log, market))
		r.Get("/analysis/{coin_id}", handlers.CoinAnalysisHandler(log, analysisService))
		r.Post("/filter", handlers.FilterCoinsHandler(log, analysisService))
		r.Get("/top-opportunities", handlers.TopOpportunitiesHandler(log, analysisService))
	})

	router.Route("/api/v1/coins", func(r chi.Router) {
		r.Get("/top-gainers", handlers.TopGainersHandler(log, analysisService))
		r.Get("/top-losers", handlers.TopLosersHandler(log, analysisService))
		r.Get("/trending", handlers.TrendingHandler(log, analysisService))
	})

	router.Route("/api/v1/proton", func(r chi.Router) {
		r.Get("/health", handlers.ProtonHealthHandler(log, protonService))
		r.Get("/supported-tokens", handlers.ProtonSupportedTokensHandler(log, protonService))
		r.Get("/account-info/{account_name}", handlers.ProtonAccountHandler(log, protonService))
		r.Get("/balance/{account_name}", handlers.ProtonBalanceHandler(log, protonService))
		r.Get("/tokens/{account_name}", handlers.ProtonAllBalancesHandler(log, protonService))
	})

	// всё про деньги и профиль требует сессии
	router.Group(func(r chi.Router) {
		r.Use(authmw.NewAuthMiddleware(sessRepo, cookieName))
		r.Use(limiter.PerUser(120, time.Minute))

		r.Post("/api/token", handlers.TokenHandler(log, authService, time.Duration(cfg.JWT.TokenTTL)*time.Minute))
		r.Get("/api/user/profile", handlers.ProfileHandler(log, authService))
		r.Post("/api/user/profile/update", handlers.UpdateProfileHandler(log, authService))
		r.Get("/api/user/balance", handlers.USDBalanceHandler(log, paymentService))
		r.Get("/api/user/crypto-balance/{coin_id}", handlers.CryptoBalanceHandler(log, paymentService))
		r.Get("/api/user/crypto-balances", handlers.CryptoBalancesHandler(log, paymentService))
		r.Get("/api/user/transactions", handlers.TransactionsHandler(log, paymentService))

		r.Post("/api/paypal/buy-crypto", handlers.BuyCryptoHandler(log, paymentService))
		r.Post("/api/paypal/payout", handlers.WithdrawHandler(log, paymentService))
		r.Get("/api/paypal/payout-status/{batch_id}", handlers.PayoutStatusHandler(log, payments))

		r.Post("/api/notifications/settings", handlers.NotificationSettingsHandler(log, notificationService))
		r.Get("/api/notifications/settings", handlers.GetNotificationSettingsHandler(log, notificationService))
		r.Post("/api/notifications/ema-alert", handlers.EMAAlertHandler(log, notificationService))

		r.Post("/api/v1/wallet/evm/create", handlers.WalletCreateAccountHandler(log, walletClient))
		r.Get("/api/v1/wallet/evm/accounts", handlers.WalletListAccountsHandler(log, walletClient))
		r.Get("/api/v1/wallet/evm/accounts/{address}", handlers.WalletGetAccountHandler(log, walletClient))
		r.Post("/api/v1/wallet/evm/faucet", handlers.WalletFaucetHandler(log, walletClient))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// фоновая чистка истёкших сессий
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupDone:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				deleted, err := sessRepo.DeleteExpired(ctx)
				cancel()
				if err != nil {
					log.Error("failed to delete expired sessions", slog.Any("error", err))
					continue
				}
				if deleted > 0 {
					log.Info("expired sessions deleted", slog.Int64("count", deleted))
				}
			}
		}
	}()

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))
	close(cleanupDone)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
