package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"local"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Session    SessionConfig    `yaml:"session"`
	JWT        JWTConfig        `yaml:"jwt"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	CoinGecko  CoinGeckoConfig  `yaml:"coingecko"`
	PayPal     PayPalConfig     `yaml:"paypal"`
	Proton     ProtonConfig     `yaml:"proton"`
	Wallet     WalletConfig     `yaml:"wallet"`
	Migrations MigrationsConfig `yaml:"migrations"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// RedisConfig - redis нужен только для rate limiting,
// при его недоступности сервис работает без ограничений
type RedisConfig struct {
	Address  string `yaml:"address" env-default:"localhost:6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

// SessionConfig настройки cookie-сессий
type SessionConfig struct {
	TTL        time.Duration `yaml:"ttl" env-default:"24h"`
	CookieName string        `yaml:"cookie_name" env-default:"session_token"`
}

// JWTConfig настройка jwt для программного доступа к API
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

// SMTPConfig настройки почты для кодов верификации и алертов
type SMTPConfig struct {
	Host     string `yaml:"host" env-default:"smtp.gmail.com"`
	Port     int    `yaml:"port" env-default:"587"`
	From     string `yaml:"from" env:"EMAIL_USER"`
	Password string `yaml:"-" env:"EMAIL_PASSWORD"`
	Company  string `yaml:"company" env-default:"Crypto Trading Platform"`
}

// CoinGeckoConfig параметры фасада market-data API
type CoinGeckoConfig struct {
	BaseURL  string        `yaml:"base_url" env-default:"https://api.coingecko.com/api/v3"`
	CacheTTL time.Duration `yaml:"cache_ttl" env-default:"60s"`
	Timeout  time.Duration `yaml:"timeout" env-default:"15s"`
}

// PayPalConfig параметры платежного провайдера
type PayPalConfig struct {
	BaseURL  string `yaml:"base_url" env-default:"https://api-m.sandbox.paypal.com"`
	ClientID string `yaml:"-" env:"PAYPAL_CLIENT_ID"`
	Secret   string `yaml:"-" env:"PAYPAL_SECRET"`
}

// ProtonConfig параметры blockchain RPC
type ProtonConfig struct {
	RPCEndpoint      string `yaml:"rpc_endpoint" env-default:"https://proton.greymass.com"`
	HyperionEndpoint string `yaml:"hyperion_endpoint" env-default:"https://proton.eosusa.io"`
	ChainID          string `yaml:"chain_id" env-default:"384da888112027f0321850a169f737c33e53b388aad48b5adace4bab97f437e0"`
}

// WalletConfig параметры кастодиального wallet API
type WalletConfig struct {
	BaseURL string `yaml:"base_url" env-default:"https://api.cdp.coinbase.com/platform"`
	APIKey  string `yaml:"-" env:"WALLET_API_KEY"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s", configPath)
	}

	return &cfg
}
