package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/estebanArmonica/crypto-trading/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestMustLoadByPath_Success(t *testing.T) {
	// Устанавливаем обязательные переменные окружения
	os.Setenv("DB_PASSWORD", "mypassword")
	os.Setenv("JWT_SECRET", "mysecret")
	defer os.Unsetenv("DB_PASSWORD")
	defer os.Unsetenv("JWT_SECRET")

	content := `
env: "local"
http_server:
  address: "localhost:8080"
  timeout: "10s"
  idle_timeout: "60s"
database:
  host: "localhost"
  port: 5432
  user: "postgres"
  name: "crypto"
session:
  ttl: "24h"
  cookie_name: "session_token"
jwt:
  token_ttl: 60
coingecko:
  base_url: "https://api.coingecko.com/api/v3"
  cache_ttl: "60s"
  timeout: "15s"
migrations:
  path: "./migrations"
`
	tmpFile, err := os.CreateTemp("", "config_test_*.yaml")
	assert.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(content)
	assert.NoError(t, err)
	err = tmpFile.Close()
	assert.NoError(t, err)

	cfg := config.MustLoadByPath(tmpFile.Name())

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "localhost:8080", cfg.HTTPServer.Address)
	assert.Equal(t, 10*time.Second, cfg.HTTPServer.Timeout)
	assert.Equal(t, 60*time.Second, cfg.HTTPServer.IdleTimeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "crypto", cfg.Database.Name)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "session_token", cfg.Session.CookieName)
	assert.Equal(t, 60, cfg.JWT.TokenTTL)
	assert.Equal(t, 60*time.Second, cfg.CoinGecko.CacheTTL)
	assert.Equal(t, "./migrations", cfg.Migrations.Path)
}

func TestMustLoadByPath_Defaults(t *testing.T) {
	os.Setenv("DB_PASSWORD", "mypassword")
	os.Setenv("JWT_SECRET", "mysecret")
	defer os.Unsetenv("DB_PASSWORD")
	defer os.Unsetenv("JWT_SECRET")

	content := `
database:
  user: "postgres"
  name: "crypto"
`
	tmpFile, err := os.CreateTemp("", "config_test_*.yaml")
	assert.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(content)
	assert.NoError(t, err)
	assert.NoError(t, tmpFile.Close())

	cfg := config.MustLoadByPath(tmpFile.Name())

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.CoinGecko.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.CoinGecko.CacheTTL)
	assert.Equal(t, "https://proton.greymass.com", cfg.Proton.RPCEndpoint)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
}

func TestMustLoadByPath_FileNotFound(t *testing.T) {
	// Ожидаем панику, если файла не существует
	assert.Panics(t, func() {
		config.MustLoadByPath("non_existent_config.yaml")
	})
}
