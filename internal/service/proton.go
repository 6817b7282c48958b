package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/estebanArmonica/crypto-trading/internal/proton"
)

var ErrInvalidAccountName = errors.New("invalid account name")

// ChainClient - операции ноды блокчейна, нужные сервису
type ChainClient interface {
	ChainID() string
	GetInfo(ctx context.Context) (*proton.ChainInfo, error)
	GetAccount(ctx context.Context, accountName string) (map[string]interface{}, error)
	GetCurrencyBalance(ctx context.Context, code, account, symbol string) ([]string, error)
}

// срок жизни закэшированного баланса аккаунта
const balanceCacheTTL = 30 * time.Second

// tokenContract - токены контракта и их соответствия идентификаторам
// CoinGecko (параллельные списки: Tokens[i] ценится по CoinGeckoIDs[i])
type tokenContract struct {
	Tokens       []string
	CoinGeckoIDs []string
}

// реестр известных контрактов сети Proton
var tokenContracts = map[string]tokenContract{
	"eosio.token": {
		Tokens:       []string{"XPR"},
		CoinGeckoIDs: []string{"proton"},
	},
	"tokens.proton": {
		Tokens:       []string{"XUSDT", "XBTC", "XETH", "XUSDC", "XDOGE", "XBNB", "XADA", "XDOT", "XLTC"},
		CoinGeckoIDs: []string{"tether", "bitcoin", "ethereum", "usd-coin", "dogecoin", "binancecoin", "cardano", "polkadot", "litecoin"},
	},
	"usdt.proton": {
		Tokens:       []string{"USDT"},
		CoinGeckoIDs: []string{"tether"},
	},
	"btc.proton": {
		Tokens:       []string{"BTC"},
		CoinGeckoIDs: []string{"bitcoin"},
	},
	"eth.proton": {
		Tokens:       []string{"ETH"},
		CoinGeckoIDs: []string{"ethereum"},
	},
	"usdc.proton": {
		Tokens:       []string{"USDC"},
		CoinGeckoIDs: []string{"usd-coin"},
	},
	"dogep.proton": {
		Tokens:       []string{"DOGE"},
		CoinGeckoIDs: []string{"dogecoin"},
	},
	"xprtokens.proton": {
		Tokens:       []string{"XMD", "LOAN", "SWAP"},
		CoinGeckoIDs: []string{"proton", "proton-loan", "proton-swap"},
	},
	"proton.swaps": {
		Tokens:       []string{"PSWAP"},
		CoinGeckoIDs: []string{"proton-swap"},
	},
}

// TokenBalance - баланс одного токена аккаунта
type TokenBalance struct {
	Balance  string  `json:"balance"` // исходный формат ноды, например "1.2345 XPR"
	Account  string  `json:"account"`
	Contract string  `json:"contract"`
	Symbol   string  `json:"symbol"`
	Amount   float64 `json:"amount"`
	PriceUSD float64 `json:"price_usd,omitempty"`
	ValueUSD float64 `json:"value_usd,omitempty"`
}

// AccountBalances - портфель аккаунта с оценкой в USD
type AccountBalances struct {
	Account    string         `json:"account"`
	Tokens     []TokenBalance `json:"tokens"`
	TotalValue float64        `json:"total_value"`
}

// ChainHealth - результат проверки ноды
type ChainHealth struct {
	Healthy      bool   `json:"healthy"`
	ChainID      string `json:"chain_id"`
	HeadBlockNum int64  `json:"head_block_num"`
}

// SupportedToken - токен из реестра контрактов
type SupportedToken struct {
	Contract    string `json:"contract"`
	Symbol      string `json:"symbol"`
	CoinGeckoID string `json:"coingecko_id"`
}

type ProtonService interface {
	HealthCheck(ctx context.Context) (*ChainHealth, error)
	GetAccountInfo(ctx context.Context, accountName string) (map[string]interface{}, error)
	GetBalance(ctx context.Context, accountName, contract, symbol string) (*TokenBalance, error)
	// GetAllBalances обходит известные контракты и оценивает портфель в USD.
	GetAllBalances(ctx context.Context, accountName string) (*AccountBalances, error)
	SupportedTokens() []SupportedToken
}

type protonService struct {
	log    *slog.Logger
	chain  ChainClient
	market MarketClient

	mu    sync.Mutex
	cache map[string]cachedBalance
	now   func() time.Time
}

type cachedBalance struct {
	balance  TokenBalance
	cachedAt time.Time
}

func NewProtonService(log *slog.Logger, chain ChainClient, market MarketClient) ProtonService {
	return &protonService{
		log:    log,
		chain:  chain,
		market: market,
		cache:  make(map[string]cachedBalance),
		now:    time.Now,
	}
}

// SupportedTokens перечисляет реестр контрактов в стабильном порядке
func (s *protonService) SupportedTokens() []SupportedToken {
	var tokens []SupportedToken
	for contract, tc := range tokenContracts {
		for i, symbol := range tc.Tokens {
			tokens = append(tokens, SupportedToken{
				Contract:    contract,
				Symbol:      symbol,
				CoinGeckoID: tc.CoinGeckoIDs[i],
			})
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].Contract != tokens[j].Contract {
			return tokens[i].Contract < tokens[j].Contract
		}
		return tokens[i].Symbol < tokens[j].Symbol
	})
	return tokens
}

// HealthCheck запрашивает get_info и сверяет chain_id с ожидаемым
func (s *protonService) HealthCheck(ctx context.Context) (*ChainHealth, error) {
	const op = "service.ProtonService.HealthCheck"

	info, err := s.chain.GetInfo(ctx)
	if err != nil {
		s.log.Error("chain health check failed", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &ChainHealth{
		Healthy:      info.ChainID == s.chain.ChainID(),
		ChainID:      info.ChainID,
		HeadBlockNum: info.HeadBlockNum,
	}, nil
}

func (s *protonService) GetAccountInfo(ctx context.Context, accountName string) (map[string]interface{}, error) {
	const op = "service.ProtonService.GetAccountInfo"

	if !proton.ValidAccountName(accountName) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAccountName)
	}

	account, err := s.chain.GetAccount(ctx, accountName)
	if err != nil {
		s.log.Error("failed to get account", slog.String("op", op), slog.String("account", accountName), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return account, nil
}

func (s *protonService) GetBalance(ctx context.Context, accountName, contract, symbol string) (*TokenBalance, error) {
	const op = "service.ProtonService.GetBalance"

	if !proton.ValidAccountName(accountName) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAccountName)
	}
	if contract == "" {
		contract = "eosio.token"
	}
	if symbol == "" {
		symbol = "XPR"
	}

	key := fmt.Sprintf("%s/%s/%s", accountName, contract, symbol)
	s.mu.Lock()
	if cached, ok := s.cache[key]; ok && s.now().Sub(cached.cachedAt) < balanceCacheTTL {
		s.mu.Unlock()
		b := cached.balance
		return &b, nil
	}
	s.mu.Unlock()

	balances, err := s.chain.GetCurrencyBalance(ctx, contract, accountName, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	balance := TokenBalance{
		Balance:  fmt.Sprintf("0.0000 %s", symbol),
		Account:  accountName,
		Contract: contract,
		Symbol:   symbol,
	}
	if len(balances) > 0 {
		balance.Balance = balances[0]
		balance.Amount = parseTokenAmount(balances[0])
	}

	s.mu.Lock()
	s.cache[key] = cachedBalance{balance: balance, cachedAt: s.now()}
	s.mu.Unlock()

	return &balance, nil
}

// parseTokenAmount извлекает число из строки вида "1.2345 XPR"
func parseTokenAmount(balance string) float64 {
	parts := strings.SplitN(balance, " ", 2)
	amount, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	return amount
}

func (s *protonService) GetAllBalances(ctx context.Context, accountName string) (*AccountBalances, error) {
	const op = "service.ProtonService.GetAllBalances"
	logger := s.log.With(slog.String("op", op), slog.String("account", accountName))

	if !proton.ValidAccountName(accountName) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAccountName)
	}

	var tokens []TokenBalance
	for contract, info := range tokenContracts {
		for _, symbol := range info.Tokens {
			balance, err := s.GetBalance(ctx, accountName, contract, symbol)
			if err != nil {
				logger.Warn("skipping token", slog.String("contract", contract), slog.String("symbol", symbol), slog.Any("error", err))
				continue
			}
			if balance.Amount > 0 {
				tokens = append(tokens, *balance)
			}
		}
	}

	s.addTokenPrices(ctx, tokens)

	total := 0.0
	for _, t := range tokens {
		total += t.ValueUSD
	}

	return &AccountBalances{
		Account:    accountName,
		Tokens:     tokens,
		TotalValue: total,
	}, nil
}

// addTokenPrices подставляет цены CoinGecko и стоимость позиций.
// Сбой прайсинга оставляет портфель без оценки, но не роняет ответ.
func (s *protonService) addTokenPrices(ctx context.Context, tokens []TokenBalance) {
	if len(tokens) == 0 {
		return
	}

	symbolToID := make(map[string]string)
	idSet := make(map[string]struct{})
	for _, t := range tokens {
		info, ok := tokenContracts[t.Contract]
		if !ok {
			continue
		}
		for i, symbol := range info.Tokens {
			if symbol == t.Symbol && i < len(info.CoinGeckoIDs) {
				symbolToID[t.Symbol] = info.CoinGeckoIDs[i]
				idSet[info.CoinGeckoIDs[i]] = struct{}{}
			}
		}
	}
	if len(idSet) == 0 {
		return
	}

	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	prices, err := s.market.SimplePrice(ctx, strings.Join(ids, ","), "usd")
	if err != nil {
		s.log.Warn("failed to price tokens", slog.Any("error", err))
		return
	}

	for i := range tokens {
		id, ok := symbolToID[tokens[i].Symbol]
		if !ok {
			continue
		}
		entry, ok := prices[id].(map[string]interface{})
		if !ok {
			continue
		}
		price, ok := entry["usd"].(float64)
		if !ok {
			continue
		}
		tokens[i].PriceUSD = price
		tokens[i].ValueUSD = tokens[i].Amount * price
	}
}
