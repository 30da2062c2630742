package tradingprovider

import (
	"context"

	"github.com/rxtech-lab/argo-signal/internal/strategy"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// Exchange is everything an engine needs from a spot exchange.
type Exchange interface {
	// GetPrice returns the last traded price for a symbol.
	GetPrice(ctx context.Context, symbol string) (float64, error)
	// GetPrices returns the last traded price for each symbol. A missing symbol is an error.
	GetPrices(ctx context.Context, symbols []string) (map[string]float64, error)
	// GetSymbolFilters returns the lot size and notional rules for a symbol.
	GetSymbolFilters(ctx context.Context, symbol string) (types.SymbolFilters, error)
	// GetBalance returns the free and locked balance of an asset. Unknown assets have a zero balance.
	GetBalance(ctx context.Context, asset string) (types.Balance, error)
	// PlaceOrder submits an order and returns what was actually executed.
	PlaceOrder(ctx context.Context, order types.OrderRequest) (types.Fill, error)
	// GetRecentPrices returns up to limit closes for symbol at the given kline interval, oldest first.
	GetRecentPrices(ctx context.Context, symbol string, interval string, limit int) ([]types.PricePoint, error)
}

type Environment string

const (
	EnvironmentBinanceTestnet Environment = "binance-testnet"
	EnvironmentBinanceLive    Environment = "binance-live"
)

type EnvironmentInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	QuoteAsset     string `json:"quoteAsset"`
	IsPaperTrading bool   `json:"isPaperTrading"`
}

var environmentRegistry = map[Environment]EnvironmentInfo{
	EnvironmentBinanceTestnet: {
		Name:           string(EnvironmentBinanceTestnet),
		DisplayName:    "Binance Testnet",
		Description:    "Binance spot testnet, trades without real funds",
		QuoteAsset:     "USDT",
		IsPaperTrading: true,
	},
	EnvironmentBinanceLive: {
		Name:           string(EnvironmentBinanceLive),
		DisplayName:    "Binance Live",
		Description:    "Binance spot mainnet with real funds",
		QuoteAsset:     "USDC",
		IsPaperTrading: false,
	},
}

// GetSupportedEnvironments lists the environment names accepted by NewExchange.
func GetSupportedEnvironments() []string {
	envs := make([]string, 0, len(environmentRegistry))
	for env := range environmentRegistry {
		envs = append(envs, string(env))
	}

	return envs
}

// GetEnvironmentInfo returns metadata for an environment.
func GetEnvironmentInfo(name string) (EnvironmentInfo, error) {
	info, exists := environmentRegistry[Environment(name)]
	if !exists {
		return EnvironmentInfo{}, errors.Newf(errors.ErrCodeConfigInvalid, "unsupported exchange environment: %s", name)
	}

	return info, nil
}

// QuoteAssetFor returns the quote asset engines trade against in an environment.
func QuoteAssetFor(env Environment) (string, error) {
	info, err := GetEnvironmentInfo(string(env))
	if err != nil {
		return "", err
	}

	return info.QuoteAsset, nil
}

// GetExchangeConfigSchema returns the JSON schema of the exchange credentials.
func GetExchangeConfigSchema(name string) (string, error) {
	switch Environment(name) {
	case EnvironmentBinanceTestnet, EnvironmentBinanceLive:
		return strategy.ToJSONSchema(BinanceProviderConfig{
			ApiKey:    "",
			SecretKey: "",
			BaseURL:   "",
		})
	default:
		return "", errors.Newf(errors.ErrCodeConfigInvalid, "unsupported exchange environment: %s", name)
	}
}

// NewExchange creates the exchange client for an environment.
func NewExchange(env Environment, config BinanceProviderConfig) (Exchange, error) {
	switch env {
	case EnvironmentBinanceTestnet:
		return NewBinanceExchange(config, true)
	case EnvironmentBinanceLive:
		if err := config.Validate(); err != nil {
			return nil, err
		}

		return NewBinanceExchange(config, false)
	default:
		return nil, errors.Newf(errors.ErrCodeConfigInvalid, "unsupported exchange environment: %s", env)
	}
}
