package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SymbolFilters holds the exchange quantisation rules for a symbol.
type SymbolFilters struct {
	Symbol      string          `yaml:"symbol" json:"symbol"`
	BaseAsset   string          `yaml:"base_asset" json:"base_asset"`
	QuoteAsset  string          `yaml:"quote_asset" json:"quote_asset"`
	StepSize    decimal.Decimal `yaml:"step_size" json:"step_size"`
	MinQty      decimal.Decimal `yaml:"min_qty" json:"min_qty"`
	MinNotional decimal.Decimal `yaml:"min_notional" json:"min_notional"`
}

// Balance is an account balance for one asset.
type Balance struct {
	Asset  string          `yaml:"asset" json:"asset"`
	Free   decimal.Decimal `yaml:"free" json:"free"`
	Locked decimal.Decimal `yaml:"locked" json:"locked"`
}

// Total returns free plus locked.
func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Locked)
}

// PricePoint is a historical close used to warm up windows.
type PricePoint struct {
	Symbol string    `yaml:"symbol" json:"symbol"`
	Time   time.Time `yaml:"time" json:"time"`
	Close  float64   `yaml:"close" json:"close"`
}

// KnownQuoteAssets are the quote assets SplitSymbol recognises, longest first.
var KnownQuoteAssets = []string{"FDUSD", "USDT", "USDC", "BUSD", "TUSD", "BTC", "ETH", "BNB", "EUR"}

// SplitSymbol splits an exchange symbol like BNBUSDC into base and quote assets.
func SplitSymbol(symbol string) (base, quote string, ok bool) {
	for _, q := range KnownQuoteAssets {
		if len(symbol) > len(q) && strings.HasSuffix(symbol, q) {
			return strings.TrimSuffix(symbol, q), q, true
		}
	}

	return "", "", false
}
