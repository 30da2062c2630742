package strategy

import (
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-signal/internal/sizing"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
)

// Config is the engine-facing view of a strategy configuration.
// Implementations are plain values so a snapshot can never change under a running tick.
type Config interface {
	StrategyName() types.StrategyName
	Validate() error
	IsEnabled() bool
	PollInterval() time.Duration
	Cooldown() time.Duration
	SizingPolicy() sizing.Policy
	// Market describes the traded instrument; quote is the environment's default quote asset.
	Market(quote string) Market
	// WindowKey changes whenever a field that shapes the indicator windows changes.
	WindowKey() string
	NewStrategy(quote string) (Strategy, error)
}

// Market is the traded instrument of an engine.
type Market struct {
	Pair bool
	// Base is the single traded asset, or asset A of a pair.
	Base string
	// Other is asset B of a pair.
	Other string
	Quote string
	// Symbols are fetched every tick, in a stable order.
	Symbols []string
}

// Key identifies the instrument; changing it requires a fresh ledger.
func (m Market) Key() string {
	if m.Pair {
		return fmt.Sprintf("%s/%s:%s", m.Base, m.Other, m.Quote)
	}

	return m.Base + m.Quote
}

// SymbolFor returns the exchange symbol trading asset against the market's quote.
func (m Market) SymbolFor(asset string) string {
	return asset + m.Quote
}

// Pair is a tradable asset pair for the mean-reversion strategy.
type Pair struct {
	AssetA string `json:"asset_a" yaml:"asset_a"`
	AssetB string `json:"asset_b" yaml:"asset_b"`
}

// AvailablePairs lists the pairs the mean-reversion engine may trade.
var AvailablePairs = []Pair{
	{AssetA: "HBAR", AssetB: "DOGE"},
	{AssetA: "ETH", AssetB: "BTC"},
	{AssetA: "ADA", AssetB: "XRP"},
	{AssetA: "DOGE", AssetB: "SHIB"},
	{AssetA: "SOL", AssetB: "MATIC"},
	{AssetA: "LINK", AssetB: "AVAX"},
}

func validateStruct(name string, v any) error {
	validate := validator.New()
	if err := validate.Struct(v); err != nil {
		return errors.Wrapf(errors.ErrCodeConfigInvalid, err, "invalid %s config", name)
	}

	return nil
}

func sizingPolicy(useAll bool, notional float64) sizing.Policy {
	return sizing.Policy{
		UseAllBalance: useAll,
		Notional:      decimal.NewFromFloat(notional),
		FeeRate:       sizing.DefaultFeeRate,
	}
}

// MeanReversionConfig configures the pair-rotation strategy.
type MeanReversionConfig struct {
	Enabled            bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled" jsonschema:"title=Enabled,description=Submit live orders,default=false"`
	PollIntervalSec    int     `json:"poll_interval_sec" yaml:"poll_interval_sec" mapstructure:"poll_interval_sec" jsonschema:"title=Poll Interval,description=Seconds between ticks,default=20" validate:"gte=1"`
	WindowSize         int     `json:"window_size" yaml:"window_size" mapstructure:"window_size" jsonschema:"title=Window Size,description=Number of ratio samples in the rolling window,default=100" validate:"gte=2"`
	ZEntry             float64 `json:"z_entry" yaml:"z_entry" mapstructure:"z_entry" jsonschema:"title=Z Entry,description=Z-score that triggers a rotation,default=3" validate:"gt=0"`
	ZExit              float64 `json:"z_exit" yaml:"z_exit" mapstructure:"z_exit" jsonschema:"title=Z Exit,description=Z-score band that rotates back to the origin asset,default=0.4" validate:"gte=0"`
	TradeNotional      float64 `json:"trade_notional" yaml:"trade_notional" mapstructure:"trade_notional" jsonschema:"title=Trade Notional,description=Quote amount per rotation when not using the whole balance,default=50" validate:"gte=0"`
	UseAllBalance      bool    `json:"use_all_balance" yaml:"use_all_balance" mapstructure:"use_all_balance" jsonschema:"title=Use All Balance,default=true"`
	UseRatioThresholds bool    `json:"use_ratio_thresholds" yaml:"use_ratio_thresholds" mapstructure:"use_ratio_thresholds" jsonschema:"title=Use Ratio Thresholds,description=Compare the raw ratio to fixed thresholds instead of z-scores,default=false"`
	SellRatioThreshold float64 `json:"sell_ratio_threshold" yaml:"sell_ratio_threshold" mapstructure:"sell_ratio_threshold" jsonschema:"title=Sell Ratio Threshold,description=Rotate A to B at or above this ratio (0 disables)" validate:"gte=0"`
	BuyRatioThreshold  float64 `json:"buy_ratio_threshold" yaml:"buy_ratio_threshold" mapstructure:"buy_ratio_threshold" jsonschema:"title=Buy Ratio Threshold,description=Rotate B to A at or below this ratio (0 disables)" validate:"gte=0"`
	OutlierSigma       float64 `json:"outlier_sigma" yaml:"outlier_sigma" mapstructure:"outlier_sigma" jsonschema:"title=Outlier Sigma,default=5" validate:"gt=0"`
	MaxRatioJump       float64 `json:"max_ratio_jump" yaml:"max_ratio_jump" mapstructure:"max_ratio_jump" jsonschema:"title=Max Ratio Jump,description=Relative tick-to-tick move that marks an outlier,default=0.08" validate:"gt=0"`
	AssetA             string  `json:"asset_a" yaml:"asset_a" mapstructure:"asset_a" jsonschema:"title=Asset A,default=HBAR" validate:"required"`
	AssetB             string  `json:"asset_b" yaml:"asset_b" mapstructure:"asset_b" jsonschema:"title=Asset B,default=DOGE" validate:"required,nefield=AssetA"`
}

// DefaultMeanReversionConfig returns the production defaults.
func DefaultMeanReversionConfig() MeanReversionConfig {
	return MeanReversionConfig{
		Enabled:            false,
		PollIntervalSec:    20,
		WindowSize:         100,
		ZEntry:             3,
		ZExit:              0.4,
		TradeNotional:      50,
		UseAllBalance:      true,
		UseRatioThresholds: false,
		SellRatioThreshold: 0,
		BuyRatioThreshold:  0,
		OutlierSigma:       5,
		MaxRatioJump:       0.08,
		AssetA:             "HBAR",
		AssetB:             "DOGE",
	}
}

func (c MeanReversionConfig) StrategyName() types.StrategyName { return types.StrategyMeanReversion }

func (c MeanReversionConfig) IsEnabled() bool { return c.Enabled }

func (c MeanReversionConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// Cooldown is zero; the rearm latch prevents immediate re-entry instead.
func (c MeanReversionConfig) Cooldown() time.Duration { return 0 }

func (c MeanReversionConfig) SizingPolicy() sizing.Policy {
	return sizingPolicy(c.UseAllBalance, c.TradeNotional)
}

func (c MeanReversionConfig) Market(quote string) Market {
	return Market{
		Pair:    true,
		Base:    c.AssetA,
		Other:   c.AssetB,
		Quote:   quote,
		Symbols: []string{c.AssetA + quote, c.AssetB + quote},
	}
}

func (c MeanReversionConfig) WindowKey() string {
	return fmt.Sprintf("%s/%s:%d", c.AssetA, c.AssetB, c.WindowSize)
}

func (c MeanReversionConfig) NewStrategy(quote string) (Strategy, error) {
	return NewMeanReversion(c, quote)
}

// Validate checks field tags and the cross-field rules.
func (c MeanReversionConfig) Validate() error {
	if err := validateStruct("mean reversion", c); err != nil {
		return err
	}

	if !slices.Contains(AvailablePairs, Pair{AssetA: c.AssetA, AssetB: c.AssetB}) {
		return errors.Newf(errors.ErrCodeConfigInvalid, "pair %s/%s is not available", c.AssetA, c.AssetB)
	}

	if !c.UseAllBalance && c.TradeNotional <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "trade_notional must be positive when use_all_balance is false")
	}

	if c.UseRatioThresholds {
		if c.SellRatioThreshold <= 0 && c.BuyRatioThreshold <= 0 {
			return errors.New(errors.ErrCodeConfigInvalid, "ratio threshold mode needs at least one threshold")
		}

		if c.SellRatioThreshold > 0 && c.BuyRatioThreshold > 0 && c.BuyRatioThreshold >= c.SellRatioThreshold {
			return errors.Newf(errors.ErrCodeConfigInvalid,
				"buy_ratio_threshold %.6f must be below sell_ratio_threshold %.6f", c.BuyRatioThreshold, c.SellRatioThreshold)
		}

		return nil
	}

	if c.ZExit >= c.ZEntry {
		return errors.Newf(errors.ErrCodeConfigInvalid, "z_exit %.2f must be below z_entry %.2f", c.ZExit, c.ZEntry)
	}

	return nil
}

// BollingerConfig configures the single-asset band strategy.
type BollingerConfig struct {
	Enabled         bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled" jsonschema:"title=Enabled,description=Submit live orders,default=false"`
	Symbol          string  `json:"symbol" yaml:"symbol" mapstructure:"symbol" jsonschema:"title=Symbol,default=BNBUSDC" validate:"required"`
	PollIntervalSec int     `json:"poll_interval_sec" yaml:"poll_interval_sec" mapstructure:"poll_interval_sec" jsonschema:"title=Poll Interval,description=Seconds between ticks,default=20" validate:"gte=1"`
	WindowSize      int     `json:"window_size" yaml:"window_size" mapstructure:"window_size" jsonschema:"title=Window Size,default=70" validate:"gte=2"`
	NumStd          float64 `json:"num_std" yaml:"num_std" mapstructure:"num_std" jsonschema:"title=Band Width,description=Standard deviations between the mean and each band,default=3" validate:"gt=0"`
	TradeNotional   float64 `json:"trade_notional" yaml:"trade_notional" mapstructure:"trade_notional" jsonschema:"title=Trade Notional,default=50" validate:"gte=0"`
	UseAllBalance   bool    `json:"use_all_balance" yaml:"use_all_balance" mapstructure:"use_all_balance" jsonschema:"title=Use All Balance,default=true"`
	StopLossPct     float64 `json:"stop_loss_pct" yaml:"stop_loss_pct" mapstructure:"stop_loss_pct" jsonschema:"title=Stop Loss,description=Fraction below entry that exits (0 disables),default=0.15" validate:"gte=0,lt=1"`
	TakeProfitPct   float64 `json:"take_profit_pct" yaml:"take_profit_pct" mapstructure:"take_profit_pct" jsonschema:"title=Take Profit,description=Fraction above entry that exits (0 disables),default=0.15" validate:"gte=0"`
	CooldownSec     int     `json:"cooldown_sec" yaml:"cooldown_sec" mapstructure:"cooldown_sec" jsonschema:"title=Cooldown,description=Seconds after an exit before a new entry,default=80" validate:"gte=0"`
	ExitTrigger     string  `json:"exit_trigger" yaml:"exit_trigger" mapstructure:"exit_trigger" jsonschema:"title=Exit Trigger,description=Band a long position exits above,enum=mean,enum=upper,default=mean" validate:"oneof=mean upper"`
}

// Bollinger exit triggers.
const (
	ExitTriggerMean  = "mean"
	ExitTriggerUpper = "upper"
)

// DefaultBollingerConfig returns the production defaults.
func DefaultBollingerConfig() BollingerConfig {
	return BollingerConfig{
		Enabled:         false,
		Symbol:          "BNBUSDC",
		PollIntervalSec: 20,
		WindowSize:      70,
		NumStd:          3,
		TradeNotional:   50,
		UseAllBalance:   true,
		StopLossPct:     0.15,
		TakeProfitPct:   0.15,
		CooldownSec:     80,
		ExitTrigger:     ExitTriggerMean,
	}
}

func (c BollingerConfig) StrategyName() types.StrategyName { return types.StrategyBollinger }

func (c BollingerConfig) IsEnabled() bool { return c.Enabled }

func (c BollingerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

func (c BollingerConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSec) * time.Second
}

func (c BollingerConfig) SizingPolicy() sizing.Policy {
	return sizingPolicy(c.UseAllBalance, c.TradeNotional)
}

func (c BollingerConfig) Market(string) Market {
	return singleMarket(c.Symbol)
}

func (c BollingerConfig) WindowKey() string {
	return fmt.Sprintf("%s:%d", c.Symbol, c.WindowSize)
}

func (c BollingerConfig) NewStrategy(string) (Strategy, error) {
	return NewBollinger(c)
}

func (c BollingerConfig) Validate() error {
	if err := validateStruct("bollinger", c); err != nil {
		return err
	}

	if _, _, ok := types.SplitSymbol(c.Symbol); !ok {
		return errors.Newf(errors.ErrCodeConfigInvalid, "unknown quote asset in symbol %s", c.Symbol)
	}

	if !c.UseAllBalance && c.TradeNotional <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "trade_notional must be positive when use_all_balance is false")
	}

	return nil
}

// TrendConfig configures the EMA crossover strategy.
type TrendConfig struct {
	Enabled         bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled" jsonschema:"title=Enabled,description=Submit live orders,default=false"`
	Symbol          string  `json:"symbol" yaml:"symbol" mapstructure:"symbol" jsonschema:"title=Symbol,default=BTCUSDT" validate:"required"`
	PollIntervalSec int     `json:"poll_interval_sec" yaml:"poll_interval_sec" mapstructure:"poll_interval_sec" jsonschema:"title=Poll Interval,description=Seconds between ticks,default=20" validate:"gte=1"`
	FastPeriod      int     `json:"fast_period" yaml:"fast_period" mapstructure:"fast_period" jsonschema:"title=Fast EMA,default=12" validate:"gte=1"`
	SlowPeriod      int     `json:"slow_period" yaml:"slow_period" mapstructure:"slow_period" jsonschema:"title=Slow EMA,default=26" validate:"gtfield=FastPeriod"`
	ATRPeriod       int     `json:"atr_period" yaml:"atr_period" mapstructure:"atr_period" jsonschema:"title=ATR Period,default=14" validate:"gte=1"`
	ATRStopMult     float64 `json:"atr_stop_mult" yaml:"atr_stop_mult" mapstructure:"atr_stop_mult" jsonschema:"title=ATR Stop Multiplier,description=Trailing stop distance in ATRs below the peak,default=2" validate:"gt=0"`
	TradeNotional   float64 `json:"trade_notional" yaml:"trade_notional" mapstructure:"trade_notional" jsonschema:"title=Trade Notional,default=100" validate:"gte=0"`
	UseAllBalance   bool    `json:"use_all_balance" yaml:"use_all_balance" mapstructure:"use_all_balance" jsonschema:"title=Use All Balance,default=true"`
	CooldownSec     int     `json:"cooldown_sec" yaml:"cooldown_sec" mapstructure:"cooldown_sec" jsonschema:"title=Cooldown,default=60" validate:"gte=0"`
}

// DefaultTrendConfig returns the production defaults.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		Enabled:         false,
		Symbol:          "BTCUSDT",
		PollIntervalSec: 20,
		FastPeriod:      12,
		SlowPeriod:      26,
		ATRPeriod:       14,
		ATRStopMult:     2,
		TradeNotional:   100,
		UseAllBalance:   true,
		CooldownSec:     60,
	}
}

func (c TrendConfig) StrategyName() types.StrategyName { return types.StrategyTrendFollowing }

func (c TrendConfig) IsEnabled() bool { return c.Enabled }

func (c TrendConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

func (c TrendConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSec) * time.Second
}

func (c TrendConfig) SizingPolicy() sizing.Policy {
	return sizingPolicy(c.UseAllBalance, c.TradeNotional)
}

func (c TrendConfig) Market(string) Market {
	return singleMarket(c.Symbol)
}

func (c TrendConfig) WindowKey() string {
	return fmt.Sprintf("%s:%d:%d:%d", c.Symbol, c.FastPeriod, c.SlowPeriod, c.ATRPeriod)
}

func (c TrendConfig) NewStrategy(string) (Strategy, error) {
	return NewTrendFollowing(c)
}

func (c TrendConfig) Validate() error {
	if err := validateStruct("trend following", c); err != nil {
		return err
	}

	if _, _, ok := types.SplitSymbol(c.Symbol); !ok {
		return errors.Newf(errors.ErrCodeConfigInvalid, "unknown quote asset in symbol %s", c.Symbol)
	}

	if !c.UseAllBalance && c.TradeNotional <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "trade_notional must be positive when use_all_balance is false")
	}

	return nil
}

func singleMarket(symbol string) Market {
	base, quote, _ := types.SplitSymbol(symbol)

	return Market{
		Pair:    false,
		Base:    base,
		Other:   "",
		Quote:   quote,
		Symbols: []string{symbol},
	}
}

var (
	_ Config = MeanReversionConfig{}
	_ Config = BollingerConfig{}
	_ Config = TrendConfig{}
)
