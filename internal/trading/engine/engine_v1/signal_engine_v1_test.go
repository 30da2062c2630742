package engine_v1

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-signal/internal/history"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/strategy"
	"github.com/rxtech-lab/argo-signal/internal/trading/engine"
	tradingprovider "github.com/rxtech-lab/argo-signal/internal/trading/provider"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/mocks"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type SignalEngineV1TestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	exchange *mocks.MockExchange
	store    *history.MemoryStore
	errs     []error
	filled   []types.TradeRecord
}

func TestSignalEngineV1Suite(t *testing.T) {
	suite.Run(t, new(SignalEngineV1TestSuite))
}

func (s *SignalEngineV1TestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.exchange = mocks.NewMockExchange(s.ctrl)
	s.store = history.NewMemoryStore(100)
	s.errs = nil
	s.filled = nil
}

func (s *SignalEngineV1TestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func bollingerConfig(enabled bool) strategy.BollingerConfig {
	cfg := strategy.DefaultBollingerConfig()
	cfg.Enabled = enabled
	cfg.WindowSize = 20
	cfg.NumStd = 1
	cfg.CooldownSec = 0

	return cfg
}

func pairConfig(enabled bool) strategy.MeanReversionConfig {
	cfg := strategy.DefaultMeanReversionConfig()
	cfg.Enabled = enabled
	cfg.WindowSize = 2
	cfg.UseRatioThresholds = true
	cfg.SellRatioThreshold = 0.5
	cfg.BuyRatioThreshold = 0.2

	return cfg
}

func (s *SignalEngineV1TestSuite) newEngine(cfg strategy.Config, env tradingprovider.Environment) *SignalEngineV1 {
	onError := engine.OnErrorCallback(func(_ types.StrategyName, err error) {
		s.errs = append(s.errs, err)
	})
	onFilled := engine.OnOrderFilledCallback(func(trade types.TradeRecord) error {
		s.filled = append(s.filled, trade)

		return nil
	})

	e, err := NewSignalEngineV1(cfg, engine.Settings{Environment: env}, Dependencies{
		Exchange: s.exchange,
		Store:    s.store,
		Logger:   logger.NewNopLogger(),
		Callbacks: engine.Callbacks{
			OnError:       &onError,
			OnOrderFilled: &onFilled,
		},
	})
	s.Require().NoError(err)

	e.now = func() time.Time { return testNow }
	e.needsSync = false
	e.warmedUp = true

	return e
}

// primeBollinger fills 19 of 20 samples at 100 so a tick at 90 falls below the lower band.
func primeBollinger(e *SignalEngineV1) {
	flat := make([]float64, 19)
	for i := range flat {
		flat[i] = 100
	}

	e.strat.Warmup(map[string][]float64{"BNBUSDC": flat})
}

func bnbFilters() types.SymbolFilters {
	return types.SymbolFilters{
		Symbol:      "BNBUSDC",
		BaseAsset:   "BNB",
		QuoteAsset:  "USDC",
		StepSize:    d("0.001"),
		MinQty:      d("0.001"),
		MinNotional: d("5"),
	}
}

func (s *SignalEngineV1TestSuite) flush(e *SignalEngineV1) {
	e.writer.Close()
}

// ==================== Construction and config ====================

func (s *SignalEngineV1TestSuite) TestNewEngineRejectsInvalidConfig() {
	cfg := bollingerConfig(false)
	cfg.WindowSize = 1

	_, err := NewSignalEngineV1(cfg, engine.Settings{Environment: tradingprovider.EnvironmentBinanceLive}, Dependencies{
		Exchange: s.exchange,
		Logger:   logger.NewNopLogger(),
	})
	s.True(errors.HasCode(err, errors.ErrCodeConfigInvalid))
}

func (s *SignalEngineV1TestSuite) TestNewEngineRejectsUnknownEnvironment() {
	_, err := NewSignalEngineV1(bollingerConfig(false), engine.Settings{Environment: "paper"}, Dependencies{
		Exchange: s.exchange,
		Logger:   logger.NewNopLogger(),
	})
	s.True(errors.HasCode(err, errors.ErrCodeConfigInvalid))
}

func (s *SignalEngineV1TestSuite) TestSetConfigKeepsOldConfigOnError() {
	e := s.newEngine(bollingerConfig(false), tradingprovider.EnvironmentBinanceLive)
	defer s.flush(e)

	bad := bollingerConfig(true)
	bad.NumStd = 0

	err := e.SetConfig(bad)
	s.True(errors.HasCode(err, errors.ErrCodeConfigInvalid))
	s.False(e.Config().IsEnabled())

	err = e.SetConfig(pairConfig(true))
	s.True(errors.HasCode(err, errors.ErrCodeConfigInvalid))
}

func (s *SignalEngineV1TestSuite) TestSetConfigRebuildsStrategyOnWindowChange() {
	e := s.newEngine(bollingerConfig(false), tradingprovider.EnvironmentBinanceLive)
	defer s.flush(e)

	before := e.strat

	sameWindow := bollingerConfig(true)
	s.Require().NoError(e.SetConfig(sameWindow))
	s.Same(before, e.strat)
	s.True(e.Config().IsEnabled())

	wider := bollingerConfig(true)
	wider.WindowSize = 40
	s.Require().NoError(e.SetConfig(wider))
	s.NotSame(before, e.strat)
	s.Equal(40, e.strat.WarmupSize())
	s.False(e.warmedUp)
}

func (s *SignalEngineV1TestSuite) TestSetConfigRefusesMarketChangeWhileOpen() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)
	defer s.flush(e)

	e.ledger.Restore(types.Position{
		State:      types.PositionStateLong,
		HeldAsset:  "BNB",
		HeldQty:    d("1"),
		EntryPrice: d("600"),
	})

	other := bollingerConfig(true)
	other.Symbol = "ETHUSDC"

	err := e.SetConfig(other)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidTransition))
	s.Equal("BNBUSDC", e.Config().(strategy.BollingerConfig).Symbol)

	e.ledger.Reset()
	s.Require().NoError(e.SetConfig(other))
	s.Equal("ETHUSDC", e.marketRef().Key())
	s.True(e.needsSync)
}

// ==================== Tick ====================

func (s *SignalEngineV1TestSuite) TestTickEntersLongBelowLowerBand() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)
	primeBollinger(e)

	s.exchange.EXPECT().GetPrices(gomock.Any(), []string{"BNBUSDC"}).Return(map[string]float64{"BNBUSDC": 90}, nil)
	s.exchange.EXPECT().GetBalance(gomock.Any(), "USDC").Return(types.Balance{Asset: "USDC", Free: d("1000")}, nil)
	s.exchange.EXPECT().GetSymbolFilters(gomock.Any(), "BNBUSDC").Return(bnbFilters(), nil)
	s.exchange.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order types.OrderRequest) (types.Fill, error) {
			s.Equal(types.PurchaseTypeBuy, order.Side)
			s.Equal(types.OrderTypeMarket, order.OrderType)
			s.True(order.Quantity.Equal(d("11.1")), order.Quantity.String())
			s.Equal(types.ReasonLowerBand, order.Reason)
			s.False(order.Manual)

			return types.Fill{
				OrderID:     "1",
				Symbol:      order.Symbol,
				Side:        order.Side,
				Status:      types.OrderStatusFilled,
				ExecutedQty: order.Quantity,
				QuoteQty:    d("999"),
				Price:       d("90"),
				Fee:         d("0.999"),
				FeeAsset:    "USDC",
				ExecutedAt:  testNow,
			}, nil
		})

	e.tick(context.Background())
	s.flush(e)

	pos := e.position()
	s.Equal(types.PositionStateLong, pos.State)
	s.True(pos.HeldQty.Equal(d("11.1")))
	s.True(pos.EntryPrice.Equal(d("90")))
	s.Empty(s.errs)

	s.Require().Len(s.filled, 1)
	s.Equal("1", s.filled[0].OrderID)

	snapshots, err := s.store.Snapshots(context.Background(), types.StrategyBollinger, 0)
	s.Require().NoError(err)
	s.Require().Len(snapshots, 1)
	s.Equal(types.ActionEnterLong, snapshots[0].Action)
	s.True(snapshots[0].Executed)
	s.Equal(types.PositionStateLong, snapshots[0].State)

	trades, err := s.store.Trades(context.Background(), types.StrategyBollinger, 0)
	s.Require().NoError(err)
	s.Len(trades, 1)

	s.Require().NotNil(e.lastDecision)
	s.True(e.lastDecision.Quantity.IsSome())
}

func (s *SignalEngineV1TestSuite) TestTickWithTradingDisabledNeverPlacesOrders() {
	e := s.newEngine(bollingerConfig(false), tradingprovider.EnvironmentBinanceLive)
	primeBollinger(e)

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).Return(map[string]float64{"BNBUSDC": 90}, nil)

	e.tick(context.Background())
	s.flush(e)

	s.Equal(types.PositionStateFlat, e.position().State)

	snapshots, err := s.store.Snapshots(context.Background(), types.StrategyBollinger, 0)
	s.Require().NoError(err)
	s.Require().Len(snapshots, 1)
	s.Equal(types.ActionEnterLong, snapshots[0].Action)
	s.False(snapshots[0].Executed)
	s.Contains(snapshots[0].Rejection, "trading is disabled")
}

func (s *SignalEngineV1TestSuite) TestTickRecordsRejectionAndContinues() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)
	primeBollinger(e)

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).Return(map[string]float64{"BNBUSDC": 90}, nil)
	s.exchange.EXPECT().GetBalance(gomock.Any(), "USDC").Return(types.Balance{Asset: "USDC", Free: d("1000")}, nil)
	s.exchange.EXPECT().GetSymbolFilters(gomock.Any(), "BNBUSDC").Return(bnbFilters(), nil)
	s.exchange.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).
		Return(types.Fill{}, errors.New(errors.ErrCodeOrderRejectedByExchange, "insufficient margin (code -2010)"))

	e.tick(context.Background())
	s.flush(e)

	s.Equal(types.PositionStateFlat, e.position().State)
	s.Empty(s.errs)

	snapshots, err := s.store.Snapshots(context.Background(), types.StrategyBollinger, 0)
	s.Require().NoError(err)
	s.Require().Len(snapshots, 1)
	s.False(snapshots[0].Executed)
	s.Contains(snapshots[0].Rejection, "code -2010")
}

func (s *SignalEngineV1TestSuite) TestTickTooSmallOrderIsRejectedLocally() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)
	primeBollinger(e)

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).Return(map[string]float64{"BNBUSDC": 90}, nil)
	s.exchange.EXPECT().GetBalance(gomock.Any(), "USDC").Return(types.Balance{Asset: "USDC", Free: d("3")}, nil)
	s.exchange.EXPECT().GetSymbolFilters(gomock.Any(), "BNBUSDC").Return(bnbFilters(), nil)

	e.tick(context.Background())
	s.flush(e)

	snapshots, err := s.store.Snapshots(context.Background(), types.StrategyBollinger, 0)
	s.Require().NoError(err)
	s.Require().Len(snapshots, 1)
	s.Contains(snapshots[0].Rejection, "minimum notional")
}

func (s *SignalEngineV1TestSuite) TestTickSkipsWhenPricesUnavailable() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).
		Return(nil, errors.New(errors.ErrCodeExchangeUnavailable, "connection reset"))

	e.tick(context.Background())
	s.flush(e)

	s.Require().Len(s.errs, 1)
	s.True(errors.HasCode(s.errs[0], errors.ErrCodeMarketDataUnavailable))
	s.NotEmpty(e.lastError)

	snapshots, err := s.store.Snapshots(context.Background(), types.StrategyBollinger, 0)
	s.Require().NoError(err)
	s.Empty(snapshots)
}

func (s *SignalEngineV1TestSuite) TestTickRotatesPairWithBuySizedFromSellProceeds() {
	e := s.newEngine(pairConfig(true), tradingprovider.EnvironmentBinanceTestnet)
	e.ledger.Restore(types.Position{State: types.PositionStateHolding, HeldAsset: "HBAR", HeldQty: d("1000")})
	e.strat.Warmup(map[string][]float64{"HBARUSDT": {0.3}, "DOGEUSDT": {0.5}})

	prices := map[string]float64{"HBARUSDT": 0.3, "DOGEUSDT": 0.5}
	s.exchange.EXPECT().GetPrices(gomock.Any(), []string{"HBARUSDT", "DOGEUSDT"}).Return(prices, nil)
	s.exchange.EXPECT().GetBalance(gomock.Any(), "HBAR").Return(types.Balance{Asset: "HBAR", Free: d("1000")}, nil)
	s.exchange.EXPECT().GetSymbolFilters(gomock.Any(), "HBARUSDT").Return(types.SymbolFilters{
		Symbol: "HBARUSDT", StepSize: d("1"), MinQty: d("1"), MinNotional: d("5"),
	}, nil)
	s.exchange.EXPECT().GetSymbolFilters(gomock.Any(), "DOGEUSDT").Return(types.SymbolFilters{
		Symbol: "DOGEUSDT", StepSize: d("1"), MinQty: d("1"), MinNotional: d("5"),
	}, nil)

	gomock.InOrder(
		s.exchange.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, order types.OrderRequest) (types.Fill, error) {
				s.Equal("HBARUSDT", order.Symbol)
				s.Equal(types.PurchaseTypeSell, order.Side)
				s.True(order.Quantity.Equal(d("1000")))

				return types.Fill{
					OrderID: "sell", Symbol: order.Symbol, Side: order.Side, Status: types.OrderStatusFilled,
					ExecutedQty: d("1000"), QuoteQty: d("300"), Price: d("0.3"), Fee: d("0.3"), FeeAsset: "USDT",
					ExecutedAt: testNow,
				}, nil
			}),
		s.exchange.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, order types.OrderRequest) (types.Fill, error) {
				s.Equal("DOGEUSDT", order.Symbol)
				s.Equal(types.PurchaseTypeBuy, order.Side)
				// (300 - 0.3) * 0.999 / 0.5 = 598.80..., stepped to 598
				s.True(order.Quantity.Equal(d("598")), order.Quantity.String())

				return types.Fill{
					OrderID: "buy", Symbol: order.Symbol, Side: order.Side, Status: types.OrderStatusFilled,
					ExecutedQty: d("598"), QuoteQty: d("299"), Price: d("0.5"), Fee: d("0.299"), FeeAsset: "USDT",
					ExecutedAt: testNow,
				}, nil
			}),
	)

	e.tick(context.Background())
	s.flush(e)

	pos := e.position()
	s.Equal("DOGE", pos.HeldAsset)
	s.True(pos.HeldQty.Equal(d("598")))
	s.Equal("HBAR", pos.OriginAsset)
	s.True(pos.OriginQty.Equal(d("1000")))
	s.False(e.needsSync)
	s.Len(s.filled, 2)
}

func (s *SignalEngineV1TestSuite) TestRotationCompletesWhenStoppedBetweenLegs() {
	e := s.newEngine(pairConfig(true), tradingprovider.EnvironmentBinanceTestnet)
	e.ledger.Restore(types.Position{State: types.PositionStateHolding, HeldAsset: "HBAR", HeldQty: d("1000")})
	e.strat.Warmup(map[string][]float64{"HBARUSDT": {0.3}, "DOGEUSDT": {0.5}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Calls fail once the context they are given is cancelled, like a real HTTP client.
	filters := func(callCtx context.Context, symbol string) (types.SymbolFilters, error) {
		if callCtx.Err() != nil {
			return types.SymbolFilters{}, callCtx.Err()
		}

		return types.SymbolFilters{Symbol: symbol, StepSize: d("1"), MinQty: d("1"), MinNotional: d("5")}, nil
	}

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).
		Return(map[string]float64{"HBARUSDT": 0.3, "DOGEUSDT": 0.5}, nil)
	s.exchange.EXPECT().GetBalance(gomock.Any(), "HBAR").Return(types.Balance{Asset: "HBAR", Free: d("1000")}, nil)
	s.exchange.EXPECT().GetSymbolFilters(gomock.Any(), gomock.Any()).DoAndReturn(filters).Times(2)

	gomock.InOrder(
		s.exchange.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, order types.OrderRequest) (types.Fill, error) {
				// Stop arrives while the sell leg is on the wire.
				cancel()

				return types.Fill{
					OrderID: "sell", Symbol: order.Symbol, Side: order.Side, Status: types.OrderStatusFilled,
					ExecutedQty: d("1000"), QuoteQty: d("300"), Price: d("0.3"), Fee: d("0.3"), FeeAsset: "USDT",
					ExecutedAt: testNow,
				}, nil
			}),
		s.exchange.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(
			func(callCtx context.Context, order types.OrderRequest) (types.Fill, error) {
				s.NoError(callCtx.Err())

				return types.Fill{
					OrderID: "buy", Symbol: order.Symbol, Side: order.Side, Status: types.OrderStatusFilled,
					ExecutedQty: d("598"), QuoteQty: d("299"), Price: d("0.5"), Fee: d("0.299"), FeeAsset: "USDT",
					ExecutedAt: testNow,
				}, nil
			}),
	)

	e.tick(ctx)
	s.flush(e)

	pos := e.position()
	s.Equal("DOGE", pos.HeldAsset)
	s.True(pos.HeldQty.Equal(d("598")))
	s.False(e.needsSync)
	s.Empty(s.errs)
	s.Len(s.filled, 2)
}

func (s *SignalEngineV1TestSuite) TestFailedBuyLegFlagsSync() {
	e := s.newEngine(pairConfig(true), tradingprovider.EnvironmentBinanceTestnet)
	e.ledger.Restore(types.Position{State: types.PositionStateHolding, HeldAsset: "HBAR", HeldQty: d("1000")})
	e.strat.Warmup(map[string][]float64{"HBARUSDT": {0.3}, "DOGEUSDT": {0.5}})

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).
		Return(map[string]float64{"HBARUSDT": 0.3, "DOGEUSDT": 0.5}, nil)
	s.exchange.EXPECT().GetBalance(gomock.Any(), "HBAR").Return(types.Balance{Asset: "HBAR", Free: d("1000")}, nil)
	s.exchange.EXPECT().GetSymbolFilters(gomock.Any(), gomock.Any()).Return(types.SymbolFilters{
		StepSize: d("1"), MinQty: d("1"), MinNotional: d("5"),
	}, nil).Times(2)

	gomock.InOrder(
		s.exchange.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.Fill{
			OrderID: "sell", Symbol: "HBARUSDT", Side: types.PurchaseTypeSell, Status: types.OrderStatusFilled,
			ExecutedQty: d("1000"), QuoteQty: d("300"), Price: d("0.3"), Fee: d("0.3"), FeeAsset: "USDT",
		}, nil),
		s.exchange.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).
			Return(types.Fill{}, errors.New(errors.ErrCodeExchangeUnavailable, "timeout")),
	)

	e.tick(context.Background())
	s.flush(e)

	s.True(e.needsSync)
	s.Equal("HBAR", e.position().HeldAsset)
	s.Require().Len(s.errs, 1)
	s.True(errors.HasCode(s.errs[0], errors.ErrCodePartialRotation))
	s.Len(s.filled, 1)
}

func (s *SignalEngineV1TestSuite) TestTickRunsPendingSync() {
	e := s.newEngine(bollingerConfig(false), tradingprovider.EnvironmentBinanceLive)
	e.needsSync = true

	prices := map[string]float64{"BNBUSDC": 600}
	s.exchange.EXPECT().GetBalance(gomock.Any(), "BNB").Return(types.Balance{Asset: "BNB", Free: d("0.5")}, nil)
	s.exchange.EXPECT().GetBalance(gomock.Any(), "USDC").Return(types.Balance{Asset: "USDC", Free: d("10")}, nil)
	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).Return(prices, nil).Times(2)
	s.exchange.EXPECT().GetSymbolFilters(gomock.Any(), "BNBUSDC").Return(bnbFilters(), nil)

	e.tick(context.Background())
	s.flush(e)

	s.False(e.needsSync)
	pos := e.position()
	s.Equal(types.PositionStateLong, pos.State)
	s.True(pos.HeldQty.Equal(d("0.5")))
}

// ==================== Operations ====================

func (s *SignalEngineV1TestSuite) TestPreviewHasNoSideEffects() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)
	defer s.flush(e)

	primeBollinger(e)

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).Return(map[string]float64{"BNBUSDC": 90}, nil).Times(2)

	first, err := e.Preview(context.Background())
	s.Require().NoError(err)
	s.Equal(types.ActionEnterLong, first.Action)

	second, err := e.Preview(context.Background())
	s.Require().NoError(err)
	s.Equal(first.Statistics, second.Statistics)
	s.Equal(types.PositionStateFlat, e.position().State)
	s.Nil(e.lastDecision)
}

func (s *SignalEngineV1TestSuite) TestManualTradeRefusedWhenDisabled() {
	e := s.newEngine(bollingerConfig(false), tradingprovider.EnvironmentBinanceLive)
	defer s.flush(e)

	_, err := e.ManualTrade(context.Background(), engine.ManualTradeRequest{
		Action:   types.ActionEnterLong,
		ToAsset:  "",
		Quantity: optional.None[decimal.Decimal](),
	})
	s.True(errors.HasCode(err, errors.ErrCodeTradingDisabled))
}

func (s *SignalEngineV1TestSuite) TestManualTradeRejectsBadAction() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)
	defer s.flush(e)

	_, err := e.ManualTrade(context.Background(), engine.ManualTradeRequest{
		Action:   types.ActionHold,
		ToAsset:  "",
		Quantity: optional.None[decimal.Decimal](),
	})
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (s *SignalEngineV1TestSuite) TestManualExitRealizesPnL() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)
	e.ledger.Restore(types.Position{
		State:      types.PositionStateLong,
		HeldAsset:  "BNB",
		HeldQty:    d("1"),
		EntryPrice: d("500"),
	})

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).Return(map[string]float64{"BNBUSDC": 600}, nil)
	s.exchange.EXPECT().GetBalance(gomock.Any(), "BNB").Return(types.Balance{Asset: "BNB", Free: d("1")}, nil)
	s.exchange.EXPECT().GetSymbolFilters(gomock.Any(), "BNBUSDC").Return(bnbFilters(), nil)
	s.exchange.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order types.OrderRequest) (types.Fill, error) {
			s.True(order.Manual)
			s.Equal(types.ReasonManual, order.Reason)

			return types.Fill{
				OrderID: "exit", Symbol: order.Symbol, Side: order.Side, Status: types.OrderStatusFilled,
				ExecutedQty: d("1"), QuoteQty: d("600"), Price: d("600"), Fee: d("0"), FeeAsset: "USDC",
				ExecutedAt: testNow,
			}, nil
		})

	// Binance fee model falls back to 0.1% of the 600 notional when no fee is reported.
	decision, err := e.ManualTrade(context.Background(), engine.ManualTradeRequest{
		Action:   types.ActionExit,
		ToAsset:  "",
		Quantity: optional.None[decimal.Decimal](),
	})
	s.Require().NoError(err)
	s.flush(e)

	s.Equal(types.ReasonManual, decision.Reason)
	s.True(decision.Quantity.IsSome())

	pos := e.position()
	s.Equal(types.PositionStateFlat, pos.State)
	s.True(pos.RealizedPnL.Equal(d("99.4")), pos.RealizedPnL.String())
	s.Equal(1, e.Stats().ManualTrade)
}

func (s *SignalEngineV1TestSuite) TestExitWritesOffPositionBelowMinimums() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)
	e.ledger.Restore(types.Position{
		State:      types.PositionStateLong,
		HeldAsset:  "BNB",
		HeldQty:    d("0.005"),
		EntryPrice: d("600"),
	})

	// 0.005 BNB at 500 is 2.5 USDC, under the 5 USDC minimum, so no order can be placed.
	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).Return(map[string]float64{"BNBUSDC": 500}, nil)
	s.exchange.EXPECT().GetBalance(gomock.Any(), "BNB").Return(types.Balance{Asset: "BNB", Free: d("0.005")}, nil)
	s.exchange.EXPECT().GetSymbolFilters(gomock.Any(), "BNBUSDC").Return(bnbFilters(), nil)

	decision, err := e.ManualTrade(context.Background(), engine.ManualTradeRequest{
		Action:   types.ActionExit,
		ToAsset:  "",
		Quantity: optional.None[decimal.Decimal](),
	})
	s.Require().NoError(err)
	s.flush(e)

	s.True(decision.Quantity.Unwrap().Equal(d("0.005")))

	pos := e.position()
	s.Equal(types.PositionStateFlat, pos.State)
	s.True(pos.HeldQty.IsZero())
	s.True(pos.RealizedPnL.Equal(d("-0.5")), pos.RealizedPnL.String())
	s.Equal(testNow, pos.LastExitAt)
	s.Empty(s.filled)
}

func (s *SignalEngineV1TestSuite) TestExitTooSmallOverrideOnLargePositionIsRejected() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)
	defer s.flush(e)

	e.ledger.Restore(types.Position{
		State:      types.PositionStateLong,
		HeldAsset:  "BNB",
		HeldQty:    d("1"),
		EntryPrice: d("600"),
	})

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).Return(map[string]float64{"BNBUSDC": 500}, nil)
	s.exchange.EXPECT().GetSymbolFilters(gomock.Any(), "BNBUSDC").Return(bnbFilters(), nil)

	_, err := e.ManualTrade(context.Background(), engine.ManualTradeRequest{
		Action:   types.ActionExit,
		ToAsset:  "",
		Quantity: optional.Some(d("0.001")),
	})
	s.True(errors.HasCode(err, errors.ErrCodeOrderTooSmall))
	s.Equal(types.PositionStateLong, e.position().State)
}

func (s *SignalEngineV1TestSuite) TestConcurrentTradeWaitsForInFlightTrade() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)
	defer s.flush(e)

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).Return(map[string]float64{"BNBUSDC": 600}, nil)
	s.exchange.EXPECT().GetSymbolFilters(gomock.Any(), "BNBUSDC").Return(bnbFilters(), nil)
	s.exchange.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.Fill{
		OrderID: "late", Symbol: "BNBUSDC", Side: types.PurchaseTypeBuy, Status: types.OrderStatusFilled,
		ExecutedQty: d("0.1"), QuoteQty: d("60"), Price: d("600"), Fee: d("0.06"), FeeAsset: "USDC",
		ExecutedAt: testNow,
	}, nil)

	// Another trade holds the slot.
	e.beginExecution()

	tradeDone := make(chan error, 1)
	go func() {
		_, err := e.ManualTrade(context.Background(), engine.ManualTradeRequest{
			Action:   types.ActionEnterLong,
			ToAsset:  "",
			Quantity: optional.Some(d("0.1")),
		})
		tradeDone <- err
	}()

	resetDone := make(chan error, 1)
	go func() {
		resetDone <- e.Reset()
	}()

	s.Never(func() bool {
		return len(tradeDone) > 0 || len(resetDone) > 0
	}, 100*time.Millisecond, 10*time.Millisecond)

	e.endExecution()

	select {
	case err := <-tradeDone:
		s.Require().NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("manual trade never ran")
	}

	select {
	case err := <-resetDone:
		s.Require().NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("reset never ran")
	}

	s.Len(s.filled, 1)
	s.Equal("late", s.filled[0].OrderID)
}

func (s *SignalEngineV1TestSuite) TestSyncIsIdempotent() {
	e := s.newEngine(pairConfig(false), tradingprovider.EnvironmentBinanceTestnet)
	defer s.flush(e)

	s.exchange.EXPECT().GetBalance(gomock.Any(), "HBAR").Return(types.Balance{Asset: "HBAR", Free: d("10")}, nil).Times(2)
	s.exchange.EXPECT().GetBalance(gomock.Any(), "DOGE").Return(types.Balance{Asset: "DOGE", Free: d("400")}, nil).Times(2)
	s.exchange.EXPECT().GetBalance(gomock.Any(), "USDT").Return(types.Balance{Asset: "USDT", Free: d("1")}, nil).Times(2)
	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).
		Return(map[string]float64{"HBARUSDT": 0.3, "DOGEUSDT": 0.5}, nil).Times(2)

	first, err := e.SyncFromBalances(context.Background())
	s.Require().NoError(err)
	s.Equal("DOGE", first.HeldAsset)

	second, err := e.SyncFromBalances(context.Background())
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *SignalEngineV1TestSuite) TestResetClearsLedger() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)
	defer s.flush(e)

	e.ledger.Restore(types.Position{State: types.PositionStateFlat, RealizedPnL: d("42")})

	s.Require().NoError(e.Reset())
	s.True(e.position().RealizedPnL.IsZero())
	s.True(e.needsSync)
}

func (s *SignalEngineV1TestSuite) TestStatusFallsBackToCachedPrices() {
	e := s.newEngine(bollingerConfig(true), tradingprovider.EnvironmentBinanceLive)
	defer s.flush(e)

	e.prices = map[string]float64{"BNBUSDC": 650}
	e.ledger.Restore(types.Position{
		State:      types.PositionStateLong,
		HeldAsset:  "BNB",
		HeldQty:    d("2"),
		EntryPrice: d("600"),
	})

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).Return(nil, errors.New(errors.ErrCodeExchangeUnavailable, "down"))

	status := e.Status(context.Background())
	s.Equal(types.EngineStateStopped, status.State)
	s.Equal("binance-live", status.Environment)
	s.InDelta(100.0, status.UnrealizedPnL, 1e-9)
}

func (s *SignalEngineV1TestSuite) TestStatePersistsAcrossRestart() {
	dir := s.T().TempDir()
	settings := engine.Settings{Environment: tradingprovider.EnvironmentBinanceLive, StateDir: dir}

	first, err := NewSignalEngineV1(bollingerConfig(true), settings, Dependencies{Exchange: s.exchange, Logger: logger.NewNopLogger()})
	s.Require().NoError(err)
	s.True(first.needsSync)

	first.ledger.Restore(types.Position{State: types.PositionStateLong, HeldAsset: "BNB", HeldQty: d("1"), EntryPrice: d("600")})
	first.persistState()
	first.Close()

	second, err := NewSignalEngineV1(bollingerConfig(true), settings, Dependencies{Exchange: s.exchange, Logger: logger.NewNopLogger()})
	s.Require().NoError(err)
	defer second.Close()

	s.False(second.needsSync)
	s.Equal(types.PositionStateLong, second.position().State)
	s.True(second.position().EntryPrice.Equal(d("600")))
}

// ==================== Lifecycle ====================

func (s *SignalEngineV1TestSuite) TestStartStop() {
	e := s.newEngine(bollingerConfig(false), tradingprovider.EnvironmentBinanceLive)
	defer s.flush(e)

	started := make(chan struct{})
	stopped := make(chan error, 1)

	onStart := engine.OnEngineStartCallback(func(types.StrategyName) error {
		close(started)

		return nil
	})
	onStop := engine.OnEngineStopCallback(func(_ types.StrategyName, err error) {
		stopped <- err
	})
	e.callbacks.OnEngineStart = &onStart
	e.callbacks.OnEngineStop = &onStop
	e.callbacks.OnError = nil

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).Return(map[string]float64{"BNBUSDC": 600}, nil).AnyTimes()

	s.Require().NoError(e.Start(context.Background()))
	<-started

	err := e.Start(context.Background())
	s.True(errors.HasCode(err, errors.ErrCodeEngineAlreadyRunning))

	s.Require().NoError(e.Stop())
	s.NoError(<-stopped)

	err = e.Stop()
	s.True(errors.HasCode(err, errors.ErrCodeEngineNotRunning))
}

func (s *SignalEngineV1TestSuite) TestStartWithoutExchange() {
	e, err := NewSignalEngineV1(bollingerConfig(false), engine.Settings{Environment: tradingprovider.EnvironmentBinanceLive}, Dependencies{
		Logger: logger.NewNopLogger(),
	})
	s.Require().NoError(err)
	defer e.Close()

	err = e.Start(context.Background())
	s.True(errors.HasCode(err, errors.ErrCodeEngineMissingCollaborate))
}

func (s *SignalEngineV1TestSuite) TestHistoryReadsStore() {
	e := s.newEngine(bollingerConfig(false), tradingprovider.EnvironmentBinanceLive)

	s.exchange.EXPECT().GetPrices(gomock.Any(), gomock.Any()).Return(map[string]float64{"BNBUSDC": 600}, nil).Times(3)

	for range 3 {
		e.tick(context.Background())
	}

	s.flush(e)

	hist, err := e.History(context.Background(), 2)
	s.Require().NoError(err)
	s.Len(hist.Snapshots, 2)
	s.Empty(hist.Trades)
}
