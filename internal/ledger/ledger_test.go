package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type LedgerTestSuite struct {
	suite.Suite
	now time.Time
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (s *LedgerTestSuite) SetupTest() {
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (s *LedgerTestSuite) fill(symbol string, side types.PurchaseType, qty, quote string) types.Fill {
	return types.Fill{
		OrderID:     "order",
		Symbol:      symbol,
		Side:        side,
		Status:      types.OrderStatusFilled,
		ExecutedQty: d(qty),
		QuoteQty:    d(quote),
		Price:       decimal.Zero,
		Fee:         decimal.Zero,
		FeeAsset:    "",
		ExecutedAt:  s.now,
	}
}

func (s *LedgerTestSuite) decimalEqual(expected string, actual decimal.Decimal) {
	s.True(d(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

// ==================== Single asset ====================

func (s *LedgerTestSuite) TestRoundTripRealizesPriceMove() {
	l := NewSingleAssetLedger("BTC", "USDC", ZeroCommissionFee{})

	_, err := l.Enter(s.fill("BTCUSDC", types.PurchaseTypeBuy, "1", "100"), types.PositionStateLong, false)
	s.Require().NoError(err)

	pos := l.Snapshot()
	s.Equal(types.PositionStateLong, pos.State)
	s.decimalEqual("100", pos.EntryPrice)
	s.decimalEqual("1", pos.HeldQty)
	s.decimalEqual("100", pos.PeakPrice)

	effect, err := l.Exit(s.fill("BTCUSDC", types.PurchaseTypeSell, "1", "200"), false, false)
	s.Require().NoError(err)
	s.True(effect.RoundTrip)
	s.decimalEqual("100", effect.RealizedPnL)

	pos = l.Snapshot()
	s.Equal(types.PositionStateFlat, pos.State)
	s.decimalEqual("100", pos.RealizedPnL)
	s.decimalEqual("0", pos.HeldQty)
	s.Equal(s.now, pos.LastExitAt)
	s.Equal(2, pos.TradeCount)

	stats := l.Stats()
	s.Equal(1, stats.RoundTrips)
	s.Equal(1, stats.Wins)
	s.InDelta(100.0, stats.RealizedPnL, 1e-9)
}

func (s *LedgerTestSuite) TestRoundTripSubtractsFees() {
	l := NewSingleAssetLedger("BTC", "USDC", NewRateCommissionFee(DefaultTakerRate))

	effect, err := l.Enter(s.fill("BTCUSDC", types.PurchaseTypeBuy, "1", "100"), types.PositionStateLong, false)
	s.Require().NoError(err)
	s.decimalEqual("0.1", effect.Fee)

	effect, err = l.Exit(s.fill("BTCUSDC", types.PurchaseTypeSell, "1", "200"), false, false)
	s.Require().NoError(err)
	s.decimalEqual("0.2", effect.Fee)
	s.decimalEqual("99.7", effect.RealizedPnL)

	pos := l.Snapshot()
	s.decimalEqual("99.7", pos.RealizedPnL)
	s.decimalEqual("0.3", pos.TotalFees)
}

func (s *LedgerTestSuite) TestEnterNetsFeeChargedInBaseAsset() {
	l := NewSingleAssetLedger("BNB", "USDC", ZeroCommissionFee{})

	f := s.fill("BNBUSDC", types.PurchaseTypeBuy, "1", "100")
	f.Fee = d("0.1")
	f.FeeAsset = "BNB"

	_, err := l.Enter(f, types.PositionStateLong, false)
	s.Require().NoError(err)
	s.decimalEqual("0.999", l.Snapshot().HeldQty)
}

func (s *LedgerTestSuite) TestShortRoundTrip() {
	l := NewSingleAssetLedger("BTC", "USDC", ZeroCommissionFee{})

	_, err := l.Enter(s.fill("BTCUSDC", types.PurchaseTypeSell, "1", "100"), types.PositionStateShort, false)
	s.Require().NoError(err)
	s.decimalEqual("10", l.Unrealized(map[string]float64{"BTC": 90}))

	effect, err := l.Exit(s.fill("BTCUSDC", types.PurchaseTypeBuy, "1", "80"), false, false)
	s.Require().NoError(err)
	s.decimalEqual("20", effect.RealizedPnL)
}

func (s *LedgerTestSuite) TestPartialExitKeepsRemainder() {
	l := NewSingleAssetLedger("BTC", "USDC", ZeroCommissionFee{})

	_, err := l.Enter(s.fill("BTCUSDC", types.PurchaseTypeBuy, "2", "200"), types.PositionStateLong, false)
	s.Require().NoError(err)

	effect, err := l.Exit(s.fill("BTCUSDC", types.PurchaseTypeSell, "1", "110"), false, false)
	s.Require().NoError(err)
	s.False(effect.RoundTrip)
	s.decimalEqual("10", effect.RealizedPnL)

	pos := l.Snapshot()
	s.Equal(types.PositionStateLong, pos.State)
	s.decimalEqual("1", pos.HeldQty)
	s.True(pos.LastExitAt.IsZero())

	effect, err = l.Exit(s.fill("BTCUSDC", types.PurchaseTypeSell, "1", "120"), false, false)
	s.Require().NoError(err)
	s.True(effect.RoundTrip)
	s.decimalEqual("30", l.Snapshot().RealizedPnL)
}

func (s *LedgerTestSuite) TestExitCloseRemainderWritesOffDust() {
	l := NewSingleAssetLedger("BTC", "USDC", ZeroCommissionFee{})

	_, err := l.Enter(s.fill("BTCUSDC", types.PurchaseTypeBuy, "2", "200"), types.PositionStateLong, false)
	s.Require().NoError(err)

	effect, err := l.Exit(s.fill("BTCUSDC", types.PurchaseTypeSell, "1.999", "199.9"), true, false)
	s.Require().NoError(err)
	s.True(effect.RoundTrip)
	s.Equal(types.PositionStateFlat, l.Snapshot().State)
}

func (s *LedgerTestSuite) TestWriteOffClosesUnsellablePosition() {
	l := NewSingleAssetLedger("BNB", "USDC", ZeroCommissionFee{})

	_, err := l.Enter(s.fill("BNBUSDC", types.PurchaseTypeBuy, "0.005", "3"), types.PositionStateLong, false)
	s.Require().NoError(err)

	effect, err := l.WriteOff(d("500"), s.now, false)
	s.Require().NoError(err)
	s.True(effect.RoundTrip)
	s.decimalEqual("-0.5", effect.RealizedPnL)

	pos := l.Snapshot()
	s.Equal(types.PositionStateFlat, pos.State)
	s.True(pos.HeldQty.IsZero())
	s.decimalEqual("-0.5", pos.RealizedPnL)
	s.Equal(s.now, pos.LastExitAt)
	s.Equal(1, l.Stats().RoundTrips)

	_, err = l.WriteOff(d("500"), s.now, false)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidTransition))
}

func (s *LedgerTestSuite) TestInvalidTransitionsLeaveStateUnchanged() {
	l := NewSingleAssetLedger("BTC", "USDC", ZeroCommissionFee{})

	_, err := l.Exit(s.fill("BTCUSDC", types.PurchaseTypeSell, "1", "100"), false, false)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidTransition))

	_, err = l.Enter(s.fill("BTCUSDC", types.PurchaseTypeBuy, "1", "100"), types.PositionStateLong, false)
	s.Require().NoError(err)

	_, err = l.Enter(s.fill("BTCUSDC", types.PurchaseTypeBuy, "1", "200"), types.PositionStateLong, false)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidTransition))
	s.decimalEqual("100", l.Snapshot().EntryPrice)

	_, err = l.Enter(s.fill("BTCUSDC", types.PurchaseTypeBuy, "0", "0"), types.PositionStateLong, false)
	s.Error(err)

	_, err = l.Rotate("BTC", "USDC", types.Fill{}, s.fill("BTCUSDC", types.PurchaseTypeSell, "1", "100"), false)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidTransition))
}

func (s *LedgerTestSuite) TestObservePriceTracksPeakWhileLong() {
	l := NewSingleAssetLedger("BTC", "USDC", ZeroCommissionFee{})

	l.ObservePrice(500)
	s.decimalEqual("0", l.Snapshot().PeakPrice)

	_, err := l.Enter(s.fill("BTCUSDC", types.PurchaseTypeBuy, "1", "100"), types.PositionStateLong, false)
	s.Require().NoError(err)

	l.ObservePrice(120)
	l.ObservePrice(110)
	s.decimalEqual("120", l.Snapshot().PeakPrice)
}

// ==================== Sync ====================

func (s *LedgerTestSuite) singleSync(qty string, price float64) SyncInput {
	return SyncInput{
		Balances: map[string]types.Balance{
			"BNB":  {Asset: "BNB", Free: d(qty), Locked: decimal.Zero},
			"USDC": {Asset: "USDC", Free: d("50"), Locked: decimal.Zero},
		},
		AssetPrices: map[string]float64{"BNB": price},
		MinNotional: d("5"),
		Now:         s.now,
	}
}

func (s *LedgerTestSuite) TestSyncSingleAssetIsIdempotent() {
	l := NewSingleAssetLedger("BNB", "USDC", ZeroCommissionFee{})

	// Realize some PnL first so we can prove sync never touches it.
	_, err := l.Enter(s.fill("BNBUSDC", types.PurchaseTypeBuy, "1", "100"), types.PositionStateLong, false)
	s.Require().NoError(err)
	_, err = l.Exit(s.fill("BNBUSDC", types.PurchaseTypeSell, "1", "200"), false, false)
	s.Require().NoError(err)

	first := l.Sync(s.singleSync("1", 600))
	second := l.Sync(s.singleSync("1", 600))

	for _, pos := range []types.Position{first, second} {
		s.Equal(types.PositionStateLong, pos.State)
		s.Equal("BNB", pos.HeldAsset)
		s.decimalEqual("1", pos.HeldQty)
		s.decimalEqual("600", pos.EntryPrice)
		s.decimalEqual("100", pos.RealizedPnL)
	}

	s.Equal(first.TradeCount, second.TradeCount)
	s.Equal(first.EntryTime, second.EntryTime)
}

func (s *LedgerTestSuite) TestSyncPreservesEntryWhenAlreadyLong() {
	l := NewSingleAssetLedger("BNB", "USDC", ZeroCommissionFee{})

	_, err := l.Enter(s.fill("BNBUSDC", types.PurchaseTypeBuy, "1", "550"), types.PositionStateLong, false)
	s.Require().NoError(err)

	pos := l.Sync(s.singleSync("0.9", 610))
	s.decimalEqual("550", pos.EntryPrice)
	s.decimalEqual("0.9", pos.HeldQty)
}

func (s *LedgerTestSuite) TestSyncTreatsDustAsFlat() {
	l := NewSingleAssetLedger("BNB", "USDC", ZeroCommissionFee{})

	_, err := l.Enter(s.fill("BNBUSDC", types.PurchaseTypeBuy, "1", "600"), types.PositionStateLong, false)
	s.Require().NoError(err)

	// 0.001 * 600 = 0.6, below the 5 USDC minimum notional.
	pos := l.Sync(s.singleSync("0.001", 600))
	s.Equal(types.PositionStateFlat, pos.State)
	s.decimalEqual("0", pos.HeldQty)
	s.Equal(s.now, pos.LastExitAt)
}

// ==================== Pair ====================

func (s *LedgerTestSuite) pairSync(hbar, doge, usdt string) SyncInput {
	return SyncInput{
		Balances: map[string]types.Balance{
			"HBAR": {Asset: "HBAR", Free: d(hbar), Locked: decimal.Zero},
			"DOGE": {Asset: "DOGE", Free: d(doge), Locked: decimal.Zero},
			"USDT": {Asset: "USDT", Free: d(usdt), Locked: decimal.Zero},
		},
		AssetPrices: map[string]float64{"HBAR": 0.2, "DOGE": 0.1},
		MinNotional: d("5"),
		Now:         s.now,
	}
}

func (s *LedgerTestSuite) TestPairStartsHoldingFirstAsset() {
	l := NewPairLedger("HBAR", "DOGE", "USDT", ZeroCommissionFee{})

	pos := l.Snapshot()
	s.Equal(types.PositionStateHolding, pos.State)
	s.Equal("HBAR", pos.HeldAsset)
	s.False(pos.IsRotated())
	s.Equal(KindPair, l.Kind())
}

func (s *LedgerTestSuite) TestRotationRoundTripRealizesOriginGain() {
	l := NewPairLedger("HBAR", "DOGE", "USDT", ZeroCommissionFee{})
	l.Sync(s.pairSync("1000", "0", "1"))

	effect, err := l.Rotate("HBAR", "DOGE",
		s.fill("HBARUSDT", types.PurchaseTypeSell, "1000", "200"),
		s.fill("DOGEUSDT", types.PurchaseTypeBuy, "2000", "200"), false)
	s.Require().NoError(err)
	s.False(effect.RoundTrip)

	pos := l.Snapshot()
	s.Equal("DOGE", pos.HeldAsset)
	s.Equal("HBAR", pos.OriginAsset)
	s.decimalEqual("1000", pos.OriginQty)
	s.decimalEqual("2000", pos.HeldQty)
	s.decimalEqual("2", pos.EntryPrice)
	s.True(pos.IsRotated())
	s.decimalEqual("20", l.Unrealized(map[string]float64{"HBAR": 0.2, "DOGE": 0.11}))

	effect, err = l.Rotate("DOGE", "HBAR",
		s.fill("DOGEUSDT", types.PurchaseTypeSell, "2000", "220"),
		s.fill("HBARUSDT", types.PurchaseTypeBuy, "1100", "220"), false)
	s.Require().NoError(err)
	s.True(effect.RoundTrip)
	s.decimalEqual("20", effect.RealizedPnL)

	pos = l.Snapshot()
	s.Equal("HBAR", pos.HeldAsset)
	s.Empty(pos.OriginAsset)
	s.decimalEqual("20", pos.RealizedPnL)
	s.Equal(s.now, pos.LastExitAt)
}

func (s *LedgerTestSuite) feeFill(symbol string, side types.PurchaseType, qty, quote, fee, feeAsset string) types.Fill {
	f := s.fill(symbol, side, qty, quote)
	f.Fee = d(fee)
	f.FeeAsset = feeAsset

	return f
}

func (s *LedgerTestSuite) TestRotationRoundTripCountsFeesOnce() {
	l := NewPairLedger("HBAR", "DOGE", "USDT", NewRateCommissionFee(DefaultTakerRate))
	l.Sync(s.pairSync("1000", "0", "1"))

	// Sell fee paid in USDT, buy fee taken from the received asset, prices unchanged.
	_, err := l.Rotate("HBAR", "DOGE",
		s.feeFill("HBARUSDT", types.PurchaseTypeSell, "1000", "200", "0.2", "USDT"),
		s.feeFill("DOGEUSDT", types.PurchaseTypeBuy, "1998", "199.8", "0.1998", "DOGE"), false)
	s.Require().NoError(err)
	s.decimalEqual("1996.002", l.Snapshot().HeldQty)
	s.decimalEqual("0", l.Snapshot().EntryFees)

	effect, err := l.Rotate("DOGE", "HBAR",
		s.feeFill("DOGEUSDT", types.PurchaseTypeSell, "1996.002", "199.6002", "0.1996002", "USDT"),
		s.feeFill("HBARUSDT", types.PurchaseTypeBuy, "997.002999", "199.4005998", "0.1994005998", "HBAR"), false)
	s.Require().NoError(err)
	s.True(effect.RoundTrip)

	pos := l.Snapshot()
	s.decimalEqual("996.005996", pos.HeldQty)
	// The loss is exactly the origin units given up, valued at the HBAR price.
	s.decimalEqual("-0.7988008", pos.RealizedPnL)
	s.decimalEqual("0.7988007998", pos.TotalFees)
}

func (s *LedgerTestSuite) TestRotationRoundTripSubtractsFeesPaidElsewhere() {
	l := NewPairLedger("HBAR", "DOGE", "USDT", ZeroCommissionFee{})
	l.Sync(s.pairSync("1000", "0", "1"))

	_, err := l.Rotate("HBAR", "DOGE",
		s.fill("HBARUSDT", types.PurchaseTypeSell, "1000", "200"),
		s.feeFill("DOGEUSDT", types.PurchaseTypeBuy, "2000", "200", "0.15", "BNB"), false)
	s.Require().NoError(err)
	s.decimalEqual("2000", l.Snapshot().HeldQty)
	s.decimalEqual("0.15", l.Snapshot().EntryFees)

	effect, err := l.Rotate("DOGE", "HBAR",
		s.fill("DOGEUSDT", types.PurchaseTypeSell, "2000", "200"),
		s.feeFill("HBARUSDT", types.PurchaseTypeBuy, "1000", "200", "0.15", "BNB"), false)
	s.Require().NoError(err)
	s.decimalEqual("-0.3", effect.RealizedPnL)
}

func (s *LedgerTestSuite) TestRotateRejectsWrongSource() {
	l := NewPairLedger("HBAR", "DOGE", "USDT", ZeroCommissionFee{})

	_, err := l.Rotate("DOGE", "HBAR", types.Fill{}, s.fill("HBARUSDT", types.PurchaseTypeBuy, "10", "2"), false)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidTransition))

	_, err = l.Rotate("HBAR", "BTC", types.Fill{}, s.fill("BTCUSDT", types.PurchaseTypeBuy, "1", "2"), false)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidTransition))
	s.Equal("HBAR", l.Snapshot().HeldAsset)
}

func (s *LedgerTestSuite) TestRotateFromQuoteUsesBuyLegOnly() {
	l := NewPairLedger("HBAR", "DOGE", "USDT", ZeroCommissionFee{})
	l.Sync(s.pairSync("0", "0", "300"))
	s.Equal("USDT", l.Snapshot().HeldAsset)

	_, err := l.Rotate("USDT", "DOGE", types.Fill{}, s.fill("DOGEUSDT", types.PurchaseTypeBuy, "3000", "300"), false)
	s.Require().NoError(err)

	pos := l.Snapshot()
	s.Equal("DOGE", pos.HeldAsset)
	s.False(pos.IsRotated())
}

func (s *LedgerTestSuite) TestPairSyncPicksHighestValue() {
	l := NewPairLedger("HBAR", "DOGE", "USDT", ZeroCommissionFee{})

	pos := l.Sync(s.pairSync("100", "1000", "10"))
	s.Equal("DOGE", pos.HeldAsset)
	s.decimalEqual("1000", pos.HeldQty)

	again := l.Sync(s.pairSync("100", "1000", "10"))
	s.Equal(pos.HeldAsset, again.HeldAsset)
	s.True(pos.HeldQty.Equal(again.HeldQty))

	pos = l.Sync(s.pairSync("1", "1", "500"))
	s.Equal("USDT", pos.HeldAsset)
}

func (s *LedgerTestSuite) TestPairSyncClearsOriginWhenBackAtOrigin() {
	l := NewPairLedger("HBAR", "DOGE", "USDT", ZeroCommissionFee{})
	l.Sync(s.pairSync("1000", "0", "1"))

	_, err := l.Rotate("HBAR", "DOGE",
		s.fill("HBARUSDT", types.PurchaseTypeSell, "1000", "200"),
		s.fill("DOGEUSDT", types.PurchaseTypeBuy, "2000", "200"), false)
	s.Require().NoError(err)

	pos := l.Sync(s.pairSync("1000", "0", "1"))
	s.Equal("HBAR", pos.HeldAsset)
	s.Empty(pos.OriginAsset)
	s.decimalEqual("0", pos.RealizedPnL)
}

// ==================== Stats and reset ====================

func (s *LedgerTestSuite) TestStatsTrackDrawdown() {
	l := NewSingleAssetLedger("BTC", "USDC", ZeroCommissionFee{})

	_, err := l.Enter(s.fill("BTCUSDC", types.PurchaseTypeBuy, "1", "100"), types.PositionStateLong, false)
	s.Require().NoError(err)
	_, err = l.Exit(s.fill("BTCUSDC", types.PurchaseTypeSell, "1", "200"), false, false)
	s.Require().NoError(err)
	_, err = l.Enter(s.fill("BTCUSDC", types.PurchaseTypeBuy, "1", "200"), types.PositionStateLong, true)
	s.Require().NoError(err)
	_, err = l.Exit(s.fill("BTCUSDC", types.PurchaseTypeSell, "1", "170"), false, true)
	s.Require().NoError(err)

	stats := l.Stats()
	s.Equal(4, stats.TotalTrades)
	s.Equal(2, stats.RoundTrips)
	s.Equal(1, stats.Wins)
	s.Equal(1, stats.Losses)
	s.InDelta(0.5, stats.WinRate, 1e-12)
	s.InDelta(100.0, stats.PeakPnL, 1e-9)
	s.InDelta(30.0, stats.MaxDrawdown, 1e-9)
	s.Equal(2, stats.ManualTrade)
}

func (s *LedgerTestSuite) TestReset() {
	l := NewPairLedger("HBAR", "DOGE", "USDT", ZeroCommissionFee{})
	l.Sync(s.pairSync("0", "1000", "1"))

	l.Reset()

	pos := l.Snapshot()
	s.Equal("HBAR", pos.HeldAsset)
	s.decimalEqual("0", pos.HeldQty)
	s.Equal(0, l.Stats().TotalTrades)
}

// ==================== State file ====================

func (s *LedgerTestSuite) TestSaveAndLoadState() {
	path := filepath.Join(s.T().TempDir(), "state", "bollinger.yaml")

	l := NewSingleAssetLedger("BTC", "USDC", ZeroCommissionFee{})
	_, err := l.Enter(s.fill("BTCUSDC", types.PurchaseTypeBuy, "0.5", "50"), types.PositionStateLong, false)
	s.Require().NoError(err)
	s.Require().NoError(l.SaveState(path, types.StrategyBollinger, s.now))

	restored := NewSingleAssetLedger("BTC", "USDC", ZeroCommissionFee{})
	found, err := restored.LoadState(path, types.StrategyBollinger)
	s.Require().NoError(err)
	s.True(found)

	pos := restored.Snapshot()
	s.Equal(types.PositionStateLong, pos.State)
	s.decimalEqual("0.5", pos.HeldQty)
	s.decimalEqual("100", pos.EntryPrice)
	s.Equal(1, restored.Stats().TotalTrades)
}

func (s *LedgerTestSuite) TestLoadStateMissingFile() {
	l := NewSingleAssetLedger("BTC", "USDC", ZeroCommissionFee{})

	found, err := l.LoadState(filepath.Join(s.T().TempDir(), "missing.yaml"), types.StrategyBollinger)
	s.NoError(err)
	s.False(found)
}

func (s *LedgerTestSuite) TestLoadStateRejectsIncompatibleVersion() {
	path := filepath.Join(s.T().TempDir(), "old.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("version: v0.1.0\nengine: bollinger\nkind: single_asset\n"), 0o600))

	l := NewSingleAssetLedger("BTC", "USDC", ZeroCommissionFee{})
	_, err := l.LoadState(path, types.StrategyBollinger)
	s.True(errors.HasCode(err, errors.ErrCodeVersionMismatch))
}

func (s *LedgerTestSuite) TestLoadStateRejectsOtherEngine() {
	path := filepath.Join(s.T().TempDir(), "trend.yaml")

	l := NewSingleAssetLedger("BTC", "USDC", ZeroCommissionFee{})
	s.Require().NoError(l.SaveState(path, types.StrategyTrendFollowing, s.now))

	_, err := l.LoadState(path, types.StrategyBollinger)
	s.True(errors.HasCode(err, errors.ErrCodeStateFileCorrupted))
}

func (s *LedgerTestSuite) TestCommissionFee() {
	f := s.fill("BTCUSDC", types.PurchaseTypeBuy, "1", "1000")

	s.decimalEqual("1", GetCommissionFeeHandler(BrokerBinance).Calculate(f))
	s.decimalEqual("0", GetCommissionFeeHandler(BrokerZero).Calculate(f))

	f.Fee = d("0.75")
	s.decimalEqual("0.75", GetCommissionFeeHandler(BrokerBinance).Calculate(f))
	s.decimalEqual("0.75", GetCommissionFeeHandler(BrokerZero).Calculate(f))
}
