package ledger

import (
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/shopspring/decimal"
)

// CommissionFee computes the quote-denominated fee charged for a fill.
type CommissionFee interface {
	Calculate(fill types.Fill) decimal.Decimal
}

type Broker string

const (
	BrokerBinance Broker = "binance"
	BrokerZero    Broker = "zero_commission"
)

// DefaultTakerRate is the spot taker fee applied when the exchange reports no fee (0.1%).
var DefaultTakerRate = decimal.RequireFromString("0.001")

// GetCommissionFeeHandler returns the fee model for a broker.
func GetCommissionFeeHandler(broker Broker) CommissionFee {
	switch broker {
	case BrokerBinance:
		return NewRateCommissionFee(DefaultTakerRate)
	case BrokerZero:
		return ZeroCommissionFee{}
	default:
		return ZeroCommissionFee{}
	}
}

// RateCommissionFee uses the exchange-reported fee and falls back to notional * rate.
type RateCommissionFee struct {
	rate decimal.Decimal
}

// NewRateCommissionFee creates a fee model with the given fallback rate.
func NewRateCommissionFee(rate decimal.Decimal) *RateCommissionFee {
	return &RateCommissionFee{rate: rate}
}

func (c *RateCommissionFee) Calculate(fill types.Fill) decimal.Decimal {
	if fill.Fee.IsPositive() {
		return fill.Fee
	}

	if fill.IsEmpty() {
		return decimal.Zero
	}

	return fill.Notional().Mul(c.rate)
}

// ZeroCommissionFee charges nothing unless the exchange reported a fee.
type ZeroCommissionFee struct{}

func (ZeroCommissionFee) Calculate(fill types.Fill) decimal.Decimal {
	if fill.Fee.IsPositive() {
		return fill.Fee
	}

	return decimal.Zero
}
