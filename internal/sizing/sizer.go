// Package sizing turns a sizing policy into exchange-legal order quantities.
package sizing

import (
	"strings"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultFeeRate is the taker fee assumed when sizing buys (0.1%).
var DefaultFeeRate = decimal.RequireFromString("0.001")

// Policy decides how much of a balance an order may use.
type Policy struct {
	// UseAllBalance spends the whole free balance of the asset being sold.
	UseAllBalance bool
	// Notional is the fixed quote amount per order when UseAllBalance is false.
	Notional decimal.Decimal
	// FeeRate is held back from buys so the fee fits in the balance.
	FeeRate decimal.Decimal
}

// ClampedOrder is a quantity that passed every exchange filter.
type ClampedOrder struct {
	Symbol   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Notional decimal.Decimal
}

// RoundDownToStep truncates qty to a multiple of step. A non-positive step leaves qty unchanged.
func RoundDownToStep(qty, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return qty
	}

	return qty.Sub(qty.Mod(step))
}

// Clamp applies lot-size stepping, the minimum quantity and the minimum notional.
// Anything that would be refused by the exchange fails here with ErrCodeOrderTooSmall.
func Clamp(qty, price decimal.Decimal, filters types.SymbolFilters) (ClampedOrder, error) {
	if !price.IsPositive() {
		return ClampedOrder{}, errors.Newf(errors.ErrCodeInvalidParameter, "price must be positive for %s, got %s", filters.Symbol, price)
	}

	if !qty.IsPositive() {
		return ClampedOrder{}, errors.Newf(errors.ErrCodeOrderTooSmall, "quantity %s for %s is not positive", qty, filters.Symbol)
	}

	stepped := RoundDownToStep(qty, filters.StepSize)
	if !stepped.IsPositive() {
		return ClampedOrder{}, errors.Newf(errors.ErrCodeOrderTooSmall,
			"quantity %s for %s rounds to zero at step %s", qty, filters.Symbol, filters.StepSize)
	}

	if stepped.LessThan(filters.MinQty) {
		return ClampedOrder{}, errors.Newf(errors.ErrCodeOrderTooSmall,
			"quantity %s for %s is below minimum quantity %s", stepped, filters.Symbol, filters.MinQty)
	}

	notional := stepped.Mul(price)
	if filters.MinNotional.IsPositive() && notional.LessThan(filters.MinNotional) {
		return ClampedOrder{}, errors.Newf(errors.ErrCodeOrderTooSmall,
			"notional %s for %s is below minimum notional %s", notional.StringFixed(8), filters.Symbol, filters.MinNotional)
	}

	return ClampedOrder{
		Symbol:   filters.Symbol,
		Quantity: stepped,
		Price:    price,
		Notional: notional,
	}, nil
}

// BuyQuantity returns the base quantity to buy with the free quote balance.
func (p Policy) BuyQuantity(price, quoteFree decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidParameter, "price must be positive, got %s", price)
	}

	if !quoteFree.IsPositive() {
		return decimal.Zero, errors.New(errors.ErrCodeInsufficientBalance, "no free quote balance to buy with")
	}

	budget := quoteFree
	if !p.UseAllBalance {
		if quoteFree.LessThan(p.Notional) {
			return decimal.Zero, errors.Newf(errors.ErrCodeInsufficientBalance,
				"free quote balance %s is below order notional %s", quoteFree, p.Notional)
		}

		budget = p.Notional
	}

	feeRate := p.FeeRate
	if feeRate.IsNegative() {
		feeRate = decimal.Zero
	}

	return budget.Mul(decimal.NewFromInt(1).Sub(feeRate)).Div(price), nil
}

// SellQuantity returns the base quantity to sell out of the free base balance.
func (p Policy) SellQuantity(price, baseFree decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidParameter, "price must be positive, got %s", price)
	}

	if !baseFree.IsPositive() {
		return decimal.Zero, errors.New(errors.ErrCodeInsufficientBalance, "no free balance to sell")
	}

	if p.UseAllBalance {
		return baseFree, nil
	}

	qty := p.Notional.Div(price)
	if baseFree.LessThan(qty) {
		return decimal.Zero, errors.Newf(errors.ErrCodeInsufficientBalance,
			"free balance %s is below order quantity %s", baseFree, qty.StringFixed(8))
	}

	return qty, nil
}

// ExitQuantity returns how much of a held position can actually be sold.
func ExitQuantity(held, baseFree decimal.Decimal) (decimal.Decimal, error) {
	if !held.IsPositive() {
		return decimal.Zero, errors.New(errors.ErrCodeInvalidTransition, "no position to exit")
	}

	if !baseFree.IsPositive() {
		return decimal.Zero, errors.New(errors.ErrCodeInsufficientBalance, "no free balance to exit with")
	}

	return decimal.Min(held, baseFree), nil
}

// PrecisionFromStep returns the number of decimals implied by a step size like 0.00100000.
func PrecisionFromStep(step decimal.Decimal) int32 {
	if !step.IsPositive() {
		return 8
	}

	s := step.String()
	idx := strings.IndexByte(s, '.')

	if idx < 0 {
		return 0
	}

	return int32(len(strings.TrimRight(s[idx+1:], "0")))
}
