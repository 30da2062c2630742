package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
)

type PurchaseType string

type OrderType string

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderRequest is a sized, exchange-legal order ready for submission.
type OrderRequest struct {
	ID        string          `yaml:"id" json:"id" validate:"required,uuid"`
	Symbol    string          `yaml:"symbol" json:"symbol" validate:"required"`
	Side      PurchaseType    `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	OrderType OrderType       `yaml:"order_type" json:"order_type" validate:"required,oneof=MARKET LIMIT"`
	Quantity  decimal.Decimal `yaml:"quantity" json:"quantity"`
	// Price is the reference price used for sizing; it is sent only for LIMIT orders.
	Price    float64      `yaml:"price" json:"price" validate:"gte=0"`
	Reason   SignalReason `yaml:"reason" json:"reason"`
	Strategy StrategyName `yaml:"strategy" json:"strategy" validate:"required"`
	Manual   bool         `yaml:"manual" json:"manual"`
}

// Validate validates the OrderRequest struct.
func (o *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid order request", err)
	}

	if !o.Quantity.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidParameter, "order quantity must be positive, got %s", o.Quantity)
	}

	if o.OrderType == OrderTypeLimit && o.Price <= 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "limit order requires a price")
	}

	return nil
}

// Fill is what the exchange actually executed for an order.
// Ledger updates always use the fill, never the requested size.
type Fill struct {
	OrderID     string          `yaml:"order_id" json:"order_id"`
	Symbol      string          `yaml:"symbol" json:"symbol"`
	Side        PurchaseType    `yaml:"side" json:"side"`
	Status      OrderStatus     `yaml:"status" json:"status"`
	ExecutedQty decimal.Decimal `yaml:"executed_qty" json:"executed_qty"`
	// QuoteQty is the cumulative quote amount exchanged.
	QuoteQty decimal.Decimal `yaml:"quote_qty" json:"quote_qty"`
	// Price is the average execution price.
	Price decimal.Decimal `yaml:"price" json:"price"`
	// Fee is expressed in the quote asset. Zero means the exchange did not report one.
	Fee        decimal.Decimal `yaml:"fee" json:"fee"`
	FeeAsset   string          `yaml:"fee_asset" json:"fee_asset"`
	ExecutedAt time.Time       `yaml:"executed_at" json:"executed_at"`
}

// AveragePrice returns the average execution price, derived from the quote amount when available.
func (f Fill) AveragePrice() decimal.Decimal {
	if f.QuoteQty.IsPositive() && f.ExecutedQty.IsPositive() {
		return f.QuoteQty.Div(f.ExecutedQty)
	}

	return f.Price
}

// Notional returns the quote value of the fill.
func (f Fill) Notional() decimal.Decimal {
	if f.QuoteQty.IsPositive() {
		return f.QuoteQty
	}

	return f.ExecutedQty.Mul(f.Price)
}

// IsEmpty reports whether nothing was executed.
func (f Fill) IsEmpty() bool {
	return !f.ExecutedQty.IsPositive()
}
