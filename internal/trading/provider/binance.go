package tradingprovider

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/argo-signal/internal/sizing"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// BinanceDecimalPrecision is the number of decimals quantities are truncated to when the symbol's
	// step size is unknown.
	BinanceDecimalPrecision = 8
	// maxKlineLimit is the largest page the klines endpoint accepts.
	maxKlineLimit = 1000
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	NewOrderRespType(respType binance.NewOrderRespType) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// ListPricesService interface for listing last prices.
type ListPricesService interface {
	Symbols(symbols []string) ListPricesService
	Do(ctx context.Context) ([]*binance.SymbolPrice, error)
}

// ExchangeInfoService interface for reading symbol rules.
type ExchangeInfoService interface {
	Symbol(symbol string) ExchangeInfoService
	Do(ctx context.Context) (*binance.ExchangeInfo, error)
}

// KlinesService interface for reading candles.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	Limit(limit int) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetAccountService() GetAccountService
	NewListPricesService() ListPricesService
	NewExchangeInfoService() ExchangeInfoService
	NewKlinesService() KlinesService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceClient) NewListPricesService() ListPricesService {
	return &realListPricesService{service: r.client.NewListPricesService()}
}

func (r *realBinanceClient) NewExchangeInfoService() ExchangeInfoService {
	return &realExchangeInfoService{service: r.client.NewExchangeInfoService()}
}

func (r *realBinanceClient) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

// Real service wrappers

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) NewOrderRespType(respType binance.NewOrderRespType) CreateOrderService {
	s.service = s.service.NewOrderRespType(respType)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realListPricesService struct {
	service *binance.ListPricesService
}

func (s *realListPricesService) Symbols(symbols []string) ListPricesService {
	s.service = s.service.Symbols(symbols)

	return s
}

func (s *realListPricesService) Do(ctx context.Context) ([]*binance.SymbolPrice, error) {
	return s.service.Do(ctx)
}

type realExchangeInfoService struct {
	service *binance.ExchangeInfoService
}

func (s *realExchangeInfoService) Symbol(symbol string) ExchangeInfoService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realExchangeInfoService) Do(ctx context.Context) (*binance.ExchangeInfo, error) {
	return s.service.Do(ctx)
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceExchange implements Exchange using the Binance spot REST API.
// Symbol filters are fetched once per symbol and cached; everything else is read live.
type BinanceExchange struct {
	client           BinanceClient
	decimalPrecision int32

	filtersMu sync.RWMutex
	filters   map[string]types.SymbolFilters
}

// NewBinanceExchange creates a new Binance exchange client.
// If useTestnet is true, connects to Binance Testnet (https://testnet.binance.vision/).
// If config.BaseURL is set, it takes precedence over useTestnet.
func NewBinanceExchange(config BinanceProviderConfig, useTestnet bool) (*BinanceExchange, error) {
	binance.UseTestnet = useTestnet

	client := binance.NewClient(config.ApiKey, config.SecretKey)

	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return newBinanceExchangeWithClient(&realBinanceClient{client: client}), nil
}

// newBinanceExchangeWithClient creates a new Binance exchange with a custom client.
// This is used for testing with mock clients.
func newBinanceExchangeWithClient(client BinanceClient) *BinanceExchange {
	return &BinanceExchange{
		client:           client,
		decimalPrecision: BinanceDecimalPrecision,
		filters:          make(map[string]types.SymbolFilters),
	}
}

// GetPrice returns the last traded price for a symbol.
func (b *BinanceExchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := b.GetPrices(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}

	return prices[symbol], nil
}

// GetPrices returns the last traded price of every requested symbol in one request.
func (b *BinanceExchange) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	list, err := b.client.NewListPricesService().Symbols(symbols).Do(ctx)
	if err != nil {
		return nil, wrapBinanceError(err, "failed to get prices from Binance")
	}

	prices := make(map[string]float64, len(list))

	for _, p := range list {
		price, parseErr := strconv.ParseFloat(p.Price, 64)
		if parseErr != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, parseErr, "invalid price %q for %s", p.Price, p.Symbol)
		}

		prices[p.Symbol] = price
	}

	for _, symbol := range symbols {
		if prices[symbol] <= 0 {
			return nil, errors.Newf(errors.ErrCodeMarketDataUnavailable, "no price returned for %s", symbol)
		}
	}

	return prices, nil
}

// GetSymbolFilters returns the cached filters for a symbol, loading them on first use.
func (b *BinanceExchange) GetSymbolFilters(ctx context.Context, symbol string) (types.SymbolFilters, error) {
	b.filtersMu.RLock()
	cached, ok := b.filters[symbol]
	b.filtersMu.RUnlock()

	if ok {
		return cached, nil
	}

	info, err := b.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.SymbolFilters{}, wrapBinanceError(err, "failed to get exchange info from Binance")
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}

		filters := convertSymbolFilters(s)

		b.filtersMu.Lock()
		b.filters[symbol] = filters
		b.filtersMu.Unlock()

		return filters, nil
	}

	return types.SymbolFilters{}, errors.Newf(errors.ErrCodeInvalidSymbol, "symbol %s is not listed on Binance", symbol)
}

// GetBalance returns the balance of one asset. Assets absent from the account have a zero balance.
func (b *BinanceExchange) GetBalance(ctx context.Context, asset string) (types.Balance, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.Balance{}, wrapBinanceError(err, "failed to get account info from Binance")
	}

	for _, balance := range account.Balances {
		if balance.Asset != asset {
			continue
		}

		free, freeErr := decimal.NewFromString(balance.Free)
		locked, lockedErr := decimal.NewFromString(balance.Locked)

		if freeErr != nil || lockedErr != nil {
			return types.Balance{}, errors.Newf(errors.ErrCodeMarketDataParseFailed,
				"invalid balance for %s: free=%q locked=%q", asset, balance.Free, balance.Locked)
		}

		return types.Balance{Asset: asset, Free: free, Locked: locked}, nil
	}

	return types.Balance{Asset: asset, Free: decimal.Zero, Locked: decimal.Zero}, nil
}

// PlaceOrder submits a single order and converts the FULL response into a Fill.
func (b *BinanceExchange) PlaceOrder(ctx context.Context, order types.OrderRequest) (types.Fill, error) {
	if err := order.Validate(); err != nil {
		return types.Fill{}, err
	}

	var side binance.SideType

	switch order.Side {
	case types.PurchaseTypeBuy:
		side = binance.SideTypeBuy
	case types.PurchaseTypeSell:
		side = binance.SideTypeSell
	default:
		return types.Fill{}, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", order.Side)
	}

	var orderType binance.OrderType

	switch order.OrderType {
	case types.OrderTypeMarket:
		orderType = binance.OrderTypeMarket
	case types.OrderTypeLimit:
		orderType = binance.OrderTypeLimit
	default:
		return types.Fill{}, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order type: %s", order.OrderType)
	}

	base, quote, precision := b.orderFormat(ctx, order.Symbol)

	quantity := order.Quantity.Truncate(precision)
	if !quantity.IsPositive() {
		return types.Fill{}, errors.Newf(errors.ErrCodeOrderTooSmall,
			"order quantity %s is too small after truncating to %d decimal places", order.Quantity, precision)
	}

	orderService := b.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(side).
		Type(orderType).
		Quantity(quantity.String()).
		NewClientOrderID(order.ID).
		NewOrderRespType(binance.NewOrderRespTypeFULL)

	if order.OrderType == types.OrderTypeLimit {
		orderService = orderService.
			Price(strconv.FormatFloat(order.Price, 'f', -1, 64)).
			TimeInForce(binance.TimeInForceTypeGTC)
	}

	resp, err := orderService.Do(ctx)
	if err != nil {
		return types.Fill{}, wrapBinanceError(err, "failed to place order on Binance")
	}

	fill := convertOrderResponse(resp, order, base, quote)

	if fill.IsEmpty() {
		switch fill.Status {
		case types.OrderStatusRejected, types.OrderStatusExpired, types.OrderStatusCancelled:
			return fill, errors.Newf(errors.ErrCodeOrderRejectedByExchange,
				"order %s for %s ended %s without execution", fill.OrderID, order.Symbol, fill.Status)
		}
	}

	return fill, nil
}

// GetRecentPrices returns the most recent closes, oldest first.
func (b *BinanceExchange) GetRecentPrices(ctx context.Context, symbol string, interval string, limit int) ([]types.PricePoint, error) {
	if limit <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "kline limit must be positive, got %d", limit)
	}

	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, wrapBinanceError(err, "failed to fetch klines from Binance")
	}

	points := make([]types.PricePoint, 0, len(klines))

	for _, k := range klines {
		closePrice, parseErr := strconv.ParseFloat(k.Close, 64)
		if parseErr != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, parseErr, "invalid close %q for %s", k.Close, symbol)
		}

		points = append(points, types.PricePoint{
			Symbol: symbol,
			Time:   time.UnixMilli(k.CloseTime),
			Close:  closePrice,
		})
	}

	return points, nil
}

// CheckConnection verifies connectivity and authentication with a signed account request.
func (b *BinanceExchange) CheckConnection(ctx context.Context) error {
	_, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return wrapBinanceError(err, "failed to connect to Binance API")
	}

	return nil
}

// orderFormat resolves base and quote assets and the quantity precision from the cached filters.
// Without filters the assets come from the symbol suffix and the default precision is used.
func (b *BinanceExchange) orderFormat(ctx context.Context, symbol string) (string, string, int32) {
	filters, err := b.GetSymbolFilters(ctx, symbol)
	if err == nil && filters.BaseAsset != "" {
		precision := b.decimalPrecision
		if filters.StepSize.IsPositive() {
			precision = sizing.PrecisionFromStep(filters.StepSize)
		}

		return filters.BaseAsset, filters.QuoteAsset, precision
	}

	base, quote, _ := types.SplitSymbol(symbol)

	return base, quote, b.decimalPrecision
}

// Helper functions

// wrapBinanceError maps API rejections to ErrCodeOrderRejectedByExchange and everything else
// (transport, timeouts, cancellation) to ErrCodeExchangeUnavailable.
func wrapBinanceError(err error, message string) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return errors.Wrapf(errors.ErrCodeOrderRejectedByExchange, err, "%s (code %d)", message, apiErr.Code)
	}

	return errors.Wrap(errors.ErrCodeExchangeUnavailable, message, err)
}

// mapBinanceOrderStatus maps Binance order status to our OrderStatus type.
func mapBinanceOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew:
		return types.OrderStatusNew
	case binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPartiallyFilled
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypePendingCancel:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	case binance.OrderStatusTypeExpired:
		return types.OrderStatusExpired
	default:
		return types.OrderStatusRejected
	}
}

func parseDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}

	return d
}

// convertSymbolFilters reads LOT_SIZE and NOTIONAL (or the older MIN_NOTIONAL) filters.
func convertSymbolFilters(s binance.Symbol) types.SymbolFilters {
	filters := types.SymbolFilters{
		Symbol:      s.Symbol,
		BaseAsset:   s.BaseAsset,
		QuoteAsset:  s.QuoteAsset,
		StepSize:    decimal.Zero,
		MinQty:      decimal.Zero,
		MinNotional: decimal.Zero,
	}

	if lot := s.LotSizeFilter(); lot != nil {
		filters.StepSize = parseDecimal(lot.StepSize)
		filters.MinQty = parseDecimal(lot.MinQuantity)
	}

	if notional := s.NotionalFilter(); notional != nil {
		filters.MinNotional = parseDecimal(notional.MinNotional)
	} else if minNotional, ok := legacyMinNotional(s); ok {
		filters.MinNotional = minNotional
	}

	return filters
}

// legacyMinNotional reads the MIN_NOTIONAL filter some symbols still report instead of NOTIONAL.
func legacyMinNotional(s binance.Symbol) (decimal.Decimal, bool) {
	for _, filter := range s.Filters {
		if filterType, _ := filter["filterType"].(string); filterType != string(binance.SymbolFilterTypeMinNotional) {
			continue
		}

		value, ok := filter["minNotional"].(string)
		if !ok {
			return decimal.Zero, false
		}

		return parseDecimal(value), true
	}

	return decimal.Zero, false
}

// convertOrderResponse converts a FULL order response into a Fill.
// Commissions paid in the quote asset are summed as is; commissions paid in the base asset are
// valued at the trade price and flagged through FeeAsset so the ledger can net the received quantity.
// Commissions in any other asset are left to the fee model.
func convertOrderResponse(resp *binance.CreateOrderResponse, order types.OrderRequest, base, quote string) types.Fill {
	executed := parseDecimal(resp.ExecutedQuantity)
	quoteQty := parseDecimal(resp.CummulativeQuoteQuantity)

	price := decimal.Zero
	if executed.IsPositive() && quoteQty.IsPositive() {
		price = quoteQty.Div(executed)
	}

	fee := decimal.Zero
	feeAsset := quote

	for _, f := range resp.Fills {
		commission := parseDecimal(f.Commission)
		if !commission.IsPositive() {
			continue
		}

		switch f.CommissionAsset {
		case quote:
			fee = fee.Add(commission)
		case base:
			fee = fee.Add(commission.Mul(parseDecimal(f.Price)))
			feeAsset = base
		default:
			feeAsset = f.CommissionAsset
		}
	}

	executedAt := time.Now()
	if resp.TransactTime > 0 {
		executedAt = time.UnixMilli(resp.TransactTime)
	}

	return types.Fill{
		OrderID:     strconv.FormatInt(resp.OrderID, 10),
		Symbol:      order.Symbol,
		Side:        order.Side,
		Status:      mapBinanceOrderStatus(resp.Status),
		ExecutedQty: executed,
		QuoteQty:    quoteQty,
		Price:       price,
		Fee:         fee,
		FeeAsset:    feeAsset,
		ExecutedAt:  executedAt,
	}
}

// Ensure BinanceExchange implements Exchange.
var _ Exchange = (*BinanceExchange)(nil)
