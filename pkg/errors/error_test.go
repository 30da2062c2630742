package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeOrderTooSmall, "order too small")
	suite.NotNil(err)
	suite.Equal(ErrCodeOrderTooSmall, err.Code)
	suite.Equal("order too small", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeConfigInvalid, "window size %d below minimum", 1)
	suite.Equal(ErrCodeConfigInvalid, err.Code)
	suite.Equal("window size 1 below minimum", err.Message)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("timeout")
	err := Wrapf(ErrCodeMarketDataUnavailable, cause, "failed to fetch %s", "BTCUSDT")
	suite.Equal("failed to fetch BTCUSDT", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeOrderTooSmall, "order too small")
	suite.Equal("[500] order too small", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("connection reset")
	err := Wrap(ErrCodeMarketDataUnavailable, "failed to fetch prices", cause)
	suite.Equal("[700] failed to fetch prices: connection reset", err.Error())
	suite.Equal(cause, err.Unwrap())
	suite.True(Is(err, cause))
}

func (suite *ErrorTestSuite) TestGetCode() {
	cause := New(ErrCodeExchangeUnavailable, "exchange down")
	err := Wrap(ErrCodeMarketDataUnavailable, "price fetch failed", cause)
	suite.Equal(ErrCodeMarketDataUnavailable, GetCode(err))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain")))
	suite.Equal(ErrCodeOrderTooSmall, GetCode(fmt.Errorf("context: %w", New(ErrCodeOrderTooSmall, "x"))))
}

func (suite *ErrorTestSuite) TestHasCodeInChain() {
	inner := New(ErrCodeOrderRejectedByExchange, "LOT_SIZE")
	err := Wrap(ErrCodeCallbackFailed, "manual trade failed", inner)

	suite.False(HasCode(err, ErrCodeOrderRejectedByExchange))
	suite.True(HasCodeInChain(err, ErrCodeOrderRejectedByExchange))
	suite.True(HasCodeInChain(err, ErrCodeCallbackFailed))
	suite.False(HasCodeInChain(err, ErrCodeOrderTooSmall))
	suite.False(HasCodeInChain(nil, ErrCodeOrderTooSmall))
}

func (suite *ErrorTestSuite) TestAsError() {
	err := New(ErrCodeInsufficientBalance, "no balance")
	var coded *Error
	suite.True(As(err, &coded))
	suite.Equal(ErrCodeInsufficientBalance, coded.Code)
}

func (suite *ErrorTestSuite) TestClassification() {
	testCases := []struct {
		name      string
		err       error
		transient bool
		rejection bool
	}{
		{"market data", New(ErrCodeMarketDataUnavailable, "x"), true, false},
		{"exchange transport", New(ErrCodeExchangeUnavailable, "x"), true, false},
		{"too small", New(ErrCodeOrderTooSmall, "x"), false, true},
		{"exchange rejected", New(ErrCodeOrderRejectedByExchange, "x"), false, true},
		{"balance", New(ErrCodeInsufficientBalance, "x"), false, true},
		{"config", New(ErrCodeConfigInvalid, "x"), false, false},
		{"plain", errors.New("x"), false, false},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			suite.Equal(tc.transient, IsTransient(tc.err))
			suite.Equal(tc.rejection, IsOrderRejection(tc.err))
		})
	}
}

func (suite *ErrorTestSuite) TestErrorCodeValues() {
	suite.Equal(ErrorCode(1), ErrCodeUnknown)
	suite.Equal(ErrorCode(101), ErrCodeConfigInvalid)
	suite.Equal(ErrorCode(500), ErrCodeOrderTooSmall)
	suite.Equal(ErrorCode(501), ErrCodeOrderRejectedByExchange)
	suite.Equal(ErrorCode(502), ErrCodeInsufficientBalance)
	suite.Equal(ErrorCode(503), ErrCodeConcurrentMutation)
	suite.Equal(ErrorCode(700), ErrCodeMarketDataUnavailable)
}

func (suite *ErrorTestSuite) TestErrorCodeString() {
	suite.Equal("order_too_small", ErrCodeOrderTooSmall.String())
	suite.Equal("partial_rotation", ErrCodePartialRotation.String())
	suite.Equal("unknown", ErrorCode(9999).String())
	suite.Equal("[500] too small", New(ErrCodeOrderTooSmall, "too small").Error())
}
