package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type recordingSender struct {
	failures int
	sent     []tgbotapi.MessageConfig
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if r.failures > 0 {
		r.failures--

		return tgbotapi.Message{}, fmt.Errorf("telegram unavailable")
	}

	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		r.sent = append(r.sent, msg)
	}

	return tgbotapi.Message{}, nil
}

type TelegramNotifierTestSuite struct {
	suite.Suite
	sender   *recordingSender
	notifier *TelegramNotifier
}

func TestTelegramNotifierSuite(t *testing.T) {
	suite.Run(t, new(TelegramNotifierTestSuite))
}

func (s *TelegramNotifierTestSuite) SetupTest() {
	s.sender = &recordingSender{failures: 0, sent: nil}
	s.notifier = NewTelegramNotifierWithSender(s.sender, 42, logger.NewNopLogger())
	s.notifier.retryDelayBase = time.Millisecond
}

func (s *TelegramNotifierTestSuite) TestNotifyTrade() {
	err := s.notifier.NotifyTrade(context.Background(), types.TradeRecord{
		Engine:      types.StrategyBollinger,
		Symbol:      "BNBUSDC",
		Side:        types.PurchaseTypeSell,
		Quantity:    1.5,
		Price:       600.25,
		Fee:         0.9,
		RealizedPnL: 12.5,
		Reason:      types.ReasonTakeProfit,
		Manual:      false,
	})
	s.Require().NoError(err)
	s.Require().Len(s.sender.sent, 1)

	msg := s.sender.sent[0]
	s.Equal(int64(42), msg.ChatID)
	s.Equal(tgbotapi.ModeMarkdownV2, msg.ParseMode)
	s.Contains(msg.Text, "*SELL BNBUSDC*")
	s.Contains(msg.Text, "600\\.25")
	s.Contains(msg.Text, "PnL: 12\\.5000")
	s.Contains(msg.Text, "take\\_profit / signal")
}

func (s *TelegramNotifierTestSuite) TestRepeatedErrorsAreSuppressed() {
	ctx := context.Background()
	err := errors.New(errors.ErrCodeMarketDataUnavailable, "no valid price for BNBUSDC")

	s.Require().NoError(s.notifier.NotifyError(ctx, types.StrategyBollinger, err))
	s.Require().NoError(s.notifier.NotifyError(ctx, types.StrategyBollinger, err))
	s.Len(s.sender.sent, 1)

	// another engine reports independently
	s.Require().NoError(s.notifier.NotifyError(ctx, types.StrategyTrendFollowing, err))
	s.Len(s.sender.sent, 2)

	// a trade clears the run
	s.Require().NoError(s.notifier.NotifyTrade(ctx, types.TradeRecord{Engine: types.StrategyBollinger}))
	s.Require().NoError(s.notifier.NotifyError(ctx, types.StrategyBollinger, err))
	s.Len(s.sender.sent, 4)
}

func (s *TelegramNotifierTestSuite) TestRetriesThenSucceeds() {
	s.sender.failures = 2

	err := s.notifier.NotifyEngineState(context.Background(), types.StrategyMeanReversion, types.EngineStateRunning, nil)
	s.Require().NoError(err)
	s.Len(s.sender.sent, 1)
	s.Contains(s.sender.sent[0].Text, "mean\\_reversion")
}

func (s *TelegramNotifierTestSuite) TestGivesUpAfterMaxRetries() {
	s.sender.failures = DefaultMaxRetries

	err := s.notifier.NotifyEngineState(context.Background(), types.StrategyBollinger, types.EngineStateStopped, nil)
	s.True(errors.HasCode(err, errors.ErrCodeNotificationFailed))
	s.Empty(s.sender.sent)
}

func (s *TelegramNotifierTestSuite) TestInvalidChatID() {
	_, err := NewTelegramNotifier("token", "not-a-number", logger.NewNopLogger())
	s.True(errors.HasCode(err, errors.ErrCodeConfigInvalid))
}

func (s *TelegramNotifierTestSuite) TestEscapeMarkdownV2() {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"mean_reversion", "mean\\_reversion"},
		{"Price: $100.50", "Price: $100\\.50"},
		{"[link](url)", "\\[link\\]\\(url\\)"},
		{"+plus-minus", "\\+plus\\-minus"},
		{"", ""},
	}

	for _, tt := range tests {
		s.Run(tt.input, func() {
			s.Equal(tt.expected, escapeMarkdownV2(tt.input))
		})
	}
}
