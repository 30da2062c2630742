package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries     = 3
	DefaultRetryDelayBase = time.Second
)

// Sender is the part of the Telegram bot API used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends MarkdownV2 alerts to one chat.
type TelegramNotifier struct {
	sender         Sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	lastError map[types.StrategyName]string
}

// NewTelegramNotifier connects to the bot API with token and sends to chatID.
func NewTelegramNotifier(token, chatID string, log *logger.Logger) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "invalid telegram chat id", err)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotificationFailed, "failed to create telegram bot", err)
	}

	return NewTelegramNotifierWithSender(bot, id, log), nil
}

// NewTelegramNotifierWithSender creates a notifier over an existing sender.
func NewTelegramNotifierWithSender(sender Sender, chatID int64, log *logger.Logger) *TelegramNotifier {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &TelegramNotifier{
		sender:         sender,
		chatID:         chatID,
		maxRetries:     DefaultMaxRetries,
		retryDelayBase: DefaultRetryDelayBase,
		log:            log.Named("telegram"),
		mu:             sync.Mutex{},
		lastError:      make(map[types.StrategyName]string),
	}
}

// send delivers text with linear-backoff retry.
func (t *TelegramNotifier) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error

	for i := range t.maxRetries {
		if _, err := t.sender.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}

		t.log.Debug("Telegram send failed, retrying", zap.Int("attempt", i+1), zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return errors.Wrap(errors.ErrCodeNotificationFailed, "telegram send cancelled", ctx.Err())
		case <-time.After(t.retryDelayBase * time.Duration(i+1)):
		}
	}

	return errors.Wrapf(errors.ErrCodeNotificationFailed, lastErr, "failed after %d retries", t.maxRetries)
}

func (t *TelegramNotifier) NotifyTrade(ctx context.Context, trade types.TradeRecord) error {
	t.mu.Lock()
	delete(t.lastError, trade.Engine)
	t.mu.Unlock()

	return t.send(ctx, formatTrade(trade))
}

// NotifyError only sends the first of a run of identical errors from an engine.
func (t *TelegramNotifier) NotifyError(ctx context.Context, engine types.StrategyName, err error) error {
	if err == nil {
		return nil
	}

	text := err.Error()

	t.mu.Lock()
	if t.lastError[engine] == text {
		t.mu.Unlock()

		return nil
	}

	t.lastError[engine] = text
	t.mu.Unlock()

	return t.send(ctx, fmt.Sprintf("⚠️ *%s error*\n`%s`", escapeMarkdownV2(string(engine)), escapeMarkdownV2(text)))
}

func (t *TelegramNotifier) NotifyEngineState(ctx context.Context, engine types.StrategyName, state types.EngineState, cause error) error {
	text := fmt.Sprintf("🔔 *%s* is now %s", escapeMarkdownV2(string(engine)), escapeMarkdownV2(string(state)))
	if cause != nil {
		text += fmt.Sprintf("\n`%s`", escapeMarkdownV2(cause.Error()))
	}

	return t.send(ctx, text)
}

func formatTrade(trade types.TradeRecord) string {
	emoji := "🟢"
	if trade.Side == types.PurchaseTypeSell {
		emoji = "🔴"
	}

	origin := "signal"
	if trade.Manual {
		origin = "manual"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s *%s %s* %s\n", emoji, escapeMarkdownV2(string(trade.Side)),
		escapeMarkdownV2(trade.Symbol), escapeMarkdownV2("("+string(trade.Engine)+")"))
	fmt.Fprintf(&b, "Qty: %s @ %s\n",
		escapeMarkdownV2(strconv.FormatFloat(trade.Quantity, 'f', -1, 64)),
		escapeMarkdownV2(strconv.FormatFloat(trade.Price, 'f', -1, 64)))
	fmt.Fprintf(&b, "Fee: %s\n", escapeMarkdownV2(strconv.FormatFloat(trade.Fee, 'f', -1, 64)))

	if trade.RealizedPnL != 0 {
		fmt.Fprintf(&b, "PnL: %s\n", escapeMarkdownV2(strconv.FormatFloat(trade.RealizedPnL, 'f', 4, 64)))
	}

	fmt.Fprintf(&b, "Reason: %s", escapeMarkdownV2(string(trade.Reason)+" / "+origin))

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder

	b.Grow(len(text) + len(text)/4)

	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}

		b.WriteRune(char)
	}

	return b.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
