package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

const actionTimeout = 15 * time.Second

// Client talks to the dashboard API of a running argo-signal server.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: actionTimeout}}
}

// apiError mirrors the error body of the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Do posts an action to one engine.
func (c *Client) Do(ctx context.Context, engine types.StrategyName, action string) error {
	url := fmt.Sprintf("%s/api/v1/engines/%s/%s", c.baseURL, engine, action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "failed to build request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeExchangeUnavailable, err, "failed to reach %s", c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	var body apiError
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Message == "" {
		return errors.Newf(errors.ErrCodeUnknown, "%s %s failed with HTTP %d", engine, action, resp.StatusCode)
	}

	return errors.Newf(errors.ErrCodeUnknown, "%s: %s", body.Error, body.Message)
}

func (c *Client) actionCmd(engine types.StrategyName, action string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		return ActionResultMsg{Engine: engine, Action: action, Err: c.Do(ctx, engine, action)}
	}
}

// wireEvent is an event as received from the stream, payload still encoded.
type wireEvent struct {
	Type    string             `json:"type"`
	Engine  types.StrategyName `json:"engine"`
	Time    time.Time          `json:"time"`
	Payload json.RawMessage    `json:"payload"`
}

// decodeEvent turns a stream message into a tea message.
func decodeEvent(data []byte) (tea.Msg, error) {
	var ev wireEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid stream event", err)
	}

	stamp := ev.Time.Format("15:04:05")

	switch ev.Type {
	case "status":
		var status types.EngineStatus
		if err := json.Unmarshal(ev.Payload, &status); err != nil {
			return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid status payload", err)
		}

		return StatusMsg{Status: status}, nil

	case "trade":
		var trade types.TradeRecord
		if err := json.Unmarshal(ev.Payload, &trade); err != nil {
			return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid trade payload", err)
		}

		return EventMsg{Line: fmt.Sprintf("%s %s %s %s %.6f @ %.4f (%s)",
			stamp, ev.Engine, trade.Side, trade.Symbol, trade.Quantity, trade.Price, trade.Reason)}, nil

	case "error":
		var body struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(ev.Payload, &body)

		return EventMsg{Line: fmt.Sprintf("%s %s error: %s", stamp, ev.Engine, body.Message)}, nil

	default:
		return nil, nil
	}
}

// stream reads events from the server until ctx is done and sends them to p.
func stream(ctx context.Context, p *tea.Program, wsURL string) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		p.Send(StreamErrorMsg{Err: errors.Wrapf(errors.ErrCodeExchangeUnavailable, err, "failed to connect to %s", wsURL)})

		return
	}

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				p.Send(StreamErrorMsg{Err: errors.Wrap(errors.ErrCodeExchangeUnavailable, "stream closed", err)})
			}

			return
		}

		msg, err := decodeEvent(data)
		if err != nil {
			p.Send(StreamErrorMsg{Err: err})

			continue
		}

		if msg != nil {
			p.Send(msg)
		}
	}
}
