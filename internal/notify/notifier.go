// Package notify sends trade and error alerts to the operator.
package notify

import (
	"context"

	"github.com/rxtech-lab/argo-signal/internal/types"
)

// Notifier delivers operator alerts. Implementations must be safe for concurrent use.
type Notifier interface {
	// NotifyTrade reports an executed order leg.
	NotifyTrade(ctx context.Context, trade types.TradeRecord) error
	// NotifyError reports an engine error. Repeats of the same error may be suppressed.
	NotifyError(ctx context.Context, engine types.StrategyName, err error) error
	// NotifyEngineState reports an engine starting or stopping.
	NotifyEngineState(ctx context.Context, engine types.StrategyName, state types.EngineState, cause error) error
}

// NopNotifier drops every alert.
type NopNotifier struct{}

func (NopNotifier) NotifyTrade(context.Context, types.TradeRecord) error { return nil }

func (NopNotifier) NotifyError(context.Context, types.StrategyName, error) error { return nil }

func (NopNotifier) NotifyEngineState(context.Context, types.StrategyName, types.EngineState, error) error {
	return nil
}

var _ Notifier = NopNotifier{}
