package tui

import (
	"context"

	"github.com/rxtech-lab/argo-signal/internal/types"
)

// StatusMsg carries a new status for one engine.
type StatusMsg struct {
	Status types.EngineStatus
}

// EventMsg carries a one-line summary of a trade or error event.
type EventMsg struct {
	Line string
}

// StreamErrorMsg indicates an error in the status stream.
type StreamErrorMsg struct {
	Err error
}

// StreamStartedMsg signals that streaming has begun. Cancel stops it.
type StreamStartedMsg struct {
	Cancel context.CancelFunc
}

// ActionResultMsg reports the outcome of an engine action sent to the API.
type ActionResultMsg struct {
	Engine types.StrategyName
	Action string
	Err    error
}
