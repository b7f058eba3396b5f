package core

// EngineEventType identifies a lifecycle event emitted by the compute
// service around one pipeline invocation.
type EngineEventType string

const (
	ComputeStart   EngineEventType = "compute:start"
	ComputeSuccess EngineEventType = "compute:success"
	ComputeFailed  EngineEventType = "compute:failed"
	ExtractStart   EngineEventType = "extract:start"
	ExtractSuccess EngineEventType = "extract:success"
	ExtractFailed  EngineEventType = "extract:failed"
)

// EngineEvent is the payload published on the engine's typed event bus.
// RequestID ties the start/success/failed events of one invocation
// together.
type EngineEvent struct {
	Type      EngineEventType `json:"type"`
	RequestID string          `json:"requestId"`
	Timestamp int64           `json:"timestamp"` // Unix milliseconds.
	RowsIn    int             `json:"rowsIn,omitempty"`
	RowsOut   int             `json:"rowsOut,omitempty"`
	Error     *string         `json:"error,omitempty"`
	Duration  *int64          `json:"duration,omitempty"` // Milliseconds.
}
