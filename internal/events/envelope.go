package events

import (
	"encoding/json"
	"time"
)

// Envelope wraps a serialized event payload with routing and correlation
// metadata. The correlation identifiers originate from the inbound HTTP
// request and travel with the event through the publish → consume hop.
type Envelope struct {
	Kind          Kind            `json:"kind"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Family        string          `json:"family"`
	OccurredAt    time.Time       `json:"occurred_at"`
	OperationID   string          `json:"operation_id,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	TraceID       string          `json:"trace_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}
