// Package outbox defines the durable staging records that tie outgoing domain
// events to the database transaction of the write that caused them.
package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery state of an outbox record
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDelivered Status = "DELIVERED"
	StatusDead      Status = "DEAD"
	StatusExpired   Status = "EXPIRED"
)

// Record pairs a serialized domain event with its delivery metadata. A record
// exists if and only if the business mutation it describes was committed: it
// is inserted in the same transaction as the business write.
type Record struct {
	// Position is the database-assigned sequence number; publication order
	// follows it, not the wall clock. Zero until the record is read back.
	Position      int64
	ID            uuid.UUID
	Kind          string
	AggregateType string
	AggregateID   string
	Family        string
	Payload       []byte
	OperationID   string
	RequestID     string
	TraceID       string
	Status        Status
	RetryCount    int
	LastError     string
	NextAttemptAt *time.Time
	ExpiresAt     time.Time
	CreatedAt     time.Time
	DeliveredAt   *time.Time
}

// DeadLetter captures terminal failures - records that exhausted their
// retries, and consumed messages that failed validation or exceeded the
// broker's redelivery budget - for auditing and manual remediation.
type DeadLetter struct {
	ID       uuid.UUID
	EventID  string
	Kind     string
	Payload  []byte
	Reason   string
	Message  string
	Attempts int
	FailedAt time.Time
}

// Dead-letter reasons.
const (
	ReasonMaxRetries    = "max_retries_exceeded"
	ReasonRejected      = "validation_rejected"
	ReasonMaxDeliveries = "max_deliveries_exceeded"
)
