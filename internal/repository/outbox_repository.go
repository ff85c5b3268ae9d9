package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"grocerly/internal/domain/outbox"
)

type outboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) OutboxRepository {
	return &outboxRepository{db: db}
}

// Create inserts the record through tx so the event is committed atomically
// with the business write.
func (r *outboxRepository) Create(ctx context.Context, tx DBTX, rec *outbox.Record) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO outbox_records (id, kind, aggregate_type, aggregate_id, family, payload,
            operation_id, request_id, trace_id, status, retry_count, last_error,
            next_attempt_at, expires_at, created_at, delivered_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
    `,
		rec.ID,
		rec.Kind,
		rec.AggregateType,
		rec.AggregateID,
		rec.Family,
		rec.Payload,
		rec.OperationID,
		rec.RequestID,
		rec.TraceID,
		rec.Status,
		rec.RetryCount,
		rec.LastError,
		rec.NextAttemptAt,
		rec.ExpiresAt,
		rec.CreatedAt,
		rec.DeliveredAt,
	)
	return translateErr(err)
}

// GetDeliverable returns pending records due for an attempt, in position
// order. A record whose aggregate has an earlier pending record that is not
// yet due (failed, waiting out its retry delay) is held back, so per-aggregate
// insertion order survives the retry gap between polls.
func (r *outboxRepository) GetDeliverable(ctx context.Context, now time.Time, limit int) ([]outbox.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT position, id, kind, aggregate_type, aggregate_id, family, payload,
            operation_id, request_id, trace_id, status, retry_count, last_error,
            next_attempt_at, expires_at, created_at, delivered_at
        FROM outbox_records o
        WHERE o.status = $1
          AND (o.next_attempt_at IS NULL OR o.next_attempt_at <= $2)
          AND NOT EXISTS (
              SELECT 1 FROM outbox_records e
              WHERE e.status = $1
                AND e.aggregate_type = o.aggregate_type
                AND e.aggregate_id = o.aggregate_id
                AND e.position < o.position
                AND e.next_attempt_at IS NOT NULL
                AND e.next_attempt_at > $2
          )
        ORDER BY o.position ASC
        LIMIT $3
    `, outbox.StatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []outbox.Record
	for rows.Next() {
		var rec outbox.Record
		if err := rows.Scan(
			&rec.Position,
			&rec.ID,
			&rec.Kind,
			&rec.AggregateType,
			&rec.AggregateID,
			&rec.Family,
			&rec.Payload,
			&rec.OperationID,
			&rec.RequestID,
			&rec.TraceID,
			&rec.Status,
			&rec.RetryCount,
			&rec.LastError,
			&rec.NextAttemptAt,
			&rec.ExpiresAt,
			&rec.CreatedAt,
			&rec.DeliveredAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *outboxRepository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE outbox_records
        SET status = $1, delivered_at = $2, last_error = ''
        WHERE id = $3
    `, outbox.StatusDelivered, at, id)
	return err
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, nextAttempt time.Time, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE outbox_records
        SET retry_count = retry_count + 1, next_attempt_at = $1, last_error = $2
        WHERE id = $3
    `, nextAttempt, errMsg, id)
	return err
}

func (r *outboxRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE outbox_records
        SET status = $1
        WHERE id = $2
    `, outbox.StatusExpired, id)
	return err
}

func (r *outboxRepository) MarkDead(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE outbox_records
        SET status = $1, last_error = $2
        WHERE id = $3
    `, outbox.StatusDead, errMsg, id)
	return err
}

func (r *outboxRepository) PurgeDelivered(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        DELETE FROM outbox_records
        WHERE status = $1 AND delivered_at < $2
    `, outbox.StatusDelivered, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type deadLetterRepository struct {
	db DBTX
}

func NewDeadLetterRepository(db DBTX) DeadLetterRepository {
	return &deadLetterRepository{db: db}
}

func (r *deadLetterRepository) Create(ctx context.Context, d *outbox.DeadLetter) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO dead_letters (id, event_id, kind, payload, reason, message, attempts, failed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    `, d.ID, d.EventID, d.Kind, d.Payload, d.Reason, d.Message, d.Attempts, d.FailedAt)
	return translateErr(err)
}

func (r *deadLetterRepository) List(ctx context.Context, limit int) ([]outbox.DeadLetter, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, event_id, kind, payload, reason, message, attempts, failed_at
        FROM dead_letters
        ORDER BY failed_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var letters []outbox.DeadLetter
	for rows.Next() {
		var d outbox.DeadLetter
		if err := rows.Scan(&d.ID, &d.EventID, &d.Kind, &d.Payload, &d.Reason, &d.Message, &d.Attempts, &d.FailedAt); err != nil {
			return nil, err
		}
		letters = append(letters, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return letters, nil
}
