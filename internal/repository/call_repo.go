package repository

import (
	"context"
	"time"

	"github.com/listenline/ListenLineBack/internal/models"
)

type CallRepository struct {
	db DBTX
}

func NewCallRepository(db DBTX) *CallRepository {
	return &CallRepository{db: db}
}

const callColumns = `id, session_id, caller_id, receiver_id, call_type,
		start_time, end_time, duration_seconds, status`

func scanCall(row interface{ Scan(dest ...any) error }) (*models.CallLog, error) {
	var call models.CallLog
	err := row.Scan(
		&call.ID,
		&call.SessionID,
		&call.CallerID,
		&call.ReceiverID,
		&call.CallType,
		&call.StartTime,
		&call.EndTime,
		&call.DurationSeconds,
		&call.Status,
	)
	if err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *CallRepository) Create(
	ctx context.Context,
	sessionID int64,
	callerID int64,
	receiverID int64,
	callType string,
) (*models.CallLog, error) {
	query := `
		INSERT INTO call_logs (session_id, caller_id, receiver_id, call_type, start_time, status)
		VALUES ($1, $2, $3, $4, NOW(), 'initiated')
		RETURNING ` + callColumns + `
	`
	return scanCall(r.db.QueryRow(ctx, query, sessionID, callerID, receiverID, callType))
}

func (r *CallRepository) GetByID(ctx context.Context, callID int64) (*models.CallLog, error) {
	query := `SELECT ` + callColumns + ` FROM call_logs WHERE id = $1`
	return scanCall(r.db.QueryRow(ctx, query, callID))
}

// TransitionIfCurrent moves a call from exactly currentStatus to nextStatus.
// Concurrent accept/reject/end pairs race on this update and exactly one
// wins; losers see pgx.ErrNoRows.
func (r *CallRepository) TransitionIfCurrent(
	ctx context.Context,
	callID int64,
	currentStatus string,
	nextStatus string,
) (*models.CallLog, error) {
	query := `
		UPDATE call_logs
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING ` + callColumns + `
	`
	return scanCall(r.db.QueryRow(ctx, query, callID, currentStatus, nextStatus))
}

// FinishIfCurrent is TransitionIfCurrent for transitions that also close the
// call out with an end time and final duration.
func (r *CallRepository) FinishIfCurrent(
	ctx context.Context,
	callID int64,
	currentStatus string,
	nextStatus string,
	endTime time.Time,
	durationSeconds int64,
) (*models.CallLog, error) {
	query := `
		UPDATE call_logs
		SET status = $3, end_time = $4, duration_seconds = $5
		WHERE id = $1 AND status = $2
		RETURNING ` + callColumns + `
	`
	return scanCall(r.db.QueryRow(ctx, query, callID, currentStatus, nextStatus, endTime, durationSeconds))
}

// ListOpenBefore returns calls still initiated or ongoing whose start time is
// older than the cutoff. The reconcile sweep fails these.
func (r *CallRepository) ListOpenBefore(ctx context.Context, cutoff time.Time) ([]models.CallLog, error) {
	query := `
		SELECT ` + callColumns + `
		FROM call_logs
		WHERE status IN ('initiated', 'ongoing') AND start_time < $1
		ORDER BY start_time
	`
	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calls := make([]models.CallLog, 0)
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, *call)
	}
	return calls, rows.Err()
}
