package repository

import (
	"context"
	"time"

	"github.com/listenline/ListenLineBack/internal/models"
)

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, listener_id, type, start_time, end_time,
		duration_minutes, status, payment_status, amount,
		ended_by_type, ended_by_id, ended_reason, created_at, updated_at`

func scanSession(row interface{ Scan(dest ...any) error }) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.ListenerID,
		&session.Type,
		&session.StartTime,
		&session.EndTime,
		&session.DurationMinutes,
		&session.Status,
		&session.PaymentStatus,
		&session.Amount,
		&session.EndedByType,
		&session.EndedByID,
		&session.EndedReason,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

// FindActive returns the pending or ongoing session for the exact
// (user, listener, type) tuple, if one exists.
func (r *SessionRepository) FindActive(
	ctx context.Context,
	userID int64,
	listenerID int64,
	sessionType string,
) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND listener_id = $2 AND type = $3
		  AND status IN ('pending', 'ongoing')
	`
	return scanSession(r.db.QueryRow(ctx, query, userID, listenerID, sessionType))
}

// CreateActive inserts a new ongoing session. The insert rides on the partial
// unique index over active tuples: a concurrent insert for the same tuple
// loses the conflict and gets pgx.ErrNoRows back, in which case the caller
// re-reads the winner via FindActive.
func (r *SessionRepository) CreateActive(
	ctx context.Context,
	userID int64,
	listenerID int64,
	sessionType string,
) (*models.Session, error) {
	query := `
		INSERT INTO sessions (user_id, listener_id, type, start_time, status, amount)
		VALUES ($1, $2, $3, NOW(), 'ongoing', 0)
		ON CONFLICT (user_id, listener_id, type) WHERE status IN ('pending', 'ongoing')
		DO NOTHING
		RETURNING ` + sessionColumns + `
	`
	return scanSession(r.db.QueryRow(ctx, query, userID, listenerID, sessionType))
}

// CompleteIfActive terminates a session only while it is still pending or
// ongoing; a second concurrent end loses the conditional update and gets
// pgx.ErrNoRows.
func (r *SessionRepository) CompleteIfActive(
	ctx context.Context,
	sessionID int64,
	endTime time.Time,
	durationMinutes int,
	endedByType string,
	endedByID int64,
	endedReason *string,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'completed',
		    end_time = $2,
		    duration_minutes = $3,
		    ended_by_type = $4,
		    ended_by_id = $5,
		    ended_reason = $6,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'ongoing')
		RETURNING ` + sessionColumns + `
	`
	return scanSession(r.db.QueryRow(
		ctx,
		query,
		sessionID,
		endTime,
		durationMinutes,
		endedByType,
		endedByID,
		endedReason,
	))
}

// CompleteStale closes out a session abandoned by both parties, leaving the
// ended-by fields empty. Used by the reconcile sweep only.
func (r *SessionRepository) CompleteStale(
	ctx context.Context,
	sessionID int64,
	endTime time.Time,
	durationMinutes int,
	reason string,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'completed',
		    end_time = $2,
		    duration_minutes = $3,
		    ended_reason = $4,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'ongoing')
		RETURNING ` + sessionColumns + `
	`
	return scanSession(r.db.QueryRow(ctx, query, sessionID, endTime, durationMinutes, reason))
}

func (r *SessionRepository) ListForUser(
	ctx context.Context,
	userID int64,
	limit int,
	offset int,
) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, userID, limit, offset)
}

func (r *SessionRepository) ListForListener(
	ctx context.Context,
	listenerID int64,
	limit int,
	offset int,
) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE listener_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, listenerID, limit, offset)
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}
