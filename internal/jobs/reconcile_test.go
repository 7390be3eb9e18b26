package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/listenline/ListenLineBack/internal/models"
	"github.com/stretchr/testify/require"
)

type finishCall struct {
	callID   int64
	current  string
	next     string
	duration int64
}

type stubCallSweep struct {
	open      []models.CallLog
	listErr   error
	finishErr map[int64]error
	finished  []finishCall
}

func (s *stubCallSweep) ListOpenBefore(_ context.Context, _ time.Time) ([]models.CallLog, error) {
	return s.open, s.listErr
}

func (s *stubCallSweep) FinishIfCurrent(
	_ context.Context,
	callID int64,
	currentStatus string,
	nextStatus string,
	_ time.Time,
	durationSeconds int64,
) (*models.CallLog, error) {
	if err := s.finishErr[callID]; err != nil {
		return nil, err
	}
	s.finished = append(s.finished, finishCall{callID: callID, current: currentStatus, next: nextStatus, duration: durationSeconds})
	return &models.CallLog{ID: callID, Status: nextStatus}, nil
}

type completedSession struct {
	sessionID int64
	minutes   int
	reason    string
}

type stubSessionSweep struct {
	completeErr map[int64]error
	completed   []completedSession
}

func (s *stubSessionSweep) CompleteStale(
	_ context.Context,
	sessionID int64,
	_ time.Time,
	durationMinutes int,
	reason string,
) (*models.Session, error) {
	if err := s.completeErr[sessionID]; err != nil {
		return nil, err
	}
	s.completed = append(s.completed, completedSession{sessionID: sessionID, minutes: durationMinutes, reason: reason})
	return &models.Session{ID: sessionID, Status: models.SessionStatusCompleted}, nil
}

func TestSweepClosesStaleCallsByPhase(t *testing.T) {
	started := time.Now().UTC().Add(-3 * time.Hour)
	calls := &stubCallSweep{
		open: []models.CallLog{
			{ID: 1, SessionID: 10, StartTime: started, Status: models.CallStatusInitiated},
			{ID: 2, SessionID: 11, StartTime: started, Status: models.CallStatusOngoing},
		},
	}
	sessions := &stubSessionSweep{}

	job := NewReconcileJob(calls, sessions, time.Minute, 2*time.Hour)
	job.Sweep()

	require.Len(t, calls.finished, 2)
	require.Equal(t, models.CallStatusMissed, calls.finished[0].next, "unanswered calls become missed")
	require.Equal(t, models.CallStatusFailed, calls.finished[1].next, "answered calls become failed")
	require.GreaterOrEqual(t, calls.finished[1].duration, int64(3*60*60-5))

	require.Len(t, sessions.completed, 2)
	require.Equal(t, int64(10), sessions.completed[0].sessionID)
	require.GreaterOrEqual(t, sessions.completed[0].minutes, 180)
	require.Equal(t, "reconciled stale call", sessions.completed[0].reason)
}

func TestSweepToleratesRacingTransitions(t *testing.T) {
	started := time.Now().UTC().Add(-3 * time.Hour)
	calls := &stubCallSweep{
		open: []models.CallLog{
			{ID: 1, SessionID: 10, StartTime: started, Status: models.CallStatusOngoing},
			{ID: 2, SessionID: 11, StartTime: started, Status: models.CallStatusOngoing},
		},
		finishErr: map[int64]error{1: pgx.ErrNoRows},
	}
	sessions := &stubSessionSweep{completeErr: map[int64]error{11: pgx.ErrNoRows}}

	job := NewReconcileJob(calls, sessions, time.Minute, 2*time.Hour)
	job.Sweep()

	// Call 1 was closed by someone else; only call 2 gets swept, and its
	// already-ended session does not fail the sweep.
	require.Len(t, calls.finished, 1)
	require.Equal(t, int64(2), calls.finished[0].callID)
	require.Empty(t, sessions.completed)
}

func TestSweepStopsOnListError(t *testing.T) {
	calls := &stubCallSweep{listErr: context.DeadlineExceeded}
	sessions := &stubSessionSweep{}

	job := NewReconcileJob(calls, sessions, time.Minute, 2*time.Hour)
	job.Sweep()

	require.Empty(t, calls.finished)
	require.Empty(t, sessions.completed)
}

func TestStartStopTerminatesLoop(t *testing.T) {
	calls := &stubCallSweep{}
	sessions := &stubSessionSweep{}

	job := NewReconcileJob(calls, sessions, time.Hour, 2*time.Hour)
	job.Start()
	job.Stop()
}
