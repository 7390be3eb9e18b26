package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/listenline/ListenLineBack/internal/models"
	"github.com/rs/zerolog/log"
)

type callSweepStore interface {
	ListOpenBefore(ctx context.Context, cutoff time.Time) ([]models.CallLog, error)
	FinishIfCurrent(
		ctx context.Context,
		callID int64,
		currentStatus string,
		nextStatus string,
		endTime time.Time,
		durationSeconds int64,
	) (*models.CallLog, error)
}

type sessionSweepStore interface {
	CompleteStale(
		ctx context.Context,
		sessionID int64,
		endTime time.Time,
		durationMinutes int,
		reason string,
	) (*models.Session, error)
}

// ReconcileJob periodically closes calls and sessions abandoned mid-flight:
// a client that vanishes leaves its call in the last persisted state, and
// nothing else ever touches it again.
type ReconcileJob struct {
	calls      callSweepStore
	sessions   sessionSweepStore
	interval   time.Duration
	staleAfter time.Duration
	done       chan struct{}
}

func NewReconcileJob(
	calls callSweepStore,
	sessions sessionSweepStore,
	interval time.Duration,
	staleAfter time.Duration,
) *ReconcileJob {
	return &ReconcileJob{
		calls:      calls,
		sessions:   sessions,
		interval:   interval,
		staleAfter: staleAfter,
		done:       make(chan struct{}),
	}
}

func (j *ReconcileJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("staleAfter", j.staleAfter).Msg("reconcile job started")
}

func (j *ReconcileJob) Stop() {
	close(j.done)
	log.Info().Msg("reconcile job stopped")
}

func (j *ReconcileJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep fails every stale open call and completes its session. Unanswered
// calls become missed; answered ones become failed.
func (j *ReconcileJob) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()
	stale, err := j.calls.ListOpenBefore(ctx, now.Add(-j.staleAfter))
	if err != nil {
		log.Error().Err(err).Msg("reconcile: list stale calls")
		return
	}

	for _, call := range stale {
		next := models.CallStatusFailed
		if call.Status == models.CallStatusInitiated {
			next = models.CallStatusMissed
		}

		duration := int64(now.Sub(call.StartTime) / time.Second)
		if duration < 0 {
			duration = 0
		}

		if _, err := j.calls.FinishIfCurrent(ctx, call.ID, call.Status, next, now, duration); err != nil {
			// A racing transition means someone else closed it first.
			if !errors.Is(err, pgx.ErrNoRows) {
				log.Error().Err(err).Int64("call", call.ID).Msg("reconcile: close call")
			}
			continue
		}

		minutes := int((now.Sub(call.StartTime) + time.Minute - 1) / time.Minute)
		if minutes < 0 {
			minutes = 0
		}
		if _, err := j.sessions.CompleteStale(ctx, call.SessionID, now, minutes, "reconciled stale call"); err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				log.Error().Err(err).Int64("session", call.SessionID).Msg("reconcile: close session")
			}
			continue
		}

		log.Info().
			Int64("call", call.ID).
			Int64("session", call.SessionID).
			Str("status", next).
			Msg("reconciled stale call")
	}
}
