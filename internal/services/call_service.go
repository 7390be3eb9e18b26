package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/listenline/ListenLineBack/internal/models"
)

type callStore interface {
	Create(ctx context.Context, sessionID, callerID, receiverID int64, callType string) (*models.CallLog, error)
	GetByID(ctx context.Context, callID int64) (*models.CallLog, error)
	TransitionIfCurrent(ctx context.Context, callID int64, currentStatus, nextStatus string) (*models.CallLog, error)
	FinishIfCurrent(
		ctx context.Context,
		callID int64,
		currentStatus string,
		nextStatus string,
		endTime time.Time,
		durationSeconds int64,
	) (*models.CallLog, error)
}

type sessionLifecycle interface {
	ResolveListener(ctx context.Context, listenerID, listenerUserID int64) (*ListenerRef, error)
	GetOrCreateSession(ctx context.Context, userID, listenerID int64, sessionType string) (*models.Session, bool, error)
	EnsureParticipant(ctx context.Context, sessionID, requesterID int64) (*SessionParticipants, error)
	EndSession(ctx context.Context, sessionID, endedByUserID int64, reason *string) (*models.Session, error)
}

// CallService is the call signaling state machine, layered on the session
// lifecycle. It is the only writer of call_logs rows.
type CallService struct {
	calls    callStore
	sessions sessionLifecycle
}

func NewCallService(calls callStore, sessions sessionLifecycle) *CallService {
	return &CallService{calls: calls, sessions: sessions}
}

type StartCallInput struct {
	CallerID       int64
	SessionID      int64
	ListenerID     int64
	ListenerUserID int64
	CallType       string
}

type CallStart struct {
	Call       *models.CallLog
	Session    *models.Session
	ReceiverID int64
}

// StartCall resolves (or creates) the session, derives the receiver as the
// session's other participant relative to the caller, and records the call
// as initiated.
func (s *CallService) StartCall(ctx context.Context, input StartCallInput) (*CallStart, error) {
	if !models.ValidCallType(input.CallType) {
		return nil, ErrInvalidInput
	}

	sessionID := input.SessionID
	if sessionID == 0 {
		ref, err := s.sessions.ResolveListener(ctx, input.ListenerID, input.ListenerUserID)
		if err != nil {
			return nil, err
		}
		session, _, err := s.sessions.GetOrCreateSession(ctx, input.CallerID, ref.ListenerID, input.CallType)
		if err != nil {
			return nil, err
		}
		sessionID = session.ID
	}

	participants, err := s.sessions.EnsureParticipant(ctx, sessionID, input.CallerID)
	if err != nil {
		return nil, err
	}
	receiverID, err := participants.Other(input.CallerID)
	if err != nil {
		return nil, err
	}

	call, err := s.calls.Create(ctx, sessionID, input.CallerID, receiverID, input.CallType)
	if err != nil {
		return nil, err
	}

	return &CallStart{
		Call:       call,
		Session:    participants.Session,
		ReceiverID: receiverID,
	}, nil
}

// AcceptCall moves a call from initiated to ongoing. Exactly one of a racing
// accept/reject pair wins the conditional transition.
func (s *CallService) AcceptCall(ctx context.Context, callID, actorID int64) (*models.CallLog, error) {
	call, err := s.authorizedCall(ctx, callID, actorID)
	if err != nil {
		return nil, err
	}

	updated, err := s.calls.TransitionIfCurrent(ctx, call.ID, models.CallStatusInitiated, models.CallStatusOngoing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return updated, nil
}

// RejectCall moves a call from initiated to rejected with zero duration.
func (s *CallService) RejectCall(ctx context.Context, callID, actorID int64) (*models.CallLog, error) {
	call, err := s.authorizedCall(ctx, callID, actorID)
	if err != nil {
		return nil, err
	}

	updated, err := s.calls.FinishIfCurrent(
		ctx,
		call.ID,
		models.CallStatusInitiated,
		models.CallStatusRejected,
		time.Now().UTC(),
		0,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return updated, nil
}

type CallEnd struct {
	Call    *models.CallLog
	Session *models.Session
	OtherID int64
}

// EndCall closes an ongoing call with one of the terminal end statuses and
// always ends the owning session as well, so call and session history stay
// grouped. If the session ended already, the call still closes.
func (s *CallService) EndCall(
	ctx context.Context,
	callID int64,
	actorID int64,
	status string,
) (*CallEnd, error) {
	switch status {
	case models.CallStatusCompleted, models.CallStatusFailed, models.CallStatusMissed:
	default:
		return nil, ErrInvalidInput
	}

	call, err := s.authorizedCall(ctx, callID, actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	duration := int64(now.Sub(call.StartTime) / time.Second)
	if duration < 0 {
		duration = 0
	}

	updated, err := s.calls.FinishIfCurrent(ctx, call.ID, models.CallStatusOngoing, status, now, duration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	reason := "call " + status
	session, err := s.sessions.EndSession(ctx, updated.SessionID, actorID, &reason)
	if err != nil {
		if !errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		// Session was already terminal; keep the call result.
		session = nil
	}

	otherID := updated.CallerID
	if actorID == updated.CallerID {
		otherID = updated.ReceiverID
	}

	return &CallEnd{Call: updated, Session: session, OtherID: otherID}, nil
}

// RelaySignal authorizes an SDP/ICE relay request and names the counterpart
// the payload should be forwarded to. The payload itself never enters the
// service layer.
func (s *CallService) RelaySignal(
	ctx context.Context,
	callID int64,
	sessionID int64,
	actorID int64,
) (int64, error) {
	if callID <= 0 || sessionID <= 0 {
		return 0, ErrInvalidInput
	}
	participants, err := s.sessions.EnsureParticipant(ctx, sessionID, actorID)
	if err != nil {
		return 0, err
	}
	return participants.Other(actorID)
}

func (s *CallService) authorizedCall(ctx context.Context, callID, actorID int64) (*models.CallLog, error) {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCallNotFound
		}
		return nil, err
	}
	if actorID != call.CallerID && actorID != call.ReceiverID {
		return nil, ErrForbidden
	}
	return call, nil
}
