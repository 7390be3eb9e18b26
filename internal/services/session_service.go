package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/listenline/ListenLineBack/internal/models"
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type listenerReader interface {
	GetByID(ctx context.Context, id int64) (*models.Listener, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Listener, error)
}

type sessionStore interface {
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
	FindActive(ctx context.Context, userID, listenerID int64, sessionType string) (*models.Session, error)
	CreateActive(ctx context.Context, userID, listenerID int64, sessionType string) (*models.Session, error)
	CompleteIfActive(
		ctx context.Context,
		sessionID int64,
		endTime time.Time,
		durationMinutes int,
		endedByType string,
		endedByID int64,
		endedReason *string,
	) (*models.Session, error)
}

// SessionService owns the session lifecycle: it is the only writer of
// session rows.
type SessionService struct {
	sessions  sessionStore
	users     userReader
	listeners listenerReader
}

func NewSessionService(sessions sessionStore, users userReader, listeners listenerReader) *SessionService {
	return &SessionService{
		sessions:  sessions,
		users:     users,
		listeners: listeners,
	}
}

// ListenerRef is the canonical pair of ids for one listener: the listener
// profile row and the user account that owns it.
type ListenerRef struct {
	ListenerID     int64
	ListenerUserID int64
}

// ResolveListener accepts either side of the pair and returns both.
func (s *SessionService) ResolveListener(
	ctx context.Context,
	listenerID int64,
	listenerUserID int64,
) (*ListenerRef, error) {
	var (
		listener *models.Listener
		err      error
	)
	switch {
	case listenerID > 0:
		listener, err = s.listeners.GetByID(ctx, listenerID)
	case listenerUserID > 0:
		listener, err = s.listeners.GetByUserID(ctx, listenerUserID)
	default:
		return nil, ErrInvalidInput
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListenerNotFound
		}
		return nil, err
	}
	return &ListenerRef{ListenerID: listener.ID, ListenerUserID: listener.UserID}, nil
}

// GetOrCreateSession returns the active session for the (user, listener,
// type) tuple, creating one when none exists. Idempotent under retries and
// concurrent requests: the insert conflicts on the active-tuple index, and a
// loser re-reads the winner.
func (s *SessionService) GetOrCreateSession(
	ctx context.Context,
	userID int64,
	listenerID int64,
	sessionType string,
) (*models.Session, bool, error) {
	if !models.ValidSessionType(sessionType) {
		return nil, false, ErrInvalidInput
	}

	existing, err := s.sessions.FindActive(ctx, userID, listenerID, sessionType)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, err
	}

	created, err := s.sessions.CreateActive(ctx, userID, listenerID, sessionType)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	// Lost the insert race; the concurrent winner holds the active session.
	existing, err = s.sessions.FindActive(ctx, userID, listenerID, sessionType)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// SessionParticipants names the only two identities authorized to act on a
// session: the session's user and the listener's owning user.
type SessionParticipants struct {
	Session        *models.Session
	UserID         int64
	ListenerUserID int64
}

// Other returns the counterpart of actorID within the session, failing for
// any identity that is not one of the two participants.
func (p *SessionParticipants) Other(actorID int64) (int64, error) {
	switch actorID {
	case p.UserID:
		return p.ListenerUserID, nil
	case p.ListenerUserID:
		return p.UserID, nil
	default:
		return 0, ErrForbidden
	}
}

func (p *SessionParticipants) Contains(actorID int64) bool {
	return actorID == p.UserID || actorID == p.ListenerUserID
}

func (s *SessionService) Participants(ctx context.Context, sessionID int64) (*SessionParticipants, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	listener, err := s.listeners.GetByID(ctx, session.ListenerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListenerNotFound
		}
		return nil, err
	}

	return &SessionParticipants{
		Session:        session,
		UserID:         session.UserID,
		ListenerUserID: listener.UserID,
	}, nil
}

// EnsureParticipant loads the session and fails with ErrForbidden unless the
// requester is one of its two participants.
func (s *SessionService) EnsureParticipant(
	ctx context.Context,
	sessionID int64,
	requesterID int64,
) (*SessionParticipants, error) {
	participants, err := s.Participants(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !participants.Contains(requesterID) {
		return nil, ErrForbidden
	}
	return participants, nil
}

// EndSession completes an active session, computing the billable duration in
// whole minutes rounded up. The conditional update means a session ends
// exactly once; a second end attempt gets ErrInvalidTransition.
func (s *SessionService) EndSession(
	ctx context.Context,
	sessionID int64,
	endedByUserID int64,
	reason *string,
) (*models.Session, error) {
	participants, err := s.EnsureParticipant(ctx, sessionID, endedByUserID)
	if err != nil {
		return nil, err
	}

	endedByType := models.EndedByUser
	if endedByUserID == participants.ListenerUserID {
		endedByType = models.EndedByListener
	}

	now := time.Now().UTC()
	minutes := billableMinutes(participants.Session.StartTime, now)

	updated, err := s.sessions.CompleteIfActive(
		ctx,
		sessionID,
		now,
		minutes,
		endedByType,
		endedByUserID,
		reason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return updated, nil
}

// billableMinutes is ceil(elapsed/1m), clamped at zero.
func billableMinutes(start, end time.Time) int {
	elapsed := end.Sub(start)
	if elapsed <= 0 {
		return 0
	}
	return int((elapsed + time.Minute - 1) / time.Minute)
}
