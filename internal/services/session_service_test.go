package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/listenline/ListenLineBack/internal/models"
)

type stubUserReader struct {
	user *models.User
	err  error
}

func (r *stubUserReader) GetByID(_ context.Context, _ int64) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.user, nil
}

type stubListenerReader struct {
	byID     map[int64]*models.Listener
	byUserID map[int64]*models.Listener
}

func (r *stubListenerReader) GetByID(_ context.Context, id int64) (*models.Listener, error) {
	if listener, ok := r.byID[id]; ok {
		return listener, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *stubListenerReader) GetByUserID(_ context.Context, userID int64) (*models.Listener, error) {
	if listener, ok := r.byUserID[userID]; ok {
		return listener, nil
	}
	return nil, pgx.ErrNoRows
}

type stubSessionStore struct {
	byID         map[int64]*models.Session
	active       *models.Session
	activeErr    error
	created      *models.Session
	createErr    error
	completed    *models.Session
	completeErr  error
	findCalls    int
	lastComplete struct {
		sessionID   int64
		minutes     int
		endedByType string
		endedByID   int64
		reason      *string
	}
}

func (s *stubSessionStore) GetByID(_ context.Context, sessionID int64) (*models.Session, error) {
	if session, ok := s.byID[sessionID]; ok {
		return session, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubSessionStore) FindActive(_ context.Context, _, _ int64, _ string) (*models.Session, error) {
	s.findCalls++
	if s.activeErr != nil {
		return nil, s.activeErr
	}
	if s.active == nil {
		return nil, pgx.ErrNoRows
	}
	return s.active, nil
}

func (s *stubSessionStore) CreateActive(_ context.Context, _, _ int64, _ string) (*models.Session, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.created, nil
}

func (s *stubSessionStore) CompleteIfActive(
	_ context.Context,
	sessionID int64,
	_ time.Time,
	durationMinutes int,
	endedByType string,
	endedByID int64,
	endedReason *string,
) (*models.Session, error) {
	s.lastComplete.sessionID = sessionID
	s.lastComplete.minutes = durationMinutes
	s.lastComplete.endedByType = endedByType
	s.lastComplete.endedByID = endedByID
	s.lastComplete.reason = endedReason
	if s.completeErr != nil {
		return nil, s.completeErr
	}
	return s.completed, nil
}

func newSessionFixture() (*SessionService, *stubSessionStore) {
	store := &stubSessionStore{
		byID: map[int64]*models.Session{
			10: {ID: 10, UserID: 1, ListenerID: 5, Type: models.SessionTypeChat, Status: models.SessionStatusOngoing, StartTime: time.Now().Add(-10 * time.Minute)},
		},
	}
	listeners := &stubListenerReader{
		byID:     map[int64]*models.Listener{5: {ID: 5, UserID: 2}},
		byUserID: map[int64]*models.Listener{2: {ID: 5, UserID: 2}},
	}
	users := &stubUserReader{user: &models.User{ID: 1, Role: models.RoleUser}}
	return NewSessionService(store, users, listeners), store
}

func TestResolveListenerAcceptsEitherID(t *testing.T) {
	service, _ := newSessionFixture()

	byProfile, err := service.ResolveListener(context.Background(), 5, 0)
	if err != nil {
		t.Fatalf("ResolveListener by profile id: %v", err)
	}
	byUser, err := service.ResolveListener(context.Background(), 0, 2)
	if err != nil {
		t.Fatalf("ResolveListener by user id: %v", err)
	}
	if byProfile.ListenerID != byUser.ListenerID || byProfile.ListenerUserID != byUser.ListenerUserID {
		t.Fatalf("expected identical refs, got %+v and %+v", byProfile, byUser)
	}

	if _, err := service.ResolveListener(context.Background(), 99, 0); !errors.Is(err, ErrListenerNotFound) {
		t.Fatalf("expected ErrListenerNotFound, got %v", err)
	}
	if _, err := service.ResolveListener(context.Background(), 0, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetOrCreateSessionReturnsExistingActive(t *testing.T) {
	service, store := newSessionFixture()
	store.active = &models.Session{ID: 10, UserID: 1, ListenerID: 5, Status: models.SessionStatusOngoing}

	session, created, err := service.GetOrCreateSession(context.Background(), 1, 5, models.SessionTypeChat)
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	if created {
		t.Fatal("expected existing session, got created")
	}
	if session.ID != 10 {
		t.Fatalf("expected session 10, got %d", session.ID)
	}
}

func TestGetOrCreateSessionCreatesWhenNoneActive(t *testing.T) {
	service, store := newSessionFixture()
	store.created = &models.Session{ID: 11, UserID: 1, ListenerID: 5, Status: models.SessionStatusOngoing}

	session, created, err := service.GetOrCreateSession(context.Background(), 1, 5, models.SessionTypeAudio)
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	if !created {
		t.Fatal("expected a fresh session")
	}
	if session.ID != 11 {
		t.Fatalf("expected session 11, got %d", session.ID)
	}
}

func TestGetOrCreateSessionRereadsAfterLosingInsertRace(t *testing.T) {
	service, store := newSessionFixture()
	winner := &models.Session{ID: 12, UserID: 1, ListenerID: 5, Status: models.SessionStatusOngoing}

	// First FindActive misses, the insert loses the conflict, and the
	// second FindActive sees the concurrent winner.
	calls := 0
	service.sessions = &raceSessionStore{store: store, winner: winner, calls: &calls}

	session, created, err := service.GetOrCreateSession(context.Background(), 1, 5, models.SessionTypeChat)
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	if created {
		t.Fatal("race loser must report the existing session")
	}
	if session.ID != winner.ID {
		t.Fatalf("expected winner session %d, got %d", winner.ID, session.ID)
	}
}

type raceSessionStore struct {
	store  *stubSessionStore
	winner *models.Session
	calls  *int
}

func (s *raceSessionStore) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	return s.store.GetByID(ctx, sessionID)
}

func (s *raceSessionStore) FindActive(_ context.Context, _, _ int64, _ string) (*models.Session, error) {
	*s.calls++
	if *s.calls == 1 {
		return nil, pgx.ErrNoRows
	}
	return s.winner, nil
}

func (s *raceSessionStore) CreateActive(_ context.Context, _, _ int64, _ string) (*models.Session, error) {
	return nil, pgx.ErrNoRows
}

func (s *raceSessionStore) CompleteIfActive(
	ctx context.Context,
	sessionID int64,
	endTime time.Time,
	durationMinutes int,
	endedByType string,
	endedByID int64,
	endedReason *string,
) (*models.Session, error) {
	return s.store.CompleteIfActive(ctx, sessionID, endTime, durationMinutes, endedByType, endedByID, endedReason)
}

func TestGetOrCreateSessionRejectsUnknownType(t *testing.T) {
	service, _ := newSessionFixture()
	if _, _, err := service.GetOrCreateSession(context.Background(), 1, 5, "carrier-pigeon"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEnsureParticipantRejectsOutsiders(t *testing.T) {
	service, _ := newSessionFixture()

	if _, err := service.EnsureParticipant(context.Background(), 10, 999); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := service.EnsureParticipant(context.Background(), 404, 1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	participants, err := service.EnsureParticipant(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("EnsureParticipant for listener user: %v", err)
	}
	other, err := participants.Other(2)
	if err != nil {
		t.Fatalf("Other: %v", err)
	}
	if other != 1 {
		t.Fatalf("expected counterpart 1, got %d", other)
	}
	if _, err := participants.Other(999); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}
}

func TestEndSessionRecordsListenerIdentityAndRoundsUp(t *testing.T) {
	service, store := newSessionFixture()
	store.byID[10].StartTime = time.Now().Add(-(9*time.Minute + 30*time.Second))
	store.completed = &models.Session{ID: 10, Status: models.SessionStatusCompleted}

	reason := "done for today"
	session, err := service.EndSession(context.Background(), 10, 2, &reason)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if session.Status != models.SessionStatusCompleted {
		t.Fatalf("expected completed session, got %q", session.Status)
	}
	if store.lastComplete.minutes != 10 {
		t.Fatalf("expected 10 billable minutes, got %d", store.lastComplete.minutes)
	}
	if store.lastComplete.endedByType != models.EndedByListener {
		t.Fatalf("expected listener attribution, got %q", store.lastComplete.endedByType)
	}
	if store.lastComplete.endedByID != 2 {
		t.Fatalf("expected ended_by_id 2, got %d", store.lastComplete.endedByID)
	}
	if store.lastComplete.reason == nil || *store.lastComplete.reason != reason {
		t.Fatalf("unexpected reason: %v", store.lastComplete.reason)
	}
}

func TestEndSessionSecondAttemptIsInvalidTransition(t *testing.T) {
	service, store := newSessionFixture()
	store.completeErr = pgx.ErrNoRows

	if _, err := service.EndSession(context.Background(), 10, 1, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestBillableMinutes(t *testing.T) {
	start := time.Date(2031, 5, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{-time.Minute, 0},
		{time.Second, 1},
		{time.Minute, 1},
		{time.Minute + time.Second, 2},
		{59*time.Minute + 59*time.Second, 60},
	}
	for _, tc := range cases {
		if got := billableMinutes(start, start.Add(tc.elapsed)); got != tc.want {
			t.Fatalf("billableMinutes(%v) = %d, want %d", tc.elapsed, got, tc.want)
		}
	}
}
