package services

import (
	"context"
	"testing"

	"github.com/listenline/ListenLineBack/internal/models"
	"github.com/listenline/ListenLineBack/internal/repository"
)

type stubNotificationStore struct {
	created      *models.Notification
	createErr    error
	unread       int
	unreadErr    error
	listResult   []models.Notification
	listTotal    int
	listErr      error
	markReadErr  error
	markAllErr   error
	createInputs []repository.CreateNotificationInput
	markedRead   []int64
	markedAllFor []int64
}

func (s *stubNotificationStore) Create(_ context.Context, input repository.CreateNotificationInput) (*models.Notification, error) {
	s.createInputs = append(s.createInputs, input)
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.created != nil {
		return s.created, nil
	}
	return &models.Notification{
		ID:          int64(len(s.createInputs)),
		RecipientID: input.RecipientID,
		SenderID:    input.SenderID,
		Type:        input.Type,
		Title:       input.Title,
		Message:     input.Message,
	}, nil
}

func (s *stubNotificationStore) CountUnread(_ context.Context, _ int64) (int, error) {
	return s.unread, s.unreadErr
}

func (s *stubNotificationStore) ListByRecipient(_ context.Context, _ int64, _, _ int) ([]models.Notification, int, error) {
	return s.listResult, s.listTotal, s.listErr
}

func (s *stubNotificationStore) MarkRead(_ context.Context, _, notificationID int64) error {
	s.markedRead = append(s.markedRead, notificationID)
	return s.markReadErr
}

func (s *stubNotificationStore) MarkAllRead(_ context.Context, recipientID int64) error {
	s.markedAllFor = append(s.markedAllFor, recipientID)
	return s.markAllErr
}

type stubAdminLister struct {
	ids []int64
	err error
}

func (s *stubAdminLister) ListAdminIDs(_ context.Context) ([]int64, error) {
	return s.ids, s.err
}

type recordedSend struct {
	userID int64
	event  string
	data   any
}

type stubBroadcaster struct {
	sends []recordedSend
}

func (s *stubBroadcaster) SendToUser(userID int64, event string, data any) {
	s.sends = append(s.sends, recordedSend{userID: userID, event: event, data: data})
}

type stubPresence struct {
	online map[int64]bool
}

func (s *stubPresence) IsOnline(userID int64) bool {
	return s.online[userID]
}

func newNotificationFixture() (*NotificationService, *stubNotificationStore, *stubBroadcaster, *stubPresence) {
	store := &stubNotificationStore{unread: 3}
	broadcaster := &stubBroadcaster{}
	presence := &stubPresence{online: map[int64]bool{}}
	admins := &stubAdminLister{ids: []int64{100, 101}}
	return NewNotificationService(store, admins, broadcaster, presence), store, broadcaster, presence
}

func TestNotifyPersistsBeforeDelivery(t *testing.T) {
	service, store, broadcaster, presence := newNotificationFixture()
	presence.online[1] = true

	notification, err := service.Notify(context.Background(), repository.CreateNotificationInput{
		RecipientID: 1,
		Type:        "call:incoming",
		Title:       "Incoming call",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if notification.RecipientID != 1 {
		t.Fatalf("expected recipient 1, got %d", notification.RecipientID)
	}
	if len(store.createInputs) != 1 {
		t.Fatalf("expected one persisted row, got %d", len(store.createInputs))
	}
	if len(broadcaster.sends) != 2 {
		t.Fatalf("expected new + unreadCount frames, got %d", len(broadcaster.sends))
	}
	if broadcaster.sends[0].event != "notification:new" {
		t.Fatalf("unexpected first event %q", broadcaster.sends[0].event)
	}
	if broadcaster.sends[1].event != "notification:unreadCount" {
		t.Fatalf("unexpected second event %q", broadcaster.sends[1].event)
	}
	count, ok := broadcaster.sends[1].data.(map[string]int)
	if !ok || count["count"] != 3 {
		t.Fatalf("expected recomputed count 3, got %v", broadcaster.sends[1].data)
	}
}

func TestNotifyOfflineRecipientSkipsDelivery(t *testing.T) {
	service, store, broadcaster, _ := newNotificationFixture()

	if _, err := service.Notify(context.Background(), repository.CreateNotificationInput{RecipientID: 1, Type: "system"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(store.createInputs) != 1 {
		t.Fatal("offline recipient must still get a persisted row")
	}
	if len(broadcaster.sends) != 0 {
		t.Fatalf("expected no live delivery, got %d frames", len(broadcaster.sends))
	}
}

func TestBroadcastToAdminsWritesOneRowEach(t *testing.T) {
	service, store, _, _ := newNotificationFixture()

	notifications, err := service.BroadcastToAdmins(context.Background(), repository.CreateNotificationInput{
		Type:  "support:waiting",
		Title: "User waiting for support",
	})
	if err != nil {
		t.Fatalf("BroadcastToAdmins: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifications))
	}
	if store.createInputs[0].RecipientID != 100 || store.createInputs[1].RecipientID != 101 {
		t.Fatalf("unexpected recipients %+v", store.createInputs)
	}
}

func TestMarkReadPushesFreshCountToLiveRecipient(t *testing.T) {
	service, store, broadcaster, presence := newNotificationFixture()
	presence.online[1] = true
	store.unread = 0

	if err := service.MarkRead(context.Background(), 1, 9); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if len(store.markedRead) != 1 || store.markedRead[0] != 9 {
		t.Fatalf("unexpected mark read calls %v", store.markedRead)
	}
	if len(broadcaster.sends) != 1 || broadcaster.sends[0].event != "notification:unreadCount" {
		t.Fatalf("expected one unreadCount frame, got %+v", broadcaster.sends)
	}
}

func TestMarkAllReadOfflineSkipsPush(t *testing.T) {
	service, store, broadcaster, _ := newNotificationFixture()

	if err := service.MarkAllRead(context.Background(), 1); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if len(store.markedAllFor) != 1 || store.markedAllFor[0] != 1 {
		t.Fatalf("unexpected mark all calls %v", store.markedAllFor)
	}
	if len(broadcaster.sends) != 0 {
		t.Fatalf("expected no push for offline recipient, got %+v", broadcaster.sends)
	}
}

func TestListValidatesPaging(t *testing.T) {
	service, _, _, _ := newNotificationFixture()
	if _, _, err := service.List(context.Background(), 1, 0, 20); err == nil {
		t.Fatal("expected error for page 0")
	}
	if _, _, err := service.List(context.Background(), 1, 1, 0); err == nil {
		t.Fatal("expected error for limit 0")
	}
}
