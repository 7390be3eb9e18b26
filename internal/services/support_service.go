package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/listenline/ListenLineBack/internal/models"
	"github.com/listenline/ListenLineBack/internal/repository"
	"github.com/samber/lo"
)

type ticketStore interface {
	Create(ctx context.Context, input repository.CreateTicketInput) (*models.SupportTicket, error)
}

type supportMessageStore interface {
	CreateSupportMessage(
		ctx context.Context,
		userID int64,
		senderID int64,
		receiverID int64,
		content string,
	) (*models.SupportMessage, error)
}

type supportRoom struct {
	userID   int64
	agents   map[int64]struct{}
	joinedAt time.Time
}

// SupportService routes end users to the support staff pool. Room
// memberships live only in process memory; an agent reverse index keeps
// disconnect cleanup proportional to the agent's own rooms.
type SupportService struct {
	tickets  ticketStore
	messages supportMessageStore

	mu         sync.RWMutex
	rooms      map[int64]*supportRoom
	agentRooms map[int64]map[int64]struct{}
}

func NewSupportService(tickets ticketStore, messages supportMessageStore) *SupportService {
	return &SupportService{
		tickets:    tickets,
		messages:   messages,
		rooms:      make(map[int64]*supportRoom),
		agentRooms: make(map[int64]map[int64]struct{}),
	}
}

// SupportRoomKey names the broadcast room for one user's support chat.
func SupportRoomKey(userID int64) string {
	return fmt.Sprintf("support:%d", userID)
}

// UserJoin creates or reuses the room keyed by the target user. Only the
// user themselves or support staff may enter; staff entering through here
// still need the user to have joined first.
func (s *SupportService) UserJoin(actorID int64, isStaff bool, userID int64) (string, error) {
	if userID <= 0 {
		return "", ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if actorID == userID {
		if _, ok := s.rooms[userID]; !ok {
			s.rooms[userID] = &supportRoom{
				userID:   userID,
				agents:   make(map[int64]struct{}),
				joinedAt: time.Now(),
			}
		}
		return SupportRoomKey(userID), nil
	}

	if !isStaff {
		return "", ErrForbidden
	}
	if _, ok := s.rooms[userID]; !ok {
		return "", ErrRoomNotFound
	}
	s.addAgentLocked(actorID, userID)
	return SupportRoomKey(userID), nil
}

// AgentJoin admits support staff into an existing user room. A room that no
// user has opened cannot be joined, so agents never create orphaned rooms.
func (s *SupportService) AgentJoin(agentID int64, isStaff bool, userID int64) (string, error) {
	if !isStaff {
		return "", ErrForbidden
	}
	if userID <= 0 {
		return "", ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[userID]; !ok {
		return "", ErrRoomNotFound
	}
	s.addAgentLocked(agentID, userID)
	return SupportRoomKey(userID), nil
}

func (s *SupportService) addAgentLocked(agentID, userID int64) {
	s.rooms[userID].agents[agentID] = struct{}{}
	if s.agentRooms[agentID] == nil {
		s.agentRooms[agentID] = make(map[int64]struct{})
	}
	s.agentRooms[agentID][userID] = struct{}{}
}

// CanMessage reports whether the actor may post into the user's room:
// declared room participants or any support staff.
func (s *SupportService) CanMessage(actorID int64, isStaff bool, userID int64) bool {
	if isStaff || actorID == userID {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[userID]
	if !ok {
		return false
	}
	_, joined := room.agents[actorID]
	return joined
}

func (s *SupportService) RoomExists(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[userID]
	return ok
}

// SaveMessage persists one support chat message.
func (s *SupportService) SaveMessage(
	ctx context.Context,
	userID int64,
	senderID int64,
	receiverID int64,
	content string,
) (*models.SupportMessage, error) {
	if content == "" {
		return nil, ErrInvalidInput
	}
	return s.messages.CreateSupportMessage(ctx, userID, senderID, receiverID, content)
}

// EndChat closes a user's support room: writes the audit ticket and drops
// the room mapping. Staff only; enforced by the caller's capability check
// and re-checked here.
func (s *SupportService) EndChat(
	ctx context.Context,
	agentID int64,
	isStaff bool,
	userID int64,
) (*models.SupportTicket, error) {
	if !isStaff {
		return nil, ErrForbidden
	}

	s.mu.Lock()
	room, ok := s.rooms[userID]
	if ok {
		delete(s.rooms, userID)
		for agent := range room.agents {
			delete(s.agentRooms[agent], userID)
			if len(s.agentRooms[agent]) == 0 {
				delete(s.agentRooms, agent)
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrRoomNotFound
	}

	ticket, err := s.tickets.Create(ctx, repository.CreateTicketInput{
		UserID:      userID,
		AgentID:     &agentID,
		Subject:     "Support chat closed",
		Description: fmt.Sprintf("Support chat with user %d closed by agent %d", userID, agentID),
		Status:      models.TicketStatusClosed,
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// HandleDisconnect garbage-collects every room the departing identity
// participated in and returns their room keys so the caller can emit
// departure notices. The reverse index makes this a lookup, not a scan over
// all rooms.
func (s *SupportService) HandleDisconnect(actorID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, 1)

	if _, ok := s.rooms[actorID]; ok {
		room := s.rooms[actorID]
		delete(s.rooms, actorID)
		for agent := range room.agents {
			delete(s.agentRooms[agent], actorID)
			if len(s.agentRooms[agent]) == 0 {
				delete(s.agentRooms, agent)
			}
		}
		keys = append(keys, SupportRoomKey(actorID))
	}

	if userIDs, ok := s.agentRooms[actorID]; ok {
		for _, userID := range lo.Keys(userIDs) {
			if room, exists := s.rooms[userID]; exists {
				delete(room.agents, actorID)
			}
			keys = append(keys, SupportRoomKey(userID))
		}
		delete(s.agentRooms, actorID)
	}

	return keys
}
