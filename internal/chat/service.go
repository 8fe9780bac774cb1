package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/logger"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

const maxMessageLen = 4000

// Broadcaster fans a payload out to every live socket in a room.
// *ws.Hub satisfies it.
type Broadcaster interface {
	Broadcast(ctx context.Context, room string, payload any)
}

// Publisher relays messages across instances. The redis client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	ChatChannel(conversationID string) string
}

// Service exposes the support chat: customers open one active thread, staff
// pick threads up, both sides exchange messages.
type Service interface {
	StartOrGetConversation(ctx context.Context, customerID uuid.UUID) (*ConversationDTO, error)
	GetConversation(ctx context.Context, actorID uuid.UUID, isStaff bool, conversationID uuid.UUID) (*ConversationDTO, error)
	ListConversations(ctx context.Context, params pagination.Params, filters ConversationFilters) (*ConversationListDTO, error)
	AssignStaff(ctx context.Context, conversationID, staffID uuid.UUID) (*ConversationDTO, error)
	CloseConversation(ctx context.Context, conversationID uuid.UUID) (*ConversationDTO, error)

	SendMessage(ctx context.Context, actorID uuid.UUID, role enums.ChatSenderRole, conversationID uuid.UUID, body string) (*MessageDTO, error)
	ListMessages(ctx context.Context, actorID uuid.UUID, isStaff bool, conversationID uuid.UUID, params pagination.Params) (*MessageListDTO, error)
	MarkRead(ctx context.Context, actorID uuid.UUID, role enums.ChatSenderRole, conversationID uuid.UUID) error
}

// ServiceParams groups dependencies for the chat service.
type ServiceParams struct {
	Repo        Repository
	Broadcaster Broadcaster
	Publisher   Publisher
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	broadcaster Broadcaster
	publisher   Publisher
	logg        *logger.Logger
}

// NewService builds a chat service. Broadcaster and publisher are optional so
// the service also works in setups without live sockets.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chat repo is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:        params.Repo,
		broadcaster: params.Broadcaster,
		publisher:   params.Publisher,
		logg:        params.Logger,
	}, nil
}

// StartOrGetConversation reuses the customer's pending or open thread and
// only opens a fresh pending one when none is active.
func (s *service) StartOrGetConversation(ctx context.Context, customerID uuid.UUID) (*ConversationDTO, error) {
	existing, err := s.repo.FindActiveByCustomer(ctx, customerID)
	if err == nil {
		dto := toConversationDTO(*existing)
		return &dto, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}

	conversation := &models.ChatConversation{
		CustomerID: customerID,
		Status:     enums.ConversationStatusPending,
	}
	if err := s.repo.CreateConversation(ctx, conversation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create conversation")
	}
	dto := toConversationDTO(*conversation)
	return &dto, nil
}

func (s *service) GetConversation(ctx context.Context, actorID uuid.UUID, isStaff bool, conversationID uuid.UUID) (*ConversationDTO, error) {
	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !isStaff && conversation.CustomerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	dto := toConversationDTO(*conversation)
	return &dto, nil
}

func (s *service) ListConversations(ctx context.Context, params pagination.Params, filters ConversationFilters) (*ConversationListDTO, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid conversation status")
	}
	conversations, total, err := s.repo.ListConversations(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list conversations")
	}
	items := make([]ConversationDTO, 0, len(conversations))
	for _, conversation := range conversations {
		items = append(items, toConversationDTO(conversation))
	}
	return &ConversationListDTO{
		Items:      items,
		Pagination: pagination.NewMeta(params, total),
	}, nil
}

// AssignStaff moves a pending conversation to open under the given staff
// member. Reassigning an open thread to someone else is refused.
func (s *service) AssignStaff(ctx context.Context, conversationID, staffID uuid.UUID) (*ConversationDTO, error) {
	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	switch conversation.Status {
	case enums.ConversationStatusClosed:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "conversation is closed")
	case enums.ConversationStatusOpen:
		if conversation.AssignedStaffID != nil && *conversation.AssignedStaffID != staffID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "conversation already assigned")
		}
	}

	if err := s.repo.UpdateConversation(ctx, conversationID, map[string]any{
		"status":            enums.ConversationStatusOpen,
		"assigned_staff_id": staffID,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign conversation")
	}
	conversation.Status = enums.ConversationStatusOpen
	conversation.AssignedStaffID = &staffID

	dto := toConversationDTO(*conversation)
	return &dto, nil
}

func (s *service) CloseConversation(ctx context.Context, conversationID uuid.UUID) (*ConversationDTO, error) {
	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation.Status == enums.ConversationStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "conversation is closed")
	}

	if err := s.repo.UpdateConversation(ctx, conversationID, map[string]any{
		"status": enums.ConversationStatusClosed,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close conversation")
	}
	conversation.Status = enums.ConversationStatusClosed

	dto := toConversationDTO(*conversation)
	return &dto, nil
}

// SendMessage persists the message, bumps the thread and pushes the payload
// to live sockets. A staff reply to a pending thread claims it.
func (s *service) SendMessage(ctx context.Context, actorID uuid.UUID, role enums.ChatSenderRole, conversationID uuid.UUID, body string) (*MessageDTO, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}
	if len(body) > maxMessageLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is too long")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sender role")
	}

	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if role == enums.ChatSenderCustomer && conversation.CustomerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	if conversation.Status == enums.ConversationStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "conversation is closed")
	}

	message := &models.ChatMessage{
		ConversationID: conversationID,
		SenderID:       actorID,
		SenderRole:     role,
		Body:           body,
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create message")
	}

	now := time.Now().UTC()
	updates := map[string]any{"last_message_at": now}
	if role == enums.ChatSenderStaff && conversation.Status == enums.ConversationStatusPending {
		updates["status"] = enums.ConversationStatusOpen
		updates["assigned_staff_id"] = actorID
	}
	if err := s.repo.UpdateConversation(ctx, conversationID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch conversation")
	}

	dto := toMessageDTO(*message)
	s.push(ctx, conversationID, dto)
	return &dto, nil
}

func (s *service) ListMessages(ctx context.Context, actorID uuid.UUID, isStaff bool, conversationID uuid.UUID, params pagination.Params) (*MessageListDTO, error) {
	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !isStaff && conversation.CustomerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}

	messages, total, err := s.repo.ListMessages(ctx, conversationID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	items := make([]MessageDTO, 0, len(messages))
	for _, message := range messages {
		items = append(items, toMessageDTO(message))
	}
	return &MessageListDTO{
		Items:      items,
		Pagination: pagination.NewMeta(params, total),
	}, nil
}

func (s *service) MarkRead(ctx context.Context, actorID uuid.UUID, role enums.ChatSenderRole, conversationID uuid.UUID) error {
	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if role == enums.ChatSenderCustomer && conversation.CustomerID != actorID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	if _, err := s.repo.MarkMessagesRead(ctx, conversationID, role, time.Now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark messages read")
	}
	return nil
}

func (s *service) loadConversation(ctx context.Context, conversationID uuid.UUID) (*models.ChatConversation, error) {
	conversation, err := s.repo.FindConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}
	return conversation, nil
}

// push delivers to local sockets and relays across instances. Both paths are
// best effort.
func (s *service) push(ctx context.Context, conversationID uuid.UUID, payload MessageDTO) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ctx, conversationID.String(), payload)
	}
	if s.publisher != nil {
		channel := s.publisher.ChatChannel(conversationID.String())
		if err := s.publisher.Publish(ctx, channel, payload); err != nil {
			s.logg.Error(ctx, "failed to relay chat message", err)
		}
	}
}
