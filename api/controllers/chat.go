package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/api/middleware"
	"github.com/yorishop/yori-backend/api/responses"
	"github.com/yorishop/yori-backend/api/validators"
	"github.com/yorishop/yori-backend/internal/chat"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/logger"
)

type sendMessagePayload struct {
	Body string `json:"body" validate:"required"`
}

// ChatStart returns the caller's active conversation, creating one if needed.
func ChatStart(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		conversation, err := svc.StartOrGetConversation(ctx, middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, conversation)
	}
}

// ChatGetConversation returns one conversation.
func ChatGetConversation(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		conversationID, err := validators.ParseUUIDParam(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		conversation, err := svc.GetConversation(ctx, middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx).IsStaff(), conversationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, conversation)
	}
}

// ChatSendMessage appends a message and pushes it to connected clients.
func ChatSendMessage(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		conversationID, err := validators.ParseUUIDParam(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body sendMessagePayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		role := enums.ChatSenderCustomer
		if middleware.RoleFromContext(ctx).IsStaff() {
			role = enums.ChatSenderStaff
		}

		message, err := svc.SendMessage(ctx, middleware.UserIDFromContext(ctx), role, conversationID, body.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

// ChatMessagesList returns the conversation transcript, oldest first.
func ChatMessagesList(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		conversationID, err := validators.ParseUUIDParam(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ListMessages(ctx, middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx).IsStaff(), conversationID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ChatMarkRead marks the counterparty's messages as read.
func ChatMarkRead(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		conversationID, err := validators.ParseUUIDParam(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		role := enums.ChatSenderCustomer
		if middleware.RoleFromContext(ctx).IsStaff() {
			role = enums.ChatSenderStaff
		}

		if err := svc.MarkRead(ctx, middleware.UserIDFromContext(ctx), role, conversationID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

// AdminChatList returns conversations for the support console.
func AdminChatList(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var filters chat.ConversationFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.ConversationStatus(raw)
			if !status.IsValid() {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid conversation status"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("customer_id")); raw != "" {
			customerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id must be a uuid"))
				return
			}
			filters.CustomerID = &customerID
		}

		result, err := svc.ListConversations(ctx, params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminChatAssign claims a conversation for the calling staff member.
func AdminChatAssign(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		conversationID, err := validators.ParseUUIDParam(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		conversation, err := svc.AssignStaff(ctx, conversationID, middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, conversation)
	}
}

// AdminChatClose ends a conversation.
func AdminChatClose(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		conversationID, err := validators.ParseUUIDParam(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		conversation, err := svc.CloseConversation(ctx, conversationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, conversation)
	}
}
