package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yorishop/yori-backend/api/middleware"
	"github.com/yorishop/yori-backend/api/responses"
	"github.com/yorishop/yori-backend/internal/chat"
	pkgauth "github.com/yorishop/yori-backend/pkg/auth"
	"github.com/yorishop/yori-backend/pkg/auth/session"
	"github.com/yorishop/yori-backend/pkg/config"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/logger"
	redisclient "github.com/yorishop/yori-backend/pkg/redis"
	"github.com/yorishop/yori-backend/pkg/ws"
)

// Browsers cannot attach Authorization headers to websocket upgrades, so the
// handler also accepts the access token as a query parameter. Origin checks
// are delegated to the token itself.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WSConnect upgrades an authenticated connection and attaches it to a hub
// room. Without a conversation_id the client lands in its personal room and
// receives notification events relayed from redis. With one, the caller must
// be a participant (or staff) and joins the live conversation room instead.
func WSConnect(
	hub *ws.Hub,
	cache *redisclient.Client,
	chatSvc chat.Service,
	jwtCfg config.JWTConfig,
	sessions session.AccessSessionChecker,
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := middleware.BearerToken(r)
		if token == "" {
			token = strings.TrimSpace(r.URL.Query().Get("token"))
		}
		if token == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing access token"))
			return
		}

		claims, err := pkgauth.ParseAccessToken(jwtCfg, token)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token"))
			return
		}
		if claims.ID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token"))
			return
		}
		active, err := sessions.HasSession(ctx, claims.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
			return
		}
		if !active {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired"))
			return
		}

		room := claims.UserID.String()
		notifyRoom := true
		if raw := strings.TrimSpace(r.URL.Query().Get("conversation_id")); raw != "" {
			conversationID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "conversation_id must be a uuid"))
				return
			}
			if _, convErr := chatSvc.GetConversation(ctx, claims.UserID, claims.Role.IsStaff(), conversationID); convErr != nil {
				responses.WriteError(ctx, logg, w, convErr)
				return
			}
			room = conversationID.String()
			notifyRoom = false
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logg.Warn(ctx, "websocket upgrade failed")
			return
		}

		client := ws.NewClient(conn, claims.UserID.String(), room)
		hub.Register(client)

		relayCtx, cancelRelay := context.WithCancel(context.Background())
		if notifyRoom {
			go relayNotifications(relayCtx, hub, cache, claims.UserID.String(), logg)
		}

		go hub.WritePump(client)
		hub.ReadPump(client, nil)
		cancelRelay()
	}
}

// relayNotifications pipes the user's redis notification channel into their
// hub room so events emitted on any instance reach this socket.
func relayNotifications(ctx context.Context, hub *ws.Hub, cache *redisclient.Client, userID string, logg *logger.Logger) {
	sub, err := cache.Subscribe(ctx, cache.NotificationChannel(userID))
	if err != nil {
		logg.Error(ctx, "subscribe notification channel", err)
		return
	}
	defer sub.Close()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			hub.Broadcast(ctx, userID, json.RawMessage(msg.Payload))
		}
	}
}
