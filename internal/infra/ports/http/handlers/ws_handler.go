package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/qrave1/TaleRoom/internal/application/config"
	"github.com/qrave1/TaleRoom/internal/application/constant"
	"github.com/qrave1/TaleRoom/internal/domain/apperr"
	"github.com/qrave1/TaleRoom/internal/domain/events"
	"github.com/qrave1/TaleRoom/internal/domain/input"
	"github.com/qrave1/TaleRoom/internal/infra/adapters/memory"
	"github.com/qrave1/TaleRoom/internal/infra/appctx"
	"github.com/qrave1/TaleRoom/internal/usecase"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second

	messagesPerSecond = 10
	messagesBurst     = 20
)

var errUnknownMessage = errors.New("unknown message type")

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	wsRepo      memory.WebsocketConnectionRepository
	broadcaster usecase.Broadcaster
	roomUsecase usecase.RoomUsecase
}

func NewWebSocketHandler(
	cfg *config.Config,
	wsRepo memory.WebsocketConnectionRepository,
	broadcaster usecase.Broadcaster,
	roomUsecase usecase.RoomUsecase,
) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		wsRepo:      wsRepo,
		broadcaster: broadcaster,
		roomUsecase: roomUsecase,
	}
}

// session - состояние одного соединения
type session struct {
	connID   uuid.UUID
	username string
	// код комнаты, к которой привязано соединение
	roomCode string
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	username, ok := appctx.UserName(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user in context"})
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return err
	}
	defer ws.Close()

	sess := &session{connID: uuid.New(), username: username}

	h.wsRepo.Add(sess.connID, ws)
	defer func() {
		if sess.roomCode != "" {
			h.roomUsecase.Unsubscribe(context.WithoutCancel(c.Request().Context()), sess.roomCode, sess.connID)
		}

		h.wsRepo.Remove(sess.connID)
	}()

	if err = ws.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return err
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	go h.ping(ctx, ws, sess.connID)

	limiter := rate.NewLimiter(messagesPerSecond, messagesBurst)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn(
					"webSocket read error",
					slog.Any(constant.ConnectionID, sess.connID),
					slog.Any(constant.Error, err),
				)
			}

			return nil
		}

		if !limiter.Allow() {
			h.broadcaster.Send(sess.connID, events.TypeError, apperr.New(apperr.Internal, "too many messages"))
			continue
		}

		var msg events.Message

		if err = json.Unmarshal(raw, &msg); err != nil {
			h.broadcaster.Send(sess.connID, events.TypeError, apperr.ErrInvalidMessage)
			continue
		}

		if err = h.safeHandle(ctx, sess, &msg); err != nil {
			h.sendError(sess, msg.Type, err)
		}
	}
}

// ping держит соединение живым. WriteControl можно вызывать параллельно с другими записями.
func (h *WebSocketHandler) ping(ctx context.Context, ws *websocket.Conn, connID uuid.UUID) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				slog.Debug("ping failed", slog.Any(constant.ConnectionID, connID), slog.Any(constant.Error, err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *WebSocketHandler) safeHandle(ctx context.Context, sess *session, msg *events.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s handler: %v", msg.Type, r)
		}
	}()

	return h.handleMessage(ctx, sess, msg)
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, sess *session, msg *events.Message) error {
	switch msg.Type {
	case events.TypeCreate:
		var ev events.CreateRoomEvent

		if err := events.Decode(msg.Data, &ev); err != nil {
			return apperr.New(apperr.InvalidMessage, err.Error())
		}

		h.detach(ctx, sess)

		snap, err := h.roomUsecase.Create(ctx, input.CreateRoomInput{
			Username:        sess.username,
			Nickname:        ev.Nickname,
			MaxParticipants: ev.MaxParticipants,
		}, sess.connID)
		if err != nil {
			return err
		}

		sess.roomCode = snap.Code

	case events.TypeJoin:
		var ev events.JoinRoomEvent

		if err := events.Decode(msg.Data, &ev); err != nil {
			return apperr.New(apperr.InvalidMessage, err.Error())
		}

		if ev.Code != sess.roomCode {
			h.detach(ctx, sess)
		}

		snap, err := h.roomUsecase.Join(ctx, input.JoinRoomInput{
			Code:     ev.Code,
			Username: sess.username,
			Nickname: ev.Nickname,
		}, sess.connID)
		if err != nil {
			return err
		}

		sess.roomCode = snap.Code

	case events.TypeQuestion:
		if sess.roomCode == "" {
			return apperr.ErrNotParticipant
		}

		return h.roomUsecase.Question(ctx, sess.roomCode, sess.username, sess.connID)

	case events.TypeAnswer:
		if sess.roomCode == "" {
			return apperr.ErrNotParticipant
		}

		var ev events.AnswerEvent

		if err := events.Decode(msg.Data, &ev); err != nil {
			return apperr.New(apperr.InvalidMessage, err.Error())
		}

		return h.roomUsecase.Answer(ctx, sess.roomCode, sess.username, *ev.QuestionIndex, ev.Answer)

	case events.TypeGenerateStory:
		if sess.roomCode == "" {
			return apperr.ErrNotParticipant
		}

		return h.roomUsecase.GenerateStory(ctx, sess.roomCode, sess.username)

	case events.TypeLeave:
		if sess.roomCode == "" {
			return apperr.ErrNotParticipant
		}

		code := sess.roomCode
		h.detach(ctx, sess)

		return h.roomUsecase.Leave(ctx, code, sess.username)

	case events.TypePing:
		h.broadcaster.Send(sess.connID, events.TypePong, nil)

	default:
		return errUnknownMessage
	}

	return nil
}

// detach отвязывает соединение от текущей комнаты, участие при этом сохраняется.
func (h *WebSocketHandler) detach(ctx context.Context, sess *session) {
	if sess.roomCode == "" {
		return
	}

	h.roomUsecase.Unsubscribe(ctx, sess.roomCode, sess.connID)
	sess.roomCode = ""
}

// sendError отвечает ошибкой только отправителю сообщения
func (h *WebSocketHandler) sendError(sess *session, msgType string, err error) {
	appErr := apperr.From(err)

	if errors.Is(err, errUnknownMessage) {
		appErr = apperr.Newf(apperr.InvalidMessage, "unknown message type %q", msgType)
	}

	if appErr.Kind == apperr.Internal {
		slog.Error(
			"handle message",
			slog.String(constant.Event, msgType),
			slog.Any(constant.ConnectionID, sess.connID),
			slog.Any(constant.Error, err),
		)
	}

	h.broadcaster.Send(sess.connID, events.TypeError, appErr)
}
