package usecase

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/qrave1/TaleRoom/internal/application/constant"
	"github.com/qrave1/TaleRoom/internal/domain/events"
	"github.com/qrave1/TaleRoom/internal/infra/adapters/memory"
)

// Broadcaster доставляет события соединениям комнаты. Доставка best-effort:
// порядок сохраняется в пределах одного соединения, между соединениями не гарантируется.
type Broadcaster interface {
	Send(connID uuid.UUID, eventType string, payload any)
	Broadcast(connIDs []uuid.UUID, eventType string, payload any)
}

type wsBroadcaster struct {
	wsRepo memory.WebsocketConnectionRepository
}

func NewBroadcaster(wsRepo memory.WebsocketConnectionRepository) Broadcaster {
	return &wsBroadcaster{wsRepo: wsRepo}
}

func (b *wsBroadcaster) Send(connID uuid.UUID, eventType string, payload any) {
	msg, ok := b.message(eventType, payload)
	if !ok {
		return
	}

	b.wsRepo.Write(connID, msg)
}

func (b *wsBroadcaster) Broadcast(connIDs []uuid.UUID, eventType string, payload any) {
	if len(connIDs) == 0 {
		return
	}

	msg, ok := b.message(eventType, payload)
	if !ok {
		return
	}

	for _, id := range connIDs {
		b.wsRepo.Write(id, msg)
	}
}

func (b *wsBroadcaster) message(eventType string, payload any) (events.Message, bool) {
	msg, err := events.NewMessage(eventType, payload)
	if err != nil {
		slog.Error("build event", slog.String(constant.Event, eventType), slog.Any(constant.Error, err))
		return events.Message{}, false
	}

	return msg, true
}
