package memory

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/qrave1/TaleRoom/internal/application/constant"
	"github.com/qrave1/TaleRoom/internal/application/metric"
)

// Conn - то, что нужно реестру от websocket соединения
type Conn interface {
	WriteJSON(v any) error
}

// WebsocketConnectionRepository хранит живые соединения по connection_id
type WebsocketConnectionRepository interface {
	Add(uuid.UUID, Conn)
	Remove(uuid.UUID)

	// Write отправляет сообщение одному соединению. Записи в одно соединение
	// идут строго по очереди. Ошибка записи не возвращается: соединение
	// уже закрывается своим обработчиком.
	Write(uuid.UUID, any)
	Count() int
}

type safeWS struct {
	conn Conn
	mu   sync.Mutex
}

type wsConnectionRepository struct {
	// wsConns хранит map[connection_id]*safeWS
	wsConns map[uuid.UUID]*safeWS

	mu sync.RWMutex
}

func NewWSConnectionRepository() WebsocketConnectionRepository {
	return &wsConnectionRepository{
		wsConns: make(map[uuid.UUID]*safeWS, 16),
	}
}

func (w *wsConnectionRepository) Add(connID uuid.UUID, conn Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.wsConns[connID]; !ok {
		metric.IncrementWSActiveConnections()
	}

	w.wsConns[connID] = &safeWS{conn: conn}
}

func (w *wsConnectionRepository) Remove(connID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.wsConns[connID]; ok {
		metric.DecrementWSActiveConnections()
		delete(w.wsConns, connID)
	}
}

func (w *wsConnectionRepository) Write(connID uuid.UUID, payload any) {
	safews, ok := w.getSafeWS(connID)
	if !ok {
		slog.Debug("websocket connection gone", slog.Any(constant.ConnectionID, connID))
		return
	}

	safews.mu.Lock()
	defer safews.mu.Unlock()

	if err := safews.conn.WriteJSON(payload); err != nil {
		slog.Warn(
			"write to websocket",
			slog.Any(constant.ConnectionID, connID),
			slog.Any(constant.Error, err),
		)
	}
}

func (w *wsConnectionRepository) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return len(w.wsConns)
}

func (w *wsConnectionRepository) getSafeWS(connID uuid.UUID) (*safeWS, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	conn, ok := w.wsConns[connID]
	return conn, ok
}
