package memory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/qrave1/TaleRoom/internal/application/codegen"
	"github.com/qrave1/TaleRoom/internal/application/constant"
	"github.com/qrave1/TaleRoom/internal/application/metric"
	"github.com/qrave1/TaleRoom/internal/domain/apperr"
	"github.com/qrave1/TaleRoom/internal/domain/models"
)

// RoomRepository - реестр комнат. Изменения одной комнаты сериализуются
// ее собственной блокировкой, разные комнаты не мешают друг другу.
type RoomRepository interface {
	// Create выдает свободный код и регистрирует комнату атомарно.
	Create(maxParticipants int, creator models.Participant) (string, error)
	// Update выполняет fn под блокировкой комнаты.
	Update(code string, fn func(room *models.Room) error) error
	// View читает комнату под той же блокировкой, не продлевая ей жизнь.
	View(code string, fn func(room *models.Room)) error
	// RemoveIdle удаляет комнаты без соединений, неактивные с момента before.
	RemoveIdle(before time.Time) int
	Count() int
}

type RoomOption func(*roomRepository)

func WithCodeLength(n int) RoomOption {
	return func(r *roomRepository) { r.codeLength = n }
}

// WithEmptyGrace задает, сколько живет комната после ухода последнего участника.
func WithEmptyGrace(d time.Duration) RoomOption {
	return func(r *roomRepository) { r.emptyGrace = d }
}

func WithShuffle(shuffle models.ShuffleFunc) RoomOption {
	return func(r *roomRepository) { r.shuffle = shuffle }
}

type roomEntry struct {
	mu         sync.Mutex
	room       *models.Room
	removed    bool
	emptyTimer *time.Timer
}

type roomRepository struct {
	// rooms хранит map[code]*roomEntry
	rooms map[string]*roomEntry

	// порядок захвата: mu, затем roomEntry.mu
	mu sync.RWMutex

	codeLength int
	emptyGrace time.Duration
	shuffle    models.ShuffleFunc
}

func NewRoomRepository(opts ...RoomOption) RoomRepository {
	r := &roomRepository{
		rooms:      make(map[string]*roomEntry, 16),
		codeLength: 4,
		emptyGrace: 2 * time.Minute,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *roomRepository) Create(maxParticipants int, creator models.Participant) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := codegen.Generate(r.codeLength, r.rooms)
	r.rooms[code] = &roomEntry{room: models.NewRoom(code, maxParticipants, creator, r.shuffle)}

	metric.SetActiveRooms(len(r.rooms))

	return code, nil
}

func (r *roomRepository) Update(code string, fn func(room *models.Room) error) error {
	entry, ok := r.get(code)
	if !ok {
		return apperr.ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed {
		return apperr.ErrRoomNotFound
	}

	err := fn(entry.room)

	entry.room.LastActivity = time.Now()
	r.scheduleDisposal(code, entry)

	return err
}

func (r *roomRepository) View(code string, fn func(room *models.Room)) error {
	entry, ok := r.get(code)
	if !ok {
		return apperr.ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed {
		return apperr.ErrRoomNotFound
	}

	fn(entry.room)

	return nil
}

func (r *roomRepository) RemoveIdle(before time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0

	for code, entry := range r.rooms {
		entry.mu.Lock()

		if len(entry.room.Connections) == 0 && entry.room.LastActivity.Before(before) {
			r.dropLocked(code, entry)
			removed++
		}

		entry.mu.Unlock()
	}

	if removed > 0 {
		metric.SetActiveRooms(len(r.rooms))
	}

	return removed
}

func (r *roomRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

func (r *roomRepository) get(code string) (*roomEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.rooms[code]
	return entry, ok
}

// scheduleDisposal вызывается под блокировкой комнаты.
func (r *roomRepository) scheduleDisposal(code string, entry *roomEntry) {
	if !entry.room.IsEmpty() {
		if entry.emptyTimer != nil {
			entry.emptyTimer.Stop()
			entry.emptyTimer = nil
		}

		return
	}

	if entry.emptyTimer != nil {
		return
	}

	entry.emptyTimer = time.AfterFunc(r.emptyGrace, func() {
		r.disposeIfEmpty(code, entry)
	})
}

func (r *roomRepository) disposeIfEmpty(code string, entry *roomEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed || !entry.room.IsEmpty() || r.rooms[code] != entry {
		return
	}

	r.dropLocked(code, entry)
	metric.SetActiveRooms(len(r.rooms))

	slog.Info("empty room removed", slog.String(constant.RoomCode, code))
}

// dropLocked требует обе блокировки: реестра и комнаты.
func (r *roomRepository) dropLocked(code string, entry *roomEntry) {
	if entry.emptyTimer != nil {
		entry.emptyTimer.Stop()
		entry.emptyTimer = nil
	}

	entry.removed = true
	delete(r.rooms, code)
}
