package usecase

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/qrave1/TaleRoom/internal/domain/models"
)

// --- Generator ---

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt models.Prompt) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// --- ProfileRepository ---

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetProfiles(ctx context.Context, usernames []string) ([]*models.User, error) {
	args := m.Called(ctx, usernames)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

// --- UserRepository ---

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) GetProfiles(ctx context.Context, usernames []string) ([]*models.User, error) {
	args := m.Called(ctx, usernames)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

// --- Broadcaster ---

type sentEvent struct {
	ConnID  uuid.UUID
	Type    string
	Payload any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (b *recordingBroadcaster) Send(connID uuid.UUID, eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, sentEvent{ConnID: connID, Type: eventType, Payload: payload})
}

func (b *recordingBroadcaster) Broadcast(connIDs []uuid.UUID, eventType string, payload any) {
	for _, id := range connIDs {
		b.Send(id, eventType, payload)
	}
}

func (b *recordingBroadcaster) ofType(eventType string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []sentEvent

	for _, e := range b.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}

	return out
}

func (b *recordingBroadcaster) to(connID uuid.UUID, eventType string) []sentEvent {
	var out []sentEvent

	for _, e := range b.ofType(eventType) {
		if e.ConnID == connID {
			out = append(out, e)
		}
	}

	return out
}
