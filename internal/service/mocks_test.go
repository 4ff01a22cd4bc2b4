package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"gptcatalog/internal/model"
	"gptcatalog/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
	Invites *MockInviteRepository
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) PromoteIfRole(ctx context.Context, id uint, from, to model.Role, status string) (bool, error) {
	args := m.Called(ctx, id, from, to, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockUserRepository) SetRoleByEmail(ctx context.Context, email string, role model.Role, status string) (int64, error) {
	args := m.Called(ctx, email, role, status)
	return args.Get(0).(int64), args.Error(1)
}

// WithTransaction runs fn against the mocks themselves unless an error is
// configured for the call.
func (m *MockUserRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, users repository.UserRepository, invites repository.InviteRepository) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m, m.Invites)
}

// MockInviteRepository is a mock implementation of InviteRepository.
type MockInviteRepository struct {
	mock.Mock
}

func (m *MockInviteRepository) FindByCode(ctx context.Context, code string) (*model.InviteCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InviteCode), args.Error(1)
}

func (m *MockInviteRepository) MarkUsed(ctx context.Context, id, userID uint) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockInviteRepository) CreateBatch(ctx context.Context, codes []model.InviteCode) error {
	args := m.Called(ctx, codes)
	return args.Error(0)
}

// MockDeliveryStore is a mock implementation of DeliveryStoreInterface.
type MockDeliveryStore struct {
	mock.Mock
}

func (m *MockDeliveryStore) Seen(ctx context.Context, key string) bool {
	args := m.Called(ctx, key)
	return args.Bool(0)
}

func (m *MockDeliveryStore) Remember(ctx context.Context, key string, ttl time.Duration) {
	m.Called(ctx, key, ttl)
}

// MockPaymentEventRepository is a mock implementation of PaymentEventRepository.
type MockPaymentEventRepository struct {
	mock.Mock
}

func (m *MockPaymentEventRepository) Create(ctx context.Context, event *model.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPaymentEventRepository) CreateBatch(ctx context.Context, events []model.PaymentEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockPaymentEventRepository) ListByEmail(ctx context.Context, email string) ([]model.PaymentEvent, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PaymentEvent), args.Error(1)
}

// captureSink collects recorded events in memory.
type captureSink struct {
	mu     sync.Mutex
	events []model.PaymentEvent
}

func (s *captureSink) Record(_ context.Context, event model.PaymentEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) all() []model.PaymentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.PaymentEvent(nil), s.events...)
}
