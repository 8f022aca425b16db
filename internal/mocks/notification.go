package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
)

// Inbox mocks notification.Repository.
type Inbox struct{ mock.Mock }

func (m *Inbox) Insert(ctx context.Context, r *notification.Record) error {
	return m.Called(ctx, r).Error(0)
}

func (m *Inbox) CountBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	args := m.Called(ctx, userID, from, to)
	return args.Int(0), args.Error(1)
}

func (m *Inbox) LastBetween(ctx context.Context, userID string, from, to time.Time) (*time.Time, error) {
	args := m.Called(ctx, userID, from, to)
	t, _ := args.Get(0).(*time.Time)
	return t, args.Error(1)
}

func (m *Inbox) ListRecent(ctx context.Context, userID string, limit int) ([]notification.Record, error) {
	args := m.Called(ctx, userID, limit)
	r, _ := args.Get(0).([]notification.Record)
	return r, args.Error(1)
}

// TauntRepository mocks notification.TauntRepository.
type TauntRepository struct{ mock.Mock }

func (m *TauntRepository) Insert(ctx context.Context, t *notification.TauntRecord) error {
	return m.Called(ctx, t).Error(0)
}

func (m *TauntRepository) CountBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	args := m.Called(ctx, userID, from, to)
	return args.Int(0), args.Error(1)
}

func (m *TauntRepository) ListRecent(ctx context.Context, userID string, limit int) ([]notification.TauntRecord, error) {
	args := m.Called(ctx, userID, limit)
	r, _ := args.Get(0).([]notification.TauntRecord)
	return r, args.Error(1)
}

// PersonaRepository mocks notification.PersonaRepository.
type PersonaRepository struct{ mock.Mock }

func (m *PersonaRepository) Insert(ctx context.Context, p *notification.PersonaMessage) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PersonaRepository) Latest(ctx context.Context, userID string, now time.Time) (*notification.PersonaMessage, error) {
	args := m.Called(ctx, userID, now)
	p, _ := args.Get(0).(*notification.PersonaMessage)
	return p, args.Error(1)
}

// Composer mocks notification.MessageComposer. Available reports Up.
type Composer struct {
	mock.Mock
	Up bool
}

func (m *Composer) Compose(ctx context.Context, req notification.Request) (notification.Message, error) {
	args := m.Called(ctx, req)
	msg, _ := args.Get(0).(notification.Message)
	return msg, args.Error(1)
}

func (m *Composer) Available() bool { return m.Up }
