package mocks

import (
	"context"

	"github.com/jhall/workbench/internal/repository"
	"github.com/stretchr/testify/mock"
)

// ChangeRepository is a mock for repository.ChangeRepository.
type ChangeRepository struct {
	mock.Mock
}

func (m *ChangeRepository) Upsert(ctx context.Context, change *repository.Change) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *ChangeRepository) List(ctx context.Context, limit int) ([]repository.Change, error) {
	args := m.Called(ctx, limit)
	if changes, ok := args.Get(0).([]repository.Change); ok {
		return changes, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChangeRepository) Prune(ctx context.Context, keep int) error {
	args := m.Called(ctx, keep)
	return args.Error(0)
}

// AttemptRepository is a mock for repository.AttemptRepository.
type AttemptRepository struct {
	mock.Mock
}

func (m *AttemptRepository) Get(ctx context.Context, scope string) (*repository.AttemptState, error) {
	args := m.Called(ctx, scope)
	if state, ok := args.Get(0).(*repository.AttemptState); ok {
		return state, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AttemptRepository) Put(ctx context.Context, state *repository.AttemptState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *AttemptRepository) Clear(ctx context.Context, scope string) error {
	args := m.Called(ctx, scope)
	return args.Error(0)
}
