package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Get(ctx context.Context, investor string) (*Preferences, error) {
	args := m.Called(ctx, investor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Preferences), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, prefs *Preferences) error {
	args := m.Called(ctx, prefs)
	return args.Error(0)
}

const investor = "0x1111111111111111111111111111111111111111"

func TestGetReturnsDefaultsWhenUnset(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())
	ctx := context.Background()

	repo.On("Get", ctx, investor).Return(nil, nil)

	prefs, err := service.Get(ctx, investor)

	assert.NoError(t, err)
	assert.Equal(t, "USD", prefs.DisplayCurrency)
	assert.True(t, prefs.NotifyStatusUpdates)
}

func TestUpdateAppliesPartialFields(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())
	ctx := context.Background()

	repo.On("Get", ctx, investor).Return(nil, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*settings.Preferences")).Return(nil)

	mute := false
	prefs, err := service.Update(ctx, investor, UpdateRequest{NotifyStatusUpdates: &mute})

	assert.NoError(t, err)
	assert.False(t, prefs.NotifyStatusUpdates)
	assert.Equal(t, "USD", prefs.DisplayCurrency, "untouched fields keep defaults")
	repo.AssertCalled(t, "Save", ctx, prefs)
}

func TestUpdateRejectsUnknownCurrency(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())
	ctx := context.Background()

	repo.On("Get", ctx, investor).Return(nil, nil)

	currency := "DOGE"
	_, err := service.Update(ctx, investor, UpdateRequest{DisplayCurrency: &currency})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestWantsStatusUpdatesDefaultsOnError(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())
	ctx := context.Background()

	repo.On("Get", ctx, investor).Return(nil, errors.New("connection refused"))

	assert.True(t, service.WantsStatusUpdates(ctx, investor))
}

func TestWantsStatusUpdatesHonorsMute(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())
	ctx := context.Background()

	muted := DefaultPreferences(investor)
	muted.NotifyStatusUpdates = false
	repo.On("Get", ctx, investor).Return(muted, nil)

	assert.False(t, service.WantsStatusUpdates(ctx, investor))
}
