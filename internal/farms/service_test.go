package farms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"mocha-tree/investor-portal/investor-portal-backend/internal/chain"
)

// MockReader is a mock implementation of the ContractReader interface
type MockReader struct {
	mock.Mock
}

func (m *MockReader) ActiveFarmIDs(ctx context.Context) ([]uint64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint64), args.Error(1)
}

func (m *MockReader) FarmConfigs(ctx context.Context, ids []uint64) []chain.FarmConfigResult {
	args := m.Called(ctx, ids)
	return args.Get(0).([]chain.FarmConfigResult)
}

func (m *MockReader) FarmConfig(ctx context.Context, id uint64) (*chain.FarmConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.FarmConfig), args.Error(1)
}

func sampleConfigs() []chain.FarmConfigResult {
	return []chain.FarmConfigResult{
		{FarmID: 1, Config: &chain.FarmConfig{Name: "Kiambu Highlands", ShareTokenSymbol: "MABB-KH", TreeCount: 500, TargetYieldBps: 1000, Active: true}},
		{FarmID: 2, Config: &chain.FarmConfig{Name: "Nyeri Slopes", ShareTokenSymbol: "MABB-NS", TreeCount: 300, TargetYieldBps: 1200, Active: false}},
		{FarmID: 3, Config: &chain.FarmConfig{Name: "Embu Valley", ShareTokenSymbol: "MABB-EV", TreeCount: 800, TargetYieldBps: 900, Active: true}},
	}
}

func TestListFarms(t *testing.T) {
	mockReader := new(MockReader)
	service := NewService(mockReader, zap.NewNop())
	ctx := context.Background()

	mockReader.On("ActiveFarmIDs", ctx).Return([]uint64{1, 2, 3}, nil)
	mockReader.On("FarmConfigs", ctx, []uint64{1, 2, 3}).Return(sampleConfigs())

	records, err := service.ListFarms(ctx, ListQuery{})

	assert.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, "Kiambu Highlands", records[0].Name)
	assert.True(t, records[0].Active)
	assert.False(t, records[1].Active)
	mockReader.AssertExpectations(t)
}

func TestListFarmsCatalogUnavailable(t *testing.T) {
	mockReader := new(MockReader)
	service := NewService(mockReader, zap.NewNop())
	ctx := context.Background()

	mockReader.On("ActiveFarmIDs", ctx).Return(nil, errors.New("rpc timeout"))

	_, err := service.ListFarms(ctx, ListQuery{})

	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestListFarmsPartialFailure(t *testing.T) {
	mockReader := new(MockReader)
	service := NewService(mockReader, zap.NewNop())
	ctx := context.Background()

	configs := sampleConfigs()
	configs[1] = chain.FarmConfigResult{FarmID: 2, Err: errors.New("execution reverted")}

	mockReader.On("ActiveFarmIDs", ctx).Return([]uint64{1, 2, 3}, nil)
	mockReader.On("FarmConfigs", ctx, []uint64{1, 2, 3}).Return(configs)

	records, err := service.ListFarms(ctx, ListQuery{})

	assert.NoError(t, err)
	assert.Len(t, records, 3, "a failed config read must not drop the listing")
	assert.NotEmpty(t, records[1].ReadError)
	assert.False(t, records[1].Usable())
	assert.True(t, records[0].Usable())
}

func TestListFarmsActiveFilterAndSearch(t *testing.T) {
	mockReader := new(MockReader)
	service := NewService(mockReader, zap.NewNop())
	ctx := context.Background()

	mockReader.On("ActiveFarmIDs", ctx).Return([]uint64{1, 2, 3}, nil)
	mockReader.On("FarmConfigs", ctx, []uint64{1, 2, 3}).Return(sampleConfigs())

	records, err := service.ListFarms(ctx, ListQuery{ActiveOnly: true, Search: "embu"})

	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, uint64(3), records[0].ID)
}

func TestListFarmsSearchMatchesSymbol(t *testing.T) {
	mockReader := new(MockReader)
	service := NewService(mockReader, zap.NewNop())
	ctx := context.Background()

	mockReader.On("ActiveFarmIDs", ctx).Return([]uint64{1, 2, 3}, nil)
	mockReader.On("FarmConfigs", ctx, []uint64{1, 2, 3}).Return(sampleConfigs())

	records, err := service.ListFarms(ctx, ListQuery{Search: "mabb-ns"})

	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "Nyeri Slopes", records[0].Name)
}

func TestListFarmsSort(t *testing.T) {
	mockReader := new(MockReader)
	service := NewService(mockReader, zap.NewNop())
	ctx := context.Background()

	mockReader.On("ActiveFarmIDs", ctx).Return([]uint64{1, 2, 3}, nil)
	mockReader.On("FarmConfigs", ctx, []uint64{1, 2, 3}).Return(sampleConfigs())

	records, err := service.ListFarms(ctx, ListQuery{SortBy: SortByUnits, Desc: true})

	assert.NoError(t, err)
	assert.Equal(t, []uint64{3, 1, 2}, []uint64{records[0].ID, records[1].ID, records[2].ID})
}

func TestListFarmsSortTiesBreakByID(t *testing.T) {
	mockReader := new(MockReader)
	service := NewService(mockReader, zap.NewNop())
	ctx := context.Background()

	configs := sampleConfigs()
	for i := range configs {
		configs[i].Config.TargetYieldBps = 1000
	}

	mockReader.On("ActiveFarmIDs", ctx).Return([]uint64{1, 2, 3}, nil)
	mockReader.On("FarmConfigs", ctx, []uint64{1, 2, 3}).Return(configs)

	records, err := service.ListFarms(ctx, ListQuery{SortBy: SortByYield})

	assert.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{records[0].ID, records[1].ID, records[2].ID})
}

func TestListFarmsIdempotent(t *testing.T) {
	mockReader := new(MockReader)
	service := NewService(mockReader, zap.NewNop())
	ctx := context.Background()

	mockReader.On("ActiveFarmIDs", ctx).Return([]uint64{1, 2, 3}, nil)
	mockReader.On("FarmConfigs", ctx, []uint64{1, 2, 3}).Return(sampleConfigs())

	first, err := service.ListFarms(ctx, ListQuery{})
	assert.NoError(t, err)
	second, err := service.ListFarms(ctx, ListQuery{})
	assert.NoError(t, err)

	assert.Equal(t, first, second)
}
