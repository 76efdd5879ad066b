package purchase

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"mocha-tree/investor-portal/investor-portal-backend/internal/farms"
	"mocha-tree/investor-portal/investor-portal-backend/internal/pricing"
)

// MockFarmSource is a mock implementation of the FarmSource interface
type MockFarmSource struct {
	mock.Mock
}

func (m *MockFarmSource) Farm(ctx context.Context, id uint64) (*farms.Farm, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*farms.Farm), args.Error(1)
}

// MockHoldingsSource is a mock implementation of the HoldingsSource interface
type MockHoldingsSource struct {
	mock.Mock
}

func (m *MockHoldingsSource) TotalBonds(ctx context.Context, investor common.Address) (uint64, error) {
	args := m.Called(ctx, investor)
	return args.Get(0).(uint64), args.Error(1)
}

// MockFundsReader is a mock implementation of the FundsReader interface
type MockFundsReader struct {
	mock.Mock
}

func (m *MockFundsReader) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockFundsReader) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	args := m.Called(ctx, token, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockFundsReader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	args := m.Called(ctx, token, owner, spender)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

var (
	testInvestor = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testToken    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testContract = common.HexToAddress("0x4b02Bada976702E83Cf91Cd0B896852099099352")
)

func activeFarm() *farms.Farm {
	return &farms.Farm{ID: 1, Name: "Kiambu Highlands", Active: true}
}

func tokenValidator(farmSource *MockFarmSource, holdingsSource *MockHoldingsSource, funds *MockFundsReader) *Validator {
	return NewValidator(farmSource, holdingsSource, funds,
		pricing.NewCalculator(100, 1000, 18),
		ValidatorConfig{
			MaxBondsPerInvestor: 20,
			Mode:                pricing.ModeToken,
			PaymentToken:        testToken,
			Contract:            testContract,
		})
}

func tokenUnits(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestValidateEligible(t *testing.T) {
	farmSource := new(MockFarmSource)
	holdingsSource := new(MockHoldingsSource)
	funds := new(MockFundsReader)
	validator := tokenValidator(farmSource, holdingsSource, funds)
	ctx := context.Background()

	farmSource.On("Farm", ctx, uint64(1)).Return(activeFarm(), nil)
	holdingsSource.On("TotalBonds", ctx, testInvestor).Return(uint64(2), nil)
	funds.On("TokenBalance", ctx, testToken, testInvestor).Return(tokenUnits(100), nil)
	funds.On("Allowance", ctx, testToken, testInvestor, testContract).Return(tokenUnits(10), nil)

	eligibility, err := validator.Validate(ctx, testInvestor, 1, "5")

	assert.NoError(t, err)
	assert.Equal(t, uint64(5), eligibility.Amount)
	assert.Equal(t, uint64(500), eligibility.Quote.TotalCostUSD)
	assert.False(t, eligibility.ApprovalNeeded, "allowance covers cost")
}

func TestValidateApprovalNeeded(t *testing.T) {
	farmSource := new(MockFarmSource)
	holdingsSource := new(MockHoldingsSource)
	funds := new(MockFundsReader)
	validator := tokenValidator(farmSource, holdingsSource, funds)
	ctx := context.Background()

	farmSource.On("Farm", ctx, uint64(1)).Return(activeFarm(), nil)
	holdingsSource.On("TotalBonds", ctx, testInvestor).Return(uint64(0), nil)
	funds.On("TokenBalance", ctx, testToken, testInvestor).Return(tokenUnits(100), nil)
	funds.On("Allowance", ctx, testToken, testInvestor, testContract).Return(big.NewInt(0), nil)

	eligibility, err := validator.Validate(ctx, testInvestor, 1, "5")

	assert.NoError(t, err)
	assert.True(t, eligibility.ApprovalNeeded, "zero allowance needs approval")
	assert.Equal(t, 0, eligibility.Allowance.Sign())
}

func TestValidateNoFarmSelected(t *testing.T) {
	farmSource := new(MockFarmSource)
	validator := tokenValidator(farmSource, new(MockHoldingsSource), new(MockFundsReader))

	_, err := validator.Validate(context.Background(), testInvestor, 0, "1")

	rejection, ok := AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, CodeNoFarmSelected, rejection.Code)
	farmSource.AssertNotCalled(t, "Farm", mock.Anything, mock.Anything)
}

func TestValidateUnknownFarm(t *testing.T) {
	farmSource := new(MockFarmSource)
	validator := tokenValidator(farmSource, new(MockHoldingsSource), new(MockFundsReader))
	ctx := context.Background()

	farmSource.On("Farm", ctx, uint64(9)).Return(nil, errors.New("execution reverted"))

	_, err := validator.Validate(ctx, testInvestor, 9, "1")

	rejection, ok := AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, CodeNoFarmSelected, rejection.Code)
}

func TestValidateFarmInactive(t *testing.T) {
	farmSource := new(MockFarmSource)
	validator := tokenValidator(farmSource, new(MockHoldingsSource), new(MockFundsReader))
	ctx := context.Background()

	inactive := activeFarm()
	inactive.Active = false
	farmSource.On("Farm", ctx, uint64(1)).Return(inactive, nil)

	_, err := validator.Validate(ctx, testInvestor, 1, "1")

	rejection, ok := AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, CodeFarmInactive, rejection.Code)
}

func TestValidateInvalidAmount(t *testing.T) {
	for _, raw := range []string{"0", "-1", "abc", "1.5", ""} {
		farmSource := new(MockFarmSource)
		holdingsSource := new(MockHoldingsSource)
		validator := tokenValidator(farmSource, holdingsSource, new(MockFundsReader))
		ctx := context.Background()

		farmSource.On("Farm", ctx, uint64(1)).Return(activeFarm(), nil)

		_, err := validator.Validate(ctx, testInvestor, 1, raw)

		rejection, ok := AsRejection(err)
		assert.True(t, ok, "input %q must be rejected", raw)
		assert.Equal(t, CodeInvalidAmount, rejection.Code, "input %q", raw)
		holdingsSource.AssertNotCalled(t, "TotalBonds", mock.Anything, mock.Anything)
	}
}

func TestValidateCapExceeded(t *testing.T) {
	farmSource := new(MockFarmSource)
	holdingsSource := new(MockHoldingsSource)
	funds := new(MockFundsReader)
	validator := tokenValidator(farmSource, holdingsSource, funds)
	ctx := context.Background()

	farmSource.On("Farm", ctx, uint64(1)).Return(activeFarm(), nil)
	holdingsSource.On("TotalBonds", ctx, testInvestor).Return(uint64(18), nil)

	_, err := validator.Validate(ctx, testInvestor, 1, "3")

	rejection, ok := AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, CodeCapExceeded, rejection.Code)
	assert.NotNil(t, rejection.Remaining)
	assert.Equal(t, uint64(2), *rejection.Remaining)
	funds.AssertNotCalled(t, "TokenBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateCapBoundary(t *testing.T) {
	// Any request pushing held+amount past 20 is refused with the exact
	// remaining headroom; a request landing on 20 passes the cap check.
	cases := []struct {
		held      uint64
		amount    string
		remaining uint64
		rejected  bool
	}{
		{held: 0, amount: "21", remaining: 20, rejected: true},
		{held: 19, amount: "2", remaining: 1, rejected: true},
		{held: 20, amount: "1", remaining: 0, rejected: true},
		{held: 25, amount: "1", remaining: 0, rejected: true},
		// Max uint64: the sum would wrap to 9 and slip under the cap.
		{held: 10, amount: "18446744073709551615", remaining: 10, rejected: true},
		{held: 15, amount: "5", rejected: false},
	}

	for _, tc := range cases {
		farmSource := new(MockFarmSource)
		holdingsSource := new(MockHoldingsSource)
		funds := new(MockFundsReader)
		validator := tokenValidator(farmSource, holdingsSource, funds)
		ctx := context.Background()

		farmSource.On("Farm", ctx, uint64(1)).Return(activeFarm(), nil)
		holdingsSource.On("TotalBonds", ctx, testInvestor).Return(tc.held, nil)
		funds.On("TokenBalance", ctx, testToken, testInvestor).Return(tokenUnits(1000), nil).Maybe()
		funds.On("Allowance", ctx, testToken, testInvestor, testContract).Return(tokenUnits(1000), nil).Maybe()

		_, err := validator.Validate(ctx, testInvestor, 1, tc.amount)

		if !tc.rejected {
			assert.NoError(t, err, "held=%d amount=%s", tc.held, tc.amount)
			continue
		}
		rejection, ok := AsRejection(err)
		assert.True(t, ok, "held=%d amount=%s", tc.held, tc.amount)
		assert.Equal(t, CodeCapExceeded, rejection.Code)
		assert.Equal(t, tc.remaining, *rejection.Remaining, "held=%d", tc.held)
	}
}

func TestValidateInsufficientTokenFunds(t *testing.T) {
	farmSource := new(MockFarmSource)
	holdingsSource := new(MockHoldingsSource)
	funds := new(MockFundsReader)
	validator := tokenValidator(farmSource, holdingsSource, funds)
	ctx := context.Background()

	farmSource.On("Farm", ctx, uint64(1)).Return(activeFarm(), nil)
	holdingsSource.On("TotalBonds", ctx, testInvestor).Return(uint64(0), nil)
	funds.On("TokenBalance", ctx, testToken, testInvestor).Return(tokenUnits(4), nil)

	_, err := validator.Validate(ctx, testInvestor, 1, "5")

	rejection, ok := AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, CodeInsufficientFunds, rejection.Code)
	funds.AssertNotCalled(t, "Allowance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateNativeModeChecksNativeBalance(t *testing.T) {
	farmSource := new(MockFarmSource)
	holdingsSource := new(MockHoldingsSource)
	funds := new(MockFundsReader)
	validator := NewValidator(farmSource, holdingsSource, funds,
		pricing.NewCalculator(100, 1000, 18),
		ValidatorConfig{
			MaxBondsPerInvestor: 20,
			Mode:                pricing.ModeNative,
			Contract:            testContract,
		})
	ctx := context.Background()

	farmSource.On("Farm", ctx, uint64(1)).Return(activeFarm(), nil)
	holdingsSource.On("TotalBonds", ctx, testInvestor).Return(uint64(0), nil)
	// 2 bonds cost 0.2 ETH; 0.1 ETH on hand.
	funds.On("NativeBalance", ctx, testInvestor).Return(new(big.Int).Div(tokenUnits(1), big.NewInt(10)), nil)

	_, err := validator.Validate(ctx, testInvestor, 1, "2")

	rejection, ok := AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, CodeInsufficientFunds, rejection.Code)
	funds.AssertNotCalled(t, "TokenBalance", mock.Anything, mock.Anything, mock.Anything)
	funds.AssertNotCalled(t, "Allowance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
