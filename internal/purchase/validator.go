package purchase

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"mocha-tree/investor-portal/investor-portal-backend/internal/farms"
	"mocha-tree/investor-portal/investor-portal-backend/internal/pricing"
)

// FarmSource resolves farm records for validation.
type FarmSource interface {
	Farm(ctx context.Context, id uint64) (*farms.Farm, error)
}

// HoldingsSource reports the investor's current bond total.
type HoldingsSource interface {
	TotalBonds(ctx context.Context, investor common.Address) (uint64, error)
}

// FundsReader reads the balances and allowance that decide affordability.
type FundsReader interface {
	NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// ValidatorConfig fixes the economics and payment route checks run against.
type ValidatorConfig struct {
	MaxBondsPerInvestor uint64
	Mode                pricing.Mode
	PaymentToken        common.Address
	Contract            common.Address
}

// Eligibility is a passed validation: the priced request plus the approval
// flag the orchestrator consumes. ApprovalNeeded is informational, never a
// rejection.
type Eligibility struct {
	Farm           *farms.Farm
	Investor       common.Address
	Amount         uint64
	Quote          *pricing.Quote
	ApprovalNeeded bool
	Allowance      *big.Int
}

// Validator enforces the purchase invariants against fresh chain reads.
// Checks run in a fixed order and the first failure is the only reported
// reason. Validation never touches the write client.
type Validator struct {
	farms    FarmSource
	holdings HoldingsSource
	funds    FundsReader
	pricer   *pricing.Calculator
	cfg      ValidatorConfig
}

// NewValidator creates the eligibility validator.
func NewValidator(farmSource FarmSource, holdingsSource HoldingsSource, funds FundsReader, pricer *pricing.Calculator, cfg ValidatorConfig) *Validator {
	return &Validator{
		farms:    farmSource,
		holdings: holdingsSource,
		funds:    funds,
		pricer:   pricer,
		cfg:      cfg,
	}
}

// Validate prices the request and checks, in order: farm selected and
// active, amount is an integer >= 1, the per-investor cap, and sufficient
// funds. On success it also determines whether a token approval must
// precede the purchase.
func (v *Validator) Validate(ctx context.Context, investor common.Address, farmID uint64, rawAmount string) (*Eligibility, error) {
	// 1. Farm selected and active.
	if farmID == 0 {
		return nil, reject(CodeNoFarmSelected, "please select a farm")
	}
	farm, err := v.farms.Farm(ctx, farmID)
	if err != nil {
		return nil, reject(CodeNoFarmSelected, fmt.Sprintf("farm %d cannot be found", farmID))
	}
	if !farm.Active {
		return nil, reject(CodeFarmInactive, fmt.Sprintf("farm %q is not accepting purchases", farm.Name))
	}

	// 2. Amount parses as an integer >= 1.
	amount, err := strconv.ParseUint(rawAmount, 10, 64)
	if err != nil || amount < 1 {
		return nil, reject(CodeInvalidAmount, "please enter at least 1 bond")
	}

	// 3. Per-investor cap across all farms.
	held, err := v.holdings.TotalBonds(ctx, investor)
	if err != nil {
		return nil, fmt.Errorf("failed to read holdings: %w", err)
	}
	// Compared against the remaining headroom; amount+held can wrap.
	if held >= v.cfg.MaxBondsPerInvestor || amount > v.cfg.MaxBondsPerInvestor-held {
		return nil, rejectCapExceeded(v.cfg.MaxBondsPerInvestor, held)
	}

	quote, err := v.pricer.Quote(amount, v.cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to price request: %w", err)
	}

	// 4. Sufficient funds in the payment asset.
	available, err := v.availableBalance(ctx, investor)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	if available.Cmp(quote.Amount) < 0 {
		return nil, reject(CodeInsufficientFunds, insufficientFundsMessage(v.cfg.Mode))
	}

	eligibility := &Eligibility{
		Farm:     farm,
		Investor: investor,
		Amount:   amount,
		Quote:    quote,
	}

	// Token mode: decide whether an approval step must run first.
	if v.cfg.Mode == pricing.ModeToken {
		allowance, err := v.funds.Allowance(ctx, v.cfg.PaymentToken, investor, v.cfg.Contract)
		if err != nil {
			return nil, fmt.Errorf("failed to read allowance: %w", err)
		}
		eligibility.Allowance = allowance
		eligibility.ApprovalNeeded = allowance.Cmp(quote.Amount) < 0
	}

	return eligibility, nil
}

func (v *Validator) availableBalance(ctx context.Context, investor common.Address) (*big.Int, error) {
	if v.cfg.Mode == pricing.ModeNative {
		return v.funds.NativeBalance(ctx, investor)
	}
	return v.funds.TokenBalance(ctx, v.cfg.PaymentToken, investor)
}

func insufficientFundsMessage(mode pricing.Mode) string {
	if mode == pricing.ModeNative {
		return "insufficient ETH balance"
	}
	return "insufficient payment token balance"
}
