package holdings

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"mocha-tree/investor-portal/investor-portal-backend/internal/chain"
)

// Display-only interest projections, from the observed product figures:
// each $100 bond targets $10 a year over a five-year term.
const (
	interestPerBondUSD = 10
	returnHorizonYears = 5
)

// ContractReader is the slice of the chain client the aggregator needs.
type ContractReader interface {
	ActiveFarmIDs(ctx context.Context) ([]uint64, error)
	FarmConfigs(ctx context.Context, ids []uint64) []chain.FarmConfigResult
	ShareBalances(ctx context.Context, tokens map[uint64]common.Address, owner common.Address) []chain.BalanceResult
}

// Portfolio is an investor's aggregate position. The interest figures are
// derived for display only and never feed a transaction.
type Portfolio struct {
	Investor            common.Address    `json:"investor"`
	Holdings            map[uint64]uint64 `json:"holdings"`
	TotalBonds          uint64            `json:"total_bonds"`
	AnnualInterestUSD   uint64            `json:"annual_interest_usd"`
	CumulativeReturnUSD uint64            `json:"cumulative_return_usd"`
}

// Service aggregates per-farm share-token balances into bond holdings.
type Service struct {
	reader ContractReader
	logger *zap.Logger
}

// NewService creates the holdings aggregator.
func NewService(reader ContractReader, logger *zap.Logger) *Service {
	return &Service{reader: reader, logger: logger}
}

// GetHoldings returns the investor's bond balance per farm. The zero
// address (no wallet session) yields an empty map, not an error. A farm
// whose balance read failed counts as zero rather than blocking the rest.
func (s *Service) GetHoldings(ctx context.Context, investor common.Address) (map[uint64]uint64, error) {
	balances := make(map[uint64]uint64)
	if investor == (common.Address{}) {
		return balances, nil
	}

	ids, err := s.reader.ActiveFarmIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read farm list: %w", err)
	}

	tokens := make(map[uint64]common.Address, len(ids))
	for _, result := range s.reader.FarmConfigs(ctx, ids) {
		if result.Err != nil {
			// No share token address to query; unknown means none.
			s.logger.Warn("Skipping farm with unreadable config",
				zap.Uint64("farm_id", result.FarmID),
				zap.Error(result.Err))
			balances[result.FarmID] = 0
			continue
		}
		tokens[result.FarmID] = result.Config.ShareTokenAddress
	}

	for _, result := range s.reader.ShareBalances(ctx, tokens, investor) {
		if result.Err != nil {
			s.logger.Warn("Share balance read failed, assuming zero",
				zap.Uint64("farm_id", result.FarmID),
				zap.Error(result.Err))
			balances[result.FarmID] = 0
			continue
		}
		balances[result.FarmID] = result.Balance.Uint64()
	}
	return balances, nil
}

// TotalBonds sums the investor's bond balances across all farms.
func (s *Service) TotalBonds(ctx context.Context, investor common.Address) (uint64, error) {
	balances, err := s.GetHoldings(ctx, investor)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, balance := range balances {
		total += balance
	}
	return total, nil
}

// Portfolio returns holdings plus the projected interest figures shown on
// the dashboard.
func (s *Service) Portfolio(ctx context.Context, investor common.Address) (*Portfolio, error) {
	balances, err := s.GetHoldings(ctx, investor)
	if err != nil {
		return nil, err
	}

	var total uint64
	for _, balance := range balances {
		total += balance
	}

	annual := total * interestPerBondUSD
	return &Portfolio{
		Investor:            investor,
		Holdings:            balances,
		TotalBonds:          total,
		AnnualInterestUSD:   annual,
		CumulativeReturnUSD: annual * returnHorizonYears,
	}, nil
}
