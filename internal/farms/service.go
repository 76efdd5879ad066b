package farms

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"mocha-tree/investor-portal/investor-portal-backend/internal/chain"
)

// ContractReader is the slice of the chain client the catalog needs.
type ContractReader interface {
	ActiveFarmIDs(ctx context.Context) ([]uint64, error)
	FarmConfigs(ctx context.Context, ids []uint64) []chain.FarmConfigResult
	FarmConfig(ctx context.Context, id uint64) (*chain.FarmConfig, error)
}

// Service builds farm catalog listings from fresh chain reads.
type Service struct {
	reader ContractReader
	logger *zap.Logger
}

// NewService creates the catalog service.
func NewService(reader ContractReader, logger *zap.Logger) *Service {
	return &Service{reader: reader, logger: logger}
}

// ListFarms reads the farm list and per-farm configuration, then applies
// the query's filter, search and sort. A failed identifier-list read fails
// the whole listing with ErrCatalogUnavailable; a failed config read only
// tags its own record.
func (s *Service) ListFarms(ctx context.Context, query ListQuery) ([]Farm, error) {
	ids, err := s.reader.ActiveFarmIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	records := make([]Farm, 0, len(ids))
	for _, result := range s.reader.FarmConfigs(ctx, ids) {
		farm := Farm{ID: result.FarmID}
		if result.Err != nil {
			s.logger.Warn("Farm config read failed",
				zap.Uint64("farm_id", result.FarmID),
				zap.Error(result.Err))
			farm.ReadError = result.Err.Error()
			records = append(records, farm)
			continue
		}
		cfg := result.Config
		farm.Name = cfg.Name
		farm.ShareTokenSymbol = cfg.ShareTokenSymbol
		farm.ShareTokenAddress = cfg.ShareTokenAddress
		farm.Owner = cfg.Owner
		farm.TreeCount = cfg.TreeCount
		farm.TargetYieldBps = cfg.TargetYieldBps
		farm.Active = cfg.Active
		records = append(records, farm)
	}

	records = filterFarms(records, query)
	sortFarms(records, query)
	return records, nil
}

// Farm reads a single farm record.
func (s *Service) Farm(ctx context.Context, id uint64) (*Farm, error) {
	cfg, err := s.reader.FarmConfig(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read farm %d: %w", id, err)
	}
	return &Farm{
		ID:                id,
		Name:              cfg.Name,
		ShareTokenSymbol:  cfg.ShareTokenSymbol,
		ShareTokenAddress: cfg.ShareTokenAddress,
		Owner:             cfg.Owner,
		TreeCount:         cfg.TreeCount,
		TargetYieldBps:    cfg.TargetYieldBps,
		Active:            cfg.Active,
	}, nil
}

func filterFarms(records []Farm, query ListQuery) []Farm {
	needle := strings.ToLower(strings.TrimSpace(query.Search))
	if !query.ActiveOnly && needle == "" {
		return records
	}

	filtered := records[:0]
	for _, farm := range records {
		if query.ActiveOnly && !farm.Active {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(farm.Name), needle) &&
			!strings.Contains(strings.ToLower(farm.ShareTokenSymbol), needle) {
			continue
		}
		filtered = append(filtered, farm)
	}
	return filtered
}

func sortFarms(records []Farm, query ListQuery) {
	// Pre-order by ID so the stable sort breaks ties deterministically.
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	var less func(a, b *Farm) bool
	switch query.SortBy {
	case SortByName:
		less = func(a, b *Farm) bool { return a.Name < b.Name }
	case SortByUnits:
		less = func(a, b *Farm) bool { return a.TreeCount < b.TreeCount }
	case SortByYield:
		less = func(a, b *Farm) bool { return a.TargetYieldBps < b.TargetYieldBps }
	case SortByID, "":
		less = func(a, b *Farm) bool { return a.ID < b.ID }
	default:
		less = func(a, b *Farm) bool { return a.ID < b.ID }
	}

	sort.SliceStable(records, func(i, j int) bool {
		if query.Desc {
			return less(&records[j], &records[i])
		}
		return less(&records[i], &records[j])
	})
}
