package farms

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrCatalogUnavailable means the farm identifier list itself could not be
// read. Per-farm config failures are carried on the record instead.
var ErrCatalogUnavailable = errors.New("farm catalog unavailable")

// Farm is one farm offering as read from the chain. Records are immutable
// snapshots: a listing is rebuilt from fresh reads on every query.
type Farm struct {
	ID                uint64         `json:"id"`
	Name              string         `json:"name"`
	ShareTokenSymbol  string         `json:"share_token_symbol"`
	ShareTokenAddress common.Address `json:"share_token_address"`
	Owner             common.Address `json:"owner"`
	TreeCount         uint64         `json:"tree_count"`
	TargetYieldBps    uint64         `json:"target_yield_bps"`
	Active            bool           `json:"active"`
	// ReadError is set when this farm's config read failed. The farm is
	// listed but unusable; it never blocks its siblings.
	ReadError string `json:"read_error,omitempty"`
}

// Usable reports whether the record can back a purchase.
func (f *Farm) Usable() bool {
	return f.ReadError == "" && f.Active
}

// SortField selects the catalog sort key.
type SortField string

const (
	SortByID    SortField = "id"
	SortByName  SortField = "name"
	SortByUnits SortField = "units"
	SortByYield SortField = "yield"
)

// ListQuery filters and orders a catalog listing.
type ListQuery struct {
	ActiveOnly bool
	Search     string
	SortBy     SortField
	Desc       bool
}
