package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call describes a single contract read or write.
type Call struct {
	Contract common.Address
	Method   string
	Args     []interface{}
}

// Result is the outcome of one call inside a batch. A batch read reports
// success or failure per item; a failed item never aborts its siblings.
type Result struct {
	Values []interface{}
	Err    error
}

// Ok reports whether the item decoded successfully.
func (r Result) Ok() bool {
	return r.Err == nil
}

// TxHandle identifies a submitted transaction.
type TxHandle struct {
	Hash common.Hash
}

// FarmConfig is one farm's on-chain configuration snapshot. It is fetched
// fresh on every catalog query and never mutated locally.
type FarmConfig struct {
	Name              string
	ShareTokenSymbol  string
	ShareTokenAddress common.Address
	Owner             common.Address
	TreeCount         uint64
	TargetYieldBps    uint64
	Active            bool
}

// FarmConfigResult carries one farm's config or its read failure.
type FarmConfigResult struct {
	FarmID uint64
	Config *FarmConfig
	Err    error
}

// BalanceResult carries one share-token balance or its read failure.
type BalanceResult struct {
	FarmID  uint64
	Balance *big.Int
	Err     error
}
