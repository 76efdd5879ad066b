package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"mocha-tree/investor-portal/investor-portal-backend/internal/config"
)

// ErrReverted is returned by AwaitConfirmation when the transaction was
// mined but its execution failed.
var ErrReverted = errors.New("transaction reverted")

const receiptPollInterval = 2 * time.Second

// EVMClient talks to the MochaTreeRights deployment over JSON-RPC. It owns
// the platform signer key, mirroring a custodial issuer-account model:
// reads evaluate investor addresses, writes are signed by the platform.
type EVMClient struct {
	eth          *ethclient.Client
	chainID      *big.Int
	contract     common.Address
	paymentToken common.Address
	signerKey    *ecdsa.PrivateKey
	signerAddr   common.Address
	logger       *zap.Logger
}

// NewEVMClient dials the configured RPC endpoint. The signer key is read
// from the environment; without it the client is read-only and writes fail.
func NewEVMClient(cfg config.ChainConfig, logger *zap.Logger) (*EVMClient, error) {
	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc endpoint %s: %w", cfg.RPCURL, err)
	}

	c := &EVMClient{
		eth:      eth,
		chainID:  big.NewInt(cfg.ChainID),
		contract: common.HexToAddress(cfg.ContractAddress),
		logger:   logger,
	}
	if cfg.PaymentTokenAddress != "" {
		c.paymentToken = common.HexToAddress(cfg.PaymentTokenAddress)
	}

	if raw := os.Getenv(cfg.SignerKeyEnv); raw != "" {
		key, err := crypto.HexToECDSA(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse signer key: %w", err)
		}
		c.signerKey = key
		c.signerAddr = crypto.PubkeyToAddress(key.PublicKey)
		logger.Info("Chain signer loaded", zap.String("address", c.signerAddr.Hex()))
	} else {
		logger.Warn("No chain signer key configured, client is read-only")
	}

	return c, nil
}

// ContractAddress returns the rights contract address.
func (c *EVMClient) ContractAddress() common.Address { return c.contract }

// PaymentToken returns the configured payment token address.
func (c *EVMClient) PaymentToken() common.Address { return c.paymentToken }

// SignerAddress returns the platform signer address.
func (c *EVMClient) SignerAddress() common.Address { return c.signerAddr }

// ReadContract executes a single eth_call and decodes the outputs.
func (c *EVMClient) ReadContract(ctx context.Context, call Call) ([]interface{}, error) {
	contractABI := abiFor(call.Method)
	data, err := contractABI.Pack(call.Method, call.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", call.Method, err)
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &call.Contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s failed: %w", call.Method, err)
	}

	values, err := contractABI.Unpack(call.Method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s output: %w", call.Method, err)
	}
	return values, nil
}

// BatchRead executes a list of reads, reporting success or failure per
// item. Individual failures never abort the batch.
func (c *EVMClient) BatchRead(ctx context.Context, calls []Call) []Result {
	results := make([]Result, len(calls))
	for i, call := range calls {
		values, err := c.ReadContract(ctx, call)
		results[i] = Result{Values: values, Err: err}
	}
	return results
}

// WriteContract signs and submits a transaction carrying the optional
// native value.
func (c *EVMClient) WriteContract(ctx context.Context, call Call, value *big.Int) (TxHandle, error) {
	if c.signerKey == nil {
		return TxHandle{}, errors.New("no signer key configured")
	}

	contractABI := abiFor(call.Method)
	data, err := contractABI.Pack(call.Method, call.Args...)
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to pack %s: %w", call.Method, err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.signerAddr)
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to fetch nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to fetch gas price: %w", err)
	}
	if value == nil {
		value = new(big.Int)
	}

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:     c.signerAddr,
		To:       &call.Contract,
		Value:    value,
		GasPrice: gasPrice,
		Data:     data,
	})
	if err != nil {
		return TxHandle{}, fmt.Errorf("gas estimation for %s failed: %w", call.Method, err)
	}

	tx := types.NewTransaction(nonce, call.Contract, value, gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.signerKey)
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to sign %s: %w", call.Method, err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return TxHandle{}, fmt.Errorf("failed to submit %s: %w", call.Method, err)
	}

	c.logger.Info("Transaction submitted",
		zap.String("method", call.Method),
		zap.String("hash", signed.Hash().Hex()))
	return TxHandle{Hash: signed.Hash()}, nil
}

// AwaitConfirmation polls for the transaction receipt until the context
// expires. A mined-but-failed receipt returns ErrReverted.
func (c *EVMClient) AwaitConfirmation(ctx context.Context, handle TxHandle) error {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, handle.Hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("%w: %s", ErrReverted, handle.Hash.Hex())
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("failed to fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// NativeBalance returns the native-coin balance of an address.
func (c *EVMClient) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch native balance: %w", err)
	}
	return balance, nil
}

// ActiveFarmIDs reads the list of farm identifiers currently offered.
func (c *EVMClient) ActiveFarmIDs(ctx context.Context) ([]uint64, error) {
	values, err := c.ReadContract(ctx, Call{Contract: c.contract, Method: "getActiveFarmIds"})
	if err != nil {
		return nil, err
	}
	raw, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected farm id list type %T", values[0])
	}
	ids := make([]uint64, len(raw))
	for i, id := range raw {
		ids[i] = id.Uint64()
	}
	return ids, nil
}

// FarmConfigs batch-reads per-farm configuration, one tagged result per
// farm.
func (c *EVMClient) FarmConfigs(ctx context.Context, ids []uint64) []FarmConfigResult {
	calls := make([]Call, len(ids))
	for i, id := range ids {
		calls[i] = Call{
			Contract: c.contract,
			Method:   "getFarmConfig",
			Args:     []interface{}{new(big.Int).SetUint64(id)},
		}
	}

	batch := c.BatchRead(ctx, calls)
	results := make([]FarmConfigResult, len(ids))
	for i, item := range batch {
		results[i].FarmID = ids[i]
		if !item.Ok() {
			results[i].Err = item.Err
			continue
		}
		cfg, err := decodeFarmConfig(item.Values)
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].Config = cfg
	}
	return results
}

// FarmConfig reads a single farm's configuration.
func (c *EVMClient) FarmConfig(ctx context.Context, id uint64) (*FarmConfig, error) {
	results := c.FarmConfigs(ctx, []uint64{id})
	if results[0].Err != nil {
		return nil, results[0].Err
	}
	return results[0].Config, nil
}

// ShareBalances batch-reads the owner's balance on each farm's share token.
func (c *EVMClient) ShareBalances(ctx context.Context, tokens map[uint64]common.Address, owner common.Address) []BalanceResult {
	ids := make([]uint64, 0, len(tokens))
	calls := make([]Call, 0, len(tokens))
	for id, token := range tokens {
		ids = append(ids, id)
		calls = append(calls, Call{
			Contract: token,
			Method:   "balanceOf",
			Args:     []interface{}{owner},
		})
	}

	batch := c.BatchRead(ctx, calls)
	results := make([]BalanceResult, len(calls))
	for i, item := range batch {
		results[i].FarmID = ids[i]
		if !item.Ok() {
			results[i].Err = item.Err
			continue
		}
		balance, ok := item.Values[0].(*big.Int)
		if !ok {
			results[i].Err = fmt.Errorf("unexpected balance type %T", item.Values[0])
			continue
		}
		results[i].Balance = balance
	}
	return results
}

// TokenBalance reads an ERC-20 balance.
func (c *EVMClient) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	values, err := c.ReadContract(ctx, Call{
		Contract: token,
		Method:   "balanceOf",
		Args:     []interface{}{owner},
	})
	if err != nil {
		return nil, err
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balance type %T", values[0])
	}
	return balance, nil
}

// Allowance reads the amount the owner has approved the spender to move.
func (c *EVMClient) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	values, err := c.ReadContract(ctx, Call{
		Contract: token,
		Method:   "allowance",
		Args:     []interface{}{owner, spender},
	})
	if err != nil {
		return nil, err
	}
	allowance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance type %T", values[0])
	}
	return allowance, nil
}

// Approve grants the rights contract exactly amount of the payment token.
func (c *EVMClient) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (TxHandle, error) {
	return c.WriteContract(ctx, Call{
		Contract: token,
		Method:   "approve",
		Args:     []interface{}{spender, amount},
	}, nil)
}

// PurchaseBond submits the purchase call. In native mode the quoted wei
// amount rides as the transaction value; in token mode value is nil.
func (c *EVMClient) PurchaseBond(ctx context.Context, farmID, amount uint64, value *big.Int) (TxHandle, error) {
	return c.WriteContract(ctx, Call{
		Contract: c.contract,
		Method:   "purchaseBond",
		Args:     []interface{}{new(big.Int).SetUint64(farmID), new(big.Int).SetUint64(amount)},
	}, value)
}

// RedeemBond submits a redemption, using the early-redemption entry point
// when requested.
func (c *EVMClient) RedeemBond(ctx context.Context, bondID uint64, early bool) (TxHandle, error) {
	method := "redeemBond"
	if early {
		method = "redeemBondEarly"
	}
	return c.WriteContract(ctx, Call{
		Contract: c.contract,
		Method:   method,
		Args:     []interface{}{new(big.Int).SetUint64(bondID)},
	}, nil)
}

// RolloverBond moves a matured bond into a new farm offering.
func (c *EVMClient) RolloverBond(ctx context.Context, bondID, farmID uint64) (TxHandle, error) {
	return c.WriteContract(ctx, Call{
		Contract: c.contract,
		Method:   "rolloverBond",
		Args:     []interface{}{new(big.Int).SetUint64(bondID), new(big.Int).SetUint64(farmID)},
	}, nil)
}

func decodeFarmConfig(values []interface{}) (*FarmConfig, error) {
	if len(values) != 7 {
		return nil, fmt.Errorf("unexpected farm config arity %d", len(values))
	}
	name, ok0 := values[0].(string)
	symbol, ok1 := values[1].(string)
	shareToken, ok2 := values[2].(common.Address)
	owner, ok3 := values[3].(common.Address)
	treeCount, ok4 := values[4].(*big.Int)
	yieldBps, ok5 := values[5].(*big.Int)
	active, ok6 := values[6].(bool)
	if !(ok0 && ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return nil, errors.New("unexpected farm config field types")
	}
	return &FarmConfig{
		Name:              name,
		ShareTokenSymbol:  symbol,
		ShareTokenAddress: shareToken,
		Owner:             owner,
		TreeCount:         treeCount.Uint64(),
		TargetYieldBps:    yieldBps.Uint64(),
		Active:            active,
	}, nil
}
