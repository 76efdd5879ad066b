package purchase

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mocha-tree/investor-portal/investor-portal-backend/internal/chain"
	"mocha-tree/investor-portal/investor-portal-backend/internal/pricing"
	"mocha-tree/investor-portal/investor-portal-backend/pkg/workflows"
)

// ContractWriter is the slice of the chain client the orchestrator uses to
// submit transactions.
type ContractWriter interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (chain.TxHandle, error)
	PurchaseBond(ctx context.Context, farmID, amount uint64, value *big.Int) (chain.TxHandle, error)
	RedeemBond(ctx context.Context, bondID uint64, early bool) (chain.TxHandle, error)
	RolloverBond(ctx context.Context, bondID, farmID uint64) (chain.TxHandle, error)
	AwaitConfirmation(ctx context.Context, handle chain.TxHandle) error
}

// Repository persists attempt audit rows.
type Repository interface {
	Create(ctx context.Context, attempt *Attempt) error
	Update(ctx context.Context, attempt *Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*Attempt, error)
	ListByInvestor(ctx context.Context, investor string, limit int) ([]Attempt, error)
	TimeOutStalePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// Notifier pushes attempt state transitions to observers.
type Notifier interface {
	NotifyAttempt(attempt *Attempt)
}

// NopNotifier drops notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyAttempt(*Attempt) {}

// OrchestratorConfig fixes the payment route and confirmation policy.
type OrchestratorConfig struct {
	Mode                pricing.Mode
	PaymentToken        common.Address
	Contract            common.Address
	ConfirmationTimeout time.Duration
}

// Orchestrator sequences an optional token approval before the purchase
// call and drives each attempt through its state machine. One attempt per
// investor may be in flight at a time; the chain remains the source of
// truth for holdings and allowance, so local copies are advisory and every
// submission re-validates against fresh reads.
type Orchestrator struct {
	writer    ContractWriter
	funds     FundsReader
	validator *Validator
	repo      Repository
	notifier  Notifier
	machine   *workflows.StateMachine
	cfg       OrchestratorConfig
	logger    *zap.Logger

	mu       sync.Mutex
	inflight map[common.Address]uuid.UUID
}

// NewOrchestrator creates the purchase orchestrator.
func NewOrchestrator(writer ContractWriter, funds FundsReader, validator *Validator, repo Repository, notifier Notifier, cfg OrchestratorConfig, logger *zap.Logger) *Orchestrator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = 3 * time.Minute
	}
	return &Orchestrator{
		writer:    writer,
		funds:     funds,
		validator: validator,
		repo:      repo,
		notifier:  notifier,
		machine:   NewAttemptStateMachine(),
		cfg:       cfg,
		logger:    logger,
		inflight:  make(map[common.Address]uuid.UUID),
	}
}

// SubmitPurchase re-validates the request against fresh reads, persists a
// new attempt and starts its execution. Validation rejections surface
// synchronously and never reach the write client; transaction outcomes are
// observed through the attempt's status.
func (o *Orchestrator) SubmitPurchase(ctx context.Context, investor common.Address, req PurchaseRequest) (*Attempt, error) {
	if err := o.acquire(investor); err != nil {
		return nil, err
	}

	eligibility, err := o.validator.Validate(ctx, investor, req.FarmID, req.Amount)
	if err != nil {
		o.release(investor)
		return nil, err
	}

	attempt := &Attempt{
		Kind:         KindPurchase,
		Investor:     investor.Hex(),
		FarmID:       req.FarmID,
		Amount:       eligibility.Amount,
		Mode:         string(o.cfg.Mode),
		TotalCostUSD: eligibility.Quote.TotalCostUSD,
		CostAmount:   eligibility.Quote.Amount.String(),
		Status:       StatusValidating,
	}
	if err := o.repo.Create(ctx, attempt); err != nil {
		o.release(investor)
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	o.registerAttempt(investor, attempt.ID)

	go o.executePurchase(context.WithoutCancel(ctx), investor, attempt, eligibility)

	return attempt, nil
}

// SubmitRedemption submits a bond redemption. Ownership and maturity are
// enforced by the contract; the early entry point carries the penalty.
func (o *Orchestrator) SubmitRedemption(ctx context.Context, investor common.Address, req RedemptionRequest) (*Attempt, error) {
	if err := o.acquire(investor); err != nil {
		return nil, err
	}

	bondID := req.BondID
	attempt := &Attempt{
		Kind:     KindRedemption,
		Investor: investor.Hex(),
		BondID:   &bondID,
		Status:   StatusValidating,
	}
	if err := o.repo.Create(ctx, attempt); err != nil {
		o.release(investor)
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	o.registerAttempt(investor, attempt.ID)

	go o.executeSingleTx(context.WithoutCancel(ctx), investor, attempt, func(ctx context.Context) (chain.TxHandle, error) {
		return o.writer.RedeemBond(ctx, req.BondID, req.Early)
	})

	return attempt, nil
}

// SubmitRollover moves a matured bond into another farm. The target farm
// must exist and be active.
func (o *Orchestrator) SubmitRollover(ctx context.Context, investor common.Address, req RolloverRequest) (*Attempt, error) {
	if err := o.acquire(investor); err != nil {
		return nil, err
	}

	farm, err := o.validator.farms.Farm(ctx, req.FarmID)
	if err != nil {
		o.release(investor)
		return nil, reject(CodeNoFarmSelected, fmt.Sprintf("farm %d cannot be found", req.FarmID))
	}
	if !farm.Active {
		o.release(investor)
		return nil, reject(CodeFarmInactive, fmt.Sprintf("farm %q is not accepting rollovers", farm.Name))
	}

	bondID := req.BondID
	attempt := &Attempt{
		Kind:     KindRollover,
		Investor: investor.Hex(),
		FarmID:   req.FarmID,
		BondID:   &bondID,
		Status:   StatusValidating,
	}
	if err := o.repo.Create(ctx, attempt); err != nil {
		o.release(investor)
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	o.registerAttempt(investor, attempt.ID)

	go o.executeSingleTx(context.WithoutCancel(ctx), investor, attempt, func(ctx context.Context) (chain.TxHandle, error) {
		return o.writer.RolloverBond(ctx, req.BondID, req.FarmID)
	})

	return attempt, nil
}

// InFlight returns the attempt currently executing for the investor, if
// any.
func (o *Orchestrator) InFlight(investor common.Address) (uuid.UUID, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id, ok := o.inflight[investor]
	return id, ok
}

func (o *Orchestrator) acquire(investor common.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[investor]; busy {
		return reject(CodeAlreadyInProgress, "another transaction is already in progress")
	}
	o.inflight[investor] = uuid.Nil
	return nil
}

func (o *Orchestrator) registerAttempt(investor common.Address, id uuid.UUID) {
	o.mu.Lock()
	o.inflight[investor] = id
	o.mu.Unlock()
}

func (o *Orchestrator) release(investor common.Address) {
	o.mu.Lock()
	delete(o.inflight, investor)
	o.mu.Unlock()
}

// executePurchase runs the approval-then-purchase sequence. Approval, when
// needed, is granted for exactly the quoted cost and must confirm before
// the purchase is submitted.
func (o *Orchestrator) executePurchase(ctx context.Context, investor common.Address, attempt *Attempt, eligibility *Eligibility) {
	defer o.release(investor)

	if o.cfg.Mode == pricing.ModeToken && eligibility.ApprovalNeeded {
		if !o.advance(ctx, attempt, StatusApprovalPending) {
			return
		}

		handle, err := o.writer.Approve(ctx, o.cfg.PaymentToken, o.cfg.Contract, eligibility.Quote.Amount)
		if err != nil {
			o.fail(ctx, attempt, err)
			return
		}
		hash := handle.Hash.Hex()
		attempt.ApprovalTxHash = &hash

		if err := o.awaitWithTimeout(ctx, handle); err != nil {
			o.fail(ctx, attempt, err)
			return
		}
		if !o.advance(ctx, attempt, StatusApprovalConfirmed) {
			return
		}

		// The approval confirmed, but the allowance is owned by the chain:
		// re-read it before spending.
		allowance, err := o.funds.Allowance(ctx, o.cfg.PaymentToken, investor, o.cfg.Contract)
		if err != nil {
			o.fail(ctx, attempt, err)
			return
		}
		if allowance.Cmp(eligibility.Quote.Amount) < 0 {
			o.failWith(ctx, attempt, CodeUnknown, "allowance still below cost after approval")
			return
		}
	}

	if !o.advance(ctx, attempt, StatusPurchasePending) {
		return
	}

	var value *big.Int
	if o.cfg.Mode == pricing.ModeNative {
		value = eligibility.Quote.Amount
	}
	handle, err := o.writer.PurchaseBond(ctx, attempt.FarmID, attempt.Amount, value)
	if err != nil {
		o.fail(ctx, attempt, err)
		return
	}
	hash := handle.Hash.Hex()
	attempt.PurchaseTxHash = &hash

	if err := o.awaitWithTimeout(ctx, handle); err != nil {
		o.fail(ctx, attempt, err)
		return
	}
	o.confirm(ctx, attempt)
}

// executeSingleTx drives a redemption or rollover: one transaction, no
// approval leg.
func (o *Orchestrator) executeSingleTx(ctx context.Context, investor common.Address, attempt *Attempt, submit func(ctx context.Context) (chain.TxHandle, error)) {
	defer o.release(investor)

	if !o.advance(ctx, attempt, StatusPurchasePending) {
		return
	}

	handle, err := submit(ctx)
	if err != nil {
		o.fail(ctx, attempt, err)
		return
	}
	hash := handle.Hash.Hex()
	attempt.PurchaseTxHash = &hash

	if err := o.awaitWithTimeout(ctx, handle); err != nil {
		o.fail(ctx, attempt, err)
		return
	}
	o.confirm(ctx, attempt)
}

func (o *Orchestrator) awaitWithTimeout(ctx context.Context, handle chain.TxHandle) error {
	waitCtx, cancel := context.WithTimeout(ctx, o.cfg.ConfirmationTimeout)
	defer cancel()
	return o.writer.AwaitConfirmation(waitCtx, handle)
}

func (o *Orchestrator) advance(ctx context.Context, attempt *Attempt, next Status) bool {
	if err := o.machine.Transition(string(attempt.Status), string(next)); err != nil {
		o.logger.Error("Attempt state machine violation",
			zap.String("attempt_id", attempt.ID.String()),
			zap.Error(err))
		o.failWith(ctx, attempt, CodeUnknown, err.Error())
		return false
	}
	attempt.Status = next
	o.persist(ctx, attempt)
	o.notifier.NotifyAttempt(attempt)
	return true
}

func (o *Orchestrator) confirm(ctx context.Context, attempt *Attempt) {
	now := time.Now()
	attempt.ConfirmedAt = &now
	if !o.advance(ctx, attempt, StatusConfirmed) {
		return
	}
	o.logger.Info("Attempt confirmed",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("kind", string(attempt.Kind)),
		zap.String("investor", attempt.Investor))
}

func (o *Orchestrator) fail(ctx context.Context, attempt *Attempt, err error) {
	code, detail := ClassifyTxError(err)
	o.failWith(ctx, attempt, code, detail)
}

// failWith records the classified terminal failure. Failed transactions
// are never resubmitted automatically; retry is a fresh user action.
func (o *Orchestrator) failWith(ctx context.Context, attempt *Attempt, code Code, detail string) {
	attempt.Status = StatusFailed
	attempt.FailureCode = string(code)
	attempt.FailureMessage = userMessageFor(code)
	attempt.FailureDetail = detail
	o.persist(ctx, attempt)
	o.notifier.NotifyAttempt(attempt)
	o.logger.Warn("Attempt failed",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("code", string(code)),
		zap.String("detail", detail))
}

func (o *Orchestrator) persist(ctx context.Context, attempt *Attempt) {
	if err := o.repo.Update(ctx, attempt); err != nil {
		o.logger.Error("Failed to persist attempt",
			zap.String("attempt_id", attempt.ID.String()),
			zap.Error(err))
	}
}
