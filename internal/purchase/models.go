package purchase

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mocha-tree/investor-portal/investor-portal-backend/pkg/workflows"
)

// Status is the lifecycle state of one attempt. Transitions follow the
// attemptTransitions table; terminal rows are never reused, a new request
// always creates a fresh attempt.
type Status string

const (
	StatusIdle              Status = "IDLE"
	StatusValidating        Status = "VALIDATING"
	StatusApprovalPending   Status = "APPROVAL_PENDING"
	StatusApprovalConfirmed Status = "APPROVAL_CONFIRMED"
	StatusPurchasePending   Status = "PURCHASE_PENDING"
	StatusConfirmed         Status = "CONFIRMED"
	StatusFailed            Status = "FAILED"
)

// Kind distinguishes the contract operation an attempt drives.
type Kind string

const (
	KindPurchase   Kind = "PURCHASE"
	KindRedemption Kind = "REDEMPTION"
	KindRollover   Kind = "ROLLOVER"
)

var attemptTransitions = map[string][]string{
	string(StatusIdle):              {string(StatusValidating)},
	string(StatusValidating):        {string(StatusApprovalPending), string(StatusPurchasePending), string(StatusFailed)},
	string(StatusApprovalPending):   {string(StatusApprovalConfirmed), string(StatusFailed)},
	string(StatusApprovalConfirmed): {string(StatusPurchasePending), string(StatusFailed)},
	string(StatusPurchasePending):   {string(StatusConfirmed), string(StatusFailed)},
	string(StatusConfirmed):         {},
	string(StatusFailed):            {},
}

// NewAttemptStateMachine builds the transition guard for attempt statuses.
func NewAttemptStateMachine() *workflows.StateMachine {
	return workflows.NewStateMachine(attemptTransitions)
}

// Attempt is the persisted audit record of one purchase, redemption or
// rollover. Holdings themselves are never written here; the chain stays
// the source of truth and callers re-fetch after confirmation.
type Attempt struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind           Kind           `gorm:"size:16;not null" json:"kind"`
	Investor       string         `gorm:"size:42;not null;index" json:"investor"`
	FarmID         uint64         `json:"farm_id"`
	BondID         *uint64        `json:"bond_id,omitempty"`
	Amount         uint64         `json:"amount"`
	Mode           string         `gorm:"size:8" json:"mode"`
	TotalCostUSD   uint64         `json:"total_cost_usd"`
	CostAmount     string         `gorm:"type:numeric(78,0)" json:"cost_amount"`
	Status         Status         `gorm:"size:32;not null;index" json:"status"`
	FailureCode    string         `gorm:"size:32" json:"failure_code,omitempty"`
	FailureMessage string         `json:"failure_message,omitempty"`
	FailureDetail  string         `json:"-"`
	ApprovalTxHash *string        `gorm:"size:66" json:"approval_tx_hash,omitempty"`
	PurchaseTxHash *string        `gorm:"size:66" json:"purchase_tx_hash,omitempty"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	ConfirmedAt    *time.Time     `json:"confirmed_at,omitempty"`
}

func (Attempt) TableName() string {
	return "purchase_attempts"
}

// BeforeCreate: never insert zero UUID for primary key; generate random when not set.
func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether the attempt reached a final state.
func (a *Attempt) Terminal() bool {
	return a.Status == StatusConfirmed || a.Status == StatusFailed
}

// PurchaseRequest is a validated-on-submit request to buy bonds. Amount is
// the raw user input and is parsed by the validator.
type PurchaseRequest struct {
	FarmID uint64 `json:"farm_id" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// RedemptionRequest redeems a matured bond, optionally early (the contract
// applies the early-exit penalty).
type RedemptionRequest struct {
	BondID uint64 `json:"bond_id" binding:"required"`
	Early  bool   `json:"early"`
}

// RolloverRequest moves a matured bond into a new farm offering.
type RolloverRequest struct {
	BondID uint64 `json:"bond_id" binding:"required"`
	FarmID uint64 `json:"farm_id" binding:"required"`
}
