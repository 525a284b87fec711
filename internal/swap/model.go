package swap

import (
	"errors"
	"time"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
)

// Status is the lifecycle state of a swap.
type Status string

const (
	StatusCreated      Status = "created"
	StatusAcknowledged Status = "acknowledged"
	StatusExecuted     Status = "executed"
	StatusExpired      Status = "expired"
)

// DefaultLifetime is how long the responder has to sign.
const DefaultLifetime = 30 * time.Minute

var ErrNotFound = errors.New("swap not found")

// Swap tracks one scheduled exchange between two accounts. ScheduleID is
// the ledger schedule entity and the record's identity.
type Swap struct {
	ScheduleID             string          `json:"scheduleId"`
	Network                string          `json:"network"`
	Requester              string          `json:"requester"`
	Responder              string          `json:"responder"`
	RequesterLeg           ledger.Transfer `json:"requesterLeg"`
	ResponderLeg           ledger.Transfer `json:"responderLeg"`
	Status                 Status          `json:"status"`
	ScheduledTransactionID string          `json:"scheduledTransactionId,omitempty"`
	CreatedAt              time.Time       `json:"createdAt"`
	ExpiresAt              time.Time       `json:"expiresAt"`
}

// Expired reports whether the signing window closed before now.
func (s Swap) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Open reports whether the swap still waits for the responder.
func (s Swap) Open() bool {
	return s.Status == StatusCreated || s.Status == StatusAcknowledged
}
