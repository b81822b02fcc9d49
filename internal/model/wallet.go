package model

import (
	"time"

	"github.com/google/uuid"
)

// WalletEntry is one movement in a player's append-only ledger.
// Amount is signed: debits (stake holds) are negative, credits
// (payouts, refunds) positive.
type WalletEntry struct {
	ID        int64      `json:"id"`
	PlayerID  int        `json:"player_id"`
	Amount    int64      `json:"amount"`
	Reason    string     `json:"reason"`
	DuelID    *uuid.UUID `json:"duel_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Ledger reason strings. Kept stable because they appear in statements.
const (
	ReasonStakeHold    = "stake_hold"
	ReasonStakeRefund  = "stake_refund"
	ReasonDuelPayout   = "duel_payout"
	ReasonTieRefund    = "tie_refund"
	ReasonCancelRefund = "cancel_refund"
	ReasonTopUp        = "top_up"
	ReasonAdminAdjust  = "admin_adjustment"
	ReasonFaultRefund  = "fault_refund"
)
