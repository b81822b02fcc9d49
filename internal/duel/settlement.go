package duel

import (
	"github.com/shopspring/decimal"
)

// Outcome reasons recorded on duel_end and in the duels table.
const (
	ReasonDecisive    = "decisive"
	ReasonTie         = "tie"
	ReasonForfeit     = "forfeit"
	ReasonAbandoned   = "abandoned"
	ReasonCancelled   = "cancelled"
	ReasonEngineFault = "engine_fault"
)

// Settlement is the money resolution of a finished or cancelled duel.
// Earnings are signed per-player deltas relative to the stake hold;
// Credits are the non-negative wallet amounts actually paid out. Both
// stakes were already debited as holds when the players entered, so
// settlement only ever credits.
type Settlement struct {
	Pot        int64         `json:"pot"`
	Commission int64         `json:"commission"`
	Tie        bool          `json:"tie"`
	Earnings   map[int]int64 `json:"earnings"`
	Credits    map[int]int64 `json:"credits"`
}

// CalculateSettlement resolves the pot for a duel that ran to a result.
// winnerID nil means a tie: both stakes are returned and the house takes
// nothing. A decisive result pays the winner the pot minus commission,
// where commission is the pot times the rate, rounded half-up to a whole
// unit with decimal arithmetic. Float64 never touches money here.
func CalculateSettlement(stake int64, rate decimal.Decimal, creatorID, opponentID int, winnerID *int) Settlement {
	pot := 2 * stake

	if winnerID == nil {
		return Settlement{
			Pot: pot,
			Tie: true,
			Earnings: map[int]int64{
				creatorID:  stake,
				opponentID: stake,
			},
			Credits: map[int]int64{
				creatorID:  stake,
				opponentID: stake,
			},
		}
	}

	commission := decimal.NewFromInt(pot).Mul(rate).Round(0).IntPart()
	payout := pot - commission

	loserID := creatorID
	if *winnerID == creatorID {
		loserID = opponentID
	}

	return Settlement{
		Pot:        pot,
		Commission: commission,
		Earnings: map[int]int64{
			*winnerID: payout,
			loserID:   -stake,
		},
		Credits: map[int]int64{
			*winnerID: payout,
			loserID:   0,
		},
	}
}

// RefundSettlement resolves a duel that never produced a result: every
// player who placed a stake hold gets it back in full.
func RefundSettlement(stake int64, playerIDs ...int) Settlement {
	s := Settlement{
		Tie:      true,
		Earnings: make(map[int]int64, len(playerIDs)),
		Credits:  make(map[int]int64, len(playerIDs)),
	}
	for _, id := range playerIDs {
		s.Pot += stake
		s.Earnings[id] = stake
		s.Credits[id] = stake
	}
	return s
}
