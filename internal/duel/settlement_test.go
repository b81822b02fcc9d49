package duel

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCalculateSettlement_Decisive(t *testing.T) {
	rate := decimal.RequireFromString("0.10")
	winner := 7

	st := CalculateSettlement(5000, rate, 7, 9, &winner)

	require.False(t, st.Tie)
	require.Equal(t, int64(10000), st.Pot)
	require.Equal(t, int64(1000), st.Commission)
	require.Equal(t, int64(9000), st.Earnings[7])
	require.Equal(t, int64(-5000), st.Earnings[9])
	require.Equal(t, int64(9000), st.Credits[7])
	require.Equal(t, int64(0), st.Credits[9])
}

func TestCalculateSettlement_OpponentWins(t *testing.T) {
	rate := decimal.RequireFromString("0.10")
	winner := 9

	st := CalculateSettlement(5000, rate, 7, 9, &winner)

	require.Equal(t, int64(9000), st.Credits[9])
	require.Equal(t, int64(0), st.Credits[7])
	require.Equal(t, int64(-5000), st.Earnings[7])
}

func TestCalculateSettlement_Tie(t *testing.T) {
	rate := decimal.RequireFromString("0.10")

	st := CalculateSettlement(5000, rate, 7, 9, nil)

	require.True(t, st.Tie)
	require.Equal(t, int64(0), st.Commission, "ties never incur commission")
	require.Equal(t, int64(5000), st.Credits[7])
	require.Equal(t, int64(5000), st.Credits[9])
	require.Equal(t, int64(5000), st.Earnings[7])
	require.Equal(t, int64(5000), st.Earnings[9])
}

func TestCalculateSettlement_CommissionRounding(t *testing.T) {
	tests := []struct {
		name       string
		stake      int64
		rate       string
		commission int64
	}{
		{"exact", 5000, "0.10", 1000},
		{"rounds half up", 125, "0.05", 13}, // 250 * 0.05 = 12.5
		{"rounds down", 120, "0.05", 12},    // 240 * 0.05 = 12.0
		{"tiny stake", 1, "0.10", 0},        // 2 * 0.10 = 0.2
		{"zero rate", 5000, "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner := 1
			st := CalculateSettlement(tt.stake, decimal.RequireFromString(tt.rate), 1, 2, &winner)
			require.Equal(t, tt.commission, st.Commission)
			require.Equal(t, st.Pot-tt.commission, st.Credits[1])
		})
	}
}

func TestRefundSettlement(t *testing.T) {
	st := RefundSettlement(2500, 3, 4)

	require.True(t, st.Tie)
	require.Equal(t, int64(0), st.Commission)
	require.Equal(t, int64(2500), st.Credits[3])
	require.Equal(t, int64(2500), st.Credits[4])

	solo := RefundSettlement(2500, 3)
	require.Equal(t, int64(2500), solo.Credits[3])
	require.Len(t, solo.Credits, 1)
}
