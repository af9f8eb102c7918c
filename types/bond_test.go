package types

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kmath "github.com/Pol-Polina/Anoma/lib/math"
)

func TestBondAmountAt(t *testing.T) {
	b := &Bond{
		Delegator: common.HexToAddress("0x01"),
		Validator: common.HexToAddress("0x02"),
		Changes: []EpochAmount{
			{Epoch: 2, Amount: 100},
			{Epoch: 5, Amount: 150},
			{Epoch: 8, Amount: 110},
		},
	}
	testCases := []struct {
		epoch Epoch
		exp   Amount
	}{
		{0, 0}, {1, 0}, {2, 100}, {4, 100}, {5, 150}, {7, 150}, {8, 110}, {100, 110},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.exp, b.AmountAt(tc.epoch), "epoch %d", tc.epoch)
	}

	var nilBond *Bond
	assert.Equal(t, Amount(0), nilBond.AmountAt(3))
	assert.True(t, nilBond.IsZero())
	assert.False(t, b.IsZero())
}

func TestUnbondsMaturity(t *testing.T) {
	us := Unbonds{
		{Amount: 40, Start: 5, Withdrawable: 8},
		{Amount: 10, Start: 6, Withdrawable: 9},
	}
	total, err := us.Total()
	require.NoError(t, err)
	assert.Equal(t, Amount(50), total)
	assert.False(t, us[0].IsMatured(7))
	assert.True(t, us[0].IsMatured(8))
	assert.False(t, us[1].IsMatured(8))
}

func TestUnbondsTotalOverflow(t *testing.T) {
	testCases := []struct {
		name    string
		unbonds Unbonds
		exp     Amount
		err     error
	}{
		{"empty", nil, 0, nil},
		{"max", Unbonds{{Amount: math.MaxUint64}}, math.MaxUint64, nil},
		{"fits", Unbonds{{Amount: math.MaxUint64 - 1}, {Amount: 1}}, math.MaxUint64, nil},
		{"overflow", Unbonds{{Amount: math.MaxUint64}, {Amount: 1}}, 0, kmath.ErrOverflowUint64},
	}
	for _, tc := range testCases {
		total, err := tc.unbonds.Total()
		if tc.err != nil {
			assert.Equal(t, tc.err, err, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.exp, total, tc.name)
	}
}

func TestCodec(t *testing.T) {
	in := Slash{Epoch: 5, Height: 51, Fraction: kmath.NewFraction(1, 2), Amount: 50}
	bz, err := Encode(in)
	require.NoError(t, err)

	var out Slash
	require.NoError(t, Decode(bz, &out))
	assert.Equal(t, in, out)

	assert.Error(t, Decode([]byte{0xff}, &out))
}

func TestEpochKeySegment(t *testing.T) {
	assert.Equal(t, "00000000000000000012", Epoch(12).KeySegment())
	assert.True(t, Epoch(9).KeySegment() < Epoch(10).KeySegment())

	e, err := ParseEpochSegment(Epoch(42).KeySegment())
	require.NoError(t, err)
	assert.Equal(t, Epoch(42), e)
}
