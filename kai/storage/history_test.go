package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Pol-Polina/Anoma/types"
)

func TestHistoryWith(t *testing.T) {
	var hist History
	hist = hist.With(Version{Epoch: 4, Value: []byte("d")})
	hist = hist.With(Version{Epoch: 1, Value: []byte("a")})
	next := hist.With(Version{Epoch: 4, Value: []byte("D")})

	assert.Equal(t, []byte("d"), hist.ValueAt(4), "With must not modify the receiver")
	assert.Equal(t, []byte("D"), next.ValueAt(9))
	assert.Len(t, next, 2)

	testCases := []struct {
		epoch types.Epoch
		want  []byte
	}{
		{0, nil},
		{1, []byte("a")},
		{3, []byte("a")},
		{4, []byte("D")},
		{100, []byte("D")},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, next.ValueAt(tc.epoch), "epoch %d", tc.epoch)
	}
}

func TestHistoryTombstone(t *testing.T) {
	hist := History{
		{Epoch: 1, Value: []byte("a")},
		{Epoch: 3, Tombstone: 1},
		{Epoch: 5, Value: []byte{}},
	}
	assert.Equal(t, []byte("a"), hist.ValueAt(2))
	assert.Nil(t, hist.ValueAt(3))
	assert.NotNil(t, hist.ValueAt(5), "empty values are present")
}

func TestHistoryPrune(t *testing.T) {
	hist := History{
		{Epoch: 1, Value: []byte("a")},
		{Epoch: 3, Value: []byte("b")},
		{Epoch: 6, Value: []byte("c")},
	}
	testCases := []struct {
		floor  types.Epoch
		epochs []types.Epoch
	}{
		{0, []types.Epoch{1, 3, 6}},
		{1, []types.Epoch{1, 3, 6}},
		{4, []types.Epoch{3, 6}},
		{7, []types.Epoch{6}},
	}
	for _, tc := range testCases {
		var got []types.Epoch
		for _, v := range hist.Prune(tc.floor) {
			got = append(got, v.Epoch)
		}
		assert.Equal(t, tc.epochs, got, "floor %d", tc.floor)
		// Reads at and above the floor are unchanged.
		for e := tc.floor; e < 8; e++ {
			assert.Equal(t, hist.ValueAt(e), hist.Prune(tc.floor).ValueAt(e))
		}
	}

	dead := History{{Epoch: 1, Value: []byte("a")}, {Epoch: 2, Tombstone: 1}}
	assert.Empty(t, dead.Prune(5))
}
