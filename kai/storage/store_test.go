package storage

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pol-Polina/Anoma/kai/kaidb"
	"github.com/Pol-Polina/Anoma/kai/kaidb/memorydb"
	"github.com/Pol-Polina/Anoma/lib/log"
	"github.com/Pol-Polina/Anoma/types"
)

func newTestStore(t *testing.T, db kaidb.Database, opts Options) *Store {
	s, err := NewStore(db, opts, log.NewNopLogger())
	require.NoError(t, err)
	return s
}

func TestReadWriteRoundTrip(t *testing.T) {
	s := newTestStore(t, memorydb.New(), Options{})
	require.NoError(t, s.BeginBlock(1, 0))

	testCases := []struct {
		key   Key
		value []byte
		epoch types.Epoch
	}{
		{NewKey("a"), []byte("1"), 0},
		{NewKey("b", "c"), []byte{0, 1, 2}, 3},
		{AddressKey(common.HexToAddress("0x42"), "balance"), []byte("100"), 7},
		{NewKey("empty"), []byte{}, 1},
	}
	for _, tc := range testCases {
		require.NoError(t, s.Write(tc.key, tc.value, tc.epoch))
		got, err := s.Read(tc.key, tc.epoch)
		require.NoError(t, err)
		assert.Equal(t, tc.value, got, tc.key)

		if tc.epoch > 0 {
			before, err := s.Read(tc.key, tc.epoch-1)
			require.NoError(t, err)
			assert.Nil(t, before, "%s is visible before its effective epoch", tc.key)
		}
	}

	_, err := s.Commit()
	require.NoError(t, err)
	for _, tc := range testCases {
		got, err := s.Read(tc.key, tc.epoch)
		require.NoError(t, err)
		assert.Equal(t, tc.value, got, tc.key)
	}
}

func TestReadMissingKey(t *testing.T) {
	s := newTestStore(t, memorydb.New(), Options{})
	val, err := s.Read(NewKey("missing"), 10)
	require.NoError(t, err)
	assert.Nil(t, val)

	ok, err := s.Has(NewKey("missing"), 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteOutsideBlock(t *testing.T) {
	s := newTestStore(t, memorydb.New(), Options{})
	err := s.Write(NewKey("a"), []byte("1"), 0)
	require.True(t, errors.Is(err, ErrNoOpenBlock))

	_, err = s.Commit()
	require.True(t, errors.Is(err, ErrNoOpenBlock))
}

func TestStaleWrite(t *testing.T) {
	s := newTestStore(t, memorydb.New(), Options{})
	require.NoError(t, s.BeginBlock(1, 5))

	err := s.Write(NewKey("a"), []byte("1"), 4)
	require.True(t, errors.Is(err, ErrStaleWrite))
	err = s.Delete(NewKey("a"), 2)
	require.True(t, errors.Is(err, ErrStaleWrite))

	require.NoError(t, s.Write(NewKey("a"), []byte("1"), 5))
	require.NoError(t, s.Write(NewKey("a"), []byte("2"), 9))
}

func TestWriteKeepsLaterVersions(t *testing.T) {
	s := newTestStore(t, memorydb.New(), Options{})
	require.NoError(t, s.BeginBlock(1, 0))
	key := NewKey("k")
	require.NoError(t, s.Write(key, []byte("future"), 4))
	require.NoError(t, s.Write(key, []byte("now"), 0))
	require.NoError(t, s.Write(key, []byte("now2"), 0))

	hist, err := s.History(key)
	require.NoError(t, err)
	require.Len(t, hist, 2)

	v, _ := s.Read(key, 3)
	assert.Equal(t, []byte("now2"), v)
	v, _ = s.Read(key, 4)
	assert.Equal(t, []byte("future"), v)
}

func TestDeleteTombstone(t *testing.T) {
	s := newTestStore(t, memorydb.New(), Options{})
	key := NewKey("k")

	require.NoError(t, s.BeginBlock(1, 1))
	require.NoError(t, s.Write(key, []byte("v"), 1))
	_, err := s.Commit()
	require.NoError(t, err)

	require.NoError(t, s.BeginBlock(2, 2))
	require.NoError(t, s.Delete(key, 3))
	_, err = s.Commit()
	require.NoError(t, err)

	v, err := s.Read(key, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v, "tombstone must not alter past reads")

	v, err = s.Read(key, 3)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCommitReopen(t *testing.T) {
	db := memorydb.New()
	s := newTestStore(t, db, Options{ChainID: "test-chain"})

	require.NoError(t, s.BeginBlock(1, 0))
	require.NoError(t, s.Write(NewKey("a"), []byte("1"), 0))
	hash, err := s.Commit()
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)

	reopened := newTestStore(t, db, Options{ChainID: "test-chain"})
	head, ok := reopened.Head()
	require.True(t, ok)
	assert.Equal(t, types.BlockHeight(1), head.Height)
	assert.Equal(t, hash, head.Hash)
	assert.Equal(t, "test-chain", reopened.ChainID())

	stored, err := reopened.BlockHash(1)
	require.NoError(t, err)
	assert.Equal(t, hash, stored)

	v, err := reopened.Read(NewKey("a"), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	_, err = NewStore(db, Options{ChainID: "other"}, log.NewNopLogger())
	require.Error(t, err)
}

func TestCommitIdempotent(t *testing.T) {
	s := newTestStore(t, memorydb.New(), Options{})
	key := NewKey("counter")

	require.NoError(t, s.BeginBlock(1, 0))
	require.NoError(t, s.Write(key, []byte("1"), 0))
	_, err := s.Commit()
	require.NoError(t, err)

	// Committing the same height again is an explicit conflict.
	err = s.BeginBlock(1, 0)
	require.True(t, errors.Is(err, ErrCommitConflict))
	require.True(t, IsRetryable(err))

	_, err = s.Commit()
	require.True(t, errors.Is(err, ErrNoOpenBlock))

	v, err := s.Read(key, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
	assert.Equal(t, types.BlockHeight(1), s.Height())
}

func TestCommitInFlightConflict(t *testing.T) {
	s := newTestStore(t, memorydb.New(), Options{})
	require.NoError(t, s.BeginBlock(1, 0))
	require.NoError(t, s.Write(NewKey("a"), []byte("1"), 0))

	atomic.StoreInt32(&s.committing, 1)
	_, err := s.Commit()
	require.True(t, errors.Is(err, ErrCommitConflict))
	require.True(t, IsRetryable(err))
	assert.True(t, s.InBlock(), "a rejected commit keeps the block open")

	atomic.StoreInt32(&s.committing, 0)
	_, err = s.Commit()
	require.NoError(t, err)
}

func TestCommitConflictAcrossHandles(t *testing.T) {
	db := memorydb.New()
	a := newTestStore(t, db, Options{})
	b := newTestStore(t, db, Options{})

	require.NoError(t, a.BeginBlock(1, 0))
	require.NoError(t, b.BeginBlock(1, 0))
	require.NoError(t, a.Write(NewKey("k"), []byte("a"), 0))
	require.NoError(t, b.Write(NewKey("k"), []byte("b"), 0))

	_, err := a.Commit()
	require.NoError(t, err)
	_, err = b.Commit()
	require.True(t, errors.Is(err, ErrCommitConflict))

	// b resynced to the committed height and never applied its write.
	assert.Equal(t, types.BlockHeight(1), b.Height())
	v, err := b.Read(NewKey("k"), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), v)

	require.NoError(t, b.BeginBlock(2, 0))
}

func TestEpochRegression(t *testing.T) {
	s := newTestStore(t, memorydb.New(), Options{})
	require.NoError(t, s.BeginBlock(1, 3))
	require.True(t, errors.Is(s.BeginBlock(2, 3), ErrBlockInProgress))
	_, err := s.Commit()
	require.NoError(t, err)

	err = s.BeginBlock(2, 2)
	require.True(t, errors.Is(err, ErrEpochRegression))
	require.NoError(t, s.BeginBlock(2, 3))
}

func TestDiscardBlock(t *testing.T) {
	s := newTestStore(t, memorydb.New(), Options{})
	require.NoError(t, s.BeginBlock(1, 0))
	require.NoError(t, s.Write(NewKey("a"), []byte("1"), 0))
	s.DiscardBlock()
	assert.False(t, s.InBlock())

	v, err := s.Read(NewKey("a"), 0)
	require.NoError(t, err)
	assert.Nil(t, v)

	// The discarded height can be reopened.
	require.NoError(t, s.BeginBlock(1, 0))
	_, err = s.Commit()
	require.NoError(t, err)
}

func TestBlockHashDeterministic(t *testing.T) {
	run := func() []common.Hash {
		s := newTestStore(t, memorydb.New(), Options{})
		var hashes []common.Hash
		for h := 1; h <= 3; h++ {
			require.NoError(t, s.BeginBlock(types.BlockHeight(h), types.Epoch(h/2)))
			for i := 0; i < 5; i++ {
				key := NewKey(fmt.Sprintf("k%d", (h*7+i)%4))
				require.NoError(t, s.Write(key, []byte(fmt.Sprintf("%d-%d", h, i)), types.Epoch(h/2)))
			}
			hash, err := s.Commit()
			require.NoError(t, err)
			hashes = append(hashes, hash)
		}
		return hashes
	}
	first, second := run(), run()
	assert.Equal(t, first, second)
	assert.NotEqual(t, first[0], first[1])
}

func TestPruning(t *testing.T) {
	s := newTestStore(t, memorydb.New(), Options{RetainEpochs: 2})
	key := NewKey("k")

	for e := 0; e <= 5; e++ {
		require.NoError(t, s.BeginBlock(types.BlockHeight(e+1), types.Epoch(e)))
		require.NoError(t, s.Write(key, []byte{byte(e)}, types.Epoch(e)))
		_, err := s.Commit()
		require.NoError(t, err)
	}

	head, _ := s.Head()
	assert.Equal(t, types.Epoch(3), head.PrunedFloor)
	assert.Equal(t, head.PrunedFloor, s.PrunedFloor())
	assert.Equal(t, head.PrunedFloor, s.Begin().PrunedFloor())

	_, err := s.Read(key, 2)
	require.True(t, errors.Is(err, ErrEpochPruned))

	for e := 3; e <= 5; e++ {
		v, err := s.Read(key, types.Epoch(e))
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(e)}, v)
	}

	hist, err := s.History(key)
	require.NoError(t, err)
	assert.Len(t, hist, 3)
	assert.Equal(t, types.Epoch(3), hist[0].Epoch)

	it := s.IterPrefix(NewKey(""), 1)
	assert.False(t, it.Next())
	require.True(t, errors.Is(it.Error(), ErrEpochPruned))
	it.Release()
}
