package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pol-Polina/Anoma/kai/kaidb/leveldb"
	"github.com/Pol-Polina/Anoma/types"
)

func collect(t *testing.T, it Iterator) []string {
	var out []string
	for it.Next() {
		out = append(out, string(it.Key())+"="+string(it.Value()))
	}
	require.NoError(t, it.Error())
	return out
}

func TestIterPrefix(t *testing.T) {
	db, err := leveldb.NewMemory()
	require.NoError(t, err)
	defer db.Close()
	s := newTestStore(t, db, Options{})

	require.NoError(t, s.BeginBlock(1, 0))
	require.NoError(t, s.Write(NewKey("p", "b"), []byte("b0"), 0))
	require.NoError(t, s.Write(NewKey("p", "d"), []byte("d0"), 0))
	require.NoError(t, s.Write(NewKey("p", "f"), []byte("f2"), 2))
	require.NoError(t, s.Write(NewKey("q", "a"), []byte("other"), 0))
	_, err = s.Commit()
	require.NoError(t, err)

	// Staged writes merge with committed data: a new key, an overwrite and a
	// tombstone.
	require.NoError(t, s.BeginBlock(2, 1))
	require.NoError(t, s.Write(NewKey("p", "a"), []byte("a1"), 1))
	require.NoError(t, s.Write(NewKey("p", "b"), []byte("b1"), 1))
	require.NoError(t, s.Delete(NewKey("p", "d"), 1))

	testCases := []struct {
		epoch types.Epoch
		want  []string
	}{
		{0, []string{"p/b=b0", "p/d=d0"}},
		{1, []string{"p/a=a1", "p/b=b1"}},
		{2, []string{"p/a=a1", "p/b=b1", "p/f=f2"}},
	}
	for _, tc := range testCases {
		it := s.IterPrefix(NewKey("p"), tc.epoch)
		assert.Equal(t, tc.want, collect(t, it), "epoch %d", tc.epoch)
		it.Release()
	}
}

func TestIterPrefixResetAndRelease(t *testing.T) {
	s := newTestStore(t, memoryBackend(), Options{})
	require.NoError(t, s.BeginBlock(1, 0))
	for _, k := range []string{"x/3", "x/1", "x/2"} {
		require.NoError(t, s.Write(Key(k), []byte(k), 0))
	}

	it := s.IterPrefix(NewKey("x"), 0)
	require.True(t, it.Next())
	assert.Equal(t, Key("x/1"), it.Key())

	it.Reset()
	assert.Equal(t, []string{"x/1=x/1", "x/2=x/2", "x/3=x/3"}, collect(t, it))
	assert.False(t, it.Next(), "an exhausted iterator stays exhausted")

	it.Reset()
	require.True(t, it.Next())
	it.Release()
	assert.False(t, it.Next(), "a released iterator yields nothing")
}

func TestIterPrefixIsLazy(t *testing.T) {
	s := newTestStore(t, memoryBackend(), Options{})
	require.NoError(t, s.BeginBlock(1, 0))

	it := s.IterPrefix(NewKey("x"), 0)
	require.NoError(t, s.Write(NewKey("x", "late"), []byte("1"), 0))
	assert.Equal(t, []string{"x/late=1"}, collect(t, it))
	it.Release()
}
