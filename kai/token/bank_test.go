package token

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pol-Polina/Anoma/kai/kaidb/memorydb"
	"github.com/Pol-Polina/Anoma/kai/storage"
	"github.com/Pol-Polina/Anoma/lib/log"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

func newTestBank(t *testing.T) (*storage.Store, *Bank) {
	s, err := storage.NewStore(memorydb.New(), storage.Options{}, log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, s.BeginBlock(1, 3))
	return s, NewBank(s)
}

func TestBankCreditDebit(t *testing.T) {
	_, bank := newTestBank(t)

	bal, err := bank.Balance(alice)
	require.NoError(t, err)
	assert.Zero(t, bal)

	require.NoError(t, bank.Credit(alice, 100))
	require.NoError(t, bank.Debit(alice, 30))
	bal, err = bank.Balance(alice)
	require.NoError(t, err)
	assert.EqualValues(t, 70, bal)

	ok, err := bank.HasBalanceGTE(alice, 70)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = bank.HasBalanceGTE(alice, 71)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBankInsufficientBalance(t *testing.T) {
	_, bank := newTestBank(t)
	require.NoError(t, bank.Credit(alice, 10))

	err := bank.Debit(alice, 11)
	require.True(t, errors.Is(err, ErrInsufficientBalance))
	bal, _ := bank.Balance(alice)
	assert.EqualValues(t, 10, bal)

	err = bank.Transfer(alice, bob, 20)
	require.True(t, errors.Is(err, ErrInsufficientBalance))
	bal, _ = bank.Balance(bob)
	assert.Zero(t, bal)
}

func TestBankCreditOverflow(t *testing.T) {
	_, bank := newTestBank(t)
	require.NoError(t, bank.Credit(alice, ^uint64(0)))
	require.Error(t, bank.Credit(alice, 1))
}

func TestBankThroughOverlay(t *testing.T) {
	s, _ := newTestBank(t)
	ov := s.Begin()
	ledger := BankFactory(ov)
	require.NoError(t, ledger.Credit(bob, 5))
	ov.Discard()

	bal, err := NewBank(s).Balance(bob)
	require.NoError(t, err)
	assert.Zero(t, bal)
}
