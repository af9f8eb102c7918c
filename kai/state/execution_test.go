/*
 *  Copyright 2020 KardiaChain
 *  This file is part of the go-kardia library.
 *
 *  The go-kardia library is free software: you can redistribute it and/or modify
 *  it under the terms of the GNU Lesser General Public License as published by
 *  the Free Software Foundation, either version 3 of the License, or
 *  (at your option) any later version.
 *
 *  The go-kardia library is distributed in the hope that it will be useful,
 *  but WITHOUT ANY WARRANTY; without even the implied warranty of
 *  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 *  GNU Lesser General Public License for more details.
 *
 *  You should have received a copy of the GNU Lesser General Public License
 *  along with the go-kardia library. If not, see <http://www.gnu.org/licenses/>.
 */

package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/Pol-Polina/Anoma/kai/epoch"
	"github.com/Pol-Polina/Anoma/kai/kaidb/memorydb"
	"github.com/Pol-Polina/Anoma/kai/pos"
	"github.com/Pol-Polina/Anoma/kai/storage"
	"github.com/Pol-Polina/Anoma/kai/token"
	"github.com/Pol-Polina/Anoma/kai/vp"
	"github.com/Pol-Polina/Anoma/lib/log"
	kmath "github.com/Pol-Polina/Anoma/lib/math"
	"github.com/Pol-Polina/Anoma/types"
)

var (
	val1  = common.HexToAddress("0x1001")
	deleg = common.HexToAddress("0xd001")
	payee = common.HexToAddress("0xe001")
)

func testKey(b byte) ed25519.PublicKey {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = b
	return ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
}

type execEnv struct {
	store    *storage.Store
	engine   *pos.Engine
	registry *vp.Registry
	exec     *BlockExecutor
}

// newExecEnv commits genesis at height 1 with two blocks per epoch.
func newExecEnv(t *testing.T) *execEnv {
	store, err := storage.NewStore(memorydb.New(), storage.Options{}, log.NewNopLogger())
	require.NoError(t, err)
	registry := vp.NewRegistry(vp.AcceptAll)
	gate := vp.NewGate(registry, pos.Address, log.NewNopLogger())
	engine := pos.NewEngine(store, gate, token.BankFactory, log.NewNopLogger())
	tracker, err := epoch.NewTracker(2, 1)
	require.NoError(t, err)

	params := pos.DefaultParams()
	params.MinValidatorStake = 100
	require.NoError(t, store.BeginBlock(1, 0))
	require.NoError(t, engine.InitGenesis(params, []pos.GenesisValidator{{Address: val1, ConsensusKey: testKey(1), Stake: 1000}}))
	require.NoError(t, token.NewBank(store).Credit(deleg, 500))
	_, err = store.Commit()
	require.NoError(t, err)

	return &execEnv{
		store:    store,
		engine:   engine,
		registry: registry,
		exec:     NewBlockExecutor(store, engine, gate, token.BankFactory, tracker, log.NewNopLogger()),
	}
}

func (env *execEnv) balance(t *testing.T, addr common.Address) types.Amount {
	bal, err := token.NewBank(env.store).Balance(addr)
	require.NoError(t, err)
	return bal
}

func TestTxKindString(t *testing.T) {
	for kind := TxTransfer; kind <= TxReactivate; kind++ {
		parsed, err := ParseTxKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}
	_, err := ParseTxKind("mint")
	assert.Error(t, err)
	assert.Equal(t, "unknown", TxUnknown.String())
}

func TestValidateBasic(t *testing.T) {
	testCases := []struct {
		name  string
		tx    Tx
		valid bool
	}{
		{"transfer", Tx{Kind: TxTransfer, Source: deleg, To: payee, Amount: 1}, true},
		{"transfer without recipient", Tx{Kind: TxTransfer, Source: deleg, Amount: 1}, false},
		{"zero bond", Tx{Kind: TxBond, Source: deleg, Validator: val1}, false},
		{"bond", Tx{Kind: TxBond, Source: deleg, Validator: val1, Amount: 5}, true},
		{"short key", Tx{Kind: TxBecomeValidator, Source: deleg, ConsensusKey: ed25519.PublicKey{1}}, false},
		{"slash", Tx{Kind: TxSlash, Source: pos.Address, Validator: val1, Fraction: kmath.NewFraction(1, 10)}, true},
		{"slash by account", Tx{Kind: TxSlash, Source: deleg, Validator: val1, Fraction: kmath.NewFraction(1, 10)}, false},
		{"slash without source", Tx{Kind: TxSlash, Validator: val1, Fraction: kmath.NewFraction(1, 10)}, false},
		{"zero slash", Tx{Kind: TxSlash, Source: pos.Address, Validator: val1, Fraction: kmath.Zero}, false},
		{"withdraw without validator", Tx{Kind: TxWithdraw, Source: deleg}, false},
		{"unknown", Tx{Kind: TxUnknown}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tx.ValidateBasic()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestApplyBlock(t *testing.T) {
	env := newExecEnv(t)

	txs := []*Tx{
		{Kind: TxTransfer, Source: deleg, To: payee, Amount: 200},
		{Kind: TxBond, Source: deleg, Validator: val1, Amount: 100},
		{Kind: TxBond, Source: deleg, Validator: val1, Amount: 10000},
		{Kind: TxUnknown},
	}
	hash, results, err := env.exec.ApplyBlock(2, txs)
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)
	require.Len(t, results, 4)
	assert.True(t, results[0].OK())
	assert.True(t, results[1].OK())
	assert.True(t, errors.Is(results[2].Err, token.ErrInsufficientBalance))
	_, invalid := results[3].Err.(ErrInvalidTx)
	assert.True(t, invalid)

	assert.Equal(t, types.BlockHeight(2), env.store.Height())
	assert.Equal(t, types.Epoch(0), env.store.Epoch())
	assert.Equal(t, types.Amount(200), env.balance(t, payee))
	assert.Equal(t, types.Amount(200), env.balance(t, deleg))

	power, err := env.engine.VotingPower(val1, 0)
	require.NoError(t, err)
	assert.Equal(t, types.VotingPower(1000), power)
	power, err = env.engine.VotingPower(val1, 2)
	require.NoError(t, err)
	assert.Equal(t, types.VotingPower(1100), power)
}

func TestBeginBlockRunsBoundary(t *testing.T) {
	env := newExecEnv(t)

	ep, err := env.exec.BeginBlock(2)
	require.NoError(t, err)
	assert.Equal(t, types.Epoch(0), ep)
	_, err = env.exec.Commit()
	require.NoError(t, err)

	ep, err = env.exec.BeginBlock(3)
	require.NoError(t, err)
	assert.Equal(t, types.Epoch(1), ep)
	_, err = env.exec.Commit()
	require.NoError(t, err)
	assert.Equal(t, types.Epoch(1), env.store.Epoch())

	set, err := env.engine.ActiveValidators(1)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{val1}, set)
}

func TestApplyTxOutsideBlock(t *testing.T) {
	env := newExecEnv(t)
	res := env.exec.ApplyTx(0, &Tx{Kind: TxTransfer, Source: deleg, To: payee, Amount: 1})
	assert.Equal(t, ErrNoBlock, res.Err)
}

func TestTransferRejected(t *testing.T) {
	env := newExecEnv(t)
	env.registry.Register(deleg, vp.RejectAll)

	_, err := env.exec.BeginBlock(2)
	require.NoError(t, err)
	res := env.exec.ApplyTx(0, &Tx{Kind: TxTransfer, Source: deleg, To: payee, Amount: 10})
	assert.True(t, errors.Is(res.Err, vp.ErrUnauthorized))
	_, err = env.exec.Commit()
	require.NoError(t, err)

	assert.Equal(t, types.Amount(500), env.balance(t, deleg))
	assert.Equal(t, types.Amount(0), env.balance(t, payee))
}

func TestApplyBlockStaleHeight(t *testing.T) {
	env := newExecEnv(t)
	_, _, err := env.exec.ApplyBlock(1, nil)
	assert.True(t, errors.Is(err, storage.ErrCommitConflict))
	assert.False(t, env.store.InBlock())
}

func TestSlashTxSource(t *testing.T) {
	env := newExecEnv(t)
	env.registry.Register(val1, vp.RejectAll)

	_, err := env.exec.BeginBlock(2)
	require.NoError(t, err)
	testCases := []struct {
		name    string
		source  common.Address
		applied bool
	}{
		{"account", deleg, false},
		{"slashed validator", val1, false},
		{"protocol", pos.Address, true},
	}
	for i, tc := range testCases {
		res := env.exec.ApplyTx(i, &Tx{Kind: TxSlash, Source: tc.source, Validator: val1, Fraction: kmath.NewFraction(1, 10)})
		if tc.applied {
			assert.NoError(t, res.Err, tc.name)
			continue
		}
		_, invalid := res.Err.(ErrInvalidTx)
		assert.True(t, invalid, "%s: got %v", tc.name, res.Err)
	}
	_, err = env.exec.Commit()
	require.NoError(t, err)

	total, err := env.engine.TotalBonded(val1, 0)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(900), total)
}
