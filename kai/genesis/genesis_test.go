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

package genesis

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/Pol-Polina/Anoma/kai/kaidb/memorydb"
	"github.com/Pol-Polina/Anoma/kai/pos"
	"github.com/Pol-Polina/Anoma/kai/storage"
	"github.com/Pol-Polina/Anoma/kai/token"
	"github.com/Pol-Polina/Anoma/lib/log"
	"github.com/Pol-Polina/Anoma/types"
)

func testKey(b byte) string {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = b
	return hexutil.Encode(ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey))
}

func testGenesisYAML() string {
	return fmt.Sprintf(`chain_id: anoma-test
height: 1
accounts:
  - address: "0x000000000000000000000000000000000000d001"
    balance: 500
validators:
  - address: "0x0000000000000000000000000000000000001001"
    consensus_key: "%s"
    stake: 1000
  - address: "0x0000000000000000000000000000000000001002"
    consensus_key: "%s"
    stake: 10
`, testKey(1), testKey(2))
}

func newStore(t *testing.T, chainID string) *storage.Store {
	store, err := storage.NewStore(memorydb.New(), storage.Options{ChainID: chainID}, log.NewNopLogger())
	require.NoError(t, err)
	return store
}

func TestParse(t *testing.T) {
	g, err := Parse([]byte(testGenesisYAML()))
	require.NoError(t, err)
	assert.Equal(t, "anoma-test", g.ChainID)
	assert.Equal(t, uint64(1), g.Height)
	require.Len(t, g.Accounts, 1)
	require.Len(t, g.Validators, 2)

	vals, err := g.GenesisValidators()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x1001"), vals[0].Address)
	assert.Equal(t, types.Amount(1000), vals[0].Stake)
	assert.Len(t, vals[0].ConsensusKey, ed25519.PublicKeySize)
}

func TestRead(t *testing.T) {
	dir, err := ioutil.TempDir("", "genesis")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "genesis.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(testGenesisYAML()), 0600))
	g, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "anoma-test", g.ChainID)

	_, err = Read(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Genesis {
		g, err := Parse([]byte(testGenesisYAML()))
		require.NoError(t, err)
		return g
	}
	testCases := []struct {
		name   string
		mutate func(g *Genesis)
	}{
		{"no chain id", func(g *Genesis) { g.ChainID = "" }},
		{"no validators", func(g *Genesis) { g.Validators = nil }},
		{"bad validator address", func(g *Genesis) { g.Validators[0].Address = "pos" }},
		{"short consensus key", func(g *Genesis) { g.Validators[0].ConsensusKey = "0x0102" }},
		{"duplicate validator", func(g *Genesis) { g.Validators[1].Address = g.Validators[0].Address }},
		{"bad account address", func(g *Genesis) { g.Accounts[0].Address = "0xzz" }},
		{"duplicate account", func(g *Genesis) { g.Accounts = append(g.Accounts, g.Accounts[0]) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := valid()
			tc.mutate(g)
			assert.Error(t, g.Validate())
		})
	}
}

func TestInitChain(t *testing.T) {
	g, err := Parse([]byte(testGenesisYAML()))
	require.NoError(t, err)
	params := pos.DefaultParams()
	params.MinValidatorStake = 100

	store := newStore(t, g.ChainID)
	hash, err := InitChain(store, g, params, log.NewNopLogger())
	require.NoError(t, err)

	head, ok := store.Head()
	require.True(t, ok)
	assert.Equal(t, types.BlockHeight(1), head.Height)
	assert.Equal(t, types.Epoch(0), head.Epoch)
	assert.Equal(t, hash, head.Hash)

	expected, err := Hash(g, params)
	require.NoError(t, err)
	assert.Equal(t, expected, hash)

	bal, err := token.NewBank(store).Balance(common.HexToAddress("0xd001"))
	require.NoError(t, err)
	assert.Equal(t, types.Amount(500), bal)

	r := pos.NewReader(store)
	val, err := r.ValidatorState(common.HexToAddress("0x1001"), 0)
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, val.Status)
	assert.Equal(t, types.Amount(1000), val.Stake)

	val, err = r.ValidatorState(common.HexToAddress("0x1002"), 0)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCandidate, val.Status)

	// Same genesis is a no-op.
	again, err := InitChain(store, g, params, log.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, hash, again)
	assert.Equal(t, types.BlockHeight(1), store.Height())
}

func TestInitChainMismatch(t *testing.T) {
	g, err := Parse([]byte(testGenesisYAML()))
	require.NoError(t, err)
	store := newStore(t, g.ChainID)
	_, err = InitChain(store, g, pos.DefaultParams(), log.NewNopLogger())
	require.NoError(t, err)

	g.Accounts[0].Balance = 501
	_, err = InitChain(store, g, pos.DefaultParams(), log.NewNopLogger())
	require.Error(t, err)
	_, ok := err.(*ErrMismatch)
	assert.True(t, ok, "got %v", err)
}

func TestInitChainWrongChain(t *testing.T) {
	g, err := Parse([]byte(testGenesisYAML()))
	require.NoError(t, err)
	_, err = InitChain(newStore(t, "other"), g, pos.DefaultParams(), log.NewNopLogger())
	assert.Error(t, err)
}
