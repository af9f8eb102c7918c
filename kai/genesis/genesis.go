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
	"io/ioutil"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"
	"gopkg.in/yaml.v2"

	"github.com/Pol-Polina/Anoma/kai/kaidb/memorydb"
	"github.com/Pol-Polina/Anoma/kai/pos"
	"github.com/Pol-Polina/Anoma/kai/storage"
	"github.com/Pol-Polina/Anoma/kai/token"
	"github.com/Pol-Polina/Anoma/kai/vp"
	"github.com/Pol-Polina/Anoma/lib/log"
	"github.com/Pol-Polina/Anoma/types"
)

// Account is a funded genesis account.
type Account struct {
	Address string `yaml:"address"`
	Balance uint64 `yaml:"balance"`
}

// Validator is a genesis validator. Its stake is self bonded and is not
// taken from the account balances.
type Validator struct {
	Address      string `yaml:"address"`
	ConsensusKey string `yaml:"consensus_key"`
	Stake        uint64 `yaml:"stake"`
}

// Genesis describes the initial state of the chain.
type Genesis struct {
	ChainID    string      `yaml:"chain_id"`
	Height     uint64      `yaml:"height"`
	Accounts   []Account   `yaml:"accounts"`
	Validators []Validator `yaml:"validators"`
}

// Read loads a YAML genesis file.
func Read(path string) (*Genesis, error) {
	bz, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read genesis %s", path)
	}
	return Parse(bz)
}

// Parse decodes and validates a YAML genesis document.
func Parse(bz []byte) (*Genesis, error) {
	g := new(Genesis)
	if err := yaml.Unmarshal(bz, g); err != nil {
		return nil, errors.Wrap(err, "decode genesis")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks the genesis document.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return errGenesisNoChainID
	}
	if len(g.Validators) == 0 {
		return errGenesisNoValidators
	}
	if _, err := g.GenesisValidators(); err != nil {
		return err
	}
	seen := make(map[common.Address]bool, len(g.Accounts))
	for _, acc := range g.Accounts {
		if !common.IsHexAddress(acc.Address) {
			return errors.Errorf("invalid account address %q", acc.Address)
		}
		addr := common.HexToAddress(acc.Address)
		if seen[addr] {
			return errors.Errorf("duplicate account %s", addr.Hex())
		}
		seen[addr] = true
	}
	return nil
}

// GenesisValidators decodes the validators.
func (g *Genesis) GenesisValidators() ([]pos.GenesisValidator, error) {
	vals := make([]pos.GenesisValidator, 0, len(g.Validators))
	seen := make(map[common.Address]bool, len(g.Validators))
	for i, v := range g.Validators {
		if !common.IsHexAddress(v.Address) {
			return nil, errors.Errorf("validator #%d: invalid address %q", i, v.Address)
		}
		addr := common.HexToAddress(v.Address)
		if seen[addr] {
			return nil, errors.Errorf("duplicate validator %s", addr.Hex())
		}
		seen[addr] = true
		key := common.FromHex(v.ConsensusKey)
		if len(key) != ed25519.PublicKeySize {
			return nil, errors.Errorf("validator %s: consensus key has length %d, want %d", addr.Hex(), len(key), ed25519.PublicKeySize)
		}
		vals = append(vals, pos.GenesisValidator{
			Address:      addr,
			ConsensusKey: ed25519.PublicKey(key),
			Stake:        v.Stake,
		})
	}
	return vals, nil
}

// InitChain commits the genesis block into store and returns its hash. A
// store already holding the same genesis is left untouched; one holding a
// different genesis fails with ErrMismatch.
func InitChain(store *storage.Store, g *Genesis, params pos.Params, logger log.Logger) (common.Hash, error) {
	if logger == nil {
		logger = log.New("module", "genesis")
	}
	if err := g.Validate(); err != nil {
		return common.Hash{}, err
	}
	if id := store.ChainID(); id != "" && id != g.ChainID {
		return common.Hash{}, errors.Errorf("store belongs to chain %q, genesis is for %q", id, g.ChainID)
	}
	height := types.BlockHeight(g.Height)

	if _, ok := store.Head(); ok {
		stored, err := store.BlockHash(height)
		if err != nil {
			return common.Hash{}, errors.Wrap(err, "store has no genesis block")
		}
		expected, err := Hash(g, params)
		if err != nil {
			return common.Hash{}, err
		}
		if stored != expected {
			return common.Hash{}, &ErrMismatch{Stored: stored, New: expected}
		}
		logger.Info("Genesis already initialized", "hash", stored.Hex())
		return stored, nil
	}

	hash, err := commit(store, g, params)
	if err != nil {
		return common.Hash{}, err
	}
	logger.Info("Committed genesis", "chain", g.ChainID, "height", height, "validators", len(g.Validators), "hash", hash.Hex())
	return hash, nil
}

// Hash returns the genesis block hash g and params produce.
func Hash(g *Genesis, params pos.Params) (common.Hash, error) {
	store, err := storage.NewStore(memorydb.New(), storage.Options{ChainID: g.ChainID}, log.NewNopLogger())
	if err != nil {
		return common.Hash{}, err
	}
	return commit(store, g, params)
}

func commit(store *storage.Store, g *Genesis, params pos.Params) (common.Hash, error) {
	vals, err := g.GenesisValidators()
	if err != nil {
		return common.Hash{}, err
	}
	if err := store.BeginBlock(types.BlockHeight(g.Height), 0); err != nil {
		return common.Hash{}, err
	}
	engine := pos.NewEngine(store, vp.NewGate(vp.AcceptAll, pos.Address, log.NewNopLogger()), token.BankFactory, log.NewNopLogger())
	if err := engine.InitGenesis(params, vals); err != nil {
		store.DiscardBlock()
		return common.Hash{}, err
	}
	bank := token.NewBank(store)
	for _, acc := range g.Accounts {
		if err := bank.Credit(common.HexToAddress(acc.Address), acc.Balance); err != nil {
			store.DiscardBlock()
			return common.Hash{}, errors.Wrapf(err, "fund %s", acc.Address)
		}
	}
	return store.Commit()
}
