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

package main

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/Pol-Polina/Anoma/configs"
	"github.com/Pol-Polina/Anoma/kai/epoch"
	"github.com/Pol-Polina/Anoma/kai/genesis"
	"github.com/Pol-Polina/Anoma/kai/kaidb"
	"github.com/Pol-Polina/Anoma/kai/kaidb/leveldb"
	"github.com/Pol-Polina/Anoma/kai/kaidb/memorydb"
	"github.com/Pol-Polina/Anoma/kai/pos"
	"github.com/Pol-Polina/Anoma/kai/state"
	"github.com/Pol-Polina/Anoma/kai/storage"
	"github.com/Pol-Polina/Anoma/kai/token"
	"github.com/Pol-Polina/Anoma/kai/vp"
	"github.com/Pol-Polina/Anoma/lib/log"
	"github.com/Pol-Polina/Anoma/types"
)

// node bundles the components a command works with.
type node struct {
	cfg     *configs.Config
	genesis *genesis.Genesis
	params  pos.Params
	tracker epoch.Tracker
	db      kaidb.Database
	store   *storage.Store
	logger  log.Logger
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig(ctx *cli.Context) (*configs.Config, error) {
	cfg, err := configs.Load(ctx.String(configFileFlag.Name))
	if err != nil {
		return nil, err
	}
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.Node.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(logLevelFlag.Name) {
		cfg.Node.LogLevel = ctx.String(logLevelFlag.Name)
	}
	if ctx.IsSet(genesisFlag.Name) {
		cfg.Genesis = ctx.String(genesisFlag.Name)
	}
	if err := log.Setup(cfg.Node.LogLevel); err != nil {
		return nil, errors.Wrap(err, "setup logging")
	}
	return cfg, nil
}

func openDatabase(cfg *configs.Config) (kaidb.Database, error) {
	dbCfg := cfg.Node.Database
	switch dbCfg.Type {
	case configs.DatabaseMemory:
		return memorydb.New(), nil
	case configs.DatabaseLevelDB:
		db, err := leveldb.New(cfg.DatabasePath(), dbCfg.Caches, dbCfg.Handles)
		if err != nil {
			return nil, errors.Wrapf(err, "open leveldb %s", cfg.DatabasePath())
		}
		return kaidb.NewMetered(db), nil
	}
	return nil, errors.Errorf("unknown database type %q", dbCfg.Type)
}

// openNode loads config and genesis and opens the store.
func openNode(ctx *cli.Context) (*node, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	g, err := genesis.Read(cfg.GenesisPath())
	if err != nil {
		return nil, err
	}
	params, err := cfg.PoS.Params()
	if err != nil {
		return nil, err
	}
	tracker, err := cfg.PoS.Tracker(types.BlockHeight(g.Height))
	if err != nil {
		return nil, err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	logger := log.New("module", "node", "chain", g.ChainID)
	store, err := storage.NewStore(db, cfg.StoreOptions(g.ChainID), log.New("module", "storage"))
	if err != nil {
		db.Close()
		return nil, err
	}
	return &node{
		cfg:     cfg,
		genesis: g,
		params:  params,
		tracker: tracker,
		db:      db,
		store:   store,
		logger:  logger,
	}, nil
}

func (n *node) Close() error {
	return n.db.Close()
}

// executor wires the PoS engine behind a gate where every account's
// predicate accepts.
func (n *node) executor() *state.BlockExecutor {
	gate := vp.NewGate(vp.NewRegistry(vp.AcceptAll), pos.Address, log.New("module", "vp"))
	engine := pos.NewEngine(n.store, gate, token.BankFactory, log.New("module", "pos"))
	return state.NewBlockExecutor(n.store, engine, gate, token.BankFactory, n.tracker, log.New("module", "state"))
}

func (n *node) requireHead() (storage.Head, error) {
	head, ok := n.store.Head()
	if !ok {
		return storage.Head{}, errors.New("store is not initialized, run init first")
	}
	return head, nil
}
