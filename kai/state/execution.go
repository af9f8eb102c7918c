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
	"time"

	fail "github.com/ebuchman/fail-test"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/Pol-Polina/Anoma/kai/epoch"
	"github.com/Pol-Polina/Anoma/kai/pos"
	"github.com/Pol-Polina/Anoma/kai/storage"
	"github.com/Pol-Polina/Anoma/kai/token"
	"github.com/Pol-Polina/Anoma/kai/vp"
	"github.com/Pol-Polina/Anoma/lib/log"
	"github.com/Pol-Polina/Anoma/types"
)

// BlockExecutor handles block execution and state updates.
// It opens a block in the store, runs the epoch boundary when the block
// starts a new epoch, applies txs and commits.
type BlockExecutor struct {
	store   *storage.Store
	engine  *pos.Engine
	gate    *vp.Gate
	tokens  token.Factory
	tracker epoch.Tracker

	logger log.Logger
}

// NewBlockExecutor returns a new BlockExecutor.
func NewBlockExecutor(store *storage.Store, engine *pos.Engine, gate *vp.Gate, tokens token.Factory, tracker epoch.Tracker, logger log.Logger) *BlockExecutor {
	if logger == nil {
		logger = log.New("module", "state")
	}
	return &BlockExecutor{
		store:   store,
		engine:  engine,
		gate:    gate,
		tokens:  tokens,
		tracker: tracker,
		logger:  logger,
	}
}

// Tracker returns the epoch tracker.
func (blockExec *BlockExecutor) Tracker() epoch.Tracker {
	return blockExec.tracker
}

// BeginBlock opens the block at height and returns its epoch. The first
// block of a new epoch runs the PoS epoch boundary before any tx.
func (blockExec *BlockExecutor) BeginBlock(height types.BlockHeight) (types.Epoch, error) {
	ep := blockExec.tracker.EpochOf(height)
	_, hasHead := blockExec.store.Head()
	committed := blockExec.store.Epoch()
	if err := blockExec.store.BeginBlock(height, ep); err != nil {
		return 0, err
	}
	if hasHead && ep > committed {
		if err := blockExec.engine.OnEpochBoundary(ep); err != nil {
			blockExec.store.DiscardBlock()
			return 0, errors.Wrapf(err, "epoch boundary %d", ep)
		}
		boundaryCounter.Inc(1)
		blockExec.logger.Info("Entered epoch", "epoch", ep, "height", height)
	}
	currentEpochGauge.Update(int64(ep))
	return ep, nil
}

// ApplyTx applies tx to the open block. A failed tx is reported in the
// result and leaves the block untouched.
func (blockExec *BlockExecutor) ApplyTx(index int, tx *Tx) TxResult {
	res := TxResult{Index: index, Kind: tx.Kind}
	if !blockExec.store.InBlock() {
		res.Err = ErrNoBlock
		return res
	}
	if err := tx.ValidateBasic(); err != nil {
		res.Err = ErrInvalidTx{Index: index, Cause: err}
		txFailedMeter.Mark(1)
		return res
	}

	current := blockExec.store.BlockEpoch()
	switch tx.Kind {
	case TxTransfer:
		res.Err = blockExec.transfer(tx)
	case TxBecomeValidator:
		res.Err = blockExec.engine.BecomeValidator(tx.Source, tx.ConsensusKey, current)
	case TxBond:
		res.Err = blockExec.engine.Bond(tx.Source, tx.Validator, tx.Amount, current)
	case TxUnbond:
		res.Err = blockExec.engine.Unbond(tx.Source, tx.Validator, tx.Amount, current)
	case TxWithdraw:
		res.Withdrawn, res.Err = blockExec.engine.Withdraw(tx.Source, tx.Validator, current)
	case TxCancelUnbond:
		res.Err = blockExec.engine.CancelUnbond(tx.Source, tx.Validator, tx.Amount, current)
	case TxSlash:
		res.Err = blockExec.engine.Slash(tx.Validator, tx.Fraction, current)
	case TxReactivate:
		res.Err = blockExec.engine.Reactivate(tx.Source, current)
	}

	if res.Err != nil {
		txFailedMeter.Mark(1)
		blockExec.logger.Debug("Tx failed", "index", index, "kind", tx.Kind, "err", res.Err)
		return res
	}
	txAppliedMeter.Mark(1)
	return res
}

func (blockExec *BlockExecutor) transfer(tx *Tx) error {
	ov := blockExec.store.Begin()
	ledger := blockExec.tokens(ov)
	err := ledger.Debit(tx.Source, tx.Amount)
	if err == nil {
		err = ledger.Credit(tx.To, tx.Amount)
	}
	if err == nil {
		err = blockExec.gate.Authorize(ov.Diff(), ov.Pre(), tx.Source)
	}
	if err == nil {
		err = ov.Apply()
	}
	if err != nil {
		ov.Discard()
		return errors.Wrap(err, "transfer")
	}
	return nil
}

// Commit commits the open block.
func (blockExec *BlockExecutor) Commit() (common.Hash, error) {
	fail.Fail() // XXX

	hash, err := blockExec.store.Commit()
	if err != nil {
		return common.Hash{}, err
	}

	fail.Fail() // XXX
	return hash, nil
}

// Discard drops the open block.
func (blockExec *BlockExecutor) Discard() {
	blockExec.store.DiscardBlock()
}

// ApplyBlock executes txs in a new block at height and commits it. Failed
// txs are skipped and reported in the results.
func (blockExec *BlockExecutor) ApplyBlock(height types.BlockHeight, txs []*Tx) (common.Hash, []TxResult, error) {
	start := time.Now()
	defer applyBlockTimer.UpdateSince(start)

	ep, err := blockExec.BeginBlock(height)
	if err != nil {
		return common.Hash{}, nil, err
	}
	results := make([]TxResult, 0, len(txs))
	failed := 0
	for i, tx := range txs {
		res := blockExec.ApplyTx(i, tx)
		if !res.OK() {
			failed++
		}
		results = append(results, res)
	}

	hash, err := blockExec.Commit()
	if err != nil {
		blockExec.Discard()
		return common.Hash{}, results, err
	}
	blockExec.logger.Info("Executed block", "height", height, "epoch", ep, "txs", len(txs), "failed", failed,
		"hash", hash.Hex(), "elapsed", common.PrettyDuration(time.Since(start)))
	return hash, results, nil
}
