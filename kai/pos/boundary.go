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

package pos

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"

	"github.com/Pol-Polina/Anoma/kai/storage"
	kmath "github.com/Pol-Polina/Anoma/lib/math"
	"github.com/Pol-Polina/Anoma/types"
)

// OnEpochBoundary runs the validator status machine at the first block of
// epoch and fixes the active set for the epoch. It is a protocol action and
// is not subject to validity predicates.
func (e *Engine) OnEpochBoundary(epoch types.Epoch) error {
	start := time.Now()
	ov := e.store.Begin()
	var changes int
	err := e.run(ov, epoch, func(tx *txn) error {
		var err error
		changes, err = tx.transitionStatuses()
		return err
	})
	if err == nil {
		err = ov.Apply()
	}
	if err != nil {
		ov.Discard()
		return errors.Wrapf(err, "epoch boundary %d", epoch)
	}
	boundaryTimer.UpdateSince(start)
	e.logger.Info("Processed epoch boundary", "epoch", epoch, "transitions", changes)
	return nil
}

type candidate struct {
	addr  common.Address
	rec   *types.ValidatorRecord
	stake types.Amount
}

func (tx *txn) transitionStatuses() (int, error) {
	addrs, err := tx.r.Validators()
	if err != nil {
		return 0, err
	}
	params := tx.params
	cands := make([]candidate, 0, len(addrs))
	var eligible types.VotingPower
	for _, addr := range addrs {
		rec, err := tx.r.record(addr, tx.epoch)
		if err != nil {
			return 0, err
		}
		if rec == nil {
			continue
		}
		stake, err := tx.r.TotalBonded(addr, tx.epoch)
		if err != nil {
			return 0, err
		}
		cands = append(cands, candidate{addr: addr, rec: rec, stake: stake})
		if rec.JailPending == 0 && stake >= params.MinValidatorStake &&
			(rec.Status == types.StatusCandidate || rec.Status == types.StatusActive) {
			if eligible, err = kmath.SafeAddUint64(eligible, params.VotingPower(stake)); err != nil {
				return 0, errors.Wrapf(err, "eligible power at %s", addr.Hex())
			}
		}
	}

	var (
		changes int
		active  []common.Address
	)
	for _, c := range cands {
		next := transition(params, tx.epoch, c.rec, c.stake, eligible)
		if *next != *c.rec {
			if err := tx.write(ValidatorStateKey(c.addr), next, tx.epoch); err != nil {
				return 0, err
			}
			if next.Status != c.rec.Status {
				changes++
			}
		}
		if next.Status == types.StatusActive {
			active = append(active, c.addr)
		}
	}
	return changes, tx.write(ValidatorSetKey(tx.epoch), active, tx.epoch)
}

// transition returns the record of a validator after the boundary at epoch.
func transition(params Params, epoch types.Epoch, rec *types.ValidatorRecord, stake types.Amount, eligible types.VotingPower) *types.ValidatorRecord {
	next := rec.Copy()
	belowMin := stake < params.MinValidatorStake
	reactivate := params.Slashing.Reactivation == ReactivationAutomatic || rec.ReactivationRequested != 0

	if rec.JailPending != 0 {
		next.JailPending = 0
		next.ReactivationRequested = 0
		next.Status = types.StatusJailed
		next.JailedUntil = epoch.Add(params.Slashing.JailEpochs)
		return next
	}
	switch rec.Status {
	case types.StatusCandidate:
		if belowMin {
			next.Status = types.StatusInactive
		} else if params.ActivationThreshold.ShareAtLeast(params.VotingPower(stake), eligible) {
			next.Status = types.StatusActive
		}
	case types.StatusActive:
		if belowMin {
			next.Status = types.StatusInactive
		}
	case types.StatusJailed:
		if belowMin {
			next.Status = types.StatusInactive
		} else if epoch >= rec.JailedUntil && reactivate {
			next.Status = types.StatusCandidate
			next.ReactivationRequested = 0
		}
	case types.StatusInactive:
		if !belowMin && epoch >= rec.JailedUntil && reactivate {
			next.Status = types.StatusCandidate
			next.ReactivationRequested = 0
		}
	}
	return next
}

// GenesisValidator is a validator active from the genesis epoch.
type GenesisValidator struct {
	Address      common.Address
	ConsensusKey ed25519.PublicKey
	// Stake is self bonded and effective from the genesis epoch.
	Stake types.Amount
}

// InitGenesis writes params and the genesis validators into the open block.
// Genesis stake takes effect immediately and validators meeting the minimum
// stake start active.
func (e *Engine) InitGenesis(params Params, vals []GenesisValidator) error {
	if err := params.Validate(); err != nil {
		return errors.Wrap(err, "invalid pos params")
	}
	ov := e.store.Begin()
	epoch := ov.BlockEpoch()
	err := e.initGenesis(ov, epoch, params, vals)
	if err == nil {
		err = ov.Apply()
	}
	if err != nil {
		ov.Discard()
		return errors.Wrap(err, "pos genesis")
	}
	e.logger.Info("Initialized PoS genesis", "epoch", epoch, "validators", len(vals))
	return nil
}

func (e *Engine) initGenesis(ov *storage.Overlay, epoch types.Epoch, params Params, vals []GenesisValidator) error {
	bz, err := types.Encode(&params)
	if err != nil {
		return err
	}
	if err := ov.Write(ParamsKey, bz, epoch); err != nil {
		return err
	}
	tx := &txn{rw: ov, r: NewReader(ov), ledger: e.tokens(ov), params: params, epoch: epoch}

	var active []common.Address
	for _, val := range vals {
		v := &types.Validator{Address: val.Address, ConsensusKey: val.ConsensusKey}
		if err := v.ValidateBasic(); err != nil {
			return err
		}
		ok, err := tx.r.IsValidator(val.Address)
		if err != nil {
			return err
		}
		if ok {
			return errors.Wrap(ErrValidatorExists, val.Address.Hex())
		}
		status := types.StatusCandidate
		if val.Stake >= params.MinValidatorStake && val.Stake > 0 {
			status = types.StatusActive
			active = append(active, val.Address)
		}
		if err := tx.registerValidator(val.Address, val.ConsensusKey, status); err != nil {
			return err
		}
		if val.Stake > 0 {
			if err := tx.moveStake(val.Address, val.Address, epoch, addAmount(val.Stake)); err != nil {
				return err
			}
			if err := ov.Write(DelegatorIndexKey(val.Address, val.Address), []byte{1}, epoch); err != nil {
				return err
			}
		}
	}
	return tx.write(ValidatorSetKey(epoch), sortAddresses(active), epoch)
}
