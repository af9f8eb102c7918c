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
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"

	"github.com/Pol-Polina/Anoma/kai/storage"
	"github.com/Pol-Polina/Anoma/kai/token"
	"github.com/Pol-Polina/Anoma/kai/vp"
	"github.com/Pol-Polina/Anoma/lib/log"
	kmath "github.com/Pol-Polina/Anoma/lib/math"
	"github.com/Pol-Polina/Anoma/types"
)

var (
	opMeter       = metrics.NewRegisteredMeter("pos/op", nil)
	opFailMeter   = metrics.NewRegisteredMeter("pos/op/fail", nil)
	slashMeter    = metrics.NewRegisteredMeter("pos/slash", nil)
	boundaryTimer = metrics.NewRegisteredTimer("pos/boundary", nil)
)

// ReadWrite is the capability of the protocol and of transactions allowed
// to change PoS state. Every write either applies fully to the open block or
// not at all.
type ReadWrite interface {
	ReadOnly

	BecomeValidator(addr common.Address, consensusKey ed25519.PublicKey, current types.Epoch) error
	Bond(deleg, val common.Address, amount types.Amount, current types.Epoch) error
	Unbond(deleg, val common.Address, amount types.Amount, current types.Epoch) error
	Withdraw(deleg, val common.Address, current types.Epoch) (types.Amount, error)
	CancelUnbond(deleg, val common.Address, amount types.Amount, current types.Epoch) error
	Slash(val common.Address, fraction kmath.Fraction, current types.Epoch) error
	Reactivate(val common.Address, current types.Epoch) error
	OnEpochBoundary(epoch types.Epoch) error
}

// Engine implements ReadWrite on a store. Reads observe the open block.
type Engine struct {
	*Reader

	store  *storage.Store
	gate   *vp.Gate
	tokens token.Factory
	logger log.Logger
}

var _ ReadWrite = (*Engine)(nil)

// NewEngine returns an engine writing to store, authorizing every write
// through gate and moving funds with the ledgers built by tokens.
func NewEngine(store *storage.Store, gate *vp.Gate, tokens token.Factory, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.New("module", "pos")
	}
	if tokens == nil {
		tokens = token.BankFactory
	}
	return &Engine{
		Reader: NewReader(store),
		store:  store,
		gate:   gate,
		tokens: tokens,
		logger: logger,
	}
}

// txn is the state an operation mutates.
type txn struct {
	rw     storage.ReadWriter
	r      *Reader
	ledger token.Ledger
	params Params
	epoch  types.Epoch
}

// execute runs fn in a fresh overlay, authorizes the resulting diff and
// merges it into the block. On any failure the overlay is dropped.
func (e *Engine) execute(op string, current types.Epoch, verifiers []common.Address, fn func(tx *txn) error) error {
	return e.apply(op, current, fn, func(ov *storage.Overlay) error {
		return e.gate.Authorize(ov.Diff(), ov.Pre(), verifiers...)
	})
}

// executeProtocol runs a protocol action. Only the internal predicate
// judges its diff.
func (e *Engine) executeProtocol(op string, current types.Epoch, fn func(tx *txn) error) error {
	return e.apply(op, current, fn, func(ov *storage.Overlay) error {
		return e.gate.AuthorizeProtocol(ov.Diff(), ov.Pre())
	})
}

func (e *Engine) apply(op string, current types.Epoch, fn func(tx *txn) error, authorize func(ov *storage.Overlay) error) error {
	opMeter.Mark(1)
	ov := e.store.Begin()
	err := e.run(ov, current, fn)
	if err == nil {
		err = authorize(ov)
	}
	if err == nil {
		err = ov.Apply()
	}
	if err != nil {
		ov.Discard()
		opFailMeter.Mark(1)
		e.logger.Debug("PoS operation failed", "op", op, "epoch", current, "err", err)
		return errors.Wrap(err, op)
	}
	e.logger.Trace("PoS operation applied", "op", op, "epoch", current)
	return nil
}

func (e *Engine) run(ov *storage.Overlay, current types.Epoch, fn func(tx *txn) error) error {
	if block := ov.BlockEpoch(); current != block {
		return errors.Wrapf(ErrWrongEpoch, "epoch %d, block epoch %d", current, block)
	}
	r := NewReader(ov)
	params, err := r.Params()
	if err != nil {
		return err
	}
	return fn(&txn{
		rw:     ov,
		r:      r,
		ledger: e.tokens(ov),
		params: params,
		epoch:  current,
	})
}

func (tx *txn) write(key storage.Key, val interface{}, epoch types.Epoch) error {
	bz, err := types.Encode(val)
	if err != nil {
		return err
	}
	return tx.rw.Write(key, bz, epoch)
}

// adjustFrom rewrites the amount at key from epoch onward: the value
// effective at epoch and every later pending version are passed through fn.
func (tx *txn) adjustFrom(key storage.Key, from types.Epoch, fn func(types.Amount) (types.Amount, error)) error {
	hist, err := tx.rw.History(key)
	if err != nil {
		return err
	}
	epochs := []types.Epoch{from}
	for _, v := range hist {
		if v.Epoch > from {
			epochs = append(epochs, v.Epoch)
		}
	}
	for _, epoch := range epochs {
		amount, err := readAmount(tx.rw, key, epoch)
		if err != nil {
			return err
		}
		next, err := fn(amount)
		if err != nil {
			return err
		}
		if err := tx.write(key, next, epoch); err != nil {
			return err
		}
	}
	return nil
}

func addAmount(delta types.Amount) func(types.Amount) (types.Amount, error) {
	return func(a types.Amount) (types.Amount, error) {
		return kmath.SafeAddUint64(a, delta)
	}
}

func subAmount(delta types.Amount) func(types.Amount) (types.Amount, error) {
	return func(a types.Amount) (types.Amount, error) {
		if a < delta {
			return 0, errors.Wrapf(ErrInsufficientBond, "have %d, need %d", a, delta)
		}
		return a - delta, nil
	}
}

// moveStake applies fn to the bond of deleg and to the total stake of val
// from epoch onward.
func (tx *txn) moveStake(deleg, val common.Address, from types.Epoch, fn func(types.Amount) (types.Amount, error)) error {
	if err := tx.adjustFrom(BondKey(deleg, val), from, fn); err != nil {
		return err
	}
	return tx.adjustFrom(TotalBondedKey(val), from, fn)
}

// BecomeValidator registers addr as a candidate with the given consensus key.
func (e *Engine) BecomeValidator(addr common.Address, consensusKey ed25519.PublicKey, current types.Epoch) error {
	return e.execute("become validator", current, nil, func(tx *txn) error {
		if len(consensusKey) != ed25519.PublicKeySize {
			return errors.Errorf("consensus key has length %d, want %d", len(consensusKey), ed25519.PublicKeySize)
		}
		ok, err := tx.r.IsValidator(addr)
		if err != nil {
			return err
		}
		if ok {
			return errors.Wrap(ErrValidatorExists, addr.Hex())
		}
		return tx.registerValidator(addr, consensusKey, types.StatusCandidate)
	})
}

func (tx *txn) registerValidator(addr common.Address, consensusKey ed25519.PublicKey, status types.ValidatorStatus) error {
	if err := tx.rw.Write(ValidatorIndexKey(addr), []byte{1}, tx.epoch); err != nil {
		return err
	}
	if err := tx.rw.Write(ConsensusKeyKey(addr), consensusKey, tx.epoch); err != nil {
		return err
	}
	return tx.write(ValidatorStateKey(addr), &types.ValidatorRecord{Status: status}, tx.epoch)
}

// Bond debits amount from deleg and adds it to its bond with val from
// current + pipeline_length onward.
func (e *Engine) Bond(deleg, val common.Address, amount types.Amount, current types.Epoch) error {
	return e.execute("bond", current, nil, func(tx *txn) error {
		if amount == 0 {
			return ErrInvalidAmount
		}
		if err := tx.r.requireValidator(val); err != nil {
			return err
		}
		if err := tx.ledger.Debit(deleg, amount); err != nil {
			return err
		}
		effect := current.Add(tx.params.PipelineLength)
		if err := tx.moveStake(deleg, val, effect, addAmount(amount)); err != nil {
			return err
		}
		return tx.rw.Write(DelegatorIndexKey(val, deleg), []byte{1}, current)
	})
}

// Unbond removes amount from the bond of deleg with val from
// current + unbonding_length onward and records a pending withdrawal.
func (e *Engine) Unbond(deleg, val common.Address, amount types.Amount, current types.Epoch) error {
	return e.execute("unbond", current, nil, func(tx *txn) error {
		if amount == 0 {
			return ErrInvalidAmount
		}
		if err := tx.r.requireValidator(val); err != nil {
			return err
		}
		effect := current.Add(tx.params.UnbondingLength)
		if err := tx.moveStake(deleg, val, effect, subAmount(amount)); err != nil {
			return err
		}
		unbonds, err := tx.r.Unbonds(deleg, val)
		if err != nil {
			return err
		}
		unbonds = append(unbonds, types.Unbond{Amount: amount, Start: current, Withdrawable: effect})
		return tx.write(UnbondKey(deleg, val), unbonds, current)
	})
}

// Withdraw credits deleg with every matured unbond from val.
func (e *Engine) Withdraw(deleg, val common.Address, current types.Epoch) (types.Amount, error) {
	var withdrawn types.Amount
	err := e.execute("withdraw", current, nil, func(tx *txn) error {
		unbonds, err := tx.r.Unbonds(deleg, val)
		if err != nil {
			return err
		}
		if len(unbonds) == 0 {
			return errors.Wrapf(ErrUnbondNotFound, "%s from %s", deleg.Hex(), val.Hex())
		}
		var pending types.Unbonds
		withdrawn = 0
		for _, u := range unbonds {
			if u.IsMatured(current) {
				withdrawn += u.Amount
			} else {
				pending = append(pending, u)
			}
		}
		if len(pending) == len(unbonds) {
			return errors.Wrapf(ErrNotMatured, "first withdrawable at epoch %d", unbonds[0].Withdrawable)
		}
		if withdrawn > 0 {
			if err := tx.ledger.Credit(deleg, withdrawn); err != nil {
				return err
			}
		}
		if len(pending) == 0 {
			return tx.rw.Delete(UnbondKey(deleg, val), current)
		}
		return tx.write(UnbondKey(deleg, val), pending, current)
	})
	if err != nil {
		return 0, err
	}
	return withdrawn, nil
}

// CancelUnbond returns up to amount of not yet matured unbonds, newest
// first, to the bond they were taken from.
func (e *Engine) CancelUnbond(deleg, val common.Address, amount types.Amount, current types.Epoch) error {
	return e.execute("cancel unbond", current, nil, func(tx *txn) error {
		if amount == 0 {
			return ErrInvalidAmount
		}
		unbonds, err := tx.r.Unbonds(deleg, val)
		if err != nil {
			return err
		}
		var pendingTotal types.Amount
		for _, u := range unbonds {
			if !u.IsMatured(current) {
				pendingTotal += u.Amount
			}
		}
		if pendingTotal < amount {
			return errors.Wrapf(ErrUnbondNotFound, "cancel %d, pending %d", amount, pendingTotal)
		}

		left := amount
		for i := len(unbonds) - 1; i >= 0 && left > 0; i-- {
			u := &unbonds[i]
			if u.IsMatured(current) {
				continue
			}
			take := u.Amount
			if take > left {
				take = left
			}
			if err := tx.moveStake(deleg, val, u.Withdrawable, addAmount(take)); err != nil {
				return err
			}
			u.Amount -= take
			left -= take
		}

		remaining := unbonds[:0]
		for _, u := range unbonds {
			if u.Amount > 0 {
				remaining = append(remaining, u)
			}
		}
		if len(remaining) == 0 {
			return tx.rw.Delete(UnbondKey(deleg, val), current)
		}
		return tx.write(UnbondKey(deleg, val), remaining, current)
	})
}

// Slash immediately reduces every bond of val effective at or after current,
// and every pending unbond from it, by fraction. The predicates of the
// slashed accounts are not consulted.
func (e *Engine) Slash(val common.Address, fraction kmath.Fraction, current types.Epoch) error {
	height := e.store.BlockHeight()
	return e.executeProtocol("slash", current, func(tx *txn) error {
		if err := fraction.ValidateProportion(); err != nil {
			return errors.Wrapf(ErrInvalidFraction, "%v: %v", fraction, err)
		}
		if fraction.IsZero() {
			return errors.Wrapf(ErrInvalidFraction, "%v", fraction)
		}
		if err := tx.r.requireValidator(val); err != nil {
			return err
		}
		delegators, err := tx.r.Delegators(val)
		if err != nil {
			return err
		}

		before, err := tx.r.TotalBonded(val, current)
		if err != nil {
			return err
		}
		cut := func(a types.Amount) (types.Amount, error) {
			return a - fraction.MulUint64(a), nil
		}
		for _, deleg := range delegators {
			if err := tx.adjustFrom(BondKey(deleg, val), current, cut); err != nil {
				return err
			}
			if err := tx.slashUnbonds(deleg, val, fraction); err != nil {
				return err
			}
		}
		if err := tx.recomputeTotal(val, delegators); err != nil {
			return err
		}
		after, err := tx.r.TotalBonded(val, current)
		if err != nil {
			return err
		}

		slashes, err := tx.r.Slashes(val)
		if err != nil {
			return err
		}
		slashes = append(slashes, types.Slash{Epoch: current, Height: height, Fraction: fraction, Amount: before - after})
		if err := tx.write(SlashesKey(val), slashes, current); err != nil {
			return err
		}
		slashMeter.Mark(1)

		if tx.params.Slashing.Jails(fraction) {
			rec, err := tx.r.record(val, current)
			if err != nil {
				return err
			}
			if rec == nil {
				return errors.Wrapf(ErrValidatorNotFound, "%s at epoch %d", val.Hex(), current)
			}
			rec.JailPending = 1
			return tx.write(ValidatorStateKey(val), rec, current)
		}
		return nil
	})
}

func (tx *txn) slashUnbonds(deleg, val common.Address, fraction kmath.Fraction) error {
	unbonds, err := tx.r.Unbonds(deleg, val)
	if err != nil || len(unbonds) == 0 {
		return err
	}
	changed := false
	for i := range unbonds {
		if unbonds[i].IsMatured(tx.epoch) {
			continue
		}
		unbonds[i].Amount -= fraction.MulUint64(unbonds[i].Amount)
		changed = true
	}
	if !changed {
		return nil
	}
	return tx.write(UnbondKey(deleg, val), unbonds, tx.epoch)
}

// recomputeTotal rewrites the total stake of val from the current epoch
// onward as the sum of its bonds.
func (tx *txn) recomputeTotal(val common.Address, delegators []common.Address) error {
	seen := map[types.Epoch]struct{}{tx.epoch: {}}
	bonds := make([]*types.Bond, 0, len(delegators))
	for _, deleg := range delegators {
		bond, err := tx.r.BondsOf(deleg, val)
		if err != nil {
			return err
		}
		bonds = append(bonds, bond)
		for _, c := range bond.Changes {
			if c.Epoch > tx.epoch {
				seen[c.Epoch] = struct{}{}
			}
		}
	}
	totals, err := tx.rw.History(TotalBondedKey(val))
	if err != nil {
		return err
	}
	for _, v := range totals {
		if v.Epoch > tx.epoch {
			seen[v.Epoch] = struct{}{}
		}
	}
	epochs := make([]types.Epoch, 0, len(seen))
	for epoch := range seen {
		epochs = append(epochs, epoch)
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] < epochs[j] })

	for _, epoch := range epochs {
		var sum types.Amount
		for _, bond := range bonds {
			if sum, err = kmath.SafeAddUint64(sum, bond.AmountAt(epoch)); err != nil {
				return errors.Wrapf(err, "total bonded to %s at epoch %d", val.Hex(), epoch)
			}
		}
		if err := tx.write(TotalBondedKey(val), sum, epoch); err != nil {
			return err
		}
	}
	return nil
}

// Reactivate requests that a jailed or inactive validator be returned to
// candidacy under the manual reactivation policy.
func (e *Engine) Reactivate(val common.Address, current types.Epoch) error {
	return e.execute("reactivate", current, nil, func(tx *txn) error {
		if err := tx.r.requireValidator(val); err != nil {
			return err
		}
		rec, err := tx.r.record(val, current)
		if err != nil {
			return err
		}
		if rec == nil {
			return errors.Wrapf(ErrValidatorNotFound, "%s at epoch %d", val.Hex(), current)
		}
		if rec.Status != types.StatusJailed && rec.Status != types.StatusInactive {
			return errors.Errorf("validator %s is %s", val.Hex(), rec.Status)
		}
		rec.ReactivationRequested = 1
		return tx.write(ValidatorStateKey(val), rec, current)
	})
}
