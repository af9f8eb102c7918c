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

// Package pos implements proof-of-stake accounting on top of the versioned
// store: validators, bonds, unbonds, slashes and the voting power derived
// from them.
package pos

import (
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"

	"github.com/Pol-Polina/Anoma/kai/storage"
	"github.com/Pol-Polina/Anoma/types"
)

// latest reads the newest version of non-epoched records.
const latest = types.Epoch(math.MaxUint64)

// ReadOnly is the read capability handed to transactions and predicates.
type ReadOnly interface {
	Params() (Params, error)
	// TotalVotingPower sums the voting power of the active set at epoch.
	TotalVotingPower(epoch types.Epoch) (types.VotingPower, error)
	ValidatorState(addr common.Address, epoch types.Epoch) (*types.Validator, error)
	BondsOf(deleg, val common.Address) (*types.Bond, error)
	// BondAt returns the amount deleg has bonded to val effective at epoch.
	BondAt(deleg, val common.Address, epoch types.Epoch) (types.Amount, error)
	// ActiveValidators returns the active set at epoch by descending voting
	// power, ties broken by ascending address.
	ActiveValidators(epoch types.Epoch) ([]common.Address, error)
	ValidatorSet(epoch types.Epoch) (*types.ValidatorSet, error)
	VotingPower(addr common.Address, epoch types.Epoch) (types.VotingPower, error)
	Unbonds(deleg, val common.Address) (types.Unbonds, error)
	Slashes(val common.Address) ([]types.Slash, error)
	Validators() ([]common.Address, error)
	Delegators(val common.Address) ([]common.Address, error)
}

// Reader implements ReadOnly over any store view.
type Reader struct {
	store storage.Reader
}

var _ ReadOnly = (*Reader)(nil)

// NewReader returns a Reader over r.
func NewReader(r storage.Reader) *Reader {
	return &Reader{store: r}
}

func readAmount(r storage.Reader, key storage.Key, epoch types.Epoch) (types.Amount, error) {
	bz, err := r.Read(key, epoch)
	if err != nil || bz == nil {
		return 0, err
	}
	var amount types.Amount
	if err := types.Decode(bz, &amount); err != nil {
		return 0, errors.Wrapf(err, "decode %s", key)
	}
	return amount, nil
}

func readValue(r storage.Reader, key storage.Key, epoch types.Epoch, val interface{}) (bool, error) {
	bz, err := r.Read(key, epoch)
	if err != nil || bz == nil {
		return false, err
	}
	if err := types.Decode(bz, val); err != nil {
		return false, errors.Wrapf(err, "decode %s", key)
	}
	return true, nil
}

// readAddresses collects the address segments ending the keys under prefix.
func readAddresses(r storage.Reader, prefix storage.Key, epoch types.Epoch) ([]common.Address, error) {
	it := r.IterPrefix(prefix.Push(""), epoch)
	defer it.Release()

	var addrs []common.Address
	for it.Next() {
		addr, ok := storage.ParseAddressSegment(it.Key().Last())
		if !ok {
			return nil, errors.Errorf("malformed index key %s", it.Key())
		}
		addrs = append(addrs, addr)
	}
	return addrs, it.Error()
}

func (r *Reader) Params() (Params, error) {
	var params Params
	ok, err := readValue(r.store, ParamsKey, latest, &params)
	if err != nil {
		return params, err
	}
	if !ok {
		return params, ErrNoParams
	}
	return params, nil
}

// IsValidator reports whether addr is registered.
func (r *Reader) IsValidator(addr common.Address) (bool, error) {
	return r.store.Has(ValidatorIndexKey(addr), latest)
}

func (r *Reader) requireValidator(addr common.Address) error {
	ok, err := r.IsValidator(addr)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrap(ErrValidatorNotFound, addr.Hex())
	}
	return nil
}

// record returns the status record of val effective at epoch, nil when the
// validator did not exist yet.
func (r *Reader) record(val common.Address, epoch types.Epoch) (*types.ValidatorRecord, error) {
	rec := new(types.ValidatorRecord)
	ok, err := readValue(r.store, ValidatorStateKey(val), epoch, rec)
	if err != nil || !ok {
		return nil, err
	}
	return rec, nil
}

// TotalBonded returns the stake bonded to val at epoch.
func (r *Reader) TotalBonded(val common.Address, epoch types.Epoch) (types.Amount, error) {
	return readAmount(r.store, TotalBondedKey(val), epoch)
}

func (r *Reader) ValidatorState(addr common.Address, epoch types.Epoch) (*types.Validator, error) {
	if err := r.requireValidator(addr); err != nil {
		return nil, err
	}
	rec, err := r.record(addr, epoch)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.Wrapf(ErrValidatorNotFound, "%s at epoch %d", addr.Hex(), epoch)
	}
	params, err := r.Params()
	if err != nil {
		return nil, err
	}
	stake, err := r.TotalBonded(addr, epoch)
	if err != nil {
		return nil, err
	}
	key, err := r.store.Read(ConsensusKeyKey(addr), epoch)
	if err != nil {
		return nil, err
	}
	return &types.Validator{
		Address:      addr,
		ConsensusKey: ed25519.PublicKey(key),
		Status:       rec.Status,
		Stake:        stake,
		VotingPower:  powerOf(params, rec.Status, stake),
		Epoch:        epoch,
	}, nil
}

// powerOf is the voting power of a validator in status holding stake.
// Jailed and inactive validators hold none.
func powerOf(params Params, status types.ValidatorStatus, stake types.Amount) types.VotingPower {
	switch status {
	case types.StatusActive, types.StatusCandidate:
		return params.VotingPower(stake)
	default:
		return 0
	}
}

func (r *Reader) VotingPower(addr common.Address, epoch types.Epoch) (types.VotingPower, error) {
	val, err := r.ValidatorState(addr, epoch)
	if err != nil {
		return 0, err
	}
	return val.VotingPower, nil
}

func (r *Reader) BondsOf(deleg, val common.Address) (*types.Bond, error) {
	hist, err := r.store.History(BondKey(deleg, val))
	if err != nil {
		return nil, err
	}
	bond := &types.Bond{Delegator: deleg, Validator: val, Floor: r.store.PrunedFloor()}
	for _, v := range hist {
		var amount types.Amount
		if !v.IsTombstone() {
			if err := types.Decode(v.Value, &amount); err != nil {
				return nil, errors.Wrapf(err, "decode bond %s", BondKey(deleg, val))
			}
		}
		bond.Changes = append(bond.Changes, types.EpochAmount{Epoch: v.Epoch, Amount: amount})
	}
	return bond, nil
}

func (r *Reader) BondAt(deleg, val common.Address, epoch types.Epoch) (types.Amount, error) {
	return readAmount(r.store, BondKey(deleg, val), epoch)
}

func (r *Reader) Unbonds(deleg, val common.Address) (types.Unbonds, error) {
	var unbonds types.Unbonds
	if _, err := readValue(r.store, UnbondKey(deleg, val), latest, &unbonds); err != nil {
		return nil, err
	}
	return unbonds, nil
}

func (r *Reader) Slashes(val common.Address) ([]types.Slash, error) {
	var slashes []types.Slash
	if _, err := readValue(r.store, SlashesKey(val), latest, &slashes); err != nil {
		return nil, err
	}
	return slashes, nil
}

// Validators returns every registered validator in address order.
func (r *Reader) Validators() ([]common.Address, error) {
	return readAddresses(r.store, ValidatorsPrefix, latest)
}

// Delegators returns the accounts that ever bonded to val, in address order.
func (r *Reader) Delegators(val common.Address) ([]common.Address, error) {
	return readAddresses(r.store, DelegatorsPrefix(val), latest)
}

// storedValidatorSet returns the active membership fixed at epoch.
func (r *Reader) storedValidatorSet(epoch types.Epoch) ([]common.Address, error) {
	var members []common.Address
	ok, err := readValue(r.store, ValidatorSetKey(epoch), epoch, &members)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoValidatorSetForEpoch{Epoch: epoch}
	}
	return members, nil
}

// activeMembers returns the active membership at epoch, derived from the
// validator statuses when no set was fixed for the epoch.
func (r *Reader) activeMembers(epoch types.Epoch) ([]common.Address, error) {
	members, err := r.storedValidatorSet(epoch)
	if _, missing := err.(ErrNoValidatorSetForEpoch); !missing {
		return members, err
	}
	all, err := r.Validators()
	if err != nil {
		return nil, err
	}
	members = members[:0]
	for _, addr := range all {
		rec, err := r.record(addr, epoch)
		if err != nil {
			return nil, err
		}
		if rec != nil && rec.Status == types.StatusActive {
			members = append(members, addr)
		}
	}
	return members, nil
}

func (r *Reader) ValidatorSet(epoch types.Epoch) (*types.ValidatorSet, error) {
	members, err := r.activeMembers(epoch)
	if err != nil {
		return nil, err
	}
	vals := make([]*types.Validator, 0, len(members))
	for _, addr := range members {
		val, err := r.ValidatorState(addr, epoch)
		if err != nil {
			return nil, err
		}
		vals = append(vals, val)
	}
	return types.NewValidatorSet(epoch, vals)
}

func (r *Reader) ActiveValidators(epoch types.Epoch) ([]common.Address, error) {
	set, err := r.ValidatorSet(epoch)
	if err != nil {
		return nil, err
	}
	return set.Addresses(), nil
}

func (r *Reader) TotalVotingPower(epoch types.Epoch) (types.VotingPower, error) {
	set, err := r.ValidatorSet(epoch)
	if err != nil {
		return 0, err
	}
	return set.TotalVotingPower(), nil
}
