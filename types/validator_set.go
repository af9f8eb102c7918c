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

package types

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// MaxTotalVotingPower - the maximum allowed total voting power.
const MaxTotalVotingPower = uint64(math.MaxUint64) / 8

// ValidatorSet represent the set of active *Validator at a given epoch.
// Validators are kept in consensus order: descending voting power, ties
// broken by ascending address, so the order is deterministic for all
// nodes reading the same store state.
// NOTE: Not goroutine-safe.
type ValidatorSet struct {
	Validators []*Validator `json:"validators"`
	Epoch      Epoch        `json:"epoch"`

	// cached (unexported)
	totalVotingPower uint64
}

// NewValidatorSet initializes a ValidatorSet by copying over the values from
// `vals`. The addresses of validators in `vals` must be unique otherwise an
// error is returned.
func NewValidatorSet(epoch Epoch, vals []*Validator) (*ValidatorSet, error) {
	vs := &ValidatorSet{Epoch: epoch}
	seen := make(map[common.Address]struct{}, len(vals))
	for _, val := range vals {
		if _, ok := seen[val.Address]; ok {
			return nil, fmt.Errorf("duplicate validator %s", val.Address.Hex())
		}
		seen[val.Address] = struct{}{}
		vs.Validators = append(vs.Validators, val.Copy())
	}
	sort.Sort(ValidatorsByVotingPower(vs.Validators))
	if err := vs.updateTotalVotingPower(); err != nil {
		return nil, err
	}
	return vs, nil
}

// IsNilOrEmpty validator sets are invalid.
func (vs *ValidatorSet) IsNilOrEmpty() bool {
	return vs == nil || len(vs.Validators) == 0
}

// Size returns the number of validators.
func (vs *ValidatorSet) Size() int {
	if vs == nil {
		return 0
	}
	return len(vs.Validators)
}

// Addresses returns the validator addresses in consensus order.
func (vs *ValidatorSet) Addresses() []common.Address {
	if vs == nil {
		return nil
	}
	addrs := make([]common.Address, 0, len(vs.Validators))
	for _, val := range vs.Validators {
		addrs = append(addrs, val.Address)
	}
	return addrs
}

// HasAddress returns true if address given is in the validator set, false -
// otherwise.
func (vs *ValidatorSet) HasAddress(address common.Address) bool {
	_, val := vs.GetByAddress(address)
	return val != nil
}

// GetByAddress returns an index of the validator with address and validator
// itself if found. Otherwise, -1 and nil are returned.
func (vs *ValidatorSet) GetByAddress(address common.Address) (index int, val *Validator) {
	if vs == nil {
		return -1, nil
	}
	for idx, val := range vs.Validators {
		if val.Address == address {
			return idx, val.Copy()
		}
	}
	return -1, nil
}

func (vs *ValidatorSet) updateTotalVotingPower() error {
	sum := uint64(0)
	for _, val := range vs.Validators {
		sum += val.VotingPower
		if sum > MaxTotalVotingPower {
			return errors.Errorf("total voting power should be guarded to not exceed %v; got: %v", MaxTotalVotingPower, sum)
		}
	}
	vs.totalVotingPower = sum
	return nil
}

// TotalVotingPower returns the sum of the voting powers of all validators.
func (vs *ValidatorSet) TotalVotingPower() uint64 {
	if vs == nil {
		return 0
	}
	return vs.totalVotingPower
}

// Iterate will run the given function over the set.
func (vs *ValidatorSet) Iterate(fn func(index int, val *Validator) bool) {
	for i, val := range vs.Validators {
		stop := fn(i, val.Copy())
		if stop {
			break
		}
	}
}

// String returns a string representation of ValidatorSet.
func (vs *ValidatorSet) String() string {
	return vs.StringIndented("")
}

// StringIndented returns an intended String.
func (vs *ValidatorSet) StringIndented(indent string) string {
	if vs == nil {
		return "nil-ValidatorSet"
	}
	var valStrings []string
	vs.Iterate(func(index int, val *Validator) bool {
		valStrings = append(valStrings, val.String())
		return false
	})
	return fmt.Sprintf(`ValidatorSet{
%s  Epoch:      %v
%s  Validators:
%s    %v
%s}`,
		indent, vs.Epoch,
		indent,
		indent, strings.Join(valStrings, "\n"+indent+"    "),
		indent)
}

// ValidatorsByVotingPower implements sort.Interface for []*Validator based on
// the VotingPower and Address fields.
type ValidatorsByVotingPower []*Validator

func (valz ValidatorsByVotingPower) Len() int { return len(valz) }

func (valz ValidatorsByVotingPower) Less(i, j int) bool {
	if valz[i].VotingPower == valz[j].VotingPower {
		return bytes.Compare(valz[i].Address[:], valz[j].Address[:]) < 0
	}
	return valz[i].VotingPower > valz[j].VotingPower
}

func (valz ValidatorsByVotingPower) Swap(i, j int) {
	valz[i], valz[j] = valz[j], valz[i]
}

// ValidatorsByAddress implements the sort of validators by address.
type ValidatorsByAddress []*Validator

func (vals ValidatorsByAddress) Len() int {
	return len(vals)
}

func (vals ValidatorsByAddress) Less(i, j int) bool {
	return bytes.Compare(vals[i].Address[:], vals[j].Address[:]) == -1
}

func (vals ValidatorsByAddress) Swap(i, j int) {
	vals[i], vals[j] = vals[j], vals[i]
}
