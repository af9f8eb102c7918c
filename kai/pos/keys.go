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
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Pol-Polina/Anoma/kai/storage"
	"github.com/Pol-Polina/Anoma/types"
)

// Address is the internal account owning the global PoS keys.
var Address = common.BytesToAddress([]byte("pos"))

// Storage layout. Per account records live under "#<address>/pos", global
// structures under "pos".
const (
	posSegment          = "pos"
	paramsSegment       = "params"
	validatorsSegment   = "validators"
	validatorSetSegment = "validator_set"
	bondSegment         = "bond"
	unbondSegment       = "unbond"
	validatorSegment    = "validator"
	delegatorSegment    = "delegator"
	stateSegment        = "state"
	consensusKeySegment = "consensus_key"
	totalBondedSegment  = "total_bonded"
	slashesSegment      = "slashes"
)

var (
	// ParamsKey holds the PoS parameters.
	ParamsKey = storage.NewKey(posSegment, paramsSegment)
	// ValidatorsPrefix indexes every registered validator.
	ValidatorsPrefix = storage.NewKey(posSegment, validatorsSegment)
	// ValidatorSetPrefix holds the active set fixed at each boundary.
	ValidatorSetPrefix = storage.NewKey(posSegment, validatorSetSegment)
)

// ValidatorIndexKey marks val as registered.
func ValidatorIndexKey(val common.Address) storage.Key {
	return ValidatorsPrefix.PushAddress(val)
}

// ValidatorSetKey holds the active set of epoch.
func ValidatorSetKey(epoch types.Epoch) storage.Key {
	return ValidatorSetPrefix.Push(epoch.KeySegment())
}

// BondKey holds the epoched cumulative bond of deleg towards val.
func BondKey(deleg, val common.Address) storage.Key {
	return storage.AddressKey(deleg, posSegment, bondSegment).PushAddress(val)
}

// UnbondKey holds the pending unbonds of deleg from val.
func UnbondKey(deleg, val common.Address) storage.Key {
	return storage.AddressKey(deleg, posSegment, unbondSegment).PushAddress(val)
}

func validatorKey(val common.Address, segment string) storage.Key {
	return storage.AddressKey(val, posSegment, validatorSegment, segment)
}

// ValidatorStateKey holds the epoched status record of val.
func ValidatorStateKey(val common.Address) storage.Key {
	return validatorKey(val, stateSegment)
}

// ConsensusKeyKey holds the epoched consensus key of val.
func ConsensusKeyKey(val common.Address) storage.Key {
	return validatorKey(val, consensusKeySegment)
}

// TotalBondedKey holds the epoched total stake bonded to val.
func TotalBondedKey(val common.Address) storage.Key {
	return validatorKey(val, totalBondedSegment)
}

// SlashesKey holds the slashes applied to val.
func SlashesKey(val common.Address) storage.Key {
	return validatorKey(val, slashesSegment)
}

// DelegatorsPrefix indexes the delegators of val.
func DelegatorsPrefix(val common.Address) storage.Key {
	return storage.AddressKey(val, posSegment, delegatorSegment)
}

// DelegatorIndexKey marks deleg as a delegator of val.
func DelegatorIndexKey(val, deleg common.Address) storage.Key {
	return DelegatorsPrefix(val).PushAddress(deleg)
}

func sortAddresses(addrs []common.Address) []common.Address {
	sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })
	return addrs
}
