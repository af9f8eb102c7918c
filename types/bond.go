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
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	kmath "github.com/Pol-Polina/Anoma/lib/math"
)

// EpochAmount is an amount that takes effect from Epoch onward.
type EpochAmount struct {
	Epoch  Epoch  `json:"epoch"`
	Amount Amount `json:"amount"`
}

// Bond is the stake delegated by Delegator to Validator. Changes is the
// ordered list of cumulative amounts, each effective from its epoch until the
// next entry. Amounts below Floor are no longer retained.
type Bond struct {
	Delegator common.Address `json:"delegator"`
	Validator common.Address `json:"validator"`
	Changes   []EpochAmount  `json:"changes"`
	Floor     Epoch          `json:"floor"`
}

// AmountAt returns the bonded amount effective at epoch. Epochs below Floor
// read the amount in force at Floor.
func (b *Bond) AmountAt(epoch Epoch) Amount {
	if b == nil {
		return 0
	}
	i := sort.Search(len(b.Changes), func(i int) bool { return b.Changes[i].Epoch > epoch })
	if i == 0 {
		return 0
	}
	return b.Changes[i-1].Amount
}

// IsZero reports whether the bond holds no stake at any epoch.
func (b *Bond) IsZero() bool {
	if b == nil {
		return true
	}
	for _, c := range b.Changes {
		if c.Amount != 0 {
			return false
		}
	}
	return true
}

func (b *Bond) String() string {
	return fmt.Sprintf("Bond{%v->%v %v}", b.Delegator.Hex(), b.Validator.Hex(), b.Changes)
}

// Unbond is a pending withdrawal of bonded stake.
type Unbond struct {
	Amount Amount `json:"amount"`
	// Start is the epoch the unbond was requested at.
	Start Epoch `json:"start"`
	// Withdrawable is the epoch from which the amount stops counting towards
	// voting power and may be withdrawn.
	Withdrawable Epoch `json:"withdrawable"`
}

// IsMatured reports whether the unbond can be withdrawn at epoch.
func (u Unbond) IsMatured(epoch Epoch) bool {
	return u.Withdrawable <= epoch
}

// Unbonds is the list of pending unbonds of one delegation, ordered by
// request epoch.
type Unbonds []Unbond

// Total sums the amounts of all entries.
func (us Unbonds) Total() (Amount, error) {
	var (
		total Amount
		err   error
	)
	for _, u := range us {
		if total, err = kmath.SafeAddUint64(total, u.Amount); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Slash records a penalty applied to a validator.
type Slash struct {
	Epoch    Epoch          `json:"epoch"`
	Height   BlockHeight    `json:"height"`
	Fraction kmath.Fraction `json:"fraction"`
	Amount   Amount         `json:"amount"`
}
