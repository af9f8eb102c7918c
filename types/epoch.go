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
	"strconv"
)

// Epoch is the unit of time over which validator sets and voting power are
// held fixed.
type Epoch uint64

// BlockHeight is the height of a block, starting at the genesis height.
type BlockHeight uint64

// Amount is a quantity of the staking token.
type Amount = uint64

// VotingPower is the stake derived weight of a validator.
type VotingPower = uint64

// epochKeyWidth keeps epoch key segments sortable as strings.
const epochKeyWidth = 20

// Add returns e + n.
func (e Epoch) Add(n uint64) Epoch {
	return e + Epoch(n)
}

// KeySegment renders the epoch as a fixed width decimal so that lexicographic
// order of storage keys matches numeric order.
func (e Epoch) KeySegment() string {
	return fmt.Sprintf("%0*d", epochKeyWidth, uint64(e))
}

// ParseEpochSegment is the inverse of KeySegment.
func ParseEpochSegment(s string) (Epoch, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Epoch(v), nil
}

func (e Epoch) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

func (h BlockHeight) String() string {
	return strconv.FormatUint(uint64(h), 10)
}
