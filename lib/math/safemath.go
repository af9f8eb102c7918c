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

package math

import (
	"errors"
	"math"
)

var ErrOverflowUint64 = errors.New("uint64 overflow")
var ErrUnderflowUint64 = errors.New("uint64 underflow")

// SafeAddUint64 adds two uint64 integers.
// If there is an overflow it returns an error
func SafeAddUint64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflowUint64
	}
	return a + b, nil
}

// SafeSubUint64 subtracts b from a.
// If b is greater than a it returns an error
func SafeSubUint64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflowUint64
	}
	return a - b, nil
}

// SafeAddDelta applies a signed delta to a.
func SafeAddDelta(a uint64, delta int64) (uint64, error) {
	if delta >= 0 {
		return SafeAddUint64(a, uint64(delta))
	}
	if delta == math.MinInt64 {
		return SafeSubUint64(a, uint64(math.MaxInt64)+1)
	}
	return SafeSubUint64(a, uint64(-delta))
}
