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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFraction(t *testing.T) {

	testCases := []struct {
		f   string
		exp Fraction
		err bool
	}{
		{
			f:   "2/3",
			exp: Fraction{2, 3},
			err: false,
		},
		{
			f:   "15/5",
			exp: Fraction{15, 5},
			err: false,
		},
		{
			f:   " 1 / 2 ",
			exp: Fraction{1, 2},
			err: false,
		},
		{
			f:   "-1/2",
			exp: Fraction{},
			err: true,
		},
		{
			f:   "2/3/4",
			exp: Fraction{},
			err: true,
		},
		{
			f:   "123",
			exp: Fraction{},
			err: true,
		},
		{
			f:   "1a2/4",
			exp: Fraction{},
			err: true,
		},
		{
			f:   "1/3bc4",
			exp: Fraction{},
			err: true,
		},
	}

	for idx, tc := range testCases {
		output, err := ParseFraction(tc.f)
		if tc.err {
			assert.Error(t, err, idx)
		} else {
			assert.NoError(t, err, idx)
		}
		assert.Equal(t, tc.exp, output, idx)
	}

}

func TestFractionValidateProportion(t *testing.T) {
	assert.NoError(t, NewFraction(0, 1).ValidateProportion())
	assert.NoError(t, NewFraction(1, 1).ValidateProportion())
	assert.Equal(t, ErrZeroDenominator, NewFraction(1, 0).ValidateProportion())
	assert.Equal(t, ErrAboveOne, NewFraction(3, 2).ValidateProportion())
}

func TestFractionMulUint64(t *testing.T) {
	testCases := []struct {
		fr  Fraction
		v   uint64
		exp uint64
	}{
		{NewFraction(1, 2), 100, 50},
		{NewFraction(1, 3), 100, 33},
		{NewFraction(2, 3), 100, 66},
		{NewFraction(0, 1), 100, 0},
		{NewFraction(1, 1), math.MaxUint64, math.MaxUint64},
		{NewFraction(math.MaxUint64, math.MaxUint64), 7, 7},
	}
	for idx, tc := range testCases {
		assert.Equal(t, tc.exp, tc.fr.MulUint64(tc.v), idx)
	}
}

func TestFractionCompare(t *testing.T) {
	assert.Equal(t, 0, NewFraction(1, 2).Cmp(NewFraction(2, 4)))
	assert.Equal(t, -1, NewFraction(1, 3).Cmp(NewFraction(1, 2)))
	assert.Equal(t, 1, NewFraction(2, 3).Cmp(NewFraction(1, 2)))

	assert.True(t, NewFraction(1, 3).ShareAtLeast(34, 100))
	assert.False(t, NewFraction(1, 3).ShareAtLeast(33, 100))
	assert.True(t, Zero.ShareAtLeast(0, 0))
	assert.False(t, NewFraction(1, 10).ShareAtLeast(0, 0))
}

func TestFractionText(t *testing.T) {
	var fr Fraction
	require.NoError(t, fr.UnmarshalText([]byte("1/20")))
	assert.Equal(t, NewFraction(1, 20), fr)

	text, err := fr.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1/20", string(text))
}

func TestSafeMath(t *testing.T) {
	v, err := SafeAddUint64(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), v)

	_, err = SafeAddUint64(math.MaxUint64, 1)
	assert.Equal(t, ErrOverflowUint64, err)

	_, err = SafeSubUint64(1, 2)
	assert.Equal(t, ErrUnderflowUint64, err)

	v, err = SafeAddDelta(10, -4)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), v)

	_, err = SafeAddDelta(3, -4)
	assert.Equal(t, ErrUnderflowUint64, err)
}
