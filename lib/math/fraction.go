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
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

var (
	ErrZeroDenominator = errors.New("fraction denominator must be positive")
	ErrAboveOne        = errors.New("fraction must not exceed 1")
)

// Fraction defined in terms of a numerator divided by a denominator in uint64
// format. Fractions are persisted with RLP, which has no signed integers.
type Fraction struct {
	// The portion of the denominator in the faction, e.g. 2 in 2/3.
	Numerator uint64 `json:"numerator" yaml:"numerator"`
	// The value by which the numerator is divided, e.g. 3 in 2/3. Must be
	// positive.
	Denominator uint64 `json:"denominator" yaml:"denominator"`
}

// NewFraction returns n/d.
func NewFraction(n, d uint64) Fraction {
	return Fraction{Numerator: n, Denominator: d}
}

// Zero and One are the bounds of a proportion.
var (
	Zero = Fraction{Numerator: 0, Denominator: 1}
	One  = Fraction{Numerator: 1, Denominator: 1}
)

func (fr Fraction) String() string {
	return fmt.Sprintf("%d/%d", fr.Numerator, fr.Denominator)
}

// ParseFractions takes the string of a fraction as input i.e "2/3" and converts this
// to the equivalent fraction else returns an error. The format of the string must be
// one number followed by a slash (/) and then the other number.
func ParseFraction(f string) (Fraction, error) {
	o := strings.SplitN(f, "/", -1)
	if len(o) != 2 {
		return Fraction{}, errors.New("incorrect formating: should be like \"1/3\"")
	}
	numerator, err := strconv.ParseUint(strings.TrimSpace(o[0]), 10, 64)
	if err != nil {
		return Fraction{}, fmt.Errorf("incorrect formatting, err: %w", err)
	}

	denominator, err := strconv.ParseUint(strings.TrimSpace(o[1]), 10, 64)
	if err != nil {
		return Fraction{}, fmt.Errorf("incorrect formatting, err: %w", err)
	}
	return Fraction{Numerator: numerator, Denominator: denominator}, nil
}

// ValidateProportion checks that the fraction lies within [0, 1].
func (fr Fraction) ValidateProportion() error {
	if fr.Denominator == 0 {
		return ErrZeroDenominator
	}
	if fr.Numerator > fr.Denominator {
		return ErrAboveOne
	}
	return nil
}

// IsZero reports whether the fraction equals 0.
func (fr Fraction) IsZero() bool {
	return fr.Numerator == 0
}

// MulUint64 returns floor(v * fr). The product is computed in big integers so
// that v * Numerator cannot overflow.
func (fr Fraction) MulUint64(v uint64) uint64 {
	if fr.Denominator == 0 {
		return 0
	}
	p := new(big.Int).SetUint64(v)
	p.Mul(p, new(big.Int).SetUint64(fr.Numerator))
	p.Quo(p, new(big.Int).SetUint64(fr.Denominator))
	if !p.IsUint64() {
		panic(ErrOverflowUint64)
	}
	return p.Uint64()
}

// Cmp compares fr with other and returns -1, 0 or +1.
func (fr Fraction) Cmp(other Fraction) int {
	l := new(big.Int).Mul(new(big.Int).SetUint64(fr.Numerator), new(big.Int).SetUint64(other.Denominator))
	r := new(big.Int).Mul(new(big.Int).SetUint64(other.Numerator), new(big.Int).SetUint64(fr.Denominator))
	return l.Cmp(r)
}

// ShareAtLeast reports whether part/total >= fr. A zero total only satisfies
// the zero fraction.
func (fr Fraction) ShareAtLeast(part, total uint64) bool {
	if total == 0 {
		return fr.IsZero()
	}
	l := new(big.Int).Mul(new(big.Int).SetUint64(part), new(big.Int).SetUint64(fr.Denominator))
	r := new(big.Int).Mul(new(big.Int).SetUint64(total), new(big.Int).SetUint64(fr.Numerator))
	return l.Cmp(r) >= 0
}

// MarshalText implements encoding.TextMarshaler.
func (fr Fraction) MarshalText() ([]byte, error) {
	return []byte(fr.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, used by the JSON API.
func (fr *Fraction) UnmarshalText(text []byte) error {
	parsed, err := ParseFraction(string(text))
	if err != nil {
		return err
	}
	*fr = parsed
	return nil
}

// UnmarshalYAML accepts the "n/d" notation in config files.
func (fr *Fraction) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return fr.UnmarshalText([]byte(s))
}

// MarshalYAML writes the "n/d" notation.
func (fr Fraction) MarshalYAML() (interface{}, error) {
	return fr.String(), nil
}
