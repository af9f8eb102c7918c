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
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Encode serializes a storage value.
func Encode(val interface{}) ([]byte, error) {
	bz, err := rlp.EncodeToBytes(val)
	if err != nil {
		return nil, errors.Wrap(err, "rlp encode")
	}
	return bz, nil
}

// MustEncode is Encode for values whose encoding cannot fail.
func MustEncode(val interface{}) []byte {
	bz, err := Encode(val)
	if err != nil {
		panic(err)
	}
	return bz
}

// Decode deserializes a storage value into val.
func Decode(bz []byte, val interface{}) error {
	if err := rlp.DecodeBytes(bz, val); err != nil {
		return errors.Wrap(err, "rlp decode")
	}
	return nil
}
