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

package storage

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Pol-Polina/Anoma/types"
)

// The fields below define the low level database schema prefixing.
var (
	// headKey tracks the latest committed block.
	headKey = []byte("m:head")

	historyPrefix   = []byte("v:") // historyPrefix + key -> rlp(History)
	blockHashPrefix = []byte("h:") // blockHashPrefix + height (uint64 big endian) -> hash
)

// Head describes the last committed block.
type Head struct {
	Height      types.BlockHeight `json:"height"`
	Epoch       types.Epoch       `json:"epoch"`
	Hash        common.Hash       `json:"hash"`
	PrunedFloor types.Epoch       `json:"pruned_floor"`
	ChainID     string            `json:"chain_id"`
}

func historyKey(key Key) []byte {
	return append(append([]byte(nil), historyPrefix...), key...)
}

func blockHashKey(height types.BlockHeight) []byte {
	return append(append([]byte(nil), blockHashPrefix...), encodeBlockHeight(height)...)
}

// encodeBlockHeight encodes a block height as big endian uint64
func encodeBlockHeight(height types.BlockHeight) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, uint64(height))
	return enc
}
