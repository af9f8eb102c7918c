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

// Package epoch converts block heights into epochs.
package epoch

import (
	"github.com/pkg/errors"

	"github.com/Pol-Polina/Anoma/types"
)

// Tracker maps heights to epochs for a fixed epoch duration.
type Tracker struct {
	// Duration is the number of blocks per epoch.
	Duration uint64
	// GenesisHeight is the first height of epoch 0.
	GenesisHeight types.BlockHeight
}

// NewTracker returns a tracker, failing on a zero duration.
func NewTracker(duration uint64, genesis types.BlockHeight) (Tracker, error) {
	if duration == 0 {
		return Tracker{}, errors.New("epoch duration must be positive")
	}
	return Tracker{Duration: duration, GenesisHeight: genesis}, nil
}

// EpochOf returns the epoch containing height. Heights before genesis belong
// to epoch 0.
func (t Tracker) EpochOf(height types.BlockHeight) types.Epoch {
	if height <= t.GenesisHeight || t.Duration == 0 {
		return 0
	}
	return types.Epoch(uint64(height-t.GenesisHeight) / t.Duration)
}

// FirstHeight returns the first height of epoch e.
func (t Tracker) FirstHeight(e types.Epoch) types.BlockHeight {
	return t.GenesisHeight + types.BlockHeight(uint64(e)*t.Duration)
}

// IsBoundary reports whether height is the first block of a new epoch.
func (t Tracker) IsBoundary(height types.BlockHeight) bool {
	if height <= t.GenesisHeight || t.Duration == 0 {
		return false
	}
	return uint64(height-t.GenesisHeight)%t.Duration == 0
}
