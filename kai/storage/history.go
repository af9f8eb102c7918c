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
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Pol-Polina/Anoma/types"
)

// Version is one entry of a key history: a value or a tombstone effective
// from Epoch until the next version.
type Version struct {
	Epoch     types.Epoch
	Tombstone uint8
	Value     []byte
}

// IsTombstone reports whether the version deletes the key.
func (v Version) IsTombstone() bool { return v.Tombstone != 0 }

// History is the ordered list of versions of a key, ascending by epoch with
// at most one version per epoch.
type History []Version

// search returns the index of the first version with epoch > e.
func (h History) search(e types.Epoch) int {
	return sort.Search(len(h), func(i int) bool { return h[i].Epoch > e })
}

// Find returns the latest version effective at epoch.
func (h History) Find(epoch types.Epoch) (Version, bool) {
	i := h.search(epoch)
	if i == 0 {
		return Version{}, false
	}
	return h[i-1], true
}

// ValueAt returns the value effective at epoch, nil for missing keys and
// tombstones.
func (h History) ValueAt(epoch types.Epoch) []byte {
	v, ok := h.Find(epoch)
	if !ok || v.IsTombstone() {
		return nil
	}
	if v.Value == nil {
		return []byte{}
	}
	return common.CopyBytes(v.Value)
}

// With returns a copy of h with v inserted, replacing any version at the same
// epoch. h itself is never modified.
func (h History) With(v Version) History {
	v.Value = common.CopyBytes(v.Value)
	i := h.search(v.Epoch)
	out := make(History, 0, len(h)+1)
	if i > 0 && h[i-1].Epoch == v.Epoch {
		out = append(out, h[:i-1]...)
	} else {
		out = append(out, h[:i]...)
	}
	out = append(out, v)
	return append(out, h[i:]...)
}

// Prune drops versions that no read at or above floor can observe. The
// version effective at floor is kept unless it is a tombstone.
func (h History) Prune(floor types.Epoch) History {
	i := h.search(floor)
	if i == 0 {
		return h
	}
	base := i - 1
	if h[base].IsTombstone() {
		base = i
	}
	if base == 0 {
		return h
	}
	return append(History(nil), h[base:]...)
}

// Latest returns the version with the highest epoch.
func (h History) Latest() (Version, bool) {
	if len(h) == 0 {
		return Version{}, false
	}
	return h[len(h)-1], true
}
