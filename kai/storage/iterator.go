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

	"github.com/pkg/errors"

	"github.com/Pol-Polina/Anoma/kai/kaidb"
	"github.com/Pol-Polina/Anoma/types"
)

// Iterator walks the keys under a prefix that are visible at one epoch.
// It is lazy: nothing is read before the first Next. It holds no lock
// between calls and must be released once abandoned.
type Iterator interface {
	// Next moves to the next visible key. It returns false when exhausted or
	// on error.
	Next() bool
	Key() Key
	Value() []byte
	Error() error
	// Reset rewinds the iterator to the first key.
	Reset()
	Release()
}

// historyIterator walks key histories in ascending key order.
type historyIterator interface {
	Next() bool
	Key() Key
	History() History
	Error() error
	Release()
}

// backendIterator decodes committed histories from the backend.
type backendIterator struct {
	it   kaidb.Iterator
	key  Key
	hist History
	err  error
}

func newBackendIterator(db kaidb.Iteratee, prefix Key) *backendIterator {
	return &backendIterator{it: db.NewIterator(historyKey(prefix), nil)}
}

func (bi *backendIterator) Next() bool {
	if bi.err != nil {
		return false
	}
	if !bi.it.Next() {
		bi.err = bi.it.Error()
		return false
	}
	bi.key = Key(bi.it.Key()[len(historyPrefix):])
	bi.hist = nil
	if err := types.Decode(bi.it.Value(), &bi.hist); err != nil {
		bi.err = errors.Wrapf(err, "decode history of %s", bi.key)
		return false
	}
	return true
}

func (bi *backendIterator) Key() Key         { return bi.key }
func (bi *backendIterator) History() History { return bi.hist }
func (bi *backendIterator) Error() error     { return bi.err }
func (bi *backendIterator) Release()         { bi.it.Release() }

// sliceIterator walks a sorted snapshot of staged histories.
type sliceIterator struct {
	keys  []Key
	hists []History
	pos   int
}

func newSliceIterator(staged map[Key]History, prefix Key) *sliceIterator {
	si := &sliceIterator{pos: -1}
	for key := range staged {
		if key.HasPrefix(prefix) {
			si.keys = append(si.keys, key)
		}
	}
	sort.Slice(si.keys, func(i, j int) bool { return si.keys[i] < si.keys[j] })
	for _, key := range si.keys {
		si.hists = append(si.hists, staged[key])
	}
	return si
}

func (si *sliceIterator) Next() bool {
	if si.pos < len(si.keys) {
		si.pos++
	}
	return si.pos < len(si.keys)
}

func (si *sliceIterator) Key() Key         { return si.keys[si.pos] }
func (si *sliceIterator) History() History { return si.hists[si.pos] }
func (si *sliceIterator) Error() error     { return nil }
func (si *sliceIterator) Release()         {}

// mergeIterator merges two sorted history iterators. On equal keys the top
// iterator shadows the base.
type mergeIterator struct {
	base, top       historyIterator
	baseOk, topOk   bool
	advBase, advTop bool
	started         bool

	key  Key
	hist History
}

func newMergeIterator(base, top historyIterator) *mergeIterator {
	return &mergeIterator{base: base, top: top}
}

func (mi *mergeIterator) Next() bool {
	if !mi.started {
		mi.started = true
		mi.baseOk, mi.topOk = mi.base.Next(), mi.top.Next()
	} else {
		if mi.advBase {
			mi.baseOk = mi.base.Next()
		}
		if mi.advTop {
			mi.topOk = mi.top.Next()
		}
	}
	mi.advBase, mi.advTop = false, false

	switch {
	case !mi.baseOk && !mi.topOk:
		return false
	case !mi.topOk || (mi.baseOk && mi.base.Key() < mi.top.Key()):
		mi.key, mi.hist = mi.base.Key(), mi.base.History()
		mi.advBase = true
	case !mi.baseOk || mi.top.Key() < mi.base.Key():
		mi.key, mi.hist = mi.top.Key(), mi.top.History()
		mi.advTop = true
	default:
		mi.key, mi.hist = mi.top.Key(), mi.top.History()
		mi.advBase, mi.advTop = true, true
	}
	return true
}

func (mi *mergeIterator) Key() Key         { return mi.key }
func (mi *mergeIterator) History() History { return mi.hist }

func (mi *mergeIterator) Error() error {
	if err := mi.base.Error(); err != nil {
		return err
	}
	return mi.top.Error()
}

func (mi *mergeIterator) Release() {
	mi.base.Release()
	mi.top.Release()
}

// prefixIterator filters a history iterator down to the values visible at
// one epoch. The underlying iterator is opened lazily and rebuilt on Reset.
type prefixIterator struct {
	open  func() (historyIterator, error)
	epoch types.Epoch

	it    historyIterator
	err   error
	done  bool
	key   Key
	value []byte
}

func newPrefixIterator(epoch types.Epoch, open func() (historyIterator, error)) *prefixIterator {
	return &prefixIterator{open: open, epoch: epoch}
}

func (pi *prefixIterator) Next() bool {
	if pi.done || pi.err != nil {
		return false
	}
	if pi.it == nil {
		it, err := pi.open()
		if err != nil {
			pi.err = err
			return false
		}
		pi.it = it
	}
	for pi.it.Next() {
		if val := pi.it.History().ValueAt(pi.epoch); val != nil {
			pi.key, pi.value = pi.it.Key(), val
			return true
		}
	}
	pi.err = pi.it.Error()
	pi.done = true
	pi.key, pi.value = "", nil
	return false
}

func (pi *prefixIterator) Key() Key      { return pi.key }
func (pi *prefixIterator) Value() []byte { return pi.value }
func (pi *prefixIterator) Error() error  { return pi.err }

func (pi *prefixIterator) Reset() {
	pi.Release()
	pi.err, pi.done = nil, false
}

func (pi *prefixIterator) Release() {
	if pi.it != nil {
		pi.it.Release()
		pi.it = nil
	}
	pi.done = true
	pi.key, pi.value = "", nil
}

// IterPrefix returns the committed and block staged keys under prefix visible
// at epoch.
func (s *Store) IterPrefix(prefix Key, epoch types.Epoch) Iterator {
	return newPrefixIterator(epoch, func() (historyIterator, error) {
		return s.historyIterator(prefix, epoch)
	})
}

func (s *Store) historyIterator(prefix Key, epoch types.Epoch) (historyIterator, error) {
	if err := s.checkPruned(epoch); err != nil {
		return nil, err
	}
	s.mtx.RLock()
	var staged map[Key]History
	if s.block != nil {
		staged = s.block.staged
	}
	top := newSliceIterator(staged, prefix)
	s.mtx.RUnlock()
	return newMergeIterator(newBackendIterator(s.db, prefix), top), nil
}
