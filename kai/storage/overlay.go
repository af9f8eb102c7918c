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

	"github.com/Pol-Polina/Anoma/types"
)

// Change is the set of versions a transaction wrote to one key.
type Change struct {
	Key      Key
	Versions History
}

// Diff is the ordered list of keys changed by a transaction.
type Diff []Change

// Keys returns the changed keys in order.
func (d Diff) Keys() []Key {
	keys := make([]Key, 0, len(d))
	for _, c := range d {
		keys = append(keys, c.Key)
	}
	return keys
}

// Filter returns the changes whose key satisfies fn.
func (d Diff) Filter(fn func(Key) bool) Diff {
	var out Diff
	for _, c := range d {
		if fn(c.Key) {
			out = append(out, c)
		}
	}
	return out
}

// Overlay is a transaction scoped write buffer on top of the open block.
// Its writes are visible to its own reads, and reach the block only on Apply.
type Overlay struct {
	store *Store
	blk   *block

	writes  map[Key]History // full histories of touched keys
	changes map[Key]History // versions written by the overlay
	closed  bool
}

// Begin opens a transaction overlay on the open block.
func (s *Store) Begin() *Overlay {
	s.mtx.RLock()
	blk := s.block
	s.mtx.RUnlock()
	return &Overlay{
		store:   s,
		blk:     blk,
		writes:  make(map[Key]History),
		changes: make(map[Key]History),
	}
}

// Pre returns the state the overlay started from.
func (o *Overlay) Pre() Reader { return o.store }

func (o *Overlay) BlockEpoch() types.Epoch {
	if o.blk != nil {
		return o.blk.epoch
	}
	return o.store.BlockEpoch()
}

func (o *Overlay) history(key Key) (History, error) {
	if hist, ok := o.writes[key]; ok {
		return hist, nil
	}
	return o.store.history(key)
}

func (o *Overlay) Read(key Key, epoch types.Epoch) ([]byte, error) {
	if err := o.store.checkPruned(epoch); err != nil {
		return nil, err
	}
	hist, err := o.history(key)
	if err != nil {
		return nil, err
	}
	return hist.ValueAt(epoch), nil
}

func (o *Overlay) Has(key Key, epoch types.Epoch) (bool, error) {
	val, err := o.Read(key, epoch)
	return val != nil, err
}

func (o *Overlay) History(key Key) (History, error) {
	hist, err := o.history(key)
	if err != nil {
		return nil, err
	}
	return append(History(nil), hist...), nil
}

func (o *Overlay) PrunedFloor() types.Epoch { return o.store.PrunedFloor() }

func (o *Overlay) IterPrefix(prefix Key, epoch types.Epoch) Iterator {
	return newPrefixIterator(epoch, func() (historyIterator, error) {
		base, err := o.store.historyIterator(prefix, epoch)
		if err != nil {
			return nil, err
		}
		return newMergeIterator(base, newSliceIterator(o.writes, prefix)), nil
	})
}

func (o *Overlay) Write(key Key, value []byte, effective types.Epoch) error {
	return o.stage(key, Version{Epoch: effective, Value: value})
}

func (o *Overlay) Delete(key Key, effective types.Epoch) error {
	return o.stage(key, Version{Epoch: effective, Tombstone: 1})
}

func (o *Overlay) stage(key Key, v Version) error {
	if o.closed {
		return ErrOverlayClosed
	}
	if o.blk == nil {
		return errors.Wrapf(ErrNoOpenBlock, "write %s", key)
	}
	if v.Epoch < o.blk.epoch {
		return errors.Wrapf(ErrStaleWrite, "write %s at epoch %d, block epoch is %d", key, v.Epoch, o.blk.epoch)
	}
	hist, err := o.history(key)
	if err != nil {
		return err
	}
	o.writes[key] = hist.With(v)
	o.changes[key] = o.changes[key].With(v)
	return nil
}

// Diff returns the changes buffered by the overlay, ordered by key.
func (o *Overlay) Diff() Diff {
	diff := make(Diff, 0, len(o.changes))
	for key, versions := range o.changes {
		diff = append(diff, Change{Key: key, Versions: versions})
	}
	sort.Slice(diff, func(i, j int) bool { return diff[i].Key < diff[j].Key })
	return diff
}

// Apply merges the overlay into the block staging area. The overlay cannot
// be used afterwards.
func (o *Overlay) Apply() error {
	if o.closed {
		return ErrOverlayClosed
	}
	s := o.store
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.block == nil || s.block != o.blk {
		return errors.Wrap(ErrNoOpenBlock, "apply overlay")
	}
	merged := make(map[Key]History, len(o.changes))
	for key, versions := range o.changes {
		hist, ok := s.block.staged[key]
		if !ok {
			var err error
			if hist, err = s.committedHistory(key); err != nil {
				return err
			}
		}
		for _, v := range versions {
			hist = hist.With(v)
		}
		merged[key] = hist
	}
	for key, hist := range merged {
		s.block.staged[key] = hist
	}
	writeMeter.Mark(int64(len(o.changes)))
	o.close()
	return nil
}

// Discard drops the overlay.
func (o *Overlay) Discard() {
	o.close()
}

func (o *Overlay) close() {
	o.closed = true
	o.writes = make(map[Key]History)
	o.changes = make(map[Key]History)
}
