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

// Package storage implements the epoch-versioned key-value store the PoS
// state is kept in. Every key holds an append-only list of versions, each
// effective from an epoch onward. Writes are staged per block and become
// durable on Commit.
package storage

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/Pol-Polina/Anoma/kai/kaidb"
	"github.com/Pol-Polina/Anoma/lib/log"
	"github.com/Pol-Polina/Anoma/types"
)

const defaultCacheSize = 1024

// Options configures a Store.
type Options struct {
	// RetainEpochs is the number of epochs of versions kept behind the
	// committed epoch. Zero keeps every version.
	RetainEpochs uint64
	// CacheSize is the number of decoded key histories kept in memory.
	CacheSize int
	// ChainID is recorded with every committed block.
	ChainID string
}

// Reader is the read-only view of the store.
type Reader interface {
	// Read returns the value of key effective at epoch. Missing keys and
	// tombstones read as nil.
	Read(key Key, epoch types.Epoch) ([]byte, error)
	Has(key Key, epoch types.Epoch) (bool, error)
	// History returns every retained version of key. Versions effective
	// below PrunedFloor only carry the value in force at the floor.
	History(key Key) (History, error)
	// PrunedFloor is the lowest epoch that can still be read.
	PrunedFloor() types.Epoch
	// IterPrefix returns the keys under prefix visible at epoch, in
	// lexicographic order.
	IterPrefix(prefix Key, epoch types.Epoch) Iterator
}

// Writer stages versions.
type Writer interface {
	Write(key Key, value []byte, effective types.Epoch) error
	Delete(key Key, effective types.Epoch) error
}

// ReadWriter is the read-write view of the store.
type ReadWriter interface {
	Reader
	Writer
	// BlockEpoch is the epoch of the open block. Writes below it are stale.
	BlockEpoch() types.Epoch
}

type block struct {
	height types.BlockHeight
	epoch  types.Epoch
	staged map[Key]History
}

// Store is a handle on a versioned store persisted in a kaidb backend.
// Several handles may be opened over distinct backends at once.
type Store struct {
	db     kaidb.Database
	opts   Options
	cache  *lru.Cache
	logger log.Logger

	mtx     sync.RWMutex
	head    Head
	hasHead bool
	block   *block

	committing int32
}

// NewStore opens a store over db, restoring the committed markers persisted
// by a previous handle.
func NewStore(db kaidb.Database, opts Options, logger log.Logger) (*Store, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	cache, err := lru.New(opts.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create history cache")
	}
	if logger == nil {
		logger = log.New("module", "storage")
	}
	s := &Store{
		db:     db,
		opts:   opts,
		cache:  cache,
		logger: logger,
	}
	head, ok, err := s.readHead()
	if err != nil {
		return nil, err
	}
	if ok {
		if opts.ChainID != "" && head.ChainID != "" && head.ChainID != opts.ChainID {
			return nil, errors.Errorf("store belongs to chain %q, not %q", head.ChainID, opts.ChainID)
		}
		s.head, s.hasHead = head, true
	} else {
		s.head.ChainID = opts.ChainID
	}
	logger.Info("Opened versioned store", "height", s.head.Height, "epoch", s.head.Epoch,
		"retain", opts.RetainEpochs, "chain", s.head.ChainID)
	return s, nil
}

func (s *Store) readHead() (Head, bool, error) {
	var head Head
	bz, err := s.db.Get(headKey)
	if err != nil {
		return head, false, errors.Wrap(err, "read store head")
	}
	if bz == nil {
		return head, false, nil
	}
	if err := types.Decode(bz, &head); err != nil {
		return head, false, errors.Wrap(err, "decode store head")
	}
	return head, true, nil
}

// Head returns the last committed block, and false before the first commit.
func (s *Store) Head() (Head, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.head, s.hasHead
}

// Height returns the committed height.
func (s *Store) Height() types.BlockHeight {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.head.Height
}

// Epoch returns the committed epoch.
func (s *Store) Epoch() types.Epoch {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.head.Epoch
}

// ChainID returns the chain the store belongs to.
func (s *Store) ChainID() string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.head.ChainID
}

// BlockEpoch returns the epoch of the open block, or the committed epoch
// outside a block.
func (s *Store) BlockEpoch() types.Epoch {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.block != nil {
		return s.block.epoch
	}
	return s.head.Epoch
}

// BlockHeight returns the height of the open block, or the committed height
// outside a block.
func (s *Store) BlockHeight() types.BlockHeight {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.block != nil {
		return s.block.height
	}
	return s.head.Height
}

// InBlock reports whether a block is open.
func (s *Store) InBlock() bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.block != nil
}

// BlockHash returns the hash committed at height.
func (s *Store) BlockHash(height types.BlockHeight) (common.Hash, error) {
	bz, err := s.db.Get(blockHashKey(height))
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "read block hash at %d", height)
	}
	if bz == nil {
		return common.Hash{}, errors.Errorf("no block committed at height %d", height)
	}
	return common.BytesToHash(bz), nil
}

// BeginBlock opens a block at height and epoch. Heights must grow and epochs
// must not go backwards.
func (s *Store) BeginBlock(height types.BlockHeight, epoch types.Epoch) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.block != nil {
		return errors.Wrapf(ErrBlockInProgress, "block %d is open", s.block.height)
	}
	if s.hasHead {
		if height <= s.head.Height {
			return errors.Wrapf(ErrCommitConflict, "height %d already committed, head is %d", height, s.head.Height)
		}
		if epoch < s.head.Epoch {
			return errors.Wrapf(ErrEpochRegression, "epoch %d below committed epoch %d", epoch, s.head.Epoch)
		}
	}
	s.block = &block{
		height: height,
		epoch:  epoch,
		staged: make(map[Key]History),
	}
	s.logger.Debug("Began block", "height", height, "epoch", epoch)
	return nil
}

// DiscardBlock drops every write staged in the open block.
func (s *Store) DiscardBlock() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.block == nil {
		return
	}
	s.logger.Info("Discarded block", "height", s.block.height, "keys", len(s.block.staged))
	discardCounter.Inc(1)
	s.block = nil
}

func (s *Store) PrunedFloor() types.Epoch {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.head.PrunedFloor
}

func (s *Store) checkPruned(epoch types.Epoch) error {
	if floor := s.PrunedFloor(); epoch < floor {
		return errors.Wrapf(ErrEpochPruned, "epoch %d below retention floor %d", epoch, floor)
	}
	return nil
}

// committedHistory returns the durable history of key.
func (s *Store) committedHistory(key Key) (History, error) {
	if cached, ok := s.cache.Get(key); ok {
		cacheHitMeter.Mark(1)
		return cached.(History), nil
	}
	cacheMissMeter.Mark(1)

	bz, err := s.db.Get(historyKey(key))
	if err != nil {
		return nil, errors.Wrapf(err, "read history of %s", key)
	}
	var hist History
	if bz != nil {
		if err := types.Decode(bz, &hist); err != nil {
			return nil, errors.Wrapf(err, "decode history of %s", key)
		}
	}
	s.cache.Add(key, hist)
	return hist, nil
}

// history returns the history of key as seen by the open block.
func (s *Store) history(key Key) (History, error) {
	s.mtx.RLock()
	if s.block != nil {
		if hist, ok := s.block.staged[key]; ok {
			s.mtx.RUnlock()
			return hist, nil
		}
	}
	s.mtx.RUnlock()
	return s.committedHistory(key)
}

func (s *Store) Read(key Key, epoch types.Epoch) ([]byte, error) {
	readMeter.Mark(1)
	if err := s.checkPruned(epoch); err != nil {
		return nil, err
	}
	hist, err := s.history(key)
	if err != nil {
		return nil, err
	}
	return hist.ValueAt(epoch), nil
}

func (s *Store) Has(key Key, epoch types.Epoch) (bool, error) {
	val, err := s.Read(key, epoch)
	return val != nil, err
}

func (s *Store) History(key Key) (History, error) {
	hist, err := s.history(key)
	if err != nil {
		return nil, err
	}
	return append(History(nil), hist...), nil
}

func (s *Store) Write(key Key, value []byte, effective types.Epoch) error {
	return s.stage(key, Version{Epoch: effective, Value: value})
}

func (s *Store) Delete(key Key, effective types.Epoch) error {
	return s.stage(key, Version{Epoch: effective, Tombstone: 1})
}

func (s *Store) stage(key Key, v Version) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	blk := s.block
	if blk == nil {
		return errors.Wrapf(ErrNoOpenBlock, "write %s", key)
	}
	if v.Epoch < blk.epoch {
		return errors.Wrapf(ErrStaleWrite, "write %s at epoch %d, block epoch is %d", key, v.Epoch, blk.epoch)
	}
	hist, ok := blk.staged[key]
	if !ok {
		var err error
		if hist, err = s.committedHistory(key); err != nil {
			return err
		}
	}
	blk.staged[key] = hist.With(v)
	writeMeter.Mark(1)
	return nil
}

func (s *Store) pruneFloor(epoch types.Epoch) types.Epoch {
	if s.opts.RetainEpochs == 0 || uint64(epoch) <= s.opts.RetainEpochs {
		return 0
	}
	return epoch - types.Epoch(s.opts.RetainEpochs)
}

// Commit durably writes the open block in one backend batch and returns the
// new block hash. Only one commit may be in flight; a concurrent call, or a
// commit of a height some handle already committed, fails with
// ErrCommitConflict without writing anything.
func (s *Store) Commit() (common.Hash, error) {
	if !atomic.CompareAndSwapInt32(&s.committing, 0, 1) {
		commitConflictCounter.Inc(1)
		return common.Hash{}, errors.Wrap(ErrCommitConflict, "commit already in flight")
	}
	defer atomic.StoreInt32(&s.committing, 0)
	start := time.Now()

	s.mtx.RLock()
	blk, head, hasHead := s.block, s.head, s.hasHead
	s.mtx.RUnlock()
	if blk == nil {
		return common.Hash{}, errors.Wrap(ErrNoOpenBlock, "commit")
	}
	if hasHead && blk.height <= head.Height {
		commitConflictCounter.Inc(1)
		return common.Hash{}, errors.Wrapf(ErrCommitConflict, "height %d already committed", blk.height)
	}
	stored, ok, err := s.readHead()
	if err != nil {
		return common.Hash{}, err
	}
	if ok && stored.Height >= blk.height {
		// Another handle advanced the backend. Resync and drop the block.
		commitConflictCounter.Inc(1)
		s.mtx.Lock()
		s.head, s.hasHead, s.block = stored, true, nil
		s.mtx.Unlock()
		s.cache.Purge()
		s.logger.Warn("Commit conflict", "height", blk.height, "stored", stored.Height)
		return common.Hash{}, errors.Wrapf(ErrCommitConflict, "height %d already committed, head is %d", blk.height, stored.Height)
	}

	keys := make([]string, 0, len(blk.staged))
	for key := range blk.staged {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)

	floor := s.pruneFloor(blk.epoch)
	hasher, err := blake2b.New256(nil)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "create block hasher")
	}
	hasher.Write(head.Hash[:])
	hasher.Write(encodeBlockHeight(blk.height))

	batch := s.db.NewBatch()
	final := make(map[Key]History, len(keys))
	for _, k := range keys {
		key := Key(k)
		hist := blk.staged[key].Prune(floor)
		final[key] = hist

		hasher.Write([]byte(k))
		if len(hist) == 0 {
			hasher.Write([]byte{0})
			if err := batch.Delete(historyKey(key)); err != nil {
				return common.Hash{}, errors.Wrapf(err, "delete %s", key)
			}
			continue
		}
		bz, err := types.Encode(hist)
		if err != nil {
			return common.Hash{}, errors.Wrapf(err, "encode history of %s", key)
		}
		hasher.Write(bz)
		if err := batch.Put(historyKey(key), bz); err != nil {
			return common.Hash{}, errors.Wrapf(err, "put %s", key)
		}
	}
	hash := common.BytesToHash(hasher.Sum(nil))

	newHead := Head{
		Height:      blk.height,
		Epoch:       blk.epoch,
		Hash:        hash,
		PrunedFloor: head.PrunedFloor,
		ChainID:     head.ChainID,
	}
	if floor > newHead.PrunedFloor {
		newHead.PrunedFloor = floor
	}
	headBz, err := types.Encode(newHead)
	if err != nil {
		return common.Hash{}, err
	}
	if err := batch.Put(blockHashKey(blk.height), hash[:]); err != nil {
		return common.Hash{}, errors.Wrap(err, "put block hash")
	}
	if err := batch.Put(headKey, headBz); err != nil {
		return common.Hash{}, errors.Wrap(err, "put store head")
	}
	if err := batch.Write(); err != nil {
		return common.Hash{}, errors.Wrapf(err, "write block %d", blk.height)
	}

	s.mtx.Lock()
	for key, hist := range final {
		s.cache.Add(key, hist)
	}
	s.head, s.hasHead, s.block = newHead, true, nil
	s.mtx.Unlock()

	commitTimer.UpdateSince(start)
	commitKeysMeter.Mark(int64(len(keys)))
	s.logger.Info("Committed block", "height", blk.height, "epoch", blk.epoch,
		"keys", len(keys), "hash", hash.Hex(), "elapsed", common.PrettyDuration(time.Since(start)))
	return hash, nil
}
