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
	"github.com/pkg/errors"
)

var (
	// ErrStaleWrite is returned when a version is staged at an epoch before
	// the epoch of the open block.
	ErrStaleWrite = errors.New("stale write")
	// ErrCommitConflict is returned when another commit is in flight or the
	// block height has already been committed.
	ErrCommitConflict = errors.New("commit conflict")
	// ErrEpochRegression is returned when a block is opened at an epoch
	// below the committed epoch.
	ErrEpochRegression = errors.New("epoch regression")
	// ErrEpochPruned is returned for reads below the retention floor.
	ErrEpochPruned = errors.New("epoch pruned")
	// ErrNoOpenBlock is returned by writes and commits outside a block.
	ErrNoOpenBlock = errors.New("no open block")
	// ErrBlockInProgress is returned when a block is opened twice.
	ErrBlockInProgress = errors.New("block already in progress")
	// ErrOverlayClosed is returned when an applied or discarded overlay is
	// used again.
	ErrOverlayClosed = errors.New("overlay closed")
)

// IsRetryable reports whether the operation that failed with err may be
// retried against the newly committed state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCommitConflict)
}
