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

// Package vp gates state changes behind the validity predicates of the
// accounts they touch.
package vp

import (
	"bytes"
	"sort"

	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/pkg/errors"

	"github.com/Pol-Polina/Anoma/kai/storage"
	"github.com/Pol-Polina/Anoma/lib/log"
)

// ErrUnauthorized is returned when a validity predicate rejects a diff.
var ErrUnauthorized = errors.New("unauthorized")

var (
	authorizeMeter = metrics.NewRegisteredMeter("vp/authorize", nil)
	rejectMeter    = metrics.NewRegisteredMeter("vp/reject", nil)
)

// Gate partitions a diff by owning account and asks each account's
// validity predicate to accept its part.
type Gate struct {
	evaluator Evaluator
	// internal owns the keys that are not rooted under an account.
	internal common.Address
	logger   log.Logger
}

// NewGate returns a gate evaluating with ev. Keys outside any account
// subtree are attributed to internal.
func NewGate(ev Evaluator, internal common.Address, logger log.Logger) *Gate {
	if logger == nil {
		logger = log.New("module", "vp")
	}
	return &Gate{evaluator: ev, internal: internal, logger: logger}
}

// Owner returns the account whose predicate guards key.
func (g *Gate) Owner(key storage.Key) common.Address {
	if addr, ok := key.Owner(); ok {
		return addr
	}
	return g.internal
}

// Partition splits diff into per account diffs.
func (g *Gate) Partition(diff storage.Diff) map[common.Address]storage.Diff {
	parts := make(map[common.Address]storage.Diff)
	for _, change := range diff {
		owner := g.Owner(change.Key)
		parts[owner] = append(parts[owner], change)
	}
	return parts
}

// Authorize runs the predicate of every account touched by diff, plus the
// explicitly requested verifiers, in address order. pre is the state the
// diff applies to. Any rejection fails the whole diff with ErrUnauthorized.
func (g *Gate) Authorize(diff storage.Diff, pre storage.Reader, verifiers ...common.Address) error {
	authorizeMeter.Mark(1)
	parts := g.Partition(diff)

	touched := mapset.NewSet()
	for addr := range parts {
		touched.Add(addr)
	}
	for _, addr := range verifiers {
		touched.Add(addr)
	}
	addrs := make([]common.Address, 0, touched.Cardinality())
	for _, item := range touched.ToSlice() {
		addrs = append(addrs, item.(common.Address))
	}
	sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })

	for _, addr := range addrs {
		if err := g.check(addr, parts[addr], pre); err != nil {
			return err
		}
	}
	return nil
}

// AuthorizeProtocol hands the whole of diff to the internal predicate. The
// owners of touched account subtrees are not consulted.
func (g *Gate) AuthorizeProtocol(diff storage.Diff, pre storage.Reader) error {
	authorizeMeter.Mark(1)
	return g.check(g.internal, diff, pre)
}

func (g *Gate) check(addr common.Address, diff storage.Diff, pre storage.Reader) error {
	ok, err := evaluate(g.evaluator, addr, diff, pre)
	if err != nil {
		rejectMeter.Mark(1)
		g.logger.Debug("Validity predicate failed", "address", addr.Hex(), "err", err)
		return errors.Wrapf(ErrUnauthorized, "predicate of %s failed: %v", addr.Hex(), err)
	}
	if !ok {
		rejectMeter.Mark(1)
		g.logger.Debug("Validity predicate rejected diff", "address", addr.Hex(), "keys", len(diff))
		return errors.Wrapf(ErrUnauthorized, "rejected by %s", addr.Hex())
	}
	return nil
}
