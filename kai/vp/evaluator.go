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

package vp

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Pol-Polina/Anoma/kai/storage"
)

// Evaluator is the validity predicate of an account. diff holds only the
// changes under the account's subtree.
type Evaluator interface {
	Evaluate(addr common.Address, diff storage.Diff) (bool, error)
}

// PreStateEvaluator is implemented by evaluators that also read the state
// the diff applies to.
type PreStateEvaluator interface {
	EvaluatePre(addr common.Address, diff storage.Diff, pre storage.Reader) (bool, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(addr common.Address, diff storage.Diff) (bool, error)

func (f EvaluatorFunc) Evaluate(addr common.Address, diff storage.Diff) (bool, error) {
	return f(addr, diff)
}

type acceptAll struct{}

func (acceptAll) Evaluate(common.Address, storage.Diff) (bool, error) { return true, nil }

// AcceptAll accepts every diff.
var AcceptAll Evaluator = acceptAll{}

// RejectAll rejects every diff.
var RejectAll Evaluator = EvaluatorFunc(func(common.Address, storage.Diff) (bool, error) { return false, nil })

func evaluate(ev Evaluator, addr common.Address, diff storage.Diff, pre storage.Reader) (bool, error) {
	if pe, ok := ev.(PreStateEvaluator); ok && pre != nil {
		return pe.EvaluatePre(addr, diff, pre)
	}
	return ev.Evaluate(addr, diff)
}

// Registry dispatches to per account predicates, falling back to a default.
type Registry struct {
	mtx        sync.RWMutex
	predicates map[common.Address]Evaluator
	fallback   Evaluator
}

// NewRegistry returns a registry using fallback for unregistered accounts.
func NewRegistry(fallback Evaluator) *Registry {
	if fallback == nil {
		fallback = AcceptAll
	}
	return &Registry{
		predicates: make(map[common.Address]Evaluator),
		fallback:   fallback,
	}
}

// Register installs the predicate of addr.
func (r *Registry) Register(addr common.Address, ev Evaluator) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.predicates[addr] = ev
}

// Unregister removes the predicate of addr.
func (r *Registry) Unregister(addr common.Address) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	delete(r.predicates, addr)
}

func (r *Registry) lookup(addr common.Address) Evaluator {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if ev, ok := r.predicates[addr]; ok {
		return ev
	}
	return r.fallback
}

func (r *Registry) Evaluate(addr common.Address, diff storage.Diff) (bool, error) {
	return r.lookup(addr).Evaluate(addr, diff)
}

func (r *Registry) EvaluatePre(addr common.Address, diff storage.Diff, pre storage.Reader) (bool, error) {
	return evaluate(r.lookup(addr), addr, diff, pre)
}
