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

// Package token keeps liquid balances of the staking token in the versioned
// store.
package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/Pol-Polina/Anoma/kai/storage"
	kmath "github.com/Pol-Polina/Anoma/lib/math"
	"github.com/Pol-Polina/Anoma/types"
)

// ErrInsufficientBalance is returned when a debit exceeds the liquid balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Ledger moves liquid funds in and out of accounts.
type Ledger interface {
	Debit(addr common.Address, amount types.Amount) error
	Credit(addr common.Address, amount types.Amount) error
	Balance(addr common.Address) (types.Amount, error)
}

// Factory returns a Ledger writing through rw.
type Factory func(rw storage.ReadWriter) Ledger

// BalanceKey is the key holding the balance of addr.
func BalanceKey(addr common.Address) storage.Key {
	return storage.AddressKey(addr, "balance")
}

// Bank is a Ledger storing balances as non-epoched values at the block epoch.
type Bank struct {
	rw storage.ReadWriter
}

// NewBank returns a Bank writing through rw.
func NewBank(rw storage.ReadWriter) *Bank {
	return &Bank{rw: rw}
}

// BankFactory is the Factory of Bank ledgers.
func BankFactory(rw storage.ReadWriter) Ledger {
	return NewBank(rw)
}

func (b *Bank) Balance(addr common.Address) (types.Amount, error) {
	bz, err := b.rw.Read(BalanceKey(addr), b.rw.BlockEpoch())
	if err != nil || bz == nil {
		return 0, err
	}
	var bal types.Amount
	if err := types.Decode(bz, &bal); err != nil {
		return 0, errors.Wrapf(err, "balance of %s", addr.Hex())
	}
	return bal, nil
}

// HasBalanceGTE reports whether addr holds at least amount.
func (b *Bank) HasBalanceGTE(addr common.Address, amount types.Amount) (bool, error) {
	bal, err := b.Balance(addr)
	if err != nil {
		return false, err
	}
	return bal >= amount, nil
}

func (b *Bank) setBalance(addr common.Address, bal types.Amount) error {
	bz, err := types.Encode(bal)
	if err != nil {
		return err
	}
	return b.rw.Write(BalanceKey(addr), bz, b.rw.BlockEpoch())
}

func (b *Bank) Debit(addr common.Address, amount types.Amount) error {
	bal, err := b.Balance(addr)
	if err != nil {
		return err
	}
	if bal < amount {
		return errors.Wrapf(ErrInsufficientBalance, "%s holds %d, needs %d", addr.Hex(), bal, amount)
	}
	return b.setBalance(addr, bal-amount)
}

func (b *Bank) Credit(addr common.Address, amount types.Amount) error {
	bal, err := b.Balance(addr)
	if err != nil {
		return err
	}
	next, err := kmath.SafeAddUint64(bal, amount)
	if err != nil {
		return errors.Wrapf(err, "credit %d to %s", amount, addr.Hex())
	}
	return b.setBalance(addr, next)
}

// Transfer moves amount from one account to another.
func (b *Bank) Transfer(from, to common.Address, amount types.Amount) error {
	if err := b.Debit(from, amount); err != nil {
		return err
	}
	return b.Credit(to, amount)
}
