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

package state

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"

	"github.com/Pol-Polina/Anoma/kai/pos"
	kmath "github.com/Pol-Polina/Anoma/lib/math"
	"github.com/Pol-Polina/Anoma/types"
)

// TxKind selects the operation a Tx performs.
type TxKind uint8

const (
	TxUnknown TxKind = iota
	TxTransfer
	TxBecomeValidator
	TxBond
	TxUnbond
	TxWithdraw
	TxCancelUnbond
	TxSlash
	TxReactivate
)

var txKindNames = map[TxKind]string{
	TxTransfer:        "transfer",
	TxBecomeValidator: "become_validator",
	TxBond:            "bond",
	TxUnbond:          "unbond",
	TxWithdraw:        "withdraw",
	TxCancelUnbond:    "cancel_unbond",
	TxSlash:           "slash",
	TxReactivate:      "reactivate",
}

func (k TxKind) String() string {
	if name, ok := txKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseTxKind is the inverse of TxKind.String.
func ParseTxKind(s string) (TxKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range txKindNames {
		if name == s {
			return k, nil
		}
	}
	return TxUnknown, errors.Errorf("unknown tx kind %q", s)
}

// Tx is one state transition of a block. Source is the signer: the sender of
// a transfer, the delegator of bond operations and the validator itself for
// BecomeValidator and Reactivate. Slashes are only issued by the protocol
// account pos.Address.
type Tx struct {
	Kind         TxKind
	Source       common.Address
	Validator    common.Address
	To           common.Address
	Amount       types.Amount
	Fraction     kmath.Fraction
	ConsensusKey ed25519.PublicKey
}

// ValidateBasic performs stateless checks.
func (tx *Tx) ValidateBasic() error {
	switch tx.Kind {
	case TxTransfer:
		if tx.To == (common.Address{}) {
			return errors.New("transfer has no recipient")
		}
		return nonZero(tx.Amount)
	case TxBecomeValidator:
		if len(tx.ConsensusKey) != ed25519.PublicKeySize {
			return errors.Errorf("consensus key has length %d, want %d", len(tx.ConsensusKey), ed25519.PublicKeySize)
		}
	case TxBond, TxUnbond, TxCancelUnbond:
		if tx.Validator == (common.Address{}) {
			return errors.New("no validator")
		}
		return nonZero(tx.Amount)
	case TxWithdraw:
		if tx.Validator == (common.Address{}) {
			return errors.New("no validator")
		}
	case TxSlash:
		if tx.Source != pos.Address {
			return errors.Errorf("slash issued by %s, not the protocol", tx.Source.Hex())
		}
		if tx.Validator == (common.Address{}) {
			return errors.New("no validator")
		}
		if tx.Fraction.IsZero() {
			return errors.New("zero slash fraction")
		}
		return tx.Fraction.ValidateProportion()
	case TxReactivate:
	default:
		return ErrUnknownTxKind{Kind: tx.Kind}
	}
	return nil
}

func nonZero(amount types.Amount) error {
	if amount == 0 {
		return errors.New("zero amount")
	}
	return nil
}

// TxResult is the outcome of one tx. A failed tx leaves no trace in the
// block.
type TxResult struct {
	Index int
	Kind  TxKind
	Err   error
	// Withdrawn is the amount a successful withdraw released.
	Withdrawn types.Amount
}

// OK reports whether the tx was applied.
func (r TxResult) OK() bool {
	return r.Err == nil
}
