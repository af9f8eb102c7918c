/*
 *  Copyright 2018 KardiaChain
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

package types

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"
)

// ValidatorStatus is the lifecycle state of a validator. It only changes at
// epoch boundaries.
type ValidatorStatus uint8

const (
	StatusUnknown ValidatorStatus = iota
	StatusCandidate
	StatusActive
	StatusJailed
	StatusInactive
)

func (s ValidatorStatus) String() string {
	switch s {
	case StatusCandidate:
		return "candidate"
	case StatusActive:
		return "active"
	case StatusJailed:
		return "jailed"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ValidatorStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ValidatorStatus) UnmarshalText(text []byte) error {
	for st := StatusUnknown; st <= StatusInactive; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return errors.Errorf("unknown validator status %q", text)
}

// ValidatorRecord is the epoched status record persisted for each validator.
type ValidatorRecord struct {
	Status ValidatorStatus
	// JailPending is set by a slash and consumed at the next epoch boundary.
	JailPending uint8
	// JailedUntil is the first epoch at which a jailed validator may leave jail.
	JailedUntil Epoch
	// ReactivationRequested is set by an explicit reactivation request when
	// the manual policy is in force.
	ReactivationRequested uint8
}

// Copy returns a copy of the record.
func (r *ValidatorRecord) Copy() *ValidatorRecord {
	rCopy := *r
	return &rCopy
}

// Validator is the state of a validator as observed at one epoch.
type Validator struct {
	Address      common.Address    `json:"address"`
	ConsensusKey ed25519.PublicKey `json:"consensus_key"`
	Status       ValidatorStatus   `json:"status"`
	Stake        Amount            `json:"stake"`
	VotingPower  VotingPower       `json:"voting_power"`
	Epoch        Epoch             `json:"epoch"`
}

// ValidateBasic performs basic validation.
func (v *Validator) ValidateBasic() error {
	if v == nil {
		return errors.New("nil validator")
	}
	if v.Address == (common.Address{}) {
		return errors.New("validator has empty address")
	}
	if len(v.ConsensusKey) != ed25519.PublicKeySize {
		return errors.Errorf("validator consensus key has length %d, want %d", len(v.ConsensusKey), ed25519.PublicKeySize)
	}
	return nil
}

// Copy creates a new copy of the validator.
func (v *Validator) Copy() *Validator {
	vCopy := *v
	vCopy.ConsensusKey = append(ed25519.PublicKey(nil), v.ConsensusKey...)
	return &vCopy
}

// Compare orders validators by descending voting power, then by address.
func (v *Validator) Compare(other *Validator) int {
	switch {
	case v.VotingPower > other.VotingPower:
		return -1
	case v.VotingPower < other.VotingPower:
		return 1
	default:
		return bytes.Compare(v.Address[:], other.Address[:])
	}
}

// String returns a short string representing Validator
func (v *Validator) String() string {
	if v == nil {
		return "nil-Validator"
	}
	return fmt.Sprintf("Validator{%v %v VP:%v S:%v E:%v}",
		v.Address.Hex(),
		v.Status,
		v.VotingPower,
		v.Stake,
		v.Epoch)
}

// StringLong returns a long string representing full info about Validator
func (v *Validator) StringLong() string {
	if v == nil {
		return "nil-Validator"
	}
	return fmt.Sprintf("Validator{%v %v %v VP:%v S:%v E:%v}",
		v.Address.Hex(),
		hex.EncodeToString(v.ConsensusKey),
		v.Status,
		v.VotingPower,
		v.Stake,
		v.Epoch)
}
