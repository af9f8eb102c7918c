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

package pos

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	kmath "github.com/Pol-Polina/Anoma/lib/math"
	"github.com/Pol-Polina/Anoma/types"
)

// Reactivation selects how jailed or inactive validators become candidates
// again.
type Reactivation uint8

const (
	// ReactivationAutomatic returns validators to candidacy at the first
	// boundary where they are eligible.
	ReactivationAutomatic Reactivation = iota
	// ReactivationManual additionally requires an explicit Reactivate call.
	ReactivationManual
)

func (r Reactivation) String() string {
	if r == ReactivationManual {
		return "manual"
	}
	return "automatic"
}

// ParseReactivation parses "automatic" or "manual".
func ParseReactivation(s string) (Reactivation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "automatic":
		return ReactivationAutomatic, nil
	case "manual":
		return ReactivationManual, nil
	}
	return 0, fmt.Errorf("unknown reactivation policy %q", s)
}

func (r Reactivation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Reactivation) UnmarshalText(text []byte) error {
	v, err := ParseReactivation(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// SlashingPolicy maps slashes to jailing.
type SlashingPolicy struct {
	// JailThreshold is the slash fraction from which the validator is jailed
	// at the next boundary. Zero never jails.
	JailThreshold kmath.Fraction `json:"jail_threshold" yaml:"jail_threshold"`
	// JailEpochs is the number of epochs a validator stays jailed.
	JailEpochs   uint64       `json:"jail_epochs" yaml:"jail_epochs"`
	Reactivation Reactivation `json:"reactivation" yaml:"reactivation"`
}

// Jails reports whether a slash by fraction jails the validator.
func (p SlashingPolicy) Jails(fraction kmath.Fraction) bool {
	if p.JailThreshold.IsZero() {
		return false
	}
	return fraction.Cmp(p.JailThreshold) >= 0
}

// Params are the PoS parameters persisted under pos/params.
type Params struct {
	// PipelineLength is the delay in epochs before a bond counts.
	PipelineLength uint64 `json:"pipeline_length" yaml:"pipeline_length"`
	// UnbondingLength is the delay in epochs before an unbond is withdrawable.
	UnbondingLength uint64 `json:"unbonding_length" yaml:"unbonding_length"`
	// ActivationThreshold is the minimum share of the eligible voting power
	// a candidate needs to become active.
	ActivationThreshold kmath.Fraction `json:"activation_threshold" yaml:"activation_threshold"`
	MinValidatorStake   types.Amount   `json:"min_validator_stake" yaml:"min_validator_stake"`
	// PowerReduction divides stake into voting power.
	PowerReduction uint64         `json:"power_reduction" yaml:"power_reduction"`
	Slashing       SlashingPolicy `json:"slashing" yaml:"slashing"`
}

// DefaultParams returns the parameters used when none are configured.
func DefaultParams() Params {
	return Params{
		PipelineLength:      2,
		UnbondingLength:     6,
		ActivationThreshold: kmath.Zero,
		MinValidatorStake:   1,
		PowerReduction:      1,
		Slashing: SlashingPolicy{
			JailThreshold: kmath.NewFraction(1, 20),
			JailEpochs:    2,
			Reactivation:  ReactivationAutomatic,
		},
	}
}

// Validate checks the parameters for consistency.
func (p Params) Validate() error {
	if p.PowerReduction == 0 {
		return errors.New("power_reduction must be positive")
	}
	if p.UnbondingLength < p.PipelineLength {
		return errors.Errorf("unbonding_length %d must not be below pipeline_length %d", p.UnbondingLength, p.PipelineLength)
	}
	if err := p.ActivationThreshold.ValidateProportion(); err != nil {
		return errors.Wrap(err, "activation_threshold")
	}
	if err := p.Slashing.JailThreshold.ValidateProportion(); err != nil {
		return errors.Wrap(err, "jail_threshold")
	}
	if p.Slashing.Reactivation > ReactivationManual {
		return errors.Errorf("unknown reactivation policy %d", p.Slashing.Reactivation)
	}
	return nil
}

// VotingPower derives voting power from stake.
func (p Params) VotingPower(stake types.Amount) types.VotingPower {
	if p.PowerReduction <= 1 {
		return stake
	}
	return stake / p.PowerReduction
}
