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

	"github.com/pkg/errors"

	"github.com/Pol-Polina/Anoma/types"
)

var (
	ErrNotMatured        = errors.New("unbond not matured")
	ErrInsufficientBond  = errors.New("insufficient bond")
	ErrUnbondNotFound    = errors.New("unbond not found")
	ErrValidatorNotFound = errors.New("validator not found")
	ErrValidatorExists   = errors.New("validator already exists")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidFraction   = errors.New("invalid slash fraction")
	ErrNoParams          = errors.New("pos params not initialized")
	// ErrWrongEpoch is returned when an operation names an epoch other than
	// the epoch of the open block.
	ErrWrongEpoch = errors.New("operation epoch does not match block epoch")
)

// ErrNoValidatorSetForEpoch is returned when no active set was fixed for an
// epoch.
type ErrNoValidatorSetForEpoch struct {
	Epoch types.Epoch
}

func (e ErrNoValidatorSetForEpoch) Error() string {
	return fmt.Sprintf("could not find validator set for epoch #%d", e.Epoch)
}
