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
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	readMeter      = metrics.NewRegisteredMeter("storage/read", nil)
	writeMeter     = metrics.NewRegisteredMeter("storage/write", nil)
	cacheHitMeter  = metrics.NewRegisteredMeter("storage/cache/hit", nil)
	cacheMissMeter = metrics.NewRegisteredMeter("storage/cache/miss", nil)

	commitTimer           = metrics.NewRegisteredTimer("storage/commit", nil)
	commitKeysMeter       = metrics.NewRegisteredMeter("storage/commit/keys", nil)
	commitConflictCounter = metrics.NewRegisteredCounter("storage/commit/conflict", nil)
	discardCounter        = metrics.NewRegisteredCounter("storage/discard", nil)
)
