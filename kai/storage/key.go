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
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// KeySeparator separates the segments of a storage key.
	KeySeparator = "/"
	// addressMarker prefixes a key segment that names an account.
	addressMarker = "#"
)

// Key is a hierarchical storage path such as "#0xabc.../pos/bond/#0xdef...".
// A key whose first segment is an address segment is owned by that account.
type Key string

// NewKey joins segments into a key.
func NewKey(segments ...string) Key {
	return Key(strings.Join(segments, KeySeparator))
}

// AddressKey returns the key rooted at addr's subtree.
func AddressKey(addr common.Address, segments ...string) Key {
	return NewKey(append([]string{AddressSegment(addr)}, segments...)...)
}

// AddressSegment renders addr as a key segment. Lower case hex keeps the
// lexicographic order of segments equal to the byte order of addresses.
func AddressSegment(addr common.Address) string {
	return addressMarker + strings.ToLower(addr.Hex())
}

// ParseAddressSegment is the inverse of AddressSegment.
func ParseAddressSegment(seg string) (common.Address, bool) {
	if !strings.HasPrefix(seg, addressMarker) {
		return common.Address{}, false
	}
	hex := seg[len(addressMarker):]
	if !common.IsHexAddress(hex) {
		return common.Address{}, false
	}
	return common.HexToAddress(hex), true
}

// Push appends segments to the key.
func (k Key) Push(segments ...string) Key {
	if len(k) == 0 {
		return NewKey(segments...)
	}
	return NewKey(append([]string{string(k)}, segments...)...)
}

// PushAddress appends an address segment to the key.
func (k Key) PushAddress(addr common.Address) Key {
	return k.Push(AddressSegment(addr))
}

// Segments splits the key into its segments.
func (k Key) Segments() []string {
	if len(k) == 0 {
		return nil
	}
	return strings.Split(string(k), KeySeparator)
}

// Last returns the final segment of the key.
func (k Key) Last() string {
	if i := strings.LastIndex(string(k), KeySeparator); i >= 0 {
		return string(k)[i+1:]
	}
	return string(k)
}

// Owner returns the account owning the key, if the first segment is an
// address segment.
func (k Key) Owner() (common.Address, bool) {
	first := string(k)
	if i := strings.Index(first, KeySeparator); i >= 0 {
		first = first[:i]
	}
	return ParseAddressSegment(first)
}

// HasPrefix reports whether k starts with prefix.
func (k Key) HasPrefix(prefix Key) bool {
	return strings.HasPrefix(string(k), string(prefix))
}

func (k Key) String() string { return string(k) }
