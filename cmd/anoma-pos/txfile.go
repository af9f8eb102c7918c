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

package main

import (
	"io/ioutil"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"
	"gopkg.in/yaml.v2"

	"github.com/Pol-Polina/Anoma/kai/state"
	kmath "github.com/Pol-Polina/Anoma/lib/math"
)

// txDoc is the YAML form of a state.Tx.
type txDoc struct {
	Kind         string `yaml:"kind"`
	Source       string `yaml:"source"`
	Validator    string `yaml:"validator"`
	To           string `yaml:"to"`
	Amount       uint64 `yaml:"amount"`
	Fraction     string `yaml:"fraction"`
	ConsensusKey string `yaml:"consensus_key"`
}

func parseAddress(field, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Errorf("invalid %s address %q", field, s)
	}
	return common.HexToAddress(s), nil
}

func (d *txDoc) toTx() (*state.Tx, error) {
	kind, err := state.ParseTxKind(d.Kind)
	if err != nil {
		return nil, err
	}
	tx := &state.Tx{Kind: kind, Amount: d.Amount}
	if tx.Source, err = parseAddress("source", d.Source); err != nil {
		return nil, err
	}
	if tx.Validator, err = parseAddress("validator", d.Validator); err != nil {
		return nil, err
	}
	if tx.To, err = parseAddress("to", d.To); err != nil {
		return nil, err
	}
	if d.Fraction != "" {
		if tx.Fraction, err = kmath.ParseFraction(d.Fraction); err != nil {
			return nil, errors.Wrap(err, "fraction")
		}
	}
	if d.ConsensusKey != "" {
		tx.ConsensusKey = ed25519.PublicKey(common.FromHex(d.ConsensusKey))
	}
	return tx, nil
}

// parseTxs decodes a YAML list of txs.
func parseTxs(bz []byte) ([]*state.Tx, error) {
	var docs []txDoc
	if err := yaml.Unmarshal(bz, &docs); err != nil {
		return nil, errors.Wrap(err, "decode txs")
	}
	txs := make([]*state.Tx, 0, len(docs))
	for i := range docs {
		tx, err := docs[i].toTx()
		if err != nil {
			return nil, errors.Wrapf(err, "tx #%d", i)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func readTxs(path string) ([]*state.Tx, error) {
	bz, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read txs %s", path)
	}
	return parseTxs(bz)
}
