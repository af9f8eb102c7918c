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
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"

	"github.com/Pol-Polina/Anoma/kai/genesis"
	"github.com/Pol-Polina/Anoma/kai/pos"
	"github.com/Pol-Polina/Anoma/rpc"
	"github.com/Pol-Polina/Anoma/types"
)

var (
	initCommand = &cli.Command{
		Name:   "init",
		Usage:  "Commit the genesis block",
		Flags:  []cli.Flag{genesisFlag},
		Action: initChain,
	}
	inspectCommand = &cli.Command{
		Name:   "inspect",
		Usage:  "Print the committed head and the validator set",
		Flags:  []cli.Flag{genesisFlag, epochFlag, dumpFlag},
		Action: inspect,
	}
	applyCommand = &cli.Command{
		Name:   "apply",
		Usage:  "Apply a file of txs as the next block",
		Flags:  []cli.Flag{genesisFlag, txsFlag},
		Action: apply,
	}
	epochCommand = &cli.Command{
		Name:   "epoch",
		Usage:  "Commit an empty block opening the next epoch",
		Flags:  []cli.Flag{genesisFlag},
		Action: nextEpoch,
	}
	serveCommand = &cli.Command{
		Name:   "serve",
		Usage:  "Serve the read-only JSON API",
		Flags:  []cli.Flag{genesisFlag},
		Action: serve,
	}
)

func initChain(ctx *cli.Context) error {
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	hash, err := genesis.InitChain(n.store, n.genesis, n.params, n.logger)
	if err != nil {
		return err
	}
	fmt.Printf("Initialized chain %s at height %d with hash %s\n", n.genesis.ChainID, n.genesis.Height, hash.Hex())
	return nil
}

func inspect(ctx *cli.Context) error {
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	head, err := n.requireHead()
	if err != nil {
		return err
	}
	ep := head.Epoch
	if ctx.IsSet(epochFlag.Name) {
		ep = types.Epoch(ctx.Uint64(epochFlag.Name))
	}
	set, err := pos.NewReader(n.store).ValidatorSet(ep)
	if err != nil {
		return err
	}
	fmt.Printf("Chain %s height %d epoch %d hash %s\n", head.ChainID, head.Height, head.Epoch, head.Hash.Hex())
	if ctx.Bool(dumpFlag.Name) {
		spew.Dump(set)
		return nil
	}
	fmt.Println(set.String())
	return nil
}

func apply(ctx *cli.Context) error {
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	head, err := n.requireHead()
	if err != nil {
		return err
	}
	txs, err := readTxs(ctx.String(txsFlag.Name))
	if err != nil {
		return err
	}
	height := head.Height + 1
	hash, results, err := n.executor().ApplyBlock(height, txs)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.OK() {
			fmt.Printf("#%d %s ok\n", res.Index, res.Kind)
		} else {
			fmt.Printf("#%d %s failed: %v\n", res.Index, res.Kind, res.Err)
		}
	}
	fmt.Printf("Committed block %d with hash %s\n", height, hash.Hex())
	return nil
}

func nextEpoch(ctx *cli.Context) error {
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	head, err := n.requireHead()
	if err != nil {
		return err
	}
	height := n.tracker.FirstHeight(head.Epoch + 1)
	if height <= head.Height {
		height = head.Height + 1
	}
	hash, _, err := n.executor().ApplyBlock(height, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Committed block %d opening epoch %d with hash %s\n", height, n.tracker.EpochOf(height), hash.Hex())
	return nil
}

func serve(ctx *cli.Context) error {
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	if _, err := n.requireHead(); err != nil {
		return err
	}
	rpcCfg := n.cfg.Node.RPC
	if !rpcCfg.Enabled {
		return fmt.Errorf("rpc is disabled in the config")
	}

	sigCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	addr := net.JoinHostPort(rpcCfg.Host, strconv.Itoa(rpcCfg.Port))
	return rpc.NewServer(n.store, nil).ListenAndServe(sigCtx, addr, rpcCfg.Cors)
}
