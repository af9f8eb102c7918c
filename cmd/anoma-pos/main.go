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

// Command anoma-pos drives a proof-of-stake ledger store from the command line.
package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/urfave/cli/v2"

	"github.com/Pol-Polina/Anoma/lib/log"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML config file",
		EnvVars: []string{"ANOMA_CONFIG"},
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the database and genesis, overrides the config",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "loglevel",
		Usage: "Log level (trace, debug, info, warn, error), overrides the config",
	}
	metricsFlag = &cli.BoolFlag{
		Name:  "metrics",
		Usage: "Enable metrics collection",
	}
	genesisFlag = &cli.StringFlag{
		Name:  "genesis",
		Usage: "Genesis file, overrides the config",
	}
	epochFlag = &cli.Uint64Flag{
		Name:  "epoch",
		Usage: "Epoch to inspect, defaults to the committed epoch",
	}
	dumpFlag = &cli.BoolFlag{
		Name:  "dump",
		Usage: "Dump the full validator records",
	}
	txsFlag = &cli.StringFlag{
		Name:     "txs",
		Usage:    "YAML file of txs to apply",
		Required: true,
	}
)

var app = &cli.App{
	Name:    "anoma-pos",
	Usage:   "the proof-of-stake ledger command line interface",
	Version: "0.1.0",
}

func init() {
	app.Flags = []cli.Flag{
		configFileFlag,
		dataDirFlag,
		logLevelFlag,
		metricsFlag,
	}
	app.Commands = []*cli.Command{
		initCommand,
		inspectCommand,
		applyCommand,
		epochCommand,
		serveCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))

	app.Before = func(ctx *cli.Context) error {
		if ctx.Bool(metricsFlag.Name) {
			metrics.Enabled = true
			go metrics.CollectProcessMetrics(3 * time.Second)
		}
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		log.Error("Command failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
