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

package configs

import (
	"io/ioutil"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/Pol-Polina/Anoma/kai/epoch"
	"github.com/Pol-Polina/Anoma/kai/pos"
	"github.com/Pol-Polina/Anoma/kai/storage"
	kmath "github.com/Pol-Polina/Anoma/lib/math"
	"github.com/Pol-Polina/Anoma/types"
)

const (
	DatabaseLevelDB = "leveldb"
	DatabaseMemory  = "memory"
)

type (
	Config struct {
		Node    Node   `yaml:"Node"`
		PoS     PoS    `yaml:"PoS"`
		Genesis string `yaml:"Genesis"`
	}
	Node struct {
		Name     string   `yaml:"Name"`
		LogLevel string   `yaml:"LogLevel"`
		DataDir  string   `yaml:"DataDir"`
		Database Database `yaml:"Database"`
		RPC      RPC      `yaml:"RPC"`
	}
	Database struct {
		Type    string `yaml:"Type"`
		Dir     string `yaml:"Dir"`
		Caches  int    `yaml:"Caches"`
		Handles int    `yaml:"Handles"`

		// CacheSize is the number of key histories kept in memory.
		CacheSize    int    `yaml:"CacheSize"`
		RetainEpochs uint64 `yaml:"RetainEpochs"`
	}
	RPC struct {
		Enabled bool     `yaml:"Enabled"`
		Host    string   `yaml:"Host"`
		Port    int      `yaml:"Port"`
		Cors    []string `yaml:"Cors"`
	}
	// PoS holds the staking parameters. Fractions use the "n/d" notation.
	PoS struct {
		EpochDuration       uint64 `yaml:"EpochDuration"`
		PipelineLength      uint64 `yaml:"PipelineLength"`
		UnbondingLength     uint64 `yaml:"UnbondingLength"`
		ActivationThreshold string `yaml:"ActivationThreshold"`
		MinValidatorStake   uint64 `yaml:"MinValidatorStake"`
		PowerReduction      uint64 `yaml:"PowerReduction"`
		JailThreshold       string `yaml:"JailThreshold"`
		JailEpochs          uint64 `yaml:"JailEpochs"`
		Reactivation        string `yaml:"Reactivation"`
	}
)

// Default returns the configuration of a local node.
func Default() *Config {
	params := pos.DefaultParams()
	return &Config{
		Node: Node{
			Name:     "anoma-pos",
			LogLevel: "info",
			DataDir:  "./.anoma",
			Database: Database{
				Type:         DatabaseLevelDB,
				Dir:          "chaindata",
				Caches:       16,
				Handles:      32,
				CacheSize:    4096,
				RetainEpochs: 0,
			},
			RPC: RPC{
				Enabled: true,
				Host:    "127.0.0.1",
				Port:    8545,
				Cors:    []string{"*"},
			},
		},
		PoS: PoS{
			EpochDuration:       10,
			PipelineLength:      params.PipelineLength,
			UnbondingLength:     params.UnbondingLength,
			ActivationThreshold: params.ActivationThreshold.String(),
			MinValidatorStake:   params.MinValidatorStake,
			PowerReduction:      params.PowerReduction,
			JailThreshold:       params.Slashing.JailThreshold.String(),
			JailEpochs:          params.Slashing.JailEpochs,
			Reactivation:        params.Slashing.Reactivation.String(),
		},
		Genesis: "genesis.yaml",
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	bz, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(bz, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	switch c.Node.Database.Type {
	case DatabaseLevelDB, DatabaseMemory:
	default:
		return errors.Errorf("unknown database type %q", c.Node.Database.Type)
	}
	if c.Node.Database.CacheSize < 0 {
		return errors.New("negative database cache size")
	}
	if c.Node.RPC.Enabled && (c.Node.RPC.Port <= 0 || c.Node.RPC.Port > 65535) {
		return errors.Errorf("invalid rpc port %d", c.Node.RPC.Port)
	}
	if c.PoS.EpochDuration == 0 {
		return errors.New("epoch duration must be positive")
	}
	_, err := c.PoS.Params()
	return err
}

// Params converts the PoS section.
func (p PoS) Params() (pos.Params, error) {
	activation, err := kmath.ParseFraction(p.ActivationThreshold)
	if err != nil {
		return pos.Params{}, errors.Wrap(err, "ActivationThreshold")
	}
	jail, err := kmath.ParseFraction(p.JailThreshold)
	if err != nil {
		return pos.Params{}, errors.Wrap(err, "JailThreshold")
	}
	reactivation, err := pos.ParseReactivation(p.Reactivation)
	if err != nil {
		return pos.Params{}, err
	}
	params := pos.Params{
		PipelineLength:      p.PipelineLength,
		UnbondingLength:     p.UnbondingLength,
		ActivationThreshold: activation,
		MinValidatorStake:   p.MinValidatorStake,
		PowerReduction:      p.PowerReduction,
		Slashing: pos.SlashingPolicy{
			JailThreshold: jail,
			JailEpochs:    p.JailEpochs,
			Reactivation:  reactivation,
		},
	}
	return params, params.Validate()
}

// Tracker returns the epoch tracker for a chain starting at genesis.
func (p PoS) Tracker(genesis types.BlockHeight) (epoch.Tracker, error) {
	return epoch.NewTracker(p.EpochDuration, genesis)
}

// StoreOptions returns the storage options for chainID.
func (c *Config) StoreOptions(chainID string) storage.Options {
	return storage.Options{
		RetainEpochs: c.Node.Database.RetainEpochs,
		CacheSize:    c.Node.Database.CacheSize,
		ChainID:      chainID,
	}
}

// DatabasePath returns the leveldb directory.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Node.Database.Dir) {
		return c.Node.Database.Dir
	}
	return filepath.Join(c.Node.DataDir, c.Node.Database.Dir)
}

// GenesisPath returns the genesis file, relative paths are resolved against
// the data directory.
func (c *Config) GenesisPath() string {
	if c.Genesis == "" || filepath.IsAbs(c.Genesis) {
		return c.Genesis
	}
	return filepath.Join(c.Node.DataDir, c.Genesis)
}
