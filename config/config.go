// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config loads the configuration recognized by the core
// (spec.md §6) from command-line arguments, and resolves it into a
// chaincfg.Params the rest of the module consumes. No config file and no
// environment variables are read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/axnchain/axnd/chaincfg"
	"github.com/axnchain/axnd/chainwire"
)

const (
	defaultConfigFilename = "axnd.conf"
	defaultDataDirname     = "data"
	defaultLogFilename     = "axnd.log"
)

// Config is the flat set of options spec.md §6 names, parsed by go-flags
// the way the teacher's cmd/* tools parse their own `config` structs.
type Config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"Directory to store blocks, the UTXO set, and pending transactions"`

	NetworkType string `long:"network" description:"Network to connect to: testnet or mainnet" default:"testnet"`

	MaxSupply          float64 `long:"maxsupply" description:"Hard cap on total emitted coins, overriding the network default"`
	InitialBlockReward float64 `long:"initialreward" description:"Reward paid at height 0, overriding the network default"`
	HalvingInterval    uint64  `long:"halvinginterval" description:"Number of blocks between reward halvings, overriding the network default"`
	InitialDifficulty  uint8   `long:"difficulty" description:"Leading hex zeros new blocks must meet, overriding the network default"`

	MaxFutureDriftSeconds int64 `long:"maxfuturedrift" description:"Seconds a block's timestamp may run ahead of wall-clock time"`
	MaxReorgDepth         uint64 `long:"maxreorgdepth" description:"Deepest fork point a reorg may cross"`
	CheckpointInterval    uint64 `long:"checkpointinterval" description:"Spacing, in blocks, between automatic checkpoints"`

	MaxMempoolSize int     `long:"maxmempoolsize" description:"Maximum number of transactions the mempool holds at once"`
	MaxTxBytes     int     `long:"maxtxbytes" description:"Maximum serialized size of a single transaction"`
	MinTxAmount    float64 `long:"mintxamount" description:"Dust floor for non-coinbase transactions"`

	SafeGenesisHash string `long:"safegenesishash" description:"Pinned SHA-256 of the genesis payload for this network"`

	LogDir   string `long:"logdir" description:"Directory to log output"`
	DebugLevel string `long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical" default:"info"`
}

// defaultDataDir mirrors util.AppDataDir("axnd", false) without depending on
// the teacher's util package, which this module does not carry forward.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".axnd")
	}
	return filepath.Join(home, ".axnd")
}

// Load parses args (typically os.Args[1:]) with go-flags. The configfile
// option is accepted but the file it names is not read, and no environment
// variables are consulted. It returns the parsed Config plus the resolved
// chaincfg.Params for the selected network, with every non-zero override
// from spec.md §6 applied.
func Load(args []string) (*Config, *chaincfg.Params, error) {
	cfg := &Config{
		DataDir: filepath.Join(defaultDataDir(), defaultDataDirname),
		LogDir:  defaultDataDir(),
	}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, nil, err
	}

	params := chaincfg.ParamsForNetwork(chaincfg.NetworkType(cfg.NetworkType))
	if params == nil {
		return nil, nil, fmt.Errorf("config: unrecognized network %q", cfg.NetworkType)
	}

	resolved := *params
	if cfg.MaxSupply > 0 {
		amt, err := chainwire.NewAmount(cfg.MaxSupply)
		if err != nil {
			return nil, nil, fmt.Errorf("config: invalid maxsupply: %w", err)
		}
		resolved.MaxSupply = amt
	}
	if cfg.InitialBlockReward > 0 {
		amt, err := chainwire.NewAmount(cfg.InitialBlockReward)
		if err != nil {
			return nil, nil, fmt.Errorf("config: invalid initialreward: %w", err)
		}
		resolved.InitialBlockReward = amt
	}
	if cfg.HalvingInterval > 0 {
		resolved.HalvingInterval = cfg.HalvingInterval
	}
	if cfg.InitialDifficulty > 0 {
		resolved.InitialDifficulty = cfg.InitialDifficulty
	}
	if cfg.MaxFutureDriftSeconds > 0 {
		resolved.MaxFutureDrift = time.Duration(cfg.MaxFutureDriftSeconds) * time.Second
	}
	if cfg.MaxReorgDepth > 0 {
		resolved.MaxReorgDepth = cfg.MaxReorgDepth
	}
	if cfg.CheckpointInterval > 0 {
		resolved.CheckpointInterval = cfg.CheckpointInterval
	}
	if cfg.MaxMempoolSize > 0 {
		resolved.MaxMempoolSize = cfg.MaxMempoolSize
	}
	if cfg.MaxTxBytes > 0 {
		resolved.MaxTxBytes = cfg.MaxTxBytes
	}
	if cfg.MinTxAmount > 0 {
		amt, err := chainwire.NewAmount(cfg.MinTxAmount)
		if err != nil {
			return nil, nil, fmt.Errorf("config: invalid mintxamount: %w", err)
		}
		resolved.MinTxAmount = amt
	}
	if cfg.SafeGenesisHash != "" {
		resolved.SafeGenesisHash = cfg.SafeGenesisHash
	}

	return cfg, &resolved, nil
}

// BlocksDir, UTXOSnapshotPath, PendingTxPath and CheckpointsDir locate the
// persisted-state files spec.md §6 names, rooted at cfg.DataDir.
func (c *Config) BlocksDir() string        { return filepath.Join(c.DataDir, "blocks") }
func (c *Config) UTXOSnapshotPath() string { return filepath.Join(c.DataDir, "utxo_set.json") }
func (c *Config) PendingTxPath() string    { return filepath.Join(c.DataDir, "pending_transactions.json") }
func (c *Config) CheckpointsDir() string   { return filepath.Join(c.DataDir, "checkpoints") }
func (c *Config) TxIndexDir() string       { return filepath.Join(c.DataDir, "txindex") }
func (c *Config) LogFilePath() string      { return filepath.Join(c.LogDir, defaultLogFilename) }
