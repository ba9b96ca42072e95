// Copyright (c) 2014-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines network-specific parameters: address prefix,
// genesis file location, safe genesis hash, initial difficulty, the reward
// schedule and the supply cap (spec.md §6, "Configuration recognized by the
// core").
package chaincfg

import (
	"time"

	"github.com/axnchain/axnd/chainwire"
)

// NetworkType selects one of the networks recognized by the core.
type NetworkType string

// The two network types spec.md §6 recognizes.
const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Params groups every network-specific constant the core needs.
type Params struct {
	// Name is a human-readable identifier for the network.
	Name NetworkType

	// AddressPrefix is prepended to the SHA-256 derived portion of every
	// address on this network (spec.md §3).
	AddressPrefix string

	// GenesisFilePath locates the JSON genesis payload (spec.md §6).
	GenesisFilePath string

	// SafeGenesisHash is the pinned SHA-256 of the genesis payload;
	// genesis.Load aborts if the loaded payload's hash does not match.
	SafeGenesisHash string

	// InitialDifficulty is the number of leading hex zeros new blocks on
	// this network must meet at height 1 (spec.md §4.7, §6).
	InitialDifficulty uint8

	// MaxSupply is the immutable hard cap on total emitted coins
	// (spec.md §3, §4.9).
	MaxSupply chainwire.Amount

	// InitialBlockReward is R₀, the reward paid at height 0
	// (spec.md §4.9).
	InitialBlockReward chainwire.Amount

	// HalvingInterval is H, the number of blocks between reward halvings
	// (spec.md §4.9).
	HalvingInterval uint64

	// MinRewardFloor is the minimum non-zero reward the schedule will
	// return before supply-cap clipping forces it to zero (spec.md §4.9,
	// "max(min_reward, ...)").
	MinRewardFloor chainwire.Amount

	// MaxFutureDrift bounds how far into the future a block's timestamp
	// may be relative to wall-clock time (spec.md §4.8).
	MaxFutureDrift time.Duration

	// MaxReorgDepth bounds how deep a fork point may be from the current
	// tip for a reorg to be considered (spec.md §4.8).
	MaxReorgDepth uint64

	// CheckpointInterval is the spacing, in blocks, at which the chain
	// manager records an automatic checkpoint (spec.md §6).
	CheckpointInterval uint64

	// MaxMempoolSize is the maximum number of transactions the mempool
	// holds at once (spec.md §3, §4.6).
	MaxMempoolSize int

	// MaxTxBytes is the maximum serialized size of a single transaction
	// (spec.md §4.5 step 8).
	MaxTxBytes int

	// MinTxAmount is the dust floor for non-coinbase transactions
	// (spec.md §4.5 step 2).
	MinTxAmount chainwire.Amount
}

func mustAmount(coins float64) chainwire.Amount {
	amt, err := chainwire.NewAmount(coins)
	if err != nil {
		panic(err)
	}
	return amt
}

// MainnetParams are the parameters for the production AXN network.
var MainnetParams = &Params{
	Name:               Mainnet,
	AddressPrefix:      "AXN",
	GenesisFilePath:    "genesis/mainnet.json",
	SafeGenesisHash:    "", // empty skips the check; config.Load sets it from --safegenesishash
	InitialDifficulty:  4,
	MaxSupply:          mustAmount(72_600_000),
	InitialBlockReward: mustAmount(60),
	HalvingInterval:    262_800,
	MinRewardFloor:     mustAmount(0.00000001),
	MaxFutureDrift:     2 * time.Hour,
	MaxReorgDepth:      100,
	CheckpointInterval: 1000,
	MaxMempoolSize:     50_000,
	MaxTxBytes:         16 * 1024,
	MinTxAmount:        mustAmount(0.00000001),
}

// TestnetParams are the parameters for the AXN test network: a lower
// difficulty and a smaller initial reward than mainnet, with the same
// halving interval and supply cap (spec.md §8, scenarios 2, 3, 8).
var TestnetParams = &Params{
	Name:               Testnet,
	AddressPrefix:      "tAXN",
	GenesisFilePath:    "genesis/testnet.json",
	SafeGenesisHash:    "",
	InitialDifficulty:  1,
	MaxSupply:          mustAmount(72_600_000),
	InitialBlockReward: mustAmount(12),
	HalvingInterval:    262_800,
	MinRewardFloor:     mustAmount(0.00000001),
	MaxFutureDrift:     2 * time.Hour,
	MaxReorgDepth:      20,
	CheckpointInterval: 100,
	MaxMempoolSize:     10_000,
	MaxTxBytes:         16 * 1024,
	MinTxAmount:        mustAmount(0.00000001),
}

// ParamsForNetwork returns the registered Params for a network type, or nil
// if nt is not recognized.
func ParamsForNetwork(nt NetworkType) *Params {
	switch nt {
	case Mainnet:
		return MainnetParams
	case Testnet:
		return TestnetParams
	default:
		return nil
	}
}
