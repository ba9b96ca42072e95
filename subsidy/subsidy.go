// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package subsidy implements the deterministic block reward schedule and
// supply cap of spec.md §4.9: a halving schedule, a reward floor, and a
// hard clip against the network's immutable MAX_SUPPLY.
package subsidy

import "github.com/axnchain/axnd/chainwire"

// ForHeight returns R₀ / 2^(height/H), floored at minRewardFloor, the way
// blockdag.CalcBlockSubsidy halves baseSubsidy every
// SubsidyReductionInterval blocks: an integer right-shift of the Amount's
// base units by the halving count.
func ForHeight(height uint64, initialReward chainwire.Amount, halvingInterval uint64, minRewardFloor chainwire.Amount) chainwire.Amount {
	if halvingInterval == 0 {
		return initialReward
	}
	halvings := height / halvingInterval
	reward := initialReward
	// A halving count at or beyond 63 would shift every bit out of an
	// int64 Amount; the floor below already applies well before that.
	if halvings >= 63 {
		return minRewardFloor
	}
	reward = reward >> halvings
	if reward < minRewardFloor {
		return minRewardFloor
	}
	return reward
}

// CapToSupply clips reward so that currentSupply+reward never exceeds
// maxSupply: once the cap is reached the schedule returns 0 and miners are
// compensated by fees only (spec.md §4.9).
func CapToSupply(reward, currentSupply, maxSupply chainwire.Amount) chainwire.Amount {
	if currentSupply >= maxSupply {
		return 0
	}
	headroom := maxSupply - currentSupply
	if reward > headroom {
		return headroom
	}
	return reward
}
