// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mining implements the block assembler and proof-of-work miner of
// spec.md §4.7: build a candidate block deterministically from the current
// mempool and tip, then search for a nonce whose block hash meets the
// declared difficulty. Grounded on blockdag.BlockForMining's
// drain-and-assemble shape and domain/consensus/utils/mining.SolveBlock's
// nonce-search loop, with cmd/kaspaminer/mineloop.go's cooperative
// cancellation idiom replacing the teacher's goroutine/channel rig (the
// core here exposes a synchronous, cancellable call instead).
package mining

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/axnchain/axnd/chaincfg"
	"github.com/axnchain/axnd/chainwire"
	"github.com/axnchain/axnd/ledgererr"
	"github.com/axnchain/axnd/subsidy"
)

// TxSource is the slice of the mempool the assembler needs: draining the
// pool for inclusion in a new block. A narrow interface, not a concrete
// *mempool.Pool, so the assembler and its tests do not depend on mempool's
// reservation/validator wiring.
type TxSource interface {
	DrainForBlock() []*chainwire.Transaction
}

// stopCheckInterval is how often, in nonce attempts, Mine polls the
// cooperative cancellation signal (spec.md §4.7: "honor cancellation...at
// least every N nonce attempts").
const stopCheckInterval = 4096

// AssembleBlock builds the pre-PoW candidate block for height tip.Index+1:
// it computes the capped block reward, drains pool in its pinned
// deterministic order, builds the coinbase, and computes the Merkle root.
// Given the same pool snapshot and tip, AssembleBlock returns byte-for-byte
// the same pre-PoW body on every call (spec.md P8): draining is driven
// entirely by pool and tip, with no hidden randomness until Mine's nonce
// search begins. The candidate's timestamp is derived from tip.Timestamp
// rather than sampled from the wall clock, so two assemblies of the same
// snapshot do not diverge across a second boundary; checkTimestamp's
// monotonic/drift bounds (spec.md §4.8) never require the timestamp to
// track real elapsed mining time, only that it not precede the tip or run
// more than MaxFutureDrift ahead of the wall clock.
func AssembleBlock(params *chaincfg.Params, tip *chainwire.Block, currentSupply chainwire.Amount, minerAddress string, pool TxSource) (*chainwire.Block, error) {
	height := tip.Index + 1

	baseReward := subsidy.ForHeight(height, params.InitialBlockReward, params.HalvingInterval, params.MinRewardFloor)
	baseReward = subsidy.CapToSupply(baseReward, currentSupply, params.MaxSupply)

	body := pool.DrainForBlock()

	var totalFees chainwire.Amount
	for _, tx := range body {
		totalFees += tx.Fee
	}

	assembledAt := tip.Timestamp + 1
	coinbase := &chainwire.Transaction{
		Sender:    chainwire.CoinbaseSender,
		Recipient: minerAddress,
		Amount:    baseReward + totalFees,
		Fee:       0,
		Timestamp: assembledAt,
		TxType:    chainwire.TxCoinbase,
	}
	txid, err := coinbase.CanonicalHash()
	if err != nil {
		return nil, errors.Wrap(err, "mining: hashing coinbase transaction")
	}
	coinbase.TxID = txid

	transactions := make([]*chainwire.Transaction, 0, len(body)+1)
	transactions = append(transactions, coinbase)
	transactions = append(transactions, body...)

	block := &chainwire.Block{
		Index:        height,
		Timestamp:    assembledAt,
		PreviousHash: tip.Hash,
		Transactions: transactions,
		Difficulty:   params.InitialDifficulty,
	}
	block.ComputeMerkleRoot()

	log.Debugf("assembled candidate block at height %d with %d transactions, reward %s, fees %s",
		height, len(transactions), baseReward, totalFees)
	return block, nil
}

// Mine searches for a nonce that makes block.Hash meet block.Difficulty,
// the way domain/consensus/utils/mining.SolveBlock walks the nonce space
// from a random starting point. shouldStop is polled every
// stopCheckInterval attempts; if it ever returns true, Mine returns
// ErrCancelled and leaves block unmodified beyond the nonces already tried.
func Mine(block *chainwire.Block, shouldStop func() bool) error {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := rnd.Uint64()

	for attempt := uint64(0); ; attempt++ {
		if shouldStop != nil && attempt%stopCheckInterval == 0 && shouldStop() {
			return ledgererr.New(ledgererr.ErrCancelled, "mining cancelled after %d attempts", attempt)
		}

		block.Nonce = start + attempt
		hash, err := block.CanonicalHash()
		if err != nil {
			return errors.Wrapf(err, "mining: hashing block %d at nonce %d", block.Index, block.Nonce)
		}
		if chainwire.MeetsDifficulty(hash, block.Difficulty) {
			block.Hash = hash
			log.Infof("mined block %d (nonce %d, hash %s)", block.Index, block.Nonce, hash)
			return nil
		}
	}
}

// MineBlock assembles a candidate block and mines it in one call, the
// combined operation spec.md §4.7 and the Core API's mine_block expose.
func MineBlock(params *chaincfg.Params, tip *chainwire.Block, currentSupply chainwire.Amount, minerAddress string, pool TxSource, shouldStop func() bool) (*chainwire.Block, error) {
	block, err := AssembleBlock(params, tip, currentSupply, minerAddress, pool)
	if err != nil {
		return nil, err
	}
	if err := Mine(block, shouldStop); err != nil {
		return nil, err
	}
	return block, nil
}
