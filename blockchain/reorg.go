// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"time"

	"github.com/axnchain/axnd/chainwire"
	"github.com/axnchain/axnd/ledgererr"
	"github.com/axnchain/axnd/noncetracker"
	"github.com/axnchain/axnd/subsidy"
	"github.com/axnchain/axnd/utxo"
)

// Checkpoints returns a copy of the manager's recorded checkpoints.
func (m *Manager) Checkpoints() []Checkpoint {
	m.chainLock.RLock()
	defer m.chainLock.RUnlock()
	out := make([]Checkpoint, len(m.checkpoints))
	copy(out, m.checkpoints)
	return out
}

// AddCheckpoint pins a (height, hash) pair below which TryReorg refuses to
// cross (spec.md §4.8, "Checkpoints are sparsely populated, immutable once
// recorded"). It is a no-op if height does not match the block actually at
// that height, or if a checkpoint already exists for it.
func (m *Manager) AddCheckpoint(height uint64, hash string) bool {
	m.chainLock.Lock()
	defer m.chainLock.Unlock()
	if height >= uint64(len(m.blocks)) || m.blocks[height].Hash != hash {
		return false
	}
	for _, c := range m.checkpoints {
		if c.Height == height {
			return false
		}
	}
	m.checkpoints = append(m.checkpoints, Checkpoint{Height: height, Hash: hash})
	return true
}

func (m *Manager) lastCheckpointHeightLocked() (uint64, bool) {
	var best uint64
	found := false
	for _, c := range m.checkpoints {
		if !found || c.Height > best {
			best = c.Height
			found = true
		}
	}
	return best, found
}

// cumulativeWork sums a suffix's per-block difficulty, the tie-break
// spec.md §4.8 pins for equal-height forks ("Ties are broken by cumulative
// work").
func cumulativeWork(blocks []*chainwire.Block) uint64 {
	var total uint64
	for _, b := range blocks {
		total += uint64(b.Difficulty)
	}
	return total
}

// TryReorg attempts to replace the suffix of the chain after forkHeight
// with newTail, the candidate alternative chain of spec.md §4.8's reorg
// policy. It validates the whole candidate end-to-end against a scratch
// replay of the state at forkHeight before touching any live state, so a
// rejected reorg leaves the chain completely untouched (spec.md §5:
// "Reorgs take a snapshot of the affected prefixes and roll back
// atomically on failure").
func (m *Manager) TryReorg(forkHeight uint64, newTail []*chainwire.Block) error {
	m.chainLock.Lock()
	defer m.chainLock.Unlock()

	currentTipHeight := m.blocks[len(m.blocks)-1].Index
	if forkHeight > currentTipHeight {
		return ledgererr.New(ledgererr.ErrInvalidBlockLink, "fork height %d is beyond the current tip %d", forkHeight, currentTipHeight)
	}
	if currentTipHeight-forkHeight > m.Params.MaxReorgDepth {
		return ledgererr.New(ledgererr.ErrReorgTooDeep, "fork point %d is %d blocks deep, beyond max reorg depth %d",
			forkHeight, currentTipHeight-forkHeight, m.Params.MaxReorgDepth)
	}
	if lastCheckpoint, ok := m.lastCheckpointHeightLocked(); ok && forkHeight < lastCheckpoint {
		return ledgererr.New(ledgererr.ErrReorgTooDeep, "fork point %d crosses checkpoint at height %d", forkHeight, lastCheckpoint)
	}

	candidateHeight := forkHeight + uint64(len(newTail))
	if candidateHeight < currentTipHeight {
		return ledgererr.New(ledgererr.ErrInvalidBlockLink, "candidate chain height %d does not exceed current tip %d", candidateHeight, currentTipHeight)
	}
	if candidateHeight == currentTipHeight {
		currentSuffix := m.blocks[forkHeight+1:]
		if cumulativeWork(newTail) <= cumulativeWork(currentSuffix) {
			return ledgererr.New(ledgererr.ErrInvalidBlockLink, "candidate chain at equal height has no greater cumulative work")
		}
	}

	scratchUTXO, scratchNonces, scratchSupply, err := m.replayToHeightLocked(forkHeight)
	if err != nil {
		return err
	}

	prefix := m.blocks[:forkHeight+1]
	prev := prefix[len(prefix)-1]
	for _, block := range newTail {
		if err := checkLink(block, prev); err != nil {
			return err
		}
		if err := checkTimestamp(block, prev, m.Params.MaxFutureDrift, time.Now()); err != nil {
			return err
		}
		if err := checkHashAndPoW(block); err != nil {
			return err
		}
		if err := checkMerkleRoot(block); err != nil {
			return err
		}
		if err := checkCoinbaseShape(block); err != nil {
			return err
		}

		totalFees, _, err := applyBody(m.Params, scratchUTXO, scratchNonces, m.Protected, block)
		if err != nil {
			return err
		}

		coinbase := block.Coinbase()
		baseReward := subsidy.ForHeight(block.Index, m.Params.InitialBlockReward, m.Params.HalvingInterval, m.Params.MinRewardFloor)
		baseReward = subsidy.CapToSupply(baseReward, scratchSupply, m.Params.MaxSupply)
		if coinbase.Amount > baseReward+totalFees {
			return ledgererr.New(ledgererr.ErrCoinbaseMisuse, "candidate block %d overpays its reward", block.Index)
		}
		scratchSupply += baseReward
		if scratchSupply > m.Params.MaxSupply {
			return ledgererr.New(ledgererr.ErrSupplyCapExceeded, "candidate chain would exceed the supply cap at block %d", block.Index)
		}
		scratchUTXO.Credit(coinbase.Recipient, coinbase.TxID, coinbase.Amount, block.Index)

		prev = block
	}

	newBlocks := make([]*chainwire.Block, 0, len(prefix)+len(newTail))
	newBlocks = append(newBlocks, prefix...)
	newBlocks = append(newBlocks, newTail...)

	keptCheckpoints := m.checkpoints[:0:0]
	for _, c := range m.checkpoints {
		if c.Height <= forkHeight {
			keptCheckpoints = append(keptCheckpoints, c)
		}
	}

	m.blocks = newBlocks
	m.utxos = scratchUTXO
	m.nonces = scratchNonces
	m.supply = scratchSupply
	m.checkpoints = keptCheckpoints

	log.Infof("reorg: replaced suffix after height %d with %d new blocks, new tip %d", forkHeight, len(newTail), newBlocks[len(newBlocks)-1].Index)
	return nil
}

// replayToHeightLocked rebuilds a scratch UTXO set, nonce table, and
// running supply by replaying blocks[0..height] inclusive. Callers must
// hold chainLock.
func (m *Manager) replayToHeightLocked(height uint64) (*utxo.Set, *noncetracker.Tracker, chainwire.Amount, error) {
	scratchUTXO := utxo.New()
	scratchNonces := noncetracker.New()
	var supply chainwire.Amount

	genesisBlock := m.blocks[0]
	for _, tx := range genesisBlock.Transactions {
		if tx.Recipient != "" {
			scratchUTXO.Credit(tx.Recipient, tx.TxID, tx.Amount, 0)
			supply += tx.Amount
		}
	}

	for i := uint64(1); i <= height; i++ {
		block := m.blocks[i]
		if _, _, err := applyBody(m.Params, scratchUTXO, scratchNonces, m.Protected, block); err != nil {
			return nil, nil, 0, err
		}
		coinbase := block.Coinbase()
		baseReward := subsidy.ForHeight(block.Index, m.Params.InitialBlockReward, m.Params.HalvingInterval, m.Params.MinRewardFloor)
		baseReward = subsidy.CapToSupply(baseReward, supply, m.Params.MaxSupply)
		scratchUTXO.Credit(coinbase.Recipient, coinbase.TxID, coinbase.Amount, block.Index)
		supply += baseReward
	}
	return scratchUTXO, scratchNonces, supply, nil
}
