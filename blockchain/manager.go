// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain implements the chain manager of spec.md §4.8: append
// preconditions, replay-based chain validation, and the bounded reorg
// policy. Grounded on blockdag.BlockDAG's RWMutex-guarded struct
// (dagLock), blockdag/process.go's ordered precondition checks, and
// blockdag/validate.go's sanity/contextual check split — generalized from
// the teacher's GHOSTDAG multi-parent DAG down to spec.md's single-parent
// longest-valid-chain rule (see DESIGN.md's open-question resolution).
package blockchain

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/axnchain/axnd/chaincfg"
	"github.com/axnchain/axnd/chainwire"
	"github.com/axnchain/axnd/ledgererr"
	"github.com/axnchain/axnd/noncetracker"
	"github.com/axnchain/axnd/subsidy"
	"github.com/axnchain/axnd/utxo"
	"github.com/axnchain/axnd/validator"
)

// Checkpoint pins a (height, hash) pair below which reorgs are forbidden
// (spec.md §4.8, "Checkpoints").
type Checkpoint struct {
	Height uint64
	Hash   string
}

// Manager owns the canonical chain, UTXO set, and nonce table: the
// "transactional unit" spec.md §5 describes. chainLock guards every field
// below it, the same coarse-RWMutex discipline blockdag.BlockDAG's dagLock
// uses.
type Manager struct {
	Params *chaincfg.Params

	// Protected mirrors the validator's registered reserve-address
	// policies so every scratch validator Append/ValidateChain/reorg
	// construct sees the same allowlists (spec.md §4.5 check 5).
	Protected map[string]*validator.ProtectedPolicy

	chainLock sync.RWMutex
	blocks    []*chainwire.Block
	utxos     *utxo.Set
	nonces    *noncetracker.Tracker
	supply    chainwire.Amount

	checkpoints []Checkpoint

	now func() time.Time
}

// New constructs a Manager seeded with a genesis block and its already
// credited initial UTXO set (spec.md §4.10 hands genesis.CreditInitialUTXOs
// its own utxo.Set; the manager takes ownership of it from that point on).
func New(params *chaincfg.Params, genesisBlock *chainwire.Block, genesisUTXOs *utxo.Set, genesisSupply chainwire.Amount) *Manager {
	return &Manager{
		Params:    params,
		Protected: make(map[string]*validator.ProtectedPolicy),
		blocks:    []*chainwire.Block{genesisBlock},
		utxos:     genesisUTXOs,
		nonces:    noncetracker.New(),
		supply:    genesisSupply,
		now:       time.Now,
	}
}

// Tip returns the current chain tip.
func (m *Manager) Tip() *chainwire.Block {
	m.chainLock.RLock()
	defer m.chainLock.RUnlock()
	return m.blocks[len(m.blocks)-1]
}

// Height returns the current tip's height.
func (m *Manager) Height() uint64 {
	m.chainLock.RLock()
	defer m.chainLock.RUnlock()
	return m.blocks[len(m.blocks)-1].Index
}

// Supply returns the total coin supply emitted so far.
func (m *Manager) Supply() chainwire.Amount {
	m.chainLock.RLock()
	defer m.chainLock.RUnlock()
	return m.supply
}

// UTXOs returns the manager's live UTXO set. Callers (the mempool, the
// validator backing admission) share this instance; Append and reorg
// replace it wholesale on state transitions, so callers must re-fetch it
// after any write operation rather than caching the pointer.
func (m *Manager) UTXOs() *utxo.Set {
	m.chainLock.RLock()
	defer m.chainLock.RUnlock()
	return m.utxos
}

// Nonces returns the manager's live nonce tracker, with the same
// re-fetch-after-write caveat as UTXOs.
func (m *Manager) Nonces() *noncetracker.Tracker {
	m.chainLock.RLock()
	defer m.chainLock.RUnlock()
	return m.nonces
}

// GetBlockByIndex returns the block at height, or (nil, false) if height is
// out of range.
func (m *Manager) GetBlockByIndex(height uint64) (*chainwire.Block, bool) {
	m.chainLock.RLock()
	defer m.chainLock.RUnlock()
	if height >= uint64(len(m.blocks)) {
		return nil, false
	}
	return m.blocks[height], true
}

// GetBlockByHash returns the block whose hash equals hash, or (nil, false)
// if no such block exists.
func (m *Manager) GetBlockByHash(hash string) (*chainwire.Block, bool) {
	m.chainLock.RLock()
	defer m.chainLock.RUnlock()
	for _, b := range m.blocks {
		if b.Hash == hash {
			return b, true
		}
	}
	return nil, false
}

// RegisterProtectedAddress marks address as governed by policy for every
// future Append/ValidateChain/reorg scratch validator (spec.md §6,
// register_protected_address).
func (m *Manager) RegisterProtectedAddress(address string, policy *validator.ProtectedPolicy) {
	m.chainLock.Lock()
	defer m.chainLock.Unlock()
	m.Protected[address] = policy
}

// AppendResult carries the bookkeeping the ledger composition layer needs
// after a successful Append: which transactions were just confirmed (so
// the mempool can evict and resync) and the new chain state.
type AppendResult struct {
	IncludedTxIDs []string
	NewUTXOs      *utxo.Set
	NewNonces     *noncetracker.Tracker
}

// Append validates block against every precondition of spec.md §4.8 and,
// on success, atomically extends the chain. Validation runs entirely
// against clones of the live UTXO set and nonce table; the live state is
// only replaced once every check for the whole block has passed, so a
// rejected block leaves prior state completely untouched.
func (m *Manager) Append(block *chainwire.Block) (*AppendResult, error) {
	m.chainLock.Lock()
	defer m.chainLock.Unlock()

	tip := m.blocks[len(m.blocks)-1]
	if err := checkLink(block, tip); err != nil {
		return nil, err
	}
	if err := checkTimestamp(block, tip, m.Params.MaxFutureDrift, m.now()); err != nil {
		return nil, err
	}
	if err := checkHashAndPoW(block); err != nil {
		return nil, err
	}
	if err := checkMerkleRoot(block); err != nil {
		return nil, err
	}
	if err := checkCoinbaseShape(block); err != nil {
		return nil, err
	}

	scratchUTXO := m.utxos.Clone()
	scratchNonces := m.nonces.Clone()

	totalFees, includedTxIDs, err := applyBody(m.Params, scratchUTXO, scratchNonces, m.Protected, block)
	if err != nil {
		return nil, err
	}

	coinbase := block.Coinbase()
	baseReward := subsidy.ForHeight(block.Index, m.Params.InitialBlockReward, m.Params.HalvingInterval, m.Params.MinRewardFloor)
	baseReward = subsidy.CapToSupply(baseReward, m.supply, m.Params.MaxSupply)
	if coinbase.Amount > baseReward+totalFees {
		return nil, ledgererr.New(ledgererr.ErrCoinbaseMisuse,
			"coinbase amount %s exceeds reward %s plus fees %s", coinbase.Amount, baseReward, totalFees)
	}

	// Only baseReward is newly minted; totalFees are existing coins the
	// coinbase redistributes from the block's senders, so they must not
	// advance the running supply (spec.md §4.9, P1: total unspent value
	// equals cumulative emitted rewards).
	newSupply := m.supply + baseReward
	if newSupply > m.Params.MaxSupply {
		return nil, ledgererr.New(ledgererr.ErrSupplyCapExceeded,
			"appending block %d would bring supply to %s, above the cap %s", block.Index, newSupply, m.Params.MaxSupply)
	}

	scratchUTXO.Credit(coinbase.Recipient, coinbase.TxID, coinbase.Amount, block.Index)

	m.utxos = scratchUTXO
	m.nonces = scratchNonces
	m.supply = newSupply
	m.blocks = append(m.blocks, block)

	if m.Params.CheckpointInterval > 0 && block.Index%m.Params.CheckpointInterval == 0 {
		m.checkpoints = append(m.checkpoints, Checkpoint{Height: block.Index, Hash: block.Hash})
	}

	log.Infof("appended block %d (hash %s, %d transactions, supply now %s)",
		block.Index, block.Hash, len(block.Transactions), newSupply)

	return &AppendResult{IncludedTxIDs: includedTxIDs, NewUTXOs: m.utxos, NewNonces: m.nonces}, nil
}

func checkLink(block, tip *chainwire.Block) error {
	if block.Index != tip.Index+1 {
		return ledgererr.New(ledgererr.ErrInvalidBlockLink, "block index %d does not extend tip %d", block.Index, tip.Index)
	}
	if block.PreviousHash != tip.Hash {
		return ledgererr.New(ledgererr.ErrInvalidBlockLink, "block previous_hash %s does not match tip hash %s", block.PreviousHash, tip.Hash)
	}
	return nil
}

func checkTimestamp(block, tip *chainwire.Block, maxFutureDrift time.Duration, now time.Time) error {
	if block.Timestamp < tip.Timestamp {
		return ledgererr.New(ledgererr.ErrNonMonotonicTimestamp, "block timestamp %d precedes tip timestamp %d", block.Timestamp, tip.Timestamp)
	}
	latest := now.Add(maxFutureDrift).Unix()
	if block.Timestamp > latest {
		return ledgererr.New(ledgererr.ErrFutureTimestamp, "block timestamp %d exceeds now+drift %d", block.Timestamp, latest)
	}
	return nil
}

func checkHashAndPoW(block *chainwire.Block) error {
	recomputed, err := block.CanonicalHash()
	if err != nil {
		return ledgererr.New(ledgererr.ErrInvalidPoW, "failed to recompute block hash: %v", err)
	}
	if recomputed != block.Hash {
		return ledgererr.New(ledgererr.ErrInvalidPoW, "block hash %s does not match recomputed hash %s", block.Hash, recomputed)
	}
	if !chainwire.MeetsDifficulty(block.Hash, block.Difficulty) {
		return ledgererr.New(ledgererr.ErrInvalidPoW, "block hash %s does not meet difficulty %d", block.Hash, block.Difficulty)
	}
	return nil
}

func checkMerkleRoot(block *chainwire.Block) error {
	recomputed := chainwire.CalculateMerkleRoot(block.Transactions)
	if recomputed != block.MerkleRoot {
		return ledgererr.New(ledgererr.ErrBadMerkleRoot, "merkle root %s does not match recomputed root %s", block.MerkleRoot, recomputed)
	}
	return nil
}

func checkCoinbaseShape(block *chainwire.Block) error {
	if len(block.Transactions) == 0 || !block.Transactions[0].IsCoinbase() {
		return ledgererr.New(ledgererr.ErrCoinbaseMisuse, "block %d has no coinbase at position 0", block.Index)
	}
	for i, tx := range block.Transactions[1:] {
		if tx.IsCoinbase() {
			return ledgererr.New(ledgererr.ErrCoinbaseMisuse, "block %d has a second coinbase at position %d", block.Index, i+1)
		}
	}
	return nil
}

// applyBody validates and applies every non-coinbase transaction in block
// against utxos/nonces in listed order, so each check sees the state left
// by the transactions before it (spec.md §4.8: "intra-block state advances
// in listed order"). It returns the sum of fees paid and the included
// txids, or the first validation error encountered.
func applyBody(params *chaincfg.Params, utxos *utxo.Set, nonces *noncetracker.Tracker, protected map[string]*validator.ProtectedPolicy, block *chainwire.Block) (chainwire.Amount, []string, error) {
	height := block.Index
	v := validator.New(params, utxos, nonces, func() uint64 { return height }, nil)
	for addr, policy := range protected {
		v.RegisterProtectedAddress(addr, policy)
	}

	var totalFees chainwire.Amount
	includedTxIDs := make([]string, 0, len(block.Transactions)-1)
	for _, tx := range block.Transactions[1:] {
		outcome, err := v.Validate(tx)
		if err != nil {
			return 0, nil, errors.Wrapf(err, "block %d: transaction %s", block.Index, tx.TxID)
		}
		utxos.ApplySpend(tx.Sender, tx.TxID, outcome.ChosenEntries, tx.Amount+tx.Fee, height)
		utxos.Credit(tx.Recipient, tx.TxID, tx.Amount, height)
		nonces.Commit(tx.Sender, *tx.Nonce)
		totalFees += tx.Fee
		includedTxIDs = append(includedTxIDs, tx.TxID)
	}
	return totalFees, includedTxIDs, nil
}

// ValidateChain replays every block from genesis against a scratch UTXO
// set and nonce table (spec.md §4.8, validate_chain), returning the first
// rule violation encountered. It never mutates the manager's live state.
func (m *Manager) ValidateChain() error {
	m.chainLock.RLock()
	blocks := make([]*chainwire.Block, len(m.blocks))
	copy(blocks, m.blocks)
	params := m.Params
	protected := m.Protected
	m.chainLock.RUnlock()

	if len(blocks) == 0 {
		return nil
	}

	scratchUTXO := utxo.New()
	scratchNonces := noncetracker.New()
	genesisBlock := blocks[0]
	for _, tx := range genesisBlock.Transactions {
		if tx.Recipient != "" {
			scratchUTXO.Credit(tx.Recipient, tx.TxID, tx.Amount, 0)
		}
	}

	for i := 1; i < len(blocks); i++ {
		block, prev := blocks[i], blocks[i-1]
		if err := checkLink(block, prev); err != nil {
			return err
		}
		if err := checkTimestamp(block, prev, params.MaxFutureDrift, time.Now()); err != nil {
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
		if _, _, err := applyBody(params, scratchUTXO, scratchNonces, protected, block); err != nil {
			return err
		}
		coinbase := block.Coinbase()
		scratchUTXO.Credit(coinbase.Recipient, coinbase.TxID, coinbase.Amount, block.Index)
	}
	return nil
}
