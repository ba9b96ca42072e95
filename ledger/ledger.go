// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledger is the core's composition root (spec.md §5, §6): a single
// handle tying together the chain manager, the mempool, and the validator
// they share, exposing the Core API and an event bus. Grounded on
// blockdag.BlockDAG's single RWMutex-guarded struct generalized to this
// module's narrower single-chain model, plus connmgr's
// callback-registration idiom for subscribe (see eventbus.go).
package ledger

import (
	"sync"

	"github.com/axnchain/axnd/blockchain"
	"github.com/axnchain/axnd/chaincfg"
	"github.com/axnchain/axnd/chainwire"
	"github.com/axnchain/axnd/mempool"
	"github.com/axnchain/axnd/mining"
	"github.com/axnchain/axnd/store"
	"github.com/axnchain/axnd/txindex"
	"github.com/axnchain/axnd/validator"
)

// Handle is the core's single entry point. spec.md §5 describes its
// scheduling model as "many readers may proceed in parallel; writers are
// exclusive": balance/history/tip/supply/get_block/validate_chain read
// through to state that chain.Manager and mempool.Pool already guard with
// their own locks, while writeMtx serializes the multi-step writer
// operations below (submit_transaction, mine_block, a reorg,
// register_protected_address) against each other.
type Handle struct {
	params *chaincfg.Params

	writeMtx sync.Mutex
	chain    *blockchain.Manager
	pool     *mempool.Pool

	// store and txIndex are optional: a Handle built without persistence
	// (e.g. in tests) runs purely in memory.
	store   *store.Store
	txIndex *txindex.Index

	events *EventBus
}

// New wires a Handle from an already-constructed chain manager and
// mempool. persistence and idx may be nil to run without on-disk state or
// the txid secondary index.
func New(params *chaincfg.Params, chain *blockchain.Manager, pool *mempool.Pool, persistence *store.Store, idx *txindex.Index) *Handle {
	return &Handle{
		params:  params,
		chain:   chain,
		pool:    pool,
		store:   persistence,
		txIndex: idx,
		events:  NewEventBus(),
	}
}

// Subscribe registers callback to run on every future event of kind
// (spec.md §6, subscribe).
func (h *Handle) Subscribe(kind EventKind, callback func(Event)) {
	h.events.Subscribe(kind, callback)
}

// SubmitTransaction admits tx to the mempool (spec.md §6,
// submit_transaction). On success it publishes TxAdmitted and persists the
// pending set so a restart does not lose it.
func (h *Handle) SubmitTransaction(tx *chainwire.Transaction) (string, error) {
	h.writeMtx.Lock()
	defer h.writeMtx.Unlock()

	if err := h.pool.Admit(tx); err != nil {
		return "", err
	}
	h.persistPendingLocked()
	h.events.publish(Event{Kind: TxAdmitted, TxID: tx.TxID})
	return tx.TxID, nil
}

// MineBlock assembles and mines a candidate block against the current tip
// and mempool, appends it to the chain, resyncs the mempool against the
// resulting state, and persists the new block and UTXO snapshot (spec.md
// §6, mine_block). shouldStop is the cooperative cancellation signal
// mining.Mine polls.
func (h *Handle) MineBlock(minerAddress string, shouldStop func() bool) (*chainwire.Block, error) {
	h.writeMtx.Lock()
	defer h.writeMtx.Unlock()

	tip := h.chain.Tip()
	block, err := mining.MineBlock(h.params, tip, h.chain.Supply(), minerAddress, h.pool, shouldStop)
	if err != nil {
		return nil, err
	}

	result, err := h.chain.Append(block)
	if err != nil {
		return nil, err
	}
	h.pool.Resync(result.NewUTXOs, result.NewNonces, result.IncludedTxIDs)

	h.persistAppendedBlockLocked(block)

	h.events.publish(Event{Kind: BlockAppended, Block: block})
	for _, txid := range result.IncludedTxIDs {
		h.events.publish(Event{Kind: TxConfirmed, TxID: txid})
	}
	return block, nil
}

// ApplyReorg validates and, on success, applies a candidate alternative
// chain (spec.md §4.8) via chain.Manager.TryReorg, then resyncs the
// mempool and persists the newly canonical blocks.
func (h *Handle) ApplyReorg(forkHeight uint64, newTail []*chainwire.Block) error {
	h.writeMtx.Lock()
	defer h.writeMtx.Unlock()

	var discarded []*chainwire.Block
	if h.txIndex != nil {
		for height := forkHeight + 1; height <= h.chain.Height(); height++ {
			if block, ok := h.chain.GetBlockByIndex(height); ok {
				discarded = append(discarded, block)
			}
		}
	}
	if err := h.chain.TryReorg(forkHeight, newTail); err != nil {
		return err
	}

	confirmedTxIDs := make([]string, 0, len(newTail))
	for _, block := range newTail {
		for _, tx := range block.Transactions {
			confirmedTxIDs = append(confirmedTxIDs, tx.TxID)
		}
	}
	h.pool.Resync(h.chain.UTXOs(), h.chain.Nonces(), confirmedTxIDs)

	if h.store != nil {
		for _, block := range newTail {
			if err := h.store.SaveBlock(block); err != nil {
				log.Errorf("persisting reorged block %d: %v", block.Index, err)
			}
		}
		if err := h.store.SaveUTXOSnapshot(h.chain.UTXOs(), h.chain.Height()); err != nil {
			log.Errorf("persisting utxo snapshot after reorg: %v", err)
		}
	}
	if h.txIndex != nil {
		for _, block := range discarded {
			if err := h.txIndex.UnindexBlock(block); err != nil {
				log.Errorf("unindexing discarded block %d: %v", block.Index, err)
			}
		}
		for _, block := range newTail {
			if err := h.txIndex.IndexBlock(block); err != nil {
				log.Errorf("indexing reorged block %d: %v", block.Index, err)
			}
		}
	}
	h.persistPendingLocked()

	h.events.publish(Event{Kind: Reorg, ForkHeight: forkHeight, Block: h.chain.Tip()})
	return nil
}

// Balance returns address's matured balance at the current tip, without
// subtracting mempool reservations (spec.md §6, balance).
func (h *Handle) Balance(address string) chainwire.Amount {
	return h.chain.UTXOs().Balance(address, h.chain.Height())
}

// HistoryRecord is one confirmed transaction touching an address, as
// returned by History.
type HistoryRecord struct {
	TxID      string
	Height    uint64
	BlockHash string
	Sender    string
	Recipient string
	Amount    chainwire.Amount
	Fee       chainwire.Amount
	TxType    chainwire.TxType
	Timestamp int64
}

// History returns every confirmed transaction where address is the sender
// or recipient, in chain order (spec.md §6, history).
func (h *Handle) History(address string) []HistoryRecord {
	var records []HistoryRecord
	for height := uint64(0); height <= h.chain.Height(); height++ {
		block, ok := h.chain.GetBlockByIndex(height)
		if !ok {
			continue
		}
		for _, tx := range block.Transactions {
			if tx.Sender != address && tx.Recipient != address {
				continue
			}
			records = append(records, HistoryRecord{
				TxID:      tx.TxID,
				Height:    block.Index,
				BlockHash: block.Hash,
				Sender:    tx.Sender,
				Recipient: tx.Recipient,
				Amount:    tx.Amount,
				Fee:       tx.Fee,
				TxType:    tx.TxType,
				Timestamp: tx.Timestamp,
			})
		}
	}
	return records
}

// GetBlockByIndex returns the block at height (spec.md §6, get_block).
func (h *Handle) GetBlockByIndex(height uint64) (*chainwire.Block, bool) {
	return h.chain.GetBlockByIndex(height)
}

// GetBlockByHash returns the block whose hash equals hash (spec.md §6,
// get_block).
func (h *Handle) GetBlockByHash(hash string) (*chainwire.Block, bool) {
	return h.chain.GetBlockByHash(hash)
}

// Tip returns the current chain tip's height and hash (spec.md §6, tip).
func (h *Handle) Tip() (uint64, string) {
	tip := h.chain.Tip()
	return tip.Index, tip.Hash
}

// Supply returns the total coin supply emitted so far (spec.md §6,
// supply).
func (h *Handle) Supply() chainwire.Amount {
	return h.chain.Supply()
}

// ValidateChain replays the whole chain from genesis (spec.md §6,
// validate_chain).
func (h *Handle) ValidateChain() error {
	return h.chain.ValidateChain()
}

// RegisterProtectedAddress pins address to policy for both future block
// validation (chain manager) and mempool admission (spec.md §6,
// register_protected_address): a transaction submitted right after
// registration is checked against the new policy immediately.
func (h *Handle) RegisterProtectedAddress(address string, policy *validator.ProtectedPolicy) {
	h.writeMtx.Lock()
	defer h.writeMtx.Unlock()
	h.chain.RegisterProtectedAddress(address, policy)
	h.pool.RegisterProtectedAddress(address, policy)
}

// persistAppendedBlockLocked writes block, the resulting UTXO snapshot,
// and the updated pending set. Persistence failures are logged, not
// returned: the block is already canonical in memory, and the policy of
// spec.md §10 ("the core never recovers from structural inconsistencies")
// governs consensus-level state, not best-effort crash-recovery snapshots.
func (h *Handle) persistAppendedBlockLocked(block *chainwire.Block) {
	if h.store != nil {
		if err := h.store.SaveBlock(block); err != nil {
			log.Errorf("persisting block %d: %v", block.Index, err)
		}
		if err := h.store.SaveUTXOSnapshot(h.chain.UTXOs(), block.Index); err != nil {
			log.Errorf("persisting utxo snapshot at height %d: %v", block.Index, err)
		}
	}
	if h.txIndex != nil {
		if err := h.txIndex.IndexBlock(block); err != nil {
			log.Errorf("indexing block %d: %v", block.Index, err)
		}
	}
	h.persistPendingLocked()
}

func (h *Handle) persistPendingLocked() {
	if h.store == nil {
		return
	}
	if err := h.store.SavePendingTransactions(h.pool.Snapshot()); err != nil {
		log.Errorf("persisting pending transactions: %v", err)
	}
}
