// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool implements the size-bounded, FIFO-ordered pending
// transaction set of spec.md §4.6. Admission runs the validator's ordered
// checks; draining for a new block returns a deterministic order via a
// container/heap priority queue (txPriorityQueue, below).
package mempool

import (
	"container/heap"
	"sync"

	"github.com/axnchain/axnd/chainwire"
	"github.com/axnchain/axnd/ledgererr"
	"github.com/axnchain/axnd/noncetracker"
	"github.com/axnchain/axnd/utxo"
	"github.com/axnchain/axnd/validator"
)

// entry couples an admitted transaction with the bookkeeping needed to
// release its reservations on eviction.
type entry struct {
	tx            *chainwire.Transaction
	chosenEntries []*utxo.Entry
	riskLevel     string
}

// Pool is the mempool: a size-bounded, FIFO-admitted set of validated
// transactions.
type Pool struct {
	mtx       sync.Mutex
	validator *validator.Validator
	nonces    *noncetracker.Tracker
	utxos     *utxo.Set
	maxSize   int

	byTxID map[string]*entry
}

// New returns an empty Pool bounded to maxSize transactions.
func New(v *validator.Validator, nonces *noncetracker.Tracker, utxos *utxo.Set, maxSize int) *Pool {
	return &Pool{
		validator: v,
		nonces:    nonces,
		utxos:     utxos,
		maxSize:   maxSize,
		byTxID:    make(map[string]*entry),
	}
}

// Size returns the number of transactions currently admitted.
func (p *Pool) Size() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.byTxID)
}

// RiskLevel returns the non-authoritative risk annotation recorded for
// txid at admission time, and whether txid is currently in the pool.
func (p *Pool) RiskLevel(txid string) (string, bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	e, ok := p.byTxID[txid]
	if !ok {
		return "", false
	}
	return e.riskLevel, true
}

// Contains reports whether txid is currently admitted.
func (p *Pool) Contains(txid string) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	_, ok := p.byTxID[txid]
	return ok
}

// Snapshot returns every currently admitted transaction, for the
// composition layer to persist as pending_transactions.json (spec.md §6).
// The returned order is not meaningful; callers needing block-assembly
// order must use DrainForBlock instead.
func (p *Pool) Snapshot() []*chainwire.Transaction {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	out := make([]*chainwire.Transaction, 0, len(p.byTxID))
	for _, e := range p.byTxID {
		out = append(out, e.tx)
	}
	return out
}

// RegisterProtectedAddress propagates a newly registered reserve-address
// policy (spec.md §6, register_protected_address) to the validator backing
// mempool admission, so a transaction submitted immediately after
// registration is checked against it.
func (p *Pool) RegisterProtectedAddress(address string, policy *validator.ProtectedPolicy) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.validator.RegisterProtectedAddress(address, policy)
}

// Admit runs the ordered validator checks against tx and, on success,
// reserves its chosen UTXO entries and its sender's nonce so a later
// transaction cannot double-spend or replay it while it sits in the pool.
// When the pool is at capacity, Admit fails closed with ErrMempoolFull
// without running validation (spec.md §4.6).
func (p *Pool) Admit(tx *chainwire.Transaction) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if _, exists := p.byTxID[tx.TxID]; exists {
		return ledgererr.New(ledgererr.ErrDuplicateTxid, "transaction %s already in the mempool", tx.TxID)
	}
	if len(p.byTxID) >= p.maxSize {
		return ledgererr.New(ledgererr.ErrMempoolFull, "mempool at capacity (%d)", p.maxSize)
	}
	if !tx.IsCoinbase() && tx.Nonce != nil {
		if reserved, ok := p.nonces.Reserved(tx.Sender); ok && reserved == *tx.Nonce {
			return ledgererr.New(ledgererr.ErrBadNonce,
				"nonce %d for %s is already reserved by a pending transaction", *tx.Nonce, tx.Sender)
		}
	}

	outcome, err := p.validator.Validate(tx)
	if err != nil {
		return err
	}

	if !tx.IsCoinbase() {
		p.utxos.Reserve(tx.Sender, tx.TxID, outcome.ChosenEntries)
		p.nonces.Reserve(tx.Sender, *tx.Nonce)
	}

	p.byTxID[tx.TxID] = &entry{
		tx:            tx,
		chosenEntries: outcome.ChosenEntries,
		riskLevel:     outcome.RiskLevel,
	}
	return nil
}

// Evict removes txid from the pool, releasing any reservations it held.
// Evicting an unknown txid is a no-op.
func (p *Pool) Evict(txid string) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.evictLocked(txid)
}

func (p *Pool) evictLocked(txid string) {
	e, ok := p.byTxID[txid]
	if !ok {
		return
	}
	if !e.tx.IsCoinbase() {
		p.utxos.Release(e.tx.Sender, txid, e.chosenEntries)
		p.nonces.Release(e.tx.Sender)
	}
	delete(p.byTxID, txid)
}

// DrainForBlock returns every admitted transaction in the deterministic
// order spec.md §4.6 pins: tie-break by (fee desc, nonce asc, txid asc).
// It does not remove the transactions from the pool or release their
// reservations — the caller (the block assembler, then the chain manager
// on append) is responsible for calling Evict once a transaction is
// confirmed.
func (p *Pool) DrainForBlock() []*chainwire.Transaction {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	pq := newTxPriorityQueue(len(p.byTxID))
	for _, e := range p.byTxID {
		heap.Push(pq, e)
	}

	ordered := make([]*chainwire.Transaction, 0, pq.Len())
	for pq.Len() > 0 {
		e := heap.Pop(pq).(*entry)
		ordered = append(ordered, e.tx)
	}
	return ordered
}

// Resync re-points the pool at the chain state left by a just-applied block
// (spec.md §4.6, §4.8): it evicts every confirmed txid, swaps in the new
// UTXO set and nonce tracker, then silently re-validates and re-reserves
// every still-pending transaction against that new state. A pending
// transaction that no longer validates (e.g. it was double-spent by the
// confirmed block) is dropped rather than re-admitted. This exists because
// utxo.Set.Clone/noncetracker.Tracker.Clone deliberately drop the
// reservation overlay when building the chain manager's scratch state for
// Append — a correctness requirement for validating the block's own
// transactions, but one that otherwise strands every other pending
// transaction's reservation on the discarded old UTXO set.
func (p *Pool) Resync(newUTXOs *utxo.Set, newNonces *noncetracker.Tracker, confirmedTxIDs []string) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for _, txid := range confirmedTxIDs {
		delete(p.byTxID, txid)
	}

	remaining := p.byTxID
	p.byTxID = make(map[string]*entry, len(remaining))
	p.utxos = newUTXOs
	p.nonces = newNonces
	p.validator.UTXOs = newUTXOs
	p.validator.Nonces = newNonces

	for txid, e := range remaining {
		outcome, err := p.validator.Validate(e.tx)
		if err != nil {
			log.Debugf("mempool: dropping %s on resync: %v", txid, err)
			continue
		}
		if !e.tx.IsCoinbase() {
			p.utxos.Reserve(e.tx.Sender, e.tx.TxID, outcome.ChosenEntries)
			p.nonces.Reserve(e.tx.Sender, *e.tx.Nonce)
		}
		p.byTxID[txid] = &entry{tx: e.tx, chosenEntries: outcome.ChosenEntries, riskLevel: outcome.RiskLevel}
	}
}

// txPriorityQueue implements heap.Interface over mempool entries, ordering
// by (fee desc, nonce asc, txid asc) as spec.md §4.6 requires.
type txPriorityQueue struct {
	items []*entry
}

func newTxPriorityQueue(reserve int) *txPriorityQueue {
	pq := &txPriorityQueue{items: make([]*entry, 0, reserve)}
	heap.Init(pq)
	return pq
}

func (pq *txPriorityQueue) Len() int { return len(pq.items) }

func (pq *txPriorityQueue) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.tx.Fee != b.tx.Fee {
		return a.tx.Fee > b.tx.Fee
	}
	aNonce, bNonce := nonceOf(a.tx), nonceOf(b.tx)
	if aNonce != bNonce {
		return aNonce < bNonce
	}
	return a.tx.TxID < b.tx.TxID
}

func nonceOf(tx *chainwire.Transaction) uint64 {
	if tx.Nonce == nil {
		return 0
	}
	return *tx.Nonce
}

func (pq *txPriorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *txPriorityQueue) Push(x interface{}) {
	pq.items = append(pq.items, x.(*entry))
}

func (pq *txPriorityQueue) Pop() interface{} {
	n := len(pq.items)
	item := pq.items[n-1]
	pq.items[n-1] = nil
	pq.items = pq.items[:n-1]
	return item
}
