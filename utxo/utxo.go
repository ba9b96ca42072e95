// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package utxo implements the unspent-output set and its reservation
// overlay (spec.md §4.3). An address's unspent outputs are kept as an
// ordered slice of entries so that select_spendable's first-fit scan is
// deterministic (spec.md invariant I3).
package utxo

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/axnchain/axnd/chainwire"
)

// Entry is a single unspent (or formerly unspent) transaction output.
type Entry struct {
	TxID         string
	Amount       chainwire.Amount
	Spent        bool
	UnlockHeight uint64
}

// Set is the UTXO set: unspent outputs indexed by owning address, plus the
// reservation overlay that the mempool uses to prevent two pending
// transactions from double-spending the same entry (spec.md §4.2,
// "Reservation map").
type Set struct {
	mtx    sync.RWMutex
	byAddr map[string][]*Entry

	// reservations maps address -> txid -> reserved amount, mirroring
	// spec.md §4.2's reservation map exactly.
	reservations map[string]map[string]chainwire.Amount
}

// New returns an empty UTXO set.
func New() *Set {
	return &Set{
		byAddr:       make(map[string][]*Entry),
		reservations: make(map[string]map[string]chainwire.Amount),
	}
}

// Credit adds a new unspent entry owned by address, e.g. a transaction
// output or a coinbase reward.
func (s *Set) Credit(address, txid string, amount chainwire.Amount, unlockHeight uint64) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.byAddr[address] = append(s.byAddr[address], &Entry{
		TxID:         txid,
		Amount:       amount,
		UnlockHeight: unlockHeight,
	})
}

// Balance returns the sum of address's unspent entries whose unlock_height
// has matured by currentHeight (spec.md §4.3,
// "balance(address, current_height)"). Reservations are not subtracted;
// SpendableBalance does that.
func (s *Set) Balance(address string, currentHeight uint64) chainwire.Amount {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.balanceLocked(address, currentHeight)
}

// SpendableBalance returns address's matured unspent balance minus whatever
// is currently reserved by pending mempool transactions.
func (s *Set) SpendableBalance(address string, currentHeight uint64) chainwire.Amount {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.balanceLocked(address, currentHeight) - s.reservedLocked(address)
}

func (s *Set) balanceLocked(address string, currentHeight uint64) chainwire.Amount {
	var total chainwire.Amount
	for _, e := range s.byAddr[address] {
		if !e.Spent && e.UnlockHeight <= currentHeight {
			total += e.Amount
		}
	}
	return total
}

func (s *Set) reservedLocked(address string) chainwire.Amount {
	var total chainwire.Amount
	for _, amt := range s.reservations[address] {
		total += amt
	}
	return total
}

// TotalUnspent returns the sum of every unspent entry across every
// address, used to cross-check invariant I1 against cumulative coinbase
// issuance.
func (s *Set) TotalUnspent() chainwire.Amount {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	var total chainwire.Amount
	for _, entries := range s.byAddr {
		for _, e := range entries {
			if !e.Spent {
				total += e.Amount
			}
		}
	}
	return total
}

// SelectSpendable performs the deterministic first-fit scan spec.md §4.3
// describes: walk address's entries in stored order, skipping spent,
// reserved, or not-yet-matured ones, accumulating until the running sum
// reaches amountNeeded. It returns the shortest such prefix, or ok=false if
// no prefix suffices. SelectSpendable does not mutate the set — it is
// pure, matching invariant I3.
func (s *Set) SelectSpendable(address string, amountNeeded chainwire.Amount, currentHeight uint64) (entries []*Entry, ok bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	reserved := s.reservations[address]

	var chosen []*Entry
	var sum chainwire.Amount
	for _, e := range s.byAddr[address] {
		if e.Spent || e.UnlockHeight > currentHeight {
			continue
		}
		if _, isReserved := reserved[e.TxID]; isReserved {
			continue
		}
		chosen = append(chosen, e)
		sum += e.Amount
		if sum >= amountNeeded {
			return chosen, true
		}
	}
	return nil, false
}

// Reserve marks entries as tentatively committed to txid, so a concurrent
// SelectSpendable call skips them until Release or ApplySpend runs.
func (s *Set) Reserve(address, txid string, entries []*Entry) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.reserveLocked(address, txid, entries)
}

func (s *Set) reserveLocked(address, txid string, entries []*Entry) {
	bucket, ok := s.reservations[address]
	if !ok {
		bucket = make(map[string]chainwire.Amount)
		s.reservations[address] = bucket
	}
	for _, e := range entries {
		bucket[e.TxID] = e.Amount
	}
}

// Release clears txid's reservation for address, e.g. after the
// reserving transaction is evicted from the mempool without being mined.
func (s *Set) Release(address, txid string, entries []*Entry) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	bucket, ok := s.reservations[address]
	if !ok {
		return
	}
	for _, e := range entries {
		delete(bucket, e.TxID)
	}
	if len(bucket) == 0 {
		delete(s.reservations, address)
	}
}

// ApplySpend marks chosenEntries spent and, if their sum exceeds
// amount+fee, credits the remainder back to owner as a change entry with
// the synthetic txid "<parentTxID>:change:<inputTxID>" (spec.md §4.3).
// Any reservation held by parentTxID over chosenEntries is cleared.
func (s *Set) ApplySpend(owner, parentTxID string, chosenEntries []*Entry, amountPlusFee chainwire.Amount, blockHeight uint64) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var sum chainwire.Amount
	for _, e := range chosenEntries {
		e.Spent = true
		sum += e.Amount
	}

	if bucket, ok := s.reservations[owner]; ok {
		for _, e := range chosenEntries {
			delete(bucket, e.TxID)
		}
		if len(bucket) == 0 {
			delete(s.reservations, owner)
		}
	}

	if remainder := sum - amountPlusFee; remainder > 0 {
		changeTxID := fmt.Sprintf("%s:change:%s", parentTxID, firstInputTxID(chosenEntries))
		s.byAddr[owner] = append(s.byAddr[owner], &Entry{
			TxID:         changeTxID,
			Amount:       remainder,
			UnlockHeight: blockHeight,
		})
	}
}

func firstInputTxID(entries []*Entry) string {
	if len(entries) == 0 {
		return ""
	}
	return entries[0].TxID
}

// Clone returns a deep, independent copy of the set's entries, without the
// reservation overlay, for use as the scratch UTXO set a block is applied
// to before it becomes canonical.
func (s *Set) Clone() *Set {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	clone := New()
	for addr, entries := range s.byAddr {
		cloned := make([]*Entry, len(entries))
		for i, e := range entries {
			copyOf := *e
			cloned[i] = &copyOf
		}
		clone.byAddr[addr] = cloned
	}
	return clone
}

// Export returns a deep copy of every address's entry slice, keyed by
// address, for the persistence layer to serialize (spec.md §6, utxo_set.json).
// Reservations are deliberately omitted: they are mempool-local state, not
// chain state, so a restart starts with a clean reservation overlay.
func (s *Set) Export() map[string][]*Entry {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	out := make(map[string][]*Entry, len(s.byAddr))
	for addr, entries := range s.byAddr {
		cloned := make([]*Entry, len(entries))
		for i, e := range entries {
			copyOf := *e
			cloned[i] = &copyOf
		}
		out[addr] = cloned
	}
	return out
}

// Import adds entry to address's entry slice as-is, the inverse of Export,
// for rebuilding a Set from a persisted snapshot.
func (s *Set) Import(address string, entry *Entry) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.byAddr[address] = append(s.byAddr[address], entry)
}

// String renders the set deterministically for debugging and golden-file
// tests, sorting addresses and entries the way blockdag's utxoCollection
// does.
func (s *Set) String() string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	addrs := make([]string, 0, len(s.byAddr))
	for addr := range s.byAddr {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	lines := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		for _, e := range s.byAddr[addr] {
			lines = append(lines, fmt.Sprintf("%s: (%s, spent=%v) => %s", addr, e.TxID, e.Spent, e.Amount))
		}
	}
	return fmt.Sprintf("[ %s ]", strings.Join(lines, ", "))
}
