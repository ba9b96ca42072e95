// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store persists the ledger's on-disk state (spec.md §6):
// one-block-per-file canonical JSON, a UTXO set snapshot, the pending
// transaction set, and sparse checkpoints. It is pure I/O — recognizing a
// stale or corrupt snapshot and replaying from genesis to rebuild it is the
// ledger composition layer's job, not this package's.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/axnchain/axnd/chainwire"
	"github.com/axnchain/axnd/utxo"
)

// Store roots every persisted file under a data directory, the way
// blockdag/dagio.go's block-per-file layout roots everything under the
// node's configured database/data path.
type Store struct {
	dataDir string
}

// Open returns a Store rooted at dataDir, creating the directory layout
// spec.md §6 names if it does not already exist.
func Open(dataDir string) (*Store, error) {
	s := &Store{dataDir: dataDir}
	for _, dir := range []string{s.blocksDir(), s.checkpointsDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, errors.Wrapf(err, "store: creating %s", dir)
		}
	}
	return s, nil
}

func (s *Store) blocksDir() string        { return filepath.Join(s.dataDir, "blocks") }
func (s *Store) checkpointsDir() string    { return filepath.Join(s.dataDir, "checkpoints") }
func (s *Store) utxoSnapshotPath() string  { return filepath.Join(s.dataDir, "utxo_set.json") }
func (s *Store) pendingTxPath() string     { return filepath.Join(s.dataDir, "pending_transactions.json") }
func (s *Store) blockPath(index uint64) string {
	return filepath.Join(s.blocksDir(), strconv.FormatUint(index, 10)+".json")
}

// SaveBlock writes block to blocks/<index>.json as canonical JSON.
func (s *Store) SaveBlock(block *chainwire.Block) error {
	encoded, err := block.Serialize()
	if err != nil {
		return errors.Wrapf(err, "store: serializing block %d", block.Index)
	}
	if err := os.WriteFile(s.blockPath(block.Index), encoded, 0600); err != nil {
		return errors.Wrapf(err, "store: writing block %d", block.Index)
	}
	return nil
}

// LoadBlock reads blocks/<index>.json, or returns (nil, false, nil) if it
// does not exist.
func (s *Store) LoadBlock(index uint64) (*chainwire.Block, bool, error) {
	raw, err := os.ReadFile(s.blockPath(index))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "store: reading block %d", index)
	}
	block, err := chainwire.DeserializeBlock(raw)
	if err != nil {
		return nil, false, errors.Wrapf(err, "store: parsing block %d", index)
	}
	return block, true, nil
}

// LoadChain reads every contiguous block starting from genesis (index 0)
// until the first missing index, the way startup re-derives the chain from
// blocks/<index>.json before falling back to a UTXO replay.
func (s *Store) LoadChain() ([]*chainwire.Block, error) {
	var blocks []*chainwire.Block
	for index := uint64(0); ; index++ {
		block, ok, err := s.LoadBlock(index)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// utxoEntryRecord is the on-disk shape of a utxo.Entry (spec.md §6:
// "entry fields are {txid, amount, spent, unlock_height}").
type utxoEntryRecord struct {
	TxID         string           `json:"txid"`
	Amount       chainwire.Amount `json:"amount"`
	Spent        bool             `json:"spent"`
	UnlockHeight uint64           `json:"unlock_height"`
}

// utxoSnapshot is the on-disk shape of utxo_set.json: Address -> [entry],
// tagged with the height it was taken at and a self-describing checksum so
// a reader can detect silent corruption or a crash mid-write.
type utxoSnapshot struct {
	Height   uint64                       `json:"height"`
	Entries  map[string][]utxoEntryRecord `json:"entries"`
	Checksum string                       `json:"checksum"`
}

func checksumEntries(height uint64, entries map[string][]utxoEntryRecord) string {
	addrs := make([]string, 0, len(entries))
	for addr := range entries {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	var b strings.Builder
	b.WriteString(strconv.FormatUint(height, 10))
	b.WriteByte('\n')
	for _, addr := range addrs {
		for _, e := range entries[addr] {
			b.WriteString(addr)
			b.WriteByte(0)
			b.WriteString(e.TxID)
			b.WriteByte(0)
			b.WriteString(e.Amount.String())
			b.WriteByte(0)
			if e.Spent {
				b.WriteByte(1)
			}
			b.WriteByte(0)
			b.WriteString(strconv.FormatUint(e.UnlockHeight, 10))
			b.WriteByte('\n')
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// SaveUTXOSnapshot writes the full UTXO set to utxo_set.json, tagged with
// height (the chain tip it reflects) and a checksum over its own content.
func (s *Store) SaveUTXOSnapshot(utxos *utxo.Set, height uint64) error {
	entries := utxos.Export()
	records := make(map[string][]utxoEntryRecord, len(entries))
	for addr, es := range entries {
		recs := make([]utxoEntryRecord, len(es))
		for i, e := range es {
			recs[i] = utxoEntryRecord{TxID: e.TxID, Amount: e.Amount, Spent: e.Spent, UnlockHeight: e.UnlockHeight}
		}
		records[addr] = recs
	}

	snapshot := utxoSnapshot{Height: height, Entries: records, Checksum: checksumEntries(height, records)}
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "store: serializing utxo snapshot")
	}
	if err := os.WriteFile(s.utxoSnapshotPath(), encoded, 0600); err != nil {
		return errors.Wrap(err, "store: writing utxo snapshot")
	}
	return nil
}

// LoadUTXOSnapshot reads utxo_set.json and verifies its self-describing
// checksum. It returns ok=false (with no error) whenever the snapshot is
// absent or fails that consistency check, the two conditions spec.md §6
// says must trigger a full replay from genesis rather than trusting a
// partially written or tampered snapshot.
func (s *Store) LoadUTXOSnapshot() (utxos *utxo.Set, height uint64, ok bool, err error) {
	raw, err := os.ReadFile(s.utxoSnapshotPath())
	if os.IsNotExist(err) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, errors.Wrap(err, "store: reading utxo snapshot")
	}

	var snapshot utxoSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, 0, false, nil
	}
	if checksumEntries(snapshot.Height, snapshot.Entries) != snapshot.Checksum {
		return nil, 0, false, nil
	}

	set := utxo.New()
	for addr, recs := range snapshot.Entries {
		for _, r := range recs {
			set.Import(addr, &utxo.Entry{TxID: r.TxID, Amount: r.Amount, Spent: r.Spent, UnlockHeight: r.UnlockHeight})
		}
	}
	return set, snapshot.Height, true, nil
}

// SavePendingTransactions writes the mempool's current contents to
// pending_transactions.json, an array of full transaction records.
func (s *Store) SavePendingTransactions(txs []*chainwire.Transaction) error {
	encoded, err := json.Marshal(txs)
	if err != nil {
		return errors.Wrap(err, "store: serializing pending transactions")
	}
	if err := os.WriteFile(s.pendingTxPath(), encoded, 0600); err != nil {
		return errors.Wrap(err, "store: writing pending transactions")
	}
	return nil
}

// LoadPendingTransactions reads pending_transactions.json, returning an
// empty slice (not an error) if the file does not exist.
func (s *Store) LoadPendingTransactions() ([]*chainwire.Transaction, error) {
	raw, err := os.ReadFile(s.pendingTxPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: reading pending transactions")
	}
	var txs []*chainwire.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, errors.Wrap(err, "store: parsing pending transactions")
	}
	return txs, nil
}

// Checkpoint is the on-disk shape of a pinned (height, hash) pair
// (spec.md §6, "Optional checkpoints/ with (height, hash) pairs").
type Checkpoint struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

func (s *Store) checkpointPath(height uint64) string {
	return filepath.Join(s.checkpointsDir(), strconv.FormatUint(height, 10)+".json")
}

// SaveCheckpoint records a single (height, hash) pair under checkpoints/.
func (s *Store) SaveCheckpoint(cp Checkpoint) error {
	encoded, err := json.Marshal(cp)
	if err != nil {
		return errors.Wrap(err, "store: serializing checkpoint")
	}
	if err := os.WriteFile(s.checkpointPath(cp.Height), encoded, 0600); err != nil {
		return errors.Wrapf(err, "store: writing checkpoint %d", cp.Height)
	}
	return nil
}

// LoadCheckpoints reads every file under checkpoints/, sorted by height.
func (s *Store) LoadCheckpoints() ([]Checkpoint, error) {
	entries, err := os.ReadDir(s.checkpointsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: listing checkpoints")
	}

	checkpoints := make([]Checkpoint, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.checkpointsDir(), e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "store: reading checkpoint file %s", e.Name())
		}
		var cp Checkpoint
		if err := json.Unmarshal(raw, &cp); err != nil {
			return nil, errors.Wrapf(err, "store: parsing checkpoint file %s", e.Name())
		}
		checkpoints = append(checkpoints, cp)
	}
	sort.Slice(checkpoints, func(i, j int) bool { return checkpoints[i].Height < checkpoints[j].Height })
	return checkpoints, nil
}
