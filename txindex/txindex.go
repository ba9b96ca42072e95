// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txindex maintains a txid -> (height, block hash) secondary index
// backed by goleveldb, so that a confirmed transaction can be located by
// txid without scanning every persisted block. The ledger keeps it updated
// as blocks are mined or reorged in; ledger.History does not read it and
// scans the chain instead.
// Grounded on blockdag/indexers' pluggable-indexer shape and
// database/ffldb/ldb's direct use of goleveldb as the underlying engine.
package txindex

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/axnchain/axnd/chainwire"
)

// Index is a txid -> location lookup table, one leveldb database per data
// directory.
type Index struct {
	db *leveldb.DB
}

// location is the value stored for each indexed txid.
type location struct {
	Height    uint64 `json:"height"`
	BlockHash string `json:"block_hash"`
}

// Open opens (creating if necessary) the leveldb database rooted at path.
func Open(path string) (*Index, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "txindex: opening %s", path)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying leveldb handle.
func (idx *Index) Close() error {
	if err := idx.db.Close(); err != nil {
		return errors.Wrap(err, "txindex: closing")
	}
	return nil
}

// IndexBlock records every transaction in block (coinbase included) as
// confirmed at block's height and hash, the way indexers.Manager's
// ConnectBlock callback updates each enabled index as blocks are accepted.
func (idx *Index) IndexBlock(block *chainwire.Block) error {
	batch := new(leveldb.Batch)
	loc := location{Height: block.Index, BlockHash: block.Hash}
	encoded, err := json.Marshal(loc)
	if err != nil {
		return errors.Wrapf(err, "txindex: encoding location for block %d", block.Index)
	}
	for _, tx := range block.Transactions {
		batch.Put([]byte(tx.TxID), encoded)
	}
	if err := idx.db.Write(batch, nil); err != nil {
		return errors.Wrapf(err, "txindex: indexing block %d", block.Index)
	}
	return nil
}

// UnindexBlock removes block's transactions from the index, undoing
// IndexBlock when a reorg discards the block that confirmed them.
func (idx *Index) UnindexBlock(block *chainwire.Block) error {
	batch := new(leveldb.Batch)
	for _, tx := range block.Transactions {
		batch.Delete([]byte(tx.TxID))
	}
	if err := idx.db.Write(batch, nil); err != nil {
		return errors.Wrapf(err, "txindex: unindexing block %d", block.Index)
	}
	return nil
}

// Lookup returns the height and block hash that confirmed txid, or
// ok=false if txid is not indexed.
func (idx *Index) Lookup(txid string) (height uint64, blockHash string, ok bool, err error) {
	raw, err := idx.db.Get([]byte(txid), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, errors.Wrapf(err, "txindex: looking up %s", txid)
	}

	var loc location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return 0, "", false, errors.Wrapf(err, "txindex: decoding location for %s", txid)
	}
	return loc.Height, loc.BlockHash, true, nil
}
