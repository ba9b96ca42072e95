// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txindex

import (
	"path/filepath"
	"testing"

	"github.com/axnchain/axnd/chainwire"
)

func testBlock(index uint64, txids ...string) *chainwire.Block {
	txs := make([]*chainwire.Transaction, len(txids))
	for i, id := range txids {
		txs[i] = &chainwire.Transaction{TxID: id}
	}
	return &chainwire.Block{Index: index, Hash: "hash" + string(rune('0'+index)), Transactions: txs}
}

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "txindex"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexBlockMakesTransactionsLookupable(t *testing.T) {
	idx := openTestIndex(t)
	block := testBlock(3, "txa", "txb")

	if err := idx.IndexBlock(block); err != nil {
		t.Fatal(err)
	}

	height, hash, ok, err := idx.Lookup("txa")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected txa to be indexed")
	}
	if height != 3 || hash != block.Hash {
		t.Fatalf("got (height=%d hash=%s) want (height=3 hash=%s)", height, hash, block.Hash)
	}
}

func TestLookupReturnsNotOkForUnknownTxID(t *testing.T) {
	idx := openTestIndex(t)
	_, _, ok, err := idx.Lookup("nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected ok=false for an unindexed txid")
	}
}

func TestUnindexBlockRemovesItsTransactions(t *testing.T) {
	idx := openTestIndex(t)
	block := testBlock(1, "txa")
	if err := idx.IndexBlock(block); err != nil {
		t.Fatal(err)
	}
	if err := idx.UnindexBlock(block); err != nil {
		t.Fatal(err)
	}

	_, _, ok, err := idx.Lookup("txa")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected txa to be removed from the index")
	}
}

func TestIndexBlockOverwritesPreviousLocationOnReindex(t *testing.T) {
	idx := openTestIndex(t)
	if err := idx.IndexBlock(testBlock(1, "txa")); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexBlock(testBlock(2, "txa")); err != nil {
		t.Fatal(err)
	}

	height, _, ok, err := idx.Lookup("txa")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || height != 2 {
		t.Fatalf("got (height=%d ok=%v) want (height=2 ok=true)", height, ok)
	}
}
