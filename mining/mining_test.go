// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"testing"
	"time"

	"bou.ke/monkey"
	"github.com/axnchain/axnd/chaincfg"
	"github.com/axnchain/axnd/chainwire"
)

type fakeTxSource struct {
	txs []*chainwire.Transaction
}

func (f *fakeTxSource) DrainForBlock() []*chainwire.Transaction { return f.txs }

func genesisTip(t *testing.T) *chainwire.Block {
	t.Helper()
	b := &chainwire.Block{Index: 0, PreviousHash: chainwire.ZeroHash}
	b.ComputeMerkleRoot()
	hash, err := b.CanonicalHash()
	if err != nil {
		t.Fatal(err)
	}
	b.Hash = hash
	return b
}

// TestAssembleBlockIsDeterministic covers spec.md P8: the same mempool
// snapshot and tip produce byte-identical pre-PoW bodies across calls.
func TestAssembleBlockIsDeterministic(t *testing.T) {
	fixedNow := time.Unix(1700000000, 0)
	patch := monkey.Patch(time.Now, func() time.Time { return fixedNow })
	defer patch.Unpatch()

	tip := genesisTip(t)
	pool := &fakeTxSource{}

	first, err := AssembleBlock(chaincfg.TestnetParams, tip, 0, "tAXNminerminerminerminerminerminermine", pool)
	if err != nil {
		t.Fatal(err)
	}
	second, err := AssembleBlock(chaincfg.TestnetParams, tip, 0, "tAXNminerminerminerminerminerminermine", pool)
	if err != nil {
		t.Fatal(err)
	}

	firstEnc, err := first.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	secondEnc, err := second.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if string(firstEnc) != string(secondEnc) {
		t.Fatalf("expected identical pre-PoW bodies, got %s vs %s", firstEnc, secondEnc)
	}
}

func TestAssembleBlockPaysRewardPlusFees(t *testing.T) {
	tip := genesisTip(t)
	fee, err := chainwire.NewAmount(0.5)
	if err != nil {
		t.Fatal(err)
	}
	amount, err := chainwire.NewAmount(1)
	if err != nil {
		t.Fatal(err)
	}
	pool := &fakeTxSource{txs: []*chainwire.Transaction{
		{Sender: "tAXNalicealicealicealicealicealicealice", Recipient: "tAXNbobbobbobbobbobbobbobbobbobbobbobbob", Amount: amount, Fee: fee, TxID: "tx1"},
	}}

	block, err := AssembleBlock(chaincfg.TestnetParams, tip, 0, "tAXNminerminerminerminerminerminermine", pool)
	if err != nil {
		t.Fatal(err)
	}

	coinbase := block.Coinbase()
	want := chaincfg.TestnetParams.InitialBlockReward + fee
	if coinbase.Amount != want {
		t.Fatalf("got coinbase %s want %s", coinbase.Amount, want)
	}
	if len(block.Transactions) != 2 {
		t.Fatalf("expected coinbase + 1 body tx, got %d", len(block.Transactions))
	}
}

func TestAssembleBlockCapsRewardAtSupply(t *testing.T) {
	tip := genesisTip(t)
	pool := &fakeTxSource{}

	headroom, err := chainwire.NewAmount(3)
	if err != nil {
		t.Fatal(err)
	}
	currentSupply := chaincfg.TestnetParams.MaxSupply - headroom

	block, err := AssembleBlock(chaincfg.TestnetParams, tip, currentSupply, "tAXNminerminerminerminerminerminermine", pool)
	if err != nil {
		t.Fatal(err)
	}
	if block.Coinbase().Amount != headroom {
		t.Fatalf("got coinbase %s want the %s headroom", block.Coinbase().Amount, headroom)
	}
}

func TestMineFindsNonceMeetingDifficulty(t *testing.T) {
	tip := genesisTip(t)
	pool := &fakeTxSource{}

	block, err := AssembleBlock(chaincfg.TestnetParams, tip, 0, "tAXNminerminerminerminerminerminermine", pool)
	if err != nil {
		t.Fatal(err)
	}
	block.Difficulty = 1

	if err := Mine(block, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !chainwire.MeetsDifficulty(block.Hash, block.Difficulty) {
		t.Fatalf("mined hash %s does not meet difficulty %d", block.Hash, block.Difficulty)
	}
}

func TestMineHonorsCancellation(t *testing.T) {
	tip := genesisTip(t)
	pool := &fakeTxSource{}

	block, err := AssembleBlock(chaincfg.TestnetParams, tip, 0, "tAXNminerminerminerminerminerminermine", pool)
	if err != nil {
		t.Fatal(err)
	}
	// An unreachable difficulty forces the stop check to fire.
	block.Difficulty = 64

	err = Mine(block, func() bool { return true })
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
}
