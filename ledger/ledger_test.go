// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/axnchain/axnd/blockchain"
	"github.com/axnchain/axnd/chaincfg"
	"github.com/axnchain/axnd/chainwire"
	"github.com/axnchain/axnd/ecc"
	"github.com/axnchain/axnd/ledgererr"
	"github.com/axnchain/axnd/mempool"
	"github.com/axnchain/axnd/store"
	"github.com/axnchain/axnd/utxo"
	"github.com/axnchain/axnd/validator"
)

const testMinerAddr = "tAXNminerminerminerminerminerminermine"

func mustAmount(t *testing.T, f float64) chainwire.Amount {
	t.Helper()
	a, err := chainwire.NewAmount(f)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

type fixture struct {
	handle *Handle
	chain  *blockchain.Manager
	sk     *ecc.PrivateKey
	sender string
}

func newFixture(t *testing.T, persistence *store.Store) *fixture {
	t.Helper()

	sk, pk, err := ecc.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	sender := ecc.DeriveAddress(chaincfg.TestnetParams.AddressPrefix, pk)

	genesisAmount := mustAmount(t, 1000)
	coinbase := &chainwire.Transaction{
		Sender:    chainwire.CoinbaseSender,
		Recipient: sender,
		Amount:    genesisAmount,
		TxType:    chainwire.TxCoinbase,
	}
	txid, err := coinbase.CanonicalHash()
	if err != nil {
		t.Fatal(err)
	}
	coinbase.TxID = txid

	genesisBlock := &chainwire.Block{Index: 0, PreviousHash: chainwire.ZeroHash, Transactions: []*chainwire.Transaction{coinbase}}
	genesisBlock.ComputeMerkleRoot()
	hash, err := genesisBlock.CanonicalHash()
	if err != nil {
		t.Fatal(err)
	}
	genesisBlock.Hash = hash

	genesisUTXOs := utxo.New()
	genesisUTXOs.Credit(sender, coinbase.TxID, genesisAmount, 0)

	chain := blockchain.New(chaincfg.TestnetParams, genesisBlock, genesisUTXOs, genesisAmount)
	v := validator.New(chaincfg.TestnetParams, chain.UTXOs(), chain.Nonces(), func() uint64 { return chain.Height() + 1 }, nil)
	pool := mempool.New(v, chain.Nonces(), chain.UTXOs(), 100)

	return &fixture{
		handle: New(chaincfg.TestnetParams, chain, pool, persistence, nil),
		chain:  chain,
		sk:     sk,
		sender: sender,
	}
}

func (f *fixture) transfer(t *testing.T, nonce uint64, recipient string, amount, fee chainwire.Amount) *chainwire.Transaction {
	t.Helper()
	n := nonce
	tx := &chainwire.Transaction{
		Sender:    f.sender,
		Recipient: recipient,
		Amount:    amount,
		Fee:       fee,
		Timestamp: 1700000000,
		Nonce:     &n,
		TxType:    chainwire.TxNormal,
	}
	if err := tx.Sign(f.sk); err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestMineBlockCreditsMinerAndAdvancesTip(t *testing.T) {
	f := newFixture(t, nil)

	block, err := f.handle.MineBlock(testMinerAddr, nil)
	if err != nil {
		t.Fatal(err)
	}
	if block.Index != 1 {
		t.Fatalf("got block index %d want 1", block.Index)
	}

	height, hash := f.handle.Tip()
	if height != 1 || hash != block.Hash {
		t.Fatalf("got tip (%d, %s) want (1, %s)", height, hash, block.Hash)
	}
	if got := f.handle.Balance(testMinerAddr); got != chaincfg.TestnetParams.InitialBlockReward {
		t.Fatalf("got miner balance %s want %s", got, chaincfg.TestnetParams.InitialBlockReward)
	}
}

func TestSubmitTransactionThenMineBlockConfirmsItAndPublishesEvents(t *testing.T) {
	f := newFixture(t, nil)

	const recipient = "tAXN" + "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	tx := f.transfer(t, 0, recipient, mustAmount(t, 5), mustAmount(t, 0.1))

	var mtx sync.Mutex
	var seen []EventKind
	done := make(chan struct{}, 4)
	record := func(e Event) {
		mtx.Lock()
		seen = append(seen, e.Kind)
		mtx.Unlock()
		done <- struct{}{}
	}
	f.handle.Subscribe(TxAdmitted, record)
	f.handle.Subscribe(BlockAppended, record)
	f.handle.Subscribe(TxConfirmed, record)

	txid, err := f.handle.SubmitTransaction(tx)
	if err != nil {
		t.Fatal(err)
	}
	if txid != tx.TxID {
		t.Fatalf("got txid %s want %s", txid, tx.TxID)
	}
	<-done

	block, err := f.handle.MineBlock(testMinerAddr, nil)
	if err != nil {
		t.Fatal(err)
	}
	<-done
	<-done

	if got := f.handle.Balance(recipient); got != mustAmount(t, 5) {
		t.Fatalf("got recipient balance %s want 5", got)
	}

	history := f.handle.History(f.sender)
	if len(history) != 2 { // genesis coinbase + the transfer
		t.Fatalf("got %d history records want 2:\n%s", len(history), spew.Sdump(history))
	}

	mtx.Lock()
	defer mtx.Unlock()
	if len(seen) != 3 {
		t.Fatalf("got %d events want 3: %v", len(seen), seen)
	}
	_ = block
}

func TestMineBlockAfterSubmitEvictsTheConfirmedTransaction(t *testing.T) {
	f := newFixture(t, nil)
	const recipient = "tAXN" + "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	tx := f.transfer(t, 0, recipient, mustAmount(t, 5), mustAmount(t, 0.1))

	if _, err := f.handle.SubmitTransaction(tx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.handle.MineBlock(testMinerAddr, nil); err != nil {
		t.Fatal(err)
	}

	block, ok := f.handle.GetBlockByIndex(1)
	if !ok {
		t.Fatal("expected block 1 to exist")
	}
	if len(block.Transactions) != 2 {
		t.Fatalf("expected coinbase + transfer, got %d transactions", len(block.Transactions))
	}
}

func TestValidateChainAcceptsMinedBlocks(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < 3; i++ {
		if _, err := f.handle.MineBlock(testMinerAddr, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.handle.ValidateChain(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestRegisterProtectedAddressAppliesToMempoolAdmissionImmediately(t *testing.T) {
	f := newFixture(t, nil)
	f.handle.RegisterProtectedAddress(f.sender, &validator.ProtectedPolicy{
		AllowedTypes: map[chainwire.TxType]bool{chainwire.TxRefund: true},
	})

	const recipient = "tAXN" + "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	tx := f.transfer(t, 0, recipient, mustAmount(t, 5), mustAmount(t, 0.1))
	if _, err := f.handle.SubmitTransaction(tx); !ledgererr.Is(err, ledgererr.ErrProtectedAddressViolation) {
		t.Fatalf("got %v, want ErrProtectedAddressViolation", err)
	}
}

func TestMineBlockPersistsBlockAndUTXOSnapshot(t *testing.T) {
	persistence, err := store.Open(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, persistence)

	block, err := f.handle.MineBlock(testMinerAddr, nil)
	if err != nil {
		t.Fatal(err)
	}

	loaded, ok, err := persistence.LoadBlock(block.Index)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || loaded.Hash != block.Hash {
		t.Fatalf("expected block %d to be persisted with hash %s", block.Index, block.Hash)
	}

	_, height, ok, err := persistence.LoadUTXOSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if !ok || height != block.Index {
		t.Fatalf("expected a utxo snapshot at height %d, got ok=%v height=%d", block.Index, ok, height)
	}
}
