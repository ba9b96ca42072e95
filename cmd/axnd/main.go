// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// axnd is the ledger engine's node process: it loads configuration, replays
// or bootstraps chain state, and serves the core API through a ledger.Handle
// until it receives an interrupt (spec.md §1, §6).
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/axnchain/axnd/blockchain"
	"github.com/axnchain/axnd/chaincfg"
	"github.com/axnchain/axnd/chainwire"
	"github.com/axnchain/axnd/config"
	"github.com/axnchain/axnd/genesis"
	"github.com/axnchain/axnd/ledger"
	"github.com/axnchain/axnd/logs"
	"github.com/axnchain/axnd/mempool"
	"github.com/axnchain/axnd/store"
	"github.com/axnchain/axnd/txindex"
	"github.com/axnchain/axnd/utxo"
	"github.com/axnchain/axnd/validator"
)

func main() {
	if err := run(); err != nil {
		log.Errorf("%s", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, params, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logs.InitLogRotator(cfg.LogFilePath())
	defer logs.LogRotator.Close()
	if err := logs.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	handle, idx, err := buildLedger(cfg, params)
	if err != nil {
		return err
	}
	if idx != nil {
		defer idx.Close()
	}

	height, hash := handle.Tip()
	log.Infof("axnd started on %s, tip height %d (%s)", params.Name, height, hash)

	interrupt := interruptListener()
	<-interrupt
	log.Infof("axnd shutting down")
	return nil
}

// buildLedger wires a ledger.Handle from persisted state if present,
// replaying persisted blocks on top of the network genesis the way
// blockchain.Manager.Append validates any other block (spec.md §4.10:
// genesis is trusted input, every block after it is replay-validated).
func buildLedger(cfg *config.Config, params *chaincfg.Params) (*ledger.Handle, *txindex.Index, error) {
	payload, err := genesis.Load(params.GenesisFilePath, params.SafeGenesisHash)
	if err != nil {
		return nil, nil, err
	}
	genesisBlock := genesis.Block(payload, params.InitialDifficulty)
	genesisUTXOs := utxo.New()
	genesis.CreditInitialUTXOs(genesisUTXOs, genesisBlock)
	genesisSupply := genesis.TotalAmount(genesisBlock)

	chain := blockchain.New(params, genesisBlock, genesisUTXOs, genesisSupply)
	for _, addr := range payload.ProtectedAddresses {
		allowed := make(map[chainwire.TxType]bool, len(addr.AllowedTypes))
		for _, t := range addr.AllowedTypes {
			allowed[t] = true
		}
		chain.RegisterProtectedAddress(addr.Address, &validator.ProtectedPolicy{AllowedTypes: allowed})
	}

	persistence, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}

	persisted, err := persistence.LoadChain()
	if err != nil {
		return nil, nil, err
	}
	for _, block := range persisted {
		if block.Index == 0 {
			continue
		}
		if _, err := chain.Append(block); err != nil {
			return nil, nil, err
		}
	}

	var idx *txindex.Index
	if cfg.TxIndexDir() != "" {
		idx, err = txindex.Open(cfg.TxIndexDir())
		if err != nil {
			return nil, nil, err
		}
	}

	v := validator.New(params, chain.UTXOs(), chain.Nonces(), func() uint64 { return chain.Height() + 1 }, nil)
	pool := mempool.New(v, chain.Nonces(), chain.UTXOs(), params.MaxMempoolSize)

	pending, err := persistence.LoadPendingTransactions()
	if err != nil {
		return nil, nil, err
	}
	for _, tx := range pending {
		if err := pool.Admit(tx); err != nil {
			log.Warnf("dropping unloadable pending transaction %s: %s", tx.TxID, err)
		}
	}

	return ledger.New(params, chain, pool, persistence, idx), idx, nil
}

func interruptListener() <-chan struct{} {
	c := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(c)
	}()
	return c
}
