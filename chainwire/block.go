// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainwire

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Block is a block of the chain: a coinbase transaction (always first)
// followed by zero or more transactions drained from the mempool.
type Block struct {
	Index        uint64         `json:"index"`
	Timestamp    int64          `json:"timestamp"`
	PreviousHash string         `json:"previous_hash"`
	Transactions []*Transaction `json:"transactions"`
	MerkleRoot   string         `json:"merkle_root"`
	Difficulty   uint8          `json:"difficulty"`
	Nonce        uint64         `json:"nonce"`
	Hash         string         `json:"hash"`
}

// ZeroHash is the previous-hash value of the genesis block.
const ZeroHash = "0"

// canonicalBlockFields is every Block field except Hash, which is derived
// from it.
type canonicalBlockFields struct {
	Index        uint64         `json:"index"`
	Timestamp    int64          `json:"timestamp"`
	PreviousHash string         `json:"previous_hash"`
	Transactions []*Transaction `json:"transactions"`
	MerkleRoot   string         `json:"merkle_root"`
	Difficulty   uint8          `json:"difficulty"`
	Nonce        uint64         `json:"nonce"`
}

// CalculateMerkleRoot computes the classical pairwise SHA-256 Merkle tree
// over the txids of txs, duplicating the last leaf whenever a level has odd
// cardinality.
func CalculateMerkleRoot(txs []*Transaction) string {
	if len(txs) == 0 {
		sum := sha256.Sum256(nil)
		return hex.EncodeToString(sum[:])
	}

	level := make([]string, len(txs))
	for i, tx := range txs {
		level[i] = tx.TxID
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			sum := sha256.Sum256([]byte(level[i] + level[i+1]))
			next = append(next, hex.EncodeToString(sum[:]))
		}
		level = next
	}
	return level[0]
}

// ComputeMerkleRoot recomputes and stores b.MerkleRoot from b.Transactions.
func (b *Block) ComputeMerkleRoot() {
	b.MerkleRoot = CalculateMerkleRoot(b.Transactions)
}

// CanonicalHash computes the block hash: SHA-256 over the canonical JSON
// encoding of every field except Hash itself.
func (b *Block) CanonicalHash() (string, error) {
	fields := canonicalBlockFields{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		PreviousHash: b.PreviousHash,
		Transactions: b.Transactions,
		MerkleRoot:   b.MerkleRoot,
		Difficulty:   b.Difficulty,
		Nonce:        b.Nonce,
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// MeetsDifficulty reports whether hash has at least difficulty leading hex
// zero characters.
func MeetsDifficulty(hash string, difficulty uint8) bool {
	if int(difficulty) > len(hash) {
		return false
	}
	for i := 0; i < int(difficulty); i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}

// Coinbase returns the block's coinbase transaction (position 0), or nil if
// the block has no transactions.
func (b *Block) Coinbase() *Transaction {
	if len(b.Transactions) == 0 {
		return nil
	}
	return b.Transactions[0]
}

// Serialize returns the canonical JSON encoding of the full block.
func (b *Block) Serialize() ([]byte, error) {
	return json.Marshal(b)
}

// DeserializeBlock parses the canonical JSON encoding produced by Serialize.
func DeserializeBlock(data []byte) (*Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
