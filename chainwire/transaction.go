// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainwire defines the canonical on-chain data model: the
// transaction and block formats the rest of the ledger validates, orders
// and hashes. Encoding is canonical JSON (sorted object keys) rather than a
// binary wire format, since txid/block-hash stability across
// implementations is defined over the JSON form.
package chainwire

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/axnchain/axnd/ecc"
)

// CoinbaseSender is the sentinel sender address for block-reward
// transactions; coinbase transactions carry no signature.
const CoinbaseSender = "COINBASE"

// TxType tags the accounting semantics of a transaction. Only Normal and
// Coinbase affect balance accounting inside the core; every other type
// carries an opaque metadata payload consumed by an external collaborator.
type TxType string

// The fixed set of transaction types the core recognizes. Types beyond
// Normal/Coinbase are validated only for shape (see validator's checkTypeShape);
// their semantics belong to peripheral collaborators.
const (
	TxNormal            TxType = "normal"
	TxCoinbase          TxType = "coinbase"
	TxAirdrop           TxType = "airdrop"
	TxRefund            TxType = "refund"
	TxTreasure          TxType = "treasure"
	TxTimeCapsuleLock   TxType = "time_capsule_lock"
	TxTimeCapsuleClaim  TxType = "time_capsule_claim"
	TxTradeSettlement   TxType = "trade_settlement"
	TxAIDonation        TxType = "ai_donation"
)

// Transaction is a signed transfer of value, or a coinbase mint. Amount and
// Fee carry 8 fractional decimal digits, represented as integer
// hundred-millionths (like Bitcoin's satoshi) to avoid floating point drift
// in canonical hashing and arithmetic.
type Transaction struct {
	Sender    string            `json:"sender"`
	Recipient string            `json:"recipient"`
	Amount    Amount            `json:"amount"`
	Fee       Amount            `json:"fee"`
	Timestamp int64             `json:"timestamp"`
	Nonce     *uint64           `json:"nonce,omitempty"`
	TxType    TxType            `json:"tx_type"`
	Metadata  map[string]string `json:"metadata,omitempty"`

	PublicKeyHex string `json:"public_key,omitempty"`
	SignatureHex string `json:"signature,omitempty"`
	TxID         string `json:"txid"`
}

// canonicalTxFields is the subset of Transaction fields that feed the txid
// hash, excluding the signature and the txid itself per spec.
type canonicalTxFields struct {
	Sender    string            `json:"sender"`
	Recipient string            `json:"recipient"`
	Amount    Amount            `json:"amount"`
	Fee       Amount            `json:"fee"`
	Timestamp int64             `json:"timestamp"`
	Nonce     *uint64           `json:"nonce,omitempty"`
	TxType    TxType            `json:"tx_type"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	PublicKey string            `json:"public_key,omitempty"`
}

// IsCoinbase reports whether tx is the sentinel coinbase sender.
func (tx *Transaction) IsCoinbase() bool {
	return tx.Sender == CoinbaseSender
}

// CanonicalHash computes the txid: SHA-256 of the canonical JSON encoding of
// the accounting-relevant fields, with object keys sorted lexicographically.
// encoding/json already sorts map keys, so the only discipline required is
// keeping canonicalTxFields limited to the fields spec.md §3 names.
func (tx *Transaction) CanonicalHash() (string, error) {
	fields := canonicalTxFields{
		Sender:    tx.Sender,
		Recipient: tx.Recipient,
		Amount:    tx.Amount,
		Fee:       tx.Fee,
		Timestamp: tx.Timestamp,
		Nonce:     tx.Nonce,
		TxType:    tx.TxType,
		Metadata:  tx.Metadata,
		PublicKey: tx.PublicKeyHex,
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// Sign binds tx to sk: it sets the public key, signs CanonicalHash(), and
// recomputes TxID over the now-complete accounting fields (the public key
// is itself an accounting field, so signing changes the hash it signs over).
func (tx *Transaction) Sign(sk *ecc.PrivateKey) error {
	if tx.IsCoinbase() {
		return fmt.Errorf("chainwire: cannot sign a coinbase transaction")
	}
	tx.PublicKeyHex = sk.PubKey().Hex()

	digest, err := tx.CanonicalHash()
	if err != nil {
		return err
	}
	sig := ecc.Sign([]byte(digest), sk)
	tx.SignatureHex = hex.EncodeToString(sig)

	txid, err := tx.CanonicalHash()
	if err != nil {
		return err
	}
	tx.TxID = txid
	return nil
}

// SenderMatchesPublicKey reports whether tx.Sender equals the address
// derived from tx.PublicKeyHex, the distinct address-mismatch check spec.md
// §4.2 names separately from signature verification. Coinbase transactions
// always match.
func (tx *Transaction) SenderMatchesPublicKey() bool {
	if tx.IsCoinbase() {
		return true
	}
	if tx.PublicKeyHex == "" {
		return false
	}
	prefix := AddressPrefixOf(tx.Sender)
	return ecc.DeriveAddressFromHex(prefix, tx.PublicKeyHex) == tx.Sender
}

// VerifySignature implements spec.md §4.2: coinbase transactions verify
// trivially; otherwise the sender must be the address derived from the
// carried public key, and the signature must verify over the current
// canonical hash.
func (tx *Transaction) VerifySignature() bool {
	if tx.IsCoinbase() {
		return true
	}
	if tx.PublicKeyHex == "" || tx.SignatureHex == "" {
		return false
	}
	if !tx.SenderMatchesPublicKey() {
		return false
	}

	pk, err := ecc.PublicKeyFromHex(tx.PublicKeyHex)
	if err != nil {
		return false
	}

	digest, err := tx.CanonicalHash()
	if err != nil {
		return false
	}
	sig, err := hex.DecodeString(tx.SignatureHex)
	if err != nil {
		return false
	}
	return ecc.Verify([]byte(digest), sig, pk)
}

// AddressPrefixOf extracts the network prefix implied by an existing
// address string: every byte up to the trailing 40 hex characters. This
// lets VerifySignature recompute the expected address without a config
// dependency, matching the address format's self-describing length.
func AddressPrefixOf(address string) string {
	const hashLen = 40
	if len(address) < hashLen {
		return address
	}
	return address[:len(address)-hashLen]
}

// Serialize returns the canonical JSON encoding of the full transaction
// (including txid, signature and public key), used for persistence
// (pending_transactions.json, blocks/<index>.json) and for MAX_TX_BYTES
// size checks.
func (tx *Transaction) Serialize() ([]byte, error) {
	return json.Marshal(tx)
}

// Deserialize parses the canonical JSON encoding produced by Serialize.
func Deserialize(data []byte) (*Transaction, error) {
	var tx Transaction
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
