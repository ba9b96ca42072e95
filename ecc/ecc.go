// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ecc provides the secp256k1 key generation, signing and
// verification primitives the ledger is built on, plus the deterministic
// address derivation defined for the network.
package ecc

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// PrivateKey is a secp256k1 private key.
type PrivateKey struct {
	key *btcec.PrivateKey
}

// PublicKey is a secp256k1 public key.
type PublicKey struct {
	key *btcec.PublicKey
}

// GenerateKeyPair creates a uniformly random secp256k1 keypair.
func GenerateKeyPair() (*PrivateKey, *PublicKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, nil, err
	}
	return &PrivateKey{key: key}, &PublicKey{key: key.PubKey()}, nil
}

// PrivateKeyFromHex parses a hex-encoded 32-byte scalar into a PrivateKey.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	key, _ := btcec.PrivKeyFromBytes(raw)
	return &PrivateKey{key: key}, nil
}

// PublicKeyFromHex parses a hex-encoded compressed or uncompressed
// secp256k1 public key. Malformed input fails closed with an error rather
// than panicking.
func PublicKeyFromHex(s string) (*PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	key, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, err
	}
	return &PublicKey{key: key}, nil
}

// Bytes returns the compressed SEC1 encoding of the public key.
func (p *PublicKey) Bytes() []byte {
	return p.key.SerializeCompressed()
}

// Hex returns the hex encoding of Bytes.
func (p *PublicKey) Hex() string {
	return hex.EncodeToString(p.Bytes())
}

// PubKey returns the public key corresponding to sk.
func (sk *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{key: sk.key.PubKey()}
}

// Sign produces a deterministic (RFC 6979) ECDSA signature over msg, the way
// btcec's signing API does by default. Malformed keys never panic; callers
// that fail to obtain a PrivateKey simply never reach Sign.
func Sign(msg []byte, sk *PrivateKey) []byte {
	digest := sha256.Sum256(msg)
	sig := ecdsa.Sign(sk.key, digest[:])
	return sig.Serialize()
}

// Verify checks an ECDSA signature over msg against pk. Any malformed input
// (bad signature encoding, bad key) fails closed by returning false.
func Verify(msg, sig []byte, pk *PublicKey) bool {
	if pk == nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(msg)
	return parsed.Verify(digest[:], pk.key)
}

// DeriveAddress computes the address for a public key under the given
// network prefix: prefix + first 40 hex chars of SHA-256(hex(pubkey)).
func DeriveAddress(prefix string, pk *PublicKey) string {
	return DeriveAddressFromHex(prefix, pk.Hex())
}

// DeriveAddressFromHex is DeriveAddress taking an already hex-encoded public
// key, matching the way signature verification recomputes the sender
// address from the public key carried on the wire.
func DeriveAddressFromHex(prefix, pubKeyHex string) string {
	sum := sha256.Sum256([]byte(pubKeyHex))
	return prefix + hex.EncodeToString(sum[:])[:40]
}
