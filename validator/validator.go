// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package validator runs the ordered transaction checks of spec.md §4.5.
// Each check short-circuits the rest on first failure, returning a typed
// ledgererr.RuleError, mirroring blockdag's checkTransactionSanity /
// checkBlockSanity chain of ruleError returns.
package validator

import (
	"strconv"
	"time"

	"github.com/axnchain/axnd/chaincfg"
	"github.com/axnchain/axnd/chainwire"
	"github.com/axnchain/axnd/ledgererr"
	"github.com/axnchain/axnd/noncetracker"
	"github.com/axnchain/axnd/utxo"
)

// ProtectedPolicy describes the allowlist a protected (reserve) address is
// restricted to: only transactions whose tx_type is in AllowedTypes may
// originate from it (spec.md §4.5 check 5).
type ProtectedPolicy struct {
	AllowedTypes map[chainwire.TxType]bool
}

// Allows reports whether txType may originate from an address governed by
// p.
func (p *ProtectedPolicy) Allows(txType chainwire.TxType) bool {
	if p == nil {
		return true
	}
	return p.AllowedTypes[txType]
}

// RiskScorer optionally annotates an admitted transaction with a
// non-authoritative AML/risk level. It never rejects a transaction
// (spec.md §4.5, "scoring never rejects").
type RiskScorer interface {
	Score(tx *chainwire.Transaction) string
}

// NoopRiskScorer implements RiskScorer by scoring everything "unscored".
type NoopRiskScorer struct{}

// Score always returns "unscored".
func (NoopRiskScorer) Score(*chainwire.Transaction) string { return "unscored" }

// Validator runs the stateful + stateless transaction checks against the
// given UTXO set and nonce tracker.
type Validator struct {
	Params     *chaincfg.Params
	UTXOs      *utxo.Set
	Nonces     *noncetracker.Tracker
	Protected  map[string]*ProtectedPolicy
	RiskScorer RiskScorer
	Now        func() time.Time

	// Height returns the chain height funds checks should evaluate
	// maturity against: the height a mempool admission would confirm at
	// is tip height + 1 (spec.md §4.7 step 1).
	Height func() uint64
}

// New returns a Validator wired to the given state. A nil riskScorer
// defaults to NoopRiskScorer.
func New(params *chaincfg.Params, utxos *utxo.Set, nonces *noncetracker.Tracker, height func() uint64, riskScorer RiskScorer) *Validator {
	if riskScorer == nil {
		riskScorer = NoopRiskScorer{}
	}
	if height == nil {
		height = func() uint64 { return 0 }
	}
	return &Validator{
		Params:     params,
		UTXOs:      utxos,
		Nonces:     nonces,
		Protected:  make(map[string]*ProtectedPolicy),
		RiskScorer: riskScorer,
		Now:        time.Now,
		Height:     height,
	}
}

// RegisterProtectedAddress marks address as governed by policy (spec.md
// §6, register_protected_address).
func (v *Validator) RegisterProtectedAddress(address string, policy *ProtectedPolicy) {
	v.Protected[address] = policy
}

// Outcome carries the side effects a successful Validate run produces: the
// UTXO entries chosen to fund the transaction, and a risk annotation.
type Outcome struct {
	ChosenEntries []*utxo.Entry
	RiskLevel     string
}

// Validate runs the eight ordered checks of spec.md §4.5 against tx. On
// success it returns the chosen spendable entries and a risk annotation;
// neither is meaningful for a coinbase transaction. Validate does not
// mutate state — callers are responsible for reserving the chosen entries
// and the sender's nonce.
func (v *Validator) Validate(tx *chainwire.Transaction) (*Outcome, error) {
	if err := v.checkFormat(tx); err != nil {
		return nil, err
	}
	if err := v.checkDust(tx); err != nil {
		return nil, err
	}
	if err := v.checkReplay(tx); err != nil {
		return nil, err
	}
	if err := v.checkSignature(tx); err != nil {
		return nil, err
	}
	if err := v.checkProtectedAddress(tx); err != nil {
		return nil, err
	}
	if err := checkTypeShape(tx); err != nil {
		return nil, err
	}
	chosen, err := v.checkFunds(tx)
	if err != nil {
		return nil, err
	}
	if err := v.checkSize(tx); err != nil {
		return nil, err
	}

	return &Outcome{
		ChosenEntries: chosen,
		RiskLevel:     v.RiskScorer.Score(tx),
	}, nil
}

// 1. Format.
func (v *Validator) checkFormat(tx *chainwire.Transaction) error {
	if !tx.IsCoinbase() {
		if !validAddressFormat(tx.Sender, v.Params) {
			return ledgererr.New(ledgererr.ErrInvalidFormat, "malformed sender address %q", tx.Sender)
		}
	}
	if !validAddressFormat(tx.Recipient, v.Params) {
		return ledgererr.New(ledgererr.ErrInvalidFormat, "malformed recipient address %q", tx.Recipient)
	}
	if tx.Amount <= 0 {
		return ledgererr.New(ledgererr.ErrInvalidFormat, "amount must be positive, got %s", tx.Amount)
	}
	if tx.Fee < 0 {
		return ledgererr.New(ledgererr.ErrInvalidFormat, "fee must be non-negative, got %s", tx.Fee)
	}
	if !tx.IsCoinbase() && tx.Nonce == nil {
		return ledgererr.New(ledgererr.ErrInvalidFormat, "non-coinbase transaction requires a nonce")
	}
	now := v.Now()
	drift := v.Params.MaxFutureDrift
	if txTime := time.Unix(tx.Timestamp, 0); txTime.After(now.Add(drift)) {
		return ledgererr.New(ledgererr.ErrInvalidFormat, "timestamp %d too far in the future", tx.Timestamp)
	}
	return nil
}

func validAddressFormat(address string, params *chaincfg.Params) bool {
	if address == chainwire.CoinbaseSender {
		return true
	}
	prefix := chainwire.AddressPrefixOf(address)
	if prefix == "" {
		return false
	}
	if params != nil && params.AddressPrefix != "" && prefix != params.AddressPrefix {
		return false
	}
	return len(address) == len(prefix)+40
}

// 2. Dust.
func (v *Validator) checkDust(tx *chainwire.Transaction) error {
	if tx.IsCoinbase() {
		return nil
	}
	if tx.Amount < v.Params.MinTxAmount {
		return ledgererr.New(ledgererr.ErrDustAmount, "amount %s below dust floor %s", tx.Amount, v.Params.MinTxAmount)
	}
	return nil
}

// 3. Replay.
func (v *Validator) checkReplay(tx *chainwire.Transaction) error {
	if tx.IsCoinbase() {
		return nil
	}
	expected := v.Nonces.NextExpected(tx.Sender)
	if *tx.Nonce != expected {
		return ledgererr.New(ledgererr.ErrBadNonce, "nonce %d != expected %d for %s", *tx.Nonce, expected, tx.Sender)
	}
	return nil
}

// 4. Signature.
func (v *Validator) checkSignature(tx *chainwire.Transaction) error {
	if !tx.SenderMatchesPublicKey() {
		return ledgererr.New(ledgererr.ErrAddressMismatch,
			"address derived from the carried public key does not match sender %s", tx.Sender)
	}
	if !tx.VerifySignature() {
		return ledgererr.New(ledgererr.ErrBadSignature, "signature verification failed for txid %s", tx.TxID)
	}
	return nil
}

// 5. Protected address.
func (v *Validator) checkProtectedAddress(tx *chainwire.Transaction) error {
	policy, ok := v.Protected[tx.Sender]
	if !ok {
		return nil
	}
	if !policy.Allows(tx.TxType) {
		return ledgererr.New(ledgererr.ErrProtectedAddressViolation, "tx_type %q not allowed from protected address %s", tx.TxType, tx.Sender)
	}
	return nil
}

// 6. Type-specific metadata.
func checkTypeShape(tx *chainwire.Transaction) error {
	switch tx.TxType {
	case chainwire.TxTimeCapsuleLock:
		capsuleID := tx.Metadata["capsule_id"]
		unlockTime := tx.Metadata["unlock_time"]
		beneficiary := tx.Metadata["beneficiary"]
		if capsuleID == "" || unlockTime == "" || beneficiary == "" {
			return ledgererr.New(ledgererr.ErrInvalidFormat, "time_capsule_lock requires capsule_id, unlock_time, and beneficiary")
		}
		unlockUnix, err := strconv.ParseInt(unlockTime, 10, 64)
		if err != nil {
			return ledgererr.New(ledgererr.ErrInvalidFormat, "time_capsule_lock unlock_time must be an integer: %v", err)
		}
		if unlockUnix <= tx.Timestamp {
			return ledgererr.New(ledgererr.ErrInvalidFormat, "time_capsule_lock unlock_time must be in the future")
		}
	case chainwire.TxTimeCapsuleClaim:
		if tx.Metadata["capsule_id"] == "" {
			return ledgererr.New(ledgererr.ErrInvalidFormat, "time_capsule_claim requires capsule_id")
		}
	}
	return nil
}

// 7. Funds.
func (v *Validator) checkFunds(tx *chainwire.Transaction) ([]*utxo.Entry, error) {
	if tx.IsCoinbase() {
		return nil, nil
	}
	needed := tx.Amount + tx.Fee
	height := v.Height()
	if v.UTXOs.SpendableBalance(tx.Sender, height) < needed {
		return nil, ledgererr.New(ledgererr.ErrInsufficientFunds, "spendable balance for %s below %s", tx.Sender, needed)
	}
	chosen, ok := v.UTXOs.SelectSpendable(tx.Sender, needed, height)
	if !ok {
		return nil, ledgererr.New(ledgererr.ErrInsufficientFunds, "no spendable prefix for %s covering %s", tx.Sender, needed)
	}
	return chosen, nil
}

// 8. Size.
func (v *Validator) checkSize(tx *chainwire.Transaction) error {
	encoded, err := tx.Serialize()
	if err != nil {
		return ledgererr.New(ledgererr.ErrInvalidFormat, "failed to serialize transaction: %v", err)
	}
	if len(encoded) > v.Params.MaxTxBytes {
		return ledgererr.New(ledgererr.ErrInvalidFormat, "serialized size %d exceeds max %d", len(encoded), v.Params.MaxTxBytes)
	}
	return nil
}
