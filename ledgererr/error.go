// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledgererr defines the typed error kinds surfaced at the ledger's
// API boundary (spec.md §7). Every rejection path returns a RuleError
// carrying one of these codes; the core never recovers from a structural
// inconsistency, it rejects the offending input and leaves prior state
// untouched.
package ledgererr

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a specific kind of rejection.
type ErrorCode int

const (
	// ErrInvalidFormat indicates a transaction or block failed a basic
	// structural/format check (bad address shape, non-positive amount,
	// out-of-bounds timestamp, malformed metadata).
	ErrInvalidFormat ErrorCode = iota

	// ErrDustAmount indicates a non-coinbase amount below MIN_TX_AMOUNT.
	ErrDustAmount

	// ErrBadSignature indicates ECDSA verification failed.
	ErrBadSignature

	// ErrAddressMismatch indicates the address derived from the carried
	// public key does not equal the transaction's sender.
	ErrAddressMismatch

	// ErrBadNonce indicates tx.Nonce does not equal the sender's
	// next-expected nonce.
	ErrBadNonce

	// ErrProtectedAddressViolation indicates a transaction originating
	// from a protected address does not match that reserve's allowlist.
	ErrProtectedAddressViolation

	// ErrInsufficientFunds indicates the sender's spendable balance (net
	// of mempool reservations) cannot cover amount+fee.
	ErrInsufficientFunds

	// ErrMempoolFull indicates the mempool is at its configured capacity.
	ErrMempoolFull

	// ErrDuplicateTxid indicates a transaction with the same txid is
	// already present in the mempool.
	ErrDuplicateTxid

	// ErrCoinbaseMisuse indicates a block's coinbase shape is wrong:
	// missing, duplicated, out of position, or overpaying the schedule.
	ErrCoinbaseMisuse

	// ErrInvalidBlockLink indicates a block's index or previous_hash
	// does not extend the current tip.
	ErrInvalidBlockLink

	// ErrInvalidPoW indicates a block's hash does not meet its declared
	// difficulty.
	ErrInvalidPoW

	// ErrBadMerkleRoot indicates a block's merkle_root does not match
	// its recomputed value.
	ErrBadMerkleRoot

	// ErrFutureTimestamp indicates a block's timestamp exceeds
	// now+MAX_FUTURE_DRIFT.
	ErrFutureTimestamp

	// ErrNonMonotonicTimestamp indicates a block's timestamp precedes
	// its parent's.
	ErrNonMonotonicTimestamp

	// ErrSupplyCapExceeded indicates applying a block would push total
	// supply above MAX_SUPPLY.
	ErrSupplyCapExceeded

	// ErrReorgTooDeep indicates a candidate fork's divergence point is
	// deeper than MAX_REORG_DEPTH blocks, or crosses a checkpoint.
	ErrReorgTooDeep

	// ErrGenesisHashMismatch indicates the loaded genesis payload's hash
	// does not match the network's pinned safe hash.
	ErrGenesisHashMismatch

	// ErrCancelled indicates a cooperative cancellation signal was
	// observed (e.g. during mining).
	ErrCancelled

	// numErrorCodes must stay last; it is not a valid error code.
	numErrorCodes
)

var errorCodeStrings = map[ErrorCode]string{
	ErrInvalidFormat:             "ErrInvalidFormat",
	ErrDustAmount:                "ErrDustAmount",
	ErrBadSignature:              "ErrBadSignature",
	ErrAddressMismatch:           "ErrAddressMismatch",
	ErrBadNonce:                  "ErrBadNonce",
	ErrProtectedAddressViolation: "ErrProtectedAddressViolation",
	ErrInsufficientFunds:         "ErrInsufficientFunds",
	ErrMempoolFull:               "ErrMempoolFull",
	ErrDuplicateTxid:             "ErrDuplicateTxid",
	ErrCoinbaseMisuse:            "ErrCoinbaseMisuse",
	ErrInvalidBlockLink:          "ErrInvalidBlockLink",
	ErrInvalidPoW:                "ErrInvalidPoW",
	ErrBadMerkleRoot:             "ErrBadMerkleRoot",
	ErrFutureTimestamp:           "ErrFutureTimestamp",
	ErrNonMonotonicTimestamp:     "ErrNonMonotonicTimestamp",
	ErrSupplyCapExceeded:         "ErrSupplyCapExceeded",
	ErrReorgTooDeep:              "ErrReorgTooDeep",
	ErrGenesisHashMismatch:       "ErrGenesisHashMismatch",
	ErrCancelled:                 "ErrCancelled",
}

// String returns the human-readable name of c, or a fallback for an
// out-of-range value.
func (c ErrorCode) String() string {
	if s, ok := errorCodeStrings[c]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(c))
}

// RuleError identifies a rule violation along with a human-readable
// description of why the rule was violated.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e RuleError) Error() string {
	return e.Description
}

// New creates a RuleError with the given error code and formatted
// description, the way blockdag.ruleError does in the teacher.
func New(code ErrorCode, format string, args ...interface{}) RuleError {
	return RuleError{ErrorCode: code, Description: fmt.Sprintf(format, args...)}
}

// Is reports whether err, or an error it wraps, is a RuleError with the
// given code.
func Is(err error, code ErrorCode) bool {
	var re RuleError
	if !errors.As(err, &re) {
		return false
	}
	return re.ErrorCode == code
}
