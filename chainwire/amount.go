// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainwire

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// UnitsPerCoin is the number of Amount units in one whole coin: eight
// fractional decimal digits, matching spec.md §3 ("non-negative decimal, 8
// fractional digits"), the same fixed-point convention btcutil.Amount uses
// for satoshis.
const UnitsPerCoin = 1e8

// Amount represents a quantity of the native coin as a signed integer
// number of hundred-millionths, avoiding the rounding drift a float64
// amount would introduce into txid/block-hash computation.
type Amount int64

// NewAmount creates an Amount from a floating point coin value, rounding to
// the nearest unit. Returns an error if f is NaN, infinite, or would
// overflow an Amount.
func NewAmount(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("chainwire: invalid amount %v", f)
	}
	round := math.Round(f * UnitsPerCoin)
	if round < math.MinInt64 || round > math.MaxInt64 {
		return 0, fmt.Errorf("chainwire: amount %v overflows Amount", f)
	}
	return Amount(round), nil
}

// ToCoin converts a to its floating point coin representation.
func (a Amount) ToCoin() float64 {
	return float64(a) / UnitsPerCoin
}

// String formats a as a fixed-point decimal coin amount.
func (a Amount) String() string {
	return strconv.FormatFloat(a.ToCoin(), 'f', 8, 64)
}

// MarshalJSON encodes a as a decimal string so canonical hashing never
// depends on a JSON number encoder's float formatting choices.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes either a decimal string or a JSON number into a.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		amt, err := NewAmount(f)
		if err != nil {
			return err
		}
		*a = amt
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("chainwire: amount is neither a decimal string nor a number: %w", err)
	}
	amt, err := NewAmount(f)
	if err != nil {
		return err
	}
	*a = amt
	return nil
}
