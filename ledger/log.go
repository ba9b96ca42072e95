// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import "github.com/axnchain/axnd/logs"

var log, _ = logs.Get(logs.SubsystemTags.LEDG)
