// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "github.com/axnchain/axnd/logs"

// log is the chain manager's logger.
var log, _ = logs.Get(logs.SubsystemTags.CHAN)
