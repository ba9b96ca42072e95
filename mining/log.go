// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import "github.com/axnchain/axnd/logs"

// log is the mining subsystem's logger. At the MINR subsystem's default
// info level it emits Mine's Infof lines; AssembleBlock's Debugf lines
// appear only once the level is lowered to debug or trace.
var log, _ = logs.Get(logs.SubsystemTags.MINR)
