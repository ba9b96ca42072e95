// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"sync"

	"github.com/axnchain/axnd/chainwire"
)

// EventKind identifies the kind of ledger event a subscriber registers
// for (spec.md §6, subscribe(event_kind, callback)).
type EventKind string

// The fixed set of event kinds the ledger publishes.
const (
	BlockAppended EventKind = "block_appended"
	TxAdmitted    EventKind = "tx_admitted"
	TxConfirmed   EventKind = "tx_confirmed"
	Reorg         EventKind = "reorg"
)

// Event is the payload delivered to a subscriber callback. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind       EventKind
	Block      *chainwire.Block
	TxID       string
	ForkHeight uint64
}

// EventBus is the one-way dependency spec.md §10 calls for in place of
// peripheral collaborators (trade matcher, time-capsule manager,
// governance) holding back-references into the ledger: they subscribe
// here instead. Grounded on connmgr's callback-registration idiom
// (OnConnection/OnDisconnection handlers dispatched without the caller
// blocking on them).
type EventBus struct {
	mtx         sync.Mutex
	subscribers map[EventKind][]func(Event)
}

// NewEventBus returns an EventBus with no subscribers.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[EventKind][]func(Event))}
}

// Subscribe registers callback to run on every future event of kind.
func (b *EventBus) Subscribe(kind EventKind, callback func(Event)) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.subscribers[kind] = append(b.subscribers[kind], callback)
}

// publish dispatches event to every subscriber of event.Kind. Each callback
// runs on its own goroutine and a panic is recovered and logged, so a
// misbehaving subscriber (spec.md §10: "Failures from peripheral
// collaborators...never block core acceptance") can never stall or crash
// the writer that published the event.
func (b *EventBus) publish(event Event) {
	b.mtx.Lock()
	callbacks := append([]func(Event){}, b.subscribers[event.Kind]...)
	b.mtx.Unlock()

	for _, callback := range callbacks {
		go func(callback func(Event)) {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("event subscriber for %s panicked: %v", event.Kind, r)
				}
			}()
			callback(event)
		}(callback)
	}
}
