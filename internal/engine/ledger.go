package engine

import "sync"

// Ledger remembers which master order IDs already triggered a replication
// or a cancellation. Master orders stay visible in the order list for many
// polling cycles; the ledger is what makes the loop idempotent. Both sets
// only ever grow and an ID enters each set at most once.
type Ledger struct {
	mu        sync.Mutex
	placed    map[string]bool
	cancelled map[string]bool
}

func NewLedger() *Ledger {
	return &Ledger{
		placed:    map[string]bool{},
		cancelled: map[string]bool{},
	}
}

func (l *Ledger) ShouldPlace(orderID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.placed[orderID]
}

func (l *Ledger) ShouldCancel(orderID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.cancelled[orderID]
}

func (l *Ledger) MarkPlaced(orderID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.placed[orderID] = true
}

func (l *Ledger) MarkCancelled(orderID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelled[orderID] = true
}
