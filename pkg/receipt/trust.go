package receipt

import "sync"

// Ledger tracks, per component, the most recently chained receipt ID. It
// supplements the core content-addressed schema with an optional hash-chain
// bookkeeping field (PrevReceiptID) so a store can answer "what did this
// component's last receipt look like" without a range query — the same
// role the teacher's install registry played for pack installs, generalized
// to any component.
//
// PrevReceiptID never enters the textual ID: it is assigned after a
// receipt's ID is already fixed, and omitted entirely for a component's
// first receipt. When set, it is part of the canonical form and so of the
// content ID.
type Ledger struct {
	mu   sync.Mutex
	last map[string]string
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{last: make(map[string]string)}
}

// Chain links r to the previous receipt recorded for r.Component, if any,
// then records r.ID as the new tip. Call this after r.ID is set and before
// persisting r.
func (l *Ledger) Chain(r *Receipt) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.last[r.Component]; ok {
		r.PrevReceiptID = prev
	}
	l.last[r.Component] = r.ID
}

// LastID returns the most recently chained receipt ID for component, if any.
func (l *Ledger) LastID(component string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, ok := l.last[component]
	return id, ok
}
