package engine

import "sync"

// Mapper tracks which child order replicated which master order:
// master order ID -> child client ID -> child order ID. Entries are written
// at placement time and read when a cancellation for the master order comes
// through. There is no removal; entries live as long as the process.
type Mapper struct {
	mu      sync.Mutex
	entries map[string]map[string]string
}

func NewMapper() *Mapper {
	return &Mapper{entries: map[string]map[string]string{}}
}

func (m *Mapper) Record(masterOrderID, childClientID, childOrderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	children, ok := m.entries[masterOrderID]
	if !ok {
		children = map[string]string{}
		m.entries[masterOrderID] = children
	}
	children[childClientID] = childOrderID
}

// Lookup returns a copy of the replica map for a master order. An order that
// was never replicated (cancelled before placement, or placement failed on
// every child) yields an empty map.
func (m *Mapper) Lookup(masterOrderID string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for clientID, orderID := range m.entries[masterOrderID] {
		out[clientID] = orderID
	}
	return out
}
