// Package store provides in-process sink implementations.
package store

import (
	"context"
	"sync"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
)

// =============================================================================
// MEMORY AUDIT LOG - In-memory implementation (tests only: it never evicts)
// =============================================================================

// MemoryAudit keeps audit entries in insertion order.
type MemoryAudit struct {
	mu      sync.RWMutex
	entries []generic.AuditEntry
}

var _ generic.AuditLog = (*MemoryAudit)(nil)

func NewMemoryAudit() *MemoryAudit {
	return &MemoryAudit{}
}

// Append adds an entry. Append-only.
func (m *MemoryAudit) Append(_ context.Context, entry generic.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Query returns a copy of the entries matching filter, oldest first.
func (m *MemoryAudit) Query(_ context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []generic.AuditEntry
	for _, e := range m.entries {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len returns the number of entries.
func (m *MemoryAudit) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
