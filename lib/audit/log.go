// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit is the append-only action log of the mandate chain.
// Entries are totally ordered by insertion; each carries the id of the
// mandate it concerns when one is known, so a chain's history can be
// reconstructed with [Log.ForMandates].
package audit

import (
	"sync"

	"github.com/bureau-foundation/ap2/lib/clock"
	"github.com/bureau-foundation/ap2/lib/mandate"
)

// Log is safe for concurrent appenders.
type Log struct {
	clock clock.Clock

	mu       sync.Mutex
	entries  []mandate.AuditEntry
	sequence uint64
}

// New returns an empty log stamped by clk.
func New(clk clock.Clock) *Log {
	if clk == nil {
		clk = clock.Real()
	}
	return &Log{clock: clk}
}

// Append records an action and returns the stored entry.
func (l *Log) Append(agent, action, details, mandateID string) mandate.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sequence++
	entry := mandate.AuditEntry{
		Sequence:  l.sequence,
		Timestamp: l.clock.Now(),
		Agent:     agent,
		Action:    action,
		Details:   details,
		MandateID: mandateID,
	}
	l.entries = append(l.entries, entry)
	return entry
}

// ForMandates returns, in insertion order, every entry whose mandate
// id is one of ids.
func (l *Log) ForMandates(ids ...string) []mandate.AuditEntry {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			wanted[id] = struct{}{}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	result := []mandate.AuditEntry{}
	for _, entry := range l.entries {
		if _, ok := wanted[entry.MandateID]; ok {
			result = append(result, entry)
		}
	}
	return result
}

// Snapshot returns a copy of every entry.
func (l *Log) Snapshot() []mandate.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]mandate.AuditEntry{}, l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Reset drops every entry. Sequence numbers restart at 1.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.sequence = 0
}
