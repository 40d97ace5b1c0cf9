// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingestion

import (
	"sync"
	"time"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
)

// Tracker holds the in-memory ingestion progress map, keyed by source
// URL. Writes are last-write-wins: the ingestion flow reports each stage
// transition and only the newest report per URL is kept. Progress is
// lost on restart, which is acceptable for an operator status view.
type Tracker struct {
	mu       sync.RWMutex
	statuses map[string]datatypes.IngestStatus
}

func NewTracker() *Tracker {
	return &Tracker{statuses: make(map[string]datatypes.IngestStatus)}
}

// Set records the latest status for a source URL, stamping the update
// time server-side.
func (t *Tracker) Set(status datatypes.IngestStatus) {
	status.UpdatedAt = time.Now().Unix()
	t.mu.Lock()
	t.statuses[status.URL] = status
	t.mu.Unlock()
}

// Get returns the current status for one URL.
func (t *Tracker) Get(url string) (datatypes.IngestStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.statuses[url]
	return s, ok
}

// Snapshot returns a copy of every tracked status.
func (t *Tracker) Snapshot() []datatypes.IngestStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]datatypes.IngestStatus, 0, len(t.statuses))
	for _, s := range t.statuses {
		out = append(out, s)
	}
	return out
}
