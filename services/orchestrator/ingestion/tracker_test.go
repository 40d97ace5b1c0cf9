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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
)

func TestTracker_LastWriteWins(t *testing.T) {
	tracker := NewTracker()

	tracker.Set(datatypes.IngestStatus{URL: "https://example.com/talk", Status: "processing", Progress: 0.2})
	tracker.Set(datatypes.IngestStatus{URL: "https://example.com/talk", Status: "success", Progress: 1.0})

	got, ok := tracker.Get("https://example.com/talk")
	require.True(t, ok)
	assert.Equal(t, "success", got.Status)
	assert.Equal(t, 1.0, got.Progress)
	assert.NotZero(t, got.UpdatedAt)
}

func TestTracker_UnknownURL(t *testing.T) {
	tracker := NewTracker()
	_, ok := tracker.Get("https://example.com/missing")
	assert.False(t, ok)
}

// TestTracker_ConcurrentWrites exercises the map under the race
// detector.
func TestTracker_ConcurrentWrites(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Set(datatypes.IngestStatus{URL: "https://example.com/talk", Status: "processing"})
		}()
	}
	wg.Wait()

	got, ok := tracker.Get("https://example.com/talk")
	require.True(t, ok)
	assert.Equal(t, "processing", got.Status)
	assert.Len(t, tracker.Snapshot(), 1)
}
