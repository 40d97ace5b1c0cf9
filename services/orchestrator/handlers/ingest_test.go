// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/ingestion"
)

func TestHandleIngestStatus_SingleAndSnapshot(t *testing.T) {
	tracker := ingestion.NewTracker()
	tracker.Set(datatypes.IngestStatus{URL: "https://example.com/a", Status: "processing", Progress: 0.5})
	tracker.Set(datatypes.IngestStatus{URL: "https://example.com/b", Status: "failed", Message: "fetch error"})

	router := gin.New()
	router.GET("/v1/ingest/status", HandleIngestStatus(tracker))

	// Single entry by URL.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/ingest/status?url=https%3A%2F%2Fexample.com%2Fa", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var single datatypes.IngestStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &single))
	assert.Equal(t, "processing", single.Status)

	// Unknown URL is a 404.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/ingest/status?url=https%3A%2F%2Fexample.com%2Fnope", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Full snapshot.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/ingest/status", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot struct {
		Statuses []datatypes.IngestStatus `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Len(t, snapshot.Statuses, 2)
}

func TestHandleReportIngestStatus(t *testing.T) {
	tracker := ingestion.NewTracker()

	w := postJSON(HandleReportIngestStatus(tracker), datatypes.IngestStatus{
		URL:      "https://example.com/talk",
		Status:   "processing",
		Progress: 0.1,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	got, ok := tracker.Get("https://example.com/talk")
	require.True(t, ok)
	assert.Equal(t, "processing", got.Status)

	// Missing URL is rejected.
	w = postJSON(HandleReportIngestStatus(tracker), map[string]any{"status": "processing"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
