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
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/ingestion"
)

// ingestTimeout bounds one background ingestion run, including the
// summary LLM call.
const ingestTimeout = 10 * time.Minute

// HandleIngestDocument accepts a raw document and ingests it in the
// background. The response is immediate; progress is polled from the
// status endpoint.
func HandleIngestDocument(svc *ingestion.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ingestion.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content and source_url are required"})
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
			defer cancel()
			if _, err := svc.Ingest(ctx, req); err != nil {
				slog.Error("Background ingestion failed", "source_url", req.SourceURL, "error", err)
			}
		}()

		c.JSON(http.StatusAccepted, gin.H{
			"status":     "processing",
			"source_url": req.SourceURL,
		})
	}
}

// HandleReportIngestStatus lets an external ingestion worker push a
// progress update for a source URL it is processing itself.
func HandleReportIngestStatus(tracker *ingestion.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var status datatypes.IngestStatus
		if err := c.ShouldBindJSON(&status); err != nil || status.URL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
			return
		}
		tracker.Set(status)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// HandleIngestStatus reports ingestion progress. With a ?url= query
// parameter it returns the single matching entry, otherwise the full
// snapshot.
func HandleIngestStatus(tracker *ingestion.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if url := c.Query("url"); url != "" {
			status, ok := tracker.Get(url)
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "No ingestion recorded for this URL"})
				return
			}
			c.JSON(http.StatusOK, status)
			return
		}
		c.JSON(http.StatusOK, gin.H{"statuses": tracker.Snapshot()})
	}
}
