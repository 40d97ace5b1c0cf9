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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/retrieval"
)

// HandleUpsertDocuments ingests pre-embedded chunks into the corpus.
//
// The caller (the ingestion worker) does the chunking, summarization and
// embedding; this endpoint only validates shape and writes. Summary
// chunks (raptor_level 1) go to the TeachingSummary class, everything
// else to Teaching.
func HandleUpsertDocuments(store *retrieval.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpsertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if len(req.Texts) == 0 || len(req.Texts) != len(req.Vectors) || len(req.Texts) != len(req.Metadatas) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "texts, vectors and metadatas must be non-empty parallel arrays",
			})
			return
		}

		// Split the batch by target class.
		var chunks, summaries datatypes.UpsertRequest
		for i, meta := range req.Metadatas {
			target := &chunks
			if meta.RaptorLevel == datatypes.RaptorLevelSummary {
				target = &summaries
			}
			target.Texts = append(target.Texts, req.Texts[i])
			target.Vectors = append(target.Vectors, req.Vectors[i])
			target.Metadatas = append(target.Metadatas, meta)
		}

		stored := 0
		if len(chunks.Texts) > 0 {
			n, err := store.Upsert(c.Request.Context(), datatypes.TeachingClass, chunks)
			if err != nil {
				slog.Error("Chunk upsert failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store documents"})
				return
			}
			stored += n
		}
		if len(summaries.Texts) > 0 {
			n, err := store.Upsert(c.Request.Context(), datatypes.TeachingSummaryClass, summaries)
			if err != nil {
				slog.Error("Summary upsert failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store summaries"})
				return
			}
			stored += n
		}

		slog.Info("Documents stored", "chunks", len(chunks.Texts), "summaries", len(summaries.Texts))
		c.JSON(http.StatusOK, gin.H{"stored": stored})
	}
}

// HandleDeleteDocuments removes every object ingested from one source
// URL, across both corpus classes.
func HandleDeleteDocuments(store *retrieval.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			SourceURL string `json:"source_url" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source_url is required"})
			return
		}

		deleted, err := store.DeleteBySource(c.Request.Context(), req.SourceURL)
		if err != nil {
			slog.Error("Document deletion failed", "source_url", req.SourceURL, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete documents"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	}
}

// HandleCountDocuments reports corpus sizes per class.
func HandleCountDocuments(store *retrieval.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		chunks, err := store.Count(c.Request.Context(), datatypes.TeachingClass)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count documents"})
			return
		}
		summaries, err := store.Count(c.Request.Context(), datatypes.TeachingSummaryClass)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count summaries"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"chunks":    chunks,
			"summaries": summaries,
			"total":     chunks + summaries,
		})
	}
}
