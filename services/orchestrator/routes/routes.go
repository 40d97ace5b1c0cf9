// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/handlers"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/ingestion"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/retrieval"
)

// chatRPS is the sustained per-client request rate for the chat
// endpoint, with a small burst for page loads that fire a greeting.
const (
	chatRPS   = 2.0
	chatBurst = 5
)

// SetupRoutes registers every HTTP endpoint on the router.
//
// The chat endpoint carries the full pipeline; the /v1/documents and
// /v1/ingest groups are the admin surface used by ingestion tooling.
func SetupRoutes(router *gin.Engine, deps handlers.ChatDeps, store *retrieval.Store,
	ingestSvc *ingestion.Service, tracker *ingestion.Tracker, client *weaviate.Client) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadyCheck(client))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/chat", RateLimit(chatRPS, chatBurst), handlers.HandleChat(deps))

		v1.POST("/documents", handlers.HandleUpsertDocuments(store))
		v1.DELETE("/documents", handlers.HandleDeleteDocuments(store))
		v1.GET("/documents/count", handlers.HandleCountDocuments(store))

		ingest := v1.Group("/ingest")
		{
			ingest.POST("", handlers.HandleIngestDocument(ingestSvc))
			ingest.POST("/status", handlers.HandleReportIngestStatus(tracker))
			ingest.GET("/status", handlers.HandleIngestStatus(tracker))
		}
	}
}
