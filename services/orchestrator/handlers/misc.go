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
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

// HealthCheck reports liveness. It always returns 200 while the process
// is running; readiness is a separate concern.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReadyCheck reports readiness, including whether Weaviate is reachable.
// Returns 503 when the vector store is configured but not responding.
func ReadyCheck(client *weaviate.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.JSON(http.StatusOK, gin.H{"ready": true, "weaviate": "not configured"})
			return
		}
		ready, err := client.Misc().ReadyChecker().Do(c.Request.Context())
		if err != nil || !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "weaviate": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ready": true, "weaviate": "ok"})
	}
}
