// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the Gin HTTP handlers for the orchestrator.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Harshodai/askmukthiguru-8119b0e8/pkg/logging"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/detector"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/guardrails"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/observability"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/pipeline"
)

var chatTracer = otel.Tracer("guru.orchestrator.handlers")

// errorResponse is returned whenever the pipeline itself fails. The
// user always sees a graceful message, never a raw error.
const errorResponse = "I apologize, I'm experiencing a moment of stillness. 🙏 " +
	"Please try asking your question again."

// ChatDeps are the collaborators the chat handler needs. Everything is
// constructed once at startup and shared across requests.
type ChatDeps struct {
	Graph    *pipeline.Graph
	Rails    *guardrails.Rails
	Detector *detector.Detector
	Metrics  *observability.ChatMetrics

	// Weaviate stores conversation turns asynchronously. Nil disables
	// session memory.
	Weaviate *weaviate.Client
}

// HandleChat is the main conversational endpoint.
//
// # Description
//
// The handler is a thin controller around the pipeline graph:
//
//  1. Input rail (fail-open moderation)
//  2. Distress pre-check (cheap classifier short-circuit)
//  3. Pipeline graph (intent routing through verification)
//  4. Output rail over the final answer
//
// A pipeline error never surfaces to the user as an error code: it
// becomes a fixed apologetic message with intent ERROR, empty citations
// and a reset meditation counter.
func HandleChat(deps ChatDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sessionID := c.GetHeader("X-Session-Id")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		span.SetAttributes(attribute.String("session_id", sessionID))
		logger := logging.ForSession(slog.Default(), sessionID)

		// Input rail.
		if check := deps.Rails.CheckInput(ctx, req.UserMessage); check.Blocked {
			logger.Info("Input blocked by rails", "reason", check.Reason)
			deps.Metrics.BlockedTotal.WithLabelValues("input").Inc()
			deps.Metrics.RequestsTotal.WithLabelValues("", "blocked").Inc()
			c.JSON(http.StatusOK, datatypes.ChatResponse{
				Response:    check.Response,
				Citations:   []string{},
				Blocked:     true,
				BlockReason: check.Reason,
			})
			return
		}

		// Distress pre-check. Only outside an active meditation session:
		// mid-session messages are step confirmations, not new distress.
		if req.MeditationStep == 0 && deps.Detector.Detect(ctx, req.UserMessage) {
			logger.Info("Distress detected by pre-check classifier")
			deps.Metrics.DistressDetectionsTotal.WithLabelValues("precheck").Inc()
			deps.Metrics.RequestsTotal.WithLabelValues(string(datatypes.IntentDistress), "success").Inc()
			c.JSON(http.StatusOK, datatypes.ChatResponse{
				Response:       pipeline.DistressResponse(),
				Intent:         datatypes.IntentDistress,
				MeditationStep: 1,
				Citations:      []string{},
			})
			return
		}

		// Run the pipeline.
		state := pipeline.NewState(req.UserMessage, req.Messages, req.MeditationStep)
		start := time.Now()
		err := deps.Graph.Run(ctx, state)
		deps.Metrics.PipelineDurationSeconds.Observe(time.Since(start).Seconds())

		var resp datatypes.ChatResponse
		if err != nil {
			logger.Error("Pipeline run failed", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			deps.Metrics.RequestsTotal.WithLabelValues(string(datatypes.IntentError), "error").Inc()
			resp = datatypes.ChatResponse{
				Response:  errorResponse,
				Intent:    datatypes.IntentError,
				Citations: []string{},
			}
		} else {
			recordOutcome(deps.Metrics, state)
			resp = datatypes.ChatResponse{
				Response:       state.FinalAnswer,
				Intent:         state.Intent,
				MeditationStep: state.MeditationStep,
				Citations:      state.Citations,
			}
			if resp.Citations == nil {
				resp.Citations = []string{}
			}
		}

		// Output rail over whatever is about to be shown.
		if check := deps.Rails.CheckOutput(ctx, resp.Response); check.Blocked {
			logger.Info("Output moderated by rails", "reason", check.Reason)
			deps.Metrics.BlockedTotal.WithLabelValues("output").Inc()
			resp.Response = check.Response
			resp.Blocked = true
			resp.BlockReason = check.Reason
		}

		// Session memory is best-effort and must not delay the reply.
		if err == nil && deps.Weaviate != nil && resp.Response != "" {
			go saveTurn(deps.Weaviate, sessionID, req.UserMessage, resp.Response)
		}

		c.JSON(http.StatusOK, resp)
	}
}

// recordOutcome translates a finished pipeline state into metrics.
func recordOutcome(m *observability.ChatMetrics, s *pipeline.State) {
	m.RequestsTotal.WithLabelValues(string(s.Intent), "success").Inc()
	if s.RewriteCount > 0 {
		m.RewritesTotal.Add(float64(s.RewriteCount))
	}
	switch s.Intent {
	case datatypes.IntentDistress:
		m.DistressDetectionsTotal.WithLabelValues("intent_router").Inc()
	case datatypes.IntentMeditationContinue:
		m.MeditationStepsTotal.Inc()
	}
	if s.Intent == datatypes.IntentQuery && len(s.RelevantDocs) == 0 {
		m.FallbacksTotal.Inc()
	}
}

// saveTurn persists one conversation turn. Runs on its own goroutine
// with its own timeout; failures are logged and dropped.
func saveTurn(client *weaviate.Client, sessionID, question, answer string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conv := datatypes.Conversation{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
	}
	if err := conv.Save(ctx, client); err != nil {
		slog.Warn("Failed to save conversation turn", "session_id", sessionID, "error", err)
	}
}
