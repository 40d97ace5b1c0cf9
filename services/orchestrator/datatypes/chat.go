// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains request and response types for the chat endpoint.
// For retrieval and corpus types, see documents.go.
package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single message content.
	// Byte length, not rune count, to bound memory on hostile payloads.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxMessagesPerRequest is the maximum number of history messages.
	MaxMessagesPerRequest = 100
)

// chatValidate is the shared validator instance for chat datatypes.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces MaxMessageContentBytes on string fields.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// =============================================================================
// Chat Request / Response
// =============================================================================

// Message is a single turn in the conversation history.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required,maxbytes"`
}

// ChatRequest is the request body for POST /v1/chat.
//
// # Fields
//
//   - UserMessage: Required. The current user message.
//   - Messages: Optional. Prior conversation turns, oldest first.
//   - MeditationStep: Carried meditation state. 0 means no active session;
//     1..N means the user is partway through the Serene Mind flow. The
//     client must echo back the value returned in the previous response.
//
// # Validation
//
//   - UserMessage: required, max 32KB
//   - Messages: max 100 elements, each role/content validated
//   - MeditationStep: >= 0
type ChatRequest struct {
	UserMessage    string    `json:"user_message" validate:"required,maxbytes"`
	Messages       []Message `json:"messages" validate:"max=100,dive"`
	MeditationStep int       `json:"meditation_step" validate:"gte=0"`
}

// Validate checks the request against the declared constraints.
func (r *ChatRequest) Validate() error {
	if err := chatValidate.Struct(r); err != nil {
		return fmt.Errorf("chat request validation failed: %w", err)
	}
	return nil
}

// ChatResponse is the response body for POST /v1/chat.
//
// # Fields
//
//   - Response: The guru's reply. Always non-empty, even on failure paths.
//   - Intent: The detected intent, or "ERROR" if the pipeline failed.
//   - MeditationStep: The meditation step to carry into the next turn.
//   - Citations: Sorted, deduplicated source URLs backing the answer.
//   - Blocked: True if a safety rail replaced the response.
//   - BlockReason: Why the message was blocked, when Blocked is true.
type ChatResponse struct {
	Response       string   `json:"response"`
	Intent         Intent   `json:"intent,omitempty"`
	MeditationStep int      `json:"meditation_step"`
	Citations      []string `json:"citations"`
	Blocked        bool     `json:"blocked"`
	BlockReason    string   `json:"block_reason,omitempty"`
}

// =============================================================================
// Ingestion Status
// =============================================================================

// IngestStatus is one entry in the last-write-wins ingestion progress map,
// keyed by source URL. Written by the background ingestion job, read by the
// status endpoint.
type IngestStatus struct {
	URL       string  `json:"url"`
	Status    string  `json:"status"` // "processing" | "success" | "failed"
	Message   string  `json:"message"`
	Progress  float64 `json:"progress"` // 0.0 .. 1.0
	UpdatedAt int64   `json:"updated_at"`
}

// UpsertRequest is the request body for POST /v1/documents.
//
// Texts, Vectors and Metadatas are parallel slices; the store rejects the
// batch when their lengths differ.
type UpsertRequest struct {
	Texts     []string             `json:"texts" validate:"required,min=1"`
	Vectors   [][]float32          `json:"vectors" validate:"required,min=1"`
	Metadatas []DocumentProperties `json:"metadatas" validate:"required,min=1"`
}

// DocumentProperties holds the per-chunk metadata stored alongside a vector.
type DocumentProperties struct {
	SourceURL   string `json:"source_url"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	ChunkIndex  int    `json:"chunk_index"`
	RaptorLevel int    `json:"raptor_level"`
}

// ToMap converts DocumentProperties to the map format required by the
// Weaviate client's WithProperties(), together with the chunk text.
func (p *DocumentProperties) ToMap(text string) map[string]interface{} {
	return map[string]interface{}{
		"text":         text,
		"source_url":   p.SourceURL,
		"title":        p.Title,
		"content_type": p.ContentType,
		"chunk_index":  p.ChunkIndex,
		"raptor_level": p.RaptorLevel,
	}
}
