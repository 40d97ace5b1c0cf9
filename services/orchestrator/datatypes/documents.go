// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the orchestrator service.
package datatypes

// Intent is the routing decision produced by the intent router.
type Intent string

const (
	// IntentDistress routes to the distress acknowledgment + meditation offer.
	IntentDistress Intent = "DISTRESS"

	// IntentQuery routes into the full retrieval pipeline.
	IntentQuery Intent = "QUERY"

	// IntentCasual routes to a brief in-character reply, bypassing retrieval.
	IntentCasual Intent = "CASUAL"

	// IntentMeditationContinue advances an active Serene Mind session.
	IntentMeditationContinue Intent = "MEDITATION_CONTINUE"

	// IntentError is reported upward when the pipeline itself failed.
	// It is never produced by the router.
	IntentError Intent = "ERROR"
)

// Content types stored in the corpus.
const (
	ContentTypeVideo   = "video"
	ContentTypeImage   = "image"
	ContentTypeSummary = "summary"
)

// RAPTOR tree levels. Level 0 holds granular transcript chunks, level 1
// holds thematic cluster summaries. Both levels are searched together.
const (
	RaptorLevelChunk   = 0
	RaptorLevelSummary = 1
)

// RetrievedDocument is one corpus hit returned by the retrieval gateway.
//
// # Description
//
// Immutable once produced by search or rerank. Score is the vector-store
// similarity score from the broad search; RerankScore is set only on
// documents that survived cross-encoder reranking. Neither score is ever
// written back to storage.
//
// # Fields
//
//   - Text: The chunk or summary text.
//   - SourceURL: Canonical URL of the originating video/image.
//   - Title: Human-readable title of the source.
//   - ContentType: One of "video", "image", "summary".
//   - ChunkIndex: Position of this chunk within its source.
//   - RaptorLevel: 0 for granular chunks, 1 for thematic summaries.
//   - Score: Broad-search similarity score (stage-local annotation).
//   - RerankScore: Cross-encoder score (stage-local annotation).
type RetrievedDocument struct {
	Text        string  `json:"text"`
	SourceURL   string  `json:"source_url"`
	Title       string  `json:"title"`
	ContentType string  `json:"content_type"`
	ChunkIndex  int     `json:"chunk_index"`
	RaptorLevel int     `json:"raptor_level"`
	Score       float64 `json:"score"`
	RerankScore float64 `json:"rerank_score,omitempty"`
}

// Verification is the structured verdict from the claim verifier.
//
// Passed is true only when the verifier emitted an explicit passing verdict;
// an unparseable or missing verdict always yields false (fail-closed).
// Details carries the raw verifier output for audit logging.
type Verification struct {
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}
