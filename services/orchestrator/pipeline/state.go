// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline implements the anti-hallucination answer pipeline.
//
// A question flows through a fixed graph of stages: intent routing,
// decomposition, retrieval, reranking, relevance grading with a
// self-correcting rewrite loop, hint extraction, generation, and two
// post-generation gates (faithfulness and claim verification). Every
// gate fails closed: when in doubt the pipeline returns an honest
// fallback instead of an unverified answer.
package pipeline

import (
	"time"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
)

// State is the mutable working memory of one pipeline run.
//
// Stages mutate only their own output fields. The zero value is not
// usable; construct with NewState so every collection starts empty
// rather than nil-ambiguous.
type State struct {
	// Question is the raw user message. Never mutated after construction.
	Question string

	// ChatHistory holds prior turns, oldest first.
	ChatHistory []datatypes.Message

	// Intent is set once by the intent router.
	Intent datatypes.Intent

	// SubQueries is the decomposer's output. Always at least one entry
	// after the decompose stage (the question itself when simple).
	SubQueries []string

	// IsComplex records the decomposer's complexity verdict.
	IsComplex bool

	// RewrittenQuery replaces Question for retrieval after a CRAG
	// rewrite. Empty until the first rewrite.
	RewrittenQuery string

	// RewriteCount counts completed rewrites, bounded by MaxRewrites.
	RewriteCount int

	// Documents is the broad retrieval result, deduplicated across
	// sub-queries.
	Documents []datatypes.RetrievedDocument

	// RerankedDocs is the cross-encoder top slice of Documents.
	RerankedDocs []datatypes.RetrievedDocument

	// RelevantDocs are the reranked documents that passed CRAG grading.
	RelevantDocs []datatypes.RetrievedDocument

	// Hints are the extracted evidence phrases, at most five.
	Hints []string

	// Answer is the raw generated answer before the quality gates.
	Answer string

	// Citations are the sorted unique source URLs of RelevantDocs.
	Citations []string

	// IsFaithful is the Self-RAG gate verdict.
	IsFaithful bool

	// Verification is the chain-of-verification result.
	Verification datatypes.Verification

	// MeditationStep tracks the Serene Mind session. Zero means no
	// session; 1..4 is the next step to deliver.
	MeditationStep int

	// FinalAnswer is the user-facing response set by a terminal stage.
	FinalAnswer string

	// StageDurations records wall time per executed stage, in order of
	// execution for repeated stages the last run wins.
	StageDurations map[string]time.Duration
}

// CurrentQuery returns the query retrieval should use: the latest
// rewrite when one exists, the original question otherwise.
func (s *State) CurrentQuery() string {
	if s.RewrittenQuery != "" {
		return s.RewrittenQuery
	}
	return s.Question
}

// NewState builds the initial state for one run. meditationStep carries
// the client-held session counter; pass zero when no meditation is
// active.
func NewState(question string, history []datatypes.Message, meditationStep int) *State {
	if history == nil {
		history = []datatypes.Message{}
	}
	return &State{
		Question:       question,
		ChatHistory:    history,
		SubQueries:     []string{},
		Documents:      []datatypes.RetrievedDocument{},
		RerankedDocs:   []datatypes.RetrievedDocument{},
		RelevantDocs:   []datatypes.RetrievedDocument{},
		Hints:          []string{},
		Citations:      []string{},
		MeditationStep: meditationStep,
		StageDurations: map[string]time.Duration{},
	}
}
