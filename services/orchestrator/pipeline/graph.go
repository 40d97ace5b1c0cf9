// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("guru.orchestrator.pipeline")

// StageFunc is one pipeline stage. It mutates the state it is given.
type StageFunc func(ctx context.Context, s *State) error

// RouteFunc picks the next stage name after a branching stage.
type RouteFunc func(s *State) string

// node is a named stage plus its routing. Exactly one of next and route
// is set; both empty marks a terminal stage.
type node struct {
	run   StageFunc
	next  string
	route RouteFunc
}

// StageObserver receives the wall time of every executed stage.
// Used to feed metrics without coupling this package to the registry.
type StageObserver func(stage string, d time.Duration)

// Graph is the compiled pipeline: named stages, fixed and conditional
// edges, and a step ceiling that makes every run finite even if a
// routing bug wires a cycle without a counter.
type Graph struct {
	nodes    map[string]*node
	entry    string
	maxSteps int
	observer StageObserver
}

const entryStage = "intent_router"

// maxGraphSteps bounds one run. The longest legal path is the full
// query pipeline with every rewrite taken, well under this ceiling.
const maxGraphSteps = 50

// BuildGraph wires the stages of p into the full pipeline:
//
//	intent_router
//	  ├─ distress   → handle_distress (terminal)
//	  ├─ meditation → handle_meditation (terminal)
//	  ├─ casual     → handle_casual (terminal)
//	  └─ query      → decompose_query → retrieve_documents
//	                 → rerank_documents → grade_documents
//	                     ├─ relevant → extract_hints → generate_answer
//	                     │            → check_faithfulness
//	                     │                ├─ faithful → verify_answer
//	                     │                │            → format_final_answer
//	                     │                └─ else → handle_fallback
//	                     ├─ rewrite  → rewrite_query → retrieve_documents
//	                     └─ fallback → handle_fallback
func BuildGraph(p *Pipeline, observer StageObserver) *Graph {
	maxRewrites := p.opts.MaxRewrites

	return &Graph{
		entry:    entryStage,
		maxSteps: maxGraphSteps,
		observer: observer,
		nodes: map[string]*node{
			entryStage:           {run: p.IntentRouter, route: routeByIntent},
			"decompose_query":    {run: p.DecomposeQuery, next: "retrieve_documents"},
			"retrieve_documents": {run: p.RetrieveDocuments, next: "rerank_documents"},
			"rerank_documents":   {run: p.RerankDocuments, next: "grade_documents"},
			"grade_documents":    {run: p.GradeDocuments, route: routeAfterGrading(maxRewrites)},
			"rewrite_query":      {run: p.RewriteQuery, next: "retrieve_documents"},
			"extract_hints":      {run: p.ExtractHints, next: "generate_answer"},
			"generate_answer":    {run: p.GenerateAnswer, next: "check_faithfulness"},
			"check_faithfulness": {run: p.CheckFaithfulness, route: routeAfterFaithfulness},
			"verify_answer":      {run: p.VerifyAnswer, next: "format_final_answer"},
			"format_final_answer": {run: p.FormatFinalAnswer},
			"handle_casual":       {run: p.HandleCasual},
			"handle_distress":     {run: p.HandleDistress},
			"handle_meditation":   {run: p.HandleMeditation},
			"handle_fallback":     {run: p.HandleFallback},
		},
	}
}

// Run executes the graph over s until a terminal stage completes.
//
// Any stage error aborts the run and is returned to the caller; the
// handler decides how to apologize. The state is left as the failing
// stage left it, which is useful in logs but must not reach the user.
func (g *Graph) Run(ctx context.Context, s *State) error {
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()

	current := g.entry
	for step := 0; ; step++ {
		if step >= g.maxSteps {
			err := fmt.Errorf("pipeline exceeded %d steps at stage %q", g.maxSteps, current)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline canceled at stage %q: %w", current, err)
		}

		n, ok := g.nodes[current]
		if !ok {
			err := fmt.Errorf("pipeline routed to unknown stage %q", current)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		start := time.Now()
		err := n.run(ctx, s)
		elapsed := time.Since(start)
		s.StageDurations[current] = elapsed
		if g.observer != nil {
			g.observer(current, elapsed)
		}
		slog.Debug("Stage finished", "stage", current, "duration", elapsed, "error", err != nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("failed_stage", current))
			return err
		}

		switch {
		case n.route != nil:
			current = n.route(s)
		case n.next != "":
			current = n.next
		default:
			span.SetAttributes(
				attribute.String("intent", string(s.Intent)),
				attribute.Int("steps", step+1),
			)
			return nil
		}
	}
}

// =============================================================================
// Routing functions
// =============================================================================

func routeByIntent(s *State) string {
	switch s.Intent {
	case "DISTRESS":
		return "handle_distress"
	case "MEDITATION_CONTINUE":
		return "handle_meditation"
	case "QUERY":
		return "decompose_query"
	default:
		return "handle_casual"
	}
}

// routeAfterGrading implements the CRAG loop: relevant documents move
// forward, an empty set rewrites until the budget runs out, then the
// run falls back.
func routeAfterGrading(maxRewrites int) RouteFunc {
	return func(s *State) string {
		switch {
		case len(s.RelevantDocs) > 0:
			return "extract_hints"
		case s.RewriteCount < maxRewrites:
			return "rewrite_query"
		default:
			return "handle_fallback"
		}
	}
}

func routeAfterFaithfulness(s *State) string {
	if s.IsFaithful {
		return "verify_answer"
	}
	return "handle_fallback"
}
