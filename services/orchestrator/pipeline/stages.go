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
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/llm"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
)

// LanguageModel is the set of model capabilities the pipeline consumes.
// llm.Gateway satisfies it.
type LanguageModel interface {
	ClassifyIntent(ctx context.Context, message string) (string, error)
	IsComplexQuery(ctx context.Context, query string) (bool, error)
	DecomposeQuery(ctx context.Context, query string) ([]string, error)
	RewriteQuery(ctx context.Context, original string) (string, error)
	HypotheticalAnswer(ctx context.Context, query string) (string, error)
	GradeRelevance(ctx context.Context, query, document string) (bool, error)
	ExtractHints(ctx context.Context, query string, documents []string) ([]string, error)
	AnswerFromContext(ctx context.Context, question, docContext string, hints []string) (string, error)
	CasualReply(ctx context.Context, message string) (string, error)
	CheckFaithfulness(ctx context.Context, answer, docContext string) (bool, error)
	VerifyClaims(ctx context.Context, answer, docContext string) (bool, string, error)
}

// Encoder embeds queries and reranks candidates. retrieval.Embedder
// satisfies it.
type Encoder interface {
	EncodeSingle(ctx context.Context, text string) ([]float32, error)
	Rerank(ctx context.Context, query string, docs []datatypes.RetrievedDocument, topK int) ([]datatypes.RetrievedDocument, error)
}

// SearchStore is the vector search surface the pipeline needs.
// retrieval.Store satisfies it.
type SearchStore interface {
	Search(ctx context.Context, queryText string, vector []float32, limit int) ([]datatypes.RetrievedDocument, error)
}

// Options carries the retrieval tunables.
type Options struct {
	// TopKRetrieval is the broad search size per sub-query.
	TopKRetrieval int

	// TopKRerank is how many documents survive reranking.
	TopKRerank int

	// MaxRewrites bounds the CRAG rewrite loop.
	MaxRewrites int

	// UseHyDE embeds a hypothetical answer instead of the query text.
	UseHyDE bool
}

// DefaultOptions mirror the production defaults.
func DefaultOptions() Options {
	return Options{
		TopKRetrieval: 20,
		TopKRerank:    3,
		MaxRewrites:   3,
		UseHyDE:       false,
	}
}

// Pipeline holds the stage implementations and their dependencies.
// Build a Graph around it to run requests.
type Pipeline struct {
	model   LanguageModel
	encoder Encoder
	store   SearchStore
	opts    Options
}

// NewPipeline wires the stages to their dependencies.
func NewPipeline(model LanguageModel, encoder Encoder, store SearchStore, opts Options) *Pipeline {
	if opts.TopKRetrieval <= 0 {
		opts.TopKRetrieval = DefaultOptions().TopKRetrieval
	}
	if opts.TopKRerank <= 0 {
		opts.TopKRerank = DefaultOptions().TopKRerank
	}
	if opts.MaxRewrites <= 0 {
		opts.MaxRewrites = DefaultOptions().MaxRewrites
	}
	return &Pipeline{model: model, encoder: encoder, store: store, opts: opts}
}

// =============================================================================
// Routing stage
// =============================================================================

// IntentRouter classifies the message and sets s.Intent.
//
// An active meditation session short-circuits the LLM classifier: the
// step counter plus a keyword check decide whether the session
// continues. A finished or declined session resets the counter and
// falls back to casual conversation.
//
// Writes: Intent, MeditationStep.
func (p *Pipeline) IntentRouter(ctx context.Context, s *State) error {
	if s.MeditationStep > 0 {
		switch {
		case IsMeditationComplete(s.MeditationStep):
			s.Intent = datatypes.IntentCasual
			s.MeditationStep = 0
		case ShouldContinueMeditation(s.Question):
			s.Intent = datatypes.IntentMeditationContinue
		default:
			s.Intent = datatypes.IntentCasual
			s.MeditationStep = 0
		}
		return nil
	}

	intent, err := p.model.ClassifyIntent(ctx, s.Question)
	if err != nil {
		return fmt.Errorf("intent routing failed: %w", err)
	}
	switch intent {
	case "DISTRESS":
		s.Intent = datatypes.IntentDistress
	case "QUERY":
		s.Intent = datatypes.IntentQuery
	default:
		s.Intent = datatypes.IntentCasual
	}
	slog.Info("Intent classified", "intent", s.Intent, "question_len", len(s.Question))
	return nil
}

// =============================================================================
// Retrieval stages
// =============================================================================

// DecomposeQuery splits a complex question into sub-queries. Simple
// questions pass through as a single-element slice.
//
// Writes: SubQueries, IsComplex.
func (p *Pipeline) DecomposeQuery(ctx context.Context, s *State) error {
	question := s.CurrentQuery()

	isComplex, err := p.model.IsComplexQuery(ctx, question)
	if err != nil {
		return fmt.Errorf("decomposition failed: %w", err)
	}
	if !isComplex {
		s.SubQueries = []string{question}
		s.IsComplex = false
		return nil
	}

	subQueries, err := p.model.DecomposeQuery(ctx, question)
	if err != nil {
		return fmt.Errorf("decomposition failed: %w", err)
	}
	s.SubQueries = subQueries
	s.IsComplex = true
	slog.Info("Query decomposed", "sub_queries", len(subQueries))
	return nil
}

// RetrieveDocuments runs the broad vector search for every sub-query
// and merges the results, deduplicating on a text prefix fingerprint so
// overlapping sub-queries don't flood the reranker with copies.
//
// Writes: Documents.
func (p *Pipeline) RetrieveDocuments(ctx context.Context, s *State) error {
	subQueries := s.SubQueries
	if len(subQueries) == 0 {
		subQueries = []string{s.CurrentQuery()}
	}

	// Sub-queries fan out concurrently. Results are collected per
	// sub-query so deduplication order stays deterministic.
	perQuery := make([][]datatypes.RetrievedDocument, len(subQueries))
	g, gctx := errgroup.WithContext(ctx)
	for i, query := range subQueries {
		g.Go(func() error {
			// HyDE: embed a hypothetical answer instead of the question
			// to pull the query vector toward the document vectors.
			// Failure falls back to the plain query.
			queryForEmbedding := query
			if p.opts.UseHyDE {
				hypothetical, err := p.model.HypotheticalAnswer(gctx, query)
				if err != nil {
					slog.Warn("Hypothetical answer generation failed, using original query", "error", err)
				} else {
					queryForEmbedding = hypothetical
				}
			}

			vector, err := p.encoder.EncodeSingle(gctx, queryForEmbedding)
			if err != nil {
				return fmt.Errorf("query embedding failed: %w", err)
			}

			results, err := p.store.Search(gctx, query, vector, p.opts.TopKRetrieval)
			if err != nil {
				return fmt.Errorf("retrieval failed: %w", err)
			}
			perQuery[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var allDocs []datatypes.RetrievedDocument
	seen := map[string]struct{}{}
	for _, results := range perQuery {
		for _, doc := range results {
			fp := fingerprint(doc.Text)
			if _, dup := seen[fp]; dup {
				continue
			}
			seen[fp] = struct{}{}
			allDocs = append(allDocs, doc)
		}
	}

	s.Documents = allDocs
	slog.Info("Documents retrieved", "unique", len(allDocs), "sub_queries", len(subQueries))
	return nil
}

// fingerprint keys a document by its first 100 bytes of text. Chunks
// from the same source that share a long prefix collapse to one entry.
func fingerprint(text string) string {
	if len(text) > 100 {
		return text[:100]
	}
	return text
}

// RerankDocuments narrows the broad result set with the cross-encoder.
//
// Writes: RerankedDocs.
func (p *Pipeline) RerankDocuments(ctx context.Context, s *State) error {
	if len(s.Documents) == 0 {
		s.RerankedDocs = []datatypes.RetrievedDocument{}
		return nil
	}

	reranked, err := p.encoder.Rerank(ctx, s.CurrentQuery(), s.Documents, p.opts.TopKRerank)
	if err != nil {
		return fmt.Errorf("reranking failed: %w", err)
	}
	s.RerankedDocs = reranked
	slog.Info("Documents reranked", "in", len(s.Documents), "out", len(reranked))
	return nil
}

// GradeDocuments applies the binary CRAG relevance gate to each
// reranked document independently. Documents that fail are dropped; an
// empty survivor set later triggers a rewrite or the fallback.
//
// Writes: RelevantDocs.
func (p *Pipeline) GradeDocuments(ctx context.Context, s *State) error {
	question := s.CurrentQuery()

	relevant := make([]datatypes.RetrievedDocument, 0, len(s.RerankedDocs))
	for _, doc := range s.RerankedDocs {
		ok, err := p.model.GradeRelevance(ctx, question, doc.Text)
		if err != nil {
			return fmt.Errorf("relevance grading failed: %w", err)
		}
		if ok {
			relevant = append(relevant, doc)
		}
	}
	s.RelevantDocs = relevant
	slog.Info("Documents graded", "passed", len(relevant), "total", len(s.RerankedDocs))
	return nil
}

// RewriteQuery expands the query after a failed grading round and bumps
// the rewrite counter. The loop bound lives in the router, not here.
//
// Writes: RewrittenQuery, RewriteCount.
func (p *Pipeline) RewriteQuery(ctx context.Context, s *State) error {
	original := s.CurrentQuery()

	rewritten, err := p.model.RewriteQuery(ctx, original)
	if err != nil {
		return fmt.Errorf("query rewrite failed: %w", err)
	}
	s.RewriteCount++
	s.RewrittenQuery = rewritten
	slog.Info("Query rewritten", "attempt", s.RewriteCount)
	return nil
}

// =============================================================================
// Generation stages
// =============================================================================

// ExtractHints pulls the key evidence phrases out of the relevant
// documents before generation.
//
// Writes: Hints.
func (p *Pipeline) ExtractHints(ctx context.Context, s *State) error {
	texts := make([]string, len(s.RelevantDocs))
	for i, doc := range s.RelevantDocs {
		texts[i] = doc.Text
	}

	hints, err := p.model.ExtractHints(ctx, s.CurrentQuery(), texts)
	if err != nil {
		return fmt.Errorf("hint extraction failed: %w", err)
	}
	s.Hints = hints
	return nil
}

// GenerateAnswer produces the candidate answer from context and hints,
// and derives the citation list from the relevant documents.
//
// Writes: Answer, Citations.
func (p *Pipeline) GenerateAnswer(ctx context.Context, s *State) error {
	docContext := buildContext(s.RelevantDocs)

	answer, err := p.model.AnswerFromContext(ctx, s.CurrentQuery(), docContext, s.Hints)
	if err != nil {
		return fmt.Errorf("answer generation failed: %w", err)
	}
	s.Answer = answer
	s.Citations = citationsFrom(s.RelevantDocs)
	slog.Info("Answer generated", "chars", len(answer), "citations", len(s.Citations))
	return nil
}

// buildContext renders the documents into the generation context, each
// labeled with its source.
func buildContext(docs []datatypes.RetrievedDocument) string {
	parts := make([]string, len(docs))
	for i, doc := range docs {
		label := doc.Title
		if label == "" {
			label = doc.SourceURL
		}
		if label == "" {
			label = "Unknown"
		}
		parts[i] = fmt.Sprintf("[Source: %s]\n%s", label, doc.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// citationsFrom collects the unique source URLs, sorted for
// reproducible output.
func citationsFrom(docs []datatypes.RetrievedDocument) []string {
	set := map[string]struct{}{}
	for _, doc := range docs {
		if doc.SourceURL != "" {
			set[doc.SourceURL] = struct{}{}
		}
	}
	citations := make([]string, 0, len(set))
	for url := range set {
		citations = append(citations, url)
	}
	sort.Strings(citations)
	return citations
}

// plainContext joins the document texts for the quality gates, which
// compare claims against the raw text without source labels.
func plainContext(docs []datatypes.RetrievedDocument) string {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	return strings.Join(texts, "\n\n")
}

// =============================================================================
// Quality gates
// =============================================================================

// CheckFaithfulness runs the Self-RAG gate over the generated answer.
//
// Writes: IsFaithful.
func (p *Pipeline) CheckFaithfulness(ctx context.Context, s *State) error {
	faithful, err := p.model.CheckFaithfulness(ctx, s.Answer, plainContext(s.RelevantDocs))
	if err != nil {
		return fmt.Errorf("faithfulness check failed: %w", err)
	}
	s.IsFaithful = faithful
	if !faithful {
		slog.Warn("Answer rejected as unfaithful to context")
	}
	return nil
}

// VerifyAnswer runs chain-of-verification over the answer.
//
// Writes: Verification.
func (p *Pipeline) VerifyAnswer(ctx context.Context, s *State) error {
	passed, details, err := p.model.VerifyClaims(ctx, s.Answer, plainContext(s.RelevantDocs))
	if err != nil {
		return fmt.Errorf("claim verification failed: %w", err)
	}
	s.Verification = datatypes.Verification{Passed: passed, Details: details}
	if !passed {
		slog.Warn("Answer rejected by claim verification")
	}
	return nil
}

// =============================================================================
// Terminal stages
// =============================================================================

// FormatFinalAnswer is the success-path terminal. Both gates are
// re-checked here so a miswired graph still cannot leak an unverified
// answer, and the citation block is appended.
//
// Writes: FinalAnswer.
func (p *Pipeline) FormatFinalAnswer(ctx context.Context, s *State) error {
	if !s.IsFaithful || !s.Verification.Passed {
		s.FinalAnswer = llm.FallbackResponse
		return nil
	}

	answer := s.Answer
	if len(s.Citations) > 0 {
		urls := s.Citations
		if len(urls) > 3 {
			urls = urls[:3]
		}
		block := "\n\n📚 *Sources:*\n- " + strings.Join(urls, "\n- ")
		if !strings.Contains(answer, block) {
			answer += block
		}
	}
	s.FinalAnswer = answer
	return nil
}

// HandleCasual answers small talk without touching the corpus.
//
// Writes: FinalAnswer.
func (p *Pipeline) HandleCasual(ctx context.Context, s *State) error {
	reply, err := p.model.CasualReply(ctx, s.Question)
	if err != nil {
		return fmt.Errorf("casual reply failed: %w", err)
	}
	s.FinalAnswer = reply
	return nil
}

// HandleDistress returns the fixed distress acknowledgment and arms the
// meditation session at step one.
//
// Writes: FinalAnswer, MeditationStep.
func (p *Pipeline) HandleDistress(ctx context.Context, s *State) error {
	s.FinalAnswer = DistressResponse()
	s.MeditationStep = 1
	return nil
}

// HandleMeditation delivers the current meditation step and advances
// the counter for the next turn.
//
// Writes: FinalAnswer, MeditationStep.
func (p *Pipeline) HandleMeditation(ctx context.Context, s *State) error {
	step := s.MeditationStep
	if step < 1 {
		step = 1
	}
	s.FinalAnswer = FormatMeditationStep(step)
	s.MeditationStep = step + 1
	return nil
}

// HandleFallback is the honest refusal terminal.
//
// Writes: FinalAnswer.
func (p *Pipeline) HandleFallback(ctx context.Context, s *State) error {
	s.FinalAnswer = llm.FallbackResponse
	return nil
}
