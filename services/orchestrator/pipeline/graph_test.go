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
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/llm"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mocks
// =============================================================================

// mockModel is a scripted LanguageModel. Each field defaults to a
// sensible happy-path behavior so tests only override what they probe.
type mockModel struct {
	intent        string
	intentErr     error
	complex       bool
	subQueries    []string
	rewritten     string
	rewriteCalls  int
	hypothetical  string
	relevant      bool
	relevantFn    func(query, document string) bool
	gradeCalls    int
	hints         []string
	answer        string
	answerErr     error
	casual        string
	faithful      bool
	verifyPassed  bool
	verifyDetails string
}

func (m *mockModel) ClassifyIntent(ctx context.Context, message string) (string, error) {
	if m.intentErr != nil {
		return "", m.intentErr
	}
	if m.intent == "" {
		return "CASUAL", nil
	}
	return m.intent, nil
}

func (m *mockModel) IsComplexQuery(ctx context.Context, query string) (bool, error) {
	return m.complex, nil
}

func (m *mockModel) DecomposeQuery(ctx context.Context, query string) ([]string, error) {
	if len(m.subQueries) == 0 {
		return []string{query}, nil
	}
	return m.subQueries, nil
}

func (m *mockModel) RewriteQuery(ctx context.Context, original string) (string, error) {
	m.rewriteCalls++
	if m.rewritten == "" {
		return original + " rewritten", nil
	}
	return m.rewritten, nil
}

func (m *mockModel) HypotheticalAnswer(ctx context.Context, query string) (string, error) {
	return m.hypothetical, nil
}

func (m *mockModel) GradeRelevance(ctx context.Context, query, document string) (bool, error) {
	m.gradeCalls++
	if m.relevantFn != nil {
		return m.relevantFn(query, document), nil
	}
	return m.relevant, nil
}

func (m *mockModel) ExtractHints(ctx context.Context, query string, documents []string) ([]string, error) {
	return m.hints, nil
}

func (m *mockModel) AnswerFromContext(ctx context.Context, question, docContext string, hints []string) (string, error) {
	if m.answerErr != nil {
		return "", m.answerErr
	}
	if m.answer == "" {
		return "a grounded answer", nil
	}
	return m.answer, nil
}

func (m *mockModel) CasualReply(ctx context.Context, message string) (string, error) {
	if m.casual == "" {
		return "Hello, friend. 🙏", nil
	}
	return m.casual, nil
}

func (m *mockModel) CheckFaithfulness(ctx context.Context, answer, docContext string) (bool, error) {
	return m.faithful, nil
}

func (m *mockModel) VerifyClaims(ctx context.Context, answer, docContext string) (bool, string, error) {
	return m.verifyPassed, m.verifyDetails, nil
}

// mockEncoder returns a fixed vector and passes documents through the
// rerank cut.
type mockEncoder struct {
	encodeErr error
}

func (m *mockEncoder) EncodeSingle(ctx context.Context, text string) ([]float32, error) {
	if m.encodeErr != nil {
		return nil, m.encodeErr
	}
	return []float32{0.1, 0.2}, nil
}

func (m *mockEncoder) Rerank(ctx context.Context, query string, docs []datatypes.RetrievedDocument, topK int) ([]datatypes.RetrievedDocument, error) {
	if topK > 0 && len(docs) > topK {
		docs = docs[:topK]
	}
	out := make([]datatypes.RetrievedDocument, len(docs))
	copy(out, docs)
	return out, nil
}

// mockStore returns a scripted result set, optionally varying by call
// count to exercise the rewrite loop.
type mockStore struct {
	mu          sync.Mutex
	docs        []datatypes.RetrievedDocument
	searchCount int
}

func (m *mockStore) Search(ctx context.Context, queryText string, vector []float32, limit int) ([]datatypes.RetrievedDocument, error) {
	m.mu.Lock()
	m.searchCount++
	m.mu.Unlock()
	out := make([]datatypes.RetrievedDocument, len(m.docs))
	copy(out, m.docs)
	return out, nil
}

func buildTestGraph(model *mockModel, store *mockStore) *Graph {
	p := NewPipeline(model, &mockEncoder{}, store, DefaultOptions())
	return BuildGraph(p, nil)
}

func teachingDocs() []datatypes.RetrievedDocument {
	return []datatypes.RetrievedDocument{
		{Text: "The Beautiful State is a calm inner state.", SourceURL: "https://b.example/talk", Title: "Talk B"},
		{Text: "Suffering arises from obsessive self-focus.", SourceURL: "https://a.example/talk", Title: "Talk A"},
		{Text: "Awareness dissolves inner noise.", SourceURL: "https://b.example/talk", Title: "Talk B"},
	}
}

// =============================================================================
// Scenario tests
// =============================================================================

// Empty corpus: the rewrite loop must exhaust its budget and land on
// the fallback with no citations.
func TestRun_QueryWithNoResultsFallsBack(t *testing.T) {
	model := &mockModel{intent: "QUERY"}
	store := &mockStore{} // no documents ever
	g := buildTestGraph(model, store)

	s := NewState("What is the Beautiful State?", nil, 0)
	require.NoError(t, g.Run(context.Background(), s))

	assert.Equal(t, datatypes.IntentQuery, s.Intent)
	assert.Equal(t, llm.FallbackResponse, s.FinalAnswer)
	assert.Empty(t, s.Citations)
	assert.Equal(t, 3, s.RewriteCount, "rewrite budget fully used")
	assert.Equal(t, 3, model.rewriteCalls)
	// initial retrieval plus one per rewrite
	assert.Equal(t, 4, store.searchCount)
}

func TestRun_DistressArmsMeditation(t *testing.T) {
	model := &mockModel{intent: "DISTRESS"}
	g := buildTestGraph(model, &mockStore{})

	s := NewState("I feel hopeless and alone", nil, 0)
	require.NoError(t, g.Run(context.Background(), s))

	assert.Equal(t, datatypes.IntentDistress, s.Intent)
	assert.Equal(t, DistressResponse(), s.FinalAnswer)
	assert.Equal(t, 1, s.MeditationStep)
}

func TestRun_MeditationContinues(t *testing.T) {
	// The classifier must not be consulted during an active session.
	model := &mockModel{intentErr: errors.New("classifier must not run")}
	g := buildTestGraph(model, &mockStore{})

	s := NewState("yes please continue", nil, 2)
	require.NoError(t, g.Run(context.Background(), s))

	assert.Equal(t, datatypes.IntentMeditationContinue, s.Intent)
	assert.Equal(t, FormatMeditationStep(2), s.FinalAnswer)
	assert.Equal(t, 3, s.MeditationStep)
}

func TestRun_MeditationPastLastStepResets(t *testing.T) {
	model := &mockModel{}
	g := buildTestGraph(model, &mockStore{})

	s := NewState("yes", nil, 5)
	require.NoError(t, g.Run(context.Background(), s))

	assert.Equal(t, datatypes.IntentCasual, s.Intent)
	assert.Equal(t, 0, s.MeditationStep)
	assert.NotEmpty(t, s.FinalAnswer)
}

func TestRun_MeditationDeclinedResets(t *testing.T) {
	model := &mockModel{}
	g := buildTestGraph(model, &mockStore{})

	s := NewState("no, tell me a story instead", nil, 2)
	require.NoError(t, g.Run(context.Background(), s))

	assert.Equal(t, datatypes.IntentCasual, s.Intent)
	assert.Equal(t, 0, s.MeditationStep)
}

func TestRun_CasualGreeting(t *testing.T) {
	model := &mockModel{intent: "CASUAL", casual: "Hello! Welcome. 🙏"}
	g := buildTestGraph(model, &mockStore{})

	s := NewState("Hi there", nil, 0)
	require.NoError(t, g.Run(context.Background(), s))

	assert.Equal(t, datatypes.IntentCasual, s.Intent)
	assert.Equal(t, "Hello! Welcome. 🙏", s.FinalAnswer)
	assert.Empty(t, s.Citations)
}

// Happy path: relevant, faithful, verified documents from two sources
// produce a grounded answer with a sorted citation block.
func TestRun_HappyPathWithCitations(t *testing.T) {
	model := &mockModel{
		intent:       "QUERY",
		relevant:     true,
		hints:        []string{"calm inner state"},
		answer:       "The Beautiful State is inner calm. [Source: Talk A]",
		faithful:     true,
		verifyPassed: true,
	}
	store := &mockStore{docs: teachingDocs()}
	g := buildTestGraph(model, store)

	s := NewState("What is the Beautiful State?", nil, 0)
	require.NoError(t, g.Run(context.Background(), s))

	assert.Equal(t, []string{"https://a.example/talk", "https://b.example/talk"}, s.Citations)
	assert.Contains(t, s.FinalAnswer, "The Beautiful State is inner calm.")
	assert.Contains(t, s.FinalAnswer, "📚 *Sources:*")
	assert.Contains(t, s.FinalAnswer, "https://a.example/talk")
	assert.Zero(t, s.RewriteCount)
}

func TestRun_UnfaithfulAnswerFallsBack(t *testing.T) {
	model := &mockModel{
		intent:   "QUERY",
		relevant: true,
		answer:   "A confident hallucination.",
		faithful: false,
	}
	g := buildTestGraph(model, &mockStore{docs: teachingDocs()})

	s := NewState("question", nil, 0)
	require.NoError(t, g.Run(context.Background(), s))

	assert.Equal(t, llm.FallbackResponse, s.FinalAnswer)
	assert.NotContains(t, s.FinalAnswer, "confident hallucination")
	// The verifier never ran on a rejected answer.
	assert.False(t, s.Verification.Passed)
}

func TestRun_FailedVerificationFallsBack(t *testing.T) {
	model := &mockModel{
		intent:       "QUERY",
		relevant:     true,
		answer:       "Plausible but unverifiable.",
		faithful:     true,
		verifyPassed: false,
	}
	g := buildTestGraph(model, &mockStore{docs: teachingDocs()})

	s := NewState("question", nil, 0)
	require.NoError(t, g.Run(context.Background(), s))

	assert.Equal(t, llm.FallbackResponse, s.FinalAnswer)
}

func TestRun_StageErrorPropagates(t *testing.T) {
	model := &mockModel{
		intent:    "QUERY",
		relevant:  true,
		answerErr: errors.New("model unavailable"),
	}
	g := buildTestGraph(model, &mockStore{docs: teachingDocs()})

	s := NewState("question", nil, 0)
	err := g.Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
	assert.Empty(t, s.FinalAnswer, "no partial answer leaks on error")
}

func TestRun_RewriteThenSuccess(t *testing.T) {
	// The grader rejects everything until the query has been rewritten
	// once, then accepts.
	model := &mockModel{
		intent:       "QUERY",
		hints:        []string{"hint"},
		answer:       "grounded answer",
		faithful:     true,
		verifyPassed: true,
	}
	model.relevantFn = func(query, document string) bool {
		return strings.Contains(query, "rewritten")
	}
	store := &mockStore{docs: teachingDocs()}
	g := buildTestGraph(model, store)

	s := NewState("obscure question", nil, 0)
	require.NoError(t, g.Run(context.Background(), s))

	assert.Equal(t, 1, s.RewriteCount)
	assert.Equal(t, "obscure question rewritten", s.RewrittenQuery)
	assert.Contains(t, s.FinalAnswer, "grounded answer")
}

// Every terminal state must produce a non-empty answer.
func TestRun_TerminalAnswersNeverEmpty(t *testing.T) {
	cases := []struct {
		name  string
		model *mockModel
		step  int
	}{
		{"fallback", &mockModel{intent: "QUERY"}, 0},
		{"distress", &mockModel{intent: "DISTRESS"}, 0},
		{"casual", &mockModel{intent: "CASUAL"}, 0},
		{"meditation", &mockModel{}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := buildTestGraph(tc.model, &mockStore{})
			question := "yes"
			s := NewState(question, nil, tc.step)
			require.NoError(t, g.Run(context.Background(), s))
			assert.NotEmpty(t, s.FinalAnswer)
		})
	}
}

func TestRun_RecordsStageDurations(t *testing.T) {
	var observed []string
	p := NewPipeline(&mockModel{intent: "CASUAL"}, &mockEncoder{}, &mockStore{}, DefaultOptions())
	graph := BuildGraph(p, func(stage string, _ time.Duration) {
		observed = append(observed, stage)
	})

	s := NewState("hello", nil, 0)
	require.NoError(t, graph.Run(context.Background(), s))

	assert.Equal(t, []string{"intent_router", "handle_casual"}, observed)
	assert.Contains(t, s.StageDurations, "intent_router")
	assert.Contains(t, s.StageDurations, "handle_casual")
}
