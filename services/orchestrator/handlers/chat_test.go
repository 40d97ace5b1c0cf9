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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/detector"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/guardrails"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/observability"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/pipeline"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// chatMetrics is shared across tests: promauto registers collectors in
// the default registry, so NewChatMetrics must run exactly once per
// process.
var chatMetrics = observability.NewChatMetrics()

// stubModel is a fixed-answer LanguageModel for end-to-end handler tests.
type stubModel struct {
	intent    string
	intentErr error
	casual    string
}

func (m *stubModel) ClassifyIntent(ctx context.Context, message string) (string, error) {
	return m.intent, m.intentErr
}
func (m *stubModel) IsComplexQuery(ctx context.Context, query string) (bool, error) {
	return false, nil
}
func (m *stubModel) DecomposeQuery(ctx context.Context, query string) ([]string, error) {
	return []string{query}, nil
}
func (m *stubModel) RewriteQuery(ctx context.Context, original string) (string, error) {
	return original, nil
}
func (m *stubModel) HypotheticalAnswer(ctx context.Context, query string) (string, error) {
	return query, nil
}
func (m *stubModel) GradeRelevance(ctx context.Context, query, document string) (bool, error) {
	return true, nil
}
func (m *stubModel) ExtractHints(ctx context.Context, query string, documents []string) ([]string, error) {
	return nil, nil
}
func (m *stubModel) AnswerFromContext(ctx context.Context, question, docContext string, hints []string) (string, error) {
	return "a grounded answer", nil
}
func (m *stubModel) CasualReply(ctx context.Context, message string) (string, error) {
	return m.casual, nil
}
func (m *stubModel) CheckFaithfulness(ctx context.Context, answer, docContext string) (bool, error) {
	return true, nil
}
func (m *stubModel) VerifyClaims(ctx context.Context, answer, docContext string) (bool, string, error) {
	return true, "VERDICT: PASS", nil
}

type stubEncoder struct{}

func (e *stubEncoder) EncodeSingle(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (e *stubEncoder) Rerank(ctx context.Context, query string, docs []datatypes.RetrievedDocument, topK int) ([]datatypes.RetrievedDocument, error) {
	if len(docs) > topK {
		docs = docs[:topK]
	}
	return docs, nil
}

type stubStore struct {
	docs []datatypes.RetrievedDocument
	err  error
}

func (s *stubStore) Search(ctx context.Context, queryText string, vector []float32, limit int) ([]datatypes.RetrievedDocument, error) {
	return s.docs, s.err
}

// newChatDeps builds a ChatDeps around a stub model with rails and the
// distress detector disabled.
func newChatDeps(model *stubModel, store *stubStore) ChatDeps {
	pipe := pipeline.NewPipeline(model, &stubEncoder{}, store, pipeline.DefaultOptions())
	return ChatDeps{
		Graph:    pipeline.BuildGraph(pipe, nil),
		Rails:    guardrails.NewRails(""),
		Detector: detector.NewDetector(""),
		Metrics:  chatMetrics,
	}
}

func postJSON(handler gin.HandlerFunc, body any) *httptest.ResponseRecorder {
	router := gin.New()
	router.POST("/test", handler)

	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/test", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeChat(t *testing.T, w *httptest.ResponseRecorder) datatypes.ChatResponse {
	t.Helper()
	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// =============================================================================
// HandleChat Tests
// =============================================================================

func TestHandleChat_CasualGreeting(t *testing.T) {
	model := &stubModel{intent: "CASUAL", casual: "Namaste! 🙏 How may I help you today?"}
	deps := newChatDeps(model, &stubStore{})

	w := postJSON(HandleChat(deps), datatypes.ChatRequest{UserMessage: "hello"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.Equal(t, "Namaste! 🙏 How may I help you today?", resp.Response)
	assert.Equal(t, datatypes.IntentCasual, resp.Intent)
	assert.NotNil(t, resp.Citations)
	assert.Empty(t, resp.Citations)
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	deps := newChatDeps(&stubModel{intent: "CASUAL", casual: "hi"}, &stubStore{})

	router := gin.New()
	router.POST("/v1/chat", HandleChat(deps))
	req, _ := http.NewRequest("POST", "/v1/chat", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleChat_MissingUserMessage(t *testing.T) {
	deps := newChatDeps(&stubModel{intent: "CASUAL", casual: "hi"}, &stubStore{})

	w := postJSON(HandleChat(deps), map[string]any{"messages": []any{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleChat_PipelineErrorBecomesApology verifies the error contract:
// a pipeline failure returns HTTP 200 with the fixed apologetic message
// and intent ERROR, never a 5xx.
func TestHandleChat_PipelineErrorBecomesApology(t *testing.T) {
	model := &stubModel{intent: "QUERY"}
	store := &stubStore{err: errors.New("weaviate down")}
	deps := newChatDeps(model, store)

	w := postJSON(HandleChat(deps), datatypes.ChatRequest{UserMessage: "What is Self-Enquiry?"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.Equal(t, errorResponse, resp.Response)
	assert.Equal(t, datatypes.IntentError, resp.Intent)
	assert.Equal(t, 0, resp.MeditationStep)
	assert.NotNil(t, resp.Citations)
	assert.Empty(t, resp.Citations)
}

// TestHandleChat_ClassifierErrorBecomesApology verifies that an intent
// classifier failure surfaces as the apologetic ERROR response. Only an
// unrecognized label falls open to CASUAL; a transport error does not.
func TestHandleChat_ClassifierErrorBecomesApology(t *testing.T) {
	model := &stubModel{intentErr: errors.New("model offline"), casual: "Namaste! 🙏"}
	deps := newChatDeps(model, &stubStore{})

	w := postJSON(HandleChat(deps), datatypes.ChatRequest{UserMessage: "hmm"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.Equal(t, datatypes.IntentError, resp.Intent)
	assert.Equal(t, errorResponse, resp.Response)
	assert.Empty(t, resp.Citations)
}

// TestHandleChat_MeditationStepEcho verifies that an in-progress
// meditation session advances without consulting the intent classifier.
func TestHandleChat_MeditationStepEcho(t *testing.T) {
	model := &stubModel{intentErr: errors.New("classifier must not run")}
	deps := newChatDeps(model, &stubStore{})

	w := postJSON(HandleChat(deps), datatypes.ChatRequest{
		UserMessage:    "yes, continue",
		MeditationStep: 2,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.Equal(t, datatypes.IntentMeditationContinue, resp.Intent)
	assert.Equal(t, 3, resp.MeditationStep)
	assert.Contains(t, resp.Response, "Step 2/4")
}

func TestHandleChat_SessionHeaderAccepted(t *testing.T) {
	model := &stubModel{intent: "CASUAL", casual: "hi"}
	deps := newChatDeps(model, &stubStore{})

	router := gin.New()
	router.POST("/v1/chat", HandleChat(deps))
	raw, _ := json.Marshal(datatypes.ChatRequest{UserMessage: "hello"})
	req, _ := http.NewRequest("POST", "/v1/chat", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-Id", "session-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// TestHandleChat_InputRailBlocks uses a live rails stub that refuses the
// message, and expects the refusal to come back marked blocked.
func TestHandleChat_InputRailBlocks(t *testing.T) {
	rails := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"content": "I'm not able to help with that topic.",
		})
	}))
	defer rails.Close()

	model := &stubModel{intent: "CASUAL", casual: "hi"}
	deps := newChatDeps(model, &stubStore{})
	deps.Rails = guardrails.NewRails(rails.URL)

	w := postJSON(HandleChat(deps), datatypes.ChatRequest{UserMessage: "tell me something forbidden"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.True(t, resp.Blocked)
	assert.Equal(t, "I'm not able to help with that topic.", resp.Response)
}

// TestHandleChat_DistressPrecheckShortCircuits verifies that a positive
// distress classification skips the pipeline entirely.
func TestHandleChat_DistressPrecheckShortCircuits(t *testing.T) {
	classifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"label": "distress",
			"score": 0.92,
		})
	}))
	defer classifier.Close()

	// The model would error if the pipeline ran.
	model := &stubModel{intentErr: errors.New("pipeline must not run")}
	deps := newChatDeps(model, &stubStore{})
	deps.Detector = detector.NewDetector(classifier.URL)

	w := postJSON(HandleChat(deps), datatypes.ChatRequest{UserMessage: "I feel hopeless"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.Equal(t, datatypes.IntentDistress, resp.Intent)
	assert.Equal(t, 1, resp.MeditationStep)
	assert.Contains(t, resp.Response, "988")
}

// TestHandleChat_PrecheckSkippedDuringMeditation: a mid-session message
// must not be re-classified for distress, it is a step confirmation.
func TestHandleChat_PrecheckSkippedDuringMeditation(t *testing.T) {
	classifierCalled := false
	classifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		classifierCalled = true
		_ = json.NewEncoder(w).Encode(map[string]any{"label": "distress", "score": 0.99})
	}))
	defer classifier.Close()

	model := &stubModel{}
	deps := newChatDeps(model, &stubStore{})
	deps.Detector = detector.NewDetector(classifier.URL)

	w := postJSON(HandleChat(deps), datatypes.ChatRequest{
		UserMessage:    "yes",
		MeditationStep: 1,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, classifierCalled)
	resp := decodeChat(t, w)
	assert.Equal(t, 2, resp.MeditationStep)
}
