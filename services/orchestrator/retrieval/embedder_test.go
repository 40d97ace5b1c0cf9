// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSingle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what is peace", req.Text)

		json.NewEncoder(w).Encode(embedResponse{Vector: []float32{0.1, 0.2, 0.3}, Dim: 3})
	}))
	defer server.Close()

	e := NewEmbedder(server.URL)
	vec, err := e.EncodeSingle(context.Background(), "what is peace")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEncodeSingle_EmptyVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{})
	}))
	defer server.Close()

	e := NewEmbedder(server.URL)
	_, err := e.EncodeSingle(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty vector")
}

func TestEncodeSingle_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := NewEmbedder(server.URL)
	_, err := e.EncodeSingle(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestEncode_Batch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/batch_embed", r.URL.Path)
		var req batchEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		vectors := make([][]float32, len(req.Texts))
		for i := range vectors {
			vectors[i] = []float32{float32(i)}
		}
		json.NewEncoder(w).Encode(batchEmbedResponse{Vectors: vectors})
	}))
	defer server.Close()

	e := NewEmbedder(server.URL)
	vecs, err := e.Encode(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{2}, vecs[2])
}

func TestEncode_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(batchEmbedResponse{Vectors: [][]float32{{0.1}}})
	}))
	defer server.Close()

	e := NewEmbedder(server.URL)
	_, err := e.Encode(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 vectors for 2 texts")
}

func TestEncode_EmptyInput(t *testing.T) {
	e := NewEmbedder("http://unused")
	vecs, err := e.Encode(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestRerank_OrdersAndTruncates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "query", req.Query)
		// Third document is the best match, first is worst.
		json.NewEncoder(w).Encode(rerankResponse{Scores: []float64{0.1, 0.5, 0.9, 0.3}})
	}))
	defer server.Close()

	docs := []datatypes.RetrievedDocument{
		{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"},
	}
	e := NewEmbedder(server.URL)
	top, err := e.Rerank(context.Background(), "query", docs, 2)
	require.NoError(t, err)

	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].Text)
	assert.Equal(t, 0.9, top[0].RerankScore)
	assert.Equal(t, "b", top[1].Text)

	// Input slice is left untouched.
	assert.Equal(t, "a", docs[0].Text)
	assert.Zero(t, docs[2].RerankScore)
}

func TestRerank_ScoreMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rerankResponse{Scores: []float64{0.5}})
	}))
	defer server.Close()

	e := NewEmbedder(server.URL)
	_, err := e.Rerank(context.Background(), "q",
		[]datatypes.RetrievedDocument{{Text: "a"}, {Text: "b"}}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 scores for 2 documents")
}

func TestRerank_EmptyDocs(t *testing.T) {
	e := NewEmbedder("http://unused")
	top, err := e.Rerank(context.Background(), "q", nil, 3)
	require.NoError(t, err)
	assert.Nil(t, top)
}

func TestSimilarityScore(t *testing.T) {
	mk := func(score *string, certainty, distance *float32) datatypes.TeachingResult {
		var r datatypes.TeachingResult
		r.Additional.Score = score
		r.Additional.Certainty = certainty
		r.Additional.Distance = distance
		return r
	}
	strPtr := func(s string) *string { return &s }
	f32Ptr := func(f float32) *float32 { return &f }

	// Hybrid score string wins when present.
	assert.Equal(t, 0.75, similarityScore(mk(strPtr("0.75"), f32Ptr(0.2), nil)))
	// Certainty used when no score.
	assert.InDelta(t, 0.8, similarityScore(mk(nil, f32Ptr(0.8), nil)), 1e-6)
	// Distance inverted as a last resort.
	assert.InDelta(t, 0.7, similarityScore(mk(nil, nil, f32Ptr(0.3))), 1e-6)
	// Nothing present scores zero.
	assert.Zero(t, similarityScore(mk(nil, nil, nil)))
}
