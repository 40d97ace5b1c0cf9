// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval talks to the vector store and the embedding sidecar.
//
// The orchestrator never loads models itself. Dense embeddings and
// cross-encoder rerank scores come from a small HTTP sidecar, and the
// vectors live in Weaviate. This package is the only place that knows
// either wire format.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("guru.orchestrator.retrieval")

// Embedder is an HTTP client for the embedding sidecar.
//
// The sidecar exposes three endpoints:
//
//	POST /embed        {"text": ...}            -> {"vector": [...], "dim": n}
//	POST /batch_embed  {"texts": [...]}         -> {"vectors": [[...], ...]}
//	POST /rerank       {"query":..., "texts":.} -> {"scores": [...]}
type Embedder struct {
	baseURL    string
	httpClient *http.Client
}

// NewEmbedder builds an Embedder for the sidecar at baseURL.
func NewEmbedder(baseURL string) *Embedder {
	return &Embedder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Vector []float32 `json:"vector"`
	Dim    int       `json:"dim"`
}

type batchEmbedRequest struct {
	Texts []string `json:"texts"`
}

type batchEmbedResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// EncodeSingle embeds one text.
func (e *Embedder) EncodeSingle(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "embedder.encode_single")
	defer span.End()

	var out embedResponse
	if err := e.post(ctx, "/embed", embedRequest{Text: text}, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(out.Vector) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}
	span.SetAttributes(attribute.Int("dim", len(out.Vector)))
	return out.Vector, nil
}

// Encode embeds a batch of texts. The result is positionally aligned
// with the input.
func (e *Embedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := tracer.Start(ctx, "embedder.encode_batch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch_size", len(texts)))

	if len(texts) == 0 {
		return nil, nil
	}
	var out batchEmbedResponse
	if err := e.post(ctx, "/batch_embed", batchEmbedRequest{Texts: texts}, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(out.Vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts",
			len(out.Vectors), len(texts))
	}
	return out.Vectors, nil
}

// Rerank scores each document against the query with the sidecar's
// cross-encoder and returns the topK best, highest score first. Returned
// documents are copies with RerankScore filled in; the input slice is
// not modified.
func (e *Embedder) Rerank(ctx context.Context, query string, docs []datatypes.RetrievedDocument, topK int) ([]datatypes.RetrievedDocument, error) {
	ctx, span := tracer.Start(ctx, "embedder.rerank")
	defer span.End()
	span.SetAttributes(
		attribute.Int("candidates", len(docs)),
		attribute.Int("top_k", topK),
	)

	if len(docs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	var out rerankResponse
	if err := e.post(ctx, "/rerank", rerankRequest{Query: query, Texts: texts}, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(out.Scores) != len(docs) {
		return nil, fmt.Errorf("rerank service returned %d scores for %d documents",
			len(out.Scores), len(docs))
	}

	scored := make([]datatypes.RetrievedDocument, len(docs))
	for i, d := range docs {
		d.RerankScore = out.Scores[i]
		scored[i] = d
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankScore > scored[j].RerankScore
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (e *Embedder) post(ctx context.Context, path string, payload any, out any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding service request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding service returned %d for %s: %s",
			resp.StatusCode, path, string(bodyBytes))
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to parse embedding service response from %s: %w", path, err)
	}
	return nil
}
