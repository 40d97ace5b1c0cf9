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
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Store wraps the Weaviate client with teaching-corpus operations.
//
// # Description
//
// The corpus lives in two classes: Teaching holds raw transcript chunks
// and TeachingSummary holds cluster summaries built over them. Search
// addresses both so a broad question can match a summary while a
// specific one matches a chunk.
//
// # Assumptions
//
//   - Both classes use externally supplied vectors (vectorizer "none").
//   - Vectors passed to Search and Upsert come from the same embedding
//     model that indexed the corpus.
type Store struct {
	client *weaviate.Client
	hybrid bool
}

// NewStore wraps client. When hybrid is true, searches combine BM25 with
// the dense vector and fall back to dense-only if the hybrid query is
// rejected. A nil client yields a store whose every call returns
// ErrNotConfigured.
func NewStore(client *weaviate.Client, hybrid bool) *Store {
	return &Store{client: client, hybrid: hybrid}
}

// ErrNotConfigured is returned when the server runs without a vector
// store.
var ErrNotConfigured = errors.New("vector store not configured")

var teachingFields = []graphql.Field{
	{Name: "text"},
	{Name: "source_url"},
	{Name: "title"},
	{Name: "content_type"},
	{Name: "chunk_index"},
	{Name: "raptor_level"},
	{Name: "_additional", Fields: []graphql.Field{
		{Name: "id"},
		{Name: "distance"},
		{Name: "certainty"},
		{Name: "score"},
	}},
}

// Search runs one vector search across both corpus classes and returns
// up to limit documents ordered by similarity.
func (s *Store) Search(ctx context.Context, queryText string, vector []float32, limit int) ([]datatypes.RetrievedDocument, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}
	ctx, span := tracer.Start(ctx, "store.search")
	defer span.End()
	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.Bool("hybrid", s.hybrid),
	)

	var docs []datatypes.RetrievedDocument
	for _, class := range []string{datatypes.TeachingClass, datatypes.TeachingSummaryClass} {
		results, err := s.searchClass(ctx, class, queryText, vector, limit)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("search on class %s failed: %w", class, err)
		}
		docs = append(docs, results...)
	}

	// Merge across classes by similarity, best first.
	sortByScore(docs)
	if len(docs) > limit {
		docs = docs[:limit]
	}
	span.SetAttributes(attribute.Int("results", len(docs)))
	return docs, nil
}

func (s *Store) searchClass(ctx context.Context, class, queryText string, vector []float32, limit int) ([]datatypes.RetrievedDocument, error) {
	if s.hybrid {
		hybridArg := s.client.GraphQL().HybridArgumentBuilder().
			WithQuery(queryText).
			WithVector(vector).
			WithAlpha(0.5)

		result, err := s.client.GraphQL().Get().
			WithClassName(class).
			WithFields(teachingFields...).
			WithHybrid(hybridArg).
			WithLimit(limit).
			Do(ctx)
		if err == nil && len(result.Errors) == 0 {
			return parseTeachingResults(result, class)
		}
		// Older Weaviate builds reject hybrid queries against classes
		// with external vectors. Degrade to dense-only rather than fail
		// the whole request.
		slog.Warn("Hybrid search failed, falling back to dense vector search",
			"class", class, "error", graphQLError(result, err))
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	result, err := s.client.GraphQL().Get().
		WithClassName(class).
		WithFields(teachingFields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search returned errors: %v", result.Errors[0].Message)
	}
	return parseTeachingResults(result, class)
}

func parseTeachingResults(result *models.GraphQLResponse, class string) ([]datatypes.RetrievedDocument, error) {
	parsed, err := datatypes.ParseGraphQLResponse[datatypes.TeachingQueryResponse](result)
	if err != nil {
		return nil, err
	}

	hits := parsed.Get.Teaching
	if class == datatypes.TeachingSummaryClass {
		hits = parsed.Get.TeachingSummary
	}

	docs := make([]datatypes.RetrievedDocument, 0, len(hits))
	for _, hit := range hits {
		docs = append(docs, datatypes.RetrievedDocument{
			Text:        hit.Text,
			SourceURL:   hit.SourceURL,
			Title:       hit.Title,
			ContentType: hit.ContentType,
			ChunkIndex:  hit.ChunkIndex,
			RaptorLevel: hit.RaptorLevel,
			Score:       similarityScore(hit),
		})
	}
	return docs, nil
}

// similarityScore normalizes the three score shapes Weaviate can return
// into one comparable number. Certainty is already in [0,1]; distance is
// inverted; hybrid scores arrive as strings.
func similarityScore(hit datatypes.TeachingResult) float64 {
	add := hit.Additional
	if add.Score != nil && *add.Score != "" {
		if f, err := strconv.ParseFloat(*add.Score, 64); err == nil {
			return f
		}
	}
	if add.Certainty != nil {
		return float64(*add.Certainty)
	}
	if add.Distance != nil {
		return 1 - float64(*add.Distance)
	}
	return 0
}

func sortByScore(docs []datatypes.RetrievedDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
}

func graphQLError(result *models.GraphQLResponse, err error) string {
	if err != nil {
		return err.Error()
	}
	if result != nil && len(result.Errors) > 0 {
		return result.Errors[0].Message
	}
	return "unknown"
}

// =============================================================================
// Corpus administration
// =============================================================================

// Upsert writes pre-embedded chunks into class. The request carries
// parallel slices; a length mismatch rejects the whole batch before
// anything is written. Returns the number of objects stored.
func (s *Store) Upsert(ctx context.Context, class string, req datatypes.UpsertRequest) (int, error) {
	if s.client == nil {
		return 0, ErrNotConfigured
	}
	ctx, span := tracer.Start(ctx, "store.upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("class", class),
		attribute.Int("objects", len(req.Texts)),
	)

	if len(req.Texts) != len(req.Vectors) || len(req.Texts) != len(req.Metadatas) {
		return 0, fmt.Errorf("upsert slices must be parallel: %d texts, %d vectors, %d metadatas",
			len(req.Texts), len(req.Vectors), len(req.Metadatas))
	}
	if len(req.Texts) == 0 {
		return 0, nil
	}

	objects := make([]*models.Object, len(req.Texts))
	for i := range req.Texts {
		objects[i] = &models.Object{
			Class:      class,
			Properties: req.Metadatas[i].ToMap(req.Texts[i]),
			Vector:     req.Vectors[i],
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().
		WithObjects(objects...).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("weaviate batch insert failed: %w", err)
	}

	stored := 0
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			slog.Warn("Object failed to store", "class", class,
				"error", obj.Result.Errors.Error[0].Message)
			continue
		}
		stored++
	}
	return stored, nil
}

// Count returns the number of objects in class.
func (s *Store) Count(ctx context.Context, class string) (int64, error) {
	if s.client == nil {
		return 0, ErrNotConfigured
	}
	result, err := s.client.GraphQL().Aggregate().
		WithClassName(class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("weaviate aggregate failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("weaviate aggregate returned errors: %v", result.Errors[0].Message)
	}

	type aggregateResponse struct {
		Aggregate map[string][]struct {
			Meta struct {
				Count int64 `json:"count"`
			} `json:"meta"`
		} `json:"Aggregate"`
	}
	parsed, err := datatypes.ParseGraphQLResponse[aggregateResponse](result)
	if err != nil {
		return 0, err
	}
	rows := parsed.Aggregate[class]
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Meta.Count, nil
}

// DeleteBySource removes every chunk and summary ingested from sourceURL.
// Returns the number of objects deleted across both classes.
func (s *Store) DeleteBySource(ctx context.Context, sourceURL string) (int64, error) {
	if s.client == nil {
		return 0, ErrNotConfigured
	}
	ctx, span := tracer.Start(ctx, "store.delete_by_source")
	defer span.End()
	span.SetAttributes(attribute.String("source_url", sourceURL))

	var deleted int64
	for _, class := range []string{datatypes.TeachingClass, datatypes.TeachingSummaryClass} {
		where := filters.Where().
			WithPath([]string{"source_url"}).
			WithOperator(filters.Equal).
			WithValueText(sourceURL)

		resp, err := s.client.Batch().ObjectsBatchDeleter().
			WithClassName(class).
			WithWhere(where).
			WithOutput("minimal").
			Do(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return deleted, fmt.Errorf("batch delete on class %s failed: %w", class, err)
		}
		if resp != nil && resp.Results != nil {
			deleted += resp.Results.Successful
		}
	}
	span.SetAttributes(attribute.Int64("deleted", deleted))
	return deleted, nil
}
