// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target type.
//
// # Description
//
// Encapsulates the marshal/unmarshal round trip required to convert
// Weaviate's dynamic response data into a strongly-typed Go struct. The
// target type T must have json tags matching the expected response shape.
//
// # Limitations
//
//   - Type mismatches yield zero values, not errors.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}

	return &result, nil
}

// TeachingResult is a single corpus hit from either corpus class.
type TeachingResult struct {
	Text        string `json:"text"`
	SourceURL   string `json:"source_url"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	ChunkIndex  int    `json:"chunk_index"`
	RaptorLevel int    `json:"raptor_level"`
	Additional  struct {
		ID        string   `json:"id"`
		Distance  *float32 `json:"distance"`
		Certainty *float32 `json:"certainty"`
		Score     *string  `json:"score"`
	} `json:"_additional"`
}

// TeachingQueryResponse is the response shape for Get queries against the
// two corpus classes. Both classes share the same property set so a single
// query can address them together.
type TeachingQueryResponse struct {
	Get struct {
		Teaching        []TeachingResult `json:"Teaching"`
		TeachingSummary []TeachingResult `json:"TeachingSummary"`
	} `json:"Get"`
}

// ConversationQueryResponse is the response shape for session history queries.
type ConversationQueryResponse struct {
	Get struct {
		Conversation []ConversationResult `json:"Conversation"`
	} `json:"Get"`
}

// ConversationResult is a single stored conversation turn.
type ConversationResult struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp int64  `json:"timestamp"`
}
