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
	"context"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// TeachingClass holds the granular transcript/OCR chunks (raptor_level 0).
const TeachingClass = "Teaching"

// TeachingSummaryClass holds the thematic cluster summaries (raptor_level 1).
const TeachingSummaryClass = "TeachingSummary"

// ConversationClass stores per-session question/answer turns.
const ConversationClass = "Conversation"

// teachingProperties is the shared property set for both corpus levels.
// Vectors are supplied externally by the embedding sidecar ("none" vectorizer).
func teachingProperties() []*models.Property {
	indexFilterable := new(bool)
	*indexFilterable = true

	return []*models.Property{
		{
			Name:         "text",
			DataType:     []string{"text"},
			Description:  "The teaching chunk or summary text.",
			Tokenization: "word",
		},
		{
			Name:            "source_url",
			DataType:        []string{"text"},
			Description:     "Canonical URL of the originating video or image.",
			IndexFilterable: indexFilterable,
			Tokenization:    "field",
		},
		{
			Name:         "title",
			DataType:     []string{"text"},
			Description:  "Human-readable title of the source.",
			Tokenization: "word",
		},
		{
			Name:            "content_type",
			DataType:        []string{"text"},
			Description:     "One of 'video', 'image', 'summary'.",
			IndexFilterable: indexFilterable,
			Tokenization:    "field",
		},
		{
			Name:            "chunk_index",
			DataType:        []string{"int"},
			Description:     "Position of the chunk within its source.",
			IndexFilterable: indexFilterable,
		},
		{
			Name:            "raptor_level",
			DataType:        []string{"int"},
			Description:     "0 for granular chunks, 1 for thematic summaries.",
			IndexFilterable: indexFilterable,
		},
	}
}

func GetTeachingSchema() *models.Class {
	return &models.Class{
		Class:       TeachingClass,
		Description: "Granular teaching chunks from ingested videos and images.",
		Vectorizer:  "none",
		Properties:  teachingProperties(),
	}
}

func GetTeachingSummarySchema() *models.Class {
	return &models.Class{
		Class:       TeachingSummaryClass,
		Description: "Thematic summaries built over clusters of teaching chunks.",
		Vectorizer:  "none",
		Properties:  teachingProperties(),
	}
}

func GetConversationSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       ConversationClass,
		Description: "One question/answer turn within a chat session.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "session_id",
				DataType:        []string{"text"},
				Description:     "Opaque session identifier.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "question",
				DataType:     []string{"text"},
				Description:  "The user's question for this turn.",
				Tokenization: "word",
			},
			{
				Name:         "answer",
				DataType:     []string{"text"},
				Description:  "The guru's answer for this turn.",
				Tokenization: "word",
			},
			{
				Name:            "timestamp",
				DataType:        []string{"number"},
				Description:     "Unix milliseconds when the turn completed.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureWeaviateSchema creates the corpus and conversation classes if they
// do not already exist. A class that is already present is left untouched;
// creation races with another replica are tolerated.
func EnsureWeaviateSchema(client *weaviate.Client) {
	ctx := context.Background()

	for _, class := range []*models.Class{
		GetTeachingSchema(),
		GetTeachingSummarySchema(),
		GetConversationSchema(),
	} {
		exists, err := client.Schema().ClassExistenceChecker().
			WithClassName(class.Class).
			Do(ctx)
		if err != nil {
			slog.Error("Failed to check Weaviate class existence", "class", class.Class, "error", err)
			continue
		}
		if exists {
			slog.Info("Weaviate class exists", "class", class.Class)
			continue
		}

		if err := client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			// Another replica may have created it between check and create.
			slog.Warn("Failed to create Weaviate class (may already exist)",
				"class", class.Class, "error", err)
			continue
		}
		slog.Info("Created Weaviate class", "class", class.Class)
	}
}
