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
	"fmt"
	"log/slog"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/otel"
)

var convTracer = otel.Tracer("guru.orchestrator.datatypes")

// Conversation is one completed question/answer turn in a chat session.
type Conversation struct {
	SessionID string
	Question  string
	Answer    string
}

// Save persists the turn to the Conversation class.
//
// Called fire-and-forget from the chat handler so that persistence never
// blocks the response to the user; failures are logged, not surfaced. The
// caller owns the timeout on ctx.
func (c *Conversation) Save(ctx context.Context, client *weaviate.Client) error {
	if client == nil {
		return fmt.Errorf("weaviate client is nil, cannot save conversation")
	}

	ctx, span := convTracer.Start(ctx, "Conversation.Save")
	defer span.End()

	props := map[string]interface{}{
		"session_id": c.SessionID,
		"question":   c.Question,
		"answer":     c.Answer,
		"timestamp":  time.Now().UnixMilli(),
	}

	_, err := client.Data().Creator().
		WithClassName(ConversationClass).
		WithProperties(props).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save conversation turn: %w", err)
	}

	slog.Debug("Saved conversation turn", "session_id", c.SessionID)
	return nil
}
