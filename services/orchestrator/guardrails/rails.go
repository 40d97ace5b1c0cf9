// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package guardrails moderates requests before and responses after the
// answer pipeline.
//
// The rails run as a separate moderation service; this package is a
// thin fail-open client around it. Fail-open is deliberate: the rails
// are additive safety on top of a pipeline that already refuses
// unverified answers, so a rails outage degrades to "no extra
// moderation" rather than taking the whole product down.
package guardrails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Refusal phrases the moderation model typically emits. Matched on word
// boundaries so "patient may refuse" does not trip the rail.
var inputRefusalPhrases = []string{
	"i'm not able to",
	"i cannot",
	"outside my area",
	"crisis helpline",
	"i refuse to",
}

var outputModerationPhrases = []string{
	"i should clarify",
	"not a medical",
	"not my area",
	"outside my expertise",
	"i cannot provide",
}

// CheckResult is the verdict of one rail pass.
type CheckResult struct {
	// Blocked reports whether the rail rejected the text.
	Blocked bool

	// Reason is a short operator-facing explanation, empty when not
	// blocked.
	Reason string

	// Response is the moderation model's refusal text, shown to the
	// user in place of the pipeline output when blocked.
	Response string
}

var pass = CheckResult{}

// Rails is the moderation service client. A Rails with an empty URL is
// valid and passes everything through.
type Rails struct {
	baseURL    string
	httpClient *http.Client
}

// NewRails builds a client for the moderation service at baseURL.
// Empty baseURL disables the rails entirely.
func NewRails(baseURL string) *Rails {
	if baseURL == "" {
		slog.Warn("Guardrails service not configured, running without moderation rails")
	}
	return &Rails{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Available reports whether a moderation service is configured.
func (r *Rails) Available() bool {
	return r.baseURL != ""
}

type railRequest struct {
	Messages []railMessage `json:"messages"`
}

type railMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type railResponse struct {
	Content string `json:"content"`
}

// CheckInput runs the input rail over a user message. Any transport or
// service failure passes the message through.
func (r *Rails) CheckInput(ctx context.Context, message string) CheckResult {
	if !r.Available() {
		return pass
	}

	content, err := r.generate(ctx, []railMessage{{Role: "user", Content: message}})
	if err != nil {
		slog.Error("Guardrails input check failed, passing message through", "error", err)
		return pass
	}

	if containsPhrase(content, inputRefusalPhrases) {
		return CheckResult{
			Blocked:  true,
			Reason:   "Input blocked by moderation rails",
			Response: content,
		}
	}
	return pass
}

// CheckOutput runs the output rail over a final answer. Any transport
// or service failure passes the answer through.
func (r *Rails) CheckOutput(ctx context.Context, answer string) CheckResult {
	if !r.Available() {
		return pass
	}

	content, err := r.generate(ctx, []railMessage{
		{Role: "context", Content: answer},
		{Role: "user", Content: "Moderate this response for safety."},
	})
	if err != nil {
		slog.Error("Guardrails output check failed, passing answer through", "error", err)
		return pass
	}

	if containsPhrase(content, outputModerationPhrases) {
		return CheckResult{
			Blocked:  true,
			Reason:   "Output moderated by rails",
			Response: content,
		}
	}
	return pass
}

func (r *Rails) generate(ctx context.Context, messages []railMessage) (string, error) {
	reqBody, err := json.Marshal(railRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to marshal rails request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/rails/generate",
		bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to build rails request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("rails request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("rails service returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var out railResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return "", fmt.Errorf("failed to parse rails response: %w", err)
	}
	return out.Content, nil
}

// containsPhrase matches each phrase on word boundaries, case
// insensitively.
func containsPhrase(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range phrases {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}
