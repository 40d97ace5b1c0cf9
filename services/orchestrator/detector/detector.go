// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package detector is the fast distress pre-check that runs before the
// answer pipeline.
//
// A fine-tuned classifier sits in the embedding sidecar's process;
// asking it is much cheaper than a full LLM intent classification, so
// the chat handler consults it first and can short-circuit straight to
// the distress response. Any failure reports "no distress": a missed
// pre-check only delays detection until the LLM intent router, it never
// loses the distress path entirely.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// distressThreshold is the minimum classifier confidence that counts as
// distress. Below it we let the LLM intent router decide.
const distressThreshold = 0.6

// maxInputChars truncates input to the classifier's context size.
const maxInputChars = 512

// Detector is the distress classifier client. An empty URL disables the
// pre-check.
type Detector struct {
	baseURL    string
	httpClient *http.Client
}

// NewDetector builds a client for the classifier at baseURL. Empty
// baseURL disables the pre-check.
func NewDetector(baseURL string) *Detector {
	if baseURL == "" {
		slog.Warn("Distress detector not configured, relying on LLM intent routing only")
	}
	return &Detector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Available reports whether the pre-check is configured.
func (d *Detector) Available() bool {
	return d.baseURL != ""
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Detect reports whether text indicates emotional distress with high
// confidence. Every failure path returns false.
func (d *Detector) Detect(ctx context.Context, text string) bool {
	if !d.Available() {
		return false
	}

	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}

	reqBody, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/classify/distress",
		bytes.NewBuffer(reqBody))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		slog.Error("Distress detection request failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		slog.Error("Distress detector returned non-200", "status", resp.StatusCode)
		return false
	}

	var out classifyResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		slog.Error("Failed to parse distress detector response", "error", err)
		return false
	}

	slog.Debug("Distress check", "label", out.Label, "score", out.Score)
	return out.Label == "distress" && out.Score > distressThreshold
}
