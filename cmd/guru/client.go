// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
)

var httpClient = &http.Client{Timeout: 5 * time.Minute}

var (
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8C872"))
	sourceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E05252")).Bold(true)
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8AB4F8")).Bold(true)
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7")).Bold(true)
	blockedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0A050"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
)

// sendChat posts one turn to the orchestrator.
func sendChat(req datatypes.ChatRequest, sessionID string) (*datatypes.ChatResponse, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequest("POST", strings.TrimSuffix(serverURL, "/")+"/v1/chat",
		bytes.NewBuffer(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		httpReq.Header.Set("X-Session-Id", sessionID)
	}

	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("could not reach the orchestrator at %s: %w", serverURL, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("orchestrator returned %d: %s", httpResp.StatusCode, string(body))
	}

	var resp datatypes.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("could not parse response: %w", err)
	}
	return &resp, nil
}

// postJSON posts payload and decodes the response into out. out may be
// nil when the body does not matter.
func postJSON(method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, strings.TrimSuffix(serverURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach the orchestrator at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("orchestrator returned %d: %s", resp.StatusCode, string(raw))
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}

func getJSON(path string, out any) error {
	return postJSON("GET", path, nil, out)
}
