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
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/ingestion"
)

// ingestPollInterval is how often the CLI polls the status endpoint
// while a document is processing.
const ingestPollInterval = 2 * time.Second

func runIngestCommand(cmd *cobra.Command, args []string) {
	failed := 0
	for _, path := range args {
		if err := ingestFile(path); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Failed to ingest %s: %v", path, err)))
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func ingestFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	sourceURL := "file://" + path
	req := ingestion.Request{
		Content:     string(content),
		SourceURL:   sourceURL,
		Title:       strings.TrimSuffix(name, filepath.Ext(name)),
		ContentType: "transcript",
	}
	if err := postJSON("POST", "/v1/ingest", req, nil); err != nil {
		return err
	}
	fmt.Println(progressStyle.Render("Submitted " + path))

	// Poll until the background run finishes.
	for {
		time.Sleep(ingestPollInterval)
		var status datatypes.IngestStatus
		err := getJSON("/v1/ingest/status?url="+url.QueryEscape(sourceURL), &status)
		if err != nil {
			return err
		}
		switch status.Status {
		case "success":
			fmt.Println(answerStyle.Render(fmt.Sprintf("Ingested %s: %s", path, status.Message)))
			return nil
		case "failed":
			return fmt.Errorf("%s", status.Message)
		default:
			fmt.Println(progressStyle.Render(
				fmt.Sprintf("  %s (%.0f%%)", status.Message, status.Progress*100)))
		}
	}
}

func runStatusCommand(cmd *cobra.Command, args []string) {
	if len(args) == 1 {
		var status datatypes.IngestStatus
		if err := getJSON("/v1/ingest/status?url="+url.QueryEscape(args[0]), &status); err != nil {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
			os.Exit(1)
		}
		printStatus(status)
		return
	}

	var snapshot struct {
		Statuses []datatypes.IngestStatus `json:"statuses"`
	}
	if err := getJSON("/v1/ingest/status", &snapshot); err != nil {
		fmt.Println(errorStyle.Render("Error: " + err.Error()))
		os.Exit(1)
	}
	if len(snapshot.Statuses) == 0 {
		fmt.Println("No ingestions recorded.")
		return
	}
	for _, status := range snapshot.Statuses {
		printStatus(status)
	}
}

func printStatus(status datatypes.IngestStatus) {
	fmt.Printf("%s  %s  %.0f%%  %s\n",
		status.URL, status.Status, status.Progress*100, status.Message)
}

func runCountCommand(cmd *cobra.Command, args []string) {
	var counts struct {
		Chunks    int64 `json:"chunks"`
		Summaries int64 `json:"summaries"`
		Total     int64 `json:"total"`
	}
	if err := getJSON("/v1/documents/count", &counts); err != nil {
		fmt.Println(errorStyle.Render("Error: " + err.Error()))
		os.Exit(1)
	}
	fmt.Printf("chunks: %d\nsummaries: %d\ntotal: %d\n",
		counts.Chunks, counts.Summaries, counts.Total)
}

func runDeleteCommand(cmd *cobra.Command, args []string) {
	var result struct {
		Deleted int64 `json:"deleted"`
	}
	err := postJSON("DELETE", "/v1/documents", map[string]string{"source_url": args[0]}, &result)
	if err != nil {
		fmt.Println(errorStyle.Render("Error: " + err.Error()))
		os.Exit(1)
	}
	fmt.Printf("Deleted %d objects from %s\n", result.Deleted, args[0])
}
