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
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string

	rootCmd = &cobra.Command{
		Use:   "guru",
		Short: "A cli to manage the Mukthi Guru chat service",
		Long: `Guru is the operator tool for the Mukthi Guru orchestrator:
ask questions, chat interactively, and manage the teaching corpus.`,
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and print the answer with its sources",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand,
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Hold an interactive conversation with the guru",
		Run:   runChatCommand,
	}

	ingestCmd = &cobra.Command{
		Use:     "ingest [file...]",
		Short:   "Ingest transcript files into the teaching corpus",
		Aliases: []string{"i"},
		Args:    cobra.MinimumNArgs(1),
		Run:     runIngestCommand,
	}

	statusCmd = &cobra.Command{
		Use:   "status [source-url]",
		Short: "Show ingestion progress, for one source or all",
		Args:  cobra.MaximumNArgs(1),
		Run:   runStatusCommand,
	}

	countCmd = &cobra.Command{
		Use:   "count",
		Short: "Show corpus sizes per class",
		Run:   runCountCommand,
	}

	deleteCmd = &cobra.Command{
		Use:   "delete <source-url>",
		Short: "Remove every chunk and summary ingested from one source",
		Args:  cobra.ExactArgs(1),
		Run:   runDeleteCommand,
	}
)

func init() {
	defaultServer := os.Getenv("GURU_SERVER_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8000"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer,
		"Base URL of the orchestrator service")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(deleteCmd)
}
