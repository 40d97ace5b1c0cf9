// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command guru is the operator CLI for the Mukthi Guru orchestrator.
//
// It talks to the running orchestrator over HTTP: ask one-off
// questions, hold an interactive chat, ingest transcripts into the
// corpus, and inspect corpus and ingestion state.
package main

import (
	"log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
