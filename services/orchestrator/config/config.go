// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads orchestrator settings from the environment.
//
// All settings are read once at startup into an explicit Config value that
// is passed to the components that need it. Missing values fall back to
// documented defaults with a warning; nothing reads the environment after
// startup.
package config

import (
	"log/slog"
	"os"
	"strconv"
)

// Config holds every tunable the orchestrator reads at startup.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// WeaviateURL is the vector store endpoint (scheme + host).
	WeaviateURL string

	// EmbeddingServiceURL is the embedding/rerank sidecar base URL.
	EmbeddingServiceURL string

	// GuardrailsURL is the safety-rail proxy base URL. Empty disables rails.
	GuardrailsURL string

	// DetectorURL is the distress pre-check classifier base URL.
	// Empty disables the pre-check.
	DetectorURL string

	// LLMBackendType selects the LLM client: "ollama" or "openai".
	LLMBackendType string

	// TopKRetrieval is the broad search size per sub-query.
	TopKRetrieval int

	// TopKRerank is how many documents survive cross-encoder reranking.
	TopKRerank int

	// MaxRewrites caps the self-correcting query rewrite loop.
	MaxRewrites int

	// UseHyDE embeds a hypothetical answer instead of the raw question.
	UseHyDE bool

	// HybridSearch combines a lexical signal with the dense vector where
	// the store supports it. Best-effort: the retriever silently falls
	// back to dense-only when the hybrid call is rejected.
	HybridSearch bool
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		Port:                getEnv("ORCHESTRATOR_PORT", "8000"),
		WeaviateURL:         os.Getenv("WEAVIATE_SERVICE_URL"),
		EmbeddingServiceURL: getEnv("EMBEDDING_SERVICE_URL", "http://guru-embedding:9100"),
		GuardrailsURL:       os.Getenv("GUARDRAILS_SERVICE_URL"),
		DetectorURL:         os.Getenv("DETECTOR_SERVICE_URL"),
		LLMBackendType:      getEnv("LLM_BACKEND_TYPE", "ollama"),
		TopKRetrieval:       getEnvInt("RAG_TOP_K_RETRIEVAL", 20),
		TopKRerank:          getEnvInt("RAG_TOP_K_RERANK", 3),
		MaxRewrites:         getEnvInt("RAG_MAX_REWRITES", 3),
		UseHyDE:             getEnvBool("RAG_USE_HYDE", false),
		HybridSearch:        getEnvBool("RAG_HYBRID_SEARCH", true),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Warn("Environment variable not set, using default", "key", key, "default", fallback)
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Invalid integer environment variable, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Invalid boolean environment variable, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}
