// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command orchestrator starts the Mukthi Guru chat orchestrator.
//
// It wires the retrieval pipeline (Weaviate + embedding sidecar), the LLM
// gateway, the safety rails and the distress pre-check into one HTTP
// server.
//
// # Environment Variables
//
//   - ORCHESTRATOR_PORT: HTTP server port (default: 8000)
//   - LLM_BACKEND_TYPE: LLM provider - ollama or openai (default: ollama)
//   - WEAVIATE_SERVICE_URL: Weaviate vector DB URL
//   - EMBEDDING_SERVICE_URL: embedding/rerank sidecar base URL
//   - GUARDRAILS_SERVICE_URL: safety-rail proxy base URL (optional)
//   - DETECTOR_SERVICE_URL: distress classifier base URL (optional)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: guru-otel-collector:4317)
//   - RAG_TOP_K_RETRIEVAL, RAG_TOP_K_RERANK, RAG_MAX_REWRITES,
//     RAG_USE_HYDE, RAG_HYBRID_SEARCH: pipeline tunables
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/Harshodai/askmukthiguru-8119b0e8/pkg/logging"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/llm"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/config"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/detector"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/guardrails"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/handlers"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/ingestion"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/observability"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/pipeline"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/retrieval"
	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/routes"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "guru-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("guru-orchestrator")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newWeaviateClient parses the configured URL and connects. Returns nil
// when the URL is unset or unusable; the server then runs without the
// corpus (chat still answers casual and meditation turns).
func newWeaviateClient(rawURL string) *weaviate.Client {
	rawURL = strings.Trim(rawURL, "\"' ")
	if rawURL == "" || !strings.Contains(rawURL, "http") {
		slog.Info("WEAVIATE_SERVICE_URL not set. Running without the teaching corpus.")
		return nil
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		slog.Warn("WEAVIATE_SERVICE_URL is invalid. Running without the teaching corpus.",
			"url", rawURL, "error", err)
		return nil
	}
	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		slog.Error("Failed to create Weaviate client", "error", err)
		return nil
	}
	datatypes.EnsureWeaviateSchema(client)
	return client
}

func main() {
	logging.Setup("orchestrator")
	cfg := config.Load()

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	weaviateClient := newWeaviateClient(cfg.WeaviateURL)

	var llmClient llm.LLMClient
	switch cfg.LLMBackendType {
	case "openai":
		llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		llmClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	default:
		slog.Warn("LLM_BACKEND_TYPE not set or invalid, defaulting to ollama",
			"value", cfg.LLMBackendType)
		llmClient, err = llm.NewOllamaClient()
	}
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	gateway := llm.NewGateway(llmClient)
	embedder := retrieval.NewEmbedder(cfg.EmbeddingServiceURL)
	store := retrieval.NewStore(weaviateClient, cfg.HybridSearch)

	metrics := observability.NewChatMetrics()
	pipe := pipeline.NewPipeline(gateway, embedder, store, pipeline.Options{
		TopKRetrieval: cfg.TopKRetrieval,
		TopKRerank:    cfg.TopKRerank,
		MaxRewrites:   cfg.MaxRewrites,
		UseHyDE:       cfg.UseHyDE,
	})
	graph := pipeline.BuildGraph(pipe, metrics.ObserveStage)

	deps := handlers.ChatDeps{
		Graph:    graph,
		Rails:    guardrails.NewRails(cfg.GuardrailsURL),
		Detector: detector.NewDetector(cfg.DetectorURL),
		Metrics:  metrics,
		Weaviate: weaviateClient,
	}

	tracker := ingestion.NewTracker()
	ingestSvc := ingestion.NewService(embedder, store, gateway, tracker)

	// Transcript drop folder: files copied in are ingested automatically.
	if dir := os.Getenv("TRANSCRIPTS_DIR"); dir != "" {
		watcher := ingestion.NewWatcher(dir, ingestSvc)
		go func() {
			if err := watcher.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Transcript watcher stopped", "error", err)
			}
		}()
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("guru-orchestrator"))
	routes.SetupRoutes(router, deps, store, ingestSvc, tracker, weaviateClient)

	slog.Info("Starting the orchestrator server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
