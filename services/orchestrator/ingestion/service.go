// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingestion turns raw teaching material into corpus objects.
//
// A document comes in as one text blob with source metadata. The service
// splits it into overlapping chunks, embeds the chunks in one batch,
// writes them to the Teaching class, and optionally distills one summary
// into TeachingSummary. Progress is reported through the Tracker so the
// status endpoint can answer while a document is mid-flight.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Harshodai/askmukthiguru-8119b0e8/services/orchestrator/datatypes"
)

var tracer = otel.Tracer("guru.orchestrator.ingestion")

const (
	chunkSize    = 1000
	chunkOverlap = chunkSize / 10
)

var (
	defaultSeparators = []string{"\n\n", "\n", " ", ""}

	markdownSeparators = []string{
		"\n# ", "\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ",
		"\n\n", "\n", " ", "",
	}
)

// Request is one document to ingest.
type Request struct {
	// Content is the full text of the document.
	Content string `json:"content" binding:"required"`

	// SourceURL identifies where the material came from. It is the
	// deletion key and the citation the chatbot will surface.
	SourceURL string `json:"source_url" binding:"required"`

	// Title is the human-readable name shown in context labels.
	Title string `json:"title"`

	// ContentType tags the material, e.g. "transcript" or "ocr".
	ContentType string `json:"content_type"`
}

// Embedder is the batch embedding surface the service needs.
// retrieval.Embedder satisfies it.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// CorpusStore is the write surface of the vector store.
// retrieval.Store satisfies it.
type CorpusStore interface {
	Upsert(ctx context.Context, class string, req datatypes.UpsertRequest) (int, error)
	DeleteBySource(ctx context.Context, sourceURL string) (int64, error)
}

// Summarizer distills a document into one summary paragraph.
// llm.Gateway satisfies it. Nil disables summary objects.
type Summarizer interface {
	Summarize(ctx context.Context, texts []string) (string, error)
}

// Service runs the split-embed-store flow.
type Service struct {
	embedder   Embedder
	store      CorpusStore
	summarizer Summarizer
	tracker    *Tracker
}

// NewService wires the ingestion flow. summarizer may be nil, in which
// case no TeachingSummary objects are produced.
func NewService(embedder Embedder, store CorpusStore, summarizer Summarizer, tracker *Tracker) *Service {
	return &Service{
		embedder:   embedder,
		store:      store,
		summarizer: summarizer,
		tracker:    tracker,
	}
}

// Ingest processes one document and returns the number of objects
// stored. Re-ingesting a source URL replaces its previous objects.
func (s *Service) Ingest(ctx context.Context, req Request) (int, error) {
	ctx, span := tracer.Start(ctx, "ingestion.ingest")
	defer span.End()
	span.SetAttributes(attribute.String("source_url", req.SourceURL))

	s.report(req.SourceURL, "processing", "splitting document", 0.1)

	if strings.TrimSpace(req.Content) == "" {
		s.report(req.SourceURL, "success", "document produced no chunks", 1.0)
		return 0, nil
	}

	splitter := splitterFor(req.SourceURL)
	chunks, err := splitter.SplitText(req.Content)
	if err != nil {
		return s.fail(span, req.SourceURL, fmt.Errorf("failed to split content: %w", err))
	}
	if len(chunks) == 0 {
		s.report(req.SourceURL, "success", "document produced no chunks", 1.0)
		return 0, nil
	}
	slog.Info("Split document into chunks", "source_url", req.SourceURL, "chunk_count", len(chunks))

	s.report(req.SourceURL, "processing", "embedding chunks", 0.4)
	vectors, err := s.embedder.Encode(ctx, chunks)
	if err != nil {
		return s.fail(span, req.SourceURL, fmt.Errorf("batch embedding failed: %w", err))
	}

	// Replace any previous version of this source before writing.
	s.report(req.SourceURL, "processing", "storing chunks", 0.7)
	if _, err := s.store.DeleteBySource(ctx, req.SourceURL); err != nil {
		return s.fail(span, req.SourceURL, fmt.Errorf("failed to clear previous version: %w", err))
	}

	upsert := datatypes.UpsertRequest{
		Texts:     chunks,
		Vectors:   vectors,
		Metadatas: make([]datatypes.DocumentProperties, len(chunks)),
	}
	for i := range chunks {
		upsert.Metadatas[i] = datatypes.DocumentProperties{
			SourceURL:   req.SourceURL,
			Title:       req.Title,
			ContentType: req.ContentType,
			ChunkIndex:  i,
			RaptorLevel: datatypes.RaptorLevelChunk,
		}
	}
	stored, err := s.store.Upsert(ctx, datatypes.TeachingClass, upsert)
	if err != nil {
		return s.fail(span, req.SourceURL, fmt.Errorf("failed to store chunks: %w", err))
	}

	stored += s.storeSummary(ctx, req)

	s.report(req.SourceURL, "success",
		fmt.Sprintf("stored %d objects", stored), 1.0)
	span.SetAttributes(attribute.Int("stored", stored))
	return stored, nil
}

// storeSummary distills and stores one TeachingSummary object.
// Summary failures do not fail the ingestion: the chunks are already
// searchable without it.
func (s *Service) storeSummary(ctx context.Context, req Request) int {
	if s.summarizer == nil {
		return 0
	}
	summary, err := s.summarizer.Summarize(ctx, []string{req.Content})
	if err != nil || strings.TrimSpace(summary) == "" {
		slog.Warn("Summary generation failed, corpus has chunks only",
			"source_url", req.SourceURL, "error", err)
		return 0
	}
	vectors, err := s.embedder.Encode(ctx, []string{summary})
	if err != nil {
		slog.Warn("Summary embedding failed", "source_url", req.SourceURL, "error", err)
		return 0
	}
	stored, err := s.store.Upsert(ctx, datatypes.TeachingSummaryClass, datatypes.UpsertRequest{
		Texts:   []string{summary},
		Vectors: vectors,
		Metadatas: []datatypes.DocumentProperties{{
			SourceURL:   req.SourceURL,
			Title:       req.Title,
			ContentType: req.ContentType,
			RaptorLevel: datatypes.RaptorLevelSummary,
		}},
	})
	if err != nil {
		slog.Warn("Summary storage failed", "source_url", req.SourceURL, "error", err)
		return 0
	}
	return stored
}

func (s *Service) report(url, status, message string, progress float64) {
	if s.tracker == nil {
		return
	}
	s.tracker.Set(datatypes.IngestStatus{
		URL:      url,
		Status:   status,
		Message:  message,
		Progress: progress,
	})
}

func (s *Service) fail(span trace.Span, url string, err error) (int, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.report(url, "failed", err.Error(), 0)
	return 0, err
}

// splitterFor picks chunking separators by file type. Transcripts are
// mostly markdown exports; everything else splits on paragraphs.
func splitterFor(source string) textsplitter.TextSplitter {
	separators := defaultSeparators
	lower := strings.ToLower(source)
	if strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown") {
		separators = markdownSeparators
	}
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(separators),
	)
}
