package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var gatewayTracer = otel.Tracer("guru.llm.gateway")

// Gateway exposes the language model as a set of single-purpose
// capabilities. Every method pairs one prompt with one parser, so the
// rest of the system never sees raw model output.
//
// # Description
//
//	All model calls funnel through this type. Parsers are lenient about
//	what they accept and strict about what they return: a classifier that
//	cannot find its expected token falls back to the safe branch for that
//	capability (CASUAL for intent, rejection for verification).
//
// # Limitations
//
//   - Parsing is substring based. A model that echoes the instructions
//     back verbatim can fool a grader, which is why the pipeline layers
//     faithfulness and claim verification on top.
type Gateway struct {
	client LLMClient
}

// NewGateway wraps an LLMClient in the capability facade.
func NewGateway(client LLMClient) *Gateway {
	return &Gateway{client: client}
}

// Generate passes through to the underlying client. When context is
// non-empty it is prepended to the user prompt.
func (g *Gateway) Generate(ctx context.Context, systemPrompt, userPrompt, docContext string) (string, error) {
	prompt := userPrompt
	if docContext != "" {
		prompt = fmt.Sprintf("Context:\n%s\n\nQuestion: %s", docContext, userPrompt)
	}
	return g.client.Generate(ctx, systemPrompt, prompt, GenerationParams{})
}

// ClassifyIntent routes a message to DISTRESS, QUERY, or CASUAL.
//
// Parsing is fail-open: anything the model says that does not clearly
// name DISTRESS or QUERY is treated as CASUAL, so a confused classifier
// degrades to small talk rather than to an unnecessary crisis response.
func (g *Gateway) ClassifyIntent(ctx context.Context, message string) (string, error) {
	ctx, span := gatewayTracer.Start(ctx, "gateway.classify_intent")
	defer span.End()

	result, err := g.client.Generate(ctx, intentClassifierPrompt, message, GenerationParams{})
	if err != nil {
		return "", fmt.Errorf("intent classification failed: %w", err)
	}

	upper := strings.ToUpper(strings.TrimSpace(result))
	intent := "CASUAL"
	switch {
	case strings.Contains(upper, "DISTRESS"):
		intent = "DISTRESS"
	case strings.Contains(upper, "QUERY"):
		intent = "QUERY"
	}
	span.SetAttributes(attribute.String("intent", intent))
	return intent, nil
}

// IsComplexQuery reports whether a question should be decomposed into
// sub-questions before retrieval.
func (g *Gateway) IsComplexQuery(ctx context.Context, query string) (bool, error) {
	result, err := g.client.Generate(ctx, complexityPrompt, query, GenerationParams{})
	if err != nil {
		return false, fmt.Errorf("complexity check failed: %w", err)
	}
	return strings.Contains(strings.ToLower(result), "complex"), nil
}

// DecomposeQuery splits a complex question into 2-3 independent
// sub-questions. If no sub-questions can be parsed from the model output
// the original query is returned as the sole item.
func (g *Gateway) DecomposeQuery(ctx context.Context, query string) ([]string, error) {
	result, err := g.client.Generate(ctx, decomposeQueryPrompt, query, GenerationParams{})
	if err != nil {
		return nil, fmt.Errorf("query decomposition failed: %w", err)
	}

	var subQueries []string
	for _, line := range strings.Split(result, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "• "):
			line = strings.TrimPrefix(strings.TrimPrefix(line, "- "), "• ")
			subQueries = append(subQueries, strings.TrimSpace(line))
		case strings.HasPrefix(line, "1."), strings.HasPrefix(line, "2."), strings.HasPrefix(line, "3."):
			subQueries = append(subQueries, strings.TrimSpace(line[2:]))
		}
	}
	if len(subQueries) == 0 {
		return []string{query}, nil
	}
	return subQueries, nil
}

// RewriteQuery expands a query with spiritual-domain synonyms and related
// concepts after a failed retrieval round.
func (g *Gateway) RewriteQuery(ctx context.Context, original string) (string, error) {
	result, err := g.client.Generate(ctx, rewriteQueryPrompt,
		"Original query: "+original, GenerationParams{})
	if err != nil {
		return "", fmt.Errorf("query rewrite failed: %w", err)
	}
	return strings.TrimSpace(result), nil
}

// HypotheticalAnswer writes a short plausible teaching passage for the
// question. Embedding this passage instead of the raw question moves the
// query vector closer to the document vectors.
func (g *Gateway) HypotheticalAnswer(ctx context.Context, query string) (string, error) {
	result, err := g.client.Generate(ctx, hypotheticalAnswerPrompt, query, GenerationParams{})
	if err != nil {
		return "", fmt.Errorf("hypothetical answer generation failed: %w", err)
	}
	return strings.TrimSpace(result), nil
}

// GradeRelevance is the binary per-document relevance gate. A document
// passes when the grader's output contains "yes".
func (g *Gateway) GradeRelevance(ctx context.Context, query, document string) (bool, error) {
	prompt := fmt.Sprintf("Question: %s\n\nDocument: %s", query, document)
	result, err := g.client.Generate(ctx, gradeRelevancePrompt, prompt, GenerationParams{})
	if err != nil {
		return false, fmt.Errorf("relevance grading failed: %w", err)
	}
	return strings.Contains(strings.ToLower(result), "yes"), nil
}

// ExtractHints pulls up to five key evidence phrases from the graded
// documents. Lines that are neither bullets nor headings are kept as-is
// because smaller models often drop the requested '- ' prefix.
func (g *Gateway) ExtractHints(ctx context.Context, query string, documents []string) ([]string, error) {
	combined := strings.Join(documents, "\n---\n")
	prompt := fmt.Sprintf("Question: %s\n\nDocuments:\n%s", query, combined)

	result, err := g.client.Generate(ctx, hintExtractionPrompt, prompt, GenerationParams{})
	if err != nil {
		return nil, fmt.Errorf("hint extraction failed: %w", err)
	}

	var hints []string
	for _, line := range strings.Split(result, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "• "):
			line = strings.TrimPrefix(strings.TrimPrefix(line, "- "), "• ")
			hints = append(hints, strings.TrimSpace(line))
		case line != "" && !strings.HasPrefix(line, "#"):
			hints = append(hints, line)
		}
	}
	if len(hints) > 5 {
		hints = hints[:5]
	}
	return hints, nil
}

// AnswerFromContext generates the final grounded answer using the
// Stimulus RAG template: retrieved context plus extracted hints.
func (g *Gateway) AnswerFromContext(ctx context.Context, question, docContext string, hints []string) (string, error) {
	ctx, span := gatewayTracer.Start(ctx, "gateway.answer_from_context")
	defer span.End()

	hintsBlock := "- (no hints extracted)"
	if len(hints) > 0 {
		hintsBlock = "- " + strings.Join(hints, "\n- ")
	}
	prompt := fmt.Sprintf(stimulusRAGPromptFmt, docContext, hintsBlock, question)

	result, err := g.client.Generate(ctx, GuruSystemPrompt, prompt, GenerationParams{})
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	return strings.TrimSpace(result), nil
}

// CasualReply produces a brief in-character response to small talk.
func (g *Gateway) CasualReply(ctx context.Context, message string) (string, error) {
	result, err := g.client.Generate(ctx, CasualSystemPrompt, message, GenerationParams{})
	if err != nil {
		return "", fmt.Errorf("casual reply failed: %w", err)
	}
	return strings.TrimSpace(result), nil
}

// CheckFaithfulness reports whether every claim in answer is supported by
// context. Only an output containing "faithful" passes; silence,
// "hallucinated", or anything else rejects the answer.
func (g *Gateway) CheckFaithfulness(ctx context.Context, answer, docContext string) (bool, error) {
	ctx, span := gatewayTracer.Start(ctx, "gateway.check_faithfulness")
	defer span.End()

	prompt := fmt.Sprintf("Context:\n%s\n\nAnswer:\n%s", docContext, answer)
	result, err := g.client.Generate(ctx, faithfulnessPrompt, prompt, GenerationParams{})
	if err != nil {
		return false, fmt.Errorf("faithfulness check failed: %w", err)
	}
	faithful := strings.Contains(strings.ToLower(result), "faithful") &&
		!strings.Contains(strings.ToLower(result), "hallucinated")
	span.SetAttributes(attribute.Bool("faithful", faithful))
	return faithful, nil
}

// VerifyClaims runs chain-of-verification over the answer: the model
// generates its own verification questions, answers them from context,
// and emits a VERDICT line.
//
// The verdict is read from the LAST line mentioning VERDICT, and only the
// text after the keyword counts. Passing requires PASS without FAIL on
// that line; a missing or ambiguous verdict rejects the answer.
func (g *Gateway) VerifyClaims(ctx context.Context, answer, docContext string) (bool, string, error) {
	ctx, span := gatewayTracer.Start(ctx, "gateway.verify_claims")
	defer span.End()

	prompt := fmt.Sprintf("Answer:\n%s\n\nContext:\n%s", answer, docContext)
	result, err := g.client.Generate(ctx, verifyClaimsPrompt, prompt, GenerationParams{})
	if err != nil {
		return false, "", fmt.Errorf("claim verification failed: %w", err)
	}

	passed := parseVerdict(result)
	span.SetAttributes(attribute.Bool("verified", passed))
	return passed, result, nil
}

// parseVerdict scans the verification transcript bottom-up for a VERDICT
// line. Scanning in reverse tolerates models that restate the requested
// format before filling it in.
func parseVerdict(result string) bool {
	lines := strings.Split(strings.TrimSpace(strings.ToUpper(result)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		idx := strings.Index(line, "VERDICT")
		if idx < 0 {
			continue
		}
		after := line[idx+len("VERDICT"):]
		return strings.Contains(after, "PASS") && !strings.Contains(after, "FAIL")
	}
	slog.Warn("No VERDICT line found in verification output, rejecting answer",
		"preview", truncate(result, 200))
	return false
}

// Summarize condenses a cluster of related chunks into one paragraph.
// Used when building the summary level of the teaching index.
func (g *Gateway) Summarize(ctx context.Context, texts []string) (string, error) {
	combined := strings.Join(texts, "\n\n")
	result, err := g.client.Generate(ctx, summarizePrompt, combined, GenerationParams{})
	if err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	return strings.TrimSpace(result), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
