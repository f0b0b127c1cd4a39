package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/techmentor-ai/techmentor/internal/websearch"
)

// searchFanOut is how many web results the fallback path examines.
const searchFanOut = 3

// maxDynamicContentLength caps the combined extracted web content so the
// prompt stays inside the model context window.
const maxDynamicContentLength = 4000

// truncationMarker is appended when dynamic content is cut off.
const truncationMarker = "... [content truncated]"

// defaultPromptTemplate is used when no template is configured (or the
// configured one lacks the required placeholders).
const defaultPromptTemplate = `<|system|>
You are TechMentor AI, a helpful tech career advisor. Answer the user's question based on the following information:
{context}
</s>

<|user|>
{question}
</s>

<|assistant|>
`

// SearchEngine is the slice of the web search engine the generator uses.
type SearchEngine interface {
	Search(ctx context.Context, query string, numResults int) []websearch.Result
	Extract(ctx context.Context, url string) (string, bool)
}

// Response is the answer envelope for one question.
//
// Sources holds one entry per retrieved document, in retrieval order, using
// the sentinel "Unknown" for documents without a source, plus the literal
// tag "Dynamic Web Search" when web content was merged in. Duplicates are
// kept here; FormatWithSources deduplicates for display.
type Response struct {
	Question          string   `json:"question"`
	Answer            string   `json:"answer"`
	Sources           []string `json:"sources"`
	UsedDynamicSearch bool     `json:"used_dynamic_search"`
}

// GeneratorConfig carries the model and pipeline settings the generator
// needs. Zero values fall back to sensible defaults except ModelName, which
// is required.
type GeneratorConfig struct {
	ModelName            string  // full Genkit model name, e.g. "googleai/gemini-2.5-flash"
	Temperature          float64 //
	MaxTokens            int     // response token cap
	PromptTemplate       string  // must contain {context} and {question}
	DynamicSearchEnabled bool
}

// Generator orchestrates the question-answering pipeline: retrieve local
// knowledge, judge sufficiency, optionally pull in live web content, build
// the prompt and invoke the model.
//
// No failure inside the pipeline is fatal: retrieval, search, extraction and
// model errors all degrade to a poorer answer, never a crash.
type Generator struct {
	g         *genkit.Genkit
	retriever *Retriever
	gate      *Gate
	search    SearchEngine
	cfg       GeneratorConfig
	logger    *slog.Logger
}

// NewGenerator creates the pipeline orchestrator.
func NewGenerator(g *genkit.Genkit, retriever *Retriever, gate *Gate, search SearchEngine, cfg GeneratorConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if gate == nil {
		gate = NewGate()
	}

	return &Generator{
		g:         g,
		retriever: retriever,
		gate:      gate,
		search:    search,
		cfg:       cfg,
		logger:    logger,
	}
}

// Answer runs the full pipeline for one question and always returns a
// well-formed response. Model failures surface as an error-describing
// answer with the sources gathered so far.
func (gen *Generator) Answer(ctx context.Context, question string) *Response {
	gen.logger.Info("generating response", "question", question)

	docs, err := gen.retriever.Retrieve(ctx, question, nil)
	if err != nil {
		// Degrade to an empty corpus; the dynamic fallback may still help.
		gen.logger.Error("retrieval failed, continuing without local context", "error", err)
		docs = nil
	}

	sources := make([]string, 0, len(docs)+1)
	for _, doc := range docs {
		source := doc.Document.Metadata["source"]
		if source == "" {
			source = "Unknown"
		}
		sources = append(sources, source)
	}

	localContext := gen.retriever.FormatForPrompt(docs)
	promptContext := localContext.String()
	usedDynamic := false

	if gen.cfg.DynamicSearchEnabled && !gen.gate.Relevant(docs) {
		gen.logger.Info("local content not sufficient, performing dynamic search")

		if dynamicContent, ok := gen.performDynamicSearch(ctx, question); ok {
			if localContext.Empty {
				promptContext = dynamicContent
			} else {
				promptContext = promptContext + "\n\nADDITIONAL WEB SEARCH RESULTS:\n" + dynamicContent
			}
			sources = append(sources, "Dynamic Web Search")
			usedDynamic = true
		}
	}

	prompt := gen.buildPrompt(promptContext, question)
	answer := gen.invokeModel(ctx, prompt)

	return &Response{
		Question:          question,
		Answer:            answer,
		Sources:           sources,
		UsedDynamicSearch: usedDynamic,
	}
}

// performDynamicSearch searches the web and combines labeled excerpts from
// the top results. It reports false when nothing usable was extracted, in
// which case the caller sticks with the local-only context.
func (gen *Generator) performDynamicSearch(ctx context.Context, question string) (string, bool) {
	results := gen.search.Search(ctx, question, searchFanOut)
	if len(results) == 0 {
		return "", false
	}

	var excerpts []string
	anyUsable := false
	for i, result := range results {
		if result.URL == "" {
			continue
		}

		content, usable := gen.search.Extract(ctx, result.URL)
		anyUsable = anyUsable || usable
		excerpts = append(excerpts, fmt.Sprintf("[Source %d: %s]\n%s\n", i+1, result.URL, content))
	}

	if !anyUsable {
		return "", false
	}

	combined := strings.Join(excerpts, "\n")
	if len(combined) > maxDynamicContentLength {
		// Back up to a rune boundary so the cut never leaves a partial
		// UTF-8 sequence in the prompt.
		cut := maxDynamicContentLength
		for cut > 0 && !utf8.RuneStart(combined[cut]) {
			cut--
		}
		combined = combined[:cut] + truncationMarker
	}

	return combined, true
}

// buildPrompt fills the configured template, falling back to the default
// role-delimited template when the configured one is missing a placeholder.
func (gen *Generator) buildPrompt(contextText, question string) string {
	template := gen.cfg.PromptTemplate
	if !strings.Contains(template, "{context}") || !strings.Contains(template, "{question}") {
		template = defaultPromptTemplate
	}

	prompt := strings.ReplaceAll(template, "{context}", contextText)
	return strings.ReplaceAll(prompt, "{question}", question)
}

// invokeModel calls the text-generation model. Errors are converted into a
// user-visible answer instead of propagating.
func (gen *Generator) invokeModel(ctx context.Context, prompt string) string {
	resp, err := genkit.Generate(ctx, gen.g,
		ai.WithModelName(gen.cfg.ModelName),
		ai.WithPrompt(prompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     gen.cfg.Temperature,
			MaxOutputTokens: gen.cfg.MaxTokens,
		}),
	)
	if err != nil {
		gen.logger.Error("model generation failed", "error", err)
		return fmt.Sprintf("Sorry, I could not generate a response: %v", err)
	}

	return resp.Text()
}

// FormatWithSources renders a response for display: the answer, a note when
// live web content contributed, and a numbered list of unique sources.
// Empty and "Unknown" sources are dropped.
func FormatWithSources(resp *Response) string {
	var sb strings.Builder
	sb.WriteString(resp.Answer)

	if resp.UsedDynamicSearch {
		sb.WriteString("\n\n[Note: This response includes information from a real-time web search]")
	}

	var unique []string
	seen := make(map[string]struct{}, len(resp.Sources))
	for _, source := range resp.Sources {
		if source == "" || source == "Unknown" {
			continue
		}
		if _, dup := seen[source]; dup {
			continue
		}
		seen[source] = struct{}{}
		unique = append(unique, source)
	}

	if len(unique) > 0 {
		sb.WriteString("\n\nSources:\n")
		for i, source := range unique {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, source)
		}
	}

	return sb.String()
}
