package pipeline

import (
	"context"
	"log"
	"strings"

	"ai-docchat-be/pkg/apperrors"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/rag/prompt"
	"ai-docchat-be/pkg/rag/retriever"
	"ai-docchat-be/pkg/rag/session"
	"ai-docchat-be/pkg/rag/topics"
	"ai-docchat-be/pkg/retry"
	"ai-docchat-be/pkg/store"
)

const (
	DefaultK           = 6
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 800
	DefaultTopicWindow = 3
)

// Config tunes one executor. Zero values fall back to the defaults above.
type Config struct {
	K           int
	Temperature float64
	MaxTokens   int
	TopicWindow int
}

func (c Config) withDefaults() Config {
	if c.K <= 0 {
		c.K = DefaultK
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.TopicWindow <= 0 {
		c.TopicWindow = DefaultTopicWindow
	}
	return c
}

// Executor runs the three-phase conversation pipeline:
// Phase 1: question reformulation → Phase 2: diverse retrieval → Phase 3: grounded generation.
// A turn is appended to the session only after every phase succeeds.
type Executor struct {
	llmProvider llm.LLMProvider
	retriever   *retriever.Retriever
	retrier     retry.Policy
	logger      *log.Logger
	cfg         Config
}

func NewExecutor(llmProvider llm.LLMProvider, retr *retriever.Retriever, retrier retry.Policy, logger *log.Logger, cfg Config) *Executor {
	return &Executor{
		llmProvider: llmProvider,
		retriever:   retr,
		retrier:     retrier,
		logger:      logger,
		cfg:         cfg.withDefaults(),
	}
}

// Result carries everything one answered turn produced.
type Result struct {
	Answer        string
	Sources       []store.Passage
	Topics        []string // labels classified from the raw question
	EnhancedQuery bool     // true when a topic preamble was prepended
}

// Answer runs the pipeline for one question against one session. The caller
// holds the session gate; this method never takes it. The raw question is
// what lands in history; the preamble-augmented form steers reformulation
// and generation only.
func (e *Executor) Answer(ctx context.Context, sess *session.Session, question string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.New(apperrors.KindEmptyInput, "question is empty")
	}

	labels := topics.Classify(question)
	recent := sess.RecentTopics(e.cfg.TopicWindow)
	preamble := prompt.BuildPreamble(recent)
	effective := preamble + question
	history := prompt.HistoryMessages(sess.History())

	e.logger.Printf("[PIPELINE] session %s question: %s", sess.ID, truncate(question, 50))
	if preamble != "" {
		e.logger.Printf("[PIPELINE] topic preamble applied: %s", truncate(preamble, 80))
	}

	// ═══════════════════════════════════════════════════════════════
	// PHASE 1: REFORMULATION (standalone question from history)
	// ═══════════════════════════════════════════════════════════════
	standalone := effective
	if len(history) == 0 {
		e.logger.Printf("[PHASE 1] No history, reformulation skipped")
	} else {
		e.logger.Printf("[PHASE 1] Reformulating against %d prior messages...", len(history))
		out, err := e.generate(ctx, prompt.BuildReformulation(history, effective))
		if err != nil {
			e.logger.Printf("[ERROR] Reformulation failed: %v", err)
			return nil, err
		}
		if trimmed := strings.TrimSpace(out); trimmed != "" {
			standalone = trimmed
		}
		e.logger.Printf("[PHASE 1] Standalone query: %s", truncate(standalone, 80))
	}

	// ═══════════════════════════════════════════════════════════════
	// PHASE 2: RETRIEVAL (diverse passages for the standalone query)
	// ═══════════════════════════════════════════════════════════════
	sources, err := e.retriever.Retrieve(ctx, sess.Index, standalone, e.cfg.K, retriever.ModeDiverse)
	if err != nil {
		e.logger.Printf("[ERROR] Retrieval failed: %v", err)
		return nil, err
	}
	e.logger.Printf("[PHASE 2] Retrieved %d passages", len(sources))

	// ═══════════════════════════════════════════════════════════════
	// PHASE 3: GENERATION (grounded answer)
	// ═══════════════════════════════════════════════════════════════
	answer, err := e.generate(ctx, prompt.NewAnswerBuilder(sources, history, effective).Build())
	if err != nil {
		e.logger.Printf("[ERROR] Generation failed: %v", err)
		return nil, err
	}
	e.logger.Printf("[PHASE 3] Answer generated (%d chars)", len(answer))

	// The turn lands only now, with every phase done.
	sess.AppendTurn(question, answer, labels)

	return &Result{
		Answer:        answer,
		Sources:       sources,
		Topics:        labels,
		EnhancedQuery: preamble != "",
	}, nil
}

func (e *Executor) generate(ctx context.Context, messages []llm.Message) (string, error) {
	var out string
	err := e.retrier.Do(ctx, func(ctx context.Context) error {
		resp, err := e.llmProvider.Chat(ctx, messages,
			llm.WithTemperature(e.cfg.Temperature),
			llm.WithMaxTokens(e.cfg.MaxTokens),
		)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	return out, err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
