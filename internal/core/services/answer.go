package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure AnswerOrchestrator implements the interface.
var _ driving.AnswerService = (*AnswerOrchestrator)(nil)

// Fixed replies returned instead of calling the generator without context.
const (
	NoDocumentsMessage = "No documents have been uploaded yet. Please upload some documents first."
	NoContextMessage   = "No relevant documents were found for this question. Please upload some documents first."
)

// DefaultGenerationTimeout bounds a generation call when none is configured.
const DefaultGenerationTimeout = 180 * time.Second

// AnswerConfig configures the answer pipeline.
type AnswerConfig struct {
	// TopK is the retrieval count when a request does not override it.
	TopK int

	// Generate is passed to every generator call.
	Generate driven.GenerateOptions

	// GenerationTimeout bounds the generator call, independently of the caller's context.
	GenerationTimeout time.Duration
}

// AnswerOrchestrator drives one question through retrieval, prompt assembly
// and generation. It holds no per-request state and is safe for concurrent use.
type AnswerOrchestrator struct {
	retriever driving.RetrievalService
	assembler *PromptAssembler
	generator driven.Generator
	docs      driven.DocumentStore
	metrics   driven.Metrics
	cfg       AnswerConfig
	now       func() time.Time
}

// NewAnswerOrchestrator creates an orchestrator.
// docs is optional; it only refines the wording of the no-context reply.
func NewAnswerOrchestrator(
	retriever driving.RetrievalService,
	assembler *PromptAssembler,
	generator driven.Generator,
	docs driven.DocumentStore,
	cfg AnswerConfig,
) (*AnswerOrchestrator, error) {
	if retriever == nil || assembler == nil || generator == nil {
		return nil, fmt.Errorf("%w: answering requires a retriever, prompt assembler and generator",
			domain.ErrConfiguration)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	return &AnswerOrchestrator{
		retriever: retriever,
		assembler: assembler,
		generator: generator,
		docs:      docs,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// SetMetrics enables outcome recording.
func (o *AnswerOrchestrator) SetMetrics(m driven.Metrics) {
	o.metrics = m
}

// answerRun tracks one request through the pipeline states.
type answerRun struct {
	state   domain.AnswerState
	started time.Time
}

func (r *answerRun) advance(next domain.AnswerState) {
	if !r.state.CanTransition(next) {
		logger.Warn("Illegal answer transition %s -> %s", r.state, next)
	}
	logger.Debug("Answer state: %s -> %s", r.state, next)
	r.state = next
}

// Answer answers query from the ingested documents.
//
// When retrieval finds nothing the generator is not called and a fixed reply
// is returned with NoContext set. Generation is not aborted by cancelling
// ctx; it is bounded by the configured generation timeout instead.
func (o *AnswerOrchestrator) Answer(ctx context.Context, query string, opts domain.AnswerOptions) (*domain.Message, error) {
	logger.Section("Answer")
	run := &answerRun{state: domain.AnswerReceived, started: o.now()}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, o.fail(run, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput))
	}

	// 1. Retrieve
	run.advance(domain.AnswerRetrieving)
	k := opts.TopK
	if k <= 0 {
		k = o.cfg.TopK
	}
	results, err := o.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, o.fail(run, err)
	}
	if len(results) == 0 {
		return o.abstain(ctx, run, opts), nil
	}

	// 2. Assemble
	run.advance(domain.AnswerAssembling)
	if err := ctx.Err(); err != nil {
		return nil, o.fail(run, err)
	}
	assembled := o.assembler.Assemble(query, results)
	if dropped := assembled.DroppedCount(); dropped > 0 && o.metrics != nil {
		o.metrics.ChunksDropped(dropped)
	}

	// 3. Generate
	run.advance(domain.AnswerGenerating)
	text, err := o.generate(ctx, assembled.Prompt)
	if err != nil {
		return nil, o.fail(run, err)
	}

	run.advance(domain.AnswerCompleted)
	msg := &domain.Message{
		Role:      domain.RoleAssistant,
		Text:      strings.TrimSpace(text),
		Sources:   assembled.Sources(),
		State:     domain.AnswerCompleted,
		CreatedAt: o.now(),
	}
	if opts.Debug {
		msg.Debug = assembled.Trace()
	}
	o.record(run, "")
	logger.Info("Answered from %d sources", len(msg.Sources))
	return msg, nil
}

func (o *AnswerOrchestrator) generate(ctx context.Context, prompt string) (string, error) {
	defer logger.Timed("generation")()
	logger.Debug("Prompt: %d characters", len(prompt))

	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.GenerationTimeout)
	defer cancel()

	text, err := o.generator.Generate(genCtx, prompt, o.cfg.Generate)
	switch {
	case err == nil:
		return text, nil
	case errors.Is(err, domain.ErrGenerationTimeout), errors.Is(err, domain.ErrGenerationUnavailable):
		return "", err
	case errors.Is(err, context.DeadlineExceeded):
		return "", fmt.Errorf("%w after %s: %w", domain.ErrGenerationTimeout, o.cfg.GenerationTimeout, err)
	default:
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
	}
}

// abstain completes the request without calling the generator.
func (o *AnswerOrchestrator) abstain(ctx context.Context, run *answerRun, opts domain.AnswerOptions) *domain.Message {
	text := NoContextMessage
	if o.docs != nil {
		count, err := o.docs.CountDocuments(ctx)
		switch {
		case err != nil:
			logger.Warn("Count documents: %v", err)
		case count == 0:
			text = NoDocumentsMessage
		}
	}

	run.advance(domain.AnswerCompleted)
	msg := &domain.Message{
		Role:      domain.RoleAssistant,
		Text:      text,
		State:     domain.AnswerCompleted,
		NoContext: true,
		CreatedAt: o.now(),
	}
	if opts.Debug {
		msg.Debug = &domain.DebugTrace{RelevantChunks: []domain.TracedChunk{}}
	}
	o.record(run, "")
	logger.Info("No context retrieved, generator not called")
	return msg
}

func (o *AnswerOrchestrator) fail(run *answerRun, err error) error {
	stage := run.state
	run.advance(domain.AnswerFailed)
	o.record(run, stage)
	logger.Warn("Answer failed while %s: %v", stage, err)
	return &domain.AnswerError{Stage: stage, Err: err}
}

func (o *AnswerOrchestrator) record(run *answerRun, failedStage domain.AnswerState) {
	if o.metrics != nil {
		o.metrics.AnswerCompleted(run.state, failedStage, o.now().Sub(run.started).Seconds())
	}
}
