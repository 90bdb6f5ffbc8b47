package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestNewAnswerOrchestrator_Defaults(t *testing.T) {
	o, err := NewAnswerOrchestrator(&Retriever{}, NewPromptAssembler(0), &mockGenerator{}, nil, AnswerConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, o.cfg.TopK)
	assert.Equal(t, DefaultGenerationTimeout, o.cfg.GenerationTimeout)

	_, err = NewAnswerOrchestrator(nil, NewPromptAssembler(0), &mockGenerator{}, nil, AnswerConfig{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestAnswer_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "france.txt", "Paris is the capital of France.")
	f.ingest(t, "fruit.txt", "Bananas grow in tropical climates.")

	msg, err := f.answers.Answer(context.Background(), "What is the capital of France?", domain.AnswerOptions{})

	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, msg.Role)
	assert.Equal(t, "Paris.", msg.Text)
	assert.Equal(t, domain.AnswerCompleted, msg.State)
	assert.False(t, msg.NoContext)
	assert.Nil(t, msg.Debug)
	require.NotEmpty(t, msg.Sources)
	assert.Equal(t, "france.txt", msg.Sources[0])

	prompts := f.generator.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "[Source 1 - france.txt]\nParis is the capital of France.\n")
	assert.True(t, strings.HasSuffix(prompts[0], "Question: What is the capital of France?\n\nAnswer:"))

	assert.Equal(t, []domain.AnswerState{domain.AnswerCompleted}, f.metrics.answers)
}

func TestAnswer_DebugTraceMatchesSentPrompt(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "france.txt", "Paris is the capital of France.")

	msg, err := f.answers.Answer(context.Background(), "capital of France", domain.AnswerOptions{Debug: true})

	require.NoError(t, err)
	require.NotNil(t, msg.Debug)
	prompts := f.generator.Prompts()
	require.Len(t, prompts, 1)
	assert.Equal(t, prompts[0], msg.Debug.FullPrompt)
	assert.Contains(t, msg.Debug.FullPrompt, msg.Debug.Context)
	require.Len(t, msg.Debug.RelevantChunks, 1)
	assert.Equal(t, "france.txt", msg.Debug.RelevantChunks[0].Metadata.Filename)
}

func TestAnswer_NoDocumentsAbstains(t *testing.T) {
	f := newFixture(t)

	msg, err := f.answers.Answer(context.Background(), "What is the capital of France?", domain.AnswerOptions{Debug: true})

	require.NoError(t, err)
	assert.Equal(t, NoDocumentsMessage, msg.Text)
	assert.True(t, msg.NoContext)
	assert.Equal(t, domain.AnswerCompleted, msg.State)
	assert.Empty(t, msg.Sources)
	assert.Empty(t, f.generator.Prompts(), "generator must not be called without context")
	require.NotNil(t, msg.Debug)
	assert.Empty(t, msg.Debug.FullPrompt)
	assert.Empty(t, msg.Debug.RelevantChunks)
}

func TestAnswer_NoRelevantChunksAbstains(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "fruit.txt", "Bananas grow in tropical climates.")
	f.retriever.cfg.MinScore = 0.99

	msg, err := f.answers.Answer(context.Background(), "quantum chromodynamics", domain.AnswerOptions{})

	require.NoError(t, err)
	assert.Equal(t, NoContextMessage, msg.Text)
	assert.True(t, msg.NoContext)
	assert.Empty(t, f.generator.Prompts())
}

func TestAnswer_CountFailureStillAbstains(t *testing.T) {
	f := newFixture(t)
	f.docs.countErr = errBoom

	msg, err := f.answers.Answer(context.Background(), "anything", domain.AnswerOptions{})

	require.NoError(t, err)
	assert.Equal(t, NoContextMessage, msg.Text)
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	f := newFixture(t)

	_, err := f.answers.Answer(context.Background(), "  ", domain.AnswerOptions{})

	var answerErr *domain.AnswerError
	require.ErrorAs(t, err, &answerErr)
	assert.Equal(t, domain.AnswerReceived, answerErr.Stage)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswer_RetrievalFailure(t *testing.T) {
	f := newFixture(t)
	f.embedder.failAfter = 0
	f.embedder.err = errBoom

	_, err := f.answers.Answer(context.Background(), "question", domain.AnswerOptions{})

	var answerErr *domain.AnswerError
	require.ErrorAs(t, err, &answerErr)
	assert.Equal(t, domain.AnswerRetrieving, answerErr.Stage)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "answer failed while retrieving")
	assert.Equal(t, []domain.AnswerState{domain.AnswerFailed}, f.metrics.answers)
	assert.Equal(t, []domain.AnswerState{domain.AnswerRetrieving}, f.metrics.failedStage)
}

func TestAnswer_GenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "a.txt", "Some useful text.")
	f.generator.err = errors.New("model exploded")

	_, err := f.answers.Answer(context.Background(), "useful text", domain.AnswerOptions{})

	var answerErr *domain.AnswerError
	require.ErrorAs(t, err, &answerErr)
	assert.Equal(t, domain.AnswerGenerating, answerErr.Stage)
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestAnswer_GenerationTimeout(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "a.txt", "Some useful text.")
	f.generator.blocking = true
	f.answers.cfg.GenerationTimeout = 20 * time.Millisecond

	_, err := f.answers.Answer(context.Background(), "useful text", domain.AnswerOptions{})

	var answerErr *domain.AnswerError
	require.ErrorAs(t, err, &answerErr)
	assert.Equal(t, domain.AnswerGenerating, answerErr.Stage)
	assert.ErrorIs(t, err, domain.ErrGenerationTimeout)
	assert.True(t, domain.IsTransient(err))
}

func TestAnswer_CallerCancellationDoesNotAbortGeneration(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "a.txt", "Some useful text.")
	ctx, cancel := context.WithCancel(context.Background())
	f.generator.onCall = cancel
	f.generator.delay = 10 * time.Millisecond

	msg, err := f.answers.Answer(ctx, "useful text", domain.AnswerOptions{})

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerCompleted, msg.State)
	require.Len(t, f.generator.ctxErrs, 1)
	assert.NoError(t, f.generator.ctxErrs[0])
}

func TestAnswer_TopKOverride(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"a", "b", "c", "d"} {
		f.ingest(t, name+".txt", "common words for "+name)
	}

	msg, err := f.answers.Answer(context.Background(), "common words", domain.AnswerOptions{TopK: 4, Debug: true})

	require.NoError(t, err)
	assert.Len(t, msg.Debug.RelevantChunks, 4)
}

func TestAnswer_DroppedChunksRecorded(t *testing.T) {
	f := newFixture(t)
	f.answers.assembler = NewPromptAssembler(80)
	f.ingest(t, "a.txt", "common words "+strings.Repeat("alpha ", 10))
	f.ingest(t, "b.txt", "common words "+strings.Repeat("beta ", 10))

	msg, err := f.answers.Answer(context.Background(), "common words", domain.AnswerOptions{Debug: true})

	require.NoError(t, err)
	assert.Equal(t, 1, f.metrics.dropped)
	assert.Len(t, msg.Sources, 1)
}

func TestAnswerState_Transitions(t *testing.T) {
	run := &answerRun{state: domain.AnswerReceived}
	for _, next := range []domain.AnswerState{
		domain.AnswerRetrieving, domain.AnswerAssembling, domain.AnswerGenerating, domain.AnswerCompleted,
	} {
		assert.True(t, run.state.CanTransition(next))
		run.advance(next)
	}
	assert.True(t, run.state.IsTerminal())
}

func TestAnswer_StalePointsDoNotCauseAbstention(t *testing.T) {
	f := newFixture(t)
	doc := f.ingest(t, "report.txt", "Old figures were low. New figures are high.")
	addStalePoints(t, f, doc.ID, "Old figures were low", 12)

	msg, err := f.answers.Answer(context.Background(), "Old figures were low", domain.AnswerOptions{})

	require.NoError(t, err)
	assert.False(t, msg.NoContext)
	assert.Equal(t, []string{"report.txt"}, msg.Sources)
	require.Len(t, f.generator.Prompts(), 1)
	assert.Contains(t, f.generator.Prompts()[0], "New figures are high.")
}
