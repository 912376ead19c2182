package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docuchat/internal/ai"
)

func TestSynthesizePromptLayout(t *testing.T) {
	client := &fakeGenerationClient{completions: []string{" the answer "}}
	s := NewSynthesizer(client, ai.ChatConfig{Model: "m"})

	passages := []RetrievalResult{
		{DocumentName: "Guide", Content: "first passage"},
		{DocumentName: "Policy", Content: "second passage"},
	}
	history := []ai.ChatMessage{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}

	answer, err := s.Synthesize(context.Background(), passages, "the question", history)
	require.NoError(t, err)
	require.Equal(t, "the answer", answer)

	prompt := client.gotMessages[0]
	require.Len(t, prompt, 4)
	require.Equal(t, "system", prompt[0].Role)
	require.Equal(t, history[0], prompt[1])
	require.Equal(t, history[1], prompt[2])

	final := prompt[3].Content
	require.Contains(t, final, "Context:\nDocument: Guide\nContent: first passage\n\nDocument: Policy\nContent: second passage")
	require.Contains(t, final, "Question: the question")
	// Passage order in the prompt drives citation numbering.
	require.Less(t, strings.Index(final, "Guide"), strings.Index(final, "Policy"))
}

func TestSynthesizeMarksEmptyRetrieval(t *testing.T) {
	client := &fakeGenerationClient{completions: []string{"no docs answer"}}
	s := NewSynthesizer(client, ai.ChatConfig{Model: "m"})

	_, err := s.Synthesize(context.Background(), nil, "the question", nil)
	require.NoError(t, err)

	final := client.gotMessages[0][len(client.gotMessages[0])-1].Content
	require.Contains(t, final, "Context:\nNo relevant documents found.")
}

func TestSynthesizeRetriesTransientFailures(t *testing.T) {
	transient := &ai.APIError{StatusCode: 529, Body: "overloaded"}
	client := &fakeGenerationClient{
		completions: []string{"", "", "recovered"},
		errs:        []error{transient, transient, nil},
	}
	s := NewSynthesizer(client, ai.ChatConfig{Model: "m"})

	var delays []time.Duration
	s.retry.Sleep = recordedSleep(&delays)

	answer, err := s.Synthesize(context.Background(), nil, "q", nil)
	require.NoError(t, err)
	require.Equal(t, "recovered", answer)
	require.Equal(t, 3, client.calls)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, delays)
}

func TestSynthesizeExhaustsRetries(t *testing.T) {
	transient := &ai.APIError{StatusCode: 500, Body: "internal"}
	client := &fakeGenerationClient{
		errs: []error{transient, transient, transient, transient, transient},
	}
	s := NewSynthesizer(client, ai.ChatConfig{Model: "m"})

	var delays []time.Duration
	s.retry.Sleep = recordedSleep(&delays)

	_, err := s.Synthesize(context.Background(), nil, "q", nil)
	require.Error(t, err)
	require.Equal(t, 5, client.calls)
	require.Len(t, delays, 4)
}

func TestSynthesizeNonRetryableFailsOnce(t *testing.T) {
	fatal := &ai.APIError{StatusCode: 400, Body: "bad request"}
	client := &fakeGenerationClient{errs: []error{fatal}}
	s := NewSynthesizer(client, ai.ChatConfig{Model: "m"})

	_, err := s.Synthesize(context.Background(), nil, "q", nil)
	require.Error(t, err)
	require.Equal(t, 1, client.calls)
}

func TestSynthesizeStreamForwardsChunks(t *testing.T) {
	client := &fakeGenerationClient{streamChunks: []string{"hel", "lo ", "there"}}
	s := NewSynthesizer(client, ai.ChatConfig{Model: "m"})

	var chunks []string
	full, err := s.SynthesizeStream(context.Background(), nil, "q", nil, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "hello there", full)
	require.Equal(t, []string{"hel", "lo ", "there"}, chunks)
}
