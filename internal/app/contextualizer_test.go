package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"docuchat/internal/ai"
)

type fakeGenerationClient struct {
	completions []string
	errs        []error
	calls       int
	gotMessages [][]ai.ChatMessage

	streamChunks []string
	streamErr    error
}

func (f *fakeGenerationClient) Complete(_ context.Context, _ ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	idx := f.calls
	f.calls++
	f.gotMessages = append(f.gotMessages, messages)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.completions) {
		return f.completions[idx], nil
	}
	if len(f.completions) > 0 {
		return f.completions[len(f.completions)-1], nil
	}
	return "", nil
}

func (f *fakeGenerationClient) StreamComplete(_ context.Context, _ ai.ChatConfig, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	f.calls++
	f.gotMessages = append(f.gotMessages, messages)
	if f.streamErr != nil {
		return "", f.streamErr
	}
	var full strings.Builder
	for _, chunk := range f.streamChunks {
		if err := onChunk(chunk); err != nil {
			return "", err
		}
		full.WriteString(chunk)
	}
	return full.String(), nil
}

func TestRewritePassesThroughWithoutHistory(t *testing.T) {
	client := &fakeGenerationClient{completions: []string{"should not be used"}}
	ctz := NewContextualizer(client, ai.ChatConfig{Model: "m"})

	got := ctz.Rewrite(context.Background(), "what is a folder?", nil)
	require.Equal(t, "what is a folder?", got)
	require.Zero(t, client.calls, "no generation call expected without history")
}

func TestRewriteResolvesAgainstHistory(t *testing.T) {
	client := &fakeGenerationClient{completions: []string{"what does the onboarding guide say about laptops?"}}
	ctz := NewContextualizer(client, ai.ChatConfig{Model: "m"})

	history := []ai.ChatMessage{
		{Role: "user", Content: "tell me about the onboarding guide"},
		{Role: "assistant", Content: "it covers equipment and first-week setup"},
	}
	got := ctz.Rewrite(context.Background(), "what about laptops?", history)
	require.Equal(t, "what does the onboarding guide say about laptops?", got)
	require.Equal(t, 1, client.calls)

	prompt := client.gotMessages[0]
	require.Len(t, prompt, 2)
	require.Equal(t, "system", prompt[0].Role)
	require.Contains(t, prompt[1].Content, "tell me about the onboarding guide")
	require.Contains(t, prompt[1].Content, "Final user question: what about laptops?")
}

func TestRewriteBoundsHistory(t *testing.T) {
	client := &fakeGenerationClient{completions: []string{"bounded"}}
	ctz := NewContextualizer(client, ai.ChatConfig{Model: "m"})

	history := make([]ai.ChatMessage, 0, 10)
	for _, content := range []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9"} {
		history = append(history, ai.ChatMessage{Role: "user", Content: content})
	}

	ctz.Rewrite(context.Background(), "follow-up", history)
	require.Equal(t, 1, client.calls)

	prompt := client.gotMessages[0][1].Content
	require.NotContains(t, prompt, "t3")
	for _, kept := range []string{"t4", "t5", "t6", "t7", "t8", "t9"} {
		require.Contains(t, prompt, kept)
	}
}

func TestRewriteDegradesOnFailure(t *testing.T) {
	client := &fakeGenerationClient{errs: []error{errors.New("provider down")}}
	ctz := NewContextualizer(client, ai.ChatConfig{Model: "m"})

	history := []ai.ChatMessage{{Role: "user", Content: "earlier turn"}}
	got := ctz.Rewrite(context.Background(), "and then?", history)
	require.Equal(t, "and then?", got)
}

func TestRewriteFallsBackOnEmptyCompletion(t *testing.T) {
	client := &fakeGenerationClient{completions: []string{"   "}}
	ctz := NewContextualizer(client, ai.ChatConfig{Model: "m"})

	history := []ai.ChatMessage{{Role: "user", Content: "earlier turn"}}
	got := ctz.Rewrite(context.Background(), "and then?", history)
	require.Equal(t, "and then?", got)
}

func TestRewriteStripsEchoedPrefixAndQuotes(t *testing.T) {
	cases := map[string]string{
		`Standalone search query: "vacation policy for new hires"`: "vacation policy for new hires",
		`Rewritten query: vacation policy`:                         "vacation policy",
		`"vacation policy"`:                                        "vacation policy",
		`vacation policy`:                                          "vacation policy",
	}
	for completion, want := range cases {
		client := &fakeGenerationClient{completions: []string{completion}}
		ctz := NewContextualizer(client, ai.ChatConfig{Model: "m"})

		history := []ai.ChatMessage{{Role: "user", Content: "we were discussing vacation"}}
		got := ctz.Rewrite(context.Background(), "what is the policy?", history)
		require.Equal(t, want, got)
	}
}
