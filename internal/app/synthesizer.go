package app

import (
	"context"
	"fmt"
	"strings"

	"docuchat/internal/ai"
)

const synthesizeInstruction = `You are an assistant answering questions from a document library. Answer the user's question using the provided context documents. If the answer is not in the context you may use general knowledge, but say clearly that the documents do not cover it. Be conversational and use the conversation history to stay consistent with earlier answers.`

// noDocumentsMarker replaces the context block when retrieval came back
// empty. An explicit marker lets the model respond informatively
// instead of inventing coverage for an empty string.
const noDocumentsMarker = "No relevant documents found."

// Synthesizer turns retrieved passages, history, and the question into
// a grounded answer, with the same retry policy as the embedding
// gateway.
type Synthesizer struct {
	client GenerationClient
	cfg    ai.ChatConfig
	retry  ai.RetryPolicy
}

func NewSynthesizer(client GenerationClient, cfg ai.ChatConfig) *Synthesizer {
	return &Synthesizer{
		client: client,
		cfg:    cfg,
		retry:  ai.DefaultRetryPolicy(),
	}
}

// Synthesize produces the answer text. Retrieval order is preserved in
// the prompt; citation numbering depends on it.
func (s *Synthesizer) Synthesize(ctx context.Context, passages []RetrievalResult, question string, history []ai.ChatMessage) (string, error) {
	messages := s.buildPrompt(passages, question, history)

	var answer string
	err := s.retry.Do(ctx, func() error {
		var callErr error
		answer, callErr = s.client.Complete(ctx, s.cfg, messages)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// SynthesizeStream is the streaming variant. A stream that fails
// mid-flight is terminal for that attempt; a retry starts a fresh
// stream from the beginning, so onChunk may see a restarted sequence.
func (s *Synthesizer) SynthesizeStream(ctx context.Context, passages []RetrievalResult, question string, history []ai.ChatMessage, onChunk func(string) error) (string, error) {
	messages := s.buildPrompt(passages, question, history)

	var full string
	err := s.retry.Do(ctx, func() error {
		var callErr error
		full, callErr = s.client.StreamComplete(ctx, s.cfg, messages, onChunk)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(full), nil
}

func (s *Synthesizer) buildPrompt(passages []RetrievalResult, question string, history []ai.ChatMessage) []ai.ChatMessage {
	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: synthesizeInstruction})
	messages = append(messages, history...)

	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(renderPassages(passages))
	fmt.Fprintf(&b, "\n\nQuestion: %s", question)
	messages = append(messages, ai.ChatMessage{Role: "user", Content: b.String()})
	return messages
}

func renderPassages(passages []RetrievalResult) string {
	if len(passages) == 0 {
		return noDocumentsMarker
	}
	blocks := make([]string, 0, len(passages))
	for i := range passages {
		blocks = append(blocks, fmt.Sprintf("Document: %s\nContent: %s", passages[i].DocumentName, passages[i].Content))
	}
	return strings.Join(blocks, "\n\n")
}
