package app

import (
	"context"

	"docuchat/internal/ai"
)

// GenerationClient is the text-generation capability. Any provider that
// speaks this contract is substitutable; production wires
// ai.OpenAICompatibleClient.
type GenerationClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// EmbeddingClient is the text-embedding capability.
type EmbeddingClient interface {
	Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error)
}
