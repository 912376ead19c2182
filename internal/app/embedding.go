package app

import (
	"context"
	"fmt"

	"docuchat/internal/ai"
)

// EmbeddingGateway wraps the embedding capability with the shared
// retry/backoff policy. With no capability configured it degrades to a
// deterministic zero vector, which keeps the system running with
// similarity search effectively disabled rather than failing outright.
type EmbeddingGateway struct {
	client EmbeddingClient
	cfg    ai.EmbeddingConfig
	dim    int
	retry  ai.RetryPolicy
}

func NewEmbeddingGateway(client EmbeddingClient, cfg ai.EmbeddingConfig, dim int) *EmbeddingGateway {
	if dim <= 0 {
		dim = 1536
	}
	return &EmbeddingGateway{
		client: client,
		cfg:    cfg,
		dim:    dim,
		retry:  ai.DefaultRetryPolicy(),
	}
}

// Dim is the output dimensionality. Stored chunk embeddings must match;
// a mismatch is a configuration error, not something to recover from.
func (g *EmbeddingGateway) Dim() int {
	return g.dim
}

// Embed converts text to a vector. Retryable provider failures are
// retried up to five times with doubling backoff from 2s; exhausting
// the retries yields ErrEmbeddingUnavailable. Non-retryable failures
// propagate as they are.
func (g *EmbeddingGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.client == nil || g.cfg.Model == "" {
		return make([]float32, g.dim), nil
	}

	var vec []float32
	err := g.retry.Do(ctx, func() error {
		var callErr error
		vec, callErr = g.client.Embed(ctx, g.cfg, text)
		return callErr
	})
	if err != nil {
		if ai.IsRetryable(err) {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
		}
		return nil, err
	}
	return vec, nil
}
