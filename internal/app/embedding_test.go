package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docuchat/internal/ai"
)

type fakeEmbeddingClient struct {
	vectors []float32
	errs    []error
	calls   int
}

func (f *fakeEmbeddingClient) Embed(_ context.Context, _ ai.EmbeddingConfig, _ string) ([]float32, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	return f.vectors, nil
}

func recordedSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestEmbedZeroVectorWithoutClient(t *testing.T) {
	gateway := NewEmbeddingGateway(nil, ai.EmbeddingConfig{Model: "m"}, 8)

	vec, err := gateway.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, make([]float32, 8), vec)
}

func TestEmbedZeroVectorWithoutModel(t *testing.T) {
	client := &fakeEmbeddingClient{vectors: []float32{1, 2, 3}}
	gateway := NewEmbeddingGateway(client, ai.EmbeddingConfig{}, 4)

	vec, err := gateway.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, make([]float32, 4), vec)
	require.Zero(t, client.calls)
}

func TestEmbedPassesThroughVector(t *testing.T) {
	client := &fakeEmbeddingClient{vectors: []float32{0.1, 0.2}}
	gateway := NewEmbeddingGateway(client, ai.EmbeddingConfig{Model: "m"}, 2)

	vec, err := gateway.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2}, vec)
	require.Equal(t, 1, client.calls)
}

func TestEmbedRetriesWithDoublingBackoff(t *testing.T) {
	transient := &ai.APIError{StatusCode: 429, Body: "rate limit"}
	client := &fakeEmbeddingClient{
		errs: []error{transient, transient, transient, transient, transient},
	}
	gateway := NewEmbeddingGateway(client, ai.EmbeddingConfig{Model: "m"}, 4)

	var delays []time.Duration
	gateway.retry.Sleep = recordedSleep(&delays)

	_, err := gateway.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, ErrEmbeddingUnavailable)
	require.Equal(t, 5, client.calls)
	require.Equal(t, []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, delays)
}

func TestEmbedRecoversMidRetry(t *testing.T) {
	transient := &ai.APIError{StatusCode: 503, Body: "overloaded"}
	client := &fakeEmbeddingClient{
		vectors: []float32{0.5},
		errs:    []error{transient, transient},
	}
	gateway := NewEmbeddingGateway(client, ai.EmbeddingConfig{Model: "m"}, 1)

	var delays []time.Duration
	gateway.retry.Sleep = recordedSleep(&delays)

	vec, err := gateway.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{0.5}, vec)
	require.Equal(t, 3, client.calls)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, delays)
}

func TestEmbedNonRetryableFailsImmediately(t *testing.T) {
	fatal := &ai.APIError{StatusCode: 401, Body: "invalid api key"}
	client := &fakeEmbeddingClient{errs: []error{fatal}}
	gateway := NewEmbeddingGateway(client, ai.EmbeddingConfig{Model: "m"}, 4)

	var delays []time.Duration
	gateway.retry.Sleep = recordedSleep(&delays)

	_, err := gateway.Embed(context.Background(), "hello")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrEmbeddingUnavailable))
	require.Equal(t, 1, client.calls)
	require.Empty(t, delays)
}
