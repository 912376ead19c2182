package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"docuchat/internal/config"
	"docuchat/internal/model"
)

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeChunkSearcher struct {
	chunks     []model.Chunk
	gotFolders []uint
	calls      int
}

func (f *fakeChunkSearcher) ListEmbeddedByFolderIDs(folderIDs []uint) ([]model.Chunk, error) {
	f.calls++
	f.gotFolders = folderIDs
	return f.chunks, nil
}

type fakeDocumentSearcher struct {
	names        map[uint]string
	lexicalDocs  []model.Document
	lexicalCalls int
	gotQuery     string
	gotLimit     int
}

func (f *fakeDocumentSearcher) SearchLexical(query string, _ []uint, limit int) ([]model.Document, error) {
	f.lexicalCalls++
	f.gotQuery = query
	f.gotLimit = limit
	return f.lexicalDocs, nil
}

func (f *fakeDocumentSearcher) NamesByIDs(_ []uint) (map[uint]string, error) {
	return f.names, nil
}

func embeddedChunk(id, docID uint, content string, vec []float32) model.Chunk {
	c := model.Chunk{ID: id, DocumentID: docID, Content: content}
	c.SetEmbedding(vec)
	return c
}

func retrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{SimilarityThreshold: 0.5, MaxResults: 50, LexicalLimit: 10}
}

func TestRetrieveEmptyScopeReturnsNothing(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	chunks := &fakeChunkSearcher{}
	docs := &fakeDocumentSearcher{}
	r := NewRetriever(embedder, chunks, docs, retrievalConfig())

	results, err := r.Retrieve(context.Background(), "query", nil)
	require.NoError(t, err)
	require.Nil(t, results)
	require.Zero(t, embedder.calls)
	require.Zero(t, chunks.calls)
	require.Zero(t, docs.lexicalCalls)
}

func TestRetrieveEmptyQueryReturnsNothing(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeChunkSearcher{}, &fakeDocumentSearcher{}, retrievalConfig())

	results, err := r.Retrieve(context.Background(), "   ", []uint{1})
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestRetrieveRanksAndFiltersByThreshold(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	chunks := &fakeChunkSearcher{chunks: []model.Chunk{
		embeddedChunk(1, 100, "aligned", []float32{1, 0}),           // sim 1.0
		embeddedChunk(2, 100, "orthogonal", []float32{0, 1}),        // sim 0.0, filtered
		embeddedChunk(3, 101, "partial", []float32{0.8, 0.6}),       // sim 0.8
		embeddedChunk(4, 101, "opposite", []float32{-1, 0}),         // sim -1.0, filtered
		embeddedChunk(5, 100, "also aligned", []float32{2, 0}),      // sim 1.0, ties with chunk 1
		embeddedChunk(6, 102, "just below", []float32{0.49, 0.871}), // ~0.49, filtered
	}}
	docs := &fakeDocumentSearcher{names: map[uint]string{100: "Guide", 101: "Policy", 102: "Notes"}}
	r := NewRetriever(embedder, chunks, docs, retrievalConfig())

	results, err := r.Retrieve(context.Background(), "query", []uint{1, 2})
	require.NoError(t, err)
	require.Equal(t, []uint{1, 2}, chunks.gotFolders)

	require.Len(t, results, 3)
	require.Equal(t, uint(1), results[0].ChunkID)
	require.Equal(t, uint(5), results[1].ChunkID)
	require.Equal(t, uint(3), results[2].ChunkID)
	require.Equal(t, "Guide", results[0].DocumentName)
	require.Equal(t, "Policy", results[2].DocumentName)
	require.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	require.InDelta(t, 0.8, results[2].Similarity, 1e-9)
	require.Zero(t, docs.lexicalCalls, "lexical fallback must not run when vector search hits")
}

func TestRetrieveCapsVectorResults(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	searcher := &fakeChunkSearcher{}
	for i := uint(1); i <= 10; i++ {
		searcher.chunks = append(searcher.chunks, embeddedChunk(i, 100, "c", []float32{1, 0}))
	}
	docs := &fakeDocumentSearcher{names: map[uint]string{100: "Guide"}}

	cfg := retrievalConfig()
	cfg.MaxResults = 3
	r := NewRetriever(embedder, searcher, docs, cfg)

	results, err := r.Retrieve(context.Background(), "query", []uint{1})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, uint(1), results[0].ChunkID)
	require.Equal(t, uint(3), results[2].ChunkID)
}

func TestRetrieveLexicalFallbackOnZeroVectorResults(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	chunks := &fakeChunkSearcher{} // no embedded chunks at all
	docs := &fakeDocumentSearcher{lexicalDocs: []model.Document{
		{ID: 7, Name: "Handbook", ExtractedText: "the vacation policy is twenty days"},
	}}
	r := NewRetriever(embedder, chunks, docs, retrievalConfig())

	results, err := r.Retrieve(context.Background(), "vacation", []uint{1})
	require.NoError(t, err)
	require.Equal(t, 1, docs.lexicalCalls)
	require.Equal(t, "vacation", docs.gotQuery)
	require.Equal(t, 10, docs.gotLimit)

	require.Len(t, results, 1)
	require.Zero(t, results[0].ChunkID)
	require.Equal(t, uint(7), results[0].DocumentID)
	require.Equal(t, "Handbook", results[0].DocumentName)
	require.Zero(t, results[0].Similarity)
	require.Contains(t, results[0].Content, "vacation policy")
}

func TestRetrieveLexicalFallbackOnEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding down")}
	chunks := &fakeChunkSearcher{chunks: []model.Chunk{
		embeddedChunk(1, 100, "never ranked", []float32{1, 0}),
	}}
	docs := &fakeDocumentSearcher{lexicalDocs: []model.Document{
		{ID: 9, Name: "Runbook", ExtractedText: "restart the ingest service"},
	}}
	r := NewRetriever(embedder, chunks, docs, retrievalConfig())

	results, err := r.Retrieve(context.Background(), "ingest", []uint{1})
	require.NoError(t, err)
	require.Zero(t, chunks.calls, "vector search must be skipped without a query embedding")
	require.Len(t, results, 1)
	require.Equal(t, "Runbook", results[0].DocumentName)
}

func TestRetrieveDropsOrphanedChunks(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	chunks := &fakeChunkSearcher{chunks: []model.Chunk{
		embeddedChunk(1, 100, "kept", []float32{1, 0}),
		embeddedChunk(2, 200, "orphan", []float32{1, 0}),
	}}
	docs := &fakeDocumentSearcher{names: map[uint]string{100: "Guide"}}
	r := NewRetriever(embedder, chunks, docs, retrievalConfig())

	results, err := r.Retrieve(context.Background(), "query", []uint{1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint(1), results[0].ChunkID)
}

func TestExcerptAroundCentersOnMatch(t *testing.T) {
	text := strings.Repeat("a", 2000) + "NEEDLE" + strings.Repeat("b", 2000)

	excerpt := excerptAround(text, "needle")
	require.Len(t, []rune(excerpt), 1000)
	require.Contains(t, excerpt, "NEEDLE")
}

func TestExcerptAroundShortTextUnchanged(t *testing.T) {
	require.Equal(t, "short text", excerptAround("short text", "text"))
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	require.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	require.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	require.Zero(t, cosineSimilarity(nil, nil))
	require.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
