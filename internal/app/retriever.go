package app

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"

	"docuchat/internal/config"
	"docuchat/internal/model"
)

// RetrievalResult is one retrieved passage, hydrated with its parent
// document's name. Ephemeral; never persisted.
type RetrievalResult struct {
	ChunkID      uint    `json:"chunk_id"` // 0 for lexical fallback matches
	DocumentID   uint    `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Content      string  `json:"content"`
	Similarity   float64 `json:"similarity"`
}

// Embedder is what the retriever needs from the embedding gateway.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearcher is the vector side of the chunk store: chunks with
// populated embeddings, restricted to an access scope.
type ChunkSearcher interface {
	ListEmbeddedByFolderIDs(folderIDs []uint) ([]model.Chunk, error)
}

// DocumentSearcher is the lexical side plus metadata hydration.
type DocumentSearcher interface {
	SearchLexical(query string, folderIDs []uint, limit int) ([]model.Document, error)
	NamesByIDs(ids []uint) (map[uint]string, error)
}

// Retriever runs the search pipeline: embed the query, cosine-rank
// scoped chunks, fall back to lexical substring search when vector
// search produces nothing, and hydrate results with document names.
type Retriever struct {
	embedder Embedder
	chunks   ChunkSearcher
	docs     DocumentSearcher
	cfg      config.RetrievalConfig
}

func NewRetriever(embedder Embedder, chunks ChunkSearcher, docs DocumentSearcher, cfg config.RetrievalConfig) *Retriever {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	if cfg.LexicalLimit <= 0 {
		cfg.LexicalLimit = 10
	}
	return &Retriever{embedder: embedder, chunks: chunks, docs: docs, cfg: cfg}
}

// Retrieve returns passages for the query, restricted to folderIDs.
// An empty scope or an empty result set is valid, not an error. An
// embedding outage degrades to the lexical path instead of failing the
// turn.
func (r *Retriever) Retrieve(ctx context.Context, query string, folderIDs []uint) ([]RetrievalResult, error) {
	if len(folderIDs) == 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	var results []RetrievalResult
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("query embedding failed, falling back to lexical search: %v", err)
	} else {
		results, err = r.vectorSearch(queryVec, folderIDs)
		if err != nil {
			return nil, err
		}
	}

	if len(results) == 0 {
		return r.lexicalSearch(query, folderIDs)
	}
	return r.hydrate(results)
}

func (r *Retriever) vectorSearch(queryVec []float32, folderIDs []uint) ([]RetrievalResult, error) {
	chunks, err := r.chunks.ListEmbeddedByFolderIDs(folderIDs)
	if err != nil {
		return nil, err
	}

	results := make([]RetrievalResult, 0, len(chunks))
	for i := range chunks {
		score := cosineSimilarity(queryVec, chunks[i].EmbeddingVector())
		if score < r.cfg.SimilarityThreshold {
			continue
		}
		results = append(results, RetrievalResult{
			ChunkID:    chunks[i].ID,
			DocumentID: chunks[i].DocumentID,
			Content:    chunks[i].Content,
			Similarity: score,
		})
	}

	// Strictly descending similarity; chunk ID breaks ties so the
	// ordering is deterministic for a fixed input set.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > r.cfg.MaxResults {
		results = results[:r.cfg.MaxResults]
	}
	return results, nil
}

// lexicalSearch matches the query as a substring of document text.
// Matches carry similarity 0 to mark them as non-vector results.
func (r *Retriever) lexicalSearch(query string, folderIDs []uint) ([]RetrievalResult, error) {
	docs, err := r.docs.SearchLexical(query, folderIDs, r.cfg.LexicalLimit)
	if err != nil {
		return nil, err
	}

	results := make([]RetrievalResult, 0, len(docs))
	for i := range docs {
		results = append(results, RetrievalResult{
			DocumentID:   docs[i].ID,
			DocumentName: docs[i].Name,
			Content:      excerptAround(docs[i].ExtractedText, query),
			Similarity:   0,
		})
	}
	return results, nil
}

// hydrate attaches document names to vector results. Results whose
// parent document no longer exists are dropped rather than surfaced
// with missing metadata.
func (r *Retriever) hydrate(results []RetrievalResult) ([]RetrievalResult, error) {
	ids := make([]uint, 0, len(results))
	for i := range results {
		ids = append(ids, results[i].DocumentID)
	}
	names, err := r.docs.NamesByIDs(ids)
	if err != nil {
		return nil, err
	}

	hydrated := results[:0]
	for i := range results {
		name, ok := names[results[i].DocumentID]
		if !ok {
			log.Printf("dropping chunk %d: parent document %d missing", results[i].ChunkID, results[i].DocumentID)
			continue
		}
		results[i].DocumentName = name
		hydrated = append(hydrated, results[i])
	}
	return hydrated, nil
}

// excerptAround returns a window of text centered on the first match of
// query, so lexical results hand the synthesizer relevant context
// instead of a document prefix.
func excerptAround(text, query string) string {
	const window = 1000

	runes := []rune(text)
	if len(runes) <= window {
		return text
	}

	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx < 0 {
		return string(runes[:window])
	}

	// byte index to rune index
	pos := len([]rune(text[:idx]))
	start := pos - window/2
	if start < 0 {
		start = 0
	}
	end := start + window
	if end > len(runes) {
		end = len(runes)
		start = end - window
	}
	return string(runes[start:end])
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
