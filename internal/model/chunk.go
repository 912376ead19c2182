package model

import (
	"encoding/json"
	"time"
)

// Chunk stores a text fragment of a document and its embedding for
// retrieval. Embedding is stored as a JSON array of float32 for
// portability; an empty string means the background embed worker has
// not processed the chunk yet, so it is ineligible for vector search.
type Chunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Embedding  string    `gorm:"type:mediumtext" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasEmbedding reports whether the chunk can take part in vector search.
func (c *Chunk) HasEmbedding() bool {
	return c.Embedding != "" && c.Embedding != "[]"
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *Chunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *Chunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
