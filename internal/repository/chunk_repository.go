package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("create chunks batch failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) GetByID(id uint) (*model.Chunk, error) {
	var chunk model.Chunk
	if err := r.db.First(&chunk, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chunk failed: %w", err)
	}
	return &chunk, nil
}

// ListEmbeddedByFolderIDs returns chunks eligible for vector search:
// chunks whose parent document lives in one of the given folders and
// whose embedding has been populated by the embed worker.
func (r *ChunkRepository) ListEmbeddedByFolderIDs(folderIDs []uint) ([]model.Chunk, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}
	var chunks []model.Chunk
	if err := r.db.
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Where("documents.folder_id IN ?", folderIDs).
		Where("chunks.embedding <> '' AND chunks.embedding <> '[]'").
		Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list embedded chunks failed: %w", err)
	}
	return chunks, nil
}

// UpdateEmbedding writes the embedding back for one chunk. Called only
// by the embed worker.
func (r *ChunkRepository) UpdateEmbedding(chunkID uint, embeddingJSON string) error {
	if err := r.db.Model(&model.Chunk{}).
		Where("id = ?", chunkID).
		Update("embedding", embeddingJSON).Error; err != nil {
		return fmt.Errorf("update chunk embedding failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) DeleteByDocumentID(documentID uint) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	return nil
}
