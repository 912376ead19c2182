package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByFolderIDs(folderIDs []uint) ([]model.Document, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}
	var docs []model.Document
	if err := r.db.Select("id", "folder_id", "name", "created_at").
		Where("folder_id IN ?", folderIDs).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents by folders failed: %w", err)
	}
	return docs, nil
}

// NamesByIDs returns id -> name for the given documents. IDs without a
// live document row are simply absent from the map.
func (r *DocumentRepository) NamesByIDs(ids []uint) (map[uint]string, error) {
	if len(ids) == 0 {
		return map[uint]string{}, nil
	}
	var rows []struct {
		ID   uint
		Name string
	}
	if err := r.db.Model(&model.Document{}).
		Select("id", "name").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query document names failed: %w", err)
	}
	names := make(map[uint]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

// SearchLexical finds documents in the given folders whose extracted
// text contains the query substring. Used as the fallback when vector
// search comes back empty.
func (r *DocumentRepository) SearchLexical(query string, folderIDs []uint, limit int) ([]model.Document, error) {
	if len(folderIDs) == 0 || query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	var docs []model.Document
	if err := r.db.Where("folder_id IN ?", folderIDs).
		Where("extracted_text LIKE ?", "%"+query+"%").
		Order("id ASC").
		Limit(limit).
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) DeleteByID(id uint) error {
	if err := r.db.Delete(&model.Document{}, id).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
