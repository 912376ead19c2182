package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListByConversationID(conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var messages []model.Message
	if err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

// ListRecentByConversationID returns the last n messages in
// chronological order, for prompt context.
func (r *MessageRepository) ListRecentByConversationID(conversationID string, n int) ([]model.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	var messages []model.Message
	if err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(n).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list recent messages failed: %w", err)
	}
	// reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepository) DeleteByConversationID(conversationID string) error {
	if err := r.db.Where("conversation_id = ?", conversationID).Delete(&model.Message{}).Error; err != nil {
		return fmt.Errorf("delete messages by conversation failed: %w", err)
	}
	return nil
}
