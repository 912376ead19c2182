package model

import "time"

// Document is the parent of retrieval chunks. ExtractedText keeps the
// full extracted content for lexical fallback search.
type Document struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	FolderID      uint      `gorm:"not null;index" json:"folder_id"`
	Name          string    `gorm:"size:256;not null" json:"name"`
	ExtractedText string    `gorm:"type:longtext;not null" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}
