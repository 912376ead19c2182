package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type FolderRepository struct {
	db *gorm.DB
}

func NewFolderRepository(db *gorm.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Create(folder *model.Folder) error {
	if err := r.db.Create(folder).Error; err != nil {
		return fmt.Errorf("create folder failed: %w", err)
	}
	return nil
}

func (r *FolderRepository) GetByID(id uint) (*model.Folder, error) {
	var folder model.Folder
	if err := r.db.First(&folder, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get folder failed: %w", err)
	}
	return &folder, nil
}

func (r *FolderRepository) ListByIDs(ids []uint) ([]model.Folder, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var folders []model.Folder
	if err := r.db.Where("id IN ?", ids).Order("created_at DESC").Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("list folders by ids failed: %w", err)
	}
	return folders, nil
}

// ListIDsByOrgID returns every folder ID in the org (admin visibility).
func (r *FolderRepository) ListIDsByOrgID(orgID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.Folder{}).Where("org_id = ?", orgID).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list folder ids by org failed: %w", err)
	}
	return ids, nil
}

// ListIDsByTeam returns folder IDs visible through team membership.
func (r *FolderRepository) ListIDsByTeam(orgID, teamID uint) ([]uint, error) {
	if teamID == 0 {
		return nil, nil
	}
	var ids []uint
	if err := r.db.Model(&model.Folder{}).
		Where("org_id = ? AND team_id = ?", orgID, teamID).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list folder ids by team failed: %w", err)
	}
	return ids, nil
}

// ListGrantedIDsByUserID returns folder IDs shared with the user directly.
func (r *FolderRepository) ListGrantedIDsByUserID(userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.FolderGrant{}).
		Where("user_id = ?", userID).
		Pluck("folder_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list granted folder ids failed: %w", err)
	}
	return ids, nil
}

func (r *FolderRepository) CreateGrant(grant *model.FolderGrant) error {
	if err := r.db.Create(grant).Error; err != nil {
		return fmt.Errorf("create folder grant failed: %w", err)
	}
	return nil
}

func (r *FolderRepository) DeleteGrant(folderID, userID uint) error {
	if err := r.db.Where("folder_id = ? AND user_id = ?", folderID, userID).
		Delete(&model.FolderGrant{}).Error; err != nil {
		return fmt.Errorf("delete folder grant failed: %w", err)
	}
	return nil
}
