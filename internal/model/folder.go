package model

import "time"

// Folder is the access-control boundary for documents. Visibility is
// resolved from three sources: org admins see every folder in the org,
// team members see their team's folders, and FolderGrant rows share a
// folder with individual users across teams.
type Folder struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrgID     uint      `gorm:"not null;index" json:"org_id"`
	TeamID    uint      `gorm:"index" json:"team_id"` // 0 = org-wide, admin managed
	Name      string    `gorm:"size:256;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// FolderGrant gives a single user access to a folder outside their team.
type FolderGrant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FolderID  uint      `gorm:"not null;index:idx_folder_user,unique" json:"folder_id"`
	UserID    uint      `gorm:"not null;index:idx_folder_user,unique" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
