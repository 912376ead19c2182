package model

import "time"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrgID        uint      `gorm:"not null;index" json:"org_id"`
	TeamID       uint      `gorm:"index" json:"team_id"` // 0 = no team
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:16;not null;default:member" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user has implicit access to every folder
// in their org.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
