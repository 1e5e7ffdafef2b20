package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Upvote is unique per (issue, user); its existence is the "has upvoted" signal.
type Upvote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_upvotes_unique,priority:1" json:"issue_id"`
	Issue     *Issue    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_upvotes_unique,priority:2;index" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (u *Upvote) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID, err = uuid.NewV7()
	}
	return
}
