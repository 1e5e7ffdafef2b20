package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IssueStatus string

const (
	StatusPending      IssueStatus = "pending"
	StatusAcknowledged IssueStatus = "acknowledged"
	StatusWorkDone     IssueStatus = "work_done"
)

// DefaultDeadline is how long after reporting an issue is expected to be fixed.
const DefaultDeadline = 30 * 24 * time.Hour

func (s IssueStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAcknowledged, StatusWorkDone:
		return true
	}
	return false
}

type Issue struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ReporterID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"reporter_id"`
	Reporter     *Profile    `gorm:"foreignKey:ReporterID;references:UserID;constraint:OnDelete:CASCADE" json:"reporter,omitempty"`
	DepartmentID uuid.UUID   `gorm:"type:uuid;not null;index" json:"department_id"`
	Department   *Department `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"department,omitempty"`
	RoomNo       string      `gorm:"size:50;not null" json:"room_no"`
	ItemID       string      `gorm:"size:50;not null" json:"item_id"`
	Title        string      `gorm:"size:200;not null" json:"title"`
	Description  *string     `gorm:"type:text" json:"description,omitempty"`
	PhotoURL     *string     `gorm:"type:text" json:"photo_url,omitempty"`
	Status       IssueStatus `gorm:"size:20;not null;default:'pending';index;check:status IN ('pending','acknowledged','work_done')" json:"status"`
	IsPriority   bool        `gorm:"not null;default:false" json:"is_priority"`
	ReportedAt   time.Time   `gorm:"not null;index" json:"reported_at"`
	Deadline     time.Time   `gorm:"not null" json:"deadline"`
	ResolvedAt   *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i *Issue) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID, err = uuid.NewV7()
	}
	return
}
