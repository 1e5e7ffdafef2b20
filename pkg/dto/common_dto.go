package dto

import (
	"io"
	"time"

	"github.com/google/uuid"
)

const (
	SortByUpvotes = "by_upvotes"
	SortByRecency = "by_recency"
)

type IssueFilter struct {
	Sort         string `form:"sort" binding:"omitempty,oneof=by_upvotes by_recency"`
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
	Status       string `form:"status" binding:"omitempty,oneof=pending acknowledged work_done"`
}

type ReporterResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	CollegeID string    `json:"college_id"`
}

type DepartmentResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code string    `json:"code"`
}

// IssueResponse is an issue as shown in every list: annotated for the viewer.
type IssueResponse struct {
	ID            uuid.UUID           `json:"id"`
	Title         string              `json:"title"`
	Description   *string             `json:"description"`
	RoomNo        string              `json:"room_no"`
	ItemID        string              `json:"item_id"`
	PhotoURL      *string             `json:"photo_url"`
	Status        string              `json:"status"`
	IsPriority    bool                `json:"is_priority"`
	Department    *DepartmentResponse `json:"department"`
	Reporter      *ReporterResponse   `json:"reporter"`
	ReportedAt    time.Time           `json:"reported_at"`
	Deadline      time.Time           `json:"deadline"`
	ResolvedAt    *time.Time          `json:"resolved_at"`
	DaysRemaining int                 `json:"days_remaining"`
	UpvoteCount   int64               `json:"upvote_count"`
	HasUpvoted    bool                `json:"has_upvoted"`
}

type IssueListResponse struct {
	Data  []IssueResponse `json:"data"`
	Total int             `json:"total"`
}

type StatusCounts struct {
	Pending      int64 `json:"pending"`
	Acknowledged int64 `json:"acknowledged"`
	WorkDone     int64 `json:"work_done"`
	Total        int64 `json:"total"`
}

// PhotoFile is an uploaded issue photo.
type PhotoFile struct {
	Reader   io.Reader
	FileName string
}
