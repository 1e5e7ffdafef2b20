package dto

import "github.com/google/uuid"

type ToggleUpvoteResponse struct {
	IssueID     uuid.UUID `json:"issue_id"`
	HasUpvoted  bool      `json:"has_upvoted"`
	UpvoteCount int64     `json:"upvote_count"`
}
