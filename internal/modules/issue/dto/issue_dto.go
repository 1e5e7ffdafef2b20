package dto

// SubmitIssueRequest is bound from the multipart form; the photo travels
// separately as the "photo" file part.
type SubmitIssueRequest struct {
	DepartmentID string  `form:"department_id" json:"department_id" binding:"required,uuid"`
	RoomNo       string  `form:"room_no" json:"room_no" binding:"required,max=50"`
	ItemID       string  `form:"item_id" json:"item_id" binding:"required,max=50"`
	Title        string  `form:"title" json:"title" binding:"required,max=200"`
	Description  *string `form:"description" json:"description" binding:"omitempty,max=5000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SearchQuery struct {
	Q            string `form:"q"`
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
}

type DashboardQuery struct {
	Sort         string `form:"sort" binding:"omitempty,oneof=by_upvotes by_recency"`
	Status       string `form:"status" binding:"omitempty,oneof=pending acknowledged work_done"`
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
}
