package search

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"anoa.com/campusfix/internal/entity"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const IssuesIndex = "issues"

const defaultSearchLimit = 50

// MeiliSearchService keeps the issues index in step with the database.
// A nil MeiliSearchService means search is disabled.
type MeiliSearchService interface {
	IndexIssue(issue *entity.Issue) error
	DeleteIssue(id string) error
	// Search returns ids of matching issues, best match first.
	Search(query string, departmentID *uuid.UUID, limit int64) ([]uuid.UUID, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) MeiliSearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndex()
	return s
}

func (s *meiliSearchService) initIndex() {
	filterable := []any{"department_id", "status"}
	if _, err := s.client.Index(IssuesIndex).UpdateFilterableAttributes(&filterable); err != nil {
		slog.Warn("failed to update issues filterable attributes", "error", err)
	}

	sortable := []string{"reported_at"}
	if _, err := s.client.Index(IssuesIndex).UpdateSortableAttributes(&sortable); err != nil {
		slog.Warn("failed to update issues sortable attributes", "error", err)
	}

	searchable := []string{"title", "description", "room_no", "item_id", "department"}
	if _, err := s.client.Index(IssuesIndex).UpdateSearchableAttributes(&searchable); err != nil {
		slog.Warn("failed to update issues searchable attributes", "error", err)
	}
}

type issueDoc struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	RoomNo       string `json:"room_no"`
	ItemID       string `json:"item_id"`
	Status       string `json:"status"`
	DepartmentID string `json:"department_id"`
	Department   string `json:"department"`
	ReportedAt   int64  `json:"reported_at"`
}

func (s *meiliSearchService) cleanText(content string) string {
	cleanText := html.UnescapeString(s.sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *meiliSearchService) IndexIssue(issue *entity.Issue) error {
	doc := issueDoc{
		ID:           issue.ID.String(),
		Title:        s.cleanText(issue.Title),
		RoomNo:       issue.RoomNo,
		ItemID:       issue.ItemID,
		Status:       string(issue.Status),
		DepartmentID: issue.DepartmentID.String(),
		ReportedAt:   issue.ReportedAt.Unix(),
	}
	if issue.Description != nil {
		doc.Description = s.cleanText(*issue.Description)
	}
	if issue.Department != nil {
		doc.Department = issue.Department.Name
	}

	task, err := s.client.Index(IssuesIndex).AddDocuments([]issueDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	slog.Debug("indexed issue", "issue_id", issue.ID, "task_uid", task.TaskUID)
	return nil
}

func (s *meiliSearchService) DeleteIssue(id string) error {
	_, err := s.client.Index(IssuesIndex).DeleteDocument(id)
	return err
}

func (s *meiliSearchService) Search(query string, departmentID *uuid.UUID, limit int64) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	req := &meilisearch.SearchRequest{
		Limit:                limit,
		AttributesToRetrieve: []string{"id"},
	}
	if departmentID != nil {
		req.Filter = fmt.Sprintf("department_id = %q", departmentID.String())
	}

	resp, err := s.client.Index(IssuesIndex).Search(query, req)
	if err != nil {
		return nil, err
	}

	return decodeHitIDs(resp.Hits)
}

// decodeHitIDs goes through JSON so it does not depend on the client's hit representation.
func decodeHitIDs(hits any) ([]uuid.UUID, error) {
	raw, err := json.Marshal(hits)
	if err != nil {
		return nil, err
	}

	var docs []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
