package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/pkg/storage"
	"github.com/google/uuid"
)

// ImageStorage keeps uploads in memory and serves Cloudinary-shaped URLs.
type ImageStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Deleted []string

	UploadErr error
}

func NewImageStorage() *ImageStorage {
	return &ImageStorage{Objects: make(map[string][]byte)}
}

func (s *ImageStorage) UploadImage(_ context.Context, r io.Reader, folder, fileName string) (string, error) {
	if s.UploadErr != nil {
		return "", s.UploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	url := fmt.Sprintf("https://res.cloudinary.com/test/image/upload/v1/%s", path.Join("campusfix", folder, fileName))
	s.Objects[url] = data
	return url, nil
}

func (s *ImageStorage) DeleteImage(_ context.Context, fileURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.Objects[fileURL]; !ok {
		return errors.New("object not found")
	}
	delete(s.Objects, fileURL)
	s.Deleted = append(s.Deleted, fileURL)
	return nil
}

var _ storage.ImageStorage = (*ImageStorage)(nil)

// SearchIndex is a substring-matching stand-in for the meilisearch index.
type SearchIndex struct {
	mu   sync.Mutex
	Docs map[uuid.UUID]entity.Issue
}

func NewSearchIndex() *SearchIndex {
	return &SearchIndex{Docs: make(map[uuid.UUID]entity.Issue)}
}

func (s *SearchIndex) IndexIssue(issue *entity.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Docs[issue.ID] = *issue
	return nil
}

func (s *SearchIndex) DeleteIssue(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Docs, parsed)
	return nil
}

func (s *SearchIndex) Search(query string, departmentID *uuid.UUID, _ int64) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for id, doc := range s.Docs {
		if departmentID != nil && doc.DepartmentID != *departmentID {
			continue
		}
		if strings.Contains(strings.ToLower(doc.Title), strings.ToLower(query)) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
