package upload

import (
	"encoding/base64"
	"sync"

	"github.com/google/uuid"
	"ui2sql-backend/internal/models"
)

// PreviewStore holds at most one live preview. Creating a new preview revokes
// the previous one, so repeated uploads never accumulate image bytes.
type PreviewStore struct {
	mu      sync.RWMutex
	baseURL string
	current *previewEntry
}

type previewEntry struct {
	preview models.Preview
	data    []byte
}

// NewPreviewStore returns a store whose preview URLs are baseURL + "/" + id.
func NewPreviewStore(baseURL string) *PreviewStore {
	if baseURL == "" {
		baseURL = "/api/v1/previews"
	}
	return &PreviewStore{baseURL: baseURL}
}

func (s *PreviewStore) Replace(data []byte, mediaType string) *models.Preview {
	id := uuid.New().String()
	entry := &previewEntry{
		preview: models.Preview{
			ID:        id,
			URL:       s.baseURL + "/" + id,
			MediaType: mediaType,
			Size:      int64(len(data)),
		},
		data: data,
	}

	s.mu.Lock()
	s.current = entry
	s.mu.Unlock()

	p := entry.preview
	return &p
}

// RevokeCurrent drops the live preview. It reports whether one existed.
func (s *PreviewStore) RevokeCurrent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.current != nil
	s.current = nil
	return had
}

// Get returns the bytes of a live preview. Revoked ids are not found.
func (s *PreviewStore) Get(id string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.preview.ID != id {
		return nil, "", false
	}
	return s.current.data, s.current.preview.MediaType, true
}

func (s *PreviewStore) Current() (*models.Preview, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	p := s.current.preview
	return &p, true
}

// DataURI renders the live preview inline, for clients that cannot fetch URLs.
func (s *PreviewStore) DataURI(id string) (string, bool) {
	data, mediaType, ok := s.Get(id)
	if !ok {
		return "", false
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), true
}
