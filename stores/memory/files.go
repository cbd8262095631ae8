package memory

import (
	"collabdoc-server/core"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type fileStore struct {
	mu    sync.RWMutex
	files map[string]core.UploadedFile
}

// NewFileStore returns the default in-memory blob store.
func NewFileStore() core.FileStore {
	return &fileStore{
		files: make(map[string]core.UploadedFile),
	}
}

func (s *fileStore) Save(ctx context.Context, file *core.UploadedFile) (string, error) {
	id := ulid.Make().String()
	file.ID = id
	file.URL = fmt.Sprintf("/files/%s/content", id)
	file.Size = int64(len(file.Data))
	file.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.files[id] = *file
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"file_id":      id,
		"filename":     file.Filename,
		"content_type": file.ContentType,
		"size":         file.Size,
	}).Info("File stored successfully")

	return id, nil
}

func (s *fileStore) Find(ctx context.Context, id string) (*core.UploadedFile, error) {
	s.mu.RLock()
	file, ok := s.files[id]
	s.mu.RUnlock()

	if !ok {
		logrus.WithField("file_id", id).Warn("File with specified ID not found")
		return nil, core.ErrNotFound
	}
	return &file, nil
}

func (s *fileStore) List(ctx context.Context) ([]core.UploadedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]core.UploadedFile, 0, len(s.files))
	for _, file := range s.files {
		file.Data = nil
		files = append(files, file)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].ID < files[j].ID
		}
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})

	return files, nil
}
