package filesystem

import (
	"collabdoc-server/core"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type fileStore struct {
	basePath string
}

// NewFileStore returns a filesystem-backed blob store. Each upload is written
// as <id> (raw bytes) plus <id>.json (metadata) under basePath.
func NewFileStore(basePath string) core.FileStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Fatalf("failed to create base directory: %v", err)
	}
	return &fileStore{basePath: basePath}
}

type fileMeta struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *fileStore) Save(ctx context.Context, file *core.UploadedFile) (string, error) {
	id := ulid.Make().String()
	file.ID = id
	file.URL = fmt.Sprintf("/files/%s/content", id)
	file.Size = int64(len(file.Data))
	file.CreatedAt = time.Now().UTC()

	dataPath := filepath.Join(s.basePath, id)
	log := logrus.WithFields(logrus.Fields{
		"file_id":   id,
		"file_path": dataPath,
		"size":      file.Size,
	})

	if err := os.WriteFile(dataPath, file.Data, 0644); err != nil {
		log.WithError(err).Error("Failed to write file data")
		return "", err
	}

	meta := fileMeta{
		ID:          file.ID,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Size:        file.Size,
		URL:         file.URL,
		CreatedAt:   file.CreatedAt,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(dataPath+".json", metaBytes, 0644); err != nil {
		log.WithError(err).Error("Failed to write file metadata")
		return "", err
	}

	log.Info("File stored successfully")
	return id, nil
}

func (s *fileStore) Find(ctx context.Context, id string) (*core.UploadedFile, error) {
	log := logrus.WithField("file_id", id)

	metaBytes, err := os.ReadFile(filepath.Join(s.basePath, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("File with specified ID not found")
			return nil, core.ErrNotFound
		}
		log.WithError(err).Error("Failed to read file metadata")
		return nil, err
	}

	var meta fileMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		log.WithError(err).Error("Failed to decode file metadata")
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.basePath, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrNotFound
		}
		log.WithError(err).Error("Failed to read file data")
		return nil, err
	}

	return &core.UploadedFile{
		ID:          meta.ID,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		URL:         meta.URL,
		CreatedAt:   meta.CreatedAt,
		Data:        data,
	}, nil
}

func (s *fileStore) List(ctx context.Context) ([]core.UploadedFile, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, err
	}

	files := make([]core.UploadedFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		metaBytes, err := os.ReadFile(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			logrus.WithError(err).WithField("file", entry.Name()).Warn("Skipping unreadable metadata file")
			continue
		}

		var meta fileMeta
		if err := json.Unmarshal(metaBytes, &meta); err != nil {
			logrus.WithError(err).WithField("file", entry.Name()).Warn("Skipping malformed metadata file")
			continue
		}

		files = append(files, core.UploadedFile{
			ID:          meta.ID,
			Filename:    meta.Filename,
			ContentType: meta.ContentType,
			Size:        meta.Size,
			URL:         meta.URL,
			CreatedAt:   meta.CreatedAt,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].ID < files[j].ID
		}
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})

	return files, nil
}
