package sqlite

import (
	"collabdoc-server/core"
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type fileStore struct {
	db *sql.DB
}

// NewFileStore returns a SQLite-backed blob store.
func NewFileStore(dataSourceName string) core.FileStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	stmt := `CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		filename TEXT,
		content_type TEXT,
		size INTEGER,
		data BLOB,
		created_at DATETIME
	);`
	if _, err = db.Exec(stmt); err != nil {
		log.Fatalf("failed to create files table: %v", err)
	}

	return &fileStore{db: db}
}

func (s *fileStore) Save(ctx context.Context, file *core.UploadedFile) (string, error) {
	id := ulid.Make().String()
	file.ID = id
	file.URL = fmt.Sprintf("/files/%s/content", id)
	file.Size = int64(len(file.Data))
	file.CreatedAt = time.Now().UTC()

	log := logrus.WithFields(logrus.Fields{
		"file_id":  id,
		"filename": file.Filename,
		"size":     file.Size,
	})

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO files (id, filename, content_type, size, data, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, file.Filename, file.ContentType, file.Size, file.Data, file.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to store file")
		return "", err
	}

	log.Info("File stored successfully")
	return id, nil
}

func (s *fileStore) Find(ctx context.Context, id string) (*core.UploadedFile, error) {
	log := logrus.WithField("file_id", id)

	file := core.UploadedFile{ID: id, URL: fmt.Sprintf("/files/%s/content", id)}
	err := s.db.QueryRowContext(ctx,
		"SELECT filename, content_type, size, data, created_at FROM files WHERE id = ?", id).
		Scan(&file.Filename, &file.ContentType, &file.Size, &file.Data, &file.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Warn("File with specified ID not found")
			return nil, core.ErrNotFound
		}
		log.WithError(err).Error("Failed to retrieve file")
		return nil, err
	}

	return &file, nil
}

func (s *fileStore) List(ctx context.Context) ([]core.UploadedFile, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, filename, content_type, size, created_at FROM files ORDER BY created_at DESC, id")
	if err != nil {
		logrus.WithError(err).Error("Failed to list files")
		return nil, err
	}
	defer rows.Close()

	files := make([]core.UploadedFile, 0)
	for rows.Next() {
		var file core.UploadedFile
		if err := rows.Scan(&file.ID, &file.Filename, &file.ContentType, &file.Size, &file.CreatedAt); err != nil {
			return nil, err
		}
		file.URL = fmt.Sprintf("/files/%s/content", file.ID)
		files = append(files, file)
	}

	return files, rows.Err()
}
