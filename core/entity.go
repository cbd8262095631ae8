package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when no record exists for the given id.
var ErrNotFound = errors.New("not found")

type (
	Document struct {
		ID        string          `json:"id"`
		Content   json.RawMessage `json:"content,omitempty"`
		CreatedAt time.Time       `json:"created_at"`
		UpdatedAt time.Time       `json:"updated_at"`
	}

	// DocumentStore holds the authoritative copy of every document. Content is
	// opaque to the store; it is never inspected, only replaced wholesale.
	DocumentStore interface {
		Create(ctx context.Context, content json.RawMessage) (*Document, error)
		Find(ctx context.Context, id string) (*Document, error)
		// Put upserts: it creates the document if absent, otherwise replaces
		// its content and advances updated_at.
		Put(ctx context.Context, id string, content json.RawMessage) (*Document, error)
		// Update replaces the content of an existing document only.
		Update(ctx context.Context, id string, content json.RawMessage) (*Document, error)
		Delete(ctx context.Context, id string) error
		List(ctx context.Context) ([]Document, error)
	}

	UploadedFile struct {
		ID          string    `json:"id"`
		Filename    string    `json:"filename"`
		ContentType string    `json:"content_type"`
		Size        int64     `json:"size"`
		URL         string    `json:"url"`
		CreatedAt   time.Time `json:"created_at"`
		Data        []byte    `json:"-"`
	}

	// FileStore persists uploaded blobs. Save assigns the id and retrieval URL.
	FileStore interface {
		Save(ctx context.Context, file *UploadedFile) (string, error)
		Find(ctx context.Context, id string) (*UploadedFile, error)
		List(ctx context.Context) ([]UploadedFile, error)
	}
)
