package memory

import (
	"collabdoc-server/core"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type documentStore struct {
	mu        sync.RWMutex
	documents map[string]core.Document
}

// NewDocumentStore returns the in-memory document store. Documents live only
// for the lifetime of the process.
func NewDocumentStore() core.DocumentStore {
	return &documentStore{
		documents: make(map[string]core.Document),
	}
}

func (s *documentStore) Create(ctx context.Context, content json.RawMessage) (*core.Document, error) {
	id := ulid.Make().String()
	now := time.Now().UTC()
	doc := core.Document{
		ID:        id,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.documents[id] = doc
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"document_id":    id,
		"content_length": len(content),
	}).Info("Document created successfully")

	return &doc, nil
}

func (s *documentStore) Find(ctx context.Context, id string) (*core.Document, error) {
	s.mu.RLock()
	doc, ok := s.documents[id]
	s.mu.RUnlock()

	if !ok {
		logrus.WithField("document_id", id).Warn("Document with specified ID not found")
		return nil, core.ErrNotFound
	}
	return &doc, nil
}

func (s *documentStore) Put(ctx context.Context, id string, content json.RawMessage) (*core.Document, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	doc, ok := s.documents[id]
	if !ok {
		doc = core.Document{ID: id, CreatedAt: now}
	}
	doc.Content = content
	doc.UpdatedAt = now
	s.documents[id] = doc
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"document_id":    id,
		"content_length": len(content),
		"created":        !ok,
	}).Debug("Document content stored")

	return &doc, nil
}

func (s *documentStore) Update(ctx context.Context, id string, content json.RawMessage) (*core.Document, error) {
	s.mu.Lock()
	doc, ok := s.documents[id]
	if !ok {
		s.mu.Unlock()
		logrus.WithField("document_id", id).Warn("Document with specified ID not found")
		return nil, core.ErrNotFound
	}
	doc.Content = content
	doc.UpdatedAt = time.Now().UTC()
	s.documents[id] = doc
	s.mu.Unlock()

	return &doc, nil
}

func (s *documentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.documents, id)
	logrus.WithField("document_id", id).Info("Document deleted")
	return nil
}

func (s *documentStore) List(ctx context.Context) ([]core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]core.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})

	return docs, nil
}
