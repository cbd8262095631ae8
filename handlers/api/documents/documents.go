package documents

import (
	"collabdoc-server/core"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	DocumentRequest struct {
		Content json.RawMessage `json:"content"`
	}

	// DocumentSummary is the listing view; content is omitted because
	// payloads can be large.
	DocumentSummary struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
)

// HandleCreate creates a document with optional initial content.
func HandleCreate(store core.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DocumentRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				logrus.WithError(err).Error("Failed to decode request")
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
		}

		doc, err := store.Create(r.Context(), req.Content)
		if err != nil {
			logrus.WithError(err).Error("Failed to create document")
			http.Error(w, "Failed to create document", http.StatusInternalServerError)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, doc)
	}
}

// HandleGet retrieves a full document, content included.
func HandleGet(store core.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, err := store.Find(r.Context(), id)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				http.Error(w, "Document not found", http.StatusNotFound)
				return
			}
			logrus.WithError(err).Error("Failed to get document")
			http.Error(w, "Failed to get document", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, doc)
	}
}

// HandleUpdate replaces the content of an existing document.
func HandleUpdate(store core.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req DocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithError(err).Error("Failed to decode request")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		doc, err := store.Update(r.Context(), id, req.Content)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				http.Error(w, "Document not found", http.StatusNotFound)
				return
			}
			logrus.WithError(err).Error("Failed to update document")
			http.Error(w, "Failed to update document", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, doc)
	}
}

// HandleDelete removes a document. Live room connections for the document are
// left alone; their next broadcast edit simply recreates it.
func HandleDelete(store core.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := store.Delete(r.Context(), id); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				http.Error(w, "Document not found", http.StatusNotFound)
				return
			}
			logrus.WithError(err).Error("Failed to delete document")
			http.Error(w, "Failed to delete document", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleList returns summaries of all documents.
func HandleList(store core.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := store.List(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to list documents")
			http.Error(w, "Failed to list documents", http.StatusInternalServerError)
			return
		}

		summaries := make([]DocumentSummary, 0, len(docs))
		for _, doc := range docs {
			summaries = append(summaries, DocumentSummary{
				ID:        doc.ID,
				CreatedAt: doc.CreatedAt,
				UpdatedAt: doc.UpdatedAt,
			})
		}

		render.JSON(w, r, summaries)
	}
}
