package files

import (
	"collabdoc-server/core"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const maxUploadSize = 10 << 20 // 10 MiB

type UploadResponse struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// HandleUpload stores the multipart "file" field and returns its retrieval URL.
func HandleUpload(store core.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			logrus.WithError(err).Error("Failed to parse multipart form")
			http.Error(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file field is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			logrus.WithError(err).Error("Failed to read uploaded file")
			http.Error(w, "Failed to read uploaded file", http.StatusInternalServerError)
			return
		}

		upload := &core.UploadedFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
		if upload.ContentType == "" {
			upload.ContentType = http.DetectContentType(data)
		}

		id, err := store.Save(r.Context(), upload)
		if err != nil {
			logrus.WithError(err).Error("Failed to store file")
			http.Error(w, "Failed to upload file", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, UploadResponse{
			ID:          id,
			URL:         upload.URL,
			Filename:    upload.Filename,
			ContentType: upload.ContentType,
		})
	}
}

// HandleGetContent serves the raw bytes of an uploaded file.
func HandleGetContent(store core.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		file, err := store.Find(r.Context(), id)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				http.Error(w, "File not found", http.StatusNotFound)
				return
			}
			logrus.WithError(err).Error("Failed to retrieve file")
			http.Error(w, "Failed to retrieve file", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", file.ContentType)
		if _, err := w.Write(file.Data); err != nil {
			logrus.WithError(err).Error("Failed to write file content")
		}
	}
}

// HandleList returns metadata for all uploaded files.
func HandleList(store core.FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := store.List(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to list files")
			http.Error(w, "Failed to list files", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, map[string]any{"files": files})
	}
}
