package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/service"
	"rentshare-backend/internal/storage"
)

// multipart parts above this are spooled to disk
const uploadMemory = 8 << 20

// ImageUploadHandler accepts listing photos and serves objects kept by the
// local filesystem backend.
type ImageUploadHandler struct {
	images  service.ImageService
	store   storage.StorageInterface
	maxBody int64
}

// NewImageUploadHandler builds the handler. maxBody bounds a whole upload
// request; per-file limits are enforced by the image service.
func NewImageUploadHandler(images service.ImageService, store storage.StorageInterface, maxBody int64) *ImageUploadHandler {
	return &ImageUploadHandler{images: images, store: store, maxBody: maxBody}
}

// HandleUpload stores every file sent in the "files" (or "file") form field.
func (h *ImageUploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		if r.ContentLength > h.maxBody {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeValidation, "Upload is too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeValidation, "Upload is too large")
			return
		}
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Expected a multipart/form-data body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := append(r.MultipartForm.File["files"], r.MultipartForm.File["file"]...)
	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Failed to read uploaded file")
			return
		}
		defer f.Close()
		files = append(files, service.UploadFile{
			Filename:    fh.Filename,
			ContentType: partContentType(fh),
			Size:        fh.Size,
			Content:     f,
		})
	}

	urls, err := h.images.Upload(r.Context(), UserIDFromContext(r.Context()), files)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string][]string{"urls": urls})
}

// HandleDownload streams an object stored by the filesystem backend.
func (h *ImageUploadHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if key == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Missing key")
		return
	}

	file, err := h.store.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "File not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", contentTypeFor(key))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, file); err != nil {
		logger.WarnContext(r.Context(), "Failed to stream file", "key", key, "error", err)
	}
}

func partContentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		return contentTypeFor(fh.Filename)
	}
	return ct
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
