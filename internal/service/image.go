package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/storage"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type imageService struct {
	store       storage.StorageInterface
	maxFiles    int
	maxFileSize int64
}

// NewImageService limits uploads to maxFiles per request and maxFileSizeMB each.
func NewImageService(store storage.StorageInterface, maxFiles int, maxFileSizeMB int64) ImageService {
	return &imageService{
		store:       store,
		maxFiles:    maxFiles,
		maxFileSize: maxFileSizeMB << 20,
	}
}

// Upload validates every file before storing any of them.
func (s *imageService) Upload(ctx context.Context, userID string, files []UploadFile) ([]string, error) {
	if len(files) == 0 {
		return nil, domain.NewValidationError("no files uploaded")
	}
	if len(files) > s.maxFiles {
		return nil, domain.NewValidationError("at most %d files can be uploaded at once", s.maxFiles)
	}
	for _, f := range files {
		if f.Size > s.maxFileSize {
			return nil, domain.NewValidationError("%s exceeds the %d MB limit", f.Filename, s.maxFileSize>>20)
		}
		if _, ok := allowedImageTypes[f.ContentType]; !ok {
			return nil, domain.NewValidationError("%s is not a supported image type", f.Filename)
		}
	}

	urls := make([]string, 0, len(files))
	for _, f := range files {
		key := fmt.Sprintf("items/%s/%s%s", userID, uuid.NewString(), imageExt(f))
		if err := s.store.Save(ctx, key, f.Content, f.ContentType); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", f.Filename, err)
		}
		urls = append(urls, s.store.URL(key))
	}
	logger.Info("Images uploaded", "userID", userID, "count", len(urls))
	return urls, nil
}

// imageExt keeps the client's extension when it matches the content type.
func imageExt(f UploadFile) string {
	want := allowedImageTypes[f.ContentType]
	ext := strings.ToLower(filepath.Ext(f.Filename))
	if ext == want || (ext == ".jpeg" && want == ".jpg") {
		return ext
	}
	return want
}
