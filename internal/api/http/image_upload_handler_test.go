package http

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/service"
	"rentshare-backend/internal/storage"
)

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, ct := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("data-" + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImageUploadHandler_Upload(t *testing.T) {
	t.Run("passes every part to the service", func(t *testing.T) {
		ts := newTestServer(t)
		ts.images.On("Upload", mock.Anything, "owner-1", mock.MatchedBy(func(files []service.UploadFile) bool {
			if len(files) != 2 {
				return false
			}
			for _, f := range files {
				if !strings.HasPrefix(f.ContentType, "image/") || f.Size == 0 {
					return false
				}
			}
			return true
		})).Return([]string{"http://localhost/files/a.jpg", "http://localhost/files/b.png"}, nil)

		body, ct := multipartBody(t, map[string]string{"a.jpg": "image/jpeg", "b.png": "image/png"})
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := ts.do(t, req, "owner-1")

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), "b.png")
		ts.images.AssertExpectations(t)
	})

	t.Run("service rejection", func(t *testing.T) {
		ts := newTestServer(t)
		ts.images.On("Upload", mock.Anything, "owner-1", mock.Anything).
			Return(nil, domain.NewValidationError("notes.txt: unsupported file type text/plain"))

		body, ct := multipartBody(t, map[string]string{"notes.txt": "text/plain"})
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := ts.do(t, req, "owner-1")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, jsonRequest(http.MethodPost, "/api/upload", `{}`), "owner-1")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("request over the body limit", func(t *testing.T) {
		ts := newTestServer(t, func(d *Dependencies) { d.MaxUploadBytes = 64 })
		body, ct := multipartBody(t, map[string]string{"big.jpg": "image/jpeg", "big2.jpg": "image/jpeg"})
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := ts.do(t, req, "owner-1")

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestImageUploadHandler_Download(t *testing.T) {
	store, err := storage.NewMockStorageService("http://localhost:8080", t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "items/owner-1/photo.png", strings.NewReader("png-bytes"), "image/png"))

	ts := newTestServer(t, func(d *Dependencies) { d.Files = store })

	t.Run("serves stored object", func(t *testing.T) {
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/files/items/owner-1/photo.png", nil), "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, "png-bytes", rec.Body.String())
	})

	t.Run("missing object", func(t *testing.T) {
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/files/items/owner-1/none.png", nil), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/jpeg", contentTypeFor("a.JPEG"))
	assert.Equal(t, "image/webp", contentTypeFor("x/y.webp"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("README"))
}
