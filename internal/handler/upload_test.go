package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/auth"
	"github.com/mcastellanos/recuerdos/internal/images"
	"github.com/mcastellanos/recuerdos/internal/model"
	"github.com/mcastellanos/recuerdos/internal/repository"
	"github.com/mcastellanos/recuerdos/internal/service"
	"github.com/mcastellanos/recuerdos/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memStore is a minimal in-memory storage.Store for handler tests.
type memStore struct {
	objects map[string]storage.Object
}

func (m *memStore) Put(_ context.Context, key string, obj storage.Object) error {
	m.objects[key] = obj
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %s", key)
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memStore) PublicURL(key string) string { return "http://cdn.test/" + key }

func (m *memStore) KeyFromURL(url string) (string, bool) {
	return strings.CutPrefix(url, "http://cdn.test/")
}

// stubPhotoRepo records created photos and satisfies the rest of the
// interface with empty results.
type stubPhotoRepo struct {
	created []*model.Photo
}

func (s *stubPhotoRepo) Create(_ context.Context, photo *model.Photo) error {
	photo.ID = fmt.Sprintf("photo-%d", len(s.created)+1)
	s.created = append(s.created, photo)
	return nil
}

func (s *stubPhotoRepo) GetByID(_ context.Context, id string) (*model.Photo, error) {
	return nil, apperror.NotFound("photo", id)
}

func (s *stubPhotoRepo) GetByIDs(_ context.Context, _ []string) ([]model.Photo, error) {
	return nil, nil
}

func (s *stubPhotoRepo) List(_ context.Context, _ repository.PhotoFilter) ([]model.Photo, int, error) {
	return nil, 0, nil
}

func (s *stubPhotoRepo) Update(_ context.Context, _ *model.Photo) error { return nil }
func (s *stubPhotoRepo) Delete(_ context.Context, _ string) error       { return nil }

func newUploadTestServer(t *testing.T) (http.Handler, *auth.TokenService, *stubPhotoRepo) {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}

	repo := &stubPhotoRepo{}
	uploads := service.NewUploadService(
		images.NewNormalizer(testLogger()),
		storage.NewUploader(&memStore{objects: make(map[string]storage.Object)}, testLogger()),
		repo,
		testLogger(),
	)
	h := NewUploadHandler(uploads, testLogger())
	return auth.RequireAuth(tokens)(http.HandlerFunc(h.HandleUpload)), tokens, repo
}

func bearerFor(t *testing.T, tokens *auth.TokenService) string {
	t.Helper()
	token, err := tokens.Generate(auth.Identity{ID: "user-1", Role: model.RoleUser})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return "Bearer " + token
}

// multipartBody builds a multipart form with the given files in the
// "images" field.
func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := w.CreateFormFile("images", name)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("writing form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadRequiresAuth(t *testing.T) {
	handler, _, _ := newUploadTestServer(t)

	body, contentType := multipartBody(t, map[string][]byte{"a.png": smallPNG(t)})
	req := httptest.NewRequest(http.MethodPost, "/api/upload/images", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestUploadRejectsEmptyAndNonImage(t *testing.T) {
	handler, tokens, _ := newUploadTestServer(t)
	authHeader := bearerFor(t, tokens)

	// No files in the form.
	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", authHeader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no files: status = %d, want 400", rec.Code)
	}

	// A text file sneaking in rejects the whole batch.
	body, contentType = multipartBody(t, map[string][]byte{
		"ok.png":    smallPNG(t),
		"notas.txt": []byte("hello, this is text"),
	})
	req = httptest.NewRequest(http.MethodPost, "/api/upload/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", authHeader)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-image: status = %d, want 400", rec.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if errResp.Error != "validation_error" {
		t.Errorf("error type = %q, want validation_error", errResp.Error)
	}
}

func TestUploadRejectsTooManyFiles(t *testing.T) {
	handler, tokens, _ := newUploadTestServer(t)

	files := make(map[string][]byte, maxUploadFiles+1)
	for i := 0; i <= maxUploadFiles; i++ {
		files[fmt.Sprintf("f%d.png", i)] = smallPNG(t)
	}
	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, "/api/upload/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerFor(t, tokens))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadSuccess(t *testing.T) {
	handler, tokens, repo := newUploadTestServer(t)

	body, contentType := multipartBody(t, map[string][]byte{"a.png": smallPNG(t)})
	req := httptest.NewRequest(http.MethodPost, "/api/upload/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerFor(t, tokens))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Message string        `json:"message"`
		Photos  []model.Photo `json:"photos"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Photos) != 1 {
		t.Fatalf("got %d photos, want 1", len(resp.Photos))
	}
	if resp.Photos[0].Format != "webp" {
		t.Errorf("format = %q, want webp", resp.Photos[0].Format)
	}
	if resp.Photos[0].UploadedBy != "user-1" {
		t.Errorf("uploadedBy = %q, want the token subject", resp.Photos[0].UploadedBy)
	}
	if len(repo.created) != 1 {
		t.Errorf("repo recorded %d photos, want 1", len(repo.created))
	}
}
