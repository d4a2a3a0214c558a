package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/model"
	"github.com/mcastellanos/recuerdos/internal/repository"
)

// mockAlbumRepo keeps ordered memberships in memory with the same
// count-follows-membership behavior as the real repository.
type mockAlbumRepo struct {
	albums map[string]*model.Album
	nextID int
}

func newMockAlbumRepo() *mockAlbumRepo {
	return &mockAlbumRepo{albums: make(map[string]*model.Album)}
}

func (m *mockAlbumRepo) CreateAlbum(_ context.Context, album *model.Album) error {
	m.nextID++
	album.ID = fmt.Sprintf("album-%d", m.nextID)
	album.CreatedAt = time.Now()
	album.UpdatedAt = album.CreatedAt
	album.PhotoCount = len(album.PhotoIDs)
	stored := *album
	stored.PhotoIDs = append([]string{}, album.PhotoIDs...)
	m.albums[album.ID] = &stored
	return nil
}

func (m *mockAlbumRepo) GetAlbumByID(_ context.Context, id string) (*model.Album, error) {
	album, ok := m.albums[id]
	if !ok {
		return nil, apperror.NotFound("album", id)
	}
	result := *album
	result.PhotoIDs = append([]string{}, album.PhotoIDs...)
	return &result, nil
}

func (m *mockAlbumRepo) ListAlbums(_ context.Context, _ repository.AlbumFilter) ([]model.Album, int, error) {
	result := make([]model.Album, 0, len(m.albums))
	for _, a := range m.albums {
		result = append(result, *a)
	}
	return result, len(result), nil
}

func (m *mockAlbumRepo) UpdateAlbum(_ context.Context, album *model.Album) error {
	stored, ok := m.albums[album.ID]
	if !ok {
		return apperror.NotFound("album", album.ID)
	}
	stored.Name = album.Name
	stored.Description = album.Description
	stored.CoverPhotoURL = album.CoverPhotoURL
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *mockAlbumRepo) DeleteAlbum(_ context.Context, id string) error {
	if _, ok := m.albums[id]; !ok {
		return apperror.NotFound("album", id)
	}
	delete(m.albums, id)
	return nil
}

func (m *mockAlbumRepo) AddPhoto(_ context.Context, albumID, photoID string) (bool, int, error) {
	album, ok := m.albums[albumID]
	if !ok {
		return false, 0, apperror.NotFound("album", albumID)
	}
	for _, id := range album.PhotoIDs {
		if id == photoID {
			return false, len(album.PhotoIDs), nil
		}
	}
	album.PhotoIDs = append(album.PhotoIDs, photoID)
	album.PhotoCount = len(album.PhotoIDs)
	return true, album.PhotoCount, nil
}

func (m *mockAlbumRepo) RemovePhoto(_ context.Context, albumID, photoID string) (bool, int, error) {
	album, ok := m.albums[albumID]
	if !ok {
		return false, 0, apperror.NotFound("album", albumID)
	}
	for i, id := range album.PhotoIDs {
		if id == photoID {
			album.PhotoIDs = append(album.PhotoIDs[:i], album.PhotoIDs[i+1:]...)
			album.PhotoCount = len(album.PhotoIDs)
			return true, album.PhotoCount, nil
		}
	}
	return false, len(album.PhotoIDs), nil
}

// mockPhotoRepo is the minimal photo repository used by the album and
// upload tests.
type mockPhotoRepo struct {
	photos map[string]*model.Photo
	nextID int
}

func newMockPhotoRepo() *mockPhotoRepo {
	return &mockPhotoRepo{photos: make(map[string]*model.Photo)}
}

func (m *mockPhotoRepo) Create(_ context.Context, photo *model.Photo) error {
	m.nextID++
	photo.ID = fmt.Sprintf("photo-%d", m.nextID)
	photo.CreatedAt = time.Now()
	stored := *photo
	m.photos[photo.ID] = &stored
	return nil
}

func (m *mockPhotoRepo) GetByID(_ context.Context, id string) (*model.Photo, error) {
	photo, ok := m.photos[id]
	if !ok {
		return nil, apperror.NotFound("photo", id)
	}
	result := *photo
	return &result, nil
}

func (m *mockPhotoRepo) GetByIDs(_ context.Context, ids []string) ([]model.Photo, error) {
	result := []model.Photo{}
	for _, id := range ids {
		if photo, ok := m.photos[id]; ok {
			result = append(result, *photo)
		}
	}
	return result, nil
}

func (m *mockPhotoRepo) List(_ context.Context, _ repository.PhotoFilter) ([]model.Photo, int, error) {
	result := make([]model.Photo, 0, len(m.photos))
	for _, p := range m.photos {
		result = append(result, *p)
	}
	return result, len(result), nil
}

func (m *mockPhotoRepo) Update(_ context.Context, photo *model.Photo) error {
	if _, ok := m.photos[photo.ID]; !ok {
		return apperror.NotFound("photo", photo.ID)
	}
	stored := *photo
	m.photos[photo.ID] = &stored
	return nil
}

func (m *mockPhotoRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.photos[id]; !ok {
		return apperror.NotFound("photo", id)
	}
	delete(m.photos, id)
	return nil
}

func newTestAlbumService(t *testing.T) (*AlbumService, *mockAlbumRepo, *mockPhotoRepo) {
	t.Helper()
	albums := newMockAlbumRepo()
	photos := newMockPhotoRepo()
	return NewAlbumService(albums, photos, testLogger()), albums, photos
}

func seedPhoto(t *testing.T, photos *mockPhotoRepo) *model.Photo {
	t.Helper()
	photo := &model.Photo{URL: "http://store/p.webp", Format: "webp", Folder: "photos"}
	if err := photos.Create(context.Background(), photo); err != nil {
		t.Fatalf("seeding photo: %v", err)
	}
	return photo
}

func TestAddPhotoToAlbumsIsIdempotent(t *testing.T) {
	svc, albums, photos := newTestAlbumService(t)
	ctx := context.Background()
	photo := seedPhoto(t, photos)

	a := &model.Album{Name: "Viajes"}
	b := &model.Album{Name: "Cumpleaños"}
	for _, album := range []*model.Album{a, b} {
		if err := albums.CreateAlbum(ctx, album); err != nil {
			t.Fatalf("seeding album: %v", err)
		}
	}

	updated, err := svc.AddPhotoToAlbums(ctx, photo.ID, []string{a.ID, b.ID})
	if err != nil {
		t.Fatalf("AddPhotoToAlbums() error = %v", err)
	}
	if len(updated) != 2 {
		t.Fatalf("got %d updated albums, want 2", len(updated))
	}
	for _, album := range updated {
		if album.PhotoCount != 1 || len(album.PhotoIDs) != 1 {
			t.Errorf("album %s: photoCount=%d photoIds=%v, want count 1", album.ID, album.PhotoCount, album.PhotoIDs)
		}
	}

	// Second add is a no-op; counts stay at 1.
	updated, err = svc.AddPhotoToAlbums(ctx, photo.ID, []string{a.ID, b.ID})
	if err != nil {
		t.Fatalf("AddPhotoToAlbums() second call error = %v", err)
	}
	for _, album := range updated {
		if album.PhotoCount != 1 {
			t.Errorf("album %s: photoCount=%d after repeat add, want 1", album.ID, album.PhotoCount)
		}
	}
}

func TestAddPhotoToAlbumsDedupesRequestedIDs(t *testing.T) {
	svc, albums, photos := newTestAlbumService(t)
	ctx := context.Background()
	photo := seedPhoto(t, photos)

	a := &model.Album{Name: "Viajes"}
	if err := albums.CreateAlbum(ctx, a); err != nil {
		t.Fatalf("seeding album: %v", err)
	}

	updated, err := svc.AddPhotoToAlbums(ctx, photo.ID, []string{a.ID, a.ID, a.ID})
	if err != nil {
		t.Fatalf("AddPhotoToAlbums() error = %v", err)
	}
	if len(updated) != 1 || updated[0].PhotoCount != 1 {
		t.Errorf("updated = %+v, want one album with photoCount 1", updated)
	}
}

func TestAddPhotoToAlbumsMissingTargets(t *testing.T) {
	svc, albums, photos := newTestAlbumService(t)
	ctx := context.Background()
	photo := seedPhoto(t, photos)

	// Unknown photo → not found.
	_, err := svc.AddPhotoToAlbums(ctx, "missing", []string{"whatever"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("AddPhotoToAlbums(unknown photo) error = %v, want not found", err)
	}

	// All albums missing → not found.
	_, err = svc.AddPhotoToAlbums(ctx, photo.ID, []string{"ghost-1", "ghost-2"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("AddPhotoToAlbums(all albums missing) error = %v, want not found", err)
	}

	// A mix of present and missing albums succeeds for the present one.
	a := &model.Album{Name: "Viajes"}
	if err := albums.CreateAlbum(ctx, a); err != nil {
		t.Fatalf("seeding album: %v", err)
	}
	updated, err := svc.AddPhotoToAlbums(ctx, photo.ID, []string{"ghost", a.ID})
	if err != nil {
		t.Fatalf("AddPhotoToAlbums(mixed) error = %v", err)
	}
	if len(updated) != 1 || updated[0].ID != a.ID {
		t.Errorf("updated = %+v, want only %s", updated, a.ID)
	}
}

func TestRemovePhotoFromAlbum(t *testing.T) {
	svc, albums, photos := newTestAlbumService(t)
	ctx := context.Background()
	photo := seedPhoto(t, photos)

	a := &model.Album{Name: "Viajes", PhotoIDs: []string{photo.ID, "photo-x"}}
	if err := albums.CreateAlbum(ctx, a); err != nil {
		t.Fatalf("seeding album: %v", err)
	}

	removed, count, err := svc.RemovePhotoFromAlbum(ctx, photo.ID, a.ID)
	if err != nil {
		t.Fatalf("RemovePhotoFromAlbum() error = %v", err)
	}
	if !removed || count != 1 {
		t.Errorf("removed=%v count=%d, want removed with count 1", removed, count)
	}

	// Removing a non-member is success with the count unchanged.
	removed, count, err = svc.RemovePhotoFromAlbum(ctx, photo.ID, a.ID)
	if err != nil {
		t.Fatalf("RemovePhotoFromAlbum() on non-member error = %v", err)
	}
	if removed || count != 1 {
		t.Errorf("removed=%v count=%d, want no-op with count 1", removed, count)
	}
}

func TestAlbumCreateValidation(t *testing.T) {
	svc, _, _ := newTestAlbumService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input AlbumInput
	}{
		{"missing name", AlbumInput{Description: "sin nombre"}},
		{"name too long", AlbumInput{Name: string(make([]byte, MaxAlbumNameLength+1))}},
		{"description too long", AlbumInput{Name: "ok", Description: string(make([]byte, MaxAlbumDescriptionLength+1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.input); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create() error = %v, want validation error", err)
			}
		})
	}

	album, err := svc.Create(ctx, AlbumInput{Name: "Viajes", PhotoIDs: []string{"p1", "p2", "p1"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if album.PhotoCount != len(album.PhotoIDs) {
		t.Errorf("photoCount=%d photoIds=%v, want count to match", album.PhotoCount, album.PhotoIDs)
	}
	if album.PhotoCount != 2 {
		t.Errorf("photoCount=%d, want duplicates removed → 2", album.PhotoCount)
	}
}
