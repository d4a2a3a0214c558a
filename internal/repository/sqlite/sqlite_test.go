package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/model"
	"github.com/mcastellanos/recuerdos/internal/repository"
)

// newTestDB opens a file-backed database in a temp dir. A file (not
// :memory:) because database/sql pools connections and each :memory:
// connection would see its own empty database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, email, username string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		Username:     username,
		DisplayName:  username,
		PasswordHash: "x",
		Role:         model.RoleUser,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return user
}

func createTestLetter(t *testing.T, db *DB, author *model.User) *model.Letter {
	t.Helper()
	letter := &model.Letter{
		Title:     "Recuerdo",
		Icon:      "💌",
		Content:   "contenido",
		CreatedBy: author.Ref(),
	}
	if err := db.CreateLetter(context.Background(), letter); err != nil {
		t.Fatalf("creating test letter: %v", err)
	}
	return letter
}

// --- reactions ---

func TestReactStateMachine(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "ana@example.com", "ana")
	letter := createTestLetter(t, db, user)

	action, err := db.React(ctx, letter.ID, user.ID, "❤️")
	if err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if action != model.ReactionAdded {
		t.Errorf("action = %q, want added", action)
	}

	action, err = db.React(ctx, letter.ID, user.ID, "👍")
	if err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if action != model.ReactionUpdated {
		t.Errorf("action = %q, want updated", action)
	}

	got, err := db.GetLetterByRef(ctx, letter.ID)
	if err != nil {
		t.Fatalf("GetLetterByRef() error = %v", err)
	}
	if len(got.Reactions) != 1 || got.Reactions[0].Emoji != "👍" {
		t.Fatalf("reactions = %+v, want exactly one 👍", got.Reactions)
	}

	action, err = db.React(ctx, letter.ID, user.ID, "👍")
	if err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if action != model.ReactionRemoved {
		t.Errorf("action = %q, want removed", action)
	}

	got, err = db.GetLetterByRef(ctx, letter.ID)
	if err != nil {
		t.Fatalf("GetLetterByRef() error = %v", err)
	}
	if len(got.Reactions) != 0 {
		t.Errorf("reactions = %+v, want none after toggle off", got.Reactions)
	}
}

func TestReactPreservesPosition(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ana := createTestUser(t, db, "ana@example.com", "ana")
	beto := createTestUser(t, db, "beto@example.com", "beto")
	letter := createTestLetter(t, db, ana)

	if _, err := db.React(ctx, letter.ID, ana.ID, "❤️"); err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if _, err := db.React(ctx, letter.ID, beto.ID, "🎉"); err != nil {
		t.Fatalf("React() error = %v", err)
	}

	// Replacing ana's emoji must not move her entry behind beto's.
	if _, err := db.React(ctx, letter.ID, ana.ID, "😂"); err != nil {
		t.Fatalf("React() error = %v", err)
	}

	got, err := db.GetLetterByRef(ctx, letter.ID)
	if err != nil {
		t.Fatalf("GetLetterByRef() error = %v", err)
	}
	if len(got.Reactions) != 2 {
		t.Fatalf("got %d reactions, want 2", len(got.Reactions))
	}
	if got.Reactions[0].User.ID != ana.ID || got.Reactions[0].Emoji != "😂" {
		t.Errorf("first reaction = %+v, want ana with 😂", got.Reactions[0])
	}
	if got.Reactions[0].User.Username != "ana" {
		t.Errorf("reaction user projection = %+v, want username loaded", got.Reactions[0].User)
	}
	if got.Reactions[1].User.ID != beto.ID {
		t.Errorf("second reaction = %+v, want beto", got.Reactions[1])
	}
}

func TestReactUnknownLetter(t *testing.T) {
	db := newTestDB(t)
	_, err := db.React(context.Background(), "missing", "user", "❤️")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("React(unknown letter) error = %v, want not found", err)
	}
}

// Concurrent writers must serialize at the database instead of failing
// with SQLITE_BUSY; busy_timeout and immediate transactions ride on the
// connection DSN.
func TestReactConcurrentUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, db, "ana@example.com", "ana")
	letter := createTestLetter(t, db, author)

	const writers = 16
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			_, err := db.React(ctx, letter.ID, fmt.Sprintf("user-%d", i), "❤️")
			errs <- err
		}(i)
	}
	for i := 0; i < writers; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent React() error = %v", err)
		}
	}

	got, err := db.GetLetterByRef(ctx, letter.ID)
	if err != nil {
		t.Fatalf("GetLetterByRef() error = %v", err)
	}
	if len(got.Reactions) != writers {
		t.Errorf("got %d reactions, want %d", len(got.Reactions), writers)
	}
}

func TestReactConcurrentTogglesSameUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "ana@example.com", "ana")
	letter := createTestLetter(t, db, user)

	// An even number of same-emoji toggles nets out to no reaction — but
	// only if every toggle commits and they serialize one at a time.
	const toggles = 16
	errs := make(chan error, toggles)
	for i := 0; i < toggles; i++ {
		go func() {
			_, err := db.React(ctx, letter.ID, user.ID, "❤️")
			errs <- err
		}()
	}
	for i := 0; i < toggles; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent React() error = %v", err)
		}
	}

	got, err := db.GetLetterByRef(ctx, letter.ID)
	if err != nil {
		t.Fatalf("GetLetterByRef() error = %v", err)
	}
	if len(got.Reactions) != 0 {
		t.Errorf("got %d reactions after %d toggles, want 0", len(got.Reactions), toggles)
	}
}

// --- letters ---

func TestLetterLegacyIDLookup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "ana@example.com", "ana")

	legacy := int64(42)
	letter := &model.Letter{
		Title:     "Migrada",
		Icon:      "📜",
		Content:   "de la época anterior",
		LegacyID:  &legacy,
		CreatedBy: user.Ref(),
	}
	if err := db.CreateLetter(ctx, letter); err != nil {
		t.Fatalf("CreateLetter() error = %v", err)
	}

	// Addressable both by primary ID and by the numeric legacy ID.
	for _, ref := range []string{letter.ID, "42"} {
		got, err := db.GetLetterByRef(ctx, ref)
		if err != nil {
			t.Fatalf("GetLetterByRef(%q) error = %v", ref, err)
		}
		if got.ID != letter.ID {
			t.Errorf("GetLetterByRef(%q) = %s, want %s", ref, got.ID, letter.ID)
		}
		if got.CreatedBy.Username != "ana" {
			t.Errorf("author projection = %+v, want ana", got.CreatedBy)
		}
	}

	// Duplicate legacy ID → conflict.
	dup := &model.Letter{Title: "Otra", Icon: "x", Content: "y", LegacyID: &legacy, CreatedBy: user.Ref()}
	if err := db.CreateLetter(ctx, dup); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateLetter(duplicate legacy) error = %v, want conflict", err)
	}
}

func TestLetterListSearchAndOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "ana@example.com", "ana")

	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	first := &model.Letter{Title: "Playa", Icon: "🏖", Content: "arena", PublishedAt: &older, CreatedBy: user.Ref()}
	second := &model.Letter{Title: "Montaña", Icon: "⛰", Content: "nieve y PLAYA", PublishedAt: &newer, CreatedBy: user.Ref()}
	for _, l := range []*model.Letter{first, second} {
		if err := db.CreateLetter(ctx, l); err != nil {
			t.Fatalf("CreateLetter() error = %v", err)
		}
	}

	letters, total, err := db.ListLetters(ctx, repository.LetterFilter{})
	if err != nil {
		t.Fatalf("ListLetters() error = %v", err)
	}
	if total != 2 || len(letters) != 2 {
		t.Fatalf("got %d letters (total %d), want 2", len(letters), total)
	}
	if letters[0].ID != second.ID {
		t.Errorf("first listed = %s, want the newest (%s)", letters[0].ID, second.ID)
	}

	// Case-insensitive search spans title and content.
	letters, total, err = db.ListLetters(ctx, repository.LetterFilter{Search: "playa"})
	if err != nil {
		t.Fatalf("ListLetters(search) error = %v", err)
	}
	if total != 2 {
		t.Errorf("search matched %d letters, want 2 (title + content)", total)
	}
	_ = letters
}

func TestLetterDeleteCascadesReactions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "ana@example.com", "ana")
	letter := createTestLetter(t, db, user)

	if _, err := db.React(ctx, letter.ID, user.ID, "❤️"); err != nil {
		t.Fatalf("React() error = %v", err)
	}
	if err := db.DeleteLetter(ctx, letter.ID); err != nil {
		t.Fatalf("DeleteLetter() error = %v", err)
	}

	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM reactions WHERE letter_id = ?`, letter.ID).Scan(&count); err != nil {
		t.Fatalf("counting reactions: %v", err)
	}
	if count != 0 {
		t.Errorf("%d reactions survived the letter delete, want 0", count)
	}
}

// --- albums ---

func TestAlbumMembershipAndCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	album := &model.Album{Name: "Viajes", PhotoIDs: []string{"p1", "p2"}}
	if err := db.CreateAlbum(ctx, album); err != nil {
		t.Fatalf("CreateAlbum() error = %v", err)
	}
	if album.PhotoCount != 2 {
		t.Errorf("photoCount = %d after create, want 2", album.PhotoCount)
	}

	// New member appends at the end.
	added, count, err := db.AddPhoto(ctx, album.ID, "p3")
	if err != nil {
		t.Fatalf("AddPhoto() error = %v", err)
	}
	if !added || count != 3 {
		t.Errorf("added=%v count=%d, want added with count 3", added, count)
	}

	// Re-adding is a no-op.
	added, count, err = db.AddPhoto(ctx, album.ID, "p3")
	if err != nil {
		t.Fatalf("AddPhoto() repeat error = %v", err)
	}
	if added || count != 3 {
		t.Errorf("added=%v count=%d on repeat, want no-op with count 3", added, count)
	}

	got, err := db.GetAlbumByID(ctx, album.ID)
	if err != nil {
		t.Fatalf("GetAlbumByID() error = %v", err)
	}
	wantOrder := []string{"p1", "p2", "p3"}
	if len(got.PhotoIDs) != len(wantOrder) {
		t.Fatalf("photoIds = %v, want %v", got.PhotoIDs, wantOrder)
	}
	for i, id := range wantOrder {
		if got.PhotoIDs[i] != id {
			t.Errorf("photoIds[%d] = %s, want %s", i, got.PhotoIDs[i], id)
		}
	}
	if got.PhotoCount != len(got.PhotoIDs) {
		t.Errorf("photoCount=%d photoIds=%v, want them equal", got.PhotoCount, got.PhotoIDs)
	}

	// Removing a member, then a non-member.
	removed, count, err := db.RemovePhoto(ctx, album.ID, "p2")
	if err != nil {
		t.Fatalf("RemovePhoto() error = %v", err)
	}
	if !removed || count != 2 {
		t.Errorf("removed=%v count=%d, want removed with count 2", removed, count)
	}
	removed, count, err = db.RemovePhoto(ctx, album.ID, "p2")
	if err != nil {
		t.Fatalf("RemovePhoto() non-member error = %v", err)
	}
	if removed || count != 2 {
		t.Errorf("removed=%v count=%d on non-member, want no-op with count 2", removed, count)
	}

	// Unknown album → not found.
	if _, _, err := db.AddPhoto(ctx, "ghost", "p1"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("AddPhoto(unknown album) error = %v, want not found", err)
	}
}

// --- users ---

func TestUserUniquenessIsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "Ana@Example.com", "Ana")

	dupEmail := &model.User{Email: "ana@example.com", Username: "otra", PasswordHash: "x", Role: model.RoleUser}
	if err := db.CreateUser(ctx, dupEmail); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateUser(duplicate email) error = %v, want conflict", err)
	}

	dupUsername := &model.User{Email: "otra@example.com", Username: "ANA", PasswordHash: "x", Role: model.RoleUser}
	if err := db.CreateUser(ctx, dupUsername); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateUser(duplicate username) error = %v, want conflict", err)
	}
}

func TestGetUserByIdentifier(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "ana@example.com", "ana")

	for _, identifier := range []string{"ana@example.com", "ana", "ANA", "Ana@Example.COM"} {
		got, err := db.GetUserByIdentifier(ctx, identifier)
		if err != nil {
			t.Fatalf("GetUserByIdentifier(%q) error = %v", identifier, err)
		}
		if got.ID != user.ID {
			t.Errorf("GetUserByIdentifier(%q) = %s, want %s", identifier, got.ID, user.ID)
		}
	}

	if _, err := db.GetUserByIdentifier(ctx, "nadie"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByIdentifier(unknown) error = %v, want not found", err)
	}
}

// --- photos ---

// The batch-upload pipeline fans out one goroutine per file, so metadata
// inserts land concurrently on the same database.
func TestPhotoCreateConcurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	const writers = 10
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			errs <- db.Create(ctx, &model.Photo{
				URL:    fmt.Sprintf("http://cdn.test/photos/%d.webp", i),
				Format: "webp",
				Folder: "photos",
			})
		}(i)
	}
	for i := 0; i < writers; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent Create() error = %v", err)
		}
	}

	_, total, err := db.List(ctx, repository.PhotoFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != writers {
		t.Errorf("total = %d, want %d", total, writers)
	}
}

func TestPhotoListFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	photos := []*model.Photo{
		{URL: "u1", Format: "webp", Folder: "photos", IsFavorite: true},
		{URL: "u2", Format: "webp", Folder: "photos"},
		{URL: "u3", Format: "png", Folder: "portadas"},
	}
	for _, p := range photos {
		if err := db.Create(ctx, p); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	got, total, err := db.List(ctx, repository.PhotoFilter{Folder: "photos"})
	if err != nil {
		t.Fatalf("List(folder) error = %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Errorf("folder filter matched %d (total %d), want 2", len(got), total)
	}

	fav := true
	got, total, err = db.List(ctx, repository.PhotoFilter{IsFavorite: &fav})
	if err != nil {
		t.Fatalf("List(favorite) error = %v", err)
	}
	if total != 1 || got[0].URL != "u1" {
		t.Errorf("favorite filter = %+v (total %d), want only u1", got, total)
	}

	// Update + missing-row handling.
	got[0].IsFavorite = false
	if err := db.Update(ctx, &got[0]); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := db.Update(ctx, &model.Photo{ID: "missing"}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want not found", err)
	}
	if err := db.Delete(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want not found", err)
	}

	found, err := db.GetByIDs(ctx, []string{photos[0].ID, "missing", photos[2].ID})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(found) != 2 {
		t.Errorf("GetByIDs() returned %d photos, want the 2 that exist", len(found))
	}
}
