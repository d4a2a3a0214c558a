// Package repository defines the persistence interfaces consumed by the
// service layer. The sqlite subpackage implements them; service tests
// substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/mcastellanos/recuerdos/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// PhotoFilter narrows photo listings. IsFavorite is a tri-state: nil means
// "don't filter".
type PhotoFilter struct {
	ListOptions
	Folder     string
	IsFavorite *bool
}

type PhotoRepository interface {
	Create(ctx context.Context, photo *model.Photo) error
	GetByID(ctx context.Context, id string) (*model.Photo, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Photo, error)
	// List returns one page plus the total number of matching rows.
	List(ctx context.Context, filter PhotoFilter) ([]model.Photo, int, error)
	Update(ctx context.Context, photo *model.Photo) error
	Delete(ctx context.Context, id string) error
}

// LetterFilter narrows letter listings. Search matches title or content,
// case-insensitively.
type LetterFilter struct {
	ListOptions
	Search string
}

// The letter, album, and user interfaces carry the entity name in their
// method names so a single implementation (sqlite.DB) can satisfy all of
// them; the photo methods keep the plain names.
type LetterRepository interface {
	CreateLetter(ctx context.Context, letter *model.Letter) error
	// GetLetterByRef resolves a letter by its primary ID or, when ref is
	// numeric, by its migration-era legacy ID.
	GetLetterByRef(ctx context.Context, ref string) (*model.Letter, error)
	ListLetters(ctx context.Context, filter LetterFilter) ([]model.Letter, int, error)
	UpdateLetter(ctx context.Context, letter *model.Letter) error
	DeleteLetter(ctx context.Context, id string) error

	// React applies the reaction state machine for (letterID, userID)
	// atomically: no reaction → added, different emoji → updated in place,
	// same emoji → removed.
	React(ctx context.Context, letterID, userID, emoji string) (model.ReactionAction, error)
}

// AlbumFilter narrows album listings. Search matches name or description.
type AlbumFilter struct {
	ListOptions
	Search string
}

type AlbumRepository interface {
	CreateAlbum(ctx context.Context, album *model.Album) error
	GetAlbumByID(ctx context.Context, id string) (*model.Album, error)
	ListAlbums(ctx context.Context, filter AlbumFilter) ([]model.Album, int, error)
	UpdateAlbum(ctx context.Context, album *model.Album) error
	DeleteAlbum(ctx context.Context, id string) error

	// AddPhoto appends photoID to the album's ordered membership if absent.
	// Returns whether anything changed and the resulting photo count; the
	// count is recomputed in the same transaction as the mutation.
	AddPhoto(ctx context.Context, albumID, photoID string) (added bool, count int, err error)
	// RemovePhoto is the inverse; removing a non-member is not an error.
	RemovePhoto(ctx context.Context, albumID, photoID string) (removed bool, count int, err error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByIdentifier matches email or username, case-insensitively.
	GetUserByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, int, error)
}
