package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/model"
	"github.com/mcastellanos/recuerdos/internal/repository"
)

// compile-time check that *DB implements repository.PhotoRepository
var _ repository.PhotoRepository = (*DB)(nil)

const photoColumns = `id, url, format, folder, original_name, size, is_favorite, uploaded_by, created_at`

// Create inserts a new photo metadata record. The ID and creation timestamp
// are generated here; the caller's struct is updated in place.
func (db *DB) Create(ctx context.Context, photo *model.Photo) error {
	photo.ID = xid.New().String()
	photo.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO photos (`+photoColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		photo.ID,
		photo.URL,
		photo.Format,
		photo.Folder,
		photo.OriginalName,
		photo.Size,
		photo.IsFavorite,
		photo.UploadedBy,
		photo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating photo: %w", err)
	}

	return nil
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.Photo, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE id = ?`, id)

	photo, err := scanPhoto(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("photo", id)
		}
		return nil, fmt.Errorf("sqlite: getting photo %s: %w", id, err)
	}
	return photo, nil
}

// GetByIDs returns the photos that exist among ids; missing IDs are simply
// absent from the result, the batch-delete flow treats them per-item.
func (db *DB) GetByIDs(ctx context.Context, ids []string) ([]model.Photo, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting photos by ids: %w", err)
	}
	defer rows.Close()

	return collectPhotos(rows)
}

// List retrieves photos newest-first, optionally filtered by folder and
// favorite flag, plus the total matching count for pagination metadata.
func (db *DB) List(ctx context.Context, filter repository.PhotoFilter) ([]model.Photo, int, error) {
	where := "1=1"
	args := []any{}

	if filter.Folder != "" {
		where += " AND folder = ?"
		args = append(args, filter.Folder)
	}
	if filter.IsFavorite != nil {
		where += " AND is_favorite = ?"
		args = append(args, *filter.IsFavorite)
	}

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM photos WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting photos: %w", err)
	}

	limit, offset := clampPage(filter.Limit, filter.Offset)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos
		 WHERE `+where+`
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing photos: %w", err)
	}
	defer rows.Close()

	photos, err := collectPhotos(rows)
	if err != nil {
		return nil, 0, err
	}
	return photos, total, nil
}

// Update persists the mutable photo fields. Today only the favorite flag
// ever changes, but writing the whole mutable set keeps this future-proof.
func (db *DB) Update(ctx context.Context, photo *model.Photo) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE photos SET is_favorite = ?, original_name = ? WHERE id = ?`,
		photo.IsFavorite,
		photo.OriginalName,
		photo.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating photo %s: %w", photo.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("photo", photo.ID)
	}

	return nil
}

func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting photo %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("photo", id)
	}

	return nil
}

// scanner is the shared subset of sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(s scanner) (*model.Photo, error) {
	var p model.Photo
	err := s.Scan(
		&p.ID,
		&p.URL,
		&p.Format,
		&p.Folder,
		&p.OriginalName,
		&p.Size,
		&p.IsFavorite,
		&p.UploadedBy,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPhotos(rows *sql.Rows) ([]model.Photo, error) {
	photos := []model.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning photo row: %w", err)
		}
		photos = append(photos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating photos: %w", err)
	}
	return photos, nil
}
