package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/model"
	"github.com/mcastellanos/recuerdos/internal/repository"
)

// compile-time check that *DB implements repository.AlbumRepository
var _ repository.AlbumRepository = (*DB)(nil)

// CreateAlbum inserts a new album along with its initial memberships. The
// whole thing runs in one transaction so photo_count can never disagree
// with the membership rows.
func (db *DB) CreateAlbum(ctx context.Context, album *model.Album) error {
	album.ID = xid.New().String()
	now := time.Now()
	album.CreatedAt = now
	album.UpdatedAt = now
	album.PhotoIDs = dedupe(album.PhotoIDs)
	album.PhotoCount = len(album.PhotoIDs)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning album tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO albums (id, name, description, cover_photo_url, photo_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		album.ID,
		album.Name,
		album.Description,
		album.CoverPhotoURL,
		album.PhotoCount,
		album.CreatedAt,
		album.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating album: %w", err)
	}

	for i, photoID := range album.PhotoIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO album_photos (album_id, photo_id, position) VALUES (?, ?, ?)`,
			album.ID, photoID, i+1)
		if err != nil {
			return fmt.Errorf("sqlite: adding initial album photo: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing album: %w", err)
	}
	return nil
}

func (db *DB) GetAlbumByID(ctx context.Context, id string) (*model.Album, error) {
	album, err := scanAlbum(db.conn.QueryRowContext(ctx,
		`SELECT id, name, description, cover_photo_url, photo_count, created_at, updated_at
		 FROM albums WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("album", id)
		}
		return nil, fmt.Errorf("sqlite: getting album %s: %w", id, err)
	}

	if album.PhotoIDs, err = db.loadAlbumPhotoIDs(ctx, album.ID); err != nil {
		return nil, err
	}
	return album, nil
}

// ListAlbums retrieves albums newest-first with optional case-insensitive
// search across name and description.
func (db *DB) ListAlbums(ctx context.Context, filter repository.AlbumFilter) ([]model.Album, int, error) {
	where := "1=1"
	args := []any{}

	if filter.Search != "" {
		where += " AND (name LIKE ? COLLATE NOCASE OR description LIKE ? COLLATE NOCASE)"
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM albums WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting albums: %w", err)
	}

	limit, offset := clampPage(filter.Limit, filter.Offset)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, description, cover_photo_url, photo_count, created_at, updated_at
		 FROM albums
		 WHERE `+where+`
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing albums: %w", err)
	}
	defer rows.Close()

	albums := []model.Album{}
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning album row: %w", err)
		}
		albums = append(albums, *album)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating albums: %w", err)
	}

	for i := range albums {
		if albums[i].PhotoIDs, err = db.loadAlbumPhotoIDs(ctx, albums[i].ID); err != nil {
			return nil, 0, err
		}
	}

	return albums, total, nil
}

// UpdateAlbum persists the album's descriptive fields. Membership changes
// go through AddPhoto/RemovePhoto so the count invariant stays in one
// place.
func (db *DB) UpdateAlbum(ctx context.Context, album *model.Album) error {
	album.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE albums SET name = ?, description = ?, cover_photo_url = ?, updated_at = ?
		 WHERE id = ?`,
		album.Name,
		album.Description,
		album.CoverPhotoURL,
		album.UpdatedAt,
		album.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating album %s: %w", album.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("album", album.ID)
	}

	return nil
}

func (db *DB) DeleteAlbum(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting album %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("album", id)
	}

	return nil
}

// AddPhoto appends photoID at the end of the album's ordered membership.
// Adding a photo that is already a member is a no-op (idempotent), reported
// with added=false. The count is recomputed inside the same transaction.
func (db *DB) AddPhoto(ctx context.Context, albumID, photoID string) (bool, int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("sqlite: beginning membership tx: %w", err)
	}
	defer tx.Rollback()

	if err := albumExists(ctx, tx, albumID); err != nil {
		return false, 0, err
	}

	// INSERT OR IGNORE leans on the (album_id, photo_id) primary key for
	// idempotency; RowsAffected tells us whether anything changed.
	result, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO album_photos (album_id, photo_id, position)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM album_photos WHERE album_id = ?))`,
		albumID, photoID, albumID)
	if err != nil {
		return false, 0, fmt.Errorf("sqlite: adding photo to album: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	count, err := recountAlbum(ctx, tx, albumID)
	if err != nil {
		return false, 0, err
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("sqlite: committing membership: %w", err)
	}
	return rowsAffected > 0, count, nil
}

// RemovePhoto filters photoID out of the album. Removing a non-member is a
// distinct, non-error outcome (removed=false).
func (db *DB) RemovePhoto(ctx context.Context, albumID, photoID string) (bool, int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("sqlite: beginning membership tx: %w", err)
	}
	defer tx.Rollback()

	if err := albumExists(ctx, tx, albumID); err != nil {
		return false, 0, err
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM album_photos WHERE album_id = ? AND photo_id = ?`,
		albumID, photoID)
	if err != nil {
		return false, 0, fmt.Errorf("sqlite: removing photo from album: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	count, err := recountAlbum(ctx, tx, albumID)
	if err != nil {
		return false, 0, err
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("sqlite: committing membership: %w", err)
	}
	return rowsAffected > 0, count, nil
}

func albumExists(ctx context.Context, tx *sql.Tx, albumID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM albums WHERE id = ?`, albumID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("album", albumID)
		}
		return fmt.Errorf("sqlite: checking album %s: %w", albumID, err)
	}
	return nil
}

// recountAlbum re-derives photo_count from the membership rows and writes
// it back, keeping photoCount == len(photoIds) after every mutation.
func recountAlbum(ctx context.Context, tx *sql.Tx, albumID string) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM album_photos WHERE album_id = ?`, albumID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting album photos: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE albums SET photo_count = ?, updated_at = ? WHERE id = ?`,
		count, time.Now(), albumID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: updating album count: %w", err)
	}
	return count, nil
}

func (db *DB) loadAlbumPhotoIDs(ctx context.Context, albumID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT photo_id FROM album_photos WHERE album_id = ? ORDER BY position`,
		albumID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading album photos for %s: %w", albumID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning album photo row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating album photos: %w", err)
	}
	return ids, nil
}

func scanAlbum(s scanner) (*model.Album, error) {
	var a model.Album
	err := s.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&a.CoverPhotoURL,
		&a.PhotoCount,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// dedupe removes duplicate IDs preserving first occurrence order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
