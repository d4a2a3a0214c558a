package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/model"
	"github.com/mcastellanos/recuerdos/internal/repository"
)

// compile-time check that *DB implements repository.LetterRepository
var _ repository.LetterRepository = (*DB)(nil)

// letterSelect joins the author so every fetched letter carries its
// createdBy projection. The LEFT JOIN matters: letters seeded before user
// rows existed (or created by the virtual env admin) have no author row.
const letterSelect = `
	SELECT l.id, l.legacy_id, l.title, l.icon, l.content, l.published_at,
	       l.created_by, l.created_at,
	       u.username, u.display_name, u.email, u.role
	FROM letters l
	LEFT JOIN users u ON u.id = l.created_by`

// CreateLetter inserts a new letter. A duplicate legacy ID is a conflict —
// legacy IDs come from the migrated dataset and are unique there.
func (db *DB) CreateLetter(ctx context.Context, letter *model.Letter) error {
	letter.ID = xid.New().String()
	letter.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO letters (id, legacy_id, title, icon, content, published_at, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		letter.ID,
		nullableInt64(letter.LegacyID),
		letter.Title,
		letter.Icon,
		letter.Content,
		nullableTime(letter.PublishedAt),
		letter.CreatedBy.ID,
		letter.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("letter", "a letter with this legacy id already exists")
		}
		return fmt.Errorf("sqlite: creating letter: %w", err)
	}

	letter.Reactions = []model.Reaction{}
	return nil
}

// GetLetterByRef resolves a letter by primary ID, or by legacy numeric ID
// when ref parses as an integer. Reactions are loaded in insertion order.
func (db *DB) GetLetterByRef(ctx context.Context, ref string) (*model.Letter, error) {
	query := letterSelect + ` WHERE l.id = ?`
	args := []any{ref}

	if legacy, err := strconv.ParseInt(ref, 10, 64); err == nil {
		query = letterSelect + ` WHERE l.id = ? OR l.legacy_id = ?`
		args = append(args, legacy)
	}

	letter, err := scanLetter(db.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("letter", ref)
		}
		return nil, fmt.Errorf("sqlite: getting letter %s: %w", ref, err)
	}

	if letter.Reactions, err = db.loadReactions(ctx, letter.ID); err != nil {
		return nil, err
	}
	return letter, nil
}

// ListLetters retrieves letters newest-first (published date, then creation
// date), with optional case-insensitive search across title and content.
func (db *DB) ListLetters(ctx context.Context, filter repository.LetterFilter) ([]model.Letter, int, error) {
	where := "1=1"
	args := []any{}

	if filter.Search != "" {
		where += " AND (l.title LIKE ? COLLATE NOCASE OR l.content LIKE ? COLLATE NOCASE)"
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM letters l WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting letters: %w", err)
	}

	limit, offset := clampPage(filter.Limit, filter.Offset)
	rows, err := db.conn.QueryContext(ctx,
		letterSelect+` WHERE `+where+`
		 ORDER BY l.published_at DESC, l.created_at DESC
		 LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing letters: %w", err)
	}
	defer rows.Close()

	letters := []model.Letter{}
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning letter row: %w", err)
		}
		letters = append(letters, *letter)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating letters: %w", err)
	}

	for i := range letters {
		if letters[i].Reactions, err = db.loadReactions(ctx, letters[i].ID); err != nil {
			return nil, 0, err
		}
	}

	return letters, total, nil
}

// UpdateLetter persists the mutable letter fields (title, icon, content,
// publication date, legacy ID). Author and creation date are immutable.
func (db *DB) UpdateLetter(ctx context.Context, letter *model.Letter) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE letters
		 SET title = ?, icon = ?, content = ?, published_at = ?, legacy_id = ?
		 WHERE id = ?`,
		letter.Title,
		letter.Icon,
		letter.Content,
		nullableTime(letter.PublishedAt),
		nullableInt64(letter.LegacyID),
		letter.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("letter", "a letter with this legacy id already exists")
		}
		return fmt.Errorf("sqlite: updating letter %s: %w", letter.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("letter", letter.ID)
	}

	return nil
}

// DeleteLetter removes a letter; its reactions go with it via the foreign
// key cascade.
func (db *DB) DeleteLetter(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM letters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting letter %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("letter", id)
	}

	return nil
}

// React applies the reaction state machine for (letterID, userID) inside a
// single transaction, so concurrent toggles on the same pair serialize at
// the database instead of racing read-modify-write style:
//
//	no reaction            → insert            → "added"
//	reaction, other emoji  → update in place   → "updated"
//	reaction, same emoji   → delete (toggle)   → "removed"
//
// The update keeps the row (and therefore its rowid), so a replaced
// reaction keeps its position in the letter's reaction list. The table's
// (letter_id, user_id) primary key makes a second reaction per user
// impossible even under races.
func (db *DB) React(ctx context.Context, letterID, userID, emoji string) (model.ReactionAction, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("sqlite: beginning reaction tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM letters WHERE id = ?`, letterID).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", apperror.NotFound("letter", letterID)
		}
		return "", fmt.Errorf("sqlite: checking letter %s: %w", letterID, err)
	}

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT emoji FROM reactions WHERE letter_id = ? AND user_id = ?`,
		letterID, userID).Scan(&current)

	var action model.ReactionAction
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO reactions (letter_id, user_id, emoji, created_at)
			 VALUES (?, ?, ?, ?)`,
			letterID, userID, emoji, time.Now())
		action = model.ReactionAdded

	case err != nil:
		return "", fmt.Errorf("sqlite: reading reaction: %w", err)

	case current == emoji:
		_, err = tx.ExecContext(ctx,
			`DELETE FROM reactions WHERE letter_id = ? AND user_id = ?`,
			letterID, userID)
		action = model.ReactionRemoved

	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE reactions SET emoji = ?, created_at = ?
			 WHERE letter_id = ? AND user_id = ?`,
			emoji, time.Now(), letterID, userID)
		action = model.ReactionUpdated
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: writing reaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("sqlite: committing reaction: %w", err)
	}
	return action, nil
}

// loadReactions returns a letter's reactions in insertion order (rowid),
// each with the reacting user's projection when the user still exists.
func (db *DB) loadReactions(ctx context.Context, letterID string) ([]model.Reaction, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT r.user_id, r.emoji, r.created_at, u.username, u.display_name
		 FROM reactions r
		 LEFT JOIN users u ON u.id = r.user_id
		 WHERE r.letter_id = ?
		 ORDER BY r.rowid`,
		letterID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading reactions for %s: %w", letterID, err)
	}
	defer rows.Close()

	reactions := []model.Reaction{}
	for rows.Next() {
		var r model.Reaction
		var username, displayName sql.NullString
		if err := rows.Scan(&r.User.ID, &r.Emoji, &r.CreatedAt, &username, &displayName); err != nil {
			return nil, fmt.Errorf("sqlite: scanning reaction row: %w", err)
		}
		r.User.Username = username.String
		r.User.DisplayName = displayName.String
		reactions = append(reactions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reactions: %w", err)
	}
	return reactions, nil
}

func scanLetter(s scanner) (*model.Letter, error) {
	var l model.Letter
	var legacyID sql.NullInt64
	var publishedAt sql.NullTime
	var username, displayName, email, role sql.NullString

	err := s.Scan(
		&l.ID,
		&legacyID,
		&l.Title,
		&l.Icon,
		&l.Content,
		&publishedAt,
		&l.CreatedBy.ID,
		&l.CreatedAt,
		&username,
		&displayName,
		&email,
		&role,
	)
	if err != nil {
		return nil, err
	}

	if legacyID.Valid {
		l.LegacyID = &legacyID.Int64
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		l.PublishedAt = &t
	}
	l.CreatedBy.Username = username.String
	l.CreatedBy.DisplayName = displayName.String
	l.CreatedBy.Email = email.String
	l.CreatedBy.Role = role.String
	return &l, nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}
