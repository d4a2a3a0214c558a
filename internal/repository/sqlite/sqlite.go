// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere
// Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: the driver registers itself with database/sql
	// under the name "sqlite".
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
// One DB value implements every repository interface; the server wires it
// into each service as the narrow interface that service needs.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/recuerdos.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	// Connection behavior rides on the DSN so that every connection in the
	// database/sql pool gets it, not just the first one opened:
	//   - _txlock=immediate: transactions take the write lock at BEGIN, so
	//     two writers never collide upgrading a read lock mid-transaction.
	//   - busy_timeout: a writer waits out a held lock instead of failing
	//     with SQLITE_BUSY. Concurrent reaction toggles and the batch-upload
	//     fan-out depend on this.
	//   - journal_mode(WAL): concurrent reads while a write is in progress.
	//   - foreign_keys(ON): OFF by default in SQLite; the reactions and
	//     album_photos tables rely on ON DELETE CASCADE.
	dsn := dbPath + "?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(ON)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every start.
//
// Two invariants live in the schema rather than in code:
//   - reactions has PRIMARY KEY (letter_id, user_id): a letter can never
//     hold two reactions from the same user.
//   - album_photos has PRIMARY KEY (album_id, photo_id): a photo appears at
//     most once per album. albums.photo_count is denormalized but only ever
//     recomputed in the same transaction as a membership change.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL COLLATE NOCASE UNIQUE,
			username      TEXT NOT NULL COLLATE NOCASE UNIQUE,
			display_name  TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'user',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS photos (
			id            TEXT PRIMARY KEY,
			url           TEXT NOT NULL,
			format        TEXT NOT NULL DEFAULT 'webp',
			folder        TEXT NOT NULL DEFAULT '',
			original_name TEXT NOT NULL DEFAULT '',
			size          INTEGER NOT NULL DEFAULT 0,
			is_favorite   INTEGER NOT NULL DEFAULT 0,
			uploaded_by   TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_photos_created_at ON photos(created_at);
		CREATE INDEX IF NOT EXISTS idx_photos_folder ON photos(folder);
	`)
	if err != nil {
		return fmt.Errorf("creating photos table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS letters (
			id           TEXT PRIMARY KEY,
			legacy_id    INTEGER UNIQUE,
			title        TEXT NOT NULL,
			icon         TEXT NOT NULL,
			content      TEXT NOT NULL,
			published_at DATETIME,
			created_by   TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_letters_created_at ON letters(created_at);
		CREATE INDEX IF NOT EXISTS idx_letters_published_at ON letters(published_at);
	`)
	if err != nil {
		return fmt.Errorf("creating letters table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reactions (
			letter_id  TEXT NOT NULL REFERENCES letters(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL,
			emoji      TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (letter_id, user_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating reactions table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS albums (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			cover_photo_url TEXT NOT NULL DEFAULT '',
			photo_count     INTEGER NOT NULL DEFAULT 0,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_albums_created_at ON albums(created_at);
		CREATE INDEX IF NOT EXISTS idx_albums_name ON albums(name);
	`)
	if err != nil {
		return fmt.Errorf("creating albums table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS album_photos (
			album_id TEXT NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
			photo_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (album_id, photo_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating album_photos table: %w", err)
	}

	return nil
}

// clampPage applies the shared pagination defaults: limit 1–100 (default
// 50), offset ≥ 0.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
