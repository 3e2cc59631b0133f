package spacetravelling

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding generated pages and processed banners.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the background regenerator write while requests read;
	// busy_timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS pages (
    path TEXT PRIMARY KEY,
    status INTEGER NOT NULL,
    location TEXT NOT NULL DEFAULT '',
    body BLOB,
    generated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS banners (
    src TEXT PRIMARY KEY,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    body BLOB NOT NULL,
    fetched_at INTEGER NOT NULL
);
`)
	return err
}

// SavePage upserts a generated page.
func (s *Store) SavePage(p GeneratedPage) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO pages (path, status, location, body, generated_at) VALUES (?, ?, ?, ?, ?)`,
		p.Path, p.Status, p.Location, p.Body, p.GeneratedAt.UnixMilli())
	return err
}

// GetPage returns the stored page for path, or ErrNotFound.
func (s *Store) GetPage(path string) (GeneratedPage, error) {
	var p GeneratedPage
	var generated int64
	err := s.db.QueryRow(`SELECT path, status, location, body, generated_at FROM pages WHERE path = ?`, path).
		Scan(&p.Path, &p.Status, &p.Location, &p.Body, &generated)
	if errors.Is(err, sql.ErrNoRows) {
		return GeneratedPage{}, ErrNotFound
	}
	if err != nil {
		return GeneratedPage{}, err
	}
	p.GeneratedAt = time.UnixMilli(generated)
	return p, nil
}

// ListPages returns every stored page ordered by path.
func (s *Store) ListPages() ([]GeneratedPage, error) {
	rows, err := s.db.Query(`SELECT path, status, location, body, generated_at FROM pages ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []GeneratedPage
	for rows.Next() {
		var p GeneratedPage
		var generated int64
		if err := rows.Scan(&p.Path, &p.Status, &p.Location, &p.Body, &generated); err != nil {
			return nil, err
		}
		p.GeneratedAt = time.UnixMilli(generated)
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeletePage removes a stored page.
func (s *Store) DeletePage(path string) error {
	_, err := s.db.Exec(`DELETE FROM pages WHERE path = ?`, path)
	return err
}

// DeleteExpiredRedirects removes stored redirects generated before cutoff and
// reports how many were removed.
func (s *Store) DeleteExpiredRedirects(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM pages WHERE location != '' AND generated_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SaveBanner stores a processed banner image.
func (s *Store) SaveBanner(b Banner) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO banners (src, width, height, body, fetched_at) VALUES (?, ?, ?, ?, ?)`,
		b.Src, b.Width, b.Height, b.Body, b.FetchedAt.Unix())
	return err
}

// GetBanner returns the processed banner for src, or ErrNotFound.
func (s *Store) GetBanner(src string) (Banner, error) {
	var b Banner
	var fetched int64
	err := s.db.QueryRow(`SELECT src, width, height, body, fetched_at FROM banners WHERE src = ?`, src).
		Scan(&b.Src, &b.Width, &b.Height, &b.Body, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return Banner{}, ErrNotFound
	}
	if err != nil {
		return Banner{}, err
	}
	b.FetchedAt = time.Unix(fetched, 0)
	return b, nil
}
