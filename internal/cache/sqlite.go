package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	DefaultPersistentEntries = 500
	DefaultTrimBuffer        = 50
)

const cacheDDL = `
CREATE TABLE IF NOT EXISTS translation_cache (
	cache_key       TEXT PRIMARY KEY,
	source_lang     TEXT NOT NULL,
	target_lang     TEXT NOT NULL,
	source_text     TEXT NOT NULL,
	translated_text TEXT NOT NULL,
	usage_count     INTEGER NOT NULL DEFAULT 1,
	last_used_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_translation_cache_last_used
	ON translation_cache (last_used_at);
`

// SQLiteOptions bounds the persistent tier. Once more than MaxEntries rows
// exist, the least recently used rows are deleted until MaxEntries-TrimBuffer
// remain.
type SQLiteOptions struct {
	MaxEntries int
	TrimBuffer int
}

func DefaultSQLiteOptions() SQLiteOptions {
	return SQLiteOptions{MaxEntries: DefaultPersistentEntries, TrimBuffer: DefaultTrimBuffer}
}

// SQLite is the on-device persistent tier.
type SQLite struct {
	db   *sql.DB
	opts SQLiteOptions
}

// DefaultDBPath returns ~/.local/share/voxbridge/cache.db or the XDG
// equivalent.
func DefaultDBPath() (string, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "voxbridge", "cache.db"), nil
}

// OpenSQLite opens (creating if needed) the cache database at path.
func OpenSQLite(path string, opts SQLiteOptions) (*SQLite, error) {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultPersistentEntries
	}
	if opts.TrimBuffer < 0 || opts.TrimBuffer >= opts.MaxEntries {
		return nil, fmt.Errorf("trim buffer %d must be in [0, %d)", opts.TrimBuffer, opts.MaxEntries)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// Single writer; concurrent stores serialize here.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(cacheDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply cache schema: %w", err)
	}

	return &SQLite{db: db, opts: opts}, nil
}

func (s *SQLite) Name() string {
	return TierPersistent
}

func (s *SQLite) Get(ctx context.Context, key Key) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT source_lang, target_lang, source_text, translated_text, usage_count, last_used_at
		FROM translation_cache WHERE cache_key = ?`, string(key))

	e := Entry{Key: key}
	var lastUsed int64
	err := row.Scan(&e.SourceLang, &e.TargetLang, &e.SourceText, &e.TranslatedText, &e.UsageCount, &lastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query cache entry: %w", err)
	}
	e.LastUsedAt = time.UnixMilli(lastUsed)
	return e, true, nil
}

func (s *SQLite) Put(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.UsageCount < 1 {
		e.UsageCount = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO translation_cache
			(cache_key, source_lang, target_lang, source_text, translated_text, usage_count, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			translated_text = excluded.translated_text,
			usage_count     = MAX(translation_cache.usage_count, excluded.usage_count),
			last_used_at    = MAX(translation_cache.last_used_at, excluded.last_used_at)`,
		string(e.Key), e.SourceLang, e.TargetLang, e.SourceText, e.TranslatedText,
		e.UsageCount, e.LastUsedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}

	if _, err := s.Trim(ctx); err != nil {
		log.Printf("Cache: persistent trim failed: %v", err)
	}
	return nil
}

func (s *SQLite) Hit(ctx context.Context, key Key, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE translation_cache
		SET usage_count = usage_count + 1, last_used_at = MAX(last_used_at, ?)
		WHERE cache_key = ?`, at.UnixMilli(), string(key))
	if err != nil {
		return fmt.Errorf("record cache hit: %w", err)
	}
	return nil
}

// Trim evicts least recently used rows once the table holds more than
// MaxEntries, leaving MaxEntries-TrimBuffer rows. It returns the number of
// rows deleted.
func (s *SQLite) Trim(ctx context.Context) (int64, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count <= s.opts.MaxEntries {
		return 0, nil
	}

	excess := count - (s.opts.MaxEntries - s.opts.TrimBuffer)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM translation_cache WHERE cache_key IN (
			SELECT cache_key FROM translation_cache
			ORDER BY last_used_at ASC, rowid ASC
			LIMIT ?
		)`, excess)
	if err != nil {
		return 0, fmt.Errorf("trim cache: %w", err)
	}

	n, _ := res.RowsAffected()
	log.Printf("Cache: evicted %d persistent entries (%d over limit %d)", n, count-s.opts.MaxEntries, s.opts.MaxEntries)
	return n, nil
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translation_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM translation_cache`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Top returns the n most used entries.
func (s *SQLite) Top(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cache_key, source_lang, target_lang, source_text, translated_text, usage_count, last_used_at
		FROM translation_cache
		ORDER BY usage_count DESC, last_used_at DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query top entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var key string
		var lastUsed int64
		if err := rows.Scan(&key, &e.SourceLang, &e.TargetLang, &e.SourceText, &e.TranslatedText, &e.UsageCount, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Key = Key(key)
		e.LastUsedAt = time.UnixMilli(lastUsed)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
