package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (unixepoch())
)`

// SQLite 以键值表保存设置
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开（必要时创建）数据库并应用 WAL 与 busy_timeout
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("settings database path must be specified")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("settings: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("settings: open: %w", err)
	}
	// :memory: 每个连接是独立的库
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("settings: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("settings: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context) (Settings, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, KeyTranslationEnabled).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("settings: load: %w", err)
	}

	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: invalid %s value %q: %w", KeyTranslationEnabled, value, err)
	}
	return Settings{TranslationEnabled: Bool(enabled)}, nil
}

func (s *SQLite) Save(ctx context.Context, st Settings) error {
	if st.TranslationEnabled == nil {
		_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, KeyTranslationEnabled)
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = unixepoch()`,
		KeyTranslationEnabled, strconv.FormatBool(*st.TranslationEnabled))
	if err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
