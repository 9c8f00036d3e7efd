package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
)

// sqliteStore 是 SheetStore 接口的 SQLite 实现
type sqliteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS split_sheets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		tracks INTEGER NOT NULL DEFAULT 0,
		split_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

// NewSQLiteStore 初始化 SQLite 数据库并返回 SheetStore 实例
func NewSQLiteStore(dataSourceName string, logger zerolog.Logger) (SheetStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create split_sheets table: %w", err)
	}
	logger.Debug().Str("path", dataSourceName).Msg("SQLite database initialized")
	return &sqliteStore{db: db, logger: logger}, nil
}

// Close 关闭数据库连接
func (s *sqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.logger.Debug().Msg("SQLite database connection closed")
	return err
}

// AddSplitSheet 将 CUE 标记为已分割，重复写入时更新轨道数与时间
func (s *sqliteStore) AddSplitSheet(cuePath string, tracks int) error {
	_, err := s.db.Exec(
		`INSERT INTO split_sheets (path, tracks, split_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET tracks = excluded.tracks, split_at = excluded.split_at`,
		cuePath, tracks, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to add split sheet %s: %w", cuePath, err)
	}
	s.logger.Debug().Str("cue", cuePath).Int("tracks", tracks).Msg("Cue sheet marked as split")
	return nil
}

// IsSheetSplit 检查 CUE 是否已分割
func (s *sqliteStore) IsSheetSplit(cuePath string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM split_sheets WHERE path = ?", cuePath).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check split status for %s: %w", cuePath, err)
	}
	return count > 0, nil
}
