package model

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session      TEXT    NOT NULL,
	user_name    TEXT    NOT NULL,
	content      TEXT    NOT NULL,
	timestamp_ns INTEGER NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session);

CREATE TABLE IF NOT EXISTS wrapup_runs (
	id             TEXT    PRIMARY KEY,
	name           TEXT    NOT NULL,
	session        TEXT    NOT NULL DEFAULT '',
	status         TEXT    NOT NULL,
	chatlog_path   TEXT    NOT NULL DEFAULT '',
	outline_path   TEXT    NOT NULL DEFAULT '',
	outline_status TEXT    NOT NULL DEFAULT '',
	error_message  TEXT    NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wrapup_runs_name ON wrapup_runs(name);
`

// Open 打开 SQLite 数据库并创建表结构，path 为 ":memory:" 时使用内存库
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL&_busy_timeout=5000", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if path == ":memory:" {
		// 内存库每个连接独立，只能保留一个连接
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("创建数据库Schema失败: %w", err)
	}
	return db, nil
}
