package model

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type EntryModel struct {
	db *sql.DB
}

func NewEntryModel(db *sql.DB) *EntryModel {
	return &EntryModel{db: db}
}

type EntryData struct {
	Session   string
	UserName  string
	Content   string
	Timestamp time.Time
}

type Entry struct {
	ID        int64
	Session   string
	UserName  string
	Content   string
	Timestamp time.Time
	CreatedAt time.Time
}

const insertEntrySQL = `INSERT INTO entries (session, user_name, content, timestamp_ns, created_at) VALUES (?, ?, ?, ?, ?)`

// Create 保存一条记录
func (m *EntryModel) Create(ctx context.Context, data *EntryData) (*Entry, error) {
	now := time.Now()
	res, err := m.db.ExecContext(ctx, insertEntrySQL,
		data.Session, data.UserName, data.Content, data.Timestamp.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:        id,
		Session:   data.Session,
		UserName:  data.UserName,
		Content:   data.Content,
		Timestamp: data.Timestamp,
		CreatedAt: now,
	}, nil
}

// CreateBatch 在一个事务内保存多条记录，返回写入条数
func (m *EntryModel) CreateBatch(ctx context.Context, items []*EntryData) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertEntrySQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	for i, data := range items {
		if _, err := stmt.ExecContext(ctx, data.Session, data.UserName, data.Content, data.Timestamp.UnixNano(), now); err != nil {
			return 0, fmt.Errorf("写入第 %d 条记录失败: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(items), nil
}

// ListBySession 按写入顺序返回会话内的所有记录，排序由调用方负责
func (m *EntryModel) ListBySession(ctx context.Context, session string) ([]*Entry, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, session, user_name, content, timestamp_ns, created_at FROM entries WHERE session = ? ORDER BY id`,
		session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		var (
			e                 Entry
			tsNano, createdNs int64
		)
		if err := rows.Scan(&e.ID, &e.Session, &e.UserName, &e.Content, &tsNano, &createdNs); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, tsNano).UTC()
		e.CreatedAt = time.Unix(0, createdNs).UTC()
		result = append(result, &e)
	}
	return result, rows.Err()
}

// ListSessions 返回所有会话名称
func (m *EntryModel) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT DISTINCT session FROM entries ORDER BY session`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
