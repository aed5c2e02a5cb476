package model

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

type RunStatus string

const (
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

var ErrRunNotFound = errors.New("wrapup run 不存在")

// Run 一次 wrapup 执行记录
type Run struct {
	ID            string
	Name          string
	Session       string
	Status        RunStatus
	ChatlogPath   string
	OutlinePath   string
	OutlineStatus string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type RunModel struct {
	db *sql.DB
}

func NewRunModel(db *sql.DB) *RunModel {
	return &RunModel{db: db}
}

func newRunID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Create 创建执行记录，状态为 in_progress
func (m *RunModel) Create(ctx context.Context, name, session string) (*Run, error) {
	now := time.Now().UTC()
	id, err := newRunID(now)
	if err != nil {
		return nil, err
	}

	_, err = m.db.ExecContext(ctx,
		`INSERT INTO wrapup_runs (id, name, session, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, session, RunStatusInProgress, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, err
	}
	return &Run{
		ID:        id,
		Name:      name,
		Session:   session,
		Status:    RunStatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (m *RunModel) update(ctx context.Context, query string, args ...any) error {
	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// MarkCompleted 标记执行完成并保存产物路径
func (m *RunModel) MarkCompleted(ctx context.Context, id, chatlogPath, outlinePath, outlineStatus string) error {
	return m.update(ctx,
		`UPDATE wrapup_runs SET status = ?, chatlog_path = ?, outline_path = ?, outline_status = ?, updated_at = ? WHERE id = ?`,
		RunStatusCompleted, chatlogPath, outlinePath, outlineStatus, time.Now().UnixNano(), id)
}

// MarkFailed 标记执行失败
func (m *RunModel) MarkFailed(ctx context.Context, id string, errorMsg string) error {
	return m.update(ctx,
		`UPDATE wrapup_runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		RunStatusFailed, errorMsg, time.Now().UnixNano(), id)
}

// ListByName 按创建时间倒序返回指定名称的执行记录，limit <= 0 表示不限制
func (m *RunModel) ListByName(ctx context.Context, name string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, name, session, status, chatlog_path, outline_path, outline_status, error_message, created_at, updated_at
		 FROM wrapup_runs WHERE name = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Run
	for rows.Next() {
		var (
			r                  Run
			createdNs, updated int64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Session, &r.Status, &r.ChatlogPath, &r.OutlinePath,
			&r.OutlineStatus, &r.ErrorMessage, &createdNs, &updated); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, createdNs).UTC()
		r.UpdatedAt = time.Unix(0, updated).UTC()
		result = append(result, &r)
	}
	return result, rows.Err()
}
