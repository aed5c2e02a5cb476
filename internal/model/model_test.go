package model

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "sqlite.db")
	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()
	assert.FileExists(t, path)
}

func TestEntryModel_CreateAndList(t *testing.T) {
	ctx := context.Background()
	m := NewEntryModel(openTestDB(t))
	ts := time.Date(2025, 2, 1, 20, 0, 0, 123, time.UTC)

	created, err := m.Create(ctx, &EntryData{Session: "s1", UserName: "alice", Content: "hello", Timestamp: ts})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = m.CreateBatch(ctx, []*EntryData{
		{Session: "s1", UserName: "bob", Content: "earlier", Timestamp: ts.Add(-time.Minute)},
		{Session: "s2", UserName: "carol", Content: "other", Timestamp: ts},
	})
	require.NoError(t, err)

	entries, err := m.ListBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// 按写入顺序返回，不做排序
	assert.Equal(t, "alice", entries[0].UserName)
	assert.True(t, ts.Equal(entries[0].Timestamp))
	assert.Equal(t, "bob", entries[1].UserName)

	sessions, err := m.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, sessions)
}

func TestEntryModel_ListUnknownSession(t *testing.T) {
	m := NewEntryModel(openTestDB(t))
	entries, err := m.ListBySession(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunModel_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewRunModel(openTestDB(t))

	run, err := m.Create(ctx, "session-one", "s1")
	require.NoError(t, err)
	assert.Len(t, run.ID, 26)
	assert.Equal(t, RunStatusInProgress, run.Status)

	require.NoError(t, m.MarkCompleted(ctx, run.ID, "wrapups/a_transcript.log", "wrapups/a_outline.md", "produced"))

	failed, err := m.Create(ctx, "session-one", "s1")
	require.NoError(t, err)
	require.NoError(t, m.MarkFailed(ctx, failed.ID, "api error"))

	runs, err := m.ListByName(ctx, "session-one", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	byID := map[string]*Run{runs[0].ID: runs[0], runs[1].ID: runs[1]}

	assert.Equal(t, RunStatusCompleted, byID[run.ID].Status)
	assert.Equal(t, "wrapups/a_outline.md", byID[run.ID].OutlinePath)
	assert.Equal(t, "produced", byID[run.ID].OutlineStatus)
	assert.Equal(t, RunStatusFailed, byID[failed.ID].Status)
	assert.Equal(t, "api error", byID[failed.ID].ErrorMessage)

	limited, err := m.ListByName(ctx, "session-one", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRunModel_MarkUnknown(t *testing.T) {
	m := NewRunModel(openTestDB(t))
	err := m.MarkFailed(context.Background(), "missing", "x")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestReadEntriesJSONL(t *testing.T) {
	input := `{"timestamp":"2025-02-01T20:00:02Z","user_name":"bob","content":"hi"}

{"timestamp":"2025-02-01T20:00:01Z","user_name":"alice","content":"line1\nline2"}
`
	entries, err := ReadEntriesJSONL(strings.NewReader(input), "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bob", entries[0].UserName)
	assert.Equal(t, "s1", entries[0].Session)
	assert.Equal(t, "line1\nline2", entries[1].Content)
	assert.True(t, time.Date(2025, 2, 1, 20, 0, 1, 0, time.UTC).Equal(entries[1].Timestamp))
}

func TestReadEntriesJSONL_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"非法 JSON", "{\"timestamp\":\"2025-02-01T20:00:00Z\",\"user_name\":\"a\"}\nnot json", "第 2 行"},
		{"缺少 user_name", `{"timestamp":"2025-02-01T20:00:00Z","content":"x"}`, "user_name"},
		{"缺少 timestamp", `{"user_name":"a","content":"x"}`, "timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadEntriesJSONL(strings.NewReader(tt.input), "s")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
