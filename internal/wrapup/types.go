package wrapup

import (
	"errors"
	"time"

	"github.com/fachebot/talk-wrapup/internal/model"
)

var ErrInvalidName = errors.New("wrapup 名称不能为空且不能包含路径分隔符")

// LogEntry 单条聊天记录
type LogEntry struct {
	Timestamp time.Time
	UserName  string
	Content   string
}

// OutlineStatus 大纲生成结果
type OutlineStatus int

const (
	// OutlineNotRequested 调用方未请求大纲
	OutlineNotRequested OutlineStatus = iota
	// OutlineSkipped 未配置生成客户端，跳过
	OutlineSkipped
	// OutlineProduced 大纲已写入文件
	OutlineProduced
)

func (s OutlineStatus) String() string {
	switch s {
	case OutlineNotRequested:
		return "not_requested"
	case OutlineSkipped:
		return "skipped"
	case OutlineProduced:
		return "produced"
	default:
		return "unknown"
	}
}

type Outline struct {
	Status   OutlineStatus
	Path     string // 仅 OutlineProduced 时有值
	HTMLPath string // 开启 RenderHTML 时有值
}

// Result 一次 wrapup 的产物路径
type Result struct {
	ChatlogPath string
	Outline     Outline
}

// OutlinePath 返回大纲路径，未生成时 ok 为 false
func (r *Result) OutlinePath() (path string, ok bool) {
	if r.Outline.Status != OutlineProduced {
		return "", false
	}
	return r.Outline.Path, true
}

// FromModel 将存储中的记录转换为 LogEntry，保持原有顺序
func FromModel(entries []*model.Entry) []LogEntry {
	result := make([]LogEntry, len(entries))
	for i, e := range entries {
		result[i] = LogEntry{
			Timestamp: e.Timestamp,
			UserName:  e.UserName,
			Content:   e.Content,
		}
	}
	return result
}
