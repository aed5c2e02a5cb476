package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fachebot/talk-wrapup/internal/config"
	"github.com/fachebot/talk-wrapup/internal/logger"
)

// ErrEmptyResponse 生成服务没有返回任何候选结果
var ErrEmptyResponse = errors.New("LLM API 返回空结果")

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message 带角色的单条对话消息
type Message struct {
	Role    Role
	Content string
}

// Request 一次文本生成请求
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Generator 文本生成服务，返回第一个候选结果的原始文本
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// New 按配置创建生成客户端，未配置 APIKey 时返回 nil
// 返回的客户端不保存请求级状态，可在多次调用间复用
func New(cfg *config.LLM, transport *http.Transport) Generator {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		if transport != nil {
			logger.Warnf("[LLM] Gemini 客户端不走 Sock5Proxy，直接连接")
		}
		return NewGeminiClient(cfg)
	default:
		return NewOpenAIClient(cfg, newHTTPClient(cfg, transport))
	}
}

func newHTTPClient(cfg *config.LLM, transport *http.Transport) *http.Client {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Timeout) * time.Second,
	}
	if transport != nil {
		httpClient.Transport = transport
	}
	return httpClient
}

// joinContents 合并同一角色的多条消息
func joinContents(msgs []Message, role Role) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == role {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
