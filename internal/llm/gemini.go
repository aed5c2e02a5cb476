package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fachebot/talk-wrapup/internal/config"
	"github.com/fachebot/talk-wrapup/internal/logger"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiCaller 执行一次 GenerateContent 调用（便于测试注入）
type geminiCaller func(ctx context.Context, model string, system string, parts []genai.Part, maxTokens int32, temperature float32) (*genai.GenerateContentResponse, error)

type GeminiClient struct {
	config *config.LLM
	call   geminiCaller

	mu          sync.Mutex
	genaiClient *genai.Client
}

func NewGeminiClient(cfg *config.LLM) *GeminiClient {
	c := &GeminiClient{config: cfg}
	c.call = c.generateContent
	return c
}

// getClient 首次使用时创建 genai 客户端，之后复用
func (c *GeminiClient) getClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genaiClient != nil {
		return c.genaiClient, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}
	c.genaiClient = client
	logger.Debugf("[LLM] Gemini 客户端已创建")
	return client, nil
}

func (c *GeminiClient) generateContent(ctx context.Context, model string, system string, parts []genai.Part, maxTokens int32, temperature float32) (*genai.GenerateContentResponse, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	gm := client.GenerativeModel(model)
	gm.SetTemperature(temperature)
	gm.SetMaxOutputTokens(maxTokens)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	return gm.GenerateContent(ctx, parts...)
}

// Generate system 消息作为 SystemInstruction，其余消息作为内容发送
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	system := joinContents(req.Messages, RoleSystem)
	var parts []genai.Part
	for _, m := range req.Messages {
		if m.Role != RoleSystem {
			parts = append(parts, genai.Text(m.Content))
		}
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.config.Timeout)*time.Second)
		defer cancel()
	}

	resp, err := c.call(ctx, model, system, parts, int32(req.MaxTokens), req.Temperature)
	if err != nil {
		return "", fmt.Errorf("调用 LLM API 失败: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// Close 释放 genai 客户端
func (c *GeminiClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genaiClient == nil {
		return nil
	}
	err := c.genaiClient.Close()
	c.genaiClient = nil
	return err
}
