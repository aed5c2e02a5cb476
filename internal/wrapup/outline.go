package wrapup

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fachebot/talk-wrapup/internal/llm"
	"github.com/fachebot/talk-wrapup/internal/logger"
	"github.com/yuin/goldmark"
)

const recapInstructions = "You will be given a raw voice chat transcript of a D&D 5e game session. " +
	"Be aware that the transcript is generated by an AI speech-to-text model and contains many errors, misinterpretations, and artifacts. " +
	"You will need to internally account for and correct mistakes in order to form a coherent understanding of the story and scenes. " +
	"The model will occasionally hallucinate nonsense phrases and may interpret captured noises as \"Thank you\", \"I don't know\", \"Bye\", \"I love you\" and other common phrases, so watch out for those. " +
	"After interpreting the transcript, generate a detailed and coherent recap, suitable for use as a player's reference material for subsequent sessions. " +
	"Within each scene recap:\n" +
	"- Incorporate memorable or defining quotes that occurred during that scene.\n" +
	"- Any items exchanged, rewards earned, discoveries, or significant plot developments should be noted in detail.\n" +
	"- Highlight any funny or unexpected moments and roleplay elements.\n" +
	"- For combat, it's okay to only cover the most impactful actions, but be sure to include the outcome of the encounter.\n" +
	"Make sure your recap follows the order of events as they unfold in the transcript. Do not make up quotes, and always attribute them. " +
	"Maintain a playful, engaging, and enthusiastic tone without being long-winded.\n"

const recapClosing = "\nOnly output the session recap and nothing else."

// bulletList 渲染为 "- item" 列表，条目内换行符会被去掉
func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + stripNewlines(item)
	}
	return strings.Join(lines, "\n")
}

// systemPrompt 固定指令，tips 非空时追加提示列表
func systemPrompt(tips []string) string {
	var sb strings.Builder
	sb.WriteString(recapInstructions)
	if len(tips) > 0 {
		sb.WriteString("Here are some other tips:\n")
		sb.WriteString(bulletList(tips))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(recapClosing)
	return sb.String()
}

func (b *Builder) outlineRequest(lines []string) llm.Request {
	return llm.Request{
		Model: b.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt(b.tips)},
			{Role: llm.RoleUser, Content: bulletList(lines)},
		},
		MaxTokens:   b.maxTokens,
		Temperature: b.temperature,
	}
}

// RequestOutline 把转录内容交给生成服务并写入 <name>_outline.md
// 未配置生成客户端时跳过，返回 OutlineSkipped 且不写文件
// 生成服务的错误不做处理，直接返回给调用方
func (b *Builder) RequestOutline(ctx context.Context, lines []string, name string) (Outline, error) {
	if err := validateName(name); err != nil {
		return Outline{}, err
	}
	if b.generator == nil {
		logger.Debugf("[Wrapup] 未配置 LLM 客户端，跳过大纲生成: %s", name)
		return Outline{Status: OutlineSkipped}, nil
	}

	logger.Infof("[Wrapup] 使用模型: %s", b.model)
	text, err := b.generator.Generate(ctx, b.outlineRequest(lines))
	if err != nil {
		return Outline{}, fmt.Errorf("生成大纲失败: %w", err)
	}

	outline := Outline{Status: OutlineProduced, Path: b.outlinePath(name)}
	if err := b.writeFile(outline.Path, []byte(text)); err != nil {
		return Outline{}, err
	}

	if b.renderHTML {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(text), &buf); err != nil {
			return Outline{}, fmt.Errorf("渲染大纲 HTML 失败: %w", err)
		}
		outline.HTMLPath = b.outlineHTMLPath(name)
		if err := b.writeFile(outline.HTMLPath, buf.Bytes()); err != nil {
			return Outline{}, err
		}
	}
	return outline, nil
}
