package wrapup

import (
	"context"
	"sort"
	"strings"

	"github.com/fachebot/talk-wrapup/internal/config"
	"github.com/fachebot/talk-wrapup/internal/llm"
	"github.com/fachebot/talk-wrapup/internal/logger"
)

type Builder struct {
	outputDir   string
	userNames   map[string]string
	tips        []string
	renderHTML  bool
	generator   llm.Generator // nil 表示未配置，大纲生成会被跳过
	model       string
	maxTokens   int
	temperature float32
}

// NewBuilder generator 可为 nil，同一个 Builder 可被并发复用
func NewBuilder(cfg *config.Wrapup, llmCfg *config.LLM, generator llm.Generator) *Builder {
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = config.DefaultOutputDir
	}
	return &Builder{
		outputDir:   outputDir,
		userNames:   cfg.UserNames,
		tips:        cfg.Tips,
		renderHTML:  cfg.RenderHTML,
		generator:   generator,
		model:       llmCfg.Model,
		maxTokens:   llmCfg.MaxTokens,
		temperature: llmCfg.GetTemperature(),
	}
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return ErrInvalidName
	}
	return nil
}

// SortEntries 按时间升序稳定排序（原地），相同时间保持输入顺序
func SortEntries(entries []LogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}

// Build 排序记录、写入转录文件，outline 为 true 时再请求大纲
// entries 会被原地排序
func (b *Builder) Build(ctx context.Context, entries []LogEntry, name string, outline bool) (*Result, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	SortEntries(entries)
	lines := RenderLines(entries, b.userNames)

	chatlogPath, err := b.WriteTranscript(lines, name)
	if err != nil {
		return nil, err
	}
	logger.Infof("[Wrapup] 已写入转录文件: %s (%d 条记录)", chatlogPath, len(lines))

	result := &Result{ChatlogPath: chatlogPath}
	if !outline {
		return result, nil
	}

	result.Outline, err = b.RequestOutline(ctx, lines, name)
	if err != nil {
		return nil, err
	}
	if result.Outline.Status == OutlineProduced {
		logger.Infof("[Wrapup] 已写入大纲文件: %s", result.Outline.Path)
	}
	return result, nil
}
