package wrapup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var newlineStripper = strings.NewReplacer("\r", "", "\n", "")

// stripNewlines 去掉换行符，保证一条记录只占一行
func stripNewlines(s string) string {
	return newlineStripper.Replace(s)
}

// displayName 查找显示名称，没有映射时使用原始标识
func displayName(names map[string]string, userName string) string {
	if name, ok := names[userName]; ok {
		return name
	}
	return userName
}

// RenderLines 将记录渲染为 "<显示名称>: <内容>"，每条一行
// 调用方负责事先排序
func RenderLines(entries []LogEntry, names map[string]string) []string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s: %s", displayName(names, e.UserName), stripNewlines(e.Content))
	}
	return lines
}

func (b *Builder) transcriptPath(name string) string {
	return filepath.Join(b.outputDir, name+"_transcript.log")
}

func (b *Builder) outlinePath(name string) string {
	return filepath.Join(b.outputDir, name+"_outline.md")
}

func (b *Builder) outlineHTMLPath(name string) string {
	return filepath.Join(b.outputDir, name+"_outline.html")
}

func (b *Builder) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入文件 %s 失败: %w", path, err)
	}
	return nil
}

// WriteTranscript 写入 <name>_transcript.log 并返回路径
func (b *Builder) WriteTranscript(lines []string, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	path := b.transcriptPath(name)
	if err := b.writeFile(path, []byte(strings.Join(lines, "\n"))); err != nil {
		return "", err
	}
	return path, nil
}
