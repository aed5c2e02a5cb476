package model

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type jsonlEntry struct {
	Timestamp time.Time `json:"timestamp"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
}

// ReadEntriesJSONL 解析 JSON Lines 格式的记录导出，每行一个 {"timestamp","user_name","content"}
// 空行会被忽略
func ReadEntriesJSONL(r io.Reader, session string) ([]*EntryData, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var result []*EntryData
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var item jsonlEntry
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("解析第 %d 行失败: %w", lineNo, err)
		}
		if item.UserName == "" {
			return nil, fmt.Errorf("第 %d 行缺少 user_name", lineNo)
		}
		if item.Timestamp.IsZero() {
			return nil, fmt.Errorf("第 %d 行缺少 timestamp", lineNo)
		}
		result = append(result, &EntryData{
			Session:   session,
			UserName:  item.UserName,
			Content:   item.Content,
			Timestamp: item.Timestamp,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
