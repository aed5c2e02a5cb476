package llm

import (
	"testing"

	"github.com/fachebot/talk-wrapup/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LLM
		want any
	}{
		{"未配置 APIKey 返回 nil", config.LLM{Provider: config.ProviderOpenAI}, nil},
		{"空白 APIKey 返回 nil", config.LLM{Provider: config.ProviderGemini, APIKey: "  "}, nil},
		{"OpenAI", config.LLM{Provider: config.ProviderOpenAI, APIKey: "sk"}, &OpenAIClient{}},
		{"Gemini", config.LLM{Provider: config.ProviderGemini, APIKey: "gm"}, &GeminiClient{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(&tt.cfg, nil)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestJoinContents(t *testing.T) {
	msgs := []Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "u"},
		{Role: RoleSystem, Content: "b"},
	}
	assert.Equal(t, "a\n\nb", joinContents(msgs, RoleSystem))
	assert.Equal(t, "u", joinContents(msgs, RoleUser))
	assert.Empty(t, joinContents(nil, RoleSystem))
}
