package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	DefaultOutputDir   = "wrapups"
	DefaultMaxTokens   = 10240
	DefaultTemperature = 0.05
	DefaultStorePath   = "data/sqlite.db"
)

type Sock5Proxy struct {
	Host   string `yaml:"Host"`
	Port   int32  `yaml:"Port"`
	Enable bool   `yaml:"Enable"`
}

type LLM struct {
	Provider    string   `yaml:"Provider"` // "openai" / "gemini"
	BaseURL     string   `yaml:"BaseURL"`  // 兼容 OpenAI API 的端点，留空使用官方地址
	APIKey      string   `yaml:"APIKey"`   // 留空则跳过大纲生成
	Model       string   `yaml:"Model"`    // 如 gpt-4o, gemini-1.5-pro
	MaxTokens   int      `yaml:"MaxTokens"`
	Temperature *float32 `yaml:"Temperature"` // 未配置时取默认值，0 表示确定性输出
	Timeout     int      `yaml:"Timeout"`     // 请求超时（秒），0 表示不限制
}

// GetTemperature 返回采样温度，未配置时返回 DefaultTemperature
func (l *LLM) GetTemperature() float32 {
	if l.Temperature == nil {
		return DefaultTemperature
	}
	return *l.Temperature
}

type Wrapup struct {
	OutputDir  string            `yaml:"OutputDir"`
	UserNames  map[string]string `yaml:"UserNames"` // 用户标识 -> 显示名称
	Tips       []string          `yaml:"Tips"`
	RenderHTML bool              `yaml:"RenderHTML"`
}

type Store struct {
	Path string `yaml:"Path"`
}

type ScheduleJob struct {
	Session string `yaml:"Session"`
	Name    string `yaml:"Name"`
	Outline bool   `yaml:"Outline"`
}

type Schedule struct {
	Cron string        `yaml:"Cron"` // cron 表达式，如 "*/30 * * * *"
	Jobs []ScheduleJob `yaml:"Jobs"`
}

type Config struct {
	Sock5Proxy Sock5Proxy `yaml:"Sock5Proxy"`
	LLM        LLM        `yaml:"LLM"`
	Wrapup     Wrapup     `yaml:"Wrapup"`
	Store      Store      `yaml:"Store"`
	Schedule   Schedule   `yaml:"Schedule"`
}

func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Load 解析 YAML 配置，并用环境变量（含 .env 文件）补全凭据
func Load(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	// .env 文件可选，不存在时忽略
	_ = godotenv.Load()
	c.applyEnv()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("LLM_API_KEY")
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case ProviderGemini:
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if model := os.Getenv("LLM_MODEL"); model != "" && c.LLM.Model == "" {
		c.LLM.Model = model
	}
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case ProviderGemini:
			c.LLM.Model = "gemini-1.5-pro"
		default:
			c.LLM.Model = "gpt-4o"
		}
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = DefaultMaxTokens
	}
	if c.LLM.Temperature == nil {
		t := float32(DefaultTemperature)
		c.LLM.Temperature = &t
	}
	if c.Wrapup.OutputDir == "" {
		c.Wrapup.OutputDir = DefaultOutputDir
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	// 验证 LLM，APIKey 允许为空
	if c.LLM.Provider != ProviderOpenAI && c.LLM.Provider != ProviderGemini {
		return fmt.Errorf("LLM.Provider 必须是 'openai' 或 'gemini'")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM.MaxTokens 必须大于 0")
	}
	if t := c.LLM.GetTemperature(); t < 0 || t > 2 {
		return fmt.Errorf("LLM.Temperature 必须在 0 到 2 之间")
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("LLM.Timeout 必须 >= 0")
	}

	// 验证 Sock5Proxy
	if c.Sock5Proxy.Enable {
		if c.Sock5Proxy.Host == "" {
			return fmt.Errorf("Sock5Proxy.Host 不能为空")
		}
		if c.Sock5Proxy.Port <= 0 {
			return fmt.Errorf("Sock5Proxy.Port 必须大于 0")
		}
	}

	// 验证 Schedule
	if len(c.Schedule.Jobs) > 0 && c.Schedule.Cron == "" {
		return fmt.Errorf("Schedule.Cron 不能为空（当配置了 Schedule.Jobs 时）")
	}
	for i, job := range c.Schedule.Jobs {
		if job.Session == "" {
			return fmt.Errorf("Schedule.Jobs[%d].Session 不能为空", i)
		}
		if job.Name == "" {
			return fmt.Errorf("Schedule.Jobs[%d].Name 不能为空", i)
		}
	}

	return nil
}
