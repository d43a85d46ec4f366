// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
// 启动时构造一次，再显式传递给各个组件。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Log           LogConfig           `mapstructure:"log"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Identity      IdentityConfig      `mapstructure:"identity"`
	Search        SearchConfig        `mapstructure:"search"`
	Webhook       WebhookConfig       `mapstructure:"webhook"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Browser       BrowserConfig       `mapstructure:"browser"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RedisConfig 存储会话记忆所用 Redis 的配置。
type RedisConfig struct {
	URL           string `mapstructure:"url"`
	KeyPrefix     string `mapstructure:"key_prefix"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Retention 返回会话日志的保留时长。
func (c RedisConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// LLMConfig 存储推理网关（OpenRouter 兼容接口）相关的配置。
type LLMConfig struct {
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	TimeoutSeconds int                 `mapstructure:"timeout_seconds"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
	Models         LLMModelsConfig     `mapstructure:"models"`
}

// LLMGenerationConfig 配置生成相关参数。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LLMModelsConfig 是各路由目标对应的后端模型标识。
type LLMModelsConfig struct {
	Web      string `mapstructure:"web"`
	Code     string `mapstructure:"code"`
	Creative string `mapstructure:"creative"`
	Fast     string `mapstructure:"fast"`
	Default  string `mapstructure:"default"`
}

// IdentityConfig 描述助手身份，用于构建 system 提示。
type IdentityConfig struct {
	Name         string   `mapstructure:"name"`
	Creator      string   `mapstructure:"creator"`
	Version      string   `mapstructure:"version"`
	Capabilities []string `mapstructure:"capabilities"`
}

// SearchConfig 存储网页搜索（DuckDuckGo Instant Answer）的配置。
type SearchConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRelated     int    `mapstructure:"max_related"`
}

// WebhookConfig 存储回调通知的配置，URL 为空时不发送。
type WebhookConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时相关功能关闭。
type KafkaConfig struct {
	Brokers     string `mapstructure:"brokers"`
	TurnTopic   string `mapstructure:"turn_topic"`
	BrowseTopic string `mapstructure:"browse_topic"`
	GroupID     string `mapstructure:"group_id"`
}

// Enabled 表示是否配置了 Kafka。
func (c KafkaConfig) Enabled() bool {
	return c.Brokers != ""
}

// BrowserConfig 存储无头浏览器代理的配置。
type BrowserConfig struct {
	ExecPath                 string `mapstructure:"exec_path"`
	NavigationTimeoutSeconds int    `mapstructure:"navigation_timeout_seconds"`
	CaptchaWaitSeconds       int    `mapstructure:"captcha_wait_seconds"`
	MaxTextLength            int    `mapstructure:"max_text_length"`
}

// MinIOConfig 存储截图归档所用 MinIO 的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// ElasticsearchConfig 存储页面归档索引的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})

	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("redis.key_prefix", "yeti:memory:")
	v.SetDefault("redis.retention_days", 30)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.timeout_seconds", 30)
	v.SetDefault("llm.generation.temperature", 0.7)
	v.SetDefault("llm.generation.max_tokens", 2000)
	v.SetDefault("llm.models.web", "google/gemini-pro")
	v.SetDefault("llm.models.code", "openai/gpt-4-turbo")
	v.SetDefault("llm.models.creative", "mistralai/mixtral-8x7b-instruct")
	v.SetDefault("llm.models.fast", "anthropic/claude-3-haiku")
	v.SetDefault("llm.models.default", "google/gemini-pro")

	v.SetDefault("identity.name", "Yeti AI")
	v.SetDefault("identity.creator", "Yethikrishna R.")
	v.SetDefault("identity.version", "1.0")
	v.SetDefault("identity.capabilities", []string{
		"Autonomous web browsing",
		"Real-time search and analysis",
		"Code generation and debugging",
		"Multi-language understanding",
		"Memory and context retention",
		"Task planning and execution",
	})

	v.SetDefault("search.base_url", "https://api.duckduckgo.com/")
	v.SetDefault("search.timeout_seconds", 10)
	v.SetDefault("search.max_related", 5)

	v.SetDefault("webhook.timeout_seconds", 5)

	v.SetDefault("kafka.turn_topic", "yeti.turns")
	v.SetDefault("kafka.browse_topic", "yeti.browse-tasks")
	v.SetDefault("kafka.group_id", "yeti-ai-go-browse")

	v.SetDefault("browser.navigation_timeout_seconds", 60)
	v.SetDefault("browser.captcha_wait_seconds", 5)
	v.SetDefault("browser.max_text_length", 2000)

	v.SetDefault("minio.bucket_name", "yeti-screenshots")
	v.SetDefault("elasticsearch.index_name", "yeti_pages")
}

// Load 从指定路径读取 YAML 配置并叠加环境变量。
// 配置文件不存在时只使用默认值与环境变量。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	// 与原有部署保持一致的环境变量名
	_ = v.BindEnv("llm.api_key", "OPENROUTER_API_KEY")
	_ = v.BindEnv("webhook.url", "YETI_WEBHOOK_URL")
	_ = v.BindEnv("redis.url", "REDIS_URL")
	v.SetEnvPrefix("YETI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("无法访问配置文件: %w", err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return conf, nil
}

// MustLoad 与 Load 相同，但在失败时直接 panic，供 main 使用。
func MustLoad(configPath string) Config {
	conf, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	return conf
}
