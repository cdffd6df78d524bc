package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig
	Target    TargetConfig
	Agent     AgentConfig
	LLM       LLMConfig
	Search    SearchConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Server    ServerConfig
	Worker    WorkerConfig
	Telemetry TelemetryConfig
	Research  ResearchConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// TargetConfig describes the site under test.
type TargetConfig struct {
	URL               string
	Headless          bool
	NavigationTimeout time.Duration
	ScreenshotPath    string
}

// AgentConfig selects the decision engine and the model per role.
type AgentConfig struct {
	Provider      string
	MaxTurns      int
	TimeLimit     time.Duration
	ComputerModel string
	PlannerModel  string
	SearchModel   string
	WriterModel   string
	PatchModel    string
}

// LLMConfig holds provider credentials.
type LLMConfig struct {
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	GeminiAPIKey    string
	BedrockRegion   string
	MaxTokens       int
}

// SearchConfig configures the web search tools.
type SearchConfig struct {
	Endpoint   string
	MaxResults int
	MaxChars   int
	Timeout    time.Duration
}

// StorageConfig holds artifact storage configuration.
type StorageConfig struct {
	Type            string // "local" or "s3"
	BaseDir         string
	S3Bucket        string
	S3Region        string
	S3PresignExpiry time.Duration
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver       string
	DSN          string
	Path         string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WorkerConfig sizes the job worker pool.
type WorkerConfig struct {
	MaxConcurrent int
}

// TelemetryConfig controls tracing.
type TelemetryConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string
}

// ResearchConfig configures the research pipeline.
type ResearchConfig struct {
	ReportPath string
}

// LoadConfig loads configuration from file and environment variables.
// Environment variables use the OHACKER_ prefix, e.g. OHACKER_TARGET_URL.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("OHACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config

	config.Log.Level = v.GetString("log.level")
	config.Log.Format = v.GetString("log.format")

	config.Target.URL = v.GetString("target.url")
	config.Target.Headless = v.GetBool("target.headless")
	config.Target.NavigationTimeout = v.GetDuration("target.navigation_timeout")
	config.Target.ScreenshotPath = v.GetString("target.screenshot_path")

	config.Agent.Provider = v.GetString("agent.provider")
	config.Agent.MaxTurns = v.GetInt("agent.max_turns")
	config.Agent.TimeLimit = v.GetDuration("agent.time_limit")
	config.Agent.ComputerModel = v.GetString("agent.computer_model")
	config.Agent.PlannerModel = v.GetString("agent.planner_model")
	config.Agent.SearchModel = v.GetString("agent.search_model")
	config.Agent.WriterModel = v.GetString("agent.writer_model")
	config.Agent.PatchModel = v.GetString("agent.patch_model")

	config.LLM.OpenAIAPIKey = v.GetString("llm.openai_api_key")
	config.LLM.OpenAIBaseURL = v.GetString("llm.openai_base_url")
	config.LLM.AnthropicAPIKey = v.GetString("llm.anthropic_api_key")
	config.LLM.GeminiAPIKey = v.GetString("llm.gemini_api_key")
	config.LLM.BedrockRegion = v.GetString("llm.bedrock_region")
	config.LLM.MaxTokens = v.GetInt("llm.max_tokens")

	config.Search.Endpoint = v.GetString("search.endpoint")
	config.Search.MaxResults = v.GetInt("search.max_results")
	config.Search.MaxChars = v.GetInt("search.max_chars")
	config.Search.Timeout = v.GetDuration("search.timeout")

	config.Storage.Type = v.GetString("storage.type")
	config.Storage.BaseDir = v.GetString("storage.base_dir")
	config.Storage.S3Bucket = v.GetString("storage.s3_bucket")
	config.Storage.S3Region = v.GetString("storage.s3_region")
	config.Storage.S3PresignExpiry = v.GetDuration("storage.s3_presign_expiry")

	config.Database.Driver = v.GetString("database.driver")
	config.Database.DSN = v.GetString("database.dsn")
	config.Database.Path = v.GetString("database.path")
	config.Database.Host = v.GetString("database.host")
	config.Database.Port = v.GetInt("database.port")
	config.Database.User = v.GetString("database.user")
	config.Database.Password = v.GetString("database.password")
	config.Database.Database = v.GetString("database.database")
	config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")

	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetInt("server.port")
	config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("server.write_timeout")

	config.Worker.MaxConcurrent = v.GetInt("worker.max_concurrent")

	config.Telemetry.Enabled = v.GetBool("telemetry.enabled")
	config.Telemetry.ServiceName = v.GetString("telemetry.service_name")
	config.Telemetry.Exporter = v.GetString("telemetry.exporter")

	config.Research.ReportPath = v.GetString("research.report_path")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("target.url", "http://localhost:8080/")
	v.SetDefault("target.headless", false)
	v.SetDefault("target.navigation_timeout", "60s")
	v.SetDefault("target.screenshot_path", "screen.png")

	v.SetDefault("agent.provider", "openai")
	v.SetDefault("agent.max_turns", 20)
	v.SetDefault("agent.time_limit", "30m")
	v.SetDefault("agent.computer_model", "gpt-4.1")
	v.SetDefault("agent.planner_model", "gpt-4o")
	v.SetDefault("agent.search_model", "gpt-4o")
	v.SetDefault("agent.writer_model", "o4-mini")
	v.SetDefault("agent.patch_model", "o4-mini")

	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.openai_base_url", "")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.bedrock_region", "us-east-1")
	v.SetDefault("llm.max_tokens", 4096)

	v.SetDefault("search.endpoint", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.max_results", 8)
	v.SetDefault("search.max_chars", 6000)
	v.SetDefault("search.timeout", "15s")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_dir", ".")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_presign_expiry", "15m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", "ohacker.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "ohacker")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("worker.max_concurrent", 1)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "ohacker")
	v.SetDefault("telemetry.exporter", "stdout")

	v.SetDefault("research.report_path", "report.md")
}
