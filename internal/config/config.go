package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	AI       AIConfig
	HelpDesk HelpDeskConfig
	Identify IdentifyConfig
	Storage  StorageConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	helpDesk, err := loadHelpDeskConfig()
	if err != nil {
		return nil, err
	}

	identify, err := loadIdentifyConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Log:      loadLogConfig(),
		AI:       ai,
		HelpDesk: helpDesk,
		Identify: identify,
		Storage:  loadStorageConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr          string
	SessionSecret string
	SecureCookies bool
	MCPEnabled    bool
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	var addr string
	switch {
	case strings.Contains(port, ":"):
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		addr = ":" + port
	}

	secure, err := parseBoolEnv("SESSION_SECURE_COOKIES", false)
	if err != nil {
		return ServerConfig{}, err
	}

	mcpEnabled, err := parseBoolEnv("MCP_ENABLED", true)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Addr:          addr,
		SessionSecret: strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		SecureCookies: secure,
		MCPEnabled:    mcpEnabled,
	}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

// Provider names accepted by AI_PROVIDER.
const (
	ProviderGateway = "gateway"
	ProviderArk     = "ark"
	ProviderGemini  = "gemini"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	AccessKey   string
	SecretKey   string
	Region      string
	Temperature *float64
	MaxTokens   *int
	Timeout     time.Duration
}

// Enabled 表示是否提供了所选供应商必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	case ProviderGateway, ProviderGemini:
		return c.Model != "" && c.APIKey != ""
	}
	return false
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGateway))

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("AI_TIMEOUT", 60*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider:    provider,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
	}

	switch provider {
	case ProviderGateway:
		cfg.APIKey = strings.TrimSpace(os.Getenv("AI_GATEWAY_API_KEY"))
		cfg.BaseURL = getEnvOrDefault("AI_GATEWAY_URL", "https://ai.gateway.lovable.dev/v1/chat/completions")
		cfg.Model = getEnvOrDefault("AI_MODEL", "google/gemini-2.5-flash")
	case ProviderArk:
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		cfg.AccessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		cfg.SecretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
		cfg.BaseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
		cfg.Model = strings.TrimSpace(os.Getenv("AI_MODEL"))
	case ProviderGemini:
		cfg.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		cfg.Model = getEnvOrDefault("AI_MODEL", "gemini-2.5-flash")
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	return cfg, nil
}

// HelpDeskConfig 描述外部帮助中心搜索接口。
type HelpDeskConfig struct {
	BaseURL       string
	Timeout       time.Duration
	AskRatePerMin float64
	AskBurst      int
}

func loadHelpDeskConfig() (HelpDeskConfig, error) {
	timeout, err := parseDurationEnv("HELPDESK_TIMEOUT", 15*time.Second)
	if err != nil {
		return HelpDeskConfig{}, err
	}

	rate := 20.0
	if override, err := parseOptionalFloatEnv("ASK_RATE_PER_MINUTE"); err != nil {
		return HelpDeskConfig{}, err
	} else if override != nil {
		rate = *override
	}

	burst := 5
	if override, err := parseOptionalIntEnv("ASK_BURST"); err != nil {
		return HelpDeskConfig{}, err
	} else if override != nil && *override > 0 {
		burst = *override
	}

	return HelpDeskConfig{
		BaseURL:       strings.TrimRight(getEnvOrDefault("HELPDESK_BASE_URL", "https://ramp.zendesk.com"), "/"),
		Timeout:       timeout,
		AskRatePerMin: rate,
		AskBurst:      burst,
	}, nil
}

// IdentifyConfig 描述访客公司识别服务。
type IdentifyConfig struct {
	APIKey  string
	BaseURL string
	// Window is how long a visitor waits for identification before falling back to manual selection.
	Window  time.Duration
	Timeout time.Duration
}

// Enabled 表示是否配置了识别服务密钥。
func (c IdentifyConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadIdentifyConfig() (IdentifyConfig, error) {
	window, err := parseDurationEnv("IDENTIFY_WINDOW", 3*time.Second)
	if err != nil {
		return IdentifyConfig{}, err
	}

	timeout, err := parseDurationEnv("IDENTIFY_TIMEOUT", 10*time.Second)
	if err != nil {
		return IdentifyConfig{}, err
	}

	return IdentifyConfig{
		APIKey:  strings.TrimSpace(os.Getenv("SNITCHER_API_KEY")),
		BaseURL: strings.TrimRight(getEnvOrDefault("IDENTIFY_BASE_URL", "https://api.snitcher.com"), "/"),
		Window:  window,
		Timeout: timeout,
	}, nil
}

// StorageConfig 描述访客状态的持久化位置。
type StorageConfig struct {
	Driver string
	Path   string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Driver: strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", "sqlite")),
		Path:   getEnvOrDefault("STORAGE_PATH", "data/help-center.db"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
