package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/auth/middleware"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/budget"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/llm"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/database"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/redis"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. NEXUS_DATABASE_HOST
const EnvPrefix = "NEXUS"

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  *database.Config `mapstructure:"database"`
	Redis     *redis.Config    `mapstructure:"redis"`
	Log       *logger.Config   `mapstructure:"log"`
	Auth      AuthConfig       `mapstructure:"auth"`
	LLM       llm.Config       `mapstructure:"llm"`
	Assistant AssistantConfig  `mapstructure:"assistant"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// AssistantConfig drives budgeting, prompt assembly and compaction
type AssistantConfig struct {
	budget.Config `mapstructure:",squash"`

	SystemPrompt  string                 `mapstructure:"system_prompt"` // empty: built-in prompt
	Tools         []types.ToolDefinition `mapstructure:"tools"`
	TokenEncoding string                 `mapstructure:"token_encoding"`

	ContextRoot  string `mapstructure:"context_root"` // empty: content must be supplied when pinning
	MaxFileBytes int    `mapstructure:"max_file_bytes"`

	KeepUserTurns       int                          `mapstructure:"keep_user_turns"`
	CompactionLockTTL   time.Duration                `mapstructure:"compaction_lock_ttl"`
	CompactionRateLimit middleware.RateLimiterConfig `mapstructure:"compaction_rate_limit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	// compaction waits on the summarizer
	v.SetDefault("server.write_timeout", 6*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	db := database.DefaultConfig()
	v.SetDefault("database.host", db.Host)
	v.SetDefault("database.port", db.Port)
	v.SetDefault("database.user", db.User)
	v.SetDefault("database.password", db.Password)
	v.SetDefault("database.dbname", db.DBName)
	v.SetDefault("database.sslmode", db.SSLMode)
	v.SetDefault("database.timezone", db.Timezone)
	v.SetDefault("database.max_idle_conns", db.MaxIdleConns)
	v.SetDefault("database.max_open_conns", db.MaxOpenConns)
	v.SetDefault("database.conn_max_lifetime", db.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", db.ConnMaxIdleTime)
	v.SetDefault("database.log_level", db.LogLevel)
	v.SetDefault("database.slow_threshold", db.SlowThreshold)
	v.SetDefault("database.prepare_stmt", db.PrepareStmt)
	v.SetDefault("database.auto_migrate", db.AutoMigrate)

	rc := redis.DefaultConfig()
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.mode", string(rc.Mode))
	v.SetDefault("redis.addr", rc.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", rc.PoolSize)
	v.SetDefault("redis.min_idle_conns", rc.MinIdleConns)
	v.SetDefault("redis.dial_timeout", rc.DialTimeout)
	v.SetDefault("redis.read_timeout", rc.ReadTimeout)
	v.SetDefault("redis.write_timeout", rc.WriteTimeout)
	v.SetDefault("redis.max_retries", rc.MaxRetries)
	v.SetDefault("redis.key_prefix", rc.KeyPrefix)

	lc := logger.DefaultConfig()
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.format", lc.Format)
	v.SetDefault("log.output", lc.Output)
	v.SetDefault("log.enable_stacktrace", lc.EnableStacktrace)
	v.SetDefault("log.file.filename", lc.File.Filename)
	v.SetDefault("log.file.max_size", lc.File.MaxSize)
	v.SetDefault("log.file.max_age", lc.File.MaxAge)
	v.SetDefault("log.file.max_backups", lc.File.MaxBackups)
	v.SetDefault("log.file.compress", lc.File.Compress)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "nexuscrm")

	v.SetDefault("llm.base_url", llm.DefaultBaseURL)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", llm.DefaultModel)
	v.SetDefault("llm.timeout", llm.DefaultTimeout)

	bc := budget.DefaultConfig()
	v.SetDefault("assistant.max_context_tokens", bc.MaxTokens)
	v.SetDefault("assistant.warn_percent", bc.WarnPercent)
	v.SetDefault("assistant.compact_min_tokens", bc.CompactMinTokens)
	v.SetDefault("assistant.auto_compact_threshold", bc.AutoCompactThreshold)
	v.SetDefault("assistant.system_prompt", "")
	v.SetDefault("assistant.token_encoding", budget.DefaultEncoding)
	v.SetDefault("assistant.context_root", "")
	v.SetDefault("assistant.max_file_bytes", 1<<20)
	v.SetDefault("assistant.keep_user_turns", 2)
	v.SetDefault("assistant.compaction_lock_ttl", 10*time.Minute)
	v.SetDefault("assistant.compaction_rate_limit.max_requests", 10)
	v.SetDefault("assistant.compaction_rate_limit.window", time.Minute)
}

// LoadConfig reads path (optional) and applies NEXUS_* environment overrides
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Redis.Enabled {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth: jwt_secret is required")
	}
	if err := c.Assistant.Config.Validate(); err != nil {
		return fmt.Errorf("assistant: %w", err)
	}
	return nil
}
