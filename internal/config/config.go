package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀，例如 HWD_GAME_TOTAL_ROUNDS
const EnvPrefix = "HWD"

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig WebSocket/HTTP 服务器配置
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	MaxConnections  int    `yaml:"max_connections"`
	AllowGuest      bool   `yaml:"allow_guest"`      // 允许通过 ?playerId=&name= 直接连接
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // 等待对局结束（秒）
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PostgresConfig PostgreSQL 配置，DSN 为空时不记录对局
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	MaxConns       int    `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
	LoadWords      bool   `yaml:"load_words"` // 启动时从 words 表加载词库
}

// GameConfig 对局配置
type GameConfig struct {
	TotalChances   int `yaml:"total_chances"`   // 每名玩家整场的猜错次数
	TotalRounds    int `yaml:"total_rounds"`    // 每场回合数
	RoundDuration  int `yaml:"round_duration"`  // 回合时长（秒）
	InitialReveal  int `yaml:"initial_reveal"`  // 开局揭示字母数
	RevealInterval int `yaml:"reveal_interval"` // 追加揭示间隔（秒），0 关闭
	WordMinLength  int `yaml:"word_min_length"`
	WordMaxLength  int `yaml:"word_max_length"` // 0 表示不限长度
	TickInterval   int `yaml:"tick_interval"` // 倒计时间隔（毫秒）
	RoomTimeout    int `yaml:"room_timeout"`  // 等待开局超时（分钟）
	InviteTTL      int `yaml:"invite_ttl"`    // 邀请有效期（秒）
	QueueSize      int `yaml:"queue_size"`    // 每个房间写入队列长度

	ShutdownCheckInterval int `yaml:"shutdown_check_interval"` // 关闭时检查对局的间隔（秒）
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
}

// RateLimitConfig 每个 IP 的建连速率
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 秒
}

// MessageLimitConfig 每个连接的消息速率
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	Burst        int `yaml:"burst"`
	MaxWarnings  int `yaml:"max_warnings"` // 超过后断开连接
}

// AuthConfig JWT 配置
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	TokenTTL  int    `yaml:"token_ttl"` // 小时
}

// RoundDurationTime 返回回合时长
func (c *GameConfig) RoundDurationTime() time.Duration {
	return time.Duration(c.RoundDuration) * time.Second
}

// TickIntervalDuration 返回倒计时间隔
func (c *GameConfig) TickIntervalDuration() time.Duration {
	return time.Duration(c.TickInterval) * time.Millisecond
}

// RoomTimeoutDuration 返回房间等待超时时长
func (c *GameConfig) RoomTimeoutDuration() time.Duration {
	return time.Duration(c.RoomTimeout) * time.Minute
}

// InviteTTLDuration 返回邀请有效期
func (c *GameConfig) InviteTTLDuration() time.Duration {
	return time.Duration(c.InviteTTL) * time.Second
}

// ShutdownCheckIntervalDuration 返回关闭检查间隔
func (c *GameConfig) ShutdownCheckIntervalDuration() time.Duration {
	return time.Duration(c.ShutdownCheckInterval) * time.Second
}

// ShutdownTimeoutDuration 返回优雅关闭的等待上限
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// TokenTTLDuration 返回令牌有效期
func (c *AuthConfig) TokenTTLDuration() time.Duration {
	return time.Duration(c.TokenTTL) * time.Hour
}

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults 为零值字段设置默认值
func (c *Config) applyDefaults() {
	setDefault(&c.Server.Host, "0.0.0.0")
	setDefault(&c.Server.Port, 3002)
	setDefault(&c.Server.MaxConnections, 1000)
	setDefault(&c.Server.ShutdownTimeout, 120)

	setDefault(&c.Redis.Addr, "localhost:6379")

	setDefault(&c.Postgres.MaxConns, 10)

	setDefault(&c.Game.TotalChances, 5)
	setDefault(&c.Game.TotalRounds, 5)
	setDefault(&c.Game.RoundDuration, 10)
	setDefault(&c.Game.InitialReveal, 2)
	setDefault(&c.Game.WordMinLength, 4)
	setDefault(&c.Game.WordMaxLength, 8)
	setDefault(&c.Game.TickInterval, 1000)
	setDefault(&c.Game.RoomTimeout, 10)
	setDefault(&c.Game.InviteTTL, 60)
	setDefault(&c.Game.QueueSize, 64)
	setDefault(&c.Game.ShutdownCheckInterval, 5)

	if len(c.Security.AllowedOrigins) == 0 {
		c.Security.AllowedOrigins = []string{"http://localhost:3000"}
	}
	setDefault(&c.Security.RateLimit.MaxPerSecond, 5)
	setDefault(&c.Security.RateLimit.MaxPerMinute, 60)
	setDefault(&c.Security.RateLimit.BanDuration, 60)
	setDefault(&c.Security.MessageLimit.MaxPerSecond, 10)
	setDefault(&c.Security.MessageLimit.Burst, 20)
	setDefault(&c.Security.MessageLimit.MaxWarnings, 5)

	setDefault(&c.Auth.Issuer, "hidden-word-duel")
	setDefault(&c.Auth.TokenTTL, 24*7)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// ApplyEnv 使用环境变量覆盖配置，键名形如 HWD_SERVER_PORT
func (c *Config) ApplyEnv() {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, field := range c.envBindings() {
		_ = v.BindEnv(key)
		if !v.IsSet(key) {
			continue
		}
		switch ptr := field.(type) {
		case *string:
			*ptr = v.GetString(key)
		case *int:
			*ptr = v.GetInt(key)
		case *bool:
			*ptr = v.GetBool(key)
		case *[]string:
			*ptr = splitList(v.GetString(key))
		}
	}
}

// envBindings 可被环境变量覆盖的配置项
func (c *Config) envBindings() map[string]any {
	return map[string]any{
		"server.host":             &c.Server.Host,
		"server.port":             &c.Server.Port,
		"server.max_connections":  &c.Server.MaxConnections,
		"server.allow_guest":      &c.Server.AllowGuest,
		"server.shutdown_timeout": &c.Server.ShutdownTimeout,

		"redis.addr":     &c.Redis.Addr,
		"redis.password": &c.Redis.Password,
		"redis.db":       &c.Redis.DB,

		"postgres.dsn":              &c.Postgres.DSN,
		"postgres.max_conns":        &c.Postgres.MaxConns,
		"postgres.migrate_on_start": &c.Postgres.MigrateOnStart,
		"postgres.load_words":       &c.Postgres.LoadWords,

		"game.total_chances":   &c.Game.TotalChances,
		"game.total_rounds":    &c.Game.TotalRounds,
		"game.round_duration":  &c.Game.RoundDuration,
		"game.initial_reveal":  &c.Game.InitialReveal,
		"game.reveal_interval": &c.Game.RevealInterval,
		"game.word_min_length": &c.Game.WordMinLength,
		"game.word_max_length": &c.Game.WordMaxLength,
		"game.tick_interval":   &c.Game.TickInterval,
		"game.room_timeout":    &c.Game.RoomTimeout,
		"game.invite_ttl":      &c.Game.InviteTTL,

		"security.allowed_origins":             &c.Security.AllowedOrigins,
		"security.message_limit.max_per_second": &c.Security.MessageLimit.MaxPerSecond,

		"auth.jwt_secret": &c.Auth.JWTSecret,
		"auth.issuer":     &c.Auth.Issuer,
		"auth.token_ttl":  &c.Auth.TokenTTL,
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port))
	}
	if c.Game.TotalRounds < 1 {
		errs = append(errs, fmt.Errorf("game.total_rounds must be positive: %d", c.Game.TotalRounds))
	}
	if c.Game.TotalChances < 1 {
		errs = append(errs, fmt.Errorf("game.total_chances must be positive: %d", c.Game.TotalChances))
	}
	if c.Game.RoundDuration < 1 {
		errs = append(errs, fmt.Errorf("game.round_duration must be positive: %d", c.Game.RoundDuration))
	}
	if c.Game.InitialReveal < 0 || c.Game.InitialReveal > c.Game.WordMinLength {
		errs = append(errs, fmt.Errorf("game.initial_reveal must be within [0, word_min_length]: %d", c.Game.InitialReveal))
	}
	if c.Game.WordMaxLength > 0 && c.Game.WordMinLength > c.Game.WordMaxLength {
		errs = append(errs, fmt.Errorf("game.word_min_length %d exceeds word_max_length %d", c.Game.WordMinLength, c.Game.WordMaxLength))
	}
	if c.Game.RevealInterval < 0 {
		errs = append(errs, fmt.Errorf("game.reveal_interval must not be negative: %d", c.Game.RevealInterval))
	}
	return errors.Join(errs...)
}
