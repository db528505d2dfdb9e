package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// AdminToken 保护 /admin 下的连接管理接口，为空时接口关闭
	AdminToken string `mapstructure:"admin_token"`
}

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	// DSN 非空时直接使用，忽略上面的分项
	DSN                    string `mapstructure:"dsn"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	// LogLevel: silent / error / warn / info
	LogLevel string `mapstructure:"log_level"`
	// SwapGraceSeconds 热切换后旧连接池延迟关闭的时间
	SwapGraceSeconds int `mapstructure:"swap_grace_seconds"`
}

func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

func (c DatabaseConfig) SwapGrace() time.Duration {
	return time.Duration(c.SwapGraceSeconds) * time.Second
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// MaxLen 事件流的近似最大长度
	MaxLen int64 `mapstructure:"max_len"`
}

type KafkaConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

// KafkaTopicConfig 事件主题，为空表示不产生该类事件。Redis 投递时用作 stream 名。
type KafkaTopicConfig struct {
	Purchase string `mapstructure:"purchase"`
	Claim    string `mapstructure:"claim"`
	Recharge string `mapstructure:"recharge"`
}

type OutboxConfig struct {
	IntervalMillis int `mapstructure:"interval_ms"`
	BatchSize      int `mapstructure:"batch_size"`
	MaxRetryCount  int `mapstructure:"max_retry_count"`
}

func (c OutboxConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMillis) * time.Millisecond
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.driver", DriverMySQL)
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "cafehub")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_minutes", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.swap_grace_seconds", 30)

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.max_len", 100000)

	v.SetDefault("outbox.interval_ms", 500)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.max_retry_count", 5)

	v.SetDefault("telemetry.service_name", "cafehub")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
}

// Loader 持有 viper 实例，支持重新加载和文件监听
type Loader struct {
	v    *viper.Viper
	path string
}

func NewLoader(configPath string) *Loader {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CAFEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return &Loader{v: v, path: configPath}
}

// Load 读取并校验配置。文件不存在时只使用默认值和环境变量。
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		log.Printf("[Config] 配置文件 %s 不存在，使用默认配置", l.path)
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch 监听配置文件变化，变化后重新加载并回调。解析失败的新配置会被丢弃。
func (l *Loader) Watch(onChange func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.Load()
		if err != nil {
			log.Printf("[Config] 配置变更后重新加载失败，保留旧配置: %v", err)
			return
		}
		log.Printf("[Config] 配置已重新加载: %s", e.Name)
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	if c.Database.Driver == DriverSQLite && c.Database.DSN == "" {
		return errors.New("sqlite 驱动必须配置 database.dsn")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka 已启用但未配置 brokers")
	}
	if c.Outbox.BatchSize <= 0 {
		return errors.New("outbox.batch_size 必须大于0")
	}
	if c.Outbox.MaxRetryCount <= 0 {
		return errors.New("outbox.max_retry_count 必须大于0")
	}
	return nil
}
