package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"DATABASE_"`
	Logger    LoggerConfig    `yaml:"logger" envPrefix:"LOGGER_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	Directory DirectoryConfig `yaml:"directory" envPrefix:"DIRECTORY_"`
	Metrics   MetricsConfig   `yaml:"metrics" envPrefix:"METRICS_"`
}

// ServerConfig は gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr         string        `yaml:"listen_addr" env:"LISTEN_ADDR"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig は永続化に関する設定です。Driver が memory の場合は接続情報を使用しません。
type DatabaseConfig struct {
	Driver             string        `yaml:"driver" env:"DRIVER"`
	Host               string        `yaml:"host" env:"HOST"`
	Port               int           `yaml:"port" env:"PORT"`
	User               string        `yaml:"user" env:"USER"`
	Password           string        `yaml:"password" env:"PASSWORD"`
	Name               string        `yaml:"name" env:"NAME"`
	SSLMode            string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns       int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns       int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
	MigrationsPath     string        `yaml:"migrations_path" env:"MIGRATIONS_PATH"`
}

// LoggerConfig は zap ロガーの設定です。Output が file の場合は lumberjack でローテーションします。
type LoggerConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`
	Format     string `yaml:"format" env:"FORMAT"`
	Output     string `yaml:"output" env:"OUTPUT"`
	FilePath   string `yaml:"file_path" env:"FILE_PATH"`
	MaxSize    int    `yaml:"max_size" env:"MAX_SIZE"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" env:"MAX_AGE"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

// AuthConfig は認証・認可の設定です。
type AuthConfig struct {
	JWTSecret         string   `yaml:"jwt_secret" env:"JWT_SECRET"`
	AdminRole         string   `yaml:"admin_role" env:"ADMIN_ROLE"`
	CompanyAttributes []string `yaml:"company_attributes" env:"COMPANY_ATTRIBUTES" envSeparator:","`
	PolicyPath        string   `yaml:"policy_path" env:"POLICY_PATH"`
}

// DirectoryConfig はディレクトリ業務ルールの設定です。
type DirectoryConfig struct {
	CompanyIDPattern   string `yaml:"company_id_pattern" env:"COMPANY_ID_PATTERN"`
	AnonymizeBatchSize int    `yaml:"anonymize_batch_size" env:"ANONYMIZE_BATCH_SIZE"`
}

// MetricsConfig は Prometheus エンドポイントの設定です。ListenAddr が空の場合は公開しません。
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	Path       string `yaml:"path" env:"PATH"`
}

// Load は指定されたパスから設定ファイルを読み込み、環境変数で上書きします。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}
	timeout, err := parseDurationAllowEmpty(c.Server.ShutdownTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	c.Server.ShutdownTimeout = timeout

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	c.Logger.normalize()

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("config: auth.jwt_secret must be set")
	}

	if c.Directory.CompanyIDPattern != "" {
		if _, err := regexp.Compile(c.Directory.CompanyIDPattern); err != nil {
			return fmt.Errorf("config: directory.company_id_pattern: %w", err)
		}
	}
	if c.Directory.AnonymizeBatchSize < 0 {
		return fmt.Errorf("config: directory.anonymize_batch_size must not be negative")
	}
	if c.Directory.AnonymizeBatchSize == 0 {
		c.Directory.AnonymizeBatchSize = 100
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Driver == "" {
		d.Driver = DriverPostgres
	}
	switch d.Driver {
	case DriverMemory:
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("config: database.driver must be %q or %q", DriverPostgres, DriverMemory)
	}

	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.MigrationsPath == "" {
		d.MigrationsPath = "assets/migrations"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (l *LoggerConfig) normalize() {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "json"
	}
	if l.Output == "" {
		l.Output = "stdout"
	}
	if l.MaxSize == 0 {
		l.MaxSize = 100
	}
	if l.MaxBackups == 0 {
		l.MaxBackups = 3
	}
	if l.MaxAge == 0 {
		l.MaxAge = 7
	}
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。認証情報は URL エスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
