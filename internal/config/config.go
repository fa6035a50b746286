package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	Workers   WorkersConfig   `yaml:"workers"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Grading   GradingConfig   `yaml:"grading"`
	Reporting ReportingConfig `yaml:"reporting"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	Charset            string        `yaml:"charset"`
	ParseTime          bool          `yaml:"parse_time"`
	Loc                string        `yaml:"loc"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
}

type RedisConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
	ImportQueue string `yaml:"import_queue"`
	ExportQueue string `yaml:"export_queue"`
	DLQSuffix   string `yaml:"dlq_suffix"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	UseSSL       bool   `yaml:"use_ssl"`
	ImportPrefix string `yaml:"import_prefix"`
	ExportPrefix string `yaml:"export_prefix"`
}

type WorkersConfig struct {
	Ingestion IngestionWorkerConfig `yaml:"ingestion"`
	Export    ExportWorkerConfig    `yaml:"export"`
	Snapshot  SnapshotWorkerConfig  `yaml:"snapshot"`
}

type IngestionWorkerConfig struct {
	Count int `yaml:"count"`
}

type ExportWorkerConfig struct {
	Count         int           `yaml:"count"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// SnapshotWorkerConfig schedules the end-of-day cohort report snapshots.
type SnapshotWorkerConfig struct {
	RunAt      string   `yaml:"run_at"` // HH:MM in calendar timezone
	RunOnStart bool     `yaml:"run_on_start"`
	Formats    []string `yaml:"formats"`
	FileType   string   `yaml:"file_type"`
}

// CalendarConfig describes one semester's teaching calendar. Dates use the
// 2006-01-02 layout and weekdays their English names.
type CalendarConfig struct {
	Timezone         string   `yaml:"timezone"`
	SemesterStart    string   `yaml:"semester_start"`
	SemesterEnd      string   `yaml:"semester_end"`
	ExcludedWeekdays []string `yaml:"excluded_weekdays"`
	Holidays         []string `yaml:"holidays"`
}

// GradingConfig overrides the category weight table. Keys are category
// names; an empty map keeps the default weights.
type GradingConfig struct {
	Weights map[string]float64 `yaml:"weights"`
}

type ReportingConfig struct {
	Concurrency    int           `yaml:"concurrency"`
	DownloadURLTTL time.Duration `yaml:"download_url_ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the yaml file at CONFIG_PATH (default config.yaml). A .env file in
// the working directory, when present, is loaded first so that ${VAR}
// references in the yaml can be filled from it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes yaml config data after expanding environment references and
// fills defaults for unset values.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "shomokh-report-engine"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.Loc == "" {
		c.Database.Loc = "Local"
	}
	if c.Redis.ImportQueue == "" {
		c.Redis.ImportQueue = "grade_imports"
	}
	if c.Redis.ExportQueue == "" {
		c.Redis.ExportQueue = "report_exports"
	}
	if c.Redis.DLQSuffix == "" {
		c.Redis.DLQSuffix = ":dlq"
	}
	if c.Storage.S3.ImportPrefix == "" {
		c.Storage.S3.ImportPrefix = "imports/"
	}
	if c.Storage.S3.ExportPrefix == "" {
		c.Storage.S3.ExportPrefix = "exports/"
	}
	if c.Workers.Ingestion.Count == 0 {
		c.Workers.Ingestion.Count = 2
	}
	if c.Workers.Export.Count == 0 {
		c.Workers.Export.Count = 2
	}
	if c.Workers.Export.RetryAttempts == 0 {
		c.Workers.Export.RetryAttempts = 3
	}
	if c.Workers.Export.RetryDelay == 0 {
		c.Workers.Export.RetryDelay = 2 * time.Second
	}
	if c.Workers.Snapshot.RunAt == "" {
		c.Workers.Snapshot.RunAt = "23:30"
	}
	if len(c.Workers.Snapshot.Formats) == 0 {
		c.Workers.Snapshot.Formats = []string{"summary", "detailed"}
	}
	if c.Workers.Snapshot.FileType == "" {
		c.Workers.Snapshot.FileType = "xlsx"
	}
	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = "Asia/Riyadh"
	}
	if c.Calendar.ExcludedWeekdays == nil {
		c.Calendar.ExcludedWeekdays = []string{"friday", "saturday"}
	}
	if c.Reporting.Concurrency == 0 {
		c.Reporting.Concurrency = 8
	}
	if c.Reporting.DownloadURLTTL == 0 {
		c.Reporting.DownloadURLTTL = 15 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// MySQL DSN format: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
// clientFoundRows makes UPDATE report matched rather than changed rows.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s&clientFoundRows=true",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port,
		c.Database.Name, c.Database.Charset, c.Database.ParseTime, url.QueryEscape(c.Database.Loc))
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
