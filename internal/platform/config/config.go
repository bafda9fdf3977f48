package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName   string   `yaml:"service_name"`
	HTTPPort      string   `yaml:"http_port"`
	StorageDriver string   `yaml:"storage_driver"`
	PostgresDSN   string   `yaml:"postgres_dsn"`
	KafkaBrokers  []string `yaml:"kafka_brokers"`

	AdminAddress     string        `yaml:"admin_address"`
	SignatureMaxSkew time.Duration `yaml:"signature_max_skew"`

	OutboxBatchSize    int           `yaml:"outbox_batch_size"`
	WorkerPollInterval time.Duration `yaml:"worker_poll_interval"`

	EnableFinalizationScanner bool `yaml:"enable_finalization_scanner"`
	EnableNotificationLogger  bool `yaml:"enable_notification_logger"`
}

func defaults() Config {
	return Config{
		ServiceName:               "tally",
		HTTPPort:                  "8080",
		StorageDriver:             StorageDriverPostgres,
		KafkaBrokers:              []string{"localhost:9092"},
		SignatureMaxSkew:          5 * time.Minute,
		OutboxBatchSize:           100,
		WorkerPollInterval:        2 * time.Second,
		EnableFinalizationScanner: true,
		EnableNotificationLogger:  true,
	}
}

// Load starts from defaults, applies CONFIG_FILE (YAML) when set, then lets
// environment variables override individual values.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if value := os.Getenv("SERVICE_NAME"); value != "" {
		cfg.ServiceName = value
	}
	if value := os.Getenv("HTTP_PORT"); value != "" {
		cfg.HTTPPort = value
	}
	if value := os.Getenv("STORAGE_DRIVER"); value != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(value))
	}
	if value := os.Getenv("POSTGRES_DSN"); value != "" {
		cfg.PostgresDSN = value
	}
	if brokers := splitList(os.Getenv("KAFKA_BROKERS")); len(brokers) > 0 {
		cfg.KafkaBrokers = brokers
	}
	if value := os.Getenv("VOTING_ADMIN_ADDRESS"); value != "" {
		cfg.AdminAddress = strings.TrimSpace(value)
	}

	var err error
	if cfg.SignatureMaxSkew, err = envDuration("SIGNATURE_MAX_SKEW", cfg.SignatureMaxSkew); err != nil {
		return Config{}, err
	}
	if cfg.WorkerPollInterval, err = envDuration("WORKER_POLL_INTERVAL", cfg.WorkerPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.OutboxBatchSize, err = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize); err != nil {
		return Config{}, err
	}
	cfg.EnableFinalizationScanner = envBool("ENABLE_FINALIZATION_SCANNER", cfg.EnableFinalizationScanner)
	cfg.EnableNotificationLogger = envBool("ENABLE_NOTIFICATION_LOGGER", cfg.EnableNotificationLogger)

	switch cfg.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func splitList(raw string) []string {
	var items []string
	for _, value := range strings.Split(raw, ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return value, nil
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return value, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
