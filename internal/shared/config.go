package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Backup    BackupConfig    `toml:"backup"`
	Migration MigrationConfig `toml:"migration"`
	Garage    GarageSettings  `toml:"garage"`
}

// DatabaseConfig contains relational store connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// BackupConfig contains backup bundle storage settings.
type BackupConfig struct {
	Dir string `toml:"dir"`
}

// MigrationConfig contains defaults for migration runs.
type MigrationConfig struct {
	BatchSize int     `toml:"batch_size"`
	RateLimit float64 `toml:"rate_limit"` // batches per second, 0 = unthrottled
}

// GarageSettings describes the garage this deployment manages.
type GarageSettings struct {
	ID           string `toml:"id"`
	Name         string `toml:"name"`
	Address      string `toml:"address"`
	TotalFloors  int    `toml:"total_floors"`
	BaysPerFloor int    `toml:"bays_per_floor"`
	SpotsPerBay  int    `toml:"spots_per_bay"`
	HourlyRate   string `toml:"hourly_rate"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// A .env file in the working directory, when present, overrides the database
// path (DATABASE_PATH) and backup directory (BACKUP_DIR) so deployments can
// relocate state without editing the TOML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&config)
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	applyEnvOverrides(&config)
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvOverrides loads .env (ignored when absent) and applies recognized
// environment variables on top of the parsed configuration.
func applyEnvOverrides(config *Config) {
	_ = godotenv.Load()

	if path := os.Getenv("DATABASE_PATH"); path != "" {
		config.Database.Path = path
	}
	if dir := os.Getenv("BACKUP_DIR"); dir != "" {
		config.Backup.Dir = dir
	}
}
