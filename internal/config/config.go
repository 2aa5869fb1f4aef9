package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Bancho holds all configuration for the session server.
type Bancho struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Ports       []int  `yaml:"ports"`
	HTTPPort    int    `yaml:"http_port"`
	IRCPort     int    `yaml:"irc_port"`
	MetricsPort int    `yaml:"metrics_port"`

	// Protocol
	ProtocolVersion int32 `yaml:"protocol_version"`

	// Menu icon shown in the client main menu
	MenuIconImage string `yaml:"menuicon_image"`
	MenuIconURL   string `yaml:"menuicon_url"`

	// Keepalive
	PingInterval time.Duration `yaml:"ping_interval"`
	Timeout      time.Duration `yaml:"timeout"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Leaderboard cache
	Redis RedisConfig `yaml:"redis"`

	Debug bool `yaml:"debug"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds leaderboard cache connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DefaultBancho returns Bancho config with sensible defaults.
func DefaultBancho() Bancho {
	return Bancho{
		BindAddress:     "0.0.0.0",
		Ports:           []int{13381, 13382, 13383},
		HTTPPort:        5000,
		IRCPort:         6667,
		MetricsPort:     9100,
		ProtocolVersion: 18,
		MenuIconImage:   "",
		MenuIconURL:     "",
		PingInterval:    10 * time.Second,
		Timeout:         45 * time.Second,
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "bancho",
			Password: "bancho",
			DBName:   "bancho",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
	}
}

// LoadBancho loads server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadBancho(path string) (Bancho, error) {
	cfg := DefaultBancho()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
