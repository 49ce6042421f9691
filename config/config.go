package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Laundry    LaundryConfig    `yaml:"laundry"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// MachineSeed describes one machine in the fixed catalog.
type MachineSeed struct {
	ID     string `yaml:"id"`
	Type   string `yaml:"type"`
	Model  string `yaml:"model"`
	Status string `yaml:"status"`
}

// LaundryConfig holds the slot grid parameters and the machine catalog.
// The daily window is [OpenHour, CloseHour) in whole hours; every machine
// gets one bookable slot per hour in that window.
type LaundryConfig struct {
	OpenHour  int           `yaml:"open_hour"`
	CloseHour int           `yaml:"close_hour"`
	Timezone  string        `yaml:"timezone"`
	Machines  []MachineSeed `yaml:"machines"`
}

// SlotsPerDay returns the number of one-hour slots in the daily window.
func (l *LaundryConfig) SlotsPerDay() int {
	return l.CloseHour - l.OpenHour
}

// Location resolves the configured timezone. An empty or "Local" value
// means the server's local time.
func (l *LaundryConfig) Location() (*time.Location, error) {
	if l.Timezone == "" || l.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid laundry timezone %q: %w", l.Timezone, err)
	}
	return loc, nil
}

// PushConfig holds the VAPID keys for web push notifications. Push is
// optional; the service runs without it when the keys are empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// DefaultMachines is the stock machine catalog used when none is configured.
// Four machines, two models, M004 starts out under repair.
func DefaultMachines() []MachineSeed {
	return []MachineSeed{
		{ID: "M001", Type: "washer", Model: "AquaForce W75", Status: "operational"},
		{ID: "M002", Type: "washer", Model: "AquaForce W75", Status: "operational"},
		{ID: "M003", Type: "washer", Model: "SpinMaster 900", Status: "operational"},
		{ID: "M004", Type: "washer", Model: "SpinMaster 900", Status: "repair"},
	}
}

// DefaultLaundry returns the laundry parameters of the original deployment:
// machines M001-M004 with hourly slots from 08:00 to 22:00.
func DefaultLaundry() LaundryConfig {
	return LaundryConfig{
		OpenHour:  8,
		CloseHour: 22,
		Timezone:  "Local",
		Machines:  DefaultMachines(),
	}
}

// Load reads the configuration from the given path and fills in defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Laundry.OpenHour <= 0 {
		cfg.Laundry.OpenHour = 8
	}
	if cfg.Laundry.CloseHour <= 0 {
		cfg.Laundry.CloseHour = 22
	}
	if cfg.Laundry.CloseHour <= cfg.Laundry.OpenHour {
		return nil, fmt.Errorf("laundry window is empty: open_hour=%d close_hour=%d",
			cfg.Laundry.OpenHour, cfg.Laundry.CloseHour)
	}
	if len(cfg.Laundry.Machines) == 0 {
		cfg.Laundry.Machines = DefaultMachines()
	}
	if _, err := cfg.Laundry.Location(); err != nil {
		return nil, err
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
