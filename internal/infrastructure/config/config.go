package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all boot configuration.
type Config struct {
	Graphics  GraphicsConfig
	Memory    MemoryConfig
	Apps      AppsConfig
	Scheduler SchedulerConfig
	Input     InputConfig
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// GraphicsConfig selects where the boot graphics descriptor comes from.
// BootInfoPath wins when set; otherwise the explicit fields are used.
type GraphicsConfig struct {
	BootInfoPath string `envconfig:"GFX_BOOTINFO"`
	Width        uint32 `envconfig:"GFX_WIDTH" default:"1024"`
	Height       uint32 `envconfig:"GFX_HEIGHT" default:"768"`
	PhysAddr     uint64 `envconfig:"GFX_PHYS_ADDR" default:"0"`
}

// MemoryConfig holds physical memory mapper configuration.
type MemoryConfig struct {
	Device  string `envconfig:"MEM_DEVICE" default:"/dev/mem"`
	Emulate bool   `envconfig:"MEM_EMULATE" default:"true"`
}

// AppsConfig holds application namespace and first application settings.
type AppsConfig struct {
	Dir        string `envconfig:"APPS_DIR" default:"./apps"`
	KernelDir  string `envconfig:"APPS_KERNEL_DIR"`
	Pattern    string `envconfig:"APPS_PATTERN" default:"**/*"`
	Suffix     string `envconfig:"APPS_SUFFIX" default:".o"`
	RequireELF bool   `envconfig:"APPS_REQUIRE_ELF" default:"true"`
	Exec       bool   `envconfig:"APPS_EXEC" default:"false"`
	Prefix     string `envconfig:"FIRST_APP_PREFIX" default:"window_manager-"`
	TaskName   string `envconfig:"FIRST_APP_TASK_NAME" default:"window_manager"`
}

// SchedulerConfig holds task admission limits.
type SchedulerConfig struct {
	MaxTasks   int     `envconfig:"SCHED_MAX_TASKS" default:"64"`
	SpawnRate  float64 `envconfig:"SCHED_SPAWN_RATE" default:"10"`
	SpawnBurst int     `envconfig:"SCHED_SPAWN_BURST" default:"4"`
}

// InputConfig holds event queue sizing.
type InputConfig struct {
	QueueCapacity int `envconfig:"INPUT_QUEUE_CAPACITY" default:"256"`
}

// ServerConfig holds diagnostics HTTP server configuration.
type ServerConfig struct {
	Enabled     bool     `envconfig:"DIAG_ENABLED" default:"true"`
	Host        string   `envconfig:"DIAG_HOST" default:"127.0.0.1"`
	Port        string   `envconfig:"DIAG_PORT" default:"9090"`
	CORSOrigins []string `envconfig:"DIAG_CORS_ORIGINS" default:"*"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration for the diagnostics server.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:  1024,
			Height: 768,
		},
		Memory: MemoryConfig{
			Device:  "/dev/mem",
			Emulate: true,
		},
		Apps: AppsConfig{
			Dir:        "./apps",
			Pattern:    "**/*",
			Suffix:     ".o",
			RequireELF: true,
			Prefix:     "window_manager-",
			TaskName:   "window_manager",
		},
		Scheduler: SchedulerConfig{
			MaxTasks:   64,
			SpawnRate:  10,
			SpawnBurst: 4,
		},
		Input: InputConfig{
			QueueCapacity: 256,
		},
		Server: ServerConfig{
			Enabled:     true,
			Host:        "127.0.0.1",
			Port:        "9090",
			CORSOrigins: []string{"*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}
