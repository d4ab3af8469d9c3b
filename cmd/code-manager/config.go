package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"codemanager/pkg/utils/logger"
)

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8090
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 120 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 15 * time.Second
	defaultMaxConcurrent   = 4
	defaultWorkspaceRoot   = "/tmp/code-manager"
	defaultExecConfigPath  = "configs/execution.json"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ManagerConfig holds execution manager settings.
type ManagerConfig struct {
	MaxConcurrent       int           `yaml:"maxConcurrent"`
	WorkspaceRoot       string        `yaml:"workspaceRoot"`
	ExecutionConfigPath string        `yaml:"executionConfigPath"`
	StopGrace           time.Duration `yaml:"stopGrace"`
}

// AppConfig holds code-manager config.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Logger  logger.Config `yaml:"logger"`
	Manager ManagerConfig `yaml:"manager"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file failed: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file failed: %w", err)
		}
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Manager.MaxConcurrent < 1 {
		return nil, fmt.Errorf("maxConcurrent must be >= 1, got %d", cfg.Manager.MaxConcurrent)
	}
	return &cfg, nil
}

// applyEnvOverrides lets the environment win over the YAML file, the way
// the service is configured in container deployments.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("CODE_MANAGER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CODE_MANAGER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_DEFAULT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Manager.MaxConcurrent = n
		}
	}
	if v := os.Getenv("EXECUTION_CONFIG_PATH"); v != "" {
		cfg.Manager.ExecutionConfigPath = v
	}
	if v := os.Getenv("WORKSPACE_ROOT"); v != "" {
		cfg.Manager.WorkspaceRoot = v
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Manager.MaxConcurrent == 0 {
		cfg.Manager.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.Manager.WorkspaceRoot == "" {
		cfg.Manager.WorkspaceRoot = defaultWorkspaceRoot
	}
	if cfg.Manager.ExecutionConfigPath == "" {
		cfg.Manager.ExecutionConfigPath = defaultExecConfigPath
	}
}
