// Package config provides configuration management for gofiledl.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete gofiledl configuration.
type Config struct {
	General  GeneralConfig  `yaml:"general"`
	API      APIConfig      `yaml:"api"`
	Download DownloadConfig `yaml:"download"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GeneralConfig holds transfer settings.
type GeneralConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	ChunkSize  int           `yaml:"chunk_size"`
	UserAgent  string        `yaml:"user_agent"`
}

// APIConfig holds content-API endpoints and credentials. The endpoint
// fields exist mainly so tests and mirrors can point elsewhere; the
// defaults match the public service.
type APIConfig struct {
	Base        string `yaml:"base"`
	AccountsURL string `yaml:"accounts_url"`
	AssetURL    string `yaml:"asset_url"`
	URLPrefix   string `yaml:"url_prefix"`
	Token       string `yaml:"token"` // pre-existing account token, skips account creation
	HTTP3       bool   `yaml:"http3"`
	Insecure    bool   `yaml:"insecure"` // skip TLS verification
}

// DownloadConfig holds traversal and per-run download behavior.
type DownloadConfig struct {
	Directory      string   `yaml:"directory"`
	Throttle       string   `yaml:"throttle"` // e.g. "500K", "2M" per second
	Incremental    bool     `yaml:"incremental"`
	StripEmoji     bool     `yaml:"strip_emoji"`
	Checksum       bool     `yaml:"checksum"` // verify API-reported md5 after download
	TrackerDir     string   `yaml:"tracker_dir"`
	RenamePatterns []string `yaml:"rename_patterns"`
}

// ProxyConfig holds proxy settings.
type ProxyConfig struct {
	HTTP   string `yaml:"http"`
	SOCKS5 string `yaml:"socks5"`
}

// OutputConfig holds display settings.
type OutputConfig struct {
	ProgressStyle string `yaml:"progress_style"` // bar, minimal, json
	Colors        bool   `yaml:"colors"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"` // debug, info, warn, error
	File   string `yaml:"file"`
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			Timeout:    30 * time.Second,
			Retries:    3,
			RetryDelay: 2 * time.Second,
			ChunkSize:  32 * 1024,
			UserAgent:  "gofiledl/0.1",
		},
		API: APIConfig{
			Base:        "https://api.gofile.io",
			AccountsURL: "https://api.gofile.io/accounts",
			AssetURL:    "https://gofile.io/dist/js/global.js",
			URLPrefix:   "https://gofile.io/d/",
		},
		Download: DownloadConfig{
			Directory: "",
		},
		Output: OutputConfig{
			ProgressStyle: "bar",
			Colors:        true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigPaths returns the list of config file paths in priority order.
func ConfigPaths() []string {
	paths := make([]string, 0, 6)

	if envPath := os.Getenv("GOFILEDL_CONFIG"); envPath != "" {
		paths = append(paths, envPath)
	}

	paths = append(paths, ".gofiledl.yaml", ".gofiledl.yml")

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "gofiledl", "config.yaml"))
		paths = append(paths, filepath.Join(configDir, "gofiledl", "config.yml"))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".gofiledl.yaml"))
	}

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/gofiledl/config.yaml")
	}

	return paths
}

// Load loads configuration from the first available config file, falling
// back to defaults when none exists. The GOFILEDL_TOKEN environment
// variable overrides the configured account token.
func Load() (*Config, error) {
	config := DefaultConfig()

	for _, path := range ConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := config.LoadFile(path); err != nil {
				return nil, fmt.Errorf("loading config from %s: %w", path, err)
			}
			config.applyEnv()
			return config, nil
		}
	}

	config.applyEnv()
	return config, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv("GOFILEDL_TOKEN"); token != "" {
		c.API.Token = token
	}
}

// LoadFile loads configuration from a specific file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// Save saves configuration to a file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default path for saving user config.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "gofiledl", "config.yaml"), nil
}

// ParseBandwidth parses a bandwidth string (e.g. "10M", "500K") to bytes
// per second. A bare number is taken as KB/s, matching the common
// --limit-rate convention.
func ParseBandwidth(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	var value float64
	var unit string

	_, err := fmt.Sscanf(s, "%f%s", &value, &unit)
	if err != nil {
		_, err = fmt.Sscanf(s, "%f", &value)
		if err != nil {
			return 0, fmt.Errorf("invalid bandwidth format: %s", s)
		}
		return int64(value * 1024), nil
	}

	multiplier := int64(1)
	switch unit {
	case "B", "b":
		multiplier = 1
	case "K", "k", "KB", "kb":
		multiplier = 1024
	case "M", "m", "MB", "mb":
		multiplier = 1024 * 1024
	case "G", "g", "GB", "gb":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown bandwidth unit: %s", unit)
	}

	return int64(value * float64(multiplier)), nil
}

// GenerateDefaultConfig generates a default config file content.
func GenerateDefaultConfig() string {
	return `# gofiledl Configuration File

# Transfer settings
general:
  timeout: 30s            # Connection timeout
  retries: 3              # Extra attempts after a failed transfer
  retry_delay: 2s         # Delay between attempts
  chunk_size: 32768       # Read buffer size in bytes
  user_agent: "gofiledl/0.1"

# Content API settings
api:
  base: "https://api.gofile.io"
  accounts_url: "https://api.gofile.io/accounts"
  asset_url: "https://gofile.io/dist/js/global.js"
  url_prefix: "https://gofile.io/d/"
  token: ""               # Existing account token (or set GOFILEDL_TOKEN)
  http3: false            # Use HTTP/3 for API and downloads
  insecure: false         # Skip TLS certificate verification

# Download behavior
download:
  directory: ""           # Destination directory (empty = current)
  throttle: ""            # Bandwidth limit (e.g. "500K", "2M")
  incremental: false      # Skip files recorded by a previous run
  strip_emoji: false      # Drop emoji from folder and file names
  checksum: false         # Verify API-reported md5 after each download
  tracker_dir: ""         # Where incremental records live (empty = <dir>/.gofiledl)
  rename_patterns: []     # Extra folder-rename prefixes to tolerate

# Proxy settings
proxy:
  http: ""                # HTTP(S) proxy URL
  socks5: ""              # SOCKS5 proxy address (host:port)

# Output settings
output:
  progress_style: "bar"   # Progress display: bar, minimal, json
  colors: true

# Logging settings
logging:
  level: "info"           # debug, info, warn, error
  file: ""                # Log file path (empty = stderr only)
  format: "text"          # text, json
`
}
