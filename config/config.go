// Package config resolves the deployment constants berth provisions a host with.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile is read when present and no --config flag is given.
	DefaultConfigFile = "/etc/berth/berth.yaml"
	// EnvPrefix prefixes every environment override, e.g. BERTH_DOMAIN.
	EnvPrefix = "BERTH"
)

// EnvProvider abstracts environment variable access for testing
type EnvProvider interface {
	Getenv(key string) string
}

// DefaultEnvProvider implements EnvProvider using real OS functions
type DefaultEnvProvider struct{}

func (p *DefaultEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

// Config is the immutable set of deployment constants shared by every stage.
// It is built once by Load and passed by value; nothing mutates it afterwards.
type Config struct {
	// Service identity
	ServiceName  string `mapstructure:"service_name" yaml:"service_name"`
	ServiceUser  string `mapstructure:"service_user" yaml:"service_user"`
	ServiceGroup string `mapstructure:"service_group" yaml:"service_group"`

	// Source tree and build
	ProjectRoot  string `mapstructure:"project_root" yaml:"project_root"`
	BinaryName   string `mapstructure:"binary_name" yaml:"binary_name"`
	BuildCommand string `mapstructure:"build_command" yaml:"build_command"`
	BinarySource string `mapstructure:"binary_source" yaml:"binary_source"`
	BinaryDest   string `mapstructure:"binary_dest" yaml:"binary_dest"`

	// Host layout
	UnitPath      string `mapstructure:"unit_path" yaml:"unit_path"`
	LogrotatePath string `mapstructure:"logrotate_path" yaml:"logrotate_path"`
	LogDir        string `mapstructure:"log_dir" yaml:"log_dir"`
	DataDir       string `mapstructure:"data_dir" yaml:"data_dir"`
	EnvFile       string `mapstructure:"env_file" yaml:"env_file"`
	StaticSource  string `mapstructure:"static_source" yaml:"static_source"`
	StaticDest    string `mapstructure:"static_dest" yaml:"static_dest"`
	DatabaseFile  string `mapstructure:"database_file" yaml:"database_file"`
	MigrationsDir string `mapstructure:"migrations_dir" yaml:"migrations_dir"`

	// TLS
	Domain   string `mapstructure:"domain" yaml:"domain"`
	CertRoot string `mapstructure:"cert_root" yaml:"cert_root"`

	// Network
	AdminPort  int `mapstructure:"admin_port" yaml:"admin_port"`
	HTTPPort   int `mapstructure:"http_port" yaml:"http_port"`
	HTTPSPort  int `mapstructure:"https_port" yaml:"https_port"`
	ServerPort int `mapstructure:"server_port" yaml:"server_port"`

	// Runtime defaults written to a fresh environment file
	SessionDuration int `mapstructure:"session_duration" yaml:"session_duration"`

	// Health and recovery
	SettleDelay     time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	RebootCountdown int           `mapstructure:"reboot_countdown" yaml:"reboot_countdown"`

	// berth's own state
	StateDir        string `mapstructure:"state_dir" yaml:"state_dir"`
	MetricsTextfile string `mapstructure:"metrics_textfile" yaml:"metrics_textfile"`

	// Logging
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	ColorEnabled bool   `mapstructure:"color_enabled" yaml:"color_enabled"`
}

// Load builds the configuration from defaults, an optional YAML file and BERTH_* variables.
// An empty path reads DefaultConfigFile if it exists; an explicit path must exist.
func Load(env EnvProvider, path string) (Config, error) {
	v := viper.New()
	setDefaults(v, env)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}

	c.derivePaths()

	if err := c.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}

// defaultServiceUser mirrors how the service account is chosen under sudo:
// the invoking user, then the current user, then the stock cloud image account.
func defaultServiceUser(env EnvProvider) string {
	if u := env.Getenv("SUDO_USER"); u != "" {
		return u
	}
	if u := env.Getenv("USER"); u != "" {
		return u
	}
	return "ubuntu"
}

// setDefaults registers every key so that AutomaticEnv can override it.
// Derived paths default to empty and are filled in by derivePaths.
func setDefaults(v *viper.Viper, env EnvProvider) {
	v.SetDefault("service_name", "tama-server")
	v.SetDefault("service_user", defaultServiceUser(env))
	v.SetDefault("service_group", "")

	v.SetDefault("project_root", "/root/tama")
	v.SetDefault("binary_name", "server")
	v.SetDefault("build_command", "")
	v.SetDefault("binary_source", "")
	v.SetDefault("binary_dest", "")

	v.SetDefault("unit_path", "")
	v.SetDefault("logrotate_path", "")
	v.SetDefault("log_dir", "")
	v.SetDefault("data_dir", "")
	v.SetDefault("env_file", "")
	v.SetDefault("static_source", "")
	v.SetDefault("static_dest", "")
	v.SetDefault("database_file", "tama.db")
	v.SetDefault("migrations_dir", "")

	v.SetDefault("domain", "tama.curzel.it")
	v.SetDefault("cert_root", "/etc/letsencrypt")

	v.SetDefault("admin_port", 22)
	v.SetDefault("http_port", 80)
	v.SetDefault("https_port", 443)
	v.SetDefault("server_port", 443)

	v.SetDefault("session_duration", 86400)

	v.SetDefault("settle_delay", 2*time.Second)
	v.SetDefault("reboot_countdown", 10)

	v.SetDefault("state_dir", "/var/lib/berth")
	v.SetDefault("metrics_textfile", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("color_enabled", true)
}

// derivePaths calculates dependent paths from the service name and project root
func (c *Config) derivePaths() {
	if c.ServiceGroup == "" {
		c.ServiceGroup = c.ServiceUser
	}
	if c.BuildCommand == "" {
		c.BuildCommand = fmt.Sprintf("cargo build --release --bin %s", c.BinaryName)
	}
	if c.BinarySource == "" {
		c.BinarySource = filepath.Join(c.ProjectRoot, "target", "release", c.BinaryName)
	}
	if c.BinaryDest == "" {
		c.BinaryDest = filepath.Join("/usr/local/bin", c.ServiceName)
	}
	if c.UnitPath == "" {
		c.UnitPath = filepath.Join("/etc/systemd/system", c.ServiceName+".service")
	}
	if c.LogrotatePath == "" {
		c.LogrotatePath = filepath.Join("/etc/logrotate.d", c.ServiceName)
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join("/var/log", c.ServiceName)
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join("/var/lib", c.ServiceName)
	}
	if c.EnvFile == "" {
		c.EnvFile = filepath.Join("/etc", c.ServiceName, "env")
	}
	if c.StaticSource == "" {
		c.StaticSource = filepath.Join(c.ProjectRoot, "static")
	}
	if c.StaticDest == "" {
		c.StaticDest = filepath.Join(c.DataDir, "static")
	}
	if c.MigrationsDir == "" {
		c.MigrationsDir = filepath.Join(c.ProjectRoot, "migrations")
	}
}

// validate ensures configuration values are valid
func (c *Config) validate() error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warning": true, "error": true, "silent": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warning, error or silent)", c.LogLevel)
	}

	required := map[string]string{
		"service name":  c.ServiceName,
		"service user":  c.ServiceUser,
		"binary name":   c.BinaryName,
		"domain":        c.Domain,
		"database file": c.DatabaseFile,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}

	paths := map[string]string{
		"project root":   c.ProjectRoot,
		"binary source":  c.BinarySource,
		"binary dest":    c.BinaryDest,
		"unit path":      c.UnitPath,
		"logrotate path": c.LogrotatePath,
		"log dir":        c.LogDir,
		"data dir":       c.DataDir,
		"env file":       c.EnvFile,
		"static source":  c.StaticSource,
		"static dest":    c.StaticDest,
		"migrations dir": c.MigrationsDir,
		"cert root":      c.CertRoot,
		"state dir":      c.StateDir,
	}
	for name, value := range paths {
		if !filepath.IsAbs(value) {
			return fmt.Errorf("%s must be an absolute path, got: %q", name, value)
		}
	}

	ports := map[string]int{
		"admin port":  c.AdminPort,
		"http port":   c.HTTPPort,
		"https port":  c.HTTPSPort,
		"server port": c.ServerPort,
	}
	for name, port := range ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: %d (must be 1-65535)", name, port)
		}
	}

	if c.SessionDuration <= 0 {
		return fmt.Errorf("session duration must be positive, got: %d", c.SessionDuration)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative, got: %v", c.SettleDelay)
	}
	if c.RebootCountdown < 0 {
		return fmt.Errorf("reboot countdown cannot be negative, got: %d", c.RebootCountdown)
	}

	return nil
}

// DatabasePath is the service's persisted database file.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.DatabaseFile)
}

// DatabaseURL is the connection string handed to the migration tool.
func (c Config) DatabaseURL() string {
	return "sqlite://" + c.DatabasePath()
}

func (c Config) CertLiveDir() string {
	return filepath.Join(c.CertRoot, "live", c.Domain)
}

func (c Config) CertPath() string {
	return filepath.Join(c.CertLiveDir(), "fullchain.pem")
}

func (c Config) KeyPath() string {
	return filepath.Join(c.CertLiveDir(), "privkey.pem")
}

func (c Config) RenewalHookDir() string {
	return filepath.Join(c.CertRoot, "renewal-hooks", "post")
}

// AdminEmail is the contact address registered with the certificate authority.
func (c Config) AdminEmail() string {
	return "admin@" + c.Domain
}

func (c Config) ServerLogPath() string {
	return filepath.Join(c.LogDir, "server.log")
}

func (c Config) ErrorLogPath() string {
	return filepath.Join(c.LogDir, "error.log")
}

// JournalPath is where berth keeps its run history.
func (c Config) JournalPath() string {
	return filepath.Join(c.StateDir, "berth.db")
}
