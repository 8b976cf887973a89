package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vango-dev/routemap/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "routemap.json"

	// DefaultManifest is the default manifest path.
	DefaultManifest = "manifest.json"

	// DefaultRoutes is the default routes directory.
	DefaultRoutes = "src/routes"

	// DefaultNodesDir is the default directory node modules are served from.
	DefaultNodesDir = "build/client/_app/immutable"

	// DefaultPort is the default inspector server port.
	DefaultPort = 7070

	// DefaultHost is the default inspector server host.
	DefaultHost = "localhost"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "routemap"
)

// Node sources.
const (
	SourceFS = "fs"
	SourceS3 = "s3"
)

// Config represents the complete routemap.json configuration.
type Config struct {
	// Manifest is the path to the generated manifest.
	Manifest string `json:"manifest,omitempty"`

	// Routes is the path to the routes directory scanned by gen.
	Routes string `json:"routes,omitempty"`

	// Hash enables hash-based routing in generated manifests.
	Hash bool `json:"hash,omitempty"`

	// Nodes says where node modules are loaded from.
	Nodes NodesConfig `json:"nodes,omitempty"`

	// Server contains inspector server configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Tracing enables OpenTelemetry spans for navigations.
	Tracing bool `json:"tracing,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// NodesConfig describes the node module source.
type NodesConfig struct {
	// Source is "fs" or "s3".
	Source string `json:"source,omitempty"`

	// Dir is the local directory for the fs source.
	Dir string `json:"dir,omitempty"`

	// Bucket is the S3 bucket for the s3 source.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is prepended to node ids to form object keys.
	Prefix string `json:"prefix,omitempty"`

	// Region is the AWS region.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (MinIO, localstack).
	Endpoint string `json:"endpoint,omitempty"`

	// PathStyle forces path-style S3 addressing.
	PathStyle bool `json:"pathStyle,omitempty"`

	// Fingerprints is an optional JSON map from node id to hashed file name.
	Fingerprints string `json:"fingerprints,omitempty"`
}

// ServerConfig contains inspector server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled serves /metrics and records navigation metrics.
	Enabled bool `json:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Manifest: DefaultManifest,
		Routes:   DefaultRoutes,
		Nodes: NodesConfig{
			Source: SourceFS,
			Dir:    DefaultNodesDir,
		},
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for routemap.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R141").
				WithDetail("No routemap.json found in " + filepath.Dir(path)).
				WithSuggestion("Create routemap.json or pass --manifest explicitly")
		}
		return nil, errors.New("R120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("R120").
			WithDetail("Failed to parse routemap.json: " + err.Error()).
			WithSuggestion("Check that routemap.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("R120").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("R120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Manifest == "" {
		c.Manifest = DefaultManifest
	}
	if c.Routes == "" {
		c.Routes = DefaultRoutes
	}
	if c.Nodes.Source == "" {
		c.Nodes.Source = SourceFS
	}
	if c.Nodes.Source == SourceFS && c.Nodes.Dir == "" {
		c.Nodes.Dir = DefaultNodesDir
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("R122").
			WithDetail("server.port must be between 0 and 65535")
	}

	switch c.Nodes.Source {
	case SourceFS:
	case SourceS3:
		if c.Nodes.Bucket == "" {
			return errors.New("R122").
				WithDetail("nodes.bucket is required when nodes.source is \"s3\"")
		}
	default:
		return errors.New("R122").
			WithDetail(fmt.Sprintf("unknown nodes.source %q", c.Nodes.Source)).
			WithSuggestion("Use \"fs\" or \"s3\"")
	}

	if _, err := c.LogLevel(); err != nil {
		return errors.New("R122").
			WithDetail(fmt.Sprintf("unknown log.level %q", c.Log.Level)).
			WithSuggestion("Use debug, info, warn or error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("R122").
			WithDetail(fmt.Sprintf("unknown log.format %q", c.Log.Format)).
			WithSuggestion("Use \"text\" or \"json\"")
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Log.Level))
	return level, err
}

// ServerAddress returns the address string for the inspector server.
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ManifestPath returns the absolute path to the manifest.
func (c *Config) ManifestPath() string {
	return c.resolve(c.Manifest)
}

// RoutesPath returns the absolute path to the routes directory.
func (c *Config) RoutesPath() string {
	return c.resolve(c.Routes)
}

// NodesPath returns the absolute path to the fs node directory.
func (c *Config) NodesPath() string {
	return c.resolve(c.Nodes.Dir)
}

// FingerprintsPath returns the absolute path to the fingerprint map, or ""
// when none is configured.
func (c *Config) FingerprintsPath() string {
	if c.Nodes.Fingerprints == "" {
		return ""
	}
	return c.resolve(c.Nodes.Fingerprints)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing routemap.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("R141").
				WithDetail("No routemap.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
