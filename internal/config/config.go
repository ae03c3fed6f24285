package config

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vango-dev/enhance/internal/errors"
)

const (
	// ConfigName is the configuration file name without extension.
	ConfigName = "enhance"

	// ConfigFileName is the file written by SaveTo and created by init.
	ConfigFileName = ConfigName + ".json"

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "ENHANCE"

	// DefaultPort is the default development server port.
	DefaultPort = 3000

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultHMRRoute is the default hot update endpoint prefix.
	DefaultHMRRoute = "/__hmr"

	// DefaultSocketPath is the default WebSocket endpoint.
	DefaultSocketPath = "/__enhance/ws"

	// DefaultDebounce is the default watcher and client debounce window.
	DefaultDebounce = 100 * time.Millisecond

	// DefaultFetchTimeout bounds one hot update fetch.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultTemplateDir is the default template root.
	DefaultTemplateDir = "templates"
)

// Template drivers.
const (
	DriverDir = "dir"
	DriverS3  = "s3"
)

// configExts are the file extensions Load looks for, in order.
var configExts = []string{"json", "yaml", "yml", "toml"}

// Config represents the complete enhance configuration.
type Config struct {
	// Dev contains development server configuration.
	Dev DevConfig `mapstructure:"dev" json:"dev"`

	// Templates configures where page templates are read from.
	Templates TemplatesConfig `mapstructure:"templates" json:"templates"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Port is the port to run the dev server on.
	Port int `mapstructure:"port" json:"port"`

	// Host is the host to bind to.
	Host string `mapstructure:"host" json:"host"`

	// HotReload broadcasts hmr:update messages on file changes.
	HotReload bool `mapstructure:"hotReload" json:"hotReload"`

	// DevMode enables the client error overlay.
	DevMode bool `mapstructure:"devMode" json:"devMode"`

	// Debounce is the watcher coalescing window.
	Debounce time.Duration `mapstructure:"debounce" json:"debounce"`

	// Watch contains paths to watch for changes.
	Watch []string `mapstructure:"watch" json:"watch,omitempty"`

	// Ignore contains patterns to ignore during watch.
	Ignore []string `mapstructure:"ignore" json:"ignore,omitempty"`

	// HMRRoute is the hot update endpoint prefix.
	HMRRoute string `mapstructure:"hmrRoute" json:"hmrRoute"`

	// SocketPath is the WebSocket endpoint.
	SocketPath string `mapstructure:"socketPath" json:"socketPath"`

	// FetchTimeout bounds one client update fetch.
	FetchTimeout time.Duration `mapstructure:"fetchTimeout" json:"fetchTimeout"`
}

// TemplatesConfig selects the template source.
type TemplatesConfig struct {
	// Driver is "dir" or "s3".
	Driver string `mapstructure:"driver" json:"driver"`

	// Dir is the template root for the dir driver.
	Dir string `mapstructure:"dir" json:"dir"`

	// S3 configures the s3 driver.
	S3 S3Config `mapstructure:"s3" json:"s3,omitempty"`
}

// S3Config locates templates in an S3 bucket.
type S3Config struct {
	Bucket    string `mapstructure:"bucket" json:"bucket,omitempty"`
	Region    string `mapstructure:"region" json:"region,omitempty"`
	Endpoint  string `mapstructure:"endpoint" json:"endpoint,omitempty"`
	Prefix    string `mapstructure:"prefix" json:"prefix,omitempty"`
	PathStyle bool   `mapstructure:"pathStyle" json:"pathStyle,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Dev: DevConfig{
			Port:         DefaultPort,
			Host:         DefaultHost,
			HotReload:    true,
			DevMode:      true,
			Debounce:     DefaultDebounce,
			Watch:        []string{DefaultTemplateDir, "public"},
			HMRRoute:     DefaultHMRRoute,
			SocketPath:   DefaultSocketPath,
			FetchTimeout: DefaultFetchTimeout,
		},
		Templates: TemplatesConfig{
			Driver: DriverDir,
			Dir:    DefaultTemplateDir,
		},
	}
}

// newViper returns a viper instance carrying every default, so that
// environment overrides apply even to keys absent from the file.
func newViper() *viper.Viper {
	v := viper.New()
	def := New()
	v.SetDefault("dev.port", def.Dev.Port)
	v.SetDefault("dev.host", def.Dev.Host)
	v.SetDefault("dev.hotReload", def.Dev.HotReload)
	v.SetDefault("dev.devMode", def.Dev.DevMode)
	v.SetDefault("dev.debounce", def.Dev.Debounce)
	v.SetDefault("dev.watch", def.Dev.Watch)
	v.SetDefault("dev.ignore", []string{})
	v.SetDefault("dev.hmrRoute", def.Dev.HMRRoute)
	v.SetDefault("dev.socketPath", def.Dev.SocketPath)
	v.SetDefault("dev.fetchTimeout", def.Dev.FetchTimeout)
	v.SetDefault("templates.driver", def.Templates.Driver)
	v.SetDefault("templates.dir", def.Templates.Dir)
	v.SetDefault("templates.s3.bucket", "")
	v.SetDefault("templates.s3.region", "")
	v.SetDefault("templates.s3.endpoint", "")
	v.SetDefault("templates.s3.prefix", "")
	v.SetDefault("templates.s3.pathStyle", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from the specified directory.
// It looks for enhance.json, enhance.yaml, enhance.yml or enhance.toml.
func Load(dir string) (*Config, error) {
	path, ok := find(dir)
	if !ok {
		return nil, errors.New("E121").
			WithDetail("No " + ConfigName + ".{json,yaml,toml} found in " + dir).
			WithSuggestion("Run 'enhance init' to create one")
	}
	return LoadFile(path)
}

// LoadOrDefault is Load, falling back to defaults and environment
// overrides when the directory has no configuration file.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if errors.HasCode(err, "E121") {
		return decode(newViper(), "")
	}
	return cfg, err
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if stderrors.As(err, &notFound) || os.IsNotExist(err) {
			return nil, errors.New("E121").WithDetail(path)
		}
		return nil, errors.New("E120").
			WithDetail("Failed to parse " + filepath.Base(path)).
			Wrap(err)
	}
	return decode(v, path)
}

func decode(v *viper.Viper, path string) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New("E120").Wrap(err)
	}
	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

func find(dir string) (string, bool) {
	for _, ext := range configExts {
		path := filepath.Join(dir, ConfigName+"."+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// SaveTo writes the configuration as JSON to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
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
	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Dev.Debounce == 0 {
		c.Dev.Debounce = DefaultDebounce
	}
	if c.Dev.HMRRoute == "" {
		c.Dev.HMRRoute = DefaultHMRRoute
	}
	if c.Dev.SocketPath == "" {
		c.Dev.SocketPath = DefaultSocketPath
	}
	if c.Dev.FetchTimeout == 0 {
		c.Dev.FetchTimeout = DefaultFetchTimeout
	}
	if c.Templates.Driver == "" {
		c.Templates.Driver = DriverDir
	}
	if c.Templates.Dir == "" {
		c.Templates.Dir = DefaultTemplateDir
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return errors.New("E122").
			WithDetail("Port must be between 0 and 65535")
	}
	if c.Dev.Debounce < 0 {
		return errors.New("E120").WithDetail("dev.debounce must not be negative")
	}
	if c.Dev.FetchTimeout < 0 {
		return errors.New("E120").WithDetail("dev.fetchTimeout must not be negative")
	}
	for name, route := range map[string]string{"dev.hmrRoute": c.Dev.HMRRoute, "dev.socketPath": c.Dev.SocketPath} {
		if !strings.HasPrefix(route, "/") {
			return errors.New("E120").WithDetailf("%s must start with '/', got %q", name, route)
		}
	}
	if c.Dev.HMRRoute == c.Dev.SocketPath {
		return errors.New("E120").WithDetail("dev.hmrRoute and dev.socketPath must differ")
	}
	switch c.Templates.Driver {
	case DriverDir:
	case DriverS3:
		if c.Templates.S3.Bucket == "" {
			return errors.New("E120").
				WithDetail("templates.s3.bucket is required for the s3 driver")
		}
	default:
		return errors.New("E120").
			WithDetailf("unknown templates.driver %q", c.Templates.Driver).
			WithSuggestion("Use \"dir\" or \"s3\"")
	}
	return nil
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DevURL returns the full URL for the dev server.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// SocketURL returns the WebSocket URL of the dev server.
func (c *Config) SocketURL() string {
	return "ws://" + c.DevAddress() + c.Dev.SocketPath
}

// TemplatePath returns the absolute template root of the dir driver.
func (c *Config) TemplatePath() string {
	if filepath.IsAbs(c.Templates.Dir) {
		return c.Templates.Dir
	}
	return filepath.Join(c.Dir(), c.Templates.Dir)
}

// WatchPaths returns the watch list resolved against the config directory.
func (c *Config) WatchPaths() []string {
	paths := make([]string, 0, len(c.Dev.Watch))
	for _, p := range c.Dev.Watch {
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.Dir(), p)
		}
		paths = append(paths, p)
	}
	return paths
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, ok := find(dir)
	return ok
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing the config file, or an error if not found.
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
			return "", errors.New("E121").
				WithDetail("No " + ConfigName + " config found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'enhance init' to create one")
		}
		dir = parent
	}
}
