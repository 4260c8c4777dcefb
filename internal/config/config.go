package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/openkcm/daytime/internal/daytime"
)

const (
	DefaultAddress        = ":13"
	DefaultDebugAddress   = "127.0.0.1:13013"
	DefaultUser           = "_identd"
	DefaultChrootDir      = "/var/empty"
	DefaultPromises       = "stdio inet"
	DefaultMaxConnections = 64
	DefaultWriteTimeout   = 5 * time.Second
)

var (
	ErrInvalidAddress                  = errors.New("address must be host:port")
	ErrDebugAddressNotLoopback         = errors.New("debug address must be a loopback IP")
	ErrUnsupportedMode                 = errors.New("delivery mode is not supported, please use network or console")
	ErrEmptyUser                       = errors.New("user must not be empty")
	ErrChrootDirNotAbsolute            = errors.New("chroot directory must be an absolute path")
	ErrMaxConnectionsMustBeGreaterZero = errors.New("max connections must be greater than zero")
	ErrWriteTimeoutMustBeGreaterZero   = errors.New("write timeout must be greater than zero")
)

// Config holds all application configuration parameters.
type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash"`

	// DebugMode keeps the daemon in the foreground on the loopback debug
	// address, without sandbox, also enabled by the -d flag
	DebugMode bool `yaml:"debugMode" json:"debugMode"`

	// Daytime listener and sandbox configuration
	Daytime Daytime `yaml:"daytime" json:"daytime"`
	// gRPC health endpoint configuration, an empty address disables it
	GRPCServer GRPCServer `yaml:"grpcServer" json:"grpcServer"`
}

// Daytime holds the daytime listener, responder and sandbox settings.
type Daytime struct {
	Address        string        `yaml:"address" json:"address"`
	DebugAddress   string        `yaml:"debugAddress" json:"debugAddress"`
	Mode           daytime.Mode  `yaml:"mode" json:"mode"`
	User           string        `yaml:"user" json:"user"`
	ChrootDir      string        `yaml:"chrootDir" json:"chrootDir"`
	Promises       string        `yaml:"promises" json:"promises"`
	MaxConnections int64         `yaml:"maxConnections" json:"maxConnections"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" json:"writeTimeout"`
}

// GRPCServer configuration of the health endpoint. ClientAttributes are
// used by the readiness probe dialing it.
type GRPCServer struct {
	commoncfg.GRPCServer `mapstructure:",squash"`

	ClientAttributes commoncfg.GRPCClientAttributes `yaml:"clientAttributes" json:"clientAttributes"`
}

// ApplyFlags merges the command line into the configuration. It must be
// called once, before Validate, the configuration is read only afterwards.
func (c *Config) ApplyFlags(f Flags) {
	c.DebugMode = c.DebugMode || f.Debug
	c.Daytime.applyDefaults()
}

// ListenAddress returns the address the daytime listener binds.
func (c *Config) ListenAddress() string {
	if c.DebugMode {
		return c.Daytime.DebugAddress
	}

	return c.Daytime.Address
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Daytime.validate(); err != nil {
		return fmt.Errorf("daytime config error: %w", err)
	}

	return nil
}

func (d *Daytime) applyDefaults() {
	if d.Address == "" {
		d.Address = DefaultAddress
	}

	if d.DebugAddress == "" {
		d.DebugAddress = DefaultDebugAddress
	}

	if d.Mode == "" {
		d.Mode = daytime.ModeNetwork
	}

	if d.User == "" {
		d.User = DefaultUser
	}

	if d.ChrootDir == "" {
		d.ChrootDir = DefaultChrootDir
	}

	if d.Promises == "" {
		d.Promises = DefaultPromises
	}

	if d.MaxConnections == 0 {
		d.MaxConnections = DefaultMaxConnections
	}

	if d.WriteTimeout == 0 {
		d.WriteTimeout = DefaultWriteTimeout
	}
}

func (d *Daytime) validate() error {
	if _, _, err := net.SplitHostPort(d.Address); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, d.Address)
	}

	host, _, err := net.SplitHostPort(d.DebugAddress)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, d.DebugAddress)
	}

	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("%w: %q", ErrDebugAddressNotLoopback, d.DebugAddress)
	}

	if !d.Mode.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedMode, d.Mode)
	}

	if d.User == "" {
		return ErrEmptyUser
	}

	if !filepath.IsAbs(d.ChrootDir) {
		return fmt.Errorf("%w: %q", ErrChrootDirNotAbsolute, d.ChrootDir)
	}

	if d.MaxConnections <= 0 {
		return fmt.Errorf("%w: %d", ErrMaxConnectionsMustBeGreaterZero, d.MaxConnections)
	}

	if d.WriteTimeout <= 0 {
		return fmt.Errorf("%w: %v", ErrWriteTimeoutMustBeGreaterZero, d.WriteTimeout)
	}

	return nil
}
