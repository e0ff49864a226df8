// Package config implements a centralized configuration management system following
// the 12-Factor App methodology and SOLID principles. It provides type-safe configuration
// loading from environment variables with sensible defaults and proper error handling.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config represents the root configuration structure following the Separation of Concerns principle.
// Each field corresponds to a specific functional domain, enabling clear boundaries and
// improved maintainability. The env tags enable automatic mapping from environment variables
// to Go structs, reducing boilerplate code and providing type safety.
type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	JWT      JWTConfig      `envPrefix:"JWT_"`
	Projects ProjectsConfig `envPrefix:"PROJECTS_"`
	Session  SessionConfig  `envPrefix:"SESSION_"`
}

// ServerConfig encapsulates HTTP server configuration following the Single Responsibility Principle.
// Each field uses env tags for declarative data binding, enabling automatic
// unmarshaling from environment variables without manual parsing.
type ServerConfig struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"` // Server bind address (default: "0.0.0.0")
	Port int    `env:"PORT" envDefault:"7600"`    // Server port number (default: 7600)
}

// DatabaseConfig contains the bootstrap PostgreSQL connection parameters used to
// construct the default project's DSN; additional projects resolve their own DSN
// through DSNFor, which swaps in the project's own database name.
type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`   // Database host address
	Port     int    `env:"PORT" envDefault:"5432"`        // Database port (default: 5432)
	User     string `env:"USER" envDefault:"postgres"`    // Database username
	Password string `env:"PASSWORD" envDefault:"postgres"` // Database password
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // SSL mode (default: "disable")
}

// JWTConfig manages JWT token settings with strong typing using time.Duration instead
// of strings or integers. This provides compile-time type safety and eliminates
// runtime parsing errors for time-based configurations.
type JWTConfig struct {
	SecretKey     string        `env:"SECRET_KEY" envDefault:"change-me-please-32b-min"` // JWT signing secret
	Issuer        string        `env:"ISSUER" envDefault:"litepg-core"`                  // JWT issuer claim
	KeyID         string        `env:"KEY_ID" envDefault:"default"`                      // JWKS key id
	AccessExpiry  time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`                   // Access token lifetime (default: "15m")
	RefreshExpiry time.Duration `env:"REFRESH_EXPIRY" envDefault:"168h"`                 // Refresh token lifetime (default: "168h")
}

// ProjectsConfig controls where logical projects (each an independent
// Postgres database behind the Engine Adapter) are registered and how
// their databases are named.
type ProjectsConfig struct {
	BaseDir        string `env:"BASE_DIR" envDefault:"./data/projects"` // root for per-project metadata
	DefaultName    string `env:"DEFAULT_NAME" envDefault:"default"`     // default project created at first boot
	DefaultDBName  string `env:"DEFAULT_DB_NAME" envDefault:"postgres"` // database name for the default project
}

// SessionConfig holds the refresh-failure threshold the auth state machine
// enforces when repeated failures should revoke a session.
// RefreshFailureWindow is passed into authcore.Config but is not applied:
// the Postgres auth store counts failures over a fixed 15-minute window.
type SessionConfig struct {
	RefreshFailureWindow    time.Duration `env:"REFRESH_FAILURE_WINDOW" envDefault:"15m"`
	RefreshFailureThreshold int           `env:"REFRESH_FAILURE_THRESHOLD" envDefault:"5"`
}

// Load implements the Configuration Management Pattern with support for environment variables only.
// It follows the 12-Factor App methodology by reading all configuration from environment variables
// with sensible defaults.
//
// Configuration precedence (highest to lowest):
// 1. Environment variables
// 2. Default values (fail-safe defaults)
func Load() (*Config, error) {
	var config Config

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("error parsing environment variables: %w", err)
	}

	return &config, nil
}

// DSNFor builds a project-specific DSN, reusing the bootstrap connection
// parameters for host/user/password/sslmode but swapping in the project's
// own database name.
func (c *Config) DSNFor(dbName string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		dbName,
		c.Database.SSLMode,
	)
}

// GetDSN returns the DSN for the default project's bootstrap database.
func (c *Config) GetDSN() string {
	return c.DSNFor(c.Projects.DefaultDBName)
}

// GetServerAddr implements the Encapsulation pattern by providing a centralized method
// to construct the server address string.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
