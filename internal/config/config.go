package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvironmentDevelopment = "Development"
	EnvironmentProduction  = "Production"
)

type Config struct {
	Environment       string
	ConnectionStrings ConnectionStringsConfig
	Server            ServerConfig
	Database          DatabaseConfig
	Logging           LoggingConfig
	Auth              AuthConfig
	Swagger           SwaggerConfig
}

type ConnectionStringsConfig struct {
	MyDefaultConnectionString string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

type DatabaseConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type AuthConfig struct {
	CookieName              string
	LoginPath               string
	LogoutPath              string
	AccessDeniedPath        string
	ExpireTimeSpan          time.Duration
	SlidingExpiration       bool
	CookieSecure            bool
	SigningKey              string
	RequireConfirmedAccount bool
	PasswordRequiredLength  int
	PasswordHashCost        int
	AdminUserName           string
	AdminEmail              string
	AdminPassword           string
}

type SwaggerConfig struct {
	Title        string
	Version      string
	Description  string
	EndpointURL  string
	EndpointName string
}

// IsDevelopment reports whether the application runs in the Development
// environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, EnvironmentDevelopment)
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvironmentProduction)
	v.SetDefault("connectionstrings.mydefaultconnectionstring", "./lms.db")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readtimeout", 10*time.Second)
	v.SetDefault("server.writetimeout", 10*time.Second)
	v.SetDefault("server.idletimeout", 120*time.Second)
	v.SetDefault("server.shutdowntimeout", 30*time.Second)
	v.SetDefault("server.requesttimeout", 30*time.Second)

	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 25)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("auth.cookiename", "MyAuthCookie")
	v.SetDefault("auth.loginpath", "/Identity/Account/Login")
	v.SetDefault("auth.logoutpath", "/Identity/Account/Logout")
	v.SetDefault("auth.accessdeniedpath", "/Identity/Account/AccessDenied")
	v.SetDefault("auth.expiretimespan", 20*time.Minute)
	v.SetDefault("auth.slidingexpiration", true)
	v.SetDefault("auth.cookiesecure", false)
	v.SetDefault("auth.signingkey", "")
	v.SetDefault("auth.requireconfirmedaccount", true)
	v.SetDefault("auth.passwordrequiredlength", 8)
	v.SetDefault("auth.passwordhashcost", 10)
	v.SetDefault("auth.adminusername", "admin")
	v.SetDefault("auth.adminemail", "admin@mydemos.local")
	v.SetDefault("auth.adminpassword", "")

	v.SetDefault("swagger.title", "My new LMS")
	v.SetDefault("swagger.version", "v1")
	v.SetDefault("swagger.description", "Library Management System - API Version 1.0")
	v.SetDefault("swagger.endpointurl", "/swagger/v1/swagger.json")
	v.SetDefault("swagger.endpointname", "MyLMS Web API v1.0")
}

// New returns a viper instance with defaults, the LMS_ environment prefix
// and, when path is set, that file as the config file. Without a path it
// looks for appsettings.{json,yaml} in the working directory.
func New(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("appsettings")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (a missing file is fine) and decodes the
// result.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment: v.GetString("environment"),
		ConnectionStrings: ConnectionStringsConfig{
			MyDefaultConnectionString: v.GetString("connectionstrings.mydefaultconnectionstring"),
		},
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.readtimeout"),
			WriteTimeout:    v.GetDuration("server.writetimeout"),
			IdleTimeout:     v.GetDuration("server.idletimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdowntimeout"),
			RequestTimeout:  v.GetDuration("server.requesttimeout"),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    v.GetInt("database.maxopenconns"),
			MaxIdleConns:    v.GetInt("database.maxidleconns"),
			ConnMaxLifetime: v.GetDuration("database.connmaxlifetime"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Auth: AuthConfig{
			CookieName:              v.GetString("auth.cookiename"),
			LoginPath:               v.GetString("auth.loginpath"),
			LogoutPath:              v.GetString("auth.logoutpath"),
			AccessDeniedPath:        v.GetString("auth.accessdeniedpath"),
			ExpireTimeSpan:          v.GetDuration("auth.expiretimespan"),
			SlidingExpiration:       v.GetBool("auth.slidingexpiration"),
			CookieSecure:            v.GetBool("auth.cookiesecure"),
			SigningKey:              v.GetString("auth.signingkey"),
			RequireConfirmedAccount: v.GetBool("auth.requireconfirmedaccount"),
			PasswordRequiredLength:  v.GetInt("auth.passwordrequiredlength"),
			PasswordHashCost:        v.GetInt("auth.passwordhashcost"),
			AdminUserName:           v.GetString("auth.adminusername"),
			AdminEmail:              v.GetString("auth.adminemail"),
			AdminPassword:           v.GetString("auth.adminpassword"),
		},
		Swagger: SwaggerConfig{
			Title:        v.GetString("swagger.title"),
			Version:      v.GetString("swagger.version"),
			Description:  v.GetString("swagger.description"),
			EndpointURL:  v.GetString("swagger.endpointurl"),
			EndpointName: v.GetString("swagger.endpointname"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no safe fallback.
func (c *Config) Validate() error {
	if c.ConnectionStrings.MyDefaultConnectionString == "" {
		return errors.New("connection string MyDefaultConnectionString is required")
	}
	if c.Auth.ExpireTimeSpan <= 0 {
		return fmt.Errorf("auth.expiretimespan must be positive, got %s", c.Auth.ExpireTimeSpan)
	}
	if c.Auth.PasswordHashCost < 4 || c.Auth.PasswordHashCost > 31 {
		return fmt.Errorf("auth.passwordhashcost must be between 4 and 31, got %d", c.Auth.PasswordHashCost)
	}
	if c.Auth.PasswordRequiredLength < 1 {
		return fmt.Errorf("auth.passwordrequiredlength must be at least 1, got %d", c.Auth.PasswordRequiredLength)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}
