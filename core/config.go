package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string // DEV (local; default), TEST, QA, PROD
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		RollbarToken string

		Server    ServerConfig
		Database  DatabaseConfig
		Identity  IdentityConfig
		Payment   PaymentConfig
		Admin     AdminConfig
		Email     EmailConfig
		Telemetry TelemetryConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugAddress    string
		PublicBaseURL   string
		StaticDir       string
		AllowOrigins    []string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine     string // postgres | sqlite
		DSN        string // used as-is when set
		Host       string
		Port       string
		User       string
		Password   string
		Name       string
		DisableTLS bool
	}

	// IdentityConfig points at the hosted auth provider whose access tokens we accept.
	IdentityConfig struct {
		JWTSecret string
		Issuer    string
	}

	PaymentConfig struct {
		KeyID     string
		KeySecret string
		BaseURL   string
		Currency  string
	}

	AdminConfig struct {
		APISecret string
		Emails    []string
	}

	EmailConfig struct {
		Provider         string // console | sendgrid | resend
		SendgridAPIKey   string
		ResendAPIKey     string
		DefaultFromEmail string
	}

	TelemetryConfig struct {
		OTLPEndpoint string
	}
)

// Address returns the database host:port pair.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IdentityEnabled reports whether session tokens can be verified.
func (c *Config) IdentityEnabled() bool { return c.Identity.JWTSecret != "" }

// PaymentEnabled reports whether the hosted payment gateway can be called.
func (c *Config) PaymentEnabled() bool { return c.Payment.KeyID != "" && c.Payment.KeySecret != "" }

// IsAdminEmail reports whether email belongs to a configured admin (case-insensitive).
func (c *Config) IsAdminEmail(email string) bool {
	email = CleanString(email, true /* lower */)
	if email == "" {
		return false
	}
	for _, e := range c.Admin.Emails {
		if e == email {
			return true
		}
	}
	return false
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Eduflick AI")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugAddress", ":4000")
	v.SetDefault("serverPublicBaseURL", "http://localhost:3000")
	v.SetDefault("serverStaticDir", "")
	v.SetDefault("serverAllowOrigins", "*")
	v.SetDefault("serverReadTimeout", 10*time.Second)
	v.SetDefault("serverWriteTimeout", 15*time.Second)
	v.SetDefault("serverShutdownTimeout", 15*time.Second)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseDSN", "")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseUser", "eduflick")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseName", "eduflick")
	v.SetDefault("databaseDisableTLS", false)

	v.SetDefault("identityJWTSecret", "")
	v.SetDefault("identityIssuer", "")

	v.SetDefault("paymentKeyID", "")
	v.SetDefault("paymentKeySecret", "")
	v.SetDefault("paymentBaseURL", "https://api.razorpay.com")
	v.SetDefault("paymentCurrency", "INR")

	v.SetDefault("adminAPISecret", "")
	v.SetDefault("adminEmails", "")

	v.SetDefault("emailProvider", "console")
	v.SetDefault("emailSendgridAPIKey", "")
	v.SetDefault("emailResendAPIKey", "")
	v.SetDefault("emailDefaultFromEmail", "Eduflick AI <noreply@localhost>")

	v.SetDefault("telemetryOTLPEndpoint", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Address:         v.GetString("serverAddress"),
			DebugAddress:    v.GetString("serverDebugAddress"),
			PublicBaseURL:   strings.TrimRight(v.GetString("serverPublicBaseURL"), "/"),
			StaticDir:       v.GetString("serverStaticDir"),
			AllowOrigins:    splitCSV(v.GetString("serverAllowOrigins"), false),
			ReadTimeout:     v.GetDuration("serverReadTimeout"),
			WriteTimeout:    v.GetDuration("serverWriteTimeout"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:     strings.ToLower(v.GetString("databaseEngine")),
			DSN:        v.GetString("databaseDSN"),
			Host:       v.GetString("databaseHost"),
			Port:       v.GetString("databasePort"),
			User:       v.GetString("databaseUser"),
			Password:   v.GetString("databasePassword"),
			Name:       v.GetString("databaseName"),
			DisableTLS: v.GetBool("databaseDisableTLS"),
		},
		Identity: IdentityConfig{
			JWTSecret: v.GetString("identityJWTSecret"),
			Issuer:    v.GetString("identityIssuer"),
		},
		Payment: PaymentConfig{
			KeyID:     v.GetString("paymentKeyID"),
			KeySecret: v.GetString("paymentKeySecret"),
			BaseURL:   strings.TrimRight(v.GetString("paymentBaseURL"), "/"),
			Currency:  v.GetString("paymentCurrency"),
		},
		Admin: AdminConfig{
			APISecret: v.GetString("adminAPISecret"),
			Emails:    splitCSV(v.GetString("adminEmails"), true),
		},
		Email: EmailConfig{
			Provider:         strings.ToLower(v.GetString("emailProvider")),
			SendgridAPIKey:   v.GetString("emailSendgridAPIKey"),
			ResendAPIKey:     v.GetString("emailResendAPIKey"),
			DefaultFromEmail: v.GetString("emailDefaultFromEmail"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: v.GetString("telemetryOTLPEndpoint"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: debug off, in-memory SQLite, fixed secrets.
func NewTestConfig() *Config {
	return &Config{
		Env:      "TEST",
		TestMode: true,
		AppName:  "Eduflick AI",
		Build:    "test",
		Server: ServerConfig{
			Host:            "localhost",
			Address:         ":0",
			PublicBaseURL:   "http://localhost:3000",
			AllowOrigins:    []string{"*"},
			ShutdownTimeout: time.Second,
		},
		Database: DatabaseConfig{Engine: "sqlite", DSN: ":memory:?_time_format=sqlite"},
		Identity: IdentityConfig{JWTSecret: "test-jwt-secret"},
		Payment: PaymentConfig{
			KeyID:     "rzp_test_key",
			KeySecret: "rzp_test_secret",
			BaseURL:   "http://localhost",
			Currency:  "INR",
		},
		Admin: AdminConfig{APISecret: "test-admin-secret", Emails: []string{"admin@eduflick.test"}},
		Email: EmailConfig{Provider: "console", DefaultFromEmail: "Eduflick AI <noreply@eduflick.test>"},
	}
}

func splitCSV(s string, lower bool) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := CleanString(part, lower); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) String() string {
	return fmt.Sprintf("%s(%s) env=%s db=%s", c.AppName, c.Build, c.Env, c.Database.Engine)
}
