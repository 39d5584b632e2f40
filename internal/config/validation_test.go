package config

import (
	"strings"
	"testing"
	"time"
)

func validTestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:             "localhost",
			Port:             "5432",
			Database:         "testdb",
			Username:         "testuser",
			Password:         "testpass",
			MinConns:         1,
			MaxConns:         10,
			AcquireTimeout:   5 * time.Second,
			StatementTimeout: 60 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Claude: ClaudeConfig{
			APIKey: "sk-ant-test",
			Model:  "claude-3-haiku-20240307",
		},
		Auth: AuthConfig{
			JWTSecret: "test-secret-key",
			JWTExpiry: 24 * time.Hour,
			RateLimit: 100,
		},
		Server: ServerConfig{
			Port:    "8080",
			GinMode: "debug",
		},
		Query: QueryConfig{
			MaxQuestionLength: 500,
			CacheTTL:          5 * time.Minute,
			SimilarExamples:   5,
			StoreExamples:     true,
		},
	}
}

func TestConfigValidation(t *testing.T) {
	t.Run("valid config passes validation", func(t *testing.T) {
		cfg := validTestConfig()

		err := cfg.Validate()
		if err != nil {
			t.Errorf("expected no validation errors, got: %v", err)
		}
	})

	t.Run("missing database host fails validation", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Database.Host = ""

		err := cfg.Validate()
		if err == nil {
			t.Error("expected validation error for missing database host")
		}
		if !strings.Contains(err.Error(), "Database.Host") {
			t.Errorf("expected error about Database.Host, got: %v", err)
		}
	})

	t.Run("missing Claude API key fails validation", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Claude.APIKey = ""

		err := cfg.Validate()
		if err == nil {
			t.Error("expected validation error for missing Claude API key")
		}
		if !strings.Contains(err.Error(), "Claude.APIKey") {
			t.Errorf("expected error about Claude.APIKey, got: %v", err)
		}
	})

	t.Run("invalid gin mode fails validation", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Server.GinMode = "invalid-mode"

		err := cfg.Validate()
		if err == nil {
			t.Error("expected validation error for invalid gin mode")
		}
		if !strings.Contains(err.Error(), "Server.GinMode") {
			t.Errorf("expected error about Server.GinMode, got: %v", err)
		}
	})

	t.Run("min conns above max conns fails validation", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Database.MinConns = 20
		cfg.Database.MaxConns = 10

		err := cfg.Validate()
		if err == nil {
			t.Error("expected validation error for min conns above max conns")
		}
		if !strings.Contains(err.Error(), "Database.MinConns") {
			t.Errorf("expected error about Database.MinConns, got: %v", err)
		}
	})

	t.Run("non-positive statement timeout fails validation", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Database.StatementTimeout = 0

		err := cfg.Validate()
		if err == nil {
			t.Error("expected validation error for zero statement timeout")
		}
		if !strings.Contains(err.Error(), "Database.StatementTimeout") {
			t.Errorf("expected error about Database.StatementTimeout, got: %v", err)
		}
	})

	t.Run("negative JWT expiry fails validation", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Auth.JWTExpiry = -1 * time.Hour

		err := cfg.Validate()
		if err == nil {
			t.Error("expected validation error for negative JWT expiry")
		}
		if !strings.Contains(err.Error(), "Auth.JWTExpiry") {
			t.Errorf("expected error about Auth.JWTExpiry, got: %v", err)
		}
	})

	t.Run("collects multiple errors", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Database.Host = ""
		cfg.Redis.Addr = ""
		cfg.Claude.Model = ""

		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected validation errors")
		}

		verrs, ok := err.(ValidationErrors)
		if !ok {
			t.Fatalf("expected ValidationErrors, got %T", err)
		}
		if len(verrs) != 3 {
			t.Errorf("expected 3 validation errors, got %d: %v", len(verrs), err)
		}
	})
}

func TestProductionValidation(t *testing.T) {
	productionConfig := func() *Config {
		cfg := validTestConfig()
		cfg.Server.GinMode = "release"
		cfg.Auth.JWTSecret = "a-long-production-jwt-secret-at-least-32-chars"
		cfg.Redis.Password = "redis-production-pass"
		return cfg
	}

	t.Run("secure production config passes", func(t *testing.T) {
		cfg := productionConfig()

		if err := cfg.ValidateProduction(); err != nil {
			t.Errorf("expected no production validation errors, got: %v", err)
		}
	})

	t.Run("empty database password fails", func(t *testing.T) {
		cfg := productionConfig()
		cfg.Database.Password = ""

		err := cfg.ValidateProduction()
		if err == nil {
			t.Error("expected production validation error for empty database password")
		}
	})

	t.Run("short JWT secret fails", func(t *testing.T) {
		cfg := productionConfig()
		cfg.Auth.JWTSecret = "short"

		err := cfg.ValidateProduction()
		if err == nil {
			t.Error("expected production validation error for short JWT secret")
		}
	})

	t.Run("anonymous access fails", func(t *testing.T) {
		cfg := productionConfig()
		cfg.Auth.AllowAnonymous = true

		err := cfg.ValidateProduction()
		if err == nil {
			t.Error("expected production validation error for anonymous access")
		}
	})

	t.Run("debug mode fails", func(t *testing.T) {
		cfg := productionConfig()
		cfg.Server.GinMode = "debug"

		err := cfg.ValidateProduction()
		if err == nil {
			t.Error("expected production validation error for debug mode")
		}
	})

	t.Run("ValidateWithContext skips production checks in debug mode", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Database.Password = ""

		if err := cfg.ValidateWithContext(); err != nil {
			t.Errorf("expected no error in debug mode, got: %v", err)
		}
	})
}

func TestIsProduction(t *testing.T) {
	cfg := validTestConfig()

	if cfg.IsProduction() {
		t.Error("debug mode should not be production")
	}

	cfg.Server.GinMode = "release"
	if !cfg.IsProduction() {
		t.Error("release mode should be production")
	}
}
