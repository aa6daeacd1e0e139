package config

import "testing"

func TestNew_RequiresAdminToken(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "")

	_, err := New()
	if err == nil {
		t.Fatal("Expected error when ADMIN_TOKEN is unset")
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "secret")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("VALIDATE_RATE_LIMIT", "")

	cfg, err := New()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "./keys.db" {
		t.Errorf("Expected default database ./keys.db, got %s", cfg.DatabaseURL)
	}
	if cfg.AdminToken != "secret" {
		t.Errorf("Expected admin token 'secret', got %s", cfg.AdminToken)
	}
	if cfg.ValidateRateLimit != 60 {
		t.Errorf("Expected default rate limit 60, got %d", cfg.ValidateRateLimit)
	}
}

func TestNew_RateLimitParsing(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "secret")

	t.Setenv("VALIDATE_RATE_LIMIT", "0")
	cfg, err := New()
	if err != nil {
		t.Fatalf("Expected no error for 0, got %v", err)
	}
	if cfg.ValidateRateLimit != 0 {
		t.Errorf("Expected rate limit 0, got %d", cfg.ValidateRateLimit)
	}

	t.Setenv("VALIDATE_RATE_LIMIT", "not-a-number")
	if _, err := New(); err == nil {
		t.Error("Expected error for non-numeric rate limit")
	}

	t.Setenv("VALIDATE_RATE_LIMIT", "-5")
	if _, err := New(); err == nil {
		t.Error("Expected error for negative rate limit")
	}
}
