package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"PORT", "DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD",
		"DB_NAME", "DB_SSLMODE", "REDIS_ADDR", "JWT_SECRET", "JWT_EXPIRE_HOURS",
		"SMTP_HOST", "SMS_API_URL", "SMS_API_KEY",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
	if cfg.Database.SSLMode != "disable" {
		t.Errorf("Database.SSLMode = %q, want %q", cfg.Database.SSLMode, "disable")
	}
	if cfg.JWT.ExpireHours != 24 {
		t.Errorf("JWT.ExpireHours = %d, want 24", cfg.JWT.ExpireHours)
	}
	if cfg.SMS.APIURL != "" {
		t.Errorf("SMS.APIURL = %q, want empty", cfg.SMS.APIURL)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	os.Setenv("PORT", "9090")
	os.Setenv("JWT_EXPIRE_HOURS", "2")
	os.Setenv("DB_NAME", "hms_test")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "9090")
	}
	if cfg.JWT.ExpireHours != 2 {
		t.Errorf("JWT.ExpireHours = %d, want 2", cfg.JWT.ExpireHours)
	}
	if cfg.Database.DBName != "hms_test" {
		t.Errorf("Database.DBName = %q, want %q", cfg.Database.DBName, "hms_test")
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "hospital", SSLMode: "disable"}
	want := "postgres://u:p@db:5432/hospital?sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	c.URL = "postgres://other/dsn"
	if got := c.DSN(); got != c.URL {
		t.Errorf("DSN() = %q, want URL passthrough %q", got, c.URL)
	}
}
