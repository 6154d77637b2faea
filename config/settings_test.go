package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing explicit config file, got %+v", s)
	}

	s, err = Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Engine.Alpha != 0.7 || s.Engine.Threshold != 0.1 || s.Engine.TopK != 20 {
		t.Errorf("unexpected engine defaults: %+v", s.Engine)
	}
	if s.Server.DefaultLimit != 10 {
		t.Errorf("DefaultLimit = %d, want 10", s.Server.DefaultLimit)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hybridrec.yaml")
	content := `
database:
  driver: mysql
  host: db.internal
  port: 3306
  name: cinema
engine:
  top_k: 5
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DB_HOST", "db.override")
	t.Setenv("DB_PASS", "secret")
	t.Setenv("TOP_K", "7")
	t.Setenv("ADMIN_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Database.Driver != "mysql" || s.Database.Port != 3306 {
		t.Errorf("file values not applied: %+v", s.Database)
	}
	if s.Database.Host != "db.override" || s.Database.Password != "secret" {
		t.Errorf("env values not applied: %+v", s.Database)
	}
	if s.Engine.TopK != 7 {
		t.Errorf("TopK = %d, want 7", s.Engine.TopK)
	}
	if s.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", s.Log.Level)
	}
	if s.Server.AdminJWTSecret != "0123456789abcdef0123456789abcdef" || s.Server.AdminRole != "admin" {
		t.Errorf("admin auth = %q/%q", s.Server.AdminJWTSecret, s.Server.AdminRole)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"unknown driver", func(s *Settings) { s.Database.Driver = "sqlite" }},
		{"alpha out of range", func(s *Settings) { s.Engine.Alpha = 1.5 }},
		{"zero top k", func(s *Settings) { s.Engine.TopK = 0 }},
		{"redis enabled without addr", func(s *Settings) { s.Redis.Enabled = true; s.Redis.Addr = "" }},
		{"bad log level", func(s *Settings) { s.Log.Level = "loud" }},
		{"short admin secret", func(s *Settings) { s.Server.AdminJWTSecret = "short" }},
		{"empty admin role", func(s *Settings) { s.Server.AdminRole = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			if err := s.Validate(); err == nil {
				t.Errorf("Validate() expected error")
			}
		})
	}
	if err := DefaultSettings().Validate(); err != nil {
		t.Errorf("defaults should be valid: %v", err)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		password string
		sslmode  string
		wantUser string
		wantPass string
		wantSSL  string
	}{
		{name: "plain", user: "postgres", password: "pw", wantUser: "postgres", wantPass: "pw", wantSSL: "disable"},
		{name: "password with space", user: "postgres", password: "s3cret pass", wantUser: "postgres", wantPass: "s3cret pass", wantSSL: "disable"},
		{name: "password with separators", user: "app user", password: "a=b'c@d/e?f", sslmode: "require", wantUser: "app user", wantPass: "a=b'c@d/e?f", wantSSL: "require"},
		{name: "no credentials", wantSSL: "disable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DefaultSettings().Database
			d.User, d.Password, d.SSLMode = tt.user, tt.password, tt.sslmode

			u, err := url.Parse(d.DSN())
			if err != nil {
				t.Fatalf("DSN %q does not parse: %v", d.DSN(), err)
			}
			if u.Scheme != "postgres" || u.Host != "localhost:5432" || u.Path != "/cinema" {
				t.Errorf("DSN = %q", d.DSN())
			}
			pass, _ := u.User.Password()
			if u.User.Username() != tt.wantUser || pass != tt.wantPass {
				t.Errorf("credentials = %q/%q, want %q/%q", u.User.Username(), pass, tt.wantUser, tt.wantPass)
			}
			if got := u.Query().Get("sslmode"); got != tt.wantSSL {
				t.Errorf("sslmode = %q, want %q", got, tt.wantSSL)
			}
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	d := DefaultSettings().Database
	d.Driver = "mysql"
	d.Port = 3306
	if got := d.DSN(); !strings.Contains(got, "tcp(localhost:3306)/cinema") {
		t.Errorf("mysql DSN = %q", got)
	}
}
