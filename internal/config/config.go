package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Auth        AuthConfig                `json:"auth"`
	Video       VideoConfig               `json:"video"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
}

// DatabaseConfig holds connection settings for one driver. Sqlite uses DSN
// only; mysql uses the host/credential fields.
type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// AuthConfig tunes browser authentication. Zero values fall back to the
// auth service defaults.
type AuthConfig struct {
	TokenTTLHours  int    `json:"token_ttl_hours"`
	CookieName     string `json:"cookie_name"`
	CSRFCookieName string `json:"csrf_cookie_name"`
	CSRFHeaderName string `json:"csrf_header_name"`
}

// VideoConfig carries the media-transport provider credentials used to sign
// room tokens.
type VideoConfig struct {
	AppID           string `json:"app_id"`
	AppCertificate  string `json:"app_certificate"`
	TokenTTLMinutes int    `json:"token_ttl_minutes"`
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("at least one database must be configured")
	}
	if cfg.Video.AppID == "" || cfg.Video.AppCertificate == "" {
		return nil, fmt.Errorf("video app_id and app_certificate must be configured")
	}

	// Relative sqlite paths are resolved against the config file directory.
	if db, ok := cfg.Databases["sqlite3"]; ok && db.DSN != "" && !filepath.IsAbs(db.DSN) {
		db.DSN = filepath.Join(filepath.Dir(absPath), db.DSN)
		cfg.Databases["sqlite3"] = db
	}

	return &cfg, nil
}
