package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "SLACKR_"

type Config struct {
	Server struct {
		Port        string   `koanf:"port"`
		CORSOrigins []string `koanf:"cors_origins"`
	} `koanf:"server"`

	DB struct {
		Path     string `koanf:"path"`
		ReactIDs []int  `koanf:"react_ids"`
	} `koanf:"db"`

	Auth struct {
		JWTSecret string        `koanf:"jwt_secret"`
		TokenTTL  time.Duration `koanf:"token_ttl"`
	} `koanf:"auth"`

	Client struct {
		BaseURL string        `koanf:"base_url"`
		Token   string        `koanf:"token"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"client"`

	Log struct {
		Level  string `koanf:"level"`
		Pretty bool   `koanf:"pretty"`
	} `koanf:"log"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":         "8080",
		"server.cors_origins": []string{"*"},
		"db.path":             "./slackr.db",
		"db.react_ids":        []int{1, 2, 3, 4},
		"auth.jwt_secret":     "slackr-secret-key-change-in-production",
		"auth.token_ttl":      "168h",
		"client.base_url":     "http://localhost:8080",
		"client.timeout":      "10s",
		"log.level":           "info",
		"log.pretty":          false,
	}
}

// Load reads defaults, then the TOML file at path (if any), then .env and
// SLACKR_* environment variables. SLACKR_AUTH_JWT_SECRET sets auth.jwt_secret.
func Load(path string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// listKeys are the keys whose env values are comma separated lists.
var listKeys = map[string]bool{
	"server.cors_origins": true,
	"db.react_ids":        true,
}

// envValue maps an env var onto its config key and splits list values.
func envValue(name, value string) (string, interface{}) {
	key := envKey(name)
	if !listKeys[key] {
		return key, value
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// envKey maps SLACKR_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, found := strings.Cut(s, "_")
	if !found {
		return s
	}
	return section + "." + rest
}
