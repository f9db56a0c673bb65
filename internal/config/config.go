package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-derived application configuration. Everything
// loaded from YAML (roles, levels, prompts, provider settings) lives in
// Catalog instead.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	GeminiAPIKey    string
	FrameworksDir   string
	ConfigDir       string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load("cmd/.env")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		FrameworksDir:   getEnv("FRAMEWORKS_DIR", "frameworks"),
		ConfigDir:       getEnv("CONFIG_DIR", "config"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	default:
		return "dev"
	}
}
