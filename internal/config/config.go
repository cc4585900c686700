package config

import "os"

const (
	defaultDBPath = "./dev.db"
	defaultPort   = "8080"
	defaultEnv    = "dev"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env      string
	Port     string
	DBPath   string
	SeedDemo bool
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	cfg := Config{
		Env:      os.Getenv("APP_ENV"),
		Port:     os.Getenv("PORT"),
		DBPath:   os.Getenv("DB_PATH"),
		SeedDemo: os.Getenv("SEED_DEMO") == "1",
	}

	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}

	return cfg
}

// IsDev reports whether the app runs outside production.
func (c Config) IsDev() bool {
	return c.Env != "production"
}
