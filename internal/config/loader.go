package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load lee config.yaml (opcional), .env (opcional) y variables de entorno.
// Las env vars históricas del servicio (PORT, DB_DSN, LOG_LEVEL, LOG_FORMAT,
// APP_NAME, REDIS_ADDR) siguen funcionando.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	return load(v)
}

// LoadFrom lee un archivo de config explícito (tests / flags).
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config %s: %w", path, err)
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("http.port", "HTTP_PORT", "PORT")
	_ = v.BindEnv("database.dsn", "DATABASE_DSN", "DB_DSN")
	_ = v.BindEnv("logging.level", "LOGGING_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOGGING_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("app.name", "APP_NAME")
	_ = v.BindEnv("redis.address", "REDIS_ADDRESS", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("catalog.base_url", "CATALOG_BASE_URL")
	_ = v.BindEnv("catalog.api_key", "CATALOG_API_KEY")
	_ = v.BindEnv("identity.base_url", "IDENTITY_BASE_URL")
	_ = v.BindEnv("identity.api_key", "IDENTITY_API_KEY")
	_ = v.BindEnv("archive_export.enabled", "ARCHIVE_EXPORT_ENABLED")
	_ = v.BindEnv("archive_export.bucket", "ARCHIVE_EXPORT_BUCKET")
	_ = v.BindEnv("archive_export.region", "ARCHIVE_EXPORT_REGION")
	_ = v.BindEnv("archive_export.endpoint", "ARCHIVE_EXPORT_ENDPOINT")
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "pet-adoption-hub"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 5 * time.Second
	}
	// el stream SSE queda abierto; el timeout de escritura aplica al resto de rutas
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 10 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 5 * time.Second
	}
	if cfg.Identity.Timeout == 0 {
		cfg.Identity.Timeout = 5 * time.Second
	}
	if cfg.Identity.CacheTTL == 0 {
		cfg.Identity.CacheTTL = 10 * time.Minute
	}
	if cfg.ArchiveExport.Prefix == "" {
		cfg.ArchiveExport.Prefix = "archived-applications/"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", cfg.HTTP.Port)
	}
	if cfg.ArchiveExport.Enabled {
		if strings.TrimSpace(cfg.ArchiveExport.Bucket) == "" {
			return errors.New("archive_export.bucket is required when archive_export.enabled")
		}
		if strings.TrimSpace(cfg.ArchiveExport.Region) == "" {
			return errors.New("archive_export.region is required when archive_export.enabled")
		}
	}
	for i, p := range cfg.Catalog.SeedPets {
		if strings.TrimSpace(p.PetID) == "" || strings.TrimSpace(p.ShelterID) == "" {
			return fmt.Errorf("catalog.seed_pets[%d]: pet_id and shelter_id are required", i)
		}
	}
	return nil
}

// Addr devuelve la dirección de escucha del server HTTP.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
