package helpers

import (
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// EnvOverrides are config values that may be provided through the environment
type EnvOverrides struct {
	DiscordToken   string `env:"DISCORD_TOKEN"`
	StorageBackend string `env:"GUARDIAN_STORAGE_BACKEND"`
	MongoDbURL     string `env:"GUARDIAN_MONGODB_URL"`
	MongoDbName    string `env:"GUARDIAN_MONGODB_DB"`
	RedisAddress   string `env:"GUARDIAN_REDIS_ADDRESS"`
	RedisPassword  string `env:"GUARDIAN_REDIS_PASSWORD"`
	SentryDSN      string `env:"SENTRY_DSN"`
	APIListen      string `env:"GUARDIAN_API_LISTEN"`
}

// LoadDotEnv loads $path into the environment, a missing file is not an error
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return errors.Wrap(godotenv.Load(path), "loading "+path+" failed")
}

// ApplyEnvOverrides writes all set environment overrides into the config
func ApplyEnvOverrides() error {
	var overrides EnvOverrides
	err := env.Parse(&overrides)
	if err != nil {
		return errors.Wrap(err, "parsing environment failed")
	}

	container := GetConfig()
	for path, value := range map[string]string{
		"discord.token":   overrides.DiscordToken,
		"storage.backend": overrides.StorageBackend,
		"mongodb.url":     overrides.MongoDbURL,
		"mongodb.db":      overrides.MongoDbName,
		"redis.address":   overrides.RedisAddress,
		"redis.password":  overrides.RedisPassword,
		"sentry":          overrides.SentryDSN,
		"api.listen":      overrides.APIListen,
	} {
		if value == "" {
			continue
		}
		_, err = container.SetP(value, path)
		if err != nil {
			return errors.Wrap(err, "setting "+path+" failed")
		}
	}
	SetConfig(container)
	return nil
}
