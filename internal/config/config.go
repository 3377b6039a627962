package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	B2     B2Config
	Wagon  WagonConfig
	Server ServerConfig
	Log    LogConfig
}

// B2Config carries the credentials and endpoint for the S3-compatible
// Backblaze B2 API. KeyID/ApplicationKey map onto the username/password
// pair Maven keeps in settings.xml for the repository server entry.
type B2Config struct {
	KeyID          string
	ApplicationKey string
	Endpoint       string
	Region         string
	UseSSL         bool
}

type WagonConfig struct {
	// RepoURL is the default repository location, e.g. b2://bucket/releases
	RepoURL string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("B2_KEY_ID", "")
		viper.SetDefault("B2_APPLICATION_KEY", "")
		viper.SetDefault("B2_ENDPOINT", "s3.us-west-004.backblazeb2.com")
		viper.SetDefault("B2_REGION", "us-west-004")
		viper.SetDefault("B2_USE_SSL", true)
		viper.SetDefault("WAGON_REPO_URL", "")
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "release")
		viper.SetDefault("SERVER_READ_TIMEOUT", 30)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 300)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("LOG_LEVEL", "info")

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			B2: B2Config{
				KeyID:          viper.GetString("B2_KEY_ID"),
				ApplicationKey: viper.GetString("B2_APPLICATION_KEY"),
				Endpoint:       viper.GetString("B2_ENDPOINT"),
				Region:         viper.GetString("B2_REGION"),
				UseSSL:         viper.GetBool("B2_USE_SSL"),
			},
			Wagon: WagonConfig{
				RepoURL: viper.GetString("WAGON_REPO_URL"),
			},
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Log: LogConfig{
				Level: viper.GetString("LOG_LEVEL"),
			},
		}
	})

	return instance
}
