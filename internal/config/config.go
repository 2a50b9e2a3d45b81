package config

import (
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for meridian.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - HTTPPort: The port of the REST API.
// - HealthPort: The port of the monitoring server.
// - Storage: Where uploaded images are kept.
// - Cache: Redis settings of the list cache.
// - Database: Configuration settings for the PostgreSQL database.
// - Geocoder: The address lookup provider.
// - MapView: Settings of the terminal map view.
type Config struct {
	Env        string         `yaml:"env"`         // Env is the current environment: local, development, production.
	HTTPPort   int            `yaml:"http.port"`   // HTTPPort is the REST API port.
	HealthPort int            `yaml:"health.port"` // HealthPort is the monitoring server port.
	Storage    StorageConfig  `yaml:"storage"`
	Cache      CacheConfig    `yaml:"cache"`
	Database   PostgresConfig `yaml:"postgres"` // Database holds the postgres database configuration
	Geocoder   GeocoderConfig `yaml:"geocoder"`
	MapView    MapViewConfig  `yaml:"mapview"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`                        // Host is the database server address.
	Port     string `yaml:"port"     env-default:"5432"` // Port is the database server port.
	User     string `yaml:"user"`                        // User is the database user.
	Password string `yaml:"password"`                    // Password is the database user's password.
	Name     string `yaml:"db_name"`                     // Name is the name of the database.
}

// StorageConfig selects the image store. Backend is "disk" or "s3".
type StorageConfig struct {
	Backend   string `yaml:"backend"`
	UploadDir string `yaml:"upload_dir"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// CacheConfig configures the redis list cache. An empty Addr disables it.
type CacheConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// GeocoderConfig selects the geocoding provider.
type GeocoderConfig struct {
	Provider string `yaml:"provider"` // Provider is nominatim or google.
	APIKey   string `yaml:"api_key"`  // APIKey is required for Google.
	BaseURL  string `yaml:"base_url"` // BaseURL of a self-hosted Nominatim.
}

// MapViewConfig configures the terminal map view.
type MapViewConfig struct {
	APIBase        string        `yaml:"api_base"`
	IdleDelay      time.Duration `yaml:"idle_delay"`
	AmbientMode    string        `yaml:"ambient_mode"` // AmbientMode is arcs or route.
	OfficesEnabled bool          `yaml:"offices_enabled"`
	ClientsEnabled bool          `yaml:"clients_enabled"`
	LogFile        string        `yaml:"log_file"`
}

// MustLoad reads .env and the environment and returns a Config struct.
// It panics when a value cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		Env:        v.GetString("MERIDIAN_ENV"),
		HTTPPort:   mustInt(v, "MERIDIAN_HTTP_PORT", "failed to parse http port from configuration"),
		HealthPort: mustInt(v, "MERIDIAN_HEALTH_PORT", "failed to parse port for monitoring server from configuration"),
		Storage: StorageConfig{
			Backend:   v.GetString("MERIDIAN_STORAGE"),
			UploadDir: v.GetString("MERIDIAN_UPLOAD_DIR"),
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    mustBool(v, "MINIO_USE_SSL", "failed to parse minio ssl flag from configuration"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		Cache: CacheConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       mustInt(v, "REDIS_DB", "failed to parse redis db from configuration, must be an integer"),
			TTL:      mustDuration(v, "MERIDIAN_CACHE_TTL", "failed to parse cache ttl from configuration"),
		},
		Database: PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USERNAME"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
		},
		Geocoder: GeocoderConfig{
			Provider: v.GetString("MERIDIAN_GEOCODER"),
			APIKey:   v.GetString("MERIDIAN_GEOCODER_KEY"),
			BaseURL:  v.GetString("MERIDIAN_NOMINATIM_URL"),
		},
		MapView: MapViewConfig{
			APIBase:        v.GetString("MERIDIAN_API_BASE"),
			IdleDelay:      mustDuration(v, "MERIDIAN_IDLE_DELAY", "failed to parse idle delay from configuration"),
			AmbientMode:    v.GetString("MERIDIAN_AMBIENT_MODE"),
			OfficesEnabled: mustBool(v, "MERIDIAN_OFFICES_ENABLED", "failed to parse offices toggle from configuration"),
			ClientsEnabled: mustBool(v, "MERIDIAN_CLIENTS_ENABLED", "failed to parse clients toggle from configuration"),
			LogFile:        v.GetString("MERIDIAN_MAPVIEW_LOG"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MERIDIAN_ENV", "production")
	v.SetDefault("MERIDIAN_HTTP_PORT", "3000")
	v.SetDefault("MERIDIAN_HEALTH_PORT", "8080")
	v.SetDefault("MERIDIAN_STORAGE", "disk")
	v.SetDefault("MERIDIAN_UPLOAD_DIR", "uploads")
	v.SetDefault("MINIO_USE_SSL", "false")
	v.SetDefault("MINIO_BUCKET", "meridian")
	v.SetDefault("REDIS_DB", "0")
	v.SetDefault("MERIDIAN_CACHE_TTL", "30s")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("MERIDIAN_GEOCODER", "nominatim")
	v.SetDefault("MERIDIAN_API_BASE", "http://localhost:3000/api")
	v.SetDefault("MERIDIAN_IDLE_DELAY", "5s")
	v.SetDefault("MERIDIAN_AMBIENT_MODE", "arcs")
	v.SetDefault("MERIDIAN_OFFICES_ENABLED", "true")
	v.SetDefault("MERIDIAN_CLIENTS_ENABLED", "true")
}

func mustInt(v *viper.Viper, key, msg string) int {
	value, err := strconv.Atoi(v.GetString(key))
	if err != nil {
		panic(msg)
	}
	return value
}

func mustBool(v *viper.Viper, key, msg string) bool {
	value, err := strconv.ParseBool(v.GetString(key))
	if err != nil {
		panic(msg)
	}
	return value
}

func mustDuration(v *viper.Viper, key, msg string) time.Duration {
	value, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		panic(msg)
	}
	return value
}
