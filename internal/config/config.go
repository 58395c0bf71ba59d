// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	AWS         AWSConfig
	Imagery     ImageryConfig
	Geofence    GeofenceConfig
	Classify    ClassifyConfig
	Yield       YieldConfig
	Prices      PriceConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
}

// ImageryConfig drives the satellite composite requests.
type ImageryConfig struct {
	BaseURL        string
	TimeoutSeconds int
	LookbackDays   int     // trailing window for the composite
	CloudThreshold float64 // tiles above this cloud fraction are rejected
	Scale          int     // sampling scale in meters
}

// GeofenceConfig restricts where new fields may be registered.
// Defaults cover Mueang Phayao district.
type GeofenceConfig struct {
	Enabled bool
	MinLon  float64
	MinLat  float64
	MaxLon  float64
	MaxLat  float64
}

// ClassifyConfig holds the spectral index cutoffs of the land-cover rules.
type ClassifyConfig struct {
	WaterMax     float64 // NDVI below this is water
	RoadMax      float64 // NDVI below this (and >= WaterMax) is bare soil / road
	YoungRiceMax float64 // NDVI below this (and >= RoadMax) is young rice
}

// YieldConfig holds the linear yield model coefficients:
// yield per rai = max(0, (Slope*NDVI - Intercept) / Divisor).
type YieldConfig struct {
	Slope              float64
	Intercept          float64
	Divisor            float64
	SquareMetersPerRai float64
}

// PriceConfig is the variety-indexed price table in baht per ton.
type PriceConfig struct {
	PerVariety map[string]float64
	Default    float64
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 60),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "ricelink"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "ap-southeast-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "ricelink-reports"),
		},
		Imagery: ImageryConfig{
			BaseURL:        getEnv("IMAGERY_BASE_URL", "http://127.0.0.1:8000"),
			TimeoutSeconds: getEnvAsInt("IMAGERY_TIMEOUT", 25),
			LookbackDays:   getEnvAsInt("IMAGERY_LOOKBACK_DAYS", 60),
			CloudThreshold: getEnvAsFloat("IMAGERY_CLOUD_THRESHOLD", 0.8),
			Scale:          getEnvAsInt("IMAGERY_SCALE", 10),
		},
		Geofence: GeofenceConfig{
			Enabled: getEnvAsBool("GEOFENCE_ENABLED", true),
			MinLon:  getEnvAsFloat("GEOFENCE_MIN_LON", 99.80),
			MinLat:  getEnvAsFloat("GEOFENCE_MIN_LAT", 19.00),
			MaxLon:  getEnvAsFloat("GEOFENCE_MAX_LON", 100.10),
			MaxLat:  getEnvAsFloat("GEOFENCE_MAX_LAT", 19.35),
		},
		Classify: ClassifyConfig{
			WaterMax:     getEnvAsFloat("CLASSIFY_WATER_MAX", 0.0),
			RoadMax:      getEnvAsFloat("CLASSIFY_ROAD_MAX", 0.30),
			YoungRiceMax: getEnvAsFloat("CLASSIFY_YOUNG_RICE_MAX", 0.45),
		},
		Yield: YieldConfig{
			Slope:              getEnvAsFloat("YIELD_SLOPE", 6.5),
			Intercept:          getEnvAsFloat("YIELD_INTERCEPT", 1.2),
			Divisor:            getEnvAsFloat("YIELD_DIVISOR", 6.25),
			SquareMetersPerRai: getEnvAsFloat("SQUARE_METERS_PER_RAI", 1600),
		},
		Prices: PriceConfig{
			PerVariety: map[string]float64{
				"KDML105": getEnvAsFloat("PRICE_KDML105", 15000),
				"RD6":     getEnvAsFloat("PRICE_RD6", 12500),
				"RD15":    getEnvAsFloat("PRICE_RD15", 12800),
				"PATHUM1": getEnvAsFloat("PRICE_PATHUM1", 11500),
			},
			Default: getEnvAsFloat("PRICE_DEFAULT", 10000),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Geofence.MinLon >= c.Geofence.MaxLon || c.Geofence.MinLat >= c.Geofence.MaxLat {
		return fmt.Errorf("geofence bounds are inverted")
	}

	if c.Imagery.CloudThreshold <= 0 || c.Imagery.CloudThreshold > 1 {
		return fmt.Errorf("imagery cloud threshold must be in (0, 1]")
	}

	return nil
}

// DSN builds the postgres connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// PriceFor returns the baht-per-ton price for a rice variety, falling back
// to the default price for unlisted varieties.
func (p PriceConfig) PriceFor(variety string) float64 {
	if price, ok := p.PerVariety[variety]; ok {
		return price
	}
	return p.Default
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
