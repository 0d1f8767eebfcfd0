package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Debug                    bool          `envconfig:"debug"`
	Port                     int           `envconfig:"port" default:"8080"`
	Env                      string        `envconfig:"env" default:"dev"`
	StorageDriver            string        `envconfig:"storage_driver" default:"postgres"`
	PostgresHost             string        `envconfig:"postgres_host" default:"localhost"`
	PostgresUser             string        `envconfig:"postgres_user" default:"postgres"`
	PostgresDB               string        `envconfig:"postgres_db" default:"wastewatch"`
	PostgresPort             int           `envconfig:"postgres_port" default:"5432"`
	PostgresPassword         string        `envconfig:"postgres_password"`
	PostgresSSLMode          string        `envconfig:"postgres_sslmode" default:"disable"`
	JWTSecret                string        `envconfig:"jwt_secret" required:"true"`
	RedisURL                 string        `envconfig:"redis_url"`
	RedisChannel             string        `envconfig:"redis_channel" default:"wastewatch:notifications"`
	DefaultSubmissionLimit   int           `envconfig:"default_submission_limit" default:"5"`
	DefaultRewardPerReport   int           `envconfig:"default_reward_per_resolution" default:"10"`
	GeoLookupTimeout         time.Duration `envconfig:"geo_lookup_timeout" default:"3s"`
	NotificationListLimit    int           `envconfig:"notification_list_limit" default:"100"`
	ShutdownTimeout          time.Duration `envconfig:"shutdown_timeout" default:"10s"`
	AccessControlAllowOrigin string        `envconfig:"access_control_allow_origin"`
	AWSRegion                string        `envconfig:"aws_region" default:"us-east-1"`
	AWSAccessKeyID           string        `envconfig:"aws_access_key_id"`
	AWSSecretAccessKey       string        `envconfig:"aws_secret_access_key"`
	S3Bucket                 string        `envconfig:"s3_bucket"`
	MaxImageWidth            int           `envconfig:"max_image_width" default:"1600"`
	UploadRatePerMinute      uint          `envconfig:"upload_rate_per_minute" default:"10"`
	ReportRatePerMinute      uint          `envconfig:"report_rate_per_minute" default:"3"`
}

func Load() (*Config, error) {
	env := os.Getenv("GIN_MODE")
	if env != "release" {
		if err := godotenv.Load("./.env"); err != nil {
			log.Printf("couldn't load env vars: %v", err)
		}
	}

	c := &Config{}
	err := envconfig.Process("wastewatch", c)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return nil, errors.New("WASTEWATCH_JWT_SECRET must not be blank")
	}
	return c, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

// UsesMemoryStore reports whether repositories are backed by process memory.
func (c *Config) UsesMemoryStore() bool {
	return c.StorageDriver == "memory"
}
