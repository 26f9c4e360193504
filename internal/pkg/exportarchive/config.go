package exportarchive

import (
	"errors"
	"fmt"
	"time"

	"github.com/rokcupza/nats-registry/internal/pkg/env"
)

// Config holds the export archive bucket configuration.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads the archive configuration from environment variables.
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "af-south-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnv("EXPORT_ARCHIVE_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when the export archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when the export archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when the export archive is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if archiving is switched on.
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey generates the archive key for an event export.
// Format: exports/YYYY/MM/<event_id>-<timestamp>.pdf
func (c *Config) ObjectKey(eventID string, at time.Time) string {
	return fmt.Sprintf("exports/%04d/%02d/%s-%d.pdf", at.Year(), int(at.Month()), eventID, at.Unix())
}
