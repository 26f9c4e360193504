package exportarchive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// Client archives generated entry-list exports to an S3-compatible bucket so
// the sheets handed to race control are reproducible after the fact.
type Client struct {
	s3Client *s3.Client
	config   *Config
}

// NewClient creates an archive client. Call only when the config is enabled.
func NewClient(cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("export archive is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	client := &Client{
		s3Client: s3Client,
		config:   cfg,
	}

	if err := client.testConnection(); err != nil {
		return nil, fmt.Errorf("failed to connect to archive bucket: %w", err)
	}

	log.Infof("[ExportArchive] initialized for bucket %s", cfg.BucketName)
	return client, nil
}

func (c *Client) testConnection() error {
	_, err := c.s3Client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(c.config.BucketName),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", c.config.BucketName, err)
	}
	return nil
}

// ArchivePDF uploads a generated export. Returns the object key.
func (c *Client) ArchivePDF(ctx context.Context, eventID string, pdf []byte) (string, error) {
	key := c.config.ObjectKey(eventID, time.Now())

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.config.BucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(pdf),
		ContentType:   aws.String("application/pdf"),
		ContentLength: aws.Int64(int64(len(pdf))),
		Metadata: map[string]string{
			"event-id":      eventID,
			"upload-source": "nats-registry-export",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	log.Infof("[ExportArchive] archived s3://%s/%s (%d bytes)", c.config.BucketName, key, len(pdf))
	return key, nil
}
