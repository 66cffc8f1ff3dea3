// File: internal/platform/objectstore/s3.go
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	appconfig "agromarket_backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store is the object storage surface the image service depends on.
// It is satisfied by Client and mocked in tests.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// s3API is the subset of the AWS S3 client used by Client.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Client stores image objects in an S3-compatible bucket. The client is
// injected once at startup rather than constructed per request, so a broken
// storage configuration fails at boot instead of on the first upload.
type Client struct {
	api           s3API
	bucket        string
	region        string
	accountID     string
	customDomain  string
	publicURLBase string
}

// New builds a Client from application configuration. A custom endpoint
// (Cloudflare R2 or a local MinIO) switches the client to path-style
// addressing.
func New(ctx context.Context, cfg *appconfig.Config) (*Client, error) {
	if cfg.StorageBucket == "" {
		return nil, fmt.Errorf("STORAGE_BUCKET is not set")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.StorageRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.StorageEndpoint != "" {
		endpoint := cfg.StorageEndpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &Client{
		api:           s3.NewFromConfig(awsCfg, s3Opts...),
		bucket:        cfg.StorageBucket,
		region:        cfg.StorageRegion,
		accountID:     cfg.StorageAccountID,
		customDomain:  cfg.StorageCustomDomain,
		publicURLBase: cfg.StoragePublicURLBase,
	}, nil
}

// NewWithAPI creates a Client around an existing S3 API implementation.
// This is primarily used for testing with mocked clients.
func NewWithAPI(api s3API, bucket string) *Client {
	return &Client{api: api, bucket: bucket, region: "us-east-1"}
}

// Put uploads an object under key with the given content type.
func (c *Client) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// PublicURL resolves the externally reachable URL for a stored object.
// Preference order: custom domain, configured public base, R2 account URL,
// AWS regional URL.
func (c *Client) PublicURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	switch {
	case c.customDomain != "":
		return fmt.Sprintf("https://%s/%s", strings.TrimSuffix(c.customDomain, "/"), key)
	case c.publicURLBase != "":
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(c.publicURLBase, "/"), key)
	case c.accountID != "":
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com/%s/%s", c.accountID, c.bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
	}
}
