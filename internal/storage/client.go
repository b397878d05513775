package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrObjectExists = errors.New("object already exists")

type Config struct {
	Endpoint string
	Access   string
	Secret   string
	Bucket   string
	UseSSL   bool
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// Client reads input images from and publishes finished documents to an
// S3-compatible store. Bucket is the default target for uploads.
type Client struct {
	minio  *minio.Client
	bucket string
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Access, cfg.Secret, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Client{
		minio:  mc,
		bucket: strings.TrimSpace(cfg.Bucket),
	}, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := c.minio.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.minio.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		exists, checkErr := c.minio.BucketExists(ctx, bucket)
		if checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	return nil
}

func (c *Client) ObjectExists(ctx context.Context, bucket, objectKey string) (bool, error) {
	_, err := c.minio.StatObject(ctx, bucket, objectKey, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" {
		return false, nil
	}
	return false, fmt.Errorf("stat object %s/%s: %w", bucket, objectKey, err)
}

func (c *Client) ReadObject(ctx context.Context, bucket, objectKey string) ([]byte, error) {
	obj, err := c.minio.GetObject(ctx, bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, objectKey, err)
	}
	return data, nil
}

// PublishFile uploads the local file at path to the default bucket under
// objectKey. An existing object is never overwritten.
func (c *Client) PublishFile(ctx context.Context, path, objectKey string) error {
	if c.bucket == "" {
		return fmt.Errorf("upload bucket is not configured")
	}
	if err := c.EnsureBucket(ctx, c.bucket); err != nil {
		return err
	}

	exists, err := c.ObjectExists(ctx, c.bucket, objectKey)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s/%s", ErrObjectExists, c.bucket, objectKey)
	}

	if _, err := c.minio.FPutObject(ctx, c.bucket, objectKey, path, minio.PutObjectOptions{ContentType: "application/pdf"}); err != nil {
		return fmt.Errorf("upload %s to %s/%s: %w", path, c.bucket, objectKey, err)
	}
	return nil
}
