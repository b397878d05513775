package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

const objectScheme = "s3://"

var ErrUnsupportedSource = errors.New("unsupported input source")

type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

type LocalFileFetcher struct{}

func (LocalFileFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if IsObjectURL(source) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read input file %s: %w", source, err)
	}
	return data, nil
}

type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, objectKey string) ([]byte, error)
}

type ObjectStoreFetcher struct {
	Storage ObjectReader
}

func (f ObjectStoreFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if f.Storage == nil {
		return nil, fmt.Errorf("%w: %s: object storage is not configured", ErrUnsupportedSource, source)
	}
	bucket, key, err := ParseObjectURL(source)
	if err != nil {
		return nil, err
	}
	return f.Storage.ReadObject(ctx, bucket, key)
}

// SourceFetcher routes s3:// URLs to Object and everything else to Local.
type SourceFetcher struct {
	Local  Fetcher
	Object Fetcher
}

func (f SourceFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if IsObjectURL(source) {
		if f.Object == nil {
			return nil, fmt.Errorf("%w: %s: object storage is not configured", ErrUnsupportedSource, source)
		}
		return f.Object.Fetch(ctx, source)
	}
	if f.Local == nil {
		return LocalFileFetcher{}.Fetch(ctx, source)
	}
	return f.Local.Fetch(ctx, source)
}

func IsObjectURL(source string) bool {
	return strings.HasPrefix(strings.ToLower(source), objectScheme)
}

// ParseObjectURL splits s3://bucket/key/with/slashes into bucket and key.
func ParseObjectURL(source string) (bucket, key string, err error) {
	if !IsObjectURL(source) {
		return "", "", fmt.Errorf("%w: %s is not an s3:// url", ErrUnsupportedSource, source)
	}
	rest := source[len(objectScheme):]
	bucket, key, found := strings.Cut(rest, "/")
	if !found || strings.TrimSpace(bucket) == "" || strings.Trim(key, "/") == "" {
		return "", "", fmt.Errorf("%w: %s needs the form s3://bucket/key", ErrUnsupportedSource, source)
	}
	return bucket, key, nil
}
