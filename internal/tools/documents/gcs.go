package documents

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"kycgate/pkg/platform/sentinel"
)

// GCSFetcher resolves gs:// locators.
type GCSFetcher struct {
	client *storage.Client
}

// NewGCSFetcher creates a Cloud Storage client. credentialsFile may be empty
// to use application default credentials.
func NewGCSFetcher(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*GCSFetcher, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSFetcher{client: client}, nil
}

// Stat reads object attributes.
func (f *GCSFetcher) Stat(ctx context.Context, loc Locator) (ObjectInfo, error) {
	attrs, err := f.client.Bucket(loc.Bucket).Object(loc.Key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return ObjectInfo{}, fmt.Errorf("gs://%s/%s: %w", loc.Bucket, loc.Key, sentinel.ErrNotFound)
		}
		return ObjectInfo{}, fmt.Errorf("stat gs://%s/%s: %w", loc.Bucket, loc.Key, err)
	}
	return ObjectInfo{
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		UpdatedAt:   attrs.Updated,
	}, nil
}

// Close releases the client.
func (f *GCSFetcher) Close() error {
	return f.client.Close()
}
