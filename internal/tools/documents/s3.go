package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"kycgate/pkg/platform/sentinel"
)

// HeadObjectAPI is the subset of the S3 client used here.
type HeadObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Fetcher resolves s3:// locators.
type S3Fetcher struct {
	client HeadObjectAPI
}

// NewS3Fetcher loads the default AWS configuration. A non-empty endpoint
// switches to path-style addressing for S3-compatible stores.
func NewS3Fetcher(ctx context.Context, region, endpoint string) (*S3Fetcher, error) {
	var optFns []func(*config.LoadOptions) error
	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	var s3Opts []func(*s3.Options)
	if endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return &S3Fetcher{client: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// NewS3FetcherWithClient wraps an existing client.
func NewS3FetcherWithClient(client HeadObjectAPI) *S3Fetcher {
	return &S3Fetcher{client: client}
}

// Stat issues HeadObject.
func (f *S3Fetcher) Stat(ctx context.Context, loc Locator) (ObjectInfo, error) {
	out, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		var notFound *types.NotFound
		var noKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noKey) {
			return ObjectInfo{}, fmt.Errorf("s3://%s/%s: %w", loc.Bucket, loc.Key, sentinel.ErrNotFound)
		}
		return ObjectInfo{}, fmt.Errorf("head s3://%s/%s: %w", loc.Bucket, loc.Key, err)
	}
	info := ObjectInfo{
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}
	if out.LastModified != nil {
		info.UpdatedAt = *out.LastModified
	}
	return info, nil
}
