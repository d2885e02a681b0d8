// Package archive stores rendered reports in object storage so they can be
// shared through time-limited download links.
package archive

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultLinkTTL bounds how long a shared report link stays valid.
const DefaultLinkTTL = 24 * time.Hour

// Archiver stores a rendered report and returns a URL a recipient can
// download it from.
type Archiver interface {
	Store(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// ObjectPutter is the subset of S3 operations used to upload reports.
// The narrow interface keeps mocking in unit tests trivial.
type ObjectPutter interface {
	PutObject(
		ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.PutObjectOutput, error)
}

// URLPresigner is the subset of the S3 presign client used to mint download
// links.
type URLPresigner interface {
	PresignGetObject(
		ctx context.Context,
		params *s3.GetObjectInput,
		optFns ...func(*s3.PresignOptions),
	) (*v4.PresignedHTTPRequest, error)
}

// S3Archiver uploads rendered reports to one S3 bucket and hands out
// presigned GET links for them.
type S3Archiver struct {
	uploader  ObjectPutter
	presigner URLPresigner
	bucket    string
	ttl       time.Duration
}

// NewS3Archiver reads credentials from the standard AWS shared config and
// returns an archiver writing to bucket. An empty region keeps whatever the
// environment or shared config resolves. A non-positive ttl falls back to
// DefaultLinkTTL.
func NewS3Archiver(ctx context.Context, bucket, region string, ttl time.Duration) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive: bucket name is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return NewS3ArchiverWithClients(client, s3.NewPresignClient(client), bucket, ttl), nil
}

// NewS3ArchiverWithClients returns an archiver using the given clients.
// Pass mocks in tests.
func NewS3ArchiverWithClients(uploader ObjectPutter, presigner URLPresigner, bucket string, ttl time.Duration) *S3Archiver {
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	return &S3Archiver{uploader: uploader, presigner: presigner, bucket: bucket, ttl: ttl}
}

// Store uploads the report body under key and returns a presigned GET URL
// valid for the archiver's TTL.
func (a *S3Archiver) Store(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := a.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload report %s: %w", key, err)
	}

	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(a.ttl))
	if err != nil {
		return "", fmt.Errorf("presign report %s: %w", key, err)
	}
	return req.URL, nil
}
