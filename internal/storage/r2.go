package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/config"
)

// R2Store keeps files in Cloudflare R2 through its S3-compatible API. Used
// in production; LocalStore covers development and single-node setups.
type R2Store struct {
	client    *s3.Client
	bucket    string
	publicURL string // CDN base, e.g. "https://pub-xxx.r2.dev"
}

// NewR2Store dials the account's R2 endpoint with static credentials.
func NewR2Store(cfg config.R2Config) (*R2Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &R2Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// Save uploads the file and returns its metadata. The object's size comes
// from a follow-up HeadObject: PutObject does not echo it back.
func (s *R2Store) Save(ctx context.Context, key string, file io.Reader, contentType string) (*FileInfo, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("head object: %w", err)
	}

	return &FileInfo{
		URL:      s.URL(key),
		FileName: path.Base(key),
		FileSize: aws.ToInt64(head.ContentLength),
		FileType: contentType,
	}, nil
}

// Delete removes an object. A key that is already gone is not an error:
// S3 DeleteObject is idempotent.
func (s *R2Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// URL returns the public CDN URL for a stored object.
func (s *R2Store) URL(key string) string {
	return s.publicURL + "/" + strings.TrimLeft(key, "/")
}
