// Package storage provides object storage for archived print documents.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/printdesk/backend/internal/domain/printing"
	infraconfig "github.com/printdesk/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ensure S3DocumentArchive implements DocumentArchive
var _ printing.DocumentArchive = (*S3DocumentArchive)(nil)

// S3DocumentArchive copies ingested documents into an S3 bucket.
// It is compatible with any S3-compatible storage (AWS S3, RustFS, MinIO, etc.)
type S3DocumentArchive struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	prefix            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3DocumentArchiveOption is a functional option for configuring S3DocumentArchive
type S3DocumentArchiveOption func(*S3DocumentArchive)

// WithLogger sets a custom logger for S3DocumentArchive
func WithLogger(logger *zap.Logger) S3DocumentArchiveOption {
	return func(s *S3DocumentArchive) {
		s.logger = logger
	}
}

// WithPresignExpiration sets a custom presign expiration duration
func WithPresignExpiration(d time.Duration) S3DocumentArchiveOption {
	return func(s *S3DocumentArchive) {
		s.presignExpiration = d
	}
}

// NewS3DocumentArchive creates a new S3DocumentArchive from configuration.
func NewS3DocumentArchive(cfg *infraconfig.ArchiveConfig, opts ...S3DocumentArchiveOption) (*S3DocumentArchive, error) {
	if cfg == nil {
		return nil, errors.New("archive configuration is required")
	}

	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("archive access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("archive secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid archive endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	archive := &S3DocumentArchive{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		prefix:            strings.Trim(cfg.Prefix, "/"),
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}

	for _, opt := range opts {
		opt(archive)
	}

	if archive.presignExpiration == 0 {
		archive.presignExpiration = 15 * time.Minute
	}

	return archive, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3DocumentArchive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Ignore "BucketAlreadyOwnedByYou" error (race condition)
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	s.logger.Info("Archive bucket created successfully", zap.String("bucket", s.bucket))
	return nil
}

// Key returns the object key a document is archived under
func (s *S3DocumentArchive) Key(uniqueName string) string {
	if s.prefix == "" {
		return uniqueName
	}
	return path.Join(s.prefix, uniqueName)
}

// Archive uploads the document file under its unique name
func (s *S3DocumentArchive) Archive(ctx context.Context, doc *printing.Document) error {
	if doc == nil || doc.UniqueName == "" {
		return errors.New("document is required")
	}

	size, err := doc.Size()
	if err != nil {
		return fmt.Errorf("failed to stat document for archiving: %w", err)
	}

	f, err := os.Open(doc.Path)
	if err != nil {
		return fmt.Errorf("failed to open document for archiving: %w", err)
	}
	defer f.Close()

	key := s.Key(doc.UniqueName)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentTypeFor(doc.Extension)),
		Metadata: map[string]string{
			"original-name": url.QueryEscape(doc.OriginalName),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to archive document: %w", err)
	}

	s.logger.Debug("document archived",
		zap.String("bucket", s.bucket),
		zap.String("key", key))
	return nil
}

// GenerateDownloadURL generates a presigned URL for an archived document.
func (s *S3DocumentArchive) GenerateDownloadURL(
	ctx context.Context,
	uniqueName string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if uniqueName == "" {
		return "", time.Time{}, errors.New("document name is required")
	}

	if expiresIn <= 0 {
		expiresIn = s.presignExpiration
	}

	presignReq, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(uniqueName)),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate download URL: %w", err)
	}

	return presignReq.URL, time.Now().Add(expiresIn), nil
}

// Delete removes an archived document.
func (s *S3DocumentArchive) Delete(ctx context.Context, uniqueName string) error {
	if uniqueName == "" {
		return errors.New("document name is required")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(uniqueName)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete archived document: %w", err)
	}
	return nil
}

// Exists checks if a document has been archived.
func (s *S3DocumentArchive) Exists(ctx context.Context, uniqueName string) (bool, error) {
	if uniqueName == "" {
		return false, errors.New("document name is required")
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(uniqueName)),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return false, nil
		}
		// Some S3-compatible services report missing keys differently
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check archived document: %w", err)
	}

	return true, nil
}

// GetBucket returns the bucket name
func (s *S3DocumentArchive) GetBucket() string {
	return s.bucket
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".html", ".htm":
		return "text/html"
	}
	return "application/octet-stream"
}
