// Package storage persists generated image assets in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/config"
)

// Asset is an uploaded object and the URLs it is served from.
type Asset struct {
	URL       string
	SecureURL string
	// PublicID is the object key; pass it to Destroy.
	PublicID string
}

// AssetStore uploads and removes hosted image assets.
type AssetStore interface {
	Upload(ctx context.Context, folder string, data []byte, mimeType string) (*Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

// S3Store is an AssetStore backed by an S3 bucket.
type S3Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
	logger        *zap.Logger
}

var _ AssetStore = (*S3Store)(nil)

// NewS3Store builds an S3 client from storage configuration. Static
// credentials are used when configured, otherwise the default AWS chain.
func NewS3Store(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: publicBaseURL(cfg),
		logger:        logger.Named("storage"),
	}, nil
}

// publicBaseURL resolves the URL prefix objects are served from.
func publicBaseURL(cfg *config.StorageConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(cfg.PublicBaseURL, "/")
	}
	if cfg.Endpoint != "" {
		return strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// Upload writes data under folder with a random name and returns its URLs.
func (s *S3Store) Upload(ctx context.Context, folder string, data []byte, mimeType string) (*Asset, error) {
	key := ObjectKey(folder, uuid.New(), mimeType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(mimeType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	assetURL := s.publicBaseURL + "/" + key
	s.logger.Debug("Uploaded asset",
		zap.String("key", key),
		zap.Int("bytes", len(data)))

	return &Asset{
		URL:       assetURL,
		SecureURL: secureURL(assetURL),
		PublicID:  key,
	}, nil
}

// Destroy deletes the object. Deleting a missing key is not an error.
func (s *S3Store) Destroy(ctx context.Context, publicID string) error {
	if publicID == "" {
		return fmt.Errorf("public id is required")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// ObjectKey returns "{folder}/{id}.{ext}".
func ObjectKey(folder string, id uuid.UUID, mimeType string) string {
	name := id.String() + "." + extensionFor(mimeType)
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/heic":
		return "heic"
	case "image/heif":
		return "heif"
	default:
		return "bin"
	}
}

func secureURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" {
		return raw
	}
	// Local endpoints (MinIO, localstack) only speak plain HTTP.
	if host := u.Hostname(); host == "localhost" || host == "127.0.0.1" {
		return raw
	}
	u.Scheme = "https"
	return u.String()
}
