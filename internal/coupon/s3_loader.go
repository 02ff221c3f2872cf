package coupon

import (
	"context"
	"fmt"

	"checkout-core/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectGetter is the part of the S3 client the loader uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Loader struct {
	client ObjectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader creates a new S3-based coupon loader using the default AWS credential chain.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Debug().Str("bucket", bucket).Str("region", region).Msg("S3 client configured")

	return NewS3LoaderWithClient(s3.NewFromConfig(cfg), bucket, logger), nil
}

// NewS3LoaderWithClient creates an S3 loader over an existing client.
func NewS3LoaderWithClient(client ObjectGetter, bucket string, logger zerolog.Logger) Loader {
	return &s3Loader{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("component", "s3-coupon-loader").Logger(),
	}
}

// Load reads a gzipped coupon file from S3. key is the full object key.
func (l *s3Loader) Load(ctx context.Context, key string) ([]model.CreateCouponRequest, error) {
	source := "s3://" + l.bucket + "/" + key

	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		l.logger.Error().Err(err).Str("source", source).Msg("coupon object unavailable")
		return nil, fmt.Errorf("failed to fetch %s: %w", source, err)
	}
	defer result.Body.Close()

	reqs, err := decode(ctx, result.Body, source)
	if err != nil {
		return nil, err
	}

	l.logger.Info().Str("source", source).Int("definitions", len(reqs)).Msg("coupon definitions read")
	return reqs, nil
}

type fallbackLoader struct {
	s3Loader   Loader
	fileLoader Loader
	s3Prefix   string
	s3Enabled  bool
	logger     zerolog.Logger
}

// NewFallbackLoader prefers S3 when it is enabled and configured and reads the
// local path when S3 is off or the object cannot be read.
func NewFallbackLoader(s3Loader, fileLoader Loader, s3Prefix string, s3Enabled bool, logger zerolog.Logger) Loader {
	return &fallbackLoader{
		s3Loader:   s3Loader,
		fileLoader: fileLoader,
		s3Prefix:   s3Prefix,
		s3Enabled:  s3Enabled,
		logger:     logger.With().Str("component", "fallback-loader").Logger(),
	}
}

// Load reads s3Prefix+path from S3 when enabled, otherwise or on failure path from disk.
func (l *fallbackLoader) Load(ctx context.Context, path string) ([]model.CreateCouponRequest, error) {
	if l.s3Enabled && l.s3Loader != nil {
		s3Key := l.s3Prefix + path

		reqs, err := l.s3Loader.Load(ctx, s3Key)
		if err == nil {
			return reqs, nil
		}

		l.logger.Warn().Err(err).Str("s3_key", s3Key).Str("path", path).Msg("reading coupon file from disk instead")
	}

	return l.fileLoader.Load(ctx, path)
}
