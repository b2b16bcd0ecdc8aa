package serviceability

import (
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// objectGetter is the subset of *s3.Client used by the loader.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Loader implements Loader for gzipped pincode files in AWS S3.
type s3Loader struct {
	client objectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader creates a new S3-based pincode loader using the default AWS
// credential chain.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	logger = logger.With().Str("component", "s3-pincode-loader").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 loader initialised")

	return newS3Loader(s3.NewFromConfig(cfg), bucket, logger), nil
}

func newS3Loader(client objectGetter, bucket string, logger zerolog.Logger) *s3Loader {
	return &s3Loader{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

// Load reads a gzipped pincode file from S3. key is the full object key.
func (l *s3Loader) Load(ctx context.Context, key string) (PincodeSet, error) {
	l.logger.Info().
		Str("bucket", l.bucket).
		Str("key", key).
		Msg("loading pincode file from S3")

	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("bucket", l.bucket).
			Str("key", key).
			Msg("failed to get object from S3")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", l.bucket, key, err)
	}
	defer result.Body.Close()

	set, err := readPincodes(ctx, result.Body)
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("bucket", l.bucket).
			Str("key", key).
			Msg("error reading pincode file from S3")
		return nil, fmt.Errorf("error reading pincode file from S3 %s: %w", key, err)
	}

	l.logger.Info().
		Str("bucket", l.bucket).
		Str("key", key).
		Int("pincodes_loaded", set.Size()).
		Msg("pincode file loaded successfully from S3")

	return set, nil
}

// fallbackLoader tries S3 first, then the local file system.
type fallbackLoader struct {
	s3Loader   Loader
	fileLoader Loader
	s3Prefix   string
	logger     zerolog.Logger
}

// NewFallbackLoader creates a loader that tries S3 first and falls back to
// the local file. A nil s3Loader means local only.
func NewFallbackLoader(s3Loader, fileLoader Loader, s3Prefix string, logger zerolog.Logger) Loader {
	return &fallbackLoader{
		s3Loader:   s3Loader,
		fileLoader: fileLoader,
		s3Prefix:   s3Prefix,
		logger:     logger.With().Str("component", "fallback-loader").Logger(),
	}
}

// Load looks the file up in S3 under s3Prefix plus the file's base name, and
// reads filePath from disk when that fails.
func (l *fallbackLoader) Load(ctx context.Context, filePath string) (PincodeSet, error) {
	if l.s3Loader != nil {
		s3Key := l.s3Prefix + path.Base(filePath)

		set, err := l.s3Loader.Load(ctx, s3Key)
		if err == nil {
			return set, nil
		}

		l.logger.Warn().
			Err(err).
			Str("s3_key", s3Key).
			Str("local_fallback", filePath).
			Msg("failed to load from S3, falling back to local file system")
	}

	return l.fileLoader.Load(ctx, filePath)
}
