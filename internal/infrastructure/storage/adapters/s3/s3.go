// Package s3 stores snapshot objects in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
)

type s3Storage struct {
	client  *s3.Client
	bucket  string
	logger  ports.Logger
	metrics ports.Metrics
}

// New creates an S3 storage client and verifies the bucket exists,
// creating it when missing.
func New(cfg *config.StorageConfig, obs ports.Observability) (ports.Storage, error) {
	logger, metrics, err := obs.ComponentsScoped("storage.s3")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	awsCfg, err := buildAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		// path-style keeps MinIO and other S3-compatible services working
		o.UsePathStyle = true
	})

	s := &s3Storage{
		client:  client,
		bucket:  cfg.BucketOrPath,
		logger:  logger,
		metrics: metrics,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.ensureBucketExists(ctx); err != nil {
		logger.Error("Failed to verify bucket existence", "error", err, "bucket", s.bucket)
		return nil, fmt.Errorf("failed to verify bucket existence: %w", err)
	}

	logger.Info("S3 storage initialized", "bucket", s.bucket, "region", cfg.S3.Region)
	return s, nil
}

func (s *s3Storage) Put(ctx context.Context, key string, reader io.Reader, metadata ports.ObjectMetadata) error {
	start := time.Now()

	buf := &bytes.Buffer{}
	bytesRead, err := io.Copy(buf, reader)
	if err != nil {
		s.metrics.IncrementCounter("s3.put.errors", map[string]string{"error_type": "read_error"})
		return fmt.Errorf("failed to read content: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	}
	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}
	if len(metadata.UserMetadata) > 0 {
		input.Metadata = metadata.UserMetadata
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error("Failed to put object", "error", err, "bucket", s.bucket, "key", key)
		s.metrics.IncrementCounter("s3.put.errors", map[string]string{"error_type": "s3_error"})
		return fmt.Errorf("failed to put object: %w", err)
	}

	s.logger.Info("Object stored",
		"bucket", s.bucket,
		"key", key,
		"size_bytes", bytesRead,
		"duration_ms", time.Since(start).Milliseconds())
	s.metrics.IncrementCounter("s3.put.success", nil)
	s.metrics.RecordHistogram("s3.put.size", float64(bytesRead), nil)

	return nil
}

func (s *s3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			s.metrics.IncrementCounter("s3.get.not_found", nil)
			return nil, ports.ErrObjectNotFound
		}
		s.logger.Error("Failed to get object", "error", err, "bucket", s.bucket, "key", key)
		s.metrics.IncrementCounter("s3.get.errors", nil)
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	s.metrics.IncrementCounter("s3.get.success", nil)
	return result.Body, nil
}

func (s *s3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		s.metrics.IncrementCounter("s3.exists.errors", nil)
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

func (s *s3Storage) List(ctx context.Context, prefix string) ([]ports.ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []ports.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Error("Failed to list objects", "error", err, "bucket", s.bucket, "prefix", prefix)
			s.metrics.IncrementCounter("s3.list.errors", nil)
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, ports.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	s.metrics.IncrementCounter("s3.list.success", nil)
	return objects, nil
}

func (s *s3Storage) ensureBucketExists(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var nse *s3types.NotFound
		if errors.As(err, &nse) {
			s.logger.Info("Bucket does not exist, creating", "bucket", s.bucket)
			return s.createBucket(ctx)
		}
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	return nil
}

func (s *s3Storage) createBucket(ctx context.Context) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var bae *s3types.BucketAlreadyExists
		var baoyb *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &bae) || errors.As(err, &baoyb) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func buildAWSConfig(cfg *config.StorageConfig) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if cfg.S3.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.S3.Region))
	}
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.S3.AccessKeyID,
				cfg.S3.SecretAccessKey,
				"",
			),
		))
	}
	if cfg.MaxRetries > 0 {
		optFns = append(optFns, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}
	if cfg.Timeout > 0 {
		optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	return awsconfig.LoadDefaultConfig(context.Background(), optFns...)
}

func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nse *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nse)
}
