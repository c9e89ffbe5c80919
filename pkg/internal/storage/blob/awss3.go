package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/yeisme/cloudbox/pkg/configs"
	nlog "github.com/yeisme/cloudbox/pkg/log"
)

// AWSStore 使用 aws-sdk-go-v2 访问 S3.
// GetObject 返回的 Body 不支持 Seek，下载时按流输出.
type AWSStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewAWSStore 加载 AWS 配置并确认 bucket 可访问.
func NewAWSStore(ctx context.Context, cfg *configs.S3Config) (*AWSStore, error) {
	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	if cfg.MaxRetries > 0 {
		opts = append(opts, awsConfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = cfg.MaxRetries
			})
		}))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.GetEndpointURL())
		}

		o.UsePathStyle = cfg.UsePathStyle
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.BucketName)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.BucketName, err)
	}

	nlog.Logger().Info().Str("bucket", cfg.BucketName).Str("region", cfg.Region).Msg("aws s3 store initialized")

	return &AWSStore{client: client, bucket: cfg.BucketName, prefix: cfg.Prefix}, nil
}

func (s *AWSStore) object(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	return s.prefix + key, nil
}

func (s *AWSStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	obj, err := s.object(key)
	if err != nil {
		return err
	}

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(obj),
		Body:   r,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}

	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("failed to put object %s: %w", obj, err)
	}

	return nil
}

func (s *AWSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.object(key)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(obj),
	})
	if err != nil {
		if isAWSNotFound(err) {
			return nil, fmt.Errorf("%s: %w", obj, ErrNotFound)
		}

		return nil, fmt.Errorf("failed to get object %s: %w", obj, err)
	}

	return out.Body, nil
}

func (s *AWSStore) Exists(ctx context.Context, key string) (bool, error) {
	obj, err := s.object(key)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(obj),
	})
	if err == nil {
		return true, nil
	}

	if isAWSNotFound(err) {
		return false, nil
	}

	return false, fmt.Errorf("failed to head object %s: %w", obj, err)
}

func (s *AWSStore) Delete(ctx context.Context, key string) error {
	obj, err := s.object(key)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(obj),
	})
	if err != nil && !isAWSNotFound(err) {
		return fmt.Errorf("failed to delete object %s: %w", obj, err)
	}

	return nil
}

func (s *AWSStore) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func (s *AWSStore) Type() configs.BlobType { return configs.BlobTypeS3 }

func (s *AWSStore) Close() error { return nil }

// isAWSNotFound HeadObject 只返回 NotFound，GetObject 返回 NoSuchKey.
func isAWSNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey"
	}

	return false
}

func init() {
	Register(configs.BlobTypeS3, func(ctx context.Context, cfg *configs.AppConfig) (Store, error) {
		return NewAWSStore(ctx, &cfg.S3)
	})
}
