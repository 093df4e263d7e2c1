// Package storage uploads listing images to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/services"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Swappable in tests.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) putObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/avif": ".avif",
	"image/heic": ".heic",
}

// S3Uploader implements services.ImageUploader.
type S3Uploader struct {
	client   putObjectAPI
	bucket   string
	baseURL  string
	maxBytes int64
	now      func() time.Time
}

var _ services.ImageUploader = (*S3Uploader)(nil)

func NewS3Uploader(ctx context.Context, cfg *config.Config) (*S3Uploader, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{
		client:   client,
		bucket:   cfg.S3Bucket,
		baseURL:  publicBaseURL(cfg),
		maxBytes: cfg.MaxImageBytes,
		now:      time.Now,
	}, nil
}

// publicBaseURL is where uploaded keys are served from.
func publicBaseURL(cfg *config.Config) string {
	switch {
	case cfg.S3PublicURL != "":
		return strings.TrimRight(cfg.S3PublicURL, "/")
	case cfg.S3Endpoint != "":
		return strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	}
}

func (u *S3Uploader) Upload(ctx context.Context, file services.ImageFile) (string, error) {
	if !strings.HasPrefix(file.ContentType, "image/") {
		return "", apperr.New(apperr.CodeUpstreamUpload, "only image uploads are allowed")
	}
	if u.maxBytes > 0 && file.Size > u.maxBytes {
		return "", apperr.New(apperr.CodeUpstreamUpload, "image too large")
	}
	if file.Open == nil {
		return "", apperr.New(apperr.CodeUpstreamUpload, "image has no content")
	}

	body, err := file.Open()
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeUpstreamUpload, "open image failed")
	}
	defer body.Close()

	key := u.storageKey(file)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(file.Size),
		ContentType:   aws.String(file.ContentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeUpstreamUpload, "upload image failed")
	}
	return u.baseURL + "/" + key, nil
}

func (u *S3Uploader) storageKey(file services.ImageFile) string {
	d := u.now().UTC()
	return fmt.Sprintf("items/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), extension(file))
}

// extension keeps a recognised image extension from the filename and falls
// back to one derived from the content type.
func extension(file services.ImageFile) string {
	ext := strings.ToLower(path.Ext(file.Filename))
	if ext == ".jpeg" {
		return ext
	}
	for _, known := range extByContentType {
		if ext == known {
			return ext
		}
	}
	return extByContentType[file.ContentType]
}
