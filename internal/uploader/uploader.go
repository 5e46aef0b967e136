// Package uploader mirrors locally archived files to S3-compatible object
// storage. The local copy is always authoritative; a failed upload never
// touches it.
package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds the remote storage settings.
type Config struct {
	Bucket string
	Prefix string
	Region string

	// AccessKey and SecretKey are optional explicit credentials. When
	// either is empty the ambient AWS credential chain is used.
	AccessKey string
	SecretKey string

	// Endpoint overrides the S3 endpoint for S3-compatible stores
	// (MinIO and friends); path-style addressing is enabled with it.
	Endpoint string
}

// Uploader mirrors files beneath a local destination root to one bucket.
// The S3 client is constructed once, up front.
type Uploader struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	root     string
}

// New builds the S3 client and returns a ready Uploader. root is the local
// destination root that remote keys are computed relative to.
func New(ctx context.Context, cfg Config, root string) (*Uploader, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     cfg.AccessKey,
				SecretAccessKey: cfg.SecretKey,
			},
		}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Client *s3.Client
	if cfg.Endpoint != "" {
		s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		s3Client = s3.NewFromConfig(awsCfg)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve destination root: %w", err)
	}

	return &Uploader{
		uploader: manager.NewUploader(s3Client),
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		root:     absRoot,
	}, nil
}

// Bucket returns the configured bucket name.
func (u *Uploader) Bucket() string {
	return u.bucket
}

// Key computes the remote key for a local file: the configured prefix joined
// with the file's path relative to the destination root, slash-separated,
// with no leading separator when the prefix is empty.
func (u *Uploader) Key(localPath string) (string, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", localPath, err)
	}

	rel, err := filepath.Rel(u.root, abs)
	if err != nil {
		return "", fmt.Errorf("relativize %s against %s: %w", localPath, u.root, err)
	}
	rel = filepath.ToSlash(rel)

	if u.prefix == "" {
		return rel, nil
	}
	return u.prefix + "/" + rel, nil
}

// Upload mirrors one local file to the bucket. The local file is never
// modified or removed, regardless of outcome.
func (u *Uploader) Upload(ctx context.Context, localPath string) error {
	key, err := u.Key(localPath)
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(detectContentType(localPath)),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", u.bucket, key, err)
	}

	slog.Info("uploaded file", "local", localPath, "bucket", u.bucket, "key", key)
	return nil
}

func detectContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
