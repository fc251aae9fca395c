package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/article-generation-api/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FileStorage accepts raw image bytes keyed by the tracker's filename
type FileStorage interface {
	Put(ctx context.Context, filename, contentType string, body io.Reader) error
	// Delete removes a stored file; a missing file is not an error
	Delete(ctx context.Context, filename string) error
}

// LocalStorage writes images into a directory on disk
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates dir if needed
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

// Put implements FileStorage
func (s *LocalStorage) Put(ctx context.Context, filename, _ string, body io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dst, err := os.Create(s.path(filename))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, body); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Delete implements FileStorage
func (s *LocalStorage) Delete(ctx context.Context, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func (s *LocalStorage) path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

// s3ObjectAPI is the subset of the S3 client used here
type s3ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage writes images to an S3-compatible bucket
type S3Storage struct {
	client s3ObjectAPI
	bucket string
	prefix string
}

// NewS3Storage builds a client from the default AWS credential chain.
// A custom endpoint switches to path-style addressing for S3-compatible
// services such as MinIO.
func NewS3Storage(ctx context.Context, cfg config.ImagesConfig) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Storage(client, cfg.S3Bucket, cfg.S3Prefix), nil
}

func newS3Storage(client s3ObjectAPI, bucket, prefix string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Put implements FileStorage
func (s *S3Storage) Put(ctx context.Context, filename, contentType string, body io.Reader) error {
	key := s.key(filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to bucket %s: %w", key, s.bucket, err)
	}
	return nil
}

// Delete implements FileStorage
func (s *S3Storage) Delete(ctx context.Context, filename string) error {
	key := s.key(filename)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from bucket %s: %w", key, s.bucket, err)
	}
	return nil
}

func (s *S3Storage) key(filename string) string {
	if s.prefix == "" {
		return filename
	}
	return path.Join(s.prefix, filename)
}
