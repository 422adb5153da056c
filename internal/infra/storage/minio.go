package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	repo "confectionery/internal/repository"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// 誰でも読めるバケット
const publicReadPolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"AWS": ["*"]},
    "Action": ["s3:GetObject"],
    "Resource": ["arn:aws:s3:::%s/*"]
  }]
}`

type MinioConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicBaseURL string
}

// S3互換ストレージ
type MinioImageStore struct {
	client  *minio.Client
	baseURL string
}

// バケットが無ければ作って公開設定にする
func NewMinioImageStore(ctx context.Context, cfg MinioConfig, buckets ...string) (*MinioImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	for _, b := range buckets {
		exists, err := client.BucketExists(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", b, err)
		}
		if exists {
			continue
		}
		if err := client.MakeBucket(ctx, b, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", b, err)
		}
		if err := client.SetBucketPolicy(ctx, b, fmt.Sprintf(publicReadPolicy, b)); err != nil {
			return nil, fmt.Errorf("set bucket policy %s: %w", b, err)
		}
	}

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = scheme + "://" + cfg.Endpoint
	}

	return &MinioImageStore{client: client, baseURL: baseURL}, nil
}

var _ repo.ImageStore = (*MinioImageStore)(nil)

func (s *MinioImageStore) Put(ctx context.Context, bucket string, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *MinioImageStore) Delete(ctx context.Context, bucket string, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (s *MinioImageStore) PublicURL(bucket string, key string) string {
	return s.baseURL + "/" + bucket + "/" + key
}
