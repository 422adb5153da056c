package repository

import (
	"context"
	"io"
)

const (
	BucketProducts = "products"
	BucketNews     = "news"
)

// 画像の保存先（S3互換 / ローカル）
type ImageStore interface {
	Put(ctx context.Context, bucket string, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, bucket string, key string) error
	PublicURL(bucket string, key string) string
}
