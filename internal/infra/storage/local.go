// Package storage は商品/お知らせ画像の保存先。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	repo "confectionery/internal/repository"
)

var ErrInvalidKey = errors.New("invalid object key")

// ローカルディスクに置き、/media で配信する（開発用）
type LocalImageStore struct {
	root    string
	baseURL string
}

func NewLocalImageStore(root string, baseURL string) (*LocalImageStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalImageStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

var _ repo.ImageStore = (*LocalImageStore)(nil)

func (s *LocalImageStore) Root() string {
	return s.root
}

func (s *LocalImageStore) Put(ctx context.Context, bucket string, key string, r io.Reader, size int64, contentType string) error {
	path, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create bucket dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

// 無いファイルはエラーにしない
func (s *LocalImageStore) Delete(ctx context.Context, bucket string, key string) error {
	path, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *LocalImageStore) PublicURL(bucket string, key string) string {
	return s.baseURL + "/" + bucket + "/" + key
}

// root配下に収まるパスだけ許可
func (s *LocalImageStore) path(bucket string, key string) (string, error) {
	if bucket == "" || key == "" || strings.Contains(bucket, "/") {
		return "", ErrInvalidKey
	}
	p := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	rel, err := filepath.Rel(filepath.Join(s.root, bucket), p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidKey
	}
	return p, nil
}
