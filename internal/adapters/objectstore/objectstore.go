// Package objectstore keeps invitation images in Supabase Storage.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	storage "github.com/supabase-community/storage-go"

	"guestcheckin/internal/domain"
)

// Config selects and configures the image store. An empty URL disables uploads.
type Config struct {
	URL    string
	Key    string
	Bucket string
	Prefix string
}

// storageAPI is the part of the Supabase storage client the store uses.
type storageAPI interface {
	UploadFile(bucketID, relativePath string, data io.Reader, fileOptions ...storage.FileOptions) (storage.FileUploadResponse, error)
	GetPublicUrl(bucketID, filePath string, urlOptions ...storage.UrlOptions) storage.SignedUrlResponse
}

// NewQRImageStore returns a Supabase-backed store, or a store that keeps nothing when
// cfg.URL is empty.
func NewQRImageStore(cfg Config, logger *slog.Logger) domain.QRImageStore {
	if cfg.URL == "" {
		logger.Info("supabase storage not configured, invitation images are mailed inline")
		return noopStore{}
	}
	client := storage.NewClient(strings.TrimRight(cfg.URL, "/")+"/storage/v1", cfg.Key, nil)
	return newSupabaseStore(client, cfg.Bucket, cfg.Prefix)
}

type supabaseStore struct {
	client storageAPI
	bucket string
	prefix string
}

func newSupabaseStore(client storageAPI, bucket, prefix string) *supabaseStore {
	return &supabaseStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *supabaseStore) Put(ctx context.Context, name string, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	objectPath := path.Join(s.prefix, name)
	contentType := "image/png"
	upsert := true
	options := storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}
	if _, err := s.client.UploadFile(s.bucket, objectPath, bytes.NewReader(png), options); err != nil {
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}
	return s.client.GetPublicUrl(s.bucket, objectPath).SignedURL, nil
}

type noopStore struct{}

func (noopStore) Put(context.Context, string, []byte) (string, error) {
	return "", nil
}
