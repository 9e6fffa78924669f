package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/asphalt-aid/backend/internal/config"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid storage key")
)

// Storage keeps report photos. Keys are slash-separated relative paths.
type Storage interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New picks the backend named by STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch strings.ToLower(cfg.StorageBackend) {
	case "", "local":
		return NewLocal(cfg.MediaRoot)
	case "s3":
		return NewS3(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// ReportImageKey builds reports/YYYY/MM/<uuid>-<slug>.<ext> from the client file name.
func ReportImageKey(now time.Time, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(filename, "\\", "/")), path.Ext(filename))

	name := uuid.NewString()
	if s := slug.Make(base); s != "" {
		if len(s) > 60 {
			s = strings.TrimRight(s[:60], "-")
		}
		name += "-" + s
	}
	return fmt.Sprintf("reports/%04d/%02d/%s%s", now.Year(), int(now.Month()), name, ext)
}

// cleanKey rejects absolute keys and any attempt to climb out of the root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
