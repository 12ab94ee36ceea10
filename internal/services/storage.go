package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"talentscan/cv-screener/internal/config"
)

var ErrObjectNotFound = errors.New("stored file not found")

type StorageService interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// NewStorageService picks the driver named in cfg.
func NewStorageService(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (StorageService, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Storage(ctx, cfg.S3, log)
	case "local", "":
		return NewLocalStorage(cfg.UploadPath)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// StorageKey builds the unique stored name for an uploaded résumé.
func StorageKey(originalName string) (string, error) {
	if _, err := MimeTypeFor(originalName); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("resume_%s%s", uuid.New().String(), ext), nil
}

type localStorage struct {
	uploadPath string
}

func NewLocalStorage(uploadPath string) (StorageService, error) {
	if err := os.MkdirAll(uploadPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &localStorage{uploadPath: uploadPath}, nil
}

func (s *localStorage) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	key, err := StorageKey(originalName)
	if err != nil {
		return "", err
	}

	dst, err := os.Create(filepath.Join(s.uploadPath, key))
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return key, nil
}

func (s *localStorage) Open(ctx context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *localStorage) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// path rejects keys that would escape the upload directory.
func (s *localStorage) path(key string) (string, error) {
	if key == "" || filepath.Base(key) != key {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.uploadPath, key), nil
}
