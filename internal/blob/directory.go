package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const metaSuffix = ".meta"

// DirectoryBucket stores objects as files under a base path. The content type
// of each object is kept next to it in a ".meta" file.
type DirectoryBucket struct {
	basePath   string
	publicBase string
}

// NewDirectoryBucket resolves basePath and creates it if needed.
func NewDirectoryBucket(basePath, publicBase string) (*DirectoryBucket, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path required")
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("create base path: %w", err)
	}

	return &DirectoryBucket{
		basePath:   absPath,
		publicBase: publicBase,
	}, nil
}

func (d *DirectoryBucket) Name() string       { return d.basePath }
func (d *DirectoryBucket) PublicBase() string { return d.publicBase }

func (d *DirectoryBucket) Put(_ context.Context, key string, data []byte, contentType string) error {
	path, err := d.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if err := writeAtomic(path, data); err != nil {
		return err
	}
	if err := writeAtomic(path+metaSuffix, []byte(contentType)); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func (d *DirectoryBucket) Open(_ context.Context, key string) ([]byte, string, error) {
	path, err := d.fullPath(key)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("read file: %w", err)
	}

	contentType := "application/octet-stream"
	if meta, err := os.ReadFile(path + metaSuffix); err == nil && len(meta) > 0 {
		contentType = string(meta)
	}

	return data, contentType, nil
}

func (d *DirectoryBucket) Exists(_ context.Context, key string) (bool, error) {
	path, err := d.fullPath(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}
	return true, nil
}

func (d *DirectoryBucket) Delete(_ context.Context, key string) error {
	path, err := d.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("remove file: %w", err)
	}
	_ = os.Remove(path + metaSuffix)

	// Drop the owner directory once its last image is gone.
	dir := filepath.Dir(path)
	if dir != d.basePath && strings.HasPrefix(dir, d.basePath) {
		if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
			_ = os.Remove(dir)
		}
	}
	return nil
}

func (d *DirectoryBucket) fullPath(key string) (string, error) {
	if key == "" || strings.HasSuffix(key, metaSuffix) {
		return "", ErrInvalidKey
	}

	cleaned := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", ErrInvalidKey
	}

	fullPath := filepath.Join(d.basePath, cleaned)
	if !strings.HasPrefix(fullPath, d.basePath+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}

	return fullPath, nil
}

func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
