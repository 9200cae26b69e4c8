package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore keeps blobs on the local filesystem and serves them through the
// API's own signed download/upload routes. Intended for development and tests;
// production deployments use the S3 driver.
type LocalStore struct {
	baseDir string
	baseURL string
	signer  *Signer
}

// NewLocalStore ensures the base directory exists and returns a handle.
// routePrefix is the path the API mounts its routes under, so presigned URLs
// resolve against the registered /files endpoints.
func NewLocalStore(baseDir, baseURL, routePrefix string, signer *Signer) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	prefix := strings.Trim(routePrefix, "/")
	base := strings.TrimRight(baseURL, "/")
	if prefix != "" {
		base = base + "/" + prefix
	}
	return &LocalStore{
		baseDir: baseDir,
		baseURL: base,
		signer:  signer,
	}, nil
}

// PresignUpload returns a signed URL accepting a PUT of the file body.
func (s *LocalStore) PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error) {
	token, expiresAt, err := s.signer.Sign(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return fmt.Sprintf("%s/files/upload?token=%s", s.baseURL, url.QueryEscape(token)), expiresAt, nil
}

// PresignDownload returns a signed URL streaming the file body.
func (s *LocalStore) PresignDownload(ctx context.Context, key string) (string, time.Time, error) {
	token, expiresAt, err := s.signer.Sign(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return fmt.Sprintf("%s/files/download?token=%s", s.baseURL, url.QueryEscape(token)), expiresAt, nil
}

// Fetch reads the full blob for the given key.
func (s *LocalStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", key, err)
	}
	return data, nil
}

// Put writes the blob bytes for the given key (upload route support).
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare upload directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write file %s: %w", key, err)
	}
	return nil
}

// Delete removes the blob if present. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file %s: %w", key, err)
	}
	return nil
}

// resolve maps a key onto the base directory, rejecting path traversal.
func (s *LocalStore) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid file key %q", key)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}
