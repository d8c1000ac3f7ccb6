// Package localfs keeps capture images on disk as data URIs are heavy for
// database rows. Keys are caller-chosen; the mime type rides in a sidecar
// extension so the URI can be rebuilt on load.
package localfs

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// SaveDataURI decodes a "data:<mime>;base64,<payload>" URI and writes the raw
// bytes plus the mime type.
func (s *Storage) SaveDataURI(_ context.Context, key, dataURI string) error {
	mime, payload, err := splitDataURI(dataURI)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", key, err)
	}

	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(path+".mime", []byte(mime), 0o644); err != nil {
		return fmt.Errorf("write mime sidecar: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

func (s *Storage) LoadDataURI(_ context.Context, key string) (string, error) {
	path := s.path(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := "image/jpeg"
	if sidecar, err := os.ReadFile(path + ".mime"); err == nil && len(sidecar) > 0 {
		mime = strings.TrimSpace(string(sidecar))
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(raw)), nil
}

func (s *Storage) path(key string) string {
	// Flatten path separators so a key cannot escape the base dir.
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(s.basePath, safe)
}

func splitDataURI(uri string) (mime, payload string, err error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", "", fmt.Errorf("not a data uri")
	}
	meta, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return "", "", fmt.Errorf("malformed data uri")
	}
	mime = strings.TrimSuffix(meta, ";base64")
	if mime == "" {
		mime = "image/jpeg"
	}
	return mime, data, nil
}
