// Package storage persists uploaded report images on the local
// filesystem and renders them as data URIs for the vision backend.
package storage

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImageStore writes report images under a base directory. Stored paths
// are relative to the base so the database stays portable across
// deployments.
type ImageStore struct {
	baseDir string
	maxSize int64
	logger  *zap.Logger
}

// NewImageStore creates an image store rooted at baseDir.
func NewImageStore(baseDir string, maxSize int64, logger *zap.Logger) (*ImageStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &ImageStore{
		baseDir: baseDir,
		maxSize: maxSize,
		logger:  logger,
	}, nil
}

// Save writes one uploaded image and returns its relative path. The
// generated name carries a timestamp plus random entropy so concurrent
// uploads never collide.
func (s *ImageStore) Save(filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty image upload: %s", filename)
	}
	if s.maxSize > 0 && int64(len(content)) > s.maxSize {
		return "", fmt.Errorf("image %s exceeds size limit (%d > %d bytes)", filename, len(content), s.maxSize)
	}

	name := fmt.Sprintf("%s_%s_%s",
		time.Now().Format("20060102150405"),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		filepath.Base(filename))

	fullPath := filepath.Join(s.baseDir, name)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write image",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	s.logger.Debug("Image saved",
		zap.String("path", name),
		zap.Int("size", len(content)))

	return name, nil
}

// Read returns the content of a stored image by its relative path.
func (s *ImageStore) Read(relPath string) ([]byte, error) {
	fullPath := filepath.Join(s.baseDir, relPath)
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return content, nil
}

// BaseDir returns the root of the store, used for static file serving.
func (s *ImageStore) BaseDir() string {
	return s.baseDir
}

// DataURI renders a stored image as a base64 data URI for the model
// backend.
func (s *ImageStore) DataURI(relPath string) (string, error) {
	content, err := s.Read(relPath)
	if err != nil {
		return "", err
	}
	return EncodeDataURI(relPath, content), nil
}

// EncodeDataURI builds a data URI from raw image bytes, inferring the
// MIME type from the filename extension.
func EncodeDataURI(filename string, content []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeTypeFor(filename), base64.StdEncoding.EncodeToString(content))
}

func mimeTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// validatePath checks that the path stays within the base directory.
func (s *ImageStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes upload directory: %s", fullPath)
	}

	return nil
}
