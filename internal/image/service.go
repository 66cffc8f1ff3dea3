// File: internal/image/service.go

// Package image validates and stores uploaded image files. It is shared by
// the post and alert modules; each gives uploads its own key prefix.
package image

import (
	"context"
	"fmt"
	"path"
	"strings"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/config"
	"agromarket_backend/internal/platform/crypto"
	"agromarket_backend/internal/platform/objectstore"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// FileInput is one uploaded file before validation.
type FileInput struct {
	Filename string
	Data     []byte
}

// StoredImage describes an object that was accepted and uploaded.
type StoredImage struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// FailedImage describes a file that was rejected or failed to upload.
type FailedImage struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// UploadResult partitions a batch into successes and failures. Callers
// decide how to react; post creation rolls back when a non-empty batch has
// zero successes.
type UploadResult struct {
	Succeeded []StoredImage `json:"succeeded"`
	Failed    []FailedImage `json:"failed"`
}

// Service validates and stores image batches.
type Service interface {
	UploadBatch(ctx context.Context, prefix string, maxCount int, files []FileInput) (*UploadResult, error)
	DeleteObjects(ctx context.Context, keys []string) error
}

type service struct {
	store  objectstore.Store
	cfg    *config.Config
	logger *zap.Logger
}

// NewService creates a new image service.
func NewService(store objectstore.Store, cfg *config.Config, logger *zap.Logger) Service {
	return &service{store: store, cfg: cfg, logger: logger}
}

// UploadBatch validates each file and uploads the valid ones. A batch
// larger than maxCount is rejected outright rather than truncated.
func (s *service) UploadBatch(ctx context.Context, prefix string, maxCount int, files []FileInput) (*UploadResult, error) {
	if len(files) > maxCount {
		return nil, common.NewFieldValidationError("images",
			fmt.Sprintf("At most %d images are allowed per upload.", maxCount))
	}

	result := &UploadResult{}
	supported := s.cfg.SupportedFormats()

	for _, f := range files {
		stored, reason := s.uploadOne(ctx, prefix, supported, f)
		if reason != "" {
			result.Failed = append(result.Failed, FailedImage{Filename: f.Filename, Reason: reason})
			continue
		}
		result.Succeeded = append(result.Succeeded, *stored)
	}
	return result, nil
}

func (s *service) uploadOne(ctx context.Context, prefix string, supported []string, f FileInput) (*StoredImage, string) {
	if len(f.Data) == 0 {
		return nil, "File is empty."
	}
	if int64(len(f.Data)) > s.cfg.MaxImageSizeBytes {
		return nil, fmt.Sprintf("File exceeds the maximum size of %d bytes.", s.cfg.MaxImageSizeBytes)
	}

	// Content sniffing decides the format; the client-supplied filename and
	// content type are not trusted.
	mtype := mimetype.Detect(f.Data)
	ext := strings.TrimPrefix(mtype.Extension(), ".")
	if !formatSupported(supported, ext) {
		return nil, fmt.Sprintf("Unsupported image format %q.", ext)
	}

	suffix, err := crypto.GenerateSlugSuffix(8)
	if err != nil {
		s.logger.Error("Failed to generate object key suffix", zap.Error(err))
		return nil, "Internal error while storing the file."
	}
	key := path.Join(prefix, suffix+"."+ext)

	if err := s.store.Put(ctx, key, mtype.String(), f.Data); err != nil {
		s.logger.Error("Image upload failed",
			zap.String("key", key),
			zap.Error(err))
		return nil, "Upload to object storage failed."
	}

	return &StoredImage{
		Key:         key,
		URL:         s.store.PublicURL(key),
		ContentType: mtype.String(),
		SizeBytes:   int64(len(f.Data)),
	}, ""
}

// DeleteObjects removes stored objects, logging rather than failing on
// individual errors so rollback paths always complete.
func (s *service) DeleteObjects(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to delete stored image",
				zap.String("key", key),
				zap.Error(err))
		}
	}
	return nil
}

func formatSupported(supported []string, ext string) bool {
	if ext == "jpeg" {
		ext = "jpg"
	}
	for _, s := range supported {
		if s == "jpeg" {
			s = "jpg"
		}
		if s == ext {
			return true
		}
	}
	return false
}
