package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	// PresignedURLTTL is the default expiration time for presigned URLs (15 minutes).
	PresignedURLTTL = 15 * time.Minute
)

// AllowedContentTypes defines the allowed MIME types for document uploads.
// The app stores generated quote/invoice PDFs and the occasional scan.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// MinIOService implements StorageService using MinIO.
type MinIOService struct {
	client      *minio.Client
	maxFileSize int64
}

// NewMinIOService creates a new MinIO storage service.
func NewMinIOService(cfg Config) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client:      client,
		maxFileSize: cfg.GetMinIOMaxFileSize(),
	}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	return nil
}

// GenerateDownloadURL creates a presigned URL for downloading a file.
func (s *MinIOService) GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error) {
	expiresAt := time.Now().Add(PresignedURLTTL)

	presignedURL, err := s.client.PresignedGetObject(ctx, bucket, fileKey, PresignedURLTTL, make(url.Values))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: expiresAt,
	}, nil
}

// DownloadFile downloads a file directly from storage.
// The caller is responsible for closing the returned io.ReadCloser.
func (s *MinIOService) DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, fileKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", fileKey, err)
	}
	return obj, nil
}

// DeleteObject removes an object from storage.
func (s *MinIOService) DeleteObject(ctx context.Context, bucket, fileKey string) error {
	if err := s.client.RemoveObject(ctx, bucket, fileKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", fileKey, err)
	}
	return nil
}

// UploadFile uploads a file directly to storage from an io.Reader and returns the file key.
func (s *MinIOService) UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	if err := s.ValidateContentType(contentType); err != nil {
		return "", err
	}
	if err := s.ValidateFileSize(size); err != nil {
		return "", err
	}

	// Unique file key with a UUID fragment to prevent overwrites
	ext := path.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)
	uniqueFileName := fmt.Sprintf("%s_%s%s", baseName, uuid.New().String()[:8], ext)
	fileKey := filepath.ToSlash(filepath.Join(folder, uniqueFileName))

	_, err := s.client.PutObject(ctx, bucket, fileKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file %s: %w", fileKey, err)
	}
	return fileKey, nil
}

// ValidateContentType checks if the content type is allowed.
func (s *MinIOService) ValidateContentType(contentType string) error {
	normalized := strings.Split(contentType, ";")[0]
	normalized = strings.TrimSpace(strings.ToLower(normalized))

	if !AllowedContentTypes[normalized] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// ValidateFileSize checks if the file size is within limits.
func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if sizeBytes > s.maxFileSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, s.maxFileSize)
	}
	return nil
}

// Compile-time check that MinIOService implements StorageService
var _ StorageService = (*MinIOService)(nil)
