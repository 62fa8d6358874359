// Package storage provides object storage for source photos and
// generated share cards.
//
// Two implementations are provided:
// - LocalStorage: filesystem storage for development
// - S3Storage: any S3-compatible bucket (AWS S3, Cloudflare R2) for production
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage defines the interface for object storage operations.
// All methods are context-aware for timeout and cancellation support.
type Storage interface {
	// Put stores data at the specified key with the given options.
	// Returns ErrKeyExists if the key is taken and overwrite is disabled.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the data at the specified key. The caller must
	// close the returned reader. Returns ErrNotFound for missing keys.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at the specified key. Idempotent: no
	// error if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// List returns metadata for objects under the given key prefix,
	// up to limit entries. Used by the retention sweeper to walk the
	// share-card folder in bounded batches.
	List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error)

	// URL returns a URL for accessing the object: permanent when the
	// backend has a public base URL, presigned otherwise.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Data Types
// =============================================================================

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type. Auto-detected when empty.
	ContentType string

	// MaxSize caps the object size in bytes. 0 means no limit;
	// exceeding it returns ErrTooLarge.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool

	// Public marks the object world-readable where the backend
	// supports ACLs. Informational for local storage.
	Public bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// =============================================================================
// Configuration Types
// =============================================================================

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored.
	BasePath string

	// BaseURL is the public URL prefix for accessing files,
	// e.g. "http://localhost:8080/files".
	BaseURL string
}

// S3Config holds configuration for S3-compatible object storage.
type S3Config struct {
	// Endpoint is the storage endpoint URL. Leave empty for AWS S3;
	// set to "https://{account}.r2.cloudflarestorage.com" for R2.
	Endpoint string

	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the public base URL for the bucket (custom domain).
	// If empty, presigned URLs are used for all access.
	PublicURL string

	// Region defaults to "auto", which S3-compatible stores accept.
	Region string
}

// =============================================================================
// Provider Constants
// =============================================================================

const (
	// ProviderLocal identifies the local filesystem storage provider.
	ProviderLocal = "local"

	// ProviderS3 identifies the S3-compatible storage provider.
	ProviderS3 = "s3"
)

// Logical folders within the bucket.
const (
	ReadingsPrefix   = "readings/"
	ShareCardsPrefix = "share_cards/"
)

// =============================================================================
// Key Generation Helpers
// =============================================================================

// ShareCardKey generates a storage key for a generated share card.
// Format: share_cards/{userID}/{uuid}.png
func ShareCardKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s/%s.png", ShareCardsPrefix, userID, uuid.New())
}

// ReadingImageKey generates a storage key for an uploaded source photo.
// Format: readings/{userID}/{uuid}{ext}
func ReadingImageKey(userID uuid.UUID, ext string) string {
	return fmt.Sprintf("%s%s/%s%s", ReadingsPrefix, userID, uuid.New(), ext)
}
