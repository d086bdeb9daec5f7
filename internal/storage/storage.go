// Package storage holds the object store collaborator that produces Document.StoragePath.
// Implementations stream bytes and never touch local disk.
package storage

import (
	"context"
	"io"
	"time"
)

// DefaultContentType is stored when the uploader does not send one.
const DefaultContentType = "application/octet-stream"

// PutObjectOptions define optional parameters for uploading objects.
// Size is the exact byte count when known, or -1 to let the backend stream in parts.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object. Key is what Document.StoragePath records.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the subset of an S3-compatible client the document service needs.
type Storage interface {
	// Put uploads an object under key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object by key. Used to roll back an upload whose row was not saved.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
