package model

import (
	"errors"
	"fmt"
)

// ErrInvalidDeletedFlag is returned when a stored deleted flag is neither 0 nor 1.
var ErrInvalidDeletedFlag = errors.New("invalid deleted flag")

// Document holds the metadata and processing state of one uploaded file.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
type Document struct {
	ID               string  `json:"id"`
	FileName         string  `json:"file_name"`
	OriginalFileName string  `json:"original_file_name"`
	FileExtension    string  `json:"file_extension"`
	FileSize         int64   `json:"file_size"`
	ContentType      string  `json:"content_type"`
	StoragePath      string  `json:"storage_path"`
	Status           string  `json:"status"`
	Summary          *string `json:"summary"`
	UploadedBy       string  `json:"uploaded_by"`
	IsDeleted        bool    `json:"is_deleted"`
}

// EncodeDeleted converts the deleted flag to its integer column value.
func EncodeDeleted(deleted bool) int64 {
	if deleted {
		return 1
	}
	return 0
}

// DecodeDeleted converts an integer column value back to the deleted flag.
// Values other than 0 and 1 are rejected.
func DecodeDeleted(v int64) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: %d", ErrInvalidDeletedFlag, v)
	}
}
