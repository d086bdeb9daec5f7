package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docprocessor/internal/model"
	"docprocessor/internal/repository"
	"docprocessor/internal/storage"
)

var (
	ErrIDRequired     = errors.New("id is required")
	ErrNotFound       = errors.New("document not found")
	ErrReaderNil      = errors.New("reader is nil")
	ErrStatusRequired = errors.New("status is required")
)

const (
	// StatusPending is assigned on upload; later values are owned by the processing pipeline.
	StatusPending = "pending"

	anonymousUploader = "anonymous"
	defaultLimit      = 10
	maxLimit          = 100
)

var tracer = otel.Tracer("docprocessor/internal/service")

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload uploads the content to object storage, saves metadata to DB, and rolls back storage if DB save fails.
	// - originalFilename is kept as OriginalFileName; the stored filename is UUID + original extension.
	Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64, uploadedBy string) (*model.Document, error)

	// List returns non-deleted documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// ListAll is List with soft-deleted documents included.
	ListAll(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// Get returns a single non-deleted document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// GetIncludingDeleted returns a document by its ID even if it was soft-deleted.
	GetIncludingDeleted(ctx context.Context, id string) (*model.Document, error)

	// UpdateProcessing records the processing status and optional summary of a document.
	UpdateProcessing(ctx context.Context, id, status string, summary *string) error

	// Delete soft-deletes a document. The stored object is kept.
	Delete(ctx context.Context, id string) error

	// DownloadURL returns a pre-signed URL for the document's stored object.
	DownloadURL(ctx context.Context, id string) (string, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store         storage.Storage
	repo          repository.DocumentRepository
	presignExpiry time.Duration
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, presignExpiry time.Duration) DocumentService {
	return &documentService{store: store, repo: repo, presignExpiry: presignExpiry}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "DocumentService."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64, uploadedBy string) (doc *model.Document, err error) {
	ctx, span := startSpan(ctx, "Upload", attribute.String("document.original_filename", originalFilename))
	defer func() { endSpan(span, err) }()

	if r == nil {
		return nil, ErrReaderNil
	}
	if strings.TrimSpace(uploadedBy) == "" {
		uploadedBy = anonymousUploader
	}

	// Generate filename using UUID + extension
	ext := filepath.Ext(originalFilename)
	genName := uuid.New().String() + ext
	key := filepath.ToSlash(filepath.Join("documents", genName))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
			"uploaded-by":       uploadedBy,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc = &model.Document{
		ID:               uuid.New().String(),
		FileName:         genName,
		OriginalFileName: originalFilename,
		FileExtension:    ext,
		FileSize:         objInfo.Size,
		ContentType:      objInfo.ContentType,
		StoragePath:      objInfo.Key,
		Status:           StatusPending,
		UploadedBy:       uploadedBy,
		IsDeleted:        false,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %w; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	span.SetAttributes(attribute.String("document.id", stored.ID))
	return stored, nil
}

func normalizePage(limit, offset int) repository.PageQuery {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.PageQuery{Limit: limit, Offset: offset}
}

// List returns paginated non-deleted documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) (res *DocumentListResult, err error) {
	ctx, span := startSpan(ctx, "List")
	defer func() { endSpan(span, err) }()

	page, err := s.repo.ListActive(ctx, normalizePage(limit, offset))
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: page.Items, Total: page.Total}, nil
}

// ListAll returns paginated documents including soft-deleted ones.
func (s *documentService) ListAll(ctx context.Context, limit, offset int) (res *DocumentListResult, err error) {
	ctx, span := startSpan(ctx, "ListAll")
	defer func() { endSpan(span, err) }()

	page, err := s.repo.ListAll(ctx, normalizePage(limit, offset))
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: page.Items, Total: page.Total}, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (doc *model.Document, err error) {
	ctx, span := startSpan(ctx, "Get", attribute.String("document.id", id))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, ErrIDRequired
	}
	return notFound(s.repo.FindByID(ctx, id))
}

// GetIncludingDeleted returns a document by ID regardless of its deleted flag.
func (s *documentService) GetIncludingDeleted(ctx context.Context, id string) (doc *model.Document, err error) {
	ctx, span := startSpan(ctx, "GetIncludingDeleted", attribute.String("document.id", id))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, ErrIDRequired
	}
	return notFound(s.repo.FindByIDIncludingDeleted(ctx, id))
}

func notFound(doc *model.Document, err error) (*model.Document, error) {
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// UpdateProcessing stores the processing outcome of a document.
func (s *documentService) UpdateProcessing(ctx context.Context, id, status string, summary *string) (err error) {
	ctx, span := startSpan(ctx, "UpdateProcessing",
		attribute.String("document.id", id),
		attribute.String("document.status", status),
	)
	defer func() { endSpan(span, err) }()

	if id == "" {
		return ErrIDRequired
	}
	if strings.TrimSpace(status) == "" {
		return ErrStatusRequired
	}
	if err := s.repo.UpdateProcessing(ctx, id, status, summary); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Delete soft-deletes a document. The object stays in storage so StoragePath remains valid
// for rows reachable through the including-deleted reads.
func (s *documentService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "Delete", attribute.String("document.id", id))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return ErrIDRequired
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// DownloadURL presigns a GET for a non-deleted document.
func (s *documentService) DownloadURL(ctx context.Context, id string) (url string, err error) {
	ctx, span := startSpan(ctx, "DownloadURL", attribute.String("document.id", id))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return "", ErrIDRequired
	}
	doc, err := notFound(s.repo.FindByID(ctx, id))
	if err != nil {
		return "", err
	}
	url, err = s.store.PresignGet(ctx, doc.StoragePath, s.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return url, nil
}
