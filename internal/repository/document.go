package repository

import (
	"context"

	"docprocessor/internal/model"
)

// Physical location of the documents table.
const (
	DocumentSchema = "dps_dbo"
	DocumentTable  = "documents"
)

// DocumentRepository defines data access for documents.
//
// Standard reads (FindByID, ListActive) only see rows whose deleted flag is false.
// The *IncludingDeleted / ListAll variants are the explicit bypass.
// Strictly persistence operations, no business logic.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	// A duplicate primary key yields ErrDuplicate.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a non-deleted document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindByIDIncludingDeleted returns a document by its ID whether or not it is soft-deleted.
	FindByIDIncludingDeleted(ctx context.Context, id string) (*model.Document, error)

	// ListActive returns a page of non-deleted documents and their total count.
	ListActive(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// ListAll returns a page of all documents, soft-deleted ones included.
	ListAll(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// UpdateProcessing sets status and summary on a non-deleted document.
	UpdateProcessing(ctx context.Context, id, status string, summary *string) error

	// SoftDelete flags a non-deleted document as deleted. The row is kept.
	SoftDelete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
