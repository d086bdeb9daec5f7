package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docprocessor/internal/model"
	"docprocessor/internal/repository"
)

// Querier is the subset of *sql.DB and *sql.Tx the repository needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	documentsTable = repository.DocumentSchema + "." + repository.DocumentTable

	// Column order here is the scan order in scanDocument.
	documentColumns = `id, filename, originalfilename, fileextension, filesize, contenttype, storagepath, status, summary, uploadedby, isdeleted`

	qInsert = `
		INSERT INTO ` + documentsTable + ` (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + documentColumns

	qFindActiveByID = `
		SELECT ` + documentColumns + `
		FROM ` + documentsTable + `
		WHERE id = $1 AND isdeleted = $2`

	qFindByID = `
		SELECT ` + documentColumns + `
		FROM ` + documentsTable + `
		WHERE id = $1`

	qCountActive = `SELECT COUNT(*) FROM ` + documentsTable + ` WHERE isdeleted = $1`
	qCountAll    = `SELECT COUNT(*) FROM ` + documentsTable

	qListActive = `
		SELECT ` + documentColumns + `
		FROM ` + documentsTable + `
		WHERE isdeleted = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`

	qListAll = `
		SELECT ` + documentColumns + `
		FROM ` + documentsTable + `
		ORDER BY id
		LIMIT $1 OFFSET $2`

	qUpdateProcessing = `
		UPDATE ` + documentsTable + `
		SET status = $1, summary = $2
		WHERE id = $3 AND isdeleted = $4`

	qSoftDelete = `
		UPDATE ` + documentsTable + `
		SET isdeleted = $1
		WHERE id = $2 AND isdeleted = $3`
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db Querier
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db Querier) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(rs rowScanner) (*model.Document, error) {
	var (
		d       model.Document
		summary sql.NullString
		deleted int64
	)
	if err := rs.Scan(
		&d.ID,
		&d.FileName,
		&d.OriginalFileName,
		&d.FileExtension,
		&d.FileSize,
		&d.ContentType,
		&d.StoragePath,
		&d.Status,
		&summary,
		&d.UploadedBy,
		&deleted,
	); err != nil {
		return nil, err
	}
	if summary.Valid {
		s := summary.String
		d.Summary = &s
	}
	isDeleted, err := model.DecodeDeleted(deleted)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", d.ID, err)
	}
	d.IsDeleted = isDeleted
	return &d, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	row := r.db.QueryRowContext(ctx, qInsert,
		doc.ID,
		doc.FileName,
		doc.OriginalFileName,
		doc.FileExtension,
		doc.FileSize,
		doc.ContentType,
		doc.StoragePath,
		doc.Status,
		nullString(doc.Summary),
		doc.UploadedBy,
		model.EncodeDeleted(doc.IsDeleted),
	)
	out, err := scanDocument(row)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %w", repository.ErrDuplicate, err)
		}
		return nil, err
	}
	return out, nil
}

// FindByID fetches a single non-deleted document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	return r.findOne(ctx, qFindActiveByID, id, model.EncodeDeleted(false))
}

// FindByIDIncludingDeleted fetches a single document by its ID regardless of its deleted flag.
func (r *DocumentPostgres) FindByIDIncludingDeleted(ctx context.Context, id string) (*model.Document, error) {
	return r.findOne(ctx, qFindByID, id)
}

func (r *DocumentPostgres) findOne(ctx context.Context, q string, args ...any) (*model.Document, error) {
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListActive returns non-deleted documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) ListActive(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	active := model.EncodeDeleted(false)
	return r.list(ctx, qCountActive, []any{active}, qListActive, []any{active, pq.Limit, pq.Offset})
}

// ListAll returns every document, soft-deleted ones included.
func (r *DocumentPostgres) ListAll(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	return r.list(ctx, qCountAll, nil, qListAll, []any{pq.Limit, pq.Offset})
}

func (r *DocumentPostgres) list(ctx context.Context, qCount string, countArgs []any, qList string, listArgs []any) (*repository.PageResult[model.Document], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, countArgs...).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, qList, listArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// UpdateProcessing records the processing outcome of a non-deleted document.
func (r *DocumentPostgres) UpdateProcessing(ctx context.Context, id, status string, summary *string) error {
	res, err := r.db.ExecContext(ctx, qUpdateProcessing, status, nullString(summary), id, model.EncodeDeleted(false))
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SoftDelete flags a document as deleted without removing the row.
func (r *DocumentPostgres) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, qSoftDelete, model.EncodeDeleted(true), id, model.EncodeDeleted(false))
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
