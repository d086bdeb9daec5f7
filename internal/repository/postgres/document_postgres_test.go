package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"docprocessor/internal/model"
	"docprocessor/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "filename", "originalfilename", "fileextension", "filesize", "contenttype",
	"storagepath", "status", "summary", "uploadedby", "isdeleted",
}

func strPtr(s string) *string { return &s }

func sampleDocument() *model.Document {
	return &model.Document{
		ID:               "3f1c6a52-8a4e-4c1e-9a1b-0d6c2f7e9b10",
		FileName:         "3f1c6a52.pdf",
		OriginalFileName: "a.pdf",
		FileExtension:    ".pdf",
		FileSize:         2048,
		ContentType:      "application/pdf",
		StoragePath:      "documents/3f1c6a52.pdf",
		Status:           "pending",
		Summary:          strPtr("short summary"),
		UploadedBy:       "alice",
		IsDeleted:        false,
	}
}

func rowFor(d *model.Document, deleted int64) *sqlmock.Rows {
	var summary any
	if d.Summary != nil {
		summary = *d.Summary
	}
	return sqlmock.NewRows(columns).AddRow(
		d.ID, d.FileName, d.OriginalFileName, d.FileExtension, d.FileSize, d.ContentType,
		d.StoragePath, d.Status, summary, d.UploadedBy, deleted,
	)
}

func newRepo(t *testing.T) (*DocumentPostgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDocumentPostgres(db), mock
}

func TestDocumentPostgres_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		repo, mock := newRepo(t)
		doc := sampleDocument()

		mock.ExpectQuery("INSERT INTO dps_dbo.documents \\(id, filename, originalfilename, fileextension, filesize, contenttype, storagepath, status, summary, uploadedby, isdeleted\\)").
			WithArgs(doc.ID, doc.FileName, doc.OriginalFileName, doc.FileExtension, doc.FileSize, doc.ContentType,
				doc.StoragePath, doc.Status, *doc.Summary, doc.UploadedBy, int64(0)).
			WillReturnRows(rowFor(doc, 0))

		got, err := repo.Create(ctx, doc)

		require.NoError(t, err)
		assert.Equal(t, doc, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil summary and deleted flag are encoded", func(t *testing.T) {
		repo, mock := newRepo(t)
		doc := sampleDocument()
		doc.Summary = nil
		doc.IsDeleted = true

		mock.ExpectQuery("INSERT INTO dps_dbo.documents").
			WithArgs(doc.ID, doc.FileName, doc.OriginalFileName, doc.FileExtension, doc.FileSize, doc.ContentType,
				doc.StoragePath, doc.Status, nil, doc.UploadedBy, int64(1)).
			WillReturnRows(rowFor(doc, 1))

		got, err := repo.Create(ctx, doc)

		require.NoError(t, err)
		assert.Nil(t, got.Summary)
		assert.True(t, got.IsDeleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate primary key", func(t *testing.T) {
		repo, mock := newRepo(t)
		doc := sampleDocument()

		mock.ExpectQuery("INSERT INTO dps_dbo.documents").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "documents_pkey"})

		got, err := repo.Create(ctx, doc)

		assert.ErrorIs(t, err, repository.ErrDuplicate)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connectivity failure is surfaced unchanged", func(t *testing.T) {
		repo, mock := newRepo(t)
		connErr := errors.New("connection refused")

		mock.ExpectQuery("INSERT INTO dps_dbo.documents").WillReturnError(connErr)

		_, err := repo.Create(ctx, sampleDocument())

		assert.ErrorIs(t, err, connErr)
		assert.NotErrorIs(t, err, repository.ErrDuplicate)
	})
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	ctx := context.Background()
	doc := sampleDocument()

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery("SELECT (.+) FROM dps_dbo.documents WHERE id = \\$1 AND isdeleted = \\$2").
			WithArgs(doc.ID, int64(0)).
			WillReturnRows(rowFor(doc, 0))

		got, err := repo.FindByID(ctx, doc.ID)

		require.NoError(t, err)
		assert.Equal(t, doc, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery("SELECT (.+) FROM dps_dbo.documents WHERE id = \\$1 AND isdeleted = \\$2").
			WithArgs("missing", int64(0)).
			WillReturnError(sql.ErrNoRows)

		got, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, got)
	})

	t.Run("malformed deleted flag fails loudly", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery("SELECT (.+) FROM dps_dbo.documents WHERE id = \\$1").
			WithArgs(doc.ID, int64(0)).
			WillReturnRows(rowFor(doc, 2))

		got, err := repo.FindByID(ctx, doc.ID)

		assert.ErrorIs(t, err, model.ErrInvalidDeletedFlag)
		assert.Nil(t, got)
	})
}

func TestDocumentPostgres_FindByIDIncludingDeleted(t *testing.T) {
	ctx := context.Background()
	repo, mock := newRepo(t)
	doc := sampleDocument()
	doc.IsDeleted = true

	mock.ExpectQuery("SELECT (.+) FROM dps_dbo.documents WHERE id = \\$1$").
		WithArgs(doc.ID).
		WillReturnRows(rowFor(doc, 1))

	got, err := repo.FindByIDIncludingDeleted(ctx, doc.ID)

	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_ListActive(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo, mock := newRepo(t)
		doc := sampleDocument()

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM dps_dbo.documents WHERE isdeleted = \\$1").
			WithArgs(int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("SELECT (.+) FROM dps_dbo.documents WHERE isdeleted = \\$1 ORDER BY id").
			WithArgs(int64(0), 10, 0).
			WillReturnRows(rowFor(doc, 0))

		res, err := repo.ListActive(ctx, repository.PageQuery{Limit: 10, Offset: 0})

		require.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		require.Len(t, res.Items, 1)
		assert.Equal(t, *doc, res.Items[0])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count error", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("db down"))

		res, err := repo.ListActive(ctx, repository.PageQuery{Limit: 10})

		assert.EqualError(t, err, "db down")
		assert.Nil(t, res)
	})

	t.Run("bad row aborts listing", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery("SELECT COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("SELECT (.+) FROM dps_dbo.documents WHERE isdeleted").
			WillReturnRows(rowFor(sampleDocument(), 7))

		res, err := repo.ListActive(ctx, repository.PageQuery{Limit: 10})

		assert.ErrorIs(t, err, model.ErrInvalidDeletedFlag)
		assert.Nil(t, res)
	})
}

func TestDocumentPostgres_ListAll(t *testing.T) {
	ctx := context.Background()
	repo, mock := newRepo(t)

	active := sampleDocument()
	deleted := sampleDocument()
	deleted.ID = "9b0e2d4c-1f3a-4b5c-8d7e-6f5a4b3c2d1e"
	deleted.IsDeleted = true

	rows := rowFor(active, 0)
	rows.AddRow(deleted.ID, deleted.FileName, deleted.OriginalFileName, deleted.FileExtension, deleted.FileSize,
		deleted.ContentType, deleted.StoragePath, deleted.Status, *deleted.Summary, deleted.UploadedBy, int64(1))

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM dps_dbo.documents$").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT (.+) FROM dps_dbo.documents ORDER BY id").
		WithArgs(20, 5).
		WillReturnRows(rows)

	res, err := repo.ListAll(ctx, repository.PageQuery{Limit: 20, Offset: 5})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Items, 2)
	assert.False(t, res.Items[0].IsDeleted)
	assert.True(t, res.Items[1].IsDeleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_UpdateProcessing(t *testing.T) {
	ctx := context.Background()

	t.Run("updated", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec("UPDATE dps_dbo.documents SET status = \\$1, summary = \\$2 WHERE id = \\$3 AND isdeleted = \\$4").
			WithArgs("processed", "text", "doc-id", int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateProcessing(ctx, "doc-id", "processed", strPtr("text"))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clearing summary", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec("UPDATE dps_dbo.documents SET status").
			WithArgs("failed", nil, "doc-id", int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateProcessing(ctx, "doc-id", "failed", nil)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing or deleted", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec("UPDATE dps_dbo.documents SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateProcessing(ctx, "doc-id", "processed", nil)

		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestDocumentPostgres_SoftDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("flags row", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec("UPDATE dps_dbo.documents SET isdeleted = \\$1 WHERE id = \\$2 AND isdeleted = \\$3").
			WithArgs(int64(1), "doc-id", int64(0)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SoftDelete(ctx, "doc-id")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already deleted", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec("UPDATE dps_dbo.documents SET isdeleted").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SoftDelete(ctx, "doc-id")

		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("exec error", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec("UPDATE dps_dbo.documents SET isdeleted").
			WillReturnError(errors.New("db down"))

		err := repo.SoftDelete(ctx, "doc-id")

		assert.EqualError(t, err, "db down")
	})
}

// Soft-delete visibility across the standard and bypass read paths.
func TestDocumentPostgres_SoftDeleteVisibility(t *testing.T) {
	ctx := context.Background()
	repo, mock := newRepo(t)
	doc := sampleDocument()

	mock.ExpectExec("UPDATE dps_dbo.documents SET isdeleted").
		WithArgs(int64(1), doc.ID, int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM dps_dbo.documents WHERE isdeleted").
		WithArgs(int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT (.+) FROM dps_dbo.documents WHERE isdeleted").
		WithArgs(int64(0), 10, 0).
		WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM dps_dbo.documents$").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM dps_dbo.documents ORDER BY id").
		WithArgs(10, 0).
		WillReturnRows(rowFor(doc, 1))

	require.NoError(t, repo.SoftDelete(ctx, doc.ID))

	active, err := repo.ListActive(ctx, repository.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, active.Items)

	all, err := repo.ListAll(ctx, repository.PageQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all.Items, 1)
	assert.Equal(t, doc.ID, all.Items[0].ID)
	assert.True(t, all.Items[0].IsDeleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
