package gormrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"docprocessor/internal/model"
	"docprocessor/internal/repository"
)

// documentRecord is the row shape of dps_dbo.documents.
// Every column is named explicitly; gorm's naming strategy is never relied on.
type documentRecord struct {
	ID               string  `gorm:"column:id;primaryKey"`
	FileName         string  `gorm:"column:filename"`
	OriginalFileName string  `gorm:"column:originalfilename"`
	FileExtension    string  `gorm:"column:fileextension"`
	FileSize         int64   `gorm:"column:filesize"`
	ContentType      string  `gorm:"column:contenttype"`
	StoragePath      string  `gorm:"column:storagepath"`
	Status           string  `gorm:"column:status"`
	Summary          *string `gorm:"column:summary"`
	UploadedBy       string  `gorm:"column:uploadedby"`
	IsDeleted        int64   `gorm:"column:isdeleted"`
}

func (documentRecord) TableName() string {
	return repository.DocumentSchema + "." + repository.DocumentTable
}

func toRecord(d *model.Document) documentRecord {
	return documentRecord{
		ID:               d.ID,
		FileName:         d.FileName,
		OriginalFileName: d.OriginalFileName,
		FileExtension:    d.FileExtension,
		FileSize:         d.FileSize,
		ContentType:      d.ContentType,
		StoragePath:      d.StoragePath,
		Status:           d.Status,
		Summary:          d.Summary,
		UploadedBy:       d.UploadedBy,
		IsDeleted:        model.EncodeDeleted(d.IsDeleted),
	}
}

func (r documentRecord) toModel() (*model.Document, error) {
	deleted, err := model.DecodeDeleted(r.IsDeleted)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", r.ID, err)
	}
	return &model.Document{
		ID:               r.ID,
		FileName:         r.FileName,
		OriginalFileName: r.OriginalFileName,
		FileExtension:    r.FileExtension,
		FileSize:         r.FileSize,
		ContentType:      r.ContentType,
		StoragePath:      r.StoragePath,
		Status:           r.Status,
		Summary:          r.Summary,
		UploadedBy:       r.UploadedBy,
		IsDeleted:        deleted,
	}, nil
}

// active restricts a query to rows whose deleted flag is false.
func active(db *gorm.DB) *gorm.DB {
	return db.Where("isdeleted = ?", model.EncodeDeleted(false))
}

// Open builds a *gorm.DB on top of an existing pool, so both repository
// backends share the same traced connections.
func Open(sqlDB *sql.DB, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(level),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	return db, nil
}

// DocumentGorm is a gorm implementation of repository.DocumentRepository.
type DocumentGorm struct {
	db *gorm.DB
}

// NewDocumentGorm creates a new DocumentGorm repository.
func NewDocumentGorm(db *gorm.DB) *DocumentGorm {
	return &DocumentGorm{db: db}
}

var _ repository.DocumentRepository = (*DocumentGorm)(nil)

func (r *DocumentGorm) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	rec := toRecord(doc)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %w", repository.ErrDuplicate, err)
		}
		return nil, err
	}
	return rec.toModel()
}

func (r *DocumentGorm) FindByID(ctx context.Context, id string) (*model.Document, error) {
	return r.take(r.db.WithContext(ctx).Scopes(active), id)
}

func (r *DocumentGorm) FindByIDIncludingDeleted(ctx context.Context, id string) (*model.Document, error) {
	return r.take(r.db.WithContext(ctx), id)
}

func (r *DocumentGorm) take(tx *gorm.DB, id string) (*model.Document, error) {
	var rec documentRecord
	if err := tx.Where("id = ?", id).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rec.toModel()
}

func (r *DocumentGorm) ListActive(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	return r.list(r.db.WithContext(ctx).Model(&documentRecord{}).Scopes(active), pq)
}

func (r *DocumentGorm) ListAll(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	return r.list(r.db.WithContext(ctx).Model(&documentRecord{}), pq)
}

func (r *DocumentGorm) list(tx *gorm.DB, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var recs []documentRecord
	if err := tx.Session(&gorm.Session{}).Order("id").Limit(pq.Limit).Offset(pq.Offset).Find(&recs).Error; err != nil {
		return nil, err
	}

	items := make([]model.Document, 0, len(recs))
	for _, rec := range recs {
		d, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	return &repository.PageResult[model.Document]{Items: items, Total: int(total)}, nil
}

func (r *DocumentGorm) UpdateProcessing(ctx context.Context, id, status string, summary *string) error {
	res := r.db.WithContext(ctx).Model(&documentRecord{}).Scopes(active).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "summary": summary})
	return affected(res)
}

func (r *DocumentGorm) SoftDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&documentRecord{}).Scopes(active).
		Where("id = ?", id).
		Update("isdeleted", model.EncodeDeleted(true))
	return affected(res)
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
