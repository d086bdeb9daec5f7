package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"docprocessor/internal/service"
)

// processingRequest is the body of PATCH /documents/:id/processing.
type processingRequest struct {
	Status  string  `json:"status"`
	Summary *string `json:"summary"`
}

type downloadResponse struct {
	URL string `json:"url"`
}

// includeDeleted parses the include_deleted query flag; absent means false.
func includeDeleted(c *fiber.Ctx) (bool, error) {
	raw := c.Query("include_deleted")
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// validID rejects ids that are not UUIDs before they reach the service.
// The returned id is copied out of fiber's request buffer, which is reused
// once the handler returns, so spans and callers may keep it.
func validID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return utils.CopyString(id), true
}

// ListDocuments lists documents with limit & offset.
//
// @Summary  List documents
// @Tags     documents
// @Produce  json
// @Param    limit           query int  false "page size (default 10, max 100)"
// @Param    offset          query int  false "page offset"
// @Param    include_deleted query bool false "include soft-deleted documents"
// @Success  200 {object} service.DocumentListResult
// @Failure  400 {object} errorPayload
// @Router   /documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}
		all, err := includeDeleted(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FLAG", "invalid include_deleted")
		}

		var res *service.DocumentListResult
		if all {
			res, err = docSvc.ListAll(c.UserContext(), limit, offset)
		} else {
			res, err = docSvc.List(c.UserContext(), limit, offset)
		}
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument accepts multipart/form-data with field name "file".
//
// @Summary  Upload a document
// @Tags     documents
// @Accept   multipart/form-data
// @Produce  json
// @Param    file        formData file   true  "document file"
// @Param    uploaded_by formData string false "uploader name"
// @Success  201 {object} model.Document
// @Failure  400 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Router   /documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := docSvc.Upload(c.UserContext(), f, fh.Filename, ct, fh.Size, utils.CopyString(c.FormValue("uploaded_by")))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns a document by ID.
//
// @Summary  Get a document
// @Tags     documents
// @Produce  json
// @Param    id              path  string true  "document id"
// @Param    include_deleted query bool   false "also return a soft-deleted document"
// @Success  200 {object} model.Document
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /documents/{id} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		all, err := includeDeleted(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FLAG", "invalid include_deleted")
		}

		get := docSvc.Get
		if all {
			get = docSvc.GetIncludingDeleted
		}
		doc, err := get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// UpdateProcessing records the processing status and summary of a document.
//
// @Summary  Update processing state
// @Tags     documents
// @Accept   json
// @Param    id   path string            true "document id"
// @Param    body body processingRequest true "processing state"
// @Success  204
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /documents/{id}/processing [patch]
func UpdateProcessing(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var body processingRequest
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := docSvc.UpdateProcessing(c.UserContext(), id, body.Status, body.Summary); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DeleteDocument soft-deletes a document by ID.
//
// @Summary  Delete a document
// @Tags     documents
// @Param    id path string true "document id"
// @Success  204
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DownloadURL returns a pre-signed download URL for a document.
//
// @Summary  Get a download URL
// @Tags     documents
// @Produce  json
// @Param    id path string true "document id"
// @Success  200 {object} downloadResponse
// @Failure  404 {object} errorPayload
// @Router   /documents/{id}/download [get]
func DownloadURL(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		url, err := docSvc.DownloadURL(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(downloadResponse{URL: url})
	}
}
