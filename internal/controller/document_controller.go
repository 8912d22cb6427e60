package controller

import (
	"errors"
	"strings"

	"course_qa_backend/internal/service"
	"course_qa_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DocumentController struct {
	ingestion *service.IngestionService
	catalog   *service.CatalogService
}

func NewDocumentController(ingestion *service.IngestionService, catalog *service.CatalogService) *DocumentController {
	return &DocumentController{ingestion: ingestion, catalog: catalog}
}

// Upload accepts a multipart file plus form fields: course_id (required)
// and exam_ids (comma-separated, optional). Duplicate uploads succeed
// with a warning in the response.
func (ctl *DocumentController) Upload(c *gin.Context) {
	courseID := c.PostForm("course_id")
	if courseID == "" {
		util.BadRequest(c, "course_id is required")
		return
	}

	var examIDs []string
	if raw := c.PostForm("exam_ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				examIDs = append(examIDs, id)
			}
		}
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		util.BadRequest(c, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	defer file.Close()

	doc, warning, err := ctl.ingestion.ProcessUpload(c.Request.Context(), fileHeader.Filename, file, courseID, examIDs)
	if errors.Is(err, util.ErrUnsupportedFormat) {
		util.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		util.LogInternalError(c, err)
		return
	}

	if warning != "" {
		util.CreatedWithWarning(c, doc, warning)
		return
	}
	util.Created(c, doc)
}

func (ctl *DocumentController) Delete(c *gin.Context) {
	err := ctl.catalog.DeleteDocument(c.Request.Context(), c.Param("docId"))
	if util.IsNotFound(err) {
		util.NotFound(c)
		return
	}
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, nil)
}
