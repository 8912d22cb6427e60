package controller

import (
	"course_qa_backend/internal/service"
	"course_qa_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ExamController struct {
	catalog *service.CatalogService
}

func NewExamController(catalog *service.CatalogService) *ExamController {
	return &ExamController{catalog: catalog}
}

type createExamRequest struct {
	Name string `json:"name" binding:"required"`
}

func (ctl *ExamController) Create(c *gin.Context) {
	var req createExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	exam, err := ctl.catalog.GetOrCreateExam(c.Param("courseId"), req.Name)
	if util.IsNotFound(err) {
		util.NotFound(c)
		return
	}
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Created(c, exam)
}

func (ctl *ExamController) List(c *gin.Context) {
	exams, err := ctl.catalog.ListExams(c.Param("courseId"))
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, exams)
}

func (ctl *ExamController) ListDocuments(c *gin.Context) {
	docs, err := ctl.catalog.ListExamDocuments(c.Param("examId"))
	if util.IsNotFound(err) {
		util.NotFound(c)
		return
	}
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, docs)
}

type createAssignmentRequest struct {
	Name string `json:"name" binding:"required"`
}

func (ctl *ExamController) CreateAssignment(c *gin.Context) {
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	assignment, err := ctl.catalog.GetOrCreateAssignment(c.Param("examId"), req.Name)
	if util.IsNotFound(err) {
		util.NotFound(c)
		return
	}
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Created(c, assignment)
}

func (ctl *ExamController) ListAssignments(c *gin.Context) {
	assignments, err := ctl.catalog.ListAssignments(c.Param("examId"))
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, assignments)
}
