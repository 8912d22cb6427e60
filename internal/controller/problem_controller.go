package controller

import (
	"errors"

	"course_qa_backend/internal/service"
	"course_qa_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProblemController struct {
	problems  *service.ProblemService
	retrieval *service.RetrievalService
}

func NewProblemController(problems *service.ProblemService, retrieval *service.RetrievalService) *ProblemController {
	return &ProblemController{problems: problems, retrieval: retrieval}
}

type createProblemRequest struct {
	Text          string   `json:"text" binding:"required"`
	AssignmentID  *string  `json:"assignmentId"`
	ProblemNumber *int     `json:"problemNumber"`
	TopK          int      `json:"topK"`
	AllowedDocIDs []string `json:"allowedDocIds"`
}

// Create stores the problem and runs the one-time context retrieval. The
// optional allowedDocIds field narrows the search scope below the exam's
// attached documents.
func (ctl *ProblemController) Create(c *gin.Context) {
	var req createProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	problem, err := ctl.problems.Create(
		c.Request.Context(),
		req.Text, c.Param("examId"),
		req.AssignmentID, req.ProblemNumber,
		req.TopK, req.AllowedDocIDs,
	)
	if util.IsNotFound(err) {
		util.NotFound(c)
		return
	}
	if errors.Is(err, util.ErrConstraintViolation) {
		util.Conflict(c, err.Error())
		return
	}
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Created(c, problem)
}

func (ctl *ProblemController) Get(c *gin.Context) {
	problem, err := ctl.problems.FindByID(c.Param("problemId"))
	if util.IsNotFound(err) {
		util.NotFound(c)
		return
	}
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, problem)
}

func (ctl *ProblemController) List(c *gin.Context) {
	problems, err := ctl.problems.FindByExam(c.Param("examId"))
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, problems)
}

// Chunks returns the problem's logged retrieval context, best match
// first. Chunks deleted since retrieval are absent.
func (ctl *ProblemController) Chunks(c *gin.Context) {
	problemID := c.Param("problemId")
	if _, err := ctl.problems.FindByID(problemID); err != nil {
		if util.IsNotFound(err) {
			util.NotFound(c)
			return
		}
		util.LogInternalError(c, err)
		return
	}

	retrieved, err := ctl.retrieval.GetChunksForProblem(problemID)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, retrieved)
}

func (ctl *ProblemController) Delete(c *gin.Context) {
	err := ctl.problems.Delete(c.Param("problemId"))
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
