package controller

import (
	"course_qa_backend/internal/model"
	"course_qa_backend/internal/service"
	"course_qa_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	qa *service.QAService
}

func NewQuestionController(qa *service.QAService) *QuestionController {
	return &QuestionController{qa: qa}
}

type askQuestionRequest struct {
	Question string `json:"question" binding:"required"`
	Style    string `json:"style"`
}

// Ask answers a question about a problem using its logged retrieval
// context. A generation failure still returns 201 with the fallback
// answer stored.
func (ctl *QuestionController) Ask(c *gin.Context) {
	var req askQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	question, err := ctl.qa.AskQuestion(
		c.Request.Context(),
		c.Param("problemId"),
		req.Question,
		model.PromptStyle(req.Style),
	)
	if util.IsNotFound(err) {
		util.NotFound(c)
		return
	}
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Created(c, question)
}

func (ctl *QuestionController) Get(c *gin.Context) {
	question, err := ctl.qa.FindByID(c.Param("questionId"))
	if util.IsNotFound(err) {
		util.NotFound(c)
		return
	}
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, question)
}

func (ctl *QuestionController) List(c *gin.Context) {
	questions, err := ctl.qa.FindByProblem(c.Param("problemId"))
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, questions)
}
