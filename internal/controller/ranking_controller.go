package controller

import (
	"strconv"

	"course_qa_backend/internal/repository"
	"course_qa_backend/internal/service"
	"course_qa_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RankingController struct {
	retrieval *service.RetrievalService
}

func NewRankingController(retrieval *service.RetrievalService) *RankingController {
	return &RankingController{retrieval: retrieval}
}

// Query parameters: strategy (frequency | weighted_sum, default
// frequency) and limit (default 10). An unknown strategy ranks by
// frequency rather than failing.

func (ctl *RankingController) TopChunks(c *gin.Context) {
	strategy, limit := rankingParams(c)
	ranked, err := ctl.retrieval.TopChunksForExam(c.Request.Context(), c.Param("examId"), strategy, limit)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, ranked)
}

func (ctl *RankingController) TopDocuments(c *gin.Context) {
	strategy, limit := rankingParams(c)
	ranked, err := ctl.retrieval.TopDocumentsForExam(c.Request.Context(), c.Param("examId"), strategy, limit)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, ranked)
}

func rankingParams(c *gin.Context) (strategy string, limit int) {
	strategy = c.DefaultQuery("strategy", repository.StrategyFrequency)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		limit = 10
	}
	return strategy, limit
}
