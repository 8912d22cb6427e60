package controller

import (
	"net/http"

	"course_qa_backend/internal/util"
	"course_qa_backend/internal/vectorstore"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthController struct {
	DB      *gorm.DB
	Vectors *vectorstore.Store
}

func NewHealthController(db *gorm.DB, vectors *vectorstore.Store) *HealthController {
	return &HealthController{DB: db, Vectors: vectors}
}

func (ctl *HealthController) HealthCheck(c *gin.Context) {
	sqlDB, err := ctl.DB.DB()
	if err != nil {
		util.InternalServerError(c)
		return
	}
	if err := sqlDB.Ping(); err != nil {
		util.Error(c, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	util.Success(c, gin.H{
		"status": "ok",
		"components": gin.H{
			"database":    "up",
			"vectorCount": ctl.Vectors.Count(),
		},
	})
}
