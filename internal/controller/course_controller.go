package controller

import (
	"course_qa_backend/internal/service"
	"course_qa_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	catalog *service.CatalogService
}

func NewCourseController(catalog *service.CatalogService) *CourseController {
	return &CourseController{catalog: catalog}
}

type createCourseRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create returns the existing course when the name is already taken, so
// repeated creation is idempotent.
func (ctl *CourseController) Create(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	course, err := ctl.catalog.GetOrCreateCourse(req.Name)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Created(c, course)
}

func (ctl *CourseController) List(c *gin.Context) {
	courses, err := ctl.catalog.ListCourses()
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, courses)
}

func (ctl *CourseController) Delete(c *gin.Context) {
	err := ctl.catalog.DeleteCourse(c.Request.Context(), c.Param("courseId"))
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

func (ctl *CourseController) ListDocuments(c *gin.Context) {
	docs, err := ctl.catalog.ListCourseDocuments(c.Param("courseId"))
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
