package controller

import (
	"course_study_backend/internal/service"
	"course_study_backend/internal/util"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

const maxImportSize = 5 << 20

type CourseImportController struct {
	CourseService *service.CourseService
}

func NewCourseImportController(courseService *service.CourseService) *CourseImportController {
	return &CourseImportController{CourseService: courseService}
}

// ImportCourse godoc
// @Summary 导入课程
// @Description 请求体为 JSON 或 YAML（Content-Type: application/yaml）格式的课程定义
// @Tags 员工
// @Accept  json
// @Accept  application/yaml
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CourseDefinition true "课程定义"
// @Success 201 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Failure 422 {object} util.Response "课程定义无效"
// @Router /api/staff/courses/import [post]
func (c *CourseImportController) ImportCourse(ctx *gin.Context) {
	var def service.CourseDefinition
	if strings.Contains(ctx.ContentType(), "yaml") {
		raw, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxImportSize))
		if err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		if err := yaml.Unmarshal(raw, &def); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	} else if err := ctx.ShouldBindJSON(&def); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.ImportCourse(ctx.Request.Context(), &def)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{
		"id":    course.ID,
		"name":  course.Name,
		"pages": len(course.Pages),
		"tests": len(course.Tests),
	})
}
