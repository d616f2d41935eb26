package controller

import (
	"course_study_backend/internal/service"
	"course_study_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
	Recorder      *ViewRecorder
}

func NewCourseController(courseService *service.CourseService, recorder *ViewRecorder) *CourseController {
	return &CourseController{
		CourseService: courseService,
		Recorder:      recorder,
	}
}

type SignPageRequest struct {
	SignedName string `json:"signedName" binding:"required,max=300"`
}

// ListCourses godoc
// @Summary 已发布课程列表
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Course}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	courses, err := c.CourseService.ListPublished(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// GetCourse godoc
// @Summary 课程详情
// @Description 返回课程、页数与测试列表，并记录一次课程浏览
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseDetail}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	student := util.GetStudentFromContext(ctx)

	detail, err := c.CourseService.Detail(ctx.Request.Context(), courseID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	c.Recorder.Record(ctx, student.ID, detail.Course, service.PageTarget{})
	util.Success(ctx, detail)
}

// GetPage godoc
// @Summary 课程页面
// @Description 按页码返回页面内容，打开页面浏览
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Param   number path int true "页码（从1开始）"
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id}/pages/{number} [get]
func (c *CourseController) GetPage(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	number, err := strconv.Atoi(ctx.Param("number"))
	if err != nil || number < 1 {
		util.BadRequest(ctx, "invalid page number")
		return
	}
	student := util.GetStudentFromContext(ctx)

	course, page, count, err := c.CourseService.GetPage(ctx.Request.Context(), courseID, number)
	if err != nil {
		respondError(ctx, err)
		return
	}

	c.Recorder.Record(ctx, student.ID, course, service.PageTarget{CoursePageID: &page.ID})
	util.Success(ctx, gin.H{
		"page":                 page,
		"pageCount":            count,
		"hasNext":              int64(number) < count,
		"requirePageSignature": course.RequirePageSignature,
	})
}

// SignPage godoc
// @Summary 签名确认页面
// @Description 签名需与学生法定姓名一致
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Param   number path int true "页码"
// @Param   body body SignPageRequest true "签名"
// @Success 201 {object} util.Response{data=model.CoursePageSignature}
// @Failure 422 {object} util.Response "姓名不匹配"
// @Router /api/courses/{id}/pages/{number}/signature [post]
func (c *CourseController) SignPage(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	number, err := strconv.Atoi(ctx.Param("number"))
	if err != nil || number < 1 {
		util.BadRequest(ctx, "invalid page number")
		return
	}
	var req SignPageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sig, err := c.CourseService.SignPage(ctx.Request.Context(), util.GetStudentFromContext(ctx), courseID, number, req.SignedName)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, sig)
}

// GetProgress godoc
// @Summary 课程学习进度
// @Description 学习时长、页面签名与测试通过情况
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgress}
// @Router /api/courses/{id}/progress [get]
func (c *CourseController) GetProgress(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	progress, err := c.CourseService.Progress(ctx.Request.Context(), util.GetStudentFromContext(ctx).ID, courseID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}
