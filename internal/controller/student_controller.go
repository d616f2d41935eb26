package controller

import (
	"course_study_backend/internal/service"
	"course_study_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StudentController struct {
	StudentService *service.StudentService
}

func NewStudentController(studentService *service.StudentService) *StudentController {
	return &StudentController{StudentService: studentService}
}

type VerificationReviewRequest struct {
	Approved bool   `json:"approved"`
	Note     string `json:"note" binding:"max=2000"`
}

// GetProfile godoc
// @Summary 学生资料
// @Description 包含身份材料与审核状态
// @Tags 学生
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Student}
// @Router /api/student/profile [get]
func (c *StudentController) GetProfile(ctx *gin.Context) {
	student, err := c.StudentService.Get(ctx.Request.Context(), util.GetStudentFromContext(ctx).ID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, student)
}

// UpdateProfile godoc
// @Summary 更新学生资料
// @Tags 学生
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ProfileRequest true "资料"
// @Success 200 {object} util.Response{data=model.Student}
// @Failure 400 {object} util.Response
// @Router /api/student/profile [put]
func (c *StudentController) UpdateProfile(ctx *gin.Context) {
	var req service.ProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	student, err := c.StudentService.UpdateProfile(ctx.Request.Context(), util.GetStudentFromContext(ctx).ID, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, student)
}

// UploadDocument godoc
// @Summary 上传身份材料
// @Description 支持 PDF/JPEG/PNG，全部必需材料上传后进入待审核
// @Tags 学生
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "材料ID"
// @Param   file formData file true "文件"
// @Success 200 {object} util.Response{data=model.StudentIdentificationDocument}
// @Failure 400 {object} util.Response "文件类型或大小不支持"
// @Router /api/student/documents/{id} [post]
func (c *StudentController) UploadDocument(ctx *gin.Context) {
	documentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	doc, err := c.StudentService.UploadDocument(ctx.Request.Context(), util.GetStudentFromContext(ctx).ID, documentID,
		file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, doc)
}

// ListPendingVerifications godoc
// @Summary 待审核的学生身份
// @Tags 员工
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Student}
// @Router /api/staff/verifications [get]
func (c *StudentController) ListPendingVerifications(ctx *gin.Context) {
	list, err := c.StudentService.ListPendingVerifications(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// ReviewVerification godoc
// @Summary 审核学生身份
// @Description 驳回时清空必需材料的上传状态，学生需重新上传
// @Tags 员工
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "学生ID"
// @Param   body body VerificationReviewRequest true "审核结果"
// @Success 200 {object} util.Response{data=model.Student}
// @Router /api/staff/verifications/{id} [post]
func (c *StudentController) ReviewVerification(ctx *gin.Context) {
	studentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req VerificationReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	student, err := c.StudentService.ReviewVerification(ctx.Request.Context(), util.GetUserFromContext(ctx).UserID,
		studentID, req.Approved, req.Note)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, student)
}
