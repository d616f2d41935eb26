package controller

import (
	"course_study_backend/internal/service"
	"course_study_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RetakeController struct {
	RetakeService *service.RetakeService
}

func NewRetakeController(retakeService *service.RetakeService) *RetakeController {
	return &RetakeController{RetakeService: retakeService}
}

type RetakeReviewRequest struct {
	Note string `json:"note" binding:"max=2000"`
}

// RequestRetake godoc
// @Summary 申请重考
// @Description 自动策略立即生成新实例；人工与邮件策略进入待审核
// @Tags 重考
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "实例ID"
// @Success 200 {object} util.Response{data=object}
// @Failure 409 {object} util.Response "已申请或已重考"
// @Failure 422 {object} util.Response "测试未结束或为练习"
// @Router /api/instances/{id}/retake [post]
func (c *RetakeController) RequestRetake(ctx *gin.Context) {
	instanceID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	result, err := c.RetakeService.RequestRetake(ctx.Request.Context(), util.GetStudentFromContext(ctx).ID, instanceID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	resp := gin.H{
		"original": brief(result.Original),
		"policy":   result.Policy,
		"pending":  result.Pending,
	}
	if result.Successor != nil {
		resp["successor"] = brief(result.Successor)
	}
	util.Success(ctx, resp)
}

// CurrentAttempt godoc
// @Summary 当前有效的正式测试实例
// @Description 沿重考链返回最新实例
// @Tags 重考
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "测试ID"
// @Success 200 {object} util.Response{data=InstanceView}
// @Failure 404 {object} util.Response
// @Router /api/tests/{id}/current [get]
func (c *RetakeController) CurrentAttempt(ctx *gin.Context) {
	testID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	inst, err := c.RetakeService.CurrentAttempt(ctx.Request.Context(), util.GetStudentFromContext(ctx).ID, testID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, brief(inst))
}

// ListPending godoc
// @Summary 待审核的重考申请
// @Tags 员工
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]InstanceView}
// @Router /api/staff/retakes [get]
func (c *RetakeController) ListPending(ctx *gin.Context) {
	list, err := c.RetakeService.ListPendingRetakes(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	views := make([]gin.H, 0, len(list))
	for i := range list {
		item := gin.H{"instance": brief(&list[i]), "studentId": list[i].StudentID}
		if list[i].CourseTest != nil {
			item["testTitle"] = list[i].CourseTest.Title
		}
		views = append(views, item)
	}
	util.Success(ctx, views)
}

// Approve godoc
// @Summary 批准重考
// @Tags 员工
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "实例ID"
// @Param   body body RetakeReviewRequest false "备注"
// @Success 200 {object} util.Response{data=InstanceView}
// @Failure 409 {object} util.Response
// @Router /api/staff/retakes/{id}/approve [post]
func (c *RetakeController) Approve(ctx *gin.Context) {
	instanceID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req RetakeReviewRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	successor, err := c.RetakeService.ApproveRetake(ctx.Request.Context(), util.GetUserFromContext(ctx).UserID, instanceID, req.Note)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, brief(successor))
}

// Deny godoc
// @Summary 拒绝重考
// @Tags 员工
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "实例ID"
// @Param   body body RetakeReviewRequest false "备注"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/staff/retakes/{id}/deny [post]
func (c *RetakeController) Deny(ctx *gin.Context) {
	instanceID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req RetakeReviewRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	if err := c.RetakeService.DenyRetake(ctx.Request.Context(), util.GetUserFromContext(ctx).UserID, instanceID, req.Note); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
