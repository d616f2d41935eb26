package controller

import (
	"course_study_backend/internal/service"
	"course_study_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	CourseService   *service.CourseService
	Generator       *service.TestGenerator
	InstanceService *service.TestInstanceService
	Recorder        *ViewRecorder
}

func NewTestController(courseService *service.CourseService, generator *service.TestGenerator,
	instanceService *service.TestInstanceService, recorder *ViewRecorder) *TestController {
	return &TestController{
		CourseService:   courseService,
		Generator:       generator,
		InstanceService: instanceService,
		Recorder:        recorder,
	}
}

type AnswerRequest struct {
	AnswerOptionID string `json:"answerOptionId" binding:"required,uuid"`
}

// StartTest godoc
// @Summary 开始或继续测试
// @Description 存在可用实例时复用，否则生成新的随机化实例
// @Tags 测试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "测试ID"
// @Param   practice query bool false "练习模式"
// @Success 200 {object} util.Response{data=InstanceView}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "练习次数已用完"
// @Failure 422 {object} util.Response "题目不足或模式不允许"
// @Router /api/tests/{id}/instances [post]
func (c *TestController) StartTest(ctx *gin.Context) {
	testID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	isPractice, _ := strconv.ParseBool(ctx.DefaultQuery("practice", "false"))
	student := util.GetStudentFromContext(ctx)

	course, test, err := c.CourseService.FindTest(ctx.Request.Context(), testID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	inst, err := c.Generator.GenerateOrReuse(ctx.Request.Context(), test, student.ID, isPractice)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if inst.CourseTest == nil {
		inst.CourseTest = test
	}
	status, err := c.InstanceService.StatusOf(ctx.Request.Context(), inst)
	if err != nil {
		respondError(ctx, err)
		return
	}

	c.Recorder.Record(ctx, student.ID, course, service.PageTarget{
		CourseTestID:   &test.ID,
		TestInstanceID: &inst.ID,
		IsPractice:     isPractice,
	})
	util.Success(ctx, newInstanceView(status))
}

// GetInstance godoc
// @Summary 测试实例状态
// @Description 读取时计算状态，超时的实例在此时结束
// @Tags 测试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "实例ID"
// @Success 200 {object} util.Response{data=InstanceView}
// @Failure 404 {object} util.Response
// @Router /api/instances/{id} [get]
func (c *TestController) GetInstance(ctx *gin.Context) {
	instanceID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	status, err := c.InstanceService.Status(ctx.Request.Context(), util.GetStudentFromContext(ctx).ID, instanceID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, newInstanceView(status))
}

// GetQuestion godoc
// @Summary 按序号获取题目
// @Description 首次访问题目时开始计时
// @Tags 测试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "实例ID"
// @Param   order path int true "题目序号（从1开始）"
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response
// @Router /api/instances/{id}/questions/{order} [get]
func (c *TestController) GetQuestion(ctx *gin.Context) {
	instanceID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	order, err := strconv.Atoi(ctx.Param("order"))
	if err != nil || order < 1 {
		util.BadRequest(ctx, "invalid question order")
		return
	}
	student := util.GetStudentFromContext(ctx)

	status, question, err := c.InstanceService.OpenQuestion(ctx.Request.Context(), student.ID, instanceID, order)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if course, _, err := c.CourseService.FindTest(ctx.Request.Context(), status.Instance.CourseTestID); err == nil {
		c.Recorder.Record(ctx, student.ID, course, service.PageTarget{
			QuestionID:     &question.QuestionID,
			TestInstanceID: &status.Instance.ID,
			IsPractice:     status.Instance.IsPractice,
		})
	}

	util.Success(ctx, gin.H{
		"instance": newInstanceView(status),
		"question": newQuestionView(question),
	})
}

// AnswerQuestion godoc
// @Summary 提交答案
// @Description 每题只能作答一次，超时后拒绝
// @Tags 测试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "题目实例ID"
// @Param   body body AnswerRequest true "选项"
// @Success 200 {object} util.Response{data=object}
// @Failure 409 {object} util.Response "已作答"
// @Failure 422 {object} util.Response "已超时或选项无效"
// @Router /api/questions/{id}/answer [post]
func (c *TestController) AnswerQuestion(ctx *gin.Context) {
	questionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.InstanceService.ChooseAnswer(ctx.Request.Context(), util.GetStudentFromContext(ctx).ID, questionID, req.AnswerOptionID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"question": newQuestionView(result.Question),
		"correct":  result.Correct,
		"state":    result.State,
	})
}

// GetScore godoc
// @Summary 测试得分
// @Tags 测试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "实例ID"
// @Success 200 {object} util.Response{data=service.Score}
// @Failure 422 {object} util.Response "实例没有题目"
// @Router /api/instances/{id}/score [get]
func (c *TestController) GetScore(ctx *gin.Context) {
	instanceID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	score, err := c.InstanceService.Score(ctx.Request.Context(), util.GetStudentFromContext(ctx).ID, instanceID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, score)
}
