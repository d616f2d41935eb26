package controller

import (
	"course_study_backend/internal/model"
	"course_study_backend/internal/service"
	"course_study_backend/internal/util"
	"course_study_backend/pkg/logger"
	"course_study_backend/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ViewRecorder 打开页面浏览并把 id 写入会话，由下一次请求关闭
type ViewRecorder struct {
	Views    *service.ViewTrackingService
	Sessions session.Store
}

func NewViewRecorder(views *service.ViewTrackingService, sessions session.Store) *ViewRecorder {
	return &ViewRecorder{Views: views, Sessions: sessions}
}

// Record 记录失败不影响页面返回
func (r *ViewRecorder) Record(ctx *gin.Context, studentID string, course *model.Course, target service.PageTarget) {
	token := util.GetSessionToken(ctx)
	if token == "" {
		return
	}
	if target.URL == "" {
		target.URL = ctx.Request.URL.Path
	}

	pv, err := r.Views.OpenPageView(ctx.Request.Context(), studentID, course, target)
	if err != nil {
		logger.Log.Warn("Failed to open page view",
			zap.String("student_id", studentID),
			zap.String("url", target.URL),
			zap.Error(err),
		)
		return
	}
	if err := r.Sessions.Set(ctx.Request.Context(), token, util.SessionKeyPageView, pv.ID); err != nil {
		logger.Log.Warn("Failed to store page view in session", zap.Error(err))
	}
}
