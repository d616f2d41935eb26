package middleware

import (
	"context"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"course_study_backend/pkg/logger"
	"course_study_backend/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PageViewClosingService interface {
	ClosePageView(ctx context.Context, id string) (*model.PageViewInstance, error)
}

// PageViewCloser 每个请求开始时关闭会话中待关闭的页面浏览，失败不影响请求
func PageViewCloser(store session.Store, views PageViewClosingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.GetSessionToken(c)
		if token == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		id, ok, err := store.Pop(ctx, token, util.SessionKeyPageView)
		if err != nil {
			logger.Log.Warn("Failed to read pending page view", zap.Error(err))
		} else if ok && id != "" {
			if _, err := views.ClosePageView(ctx, id); err != nil {
				logger.Log.Warn("Failed to close page view",
					zap.String("page_view_id", id),
					zap.Error(err),
				)
			}
		}
		c.Next()
	}
}
