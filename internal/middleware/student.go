package middleware

import (
	"context"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type StudentResolver interface {
	ResolveStudent(ctx context.Context, userID string) (*model.Student, error)
}

// StudentRequired 确保当前用户有学生档案（首次访问时创建）
func StudentRequired(students StudentResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		student, err := students.ResolveStudent(c.Request.Context(), claims.UserID)
		if err != nil {
			util.LogInternalError(c, err)
			c.Abort()
			return
		}

		c.Set(util.ContextKeyStudent, student)
		c.Next()
	}
}

// VerifiedStudentRequired 未通过身份审核的学生不能访问课程与测试
func VerifiedStudentRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		student := util.GetStudentFromContext(c)
		if student == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}
		if !student.IsVerified() {
			util.Error(c, http.StatusForbidden, util.ErrNotVerified.Error())
			c.Abort()
			return
		}
		c.Next()
	}
}
