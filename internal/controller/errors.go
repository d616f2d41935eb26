package controller

import (
	"course_study_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var notFoundErrors = []error{
	util.ErrNotFound,
	util.ErrUserNotFound,
	util.ErrCourseNotFound,
	util.ErrPageNotFound,
	util.ErrTestNotFound,
	util.ErrInstanceNotFound,
	util.ErrStudentNotFound,
	util.ErrDocumentNotFound,
}

var conflictErrors = []error{
	util.ErrEmailRegistered,
	util.ErrAlreadyAnswered,
	util.ErrRetakeAlreadyRequested,
	util.ErrRetakeAlreadyLinked,
	util.ErrRetakeNotRequested,
	util.ErrPracticeLimitReached,
}

var unprocessableErrors = []error{
	util.ErrInsufficientData,
	util.ErrLiveTestNotAllowed,
	util.ErrPracticeNotAllowed,
	util.ErrTestExpired,
	util.ErrInvalidAnswer,
	util.ErrNoQuestions,
	util.ErrRetakeNotFinished,
	util.ErrRetakePractice,
	util.ErrSignatureName,
	util.ErrSignatureNotUsed,
	util.ErrInvalidCourse,
	util.ErrInvalidViewTarget,
}

func matches(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// respondError 业务错误映射为 HTTP 状态码，其余按 500 记录
func respondError(ctx *gin.Context, err error) {
	switch {
	case matches(err, notFoundErrors):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case matches(err, conflictErrors):
		util.Conflict(ctx, err.Error())
	case matches(err, unprocessableErrors):
		util.Unprocessable(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidLogin):
		util.Error(ctx, http.StatusUnauthorized, err.Error())
	case errors.Is(err, util.ErrAccountDisabled), errors.Is(err, util.ErrNotVerified), errors.Is(err, util.ErrPermissionDenied):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, util.ErrInvalidID), errors.Is(err, util.ErrInvalidDocument):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// pathID 校验路径中的 UUID 参数
func pathID(ctx *gin.Context, name string) (string, bool) {
	id := ctx.Param(name)
	if err := util.ValidateID(id); err != nil {
		util.BadRequest(ctx, util.ErrInvalidID.Error())
		return "", false
	}
	return id, true
}
