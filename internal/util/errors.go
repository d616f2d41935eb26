package util

import "errors"

var (
	ErrNotFound         = errors.New("resource not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailRegistered  = errors.New("email already registered")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidID        = errors.New("invalid identifier")
	ErrInvalidLogin     = errors.New("invalid credentials")
	ErrAccountDisabled  = errors.New("account disabled")

	ErrCourseNotFound   = errors.New("course not found")
	ErrPageNotFound     = errors.New("course page not found")
	ErrTestNotFound     = errors.New("course test not found")
	ErrInstanceNotFound = errors.New("test instance not found")
	ErrStudentNotFound  = errors.New("student not found")
	ErrDocumentNotFound = errors.New("document not found")

	// 题目不足以生成测试（无可用题目）
	ErrInsufficientData     = errors.New("not enough questions to generate a test")
	ErrLiveTestNotAllowed   = errors.New("test is practice only")
	ErrPracticeNotAllowed   = errors.New("practice tests are disabled for this test")
	ErrPracticeLimitReached = errors.New("practice test limit reached")

	ErrTestExpired     = errors.New("test time has expired")
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrInvalidAnswer   = errors.New("invalid multiple choice answer")
	ErrNoQuestions     = errors.New("test instance has no questions")

	ErrRetakeNotFinished      = errors.New("test must be finished before a retake")
	ErrRetakePractice         = errors.New("practice tests cannot be retaken")
	ErrRetakeAlreadyRequested = errors.New("retake already requested")
	ErrRetakeAlreadyLinked    = errors.New("retake already granted for this test")
	ErrRetakeNotRequested     = errors.New("no retake request pending")

	ErrNotVerified      = errors.New("student verification required")
	ErrSignatureName    = errors.New("signed name does not match legal name")
	ErrSignatureNotUsed = errors.New("course does not require page signatures")
	ErrInvalidDocument  = errors.New("unsupported document type or size")

	ErrInvalidViewTarget = errors.New("a page view references at most one of page, test or question")
	ErrInvalidCourse     = errors.New("invalid course definition")
)
