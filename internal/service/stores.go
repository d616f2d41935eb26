package service

import (
	"context"
	"course_study_backend/internal/model"
	"time"
)

// 服务依赖的存储接口，由 internal/repository 中的 gorm 实现

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	StaffEmails(ctx context.Context) ([]string, error)
}

type StudentStore interface {
	Create(ctx context.Context, student *model.Student) error
	FindByID(ctx context.Context, id string) (*model.Student, error)
	FindByUserID(ctx context.Context, userID string) (*model.Student, error)
	UpdateProfile(ctx context.Context, student *model.Student) error
	FindDocument(ctx context.Context, id string) (*model.StudentIdentificationDocument, error)
	SaveDocumentUpload(ctx context.Context, doc *model.StudentIdentificationDocument) error
	MarkVerificationReady(ctx context.Context, id string, at time.Time) (bool, error)
	SetVerified(ctx context.Context, id, staffID string, at time.Time, note string) error
	ClearVerification(ctx context.Context, id, note string) error
	ListReadyForVerification(ctx context.Context) ([]model.Student, error)
}

type CourseStore interface {
	FindByID(ctx context.Context, id string) (*model.Course, error)
	ListPublished(ctx context.Context) ([]model.Course, error)
	ListTests(ctx context.Context, courseID string) ([]model.CourseTest, error)
	FindPage(ctx context.Context, courseID string, number int) (*model.CoursePage, error)
	CountPages(ctx context.Context, courseID string) (int64, error)
	CreateSignature(ctx context.Context, sig *model.CoursePageSignature) error
	CountSignatures(ctx context.Context, studentID, courseID string) (int64, error)
	Import(ctx context.Context, course *model.Course) error
}

type TestDefinitionStore interface {
	FindTestByID(ctx context.Context, id string) (*model.CourseTest, error)
	ListQuestions(ctx context.Context, testID string) ([]model.MultipleChoiceQuestion, error)
}

type TestInstanceStore interface {
	FindByID(ctx context.Context, id string) (*model.TestInstance, error)
	FindLatestUnfinishedPractice(ctx context.Context, studentID, testID string) (*model.TestInstance, error)
	FindCurrentLive(ctx context.Context, studentID, testID string) (*model.TestInstance, error)
	CountPractice(ctx context.Context, studentID, testID string) (int64, error)
	ListByStudentAndTest(ctx context.Context, studentID, testID string) ([]model.TestInstance, error)
	CreateWithQuestions(ctx context.Context, inst *model.TestInstance) error
	MarkStarted(ctx context.Context, id string, at time.Time) (bool, error)
	MarkFinished(ctx context.Context, id string, at time.Time) (bool, error)
	FindQuestionInstance(ctx context.Context, id string) (*model.QuestionInstance, error)
	CreateAnswerChosen(ctx context.Context, a *model.AnswerChosenInstance) error
	MarkRetakeRequested(ctx context.Context, id string, at time.Time) (bool, error)
	ListPendingRetakes(ctx context.Context) ([]model.TestInstance, error)
	LinkRetake(ctx context.Context, originalID string, successor *model.TestInstance, reviewerID *string, note string) error
	ClearRetakeRequest(ctx context.Context, id, reviewerID, note string) (bool, error)
}

type ViewStore interface {
	FindCourseView(ctx context.Context, studentID, courseID string) (*model.CourseViewInstance, error)
	CreateCourseView(ctx context.Context, v *model.CourseViewInstance) error
	CreatePageView(ctx context.Context, pv *model.PageViewInstance) error
	FindPageView(ctx context.Context, id string) (*model.PageViewInstance, error)
	ClosePageView(ctx context.Context, id string, stop time.Time, seconds int64) (bool, error)
	SumSeconds(ctx context.Context, courseViewID string, includePractice bool) (int64, error)
	UpdateCourseViewTotal(ctx context.Context, courseViewID string, total int64, stop time.Time) error
}
