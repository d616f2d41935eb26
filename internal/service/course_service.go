package service

import (
	"context"
	"course_study_backend/internal/config"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"course_study_backend/pkg/logger"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttemptResolver 由 RetakeService 实现
type AttemptResolver interface {
	CurrentAttempt(ctx context.Context, studentID, testID string) (*model.TestInstance, error)
}

type CourseService struct {
	Courses  CourseStore
	Tests    TestDefinitionStore
	Views    *ViewTrackingService
	Attempts AttemptResolver
	Clock    util.Clock
	Defaults config.CourseDefaults
}

func NewCourseService(courses CourseStore, tests TestDefinitionStore, views *ViewTrackingService, attempts AttemptResolver,
	clock util.Clock, defaults config.CourseDefaults) *CourseService {
	return &CourseService{
		Courses:  courses,
		Tests:    tests,
		Views:    views,
		Attempts: attempts,
		Clock:    clock,
		Defaults: defaults,
	}
}

type CourseDetail struct {
	Course    *model.Course      `json:"course"`
	PageCount int64              `json:"pageCount"`
	Tests     []model.CourseTest `json:"tests"`
}

type TestProgress struct {
	TestID         string          `json:"testId"`
	Title          string          `json:"title"`
	IsPracticeOnly bool            `json:"isPracticeOnly"`
	InstanceID     string          `json:"instanceId,omitempty"`
	State          model.TestState `json:"state,omitempty"`
	Score          *Score          `json:"score,omitempty"`
	Passed         bool            `json:"passed"`
}

type CourseProgress struct {
	CourseID          string         `json:"courseId"`
	SecondsSpent      int64          `json:"secondsSpent"`
	MinimumSeconds    int64          `json:"minimumSeconds"`
	EnforceMinimum    bool           `json:"enforceMinimum"`
	TimeRequirement   bool           `json:"timeRequirementMet"`
	PageCount         int64          `json:"pageCount"`
	PagesSigned       int64          `json:"pagesSigned"`
	SignaturesDone    bool           `json:"signaturesComplete"`
	Tests             []TestProgress `json:"tests"`
	RequiredTestsDone bool           `json:"requiredTestsPassed"`
	Completed         bool           `json:"completed"`
}

func (s *CourseService) ListPublished(ctx context.Context) ([]model.Course, error) {
	return s.Courses.ListPublished(ctx)
}

// Get 未发布的课程对学生不可见
func (s *CourseService) Get(ctx context.Context, courseID string) (*model.Course, error) {
	course, err := s.Courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if !course.IsPublished {
		return nil, util.ErrCourseNotFound
	}
	return course, nil
}

func (s *CourseService) Detail(ctx context.Context, courseID string) (*CourseDetail, error) {
	course, err := s.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	count, err := s.Courses.CountPages(ctx, courseID)
	if err != nil {
		return nil, err
	}
	tests, err := s.Courses.ListTests(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return &CourseDetail{Course: course, PageCount: count, Tests: tests}, nil
}

func (s *CourseService) GetPage(ctx context.Context, courseID string, number int) (*model.Course, *model.CoursePage, int64, error) {
	course, err := s.Get(ctx, courseID)
	if err != nil {
		return nil, nil, 0, err
	}
	page, err := s.Courses.FindPage(ctx, courseID, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, 0, util.ErrPageNotFound
		}
		return nil, nil, 0, err
	}
	count, err := s.Courses.CountPages(ctx, courseID)
	if err != nil {
		return nil, nil, 0, err
	}
	return course, page, count, nil
}

// FindTest 测试必须属于已发布的课程
func (s *CourseService) FindTest(ctx context.Context, testID string) (*model.Course, *model.CourseTest, error) {
	test, err := s.Tests.FindTestByID(ctx, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrTestNotFound
		}
		return nil, nil, err
	}
	course, err := s.Get(ctx, test.CourseID)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			return nil, nil, util.ErrTestNotFound
		}
		return nil, nil, err
	}
	return course, test, nil
}

// SignPage 签名需与学生法定姓名一致（忽略大小写与首尾空白）
func (s *CourseService) SignPage(ctx context.Context, student *model.Student, courseID string, number int, signedName string) (*model.CoursePageSignature, error) {
	course, page, _, err := s.GetPage(ctx, courseID, number)
	if err != nil {
		return nil, err
	}
	if !course.RequirePageSignature {
		return nil, util.ErrSignatureNotUsed
	}
	if !strings.EqualFold(strings.TrimSpace(signedName), student.FullLegalName()) {
		return nil, util.ErrSignatureName
	}

	sig := &model.CoursePageSignature{
		StudentID:    student.ID,
		CoursePageID: page.ID,
		CourseID:     course.ID,
		SignedName:   strings.TrimSpace(signedName),
		SignedOn:     s.Clock.Now(),
	}
	if err := s.Courses.CreateSignature(ctx, sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// Progress 完成条件：时长满足、页面签名完成、所有非练习测试的当前尝试通过
func (s *CourseService) Progress(ctx context.Context, studentID, courseID string) (*CourseProgress, error) {
	course, err := s.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}

	view, err := s.Views.FindCourseView(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	p := &CourseProgress{
		CourseID:       courseID,
		MinimumSeconds: course.MinimumTimeSeconds,
		EnforceMinimum: course.EnforceMinimumTime,
	}
	if view != nil {
		p.SecondsSpent = view.TotalSecondsSpent
	}
	p.TimeRequirement = TimeRequirementMet(view, course)

	if p.PageCount, err = s.Courses.CountPages(ctx, courseID); err != nil {
		return nil, err
	}
	if p.PagesSigned, err = s.Courses.CountSignatures(ctx, studentID, courseID); err != nil {
		return nil, err
	}
	p.SignaturesDone = !course.RequirePageSignature || p.PagesSigned >= p.PageCount

	tests, err := s.Courses.ListTests(ctx, courseID)
	if err != nil {
		return nil, err
	}
	p.RequiredTestsDone = true
	now := s.Clock.Now()
	for i := range tests {
		test := &tests[i]
		tp := TestProgress{TestID: test.ID, Title: test.Title, IsPracticeOnly: test.IsPracticeOnly}
		if !test.IsPracticeOnly {
			attempt, err := s.Attempts.CurrentAttempt(ctx, studentID, test.ID)
			switch {
			case err == nil:
				if attempt.CourseTest == nil {
					attempt.CourseTest = test
				}
				tp.InstanceID = attempt.ID
				tp.State = EvaluateState(attempt, now)
				if tp.State.IsTerminal() {
					if score, err := ComputeScore(attempt, test.PassingPercentage); err == nil {
						tp.Score = score
						tp.Passed = score.Passed
					}
				}
			case errors.Is(err, util.ErrInstanceNotFound):
			default:
				return nil, err
			}
			if !tp.Passed {
				p.RequiredTestsDone = false
			}
		}
		p.Tests = append(p.Tests, tp)
	}

	p.Completed = p.TimeRequirement && p.SignaturesDone && p.RequiredTestsDone
	return p, nil
}

type AnswerDefinition struct {
	Value            string `yaml:"value" json:"value" validate:"required,max=300"`
	IsAllOfTheAbove  bool   `yaml:"all_of_the_above" json:"allOfTheAbove"`
	IsNoneOfTheAbove bool   `yaml:"none_of_the_above" json:"noneOfTheAbove"`
	IsLiveOnly       bool   `yaml:"live_only" json:"liveOnly"`
	IsPracticeOnly   bool   `yaml:"practice_only" json:"practiceOnly"`
}

type QuestionDefinition struct {
	Contents           string             `yaml:"contents" json:"contents" validate:"required"`
	PostAnswerComments string             `yaml:"post_answer_comments" json:"postAnswerComments"`
	AnswerLength       int                `yaml:"answer_length" json:"answerLength" validate:"gte=0"`
	CorrectAnswer      AnswerDefinition   `yaml:"correct_answer" json:"correctAnswer"`
	WrongAnswers       []AnswerDefinition `yaml:"wrong_answers" json:"wrongAnswers" validate:"dive"`
}

type TestDefinition struct {
	Title                string               `yaml:"title" json:"title" validate:"required,max=200"`
	IsTimed              bool                 `yaml:"timed" json:"timed"`
	MaximumTimeSeconds   int64                `yaml:"maximum_time_seconds" json:"maximumTimeSeconds" validate:"gte=0"`
	IsFixedAnswerLength  bool                 `yaml:"fixed_answer_length" json:"fixedAnswerLength"`
	FixedAnswerLength    *int                 `yaml:"answer_length" json:"answerLength" validate:"omitempty,gte=0"`
	MaxNumberOfQuestions int                  `yaml:"max_questions" json:"maxQuestions" validate:"gte=0"`
	AllowPracticeTests   *bool                `yaml:"allow_practice" json:"allowPractice"`
	MaximumPracticeTests int                  `yaml:"maximum_practice_tests" json:"maximumPracticeTests" validate:"gte=0"`
	IsPracticeOnly       bool                 `yaml:"practice_only" json:"practiceOnly"`
	PassingPercentage    float64              `yaml:"passing_percentage" json:"passingPercentage" validate:"gte=0,lte=100"`
	RetakePolicy         model.RetakePolicy   `yaml:"retake_policy" json:"retakePolicy" validate:"omitempty,oneof=manual auto email"`
	Questions            []QuestionDefinition `yaml:"questions" json:"questions" validate:"dive"`
}

type PageDefinition struct {
	Title    string `yaml:"title" json:"title" validate:"max=200"`
	Contents string `yaml:"contents" json:"contents"`
}

// CourseDefinition 课程导入格式（YAML 或 JSON）
type CourseDefinition struct {
	Name                   string           `yaml:"name" json:"name" validate:"required,max=200"`
	Description            string           `yaml:"description" json:"description"`
	Published              bool             `yaml:"published" json:"published"`
	EnforceMinimumTime     bool             `yaml:"enforce_minimum_time" json:"enforceMinimumTime"`
	MinimumTimeSeconds     int64            `yaml:"minimum_time_seconds" json:"minimumTimeSeconds" validate:"gte=0"`
	MaximumIdleTimeSeconds int64            `yaml:"maximum_idle_time_seconds" json:"maximumIdleTimeSeconds" validate:"gte=0"`
	RequirePageSignature   bool             `yaml:"require_page_signature" json:"requirePageSignature"`
	CountPracticeTime      bool             `yaml:"count_practice_time" json:"countPracticeTime"`
	Pages                  []PageDefinition `yaml:"pages" json:"pages" validate:"dive"`
	Tests                  []TestDefinition `yaml:"tests" json:"tests" validate:"dive"`
}

func answerFromDefinition(d AnswerDefinition) model.MultipleChoiceAnswer {
	return model.MultipleChoiceAnswer{
		Value:            d.Value,
		IsAllOfTheAbove:  d.IsAllOfTheAbove,
		IsNoneOfTheAbove: d.IsNoneOfTheAbove,
		IsLiveOnly:       d.IsLiveOnly,
		IsPracticeOnly:   d.IsPracticeOnly,
	}
}

// BuildCourse 零值字段使用配置中的默认值
func (s *CourseService) BuildCourse(def *CourseDefinition) *model.Course {
	d := s.Defaults
	course := &model.Course{
		Name:                   def.Name,
		Description:            def.Description,
		IsPublished:            def.Published,
		EnforceMinimumTime:     def.EnforceMinimumTime,
		MinimumTimeSeconds:     def.MinimumTimeSeconds,
		MaximumIdleTimeSeconds: def.MaximumIdleTimeSeconds,
		RequirePageSignature:   def.RequirePageSignature,
		CountPracticeTime:      def.CountPracticeTime,
	}
	if course.MinimumTimeSeconds == 0 {
		course.MinimumTimeSeconds = d.MinimumCourseSeconds
	}
	if course.MaximumIdleTimeSeconds == 0 {
		course.MaximumIdleTimeSeconds = d.MaximumIdleTimeSeconds
	}

	for i, p := range def.Pages {
		course.Pages = append(course.Pages, model.CoursePage{
			PageNumber:   i + 1,
			PageTitle:    p.Title,
			PageContents: p.Contents,
		})
	}

	for i, t := range def.Tests {
		test := model.CourseTest{
			Title:                t.Title,
			Order:                i + 1,
			IsTimed:              t.IsTimed,
			MaximumTimeSeconds:   t.MaximumTimeSeconds,
			IsFixedAnswerLength:  t.IsFixedAnswerLength,
			FixedAnswerLength:    d.DefaultAnswerLength,
			MaxNumberOfQuestions: t.MaxNumberOfQuestions,
			AllowPracticeTests:   true,
			MaximumPracticeTests: t.MaximumPracticeTests,
			IsPracticeOnly:       t.IsPracticeOnly,
			PassingPercentage:    t.PassingPercentage,
			RetakePolicy:         t.RetakePolicy,
		}
		if test.MaximumTimeSeconds == 0 {
			test.MaximumTimeSeconds = d.MaximumTestSeconds
		}
		if t.FixedAnswerLength != nil {
			test.FixedAnswerLength = *t.FixedAnswerLength
		}
		if t.AllowPracticeTests != nil {
			test.AllowPracticeTests = *t.AllowPracticeTests
		}
		if test.PassingPercentage == 0 {
			test.PassingPercentage = d.PassingPercentage
		}
		if test.RetakePolicy == "" {
			test.RetakePolicy = model.RetakeManual
		}

		for j, q := range t.Questions {
			correct := answerFromDefinition(q.CorrectAnswer)
			question := model.MultipleChoiceQuestion{
				Order:                      j + 1,
				QuestionContents:           q.Contents,
				PostAnswerComments:         q.PostAnswerComments,
				CorrectAnswer:              &correct,
				MultipleChoiceAnswerLength: q.AnswerLength,
			}
			if question.MultipleChoiceAnswerLength == 0 {
				question.MultipleChoiceAnswerLength = d.DefaultAnswerLength
			}
			for _, w := range q.WrongAnswers {
				question.WrongAnswers = append(question.WrongAnswers, answerFromDefinition(w))
			}
			test.Questions = append(test.Questions, question)
		}
		course.Tests = append(course.Tests, test)
	}
	return course
}

// ImportCourse 校验后整体写入
func (s *CourseService) ImportCourse(ctx context.Context, def *CourseDefinition) (*model.Course, error) {
	if err := util.ValidateStruct(def); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidCourse, err)
	}
	for _, t := range def.Tests {
		if !t.RetakePolicy.Valid() && t.RetakePolicy != "" {
			return nil, fmt.Errorf("%w: unknown retake policy %q", util.ErrInvalidCourse, t.RetakePolicy)
		}
		if t.IsPracticeOnly && t.AllowPracticeTests != nil && !*t.AllowPracticeTests {
			return nil, fmt.Errorf("%w: test %q is practice only but disallows practice", util.ErrInvalidCourse, t.Title)
		}
	}

	course := s.BuildCourse(def)
	if err := s.Courses.Import(ctx, course); err != nil {
		return nil, err
	}
	logger.Log.Info("Course imported",
		zap.String("course_id", course.ID),
		zap.String("name", course.Name),
		zap.Int("pages", len(course.Pages)),
		zap.Int("tests", len(course.Tests)),
	)
	return course, nil
}
