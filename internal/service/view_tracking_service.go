package service

import (
	"context"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"course_study_backend/pkg/logger"
	"course_study_backend/pkg/monitoring"
	"course_study_backend/pkg/tracing"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const courseViewCreateAttempts = 3

// PageTarget 一次浏览的对象，页面、测试、题目三者至多其一
type PageTarget struct {
	CoursePageID   *string
	CourseTestID   *string
	QuestionID     *string
	TestInstanceID *string
	IsPractice     bool
	URL            string
}

func (t PageTarget) validate() error {
	n := 0
	for _, p := range []*string{t.CoursePageID, t.CourseTestID, t.QuestionID} {
		if p != nil {
			n++
		}
	}
	if n > 1 {
		return util.ErrInvalidViewTarget
	}
	return nil
}

type ViewTrackingService struct {
	Views ViewStore
	Clock util.Clock
	// 课程未加载时使用的空闲上限
	DefaultIdleSeconds int64
}

func NewViewTrackingService(views ViewStore, clock util.Clock, defaultIdleSeconds int64) *ViewTrackingService {
	return &ViewTrackingService{
		Views:              views,
		Clock:              clock,
		DefaultIdleSeconds: defaultIdleSeconds,
	}
}

// ClampDuration 浏览时长限制在 [0, maxIdle] 秒
func ClampDuration(start, stop time.Time, maxIdleSeconds int64) int64 {
	seconds := int64(stop.Sub(start) / time.Second)
	if seconds < 0 {
		return 0
	}
	if maxIdleSeconds > 0 && seconds > maxIdleSeconds {
		return maxIdleSeconds
	}
	return seconds
}

// TimeRequirementMet 未强制最短时长时总是满足
func TimeRequirementMet(view *model.CourseViewInstance, course *model.Course) bool {
	if !course.EnforceMinimumTime {
		return true
	}
	if view == nil {
		return false
	}
	return view.TotalSecondsSpent >= course.MinimumTimeSeconds
}

// GetOrCreateCourseView 并发首次访问时唯一索引冲突，重新查询而不是报错
func (s *ViewTrackingService) GetOrCreateCourseView(ctx context.Context, studentID, courseID string) (*model.CourseViewInstance, error) {
	var lastErr error
	for attempt := 0; attempt < courseViewCreateAttempts; attempt++ {
		view, err := s.Views.FindCourseView(ctx, studentID, courseID)
		if err == nil {
			return view, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		view = &model.CourseViewInstance{
			StudentID:       studentID,
			CourseID:        courseID,
			CourseViewStart: s.Clock.Now(),
		}
		err = s.Views.CreateCourseView(ctx, view)
		if err == nil {
			return view, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		logger.Log.Debug("Course view created concurrently, retrying fetch",
			zap.String("student_id", studentID),
			zap.String("course_id", courseID),
		)
		lastErr = err
	}
	return nil, fmt.Errorf("get or create course view: %w", lastErr)
}

// FindCourseView 不存在时返回 nil
func (s *ViewTrackingService) FindCourseView(ctx context.Context, studentID, courseID string) (*model.CourseViewInstance, error) {
	view, err := s.Views.FindCourseView(ctx, studentID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return view, err
}

// OpenPageView 调用方负责把返回的 id 存入会话
func (s *ViewTrackingService) OpenPageView(ctx context.Context, studentID string, course *model.Course, target PageTarget) (*model.PageViewInstance, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	view, err := s.GetOrCreateCourseView(ctx, studentID, course.ID)
	if err != nil {
		return nil, err
	}

	pv := &model.PageViewInstance{
		CourseViewInstanceID: view.ID,
		CoursePageID:         target.CoursePageID,
		CourseTestID:         target.CourseTestID,
		QuestionID:           target.QuestionID,
		TestInstanceID:       target.TestInstanceID,
		IsPractice:           target.IsPractice,
		URL:                  target.URL,
		PageViewStart:        s.Clock.Now(),
	}
	if err := s.Views.CreatePageView(ctx, pv); err != nil {
		return nil, err
	}
	return pv, nil
}

// ClosePageView 已关闭的浏览原样返回；关闭后重算课程总时长
func (s *ViewTrackingService) ClosePageView(ctx context.Context, id string) (pv *model.PageViewInstance, err error) {
	ctx, span := tracing.StartSpan(ctx, "ViewTracking.ClosePageView", attribute.String("page_view.id", id))
	defer func() { tracing.EndSpan(span, err) }()

	pv, err = s.Views.FindPageView(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	if pv.PageViewStop != nil {
		return pv, nil
	}

	var course *model.Course
	maxIdle := s.DefaultIdleSeconds
	if pv.CourseViewInstance != nil && pv.CourseViewInstance.Course != nil {
		course = pv.CourseViewInstance.Course
		maxIdle = course.MaximumIdleTimeSeconds
	}

	stop := s.Clock.Now()
	seconds := ClampDuration(pv.PageViewStart, stop, maxIdle)
	closed, err := s.Views.ClosePageView(ctx, pv.ID, stop, seconds)
	if err != nil {
		return nil, err
	}
	if !closed {
		// 并发请求已关闭
		return pv, nil
	}
	pv.PageViewStop = &stop
	pv.TotalSecondsSpent = seconds
	monitoring.PageViewsClosed.Inc()
	monitoring.PageViewSeconds.Observe(float64(seconds))

	if _, err := s.RecomputeCourseView(ctx, pv.CourseViewInstanceID, course); err != nil {
		return nil, err
	}
	return pv, nil
}

// RecomputeCourseView 全量求和子浏览时长
func (s *ViewTrackingService) RecomputeCourseView(ctx context.Context, courseViewID string, course *model.Course) (int64, error) {
	includePractice := course != nil && course.CountPracticeTime
	total, err := s.Views.SumSeconds(ctx, courseViewID, includePractice)
	if err != nil {
		return 0, err
	}
	if err := s.Views.UpdateCourseViewTotal(ctx, courseViewID, total, s.Clock.Now()); err != nil {
		return 0, err
	}
	return total, nil
}
