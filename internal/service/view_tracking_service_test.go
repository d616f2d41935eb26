package service

import (
	"context"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViewFixture(course *model.Course) (*ViewTrackingService, *memViews, *fakeClock) {
	views := newMemViews()
	ensureID(&course.UUIDBase)
	views.courses[course.ID] = course
	clock := newFakeClock()
	return NewViewTrackingService(views, clock, 900), views, clock
}

func TestClampDuration(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(900), ClampDuration(start, start.Add(time.Hour), 900))
	assert.Equal(t, int64(120), ClampDuration(start, start.Add(120*time.Second), 900))
	assert.Equal(t, int64(0), ClampDuration(start, start.Add(-time.Minute), 900))
	assert.Equal(t, int64(3600), ClampDuration(start, start.Add(time.Hour), 0), "zero disables the clamp")
}

func TestClosePageViewClampsIdleTime(t *testing.T) {
	ctx := context.Background()
	course := &model.Course{MaximumIdleTimeSeconds: 900}
	svc, views, clock := newViewFixture(course)

	pv, err := svc.OpenPageView(ctx, "student-1", course, PageTarget{URL: "/courses/1/pages/1"})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	closed, err := svc.ClosePageView(ctx, pv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), closed.TotalSecondsSpent)

	view, err := views.FindCourseView(ctx, "student-1", course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), view.TotalSecondsSpent)
}

func TestCourseTotalIsSumOfClosedViews(t *testing.T) {
	ctx := context.Background()
	course := &model.Course{MaximumIdleTimeSeconds: 900}
	svc, views, clock := newViewFixture(course)

	first, err := svc.OpenPageView(ctx, "student-1", course, PageTarget{})
	require.NoError(t, err)
	clock.Advance(120 * time.Second)
	_, err = svc.ClosePageView(ctx, first.ID)
	require.NoError(t, err)

	second, err := svc.OpenPageView(ctx, "student-1", course, PageTarget{})
	require.NoError(t, err)
	clock.Advance(300 * time.Second)
	_, err = svc.ClosePageView(ctx, second.ID)
	require.NoError(t, err)

	view, err := views.FindCourseView(ctx, "student-1", course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(420), view.TotalSecondsSpent)
	assert.Equal(t, first.CourseViewInstanceID, second.CourseViewInstanceID, "one course view per student and course")

	third, err := svc.OpenPageView(ctx, "student-1", course, PageTarget{})
	require.NoError(t, err)
	clock.Advance(50 * time.Second)
	_, err = svc.ClosePageView(ctx, third.ID)
	require.NoError(t, err)

	view, err = views.FindCourseView(ctx, "student-1", course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(470), view.TotalSecondsSpent)
}

func TestClosePageViewIsIdempotent(t *testing.T) {
	ctx := context.Background()
	course := &model.Course{MaximumIdleTimeSeconds: 900}
	svc, views, clock := newViewFixture(course)

	pv, err := svc.OpenPageView(ctx, "student-1", course, PageTarget{})
	require.NoError(t, err)
	clock.Advance(100 * time.Second)
	_, err = svc.ClosePageView(ctx, pv.ID)
	require.NoError(t, err)

	clock.Advance(500 * time.Second)
	again, err := svc.ClosePageView(ctx, pv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), again.TotalSecondsSpent)

	view, err := views.FindCourseView(ctx, "student-1", course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), view.TotalSecondsSpent)
}

func TestClosingViewsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	course := &model.Course{MaximumIdleTimeSeconds: 900}
	svc, views, clock := newViewFixture(course)

	a, err := svc.OpenPageView(ctx, "student-1", course, PageTarget{})
	require.NoError(t, err)
	clock.Advance(60 * time.Second)
	b, err := svc.OpenPageView(ctx, "student-1", course, PageTarget{})
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	_, err = svc.ClosePageView(ctx, b.ID)
	require.NoError(t, err)
	clock.Advance(10 * time.Second)
	_, err = svc.ClosePageView(ctx, a.ID)
	require.NoError(t, err)

	view, err := views.FindCourseView(ctx, "student-1", course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30+100), view.TotalSecondsSpent)
}

func TestPracticeTimeCountsOnlyWhenEnabled(t *testing.T) {
	ctx := context.Background()

	for _, countPractice := range []bool{false, true} {
		course := &model.Course{MaximumIdleTimeSeconds: 900, CountPracticeTime: countPractice}
		svc, views, clock := newViewFixture(course)

		page, err := svc.OpenPageView(ctx, "student-1", course, PageTarget{})
		require.NoError(t, err)
		clock.Advance(100 * time.Second)
		_, err = svc.ClosePageView(ctx, page.ID)
		require.NoError(t, err)

		practice, err := svc.OpenPageView(ctx, "student-1", course, PageTarget{IsPractice: true})
		require.NoError(t, err)
		clock.Advance(40 * time.Second)
		_, err = svc.ClosePageView(ctx, practice.ID)
		require.NoError(t, err)

		view, err := views.FindCourseView(ctx, "student-1", course.ID)
		require.NoError(t, err)
		want := int64(100)
		if countPractice {
			want = 140
		}
		assert.Equal(t, want, view.TotalSecondsSpent)
	}
}

func TestGetOrCreateCourseViewRetriesOnDuplicate(t *testing.T) {
	ctx := context.Background()
	course := &model.Course{}
	svc, views, _ := newViewFixture(course)
	views.raceOnCreate = true

	view, err := svc.GetOrCreateCourseView(ctx, "student-1", course.ID)
	require.NoError(t, err)

	stored, err := views.FindCourseView(ctx, "student-1", course.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, view.ID, "the concurrently created view is returned")
}

func TestOpenPageViewRejectsMultipleTargets(t *testing.T) {
	course := &model.Course{}
	svc, _, _ := newViewFixture(course)

	_, err := svc.OpenPageView(context.Background(), "student-1", course, PageTarget{
		CoursePageID: model.StringPtr("page"),
		QuestionID:   model.StringPtr("question"),
	})
	assert.ErrorIs(t, err, util.ErrInvalidViewTarget)
}

func TestClosePageViewNotFound(t *testing.T) {
	course := &model.Course{}
	svc, _, _ := newViewFixture(course)
	_, err := svc.ClosePageView(context.Background(), model.GenerateUUID())
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestTimeRequirementMet(t *testing.T) {
	course := &model.Course{EnforceMinimumTime: true, MinimumTimeSeconds: 600}
	assert.False(t, TimeRequirementMet(nil, course))
	assert.False(t, TimeRequirementMet(&model.CourseViewInstance{TotalSecondsSpent: 599}, course))
	assert.True(t, TimeRequirementMet(&model.CourseViewInstance{TotalSecondsSpent: 600}, course))
	assert.True(t, TimeRequirementMet(nil, &model.Course{}), "not enforced")
}
