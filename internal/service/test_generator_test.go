package service

import (
	"context"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeneratorFixture(t *testing.T, test *model.CourseTest, questions ...model.MultipleChoiceQuestion) (*TestGenerator, *memInstances) {
	t.Helper()
	tests := newMemTests()
	tests.add(test, questions...)
	instances := newMemInstances()
	return NewTestGenerator(tests, instances, util.NewRandomSource(42)), instances
}

func TestBuildCapsQuestionCountAndOrdersFromOne(t *testing.T) {
	var questions []model.MultipleChoiceQuestion
	pool := map[string]bool{}
	for i := 0; i < 10; i++ {
		q := mcQuestion("q", wrongAnswers(3)...)
		pool[q.ID] = true
		questions = append(questions, q)
	}
	test := &model.CourseTest{MaxNumberOfQuestions: 5, AllowPracticeTests: true}
	gen, _ := newGeneratorFixture(t, test, questions...)

	inst, err := gen.Build(context.Background(), test, "student-1", false)
	require.NoError(t, err)
	require.Len(t, inst.Questions, 5)

	seen := map[string]bool{}
	for i, q := range inst.Questions {
		assert.Equal(t, i+1, q.Order)
		assert.Equal(t, inst.ID, q.TestInstanceID)
		assert.True(t, pool[q.QuestionID], "question comes from the test pool")
		assert.False(t, seen[q.QuestionID], "questions are not repeated")
		seen[q.QuestionID] = true
	}
}

func TestBuildUsesAllQuestionsWhenNoMaximum(t *testing.T) {
	test := &model.CourseTest{}
	gen, _ := newGeneratorFixture(t, test,
		mcQuestion("a", wrongAnswers(2)...),
		mcQuestion("b", wrongAnswers(2)...),
		mcQuestion("c", wrongAnswers(2)...),
	)

	inst, err := gen.Build(context.Background(), test, "student-1", false)
	require.NoError(t, err)
	assert.Len(t, inst.Questions, 3)
}

func TestBuildOptionsContainCorrectAnswerExactlyOnce(t *testing.T) {
	test := &model.CourseTest{IsFixedAnswerLength: true, FixedAnswerLength: 3}
	q := mcQuestion("q", wrongAnswers(6)...)
	gen, _ := newGeneratorFixture(t, test, q)

	for i := 0; i < 20; i++ {
		inst, err := gen.Build(context.Background(), test, "student-1", false)
		require.NoError(t, err)
		opts := inst.Questions[0].AnswerOptions
		require.Len(t, opts, 3)

		correct := 0
		answers := map[string]bool{}
		for j, o := range opts {
			assert.Equal(t, j, o.Order)
			assert.Equal(t, inst.Questions[0].ID, o.QuestionInstanceID)
			assert.False(t, answers[o.AnswerID], "answers are distinct")
			answers[o.AnswerID] = true
			if o.AnswerID == q.CorrectAnswerID {
				correct++
			}
		}
		assert.Equal(t, 1, correct)
	}
}

func TestBuildPinsAllAndNoneOfTheAboveLast(t *testing.T) {
	wrong := wrongAnswers(2)
	wrong = append(wrong,
		model.MultipleChoiceAnswer{Value: "all of the above", IsAllOfTheAbove: true},
		model.MultipleChoiceAnswer{Value: "none of the above", IsNoneOfTheAbove: true},
	)
	q := mcQuestion("q", wrong...)
	q.MultipleChoiceAnswerLength = 5
	test := &model.CourseTest{}
	gen, _ := newGeneratorFixture(t, test, q)

	for i := 0; i < 30; i++ {
		inst, err := gen.Build(context.Background(), test, "student-1", false)
		require.NoError(t, err)
		opts := inst.Questions[0].AnswerOptions
		require.Len(t, opts, 5)
		for j, o := range opts {
			require.NotNil(t, o.Answer)
			if j < 3 {
				assert.False(t, o.Answer.IsPinnedLast(), "regular answers come first")
			} else {
				assert.True(t, o.Answer.IsPinnedLast(), "special answers come last")
			}
		}
	}
}

func TestBuildWithoutQuestionsIsInsufficientData(t *testing.T) {
	test := &model.CourseTest{}
	gen, instances := newGeneratorFixture(t, test)

	_, err := gen.GenerateOrReuse(context.Background(), test, "student-1", false)
	assert.ErrorIs(t, err, util.ErrInsufficientData)
	assert.Empty(t, instances.order)
}

func TestBuildSkipsOptionsWhenNoWrongAnswers(t *testing.T) {
	test := &model.CourseTest{}
	gen, _ := newGeneratorFixture(t, test, mcQuestion("lonely"))

	inst, err := gen.Build(context.Background(), test, "student-1", false)
	require.NoError(t, err)
	require.Len(t, inst.Questions, 1)
	assert.Empty(t, inst.Questions[0].AnswerOptions)
}

func TestGenerateOrReuseReturnsUnfinishedPractice(t *testing.T) {
	ctx := context.Background()
	test := &model.CourseTest{AllowPracticeTests: true}
	gen, instances := newGeneratorFixture(t, test, mcQuestion("q", wrongAnswers(3)...))

	first, err := gen.GenerateOrReuse(ctx, test, "student-1", true)
	require.NoError(t, err)
	assert.True(t, first.IsPractice)

	again, err := gen.GenerateOrReuse(ctx, test, "student-1", true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = instances.MarkFinished(ctx, first.ID, newFakeClock().Now())
	require.NoError(t, err)
	fresh, err := gen.GenerateOrReuse(ctx, test, "student-1", true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
}

func TestGenerateOrReuseKeepsFinishedLiveInstance(t *testing.T) {
	ctx := context.Background()
	test := &model.CourseTest{}
	gen, instances := newGeneratorFixture(t, test, mcQuestion("q", wrongAnswers(3)...))

	first, err := gen.GenerateOrReuse(ctx, test, "student-1", false)
	require.NoError(t, err)
	_, err = instances.MarkFinished(ctx, first.ID, newFakeClock().Now())
	require.NoError(t, err)

	again, err := gen.GenerateOrReuse(ctx, test, "student-1", false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "a finished live test is returned until a retake replaces it")

	other, err := gen.GenerateOrReuse(ctx, test, "student-2", false)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestGenerateOrReusePracticeRules(t *testing.T) {
	ctx := context.Background()

	t.Run("practice disabled", func(t *testing.T) {
		test := &model.CourseTest{AllowPracticeTests: false}
		gen, _ := newGeneratorFixture(t, test, mcQuestion("q", wrongAnswers(3)...))
		_, err := gen.GenerateOrReuse(ctx, test, "student-1", true)
		assert.ErrorIs(t, err, util.ErrPracticeNotAllowed)
	})

	t.Run("practice limit", func(t *testing.T) {
		test := &model.CourseTest{AllowPracticeTests: true, MaximumPracticeTests: 1}
		gen, instances := newGeneratorFixture(t, test, mcQuestion("q", wrongAnswers(3)...))
		first, err := gen.GenerateOrReuse(ctx, test, "student-1", true)
		require.NoError(t, err)
		_, err = instances.MarkFinished(ctx, first.ID, newFakeClock().Now())
		require.NoError(t, err)

		_, err = gen.GenerateOrReuse(ctx, test, "student-1", true)
		assert.ErrorIs(t, err, util.ErrPracticeLimitReached)
	})

	t.Run("practice only test refuses live", func(t *testing.T) {
		test := &model.CourseTest{AllowPracticeTests: true, IsPracticeOnly: true}
		gen, _ := newGeneratorFixture(t, test, mcQuestion("q", wrongAnswers(3)...))
		_, err := gen.GenerateOrReuse(ctx, test, "student-1", false)
		assert.ErrorIs(t, err, util.ErrLiveTestNotAllowed)

		inst, err := gen.GenerateOrReuse(ctx, test, "student-1", true)
		require.NoError(t, err)
		assert.True(t, inst.IsPractice)
	})
}

func TestWrongAnswerPoolFiltersByMode(t *testing.T) {
	q := mcQuestion("q",
		model.MultipleChoiceAnswer{Value: "both"},
		model.MultipleChoiceAnswer{Value: "live", IsLiveOnly: true},
		model.MultipleChoiceAnswer{Value: "practice", IsPracticeOnly: true},
	)

	values := func(list []model.MultipleChoiceAnswer) []string {
		var out []string
		for _, a := range list {
			out = append(out, a.Value)
		}
		return out
	}
	assert.Equal(t, []string{"both", "practice"}, values(WrongAnswerPool(&q, true)))
	assert.Equal(t, []string{"both", "live"}, values(WrongAnswerPool(&q, false)))
}

func TestCalculatedAnswerLength(t *testing.T) {
	q := &model.MultipleChoiceQuestion{MultipleChoiceAnswerLength: 4}

	tests := []struct {
		name string
		test model.CourseTest
		pool int
		want int
	}{
		{"question length", model.CourseTest{}, 6, 4},
		{"limited by pool", model.CourseTest{}, 2, 3},
		{"fixed length", model.CourseTest{IsFixedAnswerLength: true, FixedAnswerLength: 5}, 6, 5},
		{"fixed zero uses all", model.CourseTest{IsFixedAnswerLength: true}, 6, 7},
		{"fixed limited by pool", model.CourseTest{IsFixedAnswerLength: true, FixedAnswerLength: 5}, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculatedAnswerLength(&tt.test, q, tt.pool))
		})
	}
}
