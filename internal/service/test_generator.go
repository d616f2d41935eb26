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

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestGenerator 为学生生成（或复用）随机化的测试实例
type TestGenerator struct {
	Tests     TestDefinitionStore
	Instances TestInstanceStore
	Rand      util.RandomSource
}

func NewTestGenerator(tests TestDefinitionStore, instances TestInstanceStore, rnd util.RandomSource) *TestGenerator {
	return &TestGenerator{
		Tests:     tests,
		Instances: instances,
		Rand:      rnd,
	}
}

// GenerateOrReuse 存在可用实例时原样返回：
// 练习取最近一次未结束的实例；正式测试取 retake 为空的实例（无论是否已结束）。
// 没有任何题目时返回 util.ErrInsufficientData。
func (g *TestGenerator) GenerateOrReuse(ctx context.Context, test *model.CourseTest, studentID string, isPractice bool) (*model.TestInstance, error) {
	if isPractice {
		if !test.AllowPracticeTests {
			return nil, util.ErrPracticeNotAllowed
		}
		existing, err := g.Instances.FindLatestUnfinishedPractice(ctx, studentID, test.ID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if test.MaximumPracticeTests > 0 {
			count, err := g.Instances.CountPractice(ctx, studentID, test.ID)
			if err != nil {
				return nil, err
			}
			if count >= int64(test.MaximumPracticeTests) {
				return nil, util.ErrPracticeLimitReached
			}
		}
	} else {
		if test.IsPracticeOnly {
			return nil, util.ErrLiveTestNotAllowed
		}
		existing, err := g.Instances.FindCurrentLive(ctx, studentID, test.ID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return g.GenerateFresh(ctx, test, studentID, isPractice)
}

// GenerateFresh 不查找已有实例，直接生成并持久化
func (g *TestGenerator) GenerateFresh(ctx context.Context, test *model.CourseTest, studentID string, isPractice bool) (inst *model.TestInstance, err error) {
	ctx, span := tracing.StartSpan(ctx, "TestGenerator.GenerateFresh",
		attribute.String("test.id", test.ID),
		attribute.Bool("test.practice", isPractice),
	)
	defer func() { tracing.EndSpan(span, err) }()

	inst, err = g.Build(ctx, test, studentID, isPractice)
	if err != nil {
		return nil, err
	}
	if err := g.Instances.CreateWithQuestions(ctx, inst); err != nil {
		return nil, fmt.Errorf("persist test instance: %w", err)
	}

	monitoring.TestInstancesGenerated.WithLabelValues(monitoring.ModeLabel(isPractice)).Inc()
	logger.Log.Info("Test instance generated",
		zap.String("instance_id", inst.ID),
		zap.String("test_id", test.ID),
		zap.String("student_id", studentID),
		zap.Bool("practice", isPractice),
		zap.Int("questions", len(inst.Questions)),
	)
	return inst, nil
}

// Build 在内存中构造实例及其题目、选项，不写库
func (g *TestGenerator) Build(ctx context.Context, test *model.CourseTest, studentID string, isPractice bool) (*model.TestInstance, error) {
	pool, err := g.Tests.ListQuestions(ctx, test.ID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, util.ErrInsufficientData
	}

	n := len(pool)
	if test.MaxNumberOfQuestions > 0 && test.MaxNumberOfQuestions < n {
		n = test.MaxNumberOfQuestions
	}

	inst := &model.TestInstance{
		UUIDBase:     model.UUIDBase{ID: model.GenerateUUID()},
		StudentID:    studentID,
		CourseTestID: test.ID,
		CourseTest:   test,
		IsPractice:   isPractice,
	}

	// 抽取顺序即展示顺序
	for i, idx := range g.Rand.Sample(len(pool), n) {
		question := &pool[idx]
		qi := model.QuestionInstance{
			UUIDBase:       model.UUIDBase{ID: model.GenerateUUID()},
			TestInstanceID: inst.ID,
			QuestionID:     question.ID,
			Question:       question,
			Order:          i + 1,
		}
		qi.AnswerOptions = g.buildOptions(test, question, qi.ID, isPractice)
		inst.Questions = append(inst.Questions, qi)
	}

	return inst, nil
}

// WrongAnswerPool 按模式过滤：练习排除仅正式答案，正式排除仅练习答案
func WrongAnswerPool(question *model.MultipleChoiceQuestion, isPractice bool) []model.MultipleChoiceAnswer {
	pool := make([]model.MultipleChoiceAnswer, 0, len(question.WrongAnswers))
	for _, a := range question.WrongAnswers {
		if isPractice && a.IsLiveOnly {
			continue
		}
		if !isPractice && a.IsPracticeOnly {
			continue
		}
		pool = append(pool, a)
	}
	return pool
}

// CalculatedAnswerLength 选项数量，poolSize 为错误答案池大小
func CalculatedAnswerLength(test *model.CourseTest, question *model.MultipleChoiceQuestion, poolSize int) int {
	available := poolSize + 1
	if test.IsFixedAnswerLength {
		if test.FixedAnswerLength == 0 {
			return available
		}
		return min(available, test.FixedAnswerLength)
	}
	return min(available, question.MultipleChoiceAnswerLength)
}

func (g *TestGenerator) buildOptions(test *model.CourseTest, question *model.MultipleChoiceQuestion, questionInstanceID string, isPractice bool) []model.AnswerOptionInstance {
	pool := WrongAnswerPool(question, isPractice)
	length := CalculatedAnswerLength(test, question, len(pool))
	if length <= 1 {
		logger.Log.Warn("Not enough answers to build options",
			zap.String("question_id", question.ID),
			zap.Int("wrong_answers", len(pool)),
		)
		return nil
	}

	correct := question.CorrectAnswer
	if correct == nil {
		correct = &model.MultipleChoiceAnswer{UUIDBase: model.UUIDBase{ID: question.CorrectAnswerID}}
	}

	slots := make([]*model.MultipleChoiceAnswer, length)
	correctSlot := g.Rand.Intn(length)
	slots[correctSlot] = correct

	remaining := make([]int, 0, length-1)
	for i := 0; i < length; i++ {
		if i != correctSlot {
			remaining = append(remaining, i)
		}
	}
	wrong := g.Rand.Sample(len(pool), length-1)
	placement := g.Rand.Sample(len(remaining), len(remaining))
	for i, w := range wrong {
		slots[remaining[placement[i]]] = &pool[w]
	}

	// all/none of the above 固定在末尾，两组内部保持随机顺序
	ordered := make([]*model.MultipleChoiceAnswer, 0, length)
	var pinned []*model.MultipleChoiceAnswer
	for _, a := range slots {
		if a.IsPinnedLast() {
			pinned = append(pinned, a)
			continue
		}
		ordered = append(ordered, a)
	}
	ordered = append(ordered, pinned...)

	options := make([]model.AnswerOptionInstance, 0, length)
	for i, a := range ordered {
		options = append(options, model.AnswerOptionInstance{
			UUIDBase:           model.UUIDBase{ID: model.GenerateUUID()},
			QuestionInstanceID: questionInstanceID,
			AnswerID:           a.ID,
			Answer:             a,
			Order:              i,
		})
	}
	return options
}
