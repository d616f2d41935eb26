package service

import (
	"context"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"course_study_backend/pkg/logger"
	"course_study_backend/pkg/monitoring"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EvaluateState 根据时间戳与作答情况计算测试实例状态，不修改实例
func EvaluateState(inst *model.TestInstance, now time.Time) model.TestState {
	allAnswered := len(inst.Questions) > 0 && inst.AnsweredCount() == len(inst.Questions)

	if inst.TestFinishedOn != nil {
		if allAnswered {
			return model.TestCompleted
		}
		return model.TestExpired
	}
	if allAnswered {
		return model.TestCompleted
	}
	if inst.TestStartedOn == nil {
		return model.TestNotStarted
	}
	if inst.CourseTest != nil && inst.CourseTest.IsTimed {
		deadline := inst.TestStartedOn.Add(inst.CourseTest.MaximumDuration())
		if now.After(deadline) {
			return model.TestExpired
		}
	}
	return model.TestInProgress
}

// Deadline 计时测试的截止时间，未开始或不计时返回 nil
func Deadline(inst *model.TestInstance) *time.Time {
	if inst.TestStartedOn == nil || inst.CourseTest == nil || !inst.CourseTest.IsTimed {
		return nil
	}
	d := inst.TestStartedOn.Add(inst.CourseTest.MaximumDuration())
	return &d
}

type InstanceStatus struct {
	Instance *model.TestInstance `json:"instance"`
	State    model.TestState     `json:"state"`
	Answered int                 `json:"answered"`
	Total    int                 `json:"total"`
	Deadline *time.Time          `json:"deadline,omitempty"`
}

type AnswerResult struct {
	Question *model.QuestionInstance     `json:"question"`
	Chosen   *model.AnswerChosenInstance `json:"chosen"`
	Correct  bool                        `json:"correct"`
	State    model.TestState             `json:"state"`
}

type TestInstanceService struct {
	Instances TestInstanceStore
	Clock     util.Clock
}

func NewTestInstanceService(instances TestInstanceStore, clock util.Clock) *TestInstanceService {
	return &TestInstanceService{
		Instances: instances,
		Clock:     clock,
	}
}

// settle 终态首次被检测到时写入结束时间，重复调用无副作用
func settle(ctx context.Context, store TestInstanceStore, inst *model.TestInstance, now time.Time) (model.TestState, error) {
	state := EvaluateState(inst, now)
	if state.IsTerminal() && inst.TestFinishedOn == nil {
		updated, err := store.MarkFinished(ctx, inst.ID, now)
		if err != nil {
			return state, err
		}
		if updated {
			logger.Log.Info("Test instance finished",
				zap.String("instance_id", inst.ID),
				zap.String("state", string(state)),
			)
		}
		inst.TestFinishedOn = &now
	}
	return state, nil
}

// Load 加载学生自己的实例，他人实例视为不存在
func (s *TestInstanceService) Load(ctx context.Context, studentID, instanceID string) (*model.TestInstance, error) {
	inst, err := s.Instances.FindByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInstanceNotFound
		}
		return nil, err
	}
	if inst.StudentID != studentID {
		return nil, util.ErrInstanceNotFound
	}
	return inst, nil
}

func (s *TestInstanceService) Status(ctx context.Context, studentID, instanceID string) (*InstanceStatus, error) {
	inst, err := s.Load(ctx, studentID, instanceID)
	if err != nil {
		return nil, err
	}
	return s.StatusOf(ctx, inst)
}

// StatusOf 对已加载的实例求值并持久化终态
func (s *TestInstanceService) StatusOf(ctx context.Context, inst *model.TestInstance) (*InstanceStatus, error) {
	state, err := settle(ctx, s.Instances, inst, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	return &InstanceStatus{
		Instance: inst,
		State:    state,
		Answered: inst.AnsweredCount(),
		Total:    len(inst.Questions),
		Deadline: Deadline(inst),
	}, nil
}

// start 首次访问题目时开始计时
func (s *TestInstanceService) start(ctx context.Context, inst *model.TestInstance, now time.Time) error {
	if inst.TestStartedOn != nil {
		return nil
	}
	if _, err := s.Instances.MarkStarted(ctx, inst.ID, now); err != nil {
		return err
	}
	inst.TestStartedOn = &now
	return nil
}

// OpenQuestion 按序号取题目，首次访问时开始测试
func (s *TestInstanceService) OpenQuestion(ctx context.Context, studentID, instanceID string, order int) (*InstanceStatus, *model.QuestionInstance, error) {
	inst, err := s.Load(ctx, studentID, instanceID)
	if err != nil {
		return nil, nil, err
	}

	var question *model.QuestionInstance
	for i := range inst.Questions {
		if inst.Questions[i].Order == order {
			question = &inst.Questions[i]
			break
		}
	}
	if question == nil {
		return nil, nil, util.ErrNotFound
	}

	now := s.Clock.Now()
	if inst.TestFinishedOn == nil {
		if err := s.start(ctx, inst, now); err != nil {
			return nil, nil, err
		}
	}

	status, err := s.StatusOf(ctx, inst)
	if err != nil {
		return nil, nil, err
	}
	return status, question, nil
}

// ChooseAnswer 提交答案。过期、重复作答、非法选项分别返回对应错误且不写库
func (s *TestInstanceService) ChooseAnswer(ctx context.Context, studentID, questionInstanceID, answerOptionID string) (*AnswerResult, error) {
	qi, err := s.Instances.FindQuestionInstance(ctx, questionInstanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	inst, err := s.Load(ctx, studentID, qi.TestInstanceID)
	if err != nil {
		if errors.Is(err, util.ErrInstanceNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}

	now := s.Clock.Now()
	if inst.TestFinishedOn == nil {
		if err := s.start(ctx, inst, now); err != nil {
			return nil, err
		}
	}

	state, err := settle(ctx, s.Instances, inst, now)
	if err != nil {
		return nil, err
	}
	if state == model.TestExpired {
		monitoring.AnswersSubmitted.WithLabelValues("expired").Inc()
		return nil, util.ErrTestExpired
	}
	if qi.AnswerChosen != nil {
		monitoring.AnswersSubmitted.WithLabelValues("duplicate").Inc()
		return nil, util.ErrAlreadyAnswered
	}

	var option *model.AnswerOptionInstance
	for i := range qi.AnswerOptions {
		if qi.AnswerOptions[i].ID == answerOptionID {
			option = &qi.AnswerOptions[i]
			break
		}
	}
	if option == nil {
		monitoring.AnswersSubmitted.WithLabelValues("invalid").Inc()
		return nil, util.ErrInvalidAnswer
	}

	chosen := &model.AnswerChosenInstance{
		QuestionInstanceID: qi.ID,
		AnswerID:           option.AnswerID,
		AnswerOptionID:     option.ID,
		AnswerChosenOn:     now,
	}
	if err := s.Instances.CreateAnswerChosen(ctx, chosen); err != nil {
		if errors.Is(err, util.ErrAlreadyAnswered) {
			monitoring.AnswersSubmitted.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}
	qi.AnswerChosen = chosen
	monitoring.AnswersSubmitted.WithLabelValues("accepted").Inc()

	for i := range inst.Questions {
		if inst.Questions[i].ID == qi.ID {
			inst.Questions[i].AnswerChosen = chosen
		}
	}
	state, err = settle(ctx, s.Instances, inst, now)
	if err != nil {
		return nil, err
	}

	return &AnswerResult{
		Question: qi,
		Chosen:   chosen,
		Correct:  qi.IsCorrect(),
		State:    state,
	}, nil
}

// Score 从已持久化的作答计算得分
func (s *TestInstanceService) Score(ctx context.Context, studentID, instanceID string) (*Score, error) {
	inst, err := s.Load(ctx, studentID, instanceID)
	if err != nil {
		return nil, err
	}
	passing := 0.0
	if inst.CourseTest != nil {
		passing = inst.CourseTest.PassingPercentage
	}
	return ComputeScore(inst, passing)
}
