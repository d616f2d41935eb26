package service

import (
	"context"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"course_study_backend/pkg/email"
	"course_study_backend/pkg/logger"
	"course_study_backend/pkg/monitoring"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RetakeService struct {
	Instances TestInstanceStore
	Tests     TestDefinitionStore
	Students  StudentStore
	Users     UserStore
	Generator *TestGenerator
	Notifier  Notifier
	Clock     util.Clock
	PublicURL string
}

func NewRetakeService(instances TestInstanceStore, tests TestDefinitionStore, students StudentStore, users UserStore,
	generator *TestGenerator, notifier Notifier, clock util.Clock, publicURL string) *RetakeService {
	return &RetakeService{
		Instances: instances,
		Tests:     tests,
		Students:  students,
		Users:     users,
		Generator: generator,
		Notifier:  notifier,
		Clock:     clock,
		PublicURL: publicURL,
	}
}

type RetakeResult struct {
	Original  *model.TestInstance `json:"original"`
	Successor *model.TestInstance `json:"successor,omitempty"`
	Policy    model.RetakePolicy  `json:"policy"`
	Pending   bool                `json:"pending"`
}

func (s *RetakeService) loadInstance(ctx context.Context, id string) (*model.TestInstance, error) {
	inst, err := s.Instances.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInstanceNotFound
		}
		return nil, err
	}
	if inst.CourseTest == nil {
		test, err := s.Tests.FindTestByID(ctx, inst.CourseTestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrTestNotFound
			}
			return nil, err
		}
		inst.CourseTest = test
	}
	return inst, nil
}

// RequestRetake 仅限已结束、未被替换、未申请过的正式测试
func (s *RetakeService) RequestRetake(ctx context.Context, studentID, instanceID string) (*RetakeResult, error) {
	inst, err := s.loadInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.StudentID != studentID {
		return nil, util.ErrInstanceNotFound
	}
	if inst.IsPractice {
		return nil, util.ErrRetakePractice
	}

	now := s.Clock.Now()
	state, err := settle(ctx, s.Instances, inst, now)
	if err != nil {
		return nil, err
	}
	if !state.IsTerminal() {
		return nil, util.ErrRetakeNotFinished
	}
	if inst.RetakeID != nil {
		return nil, util.ErrRetakeAlreadyLinked
	}
	if inst.RetakeRequestedOn != nil {
		return nil, util.ErrRetakeAlreadyRequested
	}

	test := inst.CourseTest
	result := &RetakeResult{Original: inst, Policy: test.RetakePolicy}

	if test.RetakePolicy == model.RetakeAuto {
		successor, err := s.link(ctx, inst, nil, "")
		if err != nil {
			return nil, err
		}
		monitoring.Retakes.WithLabelValues("auto").Inc()
		result.Successor = successor
		return result, nil
	}

	updated, err := s.Instances.MarkRetakeRequested(ctx, inst.ID, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, util.ErrRetakeAlreadyRequested
	}
	inst.RetakeRequestedOn = &now
	result.Pending = true
	monitoring.Retakes.WithLabelValues("requested").Inc()
	logger.Log.Info("Retake requested",
		zap.String("instance_id", inst.ID),
		zap.String("student_id", studentID),
		zap.String("policy", string(test.RetakePolicy)),
	)

	if test.RetakePolicy == model.RetakeEmail {
		s.notifyStaff(ctx, inst)
	}
	return result, nil
}

func (s *RetakeService) ListPendingRetakes(ctx context.Context) ([]model.TestInstance, error) {
	return s.Instances.ListPendingRetakes(ctx)
}

// ApproveRetake 生成新实例并关联，通知失败不影响结果
func (s *RetakeService) ApproveRetake(ctx context.Context, staffID, instanceID, note string) (*model.TestInstance, error) {
	inst, err := s.loadInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.RetakeID != nil {
		return nil, util.ErrRetakeAlreadyLinked
	}
	if inst.RetakeRequestedOn == nil {
		return nil, util.ErrRetakeNotRequested
	}

	successor, err := s.link(ctx, inst, &staffID, note)
	if err != nil {
		return nil, err
	}
	monitoring.Retakes.WithLabelValues("approved").Inc()
	logger.Log.Info("Retake approved",
		zap.String("instance_id", inst.ID),
		zap.String("retake_id", successor.ID),
		zap.String("staff_id", staffID),
	)

	s.notifyStudent(ctx, inst, email.KindRetakeApproved, note)
	return successor, nil
}

func (s *RetakeService) DenyRetake(ctx context.Context, staffID, instanceID, note string) error {
	inst, err := s.loadInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	if inst.RetakeID != nil {
		return util.ErrRetakeAlreadyLinked
	}
	updated, err := s.Instances.ClearRetakeRequest(ctx, inst.ID, staffID, note)
	if err != nil {
		return err
	}
	if !updated {
		return util.ErrRetakeNotRequested
	}
	monitoring.Retakes.WithLabelValues("denied").Inc()
	logger.Log.Info("Retake denied",
		zap.String("instance_id", inst.ID),
		zap.String("staff_id", staffID),
	)

	s.notifyStudent(ctx, inst, email.KindRetakeDenied, note)
	return nil
}

// CurrentAttempt 沿 retake 链找到最新的正式测试实例
func (s *RetakeService) CurrentAttempt(ctx context.Context, studentID, testID string) (*model.TestInstance, error) {
	list, err := s.Instances.ListByStudentAndTest(ctx, studentID, testID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*model.TestInstance, len(list))
	successors := make(map[string]bool, len(list))
	for i := range list {
		if list[i].IsPractice {
			continue
		}
		byID[list[i].ID] = &list[i]
		if list[i].RetakeID != nil {
			successors[*list[i].RetakeID] = true
		}
	}

	var head *model.TestInstance
	for i := range list {
		if _, ok := byID[list[i].ID]; ok && !successors[list[i].ID] {
			head = &list[i]
			break
		}
	}
	if head == nil {
		return nil, util.ErrInstanceNotFound
	}

	current := head
	for steps := 0; current.RetakeID != nil && steps < len(list); steps++ {
		next, ok := byID[*current.RetakeID]
		if !ok {
			break
		}
		current = next
	}

	return s.Instances.FindByID(ctx, current.ID)
}

func (s *RetakeService) link(ctx context.Context, inst *model.TestInstance, reviewerID *string, note string) (*model.TestInstance, error) {
	successor, err := s.Generator.Build(ctx, inst.CourseTest, inst.StudentID, false)
	if err != nil {
		return nil, err
	}
	if err := s.Instances.LinkRetake(ctx, inst.ID, successor, reviewerID, note); err != nil {
		if errors.Is(err, util.ErrRetakeAlreadyLinked) {
			return nil, err
		}
		return nil, fmt.Errorf("link retake: %w", err)
	}
	inst.RetakeID = &successor.ID
	inst.RetakeRequestedOn = nil
	monitoring.TestInstancesGenerated.WithLabelValues(monitoring.ModeLabel(false)).Inc()
	return successor, nil
}

func (s *RetakeService) testLink(testID string) string {
	if s.PublicURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/tests/%s", s.PublicURL, testID)
}

func (s *RetakeService) notifyStaff(ctx context.Context, inst *model.TestInstance) {
	recipients, err := s.Users.StaffEmails(ctx)
	if err != nil {
		logger.Log.Warn("Failed to load staff emails", zap.Error(err))
		return
	}
	name := inst.StudentID
	if student, err := s.Students.FindByID(ctx, inst.StudentID); err == nil {
		name = student.FullLegalName()
	}
	notify(ctx, s.Notifier, recipients, email.KindRetakeRequested, map[string]string{
		"StudentName": name,
		"TestTitle":   inst.CourseTest.Title,
		"Link":        s.PublicURL,
	})
}

func (s *RetakeService) notifyStudent(ctx context.Context, inst *model.TestInstance, kind email.Kind, note string) {
	addr, name := studentContact(ctx, s.Students, s.Users, inst.StudentID)
	if addr == "" {
		logger.Log.Warn("Student has no email address", zap.String("student_id", inst.StudentID))
		return
	}
	notify(ctx, s.Notifier, []string{addr}, kind, map[string]string{
		"StudentName": name,
		"TestTitle":   inst.CourseTest.Title,
		"Note":        note,
		"Link":        s.testLink(inst.CourseTestID),
	})
}

// studentContact 优先使用学生资料中的邮箱，其次为账号邮箱
func studentContact(ctx context.Context, students StudentStore, users UserStore, studentID string) (string, string) {
	student, err := students.FindByID(ctx, studentID)
	if err != nil {
		return "", ""
	}
	if student.EmailAddress != "" {
		return student.EmailAddress, student.FullLegalName()
	}
	user, err := users.FindByID(ctx, student.UserID)
	if err != nil {
		return "", student.FullLegalName()
	}
	return user.Email, student.FullLegalName()
}
