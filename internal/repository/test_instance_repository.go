package repository

import (
	"context"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TestInstanceRepository struct {
	DB *gorm.DB
}

func NewTestInstanceRepository(db *gorm.DB) *TestInstanceRepository {
	return &TestInstanceRepository{DB: db}
}

// withGraph 预加载题目、选项、作答与题目正确答案，均按 order 排序
func withGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("CourseTest").
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order(orderByColumn("order")) }).
		Preload("Questions.Question").
		Preload("Questions.AnswerOptions", func(db *gorm.DB) *gorm.DB { return db.Order(orderByColumn("order")) }).
		Preload("Questions.AnswerOptions.Answer").
		Preload("Questions.AnswerChosen")
}

func (r *TestInstanceRepository) FindByID(ctx context.Context, id string) (*model.TestInstance, error) {
	var inst model.TestInstance
	if err := withGraph(r.DB.WithContext(ctx)).Where("id = ?", id).First(&inst).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

// FindLatestUnfinishedPractice 最近一次未结束的练习
func (r *TestInstanceRepository) FindLatestUnfinishedPractice(ctx context.Context, studentID, testID string) (*model.TestInstance, error) {
	var inst model.TestInstance
	err := withGraph(r.DB.WithContext(ctx)).
		Where("student_id = ? AND course_test_id = ? AND is_practice = ? AND test_finished_on IS NULL", studentID, testID, true).
		Order("created_at DESC").
		First(&inst).Error
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// FindCurrentLive 尚未被重考替换的正式测试实例
func (r *TestInstanceRepository) FindCurrentLive(ctx context.Context, studentID, testID string) (*model.TestInstance, error) {
	var inst model.TestInstance
	err := withGraph(r.DB.WithContext(ctx)).
		Where("student_id = ? AND course_test_id = ? AND is_practice = ? AND retake_id IS NULL", studentID, testID, false).
		Order("created_at DESC").
		First(&inst).Error
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *TestInstanceRepository) CountPractice(ctx context.Context, studentID, testID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.TestInstance{}).
		Where("student_id = ? AND course_test_id = ? AND is_practice = ?", studentID, testID, true).
		Count(&count).Error
	return count, err
}

func (r *TestInstanceRepository) ListByStudentAndTest(ctx context.Context, studentID, testID string) ([]model.TestInstance, error) {
	var list []model.TestInstance
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_test_id = ?", studentID, testID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// createGraph 按层级写入实例、题目实例、选项实例
func createGraph(tx *gorm.DB, inst *model.TestInstance) error {
	questions := inst.Questions
	if err := tx.Omit(clause.Associations).Create(inst).Error; err != nil {
		return err
	}
	for i := range questions {
		q := &questions[i]
		q.TestInstanceID = inst.ID
		options := q.AnswerOptions
		if err := tx.Omit(clause.Associations).Create(q).Error; err != nil {
			return err
		}
		for j := range options {
			options[j].QuestionInstanceID = q.ID
		}
		if len(options) > 0 {
			if err := tx.Omit(clause.Associations).Create(&options).Error; err != nil {
				return err
			}
		}
		q.AnswerOptions = options
	}
	inst.Questions = questions
	return nil
}

func (r *TestInstanceRepository) CreateWithQuestions(ctx context.Context, inst *model.TestInstance) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createGraph(tx, inst)
	})
}

// MarkStarted 只在首次访问时写入开始时间
func (r *TestInstanceRepository) MarkStarted(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.TestInstance{}).
		Where("id = ? AND test_started_on IS NULL", id).
		Update("test_started_on", at)
	return res.RowsAffected > 0, res.Error
}

// MarkFinished 结束时间只写一次
func (r *TestInstanceRepository) MarkFinished(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.TestInstance{}).
		Where("id = ? AND test_finished_on IS NULL", id).
		Update("test_finished_on", at)
	return res.RowsAffected > 0, res.Error
}

func (r *TestInstanceRepository) FindQuestionInstance(ctx context.Context, id string) (*model.QuestionInstance, error) {
	var q model.QuestionInstance
	err := r.DB.WithContext(ctx).
		Preload("Question").
		Preload("AnswerOptions", func(db *gorm.DB) *gorm.DB { return db.Order(orderByColumn("order")) }).
		Preload("AnswerOptions.Answer").
		Preload("AnswerChosen").
		Where("id = ?", id).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateAnswerChosen 唯一索引保证每题只作答一次
func (r *TestInstanceRepository) CreateAnswerChosen(ctx context.Context, a *model.AnswerChosenInstance) error {
	err := r.DB.WithContext(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrAlreadyAnswered
	}
	return err
}

// MarkRetakeRequested 已申请或已有后继实例时不更新
func (r *TestInstanceRepository) MarkRetakeRequested(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.TestInstance{}).
		Where("id = ? AND retake_id IS NULL AND retake_requested_on IS NULL", id).
		Update("retake_requested_on", at)
	return res.RowsAffected > 0, res.Error
}

func (r *TestInstanceRepository) ListPendingRetakes(ctx context.Context) ([]model.TestInstance, error) {
	var list []model.TestInstance
	err := r.DB.WithContext(ctx).
		Preload("CourseTest").
		Where("retake_requested_on IS NOT NULL AND retake_id IS NULL").
		Order("retake_requested_on ASC").
		Find(&list).Error
	return list, err
}

// LinkRetake 写入后继实例并在原实例 retake_id 为空时关联，否则整体回滚
func (r *TestInstanceRepository) LinkRetake(ctx context.Context, originalID string, successor *model.TestInstance, reviewerID *string, note string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createGraph(tx, successor); err != nil {
			return err
		}
		res := tx.Model(&model.TestInstance{}).
			Where("id = ? AND retake_id IS NULL", originalID).
			Updates(map[string]interface{}{
				"retake_id":           successor.ID,
				"retake_requested_on": nil,
				"retake_reviewed_by":  reviewerID,
				"retake_note":         note,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrRetakeAlreadyLinked
		}
		return nil
	})
}

// ClearRetakeRequest 拒绝重考申请
func (r *TestInstanceRepository) ClearRetakeRequest(ctx context.Context, id, reviewerID, note string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.TestInstance{}).
		Where("id = ? AND retake_id IS NULL AND retake_requested_on IS NOT NULL", id).
		Updates(map[string]interface{}{
			"retake_requested_on": nil,
			"retake_reviewed_by":  reviewerID,
			"retake_note":         note,
		})
	return res.RowsAffected > 0, res.Error
}
