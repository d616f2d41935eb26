package repository

import (
	"context"
	"course_study_backend/internal/model"

	"gorm.io/gorm"
)

type TestDefinitionRepository struct {
	DB *gorm.DB
}

func NewTestDefinitionRepository(db *gorm.DB) *TestDefinitionRepository {
	return &TestDefinitionRepository{DB: db}
}

func (r *TestDefinitionRepository) FindTestByID(ctx context.Context, id string) (*model.CourseTest, error) {
	var test model.CourseTest
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&test).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

// ListQuestions 题目按 order 排序，带正确答案与错误答案池
func (r *TestDefinitionRepository) ListQuestions(ctx context.Context, testID string) ([]model.MultipleChoiceQuestion, error) {
	var questions []model.MultipleChoiceQuestion
	err := r.DB.WithContext(ctx).
		Preload("CorrectAnswer").
		Preload("WrongAnswers").
		Where("course_test_id = ?", testID).
		Order(orderByColumn("order")).
		Order("created_at ASC").
		Find(&questions).Error
	return questions, err
}
