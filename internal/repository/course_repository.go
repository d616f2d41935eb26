package repository

import (
	"context"
	"course_study_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// orderByColumn order 为保留字，交给方言加引号
func orderByColumn(name string) clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Name: name}}
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) ListPublished(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.WithContext(ctx).
		Where("is_published = ?", true).
		Order("name ASC").
		Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) ListTests(ctx context.Context, courseID string) ([]model.CourseTest, error) {
	var tests []model.CourseTest
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order(orderByColumn("order")).
		Find(&tests).Error
	return tests, err
}

func (r *CourseRepository) FindPage(ctx context.Context, courseID string, number int) (*model.CoursePage, error) {
	var page model.CoursePage
	err := r.DB.WithContext(ctx).
		Where("course_id = ? AND page_number = ?", courseID, number).
		First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *CourseRepository) CountPages(ctx context.Context, courseID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.CoursePage{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	return count, err
}

// CreateSignature 重复签名忽略
func (r *CourseRepository) CreateSignature(ctx context.Context, sig *model.CoursePageSignature) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sig).Error
}

func (r *CourseRepository) CountSignatures(ctx context.Context, studentID, courseID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.CoursePageSignature{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	return count, err
}

// Import 课程、页面、测试、题目、答案在同一事务中写入
func (r *CourseRepository) Import(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pages := course.Pages
		tests := course.Tests
		if err := tx.Omit(clause.Associations).Create(course).Error; err != nil {
			return err
		}

		for i := range pages {
			pages[i].CourseID = course.ID
		}
		if len(pages) > 0 {
			if err := tx.Create(&pages).Error; err != nil {
				return err
			}
		}

		for i := range tests {
			test := &tests[i]
			test.CourseID = course.ID
			questions := test.Questions
			if err := tx.Omit(clause.Associations).Create(test).Error; err != nil {
				return err
			}

			for j := range questions {
				q := &questions[j]
				q.CourseTestID = test.ID
				if q.CorrectAnswer != nil {
					if err := tx.Create(q.CorrectAnswer).Error; err != nil {
						return err
					}
					q.CorrectAnswerID = q.CorrectAnswer.ID
				}
				if len(q.WrongAnswers) > 0 {
					if err := tx.Create(&q.WrongAnswers).Error; err != nil {
						return err
					}
				}
				// 答案已写入，这里只插入问题与关联表
				if err := tx.Omit("CorrectAnswer", "WrongAnswers.*").Create(q).Error; err != nil {
					return err
				}
			}
			test.Questions = questions
		}

		course.Pages = pages
		course.Tests = tests
		return nil
	})
}
