package repository

import (
	"context"
	"course_study_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ViewRepository struct {
	DB *gorm.DB
}

func NewViewRepository(db *gorm.DB) *ViewRepository {
	return &ViewRepository{DB: db}
}

func (r *ViewRepository) FindCourseView(ctx context.Context, studentID, courseID string) (*model.CourseViewInstance, error) {
	var v model.CourseViewInstance
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateCourseView 并发创建时返回 gorm.ErrDuplicatedKey
func (r *ViewRepository) CreateCourseView(ctx context.Context, v *model.CourseViewInstance) error {
	return r.DB.WithContext(ctx).Omit("Course").Create(v).Error
}

func (r *ViewRepository) CreatePageView(ctx context.Context, pv *model.PageViewInstance) error {
	return r.DB.WithContext(ctx).Omit("CourseViewInstance").Create(pv).Error
}

// FindPageView 带课程浏览与课程（需要空闲上限）
func (r *ViewRepository) FindPageView(ctx context.Context, id string) (*model.PageViewInstance, error) {
	var pv model.PageViewInstance
	err := r.DB.WithContext(ctx).
		Preload("CourseViewInstance").
		Preload("CourseViewInstance.Course").
		Where("id = ?", id).
		First(&pv).Error
	if err != nil {
		return nil, err
	}
	return &pv, nil
}

// ClosePageView 已关闭的浏览不再更新
func (r *ViewRepository) ClosePageView(ctx context.Context, id string, stop time.Time, seconds int64) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.PageViewInstance{}).
		Where("id = ? AND page_view_stop IS NULL", id).
		Updates(map[string]interface{}{
			"page_view_stop":      stop,
			"total_seconds_spent": seconds,
		})
	return res.RowsAffected > 0, res.Error
}

// SumSeconds 全量重算，includePractice 为 false 时排除练习测试的浏览
func (r *ViewRepository) SumSeconds(ctx context.Context, courseViewID string, includePractice bool) (int64, error) {
	var total int64
	q := r.DB.WithContext(ctx).Model(&model.PageViewInstance{}).
		Where("course_view_instance_id = ?", courseViewID)
	if !includePractice {
		q = q.Where("is_practice = ?", false)
	}
	err := q.Select("COALESCE(SUM(total_seconds_spent), 0)").Scan(&total).Error
	return total, err
}

func (r *ViewRepository) UpdateCourseViewTotal(ctx context.Context, courseViewID string, total int64, stop time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.CourseViewInstance{}).
		Where("id = ?", courseViewID).
		Updates(map[string]interface{}{
			"total_seconds_spent": total,
			"course_view_stop":    stop,
		}).Error
}
