package model

import "time"

// swagger:model CourseViewInstance
type CourseViewInstance struct {
	UUIDBase
	StudentID         string     `gorm:"type:varchar(36);uniqueIndex:idx_course_view_student_course;not null" json:"studentId"`
	CourseID          string     `gorm:"type:varchar(36);uniqueIndex:idx_course_view_student_course;not null" json:"courseId"`
	Course            *Course    `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	CourseViewStart   time.Time  `json:"courseViewStart"`
	CourseViewStop    *time.Time `json:"courseViewStop,omitempty"`
	TotalSecondsSpent int64      `gorm:"default:0" json:"totalSecondsSpent"`
}

func (CourseViewInstance) TableName() string {
	return "course_view_instances"
}

// PageViewInstance 页面/测试/题目的单次浏览，下一次请求时关闭
type PageViewInstance struct {
	UUIDBase
	CourseViewInstanceID string              `gorm:"type:varchar(36);index;not null" json:"courseViewInstanceId"`
	CourseViewInstance   *CourseViewInstance `gorm:"foreignKey:CourseViewInstanceID" json:"-"`

	CoursePageID   *string `gorm:"type:varchar(36);index" json:"coursePageId,omitempty"`
	CourseTestID   *string `gorm:"type:varchar(36);index" json:"courseTestId,omitempty"`
	QuestionID     *string `gorm:"type:varchar(36);index" json:"questionId,omitempty"`
	TestInstanceID *string `gorm:"type:varchar(36)" json:"testInstanceId,omitempty"`
	IsPractice     bool    `gorm:"default:false" json:"isPractice"`
	URL            string  `gorm:"size:500" json:"url"`

	PageViewStart     time.Time  `json:"pageViewStart"`
	PageViewStop      *time.Time `json:"pageViewStop,omitempty"`
	TotalSecondsSpent int64      `gorm:"default:0" json:"totalSecondsSpent"`
}

func (PageViewInstance) TableName() string {
	return "page_view_instances"
}
