package model

import "time"

// swagger:model Course
type Course struct {
	UUIDBase
	Name        string `gorm:"size:200;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	EnforceMinimumTime     bool  `gorm:"default:false" json:"enforceMinimumTime"`
	MinimumTimeSeconds     int64 `gorm:"default:7200" json:"minimumTimeSeconds"`
	MaximumIdleTimeSeconds int64 `gorm:"default:900" json:"maximumIdleTimeSeconds"`
	IsPublished            bool  `gorm:"default:false;index" json:"isPublished"`
	RequirePageSignature   bool  `gorm:"default:false" json:"requirePageSignature"`
	// 练习测试的答题时间是否计入课程学习时长
	CountPracticeTime bool `gorm:"default:false" json:"countPracticeTime"`

	Pages []CoursePage `gorm:"foreignKey:CourseID" json:"pages,omitempty"`
	Tests []CourseTest `gorm:"foreignKey:CourseID" json:"tests,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model CoursePage
type CoursePage struct {
	UUIDBase
	CourseID     string `gorm:"type:varchar(36);uniqueIndex:idx_course_page_number;not null" json:"courseId"`
	PageNumber   int    `gorm:"uniqueIndex:idx_course_page_number;default:1" json:"pageNumber"`
	PageTitle    string `gorm:"size:200" json:"pageTitle"`
	PageContents string `gorm:"type:text" json:"pageContents"` // markdown
}

func (CoursePage) TableName() string {
	return "course_pages"
}

// CoursePageSignature 学生对页面内容的签名确认
type CoursePageSignature struct {
	UUIDBase
	StudentID    string    `gorm:"type:varchar(36);uniqueIndex:idx_page_signature;not null" json:"studentId"`
	CoursePageID string    `gorm:"type:varchar(36);uniqueIndex:idx_page_signature;not null" json:"coursePageId"`
	CourseID     string    `gorm:"type:varchar(36);index;not null" json:"courseId"`
	SignedName   string    `gorm:"size:300" json:"signedName"`
	SignedOn     time.Time `json:"signedOn"`
}

func (CoursePageSignature) TableName() string {
	return "course_page_signatures"
}
