package model

import "time"

type RetakePolicy string

const (
	// RetakeManual 学生申请后进入员工审核队列
	RetakeManual RetakePolicy = "manual"
	// RetakeAuto 立即生成新的测试实例
	RetakeAuto RetakePolicy = "auto"
	// RetakeEmail 申请后邮件通知员工审核
	RetakeEmail RetakePolicy = "email"
)

func (p RetakePolicy) Valid() bool {
	switch p {
	case RetakeManual, RetakeAuto, RetakeEmail:
		return true
	}
	return false
}

// swagger:model CourseTest
type CourseTest struct {
	UUIDBase
	CourseID string `gorm:"type:varchar(36);index;not null" json:"courseId"`
	Title    string `gorm:"size:200" json:"title"`
	Order    int    `gorm:"default:1" json:"order"`

	IsTimed            bool  `gorm:"default:false" json:"isTimed"`
	MaximumTimeSeconds int64 `gorm:"default:3600" json:"maximumTimeSeconds"`

	IsFixedAnswerLength bool `gorm:"default:false" json:"isFixedAnswerLength"`
	// 0 表示使用全部候选答案，导入时默认 4
	FixedAnswerLength int `json:"fixedAnswerLength"`
	// 0 表示使用全部题目
	MaxNumberOfQuestions int `gorm:"default:0" json:"maxNumberOfQuestions"`

	AllowPracticeTests bool `json:"allowPracticeTests"`
	// 0 表示不限次数
	MaximumPracticeTests int  `gorm:"default:0" json:"maximumPracticeTests"`
	IsPracticeOnly       bool `gorm:"default:false" json:"isPracticeOnly"`

	PassingPercentage float64      `gorm:"default:60" json:"passingPercentage"`
	RetakePolicy      RetakePolicy `gorm:"size:10;default:'manual'" json:"retakePolicy"`

	Questions []MultipleChoiceQuestion `gorm:"foreignKey:CourseTestID" json:"questions,omitempty"`
}

func (CourseTest) TableName() string {
	return "course_tests"
}

// MaximumDuration 计时测试的截止时长
func (t *CourseTest) MaximumDuration() time.Duration {
	return time.Duration(t.MaximumTimeSeconds) * time.Second
}

// swagger:model MultipleChoiceAnswer
type MultipleChoiceAnswer struct {
	UUIDBase
	Value string `gorm:"size:300" json:"value"`
	// 生成随机顺序时固定排在末尾
	IsAllOfTheAbove  bool `gorm:"default:false" json:"isAllOfTheAbove"`
	IsNoneOfTheAbove bool `gorm:"default:false" json:"isNoneOfTheAbove"`
	IsLiveOnly       bool `gorm:"default:false" json:"isLiveOnly"`
	IsPracticeOnly   bool `gorm:"default:false" json:"isPracticeOnly"`
}

func (MultipleChoiceAnswer) TableName() string {
	return "multiple_choice_answers"
}

// IsPinnedLast all/none of the above 类答案
func (a *MultipleChoiceAnswer) IsPinnedLast() bool {
	return a.IsAllOfTheAbove || a.IsNoneOfTheAbove
}

// swagger:model MultipleChoiceQuestion
type MultipleChoiceQuestion struct {
	UUIDBase
	CourseTestID       string `gorm:"type:varchar(36);index;not null" json:"courseTestId"`
	Order              int    `gorm:"default:0" json:"order"`
	QuestionContents   string `gorm:"type:text" json:"questionContents"`
	PostAnswerComments string `gorm:"type:text" json:"postAnswerComments"`

	CorrectAnswerID string                 `gorm:"type:varchar(36);not null" json:"correctAnswerId"`
	CorrectAnswer   *MultipleChoiceAnswer  `gorm:"foreignKey:CorrectAnswerID" json:"correctAnswer,omitempty"`
	WrongAnswers    []MultipleChoiceAnswer `gorm:"many2many:question_wrong_answers;joinForeignKey:QuestionID;joinReferences:AnswerID" json:"wrongAnswers,omitempty"`

	MultipleChoiceAnswerLength int `json:"multipleChoiceAnswerLength"`
}

func (MultipleChoiceQuestion) TableName() string {
	return "multiple_choice_questions"
}
