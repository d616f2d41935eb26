package model

import "time"

type TestState string

const (
	TestNotStarted TestState = "not_started"
	TestInProgress TestState = "in_progress"
	TestExpired    TestState = "expired"
	TestCompleted  TestState = "completed"
)

func (s TestState) IsTerminal() bool {
	return s == TestExpired || s == TestCompleted
}

// swagger:model TestInstance
type TestInstance struct {
	UUIDBase
	StudentID    string      `gorm:"type:varchar(36);index:idx_instance_student_test;not null" json:"studentId"`
	CourseTestID string      `gorm:"type:varchar(36);index:idx_instance_student_test;not null" json:"courseTestId"`
	CourseTest   *CourseTest `gorm:"foreignKey:CourseTestID" json:"courseTest,omitempty"`
	IsPractice   bool        `gorm:"default:false" json:"isPractice"`

	// 重考生成的后继实例，至多设置一次
	RetakeID          *string    `gorm:"type:varchar(36);index" json:"retakeId,omitempty"`
	RetakeRequestedOn *time.Time `json:"retakeRequestedOn,omitempty"`
	RetakeReviewedBy  *string    `gorm:"type:varchar(36)" json:"retakeReviewedBy,omitempty"`
	RetakeNote        string     `gorm:"type:text" json:"retakeNote"`

	TestStartedOn  *time.Time `json:"testStartedOn,omitempty"`
	TestFinishedOn *time.Time `json:"testFinishedOn,omitempty"`

	Questions []QuestionInstance `gorm:"foreignKey:TestInstanceID" json:"questions,omitempty"`
}

func (TestInstance) TableName() string {
	return "test_instances"
}

// AnsweredCount 已作答题目数
func (t *TestInstance) AnsweredCount() int {
	n := 0
	for i := range t.Questions {
		if t.Questions[i].AnswerChosen != nil {
			n++
		}
	}
	return n
}

// swagger:model QuestionInstance
type QuestionInstance struct {
	UUIDBase
	TestInstanceID string                  `gorm:"type:varchar(36);uniqueIndex:idx_question_instance_order;not null" json:"testInstanceId"`
	QuestionID     string                  `gorm:"type:varchar(36);index;not null" json:"questionId"`
	Question       *MultipleChoiceQuestion `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	Order          int                     `gorm:"uniqueIndex:idx_question_instance_order" json:"order"`

	AnswerOptions []AnswerOptionInstance `gorm:"foreignKey:QuestionInstanceID" json:"answerOptions,omitempty"`
	AnswerChosen  *AnswerChosenInstance  `gorm:"foreignKey:QuestionInstanceID" json:"answerChosen,omitempty"`
}

func (QuestionInstance) TableName() string {
	return "question_instances"
}

// IsCorrect 已作答且答案与题目正确答案一致
func (q *QuestionInstance) IsCorrect() bool {
	if q.AnswerChosen == nil || q.Question == nil {
		return false
	}
	return q.AnswerChosen.AnswerID == q.Question.CorrectAnswerID
}

// swagger:model AnswerOptionInstance
type AnswerOptionInstance struct {
	UUIDBase
	QuestionInstanceID string                `gorm:"type:varchar(36);index;not null" json:"questionInstanceId"`
	AnswerID           string                `gorm:"type:varchar(36);not null" json:"answerId"`
	Answer             *MultipleChoiceAnswer `gorm:"foreignKey:AnswerID" json:"answer,omitempty"`
	Order              int                   `json:"order"`
}

func (AnswerOptionInstance) TableName() string {
	return "answer_option_instances"
}

// AnswerChosenInstance 每题至多一条，创建后不可修改
type AnswerChosenInstance struct {
	UUIDBase
	QuestionInstanceID string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"questionInstanceId"`
	AnswerID           string    `gorm:"type:varchar(36);not null" json:"answerId"`
	AnswerOptionID     string    `gorm:"type:varchar(36);not null" json:"answerOptionId"`
	AnswerChosenOn     time.Time `json:"answerChosenOn"`
}

func (AnswerChosenInstance) TableName() string {
	return "answer_chosen_instances"
}
