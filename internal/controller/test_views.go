package controller

import (
	"course_study_backend/internal/model"
	"course_study_backend/internal/service"
	"time"
)

// 返回给学生的视图，作答前不暴露正确答案

type OptionView struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
	Value string `json:"value"`
}

type QuestionView struct {
	ID             string       `json:"id"`
	Order          int          `json:"order"`
	Contents       string       `json:"contents"`
	Options        []OptionView `json:"options"`
	ChosenOptionID string       `json:"chosenOptionId,omitempty"`
	Correct        *bool        `json:"correct,omitempty"`
	Comments       string       `json:"postAnswerComments,omitempty"`
}

type InstanceView struct {
	ID                string          `json:"id"`
	CourseTestID      string          `json:"courseTestId"`
	IsPractice        bool            `json:"isPractice"`
	State             model.TestState `json:"state"`
	Answered          int             `json:"answered"`
	Total             int             `json:"total"`
	Deadline          *time.Time      `json:"deadline,omitempty"`
	StartedOn         *time.Time      `json:"startedOn,omitempty"`
	FinishedOn        *time.Time      `json:"finishedOn,omitempty"`
	RetakeID          *string         `json:"retakeId,omitempty"`
	RetakeRequestedOn *time.Time      `json:"retakeRequestedOn,omitempty"`
}

func newQuestionView(qi *model.QuestionInstance) QuestionView {
	v := QuestionView{ID: qi.ID, Order: qi.Order}
	if qi.Question != nil {
		v.Contents = qi.Question.QuestionContents
	}
	for _, o := range qi.AnswerOptions {
		ov := OptionView{ID: o.ID, Order: o.Order}
		if o.Answer != nil {
			ov.Value = o.Answer.Value
		}
		v.Options = append(v.Options, ov)
	}
	if qi.AnswerChosen != nil {
		correct := qi.IsCorrect()
		v.ChosenOptionID = qi.AnswerChosen.AnswerOptionID
		v.Correct = &correct
		if qi.Question != nil {
			v.Comments = qi.Question.PostAnswerComments
		}
	}
	return v
}

func newInstanceView(st *service.InstanceStatus) InstanceView {
	inst := st.Instance
	return InstanceView{
		ID:                inst.ID,
		CourseTestID:      inst.CourseTestID,
		IsPractice:        inst.IsPractice,
		State:             st.State,
		Answered:          st.Answered,
		Total:             st.Total,
		Deadline:          st.Deadline,
		StartedOn:         inst.TestStartedOn,
		FinishedOn:        inst.TestFinishedOn,
		RetakeID:          inst.RetakeID,
		RetakeRequestedOn: inst.RetakeRequestedOn,
	}
}

// brief 未加载题目时的实例摘要
func brief(inst *model.TestInstance) InstanceView {
	return InstanceView{
		ID:                inst.ID,
		CourseTestID:      inst.CourseTestID,
		IsPractice:        inst.IsPractice,
		Answered:          inst.AnsweredCount(),
		Total:             len(inst.Questions),
		StartedOn:         inst.TestStartedOn,
		FinishedOn:        inst.TestFinishedOn,
		RetakeID:          inst.RetakeID,
		RetakeRequestedOn: inst.RetakeRequestedOn,
	}
}
