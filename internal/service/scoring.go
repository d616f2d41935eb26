package service

import (
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"math"
)

type Score struct {
	Total   int     `json:"total"`
	Correct int     `json:"correct"`
	Percent float64 `json:"percent"`
	Passed  bool    `json:"passed"`
}

// ComputeScore 正确率保留两位小数，没有题目时返回 util.ErrNoQuestions
func ComputeScore(inst *model.TestInstance, passingPercentage float64) (*Score, error) {
	total := len(inst.Questions)
	if total == 0 {
		return nil, util.ErrNoQuestions
	}

	correct := 0
	for i := range inst.Questions {
		if inst.Questions[i].IsCorrect() {
			correct++
		}
	}

	percent := math.Round(float64(correct)/float64(total)*100*100) / 100
	return &Score{
		Total:   total,
		Correct: correct,
		Percent: percent,
		Passed:  percent >= passingPercentage,
	}, nil
}
