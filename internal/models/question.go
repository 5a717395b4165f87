package models

import (
	"errors"
	"time"
)

type McqQuestion struct {
	ID                 int      `db:"id"`
	ContestID          int      `db:"contest_id"`
	QuestionText       string   `db:"question_text"`
	Options            []string `db:"-"`
	CorrectOptionIndex int      `db:"correct_option_index"`
	Points             int      `db:"points"`
}

// McqQuestionView is the contestee-facing shape; the correct index is
// deliberately not serialized.
type McqQuestionView struct {
	ID             int            `json:"id"`
	QuestionText   string         `json:"questionText"`
	Options        []string       `json:"options"`
	Points         int            `json:"points"`
	UserSubmission *McqSubmission `json:"userSubmission,omitempty"`
}

type McqSubmission struct {
	ID                  int       `db:"id" json:"id"`
	UserID              int       `db:"user_id" json:"userId"`
	QuestionID          int       `db:"question_id" json:"questionId"`
	SelectedOptionIndex int       `db:"selected_option_index" json:"selectedOptionIndex"`
	IsCorrect           bool      `db:"is_correct" json:"isCorrect"`
	PointsEarned        int       `db:"points_earned" json:"pointsEarned"`
	SubmittedAt         time.Time `db:"submitted_at" json:"submittedAt"`
}

type CreateMcqRequest struct {
	QuestionText       string   `json:"questionText" binding:"required"`
	Options            []string `json:"options" binding:"required"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	Points             int      `json:"points" binding:"required"`
}

func (r *CreateMcqRequest) Validate() error {
	if len(r.Options) < 2 {
		return errors.New("at least two options are required")
	}
	if r.CorrectOptionIndex < 0 || r.CorrectOptionIndex >= len(r.Options) {
		return errors.New("correctOptionIndex is out of range")
	}
	if r.Points <= 0 {
		return errors.New("points must be positive")
	}
	return nil
}

type SubmitMcqRequest struct {
	SelectedOptionIndex *int `json:"selectedOptionIndex" binding:"required"`
}

func (r *SubmitMcqRequest) Validate() error {
	if r.SelectedOptionIndex == nil || *r.SelectedOptionIndex < 0 {
		return errors.New("selectedOptionIndex must be a non-negative integer")
	}
	return nil
}
