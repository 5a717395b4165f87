package models

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusProcessing        = "processing"
	StatusAccepted          = "accepted"
	StatusWrongAnswer       = "wrong_answer"
	StatusTimeLimitExceeded = "time_limit_exceeded"
	StatusRuntimeError      = "runtime_error"
)

// IsTerminalStatus reports whether a submission status will never change again.
func IsTerminalStatus(status string) bool {
	return status != StatusProcessing
}

type DsaSubmission struct {
	ID              int       `db:"id" json:"id"`
	UserID          int       `db:"user_id" json:"userId"`
	ProblemID       int       `db:"problem_id" json:"problemId"`
	Code            string    `db:"code" json:"-"`
	Language        string    `db:"language" json:"language"`
	Tokens          []string  `db:"-" json:"-"`
	Status          string    `db:"status" json:"status"`
	PointsEarned    int       `db:"points_earned" json:"pointsEarned"`
	TestCasesPassed int       `db:"test_cases_passed" json:"testCasesPassed"`
	TotalTestCases  int       `db:"total_test_cases" json:"totalTestCases"`
	SubmittedAt     time.Time `db:"submitted_at" json:"submittedAt"`
}

type SubmitCodeRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language" binding:"required"`
}

func (r *SubmitCodeRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return errors.New("code cannot be empty")
	}
	if strings.TrimSpace(r.Language) == "" {
		return errors.New("language cannot be empty")
	}
	return nil
}

// SubmissionStatus is the polling response for one submission.
type SubmissionStatus struct {
	SubmissionID    int    `json:"submissionId"`
	Status          string `json:"status"`
	PointsEarned    *int   `json:"pointsEarned,omitempty"`
	TestCasesPassed *int   `json:"testCasesPassed,omitempty"`
	TotalTestCases  *int   `json:"totalTestCases,omitempty"`
}
