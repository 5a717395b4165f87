package models

import (
	"errors"
	"strings"
)

type DsaProblem struct {
	ID          int      `db:"id"`
	ContestID   int      `db:"contest_id"`
	Title       string   `db:"title"`
	Description string   `db:"description"`
	Tags        []string `db:"-"`
	Points      int      `db:"points"`
	TimeLimit   int      `db:"time_limit"`
	MemoryLimit int      `db:"memory_limit"`
}

type TestCase struct {
	ID             int    `db:"id" json:"id"`
	ProblemID      int    `db:"problem_id" json:"-"`
	Position       int    `db:"position" json:"-"`
	Input          string `db:"input" json:"input"`
	ExpectedOutput string `db:"expected_output" json:"expectedOutput"`
	IsHidden       bool   `db:"is_hidden" json:"-"`
}

// ProblemWithContext carries everything the submission pipeline needs in one
// lookup: the problem, its contest window and all test cases, hidden included.
type ProblemWithContext struct {
	DsaProblem
	Contest   Contest
	TestCases []TestCase
}

type DsaProblemView struct {
	ID             int            `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Tags           []string       `json:"tags"`
	Points         int            `json:"points"`
	TimeLimit      int            `json:"timeLimit"`
	MemoryLimit    int            `json:"memoryLimit"`
	UserSubmission *DsaSubmission `json:"userSubmission,omitempty"`
}

// ProblemDetail is the statement page shape: hidden test cases withheld.
type ProblemDetail struct {
	ID               int        `json:"id"`
	ContestID        int        `json:"contestId"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Tags             []string   `json:"tags"`
	Points           int        `json:"points"`
	TimeLimit        int        `json:"timeLimit"`
	MemoryLimit      int        `json:"memoryLimit"`
	VisibleTestCases []TestCase `json:"visibleTestCases"`
}

type TestCaseInput struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	IsHidden       bool   `json:"isHidden"`
}

type CreateDsaRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Tags        []string        `json:"tags"`
	Points      int             `json:"points" binding:"required"`
	TimeLimit   int             `json:"timeLimit" binding:"required"`
	MemoryLimit int             `json:"memoryLimit" binding:"required"`
	TestCases   []TestCaseInput `json:"testCases" binding:"required"`
}

func (r *CreateDsaRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title cannot be empty")
	}
	if r.Points <= 0 {
		return errors.New("points must be positive")
	}
	if len(r.TestCases) < 1 {
		return errors.New("at least one test case is required")
	}
	return nil
}
