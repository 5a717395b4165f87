package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"arena/internal/cache"
	"arena/internal/logger"
	"arena/internal/models"

	"github.com/jmoiron/sqlx"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, problem *models.DsaProblem, testCases []models.TestCaseInput) error
	DeleteProblem(ctx context.Context, problemID int) error
	GetProblemDetail(ctx context.Context, problemID int) (*models.ProblemDetail, error)
	GetProblemWithContext(ctx context.Context, problemID int) (*models.ProblemWithContext, error)
}

type problemRepository struct {
	db    *sqlx.DB
	cache cache.Cache
}

func NewProblemRepository(db *sqlx.DB, cache cache.Cache) ProblemRepository {
	return &problemRepository{db: db, cache: cache}
}

type dsaProblemRow struct {
	ID          int    `db:"id"`
	ContestID   int    `db:"contest_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Tags        []byte `db:"tags"`
	Points      int    `db:"points"`
	TimeLimit   int    `db:"time_limit"`
	MemoryLimit int    `db:"memory_limit"`
}

func (row dsaProblemRow) toModel() (*models.DsaProblem, error) {
	var tags []string
	if len(row.Tags) > 0 {
		if err := json.Unmarshal(row.Tags, &tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for problem %d: %w", row.ID, err)
		}
	}
	return &models.DsaProblem{
		ID:          row.ID,
		ContestID:   row.ContestID,
		Title:       row.Title,
		Description: row.Description,
		Tags:        tags,
		Points:      row.Points,
		TimeLimit:   row.TimeLimit,
		MemoryLimit: row.MemoryLimit,
	}, nil
}

func testCasesCacheKey(problemID int) string {
	return fmt.Sprintf("problem:%d:testcases", problemID)
}

func (r *problemRepository) CreateProblem(ctx context.Context, problem *models.DsaProblem, testCases []models.TestCaseInput) error {
	tags, err := json.Marshal(problem.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO dsa_problems (contest_id, title, description, tags, points, time_limit, memory_limit)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, query,
		problem.ContestID, problem.Title, problem.Description, tags,
		problem.Points, problem.TimeLimit, problem.MemoryLimit)
	if err != nil {
		return fmt.Errorf("failed to create problem: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	problem.ID = int(id)

	tcQuery := `INSERT INTO test_cases (problem_id, position, input, expected_output, is_hidden)
	            VALUES (?, ?, ?, ?, ?)`
	for i, tc := range testCases {
		if _, err := tx.ExecContext(ctx, tcQuery, problem.ID, i, tc.Input, tc.ExpectedOutput, tc.IsHidden); err != nil {
			return fmt.Errorf("failed to create test case %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit problem: %w", err)
	}
	return nil
}

func (r *problemRepository) DeleteProblem(ctx context.Context, problemID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM test_cases WHERE problem_id = ?`, problemID); err != nil {
		return fmt.Errorf("failed to delete test cases: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dsa_submissions WHERE problem_id = ?`, problemID); err != nil {
		return fmt.Errorf("failed to delete submissions: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM dsa_problems WHERE id = ?`, problemID)
	if err != nil {
		return fmt.Errorf("failed to delete problem: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit problem delete: %w", err)
	}

	_ = r.cache.Delete(ctx, testCasesCacheKey(problemID))
	return nil
}

func (r *problemRepository) getProblemRow(ctx context.Context, problemID int) (*models.DsaProblem, error) {
	var row dsaProblemRow
	query := `SELECT id, contest_id, title, description, tags, points, time_limit, memory_limit
	          FROM dsa_problems WHERE id = ?`
	if err := r.db.GetContext(ctx, &row, query, problemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get problem: %w", err)
	}
	return row.toModel()
}

func (r *problemRepository) GetProblemDetail(ctx context.Context, problemID int) (*models.ProblemDetail, error) {
	problem, err := r.getProblemRow(ctx, problemID)
	if err != nil {
		return nil, err
	}

	testCases, err := r.getTestCases(ctx, problemID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.TestCase, 0, len(testCases))
	for _, tc := range testCases {
		if !tc.IsHidden {
			visible = append(visible, tc)
		}
	}

	return &models.ProblemDetail{
		ID:               problem.ID,
		ContestID:        problem.ContestID,
		Title:            problem.Title,
		Description:      problem.Description,
		Tags:             problem.Tags,
		Points:           problem.Points,
		TimeLimit:        problem.TimeLimit,
		MemoryLimit:      problem.MemoryLimit,
		VisibleTestCases: visible,
	}, nil
}

func (r *problemRepository) GetProblemWithContext(ctx context.Context, problemID int) (*models.ProblemWithContext, error) {
	problem, err := r.getProblemRow(ctx, problemID)
	if err != nil {
		return nil, err
	}

	var contest models.Contest
	contestQuery := `SELECT id, title, description, creator_id, start_time, end_time
	                 FROM contests WHERE id = ?`
	if err := r.db.GetContext(ctx, &contest, contestQuery, problem.ContestID); err != nil {
		return nil, fmt.Errorf("failed to get contest for problem %d: %w", problemID, err)
	}

	testCases, err := r.getTestCases(ctx, problemID)
	if err != nil {
		return nil, err
	}

	return &models.ProblemWithContext{
		DsaProblem: *problem,
		Contest:    contest,
		TestCases:  testCases,
	}, nil
}

// getTestCases serves the full ordered test-case list (hidden included)
// through the redis read-through cache; judging hits this on every submit.
func (r *problemRepository) getTestCases(ctx context.Context, problemID int) ([]models.TestCase, error) {
	cacheKey := testCasesCacheKey(problemID)

	var testCases []models.TestCase
	if err := r.cache.Get(ctx, cacheKey, &testCases); err == nil {
		return testCases, nil
	}

	query := `SELECT id, problem_id, position, input, expected_output, is_hidden
	          FROM test_cases WHERE problem_id = ? ORDER BY position`
	if err := r.db.SelectContext(ctx, &testCases, query, problemID); err != nil {
		return nil, fmt.Errorf("failed to get test cases: %w", err)
	}

	if err := r.cache.Set(ctx, cacheKey, testCases, 1*time.Hour); err != nil {
		logger.Log.Warn("Failed to cache test cases")
	}

	return testCases, nil
}
