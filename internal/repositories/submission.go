package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"arena/internal/models"

	"github.com/jmoiron/sqlx"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, submission *models.DsaSubmission) error
	GetSubmission(ctx context.Context, submissionID int) (*models.DsaSubmission, error)
	FinalizeSubmission(ctx context.Context, submissionID int, status string, passed, pointsEarned int) (bool, error)
}

type submissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) CreateSubmission(ctx context.Context, submission *models.DsaSubmission) error {
	tokens, err := json.Marshal(submission.Tokens)
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}

	query := `INSERT INTO dsa_submissions
	          (user_id, problem_id, code, language, tokens, status, total_test_cases)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		submission.UserID, submission.ProblemID, submission.Code,
		submission.Language, tokens, submission.Status, submission.TotalTestCases)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	submission.ID = int(id)
	return nil
}

func (r *submissionRepository) GetSubmission(ctx context.Context, submissionID int) (*models.DsaSubmission, error) {
	query := `SELECT id, user_id, problem_id, code, language, tokens, status,
	                 points_earned, test_cases_passed, total_test_cases, submitted_at
	          FROM dsa_submissions WHERE id = ?`

	var row struct {
		models.DsaSubmission
		RawTokens []byte `db:"tokens"`
	}
	if err := r.db.GetContext(ctx, &row, query, submissionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	submission := row.DsaSubmission
	if err := json.Unmarshal(row.RawTokens, &submission.Tokens); err != nil {
		return nil, fmt.Errorf("failed to decode tokens for submission %d: %w", submissionID, err)
	}
	return &submission, nil
}

// FinalizeSubmission performs the single allowed transition, processing to a
// terminal status. The WHERE clause makes the first writer win: a concurrent
// poll that lost the race updates zero rows and reads the stored record back.
func (r *submissionRepository) FinalizeSubmission(ctx context.Context, submissionID int, status string, passed, pointsEarned int) (bool, error) {
	query := `UPDATE dsa_submissions
	          SET status = ?, test_cases_passed = ?, points_earned = ?
	          WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query,
		status, passed, pointsEarned, submissionID, models.StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("failed to finalize submission: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}
