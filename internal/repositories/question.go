package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"arena/internal/models"

	"github.com/jmoiron/sqlx"
)

type QuestionRepository interface {
	CreateMcq(ctx context.Context, question *models.McqQuestion) error
	GetMcq(ctx context.Context, questionID, contestID int) (*models.McqQuestion, error)
	CreateMcqSubmission(ctx context.Context, submission *models.McqSubmission) error
	DeleteMcq(ctx context.Context, questionID int) error
}

type questionRepository struct {
	db *sqlx.DB
}

func NewQuestionRepository(db *sqlx.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) CreateMcq(ctx context.Context, question *models.McqQuestion) error {
	options, err := json.Marshal(question.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}

	query := `INSERT INTO mcq_questions (contest_id, question_text, options, correct_option_index, points)
	          VALUES (?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		question.ContestID, question.QuestionText, options,
		question.CorrectOptionIndex, question.Points)
	if err != nil {
		return fmt.Errorf("failed to create mcq question: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	question.ID = int(id)
	return nil
}

func (r *questionRepository) GetMcq(ctx context.Context, questionID, contestID int) (*models.McqQuestion, error) {
	query := `SELECT id, contest_id, question_text, options, correct_option_index, points
	          FROM mcq_questions WHERE id = ? AND contest_id = ?`

	var row struct {
		ID                 int    `db:"id"`
		ContestID          int    `db:"contest_id"`
		QuestionText       string `db:"question_text"`
		Options            []byte `db:"options"`
		CorrectOptionIndex int    `db:"correct_option_index"`
		Points             int    `db:"points"`
	}
	if err := r.db.GetContext(ctx, &row, query, questionID, contestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mcq question: %w", err)
	}

	var options []string
	if err := json.Unmarshal(row.Options, &options); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}

	return &models.McqQuestion{
		ID:                 row.ID,
		ContestID:          row.ContestID,
		QuestionText:       row.QuestionText,
		Options:            options,
		CorrectOptionIndex: row.CorrectOptionIndex,
		Points:             row.Points,
	}, nil
}

// CreateMcqSubmission inserts an at-most-once answer. The unique key on
// (user_id, question_id) turns a duplicate into ErrAlreadySubmitted.
func (r *questionRepository) CreateMcqSubmission(ctx context.Context, submission *models.McqSubmission) error {
	query := `INSERT INTO mcq_submissions (user_id, question_id, selected_option_index, is_correct, points_earned)
	          VALUES (?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		submission.UserID, submission.QuestionID, submission.SelectedOptionIndex,
		submission.IsCorrect, submission.PointsEarned)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return ErrAlreadySubmitted
		}
		return fmt.Errorf("failed to create mcq submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	submission.ID = int(id)
	return nil
}

func (r *questionRepository) DeleteMcq(ctx context.Context, questionID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mcq_submissions WHERE question_id = ?`, questionID); err != nil {
		return fmt.Errorf("failed to delete mcq submissions: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM mcq_questions WHERE id = ?`, questionID)
	if err != nil {
		return fmt.Errorf("failed to delete mcq question: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}
