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

type ContestRepository interface {
	ListContests(ctx context.Context) ([]models.ContestListItem, error)
	ListContestsByCreator(ctx context.Context, creatorID int) ([]models.ContestListItem, error)
	CreateContest(ctx context.Context, contest *models.Contest) error
	GetContest(ctx context.Context, contestID int) (*models.Contest, error)
	GetMcqsByContest(ctx context.Context, contestID int) ([]models.McqQuestion, error)
	GetDsaProblemsByContest(ctx context.Context, contestID int) ([]models.DsaProblem, error)
	GetUserMcqSubmissions(ctx context.Context, userID, contestID int) (map[int]models.McqSubmission, error)
	GetUserDsaSubmissions(ctx context.Context, userID, contestID int) (map[int]models.DsaSubmission, error)
}

type contestRepository struct {
	db *sqlx.DB
}

func NewContestRepository(db *sqlx.DB) ContestRepository {
	return &contestRepository{db: db}
}

const contestListQuery = `
	SELECT c.id, c.title, c.description, c.creator_id, c.start_time, c.end_time,
	       u.username AS creator_name
	FROM contests c
	JOIN users u ON u.id = c.creator_id`

func (r *contestRepository) ListContests(ctx context.Context) ([]models.ContestListItem, error) {
	var contests []models.ContestListItem
	query := contestListQuery + ` ORDER BY c.start_time DESC`
	if err := r.db.SelectContext(ctx, &contests, query); err != nil {
		return nil, fmt.Errorf("failed to list contests: %w", err)
	}
	return contests, nil
}

func (r *contestRepository) ListContestsByCreator(ctx context.Context, creatorID int) ([]models.ContestListItem, error) {
	var contests []models.ContestListItem
	query := contestListQuery + ` WHERE c.creator_id = ? ORDER BY c.start_time DESC`
	if err := r.db.SelectContext(ctx, &contests, query, creatorID); err != nil {
		return nil, fmt.Errorf("failed to list contests by creator: %w", err)
	}
	return contests, nil
}

func (r *contestRepository) CreateContest(ctx context.Context, contest *models.Contest) error {
	query := `INSERT INTO contests (title, description, creator_id, start_time, end_time)
	          VALUES (?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		contest.Title, contest.Description, contest.CreatorID,
		contest.StartTime, contest.EndTime)
	if err != nil {
		return fmt.Errorf("failed to create contest: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	contest.ID = int(id)
	return nil
}

func (r *contestRepository) GetContest(ctx context.Context, contestID int) (*models.Contest, error) {
	var contest models.Contest
	query := `SELECT id, title, description, creator_id, start_time, end_time
	          FROM contests WHERE id = ?`
	if err := r.db.GetContext(ctx, &contest, query, contestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	return &contest, nil
}

func (r *contestRepository) GetMcqsByContest(ctx context.Context, contestID int) ([]models.McqQuestion, error) {
	query := `SELECT id, contest_id, question_text, options, correct_option_index, points
	          FROM mcq_questions WHERE contest_id = ? ORDER BY id`

	var rows []struct {
		ID                 int    `db:"id"`
		ContestID          int    `db:"contest_id"`
		QuestionText       string `db:"question_text"`
		Options            []byte `db:"options"`
		CorrectOptionIndex int    `db:"correct_option_index"`
		Points             int    `db:"points"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, contestID); err != nil {
		return nil, fmt.Errorf("failed to get mcq questions: %w", err)
	}

	questions := make([]models.McqQuestion, len(rows))
	for i, row := range rows {
		var options []string
		if err := json.Unmarshal(row.Options, &options); err != nil {
			return nil, fmt.Errorf("failed to decode options for question %d: %w", row.ID, err)
		}
		questions[i] = models.McqQuestion{
			ID:                 row.ID,
			ContestID:          row.ContestID,
			QuestionText:       row.QuestionText,
			Options:            options,
			CorrectOptionIndex: row.CorrectOptionIndex,
			Points:             row.Points,
		}
	}
	return questions, nil
}

func (r *contestRepository) GetDsaProblemsByContest(ctx context.Context, contestID int) ([]models.DsaProblem, error) {
	query := `SELECT id, contest_id, title, description, tags, points, time_limit, memory_limit
	          FROM dsa_problems WHERE contest_id = ? ORDER BY id`

	var rows []dsaProblemRow
	if err := r.db.SelectContext(ctx, &rows, query, contestID); err != nil {
		return nil, fmt.Errorf("failed to get dsa problems: %w", err)
	}

	problems := make([]models.DsaProblem, len(rows))
	for i, row := range rows {
		problem, err := row.toModel()
		if err != nil {
			return nil, err
		}
		problems[i] = *problem
	}
	return problems, nil
}

func (r *contestRepository) GetUserMcqSubmissions(ctx context.Context, userID, contestID int) (map[int]models.McqSubmission, error) {
	query := `SELECT s.id, s.user_id, s.question_id, s.selected_option_index,
	                 s.is_correct, s.points_earned, s.submitted_at
	          FROM mcq_submissions s
	          JOIN mcq_questions q ON q.id = s.question_id
	          WHERE s.user_id = ? AND q.contest_id = ?`

	var subs []models.McqSubmission
	if err := r.db.SelectContext(ctx, &subs, query, userID, contestID); err != nil {
		return nil, fmt.Errorf("failed to get user mcq submissions: %w", err)
	}

	byQuestion := make(map[int]models.McqSubmission, len(subs))
	for _, s := range subs {
		byQuestion[s.QuestionID] = s
	}
	return byQuestion, nil
}

func (r *contestRepository) GetUserDsaSubmissions(ctx context.Context, userID, contestID int) (map[int]models.DsaSubmission, error) {
	query := `SELECT s.id, s.user_id, s.problem_id, s.language, s.status,
	                 s.points_earned, s.test_cases_passed, s.total_test_cases, s.submitted_at
	          FROM dsa_submissions s
	          JOIN dsa_problems p ON p.id = s.problem_id
	          WHERE s.user_id = ? AND p.contest_id = ?
	          ORDER BY s.points_earned DESC`

	var subs []models.DsaSubmission
	if err := r.db.SelectContext(ctx, &subs, query, userID, contestID); err != nil {
		return nil, fmt.Errorf("failed to get user dsa submissions: %w", err)
	}

	// Keep the best-scoring submission per problem.
	byProblem := make(map[int]models.DsaSubmission, len(subs))
	for _, s := range subs {
		if _, ok := byProblem[s.ProblemID]; !ok {
			byProblem[s.ProblemID] = s
		}
	}
	return byProblem, nil
}
