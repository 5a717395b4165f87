package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arena/internal/judge"
	"arena/internal/logger"
	"arena/internal/models"
	"arena/internal/repositories"

	"go.uber.org/zap"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrContestNotActive    = errors.New("contest is not active")
	ErrForbidden           = errors.New("forbidden")
	ErrSubmissionInFlight  = errors.New("a submission for this problem is already in flight")
)

// Dispatcher sends one execution per test case and returns judge tokens in
// test-case order.
type Dispatcher interface {
	Dispatch(ctx context.Context, code string, languageID int, testCases []models.TestCase) ([]string, error)
}

// Aggregator reduces a submission's tokens to a final verdict, or reports
// that the judge is still running.
type Aggregator interface {
	Poll(ctx context.Context, tokens []string, problemPoints int) (judge.Outcome, error)
}

// ScorePublisher records earned points for the contest leaderboard.
type ScorePublisher interface {
	PublishScore(ctx context.Context, contestID, userID, points int) error
}

// SubmissionService orchestrates the code-judging pipeline: eligibility,
// dispatch, persistence and client-driven result polling. It is the only
// component that mutates a submission, and it does so exactly once.
type SubmissionService struct {
	problems    repositories.ProblemRepository
	submissions repositories.SubmissionRepository
	dispatcher  Dispatcher
	aggregator  Aggregator
	lock        *SubmitLock
	scores      ScorePublisher
	now         func() time.Time
}

func NewSubmissionService(
	problems repositories.ProblemRepository,
	submissions repositories.SubmissionRepository,
	dispatcher Dispatcher,
	aggregator Aggregator,
	lock *SubmitLock,
	scores ScorePublisher,
) *SubmissionService {
	return &SubmissionService{
		problems:    problems,
		submissions: submissions,
		dispatcher:  dispatcher,
		aggregator:  aggregator,
		lock:        lock,
		scores:      scores,
		now:         time.Now,
	}
}

// Submit validates eligibility, dispatches every test case (hidden included)
// to the judge and persists the submission as processing. No submission row
// exists if dispatch fails.
func (s *SubmissionService) Submit(ctx context.Context, userID, problemID int, code, language string) (*models.DsaSubmission, error) {
	languageID, ok := judge.Resolve(language)
	if !ok {
		return nil, ErrUnsupportedLanguage
	}

	problem, err := s.problems.GetProblemWithContext(ctx, problemID)
	if err != nil {
		return nil, err
	}

	// Contest creators may submit to their own problems at any time; everyone
	// else only inside the contest window.
	isCreator := problem.Contest.CreatorID == userID
	if !isCreator && !problem.Contest.IsActive(s.now()) {
		return nil, ErrContestNotActive
	}

	acquired, err := s.lock.Acquire(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrSubmissionInFlight
	}
	defer s.lock.Release(ctx, userID, problemID)

	tokens, err := s.dispatcher.Dispatch(ctx, code, languageID, problem.TestCases)
	if err != nil {
		return nil, err
	}

	submission := &models.DsaSubmission{
		UserID:         userID,
		ProblemID:      problemID,
		Code:           code,
		Language:       language,
		Tokens:         tokens,
		Status:         models.StatusProcessing,
		TotalTestCases: len(tokens),
	}
	if err := s.submissions.CreateSubmission(ctx, submission); err != nil {
		return nil, err
	}

	logger.Log.Info("Submission dispatched",
		zap.Int("submission_id", submission.ID),
		zap.Int("problem_id", problemID),
		zap.Int("test_cases", len(tokens)))

	return submission, nil
}

// Status returns the current state of a submission. A terminal submission is
// returned verbatim without touching the judge. A processing submission gets
// one aggregation attempt; finalization is first writer wins.
func (s *SubmissionService) Status(ctx context.Context, userID, submissionID int) (*models.SubmissionStatus, error) {
	submission, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission.UserID != userID {
		return nil, ErrForbidden
	}

	if models.IsTerminalStatus(submission.Status) {
		return terminalStatus(submission), nil
	}

	problem, err := s.problems.GetProblemWithContext(ctx, submission.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load problem for submission %d: %w", submissionID, err)
	}

	outcome, err := s.aggregator.Poll(ctx, submission.Tokens, problem.Points)
	if err != nil {
		// Transient: the submission stays processing and the client repolls.
		return nil, err
	}
	if !outcome.Done {
		return &models.SubmissionStatus{
			SubmissionID: submission.ID,
			Status:       models.StatusProcessing,
		}, nil
	}

	won, err := s.submissions.FinalizeSubmission(ctx, submissionID,
		outcome.Status, outcome.TestCasesPassed, outcome.PointsEarned)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent poll finalized first; its stored values are the truth.
		stored, err := s.submissions.GetSubmission(ctx, submissionID)
		if err != nil {
			return nil, err
		}
		return terminalStatus(stored), nil
	}

	logger.Log.Info("Submission finalized",
		zap.Int("submission_id", submissionID),
		zap.String("status", outcome.Status),
		zap.Int("passed", outcome.TestCasesPassed),
		zap.Int("total", outcome.TotalTestCases))

	if outcome.PointsEarned > 0 {
		if err := s.scores.PublishScore(ctx, problem.ContestID, userID, outcome.PointsEarned); err != nil {
			logger.Log.Warn("Failed to publish score event",
				zap.Int("submission_id", submissionID),
				zap.Error(err))
		}
	}

	submission.Status = outcome.Status
	submission.TestCasesPassed = outcome.TestCasesPassed
	submission.PointsEarned = outcome.PointsEarned
	return terminalStatus(submission), nil
}

func terminalStatus(submission *models.DsaSubmission) *models.SubmissionStatus {
	passed := submission.TestCasesPassed
	total := submission.TotalTestCases
	points := submission.PointsEarned
	return &models.SubmissionStatus{
		SubmissionID:    submission.ID,
		Status:          submission.Status,
		PointsEarned:    &points,
		TestCasesPassed: &passed,
		TotalTestCases:  &total,
	}
}
