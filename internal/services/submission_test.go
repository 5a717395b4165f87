package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"arena/internal/judge"
	"arena/internal/models"
	"arena/internal/repositories"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProblemRepo struct {
	problem *models.ProblemWithContext
}

func (f *fakeProblemRepo) CreateProblem(ctx context.Context, problem *models.DsaProblem, testCases []models.TestCaseInput) error {
	panic("not used")
}
func (f *fakeProblemRepo) DeleteProblem(ctx context.Context, problemID int) error {
	panic("not used")
}
func (f *fakeProblemRepo) GetProblemDetail(ctx context.Context, problemID int) (*models.ProblemDetail, error) {
	panic("not used")
}
func (f *fakeProblemRepo) GetProblemWithContext(ctx context.Context, problemID int) (*models.ProblemWithContext, error) {
	if f.problem == nil || f.problem.ID != problemID {
		return nil, repositories.ErrNotFound
	}
	return f.problem, nil
}

type fakeSubmissionRepo struct {
	nextID int
	byID   map[int]*models.DsaSubmission
	gets   int
	// afterFirstGet simulates a concurrent writer landing between the
	// orchestrator's read and its finalize.
	afterFirstGet func(f *fakeSubmissionRepo)
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{nextID: 1, byID: map[int]*models.DsaSubmission{}}
}

func (f *fakeSubmissionRepo) CreateSubmission(ctx context.Context, submission *models.DsaSubmission) error {
	submission.ID = f.nextID
	f.nextID++
	stored := *submission
	f.byID[submission.ID] = &stored
	return nil
}

func (f *fakeSubmissionRepo) GetSubmission(ctx context.Context, submissionID int) (*models.DsaSubmission, error) {
	stored, ok := f.byID[submissionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	snapshot := *stored
	f.gets++
	if f.gets == 1 && f.afterFirstGet != nil {
		f.afterFirstGet(f)
	}
	return &snapshot, nil
}

func (f *fakeSubmissionRepo) FinalizeSubmission(ctx context.Context, submissionID int, status string, passed, pointsEarned int) (bool, error) {
	stored, ok := f.byID[submissionID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if stored.Status != models.StatusProcessing {
		return false, nil
	}
	stored.Status = status
	stored.TestCasesPassed = passed
	stored.PointsEarned = pointsEarned
	return true, nil
}

type fakeDispatcher struct {
	calls int
	err   error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, code string, languageID int, testCases []models.TestCase) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	tokens := make([]string, len(testCases))
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}
	return tokens, nil
}

type fakeAggregator struct {
	calls   int
	outcome judge.Outcome
	err     error
}

func (f *fakeAggregator) Poll(ctx context.Context, tokens []string, problemPoints int) (judge.Outcome, error) {
	f.calls++
	if f.err != nil {
		return judge.Outcome{}, f.err
	}
	return f.outcome, nil
}

type fakeScores struct {
	events []int
}

func (f *fakeScores) PublishScore(ctx context.Context, contestID, userID, points int) error {
	f.events = append(f.events, points)
	return nil
}

type fixture struct {
	svc         *SubmissionService
	problems    *fakeProblemRepo
	submissions *fakeSubmissionRepo
	dispatcher  *fakeDispatcher
	aggregator  *fakeAggregator
	scores      *fakeScores
	lock        *SubmitLock
	rdb         *redis.Client
}

const (
	creatorID   = 1
	contesteeID = 2
)

func activeProblem() *models.ProblemWithContext {
	now := time.Now()
	return &models.ProblemWithContext{
		DsaProblem: models.DsaProblem{
			ID:        10,
			ContestID: 5,
			Points:    100,
		},
		Contest: models.Contest{
			ID:        5,
			CreatorID: creatorID,
			StartTime: now.Add(-time.Hour),
			EndTime:   now.Add(time.Hour),
		},
		TestCases: []models.TestCase{
			{ID: 1, Input: "1", ExpectedOutput: "1"},
			{ID: 2, Input: "2", ExpectedOutput: "4", IsHidden: true},
		},
	}
}

func newFixture(t *testing.T, problem *models.ProblemWithContext) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := &fixture{
		problems:    &fakeProblemRepo{problem: problem},
		submissions: newFakeSubmissionRepo(),
		dispatcher:  &fakeDispatcher{},
		aggregator:  &fakeAggregator{},
		scores:      &fakeScores{},
		lock:        NewSubmitLock(rdb, 30*time.Second),
		rdb:         rdb,
	}
	f.svc = NewSubmissionService(f.problems, f.submissions, f.dispatcher, f.aggregator, f.lock, f.scores)
	return f
}

func TestSubmitCreatesProcessingSubmission(t *testing.T) {
	f := newFixture(t, activeProblem())

	submission, err := f.svc.Submit(context.Background(), contesteeID, 10, "code", "python")
	require.NoError(t, err)

	assert.Equal(t, models.StatusProcessing, submission.Status)
	assert.Equal(t, 2, submission.TotalTestCases)
	assert.Len(t, submission.Tokens, 2)

	stored, err := f.submissions.GetSubmission(context.Background(), submission.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, stored.Status)

	// The lock must be released after a successful dispatch.
	_, err = f.svc.Submit(context.Background(), contesteeID, 10, "code", "python")
	require.NoError(t, err)
}

func TestSubmitRejectsUnsupportedLanguage(t *testing.T) {
	f := newFixture(t, activeProblem())

	_, err := f.svc.Submit(context.Background(), contesteeID, 10, "code", "brainfuck")
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.Zero(t, f.dispatcher.calls)
}

func TestSubmitRejectsUnknownProblem(t *testing.T) {
	f := newFixture(t, activeProblem())

	_, err := f.svc.Submit(context.Background(), contesteeID, 99, "code", "python")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestSubmitEnforcesContestWindow(t *testing.T) {
	problem := activeProblem()
	problem.Contest.StartTime = time.Now().Add(-2 * time.Hour)
	problem.Contest.EndTime = time.Now().Add(-time.Hour)
	f := newFixture(t, problem)

	_, err := f.svc.Submit(context.Background(), contesteeID, 10, "code", "python")
	require.ErrorIs(t, err, ErrContestNotActive)
	assert.Zero(t, f.dispatcher.calls)
}

func TestSubmitCreatorBypassesWindow(t *testing.T) {
	problem := activeProblem()
	problem.Contest.EndTime = time.Now().Add(-time.Hour)
	problem.Contest.StartTime = time.Now().Add(-2 * time.Hour)
	f := newFixture(t, problem)

	_, err := f.svc.Submit(context.Background(), creatorID, 10, "code", "python")
	require.NoError(t, err)
}

func TestSubmitDispatchFailureCreatesNothing(t *testing.T) {
	f := newFixture(t, activeProblem())
	f.dispatcher.err = fmt.Errorf("%w: judge down", judge.ErrDispatchFailed)

	_, err := f.svc.Submit(context.Background(), contesteeID, 10, "code", "python")
	require.ErrorIs(t, err, judge.ErrDispatchFailed)
	assert.Empty(t, f.submissions.byID)
}

func TestSubmitRejectsConcurrentDuplicate(t *testing.T) {
	f := newFixture(t, activeProblem())

	acquired, err := f.lock.Acquire(context.Background(), contesteeID, 10)
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = f.svc.Submit(context.Background(), contesteeID, 10, "code", "python")
	require.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Zero(t, f.dispatcher.calls)
}

func submitProcessing(t *testing.T, f *fixture) int {
	t.Helper()
	submission, err := f.svc.Submit(context.Background(), contesteeID, 10, "code", "python")
	require.NoError(t, err)
	return submission.ID
}

func TestStatusRejectsForeignSubmission(t *testing.T) {
	f := newFixture(t, activeProblem())
	id := submitProcessing(t, f)

	_, err := f.svc.Status(context.Background(), creatorID, id)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestStatusStillProcessingDoesNotMutate(t *testing.T) {
	f := newFixture(t, activeProblem())
	id := submitProcessing(t, f)
	f.aggregator.outcome = judge.Outcome{Done: false}

	status, err := f.svc.Status(context.Background(), contesteeID, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, status.Status)
	assert.Nil(t, status.PointsEarned)

	stored, _ := f.submissions.GetSubmission(context.Background(), id)
	assert.Equal(t, models.StatusProcessing, stored.Status)
	assert.Empty(t, f.scores.events)
}

func TestStatusFinalizesOnce(t *testing.T) {
	f := newFixture(t, activeProblem())
	id := submitProcessing(t, f)
	f.aggregator.outcome = judge.Outcome{
		Done:            true,
		Status:          models.StatusWrongAnswer,
		TestCasesPassed: 1,
		TotalTestCases:  2,
		PointsEarned:    50,
	}

	status, err := f.svc.Status(context.Background(), contesteeID, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWrongAnswer, status.Status)
	require.NotNil(t, status.PointsEarned)
	assert.Equal(t, 50, *status.PointsEarned)
	assert.Equal(t, 1, *status.TestCasesPassed)
	assert.Equal(t, 2, *status.TotalTestCases)
	assert.Equal(t, []int{50}, f.scores.events)
	assert.Equal(t, 1, f.aggregator.calls)

	// Terminal reads are idempotent and never touch the judge again.
	again, err := f.svc.Status(context.Background(), contesteeID, id)
	require.NoError(t, err)
	assert.Equal(t, status, again)
	assert.Equal(t, 1, f.aggregator.calls)
	assert.Equal(t, []int{50}, f.scores.events)
}

func TestStatusLostRaceReturnsStoredRecord(t *testing.T) {
	f := newFixture(t, activeProblem())
	id := submitProcessing(t, f)

	// A concurrent poller finalizes right after our read; our own finalize
	// must lose and the stored values win.
	f.submissions.afterFirstGet = func(repo *fakeSubmissionRepo) {
		winner := repo.byID[id]
		winner.Status = models.StatusAccepted
		winner.TestCasesPassed = 2
		winner.PointsEarned = 100
	}
	f.aggregator.outcome = judge.Outcome{
		Done:            true,
		Status:          models.StatusWrongAnswer,
		TestCasesPassed: 1,
		TotalTestCases:  2,
		PointsEarned:    50,
	}

	status, err := f.svc.Status(context.Background(), contesteeID, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, status.Status)
	assert.Equal(t, 100, *status.PointsEarned)
	// The loser must not double-publish the score.
	assert.Empty(t, f.scores.events)
}

func TestStatusPollFailureLeavesProcessing(t *testing.T) {
	f := newFixture(t, activeProblem())
	id := submitProcessing(t, f)
	f.aggregator.err = errors.New("judge unreachable")

	_, err := f.svc.Status(context.Background(), contesteeID, id)
	require.Error(t, err)

	stored, _ := f.submissions.GetSubmission(context.Background(), id)
	assert.Equal(t, models.StatusProcessing, stored.Status)
}

func TestStatusUnknownSubmission(t *testing.T) {
	f := newFixture(t, activeProblem())

	_, err := f.svc.Status(context.Background(), contesteeID, 404)
	require.ErrorIs(t, err, repositories.ErrNotFound)
}
